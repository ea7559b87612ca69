package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/puyobattle/internal/logging"
	"github.com/MJE43/puyobattle/internal/margin"
	"github.com/MJE43/puyobattle/internal/nuisance"
	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/seed"
	"github.com/MJE43/puyobattle/internal/session"
	"github.com/MJE43/puyobattle/internal/settings"
)

// matchEpoch anchors simulated clocks; only offsets from it are reported
var matchEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// decodeJSON reads the body into dst, writing the error response on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		engineErr := NewError(ErrTypeInvalidJSON, "Invalid JSON format").
			WithRequestID(middleware.GetReqID(r.Context())).
			WithCause(err).
			Build()
		s.errorHandler.HandleError(w, r, engineErr, http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	def := settings.Default(0)
	s.writeJSON(w, http.StatusOK, BuildSettingsResponse{
		Settings:      newSettingsView(def),
		Wire:          def.Serialize(),
		Fields:        settings.NewBuilder().Results(),
		EngineVersion: EngineVersion,
	})
}

// handleBuildSettings runs raw form values through the builder
func (s *Server) handleBuildSettings(w http.ResponseWriter, r *http.Request) {
	var req BuildSettingsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateBuildSettingsRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "fields", err.Error())
		return
	}

	var opts []settings.Option
	if req.Nonce != nil {
		if s.opts.HostSecret == "" {
			s.notConfigured(w, r)
			return
		}
		opts = append(opts, settings.WithSeed(seed.MatchSeed(s.opts.HostSecret, req.Room, *req.Nonce)))
	}

	b := settings.NewBuilder(opts...)
	for _, f := range settings.Fields {
		if raw, ok := req.Fields[string(f)]; ok {
			b.Set(f, raw)
		}
	}
	built, results := b.Resolve()
	rejected := b.Rejected()

	s.logger.Info("settings_built",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("wire", built.Serialize()),
		zap.Int("fields_given", len(req.Fields)),
		zap.Int("fields_rejected", len(rejected)),
	)

	s.writeJSON(w, http.StatusOK, BuildSettingsResponse{
		Settings:      newSettingsView(built),
		Wire:          built.Serialize(),
		Fields:        results,
		Rejected:      len(rejected),
		EngineVersion: EngineVersion,
	})
}

// handleDecodeSettings decodes a wire string and reports whether it is in range
func (s *Server) handleDecodeSettings(w http.ResponseWriter, r *http.Request) {
	var req WireRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateWireRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "wire", err.Error())
		return
	}

	decoded, ok := s.decodeWire(w, r, req.Wire)
	if !ok {
		return
	}
	resp := DecodeSettingsResponse{
		Settings:      newSettingsView(decoded),
		Valid:         true,
		EngineVersion: EngineVersion,
	}
	if err := decoded.Validate(); err != nil {
		resp.Valid = false
		resp.Problem = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleCheckSettings runs the JavaScript peer conformance check
func (s *Server) handleCheckSettings(w http.ResponseWriter, r *http.Request) {
	var req WireRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateWireRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "wire", err.Error())
		return
	}
	decoded, ok := s.decodeWire(w, r, req.Wire)
	if !ok {
		return
	}

	rep, err := s.checker.Check(decoded)
	if err != nil {
		s.errorHandler.HandleRulesError(w, r, ErrTypePeerCheck, err)
		return
	}
	if !rep.OK() {
		s.logger.Warn("peer_mismatch",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("wire", rep.Wire),
			zap.String("peer_wire", rep.PeerWire),
			zap.Int("mismatches", len(rep.Mismatches)),
		)
	}
	s.writeJSON(w, http.StatusOK, CheckSettingsResponse{Report: rep, OK: rep.OK(), EngineVersion: EngineVersion})
}

// handleScore scores every step of a chain
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateScoreRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "steps", err.Error())
		return
	}

	resp := ScoreResponse{Steps: make([]scoring.Breakdown, 0, len(req.Steps)), EngineVersion: EngineVersion}
	for _, step := range req.Steps {
		b, err := scoring.Explain(step.Tiles, step.Chain)
		if err != nil {
			s.errorHandler.HandleRulesError(w, r, ErrTypeScoring, err)
			return
		}
		resp.Steps = append(resp.Steps, b)
		resp.Total += b.Score
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleNuisance converts score into attack units
func (s *Server) handleNuisance(w http.ResponseWriter, r *http.Request) {
	var req NuisanceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	res, err := nuisance.Convert(req.ScoreDelta, req.TargetPoints, req.Carry)
	if err != nil {
		s.errorHandler.HandleRulesError(w, r, ErrTypeNuisance, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NuisanceResponse{Units: res.Units, Carry: res.Carry, EngineVersion: EngineVersion})
}

// handleMargin reports the margin clock ElapsedMs into a match
func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	var req MarginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateMarginRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "elapsed_ms", err.Error())
		return
	}
	decoded, ok := s.decodeWire(w, r, req.Wire)
	if !ok {
		return
	}

	decoded.StartClock(matchEpoch)
	applied := decoded.Tick(matchEpoch.Add(time.Duration(req.ElapsedMs) * time.Millisecond))

	resp := MarginResponse{
		Reductions:    marginSteps(applied),
		TargetPoints:  decoded.TargetPoints,
		Started:       decoded.Clock.Started,
		Frozen:        decoded.Clock.Frozen(decoded.TargetPoints),
		EngineVersion: EngineVersion,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSeed derives a match seed from the host secret
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateSeedRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "room", err.Error())
		return
	}
	if s.opts.HostSecret == "" {
		s.notConfigured(w, r)
		return
	}

	v := seed.MatchSeed(s.opts.HostSecret, req.Room, req.Nonce)
	s.logger.Info("seed_derived",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("room", req.Room),
		zap.Uint64("nonce", req.Nonce),
		logging.Secret("host_secret", s.opts.HostSecret),
	)
	s.writeJSON(w, http.StatusOK, SeedResponse{
		Seed:          v,
		SeedText:      settings.FormatFloat(v),
		Commitment:    seed.Commitment(s.opts.HostSecret),
		EngineVersion: EngineVersion,
		Echo:          req,
	})
}

// handleMatch replays a local match: a human and CPU peers, each with its
// own settings copy, fed the chains listed in the request
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := ValidateMatchRequest(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "match", err.Error())
		return
	}

	cpus := make([]session.CPU, len(req.CPUs))
	for i, c := range req.CPUs {
		speed, _ := session.SpeedFromSlider(c.Slider)
		cpus[i] = session.CPU{ID: c.ID, AI: c.AI, Speed: speed}
	}
	m, err := session.NewMatch(req.Wire, req.Human, cpus)
	if err != nil {
		if errors.Is(err, settings.ErrMalformedSettings) {
			s.errorHandler.HandleValidationError(w, r, "wire", err.Error())
			return
		}
		s.errorHandler.HandleValidationError(w, r, "cpus", err.Error())
		return
	}

	m.Start(matchEpoch)
	resp := MatchResponse{MatchID: m.ID.String(), Attacks: []MatchAttack{}, EngineVersion: EngineVersion}
	for _, ev := range req.Events {
		hit, err := m.Chain(ev.Peer, ev.Steps, matchEpoch.Add(time.Duration(ev.AtMs)*time.Millisecond))
		if err != nil {
			s.errorHandler.HandleRulesError(w, r, ErrTypeScoring, err)
			return
		}
		resp.Attacks = append(resp.Attacks, MatchAttack{AtMs: ev.AtMs, Targeted: hit})
	}
	resp.Peers = m.Peers

	s.logger.Info("match_replayed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("match_id", resp.MatchID),
		zap.Int("peers", len(m.Peers)),
		zap.Int("events", len(req.Events)),
	)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeWire(w http.ResponseWriter, r *http.Request, wire string) (settings.MatchSettings, bool) {
	decoded, err := settings.Deserialize(wire)
	if err != nil {
		engineErr := NewError(ErrTypeInvalidSettings, err.Error()).
			WithRequestID(middleware.GetReqID(r.Context())).
			WithContext("wire", wire).
			Build()
		s.errorHandler.HandleError(w, r, engineErr, http.StatusBadRequest)
		return settings.MatchSettings{}, false
	}
	return decoded, true
}

func (s *Server) notConfigured(w http.ResponseWriter, r *http.Request) {
	engineErr := NewError(ErrTypeNotConfigured, "seed derivation requires a host secret").
		WithRequestID(middleware.GetReqID(r.Context())).
		Build()
	s.errorHandler.HandleError(w, r, engineErr, http.StatusServiceUnavailable)
}

func marginSteps(applied []margin.Reduction) []MarginStep {
	out := make([]MarginStep, len(applied))
	for i, red := range applied {
		out[i] = MarginStep{
			AtMs:  red.At.Sub(matchEpoch).Milliseconds(),
			From:  red.From,
			To:    red.To,
			Count: red.Count,
			First: red.First,
		}
	}
	return out
}
