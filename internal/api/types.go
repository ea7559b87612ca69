package api

import (
	"github.com/MJE43/puyobattle/internal/conformance"
	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/session"
	"github.com/MJE43/puyobattle/internal/settings"
)

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// SettingsView is the JSON form of MatchSettings, with margin time in ms
type SettingsView struct {
	Gamemode         string  `json:"gamemode"`
	Gravity          float64 `json:"gravity"`
	Rows             int     `json:"rows"`
	Cols             int     `json:"cols"`
	SoftDrop         float64 `json:"soft_drop"`
	NumColours       int     `json:"num_colours"`
	TargetPoints     int     `json:"target_points"`
	MarginTimeMs     int64   `json:"margin_time_ms"`
	MinChain         int     `json:"min_chain"`
	Seed             float64 `json:"seed"`
	NuisanceSpawnRow int     `json:"nuisance_spawn_row"`
}

func newSettingsView(s settings.MatchSettings) SettingsView {
	return SettingsView{
		Gamemode:         string(s.Gamemode),
		Gravity:          s.Gravity,
		Rows:             s.Rows,
		Cols:             s.Cols,
		SoftDrop:         s.SoftDrop,
		NumColours:       s.NumColours,
		TargetPoints:     s.TargetPoints,
		MarginTimeMs:     s.MarginTime.Milliseconds(),
		MinChain:         s.MinChain,
		Seed:             s.Seed,
		NuisanceSpawnRow: s.NuisanceSpawnRow(),
	}
}

// BuildSettingsRequest carries raw form values keyed by field name.
// Room and Nonce, when set, derive the seed from the host secret.
type BuildSettingsRequest struct {
	Fields map[string]string `json:"fields"`
	Room   string            `json:"room,omitempty"`
	Nonce  *uint64           `json:"nonce,omitempty"`
}

// BuildSettingsResponse returns the resolved settings and per-field results
type BuildSettingsResponse struct {
	Settings      SettingsView           `json:"settings"`
	Wire          string                 `json:"wire"`
	Fields        []settings.FieldResult `json:"fields"`
	Rejected      int                    `json:"rejected"`
	EngineVersion string                 `json:"engine_version"`
}

// WireRequest carries a settings wire string
type WireRequest struct {
	Wire string `json:"wire"`
}

// DecodeSettingsResponse returns decoded settings; Problem explains Valid=false
type DecodeSettingsResponse struct {
	Settings      SettingsView `json:"settings"`
	Valid         bool         `json:"valid"`
	Problem       string       `json:"problem,omitempty"`
	EngineVersion string       `json:"engine_version"`
}

// CheckSettingsResponse wraps a peer conformance report
type CheckSettingsResponse struct {
	conformance.Report
	OK            bool   `json:"ok"`
	EngineVersion string `json:"engine_version"`
}

// ScoreRequest carries every step of one chain
type ScoreRequest struct {
	Steps []scoring.ClearEvent `json:"steps"`
}

// ScoreResponse returns the per-step breakdown and total
type ScoreResponse struct {
	Steps         []scoring.Breakdown `json:"steps"`
	Total         int                 `json:"total"`
	EngineVersion string              `json:"engine_version"`
}

// NuisanceRequest carries one conversion
type NuisanceRequest struct {
	ScoreDelta   int     `json:"score_delta"`
	TargetPoints int     `json:"target_points"`
	Carry        float64 `json:"carry"`
}

// NuisanceResponse returns units sent and the new carry
type NuisanceResponse struct {
	Units         int     `json:"units"`
	Carry         float64 `json:"carry"`
	EngineVersion string  `json:"engine_version"`
}

// MarginRequest asks for the state of the margin clock after ElapsedMs
type MarginRequest struct {
	Wire      string `json:"wire"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// MarginStep is one reduction, timed from match start
type MarginStep struct {
	AtMs  int64 `json:"at_ms"`
	From  int   `json:"from"`
	To    int   `json:"to"`
	Count int   `json:"count"`
	First bool  `json:"first,omitempty"`
}

// MarginResponse returns the reductions applied and the resulting target
type MarginResponse struct {
	Reductions    []MarginStep `json:"reductions"`
	TargetPoints  int          `json:"target_points"`
	Started       bool         `json:"started"`
	Frozen        bool         `json:"frozen"`
	EngineVersion string       `json:"engine_version"`
}

// SeedRequest identifies one match in one room
type SeedRequest struct {
	Room  string `json:"room"`
	Nonce uint64 `json:"nonce"`
}

// SeedResponse returns the derived seed and the host secret commitment
type SeedResponse struct {
	Seed          float64 `json:"seed"`
	SeedText      string  `json:"seed_text"`
	Commitment    string  `json:"commitment"`
	EngineVersion string      `json:"engine_version"`
	Echo          SeedRequest `json:"echo"`
}

// CPURequest describes a CPU peer; Slider is the 0..10 speed slider
type CPURequest struct {
	ID     string `json:"id,omitempty"`
	AI     string `json:"ai"`
	Slider int    `json:"slider"`
}

// MatchEvent is one chain played by Peer AtMs after the match starts
type MatchEvent struct {
	AtMs  int64                `json:"at_ms"`
	Peer  string               `json:"peer"`
	Steps []scoring.ClearEvent `json:"steps"`
}

// MatchRequest replays a local match from a list of chains
type MatchRequest struct {
	Wire   string       `json:"wire"`
	Human  string       `json:"human"`
	CPUs   []CPURequest `json:"cpus"`
	Events []MatchEvent `json:"events"`
}

// MatchAttack is an attack stamped with its match time
type MatchAttack struct {
	AtMs int64 `json:"at_ms"`
	session.Targeted
}

// MatchResponse returns every attack and the final peer states
type MatchResponse struct {
	MatchID       string          `json:"match_id"`
	Attacks       []MatchAttack   `json:"attacks"`
	Peers         []*session.Peer `json:"peers"`
	EngineVersion string          `json:"engine_version"`
}
