package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/puyobattle/internal/nuisance"
	"github.com/MJE43/puyobattle/internal/scoring"
	"github.com/MJE43/puyobattle/internal/settings"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// handleHealthCheck runs every check and reports the worst status
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	checks := map[string]HealthCheck{
		"rules":      timedCheck(s.checkRules),
		"peer_codec": timedCheck(s.checkPeerCodec),
		"seed":       timedCheck(s.checkSeed),
	}
	overall := HealthStatusHealthy
	for _, c := range checks {
		overall = worse(overall, c.Status)
	}

	statusCode := http.StatusOK
	if overall == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.logger.Debug("health_check",
		zap.String("request_id", requestID),
		zap.String("status", string(overall)),
		zap.Int("checks", len(checks)),
	)

	s.writeJSON(w, statusCode, HealthCheckResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        time.Since(s.startTime).String(),
		Checks:        checks,
		System:        getSystemInfo(),
		RequestID:     requestID,
	})
}

// handleReadiness reports ready once the rules self-test passes
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	check := s.checkRules()
	ready := check.Status == HealthStatusHealthy

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}
	s.writeJSON(w, statusCode, map[string]interface{}{
		"ready":          ready,
		"message":        check.Message,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

// handleLiveness responds while the process is running
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"uptime":         time.Since(s.startTime).String(),
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GetVersionInfo())
}

// checkRules evaluates known vectors through the rules core
func (s *Server) checkRules() HealthCheck {
	score, err := scoring.Score(scoring.Tiles(scoring.Red, 4), 2)
	if err != nil || score != 320 {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: fmt.Sprintf("scoring self-test failed: %d %v", score, err)}
	}
	res, err := nuisance.Convert(700, 70, 0)
	if err != nil || res.Units != 10 || res.Carry != 0 {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: fmt.Sprintf("nuisance self-test failed: %+v %v", res, err)}
	}
	def := settings.Default(0.5)
	back, err := settings.Deserialize(def.Serialize())
	if err != nil || back != def {
		return HealthCheck{Status: HealthStatusUnhealthy, Message: "settings round trip failed"}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "rules self-test passed"}
}

// checkPeerCodec runs the conformance check on the default settings
func (s *Server) checkPeerCodec() HealthCheck {
	rep, err := s.checker.Check(settings.Default(0.5))
	switch {
	case err != nil:
		return HealthCheck{Status: HealthStatusDegraded, Message: err.Error()}
	case !rep.OK():
		return HealthCheck{Status: HealthStatusDegraded, Message: fmt.Sprintf("%d peer mismatches", len(rep.Mismatches))}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "peer codec agrees"}
}

// checkSeed reports whether seed derivation is configured
func (s *Server) checkSeed() HealthCheck {
	if s.opts.HostSecret == "" {
		return HealthCheck{Status: HealthStatusDegraded, Message: "no host secret; seeds are random"}
	}
	return HealthCheck{Status: HealthStatusHealthy, Message: "seed derivation enabled"}
}

func timedCheck(fn func() HealthCheck) HealthCheck {
	start := time.Now()
	c := fn()
	c.LastChecked = time.Now().UTC().Format(time.RFC3339)
	c.Duration = time.Since(start).String()
	return c
}

func worse(a, b HealthStatus) HealthStatus {
	rank := map[HealthStatus]int{HealthStatusHealthy: 0, HealthStatusDegraded: 1, HealthStatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAlloc:   m.Alloc,
		GCCycles:      m.NumGC,
	}
}
