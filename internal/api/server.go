package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/puyobattle/internal/conformance"
	"github.com/MJE43/puyobattle/internal/logging"
)

// Options configures a Server
type Options struct {
	HostSecret     string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// Server handles HTTP requests for the rules service
type Server struct {
	opts         Options
	checker      *conformance.Checker
	errorHandler *ErrorHandler
	logger       *zap.Logger
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(logger *zap.Logger, opts Options) (*Server, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	checker, err := conformance.NewChecker()
	if err != nil {
		return nil, err
	}

	logger = logger.Named("api")
	s := &Server{
		opts:         opts,
		checker:      checker,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}

	logger.Info("server_startup",
		zap.String("engine_version", EngineVersion),
		zap.Bool("seed_derivation", opts.HostSecret != ""),
		logging.Secret("host_secret", opts.HostSecret),
	)
	return s, nil
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(middleware.RequestSize(s.opts.MaxBodyBytes))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settings/defaults", s.handleDefaults)
		r.Post("/settings", s.handleBuildSettings)
		r.Post("/settings/decode", s.handleDecodeSettings)
		r.Post("/settings/check", s.handleCheckSettings)
		r.Post("/score", s.handleScore)
		r.Post("/nuisance", s.handleNuisance)
		r.Post("/margin", s.handleMargin)
		r.Post("/seed", s.handleSeed)
		r.Post("/match", s.handleMatch)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("response_encode_failed", zap.Error(err))
	}
}
