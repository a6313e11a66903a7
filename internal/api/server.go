package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/replay"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/scan"
)

const defaultRequestTimeout = 60 * time.Second

// Options wires the engine components into a Server.
type Options struct {
	Router         *abi.Router
	Replay         *replay.Engine
	Scanner        *scan.Scanner
	Env            engine.EnvSource
	Logger         logrus.FieldLogger
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	router         *abi.Router
	replay         *replay.Engine
	scanner        *scan.Scanner
	env            engine.EnvSource
	metrics        *Metrics
	errorHandler   *ErrorHandler
	logger         logrus.FieldLogger
	requestTimeout time.Duration
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "api")

	env := opts.Env
	if env == nil {
		env = engine.ClockEnv{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		router:         opts.Router,
		replay:         opts.Replay,
		scanner:        opts.Scanner,
		env:            env,
		metrics:        NewMetrics(),
		errorHandler:   NewErrorHandler(logger),
		logger:         logger,
		requestTimeout: timeout,
		startTime:      time.Now(),
	}

	functions := 0
	if s.router != nil {
		functions = len(s.router.Methods())
	}
	logger.WithFields(logrus.Fields{
		"functions":       functions,
		"scanner_enabled": s.scanner != nil,
		"replay_enabled":  s.replay != nil,
		"engine_version":  EngineVersion,
	}).Info("system_startup")

	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(s.metrics.Middleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/call", s.handleCall)
		r.Get("/functions", s.handleFunctions)
		r.Post("/move", s.handleMove)
		r.Post("/round", s.handleRound)
		r.Post("/champion", s.handleChampion)
		r.Post("/advice", s.handleAdvice)
		r.Post("/rounds", s.handleRounds)
		r.Post("/random", s.handleRandom)
		r.Get("/seed", s.handleSeed)
		r.Get("/difficulty", s.handleDifficulty)
		r.Post("/replay", s.handleReplay)
		r.Post("/scan", s.handleScan)
		r.Get("/metrics-list", s.handleMetricsList)
		r.Get("/version", s.handleVersion)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("response_encode_failed")
	}
}
