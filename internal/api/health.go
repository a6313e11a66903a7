package api

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/abi"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/engine"
	"github.com/rakshithvk19/Rock-Paper-Scissors/internal/games"
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
	GOMAXPROCS    int    `json:"gomaxprocs"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// worst folds a component status into the overall one.
func worst(overall, component HealthStatus) HealthStatus {
	switch {
	case component == HealthStatusUnhealthy:
		return HealthStatusUnhealthy
	case component == HealthStatusDegraded && overall == HealthStatusHealthy:
		return HealthStatusDegraded
	default:
		return overall
	}
}

// handleHealthCheck provides comprehensive health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	start := time.Now()

	checks := map[string]HealthCheck{
		"dispatch": s.checkDispatchHealth(),
		"replay":   s.checkComponent("replay", s.replay != nil),
		"scanner":  s.checkScannerHealth(),
	}
	overall := HealthStatusHealthy
	for name, c := range checks {
		// replay and scanner are optional; the dispatch table is not.
		if name != "dispatch" && c.Status == HealthStatusUnhealthy {
			overall = worst(overall, HealthStatusDegraded)
			continue
		}
		overall = worst(overall, c.Status)
	}

	statusCode := http.StatusOK
	if overall == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"status":      overall,
		"checks":      len(checks),
		"duration":    time.Since(start).String(),
		"status_code": statusCode,
	}).Debug("health_check")

	s.writeJSON(w, statusCode, HealthCheckResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        time.Since(s.startTime).String(),
		Checks:        checks,
		System:        systemInfo(),
		RequestID:     requestID,
	})
}

// handleReadiness reports whether the dispatch table can serve calls.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	ready := true
	message := "Ready"
	if check := s.checkDispatchHealth(); check.Status != HealthStatusHealthy {
		ready = false
		message = check.Message
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, map[string]interface{}{
		"ready":          ready,
		"message":        message,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"request_id":     requestID,
	})
}

// handleLiveness provides liveness probe endpoint
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"engine_version": EngineVersion,
		"uptime":         time.Since(s.startTime).String(),
		"request_id":     middleware.GetReqID(r.Context()),
	})
}

// checkDispatchHealth runs a known round through the dispatch table.
func (s *Server) checkDispatchHealth() HealthCheck {
	start := time.Now()
	check := func(status HealthStatus, message string) HealthCheck {
		return HealthCheck{
			Status:      status,
			Message:     message,
			LastChecked: time.Now().UTC().Format(time.RFC3339),
			Duration:    time.Since(start).String(),
		}
	}

	if s.router == nil {
		return check(HealthStatusUnhealthy, "Dispatch table not initialized")
	}
	m, ok := s.router.Method("checkRoundWinner")
	if !ok {
		return check(HealthStatusUnhealthy, "checkRoundWinner not registered")
	}
	data, err := m.Pack(
		abi.WordValue(uint256.NewInt(uint64(games.Rock))),
		abi.WordValue(uint256.NewInt(uint64(games.Scissors))),
	)
	if err != nil {
		return check(HealthStatusUnhealthy, err.Error())
	}
	out, err := s.router.Call(engine.Env{}, data)
	if err != nil {
		return check(HealthStatusUnhealthy, err.Error())
	}
	got, err := abi.DecodeWord(out)
	if err != nil {
		return check(HealthStatusUnhealthy, err.Error())
	}
	if games.Outcome(got.Uint64()) != games.PlayerWin {
		return check(HealthStatusUnhealthy, fmt.Sprintf("Rock vs Scissors resolved to %s", games.Outcome(got.Uint64())))
	}
	return check(HealthStatusHealthy, fmt.Sprintf("%d functions registered", len(s.router.Methods())))
}

// checkScannerHealth checks scanner functionality
func (s *Server) checkScannerHealth() HealthCheck {
	if s.scanner == nil {
		return s.checkComponent("scanner", false)
	}
	check := s.checkComponent("scanner", true)
	check.Message = fmt.Sprintf("%d metrics registered", len(s.scanner.Registry().List()))
	return check
}

func (s *Server) checkComponent(name string, present bool) HealthCheck {
	status := HealthStatusHealthy
	message := name + " healthy"
	if !present {
		status = HealthStatusUnhealthy
		message = name + " not initialized"
	}
	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		MemoryAlloc:   m.Alloc,
		MemorySys:     m.Sys,
		GCCycles:      m.NumGC,
	}
}
