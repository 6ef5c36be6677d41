package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"tradecohort/internal/infrastructure"
	"tradecohort/internal/validation"
)

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	facts     *FactService
	hub       ClientCounter
	inputs    map[string]string
	files     *validation.FileValidator
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64    `json:"uptime_seconds"`
	FactRows         int        `json:"fact_rows"`
	WebSocketClients int        `json:"websocket_clients"`
	PipelineRunning  bool       `json:"pipeline_running"`
	LastBuild        *BuildInfo `json:"last_build,omitempty"`
	GoVersion        string     `json:"go_version"`
	OS               string     `json:"os"`
	Arch             string     `json:"arch"`
}

// NewHealthService creates a health service. inputs maps table names to the source files checked for readiness.
func NewHealthService(version string, facts *FactService, hub ClientCounter, inputs map[string]string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		facts:     facts,
		hub:       hub,
		inputs:    inputs,
		files:     validation.NewFileValidator(logger),
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns readiness of the fact table and its inputs
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"facts":  hs.checkFacts(),
			"inputs": hs.checkInputs(),
		},
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
	for _, s := range status.Services {
		if s.Status != "ready" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "health check completed", slog.String("status", status.Status))
	return status
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.facts != nil {
		stats.FactRows, _ = hs.facts.FactCount()
		stats.PipelineRunning = hs.facts.Running()
		stats.LastBuild = hs.facts.LastBuild()
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}
	return stats
}

func (hs *HealthService) checkFacts() ServiceHealth {
	switch {
	case hs.facts == nil:
		return ServiceHealth{Status: "not_ready", Message: "fact service not initialized"}
	case hs.facts.Running() && !hs.facts.Ready():
		return ServiceHealth{Status: "not_ready", Message: "initial build in progress"}
	case !hs.facts.Ready():
		msg := "fact table not built"
		if b := hs.facts.LastBuild(); b != nil && b.Error != "" {
			msg = fmt.Sprintf("last build failed: %s", b.Error)
		}
		return ServiceHealth{Status: "not_ready", Message: msg}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkInputs() ServiceHealth {
	if err := hs.files.ValidateInputs(hs.inputs); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}
