package usecase

import (
	"context"
	"log/slog"

	"gptuessr/src/core/ports"
)

// HealthService checks the application's critical dependencies.
type HealthService struct {
	checks map[string]ports.ExternalService
	log    *slog.Logger
}

// NewHealthService creates a HealthService. Nil dependencies are skipped.
func NewHealthService(log *slog.Logger, checks map[string]ports.ExternalService) *HealthService {
	active := make(map[string]ports.ExternalService, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthService{checks: active, log: log}
}

// HealthStatus represents the health of the application.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Check performs a health check of all registered components.
func (s *HealthService) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:     "ok",
		Components: make(map[string]ComponentHealth, len(s.checks)),
	}
	for name, c := range s.checks {
		if err := c.Health(ctx); err != nil {
			s.log.Warn("health check failed", "component", name, "error", err)
			status.Status = "degraded"
			status.Components[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Components[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}
