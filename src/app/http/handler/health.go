// Package handler binds HTTP requests to the game, lobby and user services.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gptuessr/src/core/usecase"
)

const defaultHealthTimeout = 2 * time.Second

// dependencyChecker reports the state of the backing stores.
type dependencyChecker interface {
	Check(ctx context.Context) *usecase.HealthStatus
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	checker dependencyChecker
	timeout time.Duration
	started time.Time
}

// NewHealthHandler creates a HealthHandler. A non-positive timeout falls back
// to two seconds.
func NewHealthHandler(checker dependencyChecker, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = defaultHealthTimeout
	}
	return &HealthHandler{checker: checker, timeout: timeout, started: time.Now()}
}

type liveResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type readyResponse struct {
	*usecase.HealthStatus
	CheckedAt time.Time `json:"checked_at"`
}

// Live answers as long as the process can serve requests. It never touches
// a dependency.
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, liveResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

// Ready checks every dependency within the configured timeout and answers
// 503 unless all of them are healthy.
// GET /health/detailed
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := h.checker.Check(ctx)
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, readyResponse{HealthStatus: status, CheckedAt: time.Now().UTC()})
}
