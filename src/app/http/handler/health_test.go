package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptuessr/src/core/usecase"
)

type stubChecker struct {
	status   *usecase.HealthStatus
	deadline time.Duration
}

func (s *stubChecker) Check(ctx context.Context) *usecase.HealthStatus {
	if d, ok := ctx.Deadline(); ok {
		s.deadline = time.Until(d)
	}
	return s.status
}

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Live)
	r.GET("/health/detailed", h.Ready)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler(&stubChecker{status: &usecase.HealthStatus{Status: "degraded"}}, 0)

	w := serveHealth(h, "/health")
	require.Equal(t, http.StatusOK, w.Code, "liveness ignores dependencies")

	var body liveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.GreaterOrEqual(t, body.UptimeSeconds, int64(0))
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		status     *usecase.HealthStatus
		timeout    time.Duration
		wantCode   int
		maxTimeout time.Duration
	}{
		{
			name: "all healthy",
			status: &usecase.HealthStatus{Status: "ok", Components: map[string]usecase.ComponentHealth{
				"database": {Status: "healthy"},
			}},
			timeout:    time.Second,
			wantCode:   http.StatusOK,
			maxTimeout: time.Second,
		},
		{
			name: "degraded dependency",
			status: &usecase.HealthStatus{Status: "degraded", Components: map[string]usecase.ComponentHealth{
				"database": {Status: "healthy"},
				"redis":    {Status: "unhealthy", Message: "connection refused"},
			}},
			timeout:    0,
			wantCode:   http.StatusServiceUnavailable,
			maxTimeout: defaultHealthTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &stubChecker{status: tt.status}
			w := serveHealth(NewHealthHandler(checker, tt.timeout), "/health/detailed")
			assert.Equal(t, tt.wantCode, w.Code)

			assert.Greater(t, checker.deadline, time.Duration(0), "checks run under a deadline")
			assert.LessOrEqual(t, checker.deadline, tt.maxTimeout)

			var body struct {
				Status     string                             `json:"status"`
				Components map[string]usecase.ComponentHealth `json:"components"`
				CheckedAt  time.Time                          `json:"checked_at"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.status.Status, body.Status)
			assert.Equal(t, tt.status.Components, body.Components)
			assert.False(t, body.CheckedAt.IsZero())
		})
	}
}
