package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
	"gptuessr/src/infra/config"
	"gptuessr/src/infra/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]ports.TokenClaims

func (s stubVerifier) Verify(_ context.Context, token string) (ports.TokenClaims, error) {
	claims, ok := s[token]
	if !ok {
		return ports.TokenClaims{}, &domain.DomainError{Base: domain.ErrUnauthorized, Message: "unknown token"}
	}
	return claims, nil
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	tests := []struct {
		name    string
		inbound string
		kept    bool
	}{
		{"generated when absent", "", false},
		{"proxy id kept", "lb-1234_abc.def", true},
		{"spaces rejected", "has space", false},
		{"newline rejected", "a\nlevel=error", false},
		{"too long rejected", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			w := serve(r, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.kept {
				assert.Equal(t, tt.inbound, got)
			} else {
				assert.NotEqual(t, tt.inbound, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestAuth(t *testing.T) {
	verifier := stubVerifier{"good": {SubjectID: "user_1", SessionID: "sess_1"}}
	r := gin.New()
	r.Use(RequestID(), Auth(verifier))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetSubjectID(c)+"/"+GetSessionID(c))
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user_1/sess_1", w.Body.String())
				return
			}
			var body struct {
				Error struct {
					Code      string `json:"code"`
					RequestID string `json:"request_id"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	r := gin.New()
	r.Use(Recovery(log), RequestID())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := serve(r, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"INTERNAL_ERROR"`)
	assert.NotContains(t, w.Body.String(), "kaboom")
	assert.Contains(t, buf.String(), "kaboom")
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)

	r := gin.New()
	r.Use(RequestID(), Logging(log))
	r.POST("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/bad", func(c *gin.Context) { c.String(http.StatusBadRequest, "nope") })

	serve(r, httptest.NewRequest(http.MethodPost, "/ok", strings.NewReader("secret")))
	serve(r, httptest.NewRequest(http.MethodPost, "/bad", strings.NewReader(`{"x":1}`)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var ok, bad map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ok))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bad))

	assert.Equal(t, "INFO", ok["level"])
	assert.Equal(t, float64(http.StatusNoContent), ok["status"])
	assert.NotContains(t, ok, "request", "bodies are only logged for failures")

	assert.Equal(t, "WARN", bad["level"])
	assert.Equal(t, `{"x":1}`, bad["request"])
	assert.Equal(t, "nope", bad["response"])
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}, MaxAge: time.Hour}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := serve(r, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
