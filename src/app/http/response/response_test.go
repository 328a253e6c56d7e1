package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptuessr/src/core/domain"
)

func TestFromDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dbErr := errors.New("dial tcp 10.0.0.5:5432: connection refused")

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"not found", domain.NewNotFoundError("lobby"), http.StatusNotFound, "NOT_FOUND", ""},
		{"validation", domain.NewValidationError("rounds", "must be between 1 and 20"), http.StatusBadRequest, "VALIDATION_ERROR", "rounds"},
		{"invalid state", domain.NewInvalidStateError("lobby is CLOSED"), http.StatusConflict, "INVALID_STATE", ""},
		{"capacity", domain.NewCapacityError("lobby is full"), http.StatusConflict, "CAPACITY_EXCEEDED", ""},
		{"duplicate", domain.NewAlreadyExistsError("guess already submitted"), http.StatusConflict, "CONFLICT", ""},
		{"insufficient players", domain.NewInsufficientPlayersError(2, 3), http.StatusUnprocessableEntity, "INSUFFICIENT_PLAYERS", ""},
		{"forbidden", domain.NewForbiddenError("only the host can do this"), http.StatusForbidden, "FORBIDDEN", ""},
		{"unauthorized", domain.NewUnauthorizedError("bad signature"), http.StatusUnauthorized, "UNAUTHORIZED", ""},
		{"unavailable", domain.Unavailable(dbErr), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", ""},
		{"unknown", dbErr, http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			FromDomainError(c, tt.err, "req-1")

			require.Equal(t, tt.status, w.Code)
			var body Error
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.field, body.Error.Field)
			assert.Equal(t, "req-1", body.Error.RequestID)
			assert.NotContains(t, body.Error.Message, "10.0.0.5")
		})
	}
}

func TestPublicMessageDropsCause(t *testing.T) {
	err := &domain.DomainError{Base: domain.ErrUnauthorized, Message: "bad signature", Err: errors.New("hmac mismatch")}
	assert.Equal(t, "unauthorized: bad signature", publicMessage(err))
	assert.Equal(t, "invalid state", publicMessage(&domain.DomainError{Base: domain.ErrInvalidState}))
}
