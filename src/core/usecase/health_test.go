package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"gptuessr/src/core/ports"
	"gptuessr/src/infra/logger"
	"gptuessr/src/infra/repo"
)

type failingService struct{}

func (failingService) Health(context.Context) error { return errors.New("down") }

func TestHealthCheck(t *testing.T) {
	ok := NewHealthService(logger.Discard(), map[string]ports.ExternalService{
		"database": repo.NewMemoryRepository(),
		"skipped":  nil,
	})
	status := ok.Check(context.Background())
	assert.Equal(t, "ok", status.Status)
	assert.Len(t, status.Components, 1)

	degraded := NewHealthService(logger.Discard(), map[string]ports.ExternalService{
		"database": repo.NewMemoryRepository(),
		"redis":    failingService{},
	})
	status = degraded.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "unhealthy", status.Components["redis"].Status)
	assert.Equal(t, "healthy", status.Components["database"].Status)
}
