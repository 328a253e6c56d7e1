package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// LobbyJanitor closes lobbies that have waited too long for a game to start.
type LobbyJanitor struct {
	repo     ports.LobbyRepository
	lobbies  *LobbyService
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	now      func() time.Time
	log      *slog.Logger
}

// NewLobbyJanitor builds a janitor that shares the lobby service's locks.
func NewLobbyJanitor(repo ports.LobbyRepository, lobbies *LobbyService, schedule string, maxAge time.Duration, log *slog.Logger) *LobbyJanitor {
	if schedule == "" {
		schedule = domain.DefaultJanitorSchedule
	}
	if maxAge <= 0 {
		maxAge = domain.StaleLobbyAge
	}
	return &LobbyJanitor{
		repo:     repo,
		lobbies:  lobbies,
		maxAge:   maxAge,
		schedule: schedule,
		now:      time.Now,
		log:      log,
	}
}

// Sweep closes every WAITING lobby created more than maxAge before now and
// returns how many it closed. Each candidate is re-checked under its lock.
func (j *LobbyJanitor) Sweep(ctx context.Context, now time.Time) (int, error) {
	codes, err := j.repo.ListStaleLobbyCodes(ctx, domain.LobbyWaiting, now.Add(-j.maxAge))
	if err != nil {
		return 0, domain.Unavailable(err)
	}
	closed := 0
	for _, code := range codes {
		ok, err := j.lobbies.closeIfStale(ctx, code, now, j.maxAge)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return closed, err
		}
		if ok {
			closed++
		}
	}
	return closed, nil
}

// Start schedules the sweep on the janitor's cron spec.
func (j *LobbyJanitor) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.schedule, func() {
		started := j.now()
		j.log.Info("stale lobby sweep started")
		n, err := j.Sweep(context.Background(), started)
		if err != nil {
			j.log.Error("stale lobby sweep failed", "closed", n, "error", err)
			return
		}
		j.log.Info("stale lobby sweep finished", "closed", n, "took", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}
	c.Start()
	j.cron = c
	j.log.Info("lobby janitor scheduled", "schedule", j.schedule, "max_age", j.maxAge)
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (j *LobbyJanitor) Stop() {
	if j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}
