package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
	"gptuessr/src/infra/logger"
	"gptuessr/src/infra/repo"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by every service under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	repo     *repo.MemoryRepository
	clock    *testClock
	identity *IdentityService
	games    *GameService
	codes    *CodeGenerator
	lobbies  *LobbyService
}

func newFixture(t *testing.T, scorer ports.GuessScorer) *fixture {
	t.Helper()
	log := logger.Discard()
	store := repo.NewMemoryRepository()
	clock := &testClock{now: t0}

	identity := NewIdentityService(store, log)
	identity.now = clock.Now
	games := NewGameService(store, scorer, identity, log)
	games.now = clock.Now
	codes := NewCodeGenerator(store, 0, log)
	lobbies := NewLobbyService(store, identity, codes, games, log)
	lobbies.now = clock.Now

	return &fixture{
		repo:     store,
		clock:    clock,
		identity: identity,
		games:    games,
		codes:    codes,
		lobbies:  lobbies,
	}
}

func (f *fixture) register(t *testing.T, subjects ...string) {
	t.Helper()
	for _, s := range subjects {
		_, err := f.identity.Register(context.Background(), domain.Registration{SubjectID: s, Username: s})
		require.NoError(t, err)
	}
}

// openLobby registers host and players and returns a waiting lobby holding all of them.
func (f *fixture) openLobby(t *testing.T, cfg domain.LobbyConfig, host string, players ...string) *domain.Lobby {
	t.Helper()
	ctx := context.Background()
	f.register(t, append([]string{host}, players...)...)
	l, err := f.lobbies.Create(ctx, CreateLobbyInput{HostID: host, Config: cfg})
	require.NoError(t, err)
	for _, p := range players {
		l, err = f.lobbies.Join(ctx, l.Code, p)
		require.NoError(t, err)
	}
	return l
}

func defaultConfig() domain.LobbyConfig {
	return domain.LobbyConfig{
		Rounds:     domain.DefaultRounds,
		TimeLimit:  domain.DefaultTimeLimit,
		MaxPlayers: domain.DefaultMaxPlayers,
	}
}

// stubChecker reports codes as taken according to a callback.
type stubChecker struct {
	mu    sync.Mutex
	calls int
	taken func(code string, call int) (bool, error)
}

func (s *stubChecker) LobbyCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	return s.taken(code, call)
}

// lengthScorer scores a guess by how close its length is to the prompt's.
type lengthScorer struct{}

func (lengthScorer) Score(_ context.Context, in ports.ScoreInput) (ports.ScoreResult, error) {
	diff := len(in.Prompt) - len(in.Guess)
	if diff < 0 {
		diff = -diff
	}
	score := 100 - diff
	if score < 0 {
		score = 0
	}
	return ports.ScoreResult{Score: score, Accuracy: float64(score) / 100}, nil
}
