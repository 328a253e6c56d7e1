package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gptuessr/src/core/domain"
	"gptuessr/src/infra/logger"
	"gptuessr/src/infra/repo"
)

func TestCreateLobby(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.register(t, "host")

	l, err := f.lobbies.Create(ctx, CreateLobbyInput{HostID: "host", Config: defaultConfig()})
	require.NoError(t, err)
	assert.Len(t, l.Code, domain.CodeLength)
	assert.Equal(t, []string{"host"}, l.Members)
	assert.Equal(t, domain.LobbyWaiting, l.Status)

	stored, err := f.lobbies.GetByCode(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, l.ID, stored.ID)
}

func TestCreateLobbyRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.register(t, "host")

	_, err := f.lobbies.Create(ctx, CreateLobbyInput{HostID: "ghost", Config: defaultConfig()})
	assert.True(t, domain.IsNotFound(err))

	bad := defaultConfig()
	bad.Rounds = 0
	_, err = f.lobbies.Create(ctx, CreateLobbyInput{HostID: "host", Config: bad})
	assert.True(t, domain.IsValidationError(err))
}

func TestJoinLobby(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.MaxPlayers = 2
	l := f.openLobby(t, cfg, "host", "p1")
	f.register(t, "p2")

	again, err := f.lobbies.Join(ctx, l.Code, "p1")
	require.NoError(t, err, "re-joining a full lobby returns it unchanged")
	assert.Equal(t, []string{"host", "p1"}, again.Members)

	_, err = f.lobbies.Join(ctx, l.Code, "p2")
	assert.True(t, domain.IsCapacityExceeded(err))

	_, err = f.lobbies.Join(ctx, "ZZZZZZ", "p2")
	assert.True(t, domain.IsNotFound(err))
}

func TestJoinUnknownPlayer(t *testing.T) {
	f := newFixture(t, nil)
	l := f.openLobby(t, defaultConfig(), "host")

	_, err := f.lobbies.Join(context.Background(), l.Code, "ghost")
	assert.True(t, domain.IsNotFound(err))
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.MaxPlayers = 5
	l := f.openLobby(t, cfg, "host")

	players := make([]string, 20)
	for i := range players {
		players[i] = fmt.Sprintf("p%d", i)
	}
	f.register(t, players...)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		joined   int
		rejected int
	)
	for _, p := range players {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, err := f.lobbies.Join(ctx, l.Code, p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case domain.IsCapacityExceeded(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 4, joined)
	assert.Equal(t, 16, rejected)
	stored, err := f.lobbies.GetByCode(ctx, l.Code)
	require.NoError(t, err)
	assert.Len(t, stored.Members, 5)
}

func TestLeaveLobby(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	l := f.openLobby(t, defaultConfig(), "host", "p1")

	res, err := f.lobbies.Leave(ctx, l.Code, "p1")
	require.NoError(t, err)
	assert.False(t, res.Closed)
	assert.Equal(t, []string{"host"}, res.Lobby.Members)

	_, err = f.lobbies.Leave(ctx, l.Code, "p1")
	assert.True(t, domain.IsNotFound(err))

	res, err = f.lobbies.Leave(ctx, l.Code, "host")
	require.NoError(t, err)
	assert.True(t, res.Closed)
	assert.Nil(t, res.Lobby)

	stored, err := f.lobbies.GetByCode(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyClosed, stored.Status)
}

func TestStartGame(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	l := f.openLobby(t, defaultConfig(), "host", "p1")
	_, err := f.lobbies.StartGame(ctx, l.Code, "host")
	assert.True(t, domain.IsInsufficientPlayers(err))

	f.register(t, "p2")
	_, err = f.lobbies.Join(ctx, l.Code, "p2")
	require.NoError(t, err)

	_, err = f.lobbies.StartGame(ctx, l.Code, "p1")
	assert.True(t, domain.IsForbidden(err))

	res, err := f.lobbies.StartGame(ctx, l.Code, "host")
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyInProgress, res.Lobby.Status)
	require.NotNil(t, res.Lobby.GameID)
	assert.Equal(t, res.Game.ID, *res.Lobby.GameID)
	assert.Equal(t, []string{"host", "p1", "p2"}, res.Game.Members)

	stored, err := f.games.Get(ctx, res.Game.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Code, stored.LobbyCode)

	_, err = f.lobbies.StartGame(ctx, l.Code, "host")
	assert.True(t, domain.IsInvalidState(err))

	_, err = f.lobbies.Join(ctx, l.Code, "p2")
	assert.True(t, domain.IsInvalidState(err))
}

// flakyLobbyStore fails SaveLobby while failSave is set and remembers every
// game it was asked to create.
type flakyLobbyStore struct {
	*repo.MemoryRepository
	failSave bool
	created  []uuid.UUID
}

func (s *flakyLobbyStore) SaveLobby(ctx context.Context, l *domain.Lobby) error {
	if s.failSave {
		return errors.New("connection reset by peer")
	}
	return s.MemoryRepository.SaveLobby(ctx, l)
}

func (s *flakyLobbyStore) CreateGame(ctx context.Context, g *domain.Game) error {
	s.created = append(s.created, g.ID)
	return s.MemoryRepository.CreateGame(ctx, g)
}

func TestStartGameDiscardsGameWhenLobbySaveFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	l := f.openLobby(t, defaultConfig(), "host", "p1", "p2")

	store := &flakyLobbyStore{MemoryRepository: f.repo, failSave: true}
	games := NewGameService(store, nil, f.identity, logger.Discard())
	lobbies := NewLobbyService(store, f.identity, f.codes, games, logger.Discard())

	_, err := lobbies.StartGame(ctx, l.Code, "host")
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))

	require.Len(t, store.created, 1)
	_, err = games.Get(ctx, store.created[0])
	assert.True(t, domain.IsNotFound(err), "the game of an unsaved lobby is removed")

	stored, err := lobbies.GetByCode(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyWaiting, stored.Status)
	assert.Nil(t, stored.GameID)

	store.failSave = false
	res, err := lobbies.StartGame(ctx, l.Code, "host")
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyInProgress, res.Lobby.Status)
	_, err = games.Get(ctx, res.Game.ID)
	require.NoError(t, err)
}

func TestEndAndCloseLobby(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	l := f.openLobby(t, defaultConfig(), "host", "p1", "p2")
	_, err := f.lobbies.StartGame(ctx, l.Code, "host")
	require.NoError(t, err)

	ended, err := f.lobbies.EndGame(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyFinished, ended.Status)

	_, err = f.lobbies.EndGame(ctx, l.Code)
	assert.True(t, domain.IsInvalidState(err))

	closed, err := f.lobbies.Close(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.LobbyClosed, closed.Status)

	closed, err = f.lobbies.Close(ctx, l.Code)
	require.NoError(t, err, "closing twice is a no-op")
	assert.Equal(t, domain.LobbyClosed, closed.Status)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	l := f.openLobby(t, defaultConfig(), "host", "p1", "p2")

	rounds, limit := 3, 999
	_, err := f.lobbies.UpdateSettings(ctx, l.Code, "host", domain.SettingsUpdate{Rounds: &rounds, TimeLimit: &limit})
	assert.True(t, domain.IsValidationError(err))

	stored, err := f.lobbies.GetByCode(ctx, l.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRounds, stored.Rounds, "a rejected update changes nothing")

	limit = 30
	updated, err := f.lobbies.UpdateSettings(ctx, l.Code, "host", domain.SettingsUpdate{Rounds: &rounds, TimeLimit: &limit})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rounds)
	assert.Equal(t, 30, updated.TimeLimit)

	_, err = f.lobbies.UpdateSettings(ctx, l.Code, "p1", domain.SettingsUpdate{Rounds: &rounds})
	assert.True(t, domain.IsForbidden(err))

	two := 2
	_, err = f.lobbies.UpdateSettings(ctx, l.Code, "host", domain.SettingsUpdate{MaxPlayers: &two})
	assert.True(t, domain.IsCapacityExceeded(err))
}

func TestListAndCountLobbies(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.openLobby(t, defaultConfig(), "host", "p1", "p2")
	f.clock.Advance(1)
	_ = f.openLobby(t, defaultConfig(), "other", "p1")

	hosted, err := f.lobbies.ListByHost(ctx, "host")
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	assert.Equal(t, a.Code, hosted[0].Code)

	joined, err := f.lobbies.ListByPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, joined, 2)

	_, err = f.lobbies.Close(ctx, a.Code)
	require.NoError(t, err)
	n, err := f.lobbies.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
