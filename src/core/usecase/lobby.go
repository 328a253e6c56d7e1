package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// userResolver is the part of IdentityService the lobby needs.
type userResolver interface {
	Resolve(ctx context.Context, subjectID string) (*domain.User, error)
}

// codeSource hands out fresh lobby codes.
type codeSource interface {
	Generate(ctx context.Context) (string, error)
}

// gameStarter builds a game from a lobby that has just started.
type gameStarter interface {
	StartFromLobby(ctx context.Context, lobby *domain.Lobby) (*domain.Game, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// LobbyService owns the lobby lifecycle. Every mutation of a lobby runs under
// that lobby's lock so check-then-write sequences are atomic.
type LobbyService struct {
	repo  ports.LobbyRepository
	users userResolver
	codes codeSource
	games gameStarter
	locks *keyedMutex
	now   func() time.Time
	log   *slog.Logger
}

func NewLobbyService(repo ports.LobbyRepository, users userResolver, codes codeSource, games gameStarter, log *slog.Logger) *LobbyService {
	return &LobbyService{
		repo:  repo,
		users: users,
		codes: codes,
		games: games,
		locks: newKeyedMutex(),
		now:   time.Now,
		log:   log,
	}
}

// CreateLobbyInput carries the host and requested configuration.
type CreateLobbyInput struct {
	HostID string
	Config domain.LobbyConfig
}

// LeaveResult is the outcome of Leave. When the host left, Closed is set and
// Lobby is nil.
type LeaveResult struct {
	Lobby  *domain.Lobby
	Closed bool
}

// StartResult pairs the started lobby with its new game.
type StartResult struct {
	Lobby *domain.Lobby
	Game  *domain.Game
}

// Create opens a lobby hosted by an existing user.
func (s *LobbyService) Create(ctx context.Context, in CreateLobbyInput) (*domain.Lobby, error) {
	if err := in.Config.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.Resolve(ctx, in.HostID); err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError("host user")
		}
		return nil, err
	}

	code, err := s.codes.Generate(ctx)
	if err != nil {
		return nil, err
	}
	lobby, err := domain.NewLobby(code, in.HostID, in.Config, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateLobby(ctx, lobby); err != nil {
		return nil, domain.Unavailable(err)
	}
	s.log.Info("lobby created", "code", code, "host_id", in.HostID, "max_players", lobby.MaxPlayers)
	return lobby, nil
}

// GetByCode returns a lobby snapshot.
func (s *LobbyService) GetByCode(ctx context.Context, code string) (*domain.Lobby, error) {
	l, err := s.repo.GetLobbyByCode(ctx, code)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return l, nil
}

// ListByHost returns lobbies hosted by hostID.
func (s *LobbyService) ListByHost(ctx context.Context, hostID string) ([]*domain.Lobby, error) {
	ls, err := s.repo.ListLobbiesByHost(ctx, hostID)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return ls, nil
}

// ListByPlayer returns lobbies playerID is a member of.
func (s *LobbyService) ListByPlayer(ctx context.Context, playerID string) ([]*domain.Lobby, error) {
	ls, err := s.repo.ListLobbiesByMember(ctx, playerID)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return ls, nil
}

// CountActive counts lobbies that are waiting or in play.
func (s *LobbyService) CountActive(ctx context.Context) (int, error) {
	n, err := s.repo.CountLobbiesByStatus(ctx, domain.LobbyWaiting, domain.LobbyInProgress)
	if err != nil {
		return 0, domain.Unavailable(err)
	}
	return n, nil
}

// Join adds a player to a waiting lobby. Joining twice returns the current
// lobby unchanged.
func (s *LobbyService) Join(ctx context.Context, code, playerID string) (*domain.Lobby, error) {
	return s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if l.Status != domain.LobbyWaiting {
			return false, domain.NewInvalidStateError("lobby is not accepting players")
		}
		if l.IsMember(playerID) {
			return false, nil
		}
		if l.IsFull() {
			return false, domain.NewCapacityError("lobby is full")
		}
		if _, err := s.users.Resolve(ctx, playerID); err != nil {
			if domain.IsNotFound(err) {
				return false, domain.NewNotFoundError("player")
			}
			return false, err
		}
		if err := l.AddMember(playerID); err != nil {
			return false, err
		}
		s.log.Info("player joined lobby", "code", code, "player_id", playerID, "members", len(l.Members))
		return true, nil
	})
}

// Leave removes a player. The host leaving closes the lobby.
func (s *LobbyService) Leave(ctx context.Context, code, playerID string) (*LeaveResult, error) {
	closed := false
	lobby, err := s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if !l.IsMember(playerID) {
			return false, domain.NewNotFoundError("player in lobby")
		}
		if l.IsHost(playerID) {
			l.Close(s.now())
			closed = true
			s.log.Info("host left, lobby closed", "code", code, "host_id", playerID)
			return true, nil
		}
		if err := l.RemoveMember(playerID); err != nil {
			return false, err
		}
		s.log.Info("player left lobby", "code", code, "player_id", playerID)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if closed {
		return &LeaveResult{Closed: true}, nil
	}
	return &LeaveResult{Lobby: lobby}, nil
}

// StartGame moves the lobby into play and creates its game. The lobby is
// only persisted as started once the game exists, and the game is deleted
// again when that save fails so the lobby can be started later.
func (s *LobbyService) StartGame(ctx context.Context, code, callerID string) (*StartResult, error) {
	var game *domain.Game
	lobby, err := s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if err := l.Start(callerID, s.now()); err != nil {
			return false, err
		}
		g, err := s.games.StartFromLobby(ctx, l)
		if err != nil {
			return false, err
		}
		l.GameID = &g.ID
		game = g
		return true, nil
	})
	if err != nil {
		if game != nil {
			if derr := s.games.Discard(context.WithoutCancel(ctx), game.ID); derr != nil {
				s.log.Error("failed to discard game of unsaved lobby", "code", code, "game_id", game.ID, "error", derr)
			}
		}
		return nil, err
	}
	s.log.Info("game started", "code", code, "game_id", game.ID, "players", len(lobby.Members))
	return &StartResult{Lobby: lobby, Game: game}, nil
}

// EndGame marks the lobby finished. No host check is applied here.
func (s *LobbyService) EndGame(ctx context.Context, code string) (*domain.Lobby, error) {
	return s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if err := l.Finish(s.now()); err != nil {
			return false, err
		}
		s.log.Info("lobby finished", "code", code)
		return true, nil
	})
}

// Close sets the lobby CLOSED regardless of its status. Host privilege is
// checked by the caller.
func (s *LobbyService) Close(ctx context.Context, code string) (*domain.Lobby, error) {
	return s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if l.Status == domain.LobbyClosed {
			return false, nil
		}
		l.Close(s.now())
		s.log.Info("lobby closed", "code", code)
		return true, nil
	})
}

// UpdateSettings applies a partial configuration change; either every field
// changes or none does.
func (s *LobbyService) UpdateSettings(ctx context.Context, code, callerID string, u domain.SettingsUpdate) (*domain.Lobby, error) {
	return s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if err := l.ApplySettings(callerID, u); err != nil {
			return false, err
		}
		s.log.Info("lobby settings updated", "code", code, "rounds", l.Rounds, "time_limit", l.TimeLimit, "max_players", l.MaxPlayers)
		return true, nil
	})
}

// closeIfStale closes a lobby found by the janitor after re-checking it under
// the lobby lock. It reports whether the lobby was closed.
func (s *LobbyService) closeIfStale(ctx context.Context, code string, now time.Time, maxAge time.Duration) (bool, error) {
	closed := false
	_, err := s.withLobby(ctx, code, func(l *domain.Lobby) (bool, error) {
		if !l.IsStale(now, maxAge) {
			return false, nil
		}
		l.Close(now)
		closed = true
		return true, nil
	})
	return closed, err
}

// withLobby loads a lobby under its lock, runs fn on a working copy and saves
// it when fn reports a change. The stored lobby is untouched when fn fails.
func (s *LobbyService) withLobby(ctx context.Context, code string, fn func(*domain.Lobby) (bool, error)) (*domain.Lobby, error) {
	unlock := s.locks.Lock(code)
	defer unlock()

	stored, err := s.repo.GetLobbyByCode(ctx, code)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	l := stored.Clone()
	changed, err := fn(l)
	if err != nil {
		return nil, err
	}
	if !changed {
		return l, nil
	}
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return nil, domain.Unavailable(err)
	}
	return l, nil
}
