package repo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

var _ ports.Store = (*MemoryRepository)(nil)

// MemoryRepository keeps everything in process memory. Values are cloned on
// the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	users   map[string]*domain.User  // by subject id
	lobbies map[string]*domain.Lobby // by code
	games   map[uuid.UUID]*domain.Game
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]*domain.User),
		lobbies: make(map[string]*domain.Lobby),
		games:   make(map[uuid.UUID]*domain.Game),
	}
}

func (r *MemoryRepository) Health(context.Context) error {
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Friends = slices.Clone(u.Friends)
	c.Blocked = slices.Clone(u.Blocked)
	return &c
}

func (r *MemoryRepository) CreateUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.SubjectID]; ok {
		return domain.NewAlreadyExistsError("user")
	}
	if r.usernameTaken(u.Username, "") {
		return domain.NewAlreadyExistsError("username")
	}
	r.users[u.SubjectID] = cloneUser(u)
	return nil
}

func (r *MemoryRepository) GetUserBySubject(_ context.Context, subjectID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[subjectID]
	if !ok {
		return nil, domain.NewNotFoundError("user")
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usernameTaken(username, ""), nil
}

func (r *MemoryRepository) usernameTaken(username, exceptSubject string) bool {
	for subject, u := range r.users {
		if subject != exceptSubject && u.Username == username {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) SaveUser(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.SubjectID]; !ok {
		return domain.NewNotFoundError("user")
	}
	if r.usernameTaken(u.Username, u.SubjectID) {
		return domain.NewAlreadyExistsError("username")
	}
	r.users[u.SubjectID] = cloneUser(u)
	return nil
}

func (r *MemoryRepository) CreateLobby(_ context.Context, l *domain.Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[l.Code]; ok {
		return domain.NewAlreadyExistsError("lobby code")
	}
	r.lobbies[l.Code] = l.Clone()
	return nil
}

func (r *MemoryRepository) GetLobbyByCode(_ context.Context, code string) (*domain.Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[code]
	if !ok {
		return nil, domain.NewNotFoundError("lobby")
	}
	return l.Clone(), nil
}

func (r *MemoryRepository) SaveLobby(_ context.Context, l *domain.Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.lobbies[l.Code]; !ok {
		return domain.NewNotFoundError("lobby")
	}
	r.lobbies[l.Code] = l.Clone()
	return nil
}

func (r *MemoryRepository) listLobbies(match func(*domain.Lobby) bool) []*domain.Lobby {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Lobby
	for _, l := range r.lobbies {
		if match(l) {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MemoryRepository) ListLobbiesByHost(_ context.Context, hostID string) ([]*domain.Lobby, error) {
	return r.listLobbies(func(l *domain.Lobby) bool { return l.HostID == hostID }), nil
}

func (r *MemoryRepository) ListLobbiesByMember(_ context.Context, playerID string) ([]*domain.Lobby, error) {
	return r.listLobbies(func(l *domain.Lobby) bool { return l.IsMember(playerID) }), nil
}

func (r *MemoryRepository) LobbyCodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lobbies[code]
	return ok, nil
}

func (r *MemoryRepository) CountLobbiesByStatus(_ context.Context, statuses ...domain.LobbyStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, l := range r.lobbies {
		if slices.Contains(statuses, l.Status) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListStaleLobbyCodes(_ context.Context, status domain.LobbyStatus, before time.Time) ([]string, error) {
	stale := r.listLobbies(func(l *domain.Lobby) bool {
		return l.Status == status && l.CreatedAt.Before(before)
	})
	codes := make([]string, 0, len(stale))
	for i := len(stale) - 1; i >= 0; i-- {
		codes = append(codes, stale[i].Code)
	}
	return codes, nil
}

func (r *MemoryRepository) CreateGame(_ context.Context, g *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.ID]; ok {
		return domain.NewAlreadyExistsError("game")
	}
	r.games[g.ID] = g.Clone()
	return nil
}

func (r *MemoryRepository) GetGame(_ context.Context, id uuid.UUID) (*domain.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	if !ok {
		return nil, domain.NewNotFoundError("game")
	}
	return g.Clone(), nil
}

func (r *MemoryRepository) DeleteGame(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
	return nil
}

func (r *MemoryRepository) SaveGame(_ context.Context, g *domain.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.ID]; !ok {
		return domain.NewNotFoundError("game")
	}
	r.games[g.ID] = g.Clone()
	return nil
}
