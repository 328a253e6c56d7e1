// Package ports defines interfaces (ports) that connect core domain to infrastructure.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern.
//
// Ports are defined here in the core layer, while implementations (adapters)
// live in src/infra. This ensures the core has no dependency on infrastructure.
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gptuessr/src/core/domain"
)

// Repository is the base interface for all repositories.
type Repository interface {
	// Health checks if the underlying storage is reachable.
	Health(ctx context.Context) error
}

// CodeChecker answers whether a lobby code is already taken.
type CodeChecker interface {
	LobbyCodeExists(ctx context.Context, code string) (bool, error)
}

// LobbyRepository persists lobbies keyed by code. Lookups return
// domain.ErrNotFound when nothing matches; CreateLobby returns
// domain.ErrAlreadyExists when the code is taken.
type LobbyRepository interface {
	CodeChecker

	CreateLobby(ctx context.Context, lobby *domain.Lobby) error
	GetLobbyByCode(ctx context.Context, code string) (*domain.Lobby, error)
	SaveLobby(ctx context.Context, lobby *domain.Lobby) error
	ListLobbiesByHost(ctx context.Context, hostID string) ([]*domain.Lobby, error)
	ListLobbiesByMember(ctx context.Context, playerID string) ([]*domain.Lobby, error)
	CountLobbiesByStatus(ctx context.Context, statuses ...domain.LobbyStatus) (int, error)

	// ListStaleLobbyCodes returns codes of lobbies in status created before the cutoff.
	ListStaleLobbyCodes(ctx context.Context, status domain.LobbyStatus, before time.Time) ([]string, error)
}

// UserRepository persists user profiles. Subject id and username are unique.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserBySubject(ctx context.Context, subjectID string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SaveUser(ctx context.Context, user *domain.User) error
}

// GameRepository persists games with their rounds and scores.
type GameRepository interface {
	CreateGame(ctx context.Context, game *domain.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*domain.Game, error)
	SaveGame(ctx context.Context, game *domain.Game) error

	// DeleteGame removes a game. Deleting a missing game is not an error.
	DeleteGame(ctx context.Context, id uuid.UUID) error
}

// Store bundles every repository a single backend provides.
type Store interface {
	Repository
	LobbyRepository
	UserRepository
	GameRepository
}
