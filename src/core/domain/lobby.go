package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// LobbyStatus represents the lifecycle of a lobby.
type LobbyStatus string

const (
	LobbyWaiting    LobbyStatus = "WAITING"
	LobbyInProgress LobbyStatus = "IN_PROGRESS"
	LobbyFinished   LobbyStatus = "FINISHED"
	LobbyClosed     LobbyStatus = "CLOSED"
)

// Terminal reports whether no further mutation is allowed.
func (s LobbyStatus) Terminal() bool {
	return s == LobbyFinished || s == LobbyClosed
}

// Active reports whether the lobby counts towards the active total.
func (s LobbyStatus) Active() bool {
	return s == LobbyWaiting || s == LobbyInProgress
}

// LobbyConfig is the host-controlled part of a lobby.
type LobbyConfig struct {
	Rounds     int      `json:"rounds"`
	TimeLimit  int      `json:"time_limit"`
	MaxPlayers int      `json:"max_players"`
	Settings   []string `json:"settings"`
}

// Validate checks every numeric field against its inclusive bounds.
func (c LobbyConfig) Validate() error {
	if c.Rounds < MinRounds || c.Rounds > MaxRounds {
		return NewValidationError("rounds", fmt.Sprintf("must be between %d and %d", MinRounds, MaxRounds))
	}
	if c.TimeLimit < MinTimeLimit || c.TimeLimit > MaxTimeLimit {
		return NewValidationError("time_limit", fmt.Sprintf("must be between %d and %d seconds", MinTimeLimit, MaxTimeLimit))
	}
	if c.MaxPlayers < MinMaxPlayers || c.MaxPlayers > MaxMaxPlayers {
		return NewValidationError("max_players", fmt.Sprintf("must be between %d and %d", MinMaxPlayers, MaxMaxPlayers))
	}
	return nil
}

// SettingsUpdate is a partial LobbyConfig change. Nil fields are untouched; a
// non-nil empty Settings slice clears the tags.
type SettingsUpdate struct {
	Rounds     *int
	TimeLimit  *int
	MaxPlayers *int
	Settings   []string
}

// Lobby is a waiting room for one game, addressed by its join code.
type Lobby struct {
	ID         uuid.UUID   `json:"id"`
	Code       string      `json:"code"`
	HostID     string      `json:"host_id"`
	Members    []string    `json:"members"`
	MaxPlayers int         `json:"max_players"`
	Rounds     int         `json:"rounds"`
	TimeLimit  int         `json:"time_limit"`
	Settings   []string    `json:"settings"`
	Status     LobbyStatus `json:"status"`
	GameID     *uuid.UUID  `json:"game_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	EndedAt    *time.Time  `json:"ended_at,omitempty"`
}

// NewLobby opens a lobby with the host as its only member.
func NewLobby(code, hostID string, cfg LobbyConfig, now time.Time) (*Lobby, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hostID == "" {
		return nil, NewValidationError("host_id", "cannot be empty")
	}
	settings := slices.Clone(cfg.Settings)
	if settings == nil {
		settings = []string{}
	}
	return &Lobby{
		ID:         uuid.New(),
		Code:       code,
		HostID:     hostID,
		Members:    []string{hostID},
		MaxPlayers: cfg.MaxPlayers,
		Rounds:     cfg.Rounds,
		TimeLimit:  cfg.TimeLimit,
		Settings:   settings,
		Status:     LobbyWaiting,
		CreatedAt:  now,
	}, nil
}

// Config returns the lobby's current configuration.
func (l *Lobby) Config() LobbyConfig {
	return LobbyConfig{
		Rounds:     l.Rounds,
		TimeLimit:  l.TimeLimit,
		MaxPlayers: l.MaxPlayers,
		Settings:   slices.Clone(l.Settings),
	}
}

// IsHost reports whether playerID hosts the lobby.
func (l *Lobby) IsHost(playerID string) bool {
	return l.HostID == playerID
}

// IsMember reports whether playerID is in the lobby.
func (l *Lobby) IsMember(playerID string) bool {
	return slices.Contains(l.Members, playerID)
}

// IsFull reports whether membership has reached capacity.
func (l *Lobby) IsFull() bool {
	return len(l.Members) >= l.MaxPlayers
}

// IsStale reports whether a waiting lobby is older than maxAge at now.
func (l *Lobby) IsStale(now time.Time, maxAge time.Duration) bool {
	return l.Status == LobbyWaiting && l.CreatedAt.Before(now.Add(-maxAge))
}

// AddMember appends playerID. Joining twice is a no-op.
func (l *Lobby) AddMember(playerID string) error {
	if l.Status != LobbyWaiting {
		return NewInvalidStateError(fmt.Sprintf("lobby is %s", l.Status))
	}
	if l.IsMember(playerID) {
		return nil
	}
	if l.IsFull() {
		return NewCapacityError("lobby is full")
	}
	l.Members = append(l.Members, playerID)
	return nil
}

// RemoveMember drops a non-host member.
func (l *Lobby) RemoveMember(playerID string) error {
	if l.Status.Terminal() {
		return NewInvalidStateError(fmt.Sprintf("lobby is %s", l.Status))
	}
	i := slices.Index(l.Members, playerID)
	if i < 0 {
		return NewNotFoundError("player in lobby")
	}
	if l.IsHost(playerID) {
		return NewInvalidStateError("host cannot be removed, close the lobby instead")
	}
	l.Members = slices.Delete(l.Members, i, i+1)
	return nil
}

// Start moves a waiting lobby into play.
func (l *Lobby) Start(callerID string, now time.Time) error {
	if !l.IsHost(callerID) {
		return NewForbiddenError("only the host can start the game")
	}
	if l.Status != LobbyWaiting {
		return NewInvalidStateError(fmt.Sprintf("lobby is %s", l.Status))
	}
	if len(l.Members) < MinPlayersToStart {
		return NewInsufficientPlayersError(len(l.Members), MinPlayersToStart)
	}
	l.Status = LobbyInProgress
	l.StartedAt = &now
	return nil
}

// Finish marks the lobby's game as over.
func (l *Lobby) Finish(now time.Time) error {
	if l.Status.Terminal() {
		return NewInvalidStateError(fmt.Sprintf("lobby is %s", l.Status))
	}
	l.Status = LobbyFinished
	l.EndedAt = &now
	return nil
}

// Close ends the lobby. Closing a closed lobby is a no-op.
func (l *Lobby) Close(now time.Time) {
	if l.Status == LobbyClosed {
		return
	}
	l.Status = LobbyClosed
	if l.EndedAt == nil {
		l.EndedAt = &now
	}
}

// ApplySettings validates the merged configuration before changing anything.
func (l *Lobby) ApplySettings(callerID string, u SettingsUpdate) error {
	if !l.IsHost(callerID) {
		return NewForbiddenError("only the host can change settings")
	}
	if l.Status != LobbyWaiting {
		return NewInvalidStateError(fmt.Sprintf("lobby is %s", l.Status))
	}

	next := l.Config()
	if u.Rounds != nil {
		next.Rounds = *u.Rounds
	}
	if u.TimeLimit != nil {
		next.TimeLimit = *u.TimeLimit
	}
	if u.MaxPlayers != nil {
		next.MaxPlayers = *u.MaxPlayers
	}
	if u.Settings != nil {
		next.Settings = slices.Clone(u.Settings)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if next.MaxPlayers < len(l.Members) {
		return NewCapacityError(fmt.Sprintf("max players %d is below current membership %d", next.MaxPlayers, len(l.Members)))
	}

	l.Rounds = next.Rounds
	l.TimeLimit = next.TimeLimit
	l.MaxPlayers = next.MaxPlayers
	l.Settings = next.Settings
	return nil
}

// Clone returns a deep copy safe to hand across lock boundaries.
func (l *Lobby) Clone() *Lobby {
	c := *l
	c.Members = slices.Clone(l.Members)
	c.Settings = slices.Clone(l.Settings)
	if l.GameID != nil {
		id := *l.GameID
		c.GameID = &id
	}
	if l.StartedAt != nil {
		t := *l.StartedAt
		c.StartedAt = &t
	}
	if l.EndedAt != nil {
		t := *l.EndedAt
		c.EndedAt = &t
	}
	return &c
}
