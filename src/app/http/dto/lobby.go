package dto

import "gptuessr/src/core/domain"

// CreateLobbyRequest is the payload for POST /v1/lobbies. Omitted fields take
// the defaults.
type CreateLobbyRequest struct {
	Rounds     *int     `json:"rounds"`
	TimeLimit  *int     `json:"time_limit"`
	MaxPlayers *int     `json:"max_players"`
	Settings   []string `json:"settings"`
}

// ToConfig fills in defaults for omitted fields.
func (r CreateLobbyRequest) ToConfig() domain.LobbyConfig {
	cfg := domain.LobbyConfig{
		Rounds:     domain.DefaultRounds,
		TimeLimit:  domain.DefaultTimeLimit,
		MaxPlayers: domain.DefaultMaxPlayers,
		Settings:   r.Settings,
	}
	if r.Rounds != nil {
		cfg.Rounds = *r.Rounds
	}
	if r.TimeLimit != nil {
		cfg.TimeLimit = *r.TimeLimit
	}
	if r.MaxPlayers != nil {
		cfg.MaxPlayers = *r.MaxPlayers
	}
	return cfg
}

// UpdateSettingsRequest is the payload for PUT /v1/lobbies/:code/settings.
// Only present fields change.
type UpdateSettingsRequest struct {
	Rounds     *int     `json:"rounds"`
	TimeLimit  *int     `json:"time_limit"`
	MaxPlayers *int     `json:"max_players"`
	Settings   []string `json:"settings"`
}

func (r UpdateSettingsRequest) ToUpdate() domain.SettingsUpdate {
	return domain.SettingsUpdate{
		Rounds:     r.Rounds,
		TimeLimit:  r.TimeLimit,
		MaxPlayers: r.MaxPlayers,
		Settings:   r.Settings,
	}
}

// LeaveLobbyResponse tells the caller whether leaving closed the lobby.
type LeaveLobbyResponse struct {
	Closed bool          `json:"closed"`
	Lobby  *domain.Lobby `json:"lobby,omitempty"`
}

// StartLobbyResponse pairs the started lobby with its game.
type StartLobbyResponse struct {
	Lobby *domain.Lobby `json:"lobby"`
	Game  *domain.Game  `json:"game"`
}

// CountResponse wraps a single count.
type CountResponse struct {
	Count int `json:"count"`
}
