package domain

import "time"

// CodeAlphabet is the set of symbols used for lobby codes. I, O, 0 and 1 are
// left out because they are easily confused when read aloud or handwritten.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of symbols in a lobby code.
const CodeLength = 6

// DefaultCodeMaxAttempts bounds how many candidate codes are tried before giving up.
const DefaultCodeMaxAttempts = 16

// MinPlayersToStart is the hard minimum membership for starting a game.
const MinPlayersToStart = 3

// MinPlayersToContinue is the membership below which a running game is aborted.
const MinPlayersToContinue = 2

// Lobby configuration bounds (inclusive).
const (
	MinRounds     = 1
	MaxRounds     = 20
	MinTimeLimit  = 1
	MaxTimeLimit  = 180
	MinMaxPlayers = 2
	MaxMaxPlayers = 1000
)

// Defaults applied when a create request leaves a field out.
const (
	DefaultRounds     = 5
	DefaultTimeLimit  = 60
	DefaultMaxPlayers = 10
)

// StaleLobbyAge is how long a lobby may sit in WAITING before the janitor closes it.
const StaleLobbyAge = 24 * time.Hour

// DefaultJanitorSchedule runs the sweep once a day at midnight.
const DefaultJanitorSchedule = "0 0 * * *"

// DefaultUsername is the base username when a registration carries neither
// a username nor an email address.
const DefaultUsername = "player"
