package domain

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// GameStatus represents the lifecycle of a game.
type GameStatus string

const (
	GameInProgress GameStatus = "IN_PROGRESS"
	GameFinished   GameStatus = "FINISHED"
	GameAborted    GameStatus = "ABORTED"
)

// PlayerScore is one entry of a cumulative score table. Tables keep insertion
// order so rankings can break ties by it.
type PlayerScore struct {
	PlayerID string `json:"player_id"`
	Score    int    `json:"score"`
}

// Game is a match spawned from a started lobby.
type Game struct {
	ID              uuid.UUID     `json:"id"`
	LobbyID         uuid.UUID     `json:"lobby_id"`
	LobbyCode       string        `json:"lobby_code"`
	HostID          string        `json:"host_id"`
	Members         []string      `json:"members"`
	CurrentRound    int           `json:"current_round"`
	TotalRounds     int           `json:"total_rounds"`
	TimeLimit       int           `json:"time_limit"`
	CurrentPrompter string        `json:"current_prompter,omitempty"`
	Rounds          []*Round      `json:"rounds"`
	Scores          []PlayerScore `json:"scores"`
	Status          GameStatus    `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         *time.Time    `json:"ended_at,omitempty"`
}

// NewGameFromLobby snapshots the lobby's membership and configuration.
func NewGameFromLobby(l *Lobby, now time.Time) *Game {
	members := slices.Clone(l.Members)
	scores := make([]PlayerScore, 0, len(members))
	for _, m := range members {
		scores = append(scores, PlayerScore{PlayerID: m})
	}
	return &Game{
		ID:           uuid.New(),
		LobbyID:      l.ID,
		LobbyCode:    l.Code,
		HostID:       l.HostID,
		Members:      members,
		CurrentRound: 1,
		TotalRounds:  l.Rounds,
		TimeLimit:    l.TimeLimit,
		Rounds:       []*Round{},
		Scores:       scores,
		Status:       GameInProgress,
		StartedAt:    now,
	}
}

func (g *Game) expectInProgress() error {
	if g.Status != GameInProgress {
		return NewInvalidStateError(fmt.Sprintf("game is %s", g.Status))
	}
	return nil
}

// IsMember reports whether playerID is still in the game.
func (g *Game) IsMember(playerID string) bool {
	return slices.Contains(g.Members, playerID)
}

// IsOver reports whether every configured round has been played.
func (g *Game) IsOver() bool {
	return g.CurrentRound > g.TotalRounds
}

// Round returns the round with the given number.
func (g *Game) Round(number int) (*Round, error) {
	for _, r := range g.Rounds {
		if r.Number == number {
			return r, nil
		}
	}
	return nil, NewNotFoundError(fmt.Sprintf("round %d", number))
}

// PrompterFor picks the prompter for a round number by rotating through the
// current members.
func (g *Game) PrompterFor(number int) string {
	if len(g.Members) == 0 {
		return ""
	}
	return g.Members[(number-1)%len(g.Members)]
}

// AddRound appends a round. Rounds are append-only and numbered from 1.
func (g *Game) AddRound(r *Round) error {
	if err := g.expectInProgress(); err != nil {
		return err
	}
	if want := len(g.Rounds) + 1; r.Number != want {
		return NewInvalidStateError(fmt.Sprintf("next round is %d, got %d", want, r.Number))
	}
	if r.Number > g.TotalRounds {
		return NewInvalidStateError("all rounds have been played")
	}
	if !g.IsMember(r.PrompterID) {
		return NewNotFoundError("prompter in game")
	}
	g.Rounds = append(g.Rounds, r)
	g.CurrentPrompter = r.PrompterID
	return nil
}

// BeginRound opens the round for CurrentRound with the rotated prompter.
func (g *Game) BeginRound(now time.Time) (*Round, error) {
	if err := g.expectInProgress(); err != nil {
		return nil, err
	}
	if g.IsOver() {
		return nil, NewInvalidStateError("all rounds have been played")
	}
	if len(g.Rounds) >= g.CurrentRound {
		return nil, NewAlreadyExistsError(fmt.Sprintf("round %d already started", g.CurrentRound))
	}
	r := NewRound(g.CurrentRound, g.PrompterFor(g.CurrentRound), g.TimeLimit, now)
	if err := g.AddRound(r); err != nil {
		return nil, err
	}
	return r, nil
}

// AdvanceRound moves the counter forward. Whether the previous round finished
// is the caller's concern.
func (g *Game) AdvanceRound() error {
	if err := g.expectInProgress(); err != nil {
		return err
	}
	if g.IsOver() {
		return NewInvalidStateError("all rounds have been played")
	}
	g.CurrentRound++
	g.CurrentPrompter = ""
	return nil
}

// RecordGuess adds a member's guess to the given round.
func (g *Game) RecordGuess(number int, playerID, text string, now time.Time) error {
	if err := g.expectInProgress(); err != nil {
		return err
	}
	if !g.IsMember(playerID) {
		return NewNotFoundError("player in game")
	}
	r, err := g.Round(number)
	if err != nil {
		return err
	}
	return r.RecordGuess(playerID, text, now)
}

// GuessResult is the verdict for one guess in a round.
type GuessResult struct {
	PlayerID string  `json:"player_id"`
	Score    int     `json:"score"`
	Accuracy float64 `json:"accuracy"`
}

// ScoreRound applies results to a round's guesses, adds them to the cumulative
// scores and completes the round. Guessing is closed first if still open.
// Guesses without a result score zero and players who already left gain
// nothing. Nothing changes when any result is rejected.
func (g *Game) ScoreRound(number int, results []GuessResult, now time.Time) error {
	if err := g.expectInProgress(); err != nil {
		return err
	}
	stored, err := g.Round(number)
	if err != nil {
		return err
	}
	r := stored.Clone()
	if r.Status == RoundWaitingForGuesses {
		if err := r.CloseGuessing(now); err != nil {
			return err
		}
	}
	if err := r.expect(RoundEvaluating); err != nil {
		return err
	}
	for _, res := range results {
		if err := r.ScoreGuess(res.PlayerID, res.Score, res.Accuracy); err != nil {
			return err
		}
	}
	for _, guess := range r.Guesses {
		if !guess.Scored {
			if err := r.ScoreGuess(guess.PlayerID, 0, 0); err != nil {
				return err
			}
		}
	}
	if err := r.Complete(now); err != nil {
		return err
	}

	*stored = *r
	for _, guess := range r.Guesses {
		if g.IsMember(guess.PlayerID) {
			g.UpdateScore(guess.PlayerID, guess.Score)
		}
	}
	return nil
}

// UpdateScore adds delta to a player's cumulative score. Unknown players are
// appended starting from zero.
func (g *Game) UpdateScore(playerID string, delta int) {
	for i := range g.Scores {
		if g.Scores[i].PlayerID == playerID {
			g.Scores[i].Score += delta
			return
		}
	}
	g.Scores = append(g.Scores, PlayerScore{PlayerID: playerID, Score: delta})
}

// Score returns a player's cumulative score, zero when absent.
func (g *Game) Score(playerID string) int {
	for _, s := range g.Scores {
		if s.PlayerID == playerID {
			return s.Score
		}
	}
	return 0
}

// RemovePlayer drops a member and their score. When the member is prompting
// an unfinished round that round is aborted; when too few members remain the
// whole game is aborted. It reports whether the current round was aborted.
func (g *Game) RemovePlayer(playerID string, now time.Time) (bool, error) {
	if err := g.expectInProgress(); err != nil {
		return false, err
	}
	i := slices.Index(g.Members, playerID)
	if i < 0 {
		return false, NewNotFoundError("player in game")
	}
	g.Members = slices.Delete(g.Members, i, i+1)
	g.Scores = slices.DeleteFunc(g.Scores, func(s PlayerScore) bool { return s.PlayerID == playerID })

	aborted := false
	if r, err := g.Round(g.CurrentRound); err == nil && r.PrompterID == playerID && r.Status != RoundCompleted {
		r.Abort(now)
		g.CurrentPrompter = ""
		aborted = true
	}
	if len(g.Members) < MinPlayersToContinue {
		g.Status = GameAborted
		g.EndedAt = &now
	}
	return aborted, nil
}

// Finish concludes the game.
func (g *Game) Finish(now time.Time) error {
	if err := g.expectInProgress(); err != nil {
		return err
	}
	g.Status = GameFinished
	g.EndedAt = &now
	return nil
}

// FinalRanking returns cumulative scores, highest first, insertion order on ties.
func (g *Game) FinalRanking() []PlayerScore {
	out := slices.Clone(g.Scores)
	slices.SortStableFunc(out, func(a, b PlayerScore) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

// Winner returns the top scorer of a finished game.
func (g *Game) Winner() (string, bool) {
	if g.Status != GameFinished || len(g.Scores) == 0 {
		return "", false
	}
	return g.FinalRanking()[0].PlayerID, true
}

// PlayerAccuracy averages a player's scored guesses across all rounds.
func (g *Game) PlayerAccuracy(playerID string) float64 {
	var sum float64
	n := 0
	for _, r := range g.Rounds {
		for _, guess := range r.Guesses {
			if guess.PlayerID == playerID && guess.Scored {
				sum += guess.Accuracy
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	c := *g
	c.Members = slices.Clone(g.Members)
	c.Scores = slices.Clone(g.Scores)
	c.Rounds = make([]*Round, len(g.Rounds))
	for i, r := range g.Rounds {
		c.Rounds[i] = r.Clone()
	}
	if g.EndedAt != nil {
		t := *g.EndedAt
		c.EndedAt = &t
	}
	return &c
}
