package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RoundStatus represents the lifecycle of a round.
type RoundStatus string

const (
	RoundWaitingForPrompt  RoundStatus = "WAITING_FOR_PROMPT"
	RoundGeneratingImage   RoundStatus = "GENERATING_IMAGE"
	RoundWaitingForGuesses RoundStatus = "WAITING_FOR_GUESSES"
	RoundEvaluating        RoundStatus = "EVALUATING_GUESSES"
	RoundCompleted         RoundStatus = "COMPLETED"
)

var roundOrder = []RoundStatus{
	RoundWaitingForPrompt,
	RoundGeneratingImage,
	RoundWaitingForGuesses,
	RoundEvaluating,
	RoundCompleted,
}

// Next returns the status that follows s, or false when s is final.
func (s RoundStatus) Next() (RoundStatus, bool) {
	i := slices.Index(roundOrder, s)
	if i < 0 || i == len(roundOrder)-1 {
		return s, false
	}
	return roundOrder[i+1], true
}

// Guess is one player's submission for a round.
type Guess struct {
	PlayerID       string    `json:"player_id"`
	Text           string    `json:"text"`
	Score          int       `json:"score"`
	Accuracy       float64   `json:"accuracy"`
	Scored         bool      `json:"scored"`
	SubmittedAt    time.Time `json:"submitted_at"`
	ResponseTimeMs int64     `json:"response_time_ms"`
}

// Round is one prompt and guess cycle.
type Round struct {
	Number            int         `json:"number"`
	PrompterID        string      `json:"prompter_id"`
	Prompt            string      `json:"prompt,omitempty"`
	ImageRef          string      `json:"image_ref,omitempty"`
	Guesses           []Guess     `json:"guesses"`
	Status            RoundStatus `json:"status"`
	TimeLimit         int         `json:"time_limit"`
	Aborted           bool        `json:"aborted"`
	StartedAt         time.Time   `json:"started_at"`
	GuessingStartedAt *time.Time  `json:"guessing_started_at,omitempty"`
	EndedAt           *time.Time  `json:"ended_at,omitempty"`
}

// NewRound opens a round waiting for its prompter.
func NewRound(number int, prompterID string, timeLimit int, now time.Time) *Round {
	return &Round{
		Number:     number,
		PrompterID: prompterID,
		Guesses:    []Guess{},
		Status:     RoundWaitingForPrompt,
		TimeLimit:  timeLimit,
		StartedAt:  now,
	}
}

func (r *Round) expect(s RoundStatus) error {
	if r.Status != s {
		return NewInvalidStateError(fmt.Sprintf("round %d is %s, expected %s", r.Number, r.Status, s))
	}
	return nil
}

// advance moves exactly one step forward.
func (r *Round) advance(now time.Time) {
	next, ok := r.Status.Next()
	if !ok {
		return
	}
	r.Status = next
	if next == RoundCompleted {
		r.EndedAt = &now
	}
}

// SubmitPrompt records the prompter's text and hands off to image generation.
func (r *Round) SubmitPrompt(playerID, prompt string, now time.Time) error {
	if err := r.expect(RoundWaitingForPrompt); err != nil {
		return err
	}
	if playerID != r.PrompterID {
		return NewForbiddenError("only the prompter can submit the prompt")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return NewValidationError("prompt", "cannot be empty")
	}
	r.Prompt = prompt
	r.advance(now)
	return nil
}

// AttachImage stores the generated image and opens guessing.
func (r *Round) AttachImage(ref string, now time.Time) error {
	if err := r.expect(RoundGeneratingImage); err != nil {
		return err
	}
	if strings.TrimSpace(ref) == "" {
		return NewValidationError("image_ref", "cannot be empty")
	}
	r.ImageRef = ref
	r.GuessingStartedAt = &now
	r.advance(now)
	return nil
}

// HasGuessed reports whether playerID already submitted.
func (r *Round) HasGuessed(playerID string) bool {
	return r.guessIndex(playerID) >= 0
}

func (r *Round) guessIndex(playerID string) int {
	return slices.IndexFunc(r.Guesses, func(g Guess) bool { return g.PlayerID == playerID })
}

// RecordGuess appends a guess. Membership is checked by the owning game.
func (r *Round) RecordGuess(playerID, text string, now time.Time) error {
	if err := r.expect(RoundWaitingForGuesses); err != nil {
		return err
	}
	if playerID == r.PrompterID {
		return NewForbiddenError("the prompter cannot guess in their own round")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return NewValidationError("guess", "cannot be empty")
	}
	if r.HasGuessed(playerID) {
		return NewAlreadyExistsError("guess already submitted")
	}
	g := Guess{PlayerID: playerID, Text: text, SubmittedAt: now}
	if r.GuessingStartedAt != nil {
		g.ResponseTimeMs = now.Sub(*r.GuessingStartedAt).Milliseconds()
	}
	r.Guesses = append(r.Guesses, g)
	return nil
}

// GuessComplete reports whether every non-prompter member has guessed.
func (r *Round) GuessComplete(memberCount int) bool {
	return len(r.Guesses) >= memberCount-1
}

// CloseGuessing stops accepting guesses and waits for scores.
func (r *Round) CloseGuessing(now time.Time) error {
	if err := r.expect(RoundWaitingForGuesses); err != nil {
		return err
	}
	r.advance(now)
	return nil
}

// ScoreGuess sets the score of a guess once.
func (r *Round) ScoreGuess(playerID string, score int, accuracy float64) error {
	if err := r.expect(RoundEvaluating); err != nil {
		return err
	}
	i := r.guessIndex(playerID)
	if i < 0 {
		return NewNotFoundError("guess")
	}
	if r.Guesses[i].Scored {
		return NewAlreadyExistsError("guess already scored")
	}
	r.Guesses[i].Score = score
	r.Guesses[i].Accuracy = accuracy
	r.Guesses[i].Scored = true
	return nil
}

// Complete finishes an evaluated round.
func (r *Round) Complete(now time.Time) error {
	if err := r.expect(RoundEvaluating); err != nil {
		return err
	}
	r.advance(now)
	return nil
}

// Abort force-completes the round without scoring.
func (r *Round) Abort(now time.Time) {
	if r.Status == RoundCompleted {
		return
	}
	r.Status = RoundCompleted
	r.Aborted = true
	r.EndedAt = &now
}

// Ranking returns guesses by score, highest first, submission order on ties.
func (r *Round) Ranking() []Guess {
	out := slices.Clone(r.Guesses)
	slices.SortStableFunc(out, func(a, b Guess) int { return cmp.Compare(b.Score, a.Score) })
	return out
}

// BestGuesser returns the highest-scoring guesser, first submission on ties.
func (r *Round) BestGuesser() (string, bool) {
	if len(r.Guesses) == 0 {
		return "", false
	}
	best := r.Guesses[0]
	for _, g := range r.Guesses[1:] {
		if g.Score > best.Score {
			best = g
		}
	}
	return best.PlayerID, true
}

// Clone returns a deep copy.
func (r *Round) Clone() *Round {
	c := *r
	c.Guesses = slices.Clone(r.Guesses)
	if r.GuessingStartedAt != nil {
		t := *r.GuessingStartedAt
		c.GuessingStartedAt = &t
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return &c
}
