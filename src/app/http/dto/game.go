package dto

import "gptuessr/src/core/domain"

// SubmitPromptRequest is the prompter's text for the current round.
type SubmitPromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// AttachImageRequest carries the reference of the image generated from the prompt.
type AttachImageRequest struct {
	ImageRef string `json:"image_ref" binding:"required"`
}

// SubmitGuessRequest is a player's guess.
type SubmitGuessRequest struct {
	Guess string `json:"guess" binding:"required"`
}

// ApplyScoresRequest carries externally computed scores for a round.
type ApplyScoresRequest struct {
	Results []GuessResultRequest `json:"results" binding:"required,dive"`
}

type GuessResultRequest struct {
	PlayerID string  `json:"player_id" binding:"required"`
	Score    int     `json:"score" binding:"min=0"`
	Accuracy float64 `json:"accuracy" binding:"min=0,max=1"`
}

func (r ApplyScoresRequest) ToResults() []domain.GuessResult {
	out := make([]domain.GuessResult, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, domain.GuessResult{
			PlayerID: res.PlayerID,
			Score:    res.Score,
			Accuracy: res.Accuracy,
		})
	}
	return out
}

// RoundResultResponse is a round with its guesses ranked.
type RoundResultResponse struct {
	Round       *domain.Round  `json:"round"`
	Ranking     []domain.Guess `json:"ranking"`
	BestGuesser string         `json:"best_guesser,omitempty"`
}

// StandingResponse is the cumulative ranking of a game.
type StandingResponse struct {
	Status  domain.GameStatus    `json:"status"`
	Over    bool                 `json:"over"`
	Winner  string               `json:"winner,omitempty"`
	Ranking []domain.PlayerScore `json:"ranking"`
}

// LeaveGameResponse reports the game after a player left and whether that
// ended it.
type LeaveGameResponse struct {
	Game    *domain.Game `json:"game"`
	Aborted bool         `json:"aborted"`
}
