package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gptuessr/src/app/http/dto"
	"gptuessr/src/app/http/response"
	"gptuessr/src/app/middleware"
	"gptuessr/src/core/domain"
	"gptuessr/src/core/usecase"
)

// GameHandler handles in-game endpoints. Host-only steps (opening rounds,
// scoring, advancing, finishing) are checked here against the game's host.
type GameHandler struct {
	games   *usecase.GameService
	lobbies *usecase.LobbyService
}

func NewGameHandler(games *usecase.GameService, lobbies *usecase.LobbyService) *GameHandler {
	return &GameHandler{games: games, lobbies: lobbies}
}

type access int

const (
	accessMember access = iota
	accessHost
)

// authorize loads the game and checks the caller against it.
func (h *GameHandler) authorize(c *gin.Context, need access) (*domain.Game, bool) {
	id, ok := parseGameID(c)
	if !ok {
		return nil, false
	}
	g, err := h.games.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	caller := middleware.GetSubjectID(c)
	switch {
	case need == accessHost && g.HostID != caller:
		fail(c, domain.NewForbiddenError("only the host can do this"))
		return nil, false
	case need == accessMember && !g.IsMember(caller) && g.HostID != caller:
		fail(c, domain.NewForbiddenError("not a player in this game"))
		return nil, false
	}
	return g, true
}

// Get returns the full game state.
// GET /v1/games/:game_id
func (h *GameHandler) Get(c *gin.Context) {
	g, ok := h.authorize(c, accessMember)
	if !ok {
		return
	}
	response.OK(c, g)
}

// BeginRound opens the current round.
// POST /v1/games/:game_id/rounds
func (h *GameHandler) BeginRound(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	r, err := h.games.BeginRound(c.Request.Context(), g.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, r)
}

// SubmitPrompt records the prompter's text.
// POST /v1/games/:game_id/rounds/:round/prompt
func (h *GameHandler) SubmitPrompt(c *gin.Context) {
	id, number, ok := h.roundParams(c)
	if !ok {
		return
	}
	var req dto.SubmitPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	r, err := h.games.SubmitPrompt(c.Request.Context(), id, number, middleware.GetSubjectID(c), req.Prompt)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, r)
}

// AttachImage stores the generated image and opens guessing. Only the round's
// prompter or the host may attach it.
// POST /v1/games/:game_id/rounds/:round/image
func (h *GameHandler) AttachImage(c *gin.Context) {
	g, ok := h.authorize(c, accessMember)
	if !ok {
		return
	}
	number, ok := parseRound(c)
	if !ok {
		return
	}
	var req dto.AttachImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	caller := middleware.GetSubjectID(c)
	if r, err := g.Round(number); err == nil && r.PrompterID != caller && g.HostID != caller {
		fail(c, domain.NewForbiddenError("only the prompter can attach the image"))
		return
	}

	r, err := h.games.AttachImage(c.Request.Context(), g.ID, number, req.ImageRef)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, r)
}

// SubmitGuess records the caller's guess.
// POST /v1/games/:game_id/rounds/:round/guesses
func (h *GameHandler) SubmitGuess(c *gin.Context) {
	id, number, ok := h.roundParams(c)
	if !ok {
		return
	}
	var req dto.SubmitGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	r, err := h.games.SubmitGuess(c.Request.Context(), id, number, middleware.GetSubjectID(c), req.Guess)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, r)
}

// CloseGuessing stops accepting guesses before every player has answered.
// POST /v1/games/:game_id/rounds/:round/close
func (h *GameHandler) CloseGuessing(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	number, ok := parseRound(c)
	if !ok {
		return
	}
	r, err := h.games.CloseGuessing(c.Request.Context(), g.ID, number)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, r)
}

// Evaluate scores the round with the configured scorer.
// POST /v1/games/:game_id/rounds/:round/evaluate
func (h *GameHandler) Evaluate(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	number, ok := parseRound(c)
	if !ok {
		return
	}
	out, err := h.games.EvaluateRound(c.Request.Context(), g.ID, number)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, roundResult(out))
}

// ApplyScores accepts externally computed scores for the round.
// POST /v1/games/:game_id/rounds/:round/scores
func (h *GameHandler) ApplyScores(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	number, ok := parseRound(c)
	if !ok {
		return
	}
	var req dto.ApplyScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	out, err := h.games.ApplyScores(c.Request.Context(), g.ID, number, req.ToResults())
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, roundResult(out))
}

// RoundRanking returns a round's guesses, best first.
// GET /v1/games/:game_id/rounds/:round/ranking
func (h *GameHandler) RoundRanking(c *gin.Context) {
	g, ok := h.authorize(c, accessMember)
	if !ok {
		return
	}
	number, ok := parseRound(c)
	if !ok {
		return
	}
	out, err := h.games.RoundResult(c.Request.Context(), g.ID, number)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, roundResult(out))
}

// Advance moves to the next round.
// POST /v1/games/:game_id/advance
func (h *GameHandler) Advance(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	g, err := h.games.AdvanceRound(c.Request.Context(), g.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, g)
}

// Leave removes the caller from the game. When too few players remain the
// game is aborted and its lobby ended.
// POST /v1/games/:game_id/leave
func (h *GameHandler) Leave(c *gin.Context) {
	id, ok := parseGameID(c)
	if !ok {
		return
	}
	g, err := h.games.RemovePlayer(c.Request.Context(), id, middleware.GetSubjectID(c))
	if err != nil {
		fail(c, err)
		return
	}
	aborted := g.Status == domain.GameAborted
	if aborted {
		h.endLobby(c, g.LobbyCode)
	}
	response.OK(c, dto.LeaveGameResponse{Game: g, Aborted: aborted})
}

// Finish concludes the game and ends its lobby.
// POST /v1/games/:game_id/finish
func (h *GameHandler) Finish(c *gin.Context) {
	g, ok := h.authorize(c, accessHost)
	if !ok {
		return
	}
	g, err := h.games.Finish(c.Request.Context(), g.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.endLobby(c, g.LobbyCode)
	winner, _ := g.Winner()
	response.OK(c, dto.StandingResponse{
		Status:  g.Status,
		Over:    true,
		Winner:  winner,
		Ranking: g.FinalRanking(),
	})
}

// Ranking returns the cumulative standing and, once finished, the winner.
// GET /v1/games/:game_id/ranking
func (h *GameHandler) Ranking(c *gin.Context) {
	g, ok := h.authorize(c, accessMember)
	if !ok {
		return
	}
	st, err := h.games.Standing(c.Request.Context(), g.ID)
	if err != nil {
		fail(c, err)
		return
	}
	response.OK(c, dto.StandingResponse{
		Status:  st.Status,
		Over:    st.Over,
		Winner:  st.Winner,
		Ranking: st.Ranking,
	})
}

func (h *GameHandler) roundParams(c *gin.Context) (uuid.UUID, int, bool) {
	id, ok := parseGameID(c)
	if !ok {
		return uuid.Nil, 0, false
	}
	number, ok := parseRound(c)
	if !ok {
		return uuid.Nil, 0, false
	}
	return id, number, true
}

// endLobby finishes the lobby behind a game that is over. A lobby the host
// already closed is left as it is.
func (h *GameHandler) endLobby(c *gin.Context, code string) {
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := h.lobbies.EndGame(ctx, code); err != nil && !domain.IsInvalidState(err) {
		_ = c.Error(err)
	}
}

func roundResult(out *usecase.RoundOutcome) dto.RoundResultResponse {
	return dto.RoundResultResponse{
		Round:       out.Round,
		Ranking:     out.Ranking,
		BestGuesser: out.BestGuesser,
	}
}
