package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
)

// resultRecorder receives per-player results when a game finishes.
type resultRecorder interface {
	RecordGameResult(ctx context.Context, subjectID string, score int, won bool, accuracy float64) error
}

// GameService drives games once a lobby has started. Mutations of one game
// are serialized by the game's lock.
type GameService struct {
	repo    ports.GameRepository
	scorer  ports.GuessScorer
	results resultRecorder
	locks   *keyedMutex
	now     func() time.Time
	log     *slog.Logger
}

// NewGameService builds the engine. scorer and results may be nil.
func NewGameService(repo ports.GameRepository, scorer ports.GuessScorer, results resultRecorder, log *slog.Logger) *GameService {
	return &GameService{
		repo:    repo,
		scorer:  scorer,
		results: results,
		locks:   newKeyedMutex(),
		now:     time.Now,
		log:     log,
	}
}

// RoundOutcome summarises a round for callers.
type RoundOutcome struct {
	Round       *domain.Round
	Ranking     []domain.Guess
	BestGuesser string
}

// FinalStanding summarises a game for callers.
type FinalStanding struct {
	Ranking []domain.PlayerScore
	Winner  string
	Over    bool
	Status  domain.GameStatus
}

// StartFromLobby builds and stores a game for a lobby that has just started.
func (s *GameService) StartFromLobby(ctx context.Context, lobby *domain.Lobby) (*domain.Game, error) {
	g := domain.NewGameFromLobby(lobby, s.now())
	if err := s.repo.CreateGame(ctx, g); err != nil {
		return nil, domain.Unavailable(err)
	}
	return g, nil
}

// Discard deletes a game that never went into play, such as one whose lobby
// could not be saved as started.
func (s *GameService) Discard(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteGame(ctx, id); err != nil {
		return domain.Unavailable(err)
	}
	return nil
}

// Get returns a game snapshot.
func (s *GameService) Get(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	g, err := s.repo.GetGame(ctx, id)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	return g, nil
}

// BeginRound opens the current round with the next prompter in rotation.
func (s *GameService) BeginRound(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	var round *domain.Round
	_, err := s.withGame(ctx, id, func(g *domain.Game) error {
		r, err := g.BeginRound(s.now())
		if err != nil {
			return err
		}
		round = r
		s.log.Info("round started", "game_id", id, "round", r.Number, "prompter", r.PrompterID)
		return nil
	})
	return round, err
}

// SubmitPrompt records the prompter's text for a round.
func (s *GameService) SubmitPrompt(ctx context.Context, id uuid.UUID, number int, playerID, prompt string) (*domain.Round, error) {
	return s.withRound(ctx, id, number, func(r *domain.Round) error {
		return r.SubmitPrompt(playerID, prompt, s.now())
	})
}

// AttachImage stores the generated image for a round and opens guessing.
func (s *GameService) AttachImage(ctx context.Context, id uuid.UUID, number int, imageRef string) (*domain.Round, error) {
	return s.withRound(ctx, id, number, func(r *domain.Round) error {
		return r.AttachImage(imageRef, s.now())
	})
}

// SubmitGuess records a member's guess. A second guess by the same player is
// rejected with domain.ErrAlreadyExists.
func (s *GameService) SubmitGuess(ctx context.Context, id uuid.UUID, number int, playerID, text string) (*domain.Round, error) {
	var round *domain.Round
	_, err := s.withGame(ctx, id, func(g *domain.Game) error {
		if err := g.RecordGuess(number, playerID, text, s.now()); err != nil {
			return err
		}
		r, _ := g.Round(number)
		round = r
		if r.GuessComplete(len(g.Members)) {
			s.log.Info("all guesses received", "game_id", id, "round", number)
		}
		return nil
	})
	return round, err
}

// CloseGuessing stops accepting guesses for a round.
func (s *GameService) CloseGuessing(ctx context.Context, id uuid.UUID, number int) (*domain.Round, error) {
	return s.withRound(ctx, id, number, func(r *domain.Round) error {
		return r.CloseGuessing(s.now())
	})
}

// EvaluateRound scores every guess with the configured scorer and completes
// the round.
func (s *GameService) EvaluateRound(ctx context.Context, id uuid.UUID, number int) (*RoundOutcome, error) {
	if s.scorer == nil {
		return nil, &domain.DomainError{Base: domain.ErrUnavailable, Message: "no guess scorer configured"}
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := g.Round(number)
	if err != nil {
		return nil, err
	}

	// Scoring may be slow, so it runs outside the game lock on a snapshot.
	// ScoreRound rejects the results if the round moved on meanwhile.
	results := make([]domain.GuessResult, 0, len(r.Guesses))
	for _, guess := range r.Guesses {
		elapsed := time.Duration(guess.ResponseTimeMs) * time.Millisecond
		res, err := s.scorer.Score(ctx, ports.ScoreInput{Prompt: r.Prompt, Guess: guess.Text, Elapsed: elapsed})
		if err != nil {
			return nil, domain.Unavailable(err)
		}
		results = append(results, domain.GuessResult{PlayerID: guess.PlayerID, Score: res.Score, Accuracy: res.Accuracy})
	}
	return s.ApplyScores(ctx, id, number, results)
}

// ApplyScores accepts externally computed results for a round's guesses and
// completes the round.
func (s *GameService) ApplyScores(ctx context.Context, id uuid.UUID, number int, results []domain.GuessResult) (*RoundOutcome, error) {
	var out *RoundOutcome
	_, err := s.withGame(ctx, id, func(g *domain.Game) error {
		if err := g.ScoreRound(number, results, s.now()); err != nil {
			return err
		}
		r, _ := g.Round(number)
		out = outcome(r)
		s.log.Info("round scored", "game_id", id, "round", number, "best_guesser", out.BestGuesser)
		return nil
	})
	return out, err
}

// AdvanceRound moves the game to its next round number.
func (s *GameService) AdvanceRound(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	return s.withGame(ctx, id, func(g *domain.Game) error {
		if err := g.AdvanceRound(); err != nil {
			return err
		}
		s.log.Info("round advanced", "game_id", id, "current_round", g.CurrentRound, "over", g.IsOver())
		return nil
	})
}

// UpdateScore adds delta to a player's cumulative score.
func (s *GameService) UpdateScore(ctx context.Context, id uuid.UUID, playerID string, delta int) (*domain.Game, error) {
	return s.withGame(ctx, id, func(g *domain.Game) error {
		if g.Status != domain.GameInProgress {
			return domain.NewInvalidStateError("game is " + string(g.Status))
		}
		g.UpdateScore(playerID, delta)
		return nil
	})
}

// RemovePlayer drops a member mid-game. See domain.Game.RemovePlayer for how
// an in-flight round and a shrinking table are handled.
func (s *GameService) RemovePlayer(ctx context.Context, id uuid.UUID, playerID string) (*domain.Game, error) {
	return s.withGame(ctx, id, func(g *domain.Game) error {
		roundAborted, err := g.RemovePlayer(playerID, s.now())
		if err != nil {
			return err
		}
		s.log.Info("player left game", "game_id", id, "player_id", playerID,
			"round_aborted", roundAborted, "status", g.Status)
		return nil
	})
}

// Finish concludes the game and records each player's result.
func (s *GameService) Finish(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	g, err := s.withGame(ctx, id, func(g *domain.Game) error {
		return g.Finish(s.now())
	})
	if err != nil {
		return nil, err
	}
	winner, _ := g.Winner()
	s.log.Info("game finished", "game_id", id, "winner", winner)
	s.recordResults(ctx, g, winner)
	return g, nil
}

func (s *GameService) recordResults(ctx context.Context, g *domain.Game, winner string) {
	if s.results == nil {
		return
	}
	for _, ps := range g.Scores {
		err := s.results.RecordGameResult(ctx, ps.PlayerID, ps.Score, ps.PlayerID == winner, g.PlayerAccuracy(ps.PlayerID))
		if err != nil {
			s.log.Warn("failed to record game result", "game_id", g.ID, "player_id", ps.PlayerID, "error", err)
		}
	}
}

// RoundResult returns a round with its ranking and best guesser.
func (s *GameService) RoundResult(ctx context.Context, id uuid.UUID, number int) (*RoundOutcome, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := g.Round(number)
	if err != nil {
		return nil, err
	}
	return outcome(r), nil
}

// Standing returns the ranking, the winner once finished, and whether every
// round has been played.
func (s *GameService) Standing(ctx context.Context, id uuid.UUID) (*FinalStanding, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	winner, _ := g.Winner()
	return &FinalStanding{
		Ranking: g.FinalRanking(),
		Winner:  winner,
		Over:    g.IsOver(),
		Status:  g.Status,
	}, nil
}

func outcome(r *domain.Round) *RoundOutcome {
	best, _ := r.BestGuesser()
	return &RoundOutcome{Round: r, Ranking: r.Ranking(), BestGuesser: best}
}

func (s *GameService) withRound(ctx context.Context, id uuid.UUID, number int, fn func(*domain.Round) error) (*domain.Round, error) {
	var round *domain.Round
	_, err := s.withGame(ctx, id, func(g *domain.Game) error {
		if g.Status != domain.GameInProgress {
			return domain.NewInvalidStateError("game is " + string(g.Status))
		}
		r, err := g.Round(number)
		if err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		round = r
		return nil
	})
	return round, err
}

// withGame loads a game under its lock, mutates a copy and saves it.
func (s *GameService) withGame(ctx context.Context, id uuid.UUID, fn func(*domain.Game) error) (*domain.Game, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	stored, err := s.repo.GetGame(ctx, id)
	if err != nil {
		return nil, domain.Unavailable(err)
	}
	g := stored.Clone()
	if err := fn(g); err != nil {
		return nil, err
	}
	if err := s.repo.SaveGame(ctx, g); err != nil {
		return nil, domain.Unavailable(err)
	}
	return g, nil
}
