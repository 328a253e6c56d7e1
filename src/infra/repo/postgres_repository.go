package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gptuessr/src/core/domain"
	"gptuessr/src/core/ports"
	"gptuessr/src/infra/db"
)

var _ ports.Store = (*PostgresRepository)(nil)

// PostgresRepository implements ports.Store using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresRepository constructs a repository backed by Postgres.
func NewPostgresRepository(pg *db.Postgres, log *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pool: pg.Pool,
		log:  log,
	}
}

func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// Users

const userColumns = `
	id, subject_id, username, email, first_name, last_name, display_name, image_url,
	online, session_id, last_login_at, last_active_at,
	games_played, games_won, games_lost, total_score, best_score, guess_accuracy,
	friends, blocked, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.SubjectID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.DisplayName, &u.ImageURL,
		&u.Online, &u.SessionID, &u.LastLoginAt, &u.LastActiveAt,
		&u.Stats.GamesPlayed, &u.Stats.GamesWon, &u.Stats.GamesLost, &u.Stats.TotalScore, &u.Stats.BestScore, &u.Stats.GuessAccuracy,
		&u.Friends, &u.Blocked, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func userArgs(u *domain.User) []any {
	return []any{
		u.ID, u.SubjectID, u.Username, u.Email, u.FirstName, u.LastName, u.DisplayName, u.ImageURL,
		u.Online, u.SessionID, u.LastLoginAt, u.LastActiveAt,
		u.Stats.GamesPlayed, u.Stats.GamesWon, u.Stats.GamesLost, u.Stats.TotalScore, u.Stats.BestScore, u.Stats.GuessAccuracy,
		nonNil(u.Friends), nonNil(u.Blocked), u.CreatedAt, u.UpdatedAt,
	}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *domain.User) error {
	q := `INSERT INTO users (` + userColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`
	if _, err := r.pool.Exec(ctx, q, userArgs(u)...); err != nil {
		if isUniqueViolation(err) {
			return domain.NewAlreadyExistsError("user")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetUserBySubject(ctx context.Context, subjectID string) (*domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE subject_id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, q, subjectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SaveUser(ctx context.Context, u *domain.User) error {
	const q = `
		UPDATE users SET
			username = $3, email = $4, first_name = $5, last_name = $6, display_name = $7, image_url = $8,
			online = $9, session_id = $10, last_login_at = $11, last_active_at = $12,
			games_played = $13, games_won = $14, games_lost = $15, total_score = $16, best_score = $17,
			guess_accuracy = $18, friends = $19, blocked = $20, updated_at = $22
		WHERE id = $1 AND subject_id = $2 AND created_at = $21
	`
	tag, err := r.pool.Exec(ctx, q, userArgs(u)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAlreadyExistsError("username")
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("user")
	}
	return nil
}

// Lobbies

const lobbyColumns = `
	id, code, host_id, members, max_players, rounds, time_limit, settings,
	status, game_id, created_at, started_at, ended_at`

func scanLobby(row pgx.Row) (*domain.Lobby, error) {
	var l domain.Lobby
	err := row.Scan(
		&l.ID, &l.Code, &l.HostID, &l.Members, &l.MaxPlayers, &l.Rounds, &l.TimeLimit, &l.Settings,
		&l.Status, &l.GameID, &l.CreatedAt, &l.StartedAt, &l.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresRepository) queryLobbies(ctx context.Context, q string, args ...any) ([]*domain.Lobby, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Lobby
	for rows.Next() {
		l, err := scanLobby(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CreateLobby(ctx context.Context, l *domain.Lobby) error {
	q := `INSERT INTO lobbies (` + lobbyColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, q,
		l.ID, l.Code, l.HostID, l.Members, l.MaxPlayers, l.Rounds, l.TimeLimit, nonNil(l.Settings),
		l.Status, l.GameID, l.CreatedAt, l.StartedAt, l.EndedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAlreadyExistsError("lobby code")
		}
		return fmt.Errorf("insert lobby: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetLobbyByCode(ctx context.Context, code string) (*domain.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE code = $1`
	l, err := scanLobby(r.pool.QueryRow(ctx, q, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("lobby")
		}
		return nil, fmt.Errorf("get lobby: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) SaveLobby(ctx context.Context, l *domain.Lobby) error {
	const q = `
		UPDATE lobbies SET
			members = $2, max_players = $3, rounds = $4, time_limit = $5, settings = $6,
			status = $7, game_id = $8, started_at = $9, ended_at = $10
		WHERE code = $1
	`
	tag, err := r.pool.Exec(ctx, q,
		l.Code, l.Members, l.MaxPlayers, l.Rounds, l.TimeLimit, nonNil(l.Settings),
		l.Status, l.GameID, l.StartedAt, l.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("update lobby: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("lobby")
	}
	return nil
}

func (r *PostgresRepository) ListLobbiesByHost(ctx context.Context, hostID string) ([]*domain.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE host_id = $1 ORDER BY created_at DESC`
	ls, err := r.queryLobbies(ctx, q, hostID)
	if err != nil {
		return nil, fmt.Errorf("list lobbies by host: %w", err)
	}
	return ls, nil
}

func (r *PostgresRepository) ListLobbiesByMember(ctx context.Context, playerID string) ([]*domain.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE members @> ARRAY[$1]::text[] ORDER BY created_at DESC`
	ls, err := r.queryLobbies(ctx, q, playerID)
	if err != nil {
		return nil, fmt.Errorf("list lobbies by member: %w", err)
	}
	return ls, nil
}

func (r *PostgresRepository) LobbyCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lobbies WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check lobby code: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) CountLobbiesByStatus(ctx context.Context, statuses ...domain.LobbyStatus) (int, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lobbies WHERE status = ANY($1)`, names).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count lobbies: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListStaleLobbyCodes(ctx context.Context, status domain.LobbyStatus, before time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT code FROM lobbies WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		status, before,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale lobbies: %w", err)
	}
	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list stale lobbies: %w", err)
	}
	return codes, nil
}

// Games are stored as a JSONB document alongside a few indexed columns.

func (r *PostgresRepository) CreateGame(ctx context.Context, g *domain.Game) error {
	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO games (id, lobby_id, status, state) VALUES ($1, $2, $3, $4)`,
		g.ID, g.LobbyID, g.Status, state,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewAlreadyExistsError("game")
		}
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, id uuid.UUID) (*domain.Game, error) {
	var state []byte
	if err := r.pool.QueryRow(ctx, `SELECT state FROM games WHERE id = $1`, id).Scan(&state); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("game")
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	var g domain.Game
	if err := json.Unmarshal(state, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (r *PostgresRepository) SaveGame(ctx context.Context, g *domain.Game) error {
	state, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE games SET status = $2, state = $3, updated_at = NOW() WHERE id = $1`,
		g.ID, g.Status, state,
	)
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("game")
	}
	return nil
}

func (r *PostgresRepository) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM games WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
