package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/party-realm/api/internal/database"
	"github.com/party-realm/api/internal/models"
)

const gameColumns = "id, user_id, won, lost, over, created"

// Game provides access to the games table
type Game struct {
	db *database.DB
}

// NewGame creates a game store
func NewGame(db *database.DB) *Game {
	return &Game{db: db}
}

func scanGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	var g models.Game
	err := row.Scan(&g.ID, &g.UserID, &g.Won, &g.Lost, &g.Over, &g.Created)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGame returns a game by id, or ErrNotFound
func (s *Game) FindGame(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	g, err := scanGame(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find game %d: %w", id, err)
	}
	return g, nil
}

// CreateGame inserts a new game for the given user with zeroed counters
func (s *Game) CreateGame(ctx context.Context, userID string) (*models.Game, error) {
	query := `
		INSERT INTO games (user_id, won, lost, over)
		VALUES ($1, 0, 0, FALSE)
		RETURNING ` + gameColumns
	g, err := scanGame(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return g, nil
}

// ListGames returns a user's games ordered by creation time. When openOnly is
// true, finished games are filtered out.
func (s *Game) ListGames(ctx context.Context, userID string, openOnly bool) ([]models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE user_id = $1 ORDER BY created`
	args := []any{userID}
	if openOnly {
		query = `SELECT ` + gameColumns + ` FROM games WHERE user_id = $1 AND over = FALSE ORDER BY created`
	}
	return s.listGames(ctx, query, args...)
}

// ListAllGames returns every game ordered by owner
func (s *Game) ListAllGames(ctx context.Context) ([]models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY user_id`
	return s.listGames(ctx, query)
}

func (s *Game) listGames(ctx context.Context, query string, args ...any) ([]models.Game, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []models.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// MarkOver flags a single game as finished
func (s *Game) MarkOver(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE games SET over = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark game %d over: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark game %d over: %w", id, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOverForUser flags all of a user's games as finished and reports how
// many were updated
func (s *Game) MarkOverForUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE games SET over = TRUE WHERE user_id = $1 AND over = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark games over for user %s: %w", userID, err)
	}
	return result.RowsAffected()
}
