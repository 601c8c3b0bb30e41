package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/party-realm/api/internal/database"
	"github.com/party-realm/api/internal/models"
)

const (
	// collateralDamage is the health penalty applied to bystanders on a loss
	collateralDamage = 10
	// collateralFloor protects members at or below this health from collateral
	collateralFloor = 20
)

// Battle opens transactional units of work for battle resolution. Every
// mutation of one battle-end event runs inside a single BattleTx so a failure
// at any stage rolls the whole unit back.
type Battle struct {
	db *database.DB
}

// NewBattle creates a battle store
func NewBattle(db *database.DB) *Battle {
	return &Battle{db: db}
}

// Begin opens a resolution transaction
func (s *Battle) Begin(ctx context.Context) (*BattleTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin battle transaction: %w", err)
	}
	return &BattleTx{tx: tx}, nil
}

// BattleTx is one in-flight battle-resolution transaction
type BattleTx struct {
	tx *sql.Tx
}

// MarkProcessed records an event id in the dedup ledger. It returns false
// when the id was already present, i.e. the event is a redelivery of an
// already-committed unit.
func (t *BattleTx) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	result, err := t.tx.ExecContext(ctx,
		`INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT (event_id) DO NOTHING`,
		eventID)
	if err != nil {
		return false, fmt.Errorf("failed to record processed event %s: %w", eventID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record processed event %s: %w", eventID, err)
	}
	return rows > 0, nil
}

// ApplyCollateralDamage decrements health for every other member of the same
// user whose health is above the protection floor. Returns the number of
// members hit; zero is not an error.
func (t *BattleTx) ApplyCollateralDamage(ctx context.Context, userID string, excludeID int64) (int64, error) {
	query := `
		UPDATE party_members
		SET health = health - $1
		WHERE user_id = $2 AND id <> $3 AND health > $4
	`
	result, err := t.tx.ExecContext(ctx, query, collateralDamage, userID, excludeID, collateralFloor)
	if err != nil {
		return 0, fmt.Errorf("failed to apply collateral damage for user %s: %w", userID, err)
	}
	return result.RowsAffected()
}

// FindMember loads a party member inside the transaction, or ErrNotFound
func (t *BattleTx) FindMember(ctx context.Context, id int64) (*models.PartyMember, error) {
	query := `SELECT ` + memberColumns + ` FROM party_members WHERE id = $1 FOR UPDATE`
	m, err := scanMember(t.tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find party member %d: %w", id, err)
	}
	return m, nil
}

// UpdateMemberBattleState persists the post-battle villain, fighting, health
// and level of a member
func (t *BattleTx) UpdateMemberBattleState(ctx context.Context, m *models.PartyMember) error {
	query := `
		UPDATE party_members
		SET villain = $1, fighting = $2, health = $3, level = $4
		WHERE id = $5
	`
	result, err := t.tx.ExecContext(ctx, query, m.Villain, m.Fighting, m.Health, m.Level, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update party member %d: %w", m.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update party member %d: %w", m.ID, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordGameResult bumps the won or lost counter of a game, or ErrNotFound
// when the game does not exist
func (t *BattleTx) RecordGameResult(ctx context.Context, gameID int64, victory bool) error {
	query := `UPDATE games SET lost = lost + 1 WHERE id = $1`
	if victory {
		query = `UPDATE games SET won = won + 1 WHERE id = $1`
	}
	result, err := t.tx.ExecContext(ctx, query, gameID)
	if err != nil {
		return fmt.Errorf("failed to record result for game %d: %w", gameID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record result for game %d: %w", gameID, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Commit commits the unit of work
func (t *BattleTx) Commit() error {
	return t.tx.Commit()
}

// Rollback abandons the unit of work. Safe to call after Commit.
func (t *BattleTx) Rollback() error {
	return t.tx.Rollback()
}
