// Package store holds the SQL access layer for party members, games and the
// processed-event ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/party-realm/api/internal/database"
	"github.com/party-realm/api/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const memberColumns = "id, user_id, hero_id, hero_name, villain, fighting, health, weapon, armour, level"

// Party provides access to the party_members table
type Party struct {
	db *database.DB
}

// NewParty creates a party member store
func NewParty(db *database.DB) *Party {
	return &Party{db: db}
}

func scanMember(row interface{ Scan(...any) error }) (*models.PartyMember, error) {
	var m models.PartyMember
	var heroID sql.NullInt64
	var villain, weapon, armour sql.NullString
	err := row.Scan(&m.ID, &m.UserID, &heroID, &m.HeroName, &villain, &m.Fighting,
		&m.Health, &weapon, &armour, &m.Level)
	if err != nil {
		return nil, err
	}
	if heroID.Valid {
		m.HeroID = heroID.Int64
	}
	if villain.Valid {
		m.Villain = &villain.String
	}
	m.Weapon = weapon.String
	m.Armour = armour.String
	return &m, nil
}

// FindMember returns a party member by id, or ErrNotFound
func (s *Party) FindMember(ctx context.Context, id int64) (*models.PartyMember, error) {
	query := `SELECT ` + memberColumns + ` FROM party_members WHERE id = $1`
	m, err := scanMember(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find party member %d: %w", id, err)
	}
	return m, nil
}

// CreateMember inserts a new party member and returns it with its id set
func (s *Party) CreateMember(ctx context.Context, m *models.PartyMember) (*models.PartyMember, error) {
	query := `
		INSERT INTO party_members (user_id, hero_id, hero_name, villain, fighting, health, weapon, armour, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, m.UserID, m.HeroID, m.HeroName, m.Villain,
		m.Fighting, m.Health, m.Weapon, m.Armour, m.Level).Scan(&m.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create party member: %w", err)
	}
	return m, nil
}

// UpdateMember persists the full mutable state of a party member
func (s *Party) UpdateMember(ctx context.Context, m *models.PartyMember) error {
	query := `
		UPDATE party_members
		SET villain = $1, fighting = $2, health = $3, weapon = $4, armour = $5, level = $6
		WHERE id = $7
	`
	result, err := s.db.ExecContext(ctx, query, m.Villain, m.Fighting, m.Health,
		m.Weapon, m.Armour, m.Level, m.ID)
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

// ListMembers returns one user's party members ordered by hero id
func (s *Party) ListMembers(ctx context.Context, userID string) ([]models.PartyMember, error) {
	query := `SELECT ` + memberColumns + ` FROM party_members WHERE user_id = $1 ORDER BY hero_id`
	return s.listMembers(ctx, query, userID)
}

// ListAllMembers returns every party member ordered by hero id
func (s *Party) ListAllMembers(ctx context.Context) ([]models.PartyMember, error) {
	query := `SELECT ` + memberColumns + ` FROM party_members ORDER BY hero_id`
	return s.listMembers(ctx, query)
}

func (s *Party) listMembers(ctx context.Context, query string, args ...any) ([]models.PartyMember, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list party members: %w", err)
	}
	defer rows.Close()

	members := []models.PartyMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan party member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list party members: %w", err)
	}
	return members, nil
}

// DeleteMembersByUser removes all of a user's party members and reports how
// many were deleted
func (s *Party) DeleteMembersByUser(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM party_members WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete party members for user %s: %w", userID, err)
	}
	return result.RowsAffected()
}

// HealParty heals every wounded member of a user's party by 20, capped to
// members below 50 health
func (s *Party) HealParty(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE party_members SET health = health + 20 WHERE user_id = $1 AND health < 50`
	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to heal party for user %s: %w", userID, err)
	}
	return result.RowsAffected()
}

// HealMember heals a single member by 10
func (s *Party) HealMember(ctx context.Context, id int64) (int64, error) {
	query := `UPDATE party_members SET health = health + 10 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to heal party member %d: %w", id, err)
	}
	return result.RowsAffected()
}
