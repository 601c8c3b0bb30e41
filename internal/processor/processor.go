// Package processor resolves battle-end events: collateral damage, member
// state, leveling, game counters and the user-facing battle update.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/party-realm/api/internal/catalog"
	"github.com/party-realm/api/internal/leveling"
	"github.com/party-realm/api/internal/models"
	"github.com/party-realm/api/internal/store"
)

// ErrInvalidEvent marks a battle-end event that fails validation
var ErrInvalidEvent = errors.New("invalid battle-end event")

// Tx is the transactional slice of the store the processor needs. One Tx
// covers one resolution unit; *store.BattleTx implements it.
type Tx interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
	ApplyCollateralDamage(ctx context.Context, userID string, excludeID int64) (int64, error)
	FindMember(ctx context.Context, id int64) (*models.PartyMember, error)
	UpdateMemberBattleState(ctx context.Context, m *models.PartyMember) error
	RecordGameResult(ctx context.Context, gameID int64, victory bool) error
	Commit() error
	Rollback() error
}

// BeginTxFunc opens a new resolution transaction
type BeginTxFunc func(ctx context.Context) (Tx, error)

// UpdatePublisher emits battle updates to the notification stream
type UpdatePublisher interface {
	PublishBattleUpdate(ctx context.Context, update models.BattleUpdate) error
}

// Processor consumes battle-end events and applies their outcome. A unit of
// work either commits every mutation and acknowledges the event, or rolls
// back and leaves the event pending for redelivery.
type Processor struct {
	begin     BeginTxFunc
	publisher UpdatePublisher
}

// New creates a processor over the given transaction opener and publisher
func New(begin BeginTxFunc, publisher UpdatePublisher) *Processor {
	return &Processor{begin: begin, publisher: publisher}
}

// resolution carries the state of one unit through its stages
type resolution struct {
	end       models.BattleEnd
	eventID   string
	duplicate bool
}

// HandleMessage processes one battles-end delivery. A nil return tells the
// broker to acknowledge; an error leaves the delivery pending.
func (p *Processor) HandleMessage(ctx context.Context, messageID string, payload []byte) error {
	res, err := p.validate(messageID, payload)
	if err != nil {
		log.Printf("[Processor] Rejecting entry %s: %v", messageID, err)
		return err
	}

	if err := p.resolve(ctx, res); err != nil {
		member := res.end.PartyMember
		log.Printf("[Processor] Failed to resolve battle for member %d (game %v, victory %t): %v",
			member.ID, gameIDString(res.end.GameID), res.end.IsVictory, err)
		return err
	}

	return p.emitResult(ctx, res)
}

// validate checks the payload decodes and carries a party member. Events that
// fail here are reported but never acknowledged.
func (p *Processor) validate(messageID string, payload []byte) (*resolution, error) {
	var end models.BattleEnd
	if err := json.Unmarshal(payload, &end); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if end.PartyMember == nil {
		return nil, fmt.Errorf("%w: party member is null", ErrInvalidEvent)
	}

	// The correlation id keys the dedup ledger; fall back to the stream
	// entry id for events published without one.
	eventID := end.ID
	if eventID == "" {
		eventID = messageID
	}
	return &resolution{end: end, eventID: eventID}, nil
}

// resolve runs the transactional stages: dedup ledger, collateral damage,
// member update with leveling, game counters
func (p *Processor) resolve(ctx context.Context, res *resolution) error {
	tx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fresh, err := tx.MarkProcessed(ctx, res.eventID)
	if err != nil {
		return err
	}
	if !fresh {
		// Redelivery of a committed unit: every mutation already
		// happened, only the notification may still be owed.
		log.Printf("[Processor] Event %s already processed, skipping mutations", res.eventID)
		res.duplicate = true
		return tx.Rollback()
	}

	if err := p.applyCollateral(ctx, tx, res); err != nil {
		return err
	}
	if err := p.updateMember(ctx, tx, res); err != nil {
		return err
	}
	if err := p.updateGame(ctx, tx, res); err != nil {
		return err
	}

	return tx.Commit()
}

// applyCollateral penalizes the rest of the losing member's party
func (p *Processor) applyCollateral(ctx context.Context, tx Tx, res *resolution) error {
	if res.end.IsVictory {
		return nil
	}
	member := res.end.PartyMember
	updated, err := tx.ApplyCollateralDamage(ctx, member.UserID, member.ID)
	if err != nil {
		return err
	}
	if updated == 0 {
		log.Printf("[Processor] No party members took collateral damage for user %s", member.UserID)
	} else {
		log.Printf("[Processor] Applied collateral damage to %d party members of user %s", updated, member.UserID)
	}
	return nil
}

// updateMember clears the fighting state, takes the health from the event and
// applies the leveling policy
func (p *Processor) updateMember(ctx context.Context, tx Tx, res *resolution) error {
	member, err := tx.FindMember(ctx, res.end.PartyMember.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("party member %d not found: %w", res.end.PartyMember.ID, err)
		}
		return err
	}

	member.Fighting = false
	member.Villain = nil
	member.Health = res.end.PartyMember.Health
	member.Level = leveling.NextLevel(member.Level, member.Health)

	return tx.UpdateMemberBattleState(ctx, member)
}

// updateGame bumps the win/loss counter when the event references a game
func (p *Processor) updateGame(ctx context.Context, tx Tx, res *resolution) error {
	if res.end.GameID == nil {
		return nil
	}
	err := tx.RecordGameResult(ctx, *res.end.GameID, res.end.IsVictory)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("game %d not found: %w", *res.end.GameID, err)
		}
		return err
	}
	return nil
}

// emitResult publishes the battle update. Runs after commit; a publish
// failure leaves the event pending, and the dedup ledger keeps the retry from
// mutating state again.
func (p *Processor) emitResult(ctx context.Context, res *resolution) error {
	member := res.end.PartyMember

	tag := "[LOST]"
	if res.end.IsVictory {
		tag = "[WON]"
	}
	update := models.BattleUpdate{
		User:    member.UserID,
		Message: fmt.Sprintf("%s %s: %s", tag, member.HeroName, catalog.Quote(member.HeroName)),
	}

	if err := p.publisher.PublishBattleUpdate(ctx, update); err != nil {
		return fmt.Errorf("failed to publish battle update: %w", err)
	}

	log.Printf("[Processor] Processed battle end: %s vs %s (victory=%t, duplicate=%t)",
		member.HeroName, villainString(member.Villain), res.end.IsVictory, res.duplicate)
	return nil
}

func villainString(villain *string) string {
	if villain == nil {
		return "unknown"
	}
	return *villain
}

func gameIDString(id *int64) string {
	if id == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *id)
}
