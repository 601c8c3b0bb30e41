package processor_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/party-realm/api/internal/models"
	"github.com/party-realm/api/internal/processor"
	"github.com/party-realm/api/internal/store"
)

// fakeDB holds committed state shared across fake transactions
type fakeDB struct {
	members   map[int64]models.PartyMember
	games     map[int64]models.Game
	processed map[string]bool

	beginErr      error
	collateralErr error
	gameErr       error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		members:   make(map[int64]models.PartyMember),
		games:     make(map[int64]models.Game),
		processed: make(map[string]bool),
	}
}

func (db *fakeDB) begin(ctx context.Context) (processor.Tx, error) {
	if db.beginErr != nil {
		return nil, db.beginErr
	}
	tx := &fakeTx{db: db,
		members:   make(map[int64]models.PartyMember, len(db.members)),
		games:     make(map[int64]models.Game, len(db.games)),
		processed: make(map[string]bool, len(db.processed)),
	}
	for id, m := range db.members {
		tx.members[id] = m
	}
	for id, g := range db.games {
		tx.games[id] = g
	}
	for id := range db.processed {
		tx.processed[id] = true
	}
	return tx, nil
}

// fakeTx mutates copies; Commit publishes them back to the fakeDB
type fakeTx struct {
	db        *fakeDB
	members   map[int64]models.PartyMember
	games     map[int64]models.Game
	processed map[string]bool
	ops       []string
	committed bool
}

func (t *fakeTx) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	t.ops = append(t.ops, "ledger")
	if t.processed[eventID] {
		return false, nil
	}
	t.processed[eventID] = true
	return true, nil
}

func (t *fakeTx) ApplyCollateralDamage(ctx context.Context, userID string, excludeID int64) (int64, error) {
	t.ops = append(t.ops, "collateral")
	if t.db.collateralErr != nil {
		return 0, t.db.collateralErr
	}
	var hit int64
	for id, m := range t.members {
		if m.UserID == userID && m.ID != excludeID && m.Health > 20 {
			m.Health -= 10
			t.members[id] = m
			hit++
		}
	}
	return hit, nil
}

func (t *fakeTx) FindMember(ctx context.Context, id int64) (*models.PartyMember, error) {
	t.ops = append(t.ops, "member")
	m, ok := t.members[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := m
	return &found, nil
}

func (t *fakeTx) UpdateMemberBattleState(ctx context.Context, m *models.PartyMember) error {
	if _, ok := t.members[m.ID]; !ok {
		return store.ErrNotFound
	}
	t.members[m.ID] = *m
	return nil
}

func (t *fakeTx) RecordGameResult(ctx context.Context, gameID int64, victory bool) error {
	t.ops = append(t.ops, "game")
	if t.db.gameErr != nil {
		return t.db.gameErr
	}
	g, ok := t.games[gameID]
	if !ok {
		return store.ErrNotFound
	}
	if victory {
		g.Won++
	} else {
		g.Lost++
	}
	t.games[gameID] = g
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	t.db.members = t.members
	t.db.games = t.games
	t.db.processed = t.processed
	return nil
}

func (t *fakeTx) Rollback() error {
	return nil
}

type fakePublisher struct {
	updates []models.BattleUpdate
	err     error
}

func (p *fakePublisher) PublishBattleUpdate(ctx context.Context, update models.BattleUpdate) error {
	if p.err != nil {
		return p.err
	}
	p.updates = append(p.updates, update)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

func endEvent(victory bool, health int64) models.BattleEnd {
	return models.BattleEnd{
		ID: "evt-1",
		PartyMember: &models.BattleEndMember{
			ID:       1,
			UserID:   "alice",
			HeroName: "Gale",
			Villain:  strPtr("Mind Flayer"),
			Health:   health,
		},
		GameID:    int64Ptr(7),
		IsVictory: victory,
	}
}

func seed(db *fakeDB) {
	db.members[1] = models.PartyMember{
		ID: 1, UserID: "alice", HeroName: "Gale",
		Villain: strPtr("Mind Flayer"), Fighting: true, Health: 95, Level: 1,
	}
	db.members[2] = models.PartyMember{ID: 2, UserID: "alice", HeroName: "Karlach", Health: 80, Level: 2}
	db.members[3] = models.PartyMember{ID: 3, UserID: "alice", HeroName: "Wyll", Health: 20, Level: 1}
	db.members[4] = models.PartyMember{ID: 4, UserID: "bob", HeroName: "Astarion", Health: 100, Level: 1}
	db.games[7] = models.Game{ID: 7, UserID: "alice", Won: 2, Lost: 1}
}

func handle(t *testing.T, p *processor.Processor, event models.BattleEnd) error {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return p.HandleMessage(context.Background(), "1-0", payload)
}

func TestVictoryUpdatesMemberAndGame(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	if err := handle(t, p, endEvent(true, 120)); err != nil {
		t.Fatalf("HandleMessage returned %v, want nil", err)
	}

	m := db.members[1]
	if m.Fighting {
		t.Error("member still fighting after resolution")
	}
	if m.Villain != nil {
		t.Errorf("villain = %q, want cleared", *m.Villain)
	}
	if m.Health != 120 {
		t.Errorf("health = %d, want 120 from the event", m.Health)
	}
	if m.Level != 2 {
		t.Errorf("level = %d, want 2 (health 120 clears only the 100 threshold)", m.Level)
	}
	if g := db.games[7]; g.Won != 3 || g.Lost != 1 {
		t.Errorf("game counters = %d/%d, want 3/1", g.Won, g.Lost)
	}
	// Victory must not touch bystanders.
	if db.members[2].Health != 80 {
		t.Errorf("bystander health = %d, want 80", db.members[2].Health)
	}
	if len(pub.updates) != 1 {
		t.Fatalf("published %d updates, want 1", len(pub.updates))
	}
	update := pub.updates[0]
	if update.User != "alice" {
		t.Errorf("update user = %q, want alice", update.User)
	}
	if !strings.HasPrefix(update.Message, "[WON] Gale: ") {
		t.Errorf("update message = %q, want [WON] Gale prefix", update.Message)
	}
}

func TestDefeatAppliesCollateralDamage(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	if err := handle(t, p, endEvent(false, 30)); err != nil {
		t.Fatalf("HandleMessage returned %v, want nil", err)
	}

	// Karlach (health 80 > 20, same user) loses 10; Wyll is at the floor
	// and bob's member belongs to someone else.
	if got := db.members[2].Health; got != 70 {
		t.Errorf("wounded bystander health = %d, want 70", got)
	}
	if got := db.members[3].Health; got != 20 {
		t.Errorf("protected bystander health = %d, want 20", got)
	}
	if got := db.members[4].Health; got != 100 {
		t.Errorf("other user's member health = %d, want 100", got)
	}
	// Acting member's health comes solely from the event payload.
	if got := db.members[1].Health; got != 30 {
		t.Errorf("acting member health = %d, want 30", got)
	}
	if g := db.games[7]; g.Won != 2 || g.Lost != 2 {
		t.Errorf("game counters = %d/%d, want 2/2", g.Won, g.Lost)
	}
	if len(pub.updates) != 1 || !strings.HasPrefix(pub.updates[0].Message, "[LOST] Gale: ") {
		t.Errorf("updates = %v, want a single [LOST] Gale message", pub.updates)
	}
}

func TestNilPartyMemberRejected(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	err := handle(t, p, models.BattleEnd{ID: "evt-nil", GameID: int64Ptr(7), IsVictory: true})
	if !errors.Is(err, processor.ErrInvalidEvent) {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}
	if len(pub.updates) != 0 {
		t.Error("update published for an invalid event")
	}
	if g := db.games[7]; g.Won != 2 {
		t.Error("game mutated by an invalid event")
	}
}

func TestMalformedPayloadRejected(t *testing.T) {
	db := newFakeDB()
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	err := p.HandleMessage(context.Background(), "1-0", []byte("{not json"))
	if !errors.Is(err, processor.ErrInvalidEvent) {
		t.Fatalf("err = %v, want ErrInvalidEvent", err)
	}
}

func TestMissingMemberFailsUnit(t *testing.T) {
	db := newFakeDB()
	seed(db)
	delete(db.members, 1)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	if err := handle(t, p, endEvent(true, 100)); err == nil {
		t.Fatal("HandleMessage returned nil, want failure for missing member")
	}
	if len(pub.updates) != 0 {
		t.Error("update published despite failed unit")
	}
	if g := db.games[7]; g.Won != 2 {
		t.Error("game counter moved despite failed unit")
	}
	if db.processed["evt-1"] {
		t.Error("failed unit left a ledger entry behind")
	}
}

func TestMissingGameRollsBackMemberUpdate(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	event := endEvent(true, 100)
	event.GameID = int64Ptr(999)
	if err := handle(t, p, event); err == nil {
		t.Fatal("HandleMessage returned nil, want failure for missing game")
	}

	// The whole unit rolls back: the member keeps its pre-event state so
	// redelivery can re-run cleanly.
	m := db.members[1]
	if !m.Fighting || m.Health != 95 {
		t.Errorf("member state committed despite failed unit: fighting=%t health=%d", m.Fighting, m.Health)
	}
	if len(pub.updates) != 0 {
		t.Error("update published despite failed unit")
	}
}

func TestNoGameIDSkipsGameStage(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	event := endEvent(true, 100)
	event.GameID = nil
	if err := handle(t, p, event); err != nil {
		t.Fatalf("HandleMessage returned %v, want nil", err)
	}
	if g := db.games[7]; g.Won != 2 || g.Lost != 1 {
		t.Errorf("game counters = %d/%d, want untouched 2/1", g.Won, g.Lost)
	}
	if len(pub.updates) != 1 {
		t.Errorf("published %d updates, want 1", len(pub.updates))
	}
}

func TestRedeliveryIsIdempotent(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	event := endEvent(false, 40)
	if err := handle(t, p, event); err != nil {
		t.Fatalf("first delivery returned %v", err)
	}
	memberAfterFirst := db.members[1]
	bystanderAfterFirst := db.members[2]
	gameAfterFirst := db.games[7]

	// Simulate redelivery after a lost acknowledgment.
	if err := handle(t, p, event); err != nil {
		t.Fatalf("redelivery returned %v, want nil ack", err)
	}

	if db.members[1] != memberAfterFirst {
		t.Errorf("member changed on redelivery: %+v vs %+v", db.members[1], memberAfterFirst)
	}
	if db.members[2] != bystanderAfterFirst {
		t.Errorf("collateral reapplied on redelivery: %+v", db.members[2])
	}
	if db.games[7] != gameAfterFirst {
		t.Errorf("game counters double-counted on redelivery: %+v vs %+v", db.games[7], gameAfterFirst)
	}
	// The notification may be re-emitted; the mutations may not.
	if len(pub.updates) != 2 {
		t.Errorf("published %d updates across two deliveries, want 2", len(pub.updates))
	}
}

func TestPublishFailureLeavesEventPending(t *testing.T) {
	db := newFakeDB()
	seed(db)
	pub := &fakePublisher{err: errors.New("stream down")}
	p := processor.New(db.begin, pub)

	if err := handle(t, p, endEvent(true, 100)); err == nil {
		t.Fatal("HandleMessage returned nil, want publish failure")
	}

	// State committed before the publish; the ledger protects the retry.
	if !db.processed["evt-1"] {
		t.Error("ledger entry missing after committed unit")
	}
	pub.err = nil
	if err := handle(t, p, endEvent(true, 100)); err != nil {
		t.Fatalf("retry returned %v, want nil", err)
	}
	if g := db.games[7]; g.Won != 3 {
		t.Errorf("game won = %d after retry, want 3 (no double count)", g.Won)
	}
	if len(pub.updates) != 1 {
		t.Errorf("published %d updates, want 1", len(pub.updates))
	}
}

func TestCollateralFailureFailsWholeUnit(t *testing.T) {
	db := newFakeDB()
	seed(db)
	db.collateralErr = errors.New("deadlock")
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	if err := handle(t, p, endEvent(false, 40)); err == nil {
		t.Fatal("HandleMessage returned nil, want collateral failure")
	}
	if db.members[1].Health != 95 {
		t.Error("member mutated despite collateral failure")
	}
	if len(pub.updates) != 0 {
		t.Error("update published despite collateral failure")
	}
}

func TestUnknownHeroGetsPlaceholderQuote(t *testing.T) {
	db := newFakeDB()
	seed(db)
	m := db.members[1]
	m.HeroName = "Minsc"
	db.members[1] = m
	pub := &fakePublisher{}
	p := processor.New(db.begin, pub)

	event := endEvent(true, 100)
	event.PartyMember.HeroName = "Minsc"
	if err := handle(t, p, event); err != nil {
		t.Fatalf("HandleMessage returned %v", err)
	}
	if got, want := pub.updates[0].Message, "[WON] Minsc: ..."; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
