package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	catalogRepo "tably/database/repository/catalog"
	ledgerRepo "tably/database/repository/ledger"
	profileRepo "tably/database/repository/profile"
	"tably/models"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/ledger"
	"tably/services/profile"
	"tably/services/tools"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedPlanner replays a fixed sequence of decisions, standing in
// for the model so tests drive the state machine deterministically.
type scriptedPlanner struct {
	decisions []*models.PlannerDecision
	idx       int
}

func (p *scriptedPlanner) Decide(_ context.Context, _ *models.ConversationSession, _ []models.ToolSpec) (*models.PlannerDecision, error) {
	if p.idx >= len(p.decisions) {
		return &models.PlannerDecision{Kind: models.DecideReply, Reply: "anything else?"}, nil
	}
	d := p.decisions[p.idx]
	p.idx++
	return d, nil
}

type fixture struct {
	orch   *Orchestrator
	ledger *ledger.Service
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T, planner *scriptedPlanner) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	holds := availability.NewHoldStore(client)
	cat := catalog.NewService(catalogRepo.NewMemoryCatalogRepo(), logger)
	require.NoError(t, cat.Seed(context.Background()))

	ledgerRepoMem := ledgerRepo.NewMemoryLedgerRepo()
	engine := &availability.Engine{
		Catalog: cat.Repo, Ledger: ledgerRepoMem, Holds: holds,
		HoldTTL: 5 * time.Minute, Logger: logger,
	}
	ledgerSvc := ledger.NewService(ledgerRepoMem, holds, nil, logger)
	profiles := profile.NewResolver(profileRepo.NewMemoryProfileRepo(), logger)

	reg := tools.NewRegistry(3, logger)
	require.NoError(t, tools.RegisterBuiltin(reg, tools.Deps{
		Catalog: cat, Engine: engine, Ledger: ledgerSvc, Profiles: profiles,
	}))

	store := NewSessionStore(client, 30*time.Minute)
	return &fixture{
		orch:   New(store, planner, reg, profiles, logger),
		ledger: ledgerSvc,
		mr:     mr,
	}
}

func call(name string, args map[string]any) *models.PlannerDecision {
	raw, _ := json.Marshal(args)
	return &models.PlannerDecision{
		Kind: models.DecideToolCall,
		Call: &models.ToolCall{Name: name, Args: raw},
	}
}

func TestStartSessionGreetsNewAndReturningUsers(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{})
	ctx := context.Background()

	first, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingIntent, first.State)
	assert.Contains(t, first.Text, "Welcome, Amina")

	second, err := f.orch.StartSession(ctx, "amina@example.com", "")
	require.NoError(t, err)
	assert.Contains(t, second.Text, "Welcome back")
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestHandleMessagePlainReply(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		{Kind: models.DecideReply, Reply: "Hi! What are you looking for?"},
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi! What are you looking for?", reply.Text)
	assert.Equal(t, models.StateAwaitingIntent, reply.State)
}

func TestReadOnlyToolRunsWithoutConfirmation(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{
			"restaurant_id": "spice-garden", "date": "2026-09-01", "party_size": 4, "time_from": "19:00", "time_to": "19:00",
		}),
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "table for 4 tomorrow")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Free slots")
	assert.NotEmpty(t, reply.Actions)
	assert.Equal(t, models.StateAwaitingIntent, reply.State)

	sess, err := f.orch.Store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.SeenSlots, "availability results are remembered")
}

func TestBookingRequiresConfirmationTurn(t *testing.T) {
	slotKey := "spice-garden|t2|2026-09-01|19:00"
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{
			"restaurant_id": "spice-garden", "date": "2026-09-01", "party_size": 4, "time_from": "19:00", "time_to": "19:00",
		}),
		call("make_reservation", map[string]any{"slot_key": slotKey, "party_size": 4}),
		{Kind: models.DecideConfirm},
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	_, err = f.orch.HandleMessage(ctx, start.SessionID, "table for 4 on 2026-09-01 at spice-garden")
	require.NoError(t, err)

	// The booking is proposed, not executed.
	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "book the 19:00 four-top")
	require.NoError(t, err)
	assert.Equal(t, models.StateToolProposed, reply.State)
	assert.Contains(t, reply.Text, "Shall I go ahead")

	sess, err := f.orch.Store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	require.NotNil(t, sess.Pending)
	idemKey := sess.Pending.IdempotencyKey
	assert.NotEmpty(t, idemKey)

	all, err := f.ledger.ListByUser(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Empty(t, all, "no reservation before the confirmation turn")

	// An explicit yes executes the suspended call.
	reply, err = f.orch.HandleMessage(ctx, start.SessionID, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "confirmed")
	assert.Equal(t, models.StateAwaitingIntent, reply.State)

	all, err = f.ledger.ListByUser(ctx, sess.UserID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, idemKey, all[0].IdempotencyKey,
		"the committed reservation carries the key minted at proposal time")
}

func TestDeclineClearsPendingCall(t *testing.T) {
	slotKey := "spice-garden|t2|2026-09-01|19:00"
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{
			"restaurant_id": "spice-garden", "date": "2026-09-01", "party_size": 4, "time_from": "19:00", "time_to": "19:00",
		}),
		call("make_reservation", map[string]any{"slot_key": slotKey, "party_size": 4}),
		{Kind: models.DecideDecline},
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "table for 4")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "book the 19:00")
	require.NoError(t, err)

	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "no thanks")
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingIntent, reply.State)

	sess, err := f.orch.Store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Nil(t, sess.Pending)

	all, err := f.ledger.ListByUser(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInvalidToolArgumentsPromptClarification(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{"restaurant_id": "spice-garden"}),
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "any tables?")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Could you rephrase")
	assert.Equal(t, models.StateAwaitingIntent, reply.State, "validation failure never leaves AwaitingIntent")
}

func TestBookingUnseenSlotIsRejected(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("make_reservation", map[string]any{
			"slot_key": "spice-garden|t2|2026-09-01|19:00", "party_size": 4,
		}),
		{Kind: models.DecideConfirm},
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	// The proposal passes schema validation; the unseen-slot check
	// trips at execution and forces a fresh availability check.
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "book spice-garden tonight")
	require.NoError(t, err)
	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Could you rephrase")

	sess, err := f.orch.Store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Nil(t, sess.Pending)
	all, err := f.ledger.ListByUser(ctx, sess.UserID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSlotConflictIsSurfacedAsFact(t *testing.T) {
	slotKey := "spice-garden|t2|2026-09-01|19:00"
	planner := &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{
			"restaurant_id": "spice-garden", "date": "2026-09-01", "party_size": 4, "time_from": "19:00", "time_to": "19:00",
		}),
		call("make_reservation", map[string]any{"slot_key": slotKey, "party_size": 4}),
		{Kind: models.DecideConfirm},
	}}
	f := newFixture(t, planner)
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "table for 4 on 2026-09-01")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "book the 19:00 four-top")
	require.NoError(t, err)

	// Another party books the slot while confirmation is outstanding.
	slot := models.Slot{
		RestaurantID: "spice-garden", TableID: "t2",
		Date: "2026-09-01", Time: "19:00",
		DurationMin: models.DefaultSlotDurationMin, Seats: 4,
	}
	require.NoError(t, f.ledger.Repo.Insert(ctx, &models.Reservation{
		ID: "rival", RestaurantID: "spice-garden",
		Slot: slot, SlotKey: slot.Key(), PartySize: 4,
		UserID: "rival-user", Status: models.ReservationConfirmed,
		IdempotencyKey: "rival-key",
	}))

	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "yes")
	require.NoError(t, err, "a lost race never crashes the session")
	assert.Contains(t, reply.Text, "no longer available")
	require.NotEmpty(t, reply.Actions)
	assert.Equal(t, "search", reply.Actions[0].Type)

	// The failure is folded into history as a structured fact.
	sess, err := f.orch.Store.Get(ctx, start.SessionID)
	require.NoError(t, err)
	var toolFact string
	for _, m := range sess.History {
		if m.Role == models.RoleTool {
			toolFact = m.Content
		}
	}
	assert.Contains(t, toolFact, "slotConflict")
	assert.Equal(t, models.StateAwaitingIntent, sess.State, "session stays usable")
}

func TestExpiredSessionIsRejected(t *testing.T) {
	f := newFixture(t, &scriptedPlanner{})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	f.mr.FastForward(31 * time.Minute)

	_, err = f.orch.HandleMessage(ctx, start.SessionID, "hello?")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestUnansweredConfirmationStaysPending(t *testing.T) {
	slotKey := "spice-garden|t2|2026-09-01|19:00"
	f := newFixture(t, &scriptedPlanner{decisions: []*models.PlannerDecision{
		call("check_availability", map[string]any{
			"restaurant_id": "spice-garden", "date": "2026-09-01", "party_size": 4, "time_from": "19:00", "time_to": "19:00",
		}),
		call("make_reservation", map[string]any{"slot_key": slotKey, "party_size": 4}),
		{Kind: models.DecideReply, Reply: "It seats four at 19:00."},
		{Kind: models.DecideConfirm},
	}})
	ctx := context.Background()

	start, err := f.orch.StartSession(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "table for 4 on 2026-09-01")
	require.NoError(t, err)
	_, err = f.orch.HandleMessage(ctx, start.SessionID, "book the 19:00")
	require.NoError(t, err)

	// A side question does not discard the proposal.
	reply, err := f.orch.HandleMessage(ctx, start.SessionID, "how big is the table?")
	require.NoError(t, err)
	assert.Equal(t, models.StateToolProposed, reply.State)

	reply, err = f.orch.HandleMessage(ctx, start.SessionID, "yes book it")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "confirmed")
}

func TestSessionLocksComeFromFixedStripes(t *testing.T) {
	o := &Orchestrator{}

	// Same session id always maps to the same mutex.
	require.Same(t, o.sessionLock("sess-a"), o.sessionLock("sess-a"))

	// Arbitrarily many sessions draw from the fixed stripe set, so
	// nothing accumulates as sessions come and go.
	seen := make(map[*sync.Mutex]bool)
	for i := 0; i < 1000; i++ {
		seen[o.sessionLock(fmt.Sprintf("sess-%d", i))] = true
	}
	assert.LessOrEqual(t, len(seen), sessionLockStripes)
}
