package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ledgerRepo "tably/database/repository/ledger"
	"tably/models"
	"tably/services/availability"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *availability.HoldStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	holds := availability.NewHoldStore(client)
	svc := NewService(ledgerRepo.NewMemoryLedgerRepo(), holds, nil, zap.NewNop())
	return svc, holds, mr
}

func testSlot() models.Slot {
	return models.Slot{
		RestaurantID: "rest-1",
		TableID:      "t2",
		Date:         "2026-09-01",
		Time:         "19:00",
		DurationMin:  models.DefaultSlotDurationMin,
		Seats:        4,
	}
}

func TestCommitHappyPath(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 4, time.Minute)
	require.NoError(t, err)

	res, err := svc.Commit(ctx, hold, "u1", "idem-1", "window seat")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, res.Status)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, 4, res.PartySize)
	assert.Equal(t, "window seat", res.SpecialRequests)
	assert.Equal(t, testSlot().Key(), res.SlotKey)

	// The hold is released immediately, not left to expire.
	live, err := holds.Get(ctx, testSlot().Key())
	require.NoError(t, err)
	assert.Nil(t, live)
}

func TestCommitIdempotentReplay(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)

	first, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
	require.NoError(t, err)

	// Retrying with the same key returns the original record even though
	// the hold is gone.
	second, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCommitExpiredHold(t *testing.T) {
	svc, holds, mr := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = svc.Commit(ctx, hold, "u1", "idem-1", "")
	var expired *HoldExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, testSlot().Key(), expired.SlotKey)
}

func TestCommitStolenHoldToken(t *testing.T) {
	svc, holds, mr := newTestService(t)
	ctx := context.Background()

	stale, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	// Someone else holds the slot now; the stale token must not commit.
	_, err = holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)

	_, err = svc.Commit(ctx, stale, "u1", "idem-1", "")
	var expired *HoldExpiredError
	require.ErrorAs(t, err, &expired)
}

func TestCommitSlotConflict(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	// An active reservation already owns the slot; the hold raced it.
	require.NoError(t, svc.Repo.Insert(ctx, &models.Reservation{
		ID: "res-0", RestaurantID: "rest-1",
		Slot: testSlot(), SlotKey: testSlot().Key(),
		PartySize: 2, UserID: "u0",
		Status: models.ReservationConfirmed, IdempotencyKey: "idem-0",
	}))

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)

	_, err = svc.Commit(ctx, hold, "u1", "idem-1", "")
	var conflict *SlotConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCommitConcurrentRetriesCreateOneReservation(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)

	const attempts = 8
	results := make([]*models.Reservation, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	var id string
	for _, res := range results {
		require.NotNil(t, res, "idempotent retries must all succeed")
		if id == "" {
			id = res.ID
		}
		assert.Equal(t, id, res.ID)
	}

	all, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCommitRacingSessionsOneWinner(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	// Two sessions chase the same slot with their own holds and keys.
	// The loser acquires its hold the moment the winner's commit releases
	// the slot, and must then be turned away by the ledger.
	var wg sync.WaitGroup
	results := make([]*models.Reservation, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i+1)
			key := fmt.Sprintf("idem-%d", i+1)
			for attempt := 0; attempt < 1000; attempt++ {
				hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
				if err != nil {
					continue
				}
				results[i], errs[i] = svc.Commit(ctx, hold, user, key, "")
				return
			}
			errs[i] = fmt.Errorf("never acquired a hold")
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for i := range errs {
		if errs[i] == nil {
			require.NotNil(t, results[i])
			wins++
			continue
		}
		var conflict *SlotConflictError
		require.ErrorAs(t, errs[i], &conflict)
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	active, err := svc.Repo.FindActiveBySlot(ctx, testSlot().Key())
	require.NoError(t, err)
	require.NotNil(t, active)
}

func TestCancel(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)
	res, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, res.ID, "intruder")
	var notOwner *NotOwnerError
	require.ErrorAs(t, err, &notOwner)

	cancelled, err := svc.Cancel(ctx, res.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, cancelled.Status)

	// Cancelling again conflicts on status.
	_, err = svc.Cancel(ctx, res.ID, "u1")
	var statusErr *StatusConflictError
	require.ErrorAs(t, err, &statusErr)

	_, err = svc.Cancel(ctx, "missing", "u1")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)
	res, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, res.ID, "u1")
	require.NoError(t, err)

	hold2, err := holds.Acquire(ctx, testSlot(), 4, time.Minute)
	require.NoError(t, err)
	rebooked, err := svc.Commit(ctx, hold2, "u2", "idem-2", "")
	require.NoError(t, err)
	assert.NotEqual(t, res.ID, rebooked.ID)
}

func TestComplete(t *testing.T) {
	svc, holds, _ := newTestService(t)
	ctx := context.Background()

	hold, err := holds.Acquire(ctx, testSlot(), 2, time.Minute)
	require.NoError(t, err)
	res, err := svc.Commit(ctx, hold, "u1", "idem-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, res.ID))
	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, got.Status)

	// Completing again is a no-op, not an error.
	assert.NoError(t, svc.Complete(ctx, res.ID))

	var notFound *NotFoundError
	assert.ErrorAs(t, svc.Complete(ctx, "missing"), &notFound)
}
