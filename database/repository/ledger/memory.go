package ledgerRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"tably/models"
)

// MemoryLedgerRepo is an in-memory LedgerRepository for local runs and
// tests. Insert is conditional under the repo lock, matching the
// guarantee the Mongo implementation gets from its partial unique index.
type MemoryLedgerRepo struct {
	mu           sync.RWMutex
	reservations map[string]models.Reservation // by id
	byIdemKey    map[string]string             // idempotency key → id
}

// NewMemoryLedgerRepo creates an empty in-memory ledger.
func NewMemoryLedgerRepo() *MemoryLedgerRepo {
	return &MemoryLedgerRepo{
		reservations: make(map[string]models.Reservation),
		byIdemKey:    make(map[string]string),
	}
}

func (r *MemoryLedgerRepo) Insert(_ context.Context, res *models.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reservations {
		if existing.SlotKey == res.SlotKey && existing.Status.Active() {
			return ErrSlotTaken
		}
	}

	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	r.reservations[res.ID] = *res
	r.byIdemKey[res.IdempotencyKey] = res.ID
	return nil
}

func (r *MemoryLedgerRepo) GetByID(_ context.Context, id string) (*models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &res, nil
}

func (r *MemoryLedgerRepo) GetByIdempotencyKey(_ context.Context, key string) (*models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIdemKey[key]
	if !ok {
		return nil, nil
	}
	res := r.reservations[id]
	return &res, nil
}

func (r *MemoryLedgerRepo) FindActiveBySlot(_ context.Context, slotKey string) (*models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.reservations {
		if res.SlotKey == slotKey && res.Status.Active() {
			out := res
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryLedgerRepo) ListActiveByRestaurantDate(_ context.Context, restaurantID, date string) ([]models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Reservation
	for _, res := range r.reservations {
		if res.RestaurantID == restaurantID && res.Slot.Date == date && res.Status.Active() {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *MemoryLedgerRepo) ListByUser(_ context.Context, userID string) ([]models.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Reservation
	for _, res := range r.reservations {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryLedgerRepo) UpdateStatus(_ context.Context, id string, from, to models.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if res.Status != from {
		return ErrStatusConflict
	}
	res.Status = to
	res.UpdatedAt = time.Now()
	r.reservations[id] = res
	return nil
}
