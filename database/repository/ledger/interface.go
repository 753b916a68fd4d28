package ledgerRepo

import (
	"context"
	"errors"

	"tably/models"
)

var (
	// ErrNotFound is returned when no reservation matches the lookup.
	ErrNotFound = errors.New("reservation not found")
	// ErrSlotTaken is returned by Insert when an active reservation
	// already references the slot key.
	ErrSlotTaken = errors.New("slot already has an active reservation")
	// ErrStatusConflict is returned by UpdateStatus when the stored
	// status does not match the expected one.
	ErrStatusConflict = errors.New("reservation status changed concurrently")
)

// LedgerRepository is the durable record of bookings. Implementations
// must make Insert conditional: it fails with ErrSlotTaken when another
// reservation with an active status (pending or confirmed) references
// the same slot key, so the at-most-one-active-per-slot invariant holds
// even without the service-level lock.
type LedgerRepository interface {
	// Insert creates a reservation record, enforcing per-slot uniqueness.
	Insert(ctx context.Context, res *models.Reservation) error
	// GetByID retrieves a reservation by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	// GetByIdempotencyKey retrieves the reservation created under the
	// key, or nil when none exists.
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Reservation, error)
	// FindActiveBySlot retrieves the active reservation holding the slot
	// key, or nil when the slot is free.
	FindActiveBySlot(ctx context.Context, slotKey string) (*models.Reservation, error)
	// ListActiveByRestaurantDate retrieves active reservations for one
	// restaurant on one date.
	ListActiveByRestaurantDate(ctx context.Context, restaurantID, date string) ([]models.Reservation, error)
	// ListByUser retrieves all reservations created by the user, newest
	// first.
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	// UpdateStatus transitions a reservation from one status to another;
	// the update is conditional on the current status.
	UpdateStatus(ctx context.Context, id string, from, to models.ReservationStatus) error
}
