package models

import "time"

// ReservationStatus is the lifecycle of a reservation:
// pending → confirmed → cancelled | completed.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// Active reports whether the status still claims the slot.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Reservation is the ledger's durable booking record. At most one active
// reservation may reference a given slot key at any time.
type Reservation struct {
	ID              string            `bson:"id" json:"id"`
	RestaurantID    string            `bson:"restaurantId" json:"restaurantId"`
	Slot            Slot              `bson:"slot" json:"slot"`
	SlotKey         string            `bson:"slotKey" json:"slotKey"`
	PartySize       int               `bson:"partySize" json:"partySize"`
	UserID          string            `bson:"userId" json:"userId"`
	Status          ReservationStatus `bson:"status" json:"status"`
	SpecialRequests string            `bson:"specialRequests,omitempty" json:"specialRequests,omitempty"`
	IdempotencyKey  string            `bson:"idempotencyKey" json:"idempotencyKey"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt" json:"updatedAt"`
}
