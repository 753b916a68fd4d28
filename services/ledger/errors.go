package ledger

import "fmt"

// SlotConflictError means another active reservation claimed the slot
// between the hold and the commit, or the hold raced a direct booking.
type SlotConflictError struct {
	SlotKey string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slotConflict: slot %s was booked by someone else", e.SlotKey)
}

// HoldExpiredError means the commit arrived after the hold's TTL lapsed
// or with a token that no longer owns the slot.
type HoldExpiredError struct {
	SlotKey string
}

func (e *HoldExpiredError) Error() string {
	return fmt.Sprintf("holdExpired: hold on slot %s has expired, re-check availability", e.SlotKey)
}

// NotFoundError means the reservation id does not exist.
type NotFoundError struct {
	ReservationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("notFound: reservation %s does not exist", e.ReservationID)
}

// NotOwnerError means the caller tried to act on someone else's
// reservation.
type NotOwnerError struct {
	ReservationID string
	UserID        string
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("notOwner: user %s does not own reservation %s", e.UserID, e.ReservationID)
}

// StatusConflictError means the reservation is not in a state the
// requested transition allows, e.g. cancelling a completed booking.
type StatusConflictError struct {
	ReservationID string
	Status        string
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("statusConflict: reservation %s is %s", e.ReservationID, e.Status)
}
