package availability

import "fmt"

// ConflictError is returned by Hold when the slot is already held or
// booked by someone else.
type ConflictError struct {
	SlotKey string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slotConflict: slot %s is already held or booked", e.SlotKey)
}

// NewConflictError builds a ConflictError for the slot key.
func NewConflictError(slotKey string) error {
	return &ConflictError{SlotKey: slotKey}
}

// CapacityError is returned by Hold when the party does not fit the
// slot's table.
type CapacityError struct {
	SlotKey   string
	PartySize int
	Seats     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: party of %d exceeds the %d seats of slot %s", e.PartySize, e.Seats, e.SlotKey)
}
