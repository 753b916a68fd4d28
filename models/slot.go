package models

import (
	"fmt"
	"time"
)

// DefaultSlotDurationMin is the seating duration assumed when a
// restaurant does not configure its own.
const DefaultSlotDurationMin = 90

// Slot is one bookable (table, date, time, duration) unit at a
// restaurant. A Slot carries no status of its own: it is booked when an
// active reservation references its key, held when the hold store has a
// live hold for it, and free otherwise.
type Slot struct {
	RestaurantID string `bson:"restaurantId" json:"restaurantId"`
	TableID      string `bson:"tableId" json:"tableId"`
	Date         string `bson:"date" json:"date"` // "2006-01-02"
	Time         string `bson:"time" json:"time"` // "15:04"
	DurationMin  int    `bson:"durationMin" json:"durationMin"`
	Seats        int    `bson:"seats" json:"seats"` // capacity of the table
}

// Key is the canonical identity of the slot, used for hold keys and the
// ledger's per-slot uniqueness guarantee.
func (s Slot) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.RestaurantID, s.TableID, s.Date, s.Time)
}

// StartsAt parses the slot's date and time in the given location.
func (s Slot) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.Time, loc)
}

// EndsAt returns the end of the seating window.
func (s Slot) EndsAt(loc *time.Location) (time.Time, error) {
	start, err := s.StartsAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(s.DurationMin) * time.Minute), nil
}

// HoldToken is a short-lived exclusive claim on a Slot pending booking
// confirmation. It expires on its own; only a matching token may be
// converted into a reservation or released early.
type HoldToken struct {
	Token     string    `json:"token"`
	Slot      Slot      `json:"slot"`
	PartySize int       `json:"partySize"`
	ExpiresAt time.Time `json:"expiresAt"`
}
