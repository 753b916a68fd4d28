package models

import "time"

// UserProfile is owned by the profile resolver. The orchestrator holds
// only the id; history updates go through the resolver after a booking
// completes.
type UserProfile struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	Contact   string    `bson:"contact" json:"contact"` // stable identity signal (email or phone)
	Dietary   []string  `bson:"dietary,omitempty" json:"dietary,omitempty"`
	Cuisines  []string  `bson:"cuisines,omitempty" json:"cuisines,omitempty"` // preferred cuisines for recommendations
	History   []string  `bson:"history,omitempty" json:"history,omitempty"`   // past reservation ids, oldest first
	Returning bool      `bson:"returning" json:"returning"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
