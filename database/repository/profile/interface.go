package profileRepo

import (
	"context"
	"errors"

	"tably/models"
)

// ErrNotFound is returned when no profile matches the lookup.
var ErrNotFound = errors.New("user profile not found")

// ProfileRepository defines methods for user profile data access.
type ProfileRepository interface {
	// GetByID retrieves a profile by its unique ID.
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	// GetByContact retrieves a profile by its stable contact signal, or
	// nil when none exists.
	GetByContact(ctx context.Context, contact string) (*models.UserProfile, error)
	// Create inserts a new profile record.
	Create(ctx context.Context, p *models.UserProfile) error
	// Update modifies an existing profile record.
	Update(ctx context.Context, p *models.UserProfile) error
	// AppendHistory appends a reservation id to the profile's history
	// and marks the profile as returning.
	AppendHistory(ctx context.Context, id, reservationID string) error
}
