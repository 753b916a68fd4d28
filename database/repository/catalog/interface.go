package catalogRepo

import (
	"context"
	"errors"

	"tably/models"
)

// ErrNotFound is returned when no restaurant matches the lookup.
var ErrNotFound = errors.New("restaurant not found")

// Filter holds the criteria for a catalog search. Zero values are
// ignored; feature filters must all be present on a match.
type Filter struct {
	Cuisine  string
	Location string
	Price    models.PriceTier
	Features []string
}

// CatalogRepository defines methods for restaurant data access. The
// catalog is read-mostly; writes come only from the administrative CRUD
// surface and never touch reservations.
type CatalogRepository interface {
	// GetByID retrieves a restaurant by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
	// GetAll retrieves all restaurants.
	GetAll(ctx context.Context) ([]models.Restaurant, error)
	// Search retrieves restaurants matching the filter.
	Search(ctx context.Context, f Filter) ([]models.Restaurant, error)
	// Create inserts a new restaurant record.
	Create(ctx context.Context, r *models.Restaurant) error
	// Update modifies an existing restaurant record.
	Update(ctx context.Context, r *models.Restaurant) error
	// Delete removes a restaurant record by its ID.
	Delete(ctx context.Context, id string) error
}
