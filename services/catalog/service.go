package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogRepo "tably/database/repository/catalog"
	"tably/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotFoundError means the restaurant id does not exist.
type NotFoundError struct {
	RestaurantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("notFound: restaurant %s does not exist", e.RestaurantID)
}

// Service wraps the catalog repository with input validation and the
// preference-based recommender. The catalog is read-mostly; writes come
// only from the administrative surface.
type Service struct {
	Repo   catalogRepo.CatalogRepository
	Logger *zap.Logger
}

// NewService creates a catalog service.
func NewService(repo catalogRepo.CatalogRepository, logger *zap.Logger) *Service {
	return &Service{Repo: repo, Logger: logger}
}

// Get retrieves one restaurant.
func (s *Service) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	r, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, catalogRepo.ErrNotFound) {
		return nil, &NotFoundError{RestaurantID: id}
	}
	return r, err
}

// Search retrieves restaurants matching the filter. An empty filter
// returns the whole catalog.
func (s *Service) Search(ctx context.Context, f catalogRepo.Filter) ([]models.Restaurant, error) {
	results, err := s.Repo.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("catalog searched",
		zap.String("cuisine", f.Cuisine),
		zap.String("location", f.Location),
		zap.Int("results", len(results)))
	return results, nil
}

// Create inserts a new restaurant, minting an id when absent.
func (s *Service) Create(ctx context.Context, r *models.Restaurant) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.CreatedAt = time.Now()
	if err := s.Repo.Create(ctx, r); err != nil {
		return err
	}
	s.Logger.Info("restaurant created", zap.String("restaurantId", r.ID), zap.String("name", r.Name))
	return nil
}

// Update replaces an existing restaurant record.
func (s *Service) Update(ctx context.Context, r *models.Restaurant) error {
	if err := validate(r); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, r); err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			return &NotFoundError{RestaurantID: r.ID}
		}
		return err
	}
	return nil
}

// Delete removes a restaurant from the catalog. Existing reservations
// keep their denormalized slot data and are unaffected.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			return &NotFoundError{RestaurantID: id}
		}
		return err
	}
	s.Logger.Info("restaurant deleted", zap.String("restaurantId", id))
	return nil
}

func validate(r *models.Restaurant) error {
	if r.Name == "" {
		return fmt.Errorf("restaurant name is required")
	}
	if len(r.Tables) == 0 {
		return fmt.Errorf("restaurant needs at least one table")
	}
	for _, t := range r.Tables {
		if t.Seats < 1 {
			return fmt.Errorf("table %s has invalid capacity %d", t.ID, t.Seats)
		}
	}
	if _, err := time.Parse("15:04", r.OpeningTime); err != nil {
		return fmt.Errorf("invalid opening time %q", r.OpeningTime)
	}
	if _, err := time.Parse("15:04", r.ClosingTime); err != nil {
		return fmt.Errorf("invalid closing time %q", r.ClosingTime)
	}
	return nil
}
