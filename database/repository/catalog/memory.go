package catalogRepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"tably/models"
)

// MemoryCatalogRepo is an in-memory CatalogRepository for local runs and
// tests.
type MemoryCatalogRepo struct {
	mu          sync.RWMutex
	restaurants map[string]models.Restaurant
}

// NewMemoryCatalogRepo creates an empty in-memory catalog.
func NewMemoryCatalogRepo() *MemoryCatalogRepo {
	return &MemoryCatalogRepo{restaurants: make(map[string]models.Restaurant)}
}

func (r *MemoryCatalogRepo) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rest, ok := r.restaurants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rest, nil
}

func (r *MemoryCatalogRepo) GetAll(_ context.Context) ([]models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Restaurant, 0, len(r.restaurants))
	for _, rest := range r.restaurants {
		out = append(out, rest)
	}
	return out, nil
}

func (r *MemoryCatalogRepo) Search(_ context.Context, f Filter) ([]models.Restaurant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Restaurant
	for _, rest := range r.restaurants {
		if f.Cuisine != "" && !strings.EqualFold(rest.Cuisine, strings.TrimSpace(f.Cuisine)) {
			continue
		}
		if f.Location != "" && !strings.EqualFold(rest.Location, strings.TrimSpace(f.Location)) {
			continue
		}
		if f.Price != "" && rest.Price != f.Price {
			continue
		}
		if !hasAllFeatures(rest.Features, f.Features) {
			continue
		}
		out = append(out, rest)
	}
	return out, nil
}

func hasAllFeatures(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *MemoryCatalogRepo) Create(_ context.Context, rest *models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rest.CreatedAt = time.Now()
	r.restaurants[rest.ID] = *rest
	return nil
}

func (r *MemoryCatalogRepo) Update(_ context.Context, rest *models.Restaurant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.restaurants[rest.ID]; !ok {
		return ErrNotFound
	}
	r.restaurants[rest.ID] = *rest
	return nil
}

func (r *MemoryCatalogRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.restaurants[id]; !ok {
		return ErrNotFound
	}
	delete(r.restaurants, id)
	return nil
}
