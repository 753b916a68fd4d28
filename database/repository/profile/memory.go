package profileRepo

import (
	"context"
	"sync"
	"time"

	"tably/models"
)

// MemoryProfileRepo is an in-memory ProfileRepository for local runs and
// tests.
type MemoryProfileRepo struct {
	mu        sync.RWMutex
	profiles  map[string]models.UserProfile // by id
	byContact map[string]string             // contact → id
}

// NewMemoryProfileRepo creates an empty in-memory profile store.
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{
		profiles:  make(map[string]models.UserProfile),
		byContact: make(map[string]string),
	}
}

func (r *MemoryProfileRepo) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProfileRepo) GetByContact(_ context.Context, contact string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byContact[contact]
	if !ok {
		return nil, nil
	}
	p := r.profiles[id]
	return &p, nil
}

func (r *MemoryProfileRepo) Create(_ context.Context, p *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.profiles[p.ID] = *p
	r.byContact[p.Contact] = p.ID
	return nil
}

func (r *MemoryProfileRepo) Update(_ context.Context, p *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	r.profiles[p.ID] = *p
	return nil
}

func (r *MemoryProfileRepo) AppendHistory(_ context.Context, id, reservationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.History = append(p.History, reservationID)
	p.Returning = true
	p.UpdatedAt = time.Now()
	r.profiles[id] = p
	return nil
}
