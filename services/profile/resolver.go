package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	profileRepo "tably/database/repository/profile"
	"tably/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotFoundError means no profile exists for the id.
type NotFoundError struct {
	UserID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("notFound: user profile %s does not exist", e.UserID)
}

// Resolver maps a stable identity signal to a user profile, creating one
// on first contact. The orchestrator calls Resolve exactly once per
// session, at session start.
type Resolver struct {
	Repo   profileRepo.ProfileRepository
	Logger *zap.Logger
}

// NewResolver creates a profile resolver.
func NewResolver(repo profileRepo.ProfileRepository, logger *zap.Logger) *Resolver {
	return &Resolver{Repo: repo, Logger: logger}
}

// Resolve finds the profile for the contact signal, creating a fresh one
// when none exists. The bool is true for a first-time user, which the
// orchestrator uses to shape the greeting.
func (r *Resolver) Resolve(ctx context.Context, contact, name string) (*models.UserProfile, bool, error) {
	contact = strings.TrimSpace(strings.ToLower(contact))
	if contact == "" {
		return nil, false, fmt.Errorf("contact signal is required")
	}

	existing, err := r.Repo.GetByContact(ctx, contact)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		r.Logger.Debug("profile resolved", zap.String("userId", existing.ID),
			zap.Bool("returning", existing.Returning))
		return existing, false, nil
	}

	now := time.Now()
	profile := &models.UserProfile{
		ID:        uuid.New().String(),
		Name:      name,
		Contact:   contact,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Repo.Create(ctx, profile); err != nil {
		return nil, false, err
	}
	r.Logger.Info("new user profile created", zap.String("userId", profile.ID))
	return profile, true, nil
}

// Get retrieves a profile by id.
func (r *Resolver) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := r.Repo.GetByID(ctx, userID)
	if errors.Is(err, profileRepo.ErrNotFound) {
		return nil, &NotFoundError{UserID: userID}
	}
	return p, err
}

// AppendHistory records a committed reservation on the profile and
// flips the returning flag.
func (r *Resolver) AppendHistory(ctx context.Context, userID, reservationID string) error {
	err := r.Repo.AppendHistory(ctx, userID, reservationID)
	if errors.Is(err, profileRepo.ErrNotFound) {
		return &NotFoundError{UserID: userID}
	}
	return err
}

// UpdatePreferences merges dietary restrictions and preferred cuisines
// into the profile. Empty slices leave the stored values untouched.
func (r *Resolver) UpdatePreferences(ctx context.Context, userID string, dietary, cuisines []string) (*models.UserProfile, error) {
	p, err := r.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, profileRepo.ErrNotFound) {
			return nil, &NotFoundError{UserID: userID}
		}
		return nil, err
	}

	if len(dietary) > 0 {
		p.Dietary = mergeDistinct(p.Dietary, dietary)
	}
	if len(cuisines) > 0 {
		p.Cuisines = mergeDistinct(p.Cuisines, cuisines)
	}
	p.UpdatedAt = time.Now()

	if err := r.Repo.Update(ctx, p); err != nil {
		return nil, err
	}
	r.Logger.Info("preferences updated", zap.String("userId", userID),
		zap.Strings("dietary", p.Dietary), zap.Strings("cuisines", p.Cuisines))
	return p, nil
}

// mergeDistinct appends the new values that are not already present,
// case-insensitively, preserving insertion order.
func mergeDistinct(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[strings.ToLower(v)] = true
	}
	out := existing
	for _, v := range incoming {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}
