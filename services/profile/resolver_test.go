package profile

import (
	"context"
	"testing"

	profileRepo "tably/database/repository/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestResolver() *Resolver {
	return NewResolver(profileRepo.NewMemoryProfileRepo(), zap.NewNop())
}

func TestResolveCreatesFirstTimeUser(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	p, isNew, err := r.Resolve(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "amina@example.com", p.Contact)
	assert.False(t, p.Returning)
}

func TestResolveFindsExistingUser(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	first, _, err := r.Resolve(ctx, "Amina@Example.com", "Amina")
	require.NoError(t, err)

	// Contact matching is case-insensitive.
	second, isNew, err := r.Resolve(ctx, "amina@example.com", "")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveRequiresContact(t *testing.T) {
	r := newTestResolver()
	_, _, err := r.Resolve(context.Background(), "   ", "Amina")
	assert.Error(t, err)
}

func TestAppendHistoryMarksReturning(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	p, _, err := r.Resolve(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	require.NoError(t, r.AppendHistory(ctx, p.ID, "res-1"))
	require.NoError(t, r.AppendHistory(ctx, p.ID, "res-2"))

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Returning)
	assert.Equal(t, []string{"res-1", "res-2"}, got.History)

	var notFound *NotFoundError
	assert.ErrorAs(t, r.AppendHistory(ctx, "missing", "res-3"), &notFound)
}

func TestUpdatePreferencesMerges(t *testing.T) {
	r := newTestResolver()
	ctx := context.Background()

	p, _, err := r.Resolve(ctx, "amina@example.com", "Amina")
	require.NoError(t, err)

	got, err := r.UpdatePreferences(ctx, p.ID, []string{"vegetarian"}, []string{"Italian"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vegetarian"}, got.Dietary)
	assert.Equal(t, []string{"Italian"}, got.Cuisines)

	// Duplicates are dropped case-insensitively; empty slices keep the
	// stored values.
	got, err = r.UpdatePreferences(ctx, p.ID, []string{"Vegetarian", "halal"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"vegetarian", "halal"}, got.Dietary)
	assert.Equal(t, []string{"Italian"}, got.Cuisines)

	var notFound *NotFoundError
	_, err = r.UpdatePreferences(ctx, "missing", []string{"vegan"}, nil)
	assert.ErrorAs(t, err, &notFound)
}
