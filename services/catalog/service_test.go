package catalog

import (
	"context"
	"testing"

	catalogRepo "tably/database/repository/catalog"
	"tably/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(catalogRepo.NewMemoryCatalogRepo(), zap.NewNop())
	require.NoError(t, svc.Seed(context.Background()))
	return svc
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	all, err := svc.Repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(seedData))
}

func TestSearchByCuisineAndFeatures(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	results, err := svc.Search(ctx, catalogRepo.Filter{Cuisine: "italian"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "La Bella Italia", results[0].Name)

	results, err = svc.Search(ctx, catalogRepo.Filter{Features: []string{"buffet"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Spice Garden", results[0].Name)

	results, err = svc.Search(ctx, catalogRepo.Filter{Cuisine: "italian", Location: "Uptown"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Create(ctx, &models.Restaurant{Name: "No Tables", OpeningTime: "10:00", ClosingTime: "20:00"})
	assert.Error(t, err)

	err = svc.Create(ctx, &models.Restaurant{
		Name:        "Bad Hours",
		Tables:      []models.Table{{ID: "t1", Seats: 2}},
		OpeningTime: "25:99",
		ClosingTime: "20:00",
	})
	assert.Error(t, err)

	r := &models.Restaurant{
		Name:        "Valid Place",
		Cuisine:     "Thai",
		Price:       models.PriceBudget,
		Tables:      []models.Table{{ID: "t1", Seats: 2}},
		OpeningTime: "10:00",
		ClosingTime: "20:00",
	}
	require.NoError(t, svc.Create(ctx, r))
	assert.NotEmpty(t, r.ID, "an id is minted when absent")
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), "missing")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRecommendPrefersMatchingCuisine(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.Recommend(context.Background(), Preferences{Cuisines: []string{"Indian"}}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "Spice Garden", recs[0].Name)
}

func TestRecommendFallsBackToRating(t *testing.T) {
	svc := newTestService(t)

	recs, err := svc.Recommend(context.Background(), Preferences{}, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Sakura Japanese", recs[0].Name, "no signal means top rating wins")
	assert.GreaterOrEqual(t, recs[0].Rating, recs[1].Rating)
}

func TestSimilarExcludesAnchor(t *testing.T) {
	svc := newTestService(t)

	similar, err := svc.Similar(context.Background(), "la-bella-italia", 5)
	require.NoError(t, err)
	require.NotEmpty(t, similar)
	for _, r := range similar {
		assert.NotEqual(t, "la-bella-italia", r.ID)
	}
}
