package catalog

import (
	"context"
	"sort"
	"strings"

	"tably/models"
)

// Preferences are the signals the recommender scores against. All
// fields are optional; with none set the top-rated restaurants win.
type Preferences struct {
	Cuisines []string
	Location string
	Price    models.PriceTier
	Dietary  []string
	Occasion string
}

// Recommend ranks the catalog against the preferences by token overlap
// between the preference text and each restaurant's descriptive text,
// breaking ties on rating. With no preference signal it degrades to a
// plain rating sort.
func (s *Service) Recommend(ctx context.Context, prefs Preferences, limit int) ([]models.Restaurant, error) {
	if limit < 1 {
		limit = 5
	}
	all, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	prefTokens := tokenize(preferenceText(prefs))
	if len(prefTokens) == 0 {
		sort.Slice(all, func(i, j int) bool { return all[i].Rating > all[j].Rating })
		if len(all) > limit {
			all = all[:limit]
		}
		return all, nil
	}

	type scored struct {
		rest  models.Restaurant
		score float64
	}
	ranked := make([]scored, 0, len(all))
	for _, r := range all {
		ranked = append(ranked, scored{rest: r, score: overlap(prefTokens, tokenize(restaurantText(&r)))})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rest.Rating > ranked[j].rest.Rating
	})

	out := make([]models.Restaurant, 0, limit)
	for _, sc := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, sc.rest)
	}
	return out, nil
}

// Similar ranks the rest of the catalog by textual similarity to one
// restaurant.
func (s *Service) Similar(ctx context.Context, restaurantID string, limit int) ([]models.Restaurant, error) {
	if limit < 1 {
		limit = 5
	}
	anchor, err := s.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	all, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	anchorTokens := tokenize(restaurantText(anchor))
	type scored struct {
		rest  models.Restaurant
		score float64
	}
	var ranked []scored
	for _, r := range all {
		if r.ID == restaurantID {
			continue
		}
		ranked = append(ranked, scored{rest: r, score: overlap(anchorTokens, tokenize(restaurantText(&r)))})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rest.Rating > ranked[j].rest.Rating
	})

	out := make([]models.Restaurant, 0, limit)
	for _, sc := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, sc.rest)
	}
	return out, nil
}

// restaurantText flattens the searchable fields of a restaurant into
// one document: name, cuisine, location, price, features and menu item
// names.
func restaurantText(r *models.Restaurant) string {
	parts := []string{r.Name, r.Cuisine, r.Location, string(r.Price)}
	parts = append(parts, r.Features...)
	for _, item := range r.Menu {
		parts = append(parts, item.Name)
	}
	return strings.Join(parts, " ")
}

func preferenceText(p Preferences) string {
	parts := append([]string{}, p.Cuisines...)
	parts = append(parts, p.Location, string(p.Price), p.Occasion)
	parts = append(parts, p.Dietary...)
	return strings.Join(parts, " ")
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:'\"")
		if len(f) > 1 {
			tokens[f] = true
		}
	}
	return tokens
}

// overlap is the fraction of preference tokens present in the document,
// a cheap stand-in for cosine similarity that needs no corpus pass.
func overlap(prefs, doc map[string]bool) float64 {
	if len(prefs) == 0 {
		return 0
	}
	hits := 0
	for tok := range prefs {
		if doc[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(prefs))
}
