package catalog

import (
	"context"

	"tably/models"

	"go.uber.org/zap"
)

// seedData is the starter catalog loaded into an empty deployment.
var seedData = []models.Restaurant{
	{
		ID:          "la-bella-italia",
		Name:        "La Bella Italia",
		Cuisine:     "Italian",
		Price:       models.PriceUpscale,
		Location:    "Downtown",
		Address:     "123 Main St",
		Rating:      4.5,
		Features:    []string{"parking", "outdoor_seating", "bar", "private_rooms"},
		OpeningTime: "11:00",
		ClosingTime: "23:00",
		Tables: []models.Table{
			{ID: "t1", Seats: 2}, {ID: "t2", Seats: 2},
			{ID: "t3", Seats: 4}, {ID: "t4", Seats: 4},
			{ID: "t5", Seats: 6}, {ID: "t6", Seats: 8},
		},
		Menu: []models.MenuItem{
			{Name: "Bruschetta", Price: 12},
			{Name: "Caprese Salad", Price: 14},
			{Name: "Spaghetti Carbonara", Price: 22},
			{Name: "Margherita Pizza", Price: 18},
		},
	},
	{
		ID:          "sakura-japanese",
		Name:        "Sakura Japanese",
		Cuisine:     "Japanese",
		Price:       models.PriceUpscale,
		Location:    "Midtown",
		Address:     "456 Oak Ave",
		Rating:      4.8,
		Features:    []string{"parking", "sushi_bar", "private_rooms"},
		OpeningTime: "12:00",
		ClosingTime: "22:00",
		Tables: []models.Table{
			{ID: "t1", Seats: 2}, {ID: "t2", Seats: 2},
			{ID: "t3", Seats: 4}, {ID: "t4", Seats: 6},
		},
		Menu: []models.MenuItem{
			{Name: "Dragon Roll", Price: 18},
			{Name: "Salmon Nigiri", Price: 8},
			{Name: "Teriyaki Chicken", Price: 24},
			{Name: "Ramen", Price: 16},
		},
	},
	{
		ID:          "spice-garden",
		Name:        "Spice Garden",
		Cuisine:     "Indian",
		Price:       models.PriceModerate,
		Location:    "Uptown",
		Address:     "789 Spice Lane",
		Rating:      4.6,
		Features:    []string{"parking", "buffet", "private_rooms", "catering"},
		OpeningTime: "11:30",
		ClosingTime: "22:30",
		Tables: []models.Table{
			{ID: "t1", Seats: 2}, {ID: "t2", Seats: 4},
			{ID: "t3", Seats: 4}, {ID: "t4", Seats: 6},
			{ID: "t5", Seats: 10},
		},
		Menu: []models.MenuItem{
			{Name: "Samosa", Price: 8},
			{Name: "Pakora", Price: 9},
			{Name: "Butter Chicken", Price: 20},
			{Name: "Vegetable Biryani", Price: 18},
		},
	},
}

// Seed loads the starter catalog when the store is empty. It is a no-op
// on a populated catalog so restarts never duplicate records.
func (s *Service) Seed(ctx context.Context) error {
	existing, err := s.Repo.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for i := range seedData {
		r := seedData[i]
		if err := s.Create(ctx, &r); err != nil {
			return err
		}
	}
	s.Logger.Info("catalog seeded", zap.Int("restaurants", len(seedData)))
	return nil
}
