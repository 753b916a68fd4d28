package models

import "time"

// PriceTier is the coarse price bucket shown to diners.
type PriceTier string

const (
	PriceBudget   PriceTier = "$"
	PriceModerate PriceTier = "$$"
	PriceUpscale  PriceTier = "$$$"
)

// Table is one bookable table in a restaurant's capacity layout.
type Table struct {
	ID    string `bson:"id" json:"id"`
	Seats int    `bson:"seats" json:"seats"`
}

// MenuItem is a single dish on a restaurant's menu.
type MenuItem struct {
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64 `bson:"price" json:"price"`
}

// Restaurant is a catalog record. It is immutable except via the
// administrative CRUD surface; reservations never touch it.
type Restaurant struct {
	ID          string     `bson:"id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Cuisine     string     `bson:"cuisine" json:"cuisine"`
	Price       PriceTier  `bson:"price" json:"price"`
	Location    string     `bson:"location" json:"location"`
	Address     string     `bson:"address,omitempty" json:"address,omitempty"`
	Rating      float64    `bson:"rating" json:"rating"`
	Features    []string   `bson:"features,omitempty" json:"features,omitempty"`
	Tables      []Table    `bson:"tables" json:"tables"`
	OpeningTime string     `bson:"openingTime" json:"openingTime"` // "HH:MM", local to the restaurant
	ClosingTime string     `bson:"closingTime" json:"closingTime"`
	Menu        []MenuItem `bson:"menu,omitempty" json:"menu,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}

// Table returns the table with the given id, if present.
func (r *Restaurant) Table(id string) (Table, bool) {
	for _, t := range r.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// MaxSeats returns the largest table capacity in the layout.
func (r *Restaurant) MaxSeats() int {
	max := 0
	for _, t := range r.Tables {
		if t.Seats > max {
			max = t.Seats
		}
	}
	return max
}
