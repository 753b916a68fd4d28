package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	catalogRepo "tably/database/repository/catalog"
	"tably/models"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/ledger"
	"tably/services/profile"
)

// Deps are the domain services the builtin tools execute against.
type Deps struct {
	Catalog  *catalog.Service
	Engine   *availability.Engine
	Ledger   *ledger.Service
	Profiles *profile.Resolver
}

// RegisterBuiltin wires the full tool set into the registry.
func RegisterBuiltin(reg *Registry, d Deps) error {
	all := []*Tool{
		searchRestaurantsTool(d),
		restaurantDetailsTool(d),
		checkAvailabilityTool(d),
		makeReservationTool(d),
		recommendationsTool(d),
		cancelReservationTool(d),
		userReservationsTool(d),
		updatePreferencesTool(d),
	}
	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func searchRestaurantsTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "search_restaurants",
			Description: "Search for restaurants by cuisine, location, price tier or features",
			Schema: `{
				"type": "object",
				"properties": {
					"cuisine":  {"type": "string"},
					"location": {"type": "string"},
					"price":    {"type": "string", "enum": ["$", "$$", "$$$"]},
					"features": {"type": "array", "items": {"type": "string"}}
				},
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, _ *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				Cuisine  string   `json:"cuisine"`
				Location string   `json:"location"`
				Price    string   `json:"price"`
				Features []string `json:"features"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("search_restaurants", err.Error())
			}
			results, err := d.Catalog.Search(ctx, catalogRepo.Filter{
				Cuisine:  a.Cuisine,
				Location: a.Location,
				Price:    models.PriceTier(a.Price),
				Features: a.Features,
			})
			if err != nil {
				return nil, err
			}
			if len(results) == 0 {
				return &Result{Text: "No restaurants match those criteria."}, nil
			}
			if len(results) > 10 {
				results = results[:10]
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Found %d restaurant(s):\n", len(results))
			for _, r := range results {
				fmt.Fprintf(&b, "- %s (%s, %s, %s, rated %.1f) [id: %s]\n",
					r.Name, r.Cuisine, r.Location, r.Price, r.Rating, r.ID)
			}
			return &Result{Text: b.String()}, nil
		},
	}
}

func restaurantDetailsTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "get_restaurant_details",
			Description: "Get full details for one restaurant: hours, features, tables and menu",
			Schema: `{
				"type": "object",
				"properties": {
					"restaurant_id": {"type": "string", "minLength": 1}
				},
				"required": ["restaurant_id"],
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, _ *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				RestaurantID string `json:"restaurant_id"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("get_restaurant_details", err.Error())
			}
			r, err := d.Catalog.Get(ctx, a.RestaurantID)
			if err != nil {
				return nil, err
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s: %s cuisine in %s (%s), rated %.1f. Open %s to %s.\n",
				r.Name, r.Cuisine, r.Location, r.Price, r.Rating, r.OpeningTime, r.ClosingTime)
			if r.Address != "" {
				fmt.Fprintf(&b, "Address: %s\n", r.Address)
			}
			if len(r.Features) > 0 {
				fmt.Fprintf(&b, "Features: %s\n", strings.Join(r.Features, ", "))
			}
			fmt.Fprintf(&b, "Largest table seats %d.\n", r.MaxSeats())
			if len(r.Menu) > 0 {
				b.WriteString("Menu highlights:\n")
				for _, item := range r.Menu {
					fmt.Fprintf(&b, "- %s ($%.0f)\n", item.Name, item.Price)
				}
			}
			return &Result{Text: b.String()}, nil
		},
	}
}

func checkAvailabilityTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "check_availability",
			Description: "List free table slots for a restaurant, date and party size, optionally within a time window",
			Schema: `{
				"type": "object",
				"properties": {
					"restaurant_id": {"type": "string", "minLength": 1},
					"date":          {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
					"party_size":    {"type": "integer", "minimum": 1},
					"time_from":     {"type": "string", "pattern": "^\\d{2}:\\d{2}$"},
					"time_to":       {"type": "string", "pattern": "^\\d{2}:\\d{2}$"}
				},
				"required": ["restaurant_id", "date", "party_size"],
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				RestaurantID string `json:"restaurant_id"`
				Date         string `json:"date"`
				PartySize    int    `json:"party_size"`
				TimeFrom     string `json:"time_from"`
				TimeTo       string `json:"time_to"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("check_availability", err.Error())
			}
			slots, err := d.Engine.FindSlots(ctx, a.RestaurantID, a.Date,
				availability.TimeWindow{From: a.TimeFrom, To: a.TimeTo}, a.PartySize)
			if err != nil {
				return nil, err
			}
			if len(slots) == 0 {
				return &Result{
					Text: fmt.Sprintf("No free tables for %d on %s.", a.PartySize, a.Date),
				}, nil
			}

			// The session remembers what it saw so a later booking can be
			// checked against slots this conversation actually surfaced.
			sess.RememberSlots(slots)

			var b strings.Builder
			fmt.Fprintf(&b, "Free slots for %d on %s:\n", a.PartySize, a.Date)
			actions := make([]models.SuggestedAction, 0, len(slots))
			for _, s := range slots {
				fmt.Fprintf(&b, "- %s, table %s (seats %d) [slot: %s]\n", s.Time, s.TableID, s.Seats, s.Key())
				actions = append(actions, models.SuggestedAction{
					Label:        fmt.Sprintf("%s, table for %d", s.Time, s.Seats),
					Type:         "select_slot",
					SlotKey:      s.Key(),
					RestaurantID: s.RestaurantID,
				})
			}
			return &Result{Text: b.String(), Actions: actions}, nil
		},
	}
}

func makeReservationTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "make_reservation",
			Description: "Book a previously offered slot for the user. Requires confirmation.",
			SideEffect:  true,
			Schema: `{
				"type": "object",
				"properties": {
					"slot_key":         {"type": "string", "minLength": 1},
					"party_size":       {"type": "integer", "minimum": 1},
					"special_requests": {"type": "string"}
				},
				"required": ["slot_key", "party_size"],
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				SlotKey         string `json:"slot_key"`
				PartySize       int    `json:"party_size"`
				SpecialRequests string `json:"special_requests"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("make_reservation", err.Error())
			}
			if sess.UserID == "" {
				return nil, NewValidationError("make_reservation", "no resolved user on this session")
			}
			// A booking must reference a slot this conversation was shown;
			// anything else forces a fresh availability check instead of
			// guessing.
			slot, seen := sess.SeenSlot(a.SlotKey)
			if !seen {
				return nil, NewValidationError("make_reservation",
					fmt.Sprintf("slot %s was never offered in this conversation, check availability first", a.SlotKey))
			}
			if sess.Pending == nil || sess.Pending.IdempotencyKey == "" {
				return nil, NewValidationError("make_reservation", "booking requires a confirmed proposal")
			}

			hold, err := d.Engine.Hold(ctx, slot, a.PartySize)
			if err != nil {
				return nil, err
			}
			res, err := d.Ledger.Commit(ctx, hold, sess.UserID, sess.Pending.IdempotencyKey, a.SpecialRequests)
			if err != nil {
				return nil, err
			}
			if err := d.Profiles.AppendHistory(ctx, sess.UserID, res.ID); err != nil {
				// The booking stands; history is best-effort.
				d.Engine.Logger.Warn("failed to append booking to profile history")
			}
			return &Result{
				Text: fmt.Sprintf("Reservation %s confirmed: table %s at %s on %s for %d.",
					res.ID, res.Slot.TableID, res.Slot.Time, res.Slot.Date, res.PartySize),
			}, nil
		},
	}
}

func recommendationsTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "get_recommendations",
			Description: "Recommend restaurants from the user's stored preferences, optionally refined by cuisine, location, price or occasion",
			Schema: `{
				"type": "object",
				"properties": {
					"cuisine":  {"type": "string"},
					"location": {"type": "string"},
					"price":    {"type": "string", "enum": ["$", "$$", "$$$"]},
					"occasion": {"type": "string"},
					"limit":    {"type": "integer", "minimum": 1, "maximum": 10}
				},
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				Cuisine  string `json:"cuisine"`
				Location string `json:"location"`
				Price    string `json:"price"`
				Occasion string `json:"occasion"`
				Limit    int    `json:"limit"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("get_recommendations", err.Error())
			}

			prefs := catalog.Preferences{
				Location: a.Location,
				Price:    models.PriceTier(a.Price),
				Occasion: a.Occasion,
			}
			if a.Cuisine != "" {
				prefs.Cuisines = []string{a.Cuisine}
			}
			// Stored preferences fill in whatever the request left blank.
			if sess.UserID != "" {
				if p, err := d.Profiles.Get(ctx, sess.UserID); err == nil {
					if len(prefs.Cuisines) == 0 {
						prefs.Cuisines = p.Cuisines
					}
					prefs.Dietary = p.Dietary
				}
			}

			recs, err := d.Catalog.Recommend(ctx, prefs, a.Limit)
			if err != nil {
				return nil, err
			}
			if len(recs) == 0 {
				return &Result{Text: "No recommendations available yet."}, nil
			}
			var b strings.Builder
			b.WriteString("You might like:\n")
			for _, r := range recs {
				fmt.Fprintf(&b, "- %s (%s, %s, rated %.1f) [id: %s]\n",
					r.Name, r.Cuisine, r.Price, r.Rating, r.ID)
			}
			return &Result{Text: b.String()}, nil
		},
	}
}

func cancelReservationTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "cancel_reservation",
			Description: "Cancel one of the user's reservations. Requires confirmation.",
			SideEffect:  true,
			Schema: `{
				"type": "object",
				"properties": {
					"reservation_id": {"type": "string", "minLength": 1}
				},
				"required": ["reservation_id"],
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				ReservationID string `json:"reservation_id"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("cancel_reservation", err.Error())
			}
			if sess.UserID == "" {
				return nil, NewValidationError("cancel_reservation", "no resolved user on this session")
			}
			res, err := d.Ledger.Cancel(ctx, a.ReservationID, sess.UserID)
			if err != nil {
				return nil, err
			}
			return &Result{
				Text: fmt.Sprintf("Reservation %s for %s on %s has been cancelled.",
					res.ID, res.Slot.Time, res.Slot.Date),
			}, nil
		},
	}
}

func userReservationsTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "get_user_reservations",
			Description: "List the user's reservations, newest first",
			Schema: `{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, _ []byte) (*Result, error) {
			if sess.UserID == "" {
				return nil, NewValidationError("get_user_reservations", "no resolved user on this session")
			}
			all, err := d.Ledger.ListByUser(ctx, sess.UserID)
			if err != nil {
				return nil, err
			}
			if len(all) == 0 {
				return &Result{Text: "You have no reservations."}, nil
			}
			var b strings.Builder
			b.WriteString("Your reservations:\n")
			for _, r := range all {
				fmt.Fprintf(&b, "- %s: %s at %s on %s for %d (%s)\n",
					r.ID, r.RestaurantID, r.Slot.Time, r.Slot.Date, r.PartySize, r.Status)
			}
			return &Result{Text: b.String()}, nil
		},
	}
}

func updatePreferencesTool(d Deps) *Tool {
	return &Tool{
		Spec: models.ToolSpec{
			Name:        "update_user_preferences",
			Description: "Remember the user's dietary restrictions and preferred cuisines for future recommendations",
			Schema: `{
				"type": "object",
				"properties": {
					"dietary":  {"type": "array", "items": {"type": "string"}},
					"cuisines": {"type": "array", "items": {"type": "string"}}
				},
				"additionalProperties": false
			}`,
		},
		Run: func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error) {
			var a struct {
				Dietary  []string `json:"dietary"`
				Cuisines []string `json:"cuisines"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, NewValidationError("update_user_preferences", err.Error())
			}
			if sess.UserID == "" {
				return nil, NewValidationError("update_user_preferences", "no resolved user on this session")
			}
			if len(a.Dietary) == 0 && len(a.Cuisines) == 0 {
				return nil, NewValidationError("update_user_preferences", "nothing to update")
			}
			p, err := d.Profiles.UpdatePreferences(ctx, sess.UserID, a.Dietary, a.Cuisines)
			if err != nil {
				return nil, err
			}
			var parts []string
			if len(p.Dietary) > 0 {
				parts = append(parts, "dietary: "+strings.Join(p.Dietary, ", "))
			}
			if len(p.Cuisines) > 0 {
				parts = append(parts, "cuisines: "+strings.Join(p.Cuisines, ", "))
			}
			return &Result{Text: "Preferences saved (" + strings.Join(parts, "; ") + ")."}, nil
		},
	}
}
