package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	catalogRepo "tably/database/repository/catalog"
	ledgerRepo "tably/database/repository/ledger"
	"tably/models"

	"go.uber.org/zap"
)

// slotStepMin is the grid on which seating times are offered.
const slotStepMin = 30

// maxResults caps one availability answer; the caller can narrow the
// window to page through a busy day.
const maxResults = 20

// TimeWindow narrows a search to part of the day. Zero values mean the
// restaurant's full opening hours.
type TimeWindow struct {
	From string // "15:04"
	To   string
}

// Engine computes free slots and places holds. It never writes to the
// ledger; slot status is derived from active reservations and live
// holds.
type Engine struct {
	Catalog catalogRepo.CatalogRepository
	Ledger  ledgerRepo.LedgerRepository
	Holds   *HoldStore
	HoldTTL time.Duration
	Logger  *zap.Logger
}

// FindSlots returns the free slots for the restaurant, date and window
// that can seat the party. The order is deterministic: exact capacity
// matches first, then earliest time, then lowest table id. A party too
// large for every table yields an empty result, not an error.
func (e *Engine) FindSlots(ctx context.Context, restaurantID, date string, window TimeWindow, partySize int) ([]models.Slot, error) {
	if partySize < 1 {
		return nil, fmt.Errorf("party size must be positive, got %d", partySize)
	}

	rest, err := e.Catalog.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if partySize > rest.MaxSeats() {
		return nil, nil
	}

	times, err := seatingTimes(rest, window)
	if err != nil {
		return nil, err
	}

	active, err := e.Ledger.ListActiveByRestaurantDate(ctx, restaurantID, date)
	if err != nil {
		return nil, err
	}
	booked := make(map[string]bool, len(active))
	for _, res := range active {
		booked[res.SlotKey] = true
	}

	var free []models.Slot
	for _, tbl := range rest.Tables {
		if tbl.Seats < partySize {
			continue
		}
		for _, t := range times {
			slot := models.Slot{
				RestaurantID: restaurantID,
				TableID:      tbl.ID,
				Date:         date,
				Time:         t,
				DurationMin:  models.DefaultSlotDurationMin,
				Seats:        tbl.Seats,
			}
			if booked[slot.Key()] {
				continue
			}
			hold, err := e.Holds.Get(ctx, slot.Key())
			if err != nil {
				return nil, err
			}
			if hold != nil {
				continue
			}
			free = append(free, slot)
		}
	}

	sort.Slice(free, func(i, j int) bool {
		exactI := free[i].Seats == partySize
		exactJ := free[j].Seats == partySize
		if exactI != exactJ {
			return exactI
		}
		if free[i].Time != free[j].Time {
			return free[i].Time < free[j].Time
		}
		return free[i].TableID < free[j].TableID
	})

	if len(free) > maxResults {
		free = free[:maxResults]
	}

	e.Logger.Debug("availability computed",
		zap.String("restaurantId", restaurantID),
		zap.String("date", date),
		zap.Int("partySize", partySize),
		zap.Int("freeSlots", len(free)))
	return free, nil
}

// Hold places an exclusive hold on the slot. It fails with a
// ConflictError when the slot is booked or already held.
func (e *Engine) Hold(ctx context.Context, slot models.Slot, partySize int) (*models.HoldToken, error) {
	if partySize > slot.Seats {
		return nil, &CapacityError{SlotKey: slot.Key(), PartySize: partySize, Seats: slot.Seats}
	}

	existing, err := e.Ledger.FindActiveBySlot(ctx, slot.Key())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError(slot.Key())
	}

	return e.Holds.Acquire(ctx, slot, partySize, e.HoldTTL)
}

// seatingTimes expands the restaurant's opening hours into the seating
// grid, clipped to the window. The last seating still finishes before
// closing.
func seatingTimes(rest *models.Restaurant, window TimeWindow) ([]string, error) {
	open, err := parseClock(rest.OpeningTime)
	if err != nil {
		return nil, fmt.Errorf("restaurant %s has invalid opening time: %w", rest.ID, err)
	}
	clos, err := parseClock(rest.ClosingTime)
	if err != nil {
		return nil, fmt.Errorf("restaurant %s has invalid closing time: %w", rest.ID, err)
	}

	from, to := open, clos
	if window.From != "" {
		w, err := parseClock(window.From)
		if err != nil {
			return nil, fmt.Errorf("invalid window start: %w", err)
		}
		if w > from {
			from = w
		}
	}
	if window.To != "" {
		w, err := parseClock(window.To)
		if err != nil {
			return nil, fmt.Errorf("invalid window end: %w", err)
		}
		if w < to {
			to = w
		}
	}

	var times []string
	for m := from; m+models.DefaultSlotDurationMin <= clos && m <= to; m += slotStepMin {
		times = append(times, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return times, nil
}

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
