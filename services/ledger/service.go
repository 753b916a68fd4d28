package ledger

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	ledgerRepo "tably/database/repository/ledger"
	"tably/models"
	"tably/services/availability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// slotLockStripes bounds the lock table; slots hash onto a fixed set of
// mutexes so the table never grows with traffic.
const slotLockStripes = 64

// Reminder schedules follow-up work for a committed reservation. The
// cron worker implements it; a nil Reminder disables scheduling.
type Reminder interface {
	ScheduleReminder(ctx context.Context, res *models.Reservation) error
	ScheduleCompletion(ctx context.Context, res *models.Reservation) error
}

// Service owns reservation lifecycle: commit under a valid hold, cancel,
// and completion. Per-slot striped locks serialize commits on the same
// slot, and the repository's conditional insert backs the invariant
// when multiple instances run.
type Service struct {
	Repo     ledgerRepo.LedgerRepository
	Holds    *availability.HoldStore
	Reminder Reminder
	Logger   *zap.Logger

	slotLocks [slotLockStripes]sync.Mutex
}

// NewService creates a ledger service. reminder may be nil.
func NewService(repo ledgerRepo.LedgerRepository, holds *availability.HoldStore, reminder Reminder, logger *zap.Logger) *Service {
	return &Service{Repo: repo, Holds: holds, Reminder: reminder, Logger: logger}
}

func (s *Service) lockFor(slotKey string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(slotKey))
	return &s.slotLocks[h.Sum32()%slotLockStripes]
}

// Commit turns a live hold into a confirmed reservation. The same
// idempotency key always yields the same reservation: a retried commit
// returns the original record instead of double-booking. The hold must
// still be live and owned by the given token.
func (s *Service) Commit(ctx context.Context, hold *models.HoldToken, userID, idemKey, specialRequests string) (*models.Reservation, error) {
	if idemKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	// Idempotency fast path before taking any lock.
	if existing, err := s.Repo.GetByIdempotencyKey(ctx, idemKey); err != nil {
		return nil, err
	} else if existing != nil {
		s.Logger.Info("commit replayed idempotently",
			zap.String("reservationId", existing.ID),
			zap.String("idempotencyKey", idemKey))
		return existing, nil
	}

	slotKey := hold.Slot.Key()
	mu := s.lockFor(slotKey)
	mu.Lock()
	defer mu.Unlock()

	// Re-check under the lock: a concurrent commit with the same key may
	// have won the race above.
	if existing, err := s.Repo.GetByIdempotencyKey(ctx, idemKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	live, err := s.Holds.Get(ctx, slotKey)
	if err != nil {
		return nil, err
	}
	if live == nil || live.Token != hold.Token {
		return nil, &HoldExpiredError{SlotKey: slotKey}
	}
	if live.PartySize > hold.Slot.Seats {
		return nil, &availability.CapacityError{SlotKey: slotKey, PartySize: live.PartySize, Seats: hold.Slot.Seats}
	}

	if taken, err := s.Repo.FindActiveBySlot(ctx, slotKey); err != nil {
		return nil, err
	} else if taken != nil {
		return nil, &SlotConflictError{SlotKey: slotKey}
	}

	now := time.Now()
	res := &models.Reservation{
		ID:              uuid.New().String(),
		RestaurantID:    hold.Slot.RestaurantID,
		Slot:            hold.Slot,
		SlotKey:         slotKey,
		PartySize:       live.PartySize,
		UserID:          userID,
		Status:          models.ReservationConfirmed,
		SpecialRequests: specialRequests,
		IdempotencyKey:  idemKey,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Insert(ctx, res); err != nil {
		if errors.Is(err, ledgerRepo.ErrSlotTaken) {
			return nil, &SlotConflictError{SlotKey: slotKey}
		}
		return nil, err
	}

	// The hold did its job; release it rather than waiting for the TTL.
	if err := s.Holds.Release(ctx, slotKey, hold.Token); err != nil {
		s.Logger.Warn("failed to release hold after commit",
			zap.String("slotKey", slotKey), zap.Error(err))
	}

	if s.Reminder != nil {
		if err := s.Reminder.ScheduleReminder(ctx, res); err != nil {
			s.Logger.Warn("failed to schedule reminder",
				zap.String("reservationId", res.ID), zap.Error(err))
		}
		if err := s.Reminder.ScheduleCompletion(ctx, res); err != nil {
			s.Logger.Warn("failed to schedule completion",
				zap.String("reservationId", res.ID), zap.Error(err))
		}
	}

	s.Logger.Info("reservation committed",
		zap.String("reservationId", res.ID),
		zap.String("slotKey", slotKey),
		zap.String("userId", userID))
	return res, nil
}

// Cancel transitions an active reservation to cancelled, freeing its
// slot. Only the owning user may cancel.
func (s *Service) Cancel(ctx context.Context, reservationID, userID string) (*models.Reservation, error) {
	res, err := s.Repo.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, ledgerRepo.ErrNotFound) {
			return nil, &NotFoundError{ReservationID: reservationID}
		}
		return nil, err
	}
	if res.UserID != userID {
		return nil, &NotOwnerError{ReservationID: reservationID, UserID: userID}
	}
	if !res.Status.Active() {
		return nil, &StatusConflictError{ReservationID: reservationID, Status: string(res.Status)}
	}

	if err := s.Repo.UpdateStatus(ctx, reservationID, res.Status, models.ReservationCancelled); err != nil {
		if errors.Is(err, ledgerRepo.ErrStatusConflict) {
			return nil, &StatusConflictError{ReservationID: reservationID, Status: string(res.Status)}
		}
		if errors.Is(err, ledgerRepo.ErrNotFound) {
			return nil, &NotFoundError{ReservationID: reservationID}
		}
		return nil, err
	}

	res.Status = models.ReservationCancelled
	res.UpdatedAt = time.Now()
	s.Logger.Info("reservation cancelled",
		zap.String("reservationId", reservationID),
		zap.String("userId", userID))
	return res, nil
}

// Complete marks a confirmed reservation completed once its slot has
// passed. The cron worker calls this; a reservation already cancelled
// or completed is left alone.
func (s *Service) Complete(ctx context.Context, reservationID string) error {
	err := s.Repo.UpdateStatus(ctx, reservationID, models.ReservationConfirmed, models.ReservationCompleted)
	if errors.Is(err, ledgerRepo.ErrStatusConflict) {
		return nil
	}
	if errors.Is(err, ledgerRepo.ErrNotFound) {
		return &NotFoundError{ReservationID: reservationID}
	}
	return err
}

// Get retrieves one reservation.
func (s *Service) Get(ctx context.Context, reservationID string) (*models.Reservation, error) {
	res, err := s.Repo.GetByID(ctx, reservationID)
	if errors.Is(err, ledgerRepo.ErrNotFound) {
		return nil, &NotFoundError{ReservationID: reservationID}
	}
	return res, err
}

// ListByUser retrieves the user's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.Repo.ListByUser(ctx, userID)
}
