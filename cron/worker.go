package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tably/config"
	"tably/models"
	"tably/services/ledger"
	"tably/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeReservationRemind   = "reservation:remind"
	TypeReservationComplete = "reservation:complete"
)

// taskPayload identifies the reservation a scheduled task acts on.
type taskPayload struct {
	ReservationID string `json:"reservationId"`
	UserID        string `json:"userId"`
	SlotKey       string `json:"slotKey"`
}

// Scheduler enqueues delayed reservation tasks. It satisfies the ledger
// service's Reminder interface.
type Scheduler struct {
	client       *asynq.Client
	reminderLead time.Duration
	logger       *zap.Logger
}

// NewScheduler creates a scheduler on the queue Redis DB.
func NewScheduler(logger *zap.Logger) *Scheduler {
	client := asynq.NewClient(queueRedisOpt())
	lead := time.Duration(config.AppConfig.ReminderLeadHr) * time.Hour
	return &Scheduler{client: client, reminderLead: lead, logger: logger}
}

func queueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// ScheduleReminder enqueues a reminder ahead of the reservation's slot.
// A slot starting inside the lead window gets no reminder.
func (s *Scheduler) ScheduleReminder(_ context.Context, res *models.Reservation) error {
	startsAt, err := res.Slot.StartsAt(time.Local)
	if err != nil {
		return fmt.Errorf("reservation %s has invalid slot time: %w", res.ID, err)
	}
	fireAt := startsAt.Add(-s.reminderLead)
	if fireAt.Before(time.Now()) {
		return nil
	}
	task, err := newTask(TypeReservationRemind, res)
	if err != nil {
		return err
	}
	if _, err := s.client.Enqueue(task, asynq.ProcessAt(fireAt)); err != nil {
		return fmt.Errorf("failed to enqueue reminder for %s: %w", res.ID, err)
	}
	s.logger.Debug("reminder scheduled",
		zap.String("reservationId", res.ID),
		zap.Time("fireAt", fireAt))
	return nil
}

// ScheduleCompletion enqueues the status flip to completed at the end
// of the reservation's slot.
func (s *Scheduler) ScheduleCompletion(_ context.Context, res *models.Reservation) error {
	endsAt, err := res.Slot.EndsAt(time.Local)
	if err != nil {
		return fmt.Errorf("reservation %s has invalid slot time: %w", res.ID, err)
	}
	task, err := newTask(TypeReservationComplete, res)
	if err != nil {
		return err
	}
	if _, err := s.client.Enqueue(task, asynq.ProcessAt(endsAt)); err != nil {
		return fmt.Errorf("failed to enqueue completion for %s: %w", res.ID, err)
	}
	return nil
}

// Close releases the underlying queue connection.
func (s *Scheduler) Close() error {
	return s.client.Close()
}

func newTask(taskType string, res *models.Reservation) (*asynq.Task, error) {
	b, err := json.Marshal(taskPayload{
		ReservationID: res.ID,
		UserID:        res.UserID,
		SlotKey:       res.SlotKey,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, b), nil
}

// InitWorker runs the async queue worker in the background.
func InitWorker(ledgerSvc *ledger.Service) {
	logger := utils.GetLogger()

	srv := asynq.NewServer(queueRedisOpt(), asynq.Config{
		Concurrency: 10,
		Queues:      map[string]int{"default": 1},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReservationRemind, handleReminderTask(logger))
	mux.HandleFunc(TypeReservationComplete, handleCompletionTask(ledgerSvc, logger))

	go func() {
		logger.Info("starting reservation queue worker")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("queue worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))
				if attempts == maxAttempts {
					logger.Fatal("queue worker exhausted start attempts")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleReminderTask(logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p taskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}
		// Delivery channel (mail, push) is out of scope; the reminder is
		// logged so operators can verify the schedule end to end.
		logger.Info("reservation reminder due",
			zap.String("reservationId", p.ReservationID),
			zap.String("userId", p.UserID),
			zap.String("slotKey", p.SlotKey))
		return nil
	}
}

func handleCompletionTask(ledgerSvc *ledger.Service, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p taskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid completion payload", zap.Error(err))
			return err
		}
		if err := ledgerSvc.Complete(ctx, p.ReservationID); err != nil {
			logger.Warn("failed to complete reservation",
				zap.String("reservationId", p.ReservationID), zap.Error(err))
			return err
		}
		logger.Info("reservation completed",
			zap.String("reservationId", p.ReservationID))
		return nil
	}
}
