package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"tably/models"
	"tably/services/availability"
	"tably/services/intelligence"
	"tably/services/ledger"
	"tably/services/profile"
	"tably/services/tools"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionExpired is returned when a message references a session that
// timed out; the caller should start a new one.
var ErrSessionExpired = errors.New("session has expired")

const sessionLockStripes = 64

// Orchestrator is the control center of a conversation: it owns session
// state, asks the planner for a decision, validates and dispatches tool
// calls, and folds results back into the conversation. Messages within
// one session are handled strictly sequentially; sessions run in
// parallel.
type Orchestrator struct {
	Store    *SessionStore
	Planner  intelligence.Planner
	Registry *tools.Registry
	Profiles *profile.Resolver
	Logger   *zap.Logger

	// Striped by session id, so expired sessions leave nothing behind.
	sessionLocks [sessionLockStripes]sync.Mutex
}

// New creates an orchestrator.
func New(store *SessionStore, planner intelligence.Planner, registry *tools.Registry, profiles *profile.Resolver, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Store:    store,
		Planner:  planner,
		Registry: registry,
		Profiles: profiles,
		Logger:   logger,
	}
}

// sessionLock serializes message handling per session id.
func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &o.sessionLocks[h.Sum32()%sessionLockStripes]
}

// StartSession resolves the user from their contact signal and opens a
// fresh conversation. The greeting distinguishes new from returning
// users.
func (o *Orchestrator) StartSession(ctx context.Context, contact, name string) (*models.ChatReply, error) {
	sess := &models.ConversationSession{
		ID:         uuid.New().String(),
		State:      models.StateIdle,
		LastActive: time.Now(),
	}
	if err := o.transition(sess, models.StateResolving); err != nil {
		return nil, err
	}

	user, isNew, err := o.Profiles.Resolve(ctx, contact, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	sess.UserID = user.ID
	sess.NewUser = isNew

	if err := o.transition(sess, models.StateAwaitingIntent); err != nil {
		return nil, err
	}

	greeting := "Welcome back"
	if isNew {
		greeting = "Welcome"
	}
	if user.Name != "" {
		greeting += ", " + user.Name
	}
	greeting += "! I can find restaurants, check tables and make reservations. What are you in the mood for?"
	sess.Append(models.RoleAssistant, greeting)

	if err := o.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	o.Logger.Info("session started",
		zap.String("sessionId", sess.ID),
		zap.String("userId", user.ID),
		zap.Bool("newUser", isNew))
	return &models.ChatReply{SessionID: sess.ID, Text: greeting, State: sess.State}, nil
}

// HandleMessage processes one inbound user message against its session.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string) (*models.ChatReply, error) {
	lock := o.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := o.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionExpired
	}

	sess.Append(models.RoleUser, message)

	reply, err := o.step(ctx, sess)
	if err != nil {
		return nil, err
	}

	if err := o.settle(sess); err != nil {
		return nil, err
	}
	if err := o.Store.Save(ctx, sess); err != nil {
		return nil, err
	}

	reply.SessionID = sess.ID
	reply.State = sess.State
	return reply, nil
}

// step runs one planner turn and whatever it decides.
func (o *Orchestrator) step(ctx context.Context, sess *models.ConversationSession) (*models.ChatReply, error) {
	decision, err := o.Planner.Decide(ctx, sess, o.Registry.Specs())
	if err != nil {
		return nil, fmt.Errorf("planner failed: %w", err)
	}

	if sess.Pending != nil {
		return o.stepPending(ctx, sess, decision)
	}

	switch decision.Kind {
	case models.DecideToolCall:
		return o.proposeCall(ctx, sess, decision.Call)
	case models.DecideReply:
		sess.Append(models.RoleAssistant, decision.Reply)
		if err := o.transition(sess, models.StateResponding); err != nil {
			return nil, err
		}
		return &models.ChatReply{Text: decision.Reply}, nil
	default:
		// Confirm/decline with nothing pending is planner noise.
		text := "There is nothing awaiting confirmation. What would you like to do?"
		sess.Append(models.RoleAssistant, text)
		if err := o.transition(sess, models.StateResponding); err != nil {
			return nil, err
		}
		return &models.ChatReply{Text: text}, nil
	}
}

// stepPending handles the confirmation turn of a side-effecting call.
func (o *Orchestrator) stepPending(ctx context.Context, sess *models.ConversationSession, decision *models.PlannerDecision) (*models.ChatReply, error) {
	switch decision.Kind {
	case models.DecideConfirm:
		if err := o.transition(sess, models.StateToolConfirmed); err != nil {
			return nil, err
		}
		return o.executeCall(ctx, sess, &sess.Pending.Call)

	case models.DecideDecline:
		sess.Pending = nil
		if err := o.transition(sess, models.StateAwaitingIntent); err != nil {
			return nil, err
		}
		text := "Okay, I won't go ahead with that. Anything else?"
		sess.Append(models.RoleAssistant, text)
		if err := o.transition(sess, models.StateResponding); err != nil {
			return nil, err
		}
		return &models.ChatReply{Text: text}, nil

	default:
		// Not an answer; the proposal stays pending across turns.
		text := decision.Reply
		if text == "" {
			text = "Should I go ahead? Please answer yes or no."
		}
		sess.Append(models.RoleAssistant, text)
		return &models.ChatReply{Text: text, Actions: confirmActions()}, nil
	}
}

// proposeCall validates a planner tool call. Side-effecting tools are
// suspended behind a confirmation turn with a freshly minted
// idempotency key; read-only tools run immediately.
func (o *Orchestrator) proposeCall(ctx context.Context, sess *models.ConversationSession, call *models.ToolCall) (*models.ChatReply, error) {
	if err := o.Registry.Validate(call); err != nil {
		var verr *tools.ValidationError
		if errors.As(err, &verr) {
			// Validation failure is recovered locally: stay in
			// AwaitingIntent and ask for clarification.
			o.Logger.Info("tool call rejected",
				zap.String("sessionId", sess.ID),
				zap.String("tool", call.Name),
				zap.String("detail", verr.Detail))
			text := "I could not act on that: " + verr.Detail + ". Could you rephrase?"
			sess.Append(models.RoleAssistant, text)
			return &models.ChatReply{Text: text}, nil
		}
		return nil, err
	}

	tool, _ := o.Registry.Lookup(call.Name)
	if !tool.Spec.SideEffect {
		if err := o.transition(sess, models.StateToolExecuting); err != nil {
			return nil, err
		}
		return o.finishExecution(ctx, sess, call)
	}

	if err := o.transition(sess, models.StateToolProposed); err != nil {
		return nil, err
	}
	sess.Pending = &models.PendingCall{
		Call:           *call,
		IdempotencyKey: uuid.New().String(),
		ProposedAt:     time.Now(),
	}
	text := fmt.Sprintf("I'm about to run %s with %s. Shall I go ahead?", call.Name, string(call.Args))
	sess.Append(models.RoleAssistant, text)
	return &models.ChatReply{Text: text, Actions: confirmActions()}, nil
}

// executeCall runs a confirmed side-effecting call.
func (o *Orchestrator) executeCall(ctx context.Context, sess *models.ConversationSession, call *models.ToolCall) (*models.ChatReply, error) {
	if err := o.transition(sess, models.StateToolExecuting); err != nil {
		return nil, err
	}
	return o.finishExecution(ctx, sess, call)
}

// finishExecution dispatches the call and folds its outcome, success or
// typed failure, into the conversation as a structured fact.
func (o *Orchestrator) finishExecution(ctx context.Context, sess *models.ConversationSession, call *models.ToolCall) (*models.ChatReply, error) {
	result, err := o.Registry.Execute(ctx, sess, call)

	if err == nil && sess.Pending != nil && sess.Pending.Call.Name == call.Name {
		sess.Pending = nil
	}
	if transErr := o.transition(sess, models.StateResponding); transErr != nil {
		return nil, transErr
	}

	if err != nil {
		return o.foldError(sess, call, err)
	}

	fact, _ := json.Marshal(map[string]string{"tool": call.Name, "outcome": result.Text})
	sess.Append(models.RoleTool, string(fact))
	sess.Append(models.RoleAssistant, result.Text)
	return &models.ChatReply{Text: result.Text, Actions: result.Actions}, nil
}

// foldError turns a tool failure into a conversational fact. Errors are
// never swallowed and never crash the session.
func (o *Orchestrator) foldError(sess *models.ConversationSession, call *models.ToolCall, err error) (*models.ChatReply, error) {
	var (
		slotConflict  *ledger.SlotConflictError
		holdExpired   *ledger.HoldExpiredError
		holdConflict  *availability.ConflictError
		capacity      *availability.CapacityError
		notFound      *ledger.NotFoundError
		notOwner      *ledger.NotOwnerError
		status        *ledger.StatusConflictError
		validation    *tools.ValidationError
		text          string
		actions       []models.SuggestedAction
		clearsPending = true
	)

	switch {
	case errors.As(err, &slotConflict), errors.As(err, &holdConflict):
		text = "That slot is no longer available. Want me to check availability again?"
		actions = []models.SuggestedAction{{Label: "Check availability again", Type: "search"}}
	case errors.As(err, &capacity):
		text = fmt.Sprintf("That table seats %d, so a party of %d won't fit. Want me to look for a bigger table?", capacity.Seats, capacity.PartySize)
		actions = []models.SuggestedAction{{Label: "Check availability again", Type: "search"}}
	case errors.As(err, &holdExpired):
		text = "That offer expired while we were talking. Let me re-check availability for you."
		actions = []models.SuggestedAction{{Label: "Check availability again", Type: "search"}}
	case errors.As(err, &notFound), errors.As(err, &notOwner):
		text = "I'm sorry, I can't do that: " + err.Error()
	case errors.As(err, &status):
		text = "That reservation can't be changed anymore: " + err.Error()
	case errors.As(err, &validation):
		text = "I could not act on that: " + validation.Detail + ". Could you rephrase?"
	default:
		// Transient failure after exhausted retries; keep the proposal so
		// the user can simply try again.
		clearsPending = false
		text = "Something went wrong on our side. Please try again in a moment."
		o.Logger.Error("tool execution failed",
			zap.String("sessionId", sess.ID),
			zap.String("tool", call.Name),
			zap.Error(err))
	}

	if clearsPending {
		sess.Pending = nil
	}
	fact, _ := json.Marshal(map[string]string{"tool": call.Name, "error": err.Error()})
	sess.Append(models.RoleTool, string(fact))
	sess.Append(models.RoleAssistant, text)
	return &models.ChatReply{Text: text, Actions: actions}, nil
}

// settle parks the session in a persistable state for the next message:
// ToolProposed while a confirmation is outstanding, AwaitingIntent
// otherwise.
func (o *Orchestrator) settle(sess *models.ConversationSession) error {
	target := models.StateAwaitingIntent
	if sess.Pending != nil {
		target = models.StateToolProposed
	}
	if sess.State == target {
		return nil
	}
	return o.transition(sess, target)
}

// EndSession drops a session explicitly.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	return o.Store.Delete(ctx, sessionID)
}

func confirmActions() []models.SuggestedAction {
	return []models.SuggestedAction{
		{Label: "Yes, go ahead", Type: "confirm"},
		{Label: "No, not now", Type: "decline"},
	}
}
