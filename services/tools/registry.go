package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tably/models"
	"tably/services/availability"
	"tably/services/catalog"
	"tably/services/ledger"
	"tably/services/profile"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// ValidationError rejects a tool call before it runs: unknown tool,
// malformed arguments, or arguments referencing state the conversation
// never saw.
type ValidationError struct {
	Tool   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Tool, e.Detail)
}

// NewValidationError builds a ValidationError.
func NewValidationError(tool, detail string) error {
	return &ValidationError{Tool: tool, Detail: detail}
}

// Result is a tool's structured outcome: text the planner can fold into
// the conversation, plus optional follow-up actions for the frontend.
type Result struct {
	Text    string
	Actions []models.SuggestedAction
}

// RunFunc executes a validated tool call against the session.
type RunFunc func(ctx context.Context, sess *models.ConversationSession, args []byte) (*Result, error)

// Tool pairs a spec with its implementation.
type Tool struct {
	Spec models.ToolSpec
	Run  RunFunc
}

// Registry holds the tools exposed to the planner. Schemas are compiled
// once at registration; every call is validated before dispatch.
type Registry struct {
	tools    map[string]*Tool
	schemas  map[string]*gojsonschema.Schema
	order    []string
	RetryMax int
	Logger   *zap.Logger
}

// NewRegistry creates an empty registry. retryMax bounds re-attempts of
// transient failures during Execute.
func NewRegistry(retryMax int, logger *zap.Logger) *Registry {
	if retryMax < 1 {
		retryMax = 1
	}
	return &Registry{
		tools:    make(map[string]*Tool),
		schemas:  make(map[string]*gojsonschema.Schema),
		RetryMax: retryMax,
		Logger:   logger,
	}
}

// Register adds a tool, compiling its argument schema. Registering the
// same name twice is a programming error.
func (r *Registry) Register(t *Tool) error {
	if _, dup := r.tools[t.Spec.Name]; dup {
		return fmt.Errorf("tool %s already registered", t.Spec.Name)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(t.Spec.Schema))
	if err != nil {
		return fmt.Errorf("tool %s has invalid schema: %w", t.Spec.Name, err)
	}
	r.tools[t.Spec.Name] = t
	r.schemas[t.Spec.Name] = schema
	r.order = append(r.order, t.Spec.Name)
	return nil
}

// Specs lists the registered tool contracts in registration order, for
// the planner's function declarations.
func (r *Registry) Specs() []models.ToolSpec {
	specs := make([]models.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// Lookup returns the tool for a name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Validate checks a proposed call against the tool's schema. It returns
// a ValidationError the orchestrator can turn into a clarification
// prompt.
func (r *Registry) Validate(call *models.ToolCall) error {
	schema, ok := r.schemas[call.Name]
	if !ok {
		return NewValidationError(call.Name, "unknown tool")
	}
	args := call.Args
	if len(args) == 0 {
		args = []byte("{}")
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return NewValidationError(call.Name, fmt.Sprintf("arguments are not valid JSON: %v", err))
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return NewValidationError(call.Name, strings.Join(details, "; "))
	}
	return nil
}

// Execute validates and runs a call. Transient failures are retried up
// to RetryMax with a short backoff; domain errors surface immediately
// so the orchestrator can explain them to the user.
func (r *Registry) Execute(ctx context.Context, sess *models.ConversationSession, call *models.ToolCall) (*Result, error) {
	if err := r.Validate(call); err != nil {
		return nil, err
	}
	tool := r.tools[call.Name]

	var lastErr error
	for attempt := 1; attempt <= r.RetryMax; attempt++ {
		res, err := tool.Run(ctx, sess, call.Args)
		if err == nil {
			return res, nil
		}
		if isDomainError(err) {
			return nil, err
		}
		lastErr = err
		r.Logger.Warn("tool attempt failed",
			zap.String("tool", call.Name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < r.RetryMax {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
	}
	return nil, fmt.Errorf("tool %s failed after %d attempts: %w", call.Name, r.RetryMax, lastErr)
}

// isDomainError reports whether the error carries meaning for the user
// rather than signalling a transient infrastructure fault. Domain
// errors must not be retried: re-running a booking that lost its slot
// cannot succeed and may double-charge the invariant checks.
func isDomainError(err error) bool {
	var (
		validation     *ValidationError
		slotConflict   *ledger.SlotConflictError
		holdExpired    *ledger.HoldExpiredError
		holdConflict   *availability.ConflictError
		capacity       *availability.CapacityError
		resNotFound    *ledger.NotFoundError
		notOwner       *ledger.NotOwnerError
		statusConflict *ledger.StatusConflictError
		restNotFound   *catalog.NotFoundError
		userNotFound   *profile.NotFoundError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &slotConflict) ||
		errors.As(err, &holdExpired) ||
		errors.As(err, &holdConflict) ||
		errors.As(err, &capacity) ||
		errors.As(err, &resNotFound) ||
		errors.As(err, &notOwner) ||
		errors.As(err, &statusConflict) ||
		errors.As(err, &restNotFound) ||
		errors.As(err, &userNotFound)
}
