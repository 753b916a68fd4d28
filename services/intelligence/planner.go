package intelligence

import (
	"context"

	"tably/models"
)

// Confirmation pseudo-tools surfaced to the model only while a
// side-effecting call is awaiting the user's explicit go-ahead.
const (
	ConfirmTool = "confirm_booking"
	DeclineTool = "decline_booking"
)

// Planner turns the conversation so far into one decision: a plain
// reply, a tool call, or a confirm/decline of the pending call. The
// orchestrator treats every decision as untrusted and validates tool
// arguments before dispatch.
type Planner interface {
	Decide(ctx context.Context, sess *models.ConversationSession, specs []models.ToolSpec) (*models.PlannerDecision, error)
}
