package models

// ToolSpec is the schema-typed contract a tool exposes to the planner.
// Schema is a JSON Schema document; unknown argument fields are rejected
// at validation time.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
	SideEffect  bool   `json:"sideEffect"`
}

// DecisionKind classifies what the planner wants the orchestrator to do
// with the current turn.
type DecisionKind string

const (
	DecideReply    DecisionKind = "reply"     // plain text answer
	DecideToolCall DecisionKind = "tool_call" // invoke a registry tool
	DecideConfirm  DecisionKind = "confirm"   // user approved the pending call
	DecideDecline  DecisionKind = "decline"   // user rejected the pending call
)

// PlannerDecision is the structured output of one model turn. The
// orchestrator treats it as untrusted: tool calls are validated against
// the registry before dispatch.
type PlannerDecision struct {
	Kind  DecisionKind `json:"kind"`
	Reply string       `json:"reply,omitempty"`
	Call  *ToolCall    `json:"call,omitempty"`
}

// SuggestedAction is a structured follow-up the frontend may render as a
// button or card next to the reply text.
type SuggestedAction struct {
	Label        string `json:"label"`
	Type         string `json:"type"` // e.g. "confirm", "decline", "select_slot", "search"
	SlotKey      string `json:"slotKey,omitempty"`
	RestaurantID string `json:"restaurantId,omitempty"`
}

// ChatReply is what the orchestrator hands back to the transport layer.
type ChatReply struct {
	SessionID string            `json:"sessionId"`
	Text      string            `json:"text"`
	State     SessionState      `json:"state"`
	Actions   []SuggestedAction `json:"actions,omitempty"`
}
