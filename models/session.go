package models

import (
	"encoding/json"
	"time"
)

// SessionState is the orchestrator's per-session state machine position.
// Only Idle, AwaitingIntent and ToolProposed survive between inbound
// messages; the remaining states are transient within a single turn.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateResolving      SessionState = "resolving"
	StateAwaitingIntent SessionState = "awaiting_intent"
	StateToolProposed   SessionState = "tool_proposed"
	StateToolConfirmed  SessionState = "tool_confirmed"
	StateToolExecuting  SessionState = "tool_executing"
	StateResponding     SessionState = "responding"
	StateExpired        SessionState = "expired"
)

// Chat message roles. Tool results are folded into the history under
// RoleTool so the next model turn can see them as structured facts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one entry in a session's ordered history.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ToolCall is a model-proposed invocation. Args are raw until validated
// against the tool's schema.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// PendingCall is the suspended tool-call context while the session waits
// for an explicit user confirmation turn. The idempotency key is minted
// when the call is proposed so a retried confirmation commits once.
type PendingCall struct {
	Call           ToolCall  `json:"call"`
	IdempotencyKey string    `json:"idempotencyKey"`
	ProposedAt     time.Time `json:"proposedAt"`
}

// ConversationSession is the per-session state threaded through every
// orchestration step. It lives in the session store under a TTL; a
// missing session is the Expired state.
type ConversationSession struct {
	ID         string          `json:"id"`
	State      SessionState    `json:"state"`
	UserID     string          `json:"userId,omitempty"`
	NewUser    bool            `json:"newUser,omitempty"`
	History    []ChatMessage   `json:"history"`
	Pending    *PendingCall    `json:"pending,omitempty"`
	SeenSlots  map[string]Slot `json:"seenSlots,omitempty"` // slots surfaced by availability checks, by key
	LastActive time.Time       `json:"lastActive"`
}

// Append adds a message to the history and bumps the activity clock.
func (s *ConversationSession) Append(role, content string) {
	now := time.Now()
	s.History = append(s.History, ChatMessage{Role: role, Content: content, At: now})
	s.LastActive = now
}

// RememberSlots records availability results so a later booking can be
// checked against what the conversation actually saw.
func (s *ConversationSession) RememberSlots(slots []Slot) {
	if s.SeenSlots == nil {
		s.SeenSlots = make(map[string]Slot, len(slots))
	}
	for _, slot := range slots {
		s.SeenSlots[slot.Key()] = slot
	}
}

// SeenSlot looks up a previously surfaced slot by key.
func (s *ConversationSession) SeenSlot(key string) (Slot, bool) {
	slot, ok := s.SeenSlots[key]
	return slot, ok
}
