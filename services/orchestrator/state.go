package orchestrator

import (
	"fmt"

	"tably/models"

	"go.uber.org/zap"
)

// transitions is the session state machine. Only Idle, AwaitingIntent
// and ToolProposed persist between inbound messages; the rest are
// transient positions within one message's handling.
var transitions = map[models.SessionState][]models.SessionState{
	models.StateIdle:           {models.StateResolving},
	models.StateResolving:      {models.StateAwaitingIntent},
	models.StateAwaitingIntent: {models.StateToolProposed, models.StateToolExecuting, models.StateResponding},
	models.StateToolProposed:   {models.StateToolConfirmed, models.StateToolExecuting, models.StateAwaitingIntent, models.StateResponding},
	models.StateToolConfirmed:  {models.StateToolExecuting},
	models.StateToolExecuting:  {models.StateResponding},
	models.StateResponding:     {models.StateIdle, models.StateAwaitingIntent, models.StateToolProposed},
	models.StateExpired:        {},
}

// transition moves the session to the next state, guarding against
// jumps the machine does not allow.
func (o *Orchestrator) transition(sess *models.ConversationSession, to models.SessionState) error {
	allowed := transitions[sess.State]
	for _, s := range allowed {
		if s == to {
			o.Logger.Debug("session state transition",
				zap.String("sessionId", sess.ID),
				zap.String("from", string(sess.State)),
				zap.String("to", string(to)))
			sess.State = to
			return nil
		}
	}
	return fmt.Errorf("invalid state transition %s -> %s for session %s", sess.State, to, sess.ID)
}
