package session

import (
	"time"

	"github.com/room4-2/frontdesk/ratelimit"
)

// Session is the durable per-user conversation state. It is plain data:
// the Store hands it out under a per-user turn lock and everything that
// mutates it runs inside that lock, so the struct carries no locking of
// its own.
type Session struct {
	ID string

	// History keeps the recent exchanges fed back into the model.
	History *History

	// Pending accumulates booking fields across turns, keyed by field key.
	Pending map[string]string

	// AwaitingConfirmation is set once every required field is collected
	// and the summary question has gone out. Snapshot freezes the fields
	// the user is being asked to confirm, so later extraction noise cannot
	// change what gets recorded.
	AwaitingConfirmation bool
	Snapshot             map[string]string

	// Rate is this user's trailing-window state.
	Rate ratelimit.Window

	// SuspicionCount is the number of suspicious inputs seen so far.
	// Blocked is permanent for the life of the session.
	SuspicionCount int
	Blocked        bool

	CreatedAt    time.Time
	LastActivity time.Time
}

func newSession(id string, historyWindow int) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		History:      NewHistory(historyWindow),
		Pending:      make(map[string]string),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch records activity.
func (s *Session) Touch() {
	s.LastActivity = time.Now()
}

// BeginConfirmation freezes a copy of fields and arms the confirmation
// state.
func (s *Session) BeginConfirmation(fields map[string]string) {
	snap := make(map[string]string, len(fields))
	for k, v := range fields {
		snap[k] = v
	}
	s.Snapshot = snap
	s.AwaitingConfirmation = true
}

// EndConfirmation disarms the confirmation state and drops the snapshot.
func (s *Session) EndConfirmation() {
	s.AwaitingConfirmation = false
	s.Snapshot = nil
}

// ClearConversation wipes the dialogue state: history, pending fields and
// any armed confirmation. Rate limiting, suspicion strikes and a permanent
// block survive; a reset command must not launder an abuser.
func (s *Session) ClearConversation() {
	s.History.Clear()
	s.Pending = make(map[string]string)
	s.EndConfirmation()
}

// PendingCopy returns a copy of the accumulated fields.
func (s *Session) PendingCopy() map[string]string {
	out := make(map[string]string, len(s.Pending))
	for k, v := range s.Pending {
		out[k] = v
	}
	return out
}
