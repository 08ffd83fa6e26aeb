package session

import "time"

// Exchange is one user message and the reply it got.
type Exchange struct {
	User string
	Bot  string
	At   time.Time
}

// History keeps the most recent exchanges, oldest first. Once the window
// is full the oldest exchange is evicted on every push. Like the Session
// that owns it, History is only touched under the store's turn lock.
type History struct {
	entries []Exchange
	max     int
}

// NewHistory creates a history bounded to max exchanges. A max below 1
// falls back to 1 so a push always lands.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{
		entries: make([]Exchange, 0, max),
		max:     max,
	}
}

// Max returns the window size.
func (h *History) Max() int {
	return h.max
}

// Push appends one exchange, evicting the oldest if the window is full.
func (h *History) Push(user, bot string) {
	if len(h.entries) >= h.max {
		n := copy(h.entries, h.entries[1:])
		h.entries = h.entries[:n]
	}
	h.entries = append(h.entries, Exchange{User: user, Bot: bot, At: time.Now()})
}

// Exchanges returns a copy of the window, oldest first.
func (h *History) Exchanges() []Exchange {
	out := make([]Exchange, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of stored exchanges.
func (h *History) Len() int {
	return len(h.entries)
}

// IsEmpty reports whether the window holds nothing.
func (h *History) IsEmpty() bool {
	return len(h.entries) == 0
}

// Clear empties the window.
func (h *History) Clear() {
	h.entries = h.entries[:0]
}
