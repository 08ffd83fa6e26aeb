package session

import (
	"testing"
	"time"
)

func TestHistory_EvictsOldestBeyondWindow(t *testing.T) {
	h := NewHistory(5)
	for i := 0; i < 7; i++ {
		h.Push(string(rune('a'+i)), "reply")
	}

	if h.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", h.Len())
	}
	got := h.Exchanges()
	if got[0].User != "c" {
		t.Errorf("oldest kept exchange = %q, want %q", got[0].User, "c")
	}
	if got[4].User != "g" {
		t.Errorf("newest exchange = %q, want %q", got[4].User, "g")
	}
}

func TestHistory_ZeroWindowStillHoldsOne(t *testing.T) {
	h := NewHistory(0)
	h.Push("hello", "hi")
	h.Push("again", "hi")
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if got := h.Exchanges()[0].User; got != "again" {
		t.Errorf("kept exchange = %q, want %q", got, "again")
	}
}

func TestHistory_ExchangesReturnsCopy(t *testing.T) {
	h := NewHistory(3)
	h.Push("one", "1")
	out := h.Exchanges()
	out[0].User = "mutated"
	if h.Exchanges()[0].User != "one" {
		t.Error("mutating the returned slice changed the history")
	}
}

func TestSession_ClearConversationKeepsSafetyState(t *testing.T) {
	s := newSession("user-1", 5)
	s.History.Push("hi", "hello")
	s.Pending["Parent Name"] = "Ada"
	s.BeginConfirmation(s.Pending)
	s.SuspicionCount = 2
	s.Blocked = true
	s.Rate.Stamps = append(s.Rate.Stamps, time.Now())
	s.Rate.WarningIssued = true

	s.ClearConversation()

	if s.History.Len() != 0 {
		t.Errorf("history survived clear: %d entries", s.History.Len())
	}
	if len(s.Pending) != 0 {
		t.Errorf("pending survived clear: %v", s.Pending)
	}
	if s.AwaitingConfirmation || s.Snapshot != nil {
		t.Error("confirmation state survived clear")
	}
	if s.SuspicionCount != 2 {
		t.Errorf("SuspicionCount = %d, want 2", s.SuspicionCount)
	}
	if !s.Blocked {
		t.Error("Blocked flag was cleared")
	}
	if len(s.Rate.Stamps) != 1 || !s.Rate.WarningIssued {
		t.Error("rate window was cleared")
	}
}

func TestSession_SnapshotIsIsolatedFromPending(t *testing.T) {
	s := newSession("user-1", 5)
	s.Pending["Contact"] = "0400 111 222"
	s.BeginConfirmation(s.Pending)

	s.Pending["Contact"] = "jailbroken"

	if got := s.Snapshot["Contact"]; got != "0400 111 222" {
		t.Errorf("Snapshot[Contact] = %q, want %q", got, "0400 111 222")
	}
}

func TestSession_EndConfirmation(t *testing.T) {
	s := newSession("user-1", 5)
	s.BeginConfirmation(map[string]string{"Date": "2025-11-02"})
	s.EndConfirmation()
	if s.AwaitingConfirmation {
		t.Error("AwaitingConfirmation still set")
	}
	if s.Snapshot != nil {
		t.Errorf("Snapshot = %v, want nil", s.Snapshot)
	}
}
