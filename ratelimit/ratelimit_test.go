package ratelimit

import (
	"testing"
	"time"
)

var base = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func TestCheck_UnderThreshold_Allows(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{}

	for i := 0; i < 5; i++ {
		if got := l.Check(w, base.Add(time.Duration(i)*time.Second)); got != Allow {
			t.Fatalf("message %d: verdict = %v, want %v", i+1, got, Allow)
		}
	}
}

func TestCheck_SixthMessageInWindow_Warns(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{}

	for i := 0; i < 5; i++ {
		l.Check(w, base.Add(time.Duration(i)*time.Second))
	}
	if got := l.Check(w, base.Add(5*time.Second)); got != Warn {
		t.Errorf("sixth message: verdict = %v, want %v", got, Warn)
	}
	if !w.WarningIssued {
		t.Error("WarningIssued = false after warn")
	}
}

func TestCheck_SeventhMessageAfterWarning_Blocks(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{}

	for i := 0; i < 6; i++ {
		l.Check(w, base.Add(time.Duration(i)*time.Second))
	}
	now := base.Add(6 * time.Second)
	if got := l.Check(w, now); got != Block {
		t.Fatalf("seventh message: verdict = %v, want %v", got, Block)
	}
	if want := now.Add(time.Minute); !w.BlockedUntil.Equal(want) {
		t.Errorf("BlockedUntil = %v, want %v", w.BlockedUntil, want)
	}
}

func TestCheck_WhileBlocked_StaysBlocked(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{BlockedUntil: base.Add(time.Minute)}

	for i := 1; i <= 3; i++ {
		if got := l.Check(w, base.Add(time.Duration(i)*time.Second)); got != Block {
			t.Fatalf("message %d during cooldown: verdict = %v, want %v", i, got, Block)
		}
	}
	if len(w.Stamps) != 0 {
		t.Errorf("stamps recorded during cooldown: %d, want 0", len(w.Stamps))
	}
}

func TestCheck_CooldownExpiry_ResetsWindow(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{
		Stamps:        []time.Time{base, base.Add(time.Second)},
		WarningIssued: true,
		BlockedUntil:  base.Add(time.Minute),
	}

	now := base.Add(time.Minute + time.Second)
	if got := l.Check(w, now); got != Allow {
		t.Fatalf("first message after cooldown: verdict = %v, want %v", got, Allow)
	}
	if w.WarningIssued {
		t.Error("WarningIssued survived the cooldown reset")
	}
	if !w.BlockedUntil.IsZero() {
		t.Errorf("BlockedUntil = %v, want zero", w.BlockedUntil)
	}
	if len(w.Stamps) != 1 {
		t.Errorf("stamps after reset = %d, want 1", len(w.Stamps))
	}
}

func TestCheck_QuietSpellClearsWarning(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{}

	for i := 0; i < 6; i++ {
		l.Check(w, base.Add(time.Duration(i)*time.Second))
	}
	if !w.WarningIssued {
		t.Fatal("expected a warning after six rapid messages")
	}

	// Eleven seconds of silence prunes every stamp, so the next message is
	// an ordinary one and the stale warning must not escalate it.
	now := base.Add(16 * time.Second)
	if got := l.Check(w, now); got != Allow {
		t.Fatalf("message after quiet spell: verdict = %v, want %v", got, Allow)
	}
	if w.WarningIssued {
		t.Error("WarningIssued = true after the burst subsided")
	}
}

func TestCheck_PruneDropsOnlyStaleStamps(t *testing.T) {
	l := New(10*time.Second, 5, time.Minute)
	w := &Window{Stamps: []time.Time{
		base.Add(-11 * time.Second),
		base.Add(-9 * time.Second),
		base.Add(-2 * time.Second),
	}}

	l.Check(w, base)
	if len(w.Stamps) != 3 {
		t.Errorf("stamps after prune+append = %d, want 3", len(w.Stamps))
	}
}

func TestWindow_Blocked(t *testing.T) {
	w := &Window{}
	if w.Blocked(base) {
		t.Error("zero window reported blocked")
	}
	w.BlockedUntil = base.Add(time.Minute)
	if !w.Blocked(base) {
		t.Error("window with future horizon reported unblocked")
	}
	if w.Blocked(base.Add(2 * time.Minute)) {
		t.Error("window with past horizon reported blocked")
	}
}
