package ledger

import (
	"context"
	"strings"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test ledger: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSaveBooking_RoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	fields := map[string]string{"Parent Name": "Dana Lee", "Date": "07/03/2026"}
	if err := st.SaveBooking(ctx, "user-1", fields); err != nil {
		t.Fatalf("SaveBooking: %v", err)
	}

	rows, err := st.BookingsFor(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("BookingsFor: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if !strings.Contains(rows[0].Fields, `"Parent Name":"Dana Lee"`) {
		t.Fatalf("Fields = %q, want the encoded snapshot", rows[0].Fields)
	}

	other, err := st.BookingsFor(ctx, "user-2", 10)
	if err != nil {
		t.Fatalf("BookingsFor: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("user-2 rows = %d, want 0", len(other))
	}
}

func TestDayStats_CountsOnlyTheWindow(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveBooking(ctx, "user-1", map[string]string{"Date": "07/03/2026"}); err != nil {
		t.Fatalf("SaveBooking: %v", err)
	}
	if err := st.SaveEscalation(ctx, "user-1", "performance", "corporate gig?"); err != nil {
		t.Fatalf("SaveEscalation: %v", err)
	}
	if err := st.SaveIncident(ctx, "user-2", "role_play", "jailbreak"); err != nil {
		t.Fatalf("SaveIncident: %v", err)
	}
	if err := st.SaveIncident(ctx, "user-2", "instruction_override", "bypass"); err != nil {
		t.Fatalf("SaveIncident: %v", err)
	}

	// A row from last week stays out of today's window.
	old := Incident{UserID: "user-3", Category: "role_play", Pattern: "act as", CreatedAt: time.Now().Add(-7 * 24 * time.Hour)}
	if err := st.db.Create(&old).Error; err != nil {
		t.Fatalf("backdated insert: %v", err)
	}

	now := time.Now().Add(time.Minute)
	stats, err := st.DayStats(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("DayStats: %v", err)
	}
	if stats.Bookings != 1 || stats.Escalations != 1 || stats.Incidents != 2 {
		t.Fatalf("stats = %+v, want 1 booking, 1 escalation, 2 incidents", stats)
	}

	quiet, err := st.DayStats(ctx, now.Add(-49*time.Hour), now.Add(-25*time.Hour))
	if err != nil {
		t.Fatalf("DayStats: %v", err)
	}
	if quiet.Bookings != 0 || quiet.Escalations != 0 || quiet.Incidents != 0 {
		t.Fatalf("stats = %+v, want an empty window", quiet)
	}
}

func TestOpen_RejectsUnreachableMySQL(t *testing.T) {
	if _, err := Open("root@tcp(127.0.0.1:1)/frontdesk?parseTime=true"); err == nil {
		t.Fatal("want error for an unreachable mysql DSN")
	}
}
