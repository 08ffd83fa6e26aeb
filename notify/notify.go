package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Event kinds reported to moderators.
const (
	KindEscalation    = "escalation"
	KindSecurityBlock = "security_block"
	KindCommitFailure = "commit_failure"
	KindDigest        = "daily_digest"
)

// Event is one moderator-facing alert.
type Event struct {
	Kind     string
	UserID   string
	UserName string
	Route    string // set on escalations
	Summary  string
	Fields   map[string]string // booking snapshot, when relevant
}

// Notifier delivers events to moderators. Deliveries must never block or
// fail the turn that raised them.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Render formats an event as chat text shared by all channel notifiers.
func Render(ev Event) string {
	var b strings.Builder
	switch ev.Kind {
	case KindEscalation:
		fmt.Fprintf(&b, "📞 Escalation (%s route)", ev.Route)
	case KindSecurityBlock:
		b.WriteString("🚫 User blocked by the sanitizer")
	case KindCommitFailure:
		b.WriteString("❌ Booking commit failed")
	case KindDigest:
		b.WriteString("📊 Daily digest")
	default:
		fmt.Fprintf(&b, "📣 %s", ev.Kind)
	}
	if ev.UserID != "" {
		who := ev.UserName
		if who == "" {
			who = ev.UserID
		}
		fmt.Fprintf(&b, "\nUser: %s (%s)", who, ev.UserID)
	}
	if ev.Summary != "" {
		fmt.Fprintf(&b, "\n%s", ev.Summary)
	}
	if len(ev.Fields) > 0 {
		b.WriteString("\nCollected fields:")
		for k, v := range ev.Fields {
			if v != "" {
				fmt.Fprintf(&b, "\n• %s: %s", k, v)
			}
		}
	}
	return b.String()
}

// LogNotifier writes events to the process log. It is the fallback when no
// chat integration is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ev Event) {
	log.Printf("📣 Moderator alert:\n%s", Render(ev))
}

// Fanout delivers each event to every notifier in its own goroutine, so a
// slow channel never holds up the turn or its siblings.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) {
	// The turn's context may be cancelled right after the reply goes out;
	// deliveries should still land.
	ctx = context.WithoutCancel(ctx)
	for _, n := range f {
		go n.Notify(ctx, ev)
	}
}
