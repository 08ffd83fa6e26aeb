package dialogue

import (
	"context"
	"log"
	"strings"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/gemini"
)

// IntentGate asks the model whether a message needs a human and constrains
// the answer to YES/NO. Any classifier failure means no escalation; a
// flaky upstream must not flood the moderators.
type IntentGate struct {
	completer Completer
	system    string
}

func newIntentGate(completer Completer, p *config.Profile) *IntentGate {
	return &IntentGate{
		completer: completer,
		system:    intentSystem(p),
	}
}

// RequiresEscalation reports whether the message should be routed to a
// human. The last exchange is included so follow-ups like "how much for
// that?" classify in context.
func (g *IntentGate) RequiresEscalation(ctx context.Context, message string, last []gemini.Turn) bool {
	out, err := g.completer.Complete(ctx, g.system, last, message)
	if err != nil {
		log.Printf("⚠️ Intent gate degraded to no-escalation: %v", err)
		return false
	}
	return strings.Contains(strings.ToUpper(out), "YES")
}

// matchRoute picks the escalation route whose keywords appear in the
// message, falling back to the generic route.
func matchRoute(text string, esc config.EscalationConfig) (string, string) {
	msg := strings.ToLower(text)
	for _, r := range esc.Routes {
		for _, kw := range r.Keywords {
			if strings.Contains(msg, strings.ToLower(kw)) {
				return r.Name, r.Reply
			}
		}
	}
	return "general", esc.DefaultReply
}
