package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/gemini"
	"github.com/room4-2/frontdesk/notify"
	"github.com/room4-2/frontdesk/ratelimit"
	"github.com/room4-2/frontdesk/sanitize"
	"github.com/room4-2/frontdesk/session"

	"github.com/google/uuid"
)

// State labels how a turn resolved.
type State string

const (
	StateRateBlocked          State = "rate_blocked"
	StateRateWarned           State = "rate_warned"
	StateSanitizerBlocked     State = "sanitizer_blocked"
	StateEscalated            State = "escalated"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCommitted            State = "committed"
	StateRejected             State = "rejected"
	StateCollecting           State = "collecting"
	StateCasual               State = "casual"
	StateCleared              State = "cleared"
	StateFailed               State = "failed"
)

// Inbound is one platform message entering the state machine.
type Inbound struct {
	UserID   string
	UserName string
	Text     string
	Platform string
	At       time.Time
}

// Outbound is a turn's resolution. Reply is always non-empty.
type Outbound struct {
	Reply  string
	State  State
	TurnID string
}

// Completer produces model text from a system instruction, optional
// replayed history and one user message.
type Completer interface {
	Complete(ctx context.Context, system string, history []gemini.Turn, user string) (string, error)
}

// RowAppender commits one confirmed booking row to the external sheet.
type RowAppender interface {
	AppendRow(ctx context.Context, row map[string]string) error
}

// Ledger keeps the local record of bookings, escalations and security
// incidents. Writes are best effort; a ledger failure never fails a turn.
type Ledger interface {
	SaveBooking(ctx context.Context, userID string, fields map[string]string) error
	SaveEscalation(ctx context.Context, userID, route, message string) error
	SaveIncident(ctx context.Context, userID, category, pattern string) error
}

// Orchestrator runs the per-turn state machine: rate limiting, input
// screening, the confirmation flow, escalation, extraction and the
// conversational reply, in that fixed order.
type Orchestrator struct {
	profile   *config.Profile
	store     *session.Store
	completer Completer
	appender  RowAppender
	notifier  notify.Notifier
	ledger    Ledger

	screener  *sanitize.Screener
	limiter   *ratelimit.Limiter
	extractor *Extractor
	gate      *IntentGate
	system    string
}

// NewOrchestrator wires the state machine. appender, notifier and ledger
// may be nil; the corresponding side effects are skipped.
func NewOrchestrator(p *config.Profile, store *session.Store, completer Completer, appender RowAppender, notifier notify.Notifier, ledger Ledger) *Orchestrator {
	return &Orchestrator{
		profile:   p,
		store:     store,
		completer: completer,
		appender:  appender,
		notifier:  notifier,
		ledger:    ledger,
		screener:  sanitize.New(p.Security.MaxInputLength),
		limiter: ratelimit.New(
			time.Duration(p.RateLimit.WindowSeconds)*time.Second,
			p.RateLimit.MaxMessages,
			time.Duration(p.RateLimit.CooldownSeconds)*time.Second,
		),
		extractor: newExtractor(p),
		gate:      newIntentGate(completer, p),
		system:    systemPrompt(p),
	}
}

// Respond runs one inbound message through the turn state machine. It
// always resolves to a reply; nothing that happens inside the turn is
// allowed to escape to the transport as a failure.
func (o *Orchestrator) Respond(ctx context.Context, in Inbound) Outbound {
	turnID := uuid.New().String()[:8]
	now := in.At
	if now.IsZero() {
		now = time.Now()
	}
	name := o.screener.Cleanse(in.UserName)
	if name == "" {
		name = "there"
	}

	sess, release, err := o.store.Acquire(ctx, in.UserID)
	if err != nil {
		log.Printf("❌ [%s] Session unavailable for %s: %v", turnID, shortUser(in.UserID), err)
		return Outbound{Reply: o.render(o.profile.Replies.Fallback, name), State: StateFailed, TurnID: turnID}
	}
	defer release()

	out := o.respondLocked(ctx, sess, in, turnID, name, now)
	out.TurnID = turnID
	return out
}

func (o *Orchestrator) respondLocked(ctx context.Context, sess *session.Session, in Inbound, turnID, name string, now time.Time) Outbound {
	uid := shortUser(in.UserID)
	r := o.profile.Replies

	// 1. Rate limiting runs before anything else. Warned and blocked turns
	// never reach the model, the extractor or the ledger.
	if o.profile.RateLimit.Enabled {
		switch o.limiter.Check(&sess.Rate, now) {
		case ratelimit.Block:
			log.Printf("🚫 [%s] Rate blocked %s until %s", turnID, uid, sess.Rate.BlockedUntil.Format(time.TimeOnly))
			return Outbound{Reply: o.screen(o.render(r.RateBlocked, name), name, turnID), State: StateRateBlocked}
		case ratelimit.Warn:
			log.Printf("⚠️ [%s] Rate warning for %s", turnID, uid)
			return Outbound{Reply: o.screen(o.render(r.RateWarning, name), name, turnID), State: StateRateWarned}
		}
	}

	// 2. A permanently blocked session gets the same fixed reply forever,
	// regardless of content.
	if sess.Blocked {
		return Outbound{Reply: o.screen(o.render(r.Blocked, name), name, turnID), State: StateSanitizerBlocked}
	}

	text := o.screener.Cleanse(in.Text)
	if text == "" {
		return Outbound{Reply: o.screen(o.render(r.Neutral, name), name, turnID), State: StateCasual}
	}

	// 3. Input screening. Suspicious turns are answered with the fixed
	// safe reply without revealing what was detected; a severe match or
	// the third strike blocks the session for good.
	if o.profile.Security.Enabled {
		if v := o.screener.ScreenInput(text); v.Level != sanitize.Clean {
			sess.SuspicionCount++
			log.Printf("⚠️ [%s] %s input from %s (%s, strike %d)", turnID, v.Level, uid, v.Category, sess.SuspicionCount)
			o.saveIncident(ctx, in.UserID, v)
			if v.Level == sanitize.Blocked || sess.SuspicionCount >= o.profile.Security.SuspicionThreshold {
				sess.Blocked = true
				log.Printf("🚫 [%s] Session %s permanently blocked", turnID, uid)
				o.alert(ctx, notify.Event{
					Kind:     notify.KindSecurityBlock,
					UserID:   in.UserID,
					UserName: in.UserName,
					Summary:  fmt.Sprintf("blocked after %d suspicious messages (last category: %s)", sess.SuspicionCount, v.Category),
				})
			}
			return Outbound{Reply: o.screen(o.render(r.Blocked, name), name, turnID), State: StateSanitizerBlocked}
		}
	}

	if strings.EqualFold(strings.TrimSpace(text), "/clear") {
		sess.ClearConversation()
		log.Printf("💬 [%s] Conversation cleared for %s", turnID, uid)
		return Outbound{Reply: o.screen(o.render(r.Cleared, name), name, turnID), State: StateCleared}
	}

	// 4. A pending confirmation consumes the message before any new
	// intent or extraction runs.
	if sess.AwaitingConfirmation {
		return o.resolveConfirmation(ctx, sess, in, turnID, name, now, text)
	}

	// 5. Escalation gate. Escalated turns skip extraction entirely.
	if o.gate.RequiresEscalation(ctx, text, lastTurns(sess.History, 1)) {
		route, reply := matchRoute(text, o.profile.Escalation)
		log.Printf("📞 [%s] Escalating %s via %q route", turnID, uid, route)
		o.alert(ctx, notify.Event{
			Kind:     notify.KindEscalation,
			UserID:   in.UserID,
			UserName: in.UserName,
			Route:    route,
			Summary:  o.escalationSummary(sess, text),
			Fields:   sess.PendingCopy(),
		})
		o.saveEscalation(ctx, in.UserID, route, text)
		return Outbound{Reply: o.screen(o.render(reply, name), name, turnID), State: StateEscalated}
	}

	// 6. Extraction, then either arm the confirmation or keep chatting. A
	// model failure here degrades to no field update, never a dead turn.
	merged, err := o.extractor.Extract(ctx, o.completer, sess.History.Exchanges(), text, sess.Pending, now)
	if err != nil {
		log.Printf("⚠️ [%s] Extraction skipped for %s: %v", turnID, uid, err)
	} else {
		sess.Pending = merged
	}

	if o.extractor.Ready(sess.Pending) {
		sess.BeginConfirmation(sess.Pending)
		reply := o.screen(o.render(r.IntentDetected, name)+"\n\n"+fieldSummary(o.profile, sess.Snapshot), name, turnID)
		sess.History.Push(text, reply)
		log.Printf("💬 [%s] All fields collected for %s, asking to confirm", turnID, uid)
		return Outbound{Reply: reply, State: StateAwaitingConfirmation}
	}

	reply, err := o.completer.Complete(ctx, o.system, historyTurns(sess.History), text+contextHint(o.profile, sess.Pending))
	if err != nil {
		log.Printf("❌ [%s] Completion failed for %s: %v", turnID, uid, err)
		return Outbound{Reply: o.render(r.Fallback, name), State: StateCasual}
	}
	reply = o.screener.Cleanse(sanitize.StripThinkTags(reply))
	if reply == "" {
		reply = o.render(r.Neutral, name)
	}
	reply = o.screen(reply, name, turnID)
	sess.History.Push(text, reply)

	state := StateCasual
	if len(sess.Pending) > 0 {
		state = StateCollecting
	}
	return Outbound{Reply: reply, State: state}
}

// resolveConfirmation handles the yes/no/unclear decision for an armed
// confirmation. The snapshot is only dropped after the append succeeds, so
// confirmed data is never lost silently.
func (o *Orchestrator) resolveConfirmation(ctx context.Context, sess *session.Session, in Inbound, turnID, name string, now time.Time, text string) Outbound {
	uid := shortUser(in.UserID)
	r := o.profile.Replies

	switch matchConfirmation(text, o.profile.Confirmation) {
	case confirmPositive:
		row := o.buildRow(sess.Snapshot, now)
		if err := o.append(ctx, row); err != nil {
			log.Printf("❌ [%s] Commit failed for %s: %v", turnID, uid, err)
			o.alert(ctx, notify.Event{
				Kind:     notify.KindCommitFailure,
				UserID:   in.UserID,
				UserName: in.UserName,
				Summary:  "spreadsheet append failed: " + err.Error(),
				Fields:   copyFields(sess.Snapshot),
			})
			// Still armed; the user can answer yes again once the sheet
			// recovers.
			return Outbound{Reply: o.screen(o.render(r.Fallback, name), name, turnID), State: StateAwaitingConfirmation}
		}
		o.saveBooking(ctx, in.UserID, sess.Snapshot)
		sess.Pending = make(map[string]string)
		sess.EndConfirmation()
		log.Printf("✅ [%s] Booking committed for %s", turnID, uid)
		return Outbound{Reply: o.screen(o.render(r.Success, name), name, turnID), State: StateCommitted}

	case confirmNegative:
		sess.Pending = make(map[string]string)
		sess.EndConfirmation()
		log.Printf("💬 [%s] Booking declined by %s", turnID, uid)
		return Outbound{Reply: o.screen(o.render(r.Rejection, name), name, turnID), State: StateRejected}

	default:
		return Outbound{Reply: o.screen(o.render(r.Unclear, name), name, turnID), State: StateAwaitingConfirmation}
	}
}

// buildRow lays the snapshot out in the sheet's column order, padding
// missing fields with empty strings and stamping the commit time.
func (o *Orchestrator) buildRow(snapshot map[string]string, now time.Time) map[string]string {
	row := make(map[string]string, len(o.profile.Fields)+1)
	for _, f := range o.profile.Fields {
		row[f.Key] = snapshot[f.Key]
	}
	row["Timestamp"] = now.Format("2006-01-02 15:04:05")
	return row
}

// screen checks an outbound reply for leaked internals and substitutes the
// fallback template on a match. The fallback itself is not re-screened.
func (o *Orchestrator) screen(reply, name, turnID string) string {
	if v := o.screener.ScreenOutput(reply); v.Level != sanitize.Clean {
		log.Printf("🚫 [%s] Reply leaked internals, substituting fallback", turnID)
		return o.render(o.profile.Replies.Fallback, name)
	}
	return reply
}

func (o *Orchestrator) render(tmpl, name string) string {
	return config.RenderTemplate(tmpl, name)
}

func (o *Orchestrator) append(ctx context.Context, row map[string]string) error {
	if o.appender == nil {
		log.Printf("📝 No sheet configured, booking row stays local")
		return nil
	}
	return o.appender.AppendRow(ctx, row)
}

func (o *Orchestrator) alert(ctx context.Context, ev notify.Event) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, ev)
}

func (o *Orchestrator) saveBooking(ctx context.Context, userID string, fields map[string]string) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.SaveBooking(ctx, userID, fields); err != nil {
		log.Printf("⚠️ Ledger booking write failed: %v", err)
	}
}

func (o *Orchestrator) saveEscalation(ctx context.Context, userID, route, message string) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.SaveEscalation(ctx, userID, route, message); err != nil {
		log.Printf("⚠️ Ledger escalation write failed: %v", err)
	}
}

func (o *Orchestrator) saveIncident(ctx context.Context, userID string, v sanitize.Verdict) {
	if o.ledger == nil {
		return
	}
	if err := o.ledger.SaveIncident(ctx, userID, string(v.Category), v.Pattern); err != nil {
		log.Printf("⚠️ Ledger incident write failed: %v", err)
	}
}

// escalationSummary condenses the conversation for the moderator alert.
func (o *Orchestrator) escalationSummary(sess *session.Session, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message: %s", text)
	if s := fieldSummary(o.profile, sess.Pending); s != "" {
		b.WriteString("\nCollected so far:\n" + s)
	}
	if ex := sess.History.Exchanges(); len(ex) > 0 {
		last := ex[len(ex)-1]
		fmt.Fprintf(&b, "\nPrevious exchange: %q -> %q", last.User, last.Bot)
	}
	return b.String()
}

func historyTurns(h *session.History) []gemini.Turn {
	ex := h.Exchanges()
	turns := make([]gemini.Turn, 0, len(ex))
	for _, e := range ex {
		turns = append(turns, gemini.Turn{User: e.User, Bot: e.Bot})
	}
	return turns
}

func lastTurns(h *session.History, n int) []gemini.Turn {
	turns := historyTurns(h)
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

func shortUser(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
