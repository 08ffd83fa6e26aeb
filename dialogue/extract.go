package dialogue

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/room4-2/frontdesk/config"
	"github.com/room4-2/frontdesk/session"
)

// Extractor pulls structured booking fields out of the conversation. The
// model does the reading; the extractor owns parsing, per-kind validation,
// the merge policy and confirmation readiness.
type Extractor struct {
	fields   []config.Field
	required []string
	system   string
	patterns map[string]*regexp.Regexp
	dateKey  string
	slotKey  string
}

func newExtractor(p *config.Profile) *Extractor {
	e := &Extractor{
		fields:   p.Fields,
		required: p.RequiredKeys(),
		system:   extractSystem(p),
		patterns: make(map[string]*regexp.Regexp, len(p.Fields)),
	}
	for _, f := range p.Fields {
		e.patterns[f.Key] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(f.Key) + `\s*:\s*([^\n•]+)`)
		switch f.Kind {
		case config.KindDate:
			e.dateKey = f.Key
		case config.KindTimeslot:
			e.slotKey = f.Key
		}
	}
	return e
}

// Extract runs one completion over the transcript and merges what comes
// back into current. current is never mutated; on model failure the result
// equals current.
func (e *Extractor) Extract(ctx context.Context, c Completer, history []session.Exchange, message string, current map[string]string, now time.Time) (map[string]string, error) {
	out, err := c.Complete(ctx, e.system, nil, transcript(history, message))
	if err != nil {
		return copyFields(current), err
	}
	return e.Merge(current, e.Parse(out, now)), nil
}

// Parse scrapes "Field: value" lines from model output and validates each
// value against its field kind. Invalid values are dropped, never stored.
func (e *Extractor) Parse(text string, now time.Time) map[string]string {
	found := make(map[string]string)
	for _, f := range e.fields {
		m := e.patterns[f.Key].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := validateField(f.Kind, m[1], now); ok {
			found[f.Key] = v
		}
	}
	return found
}

// Merge overlays extracted non-empty values onto current. Absent keys are
// left alone so confirmed data never regresses. A date that contradicts
// the chosen timeslot's weekday is dropped so the assistant asks again.
func (e *Extractor) Merge(current, extracted map[string]string) map[string]string {
	merged := copyFields(current)
	for k, v := range extracted {
		if v != "" {
			merged[k] = v
		}
	}
	if e.dateKey != "" && e.slotKey != "" {
		d, ts := merged[e.dateKey], merged[e.slotKey]
		if d != "" && ts != "" && !dateMatchesTimeslot(d, ts) {
			delete(merged, e.dateKey)
		}
	}
	return merged
}

// Ready reports whether every required field holds a value.
func (e *Extractor) Ready(fields map[string]string) bool {
	for _, key := range e.required {
		if strings.TrimSpace(fields[key]) == "" {
			return false
		}
	}
	return true
}

func copyFields(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
