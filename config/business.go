package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field validator kinds understood by the booking extractor.
const (
	KindText     = "text"
	KindPhone    = "phone"
	KindEmail    = "email"
	KindAge      = "age"
	KindDate     = "date"
	KindTimeslot = "timeslot"
)

// Profile is the business configuration loaded once at startup and treated
// as immutable afterwards: identity, reply templates, confirmation keywords,
// the booking field list, and the safety thresholds.
type Profile struct {
	BusinessName  string `yaml:"business_name"`
	BotName       string `yaml:"bot_name"`
	BusinessDocs  string `yaml:"business_docs"` // free-text knowledge injected into the system prompt
	HistoryWindow int    `yaml:"history_window"`

	Replies      Replies           `yaml:"replies"`
	Confirmation ConfirmationWords `yaml:"confirmation"`
	Fields       []Field           `yaml:"fields"`
	RateLimit    RateLimitConfig   `yaml:"rate_limiting"`
	Security     SecurityConfig    `yaml:"security"`
	Escalation   EscalationConfig  `yaml:"escalation"`
	Digest       DigestConfig      `yaml:"digest"`
}

// Replies holds the canned response templates. {name} is replaced with the
// user's display name.
type Replies struct {
	IntentDetected string `yaml:"intent_detected"`
	Success        string `yaml:"success"`
	Rejection      string `yaml:"rejection"`
	Neutral        string `yaml:"neutral"`
	Unclear        string `yaml:"unclear"`
	Blocked        string `yaml:"blocked"`
	RateWarning    string `yaml:"rate_warning"`
	RateBlocked    string `yaml:"rate_blocked"`
	Fallback       string `yaml:"fallback"`
	Cleared        string `yaml:"cleared"`
}

// ConfirmationWords are matched case-insensitively as substrings of the
// user's reply while a booking confirmation is pending.
type ConfirmationWords struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Field describes one booking field: its sheet column key, the validator
// kind applied to extracted values, and whether it gates confirmation.
type Field struct {
	Key      string `yaml:"key"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
}

// RateLimitConfig tunes the per-user sliding window limiter.
type RateLimitConfig struct {
	Enabled         bool `yaml:"enabled"`
	WindowSeconds   int  `yaml:"window_seconds"`
	MaxMessages     int  `yaml:"max_messages"`
	CooldownSeconds int  `yaml:"cooldown_seconds"`
}

// SecurityConfig tunes the input sanitizer.
type SecurityConfig struct {
	Enabled            bool `yaml:"enabled"`
	MaxInputLength     int  `yaml:"max_input_length"`
	SuspicionThreshold int  `yaml:"suspicion_threshold"`
}

// EscalationConfig maps keyword groups to the canned acknowledgment sent to
// the user while the moderator is alerted.
type EscalationConfig struct {
	Routes       []EscalationRoute `yaml:"routes"`
	DefaultReply string            `yaml:"default_reply"`
}

// EscalationRoute is one keyword group with its acknowledgment.
type EscalationRoute struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

// DigestConfig schedules the daily moderator summary (5-field cron spec).
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// DefaultProfile returns the built-in profile used when no YAML file is
// configured. Every value can be overridden from the file.
func DefaultProfile() *Profile {
	return &Profile{
		BusinessName:  "555Beatbox Academy",
		BotName:       "Luke",
		HistoryWindow: 5,
		BusinessDocs: `555Beatbox Academy teaches beatbox classes for kids and teens.
Trial classes run on weekends at our Bugis and Tampines studios.
Timeslots: Saturday 10am, Saturday 2pm, Sunday 10am, Sunday 2pm.
A trial class is 45 minutes and costs $10, waived if the student enrolls.`,
		Replies: Replies{
			IntentDetected: "Hi {name}! I noticed you're interested. Should I register your information?",
			Success:        "Great {name}! Your information has been recorded.",
			Rejection:      "No problem {name}! Let me know if you change your mind.",
			Neutral:        "Hey {name}! How can I help you today?",
			Unclear:        "Sorry {name}, I didn't quite understand. Could you please confirm with yes or no?",
			Blocked:        "I'm sorry, I can't process that message. Please rephrase your question. 😊",
			RateWarning:    "You're sending messages a little too quickly {name}. Give me a moment to catch up! 😅",
			RateBlocked:    "You've sent too many messages. Please wait a minute before trying again.",
			Fallback:       "Sorry, something went wrong! Please try again. 😅",
			Cleared:        "All set {name}! Your conversation has been reset.",
		},
		Confirmation: ConfirmationWords{
			Positive: []string{"yes", "yeah", "yep", "sure", "ok", "okay", "confirm", "correct", "right", "absolutely", "definitely"},
			Negative: []string{"no", "nope", "nah", "cancel", "stop", "never mind", "nevermind", "not interested"},
		},
		Fields: []Field{
			{Key: "Parent Name", Kind: KindText, Required: true},
			{Key: "Child Name", Kind: KindText, Required: true},
			{Key: "Child Age", Kind: KindAge, Required: true},
			{Key: "Contact", Kind: KindPhone, Required: true},
			{Key: "Email", Kind: KindEmail, Required: true},
			{Key: "Timeslot", Kind: KindTimeslot, Required: true},
			{Key: "Date", Kind: KindDate, Required: true},
			{Key: "Location", Kind: KindText, Required: true},
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			WindowSeconds:   10,
			MaxMessages:     5,
			CooldownSeconds: 60,
		},
		Security: SecurityConfig{
			Enabled:            true,
			MaxInputLength:     500,
			SuspicionThreshold: 3,
		},
		Escalation: EscalationConfig{
			Routes: []EscalationRoute{
				{
					Name:     "performance",
					Keywords: []string{"performance", "event", "party", "hire", "show", "corporate"},
					Reply:    "Let me connect you with our artist manager who handles performances! 🎤 They'll be in touch with you shortly via WhatsApp. 😊",
				},
				{
					Name:     "private",
					Keywords: []string{"private", "1-on-1", "one-on-one", "individual"},
					Reply:    "Great! For private 1-on-1 classes, we'll need to discuss your specific needs and schedule. 😊 A team member will contact you via WhatsApp to arrange the details!",
				},
			},
			DefaultReply: "I'll connect you with our team who can help you with this! They'll be in touch via WhatsApp shortly. 😊",
		},
		Digest: DigestConfig{
			Enabled:  true,
			Schedule: "0 18 * * *",
		},
	}
}

// LoadProfile reads the YAML business profile from path. An empty path
// returns the built-in defaults.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile unmarshals YAML bytes over the defaults and returns a
// validated Profile. Keys absent from the file keep their default values.
func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("profile: parse: %w", err)
	}
	p.applyDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// applyDefaults restores sane values for fields the file explicitly zeroed.
func (p *Profile) applyDefaults() {
	def := DefaultProfile()
	if p.HistoryWindow <= 0 {
		p.HistoryWindow = def.HistoryWindow
	}
	if p.RateLimit.WindowSeconds <= 0 {
		p.RateLimit.WindowSeconds = def.RateLimit.WindowSeconds
	}
	if p.RateLimit.MaxMessages <= 0 {
		p.RateLimit.MaxMessages = def.RateLimit.MaxMessages
	}
	if p.RateLimit.CooldownSeconds <= 0 {
		p.RateLimit.CooldownSeconds = def.RateLimit.CooldownSeconds
	}
	if p.Security.MaxInputLength <= 0 {
		p.Security.MaxInputLength = def.Security.MaxInputLength
	}
	if p.Security.SuspicionThreshold <= 0 {
		p.Security.SuspicionThreshold = def.Security.SuspicionThreshold
	}
	if len(p.Confirmation.Positive) == 0 {
		p.Confirmation.Positive = def.Confirmation.Positive
	}
	if len(p.Confirmation.Negative) == 0 {
		p.Confirmation.Negative = def.Confirmation.Negative
	}
	if len(p.Fields) == 0 {
		p.Fields = def.Fields
	}
	for i := range p.Fields {
		if p.Fields[i].Kind == "" {
			p.Fields[i].Kind = KindText
		}
	}
	if p.Escalation.DefaultReply == "" {
		p.Escalation.DefaultReply = def.Escalation.DefaultReply
	}
	if p.Digest.Schedule == "" {
		p.Digest.Schedule = def.Digest.Schedule
	}
}

// validate checks that all required profile values are present and consistent.
func (p *Profile) validate() error {
	var errs []string
	if p.BusinessName == "" {
		errs = append(errs, "business_name is required")
	}
	if p.BotName == "" {
		errs = append(errs, "bot_name is required")
	}
	templates := map[string]string{
		"replies.intent_detected": p.Replies.IntentDetected,
		"replies.success":         p.Replies.Success,
		"replies.rejection":       p.Replies.Rejection,
		"replies.neutral":         p.Replies.Neutral,
		"replies.unclear":         p.Replies.Unclear,
		"replies.blocked":         p.Replies.Blocked,
		"replies.rate_warning":    p.Replies.RateWarning,
		"replies.rate_blocked":    p.Replies.RateBlocked,
		"replies.fallback":        p.Replies.Fallback,
		"replies.cleared":         p.Replies.Cleared,
	}
	for key, tmpl := range templates {
		if tmpl == "" {
			errs = append(errs, key+" is required")
		}
	}
	seen := make(map[string]bool)
	requiredCount := 0
	for i, f := range p.Fields {
		if f.Key == "" {
			errs = append(errs, fmt.Sprintf("fields[%d].key is required", i))
			continue
		}
		if seen[f.Key] {
			errs = append(errs, fmt.Sprintf("fields[%d].key %q is duplicated", i, f.Key))
		}
		seen[f.Key] = true
		switch f.Kind {
		case KindText, KindPhone, KindEmail, KindAge, KindDate, KindTimeslot:
		default:
			errs = append(errs, fmt.Sprintf("fields[%d].kind %q is not recognized", i, f.Kind))
		}
		if f.Required {
			requiredCount++
		}
	}
	if requiredCount == 0 {
		errs = append(errs, "at least one required field is needed")
	}
	for i, r := range p.Escalation.Routes {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("escalation.routes[%d].name is required", i))
		}
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("escalation.routes[%d].keywords is required", i))
		}
		if r.Reply == "" {
			errs = append(errs, fmt.Sprintf("escalation.routes[%d].reply is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("profile: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RenderTemplate substitutes {name} in a reply template.
func RenderTemplate(tmpl, name string) string {
	return strings.ReplaceAll(tmpl, "{name}", name)
}

// RequiredKeys returns the keys of the fields that gate confirmation.
func (p *Profile) RequiredKeys() []string {
	keys := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// ColumnOrder is the fixed spreadsheet column layout: the configured fields
// in declaration order, then the commit timestamp.
func (p *Profile) ColumnOrder() []string {
	cols := make([]string, 0, len(p.Fields)+1)
	for _, f := range p.Fields {
		cols = append(cols, f.Key)
	}
	return append(cols, "Timestamp")
}
