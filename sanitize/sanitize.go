package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Category labels the kind of injection a pattern detects.
type Category string

const (
	CategoryOverride   Category = "instruction_override"
	CategoryRolePlay   Category = "role_play"
	CategoryExtraction Category = "prompt_extraction"
	CategoryDelimiter  Category = "delimiter_injection"
	CategoryEncoded    Category = "encoded_payload"
)

// Level is the outcome of a screening pass.
type Level int

const (
	Clean Level = iota
	Suspicious
	Blocked
)

func (l Level) String() string {
	switch l {
	case Suspicious:
		return "suspicious"
	case Blocked:
		return "blocked"
	default:
		return "clean"
	}
}

// Verdict reports what the screener found. Pattern carries the matched
// expression so handlers can log it without re-scanning.
type Verdict struct {
	Level    Level
	Category Category
	Pattern  string
}

type pattern struct {
	re       *regexp.Regexp
	category Category
	severe   bool
}

// catalog is the full set of screened expressions. Severe entries forge
// conversation structure or protected triggers and block on first sight;
// the rest count toward the session's suspicion threshold.
var catalog = []struct {
	expr     string
	category Category
	severe   bool
}{
	// Attempts to countermand the standing instructions.
	{`ignore\s+(all\s+)?previous\s+instructions`, CategoryOverride, false},
	{`ignore\s+(all\s+)?prior\s+instructions`, CategoryOverride, false},
	{`disregard\s+(all\s+)?previous`, CategoryOverride, false},
	{`forget\s+(all\s+)?previous`, CategoryOverride, false},
	{`forget\s+everything`, CategoryOverride, false},
	{`new\s+instructions?\s*:`, CategoryOverride, false},
	{`disregard`, CategoryOverride, false},
	{`override`, CategoryOverride, false},
	{`bypass`, CategoryOverride, false},

	// Attempts to recast the assistant as something else.
	{`you\s+are\s+now`, CategoryRolePlay, false},
	{`act\s+as`, CategoryRolePlay, false},
	{`pretend\s+to\s+be`, CategoryRolePlay, false},
	{`roleplay\s+as`, CategoryRolePlay, false},
	{`admin\s+mode`, CategoryRolePlay, false},
	{`developer\s+(mode|access)`, CategoryRolePlay, false},
	{`debug\s+mode`, CategoryRolePlay, false},
	{`test\s+mode`, CategoryRolePlay, false},
	{`jailbreak`, CategoryRolePlay, false},

	// Attempts to read the prompt back out.
	{`system\s*(message|prompt|instructions?)`, CategoryExtraction, false},
	{`repeat\s+your\s+(instructions?|prompt|rules)`, CategoryExtraction, false},
	{`what\s+(are|were)\s+your\s+instructions`, CategoryExtraction, false},
	{`show\s+me\s+your\s+(prompt|instructions|rules)`, CategoryExtraction, false},
	{`reveal\s+your\s+(prompt|instructions|system)`, CategoryExtraction, false},
	{`tell\s+me\s+your\s+(prompt|instructions|rules)`, CategoryExtraction, false},

	// Forged structural markers. These imitate the transcript framing the
	// model sees, so one hit is enough to block.
	{`\[INTERNAL\s*NOTE`, CategoryDelimiter, true},
	{`\[COLLECTED\s*INFO`, CategoryDelimiter, true},
	{`\[SYSTEM\]`, CategoryDelimiter, true},
	{`---\s*SYSTEM`, CategoryDelimiter, true},
	{`===\s*SYSTEM`, CategoryDelimiter, true},
	{`BOOKING_CONFIRMED`, CategoryDelimiter, true},
	{`USER\s+MESSAGE\s+(START|END)`, CategoryDelimiter, true},
	{`===\s*USER\s+MESSAGE`, CategoryDelimiter, true},

	// Payloads dressed up to slip past the plain-text patterns.
	{`[A-Za-z0-9+/]{40,}={0,2}`, CategoryEncoded, false},
	{`(\\x[0-9a-fA-F]{2}){4,}`, CategoryEncoded, false},
	{`(\\u[0-9a-fA-F]{4}){4,}`, CategoryEncoded, false},
	{`(&#x?[0-9a-fA-F]{2,6};){3,}`, CategoryEncoded, false},
	{`data:[a-z]+/[a-z0-9.+-]+;base64`, CategoryEncoded, false},
}

// leakCatalog flags replies that echo internal framing back to the user.
var leakCatalog = []string{
	`\[COLLECTED\s*INFO`,
	`\[INTERNAL\s*NOTE`,
	`BOOKING_CONFIRMED`,
	`(?i)my\s+(system\s+)?(prompt|instructions)`,
	`(?i)(system|developer)\s+(message|prompt)\s*:`,
	`(?i)as\s+an\s+ai\s+(language\s+)?model`,
	`<think>`,
}

var (
	fenceRe    = regexp.MustCompile("```[a-zA-Z0-9]*")
	boldRe     = regexp.MustCompile(`\*\*+`)
	underRe    = regexp.MustCompile(`__+`)
	newlinesRe = regexp.MustCompile(`\n{3,}`)
	thinkRe    = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// DefaultMaxLength caps cleansed text when no profile limit is set.
const DefaultMaxLength = 500

// Screener scans inbound messages for injection attempts and outbound
// replies for leaked internals. It is immutable after New and safe for
// concurrent use.
type Screener struct {
	patterns []pattern
	leaks    []*regexp.Regexp
	maxLen   int
}

// New compiles the catalog. maxLen bounds Cleanse output; values below 1
// fall back to DefaultMaxLength.
func New(maxLen int) *Screener {
	if maxLen < 1 {
		maxLen = DefaultMaxLength
	}
	s := &Screener{maxLen: maxLen}
	for _, c := range catalog {
		s.patterns = append(s.patterns, pattern{
			re:       regexp.MustCompile(`(?i)` + c.expr),
			category: c.category,
			severe:   c.severe,
		})
	}
	for _, expr := range leakCatalog {
		s.leaks = append(s.leaks, regexp.MustCompile(expr))
	}
	return s
}

// ScreenInput scans one user message. A severe match returns Blocked
// immediately; otherwise the first suspicious match is reported and the
// caller decides when accumulated strikes cross the threshold.
func (s *Screener) ScreenInput(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Level: Clean}
	}
	var found *pattern
	for i := range s.patterns {
		p := &s.patterns[i]
		if !p.re.MatchString(text) {
			continue
		}
		if p.severe {
			return Verdict{Level: Blocked, Category: p.category, Pattern: p.re.String()}
		}
		if found == nil {
			found = p
		}
	}
	if found != nil {
		return Verdict{Level: Suspicious, Category: found.category, Pattern: found.re.String()}
	}
	return Verdict{Level: Clean}
}

// ScreenOutput scans a generated reply before it leaves the service. Any
// leak match means the reply must be replaced with the fallback template.
func (s *Screener) ScreenOutput(reply string) Verdict {
	for _, re := range s.leaks {
		if re.MatchString(reply) {
			return Verdict{Level: Blocked, Category: CategoryDelimiter, Pattern: re.String()}
		}
	}
	return Verdict{Level: Clean}
}

// Cleanse normalizes raw text: code fences and markdown emphasis runs go,
// length is capped, blank-line runs collapse, and control characters other
// than newline, carriage return and tab are dropped.
func (s *Screener) Cleanse(text string) string {
	text = fenceRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "")
	text = underRe.ReplaceAllString(text, "")
	if len(text) > s.maxLen {
		cut := s.maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	text = newlinesRe.ReplaceAllString(text, "\n\n")
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// StripThinkTags removes reasoning blocks some models wrap in <think> tags.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
}
