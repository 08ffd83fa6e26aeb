package dialogue

import (
	"strings"

	"github.com/room4-2/frontdesk/config"
)

type confirmOutcome int

const (
	confirmUnclear confirmOutcome = iota
	confirmPositive
	confirmNegative
)

// matchConfirmation classifies a reply while a confirmation is pending.
// Keywords match as case-insensitive substrings; positive wins when both
// lists match.
func matchConfirmation(text string, words config.ConfirmationWords) confirmOutcome {
	msg := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range words.Positive {
		if strings.Contains(msg, strings.ToLower(kw)) {
			return confirmPositive
		}
	}
	for _, kw := range words.Negative {
		if strings.Contains(msg, strings.ToLower(kw)) {
			return confirmNegative
		}
	}
	return confirmUnclear
}
