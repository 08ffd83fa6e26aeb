package dialogue

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/room4-2/frontdesk/config"
)

// Only explicit dates are accepted. Vague expressions ("next Friday",
// "sometime soon") fail parsing so the assistant asks for a real date.

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "sept": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	eightDigitRe   = regexp.MustCompile(`^\d{8}$`)
	dayFirstRe     = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)(?:\s+(\d{4}))?\b`)
	monthFirstRe   = regexp.MustCompile(`\b(` + monthAlt + `)\s+(\d{1,2})(?:st|nd|rd|th)?(?:\s+(\d{4}))?\b`)
	numericFullRe  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})\b`)
	numericShortRe = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})\b`)
	dayOnlyRe      = regexp.MustCompile(`\b(?:the|on\s+the)\s+(\d{1,2})(?:st|nd|rd|th)\b`)
)

// ParseDate extracts an explicit calendar date from free text. Dates given
// without a year that already passed this year roll over to next year.
func ParseDate(input string, ref time.Time) (time.Time, bool) {
	text := strings.ToLower(strings.TrimSpace(input))
	if text == "" {
		return time.Time{}, false
	}

	// "15112024" exactly, day month year run together
	if eightDigitRe.MatchString(text) {
		day, _ := strconv.Atoi(text[0:2])
		month, _ := strconv.Atoi(text[2:4])
		year, _ := strconv.Atoi(text[4:8])
		return mkDate(year, time.Month(month), day)
	}

	// "15th November 2024", "15 nov"
	if m := dayFirstRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNames[m[2]]
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			return mkDate(year, month, day)
		}
		return futureAdjust(day, month, ref)
	}

	// "November 15th 2024", "nov 15"
	if m := monthFirstRe.FindStringSubmatch(text); m != nil {
		month := monthNames[m[1]]
		day, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			return mkDate(year, month, day)
		}
		return futureAdjust(day, month, ref)
	}

	// "15/11/2024", "15-11-2024", "15.11.2024"
	if m := numericFullRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return mkDate(year, time.Month(month), day)
	}

	// "15/11" without a year
	if m := numericShortRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return futureAdjust(day, time.Month(month), ref)
	}

	// "the 15th", assume this month or roll to the next
	if m := dayOnlyRe.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		d, ok := mkDate(ref.Year(), ref.Month(), day)
		if ok && !d.Before(dateOf(ref)) {
			return d, true
		}
		year, month := ref.Year(), ref.Month()+1
		if month > time.December {
			month = time.January
			year++
		}
		return mkDate(year, month, day)
	}

	return time.Time{}, false
}

// FormatDate renders a parsed date the way the sheet stores it.
func FormatDate(d time.Time) string {
	return d.Format("02/01/2006")
}

// mkDate builds a date and rejects impossible ones like 31 February, which
// time.Date would silently normalize.
func mkDate(year int, month time.Month, day int) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// futureAdjust resolves a yearless day+month to this year, or next year if
// that already passed.
func futureAdjust(day int, month time.Month, ref time.Time) (time.Time, bool) {
	d, ok := mkDate(ref.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if d.Before(dateOf(ref)) {
		return mkDate(ref.Year()+1, month, day)
	}
	return d, true
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sunday": time.Sunday,
}

// timeslotDay finds the weekday named inside a timeslot like "Saturday 2pm".
func timeslotDay(timeslot string) (time.Weekday, bool) {
	t := strings.ToLower(timeslot)
	for name, wd := range weekdayNames {
		if strings.Contains(t, name) {
			return wd, true
		}
	}
	return 0, false
}

// dateMatchesTimeslot checks a stored date against the weekday named in the
// chosen timeslot. Unknown weekdays or unparseable dates pass; only a clear
// mismatch fails.
func dateMatchesTimeslot(dateStr, timeslot string) bool {
	wd, ok := timeslotDay(timeslot)
	if !ok {
		return true
	}
	d, err := time.Parse("02/01/2006", dateStr)
	if err != nil {
		return true
	}
	return d.Weekday() == wd
}

var (
	emailRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitRe        = regexp.MustCompile(`\d`)
	phoneAllowedRe = regexp.MustCompile(`^[\d\s()+\-]+$`)
	ageRe          = regexp.MustCompile(`\d{1,3}`)
)

// notAnAnswer filters the placeholder strings models emit instead of
// omitting a field they do not know.
func notAnAnswer(v string) bool {
	switch strings.ToLower(v) {
	case "", "-", "n/a", "na", "none", "null", "unknown", "not provided", "tbd":
		return true
	}
	return false
}

// validateField checks one extracted value against its field kind and
// returns the normalized value to store. ok=false means the value is
// treated as not yet extracted.
func validateField(kind, value string, now time.Time) (string, bool) {
	v := strings.TrimSpace(value)
	if notAnAnswer(v) {
		return "", false
	}
	switch kind {
	case config.KindPhone:
		if !phoneAllowedRe.MatchString(v) {
			return "", false
		}
		if len(digitRe.FindAllString(v, -1)) < 7 {
			return "", false
		}
		return v, true
	case config.KindEmail:
		if !emailRe.MatchString(v) {
			return "", false
		}
		return v, true
	case config.KindAge:
		m := ageRe.FindString(v)
		if m == "" {
			return "", false
		}
		n, _ := strconv.Atoi(m)
		if n < 1 || n > 100 {
			return "", false
		}
		return strconv.Itoa(n), true
	case config.KindDate:
		d, ok := ParseDate(v, now)
		if !ok || d.Before(dateOf(now)) {
			return "", false
		}
		return FormatDate(d), true
	default:
		// KindText and KindTimeslot take any non-placeholder value.
		return v, true
	}
}
