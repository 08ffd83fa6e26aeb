package dialogue

import (
	"testing"
	"time"

	"github.com/room4-2/frontdesk/config"
)

func TestParseDate(t *testing.T) {
	// A Monday. Yearless dates before it must roll to the next year.
	ref := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   string
		want string // dd/mm/yyyy, empty when no date should be found
	}{
		{"eight digit run", "15112026", "15/11/2026"},
		{"day month year", "15th November 2026", "15/11/2026"},
		{"day of month", "15 of november 2026", "15/11/2026"},
		{"day month no year future", "3 jun", "03/06/2026"},
		{"day month no year past rolls over", "15 feb", "15/02/2027"},
		{"month day year", "November 15th 2026", "15/11/2026"},
		{"month day no year", "nov 15", "15/11/2026"},
		{"slashes", "15/11/2026", "15/11/2026"},
		{"dashes", "15-11-2026", "15/11/2026"},
		{"dots", "15.11.2026", "15/11/2026"},
		{"short numeric future", "15/11", "15/11/2026"},
		{"short numeric past rolls over", "28/2", "28/02/2027"},
		{"day only this month", "the 15th", "15/03/2026"},
		{"day only already passed", "the 1st", "01/04/2026"},
		{"inside a sentence", "can we come on the 15th of may?", "15/05/2026"},
		{"inside a sentence numeric", "book us for 05/09 please", "05/09/2026"},
		{"impossible date", "31/2/2026", ""},
		{"vague expression", "next friday", ""},
		{"no date at all", "soon hopefully", ""},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, ok := ParseDate(tc.in, ref)
			if tc.want == "" {
				if ok {
					t.Fatalf("ParseDate(%q) = %v, want no date", tc.in, d)
				}
				return
			}
			if !ok {
				t.Fatalf("ParseDate(%q) found nothing, want %s", tc.in, tc.want)
			}
			if got := FormatDate(d); got != tc.want {
				t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseDate_DayOnlyRollsAcrossYearEnd(t *testing.T) {
	ref := time.Date(2026, time.December, 31, 9, 0, 0, 0, time.UTC)
	d, ok := ParseDate("the 15th", ref)
	if !ok {
		t.Fatal("ParseDate found nothing")
	}
	if got := FormatDate(d); got != "15/01/2027" {
		t.Fatalf("got %s, want 15/01/2027", got)
	}
}

func TestValidateField(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		kind  string
		value string
		want  string
		ok    bool
	}{
		{"phone plain", config.KindPhone, "9123 4567", "9123 4567", true},
		{"phone international", config.KindPhone, "+65 9123-4567", "+65 9123-4567", true},
		{"phone too short", config.KindPhone, "12345", "", false},
		{"phone with words", config.KindPhone, "call me maybe", "", false},
		{"email plain", config.KindEmail, "dana@example.com", "dana@example.com", true},
		{"email invalid", config.KindEmail, "not-an-email", "", false},
		{"email with space", config.KindEmail, "dana @example.com", "", false},
		{"age embedded", config.KindAge, "7 years old", "7", true},
		{"age bare", config.KindAge, "12", "12", true},
		{"age out of range", config.KindAge, "150", "", false},
		{"age zero", config.KindAge, "0", "", false},
		{"age words", config.KindAge, "seven", "", false},
		{"date future", config.KindDate, "07/03/2026", "07/03/2026", true},
		{"date normalized", config.KindDate, "7 March 2026", "07/03/2026", true},
		{"date in the past", config.KindDate, "01/01/2020", "", false},
		{"date unparseable", config.KindDate, "whenever works", "", false},
		{"text plain", config.KindText, "Dana Lee", "Dana Lee", true},
		{"text placeholder", config.KindText, "n/a", "", false},
		{"text empty", config.KindText, "   ", "", false},
		{"timeslot", config.KindTimeslot, "Saturday 10am", "Saturday 10am", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := validateField(tc.kind, tc.value, now)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("validateField(%s, %q) = (%q, %v), want (%q, %v)",
					tc.kind, tc.value, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDateMatchesTimeslot(t *testing.T) {
	cases := []struct {
		name     string
		date     string
		timeslot string
		want     bool
	}{
		{"saturday date saturday slot", "07/03/2026", "Saturday 10am", true},
		{"friday date saturday slot", "06/03/2026", "Saturday 10am", false},
		{"sunday date sunday slot", "08/03/2026", "Sunday 2pm", true},
		{"no weekday in slot", "07/03/2026", "anytime after lunch", true},
		{"unparseable date passes", "sometime", "Saturday 10am", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dateMatchesTimeslot(tc.date, tc.timeslot); got != tc.want {
				t.Fatalf("dateMatchesTimeslot(%q, %q) = %v, want %v", tc.date, tc.timeslot, got, tc.want)
			}
		})
	}
}
