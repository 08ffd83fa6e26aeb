package dialogue

import (
	"context"
	"errors"
	"testing"
)

func TestExtractor_ParseScrapesValidLines(t *testing.T) {
	e := newExtractor(testProfile())

	out := "Parent Name: Dana Lee\nContact: 123\nTimeslot: Saturday 10am\nDate: 07/03/2026\nthis line is noise"
	got := e.Parse(out, base)

	if got["Parent Name"] != "Dana Lee" {
		t.Errorf("Parent Name = %q, want Dana Lee", got["Parent Name"])
	}
	if _, ok := got["Contact"]; ok {
		t.Error("Contact with 3 digits should fail phone validation")
	}
	if got["Timeslot"] != "Saturday 10am" || got["Date"] != "07/03/2026" {
		t.Errorf("got %v, want timeslot and date kept", got)
	}
}

func TestExtractor_ParseHandlesBulletsAndPlaceholders(t *testing.T) {
	e := newExtractor(testProfile())

	got := e.Parse("• Parent Name: Dana Lee • Contact: 9123 4567\nDate: n/a", base)
	if got["Parent Name"] != "Dana Lee" {
		t.Errorf("Parent Name = %q, want Dana Lee", got["Parent Name"])
	}
	if got["Contact"] != "9123 4567" {
		t.Errorf("Contact = %q, want 9123 4567", got["Contact"])
	}
	if _, ok := got["Date"]; ok {
		t.Error("placeholder values must not count as extracted")
	}
}

func TestExtractor_MergeOverlaysWithoutForgetting(t *testing.T) {
	e := newExtractor(testProfile())
	current := map[string]string{"Parent Name": "Dana"}

	merged := e.Merge(current, map[string]string{"Parent Name": "Dana Lee", "Contact": "9123 4567"})
	if merged["Parent Name"] != "Dana Lee" {
		t.Errorf("Parent Name = %q, want the newer value", merged["Parent Name"])
	}
	if merged["Contact"] != "9123 4567" {
		t.Errorf("Contact = %q, want 9123 4567", merged["Contact"])
	}
	if current["Parent Name"] != "Dana" {
		t.Error("Merge must not mutate the input map")
	}
}

func TestExtractor_MergeDropsDateContradictingTimeslot(t *testing.T) {
	e := newExtractor(testProfile())

	// 06/03/2026 is a Friday; the slot says Saturday.
	merged := e.Merge(
		map[string]string{"Timeslot": "Saturday 10am"},
		map[string]string{"Date": "06/03/2026"},
	)
	if _, ok := merged["Date"]; ok {
		t.Fatal("a date on the wrong weekday must be dropped so the assistant asks again")
	}
	if merged["Timeslot"] != "Saturday 10am" {
		t.Fatalf("Timeslot = %q, want untouched", merged["Timeslot"])
	}
}

func TestExtractor_Ready(t *testing.T) {
	e := newExtractor(testProfile())

	full := map[string]string{
		"Parent Name": "Dana Lee",
		"Contact":     "9123 4567",
		"Timeslot":    "Saturday 10am",
		"Date":        "07/03/2026",
	}
	if !e.Ready(full) {
		t.Fatal("all required fields present, want ready")
	}

	delete(full, "Contact")
	if e.Ready(full) {
		t.Fatal("missing field, want not ready")
	}

	full["Contact"] = "   "
	if e.Ready(full) {
		t.Fatal("blank field, want not ready")
	}
}

func TestExtractor_ExtractKeepsCurrentOnModelError(t *testing.T) {
	e := newExtractor(testProfile())
	c := &fakeCompleter{extractErr: errors.New("model unavailable")}
	current := map[string]string{"Parent Name": "Dana Lee"}

	got, err := e.Extract(context.Background(), c, nil, "my number is 9123 4567", current, base)
	if err == nil {
		t.Fatal("want the model error surfaced")
	}
	if got["Parent Name"] != "Dana Lee" || len(got) != 1 {
		t.Fatalf("got %v, want the current fields unchanged", got)
	}

	got["Parent Name"] = "someone else"
	if current["Parent Name"] != "Dana Lee" {
		t.Fatal("Extract must return a copy, not the caller's map")
	}
}
