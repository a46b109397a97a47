package datepat_test

import (
	"testing"
	"time"

	"rollsink/internal/datepat"
)

func fieldsFor(year, month, day, hour, minute int) datepat.Fields {
	return datepat.Fields{Year: year, Month: month, Day: day, Hour: hour, Minute: minute}
}

func TestRenderTokens(t *testing.T) {
	f := fieldsFor(2024, 1, 9, 5, 7)

	cases := []struct {
		pattern string
		want    string
	}{
		{".yyyy-MM-dd", ".2024-01-09"},
		{"yyyy-MM-dd.", "2024-01-09."},
		{"yy-M-d", "24-1-9"},
		{"HH:mm", "05:07"},
		{"yyyy", "2024"},
		{"", ""},
		{"log", "log"},
	}
	for _, tc := range cases {
		if got := datepat.Render(tc.pattern, f); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.pattern, got, tc.want)
		}
	}
}

func TestRenderStripsUnrecognizedRuns(t *testing.T) {
	f := fieldsFor(2024, 1, 9, 5, 7)

	// Runs of two or more identical characters that do not name a token are
	// emitted minus their first and last character.
	cases := []struct {
		pattern string
		want    string
	}{
		{"--", ""},
		{"---", "-"},
		{"xxxx", "xx"},
		{"a--b", "ab"},
		{"H", "H"}, // single unmatched character passes through
	}
	for _, tc := range cases {
		if got := datepat.Render(tc.pattern, f); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.pattern, got, tc.want)
		}
	}
}

func TestExpiredChecksOnlyPresentFamilies(t *testing.T) {
	captured := fieldsFor(2024, 1, 9, 5, 0)

	hourLater := captured
	hourLater.Hour = 6
	if datepat.Expired(".yyyy-MM-dd", captured, hourLater) {
		t.Error("day pattern expired on hour change")
	}
	if !datepat.Expired(".yyyy-MM-dd-HH", captured, hourLater) {
		t.Error("hour pattern did not expire on hour change")
	}

	dayLater := captured
	dayLater.Day = 10
	if !datepat.Expired(".yyyy-MM-dd", captured, dayLater) {
		t.Error("day pattern did not expire on day change")
	}

	minuteLater := captured
	minuteLater.Minute = 1
	if !datepat.Expired("HH-mm", captured, minuteLater) {
		t.Error("minute pattern did not expire on minute change")
	}
}

func TestExpiredWithoutTokensNeverExpires(t *testing.T) {
	captured := fieldsFor(2024, 1, 9, 5, 0)
	next := fieldsFor(2030, 12, 31, 23, 59)
	if datepat.Expired("static", captured, next) {
		t.Error("token-free pattern expired")
	}
}

func TestHasTokens(t *testing.T) {
	if !datepat.HasTokens(datepat.Default) {
		t.Error("default pattern should contain tokens")
	}
	if datepat.HasTokens("plain-text") {
		t.Error("plain text should not contain tokens")
	}
}

func TestFieldsAt(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 17, 42, 9, 0, time.UTC)
	got := datepat.FieldsAt(ts)
	want := fieldsFor(2024, 3, 5, 17, 42)
	if got != want {
		t.Errorf("FieldsAt = %+v, want %+v", got, want)
	}
}
