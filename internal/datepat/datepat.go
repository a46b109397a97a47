package datepat

import (
	"strconv"
	"strings"
	"time"
)

// Default is the rotation pattern used when a transport does not configure
// one. Prepend mode rewrites it to DefaultPrepend so the date lands before
// the base name instead of after it.
const (
	Default        = ".yyyy-MM-dd"
	DefaultPrepend = "yyyy-MM-dd."
)

// Fields holds the calendar fields a rotation pattern can reference.
// Second-level granularity is deliberately unsupported.
type Fields struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// FieldsAt captures the pattern-relevant fields of t.
func FieldsAt(t time.Time) Fields {
	return Fields{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

type family int

const (
	famYear family = iota
	famMonth
	famDay
	famHour
	famMinute
)

type token struct {
	fam    family
	render func(Fields) string
}

// Table-driven token set keyed by the literal run text. Runs not present
// here fall through to the literal rules in renderRun.
var tokens = map[string]token{
	"yyyy": {famYear, func(f Fields) string { return pad(f.Year, 4) }},
	"yy":   {famYear, func(f Fields) string { return pad(f.Year%100, 2) }},
	"M":    {famMonth, func(f Fields) string { return strconv.Itoa(f.Month) }},
	"MM":   {famMonth, func(f Fields) string { return pad(f.Month, 2) }},
	"d":    {famDay, func(f Fields) string { return strconv.Itoa(f.Day) }},
	"dd":   {famDay, func(f Fields) string { return pad(f.Day, 2) }},
	"HH":   {famHour, func(f Fields) string { return pad(f.Hour, 2) }},
	"mm":   {famMinute, func(f Fields) string { return pad(f.Minute, 2) }},
}

// Render substitutes recognized tokens in pattern with the corresponding
// fields. Unrecognized runs of two or more identical characters are emitted
// minus their outer characters; single characters pass through unchanged.
// Existing pattern configs rely on the stripping rule, legacy as it is.
func Render(pattern string, f Fields) string {
	var b strings.Builder
	b.Grow(len(pattern))
	scanRuns(pattern, func(run string) {
		if tok, ok := tokens[run]; ok {
			b.WriteString(tok.render(f))
			return
		}
		if len(run) >= 2 {
			b.WriteString(run[1 : len(run)-1])
			return
		}
		b.WriteString(run)
	})
	return b.String()
}

// Expired reports whether any token family present in pattern differs
// between the captured fields and now. Patterns without recognized tokens
// never expire.
func Expired(pattern string, captured, now Fields) bool {
	expired := false
	scanRuns(pattern, func(run string) {
		tok, ok := tokens[run]
		if !ok {
			return
		}
		switch tok.fam {
		case famYear:
			expired = expired || captured.Year != now.Year
		case famMonth:
			expired = expired || captured.Month != now.Month
		case famDay:
			expired = expired || captured.Day != now.Day
		case famHour:
			expired = expired || captured.Hour != now.Hour
		case famMinute:
			expired = expired || captured.Minute != now.Minute
		}
	})
	return expired
}

// HasTokens reports whether pattern contains at least one recognized token.
func HasTokens(pattern string) bool {
	found := false
	scanRuns(pattern, func(run string) {
		if _, ok := tokens[run]; ok {
			found = true
		}
	})
	return found
}

// scanRuns splits pattern into maximal runs of identical characters and
// invokes fn for each run in order.
func scanRuns(pattern string, fn func(run string)) {
	for start := 0; start < len(pattern); {
		end := start + 1
		for end < len(pattern) && pattern[end] == pattern[start] {
			end++
		}
		fn(pattern[start:end])
		start = end
	}
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
