package query

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Order controls result ordering. Records are always collected oldest-first;
// Desc reverses the collected set afterwards.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Options bounds a query.
type Options struct {
	// From includes records with a timestamp at or after it.
	From time.Time
	// Until excludes records with a timestamp at or after it.
	Until time.Time
	// Rows caps the number of matches; zero means unlimited.
	Rows int
	// Start skips this many matches before collecting.
	Start int
	// Order is Asc (default) or Desc.
	Order Order
	// Fields projects each record down to the named keys when non-empty.
	Fields []string
}

// Record is one parsed log line. The transport's default format stores the
// timestamp under "ts" in RFC3339 form.
type Record map[string]any

// Time extracts the record timestamp, reporting false when it is absent or
// unparseable.
func (r Record) Time() (time.Time, bool) {
	raw, ok := r["ts"].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Run reads path and returns the matching records. A missing file is an
// empty result, not an error.
func Run(path string, opts Options) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		results []Record
		skipped int
	)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// Malformed lines, including a trailing partial write, are
			// skipped rather than failing the whole query.
			continue
		}
		if !matches(rec, opts) {
			continue
		}
		if skipped < opts.Start {
			skipped++
			continue
		}
		results = append(results, project(rec, opts.Fields))
		if opts.Rows > 0 && len(results) >= opts.Rows {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("read log file %s: %w", path, err)
	}

	if opts.Order == Desc {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}
	return results, nil
}

func matches(rec Record, opts Options) bool {
	if opts.From.IsZero() && opts.Until.IsZero() {
		return true
	}
	ts, ok := rec.Time()
	if !ok {
		// Records without a timestamp only match unbounded queries.
		return false
	}
	if !opts.From.IsZero() && ts.Before(opts.From) {
		return false
	}
	if !opts.Until.IsZero() && !ts.Before(opts.Until) {
		return false
	}
	return true
}

func project(rec Record, fields []string) Record {
	if len(fields) == 0 {
		return rec
	}
	out := make(Record, len(fields))
	for _, field := range fields {
		if v, ok := rec[field]; ok {
			out[field] = v
		}
	}
	return out
}
