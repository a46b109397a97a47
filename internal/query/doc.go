// Package query reads newline-delimited JSON log files back as bounded,
// ordered record sets.
//
// A query filters by timestamp range, skips a row offset, stops after a row
// limit, and optionally projects each record down to a field subset.
// Malformed lines are skipped silently, including the trailing partial line
// a crash or an in-flight write can leave behind. A missing file yields an
// empty result rather than an error so callers can query between rotations
// without racing retention.
package query
