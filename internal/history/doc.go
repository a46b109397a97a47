// Package history journals transport lifecycle events in SQLite.
//
// The collector records rotations, retention sweeps, warnings, and fatal
// transitions so operators can reconstruct what the file set did long after
// the log lines themselves have been pruned. The journal is advisory: a
// failed append is logged and dropped, never allowed to disturb the write
// path.
//
// Schema changes bump the version in schema.go; the journal is transient
// operational data, so a mismatched database is reported rather than
// migrated.
package history
