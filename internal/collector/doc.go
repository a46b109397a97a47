// Package collector runs the line-to-sink pipeline behind the collect
// command.
//
// It acquires a single-instance lock in the sink directory, tags the run
// with a session id, feeds stdin lines through the rotating transport, and
// journals every lifecycle event to the history store.
package collector
