// Package tailf follows a log file and emits newly appended lines as
// events.
//
// A Tailer seeks to the requested position (or the current end), then wakes
// on fsnotify write notifications with a polling ticker as a fallback for
// filesystems that do not deliver them. Each complete line becomes one
// event carrying the raw text and, when the line parses as JSON, the
// structured record; a parse failure is reported as an error event without
// terminating the stream. Stopping the tailer releases the watcher and the
// file handle; there is no replay.
package tailf
