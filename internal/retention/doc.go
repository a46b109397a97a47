// Package retention prunes and archives rotated log files.
//
// A sweep enumerates the directory entries sharing the transport's base name,
// ranks them by modification time, and deletes the excess according to either
// a max-files or an age policy. Archival gzips a rotated-away file and
// removes the source. Both operations are best effort: individual failures
// are logged and never abort the remainder of the sweep or block the write
// path.
package retention
