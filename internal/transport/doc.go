// Package transport implements the rotating file sink at the heart of
// rollsink.
//
// A Transport owns exactly one output handle. Writes that arrive while a
// rotation is opening the next file are held in a FIFO buffer and replayed
// in submission order once the handle is ready; the flusher dequeues one
// entry at a time while the transport stays in the opening state, so late
// arrivals keep their relative order. Rotation is triggered by a size cap,
// by expiry of the configured date pattern, or by the very first write.
//
// Open failures retry up to a bounded ceiling; exceeding it moves the
// transport into an absorbing failed state in which every subsequent write
// is rejected without touching the filesystem. Retention sweeps and gzip
// archival run as background tasks after each rotation and report failures
// on the event channel as warnings only.
package transport
