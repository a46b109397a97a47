package transport

// EventKind identifies a lifecycle signal.
type EventKind int

const (
	// EventOpened fires after a rotation (or the first open) installs a new
	// output file.
	EventOpened EventKind = iota
	// EventFlushed fires once the pending buffer has been fully replayed
	// into the freshly opened file.
	EventFlushed
	// EventAcked fires when every submitted write has had its completion
	// delivered. Repeated submissions within one drain cycle coalesce into a
	// single event.
	EventAcked
	// EventClosed fires exactly once, after Close drains and releases the
	// handle.
	EventClosed
	// EventWarn carries a non-fatal error (retention, archival, open retry).
	EventWarn
	// EventFatal fires when the open-retry ceiling is exceeded and the
	// transport enters the failed state.
	EventFatal
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventFlushed:
		return "flushed"
	case EventAcked:
		return "acked"
	case EventClosed:
		return "closed"
	case EventWarn:
		return "warn"
	case EventFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Event is a lifecycle signal observable through Transport.Events.
type Event struct {
	Kind EventKind
	Path string
	Err  error
}
