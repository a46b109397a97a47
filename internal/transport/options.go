package transport

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"rollsink/internal/datepat"
	"rollsink/internal/retention"
)

// DefaultMaxRetries bounds consecutive open failures before the transport
// enters the failed state.
const DefaultMaxRetries = 2

// Options configures a Transport. Exactly one of Filename or Stream must be
// set: Filename selects the rotating file sink, Stream a raw pass-through
// writer with no rotation or retention.
type Options struct {
	// Filename is the base name of the log file set, e.g. "app.log". The
	// rendered date pattern is appended to it (or prepended, see Prepend).
	Filename string
	// Dirname is the directory holding the file set. Defaults to ".".
	Dirname string
	// Stream, when set, receives every formatted record directly.
	Stream io.Writer

	// DatePattern names the rotation boundary. Empty selects
	// datepat.Default. See the datepat package for the token language.
	DatePattern string
	// Prepend puts the rendered date before the base name instead of after
	// it. When the pattern is still the built-in default it is rewritten
	// from the suffix form to the prefix form.
	Prepend bool

	// MaxSize caps a single file in bytes. Zero disables size rotation. The
	// cap is checked before a write is accepted, never mid-write, so files
	// may overshoot by at most one record.
	MaxSize int64
	// MaxFiles bounds the retained file count; takes precedence over MaxAge.
	MaxFiles int
	// MaxAge deletes rotated files older than the duration.
	MaxAge time.Duration
	// Archive gzips each rotated-away file and removes the source.
	Archive bool

	// MaxRetries bounds consecutive open failures. Zero selects
	// DefaultMaxRetries.
	MaxRetries int
	// Silent rejects every write without touching the filesystem.
	Silent bool

	// Format renders records; nil selects JSONFormat.
	Format FormatFunc
	// Logger receives retention and archival diagnostics. Nil discards them.
	Logger *slog.Logger

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

var (
	// ErrNoTarget is returned by New when neither Filename nor Stream is set.
	ErrNoTarget = errors.New("transport requires a filename or a stream")
	// ErrBothTargets is returned by New when Filename and Stream are both
	// set; the two sinks are mutually exclusive.
	ErrBothTargets = errors.New("transport filename and stream are mutually exclusive")
	// ErrSilenced is returned by writes on a silenced transport.
	ErrSilenced = errors.New("transport is silenced")
	// ErrFailed is returned by writes after the open-retry ceiling was
	// exceeded; the failed state is absorbing.
	ErrFailed = errors.New("transport in failed state")
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("transport is closed")
)

func (o *Options) normalize() error {
	if o.Filename == "" && o.Stream == nil {
		return ErrNoTarget
	}
	if o.Filename != "" && o.Stream != nil {
		return ErrBothTargets
	}
	if o.Dirname == "" {
		o.Dirname = "."
	}
	if o.DatePattern == "" {
		o.DatePattern = datepat.Default
	}
	if o.Prepend && o.DatePattern == datepat.Default {
		o.DatePattern = datepat.DefaultPrepend
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Format == nil {
		o.Format = JSONFormat
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return nil
}

func (o *Options) retentionPolicy() retention.Policy {
	pol := retention.Policy{Archive: o.Archive}
	if o.MaxFiles > 0 {
		pol.MaxFiles = o.MaxFiles
	} else {
		pol.MaxAge = o.MaxAge
	}
	return pol
}
