package transport

import (
	"log/slog"
	"os"
	"sync"

	"rollsink/internal/datepat"
	"rollsink/internal/logging"
)

type state int

const (
	stateIdle state = iota // no handle yet; the first write opens one
	stateOpening
	stateReady
	stateFailed // absorbing
)

type pendingWrite struct {
	payload []byte
	done    func(error)
}

// Transport is a rotating file sink. Writes are serialized through a single
// owner; a rotation in flight is an exclusive phase during which submissions
// buffer instead of writing, which is what makes the replay order guarantee
// structural rather than timing-dependent.
type Transport struct {
	opts        Options
	logger      *slog.Logger
	patternLive bool // the pattern carries at least one date token

	mu   sync.Mutex
	cond *sync.Cond

	st           state
	closed       bool
	eventsClosed bool
	opened       bool // at least one successful open happened
	file         *os.File
	path         string
	size         int64
	seq          int
	rendered     string // date part of the current filename
	captured     datepat.Fields
	failures     int
	pendingArc   string
	buffer       []pendingWrite
	inflight     int
	ackWanted    bool

	bg     sync.WaitGroup
	events chan Event

	// test seams
	openFile func(string) (*os.File, error)
	statFile func(string) (os.FileInfo, error)
}

// New validates the options and returns a transport. The first file is
// opened lazily, on the first write.
func New(opts Options) (*Transport, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	t := &Transport{
		opts:        opts,
		logger:      logger,
		patternLive: datepat.HasTokens(opts.DatePattern),
		events:      make(chan Event, 64),
		openFile: func(path string) (*os.File, error) {
			if err := logging.EnsureDir(path); err != nil {
				return nil, err
			}
			return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		},
		statFile: os.Stat,
	}
	t.cond = sync.NewCond(&t.mu)
	return t, nil
}

// Events exposes lifecycle signals. The channel is buffered and lossy: a
// slow consumer drops events rather than stalling the write path. It closes
// after EventClosed is delivered.
func (t *Transport) Events() <-chan Event {
	return t.events
}

// CurrentPath reports the file currently receiving writes, or "" before the
// first open.
func (t *Transport) CurrentPath() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

// Failed reports whether the transport has entered the absorbing failed
// state.
func (t *Transport) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st == stateFailed
}

// Log formats a record and submits it. done, when non-nil, receives the
// write completion; a nil done is fire-and-forget.
func (t *Transport) Log(level, msg string, meta map[string]any, done func(error)) error {
	rec := Record{Time: t.opts.Clock(), Level: level, Message: msg, Meta: meta}
	return t.Write(t.opts.Format(rec), done)
}

// Write submits pre-formatted bytes. The returned error covers submission
// only (silenced, closed, failed); I/O errors arrive through done.
func (t *Transport) Write(p []byte, done func(error)) error {
	if t.opts.Silent {
		return ErrSilenced
	}
	if t.opts.Stream != nil {
		return t.writeStream(p, done)
	}

	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return ErrClosed
	case t.st == stateFailed:
		t.mu.Unlock()
		return ErrFailed
	}

	t.inflight++
	t.ackWanted = true

	switch t.st {
	case stateIdle:
		t.buffer = append(t.buffer, pendingWrite{p, done})
		t.beginOpenLocked()
		t.mu.Unlock()
		return nil
	case stateOpening:
		t.buffer = append(t.buffer, pendingWrite{p, done})
		t.mu.Unlock()
		return nil
	}

	if t.rotationNeededLocked(int64(len(p))) {
		t.buffer = append(t.buffer, pendingWrite{p, done})
		t.beginOpenLocked()
		t.mu.Unlock()
		return nil
	}

	n, err := t.file.Write(p)
	t.size += int64(n)
	t.mu.Unlock()
	if err != nil {
		t.emit(Event{Kind: EventWarn, Err: err})
	}
	if done != nil {
		done(err)
	}
	t.ackN(1)
	return nil
}

// Close stops accepting writes, waits for the pending buffer and in-flight
// completions to drain, releases the handle, and emits EventClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	for t.st == stateOpening || t.inflight > 0 {
		t.cond.Wait()
	}
	var err error
	if t.file != nil {
		err = t.file.Close()
		t.file = nil
	}
	t.mu.Unlock()

	t.bg.Wait()
	t.emit(Event{Kind: EventClosed})
	t.mu.Lock()
	t.eventsClosed = true
	t.mu.Unlock()
	close(t.events)
	return err
}

func (t *Transport) writeStream(p []byte, done func(error)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	_, err := t.opts.Stream.Write(p)
	t.mu.Unlock()
	if done != nil {
		done(err)
	}
	return nil
}

// rotationNeededLocked decides whether the incoming write may land in the
// current file. The size check accounts for the incoming payload so the
// record that would push the file past the cap is the first one routed to
// the next file; the cap is never enforced mid-write.
func (t *Transport) rotationNeededLocked(incoming int64) bool {
	if t.file == nil {
		return true
	}
	if t.opts.MaxSize > 0 && t.size+incoming > t.opts.MaxSize {
		return true
	}
	if !t.patternLive {
		return false
	}
	return datepat.Expired(t.opts.DatePattern, t.captured, datepat.FieldsAt(t.opts.Clock()))
}

func (t *Transport) beginOpenLocked() {
	t.st = stateOpening
	t.bg.Add(1)
	go t.openLoop()
}

// flush drains the pending buffer one entry at a time while the transport
// stays in the opening state, so submissions racing the drain keep FIFO
// order. The empty-buffer re-check before going ready is the second flush
// the rotation protocol requires.
func (t *Transport) flush() {
	for {
		t.mu.Lock()
		if len(t.buffer) == 0 {
			t.st = stateReady
			t.cond.Broadcast()
			t.mu.Unlock()
			t.emit(Event{Kind: EventFlushed, Path: t.CurrentPath()})
			return
		}
		w := t.buffer[0]
		t.buffer = t.buffer[1:]
		n, err := t.file.Write(w.payload)
		t.size += int64(n)
		t.mu.Unlock()

		if err != nil {
			t.emit(Event{Kind: EventWarn, Err: err})
		}
		if w.done != nil {
			w.done(err)
		}
		t.ackN(1)
	}
}

// ackN retires n in-flight writes and emits the coalesced
// all-writes-acknowledged signal when the counter reaches zero.
func (t *Transport) ackN(n int) {
	t.mu.Lock()
	t.inflight -= n
	fire := t.inflight == 0 && t.ackWanted
	if fire {
		t.ackWanted = false
	}
	t.cond.Broadcast()
	t.mu.Unlock()
	if fire {
		t.emit(Event{Kind: EventAcked})
	}
}

// emit delivers an event without ever blocking the write path. Sends happen
// under the mutex so the eventsClosed check in Close cannot race a straggling
// emitter into a closed channel.
func (t *Transport) emit(evt Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.eventsClosed {
		return
	}
	select {
	case t.events <- evt:
	default:
	}
}
