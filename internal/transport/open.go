package transport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	retry "github.com/avast/retry-go/v5"

	"rollsink/internal/datepat"
	"rollsink/internal/retention"
)

type openResult struct {
	path     string
	file     *os.File
	size     int64
	seq      int
	rendered string
	fields   datepat.Fields
}

// openLoop runs the exclusive opening phase: probe and open the next file,
// install it, replay the buffer, then hand the rotated-away file to
// retention. Entered with the transport already in stateOpening.
func (t *Transport) openLoop() {
	defer t.bg.Done()

	res, err := t.openNext()
	if err != nil {
		t.failOpen(err)
		return
	}

	t.mu.Lock()
	prev := t.path
	if prev != "" && prev != res.path {
		t.pendingArc = prev
	}
	if t.file != nil {
		_ = t.file.Close()
	}
	t.file = res.file
	t.path = res.path
	t.size = res.size
	t.seq = res.seq
	t.rendered = res.rendered
	t.captured = res.fields
	t.failures = 0
	first := !t.opened
	t.opened = true
	archivePath := t.pendingArc
	t.pendingArc = ""
	t.mu.Unlock()

	t.emit(Event{Kind: EventOpened, Path: res.path})
	t.flush()

	if !first {
		t.afterRotate(archivePath)
	}
}

// openNext probes for the next target and opens it, retrying post-open
// failures up to the configured ceiling. Stat failures other than ENOENT
// are unrecoverable and escalate without consuming retries.
func (t *Transport) openNext() (openResult, error) {
	var res openResult
	err := retry.New(
		retry.Attempts(uint(t.opts.MaxRetries)+1),
		retry.Delay(25*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			t.mu.Lock()
			t.failures++
			t.mu.Unlock()
			t.emit(Event{Kind: EventWarn, Err: fmt.Errorf("open next log file: %w", err)})
		}),
	).Do(func() error {
		r, err := t.probe()
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return openResult{}, fmt.Errorf("open next log file: %w", err)
	}
	return res, nil
}

// probe walks sequence-suffix candidates until it finds a fresh path or an
// existing file it can append to.
func (t *Transport) probe() (openResult, error) {
	fields := datepat.FieldsAt(t.opts.Clock())
	rendered := datepat.Render(t.opts.DatePattern, fields)

	t.mu.Lock()
	seq := t.seq
	if rendered != t.rendered {
		// New period, new name: the sequence disambiguator starts over.
		seq = 0
	}
	// The write that triggered the rotation sits at the head of the buffer;
	// an existing file is only reused when that write still fits under the
	// cap, so the triggering record always lands in the probed-for file.
	var incoming int64
	if len(t.buffer) > 0 {
		incoming = int64(len(t.buffer[0].payload))
	}
	t.mu.Unlock()

	for {
		path := filepath.Join(t.opts.Dirname, t.targetName(rendered, seq))
		info, err := t.statFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			file, openErr := t.openFile(path)
			if openErr != nil {
				return openResult{}, openErr
			}
			return openResult{path: path, file: file, seq: seq, rendered: rendered, fields: fields}, nil
		case err != nil:
			return openResult{}, retry.Unrecoverable(fmt.Errorf("stat rotation target %s: %w", path, err))
		case t.opts.MaxSize > 0 && (info.Size() >= t.opts.MaxSize || info.Size()+incoming > t.opts.MaxSize):
			seq++
		default:
			// Under the cap and in the current period: append to it.
			file, openErr := t.openFile(path)
			if openErr != nil {
				return openResult{}, openErr
			}
			return openResult{path: path, file: file, size: info.Size(), seq: seq, rendered: rendered, fields: fields}, nil
		}
	}
}

func (t *Transport) targetName(rendered string, seq int) string {
	name := t.opts.Filename + rendered
	if t.opts.Prepend {
		name = rendered + t.opts.Filename
	}
	if seq > 0 {
		name += "." + strconv.Itoa(seq)
	}
	return name
}

// failOpen moves the transport into the absorbing failed state and fails
// every buffered write without touching the filesystem again.
func (t *Transport) failOpen(err error) {
	t.mu.Lock()
	t.st = stateFailed
	buffered := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	t.emit(Event{Kind: EventFatal, Err: err})
	for _, w := range buffered {
		if w.done != nil {
			w.done(ErrFailed)
		}
	}
	if len(buffered) > 0 {
		t.ackN(len(buffered))
	} else {
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
	}
}

// afterRotate archives the rotated-away file and runs the retention sweep.
// Failures surface as warnings; the write path is already serving the new
// file by the time this runs.
func (t *Transport) afterRotate(prev string) {
	if t.opts.Archive && prev != "" {
		if err := retention.Archive(prev); err != nil {
			t.emit(Event{Kind: EventWarn, Err: err})
		}
	}
	pol := t.opts.retentionPolicy()
	if pol.Enabled() {
		// The file now receiving writes is never a sweep candidate, even
		// when the keep count works out to zero.
		pol.Exclude = []string{t.CurrentPath()}
		if err := retention.Sweep(t.logger, t.opts.Dirname, t.opts.Filename, pol); err != nil {
			t.emit(Event{Kind: EventWarn, Err: err})
		}
	}
}
