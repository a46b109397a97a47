package tailf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval is the fallback wakeup for appends fsnotify misses.
const pollInterval = 250 * time.Millisecond

// Event is one appended line. Record is non-nil when the line parsed as
// JSON; Err reports a parse or read problem without ending the stream.
type Event struct {
	Line   string
	Record map[string]any
	Err    error
}

// Tailer follows a single file. It is not restartable: once stopped, a new
// Tailer must be created to resume.
type Tailer struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// Follow opens path, seeks to start (negative means the current end), and
// begins emitting appended lines. Unlike a query, a missing file is an
// error here: tailing a file that does not exist yet has nothing to attach
// to.
func Follow(ctx context.Context, path string, start int64) (*Tailer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tail target: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat tail target: %w", err)
	}
	offset := start
	if offset < 0 || offset > info.Size() {
		offset = info.Size()
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek tail target: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, fmt.Errorf("watch tail target: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Tailer{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx, file, watcher)
	return t, nil
}

// Events delivers appended lines. The channel closes after Stop or context
// cancellation.
func (t *Tailer) Events() <-chan Event {
	return t.events
}

// Stop cancels the tail, releases the watcher and handle, and waits for the
// event channel to close.
func (t *Tailer) Stop() {
	t.cancel()
	<-t.done
}

func (t *Tailer) run(ctx context.Context, file *os.File, watcher *fsnotify.Watcher) {
	defer close(t.done)
	defer close(t.events)
	defer file.Close()
	defer watcher.Close()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var partial []byte
	for {
		partial = t.drain(ctx, file, partial)

		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			_ = evt // any event on the file is a reason to re-read
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if !t.send(ctx, Event{Err: fmt.Errorf("watch tail target: %w", err)}) {
				return
			}
		case <-ticker.C:
		}
	}
}

// drain reads everything appended since the last call and emits complete
// lines, carrying an unterminated trailing chunk over to the next round.
func (t *Tailer) drain(ctx context.Context, file *os.File, partial []byte) []byte {
	buf := make([]byte, 64*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				idx := bytes.IndexByte(partial, '\n')
				if idx < 0 {
					break
				}
				line := string(partial[:idx])
				partial = partial[idx+1:]
				if !t.send(ctx, parseLine(line)) {
					return partial
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				t.send(ctx, Event{Err: fmt.Errorf("read tail target: %w", err)})
			}
			return partial
		}
		if n == 0 {
			return partial
		}
	}
}

func (t *Tailer) send(ctx context.Context, evt Event) bool {
	select {
	case t.events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}

func parseLine(line string) Event {
	evt := Event{Line: line}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		evt.Err = fmt.Errorf("parse log line: %w", err)
		return evt
	}
	evt.Record = rec
	return evt
}
