package transport_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rollsink/internal/transport"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var jan1 = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)

func newFileTransport(t *testing.T, dir string, mutate func(*transport.Options)) *transport.Transport {
	t.Helper()
	opts := transport.Options{
		Filename:    "app.log",
		Dirname:     dir,
		DatePattern: ".yyyy-MM-dd",
		Clock:       fixedClock(jan1),
	}
	if mutate != nil {
		mutate(&opts)
	}
	tr, err := transport.New(opts)
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	return tr
}

// submit writes p and waits for its completion.
func submit(t *testing.T, tr *transport.Transport, p []byte) {
	t.Helper()
	done := make(chan error, 1)
	if err := tr.Write(p, func(err error) { done <- err }); err != nil {
		t.Fatalf("write rejected: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("write failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write completion never delivered")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewValidatesTargets(t *testing.T) {
	if _, err := transport.New(transport.Options{}); !errors.Is(err, transport.ErrNoTarget) {
		t.Errorf("no target: got %v", err)
	}
	var buf bytes.Buffer
	_, err := transport.New(transport.Options{Filename: "app.log", Stream: &buf})
	if !errors.Is(err, transport.ErrBothTargets) {
		t.Errorf("both targets: got %v", err)
	}
}

func TestFirstWriteOpensLazily(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, nil)

	if tr.CurrentPath() != "" {
		t.Error("path assigned before first write")
	}
	submit(t, tr, []byte("hello\n"))

	want := filepath.Join(dir, "app.log.2024-01-01")
	if tr.CurrentPath() != want {
		t.Errorf("current path = %q, want %q", tr.CurrentPath(), want)
	}
	if got := readFile(t, want); got != "hello\n" {
		t.Errorf("file content = %q", got)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSizeRotationUsesSequenceSuffix(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxSize = 120
	})

	record := []byte(strings.Repeat("x", 49) + "\n") // 50 bytes
	for i := 0; i < 3; i++ {
		submit(t, tr, record)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	first := readFile(t, filepath.Join(dir, "app.log.2024-01-01"))
	second := readFile(t, filepath.Join(dir, "app.log.2024-01-01.1"))
	if len(first) != 100 {
		t.Errorf("first file has %d bytes, want 100", len(first))
	}
	if len(second) != 50 {
		t.Errorf("second file has %d bytes, want 50", len(second))
	}
}

func TestReopenSeedsSizeAndAppends(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "app.log.2024-01-01")
	if err := os.WriteFile(existing, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxSize = 100
	})
	submit(t, tr, []byte("new\n"))
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := readFile(t, existing); got != "old\nnew\n" {
		t.Errorf("append expected, got %q", got)
	}
}

func TestDateRotationHonorsPatternGranularity(t *testing.T) {
	dir := t.TempDir()
	now := jan1
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.DatePattern = ".yyyy-MM-dd"
		o.Clock = func() time.Time { return now }
	})

	submit(t, tr, []byte("one\n"))
	dayFile := tr.CurrentPath()

	// An hour later the day pattern must not rotate.
	now = now.Add(time.Hour)
	submit(t, tr, []byte("two\n"))
	if tr.CurrentPath() != dayFile {
		t.Errorf("day pattern rotated on hour change")
	}

	// The next day it must.
	now = now.Add(24 * time.Hour)
	submit(t, tr, []byte("three\n"))
	if tr.CurrentPath() == dayFile {
		t.Error("day pattern did not rotate on day change")
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestHourPatternRotatesEachHour(t *testing.T) {
	dir := t.TempDir()
	now := jan1
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.DatePattern = ".yyyy-MM-dd-HH"
		o.Clock = func() time.Time { return now }
	})

	submit(t, tr, []byte("one\n"))
	first := tr.CurrentPath()
	now = now.Add(time.Hour)
	submit(t, tr, []byte("two\n"))
	second := tr.CurrentPath()
	if first == second {
		t.Fatal("hour pattern did not rotate on hour boundary")
	}
	if !strings.HasSuffix(first, "2024-01-01-10") || !strings.HasSuffix(second, "2024-01-01-11") {
		t.Errorf("unexpected names: %q then %q", first, second)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestPrependModeRewritesDefaultPattern(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.DatePattern = "" // pick the default, then rewrite for prepend
		o.Prepend = true
	})
	submit(t, tr, []byte("x\n"))
	want := filepath.Join(dir, "2024-01-01.app.log")
	if tr.CurrentPath() != want {
		t.Errorf("prepend path = %q, want %q", tr.CurrentPath(), want)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBufferedWritesReplayInOrder(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, nil)

	release := make(chan struct{})
	var gate atomic.Bool
	tr.SetOpenFileForTest(func(path string) (*os.File, error) {
		if !gate.Swap(true) {
			<-release
		}
		return nil, nil // fall through to the real open
	})

	for i := 0; i < 5; i++ {
		payload := []byte(string(rune('a'+i)) + "\n")
		if err := tr.Write(payload, nil); err != nil {
			t.Fatalf("write %d rejected: %v", i, err)
		}
	}
	close(release)

	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got := readFile(t, filepath.Join(dir, "app.log.2024-01-01"))
	if got != "a\nb\nc\nd\ne\n" {
		t.Errorf("replay order broken: %q", got)
	}
}

func TestFailedStateFencesWrites(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxRetries = 2
	})

	var opens atomic.Int32
	tr.SetOpenFileForTest(func(string) (*os.File, error) {
		opens.Add(1)
		return nil, errors.New("disk on fire")
	})

	gotErr := make(chan error, 1)
	if err := tr.Write([]byte("doomed\n"), func(err error) { gotErr <- err }); err != nil {
		t.Fatalf("initial write rejected: %v", err)
	}
	select {
	case err := <-gotErr:
		if !errors.Is(err, transport.ErrFailed) {
			t.Errorf("buffered write completion = %v, want ErrFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("buffered write never completed")
	}

	if !tr.Failed() {
		t.Fatal("transport did not enter failed state")
	}
	if got := opens.Load(); got != 3 { // initial attempt + two retries
		t.Errorf("open attempts = %d, want 3", got)
	}

	// Every subsequent write fails fast without touching the filesystem.
	if err := tr.Write([]byte("after\n"), nil); !errors.Is(err, transport.ErrFailed) {
		t.Errorf("post-failure write = %v, want ErrFailed", err)
	}
	if got := opens.Load(); got != 3 {
		t.Errorf("filesystem touched after failed state: %d opens", got)
	}
}

func TestStatFailureEscalatesWithoutRetry(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxRetries = 5
	})
	tr.SetStatFileForTest(func(string) (os.FileInfo, error) {
		return nil, errors.New("permission denied")
	})

	gotErr := make(chan error, 1)
	if err := tr.Write([]byte("x\n"), func(err error) { gotErr <- err }); err != nil {
		t.Fatalf("write rejected: %v", err)
	}
	select {
	case <-gotErr:
	case <-time.After(5 * time.Second):
		t.Fatal("write never completed")
	}
	if !tr.Failed() {
		t.Fatal("stat failure did not escalate to failed state")
	}
	if got := tr.OpenFailuresForTest(); got != 0 {
		t.Errorf("stat failure consumed %d retries, want 0", got)
	}
}

func TestSilencedTransportRejectsWrites(t *testing.T) {
	tr := newFileTransport(t, t.TempDir(), func(o *transport.Options) {
		o.Silent = true
	})
	if err := tr.Write([]byte("x\n"), nil); !errors.Is(err, transport.ErrSilenced) {
		t.Errorf("silenced write = %v, want ErrSilenced", err)
	}
}

func TestCloseRejectsFurtherWritesAndIsIdempotent(t *testing.T) {
	tr := newFileTransport(t, t.TempDir(), nil)
	submit(t, tr, []byte("x\n"))
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := tr.Write([]byte("late\n"), nil); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("write after close = %v, want ErrClosed", err)
	}
	if err := tr.Close(); !errors.Is(err, transport.ErrClosed) {
		t.Errorf("second close = %v, want ErrClosed", err)
	}
}

func TestStreamModeBypassesRotation(t *testing.T) {
	var buf bytes.Buffer
	tr, err := transport.New(transport.Options{Stream: &buf, Clock: fixedClock(jan1)})
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	done := make(chan error, 1)
	if err := tr.Write([]byte("raw\n"), func(err error) { done <- err }); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("completion: %v", err)
	}
	if buf.String() != "raw\n" {
		t.Errorf("stream content = %q", buf.String())
	}
	if tr.CurrentPath() != "" {
		t.Error("stream mode assigned a file path")
	}
}

func TestLogFormatsRecords(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, nil)
	done := make(chan error, 1)
	err := tr.Log("info", "hello world", map[string]any{"user": "amy"}, func(err error) { done <- err })
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("completion: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := readFile(t, filepath.Join(dir, "app.log.2024-01-01"))
	for _, want := range []string{`"level":"info"`, `"msg":"hello world"`, `"user":"amy"`, `"ts":"2024-01-01T10:00:00Z"`} {
		if !strings.Contains(line, want) {
			t.Errorf("formatted line missing %s: %q", want, line)
		}
	}
}

func TestEventsLifecycle(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, nil)

	submit(t, tr, []byte("x\n"))
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	seen := map[transport.EventKind]bool{}
	for evt := range tr.Events() {
		seen[evt.Kind] = true
	}
	for _, kind := range []transport.EventKind{transport.EventOpened, transport.EventFlushed, transport.EventAcked, transport.EventClosed} {
		if !seen[kind] {
			t.Errorf("missing lifecycle event %s", kind)
		}
	}
}

func TestArchiveCompressesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxSize = 10
		o.Archive = true
		o.MaxFiles = 10
	})

	submit(t, tr, []byte("0123456789\n")) // 11 bytes, next write rotates
	submit(t, tr, []byte("second\n"))
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "app.log.2024-01-01.gz")); err != nil {
		t.Errorf("rotated file was not archived: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "app.log.2024-01-01")); !os.IsNotExist(err) {
		t.Error("archive source still present")
	}
}

func TestSweepSparesActiveFile(t *testing.T) {
	dir := t.TempDir()
	tr := newFileTransport(t, dir, func(o *transport.Options) {
		o.MaxSize = 10
		o.MaxFiles = 1
	})

	// Each record overflows MaxSize, so every submit after the first rotates
	// and triggers a retention sweep with a keep count of zero.
	submit(t, tr, []byte("0123456789\n"))
	submit(t, tr, []byte("abcdefghij\n"))
	submit(t, tr, []byte("last line!\n"))
	current := tr.CurrentPath()
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := os.Stat(current); err != nil {
		t.Fatalf("active file removed by sweep: %v", err)
	}
	if got := readFile(t, current); got != "last line!\n" {
		t.Errorf("active file content = %q, want last record", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d files after sweeps, want 1", len(entries))
	}
}

func TestCloseRacingWritesDoesNotPanic(t *testing.T) {
	for i := 0; i < 25; i++ {
		dir := t.TempDir()
		tr := newFileTransport(t, dir, nil)
		submit(t, tr, []byte("seed\n"))

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := tr.Write([]byte("x\n"), nil); errors.Is(err, transport.ErrClosed) {
					return
				}
			}
		}()
		if err := tr.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		wg.Wait()
		for range tr.Events() {
		}
	}
}
