package collector_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rollsink/internal/collector"
	"rollsink/internal/config"
	"rollsink/internal/history"
	"rollsink/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Sink.Filename = "app.log"
	cfg.Sink.Dirname = dir
	cfg.History.Enabled = false
	cfg.History.Path = filepath.Join(dir, "history.db")
	return &cfg
}

func findSinkFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "app.log") {
			return filepath.Join(dir, entry.Name())
		}
	}
	t.Fatal("no sink file written")
	return ""
}

func TestRunWritesRecordsAndStops(t *testing.T) {
	cfg := testConfig(t)
	col, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	input := strings.Join([]string{
		`{"level":"warn","msg":"disk low","free_mb":12}`,
		"plain text line",
		"",
	}, "\n")
	if err := col.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(findSinkFile(t, cfg.Sink.Dirname))
	if err != nil {
		t.Fatalf("read sink file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), lines)
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parse first record: %v", err)
	}
	if first["level"] != "warn" || first["msg"] != "disk low" {
		t.Errorf("structured line not preserved: %v", first)
	}
	if first["free_mb"] != float64(12) {
		t.Errorf("metadata dropped: %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("parse second record: %v", err)
	}
	if second["level"] != "info" || second["msg"] != "plain text line" {
		t.Errorf("plain line not wrapped: %v", second)
	}
}

func TestRunJournalsLifecycleEvents(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = true
	col, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	if err := col.Run(context.Background(), strings.NewReader("hello\n")); err != nil {
		t.Fatalf("run: %v", err)
	}

	journal, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	entries, err := journal.Recent(context.Background(), 20)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	kinds := make(map[string]bool, len(entries))
	for _, entry := range entries {
		kinds[entry.Kind] = true
		if entry.Session != col.Session() {
			t.Errorf("entry %q has session %q, want %q", entry.Kind, entry.Session, col.Session())
		}
	}
	for _, want := range []string{"opened", "flushed", "closed"} {
		if !kinds[want] {
			t.Errorf("journal missing %q event: %v", want, kinds)
		}
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testConfig(t)
	first, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	second, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer pw.Close()

	done := make(chan error, 1)
	go func() { done <- first.Run(context.Background(), pr) }()

	// Wait until the first instance holds the lock.
	for i := 0; i < 100; i++ {
		if _, statErr := os.Stat(filepath.Join(cfg.Sink.Dirname, "rollsink.lock")); statErr == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	err = second.Run(context.Background(), strings.NewReader("x\n"))
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	pw.Close()
	if runErr := <-done; runErr != nil {
		t.Fatalf("first run: %v", runErr)
	}
}

func TestSilentModeDrainsWithoutWriting(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.Silent = true
	col, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}
	if err := col.Run(context.Background(), strings.NewReader("a\nb\n")); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(cfg.Sink.Dirname)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "app.log") {
			t.Fatalf("silent sink wrote %q", entry.Name())
		}
	}
}

func TestParseLineClassification(t *testing.T) {
	level, msg, meta := collector.ParseLineForTest(`{"level":"error","message":"boom","code":7}`)
	if level != "error" || msg != "boom" {
		t.Fatalf("unexpected level/msg: %q/%q", level, msg)
	}
	if meta["code"] != float64(7) {
		t.Fatalf("unexpected meta: %v", meta)
	}

	level, msg, meta = collector.ParseLineForTest("not json")
	if level != "info" || msg != "not json" || meta != nil {
		t.Fatalf("plain line mishandled: %q/%q/%v", level, msg, meta)
	}

	level, msg, _ = collector.ParseLineForTest(`{"level":5,"msg":"typed"}`)
	if level != "info" || msg != "typed" {
		t.Fatalf("non-string level mishandled: %q/%q", level, msg)
	}
}

func TestRunStopsOnCancelWithOpenInput(t *testing.T) {
	cfg := testConfig(t)
	col, err := collector.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new collector: %v", err)
	}

	// A pipe that never reaches EOF: cancellation alone must unblock Run.
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer pw.Close()
	defer pr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- col.Run(ctx, pr) }()

	if _, err := pw.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write pipe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("collector did not stop after cancellation")
	}
}
