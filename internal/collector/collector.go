package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"rollsink/internal/config"
	"rollsink/internal/history"
	"rollsink/internal/logging"
	"rollsink/internal/transport"
)

const lockFileName = "rollsink.lock"

// Collector owns the resources of one collect run.
type Collector struct {
	cfg     *config.Config
	logger  *slog.Logger
	session string

	lockPath string
	lock     *flock.Flock
}

// New constructs a collector for the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Collector, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("collector requires config and logger")
	}
	lockPath := filepath.Join(cfg.Sink.Dirname, lockFileName)
	return &Collector{
		cfg:      cfg,
		logger:   logger,
		session:  uuid.NewString(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Session reports the id stamped on this run's journal entries.
func (c *Collector) Session() string {
	return c.session
}

// Run reads lines from input and submits each to the rotating sink until
// EOF, context cancellation, or the sink enters the failed state. Lifecycle
// events are journaled to the history store when it is enabled.
func (c *Collector) Run(ctx context.Context, input io.Reader) error {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another rollsink collector is already running (lock %s)", c.lockPath)
	}
	defer func() {
		if unlockErr := c.lock.Unlock(); unlockErr != nil {
			c.logger.Warn("release collector lock", logging.Error(unlockErr))
		}
	}()

	var journal *history.Store
	if c.cfg.History.Enabled {
		journal, err = history.Open(c.cfg.History.Path)
		if err != nil {
			return err
		}
		defer journal.Close()
		if keep := c.cfg.HistoryRetention(); keep > 0 {
			if _, pruneErr := journal.Prune(ctx, time.Now().Add(-keep)); pruneErr != nil {
				c.logger.Warn("prune history journal", logging.Error(pruneErr))
			}
		}
	}

	tr, err := transport.New(transport.Options{
		Filename:    c.cfg.Sink.Filename,
		Dirname:     c.cfg.Sink.Dirname,
		DatePattern: c.cfg.Sink.DatePattern,
		Prepend:     c.cfg.Sink.Prepend,
		MaxSize:     c.cfg.Sink.MaxSize,
		MaxFiles:    c.cfg.Retention.MaxFiles,
		MaxAge:      c.cfg.OlderThan(),
		Archive:     c.cfg.Retention.Archive,
		MaxRetries:  c.cfg.Sink.MaxRetries,
		Silent:      c.cfg.Sink.Silent,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	var observers sync.WaitGroup
	observers.Add(1)
	go func() {
		defer observers.Done()
		c.observe(ctx, tr, journal)
	}()

	c.logger.Info("collector started",
		logging.String("session", c.session),
		logging.String("target", c.cfg.CurrentBasePath()))

	readErr := c.pump(ctx, tr, input)

	if closeErr := tr.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}
	observers.Wait()

	c.logger.Info("collector stopped", logging.String("session", c.session))
	return readErr
}

// pump reads input line by line and submits each to the transport. The
// blocking read lives in its own goroutine so a cancelled context ends the
// run even while stdin stays open and silent; in that case the reader
// goroutine is abandoned mid-read and exits with the process.
func (c *Collector) pump(ctx context.Context, tr *transport.Transport, input io.Reader) error {
	lines := make(chan string)
	readDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(input)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r")
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readDone <- scanner.Err()
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readDone:
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		case line = <-lines:
		}

		level, msg, meta := parseLine(line)
		err := tr.Log(level, msg, meta, func(writeErr error) {
			if writeErr != nil && !errors.Is(writeErr, transport.ErrFailed) {
				c.logger.Warn("record write", logging.Error(writeErr))
			}
		})
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrSilenced):
			// Silent mode drops everything; keep draining input.
		case errors.Is(err, transport.ErrFailed):
			return fmt.Errorf("sink failed: %w", err)
		default:
			return err
		}
	}
}

// observe journals transport lifecycle events until the channel closes.
func (c *Collector) observe(ctx context.Context, tr *transport.Transport, journal *history.Store) {
	for evt := range tr.Events() {
		switch evt.Kind {
		case transport.EventWarn:
			c.logger.Warn("sink warning", logging.String("path", evt.Path), logging.Error(evt.Err))
		case transport.EventFatal:
			c.logger.Error("sink failed", logging.String("path", evt.Path), logging.Error(evt.Err))
		case transport.EventAcked:
			// High-frequency; not journaled.
			continue
		}
		if journal == nil {
			continue
		}
		entry := history.Entry{
			Session: c.session,
			Kind:    evt.Kind.String(),
			Path:    evt.Path,
		}
		if evt.Err != nil {
			entry.Detail = evt.Err.Error()
		}
		if err := journal.Append(ctx, entry); err != nil {
			c.logger.Warn("journal event", logging.Error(err))
		}
	}
}

// parseLine pulls level, message, and metadata out of a JSON input line.
// Anything that does not parse as a JSON object becomes an info record with
// the raw line as its message.
func parseLine(line string) (level, msg string, meta map[string]any) {
	level = "info"
	msg = line
	if len(line) == 0 || line[0] != '{' {
		return level, msg, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return level, msg, nil
	}
	if v, ok := obj["level"].(string); ok && v != "" {
		level = v
		delete(obj, "level")
	}
	for _, key := range []string{"msg", "message"} {
		if v, ok := obj[key].(string); ok {
			msg = v
			delete(obj, key)
			break
		}
	}
	if len(obj) == 0 {
		return level, msg, nil
	}
	return level, msg, obj
}
