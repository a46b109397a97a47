package retention

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rollsink/internal/logging"
)

// CompressSuffix marks archived files; archived candidates are the only ones
// a sweep considers when archival is enabled.
const CompressSuffix = ".gz"

// Policy bounds the rotated file set. MaxFiles takes precedence over MaxAge
// when both are set.
type Policy struct {
	MaxFiles int
	MaxAge   time.Duration
	Archive  bool
	// Exclude lists paths a sweep must never delete regardless of the
	// policy. The transport puts its current output file here so a sweep
	// can never unlink the file still receiving writes.
	Exclude []string
}

// Enabled reports whether the policy prunes anything at all.
func (p Policy) Enabled() bool {
	return p.MaxFiles > 0 || p.MaxAge > 0
}

type candidate struct {
	path    string
	modTime time.Time
}

// Sweep deletes files in dir whose names start with base and that exceed the
// policy. Deletions are best effort; only the directory listing failure is
// returned. The caller runs sweeps in the background, so the error is
// advisory rather than fatal.
func Sweep(logger *slog.Logger, dir, base string, pol Policy) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if !pol.Enabled() {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list log directory %s: %w", dir, err)
	}

	exclusions := make(map[string]struct{}, len(pol.Exclude))
	for _, path := range pol.Exclude {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			exclusions[filepath.Clean(trimmed)] = struct{}{}
		}
	}

	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if _, skip := exclusions[filepath.Clean(filepath.Join(dir, name))]; skip {
			continue
		}
		if pol.Archive && !strings.HasSuffix(name, CompressSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	var doomed []candidate
	switch {
	case pol.MaxFiles > 0:
		// One slot stays reserved for the file currently being written; a
		// second is reserved while archival may still be compressing the
		// previous one.
		reserve := 1
		if pol.Archive {
			reserve = 2
		}
		keep := pol.MaxFiles - reserve
		if keep < 0 {
			keep = 0
		}
		if len(candidates) > keep {
			doomed = candidates[:len(candidates)-keep]
		}
	case pol.MaxAge > 0:
		cutoff := time.Now().Add(-pol.MaxAge)
		for _, c := range candidates {
			if !c.modTime.After(cutoff) {
				doomed = append(doomed, c)
			}
		}
	}

	for _, c := range doomed {
		if err := os.Remove(c.path); err != nil {
			logger.Warn("log retention remove failed; file remains",
				logging.String("path", c.path),
				logging.Error(err),
			)
			continue
		}
		logger.Info("log pruned", logging.String("path", c.path))
	}
	return nil
}
