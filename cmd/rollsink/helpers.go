package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rollsink/internal/config"
	"rollsink/internal/retention"
)

// resolveTargetFile picks the file a read command should operate on: an
// explicit path wins, otherwise the most recently modified member of the
// configured file set.
func resolveTargetFile(cfg *config.Config, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return config.ExpandPath(explicit)
	}

	entries, err := os.ReadDir(cfg.Sink.Dirname)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.CurrentBasePath(), nil
		}
		return "", fmt.Errorf("read sink directory: %w", err)
	}

	var newest string
	var newestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !memberOfSet(name, cfg.Sink.Filename) {
			continue
		}
		if strings.HasSuffix(name, retention.CompressSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = name
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return cfg.CurrentBasePath(), nil
	}
	return filepath.Join(cfg.Sink.Dirname, newest), nil
}

// memberOfSet matches both suffix-dated (app.log.2024-01-01) and
// prepend-dated (2024-01-01.app.log) members of the file set.
func memberOfSet(name, base string) bool {
	return strings.HasPrefix(name, base) || strings.HasSuffix(trimCompressed(name), base)
}

func trimCompressed(name string) string {
	return strings.TrimSuffix(name, retention.CompressSuffix)
}

// parseTimeFlag accepts RFC3339 or a bare date.
func parseTimeFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse("2006-01-02", value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", value)
}
