package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Sink contains the rotation target and its rotation triggers.
type Sink struct {
	Filename    string `toml:"filename"`
	Dirname     string `toml:"dirname"`
	DatePattern string `toml:"date_pattern"`
	Prepend     bool   `toml:"prepend"`
	MaxSize     int64  `toml:"max_size"`
	MaxRetries  int    `toml:"max_retries"`
	Silent      bool   `toml:"silent"`
}

// Retention contains the rotated-file retention policy.
type Retention struct {
	MaxFiles      int  `toml:"max_files"`
	OlderThanDays int  `toml:"older_than_days"`
	Archive       bool `toml:"archive"`
}

// Logging contains configuration for diagnostic output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains configuration for the lifecycle event journal.
type History struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for rollsink.
//
// Configuration sections by subsystem:
//   - Sink: file target, date pattern, size cap, retry ceiling
//   - Retention: count or age based sweeps, gzip archival
//   - Logging: diagnostic log format and level
//   - History: SQLite journal of lifecycle events
type Config struct {
	Sink      Sink      `toml:"sink"`
	Retention Retention `toml:"retention"`
	Logging   Logging   `toml:"logging"`
	History   History   `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rollsink/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was actually found; defaults are returned otherwise.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rollsink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	c.Sink.Filename = strings.TrimSpace(c.Sink.Filename)
	if strings.TrimSpace(c.Sink.Dirname) == "" {
		c.Sink.Dirname = defaultDirname
	}
	if c.Sink.Dirname, err = expandPath(c.Sink.Dirname); err != nil {
		return fmt.Errorf("sink.dirname: %w", err)
	}
	c.Sink.DatePattern = strings.TrimSpace(c.Sink.DatePattern)
	if c.Sink.MaxRetries <= 0 {
		c.Sink.MaxRetries = defaultMaxRetries
	}

	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// OlderThan converts the retention age from days to a duration.
func (c *Config) OlderThan() time.Duration {
	return time.Duration(c.Retention.OlderThanDays) * 24 * time.Hour
}

// HistoryRetention converts the journal retention from days to a duration.
// Zero means keep everything.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

// CurrentBasePath returns the sink target without any date or sequence
// decoration, used by the query and tail commands to locate files.
func (c *Config) CurrentBasePath() string {
	return filepath.Join(c.Sink.Dirname, c.Sink.Filename)
}

// EnsureDirectories creates the sink directory and the journal's parent.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Sink.Dirname, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Sink.Dirname, err)
	}
	if c.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", filepath.Dir(c.History.Path), err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
