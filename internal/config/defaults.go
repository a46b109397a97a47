package config

const (
	defaultDirname              = "~/.local/share/rollsink/logs"
	defaultFilename             = "app.log"
	defaultHistoryPath          = "~/.local/share/rollsink/history.db"
	defaultHistoryRetentionDays = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultMaxRetries           = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Sink: Sink{
			Filename:   defaultFilename,
			Dirname:    defaultDirname,
			MaxRetries: defaultMaxRetries,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled:       true,
			Path:          defaultHistoryPath,
			RetentionDays: defaultHistoryRetentionDays,
		},
	}
}
