package config

const (
	defaultLogDir          = "~/.local/share/mediasort/logs"
	defaultHistoryDB       = "~/.local/share/mediasort/history.db"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultWorkers         = 1
	defaultTimestamp       = TimestampCreated
	defaultUnknownDir      = "Unknown"
	defaultCrossDeviceCopy = true
	defaultHistoryEnabled  = true

	maxWorkers = 64
)

// Timestamp preferences for the filesystem fallback.
const (
	TimestampCreated  = "created"
	TimestampModified = "modified"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Sort: Sort{
			Workers:         defaultWorkers,
			Timestamp:       defaultTimestamp,
			UnknownDir:      defaultUnknownDir,
			CrossDeviceCopy: defaultCrossDeviceCopy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: defaultHistoryEnabled,
		},
	}
}
