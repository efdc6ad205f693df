package logger

import "github.com/rs/zerolog"

// LoggerConfig is the resolved form of config.LogConfig.
type LoggerConfig struct {
	Level    zerolog.Level
	Format   LogFormat
	FilePath string
	Rotation RotationPolicy
	Service  string
}

// RotationPolicy maps onto lumberjack's size and age limits.
type RotationPolicy struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogFormat selects the record layout.
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatConsole
	FormatText
)

var formatNames = map[LogFormat]string{
	FormatJSON:    "json",
	FormatConsole: "console",
	FormatText:    "text",
}

func (lf LogFormat) String() string {
	if name, ok := formatNames[lf]; ok {
		return name
	}
	return "console"
}

// EnableFile reports whether records are also written to FilePath.
func (c LoggerConfig) EnableFile() bool {
	return c.FilePath != ""
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:  zerolog.InfoLevel,
		Format: FormatConsole,
		Rotation: RotationPolicy{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Service: "marketwatch",
	}
}
