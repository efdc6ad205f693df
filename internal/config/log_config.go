package config

import "strings"

// LogConfig controls the process-wide logger. Levels accept the usual zerolog
// names plus the aliases operators carry over from other services
// ("warning", "verbose", "silly", "off").
type LogConfig struct {
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,logformat"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,loglevel"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty" validate:"omitempty,min=0"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" validate:"omitempty,min=1"`
	// MaxLogAgeDays removes rotated files older than this. Zero keeps them.
	MaxLogAgeDays int  `json:"max_log_age_days,omitempty" yaml:"max_log_age_days,omitempty" validate:"omitempty,min=0"`
	CompressLogs  bool `json:"compress_logs,omitempty" yaml:"compress_logs,omitempty"`
	// ServiceName is stamped on every record as "service".
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogFile:       DefaultLogFile,
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MaxLogBackups: DefaultMaxLogBackups,
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
		MaxLogAgeDays: DefaultMaxLogAgeDays,
		ServiceName:   DefaultLogServiceName,
	}
}

var logLevelAliases = map[string]string{
	"trace":   "trace",
	"silly":   "trace",
	"debug":   "debug",
	"verbose": "debug",
	"info":    "info",
	"warn":    "warn",
	"warning": "warn",
	"error":   "error",
	"fatal":   "fatal",
	"panic":   "panic",
	"off":     "disabled",
	"none":    "disabled",
}

var logFormatAliases = map[string]string{
	"console": "console",
	"pretty":  "console",
	"text":    "text",
	"plain":   "text",
	"json":    "json",
}

// NormalizeLogLevel maps a configured level to its zerolog name. Empty maps to
// info; ok is false for anything unrecognised.
func NormalizeLogLevel(level string) (string, bool) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return DefaultLogLevel, true
	}
	name, ok := logLevelAliases[level]
	return name, ok
}

// NormalizeLogFormat is NormalizeLogLevel for output formats.
func NormalizeLogFormat(format string) (string, bool) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return DefaultLogFormat, true
	}
	name, ok := logFormatAliases[format]
	return name, ok
}
