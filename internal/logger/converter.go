package logger

import (
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/rs/zerolog"
)

// ConfigConverter converts config.LogConfig to LoggerConfig
type ConfigConverter struct {
	levelParser  *LogLevelParser
	formatParser *LogFormatParser
}

// NewConfigConverter creates a new config converter
func NewConfigConverter() *ConfigConverter {
	return &ConfigConverter{
		levelParser:  NewLogLevelParser(),
		formatParser: NewLogFormatParser(),
	}
}

// ConvertConfig converts application config to logger config. An unknown level
// falls back to info and is reported through the returned error.
func (cc *ConfigConverter) ConvertConfig(cfg config.LogConfig) (LoggerConfig, error) {
	level, err := cc.levelParser.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	defaults := DefaultLoggerConfig()
	service := cfg.ServiceName
	if service == "" {
		service = defaults.Service
	}
	return LoggerConfig{
		Level:    level,
		Format:   cc.formatParser.ParseFormat(cfg.LogFormat),
		FilePath: cfg.LogFile,
		Rotation: RotationPolicy{
			MaxSizeMB:  positiveOr(cfg.MaxLogSizeMB, defaults.Rotation.MaxSizeMB),
			MaxBackups: positiveOr(cfg.MaxLogBackups, defaults.Rotation.MaxBackups),
			MaxAgeDays: cfg.MaxLogAgeDays,
			Compress:   cfg.CompressLogs,
		},
		Service: service,
	}, err
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
