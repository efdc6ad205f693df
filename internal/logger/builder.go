package logger

import (
	"io"
	stdlog "log" // Standard Go log package, aliased to avoid conflict with zerolog field

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/rs/zerolog"
)

// LoggerBuilder provides fluent interface for building loggers
type LoggerBuilder struct {
	config    LoggerConfig
	factory   *WriterFactory
	converter *ConfigConverter
	global    bool
}

// NewLoggerBuilder creates a new logger builder
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{
		config:    DefaultLoggerConfig(),
		factory:   NewWriterFactory(),
		converter: NewConfigConverter(),
		global:    true,
	}
}

// WithConfig sets the logger configuration
func (lb *LoggerBuilder) WithConfig(cfg config.LogConfig) *LoggerBuilder {
	loggerConfig, _ := lb.converter.ConvertConfig(cfg)
	lb.config = loggerConfig
	return lb
}

// WithConsoleOutput redirects console output, mostly for tests.
func (lb *LoggerBuilder) WithConsoleOutput(w io.Writer) *LoggerBuilder {
	lb.factory.consoleOutput = w
	return lb
}

// WithService overrides the service field attached to every record.
func (lb *LoggerBuilder) WithService(service string) *LoggerBuilder {
	lb.config.Service = service
	return lb
}

// WithoutGlobals keeps Build from touching zerolog's global level and the std log output.
func (lb *LoggerBuilder) WithoutGlobals() *LoggerBuilder {
	lb.global = false
	return lb
}

// Build creates the logger instance
func (lb *LoggerBuilder) Build() (*Logger, error) {
	if err := lb.validateConfig(); err != nil {
		return nil, err
	}

	writers := lb.createWriters()
	if len(writers) == 0 {
		return nil, common.NewError("no output writers configured")
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lb.config.Level).
		With().
		Timestamp()
	if lb.config.Service != "" {
		ctx = ctx.Str("service", lb.config.Service)
	}
	zerologInstance := ctx.Logger()

	if lb.global {
		zerolog.SetGlobalLevel(lb.config.Level)
		lb.configureStandardLog(zerologInstance)
	}

	return &Logger{
		zerolog: zerologInstance,
		config:  lb.config,
	}, nil
}

func (lb *LoggerBuilder) validateConfig() error {
	rotation := lb.config.Rotation
	if lb.config.EnableFile() && rotation.MaxSizeMB <= 0 {
		return common.NewValidationError("max_size_mb", rotation.MaxSizeMB, "max size must be positive")
	}
	if rotation.MaxAgeDays < 0 {
		return common.NewValidationError("max_age_days", rotation.MaxAgeDays, "max age cannot be negative")
	}
	return nil
}

// createWriters always includes the console; the rotated file is optional.
func (lb *LoggerBuilder) createWriters() []io.Writer {
	writers := []io.Writer{lb.factory.CreateConsoleWriter(lb.config.Format)}
	if lb.config.EnableFile() {
		writers = append(writers, lb.factory.CreateFileWriter(lb.config))
	}
	return writers
}

// configureStandardLog routes the standard library logger (used by net/http) through zerolog
func (lb *LoggerBuilder) configureStandardLog(logger zerolog.Logger) {
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)
}
