package logger

import (
	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/rs/zerolog"
)

// LogLevelParser resolves configured level names, aliases included.
type LogLevelParser struct{}

func NewLogLevelParser() *LogLevelParser {
	return &LogLevelParser{}
}

// ParseLevel returns info alongside the error for unknown names.
func (llp *LogLevelParser) ParseLevel(levelStr string) (zerolog.Level, error) {
	name, ok := config.NormalizeLogLevel(levelStr)
	if !ok {
		return zerolog.InfoLevel, common.NewValidationError("log_level", levelStr, "unknown log level")
	}
	if name == "disabled" {
		return zerolog.Disabled, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, common.WrapError(err, "invalid log level")
	}
	return level, nil
}

// LogFormatParser resolves configured format names. Unknown names fall back
// to console.
type LogFormatParser struct{}

func NewLogFormatParser() *LogFormatParser {
	return &LogFormatParser{}
}

func (lfp *LogFormatParser) ParseFormat(formatStr string) LogFormat {
	name, _ := config.NormalizeLogFormat(formatStr)
	for format, known := range formatNames {
		if known == name {
			return format
		}
	}
	return FormatConsole
}
