package log

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides a simple logging interface with formatted output methods
type Logger struct {
	logger zerolog.Logger
}

// Log is the global logger instance
var Log = &Logger{
	logger: zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger(),
}

// Init reconfigures the global logger. Production mode switches to plain
// JSON output at info level; otherwise console output at debug level.
func Init(production bool) {
	if production {
		Log.logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		return
	}
	Log.logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

// SetLevel sets the global log level by name ("debug", "info", "warn", "error").
// Unknown names are ignored.
func SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return
	}
	Log.logger = Log.logger.Level(parsed)
}

// Infof logs an info level message with formatting
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

// Warnf logs a warning level message with formatting
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

// Errorf logs an error level message with formatting
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

// Debugf logs a debug level message with formatting
func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}
