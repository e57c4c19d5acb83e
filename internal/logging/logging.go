package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel LogLevel
	levelOnce    sync.Once
	mu           sync.RWMutex
	logger       zerolog.Logger
)

// initLevel initializes the log level and backend from environment variables
func initLevel() {
	levelOnce.Do(func() {
		level := LevelInfo

		// DEBUG wins over LOG_LEVEL
		if isTruthy(os.Getenv("DEBUG")) {
			level = LevelDebug
		} else {
			level = ParseLevel(os.Getenv("LOG_LEVEL"))
		}

		mu.Lock()
		currentLevel = level
		logger = newLogger(os.Stderr, level)
		mu.Unlock()
	})
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// ParseLevel converts a LOG_LEVEL value into a LogLevel. Unknown values map to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// newLogger builds the zerolog backend. Terminals get the console writer,
// everything else gets one JSON object per line.
func newLogger(w io.Writer, level LogLevel) zerolog.Logger {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level.zerolog()).With().Timestamp().Logger()
}

// SetOutput redirects all log output to w, keeping the current level.
func SetOutput(w io.Writer) {
	initLevel()
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(w, currentLevel)
}

// SetLevel overrides the level derived from the environment.
func SetLevel(level LogLevel) {
	initLevel()
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
	logger = logger.Level(level.zerolog())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func current() *zerolog.Logger {
	initLevel()
	mu.RLock()
	l := logger
	mu.RUnlock()
	return &l
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	current().Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	current().Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	current().Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	current().Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	current().Fatal().Msgf(format, args...)
}

// Printf logs a message that always prints regardless of level
func Printf(format string, args ...interface{}) {
	current().Log().Msgf(format, args...)
}

// Println logs its arguments, space separated, regardless of level
func Println(args ...interface{}) {
	current().Log().Msg(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
