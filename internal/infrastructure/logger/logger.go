package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	log = New("info", "console")
}

// New builds a zerolog logger with the given level and output format.
// Format "console" writes human-readable output, anything else emits JSON.
func New(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Caller().Logger()
}

// Init replaces the package logger. Call once from main after config load.
func Init(level, format string) {
	log = New(level, format)
}

// GetLogger returns the package logger.
func GetLogger() zerolog.Logger {
	return log
}
