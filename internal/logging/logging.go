package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

var (
	Logger  = zerolog.Nop()
	logFile *os.File
)

// timestampHook adds timestamp at the end of each log event
type timestampHook struct{}

func (h timestampHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	e.Time("ts", time.Now())
}

// GetLogPath returns the log file path under ~/.local/state/espinput
func GetLogPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "espinput", "espinput.log")
}

// Init initializes the logging system with zerolog
func Init() error {
	logPath := GetLogPath()
	os.MkdirAll(filepath.Dir(logPath), 0755)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	logFile = f

	InitWriter(logFile)
	return nil
}

// InitWriter points the logger at an arbitrary writer
func InitWriter(w io.Writer) {
	// Set global level to Info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Configure field names
	zerolog.MessageFieldName = "msg"

	// Create logger with hook that adds timestamp last
	Logger = zerolog.New(w).Hook(timestampHook{})
}

// SetDebug toggles debug level logging
func SetDebug(enabled bool) {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Close closes the log file
func Close() {
	if logFile != nil {
		logFile.Close()
	}
}

// Debug returns a debug level event
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Info returns an info level event
func Info() *zerolog.Event {
	return Logger.Info()
}

// Warn returns a warn level event
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Error returns an error level event
func Error() *zerolog.Event {
	return Logger.Error()
}
