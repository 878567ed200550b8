// Package logging provides the process logger: a rotating file log for
// the full request/response trail, with errors mirrored to stderr. The
// logger is constructed once at startup and passed to the components that
// need it rather than reached through a global.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes to a size-rotated log file. A nil *Logger is safe to use
// and discards everything, which keeps tests quiet.
type Logger struct {
	logger *log.Logger
	file   *lumberjack.Logger
	debug  bool
}

// New creates a logger writing to path, creating parent directories as
// needed. With debug set, log lines are mirrored to stderr.
func New(path string, debug bool) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
		}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    15, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	return &Logger{
		logger: log.New(file, "", log.LstdFlags),
		file:   file,
		debug:  debug,
	}, nil
}

// Close flushes and closes the underlying log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Logf logs a formatted message.
func (l *Logger) Logf(format string, v ...any) {
	if l == nil {
		return
	}
	l.logger.Printf(format, v...)
	if l.debug {
		fmt.Fprintf(os.Stderr, format+"\n", v...)
	}
}

// LogError logs an error.
func (l *Logger) LogError(err error) {
	if l == nil || err == nil {
		return
	}
	l.logger.Printf("Error: %s", err)
	if l.debug {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// LogAITurn records one assistant turn: the user instruction, the raw
// model output, and the outcome. This is the audit trail for every
// AI-driven change, successful or not.
func (l *Logger) LogAITurn(formID, message, rawResponse string, err error) {
	if l == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
	}
	l.logger.Printf("AI turn - form: %s, instruction: %q, outcome: %s", formID, message, outcome)
	if rawResponse != "" {
		l.logger.Printf("AI raw response - form: %s: %s", formID, rawResponse)
	}
}
