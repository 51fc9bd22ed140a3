package logger

import (
	"io"
	"log/slog"
)

// NewSlogLogger returns a module-less Logger writing text records to w.
// It is intended for tests and small tools that do not need a CentralLogger.
func NewSlogLogger(w io.Writer, level LogLevel) Logger {
	if w == nil {
		w = io.Discard
	}
	lvl := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, lvl)),
		level:  lvl,
	}
}

// NewDiscardLogger returns a Logger that drops every record
func NewDiscardLogger() Logger {
	return NewSlogLogger(io.Discard, LogLevelError)
}
