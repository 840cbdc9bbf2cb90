package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	level *slog.LevelVar
	slog  *slog.Logger
}

// NewLogger writes to stdout, and additionally to out when it is not nil.
// format is "json" or "text".
func NewLogger(debug bool, format string, out io.Writer) *Logger {
	level := &slog.LevelVar{}
	if debug {
		level.Set(slog.LevelDebug)
	}

	var w io.Writer = os.Stdout
	if out != nil {
		w = io.MultiWriter(os.Stdout, out)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{level: level, slog: slog.New(handler)}
}

// NewDiscardLogger is used by tests.
func NewDiscardLogger() *Logger {
	level := &slog.LevelVar{}
	return &Logger{
		level: level,
		slog:  slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})),
	}
}

func (l *Logger) SetDebug(debug bool) {
	if debug {
		l.level.Set(slog.LevelDebug)
		return
	}
	l.level.Set(slog.LevelInfo)
}

func (l *Logger) IsDebug() bool {
	return l.level.Level() <= slog.LevelDebug
}

// Slog exposes the structured logger for components that log key/value pairs.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

func (l *Logger) Debug(v ...interface{}) {
	l.log(slog.LevelDebug, v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.log(slog.LevelInfo, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.log(slog.LevelWarn, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.log(slog.LevelError, v...)
}

func (l *Logger) Fatal(v ...interface{}) {
	l.log(slog.LevelError, v...)
	os.Exit(1)
}

func (l *Logger) log(level slog.Level, v ...interface{}) {
	if !l.slog.Enabled(context.Background(), level) {
		return
	}
	l.slog.Log(context.Background(), level, strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
