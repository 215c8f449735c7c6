package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var Log *slog.Logger

// Trace is an optional dedicated logger for NNTP wire traffic. When nil,
// wire tracing is off; attach it with AttachTraceFileSink and hand it to
// the nntp client.
var Trace *slog.Logger

// Init initializes the global slog logger with a text handler at Info level.
// NEWSDB_LOG_SINK selects the destination ("stdout", "stderr", "discard" or
// "file:/path/to/log"); NEWSDB_LOG_LEVEL selects the level.
func Init() {
	InitWithLevel("")
}

// InitWithLevel initializes the global logger honoring the provided level
// string ("debug", "info", "warn", "error"). An empty level falls back to
// NEWSDB_LOG_LEVEL.
func InitWithLevel(level string) {
	sink := os.Getenv("NEWSDB_LOG_SINK")
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		lvl = strings.ToLower(strings.TrimSpace(os.Getenv("NEWSDB_LOG_LEVEL")))
	}
	var lv slog.Level
	switch lvl {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	switch {
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			Log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lv}))
			return
		}
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", path, err)
	case sink == "stderr":
		Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
		return
	case sink == "discard":
		Log = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: lv}))
		return
	}
	Log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lv}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// AttachTraceFileSink configures a JSON-file wire-trace logger writing to
// <dir>/trace.log. Returns an error and leaves Trace nil if the file cannot
// be opened.
func AttachTraceFileSink(dir string) error {
	if dir == "" {
		return fmt.Errorf("empty trace dir")
	}
	// Refuse symlinked targets outright rather than racing a check.
	if fi, err := os.Lstat(dir); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("trace path is a symlink: %s", dir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("trace path exists and is not a directory: %s", dir)
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	if fi, err := os.Lstat(dir); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("trace path is a symlink after creation: %s", dir)
		}
	}

	fname := filepath.Join(dir, "trace.log")
	// Rotate an oversized file aside before appending.
	if fi, err := os.Stat(fname); err == nil {
		const maxSize = 10 * 1024 * 1024
		if fi.Size() > maxSize {
			bak := fname + "." + fi.ModTime().UTC().Format("20060102T150405Z")
			_ = os.Rename(fname, bak)
		}
	}
	f, err := os.OpenFile(fname, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open trace log file: %w", err)
	}
	Trace = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Trace.Info("trace_sink_attached", "path", fname)
	return nil
}

// Sync is a no-op for the slog handlers used here.
func Sync() {}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
