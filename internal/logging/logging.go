// Package logging configures the field tool's structured JSON logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// maxValueLen caps string attributes so a photo data URL never floods a log line.
const maxValueLen = 256

// secretKeys are attribute keys whose values are LoRaWAN credentials.
var secretKeys = map[string]bool{
	"appkey":  true,
	"app_key": true,
}

// New builds the process logger and makes it the slog default. Entries go to
// stderr and, when logFile is set, are appended to that file as well; the
// returned func closes the file.
func New(level, logFile string) (*slog.Logger, func(), error) {
	var out io.Writer = os.Stderr
	closeFile := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeFile = func() { _ = f.Close() }
	}

	logger := newLogger(out, level)
	slog.SetDefault(logger)
	return logger, closeFile, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: scrub,
	})
	return slog.New(handler).With("app", "prodair")
}

// scrub masks device keys and truncates long strings.
func scrub(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	if a.Value.Kind() == slog.KindString {
		if v := a.Value.String(); len(v) > maxValueLen {
			return slog.String(a.Key, fmt.Sprintf("%s...(%d bytes)", v[:maxValueLen], len(v)))
		}
	}
	return a
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
