// Package logging builds the slog loggers used by purec.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
)

// LevelSilent is above every level slog emits.
const LevelSilent = slog.Level(100)

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "silent":
		return LevelSilent, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

func rewriteLogLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) != 0 {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	var levelText string
	switch level {
	case slog.LevelDebug:
		levelText = "DEBUG"
	case slog.LevelInfo:
		levelText = color.GreenString("INFO")
	case slog.LevelWarn:
		levelText = color.YellowString("WARN")
	case slog.LevelError:
		levelText = color.RedString("ERROR")
	default:
		levelText = level.String()
	}
	a.Value = slog.StringValue(levelText)
	return a
}

// NewHumanLogger creates a human-readable logger writing to w.
func NewHumanLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  time.DateTime,
		ReplaceAttr: rewriteLogLevel,
		NoColor:     color.NoColor,
	}))
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// New builds the logger for a configured level and format ("text" or
// "json").
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch format {
	case "text":
		return NewHumanLogger(w, lvl), nil
	case "json":
		return NewJSONLogger(w, lvl), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}
