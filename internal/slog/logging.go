// Package slog configures the loggers used throughout rdt-go.
//
// Logging is disabled by default and enabled via the RDT_LOG_LEVEL
// environment variable. Valid formats:
//
//   - "info"                           - top-level only
//   - "debug,session=info"             - top-level + component
//   - "session=info,ackhandler=error"  - components only
package slog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const logEnv = "RDT_LOG_LEVEL"

// LogLevelNone is a log level that disables all logging.
const LogLevelNone slog.Level = slog.LevelError + 1

// ComponentKey is the slog attribute key used to identify the component.
const ComponentKey = "component"

type logLevels struct {
	Level      slog.Level            // top-level log level
	Components map[string]slog.Level // nil if no component-specific levels
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "none":
		return LogLevelNone, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}

func parseLogConfig(config string) (logLevels, error) {
	levels := logLevels{Level: LogLevelNone}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		component, levelStr, isComponent := strings.Cut(part, "=")
		if !isComponent {
			level, err := parseLogLevel(part)
			if err != nil {
				return logLevels{}, err
			}
			levels.Level = level
			continue
		}
		level, err := parseLogLevel(strings.TrimSpace(levelStr))
		if err != nil {
			return logLevels{}, fmt.Errorf("component %s: %w", component, err)
		}
		if levels.Components == nil {
			levels.Components = make(map[string]slog.Level)
		}
		levels.Components[strings.TrimSpace(component)] = level
	}
	return levels, nil
}

// levelFilterHandler applies per-component log levels, falling back to
// the top-level one.
type levelFilterHandler struct {
	slog.Handler

	component string
	levels    logLevels
}

var _ slog.Handler = &levelFilterHandler{}

func (h *levelFilterHandler) Enabled(_ context.Context, level slog.Level) bool {
	if minLevel, ok := h.levels.Components[h.component]; ok {
		return level >= minLevel
	}
	return level >= h.levels.Level
}

func (h *levelFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	for _, attr := range attrs {
		if attr.Key == ComponentKey {
			component = attr.Value.String()
			break
		}
	}
	return &levelFilterHandler{
		Handler:   h.Handler.WithAttrs(attrs),
		component: component,
		levels:    h.levels,
	}
}

func (h *levelFilterHandler) WithGroup(name string) slog.Handler {
	return &levelFilterHandler{
		Handler:   h.Handler.WithGroup(name),
		component: h.component,
		levels:    h.levels,
	}
}

// NewLogger creates a logger writing to w, filtered according to
// RDT_LOG_LEVEL.
func NewLogger(w io.Writer) *slog.Logger {
	levels, err := parseLogConfig(os.Getenv(logEnv))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", logEnv, err)
		levels = logLevels{Level: LogLevelNone}
	}
	return slog.New(&levelFilterHandler{
		// filtering is done by levelFilterHandler, let everything through here
		Handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		levels:  levels,
	})
}

// New creates a stderr logger for the given component.
func New(component string) *slog.Logger {
	return NewLogger(os.Stderr).With(ComponentKey, component)
}
