/*
PURPOSE:
  Provides the structured logger shared by every modelrun package.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - Warnings collected during model resolution are always surfaced.
  - "Sane" CLI output. Not spammy.

  Implementation-discovered:
  - Level and format (text/json) are chosen from tool config or CLI flags.
  - Tests swap the logger for a buffer-backed one to assert on warnings.

ARCHITECTURE INTEGRATION:
  - Used everywhere.
  - Configured by: internal/cli (root PersistentPreRunE).

ERROR HANDLING:
  - Configure rejects unknown levels and formats.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).

USAGE:
  output.Logger.Info("message", "key", "value")
  _ = output.Configure("debug", "json", os.Stderr)

RELATED FILES:
  - internal/checks/report.go (warning sink)
*/

package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// Configure replaces Logger with a handler writing to w.
func Configure(level, format string, w io.Writer) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "", "info":
		lvl = slog.LevelInfo
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	SetLogger(slog.New(h))
	return nil
}
