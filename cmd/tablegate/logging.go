package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/hlop3z/tablegate/internal/alerr"
)

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, alerr.Newf(alerr.ErrConfigInvalid, "unknown log level %q", s).
			WithHelp(`use "debug", "info", "warn" or "error"`)
	}
	return level, nil
}

// newLogger builds the slog logger selected by --log-level and --log-format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), nil
}
