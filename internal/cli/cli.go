// Package cli provides Cargo/rustc-style output formatting for the tablegate
// command and for MigrateOrExit. It handles colored output, error rendering
// and simple tables for status reports.
package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// OutputMode determines how output is formatted.
type OutputMode int

const (
	// ModeTTY enables rich colored output for interactive terminals.
	ModeTTY OutputMode = iota
	// ModePlain outputs plain text without colors (for pipes/CI).
	ModePlain
	// ModeJSON outputs structured JSON for programmatic consumption.
	ModeJSON
)

// Config holds CLI output configuration.
type Config struct {
	Mode   OutputMode
	Writer io.Writer
}

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

// ConfigFor detects the output mode for w.
// Rules:
//   - If w is a terminal and NO_COLOR is not set -> ModeTTY
//   - Otherwise, or when TERM=dumb -> ModePlain
func ConfigFor(w io.Writer) *Config {
	mode := ModePlain

	if f, ok := w.(fder); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		mode = ModeTTY
	}

	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		mode = ModePlain
	}

	return &Config{Mode: mode, Writer: w}
}

// DefaultConfig returns the configuration detected for stderr, where
// tablegate writes diagnostics.
func DefaultConfig() *Config {
	return ConfigFor(os.Stderr)
}

// NewConfigWithMode creates a config with a specific output mode.
// Used for --json or testing.
func NewConfigWithMode(mode OutputMode) *Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return cfg
}

// IsTTY returns true if running in interactive terminal mode.
func (c *Config) IsTTY() bool {
	return c.Mode == ModeTTY
}

// IsPlain returns true if running in plain text mode.
func (c *Config) IsPlain() bool {
	return c.Mode == ModePlain
}

// IsJSON returns true if running in JSON output mode.
func (c *Config) IsJSON() bool {
	return c.Mode == ModeJSON
}

// Global default config, initialized lazily.
var defaultCfg *Config

// Default returns the global default configuration.
func Default() *Config {
	if defaultCfg == nil {
		defaultCfg = DefaultConfig()
	}
	return defaultCfg
}

// SetDefault sets the global default configuration.
func SetDefault(cfg *Config) {
	defaultCfg = cfg
}

// EnableColors returns true if colors should be used.
func EnableColors() bool {
	return Default().IsTTY()
}
