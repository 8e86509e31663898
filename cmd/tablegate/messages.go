package main

import (
	"net/url"
	"strings"
)

// Default file names.
const (
	DefaultConfigFile  = "tablegate.yaml"
	DefaultEnvFile     = ".env"
	DefaultDefinitions = "tables"
)

// DB URL display configuration.
const (
	// DBURLMaskLength is the max characters shown before masking with "...".
	DBURLMaskLength = 40
)

// Messages for consistent CLI output.
const (
	MsgUpToDate      = "Schema up to date"
	MsgNoChanges     = "definitions match the last applied checksum"
	MsgNoStatements  = "no statements to run"
	MsgNotApplied    = "No run recorded yet"
	MsgWatching      = "Watching %s for changes (Ctrl+C to stop)"
	MsgWatchReloaded = "definitions changed, re-planning"
)

// MaskDatabaseURL hides the password and truncates a database URL for display.
func MaskDatabaseURL(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			// Redacted masks with "xxxxx".
			raw = strings.Replace(u.Redacted(), ":xxxxx@", ":***@", 1)
		}
	}
	if len(raw) > DBURLMaskLength {
		return raw[:DBURLMaskLength] + "..."
	}
	return raw
}
