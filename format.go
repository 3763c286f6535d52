package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// stdoutIsTerminal reports whether stdout is an interactive terminal.
// Piped output gets tab-separated plain rows instead of an aligned table.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// shortHash abbreviates a content hash for table display.
func shortHash(h string) string {
	const shown = 10

	if h == "" {
		return "-"
	}

	if len(h) <= shown {
		return h
	}

	return h[:shown]
}

// formatSyncTime renders an envelope timestamp compactly, or "-" when the
// module has never synced or the timestamp is unparseable.
func formatSyncTime(raw string) string {
	if raw == "" {
		return "-"
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}

	if t.Year() == time.Now().Year() {
		return t.Local().Format("Jan _2 15:04")
	}

	return t.Local().Format("Jan _2  2006")
}
