package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the console encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config controls where log records go.
// The console and the file filter levels independently.
type Config struct {
	// Level is the lowest level printed on the console
	Level  slog.Level
	Format Format
	// Console receives console output; nil means os.Stderr
	Console io.Writer

	File FileConfig
}

// FileConfig controls the rotating JSON log file. It is off unless Enabled.
type FileConfig struct {
	Enabled bool
	Path    string
	// Level is the lowest level written to the file
	Level      slog.Level
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// ParseLevel accepts debug, info, warn (or warning) and error in any case
func ParseLevel(s string) (slog.Level, error) {
	if strings.EqualFold(s, "warning") {
		s = "warn"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// ParseFormat accepts text and json in any case
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}
