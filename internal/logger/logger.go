// Package logger provides the process-wide structured logger.
//
// Every record passes through a Redactor before any output sees it, so a
// GitHub token that ends up in an error string or a request URL never
// reaches the terminal or the log file.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface used across gitpush
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// ErrAlreadyInitialized is returned by Init until Shutdown is called
var ErrAlreadyInitialized = errors.New("logger already initialized")

var (
	mu        sync.RWMutex
	current   Logger = discard{}
	closer    io.Closer
	installed bool
)

// Init builds a logger from cfg and installs it as the global logger
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if installed {
		return ErrAlreadyInitialized
	}

	l, c, err := New(cfg)
	if err != nil {
		return err
	}
	current, closer, installed = l, c, true
	return nil
}

// Get returns the global logger. Before Init it discards everything.
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Shutdown closes the log file, if any, and restores the discarding logger
func Shutdown() error {
	mu.Lock()
	c := closer
	current, closer, installed = discard{}, nil, false
	mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// New builds a logger without installing it. The closer releases the log
// file and is nil when file output is disabled.
func New(cfg Config) (Logger, io.Closer, error) {
	handler := consoleHandler(cfg)

	var c io.Closer
	if cfg.File.Enabled {
		w, err := openFile(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		file := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.File.Level})
		handler = fanout{handler, file}
		c = w
	}

	return slogLogger{slog.New(newRedactingHandler(handler, DefaultRedactor()))}, c, nil
}

// consoleHandler writes to the terminal without timestamps; the command
// output around it already tells the user when things happened
func consoleHandler(cfg Config) slog.Handler {
	w := cfg.Console
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func openFile(cfg FileConfig) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, errors.New("log file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}, nil
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) With(args ...any) Logger       { return slogLogger{s.l.With(args...)} }

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (d discard) With(...any) Logger { return d }
