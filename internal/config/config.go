package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

// Config represents the complete configuration for gitpush
type Config struct {
	// Remote is the repository changes are pushed to
	Remote RemoteConfig `mapstructure:"remote"`

	// Local is the working tree compared against the remote
	Local LocalConfig `mapstructure:"local"`

	Ignore  IgnoreConfig  `mapstructure:"ignore"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
	State   StateConfig   `mapstructure:"state"`
}

// RemoteConfig holds the repository connection parameters
type RemoteConfig struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"`
	Token  string `mapstructure:"token"`
	// BaseURL points at a GitHub Enterprise API; empty means api.github.com
	BaseURL      string `mapstructure:"base_url"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// LocalConfig holds the local tree settings
type LocalConfig struct {
	Root string `mapstructure:"root"`
}

// IgnoreConfig lists exclusion rules applied to both trees
type IgnoreConfig struct {
	Names    []string `mapstructure:"names"`
	Prefixes []string `mapstructure:"prefixes"`
	Patterns []string `mapstructure:"patterns"`
}

// CacheConfig controls the remote manifest cache
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	MaxRefs int           `mapstructure:"max_refs"`
}

// LoggingConfig controls the global logger. Level and Format apply to
// the console; the file has its own level.
type LoggingConfig struct {
	Level  string            `mapstructure:"level"`
	Format string            `mapstructure:"format"`
	File   LoggingFileConfig `mapstructure:"file"`
}

// LoggingFileConfig controls the rotating JSON log file
type LoggingFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// StateConfig controls where run history is kept
type StateConfig struct {
	Dir string `mapstructure:"dir"`
}

// Validate checks that every connection parameter is present.
// The first problem found is returned as a *domain.ConfigError.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"remote.owner", c.Remote.Owner},
		{"remote.repo", c.Remote.Repo},
		{"remote.branch", c.Remote.Branch},
		{"remote.token", c.Remote.Token},
		{"local.root", c.Local.Root},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &domain.ConfigError{Field: r.field, Reason: "must not be empty"}
		}
	}

	if strings.Contains(c.Remote.Owner, "/") {
		return &domain.ConfigError{Field: "remote.owner", Reason: "must be a user or organization name, not a path"}
	}
	if strings.Contains(c.Remote.Repo, "/") {
		return &domain.ConfigError{Field: "remote.repo", Reason: "must be a repository name without the owner"}
	}

	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &domain.ConfigError{Field: "remote.base_url", Reason: fmt.Sprintf("not an absolute URL: %q", c.Remote.BaseURL)}
		}
	}
	if c.Remote.HistoryLimit <= 0 {
		return &domain.ConfigError{Field: "remote.history_limit", Reason: "must be positive"}
	}
	if c.Cache.TTL <= 0 {
		return &domain.ConfigError{Field: "cache.ttl", Reason: "must be positive"}
	}
	if c.Cache.MaxRefs <= 0 {
		return &domain.ConfigError{Field: "cache.max_refs", Reason: "must be positive"}
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		return &domain.ConfigError{Field: "logging.file.path", Reason: "required when file logging is enabled"}
	}
	if _, err := c.LoggerConfig(); err != nil {
		return err
	}

	return nil
}

// IgnorePolicy compiles the ignore section
func (c *Config) IgnorePolicy() *ignore.Policy {
	return ignore.New(ignore.Config{
		Names:    c.Ignore.Names,
		Prefixes: c.Ignore.Prefixes,
		Patterns: c.Ignore.Patterns,
	})
}

// LoggerConfig converts the logging section for logger.Init. Empty
// values fall back to warn on the console, info in the file and text.
// Console output goes to stderr so it never mixes with command output.
func (c *Config) LoggerConfig() (logger.Config, error) {
	level, err := parseLevel("logging.level", c.Logging.Level, slog.LevelWarn)
	if err != nil {
		return logger.Config{}, err
	}

	format := logger.FormatText
	if c.Logging.Format != "" {
		if format, err = logger.ParseFormat(c.Logging.Format); err != nil {
			return logger.Config{}, &domain.ConfigError{Field: "logging.format", Reason: err.Error()}
		}
	}

	cfg := logger.Config{Level: level, Format: format}
	if c.Logging.File.Enabled {
		fileLevel, err := parseLevel("logging.file.level", c.Logging.File.Level, slog.LevelInfo)
		if err != nil {
			return logger.Config{}, err
		}
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       c.Logging.File.Path,
			Level:      fileLevel,
			MaxSizeMB:  c.Logging.File.MaxSizeMB,
			MaxAgeDays: c.Logging.File.MaxAgeDays,
			MaxBackups: c.Logging.File.MaxBackups,
			Compress:   c.Logging.File.Compress,
		}
	}
	return cfg, nil
}

func parseLevel(field, value string, fallback slog.Level) (slog.Level, error) {
	if value == "" {
		return fallback, nil
	}
	level, err := logger.ParseLevel(value)
	if err != nil {
		return 0, &domain.ConfigError{Field: field, Reason: err.Error()}
	}
	return level, nil
}

// expandPaths resolves ~ in every path-valued setting
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.Local.Root, &c.State.Dir, &c.Logging.File.Path} {
		if *p == "" {
			continue
		}
		expanded, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ExpandPath expands ~ to the home directory
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("%w: expand %q: %v", domain.ErrConfigInvalid, path, err)
	}
	return expanded, nil
}
