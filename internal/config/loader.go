package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/Gitpush/internal/core/cache"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. GITPUSH_REMOTE_TOKEN
const EnvPrefix = "GITPUSH"

// Defaults
const (
	DefaultBranch       = "main"
	DefaultHistoryLimit = 30
)

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "gitpush"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "gitpush"))
	}

	return paths
}

// DefaultStateDir returns where run history is kept when state.dir is unset
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "gitpush")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "gitpush")
	}
	return ".gitpush"
}

// newViper registers every key with a default so env overrides apply
// even when the file omits the key.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("remote.owner", "")
	v.SetDefault("remote.repo", "")
	v.SetDefault("remote.branch", DefaultBranch)
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.history_limit", DefaultHistoryLimit)

	v.SetDefault("local.root", "")

	v.SetDefault("ignore.names", ignore.DefaultNames)
	v.SetDefault("ignore.prefixes", ignore.DefaultPrefixes)
	v.SetDefault("ignore.patterns", []string{})

	v.SetDefault("cache.ttl", cache.DefaultTTL)
	v.SetDefault("cache.max_refs", cache.DefaultMaxRefs)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.level", "info")
	v.SetDefault("logging.file.max_size_mb", 10)
	v.SetDefault("logging.file.max_age_days", 30)
	v.SetDefault("logging.file.max_backups", 5)
	v.SetDefault("logging.file.compress", false)

	v.SetDefault("state.dir", DefaultStateDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads and parses a configuration file.
// If path is empty, searches default locations for config.yaml; finding
// none is not an error, since GITPUSH_* variables may supply every setting
// and Validate reports whatever is still missing. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			return decode(v)
		case errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
