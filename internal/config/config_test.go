package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

const minimalYAML = `
remote:
  owner: acme
  repo: site
  token: secret-token
local:
  root: /srv/www
`

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString(minimalYAML)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Remote.Owner)
	assert.Equal(t, "site", cfg.Remote.Repo)
	assert.Equal(t, DefaultBranch, cfg.Remote.Branch)
	assert.Equal(t, DefaultHistoryLimit, cfg.Remote.HistoryLimit)
	assert.Empty(t, cfg.Remote.BaseURL)
	assert.Equal(t, "/srv/www", cfg.Local.Root)

	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 16, cfg.Cache.MaxRefs)

	assert.ElementsMatch(t, ignore.DefaultNames, cfg.Ignore.Names)
	assert.ElementsMatch(t, ignore.DefaultPrefixes, cfg.Ignore.Prefixes)
	assert.Empty(t, cfg.Ignore.Patterns)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "info", cfg.Logging.File.Level)
	assert.NotEmpty(t, cfg.State.Dir)
}

func TestLoadFromString_FullConfig(t *testing.T) {
	yaml := `
remote:
  owner: acme
  repo: site
  branch: production
  token: secret-token
  base_url: https://git.example.com/api/v3/
  history_limit: 5
local:
  root: /srv/www
ignore:
  names: [".git"]
  prefixes: ["uploads/"]
  patterns: ["*.log", "!keep.log"]
cache:
  ttl: 30m
  max_refs: 4
logging:
  level: debug
  format: json
  file:
    enabled: true
    path: /var/log/gitpush.log
    level: error
    max_size_mb: 1
state:
  dir: /var/lib/gitpush
`
	cfg, err := LoadFromString(yaml)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Remote.Branch)
	assert.Equal(t, "https://git.example.com/api/v3/", cfg.Remote.BaseURL)
	assert.Equal(t, 5, cfg.Remote.HistoryLimit)
	assert.Equal(t, []string{".git"}, cfg.Ignore.Names)
	assert.Equal(t, []string{"uploads/"}, cfg.Ignore.Prefixes)
	assert.Equal(t, []string{"*.log", "!keep.log"}, cfg.Ignore.Patterns)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.Cache.MaxRefs)
	assert.Equal(t, "/var/lib/gitpush", cfg.State.Dir)

	policy := cfg.IgnorePolicy()
	assert.True(t, policy.Match("uploads", true))
	assert.True(t, policy.Match("debug.log", false))
	assert.False(t, policy.Match("keep.log", false))
	assert.False(t, policy.Match("node_modules", true), "names were overridden")

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, logger.FormatJSON, lc.Format)
	assert.Nil(t, lc.Console)
	assert.True(t, lc.File.Enabled)
	assert.Equal(t, "/var/log/gitpush.log", lc.File.Path)
	assert.Equal(t, slog.LevelError, lc.File.Level)
	assert.Equal(t, 1, lc.File.MaxSizeMB)
}

func TestLoadFromString_EnvOverride(t *testing.T) {
	t.Setenv("GITPUSH_REMOTE_TOKEN", "from-env")
	t.Setenv("GITPUSH_REMOTE_BRANCH", "staging")

	cfg, err := LoadFromString(`
remote:
  owner: acme
  repo: site
local:
  root: /srv/www
`)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Remote.Token)
	assert.Equal(t, "staging", cfg.Remote.Branch)
}

func TestLoadFromString_HomeExpansion(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	cfg, err := LoadFromString(`
remote:
  owner: acme
  repo: site
  token: t
local:
  root: ~/www
state:
  dir: ~/.gitpush-state
`)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "www"), cfg.Local.Root)
	assert.Equal(t, filepath.Join(home, ".gitpush-state"), cfg.State.Dir)
}

func TestLoadFromString_MissingParameters(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "no owner",
			yaml:  "remote: {repo: site, token: t}\nlocal: {root: /srv}",
			field: "remote.owner",
		},
		{
			name:  "no repo",
			yaml:  "remote: {owner: acme, token: t}\nlocal: {root: /srv}",
			field: "remote.repo",
		},
		{
			name:  "no token",
			yaml:  "remote: {owner: acme, repo: site}\nlocal: {root: /srv}",
			field: "remote.token",
		},
		{
			name:  "blank branch",
			yaml:  "remote: {owner: acme, repo: site, token: t, branch: ' '}\nlocal: {root: /srv}",
			field: "remote.branch",
		},
		{
			name:  "no root",
			yaml:  "remote: {owner: acme, repo: site, token: t}",
			field: "local.root",
		},
		{
			name:  "owner with slash",
			yaml:  "remote: {owner: acme/site, repo: site, token: t}\nlocal: {root: /srv}",
			field: "remote.owner",
		},
		{
			name:  "relative base url",
			yaml:  "remote: {owner: acme, repo: site, token: t, base_url: api/v3}\nlocal: {root: /srv}",
			field: "remote.base_url",
		},
		{
			name:  "zero history limit",
			yaml:  "remote: {owner: acme, repo: site, token: t, history_limit: 0}\nlocal: {root: /srv}",
			field: "remote.history_limit",
		},
		{
			name:  "zero ttl",
			yaml:  "remote: {owner: acme, repo: site, token: t}\nlocal: {root: /srv}\ncache: {ttl: 0s}",
			field: "cache.ttl",
		},
		{
			name:  "unknown log level",
			yaml:  "remote: {owner: acme, repo: site, token: t}\nlocal: {root: /srv}\nlogging: {level: loud}",
			field: "logging.level",
		},
		{
			name:  "unknown log format",
			yaml:  "remote: {owner: acme, repo: site, token: t}\nlocal: {root: /srv}\nlogging: {format: xml}",
			field: "logging.format",
		},
		{
			name:  "unknown file log level",
			yaml:  "remote: {owner: acme, repo: site, token: t}\nlocal: {root: /srv}\nlogging: {file: {enabled: true, path: /tmp/g.log, level: chatty}}",
			field: "logging.file.level",
		},
		{
			name:  "file logging without path",
			yaml:  "remote: {owner: acme, repo: site, token: t}\nlocal: {root: /srv}\nlogging: {file: {enabled: true}}",
			field: "logging.file.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			require.Error(t, err)

			var cfgErr *domain.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
		})
	}
}

func TestLoadFromString_InvalidYAML(t *testing.T) {
	_, err := LoadFromString("remote: [unclosed")
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Remote.Owner)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

// isolate points every default search location at an empty directory
func isolate(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	isolate(t)
	t.Setenv("GITPUSH_REMOTE_OWNER", "acme")
	t.Setenv("GITPUSH_REMOTE_REPO", "site")
	t.Setenv("GITPUSH_REMOTE_TOKEN", "from-env")
	t.Setenv("GITPUSH_LOCAL_ROOT", "/srv/www")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Remote.Owner)
	assert.Equal(t, "from-env", cfg.Remote.Token)
	assert.Equal(t, DefaultBranch, cfg.Remote.Branch)
	assert.Equal(t, "/srv/www", cfg.Local.Root)
}

func TestLoad_NoFileNoEnvironment(t *testing.T) {
	isolate(t)

	_, err := Load("")
	var cfgErr *domain.ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
	assert.Equal(t, "remote.owner", cfgErr.Field)
	assert.NotErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoggerConfig_ConsoleOnly(t *testing.T) {
	cfg, err := LoadFromString(minimalYAML)
	require.NoError(t, err)

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lc.Level)
	assert.Equal(t, logger.FormatText, lc.Format)
	assert.False(t, lc.File.Enabled)
}

func TestLoggerConfig_EmptyValuesUseDefaults(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{File: LoggingFileConfig{Enabled: true, Path: "/tmp/g.log"}}}

	lc, err := cfg.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lc.Level)
	assert.Equal(t, logger.FormatText, lc.Format)
	assert.Equal(t, slog.LevelInfo, lc.File.Level)
}
