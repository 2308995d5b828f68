// Package ignore decides which paths are excluded from both the local scan
// and the remote manifest. The same Policy is applied to both sides so an
// ignored remote file is never reported as deleted.
package ignore

import (
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultNames are basenames excluded wherever they appear in a path
var DefaultNames = []string{
	".git",
	".svn",
	".DS_Store",
	"node_modules",
	"vendor",
	".vscode",
	".idea",
	"desktop.ini",
	"Thumbs.db",
}

// DefaultPrefixes are path prefixes excluded from the root down
var DefaultPrefixes = []string{
	"cache/",
	"logs/",
}

// Config lists the three tiers of exclusion rules
type Config struct {
	// Names match any single path segment exactly
	Names []string
	// Prefixes match the start of the full relative path.
	// A prefix ending in "/" also matches the directory itself.
	Prefixes []string
	// Patterns use gitignore syntax
	Patterns []string
}

// DefaultConfig returns the built-in rules
func DefaultConfig() Config {
	return Config{
		Names:    append([]string(nil), DefaultNames...),
		Prefixes: append([]string(nil), DefaultPrefixes...),
	}
}

// Policy is a compiled, read-only ignore rule set; safe for concurrent use
type Policy struct {
	names    map[string]struct{}
	prefixes []string
	matcher  gitignore.Matcher
}

// New compiles cfg into a Policy
func New(cfg Config) *Policy {
	p := &Policy{
		names: make(map[string]struct{}, len(cfg.Names)),
	}
	for _, n := range cfg.Names {
		if n = strings.TrimSpace(n); n != "" {
			p.names[n] = struct{}{}
		}
	}
	for _, prefix := range cfg.Prefixes {
		prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "/")
		if prefix != "" {
			p.prefixes = append(p.prefixes, prefix)
		}
	}

	var patterns []gitignore.Pattern
	for _, raw := range cfg.Patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(raw, nil))
	}
	if len(patterns) > 0 {
		p.matcher = gitignore.NewMatcher(patterns)
	}
	return p
}

// Default returns a Policy built from DefaultConfig
func Default() *Policy {
	return New(DefaultConfig())
}

// Match reports whether the normalized relative path is excluded.
// isDir must be true for directories so that "logs/" style prefixes and
// directory-only patterns match the directory itself.
func (p *Policy) Match(path string, isDir bool) bool {
	if p == nil || path == "" {
		return false
	}

	segments := strings.Split(path, "/")
	for _, seg := range segments {
		if _, ok := p.names[seg]; ok {
			return true
		}
	}

	candidate := path
	if isDir {
		candidate += "/"
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(candidate, prefix) {
			return true
		}
	}

	if p.matcher != nil && p.matcher.Match(segments, isDir) {
		return true
	}
	return false
}
