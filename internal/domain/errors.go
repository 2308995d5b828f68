package domain

import (
	"errors"
	"fmt"
)

// Store errors - 遠端儲存層錯誤
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates the expected hash no longer matches the remote state
	ErrConflict = errors.New("concurrency conflict")

	// ErrUnauthorized indicates missing or rejected credentials
	ErrUnauthorized = errors.New("authentication failed")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates the remote store throttled the request
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrValidation indicates the remote store rejected the request payload
	ErrValidation = errors.New("validation failed")

	// ErrNetwork indicates a transport-level failure
	ErrNetwork = errors.New("network error")

	// ErrRemote is the fallback kind for unclassified store responses
	ErrRemote = errors.New("remote error")
)

// Local filesystem errors - 本機檔案系統錯誤
var (
	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrTooLarge indicates a file exceeds the maximum hashable size
	ErrTooLarge = errors.New("file too large")

	// ErrScanRoot indicates the local tree root itself could not be read
	ErrScanRoot = errors.New("cannot read local root")

	// ErrInvalidPath indicates an empty, absolute or escaping relative path
	ErrInvalidPath = errors.New("invalid path")
)

// Sync errors - 同步邏輯層錯誤
var (
	// ErrStaleSelection indicates a selected path is not in the fresh change-set
	ErrStaleSelection = errors.New("stale selection, refresh required")

	// ErrInvariant indicates a change entry violates its own invariants
	ErrInvariant = errors.New("change entry invariant violated")

	// ErrSubmoduleShadowed indicates a local file sits where the remote has a submodule
	ErrSubmoduleShadowed = errors.New("path is a submodule on the remote, a file cannot replace it")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed or incomplete
	ErrConfigInvalid = errors.New("invalid config")
)

// ConfigError reports a missing or invalid parameter detected before any
// remote call is made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfigInvalid) match
func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// RemoteError describes a failed call against the remote store.
// Kind is one of the store sentinels above and is what errors.Is matches.
type RemoteError struct {
	Op         string
	Path       string
	StatusCode int
	Kind       error
	Detail     string
}

func (e *RemoteError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.StatusCode)
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Kind
}

// IsNotFound reports whether err means the resource is absent.
// Absence is an expected outcome for content lookups, not a failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
