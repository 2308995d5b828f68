package diff

import (
	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/domain"
)

// Comparer classifies one locally present path against the remote manifest
type Comparer interface {
	// Compare returns New, Modified or Unchanged for a local file with the
	// given blob hash. remote is nil when the manifest has no entry.
	Compare(localHash string, remote *domain.RemoteEntry) domain.ChangeStatus
}

// DefaultComparer compares git blob hashes; no size or mtime heuristics
type DefaultComparer struct{}

// NewDefaultComparer creates a new DefaultComparer
func NewDefaultComparer() *DefaultComparer {
	return &DefaultComparer{}
}

// Compare implements the Comparer interface
func (c *DefaultComparer) Compare(localHash string, remote *domain.RemoteEntry) domain.ChangeStatus {
	// Absent remotely
	if remote == nil {
		return domain.StatusNew
	}

	// A submodule at the same path cannot be updated with file content,
	// so the local file is reported as new
	if !remote.IsBlob() {
		return domain.StatusNew
	}

	if checksum.Equal(localHash, remote.Hash) {
		return domain.StatusUnchanged
	}
	return domain.StatusModified
}
