package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/Gitpush/internal/domain"
)

// RemoteTree defines the interface for a content store addressed by git blob hashes.
// All implementations must return domain-level errors (wrapped in *domain.RemoteError)
// so callers can branch with errors.Is.
type RemoteTree interface {
	// Identity returns a stable name for the store, used in cache keys
	Identity() string

	// FetchManifest returns the flat listing of every blob under ref.
	// A truncated listing is reported via Manifest.Truncated, not an error.
	FetchManifest(ctx context.Context, ref string) (*domain.Manifest, error)

	// FetchBlob returns the raw bytes of the file at path.
	// Returns domain.ErrNotFound if the path does not exist at ref.
	FetchBlob(ctx context.Context, ref, path string) ([]byte, error)

	// PutBlob creates or updates a file in a single commit.
	// An empty ExpectedHash means create-only.
	// Returns domain.ErrConflict if ExpectedHash no longer matches.
	PutBlob(ctx context.Context, req PutRequest) (domain.RemoteEntry, error)

	// DeleteBlob removes a file in a single commit.
	// ExpectedHash is mandatory.
	// Returns domain.ErrConflict if ExpectedHash no longer matches.
	DeleteBlob(ctx context.Context, req DeleteRequest) error

	// ListCommitHistory returns the commits touching path, newest first
	ListCommitHistory(ctx context.Context, ref, path string) ([]domain.CommitSummary, error)
}

// PutRequest describes one create or update
type PutRequest struct {
	Ref     string
	Path    string
	Content []byte
	Message string
	// ExpectedHash is the blob hash the caller last saw; empty for create
	ExpectedHash string
}

// IsCreate returns true if the request must not overwrite an existing file
func (r PutRequest) IsCreate() bool {
	return r.ExpectedHash == ""
}

// DeleteRequest describes one delete
type DeleteRequest struct {
	Ref          string
	Path         string
	Message      string
	ExpectedHash string
}

// LocalFS defines the read-only view of the local tree.
// Paths are relative to the adapter's root, forward-slash separated;
// "" is the root itself.
type LocalFS interface {
	// ListDir returns the immediate children of path.
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	ListDir(ctx context.Context, path string) ([]domain.DirItem, error)

	// ReadFile returns the full content of a file.
	// Returns domain.ErrNotFile if path is a directory
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// Open opens a file for streaming along with its size.
	// Caller is responsible for closing the reader.
	Open(ctx context.Context, path string) (io.ReadCloser, int64, error)

	// Resolve returns the slash-separated real location of path with
	// symlinks evaluated. Two paths naming the same directory resolve equal.
	Resolve(ctx context.Context, path string) (string, error)
}
