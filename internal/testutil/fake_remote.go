package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/domain"
)

// Operation names used for call counting and error injection
const (
	OpManifest = "manifest"
	OpBlob     = "blob"
	OpPut      = "put"
	OpDelete   = "delete"
	OpHistory  = "history"
)

var _ adapter.RemoteTree = (*FakeRemote)(nil)

// FakeRemote is an in-memory remote store with real optimistic-concurrency
// semantics: updates and deletes must name the current blob hash.
type FakeRemote struct {
	mu sync.Mutex

	identity   string
	files      map[string]map[string][]byte
	submodules map[string]map[string]string
	history    map[string][]domain.CommitSummary
	calls      map[string]int
	failures   map[string]error
	puts       []adapter.PutRequest
	deletes    []adapter.DeleteRequest

	// Truncated marks every fetched manifest as incomplete
	Truncated bool

	// BeforeOp runs before every operation without holding the store lock,
	// so it may call Seed or Remove to simulate a concurrent writer.
	BeforeOp func(op, path string)
}

// NewFakeRemote creates an empty store
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		identity:   "fake/repo@memory",
		files:      make(map[string]map[string][]byte),
		submodules: make(map[string]map[string]string),
		history:    make(map[string][]domain.CommitSummary),
		calls:      make(map[string]int),
		failures:   make(map[string]error),
	}
}

// Seed stores content at ref/path, bypassing concurrency checks
func (f *FakeRemote) Seed(ref, path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.refFiles(ref)[path] = []byte(content)
}

// SeedSubmodule records a gitlink entry at ref/path
func (f *FakeRemote) SeedSubmodule(ref, path, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submodules[ref] == nil {
		f.submodules[ref] = make(map[string]string)
	}
	f.submodules[ref][path] = hash
}

// Remove deletes ref/path, bypassing concurrency checks
func (f *FakeRemote) Remove(ref, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.refFiles(ref), path)
}

// Content returns the stored bytes at ref/path
func (f *FakeRemote) Content(ref, path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.refFiles(ref)[path]
	return data, ok
}

// Paths returns the stored blob paths at ref, sorted
func (f *FakeRemote) Paths(ref string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths := make([]string, 0, len(f.files[ref]))
	for p := range f.files[ref] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SetHistory sets the commit history returned for path
func (f *FakeRemote) SetHistory(path string, commits []domain.CommitSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.history[path] = commits
}

// FailOn makes every call of op on path return err.
// An empty path fails the operation for every path.
func (f *FakeRemote) FailOn(op, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[op+":"+path] = err
}

// Calls returns how many times op was invoked
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

// WriteCalls returns the number of put and delete calls
func (f *FakeRemote) WriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[OpPut] + f.calls[OpDelete]
}

// Puts returns every put request received, in order
func (f *FakeRemote) Puts() []adapter.PutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]adapter.PutRequest(nil), f.puts...)
}

// Deletes returns every delete request received, in order
func (f *FakeRemote) Deletes() []adapter.DeleteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]adapter.DeleteRequest(nil), f.deletes...)
}

// ResetCalls clears the call counters
func (f *FakeRemote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = make(map[string]int)
	f.puts = nil
	f.deletes = nil
}

// Identity implements adapter.RemoteTree
func (f *FakeRemote) Identity() string {
	return f.identity
}

// FetchManifest implements adapter.RemoteTree
func (f *FakeRemote) FetchManifest(ctx context.Context, ref string) (*domain.Manifest, error) {
	if err := f.enter(OpManifest, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	m := domain.NewManifest(ref)
	m.Truncated = f.Truncated
	for p, data := range f.files[ref] {
		m.Entries[p] = domain.RemoteEntry{Path: p, Hash: checksum.Sum(data), Kind: domain.KindBlob}
	}
	for p, hash := range f.submodules[ref] {
		m.Entries[p] = domain.RemoteEntry{Path: p, Hash: hash, Kind: domain.KindSubmodule}
	}
	return m, nil
}

// FetchBlob implements adapter.RemoteTree
func (f *FakeRemote) FetchBlob(ctx context.Context, ref, path string) ([]byte, error) {
	if err := f.enter(OpBlob, path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[ref][path]
	if !ok {
		return nil, remoteErr("get", path, http.StatusNotFound, domain.ErrNotFound, "")
	}
	return append([]byte(nil), data...), nil
}

// PutBlob implements adapter.RemoteTree
func (f *FakeRemote) PutBlob(ctx context.Context, req adapter.PutRequest) (domain.RemoteEntry, error) {
	if err := f.enter(OpPut, req.Path); err != nil {
		return domain.RemoteEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.puts = append(f.puts, req)
	files := f.refFiles(req.Ref)
	current, exists := files[req.Path]

	if req.IsCreate() {
		if exists {
			return domain.RemoteEntry{}, remoteErr("put", req.Path, http.StatusUnprocessableEntity, domain.ErrConflict, "file already exists")
		}
	} else {
		if !exists {
			return domain.RemoteEntry{}, remoteErr("put", req.Path, http.StatusNotFound, domain.ErrNotFound, "")
		}
		if checksum.Sum(current) != req.ExpectedHash {
			return domain.RemoteEntry{}, remoteErr("put", req.Path, http.StatusConflict, domain.ErrConflict, "sha mismatch")
		}
	}

	files[req.Path] = append([]byte(nil), req.Content...)
	f.recordCommit(req.Path, req.Message)
	return domain.RemoteEntry{Path: req.Path, Hash: checksum.Sum(req.Content), Kind: domain.KindBlob}, nil
}

// DeleteBlob implements adapter.RemoteTree
func (f *FakeRemote) DeleteBlob(ctx context.Context, req adapter.DeleteRequest) error {
	if err := f.enter(OpDelete, req.Path); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, req)
	if req.ExpectedHash == "" {
		return remoteErr("delete", req.Path, 0, domain.ErrValidation, "expected hash is required")
	}

	files := f.refFiles(req.Ref)
	current, exists := files[req.Path]
	if !exists {
		return remoteErr("delete", req.Path, http.StatusNotFound, domain.ErrNotFound, "")
	}
	if checksum.Sum(current) != req.ExpectedHash {
		return remoteErr("delete", req.Path, http.StatusConflict, domain.ErrConflict, "sha mismatch")
	}

	delete(files, req.Path)
	f.recordCommit(req.Path, req.Message)
	return nil
}

// ListCommitHistory implements adapter.RemoteTree
func (f *FakeRemote) ListCommitHistory(ctx context.Context, ref, path string) ([]domain.CommitSummary, error) {
	if err := f.enter(OpHistory, path); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]domain.CommitSummary(nil), f.history[path]...), nil
}

// enter runs the hook, counts the call and returns any injected failure
func (f *FakeRemote) enter(op, path string) error {
	if f.BeforeOp != nil {
		f.BeforeOp(op, path)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	if err, ok := f.failures[op+":"+path]; ok {
		return err
	}
	if err, ok := f.failures[op+":"]; ok {
		return err
	}
	return nil
}

func (f *FakeRemote) refFiles(ref string) map[string][]byte {
	if f.files[ref] == nil {
		f.files[ref] = make(map[string][]byte)
	}
	return f.files[ref]
}

// recordCommit prepends a synthetic commit to the path history
func (f *FakeRemote) recordCommit(path, message string) {
	n := len(f.history[path]) + 1
	commit := domain.CommitSummary{
		SHA:     fmt.Sprintf("%040d", n),
		Message: message,
		Author:  "fake",
		Date:    time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC),
	}
	f.history[path] = append([]domain.CommitSummary{commit}, f.history[path]...)
}

func remoteErr(op, path string, status int, kind error, detail string) error {
	return &domain.RemoteError{Op: op, Path: path, StatusCode: status, Kind: kind, Detail: detail}
}
