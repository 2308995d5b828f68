package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/Ning0612/Gitpush/internal/domain"
)

// Adapter implements the adapter.LocalFS interface over an afero filesystem
type Adapter struct {
	base afero.Fs
	fs   afero.Fs
	root string
}

// New creates a local adapter confined to root on the given filesystem.
// root must be an existing directory.
func New(base afero.Fs, root string) (*Adapter, error) {
	if root == "" {
		return nil, &domain.ConfigError{Field: "local.root", Reason: "must not be empty"}
	}

	info, err := base.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", mapError(err), root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, root)
	}

	return &Adapter{
		base: base,
		fs:   afero.NewBasePathFs(base, root),
		root: root,
	}, nil
}

// NewOS creates a local adapter over the operating system filesystem
func NewOS(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return New(afero.NewOsFs(), absRoot)
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// resolvePath validates a relative path; "" and "." are the root
func (a *Adapter) resolvePath(relPath string) (string, error) {
	if relPath == "" || relPath == "." {
		return string(filepath.Separator), nil
	}

	clean, err := domain.NormalizePath(relPath)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(clean), nil
}

// ListDir returns the immediate children of path, sorted by name
func (a *Adapter) ListDir(ctx context.Context, path string) ([]domain.DirItem, error) {
	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", mapError(err), path)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
	}

	entries, err := afero.ReadDir(a.fs, fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", mapError(err), path)
	}

	result := make([]domain.DirItem, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result = append(result, a.classify(filepath.Join(fullPath, entry.Name()), entry))
	}

	return result, nil
}

// classify turns a listing entry into a DirItem. Symlinks are followed: a
// link to a directory is a directory carrying its resolved target.
func (a *Adapter) classify(fullPath string, info os.FileInfo) domain.DirItem {
	item := domain.DirItem{Name: info.Name(), Kind: domain.ItemOther}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		target, err := a.fs.Stat(fullPath)
		if err != nil {
			return item
		}
		switch {
		case target.Mode().IsRegular():
			item.Kind = domain.ItemFile
		case target.IsDir():
			resolved, err := a.resolve(fullPath)
			if err != nil {
				return item
			}
			item.Kind = domain.ItemDir
			item.Target = resolved
		}
	case mode.IsDir():
		item.Kind = domain.ItemDir
	case mode.IsRegular():
		item.Kind = domain.ItemFile
	}
	return item
}

// Resolve returns the slash-separated location of path with every symlink
// on the way resolved
func (a *Adapter) Resolve(ctx context.Context, path string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	fullPath, err := a.resolvePath(path)
	if err != nil {
		return "", err
	}
	return a.resolve(fullPath)
}

// resolve maps a path inside the base-path filesystem to its real location.
// Only the OS filesystem has links to evaluate.
func (a *Adapter) resolve(fullPath string) (string, error) {
	resolved := filepath.Join(a.root, fullPath)
	if _, ok := a.base.(*afero.OsFs); ok {
		evaluated, err := filepath.EvalSymlinks(resolved)
		if err != nil {
			return "", fmt.Errorf("%w: %s", mapError(err), fullPath)
		}
		resolved = evaluated
	}
	return filepath.ToSlash(resolved), nil
}

// ReadFile returns the full content of a file
func (a *Adapter) ReadFile(ctx context.Context, path string) ([]byte, error) {
	r, _, err := a.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Open opens a file for streaming and returns its size
func (a *Adapter) Open(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	fullPath, err := a.resolvePath(path)
	if err != nil {
		return nil, 0, err
	}

	info, err := a.fs.Stat(fullPath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", mapError(err), path)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrNotFile, path)
	}

	file, err := a.fs.Open(fullPath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s", mapError(err), path)
	}

	return file, info.Size(), nil
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrPermissionDenied
	}
	return err
}
