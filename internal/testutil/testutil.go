package testutil

import (
	"crypto/rand"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// DefaultRoot is the root directory used by in-memory test trees
const DefaultRoot = "/site"

// MemTree creates an in-memory filesystem holding files under DefaultRoot.
// Keys are forward-slash paths relative to the root.
func MemTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(DefaultRoot, 0755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}

	// Deterministic creation order keeps directory listings stable
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		WriteFile(t, fs, name, []byte(files[name]))
	}
	return fs
}

// WriteFile creates or overwrites a file under DefaultRoot, creating parents
func WriteFile(t *testing.T, fs afero.Fs, name string, content []byte) {
	t.Helper()

	full := path.Join(DefaultRoot, name)
	if err := fs.MkdirAll(path.Dir(full), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", name, err)
	}
	if err := afero.WriteFile(fs, full, content, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
}

// Mkdir creates an empty directory under DefaultRoot
func Mkdir(t *testing.T, fs afero.Fs, name string) {
	t.Helper()

	if err := fs.MkdirAll(path.Join(DefaultRoot, name), 0755); err != nil {
		t.Fatalf("failed to create dir %s: %v", name, err)
	}
}

// RemoveFile deletes a file under DefaultRoot
func RemoveFile(t *testing.T, fs afero.Fs, name string) {
	t.Helper()

	if err := fs.Remove(path.Join(DefaultRoot, name)); err != nil {
		t.Fatalf("failed to remove %s: %v", name, err)
	}
}

// RandomBytes returns size bytes of random content
func RandomBytes(t *testing.T, size int) []byte {
	t.Helper()

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("failed to generate random content: %v", err)
	}
	return buf
}

// DiskTree writes files under a fresh temporary directory and returns it.
// Keys are forward-slash paths relative to the returned directory.
func DiskTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("failed to create parent of %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}
	}
	return dir
}

// Symlink creates a link at name, relative to dir, pointing to target.
// target is used verbatim so relative links stay relative.
// Skips the test where symlinks are unavailable.
func Symlink(t *testing.T, dir, target, name string) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatalf("failed to create parent of %s: %v", name, err)
	}
	if err := os.Symlink(filepath.FromSlash(target), full); err != nil {
		t.Fatalf("failed to create symlink %s: %v", name, err)
	}
}
