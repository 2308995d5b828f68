package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Gitpush/internal/adapter/local"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/testutil"
)

// paths returns the sorted paths of regular entries
func paths(entries []domain.FileEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Opaque {
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

func opaquePaths(entries []domain.FileEntry) []string {
	var out []string
	for _, e := range entries {
		if e.Opaque {
			out = append(out, e.Path)
		}
	}
	sort.Strings(out)
	return out
}

func newDiskScanner(t *testing.T, root string) *DefaultScanner {
	t.Helper()

	fs, err := local.New(afero.NewOsFs(), root)
	require.NoError(t, err)
	return NewDefaultScanner(fs, ignore.Default())
}

func newScanner(t *testing.T, files map[string]string) *DefaultScanner {
	t.Helper()

	fs, err := local.New(testutil.MemTree(t, files), testutil.DefaultRoot)
	require.NoError(t, err)
	return NewDefaultScanner(fs, ignore.Default())
}

func TestScan_ListsFilesRecursively(t *testing.T) {
	s := newScanner(t, map[string]string{
		"a.php":               "a",
		"inc/x.php":           "x",
		"inc/parts/deep.php":  "d",
		"assets/css/site.css": "c",
	})

	entries, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "assets/css/site.css", "inc/parts/deep.php", "inc/x.php"}, paths(entries))
}

func TestScan_AppliesIgnorePolicy(t *testing.T) {
	s := newScanner(t, map[string]string{
		"a.php":                     "a",
		".git/HEAD":                 "ref",
		"node_modules/lib/index.js": "x",
		"img/.DS_Store":             "x",
		"cache/page.html":           "x",
		"logs/error.log":            "x",
		"inc/cache/keep.php":        "k",
	})

	entries, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "inc/cache/keep.php"}, paths(entries))
}

func TestScan_EmptyDirectoriesProduceNothing(t *testing.T) {
	fs := testutil.MemTree(t, map[string]string{"a.php": "a"})
	testutil.Mkdir(t, fs, "empty/nested")

	lfs, err := local.New(fs, testutil.DefaultRoot)
	require.NoError(t, err)

	entries, err := NewDefaultScanner(lfs, nil).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php"}, paths(entries))
}

func TestScan_Subdirectory(t *testing.T) {
	s := newScanner(t, map[string]string{
		"theme/style.css":    "s",
		"theme/inc/x.php":    "x",
		"other/not-here.php": "n",
	})

	entries, err := s.Scan(context.Background(), "theme")
	require.NoError(t, err)
	assert.Equal(t, []string{"inc/x.php", "style.css"}, paths(entries))
}

func TestScan_RootFailure(t *testing.T) {
	s := newScanner(t, map[string]string{"a.php": "a"})

	_, err := s.Scan(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrScanRoot), "got %v", err)
}

// flakyFS fails listing of one directory
type flakyFS struct {
	*local.Adapter
	failDir string
}

func (f *flakyFS) ListDir(ctx context.Context, path string) ([]domain.DirItem, error) {
	if path == f.failDir {
		return nil, domain.ErrPermissionDenied
	}
	return f.Adapter.ListDir(ctx, path)
}

func TestScan_SkipsUnreadableSubdirectory(t *testing.T) {
	base, err := local.New(testutil.MemTree(t, map[string]string{
		"a.php":         "a",
		"private/s.php": "s",
		"public/p.php":  "p",
	}), testutil.DefaultRoot)
	require.NoError(t, err)

	s := NewDefaultScanner(&flakyFS{Adapter: base, failDir: "private"}, nil)
	entries, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "public/p.php"}, paths(entries))
	assert.Equal(t, []string{"private"}, opaquePaths(entries))
}

func TestScan_FollowsSymlinkedDirectory(t *testing.T) {
	dir := testutil.DiskTree(t, map[string]string{
		"real-theme/style.css": "body{}",
		"site/index.php":       "i",
	})
	testutil.Symlink(t, dir, "../real-theme", "site/theme")

	entries, err := newDiskScanner(t, filepath.Join(dir, "site")).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.php", "theme/style.css"}, paths(entries))
	assert.Empty(t, opaquePaths(entries))
}

func TestScan_SymlinkCycles(t *testing.T) {
	dir := testutil.DiskTree(t, map[string]string{
		"site/a.php":        "a",
		"site/inc/x.php":    "x",
		"outside/one/1.php": "1",
		"outside/two/2.php": "2",
	})
	root := filepath.Join(dir, "site")
	// back to the root from below it
	testutil.Symlink(t, root, "..", "inc/up")
	// to itself
	testutil.Symlink(t, root, ".", "self")
	// two directories outside the root pointing at each other
	testutil.Symlink(t, root, "../outside/one", "ext")
	testutil.Symlink(t, dir, "../two", "outside/one/next")
	testutil.Symlink(t, dir, "../one", "outside/two/back")

	entries, err := newDiskScanner(t, root).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "ext/1.php", "ext/next/2.php", "inc/x.php"}, paths(entries))
	assert.Equal(t, []string{"ext/next/back", "inc/up", "self"}, opaquePaths(entries))
}

func TestScan_SameDirectoryThroughTwoLinks(t *testing.T) {
	dir := testutil.DiskTree(t, map[string]string{
		"shared/lib.php": "l",
		"site/a.php":     "a",
	})
	root := filepath.Join(dir, "site")
	testutil.Symlink(t, root, "../shared", "one")
	testutil.Symlink(t, root, "../shared", "two")

	entries, err := newDiskScanner(t, root).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php", "one/lib.php", "two/lib.php"}, paths(entries))
}

func TestScan_BrokenLinkIsOpaque(t *testing.T) {
	root := testutil.DiskTree(t, map[string]string{"a.php": "a"})
	testutil.Symlink(t, root, "gone", "dangling")

	entries, err := newDiskScanner(t, root).Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.php"}, paths(entries))
	assert.Equal(t, []string{"dangling"}, opaquePaths(entries))
}

func TestScan_DeepTree(t *testing.T) {
	deep := strings.Repeat("d/", 200) + "leaf.txt"
	s := newScanner(t, map[string]string{deep: "x"})

	entries, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{deep}, paths(entries))
}

func TestScan_Cancelled(t *testing.T) {
	s := newScanner(t, map[string]string{"inc/x.php": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, "")
	assert.Error(t, err)
}
