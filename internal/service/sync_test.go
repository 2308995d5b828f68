package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/adapter/github"
	"github.com/Ning0612/Gitpush/internal/adapter/local"
	"github.com/Ning0612/Gitpush/internal/config"
	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/state"
	"github.com/Ning0612/Gitpush/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Remote: config.RemoteConfig{
			Owner:        "acme",
			Repo:         "site",
			Branch:       "main",
			Token:        "test-token",
			HistoryLimit: 30,
		},
		Local: config.LocalConfig{Root: testutil.DefaultRoot},
		Ignore: config.IgnoreConfig{
			Names:    ignore.DefaultNames,
			Prefixes: ignore.DefaultPrefixes,
		},
		Cache: config.CacheConfig{TTL: time.Hour, MaxRefs: 16},
		State: config.StateConfig{Dir: t.TempDir()},
	}
}

type fixture struct {
	fs      afero.Fs
	remote  *testutil.FakeRemote
	clock   clockwork.FakeClock
	service *SyncService
}

func newFixture(t *testing.T, localFiles map[string]string, opts ...Option) *fixture {
	t.Helper()

	fs := testutil.MemTree(t, localFiles)
	lfs, err := local.New(fs, testutil.DefaultRoot)
	require.NoError(t, err)

	remote := testutil.NewFakeRemote()
	clock := clockwork.NewFakeClock()

	all := append([]Option{WithRemote(remote), WithLocalFS(lfs), WithClock(clock)}, opts...)
	svc, err := NewSyncService(context.Background(), testConfig(t), all...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	return &fixture{fs: fs, remote: remote, clock: clock, service: svc}
}

func TestNewSyncService_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Remote.Token = ""

	_, err := NewSyncService(context.Background(), cfg, WithRemote(testutil.NewFakeRemote()))
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "remote.token", cfgErr.Field)
}

func TestNewSyncService_NilConfig(t *testing.T) {
	_, err := NewSyncService(context.Background(), nil)
	assert.Error(t, err)
}

func TestGetChanges_DefaultsToConfiguredBranch(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.php": "<?php echo 1;",
		"b.css": "body{x:1}",
	})
	f.remote.Seed("main", "b.css", "body{x:1}")
	f.remote.Seed("main", "c.js", "console.log(1)")
	f.remote.Seed("staging", "a.php", "<?php echo 1;")

	cs, err := f.service.GetChanges(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "main", cs.Ref)
	assert.Equal(t, []string{"a.php", "c.js"}, cs.Paths())

	staging, err := f.service.GetChanges(context.Background(), "staging", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.css"}, staging.Paths())
}

func TestGetChanges_ManifestFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	f.remote.FailOn(testutil.OpManifest, "", domain.ErrUnauthorized)

	_, err := f.service.GetChanges(context.Background(), "", true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestApplySync_AppliesAndRecordsRun(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "<?php echo 1;"})
	f.remote.Seed("main", "c.js", "console.log(1)")
	ctx := context.Background()

	_, err := f.service.GetChanges(ctx, "", false)
	require.NoError(t, err)

	results, err := f.service.ApplySync(ctx, "", "Deploy", []string{"a.php", "c.js"})
	require.NoError(t, err)
	assert.Equal(t, []domain.SyncResult{
		{Path: "a.php", Outcome: domain.OutcomeCreated},
		{Path: "c.js", Outcome: domain.OutcomeDeleted},
	}, results)

	content, ok := f.remote.Content("main", "a.php")
	require.True(t, ok)
	assert.Equal(t, "<?php echo 1;", string(content))

	// The next diff must see the new remote state without forcing
	cs, err := f.service.GetChanges(ctx, "", false)
	require.NoError(t, err)
	assert.Empty(t, cs.Changes)

	runs, err := f.service.LastRuns("", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.StatusSuccess, runs[0].Status)
	assert.Equal(t, "Deploy", runs[0].Message)
	assert.Equal(t, "main", runs[0].Ref)
	assert.Equal(t, f.remote.Identity(), runs[0].Store)
	assert.Equal(t, 1, runs[0].Created)
	assert.Equal(t, 1, runs[0].Deleted)

	last, err := f.service.LastSuccess("main")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, runs[0].ID, last.ID)
}

func TestApplySync_PartialFailureRecorded(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.php": "<?php echo 1;",
		"b.css": "body{x:2}",
	})
	f.remote.Seed("main", "b.css", "body{x:1}")
	f.remote.FailOn(testutil.OpPut, "b.css", domain.ErrPermissionDenied)

	results, err := f.service.ApplySync(context.Background(), "main", "Deploy", []string{"a.php", "b.css"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.OutcomeCreated, results[0].Outcome)
	assert.Equal(t, domain.OutcomeFailed, results[1].Outcome)

	runs, err := f.service.LastRuns("main", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.StatusPartial, runs[0].Status)
	assert.Equal(t, 1, runs[0].Failed)

	last, err := f.service.LastSuccess("main")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestApplySync_RefreshFailureRecorded(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	f.remote.FailOn(testutil.OpManifest, "", domain.ErrNetwork)

	results, err := f.service.ApplySync(context.Background(), "", "Deploy", []string{"a.php"})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Nil(t, results)
	assert.Equal(t, 0, f.remote.WriteCalls())

	runs, err := f.service.LastRuns("", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "network error")
}

func TestApplySync_RejectedCallsNotRecorded(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	ctx := context.Background()

	_, err := f.service.ApplySync(ctx, "", "   ", []string{"a.php"})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "message", cfgErr.Field)

	results, err := f.service.ApplySync(ctx, "", "Deploy", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Equal(t, 0, f.remote.Calls(testutil.OpManifest))

	runs, err := f.service.LastRuns("", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestApplySync_RunTimestampsFromClock(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	start := f.clock.Now()

	f.remote.BeforeOp = func(op, path string) {
		if op == testutil.OpPut {
			f.clock.Advance(2 * time.Second)
		}
	}

	_, err := f.service.ApplySync(context.Background(), "", "Deploy", []string{"a.php"})
	require.NoError(t, err)

	runs, err := f.service.LastRuns("", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].StartTime.Equal(start), "start %v, want %v", runs[0].StartTime, start)
	assert.Equal(t, 2*time.Second, runs[0].EndTime.Sub(runs[0].StartTime))
}

func TestGetFileDiff(t *testing.T) {
	f := newFixture(t, map[string]string{
		"new.php":       "<?php echo 1;",
		"same.css":      "body{x:1}",
		"changed.js":    "hello world\n",
		"theme/crlf.md": "line\r\n",
	})
	f.remote.Seed("main", "same.css", "body{x:1}")
	f.remote.Seed("main", "changed.js", "hello world")
	f.remote.Seed("main", "gone.txt", "new content")
	f.remote.Seed("main", "theme/crlf.md", "line\n")
	ctx := context.Background()

	tests := []struct {
		path         string
		status       domain.ChangeStatus
		localExists  bool
		remoteExists bool
		remoteHash   string
	}{
		{"new.php", domain.StatusNew, true, false, ""},
		{"same.css", domain.StatusUnchanged, true, true, "820b2b9bd0394fc933ae8126eaca681e4993b89b"},
		{"changed.js", domain.StatusModified, true, true, "95d09f2b10159347eece71399a7e2e907ea3df4f"},
		{"gone.txt", domain.StatusDeleted, false, true, "47d2739ba2c34690248c8f91b84bb54e8936899a"},
		{"./theme/crlf.md", domain.StatusModified, true, true, checksum.Sum([]byte("line\n"))},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			diff, err := f.service.GetFileDiff(ctx, "", tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.status, diff.Status)
			assert.Equal(t, tt.localExists, diff.LocalExists)
			assert.Equal(t, tt.remoteExists, diff.RemoteExists)
			assert.Equal(t, tt.remoteHash, diff.RemoteHash)
		})
	}

	diff, err := f.service.GetFileDiff(ctx, "", "changed.js")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(diff.Local))
	assert.Equal(t, "hello world", string(diff.Remote))
}

func TestGetFileDiff_NeitherSide(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.GetFileDiff(context.Background(), "", "missing.php")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetFileDiff_InvalidPath(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.GetFileDiff(context.Background(), "", "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
	assert.Equal(t, 0, f.remote.Calls(testutil.OpBlob))
}

func TestGetFileDiff_RemoteFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	f.remote.FailOn(testutil.OpBlob, "a.php", domain.ErrRateLimited)

	_, err := f.service.GetFileDiff(context.Background(), "", "a.php")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGetHistory(t *testing.T) {
	f := newFixture(t, nil)
	commits := []domain.CommitSummary{
		{SHA: "bbb", Message: "second"},
		{SHA: "aaa", Message: "first"},
	}
	f.remote.SetHistory("theme/style.css", commits)

	got, err := f.service.GetHistory(context.Background(), "", "/theme/style.css")
	require.NoError(t, err)
	assert.Equal(t, commits, got)

	_, err = f.service.GetHistory(context.Background(), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)
}

// checkingRemote adds an access check to the in-memory store
type checkingRemote struct {
	*testutil.FakeRemote
	err error
}

func (c *checkingRemote) CheckAccess(ctx context.Context) (github.RepoInfo, error) {
	if c.err != nil {
		return github.RepoInfo{}, c.err
	}
	return github.RepoInfo{FullName: "acme/site", DefaultBranch: "main", Private: true}, nil
}

func TestCheckConnection(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.Seed("main", "a.php", "x")
	f.remote.Seed("main", "b.php", "y")

	info, err := f.service.CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", info.Ref)
	assert.Equal(t, 2, info.Entries)
	assert.Empty(t, info.FullName)
}

func TestCheckConnection_AccessChecker(t *testing.T) {
	remote := &checkingRemote{FakeRemote: testutil.NewFakeRemote()}
	f := newFixture(t, nil, WithRemote(remote))
	remote.Truncated = true

	info, err := f.service.CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme/site", info.FullName)
	assert.True(t, info.Private)
	assert.True(t, info.Truncated)
	assert.Equal(t, 1, remote.Calls(testutil.OpManifest))
}

func TestCheckConnection_Unauthorized(t *testing.T) {
	remote := &checkingRemote{
		FakeRemote: testutil.NewFakeRemote(),
		err:        &domain.RemoteError{Op: "check", StatusCode: 401, Kind: domain.ErrUnauthorized},
	}
	f := newFixture(t, nil, WithRemote(remote))

	_, err := f.service.CheckConnection(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 0, remote.Calls(testutil.OpManifest))
}

func TestRefreshConfig(t *testing.T) {
	f := newFixture(t, map[string]string{"a.php": "x"})
	ctx := context.Background()

	_, err := f.service.GetChanges(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.remote.Calls(testutil.OpManifest))

	cfg := testConfig(t)
	cfg.Remote.Branch = "staging"
	require.NoError(t, f.service.RefreshConfig(ctx, cfg))
	assert.Equal(t, "staging", f.service.Config().Remote.Branch)

	cs, err := f.service.GetChanges(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, "staging", cs.Ref)

	// Caches were dropped, so main is fetched again
	_, err = f.service.GetChanges(ctx, "main", false)
	require.NoError(t, err)
	assert.Equal(t, 3, f.remote.Calls(testutil.OpManifest))
}

func TestRefreshConfig_InvalidKeepsPrevious(t *testing.T) {
	f := newFixture(t, nil)

	cfg := testConfig(t)
	cfg.Remote.Owner = ""
	err := f.service.RefreshConfig(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	assert.Equal(t, "acme", f.service.Config().Remote.Owner)

	assert.Error(t, f.service.RefreshConfig(context.Background(), nil))
}

func TestRefreshConfig_RemoteFactoryError(t *testing.T) {
	remote := testutil.NewFakeRemote()
	calls := 0
	factory := func(ctx context.Context, cfg *config.Config) (adapter.RemoteTree, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("dial failed")
		}
		return remote, nil
	}
	f := newFixture(t, nil, WithRemoteFactory(factory))

	err := f.service.RefreshConfig(context.Background(), testConfig(t))
	assert.ErrorContains(t, err, "dial failed")

	_, err = f.service.GetChanges(context.Background(), "", false)
	assert.NoError(t, err)
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.service.Close())
	require.NoError(t, f.service.Close())

	_, err := f.service.LastRuns("", 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWithStateManager_NotClosedByService(t *testing.T) {
	m, err := state.NewManager(t.TempDir())
	require.NoError(t, err)
	defer m.Close()

	f := newFixture(t, map[string]string{"a.php": "x"}, WithStateManager(m))
	_, err = f.service.ApplySync(context.Background(), "", "Deploy", []string{"a.php"})
	require.NoError(t, err)
	require.NoError(t, f.service.Close())

	runs, err := m.AllHistory(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
