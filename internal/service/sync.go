package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/adapter/github"
	"github.com/Ning0612/Gitpush/internal/adapter/local"
	"github.com/Ning0612/Gitpush/internal/config"
	"github.com/Ning0612/Gitpush/internal/core/cache"
	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/core/engine"
	"github.com/Ning0612/Gitpush/internal/core/executor"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
	"github.com/Ning0612/Gitpush/internal/progress"
	"github.com/Ning0612/Gitpush/internal/state"
)

// ErrClosed is returned by history queries after Close
var ErrClosed = errors.New("sync service closed")

// RemoteFactory builds the remote store client from configuration
type RemoteFactory func(ctx context.Context, cfg *config.Config) (adapter.RemoteTree, error)

// LocalFactory builds the local store from configuration
type LocalFactory func(cfg *config.Config) (adapter.LocalFS, error)

// AccessChecker is implemented by remotes that can verify credentials
// without listing the tree
type AccessChecker interface {
	CheckAccess(ctx context.Context) (github.RepoInfo, error)
}

// ConnectionInfo is the result of CheckConnection
type ConnectionInfo struct {
	Store         string
	Ref           string
	FullName      string
	DefaultBranch string
	Private       bool
	Entries       int
	Truncated     bool
}

// Option customizes a SyncService
type Option func(*SyncService)

// WithRemoteFactory replaces the GitHub client factory
func WithRemoteFactory(f RemoteFactory) Option {
	return func(s *SyncService) { s.newRemote = f }
}

// WithRemote uses a fixed remote store for every configuration
func WithRemote(remote adapter.RemoteTree) Option {
	return WithRemoteFactory(func(context.Context, *config.Config) (adapter.RemoteTree, error) {
		return remote, nil
	})
}

// WithLocalFactory replaces the OS filesystem factory
func WithLocalFactory(f LocalFactory) Option {
	return func(s *SyncService) { s.newLocal = f }
}

// WithLocalFS uses a fixed local store for every configuration
func WithLocalFS(fs adapter.LocalFS) Option {
	return WithLocalFactory(func(*config.Config) (adapter.LocalFS, error) {
		return fs, nil
	})
}

// WithReporter sets the progress reporter used by ApplySync
func WithReporter(r progress.Reporter) Option {
	return func(s *SyncService) { s.reporter = r }
}

// WithStateManager records runs in m instead of opening state.dir.
// The caller keeps ownership of m.
func WithStateManager(m *state.Manager) Option {
	return func(s *SyncService) {
		s.state = m
		s.ownsState = false
	}
}

// WithClock sets the clock used for run timestamps and cache expiry
func WithClock(c clockwork.Clock) Option {
	return func(s *SyncService) { s.clock = c }
}

// SyncService is the caller-facing surface of the sync engine
type SyncService struct {
	mu sync.RWMutex

	config   *config.Config
	remote   adapter.RemoteTree
	engine   *engine.Engine
	executor executor.Executor

	newRemote RemoteFactory
	newLocal  LocalFactory
	reporter  progress.Reporter
	clock     clockwork.Clock

	state     *state.Manager
	ownsState bool
}

// NewSyncService creates a new sync service
func NewSyncService(ctx context.Context, cfg *config.Config, opts ...Option) (*SyncService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	s := &SyncService{
		newRemote: defaultRemote,
		newLocal:  defaultLocal,
		reporter:  progress.NewLogReporter(),
		clock:     clockwork.NewRealClock(),
		ownsState: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.build(ctx, cfg); err != nil {
		return nil, err
	}

	if s.state == nil {
		m, err := state.NewManager(cfg.State.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		s.state = m
	}

	return s, nil
}

func defaultRemote(ctx context.Context, cfg *config.Config) (adapter.RemoteTree, error) {
	return github.New(ctx, github.Options{
		Owner:        cfg.Remote.Owner,
		Repo:         cfg.Remote.Repo,
		Token:        cfg.Remote.Token,
		BaseURL:      cfg.Remote.BaseURL,
		HistoryLimit: cfg.Remote.HistoryLimit,
	})
}

func defaultLocal(cfg *config.Config) (adapter.LocalFS, error) {
	return local.NewOS(cfg.Local.Root)
}

// build validates cfg and wires every component; s.mu must be held or unshared
func (s *SyncService) build(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	remote, err := s.newRemote(ctx, cfg)
	if err != nil {
		return fmt.Errorf("remote store: %w", err)
	}
	localFS, err := s.newLocal(cfg)
	if err != nil {
		return fmt.Errorf("local store: %w", err)
	}

	manifests, err := cache.New(cache.Options{
		TTL:     cfg.Cache.TTL,
		MaxRefs: cfg.Cache.MaxRefs,
		Clock:   s.clock,
	})
	if err != nil {
		return fmt.Errorf("manifest cache: %w", err)
	}

	eng, err := engine.New(remote, localFS, engine.Options{
		Policy:     cfg.IgnorePolicy(),
		Cache:      manifests,
		Calculator: checksum.NewDefaultCalculator(),
	})
	if err != nil {
		return err
	}

	s.config = cfg
	s.remote = remote
	s.engine = eng
	s.executor = executor.NewDefaultExecutor(eng, remote, s.reporter)

	logger.Get().Debug("Sync service configured",
		"store", remote.Identity(),
		"branch", cfg.Remote.Branch,
		"root", cfg.Local.Root)
	return nil
}

// RefreshConfig rebuilds the remote client from cfg and drops every
// cached manifest. On error the previous configuration stays active.
func (s *SyncService) RefreshConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.engine
	if err := s.build(ctx, cfg); err != nil {
		logger.Get().Error("Failed to apply new configuration", "error", err)
		return err
	}
	if previous != nil {
		previous.InvalidateAll()
	}

	logger.Get().Info("Configuration refreshed", "store", s.remote.Identity())
	return nil
}

// Config returns the active configuration
func (s *SyncService) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// resolveRef maps the empty ref to the configured branch
func (s *SyncService) resolveRef(ref string) string {
	if ref = strings.TrimSpace(ref); ref != "" {
		return ref
	}
	return s.config.Remote.Branch
}

// GetChanges returns the change-set between the local tree and ref
func (s *SyncService) GetChanges(ctx context.Context, ref string, force bool) (*domain.ChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = s.resolveRef(ref)
	logger.Get().Debug("Computing changes", "ref", ref, "force", force)

	cs, err := s.engine.Diff(ctx, ref, force)
	if err != nil {
		logger.Get().Error("Diff failed", "ref", ref, "error", err)
		return nil, err
	}
	return cs, nil
}

// ApplySync pushes the selected paths to ref and records the run.
// Per-file failures are in the results; an error means nothing was attempted.
func (s *SyncService) ApplySync(ctx context.Context, ref, message string, paths []string) ([]domain.SyncResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = s.resolveRef(ref)
	start := s.clock.Now()

	results, err := s.executor.Sync(ctx, ref, message, paths)

	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) || (err == nil && len(results) == 0) {
		// Rejected before any remote call
		return results, err
	}

	s.recordRun(ref, message, start, results, err)
	return results, err
}

func (s *SyncService) recordRun(ref, message string, start time.Time, results []domain.SyncResult, syncErr error) {
	summary := domain.Summarize(results)
	record := state.RunRecord{
		Store:     s.remote.Identity(),
		Ref:       ref,
		Message:   strings.TrimSpace(message),
		StartTime: start,
		EndTime:   s.clock.Now(),
		Status:    state.StatusFor(summary, syncErr),
		Created:   summary.Created,
		Updated:   summary.Updated,
		Deleted:   summary.Deleted,
		Failed:    summary.Failed,
	}
	if syncErr != nil {
		record.Error = syncErr.Error()
	}

	if s.state == nil {
		logger.Get().Warn("Run not recorded, service closed", "ref", ref)
		return
	}
	if _, err := s.state.SaveRun(record); err != nil {
		// The push already happened; losing the record is not fatal
		logger.Get().Warn("Failed to record sync run", "ref", ref, "error", err)
	}
}

// GetFileDiff returns both sides of one path. Content is compared by blob
// hash, so line ending and trailing newline differences count.
func (s *SyncService) GetFileDiff(ctx context.Context, ref, path string) (*domain.FileDiff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = s.resolveRef(ref)
	p, err := domain.NormalizePath(path)
	if err != nil {
		return nil, err
	}

	diff := &domain.FileDiff{Path: p}

	localBytes, err := s.engine.ReadLocal(ctx, p)
	switch {
	case err == nil:
		diff.Local = localBytes
		diff.LocalExists = true
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("read local %s: %w", p, err)
	}

	remoteBytes, err := s.remote.FetchBlob(ctx, ref, p)
	switch {
	case err == nil:
		diff.Remote = remoteBytes
		diff.RemoteExists = true
		diff.RemoteHash = checksum.Sum(remoteBytes)
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, fmt.Errorf("fetch remote %s: %w", p, err)
	}

	switch {
	case !diff.LocalExists && !diff.RemoteExists:
		return nil, fmt.Errorf("%w: %s exists neither locally nor on %s", domain.ErrNotFound, p, ref)
	case !diff.RemoteExists:
		diff.Status = domain.StatusNew
	case !diff.LocalExists:
		diff.Status = domain.StatusDeleted
	case checksum.Equal(checksum.Sum(diff.Local), diff.RemoteHash):
		diff.Status = domain.StatusUnchanged
	default:
		diff.Status = domain.StatusModified
	}

	return diff, nil
}

// GetHistory returns the commits that touched path on ref, newest first
func (s *SyncService) GetHistory(ctx context.Context, ref, path string) ([]domain.CommitSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = s.resolveRef(ref)
	p, err := domain.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	return s.remote.ListCommitHistory(ctx, ref, p)
}

// CheckConnection verifies credentials and that the configured branch
// can be listed. The fresh manifest replaces any cached one.
func (s *SyncService) CheckConnection(ctx context.Context) (ConnectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := ConnectionInfo{
		Store: s.remote.Identity(),
		Ref:   s.config.Remote.Branch,
	}

	if checker, ok := s.remote.(AccessChecker); ok {
		repo, err := checker.CheckAccess(ctx)
		if err != nil {
			return info, err
		}
		info.FullName = repo.FullName
		info.DefaultBranch = repo.DefaultBranch
		info.Private = repo.Private
	}

	m, err := s.engine.Manifest(ctx, info.Ref, true)
	if err != nil {
		return info, err
	}
	info.Entries = m.Len()
	info.Truncated = m.Truncated

	logger.Get().Info("Connection verified", "store", info.Store, "ref", info.Ref, "entries", info.Entries)
	return info, nil
}

// LastRuns returns up to n recorded runs against ref, newest first
func (s *SyncService) LastRuns(ref string, n int) ([]state.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, ErrClosed
	}
	return s.state.History(s.remote.Identity(), s.resolveRef(ref), n)
}

// LastSuccess returns the latest fully successful run against ref, or nil
func (s *SyncService) LastSuccess(ref string) (*state.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, ErrClosed
	}
	return s.state.LastSuccess(s.remote.Identity(), s.resolveRef(ref))
}

// Close releases the run history database when the service opened it
func (s *SyncService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ownsState && s.state != nil {
		err := s.state.Close()
		s.state = nil
		return err
	}
	return nil
}

var _ io.Closer = (*SyncService)(nil)
