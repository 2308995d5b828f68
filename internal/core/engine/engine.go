// Package engine computes change-sets between the local tree and a remote ref.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/core/cache"
	"github.com/Ning0612/Gitpush/internal/core/checksum"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/core/planner"
	"github.com/Ning0612/Gitpush/internal/core/scanner"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	// Root is the scanned directory, relative to the LocalFS root ("" = whole tree)
	Root       string
	Policy     *ignore.Policy
	Cache      *cache.ManifestCache
	Calculator checksum.Calculator
}

// Engine orchestrates manifest fetch, local scan, hashing and planning.
// The manifest cache is the only state it owns.
type Engine struct {
	remote  adapter.RemoteTree
	local   adapter.LocalFS
	root    string
	scanner scanner.Scanner
	planner planner.Planner
	calc    checksum.Calculator
	cache   *cache.ManifestCache
}

// New creates an engine over the given stores
func New(remote adapter.RemoteTree, local adapter.LocalFS, opts Options) (*Engine, error) {
	if remote == nil || local == nil {
		return nil, errors.New("engine requires a remote and a local store")
	}

	root := ""
	if opts.Root != "" && opts.Root != "." {
		clean, err := domain.NormalizePath(opts.Root)
		if err != nil {
			return nil, &domain.ConfigError{Field: "local.root", Reason: err.Error()}
		}
		root = clean
	}

	policy := opts.Policy
	if policy == nil {
		policy = ignore.Default()
	}

	manifests := opts.Cache
	if manifests == nil {
		var err error
		manifests, err = cache.New(cache.Options{})
		if err != nil {
			return nil, err
		}
	}

	calc := opts.Calculator
	if calc == nil {
		calc = checksum.NewDefaultCalculator()
	}

	return &Engine{
		remote:  remote,
		local:   local,
		root:    root,
		scanner: scanner.NewDefaultScanner(local, policy),
		planner: planner.NewDefaultPlanner(policy),
		calc:    calc,
		cache:   manifests,
	}, nil
}

// Root returns the scanned directory relative to the local store
func (e *Engine) Root() string {
	return e.root
}

func (e *Engine) key(ref string) cache.Key {
	return cache.Key{Store: e.remote.Identity(), Ref: ref}
}

// Manifest returns the remote manifest for ref, from cache unless force is set
func (e *Engine) Manifest(ctx context.Context, ref string, force bool) (*domain.Manifest, error) {
	key := e.key(ref)
	if !force {
		if m, ok := e.cache.Get(key); ok {
			logger.Get().Debug("Manifest cache hit", "ref", ref, "entries", m.Len())
			return m, nil
		}
	}

	m, err := e.remote.FetchManifest(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest for %s: %w", ref, err)
	}
	e.cache.Put(key, m)

	logger.Get().Debug("Manifest fetched", "ref", ref, "entries", m.Len(), "truncated", m.Truncated)
	return m, nil
}

// Diff computes the change-set between the local tree and ref.
// Any failure to fetch the manifest or to list the root aborts the diff;
// individual unreadable files are skipped.
func (e *Engine) Diff(ctx context.Context, ref string, force bool) (*domain.ChangeSet, error) {
	manifest, err := e.Manifest(ctx, ref, force)
	if err != nil {
		return nil, err
	}

	entries, err := e.scanner.Scan(ctx, e.root)
	if err != nil {
		return nil, err
	}

	files := make([]planner.LocalFile, 0, len(entries))
	for _, entry := range entries {
		if entry.Opaque {
			files = append(files, planner.LocalFile{Path: entry.Path, Opaque: true})
			continue
		}
		hash, err := e.hashFile(ctx, entry.Path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Get().Warn("Skipping unreadable file",
				"path", entry.Path,
				"error", err)
			files = append(files, planner.LocalFile{Path: entry.Path, Unreadable: true})
			continue
		}
		files = append(files, planner.LocalFile{Path: entry.Path, Hash: hash})
	}

	cs := e.planner.Plan(files, manifest)
	cs.Ref = ref

	logger.Get().Info("Diff complete",
		"ref", ref,
		"new", cs.Count(domain.StatusNew),
		"modified", cs.Count(domain.StatusModified),
		"deleted", cs.Count(domain.StatusDeleted),
		"unchanged", cs.Unchanged,
		"skipped", len(cs.Skipped))

	return cs, nil
}

// ReadLocal returns the bytes of a file relative to the scanned root
func (e *Engine) ReadLocal(ctx context.Context, path string) ([]byte, error) {
	return e.local.ReadFile(ctx, domain.JoinPath(e.root, path))
}

// Invalidate drops the cached manifest for ref
func (e *Engine) Invalidate(ref string) {
	e.cache.Invalidate(e.key(ref))
}

// InvalidateAll drops every cached manifest
func (e *Engine) InvalidateAll() {
	e.cache.InvalidateAll()
}

func (e *Engine) hashFile(ctx context.Context, path string) (string, error) {
	r, size, err := e.local.Open(ctx, domain.JoinPath(e.root, path))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return e.calc.Calculate(ctx, r, size)
}
