// Package scanner enumerates the files of a local tree.
package scanner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

// Scanner walks a local tree and reports every non-ignored regular file
type Scanner interface {
	// Scan returns the files under root, relative to root.
	// Paths that were visited but could not be listed or read are
	// returned with Opaque set.
	// Returns domain.ErrScanRoot if root itself cannot be listed.
	Scan(ctx context.Context, root string) ([]domain.FileEntry, error)
}

// DefaultScanner walks with an explicit worklist so deep trees never grow the stack.
// Symlinked directories are followed unless they lead back into a directory
// already on the current path.
type DefaultScanner struct {
	fs     adapter.LocalFS
	policy *ignore.Policy
}

// NewDefaultScanner creates a scanner. A nil policy ignores nothing.
func NewDefaultScanner(fs adapter.LocalFS, policy *ignore.Policy) *DefaultScanner {
	return &DefaultScanner{fs: fs, policy: policy}
}

// pendingDir is one directory waiting to be listed
type pendingDir struct {
	// rel is relative to the scan root; "" is the root itself
	rel string
	// ancestry holds the resolved locations from the root down to this directory
	ancestry []string
}

// Scan implements the Scanner interface
func (s *DefaultScanner) Scan(ctx context.Context, root string) ([]domain.FileEntry, error) {
	items, err := s.fs.ListDir(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrScanRoot, root, err)
	}
	rootReal, err := s.fs.Resolve(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrScanRoot, root, err)
	}

	var files []domain.FileEntry
	pending := s.collect(pendingDir{ancestry: []string{rootReal}}, items, &files, nil)

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		items, err := s.fs.ListDir(ctx, domain.JoinPath(root, dir.rel))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Get().Warn("Skipping unreadable directory",
				"path", dir.rel,
				"error", err)
			files = append(files, domain.FileEntry{Path: dir.rel, Opaque: true})
			continue
		}
		pending = s.collect(dir, items, &files, pending)
	}

	return files, nil
}

// collect appends the files of one listing and returns the grown worklist
func (s *DefaultScanner) collect(parent pendingDir, items []domain.DirItem, files *[]domain.FileEntry, pending []pendingDir) []pendingDir {
	here := parent.ancestry[len(parent.ancestry)-1]

	for _, item := range items {
		rel := domain.JoinPath(parent.rel, item.Name)

		switch item.Kind {
		case domain.ItemDir:
			if s.policy.Match(rel, true) {
				continue
			}
			location := path.Join(here, item.Name)
			if item.Target != "" {
				if loops(item.Target, parent.ancestry) {
					logger.Get().Warn("Not following symlink cycle",
						"path", rel,
						"target", item.Target)
					*files = append(*files, domain.FileEntry{Path: rel, Opaque: true})
					continue
				}
				location = item.Target
			}
			ancestry := make([]string, len(parent.ancestry), len(parent.ancestry)+1)
			copy(ancestry, parent.ancestry)
			pending = append(pending, pendingDir{rel: rel, ancestry: append(ancestry, location)})
		case domain.ItemFile:
			if s.policy.Match(rel, false) {
				continue
			}
			*files = append(*files, domain.FileEntry{Path: rel})
		default:
			if s.policy.Match(rel, false) {
				continue
			}
			*files = append(*files, domain.FileEntry{Path: rel, Opaque: true})
		}
	}
	return pending
}

// loops reports whether target is one of the ancestry directories or
// contains one of them
func loops(target string, ancestry []string) bool {
	prefix := strings.TrimSuffix(target, "/") + "/"
	for _, dir := range ancestry {
		if dir == target || strings.HasPrefix(dir, prefix) {
			return true
		}
	}
	return false
}
