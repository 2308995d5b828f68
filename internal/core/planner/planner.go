package planner

import (
	"sort"
	"strings"

	"github.com/Ning0612/Gitpush/internal/core/diff"
	"github.com/Ning0612/Gitpush/internal/core/ignore"
	"github.com/Ning0612/Gitpush/internal/domain"
)

// LocalFile is one scanned file with its content hash
type LocalFile struct {
	Path string
	Hash string
	// Unreadable files were visited but could not be hashed.
	// They are excluded from the result and never reported as deleted.
	Unreadable bool
	// Opaque paths could not be descended into. Nothing at or below
	// them is reported as deleted.
	Opaque bool
}

// Planner joins the local file set with a remote manifest
type Planner interface {
	Plan(local []LocalFile, manifest *domain.Manifest) *domain.ChangeSet
}

// DefaultPlanner uses a diff.Comparer for per-path classification
type DefaultPlanner struct {
	Differ diff.Comparer
	// Policy hides matching remote paths from deletion.
	// It must be the same policy the scanner used.
	Policy *ignore.Policy
}

// NewDefaultPlanner creates a new planner with default components
func NewDefaultPlanner(policy *ignore.Policy) *DefaultPlanner {
	return &DefaultPlanner{
		Differ: diff.NewDefaultComparer(),
		Policy: policy,
	}
}

// Plan implements the Planner interface. It is pure: no I/O, and the same
// inputs always give the same change-set.
func (p *DefaultPlanner) Plan(local []LocalFile, manifest *domain.Manifest) *domain.ChangeSet {
	cs := &domain.ChangeSet{
		Changes: make([]domain.ChangeEntry, 0),
	}
	if manifest != nil {
		cs.Ref = manifest.Ref
		cs.Truncated = manifest.Truncated
	}

	visited := make(map[string]struct{}, len(local))
	var opaque []string

	// Pass 1: every local file
	for _, f := range local {
		if _, dup := visited[f.Path]; dup {
			continue
		}
		visited[f.Path] = struct{}{}

		if f.Opaque {
			opaque = append(opaque, f.Path)
		}
		if f.Unreadable || f.Opaque {
			cs.Skipped = append(cs.Skipped, f.Path)
			continue
		}

		var remote *domain.RemoteEntry
		if e, ok := manifest.Lookup(f.Path); ok {
			remote = &e
		}

		switch p.Differ.Compare(f.Hash, remote) {
		case domain.StatusNew:
			if remote != nil && !remote.IsBlob() {
				cs.Changes = append(cs.Changes, domain.NewOverSubmoduleChange(f.Path))
				continue
			}
			cs.Changes = append(cs.Changes, domain.NewChange(f.Path))
		case domain.StatusModified:
			cs.Changes = append(cs.Changes, domain.ModifiedChange(f.Path, remote.Hash))
		case domain.StatusUnchanged:
			cs.Unchanged++
		}
	}

	// Pass 2: remote blobs nobody visited locally
	if manifest != nil {
		for path, entry := range manifest.Entries {
			if _, ok := visited[path]; ok {
				continue
			}
			if !entry.IsBlob() || p.Policy.Match(path, false) || under(path, opaque) {
				continue
			}
			cs.Changes = append(cs.Changes, domain.DeletedChange(path, entry.Hash))
		}
	}

	sort.Slice(cs.Changes, func(i, j int) bool {
		return cs.Changes[i].Path < cs.Changes[j].Path
	})
	sort.Strings(cs.Skipped)

	return cs
}

// under reports whether p is one of the prefixes or lies beneath one
func under(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
