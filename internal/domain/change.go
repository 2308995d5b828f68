package domain

import "fmt"

// ChangeStatus classifies a path after comparing local and remote state
type ChangeStatus int

const (
	// StatusNew means the path exists locally but not as a remote blob
	StatusNew ChangeStatus = iota + 1
	// StatusModified means both sides exist with different content
	StatusModified
	// StatusDeleted means the path exists remotely but not locally
	StatusDeleted
	// StatusUnchanged means both sides hash identically
	StatusUnchanged
)

func (s ChangeStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// IsValid checks if the status is a known value
func (s ChangeStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusModified, StatusDeleted, StatusUnchanged:
		return true
	}
	return false
}

// NeedsRemoteHash reports whether entries of this status carry the remote hash
func (s ChangeStatus) NeedsRemoteHash() bool {
	return s == StatusModified || s == StatusDeleted
}

// ChangeEntry is one row of a change-set.
// Build it through the constructors below; RemoteHash is set if and only if
// Status is Modified or Deleted.
type ChangeEntry struct {
	Path       string
	Status     ChangeStatus
	RemoteHash string

	// OverSubmodule marks a New entry whose path is a submodule on the remote
	OverSubmodule bool
}

// NewChange returns a New entry
func NewChange(path string) ChangeEntry {
	return ChangeEntry{Path: path, Status: StatusNew}
}

// NewOverSubmoduleChange returns a New entry for a local file that sits
// where the remote tree holds a submodule
func NewOverSubmoduleChange(path string) ChangeEntry {
	return ChangeEntry{Path: path, Status: StatusNew, OverSubmodule: true}
}

// ModifiedChange returns a Modified entry pinned to the remote hash
func ModifiedChange(path, remoteHash string) ChangeEntry {
	return ChangeEntry{Path: path, Status: StatusModified, RemoteHash: remoteHash}
}

// DeletedChange returns a Deleted entry pinned to the remote hash
func DeletedChange(path, remoteHash string) ChangeEntry {
	return ChangeEntry{Path: path, Status: StatusDeleted, RemoteHash: remoteHash}
}

// UnchangedChange returns an Unchanged entry
func UnchangedChange(path string) ChangeEntry {
	return ChangeEntry{Path: path, Status: StatusUnchanged}
}

// Validate checks the entry invariants
func (c ChangeEntry) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvariant)
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("%w: %s has unknown status %d", ErrInvariant, c.Path, int(c.Status))
	}
	if c.Status.NeedsRemoteHash() && c.RemoteHash == "" {
		return fmt.Errorf("%w: %s entry %s has no remote hash", ErrInvariant, c.Status, c.Path)
	}
	if !c.Status.NeedsRemoteHash() && c.RemoteHash != "" {
		return fmt.Errorf("%w: %s entry %s carries a remote hash", ErrInvariant, c.Status, c.Path)
	}
	if c.OverSubmodule && c.Status != StatusNew {
		return fmt.Errorf("%w: %s entry %s marked as over a submodule", ErrInvariant, c.Status, c.Path)
	}
	return nil
}

// ChangeSet is the result of one diff between the local tree and a ref
type ChangeSet struct {
	Ref string

	// Changes holds actionable entries only, sorted by path
	Changes []ChangeEntry

	// Unchanged counts paths whose hashes matched
	Unchanged int

	// Skipped lists local paths that could not be read and were left out
	Skipped []string

	// Truncated mirrors Manifest.Truncated
	Truncated bool
}

// Lookup returns the actionable entry for path, if any
func (cs *ChangeSet) Lookup(path string) (ChangeEntry, bool) {
	if cs == nil {
		return ChangeEntry{}, false
	}
	for _, c := range cs.Changes {
		if c.Path == path {
			return c, true
		}
	}
	return ChangeEntry{}, false
}

// Count returns the number of entries with the given status
func (cs *ChangeSet) Count(status ChangeStatus) int {
	if cs == nil {
		return 0
	}
	n := 0
	for _, c := range cs.Changes {
		if c.Status == status {
			n++
		}
	}
	return n
}

// Paths returns the paths of all actionable entries
func (cs *ChangeSet) Paths() []string {
	if cs == nil {
		return nil
	}
	paths := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		paths = append(paths, c.Path)
	}
	return paths
}

// SyncOutcome is the terminal state of one applied change
type SyncOutcome int

const (
	OutcomeCreated SyncOutcome = iota + 1
	OutcomeUpdated
	OutcomeDeleted
	OutcomeFailed
)

func (o SyncOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SyncResult is the outcome of applying one selected path
type SyncResult struct {
	Path    string
	Outcome SyncOutcome
	// Detail is human readable; the error message when Outcome is Failed
	Detail string
}

// Failed returns true if the change was not applied
func (r SyncResult) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// SyncSummary counts outcomes of one sync call
type SyncSummary struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Total returns the number of processed paths
func (s SyncSummary) Total() int {
	return s.Created + s.Updated + s.Deleted + s.Failed
}

// Succeeded returns the number of applied paths
func (s SyncSummary) Succeeded() int {
	return s.Created + s.Updated + s.Deleted
}

// Summarize counts outcomes
func Summarize(results []SyncResult) SyncSummary {
	var s SyncSummary
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCreated:
			s.Created++
		case OutcomeUpdated:
			s.Updated++
		case OutcomeDeleted:
			s.Deleted++
		case OutcomeFailed:
			s.Failed++
		}
	}
	return s
}
