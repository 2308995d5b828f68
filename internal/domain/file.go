package domain

import "time"

// FileEntry is one file discovered by a local scan.
// Directories are traversed but never represented as entries.
type FileEntry struct {
	// Path is relative to the scan root, forward-slash separated
	Path string

	// Opaque entries were visited but could not be descended into or read:
	// devices, broken links, link cycles and unlistable directories.
	// The path and everything beneath it count as present.
	Opaque bool
}

// ItemKind classifies a directory listing item
type ItemKind int

const (
	ItemFile ItemKind = iota
	ItemDir
	// ItemOther covers broken links, sockets and devices
	ItemOther
)

// DirItem is one entry returned by a local directory listing
type DirItem struct {
	Name string
	Kind ItemKind

	// Target is set for a symlinked directory: the slash-separated
	// location it resolves to, used to detect link cycles
	Target string
}

// IsDir returns true if this is a directory
func (d DirItem) IsDir() bool {
	return d.Kind == ItemDir
}

// IsFile returns true if this is a regular file
func (d DirItem) IsFile() bool {
	return d.Kind == ItemFile
}

// RemoteKind is the object type of a manifest entry
type RemoteKind int

const (
	// KindBlob is a regular tracked file
	KindBlob RemoteKind = iota
	// KindSubmodule is a gitlink; it has a path and hash but no content
	KindSubmodule
)

func (k RemoteKind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindSubmodule:
		return "submodule"
	default:
		return "unknown"
	}
}

// RemoteEntry is one object known to the remote store at a ref
type RemoteEntry struct {
	Path string
	// Hash is the lowercase hex git object id
	Hash string
	Kind RemoteKind
}

// IsBlob returns true if the entry carries file content
func (r RemoteEntry) IsBlob() bool {
	return r.Kind == KindBlob
}

// Manifest is the flat path → entry listing of a ref
type Manifest struct {
	Ref     string
	Entries map[string]RemoteEntry

	// Truncated is set when the store reported an incomplete listing.
	// Diffs against a truncated manifest may report false New entries.
	Truncated bool
}

// NewManifest returns an empty manifest for ref
func NewManifest(ref string) *Manifest {
	return &Manifest{
		Ref:     ref,
		Entries: make(map[string]RemoteEntry),
	}
}

// Lookup returns the entry at path, if any
func (m *Manifest) Lookup(path string) (RemoteEntry, bool) {
	if m == nil {
		return RemoteEntry{}, false
	}
	e, ok := m.Entries[path]
	return e, ok
}

// Len returns the number of entries
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Entries)
}

// CommitSummary is one entry of a path's commit history
type CommitSummary struct {
	SHA     string
	Message string
	Author  string
	Date    time.Time
	URL     string
}

// FileDiff holds both sides of a single path for display
type FileDiff struct {
	Path         string
	Status       ChangeStatus
	Local        []byte
	Remote       []byte
	LocalExists  bool
	RemoteExists bool
	RemoteHash   string
}
