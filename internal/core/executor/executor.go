// Package executor applies a selected subset of a change-set to the remote store.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
	"github.com/Ning0612/Gitpush/internal/progress"
)

// Differ is the part of the diff engine the executor needs
type Differ interface {
	Diff(ctx context.Context, ref string, force bool) (*domain.ChangeSet, error)
	ReadLocal(ctx context.Context, path string) ([]byte, error)
	Invalidate(ref string)
}

// Executor applies selected changes
type Executor interface {
	// Sync re-diffs ref and applies the selected paths one at a time.
	// Per-file failures are reported in the results, never as an error.
	Sync(ctx context.Context, ref, message string, selected []string) ([]domain.SyncResult, error)
}

// DefaultExecutor applies changes strictly sequentially with no retries
type DefaultExecutor struct {
	differ   Differ
	remote   adapter.RemoteTree
	reporter progress.Reporter
}

// NewDefaultExecutor creates an executor. A nil reporter reports nothing.
func NewDefaultExecutor(differ Differ, remote adapter.RemoteTree, reporter progress.Reporter) *DefaultExecutor {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	return &DefaultExecutor{
		differ:   differ,
		remote:   remote,
		reporter: reporter,
	}
}

// Sync implements the Executor interface
func (e *DefaultExecutor) Sync(ctx context.Context, ref, message string, selected []string) ([]domain.SyncResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &domain.ConfigError{Field: "message", Reason: "commit message must not be empty"}
	}
	if len(selected) == 0 {
		return []domain.SyncResult{}, nil
	}

	// Whatever happens below, the remote may have changed
	defer e.differ.Invalidate(ref)

	// Never trust a caller-held change-set
	cs, err := e.differ.Diff(ctx, ref, true)
	if err != nil {
		return nil, fmt.Errorf("refresh change-set: %w", err)
	}

	items := normalizeSelection(selected)
	results := make([]domain.SyncResult, 0, len(items))
	e.reporter.SetTotal(len(items))

	for _, it := range items {
		entry, ok := cs.Lookup(it.path)
		e.reporter.Start(it.path, entry.Status)

		var result domain.SyncResult
		switch {
		case it.err != nil:
			result = failed(it.path, it.err.Error())
		case !ok:
			result = failed(it.path, domain.ErrStaleSelection.Error())
		default:
			result = e.apply(ctx, ref, message, entry)
		}

		e.reporter.Finish(result)
		results = append(results, result)
	}

	summary := domain.Summarize(results)
	logger.Get().Info("Sync complete",
		"ref", ref,
		"created", summary.Created,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"failed", summary.Failed)

	return results, nil
}

// apply performs one remote write; it never returns an error
func (e *DefaultExecutor) apply(ctx context.Context, ref, message string, entry domain.ChangeEntry) domain.SyncResult {
	if err := entry.Validate(); err != nil {
		logger.Get().Error("Refusing to apply malformed change",
			"path", entry.Path,
			"error", err)
		return failed(entry.Path, err.Error())
	}

	commitMsg := fmt.Sprintf("%s (%s %s)", message, verb(entry.Status), entry.Path)

	switch entry.Status {
	case domain.StatusNew, domain.StatusModified:
		if entry.OverSubmodule {
			return failed(entry.Path, domain.ErrSubmoduleShadowed.Error())
		}
		content, err := e.differ.ReadLocal(ctx, entry.Path)
		if err != nil {
			return failed(entry.Path, fmt.Sprintf("read local file: %v", err))
		}

		_, err = e.remote.PutBlob(ctx, adapter.PutRequest{
			Ref:          ref,
			Path:         entry.Path,
			Content:      content,
			Message:      commitMsg,
			ExpectedHash: entry.RemoteHash,
		})
		if err != nil {
			return failed(entry.Path, failureDetail(entry, err))
		}

		if entry.Status == domain.StatusNew {
			return domain.SyncResult{Path: entry.Path, Outcome: domain.OutcomeCreated}
		}
		return domain.SyncResult{Path: entry.Path, Outcome: domain.OutcomeUpdated}

	case domain.StatusDeleted:
		err := e.remote.DeleteBlob(ctx, adapter.DeleteRequest{
			Ref:          ref,
			Path:         entry.Path,
			Message:      commitMsg,
			ExpectedHash: entry.RemoteHash,
		})
		if err != nil {
			return failed(entry.Path, failureDetail(entry, err))
		}
		return domain.SyncResult{Path: entry.Path, Outcome: domain.OutcomeDeleted}

	default:
		return failed(entry.Path, fmt.Sprintf("nothing to apply for %s entry", entry.Status))
	}
}

type selection struct {
	path string
	err  error
}

// normalizeSelection cleans and de-duplicates paths, keeping caller order.
// A path that cannot be normalized keeps its raw form and carries the error.
func normalizeSelection(selected []string) []selection {
	seen := make(map[string]struct{}, len(selected))
	items := make([]selection, 0, len(selected))

	for _, raw := range selected {
		p, err := domain.NormalizePath(raw)
		if err != nil {
			items = append(items, selection{path: raw, err: err})
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		items = append(items, selection{path: p})
	}
	return items
}

// verb is the word used in per-file commit messages
func verb(s domain.ChangeStatus) string {
	if s == domain.StatusDeleted {
		return "delete"
	}
	return s.String()
}

func failureDetail(entry domain.ChangeEntry, err error) string {
	if errors.Is(err, domain.ErrConflict) {
		if entry.RemoteHash == "" {
			return fmt.Sprintf("file was created remotely after the last refresh, refresh and review before pushing (%v)", err)
		}
		return fmt.Sprintf("remote file no longer matches %s, refresh and review before pushing (%v)", entry.RemoteHash, err)
	}
	return err.Error()
}

func failed(path, detail string) domain.SyncResult {
	return domain.SyncResult{Path: path, Outcome: domain.OutcomeFailed, Detail: detail}
}
