// Package github implements adapter.RemoteTree on top of the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v62/github"

	"github.com/Ning0612/Gitpush/internal/adapter"
	"github.com/Ning0612/Gitpush/internal/domain"
	"github.com/Ning0612/Gitpush/internal/logger"
)

const (
	// DefaultHistoryLimit caps ListCommitHistory results
	DefaultHistoryLimit = 30
	// maxPerPage is the largest page size the commits API accepts
	maxPerPage = 100
)

var _ adapter.RemoteTree = (*Adapter)(nil)

// Options configures the adapter
type Options struct {
	Owner  string
	Repo   string
	Token  string
	// BaseURL overrides the API endpoint (GitHub Enterprise, tests)
	BaseURL string
	// HistoryLimit caps commit history results (default 30)
	HistoryLimit int
	// HTTPClient replaces the token-authenticated client when set
	HTTPClient *http.Client
}

// Adapter implements adapter.RemoteTree for one GitHub repository
type Adapter struct {
	client       *gh.Client
	owner        string
	repo         string
	historyLimit int
}

// RepoInfo is the result of a successful access check
type RepoInfo struct {
	FullName      string
	DefaultBranch string
	Private       bool
}

// New creates a GitHub adapter. No request is made until the first call.
func New(ctx context.Context, opts Options) (*Adapter, error) {
	if strings.TrimSpace(opts.Owner) == "" {
		return nil, &domain.ConfigError{Field: "remote.owner", Reason: "must not be empty"}
	}
	if strings.TrimSpace(opts.Repo) == "" {
		return nil, &domain.ConfigError{Field: "remote.repo", Reason: "must not be empty"}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient(ctx, opts.Token)
	}
	client := gh.NewClient(httpClient)

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, &domain.ConfigError{Field: "remote.base_url", Reason: err.Error()}
		}
		client.BaseURL = u
	}

	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	return &Adapter{
		client:       client,
		owner:        opts.Owner,
		repo:         opts.Repo,
		historyLimit: limit,
	}, nil
}

// Identity implements adapter.RemoteTree
func (a *Adapter) Identity() string {
	return fmt.Sprintf("%s/%s@%s", a.owner, a.repo, a.client.BaseURL.Host)
}

// FetchManifest lists every blob reachable from ref in one recursive tree call
func (a *Adapter) FetchManifest(ctx context.Context, ref string) (*domain.Manifest, error) {
	tree, _, err := a.client.Git.GetTree(ctx, a.owner, a.repo, ref, true)
	if err != nil {
		return nil, mapError("tree", ref, err, false)
	}

	manifest := domain.NewManifest(ref)
	manifest.Truncated = tree.GetTruncated()

	for _, entry := range tree.Entries {
		var kind domain.RemoteKind
		switch entry.GetType() {
		case "blob":
			kind = domain.KindBlob
		case "commit":
			kind = domain.KindSubmodule
		default:
			continue
		}

		manifest.Entries[entry.GetPath()] = domain.RemoteEntry{
			Path: entry.GetPath(),
			Hash: strings.ToLower(entry.GetSHA()),
			Kind: kind,
		}
	}

	if manifest.Truncated {
		logger.Get().Warn("Remote tree listing truncated, diff may report false new files",
			"repo", a.owner+"/"+a.repo,
			"ref", ref,
			"entries", manifest.Len())
	}

	return manifest, nil
}

// FetchBlob returns the raw content of path at ref.
// Files above 1 MiB come back from the contents API without inline content
// and are fetched through the git blobs API instead.
func (a *Adapter) FetchBlob(ctx context.Context, ref, path string) ([]byte, error) {
	file, dir, _, err := a.client.Repositories.GetContents(ctx, a.owner, a.repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return nil, mapError("get", path, err, false)
	}
	if file == nil || dir != nil {
		return nil, &domain.RemoteError{Op: "get", Path: path, Kind: domain.ErrNotFound, Detail: "path is a directory"}
	}

	if file.GetEncoding() == "none" || (file.Content == nil && file.GetSize() > 0) {
		data, _, err := a.client.Git.GetBlobRaw(ctx, a.owner, a.repo, file.GetSHA())
		if err != nil {
			return nil, mapError("get blob", path, err, false)
		}
		return data, nil
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, &domain.RemoteError{Op: "get", Path: path, Kind: domain.ErrRemote, Detail: err.Error()}
	}
	return []byte(content), nil
}

// PutBlob creates the file when ExpectedHash is empty, otherwise updates it
// only if its current blob hash still equals ExpectedHash.
func (a *Adapter) PutBlob(ctx context.Context, req adapter.PutRequest) (domain.RemoteEntry, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(req.Message),
		Content: req.Content,
		Branch:  gh.String(req.Ref),
	}

	var (
		resp *gh.RepositoryContentResponse
		err  error
	)
	if req.IsCreate() {
		resp, _, err = a.client.Repositories.CreateFile(ctx, a.owner, a.repo, req.Path, opts)
	} else {
		opts.SHA = gh.String(req.ExpectedHash)
		resp, _, err = a.client.Repositories.UpdateFile(ctx, a.owner, a.repo, req.Path, opts)
	}
	if err != nil {
		return domain.RemoteEntry{}, mapError("put", req.Path, err, req.IsCreate())
	}

	return domain.RemoteEntry{
		Path: req.Path,
		Hash: strings.ToLower(resp.GetContent().GetSHA()),
		Kind: domain.KindBlob,
	}, nil
}

// DeleteBlob removes the file if its current blob hash equals ExpectedHash
func (a *Adapter) DeleteBlob(ctx context.Context, req adapter.DeleteRequest) error {
	if req.ExpectedHash == "" {
		return &domain.RemoteError{Op: "delete", Path: req.Path, Kind: domain.ErrValidation, Detail: "expected hash is required"}
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.String(req.Message),
		SHA:     gh.String(req.ExpectedHash),
		Branch:  gh.String(req.Ref),
	}
	if _, _, err := a.client.Repositories.DeleteFile(ctx, a.owner, a.repo, req.Path, opts); err != nil {
		return mapError("delete", req.Path, err, false)
	}
	return nil
}

// ListCommitHistory pages through commits touching path, newest first
func (a *Adapter) ListCommitHistory(ctx context.Context, ref, path string) ([]domain.CommitSummary, error) {
	perPage := a.historyLimit
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	opts := &gh.CommitsListOptions{
		SHA:         ref,
		Path:        path,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	result := make([]domain.CommitSummary, 0, perPage)
	for {
		commits, resp, err := a.client.Repositories.ListCommits(ctx, a.owner, a.repo, opts)
		if err != nil {
			return nil, mapError("history", path, err, false)
		}

		for _, c := range commits {
			if len(result) >= a.historyLimit {
				return result, nil
			}
			result = append(result, commitSummary(c))
		}

		if resp.NextPage == 0 || len(result) >= a.historyLimit {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// CheckAccess verifies that the credentials can see the repository
func (a *Adapter) CheckAccess(ctx context.Context) (RepoInfo, error) {
	repo, _, err := a.client.Repositories.Get(ctx, a.owner, a.repo)
	if err != nil {
		return RepoInfo{}, mapError("check", a.owner+"/"+a.repo, err, false)
	}

	return RepoInfo{
		FullName:      repo.GetFullName(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}, nil
}

func commitSummary(c *gh.RepositoryCommit) domain.CommitSummary {
	commit := c.GetCommit()
	author := commit.GetAuthor().GetName()
	if author == "" {
		author = c.GetAuthor().GetLogin()
	}

	return domain.CommitSummary{
		SHA:     c.GetSHA(),
		Message: commit.GetMessage(),
		Author:  author,
		Date:    commit.GetAuthor().GetDate().Time,
		URL:     c.GetHTMLURL(),
	}
}

// mapError converts go-github errors to *domain.RemoteError.
// create marks a create-only put, where 422 means the file already exists.
func mapError(op, path string, err error, create bool) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	remoteErr := &domain.RemoteError{Op: op, Path: path, Detail: err.Error()}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	var apiErr *gh.ErrorResponse

	switch {
	case errors.As(err, &rateErr):
		remoteErr.Kind = domain.ErrRateLimited
		remoteErr.Detail = rateErr.Message
		if rateErr.Response != nil {
			remoteErr.StatusCode = rateErr.Response.StatusCode
		}
	case errors.As(err, &abuseErr):
		remoteErr.Kind = domain.ErrRateLimited
		remoteErr.Detail = abuseErr.Message
		if abuseErr.Response != nil {
			remoteErr.StatusCode = abuseErr.Response.StatusCode
		}
	case errors.As(err, &apiErr):
		remoteErr.Detail = apiErr.Message
		if apiErr.Response != nil {
			remoteErr.StatusCode = apiErr.Response.StatusCode
		}
		remoteErr.Kind = kindForStatus(remoteErr.StatusCode, create)
	default:
		remoteErr.Kind = domain.ErrNetwork
	}

	return remoteErr
}

func kindForStatus(status int, create bool) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrPermissionDenied
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusUnprocessableEntity:
		if create {
			return domain.ErrConflict
		}
		return domain.ErrValidation
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	default:
		return domain.ErrRemote
	}
}
