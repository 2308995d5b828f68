package github

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds a single API request
const DefaultTimeout = 30 * time.Second

// NewHTTPClient returns an HTTP client that authenticates every request with
// the personal access token. An empty token yields an anonymous client, which
// only works for public repositories and read operations.
func NewHTTPClient(ctx context.Context, token string) *http.Client {
	base := &http.Client{Timeout: DefaultTimeout}
	if token == "" {
		return base
	}

	// oauth2 picks the base client up from the context
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = DefaultTimeout
	return client
}
