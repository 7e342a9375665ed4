// Package transport fetches HTML pages over HTTP with the headers and
// credentials external genealogy sites expect.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http      *http.Client
	auth      Authenticator
	userAgent string
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		auth:      auth,
		userAgent: constants.UserAgent,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithUserAgent replaces the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// DoWithContext performs an HTTP request with authentication applied and context support.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	return c.http.Do(req.WithContext(ctx))
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	return c.DoWithContext(ctx, req)
}

// Page fetches url and returns its body. Non-2xx responses and transport
// failures are reported as *errors.FetchError keyed by ref.
func (c *Client) Page(ctx context.Context, ref, url string) ([]byte, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.WrapFetch(ref, 0, fmt.Errorf("%w: %w", errors.ErrSourceUnavailable, err))
	}
	return ReadPage(ref, resp)
}
