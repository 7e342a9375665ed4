package transport

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentstation/geneasync/pkg/errors"
)

// maxPageSize caps how much of a response body is read.
const maxPageSize = 8 << 20

// ResolveURL joins a page reference to the site's base URL. Absolute
// references are returned unchanged.
func ResolveURL(base, ref string) (string, error) {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", errors.NewValidationError("base_url", base, "not an absolute URL")
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	r, err := url.Parse(strings.TrimPrefix(ref, "/"))
	if err != nil {
		return "", errors.NewValidationError("reference", ref, err.Error())
	}
	return b.ResolveReference(r).String(), nil
}

// ReadPage reads and closes a response body, mapping error statuses.
func ReadPage(ref string, resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errors.WrapFetch(ref, resp.StatusCode, fmt.Errorf("%w: %w", errors.ErrSourceUnavailable, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewFetchError(ref, resp.StatusCode, fmt.Sprintf("unexpected status %s", resp.Status))
	}
	return body, nil
}
