package transport

import (
	"net/http"
)

// Authenticator applies credentials to outgoing page requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {}

// CookieAuth replays a browser session cookie, which gives access to trees
// restricted to logged-in members.
type CookieAuth struct {
	Cookie string
}

// Apply implements the Authenticator interface for CookieAuth.
func (a *CookieAuth) Apply(req *http.Request) {
	if a.Cookie != "" {
		req.Header.Set("Cookie", a.Cookie)
	}
}

// HeaderAuth sets an arbitrary header, for mirrors behind an API gateway.
type HeaderAuth struct {
	Header string
	Value  string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) {
	if a.Header != "" && a.Value != "" {
		req.Header.Set(a.Header, a.Value)
	}
}

// AuthenticatorFor picks the authenticator matching the configured session
// cookie: CookieAuth when set, NoAuth otherwise.
func AuthenticatorFor(cookie string) Authenticator {
	if cookie == "" {
		return &NoAuth{}
	}
	return &CookieAuth{Cookie: cookie}
}
