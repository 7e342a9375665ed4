package geneasync

import (
	"net/http"
	"time"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/sources"
	"github.com/agentstation/geneasync/pkg/store"
)

// options holds the client configuration.
type options struct {
	// local store, either given or opened from databasePath
	store        store.Store
	databasePath string

	// external source, either given, replayed from a fixture file, or the
	// page source at baseURL
	source      sources.Source
	fixturePath string
	baseURL     string
	cookie      string
	userAgent   string
	httpClient  *http.Client

	// politeness and retries, applied to every source
	minDelay time.Duration
	maxDelay time.Duration
	retry    sources.RetryPolicy

	force      bool
	provenance bool
}

// Option is a function that configures a Client instance.
type Option func(*options) error

func defaults() *options {
	return &options{
		baseURL:    constants.DefaultBaseURL,
		userAgent:  constants.UserAgent,
		minDelay:   constants.DefaultMinDelay,
		maxDelay:   constants.DefaultMaxDelay,
		retry:      sources.DefaultRetryPolicy(),
		provenance: true,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.maxDelay < o.minDelay {
		return nil, errors.NewValidationError("max_delay", o.maxDelay, "must not be lower than the minimum delay")
	}
	return o, nil
}

// WithStore uses an already opened local store. The client closes it.
func WithStore(s store.Store) Option {
	return func(o *options) error {
		if s == nil {
			return &errors.ValidationError{Field: "store", Message: "cannot be nil"}
		}
		o.store = s
		return nil
	}
}

// WithDatabase opens the local store at path. A .db, .sqlite or .sqlite3
// file is a SQLite database; any other path is a YAML snapshot.
func WithDatabase(path string) Option {
	return func(o *options) error {
		if path == "" {
			return &errors.ValidationError{Field: "database", Message: "cannot be empty"}
		}
		o.databasePath = path
		return nil
	}
}

// WithSource uses a custom external source.
func WithSource(src sources.Source) Option {
	return func(o *options) error {
		if src == nil {
			return &errors.ValidationError{Field: "source", Message: "cannot be nil"}
		}
		o.source = src
		return nil
	}
}

// WithReplay serves external persons from a YAML fixture file instead of the network.
func WithReplay(path string) Option {
	return func(o *options) error {
		o.fixturePath = path
		return nil
	}
}

// WithBaseURL sets the root external references are resolved against.
func WithBaseURL(url string) Option {
	return func(o *options) error {
		if url == "" {
			return &errors.ValidationError{Field: "base_url", Message: "cannot be empty"}
		}
		o.baseURL = url
		return nil
	}
}

// WithSessionCookie authenticates page requests with a session cookie.
func WithSessionCookie(cookie string) Option {
	return func(o *options) error {
		o.cookie = cookie
		return nil
	}
}

// WithUserAgent overrides the User-Agent sent with page requests.
func WithUserAgent(ua string) Option {
	return func(o *options) error {
		o.userAgent = ua
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for page requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		o.httpClient = hc
		return nil
	}
}

// WithDelay sets the bounds of the randomized delay before every fetch.
func WithDelay(minDelay, maxDelay time.Duration) Option {
	return func(o *options) error {
		if minDelay < 0 || maxDelay < 0 {
			return errors.NewValidationError("delay", minDelay, "must not be negative")
		}
		o.minDelay, o.maxDelay = minDelay, maxDelay
		return nil
	}
}

// WithRetryPolicy sets how transient fetch failures are retried.
func WithRetryPolicy(p sources.RetryPolicy) Option {
	return func(o *options) error {
		o.retry = p
		return nil
	}
}

// WithForce makes external values win and disables the identity guard.
func WithForce(force bool) Option {
	return func(o *options) error {
		o.force = force
		return nil
	}
}

// WithProvenance enables field-level provenance tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}
