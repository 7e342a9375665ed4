package reconciler

import (
	"github.com/agentstation/geneasync/internal/matcher"
	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/provenance"
)

// Options configures a reconciler.
type options struct {
	force    bool
	policy   *authority.Policy // overrides force when set
	matcher  matcher.Matcher
	tracker  provenance.Tracker
	tracking bool
}

func defaultOptions() *options {
	return &options{
		matcher:  matcher.New(),
		tracking: true,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithForce makes external values win and disables the identity guard.
func WithForce(force bool) Option {
	return func(r *options) error {
		r.force = force
		return nil
	}
}

// WithPolicy sets the field merge policy.
func WithPolicy(policy *authority.Policy) Option {
	return func(r *options) error {
		if policy == nil {
			return &errors.ValidationError{
				Field:   "policy",
				Message: "cannot be nil",
			}
		}
		r.policy = policy
		return nil
	}
}

// WithMatcher sets the identity matcher used for unbound persons.
func WithMatcher(m matcher.Matcher) Option {
	return func(r *options) error {
		if m == nil {
			return &errors.ValidationError{
				Field:   "matcher",
				Message: "cannot be nil",
			}
		}
		r.matcher = m
		return nil
	}
}

// WithProvenance enables field-level tracking.
func WithProvenance(enabled bool) Option {
	return func(r *options) error {
		r.tracking = enabled
		return nil
	}
}

// WithTracker records provenance into an existing tracker.
func WithTracker(tracker provenance.Tracker) Option {
	return func(r *options) error {
		if tracker == nil {
			return &errors.ValidationError{
				Field:   "tracker",
				Message: "cannot be nil",
			}
		}
		r.tracker = tracker
		return nil
	}
}
