package sources

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
)

// RetryPolicy bounds the retries of transient fetch failures.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsedTime of zero retries until the context is done.
	MaxElapsedTime time.Duration
	// MaxRetries caps the number of retries when positive.
	MaxRetries uint64
}

// DefaultRetryPolicy returns the policy used by the command line.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: constants.RetryBackoff,
		MaxInterval:     constants.MaxRetryBackoff,
		MaxElapsedTime:  constants.MaxRetryElapsed,
	}
}

// newBackOff returns a fresh backoff; implementations are stateful.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.MaxElapsedTime = p.MaxElapsedTime
	if p.MaxRetries > 0 {
		return backoff.WithMaxRetries(bo, p.MaxRetries)
	}
	return bo
}

// Do runs op until it succeeds, fails permanently, or the policy gives up.
// Only errors.IsRetryable failures are retried.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	logger := logging.FromContext(ctx)
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.IsRetryable(err) {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("Retrying fetch")
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(p.newBackOff(), ctx))
}

// WithRetry retries transient failures of every fetch.
func WithRetry(p RetryPolicy) Middleware {
	return func(next Source) Source {
		return fetchFunc{id: next.ID(), fn: func(ctx context.Context, ref string) (*genealogy.ExternalPerson, error) {
			var person *genealogy.ExternalPerson
			err := p.Do(ctx, func() error {
				var err error
				person, err = next.Fetch(ctx, ref)
				return err
			})
			if err != nil {
				return nil, err
			}
			return person, nil
		}}
	}
}
