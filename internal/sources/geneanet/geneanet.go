// Package geneanet reads person pages of the Geneanet family tree site.
package geneanet

import (
	"bytes"
	"context"

	"github.com/agentstation/geneasync/internal/transport"
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/sources"
)

var _ sources.Source = (*Source)(nil)

// Source fetches and parses person pages.
type Source struct {
	client  *transport.Client
	baseURL string
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at another site root, such as a mirror or
// a test server.
func WithBaseURL(url string) Option {
	return func(s *Source) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithClient replaces the transport client.
func WithClient(c *transport.Client) Option {
	return func(s *Source) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a source reading from the public site.
func New(opts ...Option) *Source {
	s := &Source{
		client:  transport.New(&transport.NoAuth{}),
		baseURL: constants.DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID implements sources.Source.
func (s *Source) ID() sources.ID {
	return sources.GeneanetID
}

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context, ref string) (*genealogy.ExternalPerson, error) {
	if ref == "" {
		return nil, errors.NewValidationError("reference", ref, "empty page reference")
	}
	url, err := transport.ResolveURL(s.baseURL, ref)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.Debug().Str("url", url).Msg("Fetching page")

	body, err := s.client.Page(ctx, ref, url)
	if err != nil {
		return nil, err
	}
	p, err := Parse(ref, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	logger.Trace().
		Str("firstname", p.FirstName).
		Str("lastname", p.LastName).
		Str("sex", p.Sex.String()).
		Str("birth", p.Birth.Date).
		Str("death", p.Death.Date).
		Int("unions", len(p.Unions)).
		Int("parents", len(p.ParentRefs)).
		Msg("Parsed page")
	return p, nil
}
