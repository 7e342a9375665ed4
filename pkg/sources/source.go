// Package sources defines the contract of external genealogy sources and the
// plumbing shared by every implementation: politeness throttling, retries of
// transient failures, and an offline fixture source.
//
// Example usage:
//
//	src := sources.Chain(geneanet.New(), sources.WithThrottle(throttle), sources.WithRetry(retry))
//	person, err := src.Fetch(ctx, "jdupont?lang=fr&p=jean&n=dupont")
//	if err != nil {
//	    log.Fatal(err)
//	}
package sources

import (
	"context"

	"github.com/agentstation/geneasync/pkg/genealogy"
)

// ID represents the identifier of a data source.
type ID string

// String returns the string representation of a source name.
func (id ID) String() string {
	return string(id)
}

// Known source identifiers.
const (
	GeneanetID ID = "geneanet"
	FixtureID  ID = "fixture"
)

// Source fetches one external person page.
type Source interface {
	// ID returns the identifier of this source
	ID() ID

	// Fetch retrieves and parses the person page at ref. Missing
	// information is reported as empty fields, not as an error.
	Fetch(ctx context.Context, ref string) (*genealogy.ExternalPerson, error)
}

// Middleware decorates a source.
type Middleware func(Source) Source

// Chain applies middlewares so that the first one listed runs outermost.
func Chain(src Source, middlewares ...Middleware) Source {
	for i := len(middlewares) - 1; i >= 0; i-- {
		src = middlewares[i](src)
	}
	return src
}

// fetchFunc adapts a function to Source for middlewares.
type fetchFunc struct {
	id ID
	fn func(ctx context.Context, ref string) (*genealogy.ExternalPerson, error)
}

func (f fetchFunc) ID() ID { return f.id }

func (f fetchFunc) Fetch(ctx context.Context, ref string) (*genealogy.ExternalPerson, error) {
	return f.fn(ctx, ref)
}
