// Package reconciler merges one external person or union at a time into the
// local store.
//
// Each call fetches the external side, binds it to a local entity (given
// identifier, provenance link, identity matcher, or a new entity), applies
// the field merge policy field by field and persists the result inside a
// single store transaction.
package reconciler

import (
	"context"

	"github.com/agentstation/geneasync/internal/matcher"
	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/provenance"
	"github.com/agentstation/geneasync/pkg/sources"
	"github.com/agentstation/geneasync/pkg/store"
)

// Reconciler merges external records into the local store.
type Reconciler interface {
	// Person reconciles the external person ref with the local person
	// localID. An empty or unknown localID falls back to the provenance
	// link, then to the identity matcher, then to a new person.
	Person(ctx context.Context, localID, ref string) (*genealogy.PersonRecord, error)

	// Relative reconciles the external person ref with one of the local
	// candidates, typically the recorded parents of an already bound child.
	// A candidate is kept only when its sex can match the external one, and
	// one whose names agree is preferred. Without a usable candidate it binds
	// like Person with no local identifier.
	Relative(ctx context.Context, ref string, candidates []string) (*genealogy.PersonRecord, error)

	// Family binds the union of father and mother, either of which may be nil.
	Family(ctx context.Context, father, mother *genealogy.PersonRecord) (*genealogy.FamilyRecord, error)

	// AddChild links child to the union. It is a no-op when already linked.
	AddChild(ctx context.Context, family *genealogy.FamilyRecord, child *genealogy.PersonRecord) error

	// Force reports whether the reconciler runs in force mode.
	Force() bool

	// Provenance returns the tracker fed by every merge decision.
	Provenance() provenance.Tracker

	// Stats returns the counters accumulated so far.
	Stats() Stats
}

// Stats counts what a reconciler did.
type Stats struct {
	PeopleCreated   int
	PeopleUpdated   int
	FamiliesCreated int
	FamiliesUpdated int
	ChildrenLinked  int
	Conflicts       int
	FetchFailures   int
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	store      store.Store
	source     sources.Source
	policy     *authority.Policy
	matcher    matcher.Matcher
	provenance provenance.Tracker
	stats      Stats
}

// New creates a Reconciler writing into st with data fetched from src.
func New(st store.Store, src sources.Source, opts ...Option) (Reconciler, error) {
	if st == nil {
		return nil, &errors.ValidationError{Field: "store", Message: "cannot be nil"}
	}
	if src == nil {
		return nil, &errors.ValidationError{Field: "source", Message: "cannot be nil"}
	}

	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	policy := options.policy
	if policy == nil {
		policy = authority.New(options.force)
	}
	tracker := options.tracker
	if tracker == nil {
		tracker = provenance.NewTracker(options.tracking)
	}

	return &reconciler{
		store:      st,
		source:     src,
		policy:     policy,
		matcher:    options.matcher,
		provenance: tracker,
	}, nil
}

func (r *reconciler) Force() bool {
	return r.policy.Force()
}

func (r *reconciler) Provenance() provenance.Tracker {
	return r.provenance
}

func (r *reconciler) Stats() Stats {
	return r.stats
}

// record tracks the decisions that carried a value and warns about conflicts.
func (r *reconciler) record(ctx context.Context, resourceType provenance.ResourceType, id, ref string, decisions []authority.Decision) {
	logger := logging.FromContext(ctx)
	for _, d := range decisions {
		if d.Winner == authority.WinnerNone {
			continue
		}
		r.provenance.Track(resourceType, id, provenance.FromDecision(ref, d))
		if !d.Conflict {
			continue
		}
		r.stats.Conflicts++
		logger.Warn().
			Str("resource", string(resourceType)).
			Str("id", id).
			Str("field", d.Field).
			Str("local", d.Local).
			Str("external", d.External).
			Str("kept", d.Resolved).
			Msg("Conflicting values")
	}
}

// writeEvent stores an event's date and place. Places are shared by name, so
// an event only fills a place code that is still empty and never rewrites
// the code other events already read.
func writeEvent(tx store.Tx, e *genealogy.LifeEvent, ev genealogy.Event) error {
	e.Date = ev.Date
	if ev.Place != "" {
		pl, err := tx.GetOrCreatePlace(ev.Place)
		if err != nil {
			return err
		}
		if ev.PlaceCode != "" && pl.Code == "" {
			pl.Code = ev.PlaceCode
			if err := tx.CommitPlace(pl); err != nil {
				return err
			}
		}
		e.PlaceID = pl.ID
	}
	return tx.CommitEvent(e)
}

// rollback discards an unfinished transaction. It is a no-op after Commit.
func rollback(ctx context.Context, tx store.Tx) {
	if err := tx.Rollback(); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("Rollback failed")
	}
}
