package reconciler

import (
	"context"

	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/dates"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/provenance"
	"github.com/agentstation/geneasync/pkg/store"
)

func (r *reconciler) Person(ctx context.Context, localID, ref string) (*genealogy.PersonRecord, error) {
	return r.reconcile(logging.WithOperation(ctx, "person"), ref, localID, nil)
}

func (r *reconciler) Relative(ctx context.Context, ref string, candidates []string) (*genealogy.PersonRecord, error) {
	return r.reconcile(logging.WithOperation(ctx, "relative"), ref, "", candidates)
}

// reconcile runs one person step. localID is an explicit binding, candidates
// are only hints checked against the fetched record.
func (r *reconciler) reconcile(ctx context.Context, ref, localID string, candidates []string) (*genealogy.PersonRecord, error) {
	if ref == "" {
		return nil, errors.NewValidationError("ref", ref, "external reference is required")
	}
	ctx = logging.WithReference(ctx, ref)

	fallback := localID
	if fallback == "" && len(candidates) == 1 {
		fallback = candidates[0]
	}
	external, err := r.fetch(ctx, fallback, ref)
	if err != nil {
		return nil, err
	}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	rec := &genealogy.PersonRecord{External: *external}
	p, err := r.bind(ctx, tx, localID, candidates, rec)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithPerson(ctx, rec.LocalID)
	logger := logging.FromContext(ctx)

	if err := r.guard(ctx, rec); err != nil {
		return nil, err
	}

	decisions := r.mergePerson(rec)
	if err := r.persistPerson(tx, p, rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.record(ctx, provenance.ResourceTypePerson, rec.LocalID, ref, decisions)
	if rec.Created {
		r.stats.PeopleCreated++
	} else {
		r.stats.PeopleUpdated++
	}

	logger.Debug().
		Str("name", rec.Name()).
		Bool("created", rec.Created).
		Msg("Person reconciled")
	return rec, nil
}

// fetch returns the external person. A failed fetch leaves the node without
// external data: the record can still bind a known local person, otherwise
// the error is returned.
func (r *reconciler) fetch(ctx context.Context, localID, ref string) (*genealogy.ExternalPerson, error) {
	external, err := r.source.Fetch(ctx, ref)
	if err == nil {
		if external.Ref == "" {
			external.Ref = ref
		}
		return external, nil
	}
	if errors.IsCanceled(err) || ctx.Err() != nil {
		return nil, err
	}

	r.stats.FetchFailures++
	logger := logging.FromContext(ctx)
	if localID == "" {
		logger.Warn().Err(err).Msg("Fetch failed, skipping person")
		return nil, err
	}
	logger.Warn().Err(err).Str("id", localID).Msg("Fetch failed, keeping local data")
	return &genealogy.ExternalPerson{Ref: ref}, nil
}

// bind locates the local person for rec and loads its facts.
func (r *reconciler) bind(ctx context.Context, tx store.Tx, localID string, candidates []string, rec *genealogy.PersonRecord) (*genealogy.Person, error) {
	logger := logging.FromContext(ctx)

	if localID != "" {
		p, err := tx.Person(localID)
		switch {
		case err == nil:
			return r.load(tx, p, rec)
		case !errors.IsNotFound(err):
			return nil, err
		}
		logger.Warn().Str("id", localID).Msg("Local person not found, matching instead")
	}

	p, err := linked(tx, rec.External.Ref)
	if err != nil {
		return nil, err
	}
	if p != nil {
		logger.Trace().Str("id", p.ID).Msg("Bound by provenance link")
		return r.load(tx, p, rec)
	}

	if p, err := choose(tx, candidates, &rec.External); err != nil || p != nil {
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("id", p.ID).Msg("Bound by relative hint")
		return r.load(tx, p, rec)
	}

	id, found, err := r.matcher.Match(tx, &rec.External)
	if err != nil {
		return nil, err
	}
	if found {
		p, err := tx.Person(id)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("id", id).Msg("Bound by identity match")
		return r.load(tx, p, rec)
	}

	p, err = tx.CreatePerson()
	if err != nil {
		return nil, err
	}
	rec.LocalID = p.ID
	rec.Local = genealogy.LocalFacts{ID: p.ID, Sex: genealogy.Unknown}
	rec.Created = true
	return p, nil
}

func (r *reconciler) load(tx store.Tx, p *genealogy.Person, rec *genealogy.PersonRecord) (*genealogy.Person, error) {
	facts, err := store.Facts(tx, p.ID)
	if err != nil {
		return nil, err
	}
	rec.LocalID = p.ID
	rec.Local = facts
	return p, nil
}

// linked returns the person already carrying ref as a provenance link.
func linked(tx store.Tx, ref string) (*genealogy.Person, error) {
	people, err := tx.People()
	if err != nil {
		return nil, err
	}
	for _, p := range people {
		if p.HasLink(ref) {
			return p, nil
		}
	}
	return nil, nil
}

// choose returns the first candidate whose sex can be the external one,
// preferring a candidate whose names do not disagree. Unknown candidates are
// skipped.
func choose(tx store.Tx, candidates []string, external *genealogy.ExternalPerson) (*genealogy.Person, error) {
	var fallback *genealogy.Person
	for _, id := range candidates {
		if id == "" {
			continue
		}
		p, err := tx.Person(id)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Sex.Known() && external.Sex.Known() && p.Sex != external.Sex {
			continue
		}
		if !disagree(p.FirstName, external.FirstName) && !disagree(p.LastName, external.LastName) {
			return p, nil
		}
		if fallback == nil {
			fallback = p
		}
	}
	return fallback, nil
}

// guard refuses to merge a bound local person whose name or life-event dates
// contradict the external record. Force mode only logs the mismatch.
func (r *reconciler) guard(ctx context.Context, rec *genealogy.PersonRecord) error {
	if rec.Created {
		return nil
	}
	local, external := rec.Local, rec.External

	var fields []string
	if disagree(local.FirstName, external.FirstName) {
		fields = append(fields, authority.FirstName)
	}
	if disagree(local.LastName, external.LastName) {
		fields = append(fields, authority.LastName)
	}
	if !dates.Compatible(local.Birth.Date, external.Birth.Date) {
		fields = append(fields, authority.BirthDate)
	}
	if !dates.Compatible(local.Death.Date, external.Death.Date) {
		fields = append(fields, authority.DeathDate)
	}
	if len(fields) == 0 {
		return nil
	}

	conflict := &errors.IdentityConflictError{
		Reference: external.Ref,
		LocalID:   rec.LocalID,
		Fields:    fields,
		Local: errors.Side{
			FirstName: local.FirstName,
			LastName:  local.LastName,
			Birth:     local.Birth.Date,
			Death:     local.Death.Date,
		},
		External: errors.Side{
			FirstName: external.FirstName,
			LastName:  external.LastName,
			Birth:     external.Birth.Date,
			Death:     external.Death.Date,
		},
	}
	if r.policy.Force() {
		logging.FromContext(ctx).Warn().Err(conflict).Msg("Identity mismatch ignored in force mode")
		return nil
	}
	return conflict
}

func disagree(local, external string) bool {
	return local != "" && external != "" && local != external
}

// persistPerson writes the resolved fields, life events and provenance link.
func (r *reconciler) persistPerson(tx store.Tx, p *genealogy.Person, rec *genealogy.PersonRecord) error {
	p.FirstName = rec.Resolved.FirstName
	p.LastName = rec.Resolved.LastName
	p.Sex = rec.Resolved.Sex

	lifeEvents := []struct {
		kind  genealogy.EventKind
		event genealogy.Event
	}{
		{genealogy.Birth, rec.Resolved.Birth},
		{genealogy.Death, rec.Resolved.Death},
	}
	for _, le := range lifeEvents {
		if le.event.Empty() {
			continue
		}
		e, err := tx.LifeEvent(p, le.kind)
		if err != nil {
			return err
		}
		if err := writeEvent(tx, e, le.event); err != nil {
			return err
		}
	}

	if ref := rec.External.Ref; ref != "" && !p.HasLink(ref) {
		p.Links = append(p.Links, ref)
	}
	return tx.CommitPerson(p)
}
