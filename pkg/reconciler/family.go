package reconciler

import (
	"context"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/provenance"
	"github.com/agentstation/geneasync/pkg/store"
)

func (r *reconciler) Family(ctx context.Context, father, mother *genealogy.PersonRecord) (*genealogy.FamilyRecord, error) {
	fatherID, motherID := localID(father), localID(mother)
	if fatherID == "" && motherID == "" {
		return nil, errors.NewValidationError("parents", nil, "a union needs at least one bound parent")
	}
	ctx = logging.WithOperation(ctx, "family")

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx)

	f, found, err := tx.FindFamily(fatherID, motherID)
	if err != nil {
		return nil, err
	}
	if found && f.FatherID != fatherID {
		// Stored the other way round: keep the stored slots.
		father, mother = mother, father
		fatherID, motherID = motherID, fatherID
	}
	if !found {
		if f, err = tx.CreateFamily(); err != nil {
			return nil, err
		}
		f.FatherID, f.MotherID = fatherID, motherID
	}
	for _, id := range []string{fatherID, motherID} {
		if err := joinFamily(tx, id, f.ID); err != nil {
			return nil, err
		}
	}

	ctx = logging.WithField(ctx, "family_id", f.ID)
	rec := &genealogy.FamilyRecord{
		LocalID:   f.ID,
		FatherRef: father.Ref(),
		MotherRef: mother.Ref(),
		FatherID:  fatherID,
		MotherID:  motherID,
		Created:   !found,
	}

	union, ok := unionOf(father, mother)
	if ok {
		rec.ChildRefs = append([]string(nil), union.ChildRefs...)
	}

	local, err := store.MarriageFacts(tx, f)
	if err != nil {
		return nil, err
	}
	marriage, decisions := r.mergeEvent("marriage", local, union.Marriage)
	rec.Marriage = marriage
	if !marriage.Empty() {
		e, err := tx.FamilyEvent(f, genealogy.Marriage)
		if err != nil {
			return nil, err
		}
		if err := writeEvent(tx, e, marriage); err != nil {
			return nil, err
		}
	}

	if err := tx.CommitFamily(f); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	ref := rec.FatherRef
	if ref == "" {
		ref = rec.MotherRef
	}
	r.record(ctx, provenance.ResourceTypeFamily, rec.LocalID, ref, decisions)
	if rec.Created {
		r.stats.FamiliesCreated++
	} else {
		r.stats.FamiliesUpdated++
	}

	logging.FromContext(ctx).Debug().
		Str("father_id", fatherID).
		Str("mother_id", motherID).
		Bool("created", rec.Created).
		Bool("union_found", ok).
		Msg("Family reconciled")
	return rec, nil
}

func (r *reconciler) AddChild(ctx context.Context, family *genealogy.FamilyRecord, child *genealogy.PersonRecord) error {
	if family == nil || family.LocalID == "" {
		return errors.NewValidationError("family", nil, "family is not bound")
	}
	if localID(child) == "" {
		return errors.NewValidationError("child", nil, "child is not bound")
	}
	ctx = logging.WithOperation(ctx, "add_child")

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	f, err := tx.Family(family.LocalID)
	if err != nil {
		return err
	}
	if f.HasChild(child.LocalID) {
		return nil
	}

	p, err := tx.Person(child.LocalID)
	if err != nil {
		return err
	}
	f.ChildIDs = append(f.ChildIDs, child.LocalID)
	p.AddParentFamily(f.ID)
	if err := tx.CommitFamily(f); err != nil {
		return err
	}
	if err := tx.CommitPerson(p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.stats.ChildrenLinked++
	logging.FromContext(ctx).Debug().
		Str("family_id", f.ID).
		Str("child_id", child.LocalID).
		Msg("Child linked")
	return nil
}

// joinFamily lists the union among the parent's own families. An empty parent
// slot is a valid partial union.
func joinFamily(tx store.Tx, personID, familyID string) error {
	if personID == "" {
		return nil
	}
	p, err := tx.Person(personID)
	if err != nil {
		return err
	}
	n := len(p.FamilyIDs)
	p.AddFamily(familyID)
	if len(p.FamilyIDs) == n {
		return nil
	}
	return tx.CommitPerson(p)
}

// unionOf finds the external union of the pair, looking in the father's
// spouse list first.
func unionOf(father, mother *genealogy.PersonRecord) (genealogy.Union, bool) {
	if father != nil {
		if u, ok := father.External.UnionWith(mother.Ref()); ok {
			return u, true
		}
	}
	if mother != nil {
		if u, ok := mother.External.UnionWith(father.Ref()); ok {
			return u, true
		}
	}
	return genealogy.Union{}, false
}

func localID(rec *genealogy.PersonRecord) string {
	if rec == nil {
		return ""
	}
	return rec.LocalID
}
