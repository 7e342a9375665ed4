package store

import (
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
)

// Facts reads a person together with its birth and death events and the
// parents of its main parent family.
func Facts(tx Tx, id string) (genealogy.LocalFacts, error) {
	p, err := tx.Person(id)
	if err != nil {
		return genealogy.LocalFacts{}, err
	}

	facts := genealogy.LocalFacts{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Sex:       p.Sex,
		Links:     append([]string(nil), p.Links...),
	}
	if facts.Birth, err = EventFacts(tx, p.BirthRef); err != nil {
		return facts, err
	}
	if facts.Death, err = EventFacts(tx, p.DeathRef); err != nil {
		return facts, err
	}

	if len(p.ParentFamilyIDs) > 0 {
		f, err := tx.Family(p.ParentFamilyIDs[0])
		switch {
		case errors.IsNotFound(err):
		case err != nil:
			return facts, err
		default:
			facts.FatherID, facts.MotherID = f.FatherID, f.MotherID
		}
	}
	return facts, nil
}

// EventFacts resolves an event reference to its date and place. A dangling
// or empty reference yields an empty event.
func EventFacts(tx Tx, eventID string) (genealogy.Event, error) {
	if eventID == "" {
		return genealogy.Event{}, nil
	}
	e, err := tx.Event(eventID)
	if errors.IsNotFound(err) {
		return genealogy.Event{}, nil
	}
	if err != nil {
		return genealogy.Event{}, err
	}

	out := genealogy.Event{Date: e.Date}
	if e.PlaceID == "" {
		return out, nil
	}
	pl, err := tx.Place(e.PlaceID)
	if errors.IsNotFound(err) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Place, out.PlaceCode = pl.Name, pl.Code
	return out, nil
}

// MarriageFacts resolves a union's marriage event.
func MarriageFacts(tx Tx, f *genealogy.Family) (genealogy.Event, error) {
	for _, ref := range f.EventRefs {
		e, err := tx.Event(ref.EventID)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return genealogy.Event{}, err
		}
		if e.Kind == genealogy.Marriage {
			return EventFacts(tx, e.ID)
		}
	}
	return genealogy.Event{}, nil
}
