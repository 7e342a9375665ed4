// Package matcher finds the local person an external person most likely
// denotes.
//
// Matching is deliberately conservative: first and last names must be equal
// (case-sensitive) and either the birth years or the death years must agree.
// A missed match creates a duplicate the user can merge later; a wrong match
// would silently corrupt an existing person.
package matcher

import (
	"github.com/agentstation/geneasync/pkg/dates"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
)

// Matcher looks up the local identifier of an external person.
type Matcher interface {
	// Match returns the identifier of the first matching local person in
	// store order, or false when none matches.
	Match(tx store.Tx, p *genealogy.ExternalPerson) (string, bool, error)
}

// Criteria are the comparable fields of a person.
type Criteria struct {
	FirstName string
	LastName  string
	BirthYear string
	DeathYear string
}

// CriteriaOf extracts the matching criteria of an external person.
func CriteriaOf(p *genealogy.ExternalPerson) Criteria {
	return Criteria{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		BirthYear: dates.Year(p.Birth.Date),
		DeathYear: dates.Year(p.Death.Date),
	}
}

// Matches reports whether two sets of criteria denote the same person.
func (c Criteria) Matches(other Criteria) bool {
	if c.FirstName != other.FirstName || c.LastName != other.LastName {
		return false
	}
	if c.BirthYear != "" && c.BirthYear == other.BirthYear {
		return true
	}
	return c.DeathYear != "" && c.DeathYear == other.DeathYear
}

type matcher struct{}

// New returns the name and year matcher.
func New() Matcher {
	return matcher{}
}

func (matcher) Match(tx store.Tx, p *genealogy.ExternalPerson) (string, bool, error) {
	want := CriteriaOf(p)
	if want.BirthYear == "" && want.DeathYear == "" {
		return "", false, nil
	}

	people, err := tx.People()
	if err != nil {
		return "", false, err
	}
	for _, candidate := range people {
		// Names first: event lookups are only paid for namesakes.
		if candidate.FirstName != want.FirstName || candidate.LastName != want.LastName {
			continue
		}
		birth, err := store.EventFacts(tx, candidate.BirthRef)
		if err != nil {
			return "", false, err
		}
		death, err := store.EventFacts(tx, candidate.DeathRef)
		if err != nil {
			return "", false, err
		}
		got := Criteria{
			FirstName: candidate.FirstName,
			LastName:  candidate.LastName,
			BirthYear: dates.Year(birth.Date),
			DeathYear: dates.Year(death.Date),
		}
		if want.Matches(got) {
			return candidate.ID, true, nil
		}
	}
	return "", false, nil
}
