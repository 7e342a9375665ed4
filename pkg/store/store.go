// Package store defines the transactional contract of the local genealogy
// database the engine reconciles into.
//
// Every reconciliation step opens one transaction with Begin, reads and
// mutates entities through the Tx, and commits. Entities returned by a Tx are
// copies: changes are only persisted through the matching Commit* call.
package store

import (
	"context"
	"fmt"

	"github.com/agentstation/geneasync/pkg/genealogy"
)

// Identifier prefixes of the local database.
const (
	PersonPrefix = "I"
	FamilyPrefix = "F"
	EventPrefix  = "E"
	PlacePrefix  = "P"
)

// Store opens transactions on a local database.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// PersonReader looks persons up.
type PersonReader interface {
	// Person returns a not-found error when id is unknown.
	Person(id string) (*genealogy.Person, error)
	// People lists every person in store order.
	People() ([]*genealogy.Person, error)
}

// PersonWriter creates and persists persons.
type PersonWriter interface {
	// CreatePerson allocates an empty person with a fresh identifier.
	CreatePerson() (*genealogy.Person, error)
	CommitPerson(p *genealogy.Person) error
}

// FamilyStore reads and writes unions.
type FamilyStore interface {
	Family(id string) (*genealogy.Family, error)
	// FindFamily returns the union of these two parents in either slot
	// order, preferring one stored in the given order. Either identifier may
	// be empty; an empty identifier only matches an empty slot.
	FindFamily(fatherID, motherID string) (*genealogy.Family, bool, error)
	CreateFamily() (*genealogy.Family, error)
	CommitFamily(f *genealogy.Family) error
}

// EventStore reads and writes life events.
type EventStore interface {
	Event(id string) (*genealogy.LifeEvent, error)
	// LifeEvent returns the person's birth or death event, creating it and
	// setting the person's reference when missing. The caller commits the person.
	LifeEvent(p *genealogy.Person, kind genealogy.EventKind) (*genealogy.LifeEvent, error)
	// FamilyEvent returns the union's event of the given kind, creating it
	// and attaching it with the family role when missing. The caller commits
	// the family.
	FamilyEvent(f *genealogy.Family, kind genealogy.EventKind) (*genealogy.LifeEvent, error)
	CommitEvent(e *genealogy.LifeEvent) error
}

// PlaceStore reads and writes places.
type PlaceStore interface {
	Place(id string) (*genealogy.Place, error)
	// GetOrCreatePlace matches places by exact name.
	GetOrCreatePlace(name string) (*genealogy.Place, error)
	CommitPlace(p *genealogy.Place) error
}

// Tx is one unit of work.
type Tx interface {
	PersonReader
	PersonWriter
	FamilyStore
	EventStore
	PlaceStore

	Commit() error
	Rollback() error
}

// FormatID renders a local identifier such as I0001.
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}
