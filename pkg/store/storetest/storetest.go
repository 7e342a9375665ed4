// Package storetest holds behavior checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
)

// Run exercises a fresh, empty store returned by open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("identifiers", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		p1, err := tx.CreatePerson()
		require.NoError(t, err)
		p2, err := tx.CreatePerson()
		require.NoError(t, err)
		f, err := tx.CreateFamily()
		require.NoError(t, err)
		pl, err := tx.GetOrCreatePlace("Paris")
		require.NoError(t, err)

		assert.Equal(t, "I0001", p1.ID)
		assert.Equal(t, "I0002", p2.ID)
		assert.Equal(t, "F0001", f.ID)
		assert.Equal(t, "P0001", pl.ID)
		assert.Equal(t, genealogy.Unknown, p1.Sex)
	})

	t.Run("person round trip", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)

		p, err := tx.CreatePerson()
		require.NoError(t, err)
		p.FirstName, p.LastName, p.Sex = "Jean", "Dupont", genealogy.Male
		p.Links = []string{"jdupont?p=jean"}
		p.AddFamily("F0001")
		p.AddParentFamily("F0002")

		birth, err := tx.LifeEvent(p, genealogy.Birth)
		require.NoError(t, err)
		place, err := tx.GetOrCreatePlace("Lyon")
		require.NoError(t, err)
		place.Code = "69123"
		require.NoError(t, tx.CommitPlace(place))
		birth.Date, birth.PlaceID = "1900-05-12", place.ID
		require.NoError(t, tx.CommitEvent(birth))
		require.NoError(t, tx.CommitPerson(p))
		require.NoError(t, tx.Commit())

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()
		got, err := tx.Person(p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		ev, err := store.EventFacts(tx, got.BirthRef)
		require.NoError(t, err)
		assert.Equal(t, genealogy.Event{Date: "1900-05-12", Place: "Lyon", PlaceCode: "69123"}, ev)

		people, err := tx.People()
		require.NoError(t, err)
		require.Len(t, people, 1)
		assert.Equal(t, "Jean", people[0].FirstName)
	})

	t.Run("life event is reused", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		p, err := tx.CreatePerson()
		require.NoError(t, err)
		first, err := tx.LifeEvent(p, genealogy.Death)
		require.NoError(t, err)
		second, err := tx.LifeEvent(p, genealogy.Death)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.ID, p.DeathRef)
		assert.Empty(t, p.BirthRef)

		_, err = tx.LifeEvent(p, genealogy.Marriage)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("family round trip", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)

		f, err := tx.CreateFamily()
		require.NoError(t, err)
		f.FatherID, f.MotherID = "I0001", "I0002"
		f.ChildIDs = []string{"I0003", "I0004"}
		m, err := tx.FamilyEvent(f, genealogy.Marriage)
		require.NoError(t, err)
		m.Date = "1925-06"
		require.NoError(t, tx.CommitEvent(m))
		require.NoError(t, tx.CommitFamily(f))
		require.NoError(t, tx.Commit())

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()

		found, ok, err := tx.FindFamily("I0001", "I0002")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, f, found)

		again, err := tx.FamilyEvent(found, genealogy.Marriage)
		require.NoError(t, err)
		assert.Equal(t, m.ID, again.ID)
		assert.Len(t, found.EventRefs, 1)

		swapped, ok, err := tx.FindFamily("I0002", "I0001")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, f.ID, swapped.ID)

		_, ok, err = tx.FindFamily("I0001", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("family lookup prefers slot order", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)

		first, err := tx.CreateFamily()
		require.NoError(t, err)
		first.FatherID, first.MotherID = "I0001", "I0002"
		require.NoError(t, tx.CommitFamily(first))
		second, err := tx.CreateFamily()
		require.NoError(t, err)
		second.FatherID, second.MotherID = "I0002", "I0001"
		require.NoError(t, tx.CommitFamily(second))
		require.NoError(t, tx.Commit())

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()

		found, ok, err := tx.FindFamily("I0002", "I0001")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, second.ID, found.ID)

		found, ok, err = tx.FindFamily("I0001", "I0002")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("rollback", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)
		_, err := tx.CreatePerson()
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		tx = begin(t, s)
		defer func() { _ = tx.Rollback() }()
		people, err := tx.People()
		require.NoError(t, err)
		assert.Empty(t, people)
	})

	t.Run("not found", func(t *testing.T) {
		s := open(t)
		tx := begin(t, s)
		defer func() { _ = tx.Rollback() }()

		_, err := tx.Person("I9999")
		assert.True(t, errors.IsNotFound(err))
		_, err = tx.Family("F9999")
		assert.True(t, errors.IsNotFound(err))
		_, err = tx.Event("E9999")
		assert.True(t, errors.IsNotFound(err))
		_, err = tx.Place("P9999")
		assert.True(t, errors.IsNotFound(err))
		err = tx.CommitPerson(&genealogy.Person{ID: "I9999"})
		assert.True(t, errors.IsNotFound(err))
	})
}

func begin(t *testing.T, s store.Store) store.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	return tx
}
