package memory

import (
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
)

var _ store.Tx = (*tx)(nil)

type tx struct {
	store *Store
	db    *database
	done  bool
}

func (t *tx) check() error {
	if t.done {
		return errors.ErrReadOnly
	}
	return nil
}

func (t *tx) Person(id string) (*genealogy.Person, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	p, ok := t.db.people[id]
	if !ok {
		return nil, errors.NewNotFoundError("person", id)
	}
	return clonePerson(p), nil
}

func (t *tx) People() ([]*genealogy.Person, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	ids := t.db.order[store.PersonPrefix]
	out := make([]*genealogy.Person, 0, len(ids))
	for _, id := range ids {
		out = append(out, clonePerson(t.db.people[id]))
	}
	return out, nil
}

func (t *tx) CreatePerson() (*genealogy.Person, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	p := &genealogy.Person{ID: t.db.allocate(store.PersonPrefix), Sex: genealogy.Unknown}
	t.db.people[p.ID] = p
	return clonePerson(p), nil
}

func (t *tx) CommitPerson(p *genealogy.Person) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, ok := t.db.people[p.ID]; !ok {
		return errors.NewNotFoundError("person", p.ID)
	}
	t.db.people[p.ID] = clonePerson(p)
	return nil
}

func (t *tx) Family(id string) (*genealogy.Family, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	f, ok := t.db.families[id]
	if !ok {
		return nil, errors.NewNotFoundError("family", id)
	}
	return cloneFamily(f), nil
}

func (t *tx) FindFamily(fatherID, motherID string) (*genealogy.Family, bool, error) {
	if err := t.check(); err != nil {
		return nil, false, err
	}
	var swapped *genealogy.Family
	for _, id := range t.db.order[store.FamilyPrefix] {
		f := t.db.families[id]
		if f.FatherID == fatherID && f.MotherID == motherID {
			return cloneFamily(f), true, nil
		}
		if swapped == nil && f.FatherID == motherID && f.MotherID == fatherID {
			swapped = f
		}
	}
	if swapped != nil {
		return cloneFamily(swapped), true, nil
	}
	return nil, false, nil
}

func (t *tx) CreateFamily() (*genealogy.Family, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	f := &genealogy.Family{ID: t.db.allocate(store.FamilyPrefix)}
	t.db.families[f.ID] = f
	return cloneFamily(f), nil
}

func (t *tx) CommitFamily(f *genealogy.Family) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, ok := t.db.families[f.ID]; !ok {
		return errors.NewNotFoundError("family", f.ID)
	}
	t.db.families[f.ID] = cloneFamily(f)
	return nil
}

func (t *tx) Event(id string) (*genealogy.LifeEvent, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	e, ok := t.db.events[id]
	if !ok {
		return nil, errors.NewNotFoundError("event", id)
	}
	c := *e
	return &c, nil
}

func (t *tx) LifeEvent(p *genealogy.Person, kind genealogy.EventKind) (*genealogy.LifeEvent, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	ref := &p.BirthRef
	switch kind {
	case genealogy.Birth:
	case genealogy.Death:
		ref = &p.DeathRef
	default:
		return nil, errors.NewValidationError("kind", kind, "not a life event")
	}
	if e, ok := t.db.events[*ref]; ok {
		c := *e
		return &c, nil
	}
	e := t.newEvent(kind)
	*ref = e.ID
	return e, nil
}

func (t *tx) FamilyEvent(f *genealogy.Family, kind genealogy.EventKind) (*genealogy.LifeEvent, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	for _, ref := range f.EventRefs {
		if e, ok := t.db.events[ref.EventID]; ok && e.Kind == kind {
			c := *e
			return &c, nil
		}
	}
	e := t.newEvent(kind)
	f.EventRefs = append(f.EventRefs, genealogy.EventRef{EventID: e.ID, Role: genealogy.RoleFamily})
	return e, nil
}

func (t *tx) newEvent(kind genealogy.EventKind) *genealogy.LifeEvent {
	e := &genealogy.LifeEvent{
		ID:          t.db.allocate(store.EventPrefix),
		Kind:        kind,
		Description: constants.ImportDescription,
	}
	t.db.events[e.ID] = e
	c := *e
	return &c
}

func (t *tx) CommitEvent(e *genealogy.LifeEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, ok := t.db.events[e.ID]; !ok {
		return errors.NewNotFoundError("event", e.ID)
	}
	c := *e
	t.db.events[e.ID] = &c
	return nil
}

func (t *tx) Place(id string) (*genealogy.Place, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	p, ok := t.db.places[id]
	if !ok {
		return nil, errors.NewNotFoundError("place", id)
	}
	c := *p
	return &c, nil
}

func (t *tx) GetOrCreatePlace(name string) (*genealogy.Place, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewValidationError("name", name, "place name is empty")
	}
	for _, id := range t.db.order[store.PlacePrefix] {
		if p := t.db.places[id]; p.Name == name {
			c := *p
			return &c, nil
		}
	}
	p := &genealogy.Place{ID: t.db.allocate(store.PlacePrefix), Name: name}
	t.db.places[p.ID] = p
	c := *p
	return &c, nil
}

func (t *tx) CommitPlace(p *genealogy.Place) error {
	if err := t.check(); err != nil {
		return err
	}
	if _, ok := t.db.places[p.ID]; !ok {
		return errors.NewNotFoundError("place", p.ID)
	}
	c := *p
	t.db.places[p.ID] = &c
	return nil
}

func (t *tx) Commit() error {
	if err := t.check(); err != nil {
		return err
	}
	t.done = true
	return t.store.commit(t.db)
}

// Rollback discards the copy. Rolling back a finished transaction is a no-op.
func (t *tx) Rollback() error {
	t.done = true
	return nil
}
