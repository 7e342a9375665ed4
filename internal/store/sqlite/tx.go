package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
)

var _ store.Tx = (*tx)(nil)

// Relations stored in person_families.
const (
	relationParent = "parent"
	relationChild  = "child"
)

type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *tx) Person(id string) (*genealogy.Person, error) {
	p := &genealogy.Person{ID: id}
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT firstname, lastname, sex, birth_ref, death_ref FROM persons WHERE id = ?", id).
		Scan(&p.FirstName, &p.LastName, &p.Sex, &p.BirthRef, &p.DeathRef)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("person", id)
	}
	if err != nil {
		return nil, errors.WrapResource("get", "person", id, err)
	}
	if err := t.loadPersonLists(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t *tx) loadPersonLists(p *genealogy.Person) error {
	var err error
	if p.Links, err = t.list("SELECT ref FROM person_links WHERE person_id = ? ORDER BY position", p.ID); err != nil {
		return errors.WrapResource("get", "person links", p.ID, err)
	}
	if p.FamilyIDs, err = t.list("SELECT family_id FROM person_families WHERE person_id = ? AND relation = '"+relationParent+"' ORDER BY position", p.ID); err != nil {
		return errors.WrapResource("get", "person families", p.ID, err)
	}
	if p.ParentFamilyIDs, err = t.list("SELECT family_id FROM person_families WHERE person_id = ? AND relation = '"+relationChild+"' ORDER BY position", p.ID); err != nil {
		return errors.WrapResource("get", "person families", p.ID, err)
	}
	return nil
}

func (t *tx) People() ([]*genealogy.Person, error) {
	ids, err := t.list("SELECT id FROM persons ORDER BY rowid")
	if err != nil {
		return nil, errors.WrapResource("list", "persons", "", err)
	}
	people := make([]*genealogy.Person, 0, len(ids))
	for _, id := range ids {
		p, err := t.Person(id)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, nil
}

func (t *tx) CreatePerson() (*genealogy.Person, error) {
	id, err := t.allocate("persons", store.PersonPrefix)
	if err != nil {
		return nil, err
	}
	p := &genealogy.Person{ID: id, Sex: genealogy.Unknown}
	if _, err := t.tx.ExecContext(t.ctx, "INSERT INTO persons (id, sex) VALUES (?, ?)", id, p.Sex); err != nil {
		return nil, errors.WrapResource("create", "person", id, err)
	}
	return p, nil
}

func (t *tx) CommitPerson(p *genealogy.Person) error {
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE persons SET firstname = ?, lastname = ?, sex = ?, birth_ref = ?, death_ref = ? WHERE id = ?",
		p.FirstName, p.LastName, p.Sex, p.BirthRef, p.DeathRef, p.ID)
	if err := affected(res, err, "person", p.ID); err != nil {
		return err
	}
	if err := t.replace("person_links", "person_id", p.ID, "ref", "", p.Links); err != nil {
		return err
	}
	if err := t.replace("person_families", "person_id", p.ID, "family_id", relationParent, p.FamilyIDs); err != nil {
		return err
	}
	return t.replace("person_families", "person_id", p.ID, "family_id", relationChild, p.ParentFamilyIDs)
}

func (t *tx) Family(id string) (*genealogy.Family, error) {
	f := &genealogy.Family{ID: id}
	err := t.tx.QueryRowContext(t.ctx, "SELECT father_id, mother_id FROM families WHERE id = ?", id).
		Scan(&f.FatherID, &f.MotherID)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("family", id)
	}
	if err != nil {
		return nil, errors.WrapResource("get", "family", id, err)
	}
	if f.ChildIDs, err = t.list("SELECT person_id FROM family_children WHERE family_id = ? ORDER BY position", id); err != nil {
		return nil, errors.WrapResource("get", "family children", id, err)
	}

	rows, err := t.tx.QueryContext(t.ctx, "SELECT event_id, role FROM family_events WHERE family_id = ? ORDER BY position", id)
	if err != nil {
		return nil, errors.WrapResource("get", "family events", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref genealogy.EventRef
		if err := rows.Scan(&ref.EventID, &ref.Role); err != nil {
			return nil, errors.WrapResource("scan", "family events", id, err)
		}
		f.EventRefs = append(f.EventRefs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapResource("get", "family events", id, err)
	}
	return f, nil
}

const findFamilyQuery = `SELECT id FROM families
WHERE (father_id = ? AND mother_id = ?) OR (father_id = ? AND mother_id = ?)
ORDER BY father_id = ? DESC, rowid LIMIT 1`

func (t *tx) FindFamily(fatherID, motherID string) (*genealogy.Family, bool, error) {
	var id string
	err := t.tx.QueryRowContext(t.ctx, findFamilyQuery, fatherID, motherID, motherID, fatherID, fatherID).
		Scan(&id)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WrapResource("find", "family", genealogy.FamilyKey(fatherID, motherID), err)
	}
	f, err := t.Family(id)
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

func (t *tx) CreateFamily() (*genealogy.Family, error) {
	id, err := t.allocate("families", store.FamilyPrefix)
	if err != nil {
		return nil, err
	}
	if _, err := t.tx.ExecContext(t.ctx, "INSERT INTO families (id) VALUES (?)", id); err != nil {
		return nil, errors.WrapResource("create", "family", id, err)
	}
	return &genealogy.Family{ID: id}, nil
}

func (t *tx) CommitFamily(f *genealogy.Family) error {
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE families SET father_id = ?, mother_id = ? WHERE id = ?", f.FatherID, f.MotherID, f.ID)
	if err := affected(res, err, "family", f.ID); err != nil {
		return err
	}
	if err := t.replace("family_children", "family_id", f.ID, "person_id", "", f.ChildIDs); err != nil {
		return err
	}

	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM family_events WHERE family_id = ?", f.ID); err != nil {
		return errors.WrapResource("update", "family events", f.ID, err)
	}
	for i, ref := range f.EventRefs {
		if _, err := t.tx.ExecContext(t.ctx,
			"INSERT INTO family_events (family_id, position, event_id, role) VALUES (?, ?, ?, ?)",
			f.ID, i, ref.EventID, ref.Role); err != nil {
			return errors.WrapResource("update", "family events", f.ID, err)
		}
	}
	return nil
}

func (t *tx) Event(id string) (*genealogy.LifeEvent, error) {
	e := &genealogy.LifeEvent{ID: id}
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT kind, date, place_id, description FROM events WHERE id = ?", id).
		Scan(&e.Kind, &e.Date, &e.PlaceID, &e.Description)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("event", id)
	}
	if err != nil {
		return nil, errors.WrapResource("get", "event", id, err)
	}
	return e, nil
}

func (t *tx) LifeEvent(p *genealogy.Person, kind genealogy.EventKind) (*genealogy.LifeEvent, error) {
	ref := &p.BirthRef
	switch kind {
	case genealogy.Birth:
	case genealogy.Death:
		ref = &p.DeathRef
	default:
		return nil, errors.NewValidationError("kind", kind, "not a life event")
	}
	if *ref != "" {
		e, err := t.Event(*ref)
		if err == nil {
			return e, nil
		}
		if !errors.IsNotFound(err) {
			return nil, err
		}
	}
	e, err := t.newEvent(kind)
	if err != nil {
		return nil, err
	}
	*ref = e.ID
	return e, nil
}

func (t *tx) FamilyEvent(f *genealogy.Family, kind genealogy.EventKind) (*genealogy.LifeEvent, error) {
	for _, ref := range f.EventRefs {
		e, err := t.Event(ref.EventID)
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if e.Kind == kind {
			return e, nil
		}
	}
	e, err := t.newEvent(kind)
	if err != nil {
		return nil, err
	}
	f.EventRefs = append(f.EventRefs, genealogy.EventRef{EventID: e.ID, Role: genealogy.RoleFamily})
	return e, nil
}

func (t *tx) newEvent(kind genealogy.EventKind) (*genealogy.LifeEvent, error) {
	id, err := t.allocate("events", store.EventPrefix)
	if err != nil {
		return nil, err
	}
	e := &genealogy.LifeEvent{ID: id, Kind: kind, Description: constants.ImportDescription}
	if _, err := t.tx.ExecContext(t.ctx,
		"INSERT INTO events (id, kind, description) VALUES (?, ?, ?)", e.ID, e.Kind, e.Description); err != nil {
		return nil, errors.WrapResource("create", "event", id, err)
	}
	return e, nil
}

func (t *tx) CommitEvent(e *genealogy.LifeEvent) error {
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE events SET kind = ?, date = ?, place_id = ?, description = ? WHERE id = ?",
		e.Kind, e.Date, e.PlaceID, e.Description, e.ID)
	return affected(res, err, "event", e.ID)
}

func (t *tx) Place(id string) (*genealogy.Place, error) {
	p := &genealogy.Place{ID: id}
	err := t.tx.QueryRowContext(t.ctx, "SELECT name, code FROM places WHERE id = ?", id).Scan(&p.Name, &p.Code)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("place", id)
	}
	if err != nil {
		return nil, errors.WrapResource("get", "place", id, err)
	}
	return p, nil
}

func (t *tx) GetOrCreatePlace(name string) (*genealogy.Place, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", name, "place name is empty")
	}
	p := &genealogy.Place{Name: name}
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT id, code FROM places WHERE name = ? ORDER BY rowid LIMIT 1", name).Scan(&p.ID, &p.Code)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.WrapResource("find", "place", name, err)
	}

	if p.ID, err = t.allocate("places", store.PlacePrefix); err != nil {
		return nil, err
	}
	if _, err := t.tx.ExecContext(t.ctx, "INSERT INTO places (id, name) VALUES (?, ?)", p.ID, p.Name); err != nil {
		return nil, errors.WrapResource("create", "place", p.ID, err)
	}
	return p, nil
}

func (t *tx) CommitPlace(p *genealogy.Place) error {
	res, err := t.tx.ExecContext(t.ctx, "UPDATE places SET name = ?, code = ? WHERE id = ?", p.Name, p.Code, p.ID)
	return affected(res, err, "place", p.ID)
}

func (t *tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return errors.WrapResource("commit", "transaction", "", err)
	}
	return nil
}

func (t *tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return errors.WrapResource("rollback", "transaction", "", err)
	}
	return nil
}

// allocate returns the next free identifier of a table whose ids are a
// prefix followed by a number.
func (t *tx) allocate(table, prefix string) (string, error) {
	var n int
	query := fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) + 1 FROM %s", len(prefix)+1, table)
	if err := t.tx.QueryRowContext(t.ctx, query).Scan(&n); err != nil {
		return "", errors.WrapResource("allocate", table, prefix, err)
	}
	return store.FormatID(prefix, n), nil
}

func (t *tx) list(query string, args ...any) ([]string, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// replace rewrites an ordered list table for one owner. relation selects the
// person_families subset and is empty for the other tables.
func (t *tx) replace(table, ownerColumn, owner, valueColumn, relation string, values []string) error {
	del := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, ownerColumn)
	delArgs := []any{owner}
	if relation != "" {
		del += " AND relation = ?"
		delArgs = append(delArgs, relation)
	}
	if _, err := t.tx.ExecContext(t.ctx, del, delArgs...); err != nil {
		return errors.WrapResource("update", table, owner, err)
	}

	for i, v := range values {
		var err error
		if relation != "" {
			_, err = t.tx.ExecContext(t.ctx,
				fmt.Sprintf("INSERT INTO %s (%s, relation, position, %s) VALUES (?, ?, ?, ?)", table, ownerColumn, valueColumn),
				owner, relation, i, v)
		} else {
			_, err = t.tx.ExecContext(t.ctx,
				fmt.Sprintf("INSERT INTO %s (%s, position, %s) VALUES (?, ?, ?)", table, ownerColumn, valueColumn),
				owner, i, v)
		}
		if err != nil {
			return errors.WrapResource("update", table, owner, err)
		}
	}
	return nil
}

func affected(res sql.Result, err error, resource, id string) error {
	if err != nil {
		return errors.WrapResource("update", resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WrapResource("update", resource, id, err)
	}
	if n == 0 {
		return errors.NewNotFoundError(resource, id)
	}
	return nil
}
