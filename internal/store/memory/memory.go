// Package memory is an in-memory local store. Transactions work on a deep
// copy of the committed state and swap it in on Commit. When opened on a
// file, every commit also writes a YAML snapshot of the whole database.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/store"
)

var _ store.Store = (*Store)(nil)

// Store is the committed state.
type Store struct {
	mu   sync.Mutex
	path string
	db   *database
}

// snapshot is the on-disk layout. Slices keep store order.
type snapshot struct {
	People   []*genealogy.Person    `yaml:"people,omitempty"`
	Families []*genealogy.Family    `yaml:"families,omitempty"`
	Events   []*genealogy.LifeEvent `yaml:"events,omitempty"`
	Places   []*genealogy.Place     `yaml:"places,omitempty"`
}

// New creates an empty store that lives only in memory.
func New() *Store {
	return &Store{db: newDatabase()}
}

// Open loads the snapshot at path. A missing file yields an empty store that
// will be created on the first commit.
func Open(path string) (*Store, error) {
	s := &Store{path: path, db: newDatabase()}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.WrapResource("read", "database", path, err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	s.db = fromSnapshot(&snap)
	return s, nil
}

// Load replaces the store content with the given entities. It is meant for
// seeding tests.
func (s *Store) Load(people []*genealogy.Person, families []*genealogy.Family, events []*genealogy.LifeEvent, places []*genealogy.Place) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = fromSnapshot(&snapshot{People: people, Families: families, Events: events, Places: places})
}

// Begin starts a transaction on a copy of the committed state.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &tx{store: s, db: s.db.clone()}, nil
}

// Save writes the snapshot file. It is a no-op for a store without a path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// Close saves the store.
func (s *Store) Close() error {
	return s.Save()
}

// Stats returns entity counts.
func (s *Store) Stats() (people, families, events, places int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.db.people), len(s.db.families), len(s.db.events), len(s.db.places)
}

func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.db.snapshot())
	if err != nil {
		return errors.WrapResource("marshal", "database", s.path, err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapResource("create", "directory", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, constants.FilePermissions); err != nil {
		return errors.WrapResource("write", "database", s.path, err)
	}
	return nil
}

func (s *Store) commit(db *database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.db
	s.db = db
	if err := s.save(); err != nil {
		s.db = previous
		return err
	}
	return nil
}

// database holds entities by identifier plus insertion order.
type database struct {
	people   map[string]*genealogy.Person
	families map[string]*genealogy.Family
	events   map[string]*genealogy.LifeEvent
	places   map[string]*genealogy.Place
	order    map[string][]string
	next     map[string]int
}

func newDatabase() *database {
	return &database{
		people:   map[string]*genealogy.Person{},
		families: map[string]*genealogy.Family{},
		events:   map[string]*genealogy.LifeEvent{},
		places:   map[string]*genealogy.Place{},
		order:    map[string][]string{},
		next: map[string]int{
			store.PersonPrefix: 1,
			store.FamilyPrefix: 1,
			store.EventPrefix:  1,
			store.PlacePrefix:  1,
		},
	}
}

func fromSnapshot(snap *snapshot) *database {
	db := newDatabase()
	for _, p := range snap.People {
		db.people[p.ID] = clonePerson(p)
		db.track(store.PersonPrefix, p.ID)
	}
	for _, f := range snap.Families {
		db.families[f.ID] = cloneFamily(f)
		db.track(store.FamilyPrefix, f.ID)
	}
	for _, e := range snap.Events {
		c := *e
		db.events[e.ID] = &c
		db.track(store.EventPrefix, e.ID)
	}
	for _, p := range snap.Places {
		c := *p
		db.places[p.ID] = &c
		db.track(store.PlacePrefix, p.ID)
	}
	return db
}

// track appends id to the prefix order and bumps the allocator past it.
func (db *database) track(prefix, id string) {
	db.order[prefix] = append(db.order[prefix], id)
	if n, err := strconv.Atoi(strings.TrimPrefix(id, prefix)); err == nil && n >= db.next[prefix] {
		db.next[prefix] = n + 1
	}
}

func (db *database) allocate(prefix string) string {
	id := store.FormatID(prefix, db.next[prefix])
	db.track(prefix, id)
	return id
}

func (db *database) snapshot() *snapshot {
	snap := &snapshot{}
	for _, id := range db.order[store.PersonPrefix] {
		snap.People = append(snap.People, db.people[id])
	}
	for _, id := range db.order[store.FamilyPrefix] {
		snap.Families = append(snap.Families, db.families[id])
	}
	for _, id := range db.order[store.EventPrefix] {
		snap.Events = append(snap.Events, db.events[id])
	}
	for _, id := range db.order[store.PlacePrefix] {
		snap.Places = append(snap.Places, db.places[id])
	}
	return snap
}

func (db *database) clone() *database {
	c := newDatabase()
	for id, p := range db.people {
		c.people[id] = clonePerson(p)
	}
	for id, f := range db.families {
		c.families[id] = cloneFamily(f)
	}
	for id, e := range db.events {
		v := *e
		c.events[id] = &v
	}
	for id, p := range db.places {
		v := *p
		c.places[id] = &v
	}
	for prefix, ids := range db.order {
		c.order[prefix] = slices.Clone(ids)
	}
	for prefix, n := range db.next {
		c.next[prefix] = n
	}
	return c
}

func clonePerson(p *genealogy.Person) *genealogy.Person {
	c := *p
	c.FamilyIDs = slices.Clone(p.FamilyIDs)
	c.ParentFamilyIDs = slices.Clone(p.ParentFamilyIDs)
	c.Links = slices.Clone(p.Links)
	return &c
}

func cloneFamily(f *genealogy.Family) *genealogy.Family {
	c := *f
	c.ChildIDs = slices.Clone(f.ChildIDs)
	c.EventRefs = slices.Clone(f.EventRefs)
	return &c
}
