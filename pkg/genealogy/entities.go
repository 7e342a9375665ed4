package genealogy

import "slices"

// EventKind is the type of a life event held by the local store.
type EventKind string

// Event kinds managed by the engine.
const (
	Birth    EventKind = "birth"
	Death    EventKind = "death"
	Marriage EventKind = "marriage"
)

// Role tells whether an event reference belongs to one person or to a union.
type Role string

// Roles.
const (
	RolePrimary Role = "primary"
	RoleFamily  Role = "family"
)

// Person is a local store person entity.
type Person struct {
	ID              string   `yaml:"id"`
	FirstName       string   `yaml:"firstname,omitempty"`
	LastName        string   `yaml:"lastname,omitempty"`
	Sex             Sex      `yaml:"sex,omitempty"`
	BirthRef        string   `yaml:"birth,omitempty"`
	DeathRef        string   `yaml:"death,omitempty"`
	FamilyIDs       []string `yaml:"families,omitempty"`
	ParentFamilyIDs []string `yaml:"parent_families,omitempty"`
	// Links are provenance markers: external references this person was reconciled against.
	Links []string `yaml:"links,omitempty"`
}

// HasLink reports whether ref is already recorded as a provenance marker.
func (p *Person) HasLink(ref string) bool {
	return slices.Contains(p.Links, ref)
}

// AddFamily records a union the person is a parent in.
func (p *Person) AddFamily(id string) {
	if id != "" && !slices.Contains(p.FamilyIDs, id) {
		p.FamilyIDs = append(p.FamilyIDs, id)
	}
}

// AddParentFamily records a union the person is a child of.
func (p *Person) AddParentFamily(id string) {
	if id != "" && !slices.Contains(p.ParentFamilyIDs, id) {
		p.ParentFamilyIDs = append(p.ParentFamilyIDs, id)
	}
}

// EventRef attaches an event to a family with a role.
type EventRef struct {
	EventID string `yaml:"event"`
	Role    Role   `yaml:"role"`
}

// Family is a local store union entity. Either parent may be empty.
type Family struct {
	ID        string     `yaml:"id"`
	FatherID  string     `yaml:"father,omitempty"`
	MotherID  string     `yaml:"mother,omitempty"`
	ChildIDs  []string   `yaml:"children,omitempty"`
	EventRefs []EventRef `yaml:"events,omitempty"`
}

// HasChild reports whether the person is listed among the children.
func (f *Family) HasChild(id string) bool {
	return slices.Contains(f.ChildIDs, id)
}

// LifeEvent is a local store event entity.
type LifeEvent struct {
	ID          string    `yaml:"id"`
	Kind        EventKind `yaml:"kind"`
	Date        string    `yaml:"date,omitempty"`
	PlaceID     string    `yaml:"place,omitempty"`
	Description string    `yaml:"description,omitempty"`
}

// Place is a local store place entity.
type Place struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Code string `yaml:"code,omitempty"`
}
