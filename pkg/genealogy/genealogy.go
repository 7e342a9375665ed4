// Package genealogy defines the records the reconciliation engine reasons about:
// the external person extracted from a source page, the entities held by the
// local store, and the per-run PersonRecord and FamilyRecord that bind the two.
//
// Records refer to each other through keys (external references and local
// identifiers), never through pointers, so a run can keep them in a flat arena.
package genealogy

import (
	"strings"
)

// Sex of a person.
type Sex string

// Sex values.
const (
	Unknown Sex = "unknown"
	Male    Sex = "male"
	Female  Sex = "female"
)

// ParseSex converts the codes used by the external source and the local store.
// H (homme) and F (femme) are the source's codes; anything unrecognized is Unknown.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "m", "male", "homme":
		return Male
	case "f", "female", "femme":
		return Female
	default:
		return Unknown
	}
}

// Known reports whether the sex is male or female.
func (s Sex) Known() bool {
	return s == Male || s == Female
}

// String implements fmt.Stringer.
func (s Sex) String() string {
	if s == "" {
		return string(Unknown)
	}
	return string(s)
}

// Event is the resolved shape of a birth, death or marriage fact.
type Event struct {
	Date      string `yaml:"date,omitempty"`
	Place     string `yaml:"place,omitempty"`
	PlaceCode string `yaml:"placecode,omitempty"`
}

// Empty reports whether the event carries no information.
func (e Event) Empty() bool {
	return e.Date == "" && e.Place == "" && e.PlaceCode == ""
}

// Union is one spouse entry of an external person page: the spouse, the
// marriage facts and the children of that specific union.
type Union struct {
	SpouseRef string   `yaml:"spouse"`
	Marriage  Event    `yaml:"marriage,omitempty"`
	ChildRefs []string `yaml:"children,omitempty"`
}

// ExternalPerson holds the fields extracted from one external page.
// Absent fields are empty values.
type ExternalPerson struct {
	Ref       string  `yaml:"ref"`
	FirstName string  `yaml:"firstname,omitempty"`
	LastName  string  `yaml:"lastname,omitempty"`
	Sex       Sex     `yaml:"sex,omitempty"`
	Birth     Event   `yaml:"birth,omitempty"`
	Death     Event   `yaml:"death,omitempty"`
	Unions    []Union `yaml:"unions,omitempty"`
	// ParentRefs lists the parents in page order without their roles.
	ParentRefs []string `yaml:"parents,omitempty"`
	// FatherRef and MotherRef are set only by sources that label parent
	// roles, such as replay files. Person pages do not, and their parents
	// get a role from the sex read on their own pages.
	FatherRef string `yaml:"father,omitempty"`
	MotherRef string `yaml:"mother,omitempty"`
}

// Parents returns the father and mother references. When the source did not
// label them, the listed parents are returned in page order.
func (p *ExternalPerson) Parents() (first, second string) {
	if p == nil {
		return "", ""
	}
	if p.FatherRef != "" || p.MotherRef != "" {
		return p.FatherRef, p.MotherRef
	}
	if len(p.ParentRefs) > 0 {
		first = p.ParentRefs[0]
	}
	if len(p.ParentRefs) > 1 {
		second = p.ParentRefs[1]
	}
	return first, second
}

// UnionWith returns the union whose spouse reference equals ref.
func (p *ExternalPerson) UnionWith(ref string) (Union, bool) {
	if p == nil || ref == "" {
		return Union{}, false
	}
	for _, u := range p.Unions {
		if u.SpouseRef == ref {
			return u, true
		}
	}
	return Union{}, false
}

// LocalFacts is a person as currently known by the local store.
type LocalFacts struct {
	ID        string
	FirstName string
	LastName  string
	Sex       Sex
	Birth     Event
	Death     Event
	FatherID  string
	MotherID  string
	Links     []string
}

// Resolved holds the post-merge values written back to the local store.
type Resolved struct {
	FirstName string
	LastName  string
	Sex       Sex
	Birth     Event
	Death     Event
}

// PersonRecord binds one external node to one local person for a run.
type PersonRecord struct {
	Level    int
	External ExternalPerson
	Local    LocalFacts
	Resolved Resolved
	// LocalID is set once the record is bound and never changes afterwards.
	LocalID string
	// Created reports that the local person was created by this run.
	Created bool
}

// Ref returns the record's external reference.
func (r *PersonRecord) Ref() string {
	if r == nil {
		return ""
	}
	return r.External.Ref
}

// Sex returns the resolved sex, falling back to the external one before merge.
func (r *PersonRecord) Sex() Sex {
	if r == nil {
		return Unknown
	}
	if r.Resolved.Sex.Known() {
		return r.Resolved.Sex
	}
	if r.External.Sex.Known() {
		return r.External.Sex
	}
	return Unknown
}

// Name returns "firstname lastname" from the resolved fields.
func (r *PersonRecord) Name() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Resolved.FirstName + " " + r.Resolved.LastName)
}

// FamilyRecord is a parental union bound to a local family.
// Parents are referenced by key; the person records themselves are owned by
// the walker's arena.
type FamilyRecord struct {
	LocalID   string
	FatherRef string
	MotherRef string
	FatherID  string
	MotherID  string
	Marriage  Event
	ChildRefs []string
	Created   bool
}

// FamilyKey identifies a union by its two parents' local identifiers.
func FamilyKey(fatherID, motherID string) string {
	return fatherID + "+" + motherID
}

// UnionKey identifies a union regardless of which partner holds which slot.
func UnionKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return FamilyKey(a, b)
}
