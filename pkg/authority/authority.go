// Package authority decides, field by field, which of the local and external
// values survives a merge.
//
// The field table is explicit: every mergeable field is listed with the kind
// of rule that governs it. Local data is authoritative by default; the
// external side fills gaps, refines dates and lowers place codes. In force
// mode the external side wins whenever it carries a value.
package authority

import (
	"strconv"

	"github.com/agentstation/geneasync/pkg/dates"
)

// Kind selects the rule applied to a field.
type Kind int

// Field kinds.
const (
	Identity Kind = iota
	Sex
	Date
	Place
	PlaceCode
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Sex:
		return "sex"
	case Date:
		return "date"
	case Place:
		return "place"
	case PlaceCode:
		return "placecode"
	default:
		return "identity"
	}
}

// Field names a mergeable field and its rule.
type Field struct {
	Path string `json:"path" yaml:"path"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Field paths.
const (
	FirstName         = "firstname"
	LastName          = "lastname"
	SexField          = "sex"
	BirthDate         = "birth.date"
	BirthPlace        = "birth.place"
	BirthPlaceCode    = "birth.placecode"
	DeathDate         = "death.date"
	DeathPlace        = "death.place"
	DeathPlaceCode    = "death.placecode"
	MarriageDate      = "marriage.date"
	MarriagePlace     = "marriage.place"
	MarriagePlaceCode = "marriage.placecode"
)

var fields = []Field{
	{Path: FirstName, Kind: Identity},
	{Path: LastName, Kind: Identity},
	{Path: SexField, Kind: Sex},
	{Path: BirthDate, Kind: Date},
	{Path: BirthPlace, Kind: Place},
	{Path: BirthPlaceCode, Kind: PlaceCode},
	{Path: DeathDate, Kind: Date},
	{Path: DeathPlace, Kind: Place},
	{Path: DeathPlaceCode, Kind: PlaceCode},
	{Path: MarriageDate, Kind: Date},
	{Path: MarriagePlace, Kind: Place},
	{Path: MarriagePlaceCode, Kind: PlaceCode},
}

// Fields returns the field table.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Lookup returns the table entry for path. Unlisted paths are governed by the
// Identity rule, which never replaces a local value.
func Lookup(path string) (Field, bool) {
	for _, f := range fields {
		if f.Path == path {
			return f, true
		}
	}
	return Field{Path: path, Kind: Identity}, false
}

// Winner names the side whose value was kept.
type Winner string

// Winners.
const (
	WinnerNone     Winner = "none"
	WinnerLocal    Winner = "local"
	WinnerExternal Winner = "external"
)

// Reasons recorded on decisions.
const (
	ReasonBothEmpty     = "both empty"
	ReasonEqual         = "equal"
	ReasonLocalEmpty    = "local empty"
	ReasonExternalEmpty = "external empty"
	ReasonForce         = "force"
	ReasonLocalKept     = "local kept"
	ReasonMorePrecise   = "more precise"
	ReasonLesser        = "lesser value"
	ReasonSmallerCode   = "smaller code"
	ReasonNotNumeric    = "non-numeric code"
)

// Decision is the outcome of merging one field.
type Decision struct {
	Field    string `json:"field" yaml:"field"`
	Local    string `json:"local,omitempty" yaml:"local,omitempty"`
	External string `json:"external,omitempty" yaml:"external,omitempty"`
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Winner   Winner `json:"winner" yaml:"winner"`
	Reason   string `json:"reason" yaml:"reason"`
	// Conflict is set when both sides carried different values that the rule
	// could not reconcile without discarding one.
	Conflict bool `json:"conflict,omitempty" yaml:"conflict,omitempty"`
}

// Changed reports whether the resolved value differs from the local one.
func (d Decision) Changed() bool {
	return d.Resolved != d.Local
}

// Policy applies the field table.
type Policy struct {
	force bool
}

// New creates a policy. With force set, external values override local ones.
func New(force bool) *Policy {
	return &Policy{force: force}
}

// Force reports whether the policy runs in force mode.
func (p *Policy) Force() bool {
	return p != nil && p.force
}

// Decide merges one field.
func (p *Policy) Decide(field, local, external string) Decision {
	f, _ := Lookup(field)
	d := Decision{Field: field, Local: local, External: external}

	localSet, externalSet := present(f.Kind, local), present(f.Kind, external)
	switch {
	case !localSet && !externalSet:
		return d.keep(WinnerNone, local, ReasonBothEmpty)
	case local == external:
		return d.keep(WinnerLocal, local, ReasonEqual)
	case !externalSet:
		return d.keep(WinnerLocal, local, ReasonExternalEmpty)
	case p.Force():
		return d.keep(WinnerExternal, external, ReasonForce)
	case !localSet:
		return d.keep(WinnerExternal, external, ReasonLocalEmpty)
	}

	switch f.Kind {
	case Date:
		return decideDate(d)
	case PlaceCode:
		return decidePlaceCode(d)
	default:
		// Identity, sex and place contradictions keep the local value.
		d = d.keep(WinnerLocal, local, ReasonLocalKept)
		d.Conflict = true
		return d
	}
}

func decideDate(d Decision) Decision {
	pl, pe := dates.PrecisionOf(d.Local), dates.PrecisionOf(d.External)
	conflict := !dates.Compatible(d.Local, d.External)
	switch {
	case pe > pl:
		d = d.keep(WinnerExternal, d.External, ReasonMorePrecise)
	case pl > pe:
		d = d.keep(WinnerLocal, d.Local, ReasonMorePrecise)
	case d.External < d.Local:
		d = d.keep(WinnerExternal, d.External, ReasonLesser)
		conflict = true
	default:
		d = d.keep(WinnerLocal, d.Local, ReasonLesser)
		conflict = true
	}
	d.Conflict = conflict
	return d
}

func decidePlaceCode(d Decision) Decision {
	l, errL := strconv.Atoi(d.Local)
	e, errE := strconv.Atoi(d.External)
	if errL != nil || errE != nil {
		d = d.keep(WinnerLocal, d.Local, ReasonNotNumeric)
		d.Conflict = true
		return d
	}
	if e < l {
		return d.keep(WinnerExternal, d.External, ReasonSmallerCode)
	}
	return d.keep(WinnerLocal, d.Local, ReasonSmallerCode)
}

func (d Decision) keep(w Winner, value, reason string) Decision {
	d.Winner = w
	d.Resolved = value
	d.Reason = reason
	return d
}

// present reports whether a value counts as set for its kind. An unknown
// sex is as good as no sex at all.
func present(k Kind, v string) bool {
	if k == Sex {
		return v == "male" || v == "female"
	}
	return v != ""
}
