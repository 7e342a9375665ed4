package reconciler

import (
	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/genealogy"
)

// personField binds a field path to its accessors on each side of a merge.
type personField struct {
	path     string
	local    func(*genealogy.LocalFacts) string
	external func(*genealogy.ExternalPerson) string
	set      func(*genealogy.Resolved, string)
}

// eventField does the same for one part of an event.
type eventField struct {
	part string
	get  func(*genealogy.Event) string
	set  func(*genealogy.Event, string)
}

var eventParts = []eventField{
	{
		part: "date",
		get:  func(e *genealogy.Event) string { return e.Date },
		set:  func(e *genealogy.Event, v string) { e.Date = v },
	},
	{
		part: "place",
		get:  func(e *genealogy.Event) string { return e.Place },
		set:  func(e *genealogy.Event, v string) { e.Place = v },
	},
	{
		part: "placecode",
		get:  func(e *genealogy.Event) string { return e.PlaceCode },
		set:  func(e *genealogy.Event, v string) { e.PlaceCode = v },
	},
}

// personFields lists the person fields in merge order.
var personFields = buildPersonFields()

func buildPersonFields() []personField {
	fields := []personField{
		{
			path:     authority.SexField,
			local:    func(l *genealogy.LocalFacts) string { return string(l.Sex) },
			external: func(e *genealogy.ExternalPerson) string { return string(e.Sex) },
			set:      func(r *genealogy.Resolved, v string) { r.Sex = genealogy.ParseSex(v) },
		},
		{
			path:     authority.FirstName,
			local:    func(l *genealogy.LocalFacts) string { return l.FirstName },
			external: func(e *genealogy.ExternalPerson) string { return e.FirstName },
			set:      func(r *genealogy.Resolved, v string) { r.FirstName = v },
		},
		{
			path:     authority.LastName,
			local:    func(l *genealogy.LocalFacts) string { return l.LastName },
			external: func(e *genealogy.ExternalPerson) string { return e.LastName },
			set:      func(r *genealogy.Resolved, v string) { r.LastName = v },
		},
	}

	lifeEvents := []struct {
		prefix   string
		local    func(*genealogy.LocalFacts) *genealogy.Event
		external func(*genealogy.ExternalPerson) *genealogy.Event
		resolved func(*genealogy.Resolved) *genealogy.Event
	}{
		{
			prefix:   "birth",
			local:    func(l *genealogy.LocalFacts) *genealogy.Event { return &l.Birth },
			external: func(e *genealogy.ExternalPerson) *genealogy.Event { return &e.Birth },
			resolved: func(r *genealogy.Resolved) *genealogy.Event { return &r.Birth },
		},
		{
			prefix:   "death",
			local:    func(l *genealogy.LocalFacts) *genealogy.Event { return &l.Death },
			external: func(e *genealogy.ExternalPerson) *genealogy.Event { return &e.Death },
			resolved: func(r *genealogy.Resolved) *genealogy.Event { return &r.Death },
		},
	}
	for _, ev := range lifeEvents {
		for _, part := range eventParts {
			fields = append(fields, personField{
				path:     ev.prefix + "." + part.part,
				local:    func(l *genealogy.LocalFacts) string { return part.get(ev.local(l)) },
				external: func(e *genealogy.ExternalPerson) string { return part.get(ev.external(e)) },
				set:      func(r *genealogy.Resolved, v string) { part.set(ev.resolved(r), v) },
			})
		}
	}
	return fields
}

// mergePerson decides every person field and fills rec.Resolved.
func (r *reconciler) mergePerson(rec *genealogy.PersonRecord) []authority.Decision {
	decisions := make([]authority.Decision, 0, len(personFields))
	for _, f := range personFields {
		d := r.policy.Decide(f.path, f.local(&rec.Local), f.external(&rec.External))
		f.set(&rec.Resolved, d.Resolved)
		decisions = append(decisions, d)
	}
	return decisions
}

// mergeEvent decides the parts of an event stored under prefix.
func (r *reconciler) mergeEvent(prefix string, local, external genealogy.Event) (genealogy.Event, []authority.Decision) {
	var out genealogy.Event
	decisions := make([]authority.Decision, 0, len(eventParts))
	for _, part := range eventParts {
		d := r.policy.Decide(prefix+"."+part.part, part.get(&local), part.get(&external))
		part.set(&out, d.Resolved)
		decisions = append(decisions, d)
	}
	return out, decisions
}
