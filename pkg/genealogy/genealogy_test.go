package genealogy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/geneasync/pkg/genealogy"
)

func TestParseSex(t *testing.T) {
	tests := map[string]genealogy.Sex{
		"H":      genealogy.Male,
		"F":      genealogy.Female,
		"I":      genealogy.Unknown,
		"":       genealogy.Unknown,
		"female": genealogy.Female,
		" m ":    genealogy.Male,
	}
	for in, want := range tests {
		assert.Equal(t, want, genealogy.ParseSex(in), "input %q", in)
	}
	assert.False(t, genealogy.Unknown.Known())
	assert.Equal(t, "unknown", genealogy.Sex("").String())
}

func TestExternalPersonParents(t *testing.T) {
	p := &genealogy.ExternalPerson{ParentRefs: []string{"a", "b"}}
	first, second := p.Parents()
	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)

	p.FatherRef, p.MotherRef = "f", "m"
	first, second = p.Parents()
	assert.Equal(t, "f", first)
	assert.Equal(t, "m", second)

	var none *genealogy.ExternalPerson
	first, second = none.Parents()
	assert.Empty(t, first)
	assert.Empty(t, second)
}

func TestUnionWith(t *testing.T) {
	p := &genealogy.ExternalPerson{Unions: []genealogy.Union{
		{SpouseRef: "first", ChildRefs: []string{"c1"}},
		{SpouseRef: "second", ChildRefs: []string{"c2", "c3"}},
	}}

	u, ok := p.UnionWith("second")
	assert.True(t, ok)
	assert.Equal(t, []string{"c2", "c3"}, u.ChildRefs)

	_, ok = p.UnionWith("")
	assert.False(t, ok)
}

func TestPersonLinksAndFamilies(t *testing.T) {
	p := &genealogy.Person{ID: "I0001"}
	p.AddFamily("F0001")
	p.AddFamily("F0001")
	p.AddParentFamily("F0002")
	p.AddParentFamily("")
	p.Links = append(p.Links, "ref")

	assert.Equal(t, []string{"F0001"}, p.FamilyIDs)
	assert.Equal(t, []string{"F0002"}, p.ParentFamilyIDs)
	assert.True(t, p.HasLink("ref"))
	assert.False(t, p.HasLink("other"))
}

func TestPersonRecordSex(t *testing.T) {
	r := &genealogy.PersonRecord{External: genealogy.ExternalPerson{Sex: genealogy.Female}}
	assert.Equal(t, genealogy.Female, r.Sex())

	r.Resolved.Sex = genealogy.Male
	assert.Equal(t, genealogy.Male, r.Sex())

	var none *genealogy.PersonRecord
	assert.Equal(t, genealogy.Unknown, none.Sex())
	assert.Empty(t, none.Ref())
}

func TestUnionKey(t *testing.T) {
	assert.Equal(t, genealogy.UnionKey("I0001", "I0002"), genealogy.UnionKey("I0002", "I0001"))
	assert.Equal(t, "I0001+I0002", genealogy.UnionKey("I0002", "I0001"))
	assert.Equal(t, "+I0003", genealogy.UnionKey("I0003", ""))
	assert.Equal(t, "I0002+I0001", genealogy.FamilyKey("I0002", "I0001"))
}
