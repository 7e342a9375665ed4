package authority_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/dates"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		local    string
		external string
		want     string
		winner   authority.Winner
		conflict bool
	}{
		{"both empty", authority.FirstName, "", "", "", authority.WinnerNone, false},
		{"empty local adopts external", authority.FirstName, "", "Jean", "Jean", authority.WinnerExternal, false},
		{"empty external keeps local", authority.LastName, "Dupont", "", "Dupont", authority.WinnerLocal, false},
		{"name contradiction keeps local", authority.FirstName, "Jean", "Jehan", "Jean", authority.WinnerLocal, true},
		{"equal names", authority.FirstName, "Jean", "Jean", "Jean", authority.WinnerLocal, false},

		{"unknown sex adopts external", authority.SexField, "unknown", "female", "female", authority.WinnerExternal, false},
		{"sex contradiction keeps local", authority.SexField, "male", "female", "male", authority.WinnerLocal, true},
		{"unknown external sex ignored", authority.SexField, "male", "unknown", "male", authority.WinnerLocal, false},

		{"empty date adopts external", authority.BirthDate, "", "1900", "1900", authority.WinnerExternal, false},
		{"more precise external date", authority.BirthDate, "1900", "1900-05-12", "1900-05-12", authority.WinnerExternal, false},
		{"more precise local date", authority.DeathDate, "1900-05-12", "1900", "1900-05-12", authority.WinnerLocal, false},
		{"qualified refined by year", authority.BirthDate, "ca 1850", "1851", "1851", authority.WinnerExternal, true},
		{"same precision lesser external", authority.BirthDate, "1900-05-13", "1900-05-12", "1900-05-12", authority.WinnerExternal, true},
		{"same precision lesser local", authority.BirthDate, "1900-05-12", "1900-05-13", "1900-05-12", authority.WinnerLocal, true},

		{"place contradiction keeps local", authority.BirthPlace, "Paris", "Lyon", "Paris", authority.WinnerLocal, true},
		{"empty place adopts external", authority.DeathPlace, "", "Lyon", "Lyon", authority.WinnerExternal, false},

		{"smaller external code", authority.BirthPlaceCode, "75056", "69123", "69123", authority.WinnerExternal, false},
		{"smaller local code", authority.BirthPlaceCode, "69123", "75056", "69123", authority.WinnerLocal, false},
		{"non-numeric code keeps local", authority.MarriagePlaceCode, "2A004", "20004", "2A004", authority.WinnerLocal, true},

		{"unlisted field keeps local", "nickname", "Jo", "Joe", "Jo", authority.WinnerLocal, true},
	}

	policy := authority.New(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := policy.Decide(tt.field, tt.local, tt.external)
			assert.Equal(t, tt.field, d.Field)
			assert.Equal(t, tt.want, d.Resolved)
			assert.Equal(t, tt.winner, d.Winner)
			assert.Equal(t, tt.conflict, d.Conflict)
		})
	}
}

func TestDecideForce(t *testing.T) {
	policy := authority.New(true)
	assert.True(t, policy.Force())

	d := policy.Decide(authority.SexField, "male", "female")
	assert.Equal(t, "female", d.Resolved)
	assert.Equal(t, authority.ReasonForce, d.Reason)
	assert.False(t, d.Conflict)

	d = policy.Decide(authority.FirstName, "Jean", "Jehan")
	assert.Equal(t, "Jehan", d.Resolved)

	d = policy.Decide(authority.BirthDate, "1900-05-12", "1900")
	assert.Equal(t, "1900", d.Resolved)

	// an empty external value never erases a local one
	d = policy.Decide(authority.LastName, "Dupont", "")
	assert.Equal(t, "Dupont", d.Resolved)
	assert.Equal(t, authority.WinnerLocal, d.Winner)

	d = policy.Decide(authority.SexField, "female", "unknown")
	assert.Equal(t, "female", d.Resolved)
}

func TestDatePrecisionNeverDecreases(t *testing.T) {
	values := []string{"", "ca 1900", "1900", "1900-05", "1900-05-12", "1899-12-31", "av 1910"}
	policy := authority.New(false)
	for _, local := range values {
		for _, external := range values {
			d := policy.Decide(authority.BirthDate, local, external)
			assert.GreaterOrEqual(t, int(dates.PrecisionOf(d.Resolved)), int(dates.PrecisionOf(local)),
				"local %q external %q resolved %q", local, external, d.Resolved)
		}
	}
}

func TestLookup(t *testing.T) {
	f, ok := authority.Lookup(authority.MarriageDate)
	assert.True(t, ok)
	assert.Equal(t, authority.Date, f.Kind)

	f, ok = authority.Lookup("unknown.field")
	assert.False(t, ok)
	assert.Equal(t, authority.Identity, f.Kind)

	assert.Len(t, authority.Fields(), 12)
	assert.Equal(t, "placecode", authority.PlaceCode.String())
}

func TestDecisionChanged(t *testing.T) {
	policy := authority.New(false)
	assert.True(t, policy.Decide(authority.BirthPlace, "", "Paris").Changed())
	assert.False(t, policy.Decide(authority.BirthPlace, "Paris", "Lyon").Changed())
}
