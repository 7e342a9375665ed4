package walker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync/internal/store/memory"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/reconciler"
	"github.com/agentstation/geneasync/pkg/sources"
	"github.com/agentstation/geneasync/pkg/walker"
)

// family returns a three-generation paternal line:
//
//	gf + gm -> f
//	f + m   -> c
func family() []genealogy.ExternalPerson {
	return []genealogy.ExternalPerson{
		{
			Ref: "c", FirstName: "Paul", LastName: "Dupont", Sex: genealogy.Male,
			Birth:      genealogy.Event{Date: "1926-03-04"},
			ParentRefs: []string{"f", "m"},
		},
		{
			Ref: "f", FirstName: "Jean", LastName: "Dupont", Sex: genealogy.Male,
			Birth:      genealogy.Event{Date: "1900-05-12", Place: "Paris", PlaceCode: "75056"},
			ParentRefs: []string{"gf", "gm"},
			Unions: []genealogy.Union{{
				SpouseRef: "m",
				Marriage:  genealogy.Event{Date: "1925-06-20"},
				ChildRefs: []string{"c"},
			}},
		},
		{
			Ref: "m", FirstName: "Marie", LastName: "Durand", Sex: genealogy.Female,
			Birth:  genealogy.Event{Date: "1902"},
			Unions: []genealogy.Union{{SpouseRef: "f", ChildRefs: []string{"c"}}},
		},
		{
			Ref: "gf", FirstName: "Pierre", LastName: "Dupont", Sex: genealogy.Male,
			Birth:  genealogy.Event{Date: "1870"},
			Unions: []genealogy.Union{{SpouseRef: "gm", ChildRefs: []string{"f"}}},
		},
		{
			Ref: "gm", FirstName: "Anne", LastName: "Martin", Sex: genealogy.Female,
			Birth: genealogy.Event{Date: "1872"},
		},
	}
}

type fixture struct {
	store  *memory.Store
	source *sources.Fixture
	rec    reconciler.Reconciler
}

func newFixture(t *testing.T, people []genealogy.ExternalPerson, opts ...reconciler.Option) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), source: sources.NewFixture(people...)}
	rec, err := reconciler.New(f.store, f.source, opts...)
	require.NoError(t, err)
	f.rec = rec
	return f
}

func (f *fixture) run(t *testing.T, ctx context.Context, cfg walker.Config) (*walker.Result, error) {
	t.Helper()
	return walker.New(f.rec, cfg).Run(ctx)
}

func (f *fixture) family(t *testing.T, id string) *genealogy.Family {
	t.Helper()
	tx, err := f.store.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	fam, err := tx.Family(id)
	require.NoError(t, err)
	return fam
}

func refs(people []*genealogy.PersonRecord) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.Ref())
	}
	return out
}

func TestAscendantsDepthBound(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Ascendants: true,
		MaxLevel:   1,
		StartRef:   "c",
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, []string{"c", "f", "m"}, refs(result.People))
	assert.Zero(t, f.source.Fetches("gf"))
	assert.Zero(t, f.source.Fetches("gm"))
	assert.Equal(t, 1, result.Metadata.Stats.DeepestLevel)
	assert.Equal(t, 3, result.Metadata.Stats.PeopleCreated)
	assert.Equal(t, 1, result.Metadata.Stats.ChildrenLinked)

	require.Len(t, result.Families, 1)
	fam := f.family(t, result.Families[0].LocalID)
	assert.Equal(t, "I0002", fam.FatherID)
	assert.Equal(t, "I0003", fam.MotherID)
	assert.Equal(t, []string{result.Root.LocalID}, fam.ChildIDs)
	assert.Equal(t, "I0001", result.Root.LocalID)
}

func TestAscendantsTwoGenerations(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Ascendants: true,
		MaxLevel:   2,
		StartRef:   "c",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "f", "gf", "gm", "m"}, refs(result.People))
	assert.Len(t, result.Families, 2)
	assert.Equal(t, 2, result.People[2].Level)
}

func TestNoTraversal(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{StartRef: "c", MaxLevel: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, refs(result.People))
	assert.Empty(t, result.Families)
}

func TestSpouseCycle(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Spouses:  true,
		StartRef: "f",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.source.Fetches("f"))
	assert.Equal(t, 1, f.source.Fetches("m"))
	require.Len(t, result.Families, 1)
	assert.Equal(t, "f", result.Families[0].FatherRef)
	assert.Equal(t, "m", result.Families[0].MotherRef)
	assert.Equal(t, "1925-06-20", result.Families[0].Marriage.Date)
	assert.Zero(t, f.source.Fetches("c"))
}

func TestSpouseOrientation(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Spouses:  true,
		StartRef: "m",
	})
	require.NoError(t, err)
	require.Len(t, result.Families, 1)
	assert.Equal(t, "f", result.Families[0].FatherRef)
	assert.Equal(t, "m", result.Families[0].MotherRef)
}

func TestDescendants(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Descendants: true,
		MaxLevel:    1,
		StartRef:    "f",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "m", "c"}, refs(result.People))
	assert.Equal(t, 1, f.source.Fetches("c"))
	assert.Equal(t, 1, result.People[2].Level)

	require.Len(t, result.Families, 1)
	fam := f.family(t, result.Families[0].LocalID)
	assert.Equal(t, []string{result.People[2].LocalID}, fam.ChildIDs)
	assert.Equal(t, 1, result.Metadata.Stats.ChildrenLinked)
}

func TestDescendantsDepthBound(t *testing.T) {
	f := newFixture(t, family())
	result, err := f.run(t, context.Background(), walker.Config{
		Descendants: true,
		MaxLevel:    0,
		StartRef:    "f",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "m"}, refs(result.People))
	assert.Zero(t, f.source.Fetches("c"))
}

func TestIdentityConflictAbortsRun(t *testing.T) {
	seed := func(s *memory.Store) {
		s.Load(
			[]*genealogy.Person{
				{ID: "I0001", FirstName: "Paul", LastName: "Dupont", Sex: genealogy.Male, ParentFamilyIDs: []string{"F0001"}},
				{ID: "I0002", FirstName: "Jacques", LastName: "Dupont", Sex: genealogy.Male, FamilyIDs: []string{"F0001"}},
				{ID: "I0003", FirstName: "Marie", LastName: "Durand", Sex: genealogy.Female, FamilyIDs: []string{"F0001"}},
			},
			[]*genealogy.Family{{ID: "F0001", FatherID: "I0002", MotherID: "I0003", ChildIDs: []string{"I0001"}}},
			nil,
			nil,
		)
	}
	cfg := walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c", StartLocalID: "I0001"}

	t.Run("aborts", func(t *testing.T) {
		f := newFixture(t, family())
		seed(f.store)

		result, err := f.run(t, context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, errors.IsIdentityConflict(err))
		assert.True(t, result.Aborted)
		assert.False(t, result.IsSuccess())
		assert.Contains(t, result.Summary(), "aborted")
		assert.Zero(t, f.source.Fetches("m"))
		assert.Equal(t, []string{"c"}, refs(result.People))
	})

	t.Run("force", func(t *testing.T) {
		f := newFixture(t, family(), reconciler.WithForce(true))
		seed(f.store)

		result, err := f.run(t, context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "f", "m"}, refs(result.People))
		assert.Equal(t, "I0002", result.People[1].LocalID)
		assert.Equal(t, "Jean", result.People[1].Resolved.FirstName)
		require.Len(t, result.Families, 1)
		assert.Equal(t, "F0001", result.Families[0].LocalID)
		assert.False(t, result.Families[0].Created)
	})
}

func TestAscendantsBindParentBySex(t *testing.T) {
	people := []genealogy.ExternalPerson{
		{Ref: "c", FirstName: "Paul", LastName: "Dupont", Sex: genealogy.Male, ParentRefs: []string{"m"}},
		{Ref: "m", FirstName: "Marie", LastName: "Durand", Sex: genealogy.Female},
	}
	f := newFixture(t, people)
	f.store.Load(
		[]*genealogy.Person{
			{ID: "I0001", FirstName: "Paul", LastName: "Dupont", Sex: genealogy.Male, ParentFamilyIDs: []string{"F0001"}},
			{ID: "I0002", FirstName: "Jean", LastName: "Dupont", Sex: genealogy.Male, FamilyIDs: []string{"F0001"}},
			{ID: "I0003", FirstName: "Marie", LastName: "Durand", Sex: genealogy.Female, FamilyIDs: []string{"F0001"}},
		},
		[]*genealogy.Family{{ID: "F0001", FatherID: "I0002", MotherID: "I0003", ChildIDs: []string{"I0001"}}},
		nil,
		nil,
	)

	result, err := f.run(t, context.Background(), walker.Config{
		Ascendants:   true,
		MaxLevel:     1,
		StartRef:     "c",
		StartLocalID: "I0001",
	})
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, []string{"c", "m"}, refs(result.People))
	assert.Equal(t, "I0003", result.People[1].LocalID)
	assert.False(t, result.People[1].Created)
	assert.Zero(t, result.Metadata.Stats.Conflicts)

	require.Len(t, result.Families, 1)
	assert.Equal(t, "I0003", result.Families[0].MotherID)
}

func TestUnionOfUnknownSexSpousesBoundOnce(t *testing.T) {
	people := []genealogy.ExternalPerson{
		{
			Ref: "a", FirstName: "Camille", LastName: "Roux",
			Unions: []genealogy.Union{{SpouseRef: "b", ChildRefs: []string{"k"}}},
		},
		{
			Ref: "b", FirstName: "Dominique", LastName: "Blanc",
			Unions: []genealogy.Union{{SpouseRef: "a", ChildRefs: []string{"k"}}},
		},
		{Ref: "k", FirstName: "Claude", LastName: "Roux"},
	}
	f := newFixture(t, people)
	cfg := walker.Config{Spouses: true, Descendants: true, MaxLevel: 1, StartRef: "a"}

	result, err := f.run(t, context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "k"}, refs(result.People))
	require.Len(t, result.Families, 1)
	assert.Equal(t, 1, result.Metadata.Stats.FamiliesCreated)
	assert.Equal(t, 1, result.Metadata.Stats.ChildrenLinked)
	fam := f.family(t, result.Families[0].LocalID)
	assert.Equal(t, []string{result.People[2].LocalID}, fam.ChildIDs)

	cfg.StartRef = "b"
	again, err := f.run(t, context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, again.Families, 1)
	assert.Equal(t, fam.ID, again.Families[0].LocalID)
	assert.False(t, again.Families[0].Created)

	_, families, _, _ := f.store.Stats()
	assert.Equal(t, 1, families)
	assert.Equal(t, []string{result.People[2].LocalID}, f.family(t, fam.ID).ChildIDs)
}

func TestLabelledParentRolesOrientUnknownSex(t *testing.T) {
	people := []genealogy.ExternalPerson{
		{Ref: "c", FirstName: "Claude", LastName: "Roux", ParentRefs: []string{"y", "x"}, FatherRef: "x", MotherRef: "y"},
		{Ref: "x", FirstName: "Camille", LastName: "Roux"},
		{Ref: "y", FirstName: "Dominique", LastName: "Blanc"},
	}
	f := newFixture(t, people)

	result, err := f.run(t, context.Background(), walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "x", "y"}, refs(result.People))
	require.Len(t, result.Families, 1)
	assert.Equal(t, "x", result.Families[0].FatherRef)
	assert.Equal(t, "y", result.Families[0].MotherRef)
}

func TestVisitLogsDepth(t *testing.T) {
	f := newFixture(t, family())
	logs := logging.NewRecorder(t)

	_, err := f.run(t, logs.Context(context.Background()), walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c"})
	require.NoError(t, err)

	visited := logs.Messages("Visited person")
	require.Len(t, visited, 3)
	for i, entry := range visited {
		assert.Equal(t, "info", entry["level"])
		assert.EqualValues(t, min(i, 1), entry["depth"])
	}
}

func TestFetchFailureContinues(t *testing.T) {
	people := family()[:1]
	people = append(people, family()[2])
	f := newFixture(t, people)

	logs := logging.NewRecorder(t)
	ctx := logs.Context(context.Background())

	result, err := f.run(t, ctx, walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c"})
	require.NoError(t, err)
	assert.False(t, result.IsSuccess())
	require.Len(t, result.Errors, 1)
	assert.True(t, errors.IsNotFound(result.Errors[0]))
	assert.Equal(t, []string{"c", "m"}, refs(result.People))

	require.Len(t, result.Families, 1)
	assert.Empty(t, result.Families[0].FatherID)
	assert.Equal(t, result.People[1].LocalID, result.Families[0].MotherID)
	logs.AssertLogged(t, "Skipping node")
}

func TestStartFailure(t *testing.T) {
	f := newFixture(t, nil)
	result, err := f.run(t, context.Background(), walker.Config{StartRef: "missing"})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Nil(t, result.Root)
	assert.Contains(t, result.Summary(), "could not be reconciled")
}

func TestCanceled(t *testing.T) {
	f := newFixture(t, family())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.run(t, ctx, walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c"})
	require.Error(t, err)
	assert.True(t, errors.IsCanceled(err))
	assert.True(t, result.Aborted)
}

func TestConfigValidation(t *testing.T) {
	f := newFixture(t, family())
	_, err := f.run(t, context.Background(), walker.Config{})
	assert.True(t, errors.IsValidationError(err))

	_, err = f.run(t, context.Background(), walker.Config{StartRef: "c", MaxLevel: -1})
	assert.True(t, errors.IsValidationError(err))

	assert.Equal(t, 1, walker.DefaultConfig().MaxLevel)
}

func TestProvenanceAndWarnings(t *testing.T) {
	f := newFixture(t, family())
	s := f.store
	s.Load(
		[]*genealogy.Person{{ID: "I0001", FirstName: "Jean", LastName: "Dupont", Sex: genealogy.Female}},
		nil, nil, nil,
	)

	result, err := f.run(t, context.Background(), walker.Config{StartRef: "f", StartLocalID: "I0001"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Provenance)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "person:I0001:sex")
	assert.Equal(t, 1, result.Metadata.Stats.Conflicts)
}
