package geneasync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync/internal/store/memory"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/provenance"
	"github.com/agentstation/geneasync/pkg/sources"
	"github.com/agentstation/geneasync/pkg/walker"
)

const replay = `people:
  - ref: c
    firstname: Paul
    lastname: Dupont
    sex: male
    birth:
      date: "1926"
    parents:
      - f
      - m
  - ref: f
    firstname: Jean
    lastname: Dupont
    sex: male
    birth:
      date: "1900-05-12"
      place: Paris
      placecode: "75056"
    unions:
      - spouse: m
        marriage:
          date: "1925-06-20"
        children:
          - c
  - ref: m
    firstname: Marie
    lastname: Durand
    sex: female
`

func writeReplay(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(replay), 0o600))
	return path
}

func ascendants() walker.Config {
	return walker.Config{Ascendants: true, MaxLevel: 1, StartRef: "c"}
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, WithStore(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(ctx, WithDelay(5, 1))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(ctx, WithDelay(-1, 1))
	assert.True(t, errors.IsValidationError(err))

	_, err = New(ctx, WithReplay(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestImportWithReplay(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithReplay(writeReplay(t)))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	var created []string
	var families int
	c.OnPersonCreated(func(rec genealogy.PersonRecord) { created = append(created, rec.Ref()) })
	c.OnFamilyCreated(func(genealogy.FamilyRecord) { families++ })

	result, err := c.Import(ctx, ascendants())
	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, []string{"c", "f", "m"}, created)
	assert.Equal(t, 1, families)
	assert.Equal(t, "1925-06-20", result.Families[0].Marriage.Date)

	var updated int
	c.OnPersonUpdated(func(genealogy.PersonRecord) { updated++ })
	again, err := c.Import(ctx, ascendants())
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.Equal(t, result.Root.LocalID, again.Root.LocalID)
}

func TestImportWithStoreAndSource(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	src := sources.NewFixture(genealogy.ExternalPerson{Ref: "solo", FirstName: "Anne", LastName: "Martin"})

	c, err := New(ctx, WithStore(st), WithSource(src), WithDelay(0, 0), WithForce(true))
	require.NoError(t, err)
	assert.Same(t, st, c.Store())

	result, err := c.Import(ctx, walker.Config{StartRef: "solo"})
	require.NoError(t, err)
	assert.True(t, result.Metadata.Config.Force)
	assert.Equal(t, "Anne Martin", result.Root.Name())

	people, _, _, _ := st.Stats()
	assert.Equal(t, 1, people)
	require.NoError(t, c.Close())
}

func TestDatabaseSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "family.yaml")

	c, err := New(ctx, WithDatabase(path), WithReplay(writeReplay(t)))
	require.NoError(t, err)
	_, err = c.Import(ctx, ascendants())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := memory.Open(path)
	require.NoError(t, err)
	people, families, _, _ := reopened.Stats()
	assert.Equal(t, 3, people)
	assert.Equal(t, 1, families)
}

func TestDatabaseSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "family.db")

	c, err := New(ctx, WithDatabase(path), WithReplay(writeReplay(t)))
	require.NoError(t, err)
	result, err := c.Import(ctx, ascendants())
	require.NoError(t, err)
	assert.Equal(t, "I0001", result.Root.LocalID)
	require.NoError(t, c.Close())

	c, err = New(ctx, WithDatabase(path), WithReplay(writeReplay(t)))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	again, err := c.Import(ctx, ascendants())
	require.NoError(t, err)
	assert.Equal(t, "I0001", again.Root.LocalID)
	assert.False(t, again.Root.Created)
}

func TestIsSQLite(t *testing.T) {
	assert.True(t, isSQLite("family.db"))
	assert.True(t, isSQLite("family.SQLITE"))
	assert.False(t, isSQLite("family.yaml"))
	assert.False(t, isSQLite("family"))
}

func TestSaveProvenance(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithReplay(writeReplay(t)))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	result, err := c.Import(ctx, ascendants())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "provenance.yaml")
	require.NoError(t, c.SaveProvenance(path, result))

	f, err := provenance.Load(path)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, result.RunID, f.RunID)
	assert.Len(t, f.Provenance, len(result.Provenance))

	assert.True(t, errors.IsValidationError(c.SaveProvenance(path, nil)))
}

func TestSaveProvenanceDisabled(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, WithReplay(writeReplay(t)), WithProvenance(false))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	result, err := c.Import(ctx, ascendants())
	require.NoError(t, err)
	assert.Error(t, c.SaveProvenance(filepath.Join(t.TempDir(), "p.yaml"), result))
}
