package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync"
	"github.com/agentstation/geneasync/internal/cmd/output"
	"github.com/agentstation/geneasync/internal/store/memory"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/provenance"
)

const replay = `people:
  - ref: c
    firstname: Paul
    lastname: Dupont
    sex: male
    parents:
      - f
      - m
  - ref: f
    firstname: Jean
    lastname: Dupont
    sex: male
    birth:
      date: "1900-05-12"
    unions:
      - spouse: m
        children:
          - c
  - ref: m
    firstname: Marie
    lastname: Durand
    sex: female
`

type testApp struct {
	*App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp(t *testing.T, opts ...Option) *testApp {
	t.Helper()
	replayPath := filepath.Join(t.TempDir(), "replay.yaml")
	require.NoError(t, os.WriteFile(replayPath, []byte(replay), 0o600))

	ta := &testApp{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	base := []Option{
		WithConfig(&Config{Replay: replayPath, LogLevel: "error", LogFormat: "json", LogOutput: "stderr"}),
		WithOutput(ta.stdout, ta.stderr),
		WithForceDelay(0),
	}
	a, err := New("1.2.3", "abc123", "2026-10-19", "test", append(base, opts...)...)
	require.NoError(t, err)
	ta.App = a
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return ta
}

func (ta *testApp) report(t *testing.T) output.Report {
	t.Helper()
	var r output.Report
	require.NoError(t, json.Unmarshal(ta.stdout.Bytes(), &r))
	return r
}

func TestVersionCommand(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, ta.stdout.String(), "geneasync 1.2.3")
	assert.Contains(t, ta.stdout.String(), "abc123")
}

func TestImportAscendants(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.Execute(context.Background(), []string{"import", "-a", "-o", "json", "c"}))

	r := ta.report(t)
	require.Len(t, r.People, 3)
	assert.Equal(t, "Paul Dupont", r.People[0].Name)
	assert.Equal(t, 3, r.Stats.PeopleCreated)
	require.Len(t, r.Families, 1)
	assert.Equal(t, "created", r.Families[0].Action)
}

func TestImportDatabaseAndProvenance(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "family.yaml")
	prov := filepath.Join(dir, "provenance.yaml")

	ta := newTestApp(t)
	require.NoError(t, ta.Execute(context.Background(),
		[]string{"import", "-a", "-o", "yaml", "-g", db, "--provenance-out", prov, "c"}))
	require.NoError(t, ta.Shutdown(context.Background()))

	s, err := memory.Open(db)
	require.NoError(t, err)
	people, families, _, _ := s.Stats()
	assert.Equal(t, 3, people)
	assert.Equal(t, 1, families)

	f, err := provenance.Load(prov)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.NotEmpty(t, f.Provenance)
}

func conflictingStore() *memory.Store {
	s := memory.New()
	s.Load([]*genealogy.Person{{ID: "I0001", FirstName: "Jacques", LastName: "Dupont", Sex: genealogy.Male}}, nil, nil, nil)
	return s
}

func TestImportIdentityConflict(t *testing.T) {
	ta := newTestApp(t, WithClientOptions(geneasync.WithStore(conflictingStore())))

	err := ta.Execute(context.Background(), []string{"import", "-i", "I0001", "-o", "json", "f"})
	require.Error(t, err)
	assert.True(t, errors.IsIdentityConflict(err))

	assert.True(t, ta.report(t).Aborted)
	assert.Contains(t, ta.stderr.String(), "does not look like f")
	assert.Contains(t, ta.stderr.String(), "Jacques")
	assert.Contains(t, ta.stderr.String(), "--force")
}

func TestImportForce(t *testing.T) {
	ta := newTestApp(t, WithClientOptions(geneasync.WithStore(conflictingStore())))

	require.NoError(t, ta.Execute(context.Background(), []string{"import", "-f", "-i", "I0001", "-o", "json", "f"}))
	assert.Contains(t, ta.stderr.String(), "Force mode")

	r := ta.report(t)
	require.Len(t, r.People, 1)
	assert.Equal(t, "Jean Dupont", r.People[0].Name)
	assert.Equal(t, "I0001", r.People[0].LocalID)
}

func TestImportForceInterrupted(t *testing.T) {
	ta := newTestApp(t, WithForceDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ta.Execute(ctx, []string{"import", "-f", "c"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, ta.stderr.String(), "Ctrl+C")
}

func TestImportValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing reference", args: []string{"import"}},
		{name: "negative level", args: []string{"import", "-l", "-1", "c"}},
		{name: "unknown format", args: []string{"import", "-o", "xml", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			assert.Error(t, ta.Execute(context.Background(), tt.args))
			assert.Empty(t, ta.stdout.String())
		})
	}
}

func TestConfigFlagKeepsCommandLinePrecedence(t *testing.T) {
	dir := t.TempDir()
	replayPath := filepath.Join(dir, "replay.yaml")
	require.NoError(t, os.WriteFile(replayPath, []byte(replay), 0o600))
	configPath := writeConfig(t, "database: "+filepath.Join(dir, "from-file.yaml")+"\nreplay: "+replayPath+"\n")
	flagDB := filepath.Join(dir, "from-flag.yaml")

	ta := newTestApp(t)
	require.NoError(t, ta.Execute(context.Background(),
		[]string{"--config=" + configPath, "import", "-o", "json", "-g", flagDB, "c"}))

	assert.Equal(t, flagDB, ta.Config().Database)
	assert.Equal(t, replayPath, ta.Config().Replay)
	require.NoError(t, ta.Shutdown(context.Background()))

	_, err := os.Stat(flagDB)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "from-file.yaml"))
	assert.True(t, os.IsNotExist(err))
}
