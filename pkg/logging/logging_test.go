package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/geneasync/pkg/logging"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, logging.Default(), logging.FromContext(context.Background()))
	assert.Equal(t, logging.Default(), logging.FromContext(nil)) //nolint:staticcheck
	assert.Equal(t, logging.Default(), logging.FromContext(logging.WithLogger(context.Background(), nil)))
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := logging.WithLogger(context.Background(), &logger)
	ctx = logging.WithRunID(ctx, "run-1")
	ctx = logging.WithReference(ctx, "agnesy?n=bon&p=jean")
	ctx = logging.WithPerson(ctx, "I0001")
	ctx = logging.WithDepth(ctx, 2)
	ctx = logging.WithOperation(ctx, "person")

	logging.FromContext(ctx).Warn().Msg("reconciled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "agnesy?n=bon&p=jean", entry["ref"])
	assert.Equal(t, "I0001", entry["person_id"])
	assert.EqualValues(t, 2, entry["depth"])
	assert.Equal(t, "person", entry["operation"])
	assert.Equal(t, "warn", entry[zerolog.LevelFieldName])
	assert.Equal(t, "run-1", logging.RunID(ctx))
	assert.Empty(t, logging.RunID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"DEBUG":    zerolog.DebugLevel,
		" warn ":   zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), "input %q", in)
	}
}

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.InfoLevel},
		{1, zerolog.DebugLevel},
		{2, zerolog.TraceLevel},
		{5, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, logging.LevelForVerbosity(tt.verbosity))
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger := logging.New(logging.Config{Level: "warn", Format: "json", Output: path})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("dropped")
	logger.Warn().Str("field", "birth.date").Msg("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"field":"birth.date"`)
}

func TestConfigure(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { *logging.Default() = original })

	logging.Configure(logging.Config{Level: "error", Output: "discard"})
	assert.Equal(t, zerolog.ErrorLevel, logging.Default().GetLevel())
}

func TestRecorder(t *testing.T) {
	rec := logging.NewRecorder(t)
	ctx := logging.WithDepth(rec.Context(context.Background()), 1)

	logging.FromContext(ctx).Warn().Str("field", "sex").Msg("Not copying")
	logging.FromContext(ctx).Warn().Str("field", "firstname").Msg("Not copying")
	logging.FromContext(ctx).Trace().Msg("Merging fields")

	rec.AssertLogged(t, "Merging fields")
	got := rec.Messages("Not copying")
	require.Len(t, got, 2)
	assert.Equal(t, "firstname", got[1]["field"])
	assert.EqualValues(t, 1, got[0]["depth"])
	assert.Len(t, rec.Entries(), 3)
}
