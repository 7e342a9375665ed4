package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// Recorder keeps the JSON lines a run logs so tests can inspect them.
type Recorder struct {
	Logger *zerolog.Logger
	buf    bytes.Buffer
}

// NewRecorder returns a recorder that logs at every level.
func NewRecorder(t testing.TB) *Recorder {
	t.Helper()
	r := &Recorder{}
	logger := zerolog.New(&r.buf).Level(zerolog.TraceLevel)
	r.Logger = &logger
	return r
}

// Context attaches the recording logger to ctx.
func (r *Recorder) Context(ctx context.Context) context.Context {
	return WithLogger(ctx, r.Logger)
}

// Entries decodes every recorded line. Lines that are not JSON are skipped.
func (r *Recorder) Entries() []map[string]any {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(r.buf.String()), "\n") {
		var entry map[string]any
		if json.Unmarshal([]byte(line), &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Messages returns the entries logged with msg.
func (r *Recorder) Messages(msg string) []map[string]any {
	var out []map[string]any
	for _, entry := range r.Entries() {
		if entry[zerolog.MessageFieldName] == msg {
			out = append(out, entry)
		}
	}
	return out
}

// AssertLogged fails t unless msg was logged at least once.
func (r *Recorder) AssertLogged(t testing.TB, msg string) {
	t.Helper()
	if len(r.Messages(msg)) == 0 {
		t.Errorf("no %q entry in log:\n%s", msg, r.buf.String())
	}
}
