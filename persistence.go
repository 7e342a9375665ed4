package geneasync

import (
	"time"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/provenance"
	"github.com/agentstation/geneasync/pkg/walker"
)

// Compile-time interface check to ensure proper implementation.
var _ Persistence = (*client)(nil)

// Persistence handles run artifacts.
type Persistence interface {
	// SaveProvenance writes the provenance of a run as YAML
	SaveProvenance(path string, result *walker.Result) error
}

// SaveProvenance writes every merge decision of the run to path.
func (c *client) SaveProvenance(path string, result *walker.Result) error {
	if result == nil {
		return &errors.ValidationError{Field: "result", Message: "cannot be nil"}
	}
	if !c.options.provenance {
		return &errors.ConfigError{
			Component: "provenance",
			Message:   "provenance tracking is disabled",
		}
	}

	return provenance.Save(path, &provenance.File{
		RunID:       result.RunID,
		GeneratedAt: time.Now().UTC(),
		Provenance:  result.Provenance,
	})
}
