// Package provenance records, field by field, which side supplied each value
// written to the local store during a run.
package provenance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/geneasync/pkg/authority"
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
)

// ResourceType is the kind of local entity a field belongs to.
type ResourceType string

// Resource types.
const (
	ResourceTypePerson ResourceType = "person"
	ResourceTypeFamily ResourceType = "family"
)

// Provenance is one merge decision on one field.
type Provenance struct {
	Reference     string           `yaml:"reference,omitempty"` // external reference the value was compared with
	Field         string           `yaml:"field"`
	Value         string           `yaml:"value,omitempty"`
	PreviousValue string           `yaml:"previous,omitempty"`
	External      string           `yaml:"external,omitempty"`
	Winner        authority.Winner `yaml:"winner"`
	Reason        string           `yaml:"reason"`
	Conflict      bool             `yaml:"conflict,omitempty"`
	Timestamp     time.Time        `yaml:"timestamp"`
}

// FromDecision converts a merge decision.
func FromDecision(reference string, d authority.Decision) Provenance {
	return Provenance{
		Reference:     reference,
		Field:         d.Field,
		Value:         d.Resolved,
		PreviousValue: d.Local,
		External:      d.External,
		Winner:        d.Winner,
		Reason:        d.Reason,
		Conflict:      d.Conflict,
	}
}

// Map tracks provenance for multiple resources.
type Map map[string][]Provenance // key is "resourceType:resourceID:fieldPath"

// Tracker collects provenance during a run.
type Tracker interface {
	// Track records provenance for a field
	Track(resourceType ResourceType, resourceID string, history Provenance)

	// FindByField retrieves provenance for a specific field
	FindByField(resourceType ResourceType, resourceID string, field string) []Provenance

	// FindByResource retrieves all provenance for a resource
	FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance

	// Conflicts returns every recorded conflict, keyed like Map
	Conflicts() Map

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a tracker. A disabled tracker records nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

func (p *tracker) Track(resourceType ResourceType, resourceID string, history Provenance) {
	if !p.enabled {
		return
	}
	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}
	key := makeKey(resourceType, resourceID, history.Field)
	p.provenance[key] = append(p.provenance[key], history)
}

func (p *tracker) FindByField(resourceType ResourceType, resourceID string, field string) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(resourceType, resourceID, field)]
}

func (p *tracker) FindByResource(resourceType ResourceType, resourceID string) map[string][]Provenance {
	if !p.enabled {
		return nil
	}
	result := make(map[string][]Provenance)
	prefix := fmt.Sprintf("%s:%s:", resourceType, resourceID)
	for key, info := range p.provenance {
		if field, found := strings.CutPrefix(key, prefix); found {
			result[field] = info
		}
	}
	return result
}

func (p *tracker) Conflicts() Map {
	result := make(Map)
	for key, infos := range p.provenance {
		for _, info := range infos {
			if info.Conflict {
				result[key] = append(result[key], info)
			}
		}
	}
	return result
}

func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}
	result := make(Map)
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

func (p *tracker) Clear() {
	p.provenance = make(Map)
}

func makeKey(resourceType ResourceType, resourceID string, field string) string {
	return fmt.Sprintf("%s:%s:%s", resourceType, resourceID, field)
}

// Report groups provenance by resource.
type Report struct {
	Resources map[string]ResourceProvenance // key is "resourceType:resourceID"
}

// ResourceProvenance contains provenance for a single resource.
type ResourceProvenance struct {
	Type   ResourceType
	ID     string
	Fields map[string]Field
}

// Field contains the history of a single field, oldest first.
type Field struct {
	Current   Provenance
	History   []Provenance
	Conflicts []Provenance
}

// GenerateReport creates a report from a Map.
func GenerateReport(provenance Map) *Report {
	report := &Report{Resources: make(map[string]ResourceProvenance)}

	for key, infos := range provenance {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		resourceKey := parts[0] + ":" + parts[1]

		resource, exists := report.Resources[resourceKey]
		if !exists {
			resource = ResourceProvenance{
				Type:   ResourceType(parts[0]),
				ID:     parts[1],
				Fields: make(map[string]Field),
			}
		}

		history := append([]Provenance{}, infos...)
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})

		var field Field
		field.History = history
		if len(history) > 0 {
			field.Current = history[len(history)-1]
		}
		for _, info := range history {
			if info.Conflict {
				field.Conflicts = append(field.Conflicts, info)
			}
		}
		resource.Fields[parts[2]] = field
		report.Resources[resourceKey] = resource
	}
	return report
}

// ConflictCount returns the number of conflicting decisions in the report.
func (r *Report) ConflictCount() int {
	n := 0
	for _, resource := range r.Resources {
		for _, field := range resource.Fields {
			n += len(field.Conflicts)
		}
	}
	return n
}

// String renders the report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")

	resourceKeys := make([]string, 0, len(r.Resources))
	for key := range r.Resources {
		resourceKeys = append(resourceKeys, key)
	}
	sort.Strings(resourceKeys)

	for _, key := range resourceKeys {
		resource := r.Resources[key]
		fmt.Fprintf(&sb, "%s: %s\n", resource.Type, resource.ID)
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		fieldKeys := make([]string, 0, len(resource.Fields))
		for field := range resource.Fields {
			fieldKeys = append(fieldKeys, field)
		}
		sort.Strings(fieldKeys)

		for _, name := range fieldKeys {
			field := resource.Fields[name]
			fmt.Fprintf(&sb, "  %s: %q (%s, %s)\n", name, field.Current.Value, field.Current.Winner, field.Current.Reason)
			for _, c := range field.Conflicts {
				fmt.Fprintf(&sb, "    conflict: local %q, external %q from %s\n", c.PreviousValue, c.External, c.Reference)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// File is a provenance file stored on disk.
type File struct {
	RunID       string    `yaml:"run_id,omitempty"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Provenance  Map       `yaml:"provenance"`
}

// Save writes the file as YAML, creating parent directories.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return errors.WrapResource("marshal", "provenance", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapResource("create", "directory", dir, err)
		}
	}
	if err := os.WriteFile(path, data, constants.FilePermissions); err != nil {
		return errors.WrapResource("write", "provenance", path, err)
	}
	return nil
}

// Load reads a provenance file.
// Returns nil, nil if the file doesn't exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapResource("read", "provenance", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &f, nil
}
