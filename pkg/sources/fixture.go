package sources

import (
	"context"
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
)

// Fixture serves person pages from memory. It backs offline replays and
// tests.
type Fixture struct {
	mu      sync.RWMutex
	people  map[string]genealogy.ExternalPerson
	fetches map[string]int
}

// fixtureFile is the YAML layout: a list of people keyed by their ref.
type fixtureFile struct {
	People []genealogy.ExternalPerson `yaml:"people"`
}

// NewFixture creates a fixture serving the given people.
func NewFixture(people ...genealogy.ExternalPerson) *Fixture {
	f := &Fixture{
		people:  make(map[string]genealogy.ExternalPerson, len(people)),
		fetches: make(map[string]int),
	}
	for _, p := range people {
		f.Add(p)
	}
	return f
}

// LoadFixture reads a fixture from a YAML file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, errors.WrapResource("read", "fixture", path, err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	for i, p := range file.People {
		if p.Ref == "" {
			return nil, errors.NewValidationError("people.ref", i, "person without a reference")
		}
	}
	return NewFixture(file.People...), nil
}

// Add registers or replaces a person.
func (f *Fixture) Add(p genealogy.ExternalPerson) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.people[p.Ref] = p
}

// ID implements Source.
func (f *Fixture) ID() ID {
	return FixtureID
}

// Fetch implements Source. Unknown references yield a not-found FetchError.
func (f *Fixture) Fetch(ctx context.Context, ref string) (*genealogy.ExternalPerson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[ref]++
	p, ok := f.people[ref]
	if !ok {
		return nil, errors.WrapFetch(ref, 404, errors.NewNotFoundError("page", ref))
	}
	p.Unions = append([]genealogy.Union(nil), p.Unions...)
	p.ParentRefs = append([]string(nil), p.ParentRefs...)
	return &p, nil
}

// Fetches returns how many times ref was requested.
func (f *Fixture) Fetches(ref string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetches[ref]
}
