package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/agentstation/geneasync/pkg/walker"
)

// Report is the printable form of a run result.
type Report struct {
	RunID    string   `json:"run_id" yaml:"run_id"`
	Summary  string   `json:"summary" yaml:"summary"`
	Aborted  bool     `json:"aborted" yaml:"aborted"`
	Stats    Stats    `json:"stats" yaml:"stats"`
	People   []Person `json:"people" yaml:"people"`
	Families []Family `json:"families" yaml:"families"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Stats are the run counters.
type Stats struct {
	PeopleVisited   int    `json:"people_visited" yaml:"people_visited"`
	PeopleCreated   int    `json:"people_created" yaml:"people_created"`
	PeopleUpdated   int    `json:"people_updated" yaml:"people_updated"`
	FamiliesCreated int    `json:"families_created" yaml:"families_created"`
	FamiliesUpdated int    `json:"families_updated" yaml:"families_updated"`
	ChildrenLinked  int    `json:"children_linked" yaml:"children_linked"`
	Conflicts       int    `json:"conflicts" yaml:"conflicts"`
	FetchFailures   int    `json:"fetch_failures" yaml:"fetch_failures"`
	DeepestLevel    int    `json:"deepest_level" yaml:"deepest_level"`
	Duration        string `json:"duration" yaml:"duration"`
}

// Person is one reconciled person.
type Person struct {
	Level   int    `json:"level" yaml:"level"`
	Ref     string `json:"ref" yaml:"ref"`
	LocalID string `json:"local_id" yaml:"local_id"`
	Name    string `json:"name" yaml:"name"`
	Action  string `json:"action" yaml:"action"`
}

// Family is one reconciled union.
type Family struct {
	LocalID  string `json:"local_id" yaml:"local_id"`
	FatherID string `json:"father_id,omitempty" yaml:"father_id,omitempty"`
	MotherID string `json:"mother_id,omitempty" yaml:"mother_id,omitempty"`
	Marriage string `json:"marriage,omitempty" yaml:"marriage,omitempty"`
	Children int    `json:"children" yaml:"children"`
	Action   string `json:"action" yaml:"action"`
}

// NewReport builds the report of a run. A nil result gives an empty report.
func NewReport(result *walker.Result) *Report {
	if result == nil {
		return &Report{}
	}

	stats := result.Metadata.Stats
	r := &Report{
		RunID:   result.RunID,
		Summary: result.Summary(),
		Aborted: result.Aborted,
		Stats: Stats{
			PeopleVisited:   stats.PeopleVisited,
			PeopleCreated:   stats.PeopleCreated,
			PeopleUpdated:   stats.PeopleUpdated,
			FamiliesCreated: stats.FamiliesCreated,
			FamiliesUpdated: stats.FamiliesUpdated,
			ChildrenLinked:  stats.ChildrenLinked,
			Conflicts:       stats.Conflicts,
			FetchFailures:   stats.FetchFailures,
			DeepestLevel:    stats.DeepestLevel,
			Duration:        result.Metadata.Duration.String(),
		},
		Warnings: result.Warnings,
	}

	for _, p := range result.People {
		r.People = append(r.People, Person{
			Level:   p.Level,
			Ref:     p.Ref(),
			LocalID: p.LocalID,
			Name:    p.Name(),
			Action:  action(p.Created),
		})
	}
	for _, f := range result.Families {
		r.Families = append(r.Families, Family{
			LocalID:  f.LocalID,
			FatherID: f.FatherID,
			MotherID: f.MotherID,
			Marriage: f.Marriage.Date,
			Children: len(f.ChildRefs),
			Action:   action(f.Created),
		})
	}
	for _, err := range result.Errors {
		r.Errors = append(r.Errors, err.Error())
	}
	return r
}

func action(created bool) string {
	if created {
		return "created"
	}
	return "updated"
}

// Write renders the report in the given format.
func Write(w io.Writer, format Format, r *Report) error {
	if format != FormatTable && format != "" {
		return NewFormatter(format).Format(w, r)
	}

	f := &TableFormatter{}
	if len(r.People) > 0 {
		if err := f.Format(w, peopleTable(r.People)); err != nil {
			return err
		}
	}
	if len(r.Families) > 0 {
		if err := f.Format(w, familiesTable(r.Families)); err != nil {
			return err
		}
	}
	if err := f.Format(w, r.Stats); err != nil {
		return err
	}
	for _, warning := range r.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "error: %s\n", e); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, r.Summary)
	return err
}

func peopleTable(people []Person) Data {
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{strconv.Itoa(p.Level), p.LocalID, p.Name, p.Ref, p.Action})
	}
	return Data{
		Headers:      []string{"Level", "ID", "Name", "Reference", "Action"},
		Rows:         rows,
		RightAligned: []int{0},
	}
}

func familiesTable(families []Family) Data {
	rows := make([][]string, 0, len(families))
	for _, f := range families {
		rows = append(rows, []string{f.LocalID, f.FatherID, f.MotherID, f.Marriage, strconv.Itoa(f.Children), f.Action})
	}
	return Data{
		Headers:      []string{"ID", "Father", "Mother", "Marriage", "Children", "Action"},
		Rows:         rows,
		RightAligned: []int{4},
	}
}
