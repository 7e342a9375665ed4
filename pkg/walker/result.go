package walker

import (
	"fmt"
	"time"

	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/provenance"
)

// Result represents the outcome of a walk.
type Result struct {
	RunID string

	// Root is the start person, nil when it could not be reconciled.
	Root *genealogy.PersonRecord

	// Records in visit order
	People   []*genealogy.PersonRecord
	Families []*genealogy.FamilyRecord

	// Metadata
	Metadata ResultMetadata

	// Provenance tracking
	Provenance provenance.Map

	// Issues
	Errors   []error
	Warnings []string

	// Aborted is set when an identity conflict or cancellation stopped the walk.
	Aborted bool
}

// ResultMetadata contains metadata about the walk.
type ResultMetadata struct {
	// StartTime when the walk started
	StartTime time.Time

	// EndTime when the walk completed
	EndTime time.Time

	// Duration of the walk
	Duration time.Duration

	// Config the walk ran with
	Config Config

	// Statistics about the walk
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the walk.
type ResultStatistics struct {
	PeopleVisited   int
	PeopleCreated   int
	PeopleUpdated   int
	FamiliesCreated int
	FamiliesUpdated int
	ChildrenLinked  int
	Conflicts       int
	FetchFailures   int
	DeepestLevel    int
	TotalTimeMs     int64
}

// IsSuccess returns true if the walk completed without errors.
func (r *Result) IsSuccess() bool {
	return !r.Aborted && len(r.Errors) == 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	counts := fmt.Sprintf("%d people (%d created, %d updated), %d families (%d created), %d children linked, %d conflicts",
		s.PeopleVisited, s.PeopleCreated, s.PeopleUpdated,
		s.FamiliesCreated+s.FamiliesUpdated, s.FamiliesCreated,
		s.ChildrenLinked, s.Conflicts)

	switch {
	case r.Aborted:
		return fmt.Sprintf("Run aborted after %s", counts)
	case r.Root == nil:
		return "Run failed: the start person could not be reconciled"
	case len(r.Errors) > 0:
		return fmt.Sprintf("Run completed with %d errors. %s", len(r.Errors), counts)
	default:
		return fmt.Sprintf("Run completed. %s", counts)
	}
}

// NewResult creates a new result with defaults.
func NewResult(runID string, cfg Config) *Result {
	return &Result{
		RunID:      runID,
		Provenance: make(provenance.Map),
		Errors:     []error{},
		Warnings:   []string{},
		Metadata: ResultMetadata{
			StartTime: time.Now(),
			Config:    cfg,
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
}
