// Package walker drives a reconciliation run across the family graph.
//
// Starting from one external reference, the walker visits parents, spouses
// and children depending on the run configuration, one node at a time. Every
// visited node is reconciled once: records are kept in an arena keyed by
// external reference, and unions by the unordered pair of their parents,
// so a cycle in the source graph ends in a lookup rather than a re-fetch.
package walker

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
	"github.com/agentstation/geneasync/pkg/logging"
	"github.com/agentstation/geneasync/pkg/reconciler"
)

// Walker traverses the graph for one run. It is not safe for concurrent use.
type Walker struct {
	rec reconciler.Reconciler
	cfg Config

	people   map[string]*genealogy.PersonRecord // by external reference
	families map[string]*genealogy.FamilyRecord // by UnionKey
	visited  map[string]bool
	linked   map[string]bool // family id + child id
	order    []string

	result *Result
}

// New creates a walker.
func New(rec reconciler.Reconciler, cfg Config) *Walker {
	w := &Walker{rec: rec, cfg: cfg}
	w.reset("")
	return w
}

func (w *Walker) reset(runID string) {
	w.people = make(map[string]*genealogy.PersonRecord)
	w.families = make(map[string]*genealogy.FamilyRecord)
	w.visited = make(map[string]bool)
	w.linked = make(map[string]bool)
	w.order = nil
	w.result = NewResult(runID, w.cfg)
}

// Run walks the graph from the configured start person.
func (w *Walker) Run(ctx context.Context) (*Result, error) {
	if err := w.cfg.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	w.reset(runID)
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	logger.Info().
		Str("ref", w.cfg.StartRef).
		Str("id", w.cfg.StartLocalID).
		Bool("ascendants", w.cfg.Ascendants).
		Bool("descendants", w.cfg.Descendants).
		Bool("spouses", w.cfg.Spouses).
		Int("max_level", w.cfg.MaxLevel).
		Bool("force", w.rec.Force()).
		Msg("Starting run")

	root, err := w.Visit(ctx, w.cfg.StartRef, w.cfg.StartLocalID, 0)
	result := w.finish(root, err)
	if err != nil {
		logger.Error().Err(err).Msg("Run aborted")
		return result, err
	}
	if root == nil && len(result.Errors) > 0 {
		return result, result.Errors[0]
	}

	logger.Info().Msg(result.Summary())
	return result, nil
}

func (w *Walker) finish(root *genealogy.PersonRecord, err error) *Result {
	r := w.result
	r.Root = root
	r.Aborted = err != nil
	for _, ref := range w.order {
		r.People = append(r.People, w.people[ref])
	}

	stats := w.rec.Stats()
	r.Metadata.Stats.PeopleVisited = len(r.People)
	r.Metadata.Stats.PeopleCreated = stats.PeopleCreated
	r.Metadata.Stats.PeopleUpdated = stats.PeopleUpdated
	r.Metadata.Stats.FamiliesCreated = stats.FamiliesCreated
	r.Metadata.Stats.FamiliesUpdated = stats.FamiliesUpdated
	r.Metadata.Stats.ChildrenLinked = stats.ChildrenLinked
	r.Metadata.Stats.Conflicts = stats.Conflicts
	r.Metadata.Stats.FetchFailures = stats.FetchFailures

	if m := w.rec.Provenance().Map(); m != nil {
		r.Provenance = m
	}
	for key, conflicts := range w.rec.Provenance().Conflicts() {
		for _, c := range conflicts {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%s: kept %q over %q", key, c.Value, c.External))
		}
	}

	r.Finalize()
	return r
}

// Visit reconciles ref at level and continues the walk from it. A reference
// already in the arena returns its record without another fetch. It returns
// nil without error when the node failed and was skipped.
func (w *Walker) Visit(ctx context.Context, ref, localID string, level int) (*genealogy.PersonRecord, error) {
	return w.visit(ctx, ref, level, func(ctx context.Context) (*genealogy.PersonRecord, error) {
		return w.rec.Person(ctx, localID, ref)
	})
}

// visitRelative is Visit for a relative whose local identity is only hinted.
func (w *Walker) visitRelative(ctx context.Context, ref string, candidates []string, level int) (*genealogy.PersonRecord, error) {
	return w.visit(ctx, ref, level, func(ctx context.Context) (*genealogy.PersonRecord, error) {
		return w.rec.Relative(ctx, ref, candidates)
	})
}

func (w *Walker) visit(ctx context.Context, ref string, level int, reconcile func(context.Context) (*genealogy.PersonRecord, error)) (*genealogy.PersonRecord, error) {
	if ref == "" {
		return nil, nil
	}
	if rec, ok := w.people[ref]; ok {
		return rec, nil
	}
	if w.visited[ref] {
		return nil, nil
	}
	w.visited[ref] = true

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx = logging.WithDepth(ctx, level)

	rec, err := reconcile(ctx)
	if err != nil {
		return nil, w.fail(ctx, err)
	}
	rec.Level = level
	w.people[ref] = rec
	w.order = append(w.order, ref)
	if level > w.result.Metadata.Stats.DeepestLevel {
		w.result.Metadata.Stats.DeepestLevel = level
	}

	logging.FromContext(ctx).Info().
		Str("id", rec.LocalID).
		Str("name", rec.Name()).
		Bool("created", rec.Created).
		Msg("Visited person")

	if w.cfg.Ascendants {
		if err := w.ascend(ctx, rec); err != nil {
			return rec, err
		}
	}
	if w.cfg.Spouses || w.cfg.Descendants {
		if err := w.unions(ctx, rec); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

// ascend visits both parents one generation up and links rec to their union.
func (w *Walker) ascend(ctx context.Context, rec *genealogy.PersonRecord) error {
	next := rec.Level + 1
	if next > w.cfg.MaxLevel {
		return nil
	}
	firstRef, secondRef := rec.External.Parents()
	if firstRef == "" && secondRef == "" {
		return nil
	}

	// Page order says nothing about which local parent is which, so both
	// recorded parents are offered to each page parent and matched by sex.
	candidates := []string{rec.Local.FatherID, rec.Local.MotherID}
	first, err := w.visitRelative(ctx, firstRef, candidates, next)
	if err != nil {
		return err
	}
	if first != nil {
		candidates = slices.DeleteFunc(candidates, func(id string) bool { return id == first.LocalID })
	}
	second, err := w.visitRelative(ctx, secondRef, candidates, next)
	if err != nil {
		return err
	}

	fam, err := w.family(ctx, first, second)
	if err != nil || fam == nil {
		return err
	}
	return w.addChild(ctx, fam, rec)
}

// unions binds rec with each of its spouses and, for descendants runs,
// walks the children of every union one generation down.
func (w *Walker) unions(ctx context.Context, rec *genealogy.PersonRecord) error {
	for _, u := range rec.External.Unions {
		spouse, err := w.Visit(ctx, u.SpouseRef, "", rec.Level)
		if err != nil {
			return err
		}
		if spouse == nil && !w.cfg.Descendants {
			continue
		}

		fam, err := w.family(ctx, rec, spouse)
		if err != nil {
			return err
		}
		if fam == nil || !w.cfg.Descendants {
			continue
		}

		next := rec.Level + 1
		if next > w.cfg.MaxLevel {
			continue
		}
		for _, childRef := range u.ChildRefs {
			child, err := w.Visit(ctx, childRef, "", next)
			if err != nil {
				return err
			}
			if child == nil {
				continue
			}
			if err := w.addChild(ctx, fam, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// family binds the union of a and b once per run. The pair is oriented by
// sex: a known female first or a known male second swaps it, otherwise the
// first record takes the father slot. The arena is keyed by the unordered
// pair, so the same couple seen from the other spouse is not bound again.
func (w *Walker) family(ctx context.Context, a, b *genealogy.PersonRecord) (*genealogy.FamilyRecord, error) {
	if localID(a) == "" && localID(b) == "" {
		return nil, nil
	}

	key := genealogy.UnionKey(localID(a), localID(b))
	if fam, ok := w.families[key]; ok {
		return fam, nil
	}

	father, mother := orient(a, b)
	fam, err := w.rec.Family(ctx, father, mother)
	if err != nil {
		return nil, w.fail(ctx, err)
	}
	w.families[key] = fam
	w.result.Families = append(w.result.Families, fam)
	return fam, nil
}

func (w *Walker) addChild(ctx context.Context, fam *genealogy.FamilyRecord, child *genealogy.PersonRecord) error {
	key := fam.LocalID + ":" + child.LocalID
	if w.linked[key] {
		return nil
	}
	if err := w.rec.AddChild(ctx, fam, child); err != nil {
		return w.fail(ctx, err)
	}
	w.linked[key] = true
	return nil
}

// fail returns err when it must stop the walk. Any other error is recorded
// and the walk goes on without the failing node.
func (w *Walker) fail(ctx context.Context, err error) error {
	if errors.IsIdentityConflict(err) || errors.IsCanceled(err) {
		return err
	}
	logging.FromContext(ctx).Warn().Err(err).Msg("Skipping node")
	w.result.Errors = append(w.result.Errors, err)
	return nil
}

func orient(a, b *genealogy.PersonRecord) (father, mother *genealogy.PersonRecord) {
	if a.Sex() == genealogy.Female || b.Sex() == genealogy.Male {
		return b, a
	}
	return a, b
}

func localID(rec *genealogy.PersonRecord) string {
	if rec == nil {
		return ""
	}
	return rec.LocalID
}
