// Package eligibility decides which catalog programmes a KCSE candidate
// qualifies for. One generic pipeline serves every category; a per-category
// capability set picks the gates it runs.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/concurrency"
	"course-eligibility/internal/domain"
	"course-eligibility/internal/metrics"
	"course-eligibility/internal/requirements"
	"course-eligibility/internal/subjects"
)

// ArtisanFilter narrows artisan programmes. Empty CategoryTags or Counties
// match anything; InstitutionType is a specific type, "All" or "".
type ArtisanFilter struct {
	CategoryTags    []string `json:"categories,omitempty"`
	Counties        []string `json:"counties,omitempty"`
	InstitutionType string   `json:"institution_type,omitempty"`
}

type Request struct {
	// RequestID correlates logs; one is generated when empty.
	RequestID string `json:"request_id,omitempty"`

	Category domain.Category `json:"category"`

	// MeanGrade is the candidate's overall grade ("B-").
	MeanGrade string `json:"mean_grade"`
	// SubjectGrades is keyed by numeric code ("121") or by an abbreviation
	// that names exactly one subject ("ENG").
	SubjectGrades map[string]string `json:"subject_grades"`

	// ClusterWeights is required for degree requests.
	ClusterWeights domain.ClusterWeights `json:"cluster_weights,omitempty"`

	Artisan ArtisanFilter `json:"artisan,omitempty"`
}

// Stats describes one determination.
type Stats struct {
	Scanned  int          `json:"scanned"`
	Admitted int          `json:"admitted"`
	Rejected map[Gate]int `json:"rejected"`
	// Duplicates were dropped after merging.
	Duplicates int `json:"duplicates"`
	// Skipped programmes had a failed detail lookup.
	Skipped int `json:"skipped"`
	// SkippedGroups are degree clusters whose listing failed.
	SkippedGroups []int `json:"skipped_groups,omitempty"`
	// UnparsedRequirements passed because their text could not be read.
	UnparsedRequirements int `json:"unparsed_requirements"`
	// LenientGrades passed because a grade was off the scale.
	LenientGrades int `json:"lenient_grades"`
}

// Result is a successful determination. Courses is never nil; an empty
// slice means the candidate qualifies for nothing in the category.
type Result struct {
	RequestID string                  `json:"request_id"`
	Category  domain.Category         `json:"category"`
	Courses   []domain.EligibleCourse `json:"courses"`
	Stats     Stats                   `json:"stats"`
}

type Engine struct {
	Catalog  catalog.Catalog
	Logger   *slog.Logger
	Metrics  *metrics.Recorder
	Parallel concurrency.ParallelOptions
}

// NewEngine wires an engine. logger and rec may be nil; maxWorkers <= 0
// uses the pool default.
func NewEngine(cat catalog.Catalog, logger *slog.Logger, rec *metrics.Recorder, maxWorkers int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	opts := concurrency.DefaultOptions()
	if maxWorkers > 0 {
		opts.MaxWorkers = maxWorkers
	}
	return &Engine{Catalog: cat, Logger: logger, Metrics: rec, Parallel: opts}
}

// DetermineEligibility evaluates req against its category's catalog.
//
// Errors are a *ValidationError (nothing was queried), an error wrapping
// catalog.ErrUnavailable, or ctx.Err(). On error no partial result is
// returned.
func (e *Engine) DetermineEligibility(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	logger := e.Logger.With("request_id", req.RequestID, "category", string(req.Category))

	res, err := e.determine(ctx, req, logger)

	label := string(req.Category)
	if _, known := pipelines[req.Category]; !known {
		label = "unknown"
	}
	outcome := Outcome(err)
	e.Metrics.ObserveEvaluation(label, outcome, time.Since(start))
	if err != nil {
		logger.Warn("eligibility determination failed", "outcome", outcome, "error", err)
		return Result{}, err
	}

	e.Metrics.ObserveAdmitted(label, len(res.Courses))
	for gate, n := range res.Stats.Rejected {
		e.Metrics.AddRejections(label, string(gate), n)
	}
	e.Metrics.AddLenient(label, "requirement", res.Stats.UnparsedRequirements)
	e.Metrics.AddLenient(label, "grade", res.Stats.LenientGrades)
	e.Metrics.AddLookupFailures(label, res.Stats.Skipped)

	logger.Info("eligibility determined",
		"scanned", res.Stats.Scanned,
		"admitted", res.Stats.Admitted,
		"skipped", res.Stats.Skipped,
		"duration", time.Since(start))
	return res, nil
}

// Outcome classifies a DetermineEligibility error for metrics and logs.
func Outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &verr):
		return metrics.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	case errors.Is(err, catalog.ErrUnavailable):
		return metrics.OutcomeUnavailable
	}
	return metrics.OutcomeError
}

func (e *Engine) determine(ctx context.Context, req Request, logger *slog.Logger) (Result, error) {
	p, ok := pipelines[req.Category]
	if !ok {
		verr := &ValidationError{}
		verr.add("category", "unknown category %q", req.Category)
		return Result{}, verr
	}

	// everything that needs no subject reference is checked before the
	// first catalog call
	verr := &ValidationError{}
	if p.caps.clusterGate {
		validateWeights(req.ClusterWeights, verr)
	}
	var region regionFilter
	var institutionTypesFilter []string
	if p.caps.regionFilter {
		types, ok := ResolveInstitutionTypes(req.Artisan.InstitutionType)
		institutionTypesFilter = types
		if !ok {
			verr.add("artisan.institution_type", "%q is not one of %v or %q", req.Artisan.InstitutionType, institutionTypes, InstitutionTypeAll)
		}
		region = regionFilter{
			categoryTags:     normalizeSet(req.Artisan.CategoryTags),
			counties:         normalizeSet(req.Artisan.Counties),
			institutionTypes: normalizeSet(types),
		}
	}
	validateMeanGrade(req.MeanGrade, verr)
	if err := verr.err(); err != nil {
		return Result{}, err
	}

	resolver, err := e.resolver(ctx, logger)
	if err != nil {
		return Result{}, err
	}

	verr = &ValidationError{}
	profile, lenientInputs := buildProfile(profileInput{MeanGrade: req.MeanGrade, SubjectGrades: req.SubjectGrades}, resolver, verr)
	if err := verr.err(); err != nil {
		return Result{}, err
	}
	if lenientInputs > 0 {
		logger.Warn("candidate grades off the KCSE scale kept as unknown", "count", lenientInputs)
	}

	ev := &evaluation{
		pipeline: p,
		profile:  profile,
		parser:   requirements.NewParser(resolver),
		region:   region,
	}

	var courses []domain.EligibleCourse
	t := newTally()
	var skippedGroups []int
	if p.caps.detailLookup {
		courses, skippedGroups, err = e.runClusters(ctx, ev, req.ClusterWeights, &t, logger)
	} else {
		q := catalog.Query{Category: p.category}
		if p.caps.regionFilter {
			q.CategoryTags = nonEmpty(req.Artisan.CategoryTags)
			q.Counties = nonEmpty(req.Artisan.Counties)
			q.InstitutionTypes = institutionTypesFilter
		}
		courses, err = e.runListing(ctx, ev, q, &t, logger)
	}
	if err != nil {
		return Result{}, err
	}

	deduped := Dedupe(courses)
	return Result{
		RequestID: req.RequestID,
		Category:  p.category,
		Courses:   deduped,
		Stats: Stats{
			Scanned:              t.scanned,
			Admitted:             len(deduped),
			Rejected:             t.rejected,
			Duplicates:           len(courses) - len(deduped),
			Skipped:              t.skipped,
			SkippedGroups:        skippedGroups,
			UnparsedRequirements: t.unparsed,
			LenientGrades:        t.lenientGrades + lenientInputs,
		},
	}, nil
}

// resolver builds the subject resolver from the catalog's reference table,
// falling back to the built-in KCSE table when the catalog has none.
func (e *Engine) resolver(ctx context.Context, logger *slog.Logger) (*subjects.Resolver, error) {
	refs, err := e.Catalog.SubjectReference(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("subject reference: %w", err)
	}
	if len(refs) == 0 {
		logger.Warn("catalog has no subject reference, using built-in table")
		refs = subjects.DefaultReference()
	}
	return subjects.NewResolver(refs), nil
}

// runListing evaluates a category served by one listing call whose rows
// carry everything the gates need.
func (e *Engine) runListing(ctx context.Context, ev *evaluation, q catalog.Query, t *tally, logger *slog.Logger) ([]domain.EligibleCourse, error) {
	records, err := e.Catalog.ListProgrammes(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("list %s programmes: %w", q.Category, err)
	}

	courses := make([]domain.EligibleCourse, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t.scanned++
		if rec.Category == "" {
			rec.Category = q.Category
		}
		if !ev.preGates(rec, 0, t) {
			continue
		}
		out, ok := ev.subjectGate(rec, t)
		logUnparsed(logger, rec, out)
		if !ok {
			continue
		}
		courses = append(courses, project(rec))
	}
	return courses, nil
}

type clusterRun struct {
	courses []domain.EligibleCourse
	tally   tally
	err     error
	// lookups is the number of detail lookups attempted; unavailable holds
	// the ones that failed with catalog.ErrUnavailable.
	lookups     int
	unavailable []error
}

// runClusters fans out one task per cluster and merges in ascending cluster
// order. A cluster whose listing fails is skipped; if all fail the joined
// error is returned. The same holds for detail lookups: when every lookup
// failed as unavailable and nothing was admitted, the evaluation fails
// rather than reporting an empty result.
func (e *Engine) runClusters(ctx context.Context, ev *evaluation, weights domain.ClusterWeights, t *tally, logger *slog.Logger) ([]domain.EligibleCourse, []int, error) {
	clusters := sortedClusters(weights)
	runs := make([]clusterRun, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	for i, cluster := range clusters {
		i, cluster := i, cluster
		g.Go(func() error {
			runs[i] = e.runCluster(gctx, ev, cluster, weights[cluster], logger)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var courses []domain.EligibleCourse
	var skipped []int
	var errs, unavailable []error
	lookups := 0
	for i, run := range runs {
		lookups += run.lookups
		unavailable = append(unavailable, run.unavailable...)
		if run.err != nil {
			skipped = append(skipped, clusters[i])
			errs = append(errs, run.err)
			logger.Warn("skipping cluster", "cluster", clusters[i], "error", run.err)
			continue
		}
		t.merge(run.tally)
		courses = append(courses, run.courses...)
	}
	if len(clusters) > 0 && len(errs) == len(clusters) {
		return nil, nil, errors.Join(errs...)
	}
	if len(courses) == 0 && lookups > 0 && len(unavailable) == lookups {
		return nil, nil, errors.Join(append(errs, unavailable...)...)
	}
	return courses, skipped, nil
}

func (e *Engine) runCluster(ctx context.Context, ev *evaluation, cluster int, weight float64, logger *slog.Logger) clusterRun {
	run := clusterRun{tally: newTally()}

	summaries, err := e.Catalog.ListProgrammes(ctx, catalog.Query{Category: domain.CategoryDegree, Cluster: cluster})
	if err != nil {
		run.err = fmt.Errorf("cluster %d: %w", cluster, err)
		return run
	}

	candidates := make([]domain.ProgrammeRecord, 0, len(summaries))
	for _, s := range summaries {
		run.tally.scanned++
		if s.Cluster == 0 {
			s.Cluster = cluster
		}
		if ev.preGates(s, weight, &run.tally) {
			candidates = append(candidates, s)
		}
	}

	details, errs := concurrency.ProcessParallel(ctx, candidates, e.Parallel,
		func(ctx context.Context, _ int, s domain.ProgrammeRecord) (*domain.ProgrammeRecord, error) {
			rec, err := e.Catalog.ProgrammeDetail(ctx, domain.CategoryDegree, s.Code)
			if err != nil {
				return nil, fmt.Errorf("programme %s: %w", s.Code, err)
			}
			return &rec, nil
		})
	if ctx.Err() != nil {
		return run
	}
	run.lookups = len(candidates)
	for _, err := range errs {
		logger.Debug("degree detail lookup failed", "cluster", cluster, "error", err)
		if errors.Is(err, catalog.ErrUnavailable) {
			run.unavailable = append(run.unavailable, err)
		}
	}

	for i, s := range candidates {
		if details[i] == nil {
			run.tally.skipped++
			continue
		}
		rec := mergeDetail(s, *details[i])
		out, ok := ev.subjectGate(rec, &run.tally)
		logUnparsed(logger, rec, out)
		if !ok {
			continue
		}
		run.courses = append(run.courses, project(rec))
	}
	return run
}

// mergeDetail completes a cutoff-table summary with its detail row. The
// cluster and cutoff always come from the summary.
func mergeDetail(summary, detail domain.ProgrammeRecord) domain.ProgrammeRecord {
	rec := detail
	rec.Category = domain.CategoryDegree
	rec.Code = summary.Code
	rec.Cluster = summary.Cluster
	rec.Cutoff = summary.Cutoff
	if rec.Name == "" {
		rec.Name = summary.Name
	}
	if rec.Institution == "" {
		rec.Institution = summary.Institution
	}
	return rec
}

func logUnparsed(logger *slog.Logger, rec domain.ProgrammeRecord, out requirements.Outcome) {
	if out.Unparsed == 0 {
		return
	}
	logger.Warn("requirement text not understood, treated as satisfied",
		"code", rec.Code, "unparsed", out.Unparsed)
}

func sortedClusters(weights domain.ClusterWeights) []int {
	clusters := make([]int, 0, len(weights))
	for c := range weights {
		clusters = append(clusters, c)
	}
	sort.Ints(clusters)
	return clusters
}
