package eligibility

import (
	"course-eligibility/internal/domain"
	"course-eligibility/internal/requirements"
)

// Gate names a check a programme must pass.
type Gate string

const (
	GateClusterCutoff Gate = "cluster_cutoff"
	GateRegion        Gate = "region_filter"
	GateMeanGrade     Gate = "mean_grade"
	GateSubjects      Gate = "subject_requirements"
)

// cutoffTolerance absorbs float noise in published cutoffs and computed weights.
const cutoffTolerance = 1e-9

// Passes is the degree cluster gate. A programme without a published cutoff
// passes.
func Passes(weight float64, cutoff *float64) bool {
	if cutoff == nil {
		return true
	}
	return weight >= *cutoff-cutoffTolerance
}

// capabilities selects which gates a category runs. Gates always run in the
// order cluster, region, mean grade, subjects; the first failure stops the
// record.
type capabilities struct {
	clusterGate         bool
	regionFilter        bool
	meanGradeGate       bool
	subjectRequirements bool
	// detailLookup: listings carry summaries and each survivor needs a
	// detail fetch before its subjects can be checked.
	detailLookup bool
}

type pipeline struct {
	category domain.Category
	caps     capabilities
	variant  requirements.Variant
}

var pipelines = map[domain.Category]pipeline{
	domain.CategoryDegree: {
		category: domain.CategoryDegree,
		caps:     capabilities{clusterGate: true, subjectRequirements: true, detailLookup: true},
		variant:  requirements.VariantFor(domain.CategoryDegree),
	},
	domain.CategoryDiploma: {
		category: domain.CategoryDiploma,
		caps:     capabilities{meanGradeGate: true, subjectRequirements: true},
		variant:  requirements.VariantFor(domain.CategoryDiploma),
	},
	domain.CategoryCertificate: {
		category: domain.CategoryCertificate,
		caps:     capabilities{meanGradeGate: true, subjectRequirements: true},
		variant:  requirements.VariantFor(domain.CategoryCertificate),
	},
	domain.CategoryMedicalTraining: {
		category: domain.CategoryMedicalTraining,
		caps:     capabilities{meanGradeGate: true, subjectRequirements: true},
		variant:  requirements.VariantFor(domain.CategoryMedicalTraining),
	},
	domain.CategoryArtisan: {
		category: domain.CategoryArtisan,
		caps:     capabilities{regionFilter: true, meanGradeGate: true},
	},
}

// regionFilter is the artisan membership check. An empty set matches
// anything.
type regionFilter struct {
	categoryTags     map[string]bool
	counties         map[string]bool
	institutionTypes map[string]bool
}

func (f regionFilter) matches(rec domain.ProgrammeRecord) bool {
	return member(f.categoryTags, rec.CategoryTag) &&
		member(f.counties, rec.County) &&
		member(f.institutionTypes, rec.InstitutionType)
}

func member(set map[string]bool, v string) bool {
	if len(set) == 0 {
		return true
	}
	return set[normalizeKey(v)]
}

// tally is the per-record bookkeeping merged into Stats. Workers fill their
// own tally and the engine sums them, so nothing is shared while gating.
type tally struct {
	scanned       int
	rejected      map[Gate]int
	skipped       int
	unparsed      int
	lenientGrades int
}

func newTally() tally {
	return tally{rejected: map[Gate]int{}}
}

func (t *tally) reject(g Gate) {
	t.rejected[g]++
}

func (t *tally) merge(o tally) {
	t.scanned += o.scanned
	t.skipped += o.skipped
	t.unparsed += o.unparsed
	t.lenientGrades += o.lenientGrades
	for g, n := range o.rejected {
		t.rejected[g] += n
	}
}

// evaluation carries what every gate needs for one request.
type evaluation struct {
	pipeline pipeline
	profile  domain.CandidateProfile
	parser   requirements.Parser
	region   regionFilter
}

// preGates runs every gate that does not need requirement text. weight is
// the candidate's weight for rec's cluster and is ignored by categories
// without a cluster gate.
func (e *evaluation) preGates(rec domain.ProgrammeRecord, weight float64, t *tally) bool {
	caps := e.pipeline.caps
	if caps.clusterGate && !Passes(weight, rec.Cutoff) {
		t.reject(GateClusterCutoff)
		return false
	}
	if caps.regionFilter && !e.region.matches(rec) {
		t.reject(GateRegion)
		return false
	}
	if caps.meanGradeGate {
		required := domain.ParseGrade(rec.MeanGrade)
		if !domain.Meets(e.profile.MeanGrade, required) {
			t.reject(GateMeanGrade)
			return false
		}
		if domain.Lenient(e.profile.MeanGrade, required) {
			t.lenientGrades++
		}
	}
	return true
}

// subjectGate parses and evaluates rec's requirement fields. The returned
// outcome is kept for logging.
func (e *evaluation) subjectGate(rec domain.ProgrammeRecord, t *tally) (requirements.Outcome, bool) {
	if !e.pipeline.caps.subjectRequirements {
		return requirements.Outcome{Satisfied: true}, true
	}
	reqs := e.parser.ParseAll(rec.Requirements, e.pipeline.variant)
	out := requirements.EvaluateDetailed(reqs, e.profile)
	t.unparsed += out.Unparsed
	t.lenientGrades += out.LenientGrades
	if !out.Satisfied {
		t.reject(GateSubjects)
		return out, false
	}
	return out, true
}

// project shapes a record that passed every gate.
func project(rec domain.ProgrammeRecord) domain.EligibleCourse {
	course := domain.EligibleCourse{
		Category:    rec.Category,
		Code:        rec.Code,
		Name:        rec.Name,
		Institution: rec.Institution,
		Location:    rec.County,
		MeanGrade:   rec.MeanGrade,
	}
	if course.Location == "" {
		course.Location = rec.Region
	}
	switch rec.Category {
	case domain.CategoryDegree:
		course.Cluster = rec.Cluster
		course.Cutoff = rec.Cutoff
	case domain.CategoryArtisan:
		course.InstitutionType = rec.InstitutionType
		course.CategoryTag = rec.CategoryTag
	}
	return course
}
