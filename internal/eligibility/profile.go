package eligibility

import (
	"math"
	"sort"
	"strings"

	"course-eligibility/internal/domain"
	"course-eligibility/internal/subjects"
)

// InstitutionTypeAll selects every institution type.
const InstitutionTypeAll = "All"

var institutionTypes = []string{
	"Ministry of Education",
	"Ministry of Labour",
	"Ministry of Agriculture",
	"Ministry of Health",
	"Private",
}

// InstitutionTypes lists the artisan institution types a selector can name.
func InstitutionTypes() []string {
	return append([]string(nil), institutionTypes...)
}

// ResolveInstitutionTypes expands a selector into the set of types to match.
// "" and "All" expand to every type; a specific type is matched
// case-insensitively and returned in canonical form.
func ResolveInstitutionTypes(selector string) ([]string, bool) {
	s := strings.TrimSpace(selector)
	if s == "" || strings.EqualFold(s, InstitutionTypeAll) {
		return InstitutionTypes(), true
	}
	for _, t := range institutionTypes {
		if strings.EqualFold(s, t) {
			return []string{t}, true
		}
	}
	return nil, false
}

// profileInput is the candidate half of a Request.
type profileInput struct {
	MeanGrade     string
	SubjectGrades map[string]string
}

// buildProfile keys every subject grade by numeric code, reporting keys that
// do not resolve to exactly one subject. The mean grade is checked earlier by
// validateMeanGrade. Subjects with a blank grade are treated as not taken.
// The returned count is the number of grades that were kept although they
// could not be placed on the scale.
func buildProfile(in profileInput, resolver *subjects.Resolver, verr *ValidationError) (domain.CandidateProfile, int) {
	profile := domain.CandidateProfile{SubjectGrades: make(map[domain.SubjectCode]domain.Grade, len(in.SubjectGrades))}

	profile.MeanGrade = domain.ParseGrade(in.MeanGrade)

	// sorted so duplicate reports name the same key on every run
	keys := make([]string, 0, len(in.SubjectGrades))
	for k := range in.SubjectGrades {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lenient := 0
	seen := make(map[domain.SubjectCode]string, len(keys))
	for _, key := range keys {
		grade := domain.ParseGrade(in.SubjectGrades[key])
		if grade == domain.GradeNone {
			continue
		}

		codes := resolver.Resolve(key)
		switch len(codes) {
		case 0:
			verr.add("subject_grades."+key, "unknown subject")
			continue
		case 1:
		default:
			verr.add("subject_grades."+key, "ambiguous abbreviation, use one of the codes %v", codes)
			continue
		}

		code := codes[0]
		if prev, dup := seen[code]; dup {
			verr.add("subject_grades."+key, "same subject as %q", prev)
			continue
		}
		seen[code] = key

		if !grade.Valid() {
			lenient++
		}
		profile.SubjectGrades[code] = grade
	}
	return profile, lenient
}

func validateMeanGrade(s string, verr *ValidationError) {
	switch g := domain.ParseGrade(s); {
	case g == domain.GradeNone:
		verr.add("mean_grade", "is required")
	case !g.Valid():
		verr.add("mean_grade", "%q is not a KCSE grade", s)
	}
}

func validateWeights(weights domain.ClusterWeights, verr *ValidationError) {
	for _, cluster := range sortedClusters(weights) {
		w := weights[cluster]
		if cluster < 1 {
			verr.add("cluster_weights", "cluster %d is not a cluster number", cluster)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			verr.add("cluster_weights", "cluster %d has a non-finite weight", cluster)
		}
	}
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = normalizeKey(v); v != "" {
			set[v] = true
		}
	}
	return set
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
