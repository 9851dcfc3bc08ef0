package eligibility

import "course-eligibility/internal/domain"

// Dedupe drops repeated catalog codes, keeping the first occurrence and the
// original order. Courses without a code are always kept.
func Dedupe(courses []domain.EligibleCourse) []domain.EligibleCourse {
	out := make([]domain.EligibleCourse, 0, len(courses))
	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		if c.Code != "" {
			if seen[c.Code] {
				continue
			}
			seen[c.Code] = true
		}
		out = append(out, c)
	}
	return out
}
