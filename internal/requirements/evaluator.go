package requirements

import (
	"course-eligibility/internal/domain"
)

// Outcome is the detailed result of evaluating one record's requirements.
type Outcome struct {
	Satisfied bool
	// Failed is the first requirement the candidate did not meet.
	Failed *Requirement
	// Unparsed counts malformed fields that passed by default.
	Unparsed int
	// LenientGrades counts requirements that passed only because a grade was
	// off the scale.
	LenientGrades int
}

// Evaluate reports whether the candidate satisfies every requirement.
// An empty list is satisfied.
func Evaluate(reqs []Requirement, profile domain.CandidateProfile) bool {
	return EvaluateDetailed(reqs, profile).Satisfied
}

// EvaluateDetailed evaluates the conjunction and records which leniency
// branches were taken. It stops at the first failing requirement.
func EvaluateDetailed(reqs []Requirement, profile domain.CandidateProfile) Outcome {
	var out Outcome
	for i := range reqs {
		req := &reqs[i]
		switch req.Status {
		case StatusAbsent:
			continue
		case StatusUnparsed:
			out.Unparsed++
			continue
		}

		best, held := BestHeld(req.Alternatives, profile)
		if !held || !domain.Meets(best, req.MinGrade) {
			out.Failed = req
			return out
		}
		if domain.Lenient(best, req.MinGrade) {
			out.LenientGrades++
		}
	}
	out.Satisfied = true
	return out
}

// Satisfies evaluates a single requirement.
func Satisfies(req Requirement, profile domain.CandidateProfile) bool {
	if req.Status != StatusParsed {
		return true
	}
	best, held := BestHeld(req.Alternatives, profile)
	return held && domain.Meets(best, req.MinGrade)
}

// BestHeld scans every alternative and returns the candidate's best grade
// among those they hold. A grade off the scale only wins when nothing valid
// is held.
func BestHeld(alternatives []domain.SubjectCode, profile domain.CandidateProfile) (domain.Grade, bool) {
	best := domain.GradeNone
	held := false
	for _, code := range alternatives {
		g, ok := profile.Grade(code)
		if !ok {
			continue
		}
		if !held {
			best, held = g, true
			continue
		}
		if g.Valid() && (!best.Valid() || g.Rank() > best.Rank()) {
			best = g
		}
	}
	return best, held
}
