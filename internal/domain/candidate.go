package domain

// SubjectCode is the three-digit KCSE subject code ("121").
type SubjectCode string

// SubjectReference is one row of the subject reference table.
type SubjectReference struct {
	Code         SubjectCode `json:"code"`
	Abbreviation string      `json:"abbreviation"`
	Name         string      `json:"name,omitempty"`
}

// CandidateProfile is the student's KCSE result. A subject missing from
// SubjectGrades is not held, which is different from holding an E.
type CandidateProfile struct {
	MeanGrade     Grade
	SubjectGrades map[SubjectCode]Grade
}

// Grade returns the candidate's grade in a subject and whether it is held.
func (p CandidateProfile) Grade(code SubjectCode) (Grade, bool) {
	g, ok := p.SubjectGrades[code]
	return g, ok
}
