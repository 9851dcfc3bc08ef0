package domain

import (
	"strings"
)

// Grade is a KCSE grade on the 12-point scale. The integer value is the rank
// (A=12 ... E=1), so grades compare with the usual operators once both are
// known to be valid.
type Grade int

const (
	// GradeUnknown is a token that is present but not on the scale.
	GradeUnknown Grade = -1
	// GradeNone is an absent/empty token.
	GradeNone Grade = 0

	GradeE      Grade = 1
	GradeDMinus Grade = 2
	GradeD      Grade = 3
	GradeDPlus  Grade = 4
	GradeCMinus Grade = 5
	GradeC      Grade = 6
	GradeCPlus  Grade = 7
	GradeBMinus Grade = 8
	GradeB      Grade = 9
	GradeBPlus  Grade = 10
	GradeAMinus Grade = 11
	GradeA      Grade = 12
)

var gradeByToken = map[string]Grade{
	"A":  GradeA,
	"A-": GradeAMinus,
	"B+": GradeBPlus,
	"B":  GradeB,
	"B-": GradeBMinus,
	"C+": GradeCPlus,
	"C":  GradeC,
	"C-": GradeCMinus,
	"D+": GradeDPlus,
	"D":  GradeD,
	"D-": GradeDMinus,
	"E":  GradeE,
}

var tokenByGrade = func() map[Grade]string {
	m := make(map[Grade]string, len(gradeByToken))
	for tok, g := range gradeByToken {
		m[g] = tok
	}
	return m
}()

// ParseGrade maps a grade token onto the scale. Case, inner whitespace and
// the "PLAIN" suffix used on KCSE result slips ("C plain") are tolerated.
// An empty token is GradeNone; anything else off the scale is GradeUnknown.
func ParseGrade(s string) Grade {
	tok := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if tok == "" {
		return GradeNone
	}
	tok = strings.TrimSuffix(tok, "(PLAIN)")
	tok = strings.TrimSuffix(tok, "PLAIN")
	tok = strings.ReplaceAll(tok, "PLUS", "+")
	tok = strings.ReplaceAll(tok, "MINUS", "-")
	// en dash / minus sign from copy-pasted documents
	tok = strings.NewReplacer("–", "-", "−", "-").Replace(tok)
	if g, ok := gradeByToken[tok]; ok {
		return g
	}
	return GradeUnknown
}

// Valid reports whether g is on the 12-point scale.
func (g Grade) Valid() bool { return g >= GradeE && g <= GradeA }

// Rank returns the ordinal rank (12..1) of a valid grade and 0 otherwise.
func (g Grade) Rank() int {
	if !g.Valid() {
		return 0
	}
	return int(g)
}

func (g Grade) String() string {
	switch g {
	case GradeNone:
		return ""
	case GradeUnknown:
		return "?"
	}
	if tok, ok := tokenByGrade[g]; ok {
		return tok
	}
	return "?"
}

// MarshalText renders the canonical token so grades serialise as "B+" rather than 10.
func (g Grade) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Grade) UnmarshalText(b []byte) error {
	*g = ParseGrade(string(b))
	return nil
}

// Meets reports whether candidate satisfies required.
//
// An absent requirement always passes. If either side is not a valid grade
// the comparison is lenient and passes as well; callers that need to know
// when that happened check Lenient.
func Meets(candidate, required Grade) bool {
	if required == GradeNone {
		return true
	}
	if Lenient(candidate, required) {
		return true
	}
	return candidate.Rank() >= required.Rank()
}

// Lenient reports whether Meets would pass only because a grade could not be
// placed on the scale.
func Lenient(candidate, required Grade) bool {
	if required == GradeNone {
		return false
	}
	return !candidate.Valid() || !required.Valid()
}

// MeetsToken is Meets over raw tokens.
func MeetsToken(candidate, required string) bool {
	return Meets(ParseGrade(candidate), ParseGrade(required))
}

// AllGrades lists the scale from best to worst.
func AllGrades() []Grade {
	out := make([]Grade, 0, 12)
	for g := GradeA; g >= GradeE; g-- {
		out = append(out, g)
	}
	return out
}
