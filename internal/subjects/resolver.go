// Package subjects maps between numeric KCSE subject codes and the
// abbreviations used inside catalog requirement text.
package subjects

import (
	"regexp"
	"sort"
	"strings"

	"course-eligibility/internal/domain"
)

var numericCode = regexp.MustCompile(`^\d{3}$`)

// Resolver is a read-only bidirectional lookup built once per evaluation
// session from the subject reference table. An abbreviation may map to
// several codes (e.g. "MAT" for both mathematics syllabi).
type Resolver struct {
	codeToAbbr  map[domain.SubjectCode]string
	abbrToCodes map[string][]domain.SubjectCode
}

// NewResolver indexes the reference rows. Rows with an empty code are ignored.
func NewResolver(refs []domain.SubjectReference) *Resolver {
	r := &Resolver{
		codeToAbbr:  make(map[domain.SubjectCode]string, len(refs)),
		abbrToCodes: make(map[string][]domain.SubjectCode, len(refs)),
	}
	for _, ref := range refs {
		code := domain.SubjectCode(strings.TrimSpace(string(ref.Code)))
		if code == "" {
			continue
		}
		abbr := strings.TrimSpace(ref.Abbreviation)
		r.codeToAbbr[code] = abbr

		key := NormalizeAbbreviation(abbr)
		if key == "" {
			continue
		}
		r.add(key, code)

		if base := baseAbbreviation(abbr); base != "" && base != key {
			r.add(base, code)
		}
	}
	for k := range r.abbrToCodes {
		sort.Slice(r.abbrToCodes[k], func(i, j int) bool { return r.abbrToCodes[k][i] < r.abbrToCodes[k][j] })
	}
	return r
}

func (r *Resolver) add(key string, code domain.SubjectCode) {
	for _, c := range r.abbrToCodes[key] {
		if c == code {
			return
		}
	}
	r.abbrToCodes[key] = append(r.abbrToCodes[key], code)
}

// NormalizeAbbreviation uppercases and strips whitespace and dots so "Mat A",
// "MAT A" and "MATA" share a key.
func NormalizeAbbreviation(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	return strings.ReplaceAll(s, ".", "")
}

// baseAbbreviation strips a trailing single-letter syllabus variant:
// "MAT A" -> "MAT". Other multi-word abbreviations have no base.
func baseAbbreviation(abbr string) string {
	fields := strings.Fields(strings.ToUpper(abbr))
	if len(fields) < 2 || len(fields[len(fields)-1]) != 1 {
		return ""
	}
	return NormalizeAbbreviation(strings.Join(fields[:len(fields)-1], ""))
}

// Abbreviation returns the abbreviation recorded for a code.
func (r *Resolver) Abbreviation(code domain.SubjectCode) (string, bool) {
	abbr, ok := r.codeToAbbr[code]
	return abbr, ok
}

// Codes returns every code an abbreviation denotes, sorted. The result must
// not be modified.
func (r *Resolver) Codes(abbr string) []domain.SubjectCode {
	return r.abbrToCodes[NormalizeAbbreviation(abbr)]
}

// Known reports whether code is in the reference table.
func (r *Resolver) Known(code domain.SubjectCode) bool {
	_, ok := r.codeToAbbr[code]
	return ok
}

// Resolve accepts either identifier form and returns the codes it denotes.
// A numeric code resolves to itself even when it is not in the table.
func (r *Resolver) Resolve(id string) []domain.SubjectCode {
	id = strings.TrimSpace(id)
	if numericCode.MatchString(id) {
		return []domain.SubjectCode{domain.SubjectCode(id)}
	}
	return r.Codes(id)
}

// Len is the number of codes in the table.
func (r *Resolver) Len() int { return len(r.codeToAbbr) }
