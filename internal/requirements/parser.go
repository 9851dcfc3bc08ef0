// Package requirements parses the free-text subject requirements carried by
// catalog records and evaluates them against a candidate's grades.
//
// A field reads "<designator>[/<designator>...]: <grade>", e.g.
// "MAT A(121)/BIO(231): B+" or "121/231: B+". Designators are OR'd within a
// field; the fields of one record are AND'd.
package requirements

import (
	"regexp"
	"strings"

	"course-eligibility/internal/domain"
	"course-eligibility/internal/subjects"
)

// Status tells the evaluator how a field came out of the parser.
type Status int

const (
	// StatusAbsent: empty field, or nothing recoverable on the subject side.
	StatusAbsent Status = iota
	// StatusParsed: a usable requirement.
	StatusParsed
	// StatusUnparsed: the text is present but malformed. It is satisfied by
	// default and reported so data-quality problems stay visible.
	StatusUnparsed
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusParsed:
		return "parsed"
	case StatusUnparsed:
		return "unparsed"
	}
	return "invalid"
}

// Variant selects how subject designators are turned into codes.
type Variant int

const (
	// VariantEmbeddedCodes reads the three-digit codes written in each
	// designator: "ENG(101)/KIS(102): C+" or "101/102: C+".
	VariantEmbeddedCodes Variant = iota
	// VariantAbbreviations looks up designators that carry no code as
	// abbreviations: "BIO/CHE: C".
	VariantAbbreviations
)

// VariantFor returns the grammar variant a category's catalog is written in.
func VariantFor(c domain.Category) Variant {
	if c == domain.CategoryMedicalTraining {
		return VariantAbbreviations
	}
	return VariantEmbeddedCodes
}

// Requirement is one field: hold at least MinGrade in any of Alternatives.
type Requirement struct {
	Status       Status
	Alternatives []domain.SubjectCode
	MinGrade     domain.Grade
	Raw          string
	Reason       string // why a field is unparsed
}

var (
	lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")
	splitCode  = regexp.MustCompile(`\(\s*(\d)\s*(\d)\s*(\d)\s*\)`)
	slashSpace = regexp.MustCompile(`\s*/\s*`)
	parenSpace = regexp.MustCompile(`\s*\(\s*`)
	closeSpace = regexp.MustCompile(`\s+\)`)
	namedCode  = regexp.MustCompile(`[A-Za-z][A-Za-z.]*(?: +[A-Za-z.]+)+\(`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Normalize repairs the transcription irregularities found in catalog text:
// line breaks, codes split by a stray space ("(3 13)"), spaces around "/"
// and "(", and a subject name separated from its code ("MAT A (121)" becomes
// "MATA(121)").
func Normalize(text string) string {
	s := lineBreaks.Replace(text)
	s = splitCode.ReplaceAllString(s, "($1$2$3)")
	s = slashSpace.ReplaceAllString(s, "/")
	s = parenSpace.ReplaceAllString(s, "(")
	s = closeSpace.ReplaceAllString(s, ")")
	s = namedCode.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ReplaceAll(m, " ", "")
	})
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Parser turns requirement text into Requirements. The resolver is only
// consulted by VariantAbbreviations and may be nil otherwise.
type Parser struct {
	Resolver *subjects.Resolver
}

// NewParser returns a parser backed by r.
func NewParser(r *subjects.Resolver) Parser {
	return Parser{Resolver: r}
}

// Parse reads one field. It never fails: malformed text comes back as
// StatusUnparsed and empty text as StatusAbsent.
func (p Parser) Parse(text string, v Variant) Requirement {
	req := Requirement{Raw: text}

	norm := Normalize(text)
	if norm == "" {
		return req
	}

	switch n := strings.Count(norm, ":"); {
	case n == 0:
		return unparsed(req, "missing ':' separator")
	case n > 1:
		return unparsed(req, "more than one ':' separator")
	}

	lhs, rhs, _ := strings.Cut(norm, ":")

	grade := strings.ToUpper(strings.Join(strings.Fields(rhs), ""))
	grade = strings.TrimRight(grade, ".;,")
	if grade == "" {
		return unparsed(req, "no grade after ':'")
	}
	req.MinGrade = domain.ParseGrade(grade)

	designators, err := Tokenize(lhs)
	if err != nil {
		return unparsed(req, err.Error())
	}

	var codes []domain.SubjectCode
	switch v {
	case VariantAbbreviations:
		codes = p.abbreviationCodes(designators)
	default:
		codes = embeddedCodes(designators)
	}
	if len(codes) == 0 {
		// nothing recoverable on the subject side
		return Requirement{Raw: text}
	}

	req.Status = StatusParsed
	req.Alternatives = codes
	return req
}

// ParseAll parses up to domain.MaxRequirementFields fields, keeping Absent
// ones out of the result.
func (p Parser) ParseAll(fields []string, v Variant) []Requirement {
	if len(fields) > domain.MaxRequirementFields {
		fields = fields[:domain.MaxRequirementFields]
	}
	out := make([]Requirement, 0, len(fields))
	for _, f := range fields {
		req := p.Parse(f, v)
		if req.Status == StatusAbsent {
			continue
		}
		out = append(out, req)
	}
	return out
}

func unparsed(req Requirement, reason string) Requirement {
	req.Status = StatusUnparsed
	req.Reason = reason
	req.Alternatives = nil
	return req
}

func embeddedCodes(ds []Designator) []domain.SubjectCode {
	var out []domain.SubjectCode
	for _, d := range ds {
		for _, c := range d.Codes {
			out = appendUnique(out, domain.SubjectCode(c))
		}
	}
	return out
}

func (p Parser) abbreviationCodes(ds []Designator) []domain.SubjectCode {
	var out []domain.SubjectCode
	for _, d := range ds {
		// written codes win over the name
		if len(d.Codes) > 0 {
			for _, c := range d.Codes {
				out = appendUnique(out, domain.SubjectCode(c))
			}
			continue
		}
		if p.Resolver == nil {
			continue
		}
		for _, c := range p.Resolver.Resolve(d.Name) {
			out = appendUnique(out, c)
		}
	}
	return out
}

func appendUnique(list []domain.SubjectCode, c domain.SubjectCode) []domain.SubjectCode {
	for _, x := range list {
		if x == c {
			return list
		}
	}
	return append(list, c)
}
