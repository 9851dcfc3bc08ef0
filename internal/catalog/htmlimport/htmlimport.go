// Package htmlimport reads published programme, cutoff and subject tables out
// of an HTML page. Tables are recognised by their header row, so a page may
// carry any mix of them and unrelated tables are ignored.
package htmlimport

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
)

// Document is everything recovered from one page.
type Document struct {
	Subjects   []domain.SubjectReference
	Programmes []domain.ProgrammeRecord
	Cutoffs    []catalog.Cutoff
}

func (d Document) Empty() bool {
	return len(d.Subjects) == 0 && len(d.Programmes) == 0 && len(d.Cutoffs) == 0
}

type field int

const (
	fieldNone field = iota
	fieldCode
	fieldName
	fieldAbbreviation
	fieldInstitution
	fieldCounty
	fieldRegion
	fieldInstitutionType
	fieldCategoryTag
	fieldMeanGrade
	fieldCluster
	fieldCutoff
	fieldRequirement
)

var headerFields = map[string]field{
	"code": fieldCode, "programmecode": fieldCode, "progcode": fieldCode, "coursecode": fieldCode, "subjectcode": fieldCode,
	"name": fieldName, "programme": fieldName, "programmename": fieldName, "course": fieldName, "coursename": fieldName, "subject": fieldName, "subjectname": fieldName,
	"abbreviation": fieldAbbreviation, "abbr": fieldAbbreviation, "abbrev": fieldAbbreviation,
	"institution": fieldInstitution, "institutionname": fieldInstitution, "university": fieldInstitution, "college": fieldInstitution,
	"county":          fieldCounty,
	"region":          fieldRegion,
	"institutiontype": fieldInstitutionType, "type": fieldInstitutionType, "ownership": fieldInstitutionType,
	"category": fieldCategoryTag, "categorytag": fieldCategoryTag, "field": fieldCategoryTag,
	"meangrade": fieldMeanGrade, "minimummeangrade": fieldMeanGrade, "minmeangrade": fieldMeanGrade,
	"cluster": fieldCluster, "clusterno": fieldCluster, "clusternumber": fieldCluster,
	"cutoff": fieldCutoff, "cutoffpoints": fieldCutoff, "cutoffpoint": fieldCutoff,
}

var requirementHeader = regexp.MustCompile(`^(subject|subj|requirement|req)([1-9])$`)
var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// column is one recognised header cell. index is the requirement slot for
// fieldRequirement columns.
type column struct {
	field field
	index int
}

func classifyHeader(text string) column {
	key := nonAlnum.ReplaceAllString(strings.ToLower(text), "")
	if m := requirementHeader.FindStringSubmatch(key); m != nil {
		n, _ := strconv.Atoi(m[2])
		if n > domain.MaxRequirementFields {
			return column{}
		}
		return column{field: fieldRequirement, index: n - 1}
	}
	return column{field: headerFields[key]}
}

// Parse extracts every recognised table. Programme rows are tagged with
// category; a table with a cutoff column yields degree cutoff rows instead.
func Parse(r io.Reader, category domain.Category) (Document, error) {
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Document{}, fmt.Errorf("htmlimport: %w", err)
	}

	var doc Document
	var parseErr error
	page.Find("table").EachWithBreak(func(t int, table *goquery.Selection) bool {
		if err := parseTable(table, category, &doc); err != nil {
			parseErr = fmt.Errorf("htmlimport: table %d: %w", t+1, err)
			return false
		}
		return true
	})
	if parseErr != nil {
		return Document{}, parseErr
	}
	return doc, nil
}

func parseTable(table *goquery.Selection, category domain.Category, doc *Document) error {
	rows := table.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		// skip rows of nested tables
		return tr.Closest("table").IsSelection(table)
	})
	if rows.Length() < 2 {
		return nil
	}

	headerAt := 0
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if tr.Children().Filter("th").Length() > 0 {
			headerAt = i
			return false
		}
		return true
	})

	var columns []column
	present := map[field]bool{}
	rows.Eq(headerAt).Children().Filter("th, td").Each(func(_ int, cell *goquery.Selection) {
		col := classifyHeader(cell.Text())
		columns = append(columns, col)
		present[col.field] = true
	})

	kind := tableKind(present)
	if kind == "" {
		return nil
	}

	var rowErr error
	rows.Slice(headerAt+1, rows.Length()).EachWithBreak(func(i int, tr *goquery.Selection) bool {
		cells := tr.Children().Filter("td, th")
		// spanning banner and separator rows do not fill the header
		if cells.Length() < len(columns) {
			return true
		}
		values := make(map[column]string, len(columns))
		cells.Each(func(c int, cell *goquery.Selection) {
			if c < len(columns) && columns[c].field != fieldNone {
				values[columns[c]] = cellText(cell, columns[c].field)
			}
		})
		if values[column{field: fieldCode}] == "" && values[column{field: fieldName}] == "" {
			return true
		}

		var err error
		switch kind {
		case "subjects":
			doc.Subjects = append(doc.Subjects, subjectRow(values))
		case "cutoffs":
			var c catalog.Cutoff
			c, err = cutoffRow(values)
			doc.Cutoffs = append(doc.Cutoffs, c)
		case "programmes":
			var rec domain.ProgrammeRecord
			rec, err = programmeRow(values, category)
			doc.Programmes = append(doc.Programmes, rec)
		}
		if err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+1, err)
			return false
		}
		return true
	})
	return rowErr
}

func tableKind(present map[field]bool) string {
	switch {
	case present[fieldAbbreviation] && present[fieldCode]:
		return "subjects"
	case present[fieldCutoff] && present[fieldCode] && present[fieldCluster]:
		return "cutoffs"
	case present[fieldCode] && present[fieldName]:
		return "programmes"
	}
	return ""
}

// cellText keeps line structure for requirement cells, which the parser
// normalises itself, and collapses whitespace everywhere else.
func cellText(cell *goquery.Selection, f field) string {
	if f == fieldRequirement {
		return strings.TrimSpace(cell.Text())
	}
	return strings.Join(strings.Fields(cell.Text()), " ")
}

func subjectRow(values map[column]string) domain.SubjectReference {
	return domain.SubjectReference{
		Code:         domain.SubjectCode(values[column{field: fieldCode}]),
		Abbreviation: values[column{field: fieldAbbreviation}],
		Name:         values[column{field: fieldName}],
	}
}

func cutoffRow(values map[column]string) (catalog.Cutoff, error) {
	c := catalog.Cutoff{
		ProgrammeCode: values[column{field: fieldCode}],
		Name:          values[column{field: fieldName}],
		Institution:   values[column{field: fieldInstitution}],
	}
	cluster, err := strconv.Atoi(values[column{field: fieldCluster}])
	if err != nil {
		return c, fmt.Errorf("cluster %q: %w", values[column{field: fieldCluster}], err)
	}
	c.Cluster = cluster
	c.Cutoff, err = ParseCutoff(values[column{field: fieldCutoff}])
	return c, err
}

func programmeRow(values map[column]string, category domain.Category) (domain.ProgrammeRecord, error) {
	rec := domain.ProgrammeRecord{
		Category:        category,
		Code:            values[column{field: fieldCode}],
		Name:            values[column{field: fieldName}],
		Institution:     values[column{field: fieldInstitution}],
		County:          values[column{field: fieldCounty}],
		Region:          values[column{field: fieldRegion}],
		InstitutionType: values[column{field: fieldInstitutionType}],
		CategoryTag:     values[column{field: fieldCategoryTag}],
		MeanGrade:       values[column{field: fieldMeanGrade}],
	}
	var reqs [domain.MaxRequirementFields]string
	for i := range reqs {
		reqs[i] = values[column{field: fieldRequirement, index: i}]
	}
	rec.Requirements = catalog.TrimRequirements(reqs)

	if s := values[column{field: fieldCluster}]; s != "" {
		cluster, err := strconv.Atoi(s)
		if err != nil {
			return rec, fmt.Errorf("cluster %q: %w", s, err)
		}
		rec.Cluster = cluster
	}
	return rec, nil
}

// ParseCutoff reads a published cutoff. Blank, "-" and "N/A" mean the
// programme has no cutoff for that cluster.
func ParseCutoff(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "", "-", "N/A", "NA":
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("cutoff %q: %w", s, err)
	}
	return &v, nil
}

// Load writes doc into w: subjects first, then programmes, then cutoffs.
func Load(ctx context.Context, w catalog.Writer, doc Document) error {
	if err := w.InsertSubjects(ctx, doc.Subjects); err != nil {
		return fmt.Errorf("load subjects: %w", err)
	}
	if err := w.InsertProgrammes(ctx, doc.Programmes); err != nil {
		return fmt.Errorf("load programmes: %w", err)
	}
	if err := w.InsertCutoffs(ctx, doc.Cutoffs); err != nil {
		return fmt.Errorf("load cutoffs: %w", err)
	}
	return nil
}
