// Package export renders eligibility results as files for counsellors and
// downstream placement systems.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"course-eligibility/internal/domain"
)

// Keep header order EXACT; placement imports read columns by position.
var csvHeader = []string{
	"CATEGORY",
	"PROGRAMME_CODE",
	"PROGRAMME_NAME",
	"INSTITUTION",
	"LOCATION",
	"INSTITUTION_TYPE",
	"CATEGORY_TAG",
	"MEAN_GRADE",
	"CLUSTER",
	"CUTOFF",
}

// WriteCSV writes one row per course. Columns that do not apply to a
// course's category are left empty.
func WriteCSV(w io.Writer, courses []domain.EligibleCourse) error {
	cw := csv.NewWriter(w)
	// match typical spreadsheet exports
	cw.UseCRLF = true

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, c := range courses {
		if err := cw.Write(toRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toRow(c domain.EligibleCourse) []string {
	cluster := ""
	if c.Cluster > 0 {
		cluster = strconv.Itoa(c.Cluster)
	}

	return []string{
		string(c.Category),       // CATEGORY
		clean(c.Code),            // PROGRAMME_CODE
		clean(c.Name),            // PROGRAMME_NAME
		clean(c.Institution),     // INSTITUTION
		clean(c.Location),        // LOCATION
		clean(c.InstitutionType), // INSTITUTION_TYPE
		clean(c.CategoryTag),     // CATEGORY_TAG
		clean(c.MeanGrade),       // MEAN_GRADE
		cluster,                  // CLUSTER
		formatCutoff(c.Cutoff),   // CUTOFF
	}
}

// formatCutoff renders a published cutoff as written ("40.512"). No cutoff
// is an empty cell.
func formatCutoff(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// clean folds line breaks that came through from scraped catalog text.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
