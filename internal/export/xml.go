package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"course-eligibility/internal/domain"
)

/*
<EligibilityResult request_id="..." category="degree" generated_ts="2026-01-05T10:00:00Z">
  <Course>
    <code>1111</code>
    <name>Bachelor of Science (Computer Science)</name>
    <institution>University of Nairobi</institution>
    <cluster>5</cluster>
    <cutoff>40.512</cutoff>
  </Course>
</EligibilityResult>
*/

type xmlResult struct {
	XMLName     xml.Name    `xml:"EligibilityResult"`
	RequestID   string      `xml:"request_id,attr,omitempty"`
	Category    string      `xml:"category,attr"`
	GeneratedTS string      `xml:"generated_ts,attr,omitempty"`
	Courses     []xmlCourse `xml:"Course"`
}

type xmlCourse struct {
	Code        string `xml:"code"`
	Name        string `xml:"name,omitempty"`
	Institution string `xml:"institution,omitempty"`
	Location    string `xml:"location,omitempty"`

	InstitutionType string `xml:"institution_type,omitempty"`
	CategoryTag     string `xml:"category_tag,omitempty"`
	MeanGrade       string `xml:"mean_grade,omitempty"`

	Cluster string `xml:"cluster,omitempty"`
	Cutoff  string `xml:"cutoff,omitempty"`
}

// Meta heads an XML export.
type Meta struct {
	RequestID string
	Category  domain.Category
	// Generated is omitted when zero.
	Generated time.Time
}

// WriteXML writes courses as a single EligibilityResult document.
func WriteXML(w io.Writer, meta Meta, courses []domain.EligibleCourse) error {
	out := xmlResult{
		RequestID: meta.RequestID,
		Category:  string(meta.Category),
		Courses:   make([]xmlCourse, 0, len(courses)),
	}
	if !meta.Generated.IsZero() {
		out.GeneratedTS = meta.Generated.UTC().Format(time.RFC3339)
	}

	for _, c := range courses {
		row := xmlCourse{
			Code:            clean(c.Code),
			Name:            clean(c.Name),
			Institution:     clean(c.Institution),
			Location:        clean(c.Location),
			InstitutionType: clean(c.InstitutionType),
			CategoryTag:     clean(c.CategoryTag),
			MeanGrade:       clean(c.MeanGrade),
			Cutoff:          formatCutoff(c.Cutoff),
		}
		if c.Cluster > 0 {
			row.Cluster = strconv.Itoa(c.Cluster)
		}
		out.Courses = append(out.Courses, row)
	}

	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("export: marshal xml: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("export: write xml: %w", err)
	}
	return nil
}

// WriteFile picks the format from the file extension: ".xml" writes XML,
// anything else CSV.
func WriteFile(path string, meta Meta, courses []domain.EligibleCourse) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}

	if isXML(path) {
		err = WriteXML(f, meta, courses)
	} else {
		err = WriteCSV(f, courses)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
