package htmlimport

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
)

func TestDiffProgrammes(t *testing.T) {
	existing := []domain.ProgrammeRecord{
		{Code: "A1", Name: "Masonry", County: "NAIROBI", MeanGrade: "D"},
		{Code: "A2", Name: "Plumbing", MeanGrade: "D", Requirements: []string{"ENG(101): D"}},
		{Code: "A3", Name: "Welding", MeanGrade: "E"},
	}
	incoming := []domain.ProgrammeRecord{
		{Code: "A1", Name: "masonry ", County: "Nairobi", MeanGrade: "d plain"},
		{Code: "A2", Name: "Plumbing", MeanGrade: "D", Requirements: []string{"ENG(101): C"}},
		{Code: "A4", Name: "Tailoring", MeanGrade: "E"},
	}

	ch := DiffProgrammes(existing, incoming)
	assert.Equal(t, []string{"A4"}, ch.Create)
	assert.Equal(t, []string{"A2"}, ch.Update)
	assert.Equal(t, []string{"A3"}, ch.Stale)
	assert.False(t, ch.Empty())

	assert.True(t, DiffProgrammes(existing, existing).Empty())
}

func TestDiffCutoffs(t *testing.T) {
	existing := []catalog.Cutoff{
		{ProgrammeCode: "1111", Cluster: 1, Cutoff: ptr(42.512)},
		{ProgrammeCode: "1112", Cluster: 1},
		{ProgrammeCode: "1113", Cluster: 1, Cutoff: ptr(30)},
	}
	incoming := []catalog.Cutoff{
		{ProgrammeCode: "1111", Cluster: 1, Cutoff: ptr(42.5121)},
		{ProgrammeCode: "1112", Cluster: 1, Cutoff: ptr(35)},
		{ProgrammeCode: "1111", Cluster: 2, Cutoff: ptr(40)},
	}

	ch := DiffCutoffs(existing, incoming)
	assert.Equal(t, []string{"1111@2"}, ch.Create)
	assert.Equal(t, []string{"1112@1"}, ch.Update)
	assert.Equal(t, []string{"1113@1"}, ch.Stale)
}

func TestCutoffChanged(t *testing.T) {
	assert.False(t, cutoffChanged(nil, nil))
	assert.True(t, cutoffChanged(nil, ptr(1)))
	assert.True(t, cutoffChanged(ptr(1), nil))
	assert.False(t, cutoffChanged(ptr(40.5), ptr(40.5004)))
	assert.True(t, cutoffChanged(ptr(40.5), ptr(40.51)))
}

type planCatalog struct {
	listings map[string][]domain.ProgrammeRecord
	details  map[string]domain.ProgrammeRecord
}

func (p *planCatalog) ListProgrammes(_ context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	key := string(q.Category)
	if q.Category == domain.CategoryDegree {
		key = "degree:" + strings.Repeat("i", q.Cluster)
	}
	return p.listings[key], nil
}

func (p *planCatalog) ProgrammeDetail(_ context.Context, _ domain.Category, code string) (domain.ProgrammeRecord, error) {
	rec, ok := p.details[code]
	if !ok {
		return domain.ProgrammeRecord{}, catalog.ErrNotFound
	}
	return rec, nil
}

func (p *planCatalog) SubjectReference(context.Context) ([]domain.SubjectReference, error) {
	return nil, nil
}

func TestPlanDegreePage(t *testing.T) {
	doc, err := Parse(strings.NewReader(degreePage), domain.CategoryDegree)
	require.NoError(t, err)

	c := &planCatalog{
		listings: map[string][]domain.ProgrammeRecord{
			"degree:i": {
				{Code: "1111", Name: "Bachelor of Laws", Institution: "University of Nairobi", Cutoff: ptr(41.0)},
				{Code: "1199", Name: "Bachelor of Arts", Institution: "University of Nairobi", Cutoff: ptr(30.0)},
			},
		},
		details: map[string]domain.ProgrammeRecord{},
	}

	ch, err := Plan(context.Background(), c, doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"1111", "1112@1"}, ch.Create)
	assert.Equal(t, []string{"1111@1"}, ch.Update)
	assert.Equal(t, []string{"1199@1"}, ch.Stale)
}
