package eligibility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
	"course-eligibility/internal/metrics"
	"course-eligibility/internal/subjects"
)

// fakeCatalog ignores query filters so the engine's own filtering is what
// the tests observe.
type fakeCatalog struct {
	refs     []domain.SubjectReference
	records  map[domain.Category][]domain.ProgrammeRecord
	clusters map[int][]domain.ProgrammeRecord
	details  map[string]domain.ProgrammeRecord

	refErr     error
	listErr    error
	clusterErr map[int]error
	detailErr  map[string]error

	calls         atomic.Int32
	mu            sync.Mutex
	queries       []catalog.Query
	detailLookups []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		refs:       subjects.DefaultReference(),
		records:    map[domain.Category][]domain.ProgrammeRecord{},
		clusters:   map[int][]domain.ProgrammeRecord{},
		details:    map[string]domain.ProgrammeRecord{},
		clusterErr: map[int]error{},
		detailErr:  map[string]error{},
	}
}

func (f *fakeCatalog) ListProgrammes(ctx context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	if q.Category == domain.CategoryDegree {
		if err := f.clusterErr[q.Cluster]; err != nil {
			return nil, err
		}
		return f.clusters[q.Cluster], nil
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records[q.Category], nil
}

func (f *fakeCatalog) ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return domain.ProgrammeRecord{}, err
	}
	f.mu.Lock()
	f.detailLookups = append(f.detailLookups, code)
	f.mu.Unlock()

	if err := f.detailErr[code]; err != nil {
		return domain.ProgrammeRecord{}, err
	}
	rec, ok := f.details[code]
	if !ok {
		return domain.ProgrammeRecord{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, code)
	}
	return rec, nil
}

func (f *fakeCatalog) SubjectReference(ctx context.Context) ([]domain.SubjectReference, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.refs, f.refErr
}

func newTestEngine(cat catalog.Catalog) *Engine {
	return NewEngine(cat, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, 4)
}

func cutoff(v float64) *float64 { return &v }

func codesOf(courses []domain.EligibleCourse) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Code
	}
	return out
}

func TestDiplomaMeanGradeThenSubjects(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryDiploma] = []domain.ProgrammeRecord{
		{Code: "D1", Name: "Diploma in Statistics", Institution: "TUK", County: "Nairobi", MeanGrade: "C+", Requirements: []string{"MATA(121)/ENG(101): B"}},
		{Code: "D2", Name: "Diploma in Medicine", Institution: "KU", MeanGrade: "A-", Requirements: []string{"MATA(121)/ENG(101): B"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:      domain.CategoryDiploma,
		MeanGrade:     "B-",
		SubjectGrades: map[string]string{"121": "B+", "231": "C"},
	})
	require.NoError(t, err)

	require.Len(t, res.Courses, 1)
	got := res.Courses[0]
	assert.Equal(t, "D1", got.Code)
	assert.Equal(t, domain.CategoryDiploma, got.Category)
	assert.Equal(t, "Nairobi", got.Location)
	assert.Zero(t, got.Cluster)

	assert.Equal(t, 2, res.Stats.Scanned)
	assert.Equal(t, 1, res.Stats.Rejected[GateMeanGrade])
	assert.Zero(t, res.Stats.Rejected[GateSubjects])
	assert.NotEmpty(t, res.RequestID)
}

func TestDiplomaSubjectFailure(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryDiploma] = []domain.ProgrammeRecord{
		{Code: "D1", MeanGrade: "C", Requirements: []string{"MAT A(121): B", "ENG(101)/KIS(102): C"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:      domain.CategoryDiploma,
		MeanGrade:     "B",
		SubjectGrades: map[string]string{"121": "B", "101": "D+"},
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Courses)
	assert.Empty(t, res.Courses)
	assert.Equal(t, 1, res.Stats.Rejected[GateSubjects])
}

func TestUnparsedRequirementPassesAndIsCounted(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryCertificate] = []domain.ProgrammeRecord{
		{Code: "C1", MeanGrade: "D", Requirements: []string{"ENG(101) C", "KIS(102): C: D"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryCertificate,
		MeanGrade: "D+",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, codesOf(res.Courses))
	assert.Equal(t, 2, res.Stats.UnparsedRequirements)
}

func TestMedicalTrainingResolvesAbbreviations(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryMedicalTraining] = []domain.ProgrammeRecord{
		{Code: "K1", Name: "Diploma in Nursing", MeanGrade: "C", Requirements: []string{"BIO/BIO SCI: C+", "ENG/KIS: C"}},
		{Code: "K2", Name: "Diploma in Pharmacy", MeanGrade: "C", Requirements: []string{"CHE: B"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:      domain.CategoryMedicalTraining,
		MeanGrade:     "C+",
		SubjectGrades: map[string]string{"BIO": "B-", "KIS": "C", "CHE": "C"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"K1"}, codesOf(res.Courses))
}

func TestDegreeClusterGate(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[5] = []domain.ProgrammeRecord{
		{Code: "1111", Name: "BSc Computer Science", Institution: "UoN", Cutoff: cutoff(40.0)},
		{Code: "2222", Name: "BSc Actuarial Science", Institution: "UoN", Cutoff: cutoff(43.0)},
		{Code: "3333", Name: "BSc Mathematics", Institution: "JKUAT", Cutoff: cutoff(42.0)},
	}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111", Name: "Bachelor of Science (Computer Science)"}
	cat.details["2222"] = domain.ProgrammeRecord{Code: "2222"}
	cat.details["3333"] = domain.ProgrammeRecord{Code: "3333"}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{5: 42.0},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1111", "3333"}, codesOf(res.Courses))
	first := res.Courses[0]
	assert.Equal(t, 5, first.Cluster)
	require.NotNil(t, first.Cutoff)
	assert.InDelta(t, 40.0, *first.Cutoff, 1e-9)
	assert.Equal(t, "Bachelor of Science (Computer Science)", first.Name)
	assert.Equal(t, "UoN", first.Institution)

	assert.Equal(t, 1, res.Stats.Rejected[GateClusterCutoff])
	assert.NotContains(t, cat.detailLookups, "2222")
}

func TestDegreeRequirementsFromDetail(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[1] = []domain.ProgrammeRecord{{Code: "1111", Name: "Law"}}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111", Requirements: []string{"ENG(101)/KIS(102): B+"}}

	engine := newTestEngine(cat)
	res, err := engine.DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B+",
		SubjectGrades:  map[string]string{"101": "B", "102": "A-"},
		ClusterWeights: domain.ClusterWeights{1: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1111"}, codesOf(res.Courses))

	res, err = engine.DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B+",
		SubjectGrades:  map[string]string{"101": "B"},
		ClusterWeights: domain.ClusterWeights{1: 30},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Courses)
	assert.Equal(t, 1, res.Stats.Rejected[GateSubjects])
}

func TestDegreeDedupesAcrossClustersInClusterOrder(t *testing.T) {
	cat := newFakeCatalog()
	for _, c := range []int{1, 2, 3} {
		cat.clusters[c] = []domain.ProgrammeRecord{
			{Code: "1111", Name: "Shared"},
			{Code: fmt.Sprintf("%d000", c), Name: "Own"},
		}
	}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111"}
	for _, code := range []string{"1000", "2000", "3000"} {
		cat.details[code] = domain.ProgrammeRecord{Code: code}
	}

	for i := 0; i < 20; i++ {
		res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
			Category:       domain.CategoryDegree,
			MeanGrade:      "A",
			ClusterWeights: domain.ClusterWeights{3: 40, 1: 40, 2: 40},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"1111", "1000", "2000", "3000"}, codesOf(res.Courses))
		assert.Equal(t, 1, res.Courses[0].Cluster)
		assert.Equal(t, 2, res.Stats.Duplicates)
	}
}

func TestDegreeSkipsFailedLookups(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[1] = []domain.ProgrammeRecord{{Code: "1111"}, {Code: "1112"}, {Code: "1113"}}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111"}
	cat.detailErr["1112"] = errors.New("statement timeout")
	// 1113 has no detail row

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{1: 35},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1111"}, codesOf(res.Courses))
	assert.Equal(t, 2, res.Stats.Skipped)
}

func TestDegreeSkipsFailedClusterGroup(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[1] = []domain.ProgrammeRecord{{Code: "1111"}}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111"}
	cat.clusterErr[2] = fmt.Errorf("%w: connection reset", catalog.ErrUnavailable)

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{1: 35, 2: 35},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1111"}, codesOf(res.Courses))
	assert.Equal(t, []int{2}, res.Stats.SkippedGroups)
}

func TestDegreeAllClusterGroupsFail(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusterErr[1] = fmt.Errorf("%w: dial tcp", catalog.ErrUnavailable)
	cat.clusterErr[2] = fmt.Errorf("%w: dial tcp", catalog.ErrUnavailable)

	_, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{1: 35, 2: 35},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Equal(t, "unavailable", Outcome(err))
}

func TestDegreeAllDetailLookupsUnavailable(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[5] = []domain.ProgrammeRecord{{Code: "5111"}, {Code: "5112"}}
	cat.detailErr["5111"] = fmt.Errorf("%w: connection reset", catalog.ErrUnavailable)
	cat.detailErr["5112"] = fmt.Errorf("%w: connection reset", catalog.ErrUnavailable)

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{5: 35},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Equal(t, "unavailable", Outcome(err))
	assert.Nil(t, res.Courses)
}

func TestDegreeSomeDetailLookupsUnavailable(t *testing.T) {
	testCases := []struct {
		name     string
		details  map[string]domain.ProgrammeRecord
		expected []string
	}{
		// 5112 has no detail row: not every failure is unavailability
		{"mixed failures", map[string]domain.ProgrammeRecord{}, []string{}},
		{"one lookup succeeds", map[string]domain.ProgrammeRecord{"5112": {Code: "5112"}}, []string{"5112"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cat := newFakeCatalog()
			cat.clusters[5] = []domain.ProgrammeRecord{{Code: "5111"}, {Code: "5112"}}
			cat.details = tc.details
			cat.detailErr["5111"] = fmt.Errorf("%w: connection reset", catalog.ErrUnavailable)

			res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
				Category:       domain.CategoryDegree,
				MeanGrade:      "B",
				ClusterWeights: domain.ClusterWeights{5: 35},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, codesOf(res.Courses))
			assert.Equal(t, 2-len(tc.expected), res.Stats.Skipped)
		})
	}
}

func TestDegreeWithoutWeightsIsEmpty(t *testing.T) {
	res, err := newTestEngine(newFakeCatalog()).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryDegree,
		MeanGrade: "B",
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Courses)
	assert.Empty(t, res.Courses)
}

func TestArtisanFilters(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryArtisan] = []domain.ProgrammeRecord{
		{Code: "A1", Name: "Masonry", County: "NAIROBI", InstitutionType: "Ministry of Education", CategoryTag: "building", MeanGrade: "D"},
		{Code: "A2", Name: "Masonry", County: "KISUMU", InstitutionType: "Ministry of Education", CategoryTag: "building", MeanGrade: "D"},
		{Code: "A3", Name: "Plumbing", County: "Nairobi", InstitutionType: "Private", CategoryTag: "Building", MeanGrade: "C"},
		{Code: "A4", Name: "Welding", County: "NAIROBI", InstitutionType: "Private", CategoryTag: "engineering", MeanGrade: "E"},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryArtisan,
		MeanGrade: "D+",
		Artisan: ArtisanFilter{
			CategoryTags:    []string{"building"},
			Counties:        []string{"NAIROBI"},
			InstitutionType: "All",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A1"}, codesOf(res.Courses))
	assert.Equal(t, "Ministry of Education", res.Courses[0].InstitutionType)
	assert.Equal(t, "building", res.Courses[0].CategoryTag)
	assert.Equal(t, "NAIROBI", res.Courses[0].Location)
	assert.Equal(t, 2, res.Stats.Rejected[GateRegion])
	assert.Equal(t, 1, res.Stats.Rejected[GateMeanGrade])

	require.Len(t, cat.queries, 1)
	q := cat.queries[0]
	assert.Equal(t, []string{"building"}, q.CategoryTags)
	assert.Equal(t, []string{"NAIROBI"}, q.Counties)
	assert.ElementsMatch(t, InstitutionTypes(), q.InstitutionTypes)
}

func TestArtisanSpecificInstitutionTypeQuery(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryArtisan] = []domain.ProgrammeRecord{
		{Code: "A1", InstitutionType: "Ministry of Education", MeanGrade: "D"},
		{Code: "A3", InstitutionType: "Private", MeanGrade: "D"},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryArtisan,
		MeanGrade: "C",
		Artisan:   ArtisanFilter{InstitutionType: " private "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A3"}, codesOf(res.Courses))

	require.Len(t, cat.queries, 1)
	assert.Equal(t, []string{"Private"}, cat.queries[0].InstitutionTypes)
}

func TestArtisanEmptySelectionsMatchAnything(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryArtisan] = []domain.ProgrammeRecord{
		{Code: "A1", County: "KISUMU", InstitutionType: "Private", CategoryTag: "hospitality", MeanGrade: "D-"},
		{Code: "A2", County: "MOMBASA", InstitutionType: "Ministry of Labour", CategoryTag: "building", MeanGrade: "D-"},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryArtisan,
		MeanGrade: "D",
		Artisan:   ArtisanFilter{InstitutionType: "private"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, codesOf(res.Courses))
}

func TestValidationHappensBeforeCatalogAccess(t *testing.T) {
	testCases := []struct {
		name  string
		req   Request
		field string
	}{
		{"missing mean grade", Request{Category: domain.CategoryDiploma}, "mean_grade"},
		{"unknown mean grade", Request{Category: domain.CategoryDiploma, MeanGrade: "Z"}, "mean_grade"},
		{"unknown category", Request{Category: "phd", MeanGrade: "A"}, "category"},
		{"bad institution type", Request{Category: domain.CategoryArtisan, MeanGrade: "D", Artisan: ArtisanFilter{InstitutionType: "Ministry of Magic"}}, "artisan.institution_type"},
		{"non-finite weight", Request{Category: domain.CategoryDegree, MeanGrade: "B", ClusterWeights: domain.ClusterWeights{1: math.NaN()}}, "cluster_weights"},
		{"bad cluster number", Request{Category: domain.CategoryDegree, MeanGrade: "B", ClusterWeights: domain.ClusterWeights{0: 30}}, "cluster_weights"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cat := newFakeCatalog()
			_, err := newTestEngine(cat).DetermineEligibility(context.Background(), tc.req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Problems)
			assert.Equal(t, tc.field, verr.Problems[0].Field)
			assert.Zero(t, cat.calls.Load())
			assert.Equal(t, "invalid", Outcome(err))
		})
	}
}

func TestSubjectKeyValidation(t *testing.T) {
	testCases := []struct {
		name    string
		grades  map[string]string
		wantErr string
	}{
		{"numeric code", map[string]string{"121": "B"}, ""},
		{"unambiguous abbreviation", map[string]string{"eng": "B"}, ""},
		{"blank grade is not held", map[string]string{"XYZ": ""}, ""},
		{"unknown abbreviation", map[string]string{"XYZ": "B"}, "unknown subject"},
		{"ambiguous abbreviation", map[string]string{"MAT": "B"}, "ambiguous"},
		{"same subject twice", map[string]string{"101": "B", "ENG": "C"}, "same subject"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cat := newFakeCatalog()
			_, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
				Category:      domain.CategoryCertificate,
				MeanGrade:     "C",
				SubjectGrades: tc.grades,
			})
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tc.wantErr)
		})
	}
}

func TestUnknownSubjectGradeIsLenient(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryDiploma] = []domain.ProgrammeRecord{
		{Code: "D1", MeanGrade: "C", Requirements: []string{"MATA(121): B"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:      domain.CategoryDiploma,
		MeanGrade:     "C",
		SubjectGrades: map[string]string{"121": "X"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, codesOf(res.Courses))
	// the input grade and the requirement check both took the lenient branch
	assert.Equal(t, 2, res.Stats.LenientGrades)
}

func TestListingFailureIsSurfaced(t *testing.T) {
	cat := newFakeCatalog()
	cat.listErr = fmt.Errorf("%w: connection refused", catalog.ErrUnavailable)

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryCertificate,
		MeanGrade: "C",
	})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
	assert.Nil(t, res.Courses)
}

func TestSubjectReferenceFailureIsSurfaced(t *testing.T) {
	cat := newFakeCatalog()
	cat.refErr = fmt.Errorf("%w: no route to host", catalog.ErrUnavailable)

	_, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:  domain.CategoryDiploma,
		MeanGrade: "C",
	})
	assert.ErrorIs(t, err, catalog.ErrUnavailable)
}

func TestEmptySubjectReferenceFallsBackToBuiltIn(t *testing.T) {
	cat := newFakeCatalog()
	cat.refs = nil
	cat.records[domain.CategoryMedicalTraining] = []domain.ProgrammeRecord{
		{Code: "K1", MeanGrade: "C", Requirements: []string{"ENG: C"}},
	}

	res, err := newTestEngine(cat).DetermineEligibility(context.Background(), Request{
		Category:      domain.CategoryMedicalTraining,
		MeanGrade:     "C",
		SubjectGrades: map[string]string{"ENG": "C+"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"K1"}, codesOf(res.Courses))
}

func TestCancelledContextDiscardsResults(t *testing.T) {
	cat := newFakeCatalog()
	cat.clusters[1] = []domain.ProgrammeRecord{{Code: "1111"}}
	cat.details["1111"] = domain.ProgrammeRecord{Code: "1111"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestEngine(cat).DetermineEligibility(ctx, Request{
		Category:       domain.CategoryDegree,
		MeanGrade:      "B",
		ClusterWeights: domain.ClusterWeights{1: 40},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res.Courses)
	assert.Equal(t, "canceled", Outcome(err))
}

func TestEngineRecordsMetrics(t *testing.T) {
	cat := newFakeCatalog()
	cat.records[domain.CategoryDiploma] = []domain.ProgrammeRecord{
		{Code: "D1", MeanGrade: "A"},
	}
	rec := metrics.New()
	engine := NewEngine(cat, slog.New(slog.NewTextHandler(io.Discard, nil)), rec, 2)

	_, err := engine.DetermineEligibility(context.Background(), Request{Category: domain.CategoryDiploma, MeanGrade: "C"})
	require.NoError(t, err)
	_, err = engine.DetermineEligibility(context.Background(), Request{Category: domain.CategoryDiploma})
	require.Error(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["eligibility_evaluations_total"])
	assert.True(t, names["eligibility_gate_rejections_total"])
}
