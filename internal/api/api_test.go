package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
	"course-eligibility/internal/eligibility"
	"course-eligibility/internal/metrics"
	"course-eligibility/internal/subjects"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubCatalog struct {
	records []domain.ProgrammeRecord
	refs    []domain.SubjectReference
	err     error
}

func (s *stubCatalog) ListProgrammes(ctx context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.ProgrammeRecord
	for _, r := range s.records {
		if r.Category == q.Category && (q.Cluster == 0 || r.Cluster == q.Cluster) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubCatalog) ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error) {
	for _, r := range s.records {
		if r.Code == code {
			return r, nil
		}
	}
	return domain.ProgrammeRecord{}, catalog.ErrNotFound
}

func (s *stubCatalog) SubjectReference(ctx context.Context) ([]domain.SubjectReference, error) {
	return s.refs, s.err
}

func newTestServer(cat *stubCatalog) (*Server, http.Handler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := metrics.New()
	s := &Server{
		Engine:  eligibility.NewEngine(cat, logger, rec, 2),
		Catalog: cat,
		Metrics: rec,
		Logger:  logger,
	}
	return s, NewRouter(s)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestDetermineEligibility(t *testing.T) {
	cat := &stubCatalog{
		refs: subjects.DefaultReference(),
		records: []domain.ProgrammeRecord{
			{Category: domain.CategoryDegree, Code: "1111", Name: "BSc Computer Science", Cluster: 5, Cutoff: ptr(40.0)},
			{Category: domain.CategoryDegree, Code: "2222", Name: "BSc Actuarial Science", Cluster: 5, Cutoff: ptr(43.0)},
		},
	}
	_, h := newTestServer(cat)

	w := do(t, h, http.MethodPost, "/api/v1/eligibility",
		`{"category":"degrees","mean_grade":"B","subject_grades":{"ENG":"B+"},"cluster_weights":{"5":42.0}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res eligibility.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.CategoryDegree, res.Category)
	require.Len(t, res.Courses, 1)
	assert.Equal(t, "1111", res.Courses[0].Code)
	assert.Equal(t, 5, res.Courses[0].Cluster)
	assert.Equal(t, w.Header().Get(RequestIDHeader), res.RequestID)
	assert.Equal(t, 1, res.Stats.Rejected[eligibility.GateClusterCutoff])
}

func TestDetermineEligibilityKeepsCallerRequestID(t *testing.T) {
	_, h := newTestServer(&stubCatalog{refs: subjects.DefaultReference()})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility",
		bytes.NewBufferString(`{"category":"diploma","mean_grade":"C"}`))
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, w.Body.String(), `"request_id":"abc-123"`)
	assert.Contains(t, w.Body.String(), `"courses":[]`)
}

func TestDetermineEligibilityValidation(t *testing.T) {
	_, h := newTestServer(&stubCatalog{refs: subjects.DefaultReference()})

	w := do(t, h, http.MethodPost, "/api/v1/eligibility", `{"category":"diploma","mean_grade":"Q"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid request", resp.Error)
	require.Len(t, resp.Problems, 1)
	assert.Equal(t, "mean_grade", resp.Problems[0].Field)

	w = do(t, h, http.MethodPost, "/api/v1/eligibility", `{"category":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetermineEligibilityUnavailable(t *testing.T) {
	_, h := newTestServer(&stubCatalog{err: fmt.Errorf("%w: connection refused", catalog.ErrUnavailable)})

	w := do(t, h, http.MethodPost, "/api/v1/eligibility", `{"category":"artisan","mean_grade":"D"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{&eligibility.ValidationError{Problems: []eligibility.Problem{{Field: "f", Message: "m"}}}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{context.Canceled, StatusClientClosedRequest},
		{fmt.Errorf("list: %w", catalog.ErrUnavailable), http.StatusServiceUnavailable},
		{catalog.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestListSubjects(t *testing.T) {
	_, h := newTestServer(&stubCatalog{})

	w := do(t, h, http.MethodGet, "/api/v1/subjects", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Subjects []domain.SubjectReference `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Subjects, len(subjects.DefaultReference()))
}

func TestListCategories(t *testing.T) {
	_, h := newTestServer(&stubCatalog{})

	w := do(t, h, http.MethodGet, "/api/v1/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"medical"`)
	assert.Contains(t, w.Body.String(), `"Ministry of Labour"`)
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(&stubCatalog{})
	w := do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	_, h = newTestServer(&stubCatalog{err: catalog.ErrUnavailable})
	w = do(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := newTestServer(&stubCatalog{refs: subjects.DefaultReference()})
	do(t, h, http.MethodPost, "/api/v1/eligibility", `{"category":"diploma","mean_grade":"C"}`)

	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `eligibility_evaluations_total{category="diploma",outcome="ok"} 1`)
}

func ptr(v float64) *float64 { return &v }
