// Package catalog is the boundary with the programme catalog store. The
// engine only consumes Catalog; stores and decorators live in subpackages.
package catalog

import (
	"context"
	"errors"

	"course-eligibility/internal/domain"
)

var (
	// ErrNotFound is returned by ProgrammeDetail when no row matches.
	ErrNotFound = errors.New("catalog: programme not found")
	// ErrUnavailable marks connectivity failures. A single failed lookup is
	// skipped; an evaluation whose every lookup failed this way fails.
	ErrUnavailable = errors.New("catalog: backend unavailable")
)

// Query narrows a listing server-side. Empty slices mean no filter on that
// column. Cluster is only used for degree listings, where it is required.
type Query struct {
	Category         domain.Category
	Cluster          int
	CategoryTags     []string
	Counties         []string
	InstitutionTypes []string
}

// Catalog is the read side the engine depends on.
type Catalog interface {
	// ListProgrammes returns the records matching q. Degree listings come
	// from the published cutoff table and carry only code, name,
	// institution, cluster and cutoff; the rest is in ProgrammeDetail.
	ListProgrammes(ctx context.Context, q Query) ([]domain.ProgrammeRecord, error)
	ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error)
	SubjectReference(ctx context.Context) ([]domain.SubjectReference, error)
}

// Cutoff is one row of the degree cutoff table.
type Cutoff struct {
	ProgrammeCode string
	Cluster       int
	Name          string
	Institution   string
	Cutoff        *float64
}

// Writer loads catalog data. Inserts are upserts.
type Writer interface {
	InsertSubjects(ctx context.Context, refs []domain.SubjectReference) error
	InsertProgrammes(ctx context.Context, records []domain.ProgrammeRecord) error
	InsertCutoffs(ctx context.Context, cutoffs []Cutoff) error
}

// Store is a catalog that can also be loaded and migrated.
type Store interface {
	Catalog
	Writer
	Migrate(ctx context.Context) error
	Close()
}

// RequirementColumns pads or truncates raw requirement fields to the fixed
// subject_1..subject_4 columns.
func RequirementColumns(reqs []string) [domain.MaxRequirementFields]string {
	var cols [domain.MaxRequirementFields]string
	copy(cols[:], reqs)
	return cols
}

// TrimRequirements drops trailing empty requirement columns.
func TrimRequirements(cols [domain.MaxRequirementFields]string) []string {
	n := len(cols)
	for n > 0 && cols[n-1] == "" {
		n--
	}
	out := make([]string, n)
	copy(out, cols[:n])
	return out
}
