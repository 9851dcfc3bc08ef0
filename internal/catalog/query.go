package catalog

import (
	"fmt"
	"strings"
)

// Placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// Dollar is the Postgres placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question is the SQLite placeholder style.
func Question(int) string { return "?" }

// ProgrammeFilter builds the WHERE clause for a non-degree listing. Column
// comparisons are case-insensitive on both sides.
func ProgrammeFilter(q Query, ph Placeholder) (string, []any) {
	args := []any{string(q.Category)}
	clauses := []string{"category = " + ph(1)}

	in := func(column string, values []string) {
		values = upperNonEmpty(values)
		if len(values) == 0 {
			return
		}
		marks := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			marks[i] = ph(len(args))
		}
		clauses = append(clauses, fmt.Sprintf("UPPER(%s) IN (%s)", column, strings.Join(marks, ", ")))
	}
	in("category_tag", q.CategoryTags)
	in("county", q.Counties)
	in("institution_type", q.InstitutionTypes)

	return strings.Join(clauses, " AND "), args
}

func upperNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
