// Package sqlite is a file-backed catalog store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
)

const listSubjects = `SELECT code, abbreviation, name FROM subjects ORDER BY code`
const insertSubject = `INSERT INTO subjects (code, abbreviation, name) VALUES (?, ?, ?) ON CONFLICT (code) DO UPDATE SET abbreviation=excluded.abbreviation, name=excluded.name`

const listProgrammes = `SELECT ` + catalog.ProgrammeColumns + ` FROM programmes WHERE %s ORDER BY code`
const getProgramme = `SELECT ` + catalog.ProgrammeColumns + ` FROM programmes WHERE category = ? AND code = ?`
const insertProgramme = `INSERT INTO programmes (` + catalog.ProgrammeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (category, code) DO UPDATE SET name=excluded.name, institution=excluded.institution, county=excluded.county, region=excluded.region, institution_type=excluded.institution_type, category_tag=excluded.category_tag, mean_grade=excluded.mean_grade, subject_1=excluded.subject_1, subject_2=excluded.subject_2, subject_3=excluded.subject_3, subject_4=excluded.subject_4`

const listCutoffs = `SELECT programme_code, cluster, name, institution, cutoff FROM degree_cutoffs WHERE cluster = ? ORDER BY programme_code`
const insertCutoff = `INSERT INTO degree_cutoffs (programme_code, cluster, name, institution, cutoff) VALUES (?, ?, ?, ?, ?) ON CONFLICT (programme_code, cluster) DO UPDATE SET name=excluded.name, institution=excluded.institution, cutoff=excluded.cutoff`

type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the database at path. Use ":memory:" for
// a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() {
	s.DB.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range catalog.Schema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return classify(fmt.Errorf("sqlite: migrate: %w", err))
		}
	}
	return nil
}

func (s *Store) SubjectReference(ctx context.Context) ([]domain.SubjectReference, error) {
	rows, err := s.DB.QueryContext(ctx, listSubjects)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var refs []domain.SubjectReference
	for rows.Next() {
		var ref domain.SubjectReference
		var code string
		if err := rows.Scan(&code, &ref.Abbreviation, &ref.Name); err != nil {
			return nil, err
		}
		ref.Code = domain.SubjectCode(code)
		refs = append(refs, ref)
	}
	return refs, classify(rows.Err())
}

func (s *Store) ListProgrammes(ctx context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	if q.Category == domain.CategoryDegree {
		return s.listCutoffs(ctx, q.Cluster)
	}

	where, args := catalog.ProgrammeFilter(q, catalog.Question)
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(listProgrammes, where), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var records []domain.ProgrammeRecord
	for rows.Next() {
		rec, err := catalog.ScanProgramme(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, classify(rows.Err())
}

func (s *Store) listCutoffs(ctx context.Context, cluster int) ([]domain.ProgrammeRecord, error) {
	rows, err := s.DB.QueryContext(ctx, listCutoffs, cluster)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var records []domain.ProgrammeRecord
	for rows.Next() {
		rec := domain.ProgrammeRecord{Category: domain.CategoryDegree}
		var cutoff sql.NullFloat64
		if err := rows.Scan(&rec.Code, &rec.Cluster, &rec.Name, &rec.Institution, &cutoff); err != nil {
			return nil, err
		}
		if cutoff.Valid {
			v := cutoff.Float64
			rec.Cutoff = &v
		}
		records = append(records, rec)
	}
	return records, classify(rows.Err())
}

func (s *Store) ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error) {
	row := s.DB.QueryRowContext(ctx, getProgramme, string(category), code)
	rec, err := catalog.ScanProgramme(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProgrammeRecord{}, fmt.Errorf("%w: %s %s", catalog.ErrNotFound, category, code)
	}
	if err != nil {
		return domain.ProgrammeRecord{}, classify(err)
	}
	return rec, nil
}

func (s *Store) InsertSubjects(ctx context.Context, refs []domain.SubjectReference) error {
	return s.inTx(ctx, insertSubject, len(refs), func(i int) []any {
		return []any{string(refs[i].Code), refs[i].Abbreviation, refs[i].Name}
	})
}

func (s *Store) InsertProgrammes(ctx context.Context, records []domain.ProgrammeRecord) error {
	return s.inTx(ctx, insertProgramme, len(records), func(i int) []any {
		return catalog.ProgrammeArgs(records[i])
	})
}

func (s *Store) InsertCutoffs(ctx context.Context, cutoffs []catalog.Cutoff) error {
	return s.inTx(ctx, insertCutoff, len(cutoffs), func(i int) []any {
		c := cutoffs[i]
		var cutoff sql.NullFloat64
		if c.Cutoff != nil {
			cutoff = sql.NullFloat64{Float64: *c.Cutoff, Valid: true}
		}
		return []any{c.ProgrammeCode, c.Cluster, c.Name, c.Institution, cutoff}
	})
}

// inTx runs one prepared statement n times inside a transaction.
func (s *Store) inTx(ctx context.Context, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("sqlite: row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %w", catalog.ErrUnavailable, err)
	}
	return err
}
