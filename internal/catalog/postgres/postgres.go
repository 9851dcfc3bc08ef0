// Package postgres is the pgx-backed catalog store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/domain"
)

const listSubjects = `SELECT code, abbreviation, name FROM subjects ORDER BY code`
const insertSubject = `INSERT INTO subjects (code, abbreviation, name) VALUES ($1, $2, $3) ON CONFLICT (code) DO UPDATE SET abbreviation=EXCLUDED.abbreviation, name=EXCLUDED.name`

const listProgrammes = `SELECT ` + catalog.ProgrammeColumns + ` FROM programmes WHERE %s ORDER BY code`
const getProgramme = `SELECT ` + catalog.ProgrammeColumns + ` FROM programmes WHERE category = $1 AND code = $2`
const insertProgramme = `INSERT INTO programmes (` + catalog.ProgrammeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) ON CONFLICT (category, code) DO UPDATE SET name=EXCLUDED.name, institution=EXCLUDED.institution, county=EXCLUDED.county, region=EXCLUDED.region, institution_type=EXCLUDED.institution_type, category_tag=EXCLUDED.category_tag, mean_grade=EXCLUDED.mean_grade, subject_1=EXCLUDED.subject_1, subject_2=EXCLUDED.subject_2, subject_3=EXCLUDED.subject_3, subject_4=EXCLUDED.subject_4`

const listCutoffs = `SELECT programme_code, cluster, name, institution, cutoff FROM degree_cutoffs WHERE cluster = $1 ORDER BY programme_code`
const insertCutoff = `INSERT INTO degree_cutoffs (programme_code, cluster, name, institution, cutoff) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (programme_code, cluster) DO UPDATE SET name=EXCLUDED.name, institution=EXCLUDED.institution, cutoff=EXCLUDED.cutoff`

type Database struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Open connects a pool and verifies the server is reachable.
func Open(ctx context.Context, connString string, logger *slog.Logger) (*Database, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classify(fmt.Errorf("postgres: ping: %w", err))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Database{Pool: pool, Logger: logger}, nil
}

func (d *Database) Close() {
	d.Pool.Close()
}

func (d *Database) Migrate(ctx context.Context) error {
	for _, stmt := range catalog.Schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return classify(fmt.Errorf("postgres: migrate: %w", err))
		}
	}
	return nil
}

func (d *Database) SubjectReference(ctx context.Context) ([]domain.SubjectReference, error) {
	rows, err := d.Pool.Query(ctx, listSubjects)
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

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return refs, nil
}

func (d *Database) ListProgrammes(ctx context.Context, q catalog.Query) ([]domain.ProgrammeRecord, error) {
	if q.Category == domain.CategoryDegree {
		return d.listCutoffs(ctx, q.Cluster)
	}

	where, args := catalog.ProgrammeFilter(q, catalog.Dollar)
	rows, err := d.Pool.Query(ctx, fmt.Sprintf(listProgrammes, where), args...)
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

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return records, nil
}

func (d *Database) listCutoffs(ctx context.Context, cluster int) ([]domain.ProgrammeRecord, error) {
	rows, err := d.Pool.Query(ctx, listCutoffs, cluster)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var records []domain.ProgrammeRecord
	for rows.Next() {
		rec := domain.ProgrammeRecord{Category: domain.CategoryDegree}
		if err := rows.Scan(&rec.Code, &rec.Cluster, &rec.Name, &rec.Institution, &rec.Cutoff); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return records, nil
}

func (d *Database) ProgrammeDetail(ctx context.Context, category domain.Category, code string) (domain.ProgrammeRecord, error) {
	rows, err := d.Pool.Query(ctx, getProgramme, string(category), code)
	if err != nil {
		return domain.ProgrammeRecord{}, classify(err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.ProgrammeRecord{}, classify(err)
		}
		return domain.ProgrammeRecord{}, fmt.Errorf("%w: %s %s", catalog.ErrNotFound, category, code)
	}
	return catalog.ScanProgramme(rows.Scan)
}

func (d *Database) InsertSubjects(ctx context.Context, refs []domain.SubjectReference) error {
	if len(refs) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, ref := range refs {
		batch.Queue(insertSubject, string(ref.Code), ref.Abbreviation, ref.Name)
	}

	return d.sendBatch(ctx, &batch)
}

func (d *Database) InsertProgrammes(ctx context.Context, records []domain.ProgrammeRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, rec := range records {
		batch.Queue(insertProgramme, catalog.ProgrammeArgs(rec)...)
	}

	return d.sendBatch(ctx, &batch)
}

func (d *Database) InsertCutoffs(ctx context.Context, cutoffs []catalog.Cutoff) error {
	if len(cutoffs) == 0 {
		return nil
	}

	batch := pgx.Batch{}
	for _, c := range cutoffs {
		batch.Queue(insertCutoff, c.ProgrammeCode, c.Cluster, c.Name, c.Institution, c.Cutoff)
	}

	return d.sendBatch(ctx, &batch)
}

func (d *Database) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	n := batch.Len()
	if err := d.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return classify(fmt.Errorf("postgres: batch of %d: %w", n, err))
	}
	d.Logger.Debug("postgres batch applied", "statements", n)
	return nil
}

// classify marks connectivity failures with catalog.ErrUnavailable.
func classify(err error) error {
	if err == nil || errors.Is(err, catalog.ErrUnavailable) {
		return err
	}
	if Unavailable(err) {
		return fmt.Errorf("%w: %w", catalog.ErrUnavailable, err)
	}
	return err
}

// Unavailable reports whether err means the server could not be reached,
// as opposed to a failing statement.
func Unavailable(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08: connection exception, 57P01..03: admin shutdown / cannot connect now
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" ||
			pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03"
	}
	return false
}
