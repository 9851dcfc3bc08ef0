package catalog

import "course-eligibility/internal/domain"

// Schema is the DDL shared by the Postgres and SQLite stores.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		code TEXT PRIMARY KEY,
		abbreviation TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS programmes (
		category TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		institution TEXT NOT NULL DEFAULT '',
		county TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		institution_type TEXT NOT NULL DEFAULT '',
		category_tag TEXT NOT NULL DEFAULT '',
		mean_grade TEXT NOT NULL DEFAULT '',
		subject_1 TEXT NOT NULL DEFAULT '',
		subject_2 TEXT NOT NULL DEFAULT '',
		subject_3 TEXT NOT NULL DEFAULT '',
		subject_4 TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (category, code)
	)`,
	`CREATE INDEX IF NOT EXISTS programmes_category_idx ON programmes (category)`,
	`CREATE TABLE IF NOT EXISTS degree_cutoffs (
		programme_code TEXT NOT NULL,
		cluster INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		institution TEXT NOT NULL DEFAULT '',
		cutoff DOUBLE PRECISION,
		PRIMARY KEY (programme_code, cluster)
	)`,
	`CREATE INDEX IF NOT EXISTS degree_cutoffs_cluster_idx ON degree_cutoffs (cluster)`,
}

// ProgrammeColumns is the select/insert column list matching ScanProgramme
// and ProgrammeArgs.
const ProgrammeColumns = `category, code, name, institution, county, region, institution_type, category_tag, mean_grade, subject_1, subject_2, subject_3, subject_4`

// ScanProgramme reads one row selected with ProgrammeColumns. It accepts the
// Scan method of either pgx.Rows or *sql.Rows.
func ScanProgramme(scan func(dest ...any) error) (domain.ProgrammeRecord, error) {
	var rec domain.ProgrammeRecord
	var category string
	var cols [domain.MaxRequirementFields]string
	err := scan(
		&category, &rec.Code, &rec.Name, &rec.Institution,
		&rec.County, &rec.Region, &rec.InstitutionType, &rec.CategoryTag,
		&rec.MeanGrade, &cols[0], &cols[1], &cols[2], &cols[3],
	)
	if err != nil {
		return domain.ProgrammeRecord{}, err
	}
	rec.Category = domain.Category(category)
	rec.Requirements = TrimRequirements(cols)
	return rec, nil
}

// ProgrammeArgs returns the bind arguments for an insert over ProgrammeColumns.
func ProgrammeArgs(rec domain.ProgrammeRecord) []any {
	cols := RequirementColumns(rec.Requirements)
	return []any{
		string(rec.Category), rec.Code, rec.Name, rec.Institution,
		rec.County, rec.Region, rec.InstitutionType, rec.CategoryTag,
		rec.MeanGrade, cols[0], cols[1], cols[2], cols[3],
	}
}
