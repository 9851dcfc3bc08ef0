package domain

import "strings"

// Category selects a programme catalog and the pipeline that evaluates it.
type Category string

const (
	CategoryDegree          Category = "degree"
	CategoryDiploma         Category = "diploma"
	CategoryCertificate     Category = "certificate"
	CategoryMedicalTraining Category = "medical"
	CategoryArtisan         Category = "artisan"
)

// Categories lists every known category.
func Categories() []Category {
	return []Category{
		CategoryDegree,
		CategoryDiploma,
		CategoryCertificate,
		CategoryMedicalTraining,
		CategoryArtisan,
	}
}

// ParseCategory accepts the canonical names and a few aliases seen in forms
// ("kmtc", "degrees", ...).
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "degree", "degrees":
		return CategoryDegree, true
	case "diploma", "diplomas":
		return CategoryDiploma, true
	case "certificate", "certificates":
		return CategoryCertificate, true
	case "medical", "kmtc", "medical-training", "medical_training":
		return CategoryMedicalTraining, true
	case "artisan", "artisans":
		return CategoryArtisan, true
	}
	return "", false
}

// MaxRequirementFields is the number of free-text requirement columns a
// catalog record carries.
const MaxRequirementFields = 4

// ProgrammeRecord is one catalog offering as read from the catalog store.
// Fields that do not apply to a category are left zero.
type ProgrammeRecord struct {
	Category    Category
	Code        string
	Name        string
	Institution string

	County          string
	Region          string
	InstitutionType string
	CategoryTag     string

	// Degree only.
	Cluster int
	Cutoff  *float64

	MeanGrade    string
	Requirements []string // raw, unparsed; at most MaxRequirementFields
}

// EligibleCourse is the category-shaped projection of a record that passed
// every gate.
type EligibleCourse struct {
	Category    Category `json:"category"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Institution string   `json:"institution"`
	Location    string   `json:"location,omitempty"`

	InstitutionType string `json:"institution_type,omitempty"`
	CategoryTag     string `json:"category_tag,omitempty"`
	MeanGrade       string `json:"mean_grade,omitempty"`

	// Degree only.
	Cluster int      `json:"cluster,omitempty"`
	Cutoff  *float64 `json:"cutoff,omitempty"`
}

// ClusterWeights maps a cluster number to the candidate's weight for it.
type ClusterWeights map[int]float64
