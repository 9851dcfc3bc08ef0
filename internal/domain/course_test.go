package domain

import (
	"testing"
)

func TestParseCategory(t *testing.T) {
	testCases := []struct {
		input    string
		expected Category
		ok       bool
	}{
		{"degree", CategoryDegree, true},
		{" Diploma ", CategoryDiploma, true},
		{"certificates", CategoryCertificate, true},
		{"KMTC", CategoryMedicalTraining, true},
		{"artisan", CategoryArtisan, true},
		{"masters", "", false},
	}

	for _, tc := range testCases {
		got, ok := ParseCategory(tc.input)
		if got != tc.expected || ok != tc.ok {
			t.Errorf("ParseCategory(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.expected, tc.ok)
		}
	}
}

func TestCandidateProfileGrade(t *testing.T) {
	p := CandidateProfile{
		MeanGrade:     GradeB,
		SubjectGrades: map[SubjectCode]Grade{"121": GradeE},
	}

	g, ok := p.Grade("121")
	if !ok || g != GradeE {
		t.Errorf("Expected held E for 121, got %v held=%v", g, ok)
	}

	if _, ok := p.Grade("231"); ok {
		t.Error("Expected 231 to be not held")
	}
}
