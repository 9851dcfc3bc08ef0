package subjects

import "course-eligibility/internal/domain"

// DefaultReference is the KCSE subject table used to seed an empty catalog
// store. The store copy stays authoritative once seeded.
func DefaultReference() []domain.SubjectReference {
	return []domain.SubjectReference{
		{Code: "101", Abbreviation: "ENG", Name: "English"},
		{Code: "102", Abbreviation: "KIS", Name: "Kiswahili"},
		{Code: "121", Abbreviation: "MAT A", Name: "Mathematics Alternative A"},
		{Code: "122", Abbreviation: "MAT B", Name: "Mathematics Alternative B"},
		{Code: "231", Abbreviation: "BIO", Name: "Biology"},
		{Code: "232", Abbreviation: "PHY", Name: "Physics"},
		{Code: "233", Abbreviation: "CHE", Name: "Chemistry"},
		{Code: "236", Abbreviation: "BIO SCI", Name: "Biology for the Blind"},
		{Code: "237", Abbreviation: "GSC", Name: "General Science"},
		{Code: "311", Abbreviation: "HAG", Name: "History and Government"},
		{Code: "312", Abbreviation: "GEO", Name: "Geography"},
		{Code: "313", Abbreviation: "CRE", Name: "Christian Religious Education"},
		{Code: "314", Abbreviation: "IRE", Name: "Islamic Religious Education"},
		{Code: "315", Abbreviation: "HRE", Name: "Hindu Religious Education"},
		{Code: "441", Abbreviation: "HSC", Name: "Home Science"},
		{Code: "442", Abbreviation: "ARD", Name: "Art and Design"},
		{Code: "443", Abbreviation: "AGR", Name: "Agriculture"},
		{Code: "444", Abbreviation: "WW", Name: "Woodwork"},
		{Code: "445", Abbreviation: "MW", Name: "Metalwork"},
		{Code: "446", Abbreviation: "BC", Name: "Building Construction"},
		{Code: "447", Abbreviation: "PM", Name: "Power Mechanics"},
		{Code: "448", Abbreviation: "ELEC", Name: "Electricity"},
		{Code: "449", Abbreviation: "DD", Name: "Drawing and Design"},
		{Code: "450", Abbreviation: "AVT", Name: "Aviation Technology"},
		{Code: "451", Abbreviation: "CMP", Name: "Computer Studies"},
		{Code: "501", Abbreviation: "FRE", Name: "French"},
		{Code: "502", Abbreviation: "GER", Name: "German"},
		{Code: "503", Abbreviation: "ARB", Name: "Arabic"},
		{Code: "504", Abbreviation: "KSL", Name: "Kenyan Sign Language"},
		{Code: "511", Abbreviation: "MUS", Name: "Music"},
		{Code: "565", Abbreviation: "BST", Name: "Business Studies"},
	}
}
