package models

import (
	"fmt"
	"strings"
)

// Subject is a fixed academic category under which terms are grouped.
type Subject string

const (
	SubjectMathematics     Subject = "MATHEMATICS"
	SubjectAlgebra         Subject = "ALGEBRA"
	SubjectGeometry        Subject = "GEOMETRY"
	SubjectPhysics         Subject = "PHYSICS"
	SubjectBiology         Subject = "BIOLOGY"
	SubjectChemistry       Subject = "CHEMISTRY"
	SubjectComputerScience Subject = "COMPUTER_SCIENCE"
	SubjectGeography       Subject = "GEOGRAPHY"
	SubjectNaturalScience  Subject = "NATURAL_SCIENCE"
)

type subjectNames struct {
	kk, ru, en string
}

var subjects = []Subject{
	SubjectMathematics,
	SubjectAlgebra,
	SubjectGeometry,
	SubjectPhysics,
	SubjectBiology,
	SubjectChemistry,
	SubjectComputerScience,
	SubjectGeography,
	SubjectNaturalScience,
}

var names = map[Subject]subjectNames{
	SubjectMathematics:     {kk: "Математика", ru: "Математика", en: "Mathematics"},
	SubjectAlgebra:         {kk: "Алгебра", ru: "Алгебра", en: "Algebra"},
	SubjectGeometry:        {kk: "Геометрия", ru: "Геометрия", en: "Geometry"},
	SubjectPhysics:         {kk: "Физика", ru: "Физика", en: "Physics"},
	SubjectBiology:         {kk: "Биология", ru: "Биология", en: "Biology"},
	SubjectChemistry:       {kk: "Химия", ru: "Химия", en: "Chemistry"},
	SubjectComputerScience: {kk: "Информатика", ru: "Информатика", en: "Computer Science"},
	SubjectGeography:       {kk: "География", ru: "География", en: "Geography"},
	SubjectNaturalScience:  {kk: "Жаратылыстану", ru: "Естествознание", en: "Natural Science"},
}

// Subjects returns every subject in enumeration order.
// The returned slice is a copy.
func Subjects() []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

// ParseSubject resolves a subject tag case-insensitively.
func ParseSubject(tag string) (Subject, error) {
	s := Subject(strings.ToUpper(strings.TrimSpace(tag)))
	if _, ok := names[s]; !ok {
		return "", fmt.Errorf("unknown subject %q", tag)
	}
	return s, nil
}

// Valid reports whether s is one of the known subjects.
func (s Subject) Valid() bool {
	_, ok := names[s]
	return ok
}

// DisplayName returns the subject name in the given language.
func (s Subject) DisplayName(lang Language) string {
	n := names[s]
	switch lang {
	case LangKazakh:
		return n.kk
	case LangEnglish:
		return n.en
	default:
		return n.ru
	}
}

// SheetName is the name of the spreadsheet tab holding the subject's terms.
func (s Subject) SheetName() string {
	return names[s].ru
}

// SheetRange is the A1-notation range fetched for the subject.
// Row 1 is a header row and is skipped.
func (s Subject) SheetRange() string {
	return s.SheetName() + "!A2:D"
}
