// Package models defines the domain types for the glossary.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Language is a UI/content language code.
type Language string

const (
	LangKazakh  Language = "kk"
	LangRussian Language = "ru"
	LangEnglish Language = "en"
)

// DefaultLanguage is used when no preference has been stored.
const DefaultLanguage = LangRussian

// Languages returns every supported language in display order.
func Languages() []Language {
	return []Language{LangKazakh, LangRussian, LangEnglish}
}

// ParseLanguage resolves a language code.
func ParseLanguage(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	switch l {
	case LangKazakh, LangRussian, LangEnglish:
		return l, nil
	}
	return "", fmt.Errorf("unknown language %q", code)
}

// Term is one glossary entry. Values are immutable once parsed.
type Term struct {
	ID          string  `json:"id"`
	Kazakh      string  `json:"kazakh"`
	Russian     string  `json:"russian"`
	English     string  `json:"english"`
	Description string  `json:"description"`
	Subject     Subject `json:"subject"`
}

// DisplayName returns the term text in the given language.
func (t Term) DisplayName(lang Language) string {
	switch lang {
	case LangKazakh:
		return t.Kazakh
	case LangEnglish:
		return t.English
	default:
		return t.Russian
	}
}

// Matches reports whether any of the four text fields contains query,
// ignoring case. query must already be lower-cased.
func (t Term) Matches(lowerQuery string) bool {
	return strings.Contains(strings.ToLower(t.Kazakh), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Russian), lowerQuery) ||
		strings.Contains(strings.ToLower(t.English), lowerQuery) ||
		strings.Contains(strings.ToLower(t.Description), lowerQuery)
}

// CacheInfo is a read-only diagnostic snapshot of the term cache.
type CacheInfo struct {
	TotalTerms    int                   `json:"total_terms"`
	SubjectCounts map[Subject]int       `json:"subject_counts"`
	LastSyncTimes map[Subject]time.Time `json:"last_sync_times"`
}

// WordOfDayRecord is the persisted word-of-the-day choice.
// Day is the local midnight of the day the choice was made.
type WordOfDayRecord struct {
	TermID string    `json:"term_id"`
	Day    time.Time `json:"day"`
}
