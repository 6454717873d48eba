package api

import (
	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/termsync"
)

// TermView is a term decorated with its display name and favorite flag
// (aliased from the domain layer).
type TermView = glossary.TermView

// SubjectSummary describes one subject (aliased from the domain layer).
type SubjectSummary = glossary.SubjectSummary

// SubjectListResponse wraps the subject list.
type SubjectListResponse struct {
	Language models.Language  `json:"language" example:"ru" validate:"required"`
	Subjects []SubjectSummary `json:"subjects" validate:"required"`
}

// TermListResponse wraps a list of terms.
type TermListResponse struct {
	Subject models.Subject `json:"subject,omitempty" example:"PHYSICS"`
	Terms   []TermView     `json:"terms" validate:"required"`
	Total   int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Query   string     `json:"query" example:"күш" validate:"required"`
	Results []TermView `json:"results" validate:"required"`
}

// LanguageResponse reports the preferred language.
type LanguageResponse struct {
	Language  models.Language   `json:"language" example:"kk" validate:"required"`
	Available []models.Language `json:"available" validate:"required"`
}

// SetLanguageRequest is the request body for changing the language.
type SetLanguageRequest struct {
	Language string `json:"language" example:"en" validate:"required"`
}

// FavoriteResponse reports a term's favorite state after a change.
type FavoriteResponse struct {
	ID       string `json:"id" example:"PHYSICS_3f2a9c1b7e40" validate:"required"`
	Favorite bool   `json:"favorite" example:"true"`
}

// SyncResponse is the outcome of POST /sync.
type SyncResponse struct {
	Success bool `json:"ok" example:"true"`
	termsync.SyncReport
}

// CacheInfoResponse is the cache diagnostic snapshot.
type CacheInfoResponse = models.CacheInfo

// AdvisoryResponse is the most recent absorbed-fault message.
type AdvisoryResponse = termsync.Advisory
