package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/termsync"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// searches debounces /search per client; nil disables debouncing.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *glossary.Service, searches *termsync.SessionPool, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, searches)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Subjects and terms.
	r.Get("/subjects", h.ListSubjects)
	r.Get("/subjects/{subject}/terms", h.SubjectTerms)
	r.Get("/terms", h.AllTerms)
	r.Get("/terms/{id}", h.GetTerm)
	r.Get("/word-of-day", h.WordOfDay)

	// Search.
	r.Get("/search", h.Search)

	// Preferences.
	r.Get("/favorites", h.ListFavorites)
	r.Get("/favorites/{id}", h.GetFavorite)
	r.Put("/favorites/{id}", h.AddFavorite)
	r.Delete("/favorites/{id}", h.RemoveFavorite)
	r.Get("/settings/language", h.GetLanguage)
	r.Put("/settings/language", h.SetLanguage)

	// Sync and cache management.
	r.Post("/sync", h.Sync)
	r.Get("/cache", h.CacheInfo)
	r.Delete("/cache", h.ClearCache)
	r.Get("/advisory", h.Advisory)
	r.Delete("/advisory", h.DismissAdvisory)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
