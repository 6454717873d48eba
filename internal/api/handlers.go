package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/termsync"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *glossary.Service
	searches *termsync.SessionPool
}

// NewHandler creates a new Handler. searches may be nil, in which case
// search requests are not debounced.
func NewHandler(svc *glossary.Service, searches *termsync.SessionPool) *Handler {
	return &Handler{svc: svc, searches: searches}
}

// ListSubjects handles GET /api/subjects.
//
//	@Summary		List subjects with display names and cache state
//	@Tags			subjects
//	@Produce		json
//	@Param			lang	query		string	false	"Display language"	Enums(kk, ru, en)
//	@Success		200		{object}	SubjectListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/subjects [get]
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	lang := h.svc.Language()
	if raw := r.URL.Query().Get("lang"); raw != "" {
		l, err := models.ParseLanguage(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		lang = l
	}
	writeJSON(w, http.StatusOK, SubjectListResponse{
		Language: lang,
		Subjects: h.svc.Subjects(r.Context(), lang),
	})
}

// SubjectTerms handles GET /api/subjects/{subject}/terms.
//
//	@Summary		Terms of one subject
//	@Tags			terms
//	@Produce		json
//	@Param			subject	path		string	true	"Subject tag"	example(PHYSICS)
//	@Param			refresh	query		bool	false	"Bypass the cache"
//	@Success		200		{object}	TermListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/subjects/{subject}/terms [get]
func (h *Handler) SubjectTerms(w http.ResponseWriter, r *http.Request) {
	subject, err := models.ParseSubject(chi.URLParam(r, "subject"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	terms := h.svc.TermsForSubject(r.Context(), subject, queryBool(r, "refresh"))
	writeJSON(w, http.StatusOK, TermListResponse{
		Subject: subject,
		Terms:   h.svc.Decorate(terms),
		Total:   len(terms),
	})
}

// AllTerms handles GET /api/terms.
//
//	@Summary		Terms of every subject in subject order
//	@Tags			terms
//	@Produce		json
//	@Param			refresh	query		bool	false	"Bypass the cache"
//	@Success		200		{object}	TermListResponse
//	@Security		BearerAuth
//	@Router			/terms [get]
func (h *Handler) AllTerms(w http.ResponseWriter, r *http.Request) {
	terms := h.svc.AllTerms(r.Context(), queryBool(r, "refresh"))
	writeJSON(w, http.StatusOK, TermListResponse{
		Terms: h.svc.Decorate(terms),
		Total: len(terms),
	})
}

// GetTerm handles GET /api/terms/{id}.
//
//	@Summary		Get a single term by id
//	@Tags			terms
//	@Produce		json
//	@Param			id	path		string	true	"Term id"
//	@Success		200	{object}	TermView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/terms/{id} [get]
func (h *Handler) GetTerm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	term, err := h.svc.TermByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get term failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Decorate([]models.Term{term})[0])
}

// Search handles GET /api/search. Requests carrying the same X-Client-ID
// are debounced together: a newer request supersedes an older one.
//
//	@Summary		Search cached terms in every language
//	@Tags			search
//	@Produce		json
//	@Param			q				query		string	true	"Search query"
//	@Param			X-Client-ID		header		string	false	"Client id for debouncing"
//	@Success		200				{object}	SearchResponse
//	@Failure		400				{object}	errResponse
//	@Failure		409				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}

	var (
		results []models.Term
		err     error
	)
	if h.searches != nil {
		results, err = h.searches.Session(clientID(w, r)).Search(r.Context(), q)
	} else {
		results = h.svc.Search(r.Context(), q)
	}
	if err != nil {
		switch {
		case errors.Is(err, termsync.ErrSuperseded):
			writeJSON(w, http.StatusConflict, errorBody("superseded by a newer search"))
		case errors.Is(err, context.Canceled):
			// Client went away.
		default:
			slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: h.svc.Decorate(results)})
}

// WordOfDay handles GET /api/word-of-day.
//
//	@Summary		Today's term
//	@Tags			terms
//	@Produce		json
//	@Success		200	{object}	TermView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/word-of-day [get]
func (h *Handler) WordOfDay(w http.ResponseWriter, r *http.Request) {
	term, ok := h.svc.WordOfDay(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no terms available"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Decorate([]models.Term{term})[0])
}

// ListFavorites handles GET /api/favorites.
//
//	@Summary		Favorite terms
//	@Tags			favorites
//	@Produce		json
//	@Success		200	{object}	TermListResponse
//	@Security		BearerAuth
//	@Router			/favorites [get]
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.FavoriteTerms(r.Context())
	if err != nil {
		slog.Error("list favorites failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, TermListResponse{Terms: h.svc.Decorate(terms), Total: len(terms)})
}

// GetFavorite handles GET /api/favorites/{id}.
//
//	@Summary		Favorite status of a term
//	@Tags			favorites
//	@Produce		json
//	@Param			id	path		string	true	"Term id"
//	@Success		200	{object}	FavoriteResponse
//	@Security		BearerAuth
//	@Router			/favorites/{id} [get]
func (h *Handler) GetFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	on, err := h.svc.IsFavorite(id)
	if err != nil {
		slog.Error("get favorite failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{ID: id, Favorite: on})
}

// AddFavorite handles PUT /api/favorites/{id}.
//
//	@Summary		Mark a term as favorite
//	@Tags			favorites
//	@Produce		json
//	@Param			id	path		string	true	"Term id"
//	@Success		200	{object}	FavoriteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/favorites/{id} [put]
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.AddFavorite(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("add favorite failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{ID: id, Favorite: true})
}

// RemoveFavorite handles DELETE /api/favorites/{id}.
//
//	@Summary		Unmark a favorite term
//	@Tags			favorites
//	@Produce		json
//	@Param			id	path		string	true	"Term id"
//	@Success		200	{object}	FavoriteResponse
//	@Security		BearerAuth
//	@Router			/favorites/{id} [delete]
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.RemoveFavorite(id); err != nil {
		slog.Error("remove favorite failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{ID: id, Favorite: false})
}

// GetLanguage handles GET /api/settings/language.
//
//	@Summary		Preferred language
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	LanguageResponse
//	@Security		BearerAuth
//	@Router			/settings/language [get]
func (h *Handler) GetLanguage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LanguageResponse{Language: h.svc.Language(), Available: models.Languages()})
}

// SetLanguage handles PUT /api/settings/language.
//
//	@Summary		Change the preferred language
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetLanguageRequest	true	"New language"
//	@Success		200		{object}	LanguageResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/language [put]
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req SetLanguageRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	lang, err := models.ParseLanguage(req.Language)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.SetLanguage(lang); err != nil {
		slog.Error("set language failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, LanguageResponse{Language: lang, Available: models.Languages()})
}

// Sync handles POST /api/sync.
//
//	@Summary		Force-refresh every subject
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Security		BearerAuth
//	@Router			/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report := h.svc.Sync(r.Context())
	if report.Failed == nil {
		report.Failed = []models.Subject{}
	}
	writeJSON(w, http.StatusOK, SyncResponse{Success: report.OK(), SyncReport: report})
}

// CacheInfo handles GET /api/cache.
//
//	@Summary		Cache diagnostics
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	CacheInfoResponse
//	@Security		BearerAuth
//	@Router			/cache [get]
func (h *Handler) CacheInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheInfo(r.Context()))
}

// ClearCache handles DELETE /api/cache.
//
//	@Summary		Drop every cached term
//	@Tags			cache
//	@Success		204	"Cache cleared"
//	@Security		BearerAuth
//	@Router			/cache [delete]
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Advisory handles GET /api/advisory.
//
//	@Summary		Most recent absorbed-fault message
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	AdvisoryResponse
//	@Success		204	"No advisory"
//	@Security		BearerAuth
//	@Router			/advisory [get]
func (h *Handler) Advisory(w http.ResponseWriter, _ *http.Request) {
	adv, ok := h.svc.Advisory()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

// DismissAdvisory handles DELETE /api/advisory.
//
//	@Summary		Dismiss the current advisory
//	@Tags			cache
//	@Success		204	"Dismissed"
//	@Security		BearerAuth
//	@Router			/advisory [delete]
func (h *Handler) DismissAdvisory(w http.ResponseWriter, _ *http.Request) {
	h.svc.DismissAdvisory()
	w.WriteHeader(http.StatusNoContent)
}
