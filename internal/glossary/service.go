// Package glossary is the application context object: it owns the
// synchronizer, the preferences store and the word-of-the-day selector and
// exposes the operations every adapter (HTTP, MCP, CLI) needs.
package glossary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/prefs"
	"github.com/starford/bilimsoz/internal/termsync"
	"github.com/starford/bilimsoz/internal/wotd"
)

// TermView is a term decorated for display in the preferred language.
type TermView struct {
	models.Term
	Name     string `json:"name"`
	Favorite bool   `json:"favorite"`
}

// SubjectSummary describes one subject for a subject list.
type SubjectSummary struct {
	Subject     models.Subject `json:"subject"`
	Name        string         `json:"name"`
	CachedTerms int            `json:"cached_terms"`
	LastSync    *time.Time     `json:"last_sync,omitempty"`
}

// Service embeds the synchronizer, so the consumer API (TermsForSubject,
// AllTerms, Search, TermByID, SyncAll, CacheInfo, ClearCache, Subscribe)
// is available directly.
type Service struct {
	*termsync.Synchronizer

	prefs    *prefs.Store
	selector *wotd.Selector
	logger   *slog.Logger
}

// New creates a Service. The caller keeps ownership of the components.
func New(synchronizer *termsync.Synchronizer, p *prefs.Store, selector *wotd.Selector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Synchronizer: synchronizer, prefs: p, selector: selector, logger: logger}
}

// Subjects lists every subject with its display name in lang and the
// current cache state.
func (s *Service) Subjects(ctx context.Context, lang models.Language) []SubjectSummary {
	info := s.CacheInfo(ctx)
	out := make([]SubjectSummary, 0, len(info.SubjectCounts))
	for _, sub := range models.Subjects() {
		sum := SubjectSummary{
			Subject:     sub,
			Name:        sub.DisplayName(lang),
			CachedTerms: info.SubjectCounts[sub],
		}
		if t, ok := info.LastSyncTimes[sub]; ok {
			sum.LastSync = &t
		}
		out = append(out, sum)
	}
	return out
}

// WordOfDay returns today's term, or false when nothing is available.
func (s *Service) WordOfDay(ctx context.Context) (models.Term, bool) {
	return s.selector.Select(s.AllTerms(ctx, false))
}

// FavoriteTerms returns the favorite terms that are currently available,
// in subject order. Ids whose term has disappeared are skipped.
func (s *Service) FavoriteTerms(ctx context.Context) ([]models.Term, error) {
	ids, err := s.prefs.Favorites()
	if err != nil {
		return nil, fmt.Errorf("glossary: favorites: %w", err)
	}
	out := []models.Term{}
	if len(ids) == 0 {
		return out, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	for _, t := range s.AllTerms(ctx, false) {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// AddFavorite marks an existing term as a favorite. It returns
// apperr.ErrNotFound when no term has that id.
func (s *Service) AddFavorite(ctx context.Context, id string) error {
	if _, err := s.TermByID(ctx, id); err != nil {
		return err
	}
	if err := s.prefs.AddFavorite(id); err != nil {
		return fmt.Errorf("glossary: add favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether id is marked as a favorite.
func (s *Service) IsFavorite(id string) (bool, error) {
	on, err := s.prefs.IsFavorite(id)
	if err != nil {
		return false, fmt.Errorf("glossary: is favorite: %w", err)
	}
	return on, nil
}

// RemoveFavorite unmarks id. Removing an unknown id is a no-op.
func (s *Service) RemoveFavorite(id string) error {
	if err := s.prefs.RemoveFavorite(id); err != nil {
		return fmt.Errorf("glossary: remove favorite: %w", err)
	}
	return nil
}

// ToggleFavorite flips id and reports whether it is now a favorite.
func (s *Service) ToggleFavorite(id string) (bool, error) {
	on, err := s.prefs.ToggleFavorite(id)
	if err != nil {
		return false, fmt.Errorf("glossary: toggle favorite: %w", err)
	}
	return on, nil
}

// Language returns the preferred language. Read failures fall back to
// the default language.
func (s *Service) Language() models.Language {
	lang, err := s.prefs.Language()
	if err != nil {
		s.logger.Warn("glossary: read language failed", slog.String("error", err.Error()))
	}
	return lang
}

// SetLanguage stores the preferred language.
func (s *Service) SetLanguage(lang models.Language) error {
	if err := s.prefs.SetLanguage(lang); err != nil {
		return fmt.Errorf("glossary: set language: %w", err)
	}
	return nil
}

// Decorate attaches the display name in the preferred language and the
// favorite flag to every term.
func (s *Service) Decorate(terms []models.Term) []TermView {
	lang := s.Language()
	favs := map[string]struct{}{}
	if ids, err := s.prefs.Favorites(); err != nil {
		s.logger.Warn("glossary: read favorites failed", slog.String("error", err.Error()))
	} else {
		for _, id := range ids {
			favs[id] = struct{}{}
		}
	}

	out := make([]TermView, 0, len(terms))
	for _, t := range terms {
		_, fav := favs[t.ID]
		out = append(out, TermView{Term: t, Name: t.DisplayName(lang), Favorite: fav})
	}
	return out
}
