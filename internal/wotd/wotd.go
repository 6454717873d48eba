// Package wotd picks the word of the day: one term per calendar day, the
// same for every user on that day and stable across restarts.
package wotd

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

// RecordStore persists the current choice.
type RecordStore interface {
	WordOfDay() (models.WordOfDayRecord, bool, error)
	SetWordOfDay(rec models.WordOfDayRecord) error
}

// Option configures a Selector.
type Option func(*Selector)

// WithLocation sets the time zone whose midnight starts a new day.
func WithLocation(loc *time.Location) Option {
	return func(s *Selector) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// Selector chooses and remembers the word of the day.
type Selector struct {
	store  RecordStore
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Selector. The day boundary defaults to the local zone.
func New(store RecordStore, opts ...Option) *Selector {
	s := &Selector{
		store:  store,
		loc:    time.Local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Seed returns year*1000 + day-of-year for t.
func Seed(t time.Time) uint64 {
	return uint64(t.Year())*1000 + uint64(t.YearDay())
}

// Midnight returns the start of t's day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Pick deterministically selects a term for the day containing t.
// terms must not be empty.
func Pick(terms []models.Term, t time.Time) models.Term {
	seed := Seed(t)
	r := rand.New(rand.NewPCG(seed, seed))
	return terms[r.Uint64()%uint64(len(terms))]
}

// Select returns today's term. A choice persisted earlier today is kept
// while its term is still present; otherwise a new term is picked and
// persisted. It reports false only when terms is empty.
func (s *Selector) Select(terms []models.Term) (models.Term, bool) {
	if len(terms) == 0 {
		return models.Term{}, false
	}

	now := s.now().In(s.loc)
	today := Midnight(now)

	rec, ok, err := s.store.WordOfDay()
	if err != nil {
		s.logger.Warn("wotd: read record failed", slog.String("error", err.Error()))
	}
	if ok && rec.Day.In(s.loc).Equal(today) {
		for _, t := range terms {
			if t.ID == rec.TermID {
				return t, true
			}
		}
		s.logger.Info("wotd: saved term no longer present", slog.String("term_id", rec.TermID))
	}

	chosen := Pick(terms, now)
	if err := s.store.SetWordOfDay(models.WordOfDayRecord{TermID: chosen.ID, Day: today}); err != nil {
		s.logger.Warn("wotd: persist record failed", slog.String("error", err.Error()))
	}
	s.logger.Debug("wotd: selected", slog.String("term_id", chosen.ID))
	return chosen, true
}
