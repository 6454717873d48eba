package termcache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

// DefaultTTL is how long a subject's terms are served from the cache.
const DefaultTTL = 24 * time.Hour

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiry window.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger that receives absorbed backend failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithFaultHandler registers a callback invoked for every absorbed backend
// failure, after it has been logged.
func WithFaultHandler(fn func(op string, err error)) Option {
	return func(s *Store) { s.onFault = fn }
}

// Store is the term cache. Backend failures never reach the caller: reads
// degrade to "absent" and writes to no-ops, and the failure is logged.
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	onFault func(op string, err error)

	// clearMu makes Clear exclusive with respect to Put.
	clearMu sync.RWMutex
	locks   map[models.Subject]*sync.Mutex
}

// NewStore creates a Store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
		locks:   make(map[models.Subject]*sync.Mutex),
	}
	for _, sub := range models.Subjects() {
		s.locks[sub] = &sync.Mutex{}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping checks the backend connection. Backends without a connection are
// always reachable. Unlike other Store methods it returns the failure.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.backend.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return &apperr.CacheError{Op: "ping", Cause: err}
	}
	return nil
}

// Put overwrites the subject's terms and stamps them with the current time.
// Writes to one subject are serialized; different subjects proceed in parallel.
func (s *Store) Put(ctx context.Context, subject models.Subject, terms []models.Term) {
	lock, ok := s.locks[subject]
	if !ok {
		s.fault("put", subject, apperr.ErrUnknownSubject)
		return
	}

	s.clearMu.RLock()
	defer s.clearMu.RUnlock()
	lock.Lock()
	defer lock.Unlock()

	if terms == nil {
		terms = []models.Term{}
	}
	e := &Entry{Subject: subject, Terms: terms, SyncedAt: s.now()}
	if err := s.backend.Save(ctx, e); err != nil {
		s.fault("put", subject, err)
		return
	}
	s.logger.Debug("termcache: stored", slog.String("subject", string(subject)), slog.Int("terms", len(terms)))
}

// Get returns the subject's terms if an entry exists and is younger than the TTL.
func (s *Store) Get(ctx context.Context, subject models.Subject) ([]models.Term, bool) {
	e, ok := s.load(ctx, subject)
	if !ok || s.expired(e) {
		return nil, false
	}
	return e.Terms, true
}

// Peek returns the subject's terms regardless of age.
func (s *Store) Peek(ctx context.Context, subject models.Subject) ([]models.Term, bool) {
	e, ok := s.load(ctx, subject)
	if !ok {
		return nil, false
	}
	return e.Terms, true
}

// GetAll concatenates every non-expired entry in subject order.
func (s *Store) GetAll(ctx context.Context) []models.Term {
	out := []models.Term{}
	for _, sub := range models.Subjects() {
		if terms, ok := s.Get(ctx, sub); ok {
			out = append(out, terms...)
		}
	}
	return out
}

// Search returns cached terms whose kazakh, russian, english or description
// text contains query, ignoring case. A blank query matches nothing.
func (s *Store) Search(ctx context.Context, query string) []models.Term {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []models.Term{}
	if q == "" {
		return out
	}
	for _, t := range s.GetAll(ctx) {
		if t.Matches(q) {
			out = append(out, t)
		}
	}
	return out
}

// Clear drops every entry.
func (s *Store) Clear(ctx context.Context) {
	s.clearMu.Lock()
	defer s.clearMu.Unlock()

	if err := s.backend.Clear(ctx); err != nil {
		s.fault("clear", "", err)
		return
	}
	s.logger.Info("termcache: cleared")
}

// Info reports per-subject counts of servable terms and the time of the
// last write for every stored entry, expired or not.
func (s *Store) Info(ctx context.Context) models.CacheInfo {
	info := models.CacheInfo{
		SubjectCounts: make(map[models.Subject]int),
		LastSyncTimes: make(map[models.Subject]time.Time),
	}
	for _, sub := range models.Subjects() {
		e, ok := s.load(ctx, sub)
		count := 0
		if ok {
			info.LastSyncTimes[sub] = e.SyncedAt
			if !s.expired(e) {
				count = len(e.Terms)
			}
		}
		info.SubjectCounts[sub] = count
		info.TotalTerms += count
	}
	return info
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) load(ctx context.Context, subject models.Subject) (*Entry, bool) {
	e, err := s.backend.Load(ctx, subject)
	if errors.Is(err, apperr.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		if ctx.Err() != nil {
			// Caller gave up; a timed-out read is a plain miss.
			s.logger.Debug("termcache: read abandoned", slog.String("subject", string(subject)))
			return nil, false
		}
		s.fault("get", subject, err)
		return nil, false
	}
	return e, true
}

func (s *Store) expired(e *Entry) bool {
	return s.now().Sub(e.SyncedAt) > s.ttl
}

func (s *Store) fault(op string, subject models.Subject, err error) {
	s.logger.Warn("termcache: backend failure",
		slog.String("op", op),
		slog.String("subject", string(subject)),
		slog.String("error", err.Error()))
	if s.onFault != nil {
		s.onFault(op, err)
	}
}
