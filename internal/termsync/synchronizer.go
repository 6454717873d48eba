// Package termsync orchestrates the term cache, the remote source and the
// connectivity probe. Its public operations never return transport, parse
// or cache failures: they degrade to cached or empty results and leave an
// Advisory behind.
package termsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/parser"
	"github.com/starford/bilimsoz/internal/probe"
	"github.com/starford/bilimsoz/internal/retry"
	"github.com/starford/bilimsoz/internal/sheets"
	"github.com/starford/bilimsoz/internal/termcache"
)

var errOffline = errors.New("termsync: offline")

// Config holds the synchronizer's bounds.
type Config struct {
	CacheTimeout   time.Duration // bound on a cache read; exceeding it is a miss
	NetworkTimeout time.Duration // bound on a fetch including retries
	Concurrency    int           // subjects loaded in parallel by AllTerms and SyncAll
	Retry          retry.Config
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CacheTimeout:   5 * time.Second,
		NetworkTimeout: 10 * time.Second,
		Concurrency:    3,
		Retry:          retry.DefaultConfig(),
	}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithConfig overrides DefaultConfig. Zero fields keep their defaults.
func WithConfig(cfg Config) Option {
	return func(s *Synchronizer) {
		if cfg.CacheTimeout > 0 {
			s.cfg.CacheTimeout = cfg.CacheTimeout
		}
		if cfg.NetworkTimeout > 0 {
			s.cfg.NetworkTimeout = cfg.NetworkTimeout
		}
		if cfg.Concurrency > 0 {
			s.cfg.Concurrency = cfg.Concurrency
		}
		if cfg.Retry != (retry.Config{}) {
			s.cfg.Retry = cfg.Retry
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithAdvisories shares an advisory holder, typically the one the cache
// store's fault handler records into.
func WithAdvisories(a *Advisories) Option {
	return func(s *Synchronizer) { s.advisories = a }
}

// Synchronizer is the consumer-facing glossary API.
type Synchronizer struct {
	source     sheets.Source
	cache      *termcache.Store
	probe      probe.Probe
	cfg        Config
	logger     *slog.Logger
	advisories *Advisories
	stream     *Stream

	flight singleflight.Group
	writes sync.WaitGroup
	// publishMu orders the read-and-publish step of write-throughs and
	// clears, so the last snapshot published reflects the last write.
	publishMu sync.Mutex
	initOnce  sync.Once
	closed    atomic.Bool
}

// New creates a Synchronizer.
func New(source sheets.Source, cache *termcache.Store, p probe.Probe, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		source:     source,
		cache:      cache,
		probe:      p,
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
		advisories: NewAdvisories(),
		stream:     NewStream(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready checks that the cache backend is reachable.
func (s *Synchronizer) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CacheTimeout)
	defer cancel()
	return s.cache.Ping(ctx)
}

// TermsForSubject returns the subject's terms: from the cache when fresh
// and not forced, otherwise from the network, falling back to whatever is
// cached (possibly stale, possibly empty).
func (s *Synchronizer) TermsForSubject(ctx context.Context, subject models.Subject, forceRefresh bool) (terms []models.Term) {
	defer s.recoverInto("terms for subject", func() { terms = []models.Term{} })

	terms, _ = s.load(ctx, subject, forceRefresh)
	return terms
}

// AllTerms aggregates every subject in enumeration order. A non-empty
// result is published to subscribers.
func (s *Synchronizer) AllTerms(ctx context.Context, forceRefresh bool) (terms []models.Term) {
	defer s.recoverInto("all terms", func() { terms = []models.Term{} })

	terms, _ = s.loadAll(ctx, forceRefresh)
	return terms
}

// loadAll returns the aggregate and the subjects whose load failed.
func (s *Synchronizer) loadAll(ctx context.Context, forceRefresh bool) ([]models.Term, []models.Subject) {
	subjects := models.Subjects()
	results := make([][]models.Term, len(subjects))
	errs := make([]error, len(subjects))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, sub := range subjects {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
					s.logger.Error("termsync: subject load panicked",
						slog.String("subject", string(sub)), slog.Any("panic", r))
				}
			}()
			results[i], errs[i] = s.load(ctx, sub, forceRefresh)
			return nil
		})
	}
	_ = g.Wait()

	all := []models.Term{}
	var failed []models.Subject
	for i, sub := range subjects {
		all = append(all, results[i]...)
		if errs[i] != nil {
			failed = append(failed, sub)
		}
	}

	if len(all) > 0 {
		s.stream.Publish(all, false)
	}

	if len(failed) == len(subjects) && len(all) == 0 {
		s.logger.Warn("termsync: every subject failed, falling back to cache")
		cached := s.cachedAll(ctx)
		s.stream.Publish(cached, false)
		return cached, failed
	}
	return all, failed
}

// Subscribe returns the reactive "all terms" view. The first subscription
// seeds the view from the cache unless a snapshot was already published.
func (s *Synchronizer) Subscribe(ctx context.Context) <-chan Snapshot {
	s.initOnce.Do(func() {
		func() {
			defer s.recoverInto("seed stream", func() {})
			terms := s.cachedAll(ctx)
			if s.stream.PublishInitial(terms) {
				s.logger.Debug("termsync: stream seeded from cache", slog.Int("terms", len(terms)))
			}
		}()
	})
	return s.stream.Subscribe(ctx)
}

// Latest returns the most recent published snapshot, if any.
func (s *Synchronizer) Latest() (Snapshot, bool) {
	return s.stream.Latest()
}

// SyncReport describes the outcome of a full sync.
type SyncReport struct {
	RunID    string           `json:"run_id"`
	Online   bool             `json:"online"`
	Failed   []models.Subject `json:"failed"`
	Terms    int              `json:"terms"`
	Duration time.Duration    `json:"duration"`
}

// OK reports whether every subject synced.
func (r SyncReport) OK() bool {
	return r.Online && len(r.Failed) == 0
}

// SyncAll force-refreshes every subject. It returns false without any
// fetch when offline, and otherwise true only if no subject failed.
func (s *Synchronizer) SyncAll(ctx context.Context) bool {
	return s.Sync(ctx).OK()
}

// Sync is SyncAll with a detailed report.
func (s *Synchronizer) Sync(ctx context.Context) (report SyncReport) {
	report.RunID = uuid.NewString()
	defer s.recoverInto("sync all", func() { report.Failed = models.Subjects() })

	start := time.Now()
	logger := s.logger.With(slog.String("run_id", report.RunID))

	if !s.probe.IsOnline() {
		logger.Warn("termsync: sync skipped, offline")
		s.advisories.Record(KindNetwork, "offline: sync skipped")
		return report
	}
	report.Online = true

	terms, failed := s.loadAll(ctx, true)
	report.Failed = failed
	report.Terms = len(terms)
	report.Duration = time.Since(start)

	logger.Info("termsync: sync completed",
		slog.Int("terms", report.Terms),
		slog.Int("failed", len(failed)),
		slog.Duration("duration", report.Duration))
	if report.OK() {
		s.advisories.Dismiss()
	}
	return report
}

// Search matches query against cached terms only.
func (s *Synchronizer) Search(ctx context.Context, query string) (terms []models.Term) {
	defer s.recoverInto("search", func() { terms = []models.Term{} })

	if strings.TrimSpace(query) == "" {
		return []models.Term{}
	}
	terms, ok := boundedRead(ctx, s.cfg.CacheTimeout, func(ctx context.Context) []models.Term {
		return s.cache.Search(ctx, query)
	})
	if !ok {
		s.logger.Warn("termsync: search timed out", slog.String("query", query))
		return []models.Term{}
	}
	return terms
}

// TermByID resolves id from the fresh cache, then the stale cache, then a
// reload of its subject. The reload only happens when the subject has no
// fresh entry: a fresh entry without the id is authoritative. It returns
// apperr.ErrNotFound when every source is exhausted.
func (s *Synchronizer) TermByID(ctx context.Context, id string) (term models.Term, err error) {
	defer s.recoverInto("term by id", func() { term, err = models.Term{}, apperr.ErrNotFound })

	subject, ok := SubjectOf(id)
	if !ok {
		return models.Term{}, apperr.ErrNotFound
	}

	terms, fresh := s.readCache(ctx, subject, false)
	if t, found := find(terms, id); found {
		return t, nil
	}
	if !fresh {
		if terms, ok := s.readCache(ctx, subject, true); ok {
			if t, found := find(terms, id); found {
				return t, nil
			}
		}
		terms, _ = s.load(ctx, subject, false)
		if t, found := find(terms, id); found {
			return t, nil
		}
	}

	s.advisories.Record(KindNotFound, "term "+id+" not found")
	return models.Term{}, apperr.ErrNotFound
}

// CacheInfo returns a diagnostic snapshot of the cache.
func (s *Synchronizer) CacheInfo(ctx context.Context) (info models.CacheInfo) {
	empty := models.CacheInfo{
		SubjectCounts: map[models.Subject]int{},
		LastSyncTimes: map[models.Subject]time.Time{},
	}
	defer s.recoverInto("cache info", func() { info = empty })

	info, ok := boundedRead(ctx, s.cfg.CacheTimeout, s.cache.Info)
	if !ok {
		return empty
	}
	return info
}

// ClearCache drops every cached entry and resets the view to empty.
func (s *Synchronizer) ClearCache(ctx context.Context) {
	defer s.recoverInto("clear cache", func() {})

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	s.cache.Clear(ctx)
	s.stream.Publish([]models.Term{}, true)
}

// Advisory returns the most recent absorbed-fault message.
func (s *Synchronizer) Advisory() (Advisory, bool) {
	return s.advisories.Latest()
}

// DismissAdvisory clears the current advisory.
func (s *Synchronizer) DismissAdvisory() {
	s.advisories.Dismiss()
}

// Wait blocks until pending write-throughs have finished.
func (s *Synchronizer) Wait() {
	s.writes.Wait()
}

// Close drains pending writes and closes every subscription.
func (s *Synchronizer) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.writes.Wait()
	s.stream.Close()
}

// load runs the per-subject state machine. The returned error reports
// whether the network path failed; terms are valid either way.
func (s *Synchronizer) load(ctx context.Context, subject models.Subject, forceRefresh bool) ([]models.Term, error) {
	if !subject.Valid() {
		return []models.Term{}, fmt.Errorf("termsync: %w: %q", apperr.ErrUnknownSubject, subject)
	}
	logger := s.logger.With(slog.String("subject", string(subject)))

	if !forceRefresh {
		if terms, ok := s.readCache(ctx, subject, false); ok {
			logger.Debug("termsync: cache hit", slog.Int("terms", len(terms)))
			return terms, nil
		}
	}

	if !s.probe.IsOnline() {
		logger.Info("termsync: offline, serving cached terms")
		s.advisories.Record(KindNetwork, "offline: showing saved terms")
		return s.stale(ctx, subject), errOffline
	}

	terms, err := s.fetch(ctx, subject)
	if err != nil {
		logger.Warn("termsync: fetch failed, serving cached terms", slog.String("error", err.Error()))
		s.advisories.Record(kindOf(err), "could not refresh "+subject.DisplayName(models.LangEnglish)+": "+err.Error())
		return s.stale(ctx, subject), err
	}
	return terms, nil
}

// fetch collapses concurrent fetches of one subject. The shared fetch runs
// detached from any single caller; each caller still honors its own ctx.
func (s *Synchronizer) fetch(ctx context.Context, subject models.Subject) ([]models.Term, error) {
	ch := s.flight.DoChan(string(subject), func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("termsync: fetch panicked: %v", r)
			}
		}()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NetworkTimeout)
		defer cancel()

		rows, err := retry.Do(fctx, s.cfg.Retry, func(ctx context.Context) ([][]string, error) {
			return s.source.Fetch(ctx, subject)
		})
		if err != nil {
			return nil, err
		}

		res := parser.Parse(rows, subject)
		s.logger.Info("termsync: fetched",
			slog.String("subject", string(subject)),
			slog.Int("terms", len(res.Terms)),
			slog.Int("skipped", res.Skipped))
		s.persist(subject, res.Terms)
		return res.Terms, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]models.Term), nil
	case <-ctx.Done():
		return nil, &apperr.NetworkError{Op: "fetch " + string(subject), Cause: ctx.Err()}
	}
}

// persist writes terms through to the cache without blocking the caller,
// then republishes the view.
func (s *Synchronizer) persist(subject models.Subject, terms []models.Term) {
	write := func() {
		defer s.recoverInto("write-through", func() {})
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CacheTimeout)
		defer cancel()
		s.cache.Put(ctx, subject, terms)

		s.publishMu.Lock()
		defer s.publishMu.Unlock()
		s.stream.Publish(s.cache.GetAll(ctx), false)
	}

	if s.closed.Load() {
		write()
		return
	}
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		write()
	}()
}

// readCache reads one subject within the cache timeout. stale ignores the TTL.
func (s *Synchronizer) readCache(ctx context.Context, subject models.Subject, stale bool) ([]models.Term, bool) {
	type result struct {
		terms []models.Term
		ok    bool
	}
	r, done := boundedRead(ctx, s.cfg.CacheTimeout, func(ctx context.Context) result {
		var res result
		if stale {
			res.terms, res.ok = s.cache.Peek(ctx, subject)
		} else {
			res.terms, res.ok = s.cache.Get(ctx, subject)
		}
		return res
	})
	if !done {
		s.logger.Warn("termsync: cache read timed out", slog.String("subject", string(subject)))
		return nil, false
	}
	return r.terms, r.ok
}

// stale returns the cached terms regardless of age, or an empty slice.
func (s *Synchronizer) stale(ctx context.Context, subject models.Subject) []models.Term {
	if terms, ok := s.readCache(ctx, subject, true); ok {
		return terms
	}
	return []models.Term{}
}

func (s *Synchronizer) cachedAll(ctx context.Context) []models.Term {
	terms, ok := boundedRead(ctx, s.cfg.CacheTimeout, s.cache.GetAll)
	if !ok {
		return []models.Term{}
	}
	return terms
}

// recoverInto absorbs a panic in a public operation: it logs, records an
// internal advisory and lets fallback set the degraded result.
func (s *Synchronizer) recoverInto(op string, fallback func()) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Error("termsync: internal fault", slog.String("op", op), slog.Any("panic", r))
	s.advisories.Record(KindInternal, "internal error during "+op)
	fallback()
}

// boundedRead runs fn with a deadline and reports false if it did not
// finish in time.
func boundedRead[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) T) (T, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan T, 1)
	go func() {
		var zero T
		defer func() {
			if r := recover(); r != nil {
				ch <- zero
			}
		}()
		ch <- fn(ctx)
	}()

	select {
	case v := <-ch:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// SubjectOf extracts the subject encoded in a term id.
func SubjectOf(id string) (models.Subject, bool) {
	for _, sub := range models.Subjects() {
		if strings.HasPrefix(id, string(sub)+"_") {
			return sub, true
		}
	}
	return "", false
}

func find(terms []models.Term, id string) (models.Term, bool) {
	for _, t := range terms {
		if t.ID == id {
			return t, true
		}
	}
	return models.Term{}, false
}
