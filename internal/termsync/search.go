package termsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

// DefaultDebounce coalesces rapid successive search inputs.
const DefaultDebounce = 300 * time.Millisecond

// ErrSuperseded is returned to a search call that was replaced by a newer
// call on the same session before it completed.
var ErrSuperseded = errors.New("termsync: search superseded")

// SearchSession implements search-as-you-type: every call cancels the
// previous in-flight call and waits for the debounce delay before querying.
type SearchSession struct {
	sync  *Synchronizer
	delay time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	lastUsed time.Time
}

// NewSearchSession creates a session with the given debounce delay.
func (s *Synchronizer) NewSearchSession(delay time.Duration) *SearchSession {
	if delay < 0 {
		delay = 0
	}
	return &SearchSession{sync: s, delay: delay, lastUsed: time.Now()}
}

// Search debounces and runs query. A blank query returns an empty result
// at once and still cancels any pending call.
func (ss *SearchSession) Search(ctx context.Context, query string) ([]models.Term, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ss.mu.Lock()
	if ss.cancel != nil {
		ss.cancel()
	}
	ss.cancel = cancel
	ss.lastUsed = time.Now()
	ss.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return []models.Term{}, nil
	}

	t := time.NewTimer(ss.delay)
	defer t.Stop()
	select {
	case <-cctx.Done():
		return nil, ss.cause(ctx)
	case <-t.C:
	}

	terms := ss.sync.Search(cctx, query)
	if cctx.Err() != nil {
		return nil, ss.cause(ctx)
	}
	return terms, nil
}

func (ss *SearchSession) cause(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrSuperseded
}

func (ss *SearchSession) idleSince() time.Time {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastUsed
}

// SessionPool keeps one SearchSession per client key and forgets sessions
// idle for longer than ttl.
type SessionPool struct {
	sync  *Synchronizer
	delay time.Duration
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]*SearchSession
}

// NewSessionPool creates a pool of debounced search sessions.
func (s *Synchronizer) NewSessionPool(delay, ttl time.Duration) *SessionPool {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SessionPool{sync: s, delay: delay, ttl: ttl, sessions: make(map[string]*SearchSession)}
}

// Session returns the session for key, creating it if needed.
func (p *SessionPool) Session(key string) *SearchSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for k, ss := range p.sessions {
		if k != key && now.Sub(ss.idleSince()) > p.ttl {
			delete(p.sessions, k)
		}
	}

	ss, ok := p.sessions[key]
	if !ok {
		ss = p.sync.NewSearchSession(p.delay)
		p.sessions[key] = ss
	}
	return ss
}

// size returns the number of live sessions.
func (p *SessionPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
