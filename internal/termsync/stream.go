package termsync

import (
	"context"
	"sync"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

// Snapshot is one published state of the "all terms" view. Terms must be
// treated as read-only by subscribers.
type Snapshot struct {
	Seq     uint64
	Terms   []models.Term
	Cleared bool
	At      time.Time
}

// Stream fans snapshots out to subscribers. Each subscriber receives the
// current snapshot on subscription and afterwards only the newest one: a
// slow reader skips intermediate snapshots instead of blocking publishers.
type Stream struct {
	mu     sync.Mutex
	latest Snapshot
	has    bool
	seq    uint64
	subs   map[chan Snapshot]struct{}
	closed bool
	done   chan struct{}
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{
		subs: make(map[chan Snapshot]struct{}),
		done: make(chan struct{}),
	}
}

// Publish replaces the current snapshot and notifies subscribers.
func (st *Stream) Publish(terms []models.Term, cleared bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.publishLocked(terms, cleared)
}

// PublishInitial publishes terms only if nothing has been published yet.
// It reports whether it did.
func (st *Stream) PublishInitial(terms []models.Term) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.has {
		return false
	}
	st.publishLocked(terms, false)
	return true
}

func (st *Stream) publishLocked(terms []models.Term, cleared bool) {
	if st.closed {
		return
	}
	if terms == nil {
		terms = []models.Term{}
	}
	st.seq++
	st.latest = Snapshot{Seq: st.seq, Terms: terms, Cleared: cleared, At: time.Now()}
	st.has = true
	for ch := range st.subs {
		offer(ch, st.latest)
	}
}

// offer delivers snap, evicting an unread older snapshot if necessary.
// Callers hold st.mu, so no other sender races for the buffer slot.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Latest returns the current snapshot.
func (st *Stream) Latest() (Snapshot, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.latest, st.has
}

// Subscribe returns a channel of snapshots that is closed when ctx is done
// or the stream is closed.
func (st *Stream) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		close(ch)
		return ch
	}
	st.subs[ch] = struct{}{}
	if st.has {
		ch <- st.latest
	}
	st.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-st.done:
			return
		}
		st.mu.Lock()
		defer st.mu.Unlock()
		if _, ok := st.subs[ch]; ok {
			delete(st.subs, ch)
			close(ch)
		}
	}()
	return ch
}

// subscribers returns the number of active subscribers.
func (st *Stream) subscribers() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.subs)
}

// Close closes every subscriber channel. Later publishes are ignored.
func (st *Stream) Close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.closed = true
	close(st.done)
	for ch := range st.subs {
		delete(st.subs, ch)
		close(ch)
	}
}
