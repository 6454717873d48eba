// Package sse implements a Server-Sent Events broker for live term updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/bilimsoz/internal/models"
)

// Event types.
const (
	EventTermsUpdated = "terms.updated"
	EventCacheCleared = "cache.cleared"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TermsUpdate is the payload of a terms.updated event.
type TermsUpdate struct {
	Seq   uint64        `json:"seq"`
	Total int           `json:"total"`
	Terms []models.Term `json:"terms"`
	At    time.Time     `json:"at"`
}

type snapshotReq struct {
	cleared bool
	update  TermsUpdate
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, throttle timestamp, pending update). Public methods communicate with
// this loop through channels, so no mutexes are required.
type Broker struct {
	termsMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	snapshotCh    chan snapshotReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. At most one terms.updated event is
// sent per throttle interval; updates arriving in between are coalesced and
// the newest one is sent when the interval ends.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		termsMin:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		snapshotCh:    make(chan snapshotReq, 16),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), event.Type, payload)), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastTerms time.Time
		pending   *TermsUpdate
		flush     <-chan time.Time
	)

	broadcast := func(event Event) {
		raw, ok := encode(event)
		if !ok {
			return
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	sendTerms := func(u TermsUpdate) {
		lastTerms = time.Now()
		broadcast(Event{Type: EventTermsUpdated, Data: u})
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.snapshotCh:
			if req.cleared {
				// A clear supersedes any update still waiting out the throttle.
				pending = nil
				broadcast(Event{Type: EventCacheCleared, Data: map[string]string{}})
				continue
			}
			u := req.update
			if wait := b.termsMin - time.Since(lastTerms); wait > 0 {
				pending = &u
				if flush == nil {
					flush = time.After(wait)
				}
				continue
			}
			sendTerms(u)

		case <-flush:
			flush = nil
			if pending != nil {
				sendTerms(*pending)
				pending = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishTerms queues a throttled terms.updated event.
func (b *Broker) PublishTerms(seq uint64, terms []models.Term) {
	if b.closed.Load() {
		return
	}
	if terms == nil {
		terms = []models.Term{}
	}
	u := TermsUpdate{Seq: seq, Total: len(terms), Terms: terms, At: time.Now()}
	select {
	case b.snapshotCh <- snapshotReq{update: u}:
	case <-b.stopped:
	}
}

// PublishCleared sends a cache.cleared event and drops any pending update.
func (b *Broker) PublishCleared() {
	if b.closed.Load() {
		return
	}
	select {
	case b.snapshotCh <- snapshotReq{cleared: true}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
