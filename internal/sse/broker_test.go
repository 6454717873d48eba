package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

var sample = []models.Term{{ID: "PHYSICS_a", Kazakh: "Күш", Russian: "Сила", English: "Force", Description: "d", Subject: models.SubjectPhysics}}

func drain(ch chan []byte, wait time.Duration) []string {
	var out []string
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
}

func count(msgs []string, eventType string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, "event: "+eventType+"\n") {
			n++
		}
	}
	return n
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTerms(7, sample)

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: terms.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"seq":7`) || !strings.Contains(s, `"total":1`) {
			t.Errorf("missing data in %q", s)
		}
		if !strings.HasPrefix(s, "id: ") {
			t.Errorf("missing event id in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishTerms_ThrottleKeepsNewest(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First goes out at once; the next two fall in the window and coalesce.
	b.PublishTerms(1, sample)
	b.PublishTerms(2, sample)
	b.PublishTerms(3, sample)

	msgs := drain(ch, 500*time.Millisecond)
	if got := count(msgs, EventTermsUpdated); got != 2 {
		t.Fatalf("terms events = %d, want 2: %q", got, msgs)
	}
	if !strings.Contains(msgs[0], `"seq":1`) {
		t.Errorf("first event = %q, want seq 1", msgs[0])
	}
	if !strings.Contains(msgs[1], `"seq":3`) {
		t.Errorf("trailing event = %q, want seq 3", msgs[1])
	}
}

func TestPublishCleared_DropsPendingUpdate(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishTerms(1, sample)
	b.PublishTerms(2, sample)
	b.PublishCleared()

	msgs := drain(ch, 500*time.Millisecond)
	if got := count(msgs, EventTermsUpdated); got != 1 {
		t.Errorf("terms events = %d, want 1: %q", got, msgs)
	}
	if got := count(msgs, EventCacheCleared); got != 1 {
		t.Errorf("cleared events = %d, want 1", got)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishCleared()
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: cache.cleared") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.PublishTerms(1, sample)
	b.PublishCleared()
}
