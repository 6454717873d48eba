package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

func testClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:           srv.URL,
		SpreadsheetID:     "sheet-id",
		APIKey:            "secret",
		Timeout:           2 * time.Second,
		RequestsPerMinute: 6000,
	})
}

func TestClientFetch(t *testing.T) {
	var gotPath, gotKey string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Физика!A2:D100","majorDimension":"ROWS","values":[["Күш","Сила","Force","physical quantity"],["Масса","Масса"]]}`))
	})

	rows, err := c.Fetch(context.Background(), models.SubjectPhysics)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotPath != "/v4/spreadsheets/sheet-id/values/Физика!A2:D" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("key = %q", gotKey)
	}
	if len(rows) != 2 || rows[0][2] != "Force" || len(rows[1]) != 2 {
		t.Errorf("rows = %v", rows)
	}
}

func TestClientFetch_ServerErrorIsRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Fetch(context.Background(), models.SubjectPhysics)
	var netErr *apperr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if netErr.Status != http.StatusServiceUnavailable || !netErr.Retryable {
		t.Errorf("unexpected error: %+v", netErr)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("api key leaked into error: %v", err)
	}
}

func TestClientFetch_ClientErrorNotRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Fetch(context.Background(), models.SubjectPhysics)
	if apperr.IsRetryable(err) {
		t.Errorf("403 should not be retryable: %v", err)
	}
}

func TestClientFetch_BadJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"values": "nope"`))
	})

	_, err := c.Fetch(context.Background(), models.SubjectPhysics)
	var parseErr *apperr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
}

func TestClientFetch_UnknownSubject(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Fetch(context.Background(), models.Subject("ASTROLOGY"))
	if !errors.Is(err, apperr.ErrUnknownSubject) {
		t.Errorf("err = %v, want ErrUnknownSubject", err)
	}
}

func TestClientFetch_ContextTimeout(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, models.SubjectPhysics)
	var netErr *apperr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if netErr.Retryable {
		t.Error("deadline errors should not be retried")
	}
}
