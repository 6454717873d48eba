// Package testutil provides shared test helpers for setting up caches,
// preference files and synchronizers.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/prefs"
	"github.com/starford/bilimsoz/internal/probe"
	"github.com/starford/bilimsoz/internal/retry"
	"github.com/starford/bilimsoz/internal/sheets"
	"github.com/starford/bilimsoz/internal/termcache"
	"github.com/starford/bilimsoz/internal/termsync"
)

// Sample rows, one term each.
var (
	ForceRow = []string{"Күш", "Сила", "Force", "physical quantity"}
	MassRow  = []string{"Масса", "Масса", "Mass", "amount of matter"}
	CellRow  = []string{"Жасуша", "Клетка", "Cell", "unit of life"}
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestCache creates a temporary SQLite cache backend that is automatically cleaned up.
func TestCache(t *testing.T) *termcache.SQLiteBackend {
	t.Helper()
	dbFile, err := os.CreateTemp("", "bilimsoz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := termcache.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPrefs opens a preferences file in a temp dir.
func TestPrefs(t *testing.T) *prefs.Store {
	t.Helper()
	p, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// Source serves fixed rows. Subjects without rows yield an empty sheet.
func Source(rows map[models.Subject][][]string) sheets.Source {
	return sheets.SourceFunc(func(ctx context.Context, subject models.Subject) ([][]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return rows[subject], nil
	})
}

// TestSynchronizer builds an online synchronizer over an in-memory cache
// with short timeouts. It is closed on cleanup.
func TestSynchronizer(t *testing.T, src sheets.Source) *termsync.Synchronizer {
	t.Helper()
	store := termcache.NewStore(termcache.NewMemoryBackend(), termcache.WithLogger(Logger()))
	s := termsync.New(src, store, probe.NewStatic(true),
		termsync.WithLogger(Logger()),
		termsync.WithConfig(termsync.Config{
			Retry: retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		}))
	t.Cleanup(s.Close)
	return s
}
