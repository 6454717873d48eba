// Package termcache persists per-subject term lists with a read-time expiry.
package termcache

import (
	"context"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

// Entry is the stored state of one subject.
type Entry struct {
	Subject  models.Subject
	Terms    []models.Term
	SyncedAt time.Time
}

// Backend is the raw persistence layer behind a Store. Load returns
// apperr.ErrCacheMiss when nothing is stored for the subject. Backends do
// not interpret SyncedAt; expiry is the Store's concern.
type Backend interface {
	Load(ctx context.Context, subject models.Subject) (*Entry, error)
	Save(ctx context.Context, e *Entry) error
	Clear(ctx context.Context) error
	Close() error
}

// Pinger is implemented by backends that hold a connection worth checking.
type Pinger interface {
	Ping(ctx context.Context) error
}
