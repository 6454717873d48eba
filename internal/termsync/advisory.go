package termsync

import (
	"errors"
	"sync"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
)

// Kind classifies an absorbed fault.
type Kind string

const (
	KindNetwork  Kind = "network"
	KindParse    Kind = "parse"
	KindCache    Kind = "cache"
	KindNotFound Kind = "not_found"
	KindInternal Kind = "internal"
)

// Advisory is the optional-display message left behind when a fault was
// absorbed instead of returned.
type Advisory struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Advisories holds the most recent advisory. It is shared between the
// synchronizer and the cache store's fault handler.
type Advisories struct {
	mu     sync.Mutex
	latest Advisory
	has    bool
	now    func() time.Time
}

// NewAdvisories creates an empty advisory holder.
func NewAdvisories() *Advisories {
	return &Advisories{now: time.Now}
}

// Record replaces the current advisory.
func (a *Advisories) Record(kind Kind, message string) {
	a.mu.Lock()
	a.latest = Advisory{Kind: kind, Message: message, At: a.now()}
	a.has = true
	a.mu.Unlock()
}

// Latest returns the current advisory, if any.
func (a *Advisories) Latest() (Advisory, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest, a.has
}

// Dismiss clears the current advisory.
func (a *Advisories) Dismiss() {
	a.mu.Lock()
	a.has = false
	a.latest = Advisory{}
	a.mu.Unlock()
}

// kindOf maps an error to its advisory kind.
func kindOf(err error) Kind {
	var parseErr *apperr.ParseError
	var cacheErr *apperr.CacheError
	switch {
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &cacheErr):
		return KindCache
	case errors.Is(err, apperr.ErrNotFound):
		return KindNotFound
	default:
		return KindNetwork
	}
}
