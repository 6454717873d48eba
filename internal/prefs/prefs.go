// Package prefs persists user preferences: language, favorites and the
// current word-of-the-day choice.
package prefs

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/starford/bilimsoz/internal/models"
)

const bucketSettings = "settings"

// Fixed keys in the settings bucket.
const (
	keyLanguage      = "language"
	keyFavorites     = "favorites"        // JSON array of term ids
	keyWordOfDayID   = "word_of_day_id"   // term id
	keyWordOfDayDate = "word_of_day_date" // local midnight, unix milliseconds
)

// Store is a bbolt-backed preferences store.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the preferences file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("prefs: open: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSettings))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prefs: create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Language returns the stored language, or models.DefaultLanguage.
func (s *Store) Language() (models.Language, error) {
	raw, err := s.get(keyLanguage)
	if err != nil {
		return models.DefaultLanguage, err
	}
	if raw == nil {
		return models.DefaultLanguage, nil
	}
	lang, err := models.ParseLanguage(string(raw))
	if err != nil {
		return models.DefaultLanguage, nil
	}
	return lang, nil
}

// SetLanguage stores the language preference.
func (s *Store) SetLanguage(lang models.Language) error {
	if _, err := models.ParseLanguage(string(lang)); err != nil {
		return fmt.Errorf("prefs: %w", err)
	}
	return s.put(map[string][]byte{keyLanguage: []byte(lang)})
}

// Favorites returns the favorite term ids in sorted order.
func (s *Store) Favorites() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		ids, err = readFavorites(tx.Bucket([]byte(bucketSettings)))
		return err
	})
	return ids, err
}

// IsFavorite reports whether id is a favorite.
func (s *Store) IsFavorite(id string) (bool, error) {
	ids, err := s.Favorites()
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ids, id)
	return found, nil
}

// AddFavorite marks id as a favorite.
func (s *Store) AddFavorite(id string) error {
	return s.updateFavorites(func(ids []string) []string {
		if i, found := slices.BinarySearch(ids, id); !found {
			ids = slices.Insert(ids, i, id)
		}
		return ids
	})
}

// RemoveFavorite unmarks id.
func (s *Store) RemoveFavorite(id string) error {
	return s.updateFavorites(func(ids []string) []string {
		if i, found := slices.BinarySearch(ids, id); found {
			ids = slices.Delete(ids, i, i+1)
		}
		return ids
	})
}

// ToggleFavorite flips id and returns whether it is now a favorite.
func (s *Store) ToggleFavorite(id string) (bool, error) {
	var now bool
	err := s.updateFavorites(func(ids []string) []string {
		i, found := slices.BinarySearch(ids, id)
		if found {
			now = false
			return slices.Delete(ids, i, i+1)
		}
		now = true
		return slices.Insert(ids, i, id)
	})
	return now, err
}

// WordOfDay returns the persisted word-of-the-day record, if any.
func (s *Store) WordOfDay() (models.WordOfDayRecord, bool, error) {
	var rec models.WordOfDayRecord
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSettings))
		id := b.Get([]byte(keyWordOfDayID))
		day := b.Get([]byte(keyWordOfDayDate))
		if id == nil || day == nil {
			return nil
		}
		ms, err := strconv.ParseInt(string(day), 10, 64)
		if err != nil {
			return nil
		}
		rec = models.WordOfDayRecord{TermID: string(id), Day: time.UnixMilli(ms)}
		ok = true
		return nil
	})
	return rec, ok, err
}

// SetWordOfDay persists rec. Both keys are written in one transaction.
func (s *Store) SetWordOfDay(rec models.WordOfDayRecord) error {
	return s.put(map[string][]byte{
		keyWordOfDayID:   []byte(rec.TermID),
		keyWordOfDayDate: []byte(strconv.FormatInt(rec.Day.UnixMilli(), 10)),
	})
}

func (s *Store) get(key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(bucketSettings)).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *Store) put(kv map[string][]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSettings))
		for k, v := range kv {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) updateFavorites(fn func([]string) []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSettings))
		ids, err := readFavorites(b)
		if err != nil {
			return err
		}
		data, err := json.Marshal(fn(ids))
		if err != nil {
			return err
		}
		return b.Put([]byte(keyFavorites), data)
	})
}

func readFavorites(b *bbolt.Bucket) ([]string, error) {
	ids := []string{}
	raw := b.Get([]byte(keyFavorites))
	if raw == nil {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("prefs: decode favorites: %w", err)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
