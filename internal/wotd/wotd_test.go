package wotd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/starford/bilimsoz/internal/models"
)

type memRecords struct {
	rec    models.WordOfDayRecord
	ok     bool
	writes int
	err    error
}

func (m *memRecords) WordOfDay() (models.WordOfDayRecord, bool, error) {
	return m.rec, m.ok, m.err
}

func (m *memRecords) SetWordOfDay(rec models.WordOfDayRecord) error {
	if m.err != nil {
		return m.err
	}
	m.rec, m.ok = rec, true
	m.writes++
	return nil
}

func sampleTerms(n int) []models.Term {
	out := make([]models.Term, n)
	for i := range out {
		out[i] = models.Term{ID: fmt.Sprintf("MATHEMATICS_%d", i), Subject: models.SubjectMathematics}
	}
	return out
}

func newSelector(store RecordStore, now *time.Time) *Selector {
	return New(store,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return *now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestSeed(t *testing.T) {
	cases := []struct {
		day  time.Time
		want uint64
	}{
		{time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), 2026288},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2026001},
	}
	for _, tc := range cases {
		if got := Seed(tc.day); got != tc.want {
			t.Errorf("Seed(%s) = %d, want %d", tc.day.Format(time.DateOnly), got, tc.want)
		}
	}
}

func TestSelect_Empty(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	store := &memRecords{}
	if _, ok := newSelector(store, &now).Select(nil); ok {
		t.Error("selected from an empty list")
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestSelect_StableWithinDay(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 5, 0, 0, time.UTC)
	store := &memRecords{}
	sel := newSelector(store, &now)
	terms := sampleTerms(50)

	first, ok := sel.Select(terms)
	if !ok {
		t.Fatal("no term selected")
	}

	now = time.Date(2026, 10, 15, 23, 59, 0, 0, time.UTC)
	second, ok := sel.Select(terms)
	if !ok {
		t.Fatal("no term selected")
	}

	if first.ID != second.ID {
		t.Errorf("selection changed within the day: %s then %s", first.ID, second.ID)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if want := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC); !store.rec.Day.Equal(want) {
		t.Errorf("day = %v, want %v", store.rec.Day, want)
	}
}

func TestSelect_DeterministicAcrossStores(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	terms := sampleTerms(50)

	a, _ := newSelector(&memRecords{}, &now).Select(terms)
	b, _ := newSelector(&memRecords{}, &now).Select(terms)
	if a.ID != b.ID {
		t.Errorf("%s != %s", a.ID, b.ID)
	}
	if p := Pick(terms, now); p.ID != a.ID {
		t.Errorf("Pick = %s, Select = %s", p.ID, a.ID)
	}
}

func TestSelect_NewDayReselects(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &memRecords{}
	sel := newSelector(store, &now)
	terms := sampleTerms(50)

	sel.Select(terms)
	now = now.Add(24 * time.Hour)
	got, _ := sel.Select(terms)

	if store.writes != 2 {
		t.Errorf("writes = %d, want 2", store.writes)
	}
	if p := Pick(terms, now); p.ID != got.ID {
		t.Errorf("got %s, want %s", got.ID, p.ID)
	}
	if want := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC); !store.rec.Day.Equal(want) {
		t.Errorf("day = %v, want %v", store.rec.Day, want)
	}
}

func TestSelect_SavedTermMissing(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &memRecords{
		rec: models.WordOfDayRecord{TermID: "GONE", Day: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		ok:  true,
	}
	terms := sampleTerms(10)

	got, ok := newSelector(store, &now).Select(terms)
	if !ok {
		t.Fatal("no term selected")
	}
	if got.ID == "GONE" {
		t.Error("returned a term that no longer exists")
	}
	if store.rec.TermID != got.ID {
		t.Errorf("saved %s, returned %s", store.rec.TermID, got.ID)
	}
}

func TestSelect_SavedTermKeptEvenIfNotPicked(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	terms := sampleTerms(10)
	picked := Pick(terms, now)
	other := terms[0]
	if other.ID == picked.ID {
		other = terms[1]
	}
	store := &memRecords{
		rec: models.WordOfDayRecord{TermID: other.ID, Day: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		ok:  true,
	}

	got, _ := newSelector(store, &now).Select(terms)
	if got.ID != other.ID {
		t.Errorf("got %s, want saved %s", got.ID, other.ID)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestSelect_StoreFailureStillSelects(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	store := &memRecords{err: errors.New("disk full")}
	got, ok := newSelector(store, &now).Select(sampleTerms(5))
	if !ok || got.ID == "" {
		t.Errorf("got = %+v, %v", got, ok)
	}
}

func TestPick_InRange(t *testing.T) {
	terms := sampleTerms(3)
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 400; i++ {
		got := Pick(terms, day.AddDate(0, 0, i))
		if !strings.HasPrefix(got.ID, "MATHEMATICS_") {
			t.Fatalf("day %d: picked %q", i, got.ID)
		}
	}
}
