package sheets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

func TestDirSourceFetch(t *testing.T) {
	dir := t.TempDir()
	body := `{"range":"Биология!A2:D","majorDimension":"ROWS","values":[["Жасуша","Клетка","Cell","unit of life"]]}`
	if err := os.WriteFile(filepath.Join(dir, "BIOLOGY.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource: %v", err)
	}
	rows, err := src.Fetch(context.Background(), models.SubjectBiology)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 || rows[0][2] != "Cell" {
		t.Errorf("rows = %v", rows)
	}
}

func TestDirSourceFetch_MissingFile(t *testing.T) {
	src, err := NewDirSource(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = src.Fetch(context.Background(), models.SubjectBiology)
	var netErr *apperr.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if netErr.Retryable {
		t.Error("missing file should not be retryable")
	}
}

func TestNewDirSource_NotADir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDirSource(f); err == nil {
		t.Error("expected error for file path")
	}
}

func TestSubjectForFile(t *testing.T) {
	cases := map[string]struct {
		want models.Subject
		ok   bool
	}{
		"/data/PHYSICS.json":  {models.SubjectPhysics, true},
		"physics.json":        {models.SubjectPhysics, true},
		"/data/PHYSICS.json~": {"", false},
		"/data/ASTRO.json":    {"", false},
		"/data/notes.txt":     {"", false},
	}
	for path, tc := range cases {
		got, ok := SubjectForFile(path)
		if got != tc.want || ok != tc.ok {
			t.Errorf("SubjectForFile(%q) = %q, %v; want %q, %v", path, got, ok, tc.want, tc.ok)
		}
	}
}
