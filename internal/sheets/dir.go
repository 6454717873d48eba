package sheets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

// DirSource reads value-range JSON files named <SUBJECT>.json from a
// local directory. It serves offline deployments and local editing.
type DirSource struct {
	root string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) (*DirSource, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("sheets: resolve dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("sheets: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sheets: not a directory: %s", abs)
	}
	return &DirSource{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *DirSource) Root() string {
	return d.root
}

// Path returns the file that holds subject's rows.
func (d *DirSource) Path(subject models.Subject) string {
	return filepath.Join(d.root, string(subject)+".json")
}

// SubjectForFile maps a file path back to its subject.
func SubjectForFile(path string) (models.Subject, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	s, err := models.ParseSubject(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return s, true
}

// Fetch implements Source.
func (d *DirSource) Fetch(ctx context.Context, subject models.Subject) ([][]string, error) {
	if !subject.Valid() {
		return nil, fmt.Errorf("sheets: %w: %q", apperr.ErrUnknownSubject, subject)
	}
	if err := ctx.Err(); err != nil {
		return nil, &apperr.NetworkError{Op: "read " + string(subject), Cause: err}
	}
	data, err := os.ReadFile(d.Path(subject))
	if err != nil {
		return nil, &apperr.NetworkError{Op: "read " + string(subject), Cause: err}
	}
	vr, err := DecodeValueRange(data)
	if err != nil {
		return nil, err
	}
	return vr.Values, nil
}
