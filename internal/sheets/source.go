// Package sheets fetches raw glossary rows from the spreadsheet that backs
// the glossary. Implementations perform a single attempt per call; retries
// belong to the caller.
package sheets

import (
	"context"
	"encoding/json"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

// Source returns the raw rows (rows × columns) stored for a subject.
type Source interface {
	Fetch(ctx context.Context, subject models.Subject) ([][]string, error)
}

// ValueRange is the Sheets v4 "values" response body.
type ValueRange struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

// DecodeValueRange parses a value-range JSON document.
func DecodeValueRange(data []byte) (*ValueRange, error) {
	var vr ValueRange
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, &apperr.ParseError{Message: "decode value range", Cause: err}
	}
	return &vr, nil
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, subject models.Subject) ([][]string, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, subject models.Subject) ([][]string, error) {
	return f(ctx, subject)
}
