// Package parser converts raw spreadsheet rows into validated glossary terms.
package parser

import (
	"strconv"
	"strings"

	"github.com/starford/bilimsoz/internal/checksum"
	"github.com/starford/bilimsoz/internal/models"
)

// minColumns is the number of populated columns a row needs:
// kazakh, russian, english, description.
const minColumns = 4

// Result holds the output of parsing one subject's rows.
type Result struct {
	Terms   []models.Term
	Skipped int
}

// Parse turns raw rows into terms. Rows whose first four columns are not
// all non-blank are dropped; extra columns are ignored. Ids are derived
// from the subject and the first column, so identical input yields
// identical ids.
func Parse(rows [][]string, subject models.Subject) *Result {
	res := &Result{Terms: make([]models.Term, 0, len(rows))}
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		cols, ok := columns(row)
		if !ok {
			res.Skipped++
			continue
		}

		id := TermID(subject, cols[0])
		seen[id]++
		if n := seen[id]; n > 1 {
			id += "_" + strconv.Itoa(n)
		}

		res.Terms = append(res.Terms, models.Term{
			ID:          id,
			Kazakh:      cols[0],
			Russian:     cols[1],
			English:     cols[2],
			Description: cols[3],
			Subject:     subject,
		})
	}
	return res
}

// TermID returns the stable id for a term of subject whose first column is text.
func TermID(subject models.Subject, text string) string {
	return string(subject) + "_" + checksum.Short(text)
}

// columns trims the first four cells and reports whether all are populated.
func columns(row []string) ([minColumns]string, bool) {
	var out [minColumns]string
	if len(row) < minColumns {
		return out, false
	}
	for i := 0; i < minColumns; i++ {
		v := strings.TrimSpace(row[i])
		if v == "" {
			return out, false
		}
		out[i] = v
	}
	return out, true
}
