package sheets

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/ratelimit"
)

// HTMLSource reads a spreadsheet that was "published to the web". It needs
// no API key: the published page lists every tab in #sheet-menu and renders
// each tab as a table inside a div whose id is the tab's gid.
type HTMLSource struct {
	http    *http.Client
	pageURL string
	limiter *ratelimit.Limiter
}

// NewHTMLSource creates a source for the published page at pageURL
// (typically https://docs.google.com/spreadsheets/d/e/<id>/pubhtml).
func NewHTMLSource(pageURL string, timeout time.Duration, requestsPerMinute int) *HTMLSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTMLSource{
		http:    &http.Client{Timeout: timeout},
		pageURL: pageURL,
		limiter: ratelimit.New(ratelimit.Config{RequestsPerMinute: requestsPerMinute}),
	}
}

// Fetch implements Source.
func (s *HTMLSource) Fetch(ctx context.Context, subject models.Subject) ([][]string, error) {
	if !subject.Valid() {
		return nil, fmt.Errorf("sheets: %w: %q", apperr.ErrUnknownSubject, subject)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &apperr.NetworkError{Op: "rate limit wait", Cause: err}
	}
	data, err := get(ctx, s.http, s.pageURL)
	if err != nil {
		return nil, err
	}
	return ParsePublishedHTML(data, subject.SheetName())
}

// ParsePublishedHTML extracts the rows of the named tab, without its header row.
func ParsePublishedHTML(data []byte, sheetName string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, &apperr.ParseError{Message: "read published html", Cause: err}
	}

	gid := ""
	doc.Find("#sheet-menu li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if strings.TrimSpace(li.Text()) != sheetName {
			return true
		}
		id, _ := li.Attr("id")
		gid = strings.TrimPrefix(id, "sheet-button-")
		return false
	})
	if gid == "" {
		return nil, &apperr.ParseError{Message: fmt.Sprintf("sheet %q not published", sheetName)}
	}

	table := doc.Find(fmt.Sprintf(`div[id="%s"] table`, gid)).First()
	if table.Length() == 0 {
		return nil, &apperr.ParseError{Message: fmt.Sprintf("sheet %q has no table", sheetName)}
	}

	var rows [][]string
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header row, the API range starts at A2
		}
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, row)
	})
	return rows, nil
}
