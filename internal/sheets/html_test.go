package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/models"
)

const publishedPage = `<!DOCTYPE html>
<html><body>
<ul id="sheet-menu">
  <li id="sheet-button-0"><a href="#">Математика</a></li>
  <li id="sheet-button-1183"><a href="#">Физика</a></li>
</ul>
<div id="sheets-viewport">
  <div id="0"><table class="waffle"><tbody>
    <tr><th>1</th><td>Қазақша</td><td>Русский</td><td>English</td><td>Сипаттама</td></tr>
    <tr><th>2</th><td>Сан</td><td>Число</td><td>Number</td><td>math object</td></tr>
  </tbody></table></div>
  <div id="1183"><table class="waffle"><tbody>
    <tr><th>1</th><td>Қазақша</td><td>Русский</td><td>English</td><td>Сипаттама</td></tr>
    <tr><th>2</th><td> Күш </td><td>Сила</td><td>Force</td><td>physical quantity</td></tr>
    <tr><th>3</th><td>Масса</td><td>Масса</td><td></td><td></td></tr>
  </tbody></table></div>
</div>
</body></html>`

func TestParsePublishedHTML(t *testing.T) {
	rows, err := ParsePublishedHTML([]byte(publishedPage), "Физика")
	if err != nil {
		t.Fatalf("ParsePublishedHTML: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (header skipped): %v", len(rows), rows)
	}
	if rows[0][0] != "Күш" || rows[0][2] != "Force" {
		t.Errorf("first row = %v", rows[0])
	}
	if len(rows[1]) != 4 || rows[1][2] != "" {
		t.Errorf("second row = %v", rows[1])
	}
}

func TestParsePublishedHTML_MissingSheet(t *testing.T) {
	_, err := ParsePublishedHTML([]byte(publishedPage), "Химия")
	var parseErr *apperr.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestHTMLSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(publishedPage))
	}))
	defer srv.Close()

	src := NewHTMLSource(srv.URL+"/pubhtml", time.Second, 6000)
	rows, err := src.Fetch(context.Background(), models.SubjectMathematics)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 || rows[0][2] != "Number" {
		t.Errorf("rows = %v", rows)
	}
}
