package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/parser"
	"github.com/starford/bilimsoz/internal/testutil"
	"github.com/starford/bilimsoz/internal/wotd"
)

func testServer(t *testing.T) (*Server, *glossary.Service) {
	t.Helper()

	rows := map[models.Subject][][]string{
		models.SubjectPhysics: {testutil.ForceRow, testutil.MassRow},
		models.SubjectBiology: {testutil.CellRow},
	}
	sync := testutil.TestSynchronizer(t, testutil.Source(rows))
	prefs := testutil.TestPrefs(t)
	svc := glossary.New(sync, prefs, wotd.New(prefs, wotd.WithLogger(testutil.Logger())), testutil.Logger())

	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_terms":
		result, err = srv.searchTerms(ctx, req)
	case "get_term":
		result, err = srv.getTerm(ctx, req)
	case "list_subject_terms":
		result, err = srv.listSubjectTerms(ctx, req)
	case "word_of_day":
		result, err = srv.wordOfDay(ctx, req)
	case "sync_subjects":
		result, err = srv.syncSubjects(ctx, req)
	case "cache_info":
		result, err = srv.cacheInfo(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListSubjectTerms(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_subject_terms", map[string]interface{}{"subject": "physics", "refresh": true})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var terms []models.Term
	if err := json.Unmarshal([]byte(resultText(r)), &terms); err != nil {
		t.Fatal(err)
	}
	if len(terms) != 2 || terms[0].English != "Force" {
		t.Errorf("terms = %+v", terms)
	}

	r = callTool(t, srv, "list_subject_terms", map[string]interface{}{"subject": "ASTROLOGY"})
	if !r.IsError {
		t.Error("expected error for unknown subject")
	}
}

func TestGetTerm(t *testing.T) {
	srv, _ := testServer(t)
	id := parser.TermID(models.SubjectBiology, testutil.CellRow[0])

	r := callTool(t, srv, "get_term", map[string]interface{}{"id": id})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"russian": "Клетка"`) {
		t.Errorf("get_term = %s", resultText(r))
	}

	r = callTool(t, srv, "get_term", map[string]interface{}{"id": "BIOLOGY_000000000000"})
	if !r.IsError {
		t.Error("expected error for missing term")
	}
}

func TestSearchTerms(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "search_terms", map[string]interface{}{"query": "mass"})
	if text := resultText(r); text != "no matching terms" {
		t.Errorf("search before sync = %q", text)
	}

	callTool(t, srv, "sync_subjects", nil)
	svc.Wait()

	r = callTool(t, srv, "search_terms", map[string]interface{}{"query": "MASS"})
	if !strings.Contains(resultText(r), `"english": "Mass"`) {
		t.Errorf("search = %s", resultText(r))
	}

	r = callTool(t, srv, "search_terms", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing query")
	}
}

func TestSyncAndCacheInfo(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "sync_subjects", nil)
	if r.IsError || !strings.Contains(resultText(r), `"terms": 3`) {
		t.Fatalf("sync = %s", resultText(r))
	}
	svc.Wait()

	var info models.CacheInfo
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "cache_info", nil))), &info); err != nil {
		t.Fatal(err)
	}
	if info.TotalTerms != 3 {
		t.Errorf("total = %d, want 3", info.TotalTerms)
	}
}

func TestWordOfDay(t *testing.T) {
	srv, _ := testServer(t)

	first := resultText(callTool(t, srv, "word_of_day", nil))
	second := resultText(callTool(t, srv, "word_of_day", nil))
	if first == "" || first != second {
		t.Errorf("word of day not stable: %q vs %q", first, second)
	}
}

func TestSubjectsResource(t *testing.T) {
	srv, _ := testServer(t)

	contents, err := srv.readSubjectsResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var entries []subjectEntry
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(models.Subjects()) {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[8].Kazakh != "Жаратылыстану" || entries[8].English != "Natural Science" {
		t.Errorf("natural science = %+v", entries[8])
	}
}
