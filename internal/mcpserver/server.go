// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes glossary tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bilimsoz/internal/apperr"
	"github.com/starford/bilimsoz/internal/glossary"
	"github.com/starford/bilimsoz/internal/models"
)

// SubjectsURI is the resource listing every subject.
const SubjectsURI = "bilimsoz://subjects"

// maxSearchResults caps search_terms output.
const maxSearchResults = 50

// Server wraps the MCP server with glossary tools.
type Server struct {
	mcp *server.MCPServer
	svc *glossary.Service
}

// New creates a new MCP server with all glossary tools registered.
func New(svc *glossary.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Bilimsoz",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_terms",
		mcp.WithDescription("Search cached glossary terms. Matches Kazakh, Russian, English and description text, ignoring case."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchTerms)

	s.mcp.AddTool(mcp.NewTool("get_term",
		mcp.WithDescription("Get one term with its three translations and description."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Term id, e.g. PHYSICS_3f2a9c1b7e40")),
	), s.getTerm)

	s.mcp.AddTool(mcp.NewTool("list_subject_terms",
		mcp.WithDescription("List every term of a subject. Read the "+SubjectsURI+" resource for valid subjects."),
		mcp.WithString("subject", mcp.Required(), mcp.Description("Subject tag, e.g. PHYSICS")),
		mcp.WithBoolean("refresh", mcp.Description("Bypass the cache and fetch from the source")),
	), s.listSubjectTerms)

	s.mcp.AddTool(mcp.NewTool("word_of_day",
		mcp.WithDescription("Today's term. The same for every caller during one day."),
	), s.wordOfDay)

	s.mcp.AddTool(mcp.NewTool("sync_subjects",
		mcp.WithDescription("Force-refresh every subject from the source and report the outcome."),
	), s.syncSubjects)

	s.mcp.AddTool(mcp.NewTool("cache_info",
		mcp.WithDescription("Cached term counts per subject and the time each subject was last synced."),
	), s.cacheInfo)

	s.mcp.AddResource(
		mcp.NewResource(SubjectsURI, "Subjects",
			mcp.WithResourceDescription("Every subject tag with its Kazakh, Russian and English names."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSubjectsResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchTerms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results := s.svc.Search(ctx, query)
	if len(results) == 0 {
		return mcp.NewToolResultText("no matching terms"), nil
	}
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return jsonResult(results)
}

func (s *Server) getTerm(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	term, err := s.svc.TermByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(term)
}

func (s *Server) listSubjectTerms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	subject, err := models.ParseSubject(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refresh := false
	if v, bErr := req.RequireBool("refresh"); bErr == nil {
		refresh = v
	}
	return jsonResult(s.svc.TermsForSubject(ctx, subject, refresh))
}

func (s *Server) wordOfDay(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, ok := s.svc.WordOfDay(ctx)
	if !ok {
		return mcp.NewToolResultError("no terms available"), nil
	}
	return jsonResult(term)
}

func (s *Server) syncSubjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.svc.Sync(ctx)
	if !report.Online {
		return mcp.NewToolResultError("offline: sync skipped"), nil
	}
	return jsonResult(report)
}

func (s *Server) cacheInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.CacheInfo(ctx))
}

type subjectEntry struct {
	Subject models.Subject `json:"subject"`
	Kazakh  string         `json:"kazakh"`
	Russian string         `json:"russian"`
	English string         `json:"english"`
}

func (s *Server) readSubjectsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries := make([]subjectEntry, 0, len(models.Subjects()))
	for _, sub := range models.Subjects() {
		entries = append(entries, subjectEntry{
			Subject: sub,
			Kazakh:  sub.DisplayName(models.LangKazakh),
			Russian: sub.DisplayName(models.LangRussian),
			English: sub.DisplayName(models.LangEnglish),
		})
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SubjectsURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
