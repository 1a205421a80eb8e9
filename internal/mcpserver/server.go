// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes catalog tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/catalogservice"
	"github.com/starford/raido/internal/export"
	"github.com/starford/raido/internal/store"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// Server wraps the MCP server with catalog tools.
type Server struct {
	mcp  *server.MCPServer
	svc  *catalogservice.Service
	disp *export.Dispatcher
}

// New creates a new MCP server with all catalog tools registered.
func New(svc *catalogservice.Service, disp *export.Dispatcher) *Server {
	s := &Server{svc: svc, disp: disp}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_datasets",
		mcp.WithDescription("Search the Earth Engine dataset catalog. Text matches id, "+
			"title, description, and keywords; tags narrow to datasets carrying all of them."),
		mcp.WithString("query", mcp.Description("Substring to match (case-insensitive)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names; datasets must carry every one")),
		mcp.WithString("sort", mcp.Description("Sort key: title, provider, or updated_at")),
		mcp.WithNumber("page", mcp.Description("1-indexed page number")),
		mcp.WithNumber("per_page", mcp.Description("Results per page (default 10, max 100)")),
	), s.searchDatasets)

	s.mcp.AddTool(mcp.NewTool("get_dataset",
		mcp.WithDescription("Read the full catalog record for one dataset, including bands and tags."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Earth Engine dataset id (e.g. MODIS/006/MCD12Q1)")),
	), s.getDataset)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List the full tag vocabulary of the catalog."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_export_status",
		mcp.WithDescription("Check the live state of a previously dispatched export job."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("Job handle returned when the export was created")),
		mcp.WithString("project", mcp.Required(), mcp.Description("Cloud project id the job runs under")),
		mcp.WithString("token", mcp.Description("OAuth token for the project")),
	), s.getExportStatus)

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

func (s *Server) searchDatasets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := store.SearchParams{
		Query:   req.GetString("query", ""),
		Sort:    req.GetString("sort", ""),
		Page:    req.GetInt("page", 1),
		PerPage: req.GetInt("per_page", defaultPerPage),
	}
	if params.PerPage > maxPerPage {
		params.PerPage = maxPerPage
	}
	if raw := req.GetString("tags", ""); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				params.Tags = append(params.Tags, t)
			}
		}
	}

	res, err := s.svc.Search(ctx, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"datasets":     res.Items,
		"total_count":  res.TotalCount,
		"total_pages":  res.TotalPages,
		"current_page": res.CurrentPage,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDataset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.GetDataset(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) getExportStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	handle, err := req.RequireString("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	projectID, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	project := export.ProjectContext{
		ProjectID: projectID,
		Token:     req.GetString("token", ""),
	}
	status, err := s.disp.GetStatus(ctx, project, handle)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(status)), nil
}
