// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the exporter to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/magebay99/multiexporter-hack/internal/exportservice"
)

// SceneFormatURI is the resource URI of the scene format contract.
const SceneFormatURI = "multiexporter://scene-format"

// Server wraps the MCP server with the exporter tools.
type Server struct {
	mcp *server.MCPServer
	svc *exportservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *exportservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Multiexporter",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_formats",
		mcp.WithDescription("List the output formats and the preferences each one uses."),
	), s.listFormats)

	s.mcp.AddTool(mcp.NewTool("plan_export",
		mcp.WithDescription("Compute which artboard/layer files an export would write, with a summary."),
	), s.planExport)

	s.mcp.AddTool(mcp.NewTool("run_export",
		mcp.WithDescription("Export the scene with the stored preferences. Failed jobs are retried "+
			"up to `retry` times."),
		mcp.WithNumber("retry", mcp.Description("How many times to retry failed jobs (default 0)")),
		mcp.WithBoolean("dry_run", mcp.Description("List the files that would be written without writing them")),
	), s.runExport)

	s.mcp.AddTool(mcp.NewTool("get_preferences",
		mcp.WithDescription("Read the export preferences stored in the scene."),
	), s.getPreferences)

	s.mcp.AddTool(mcp.NewTool("set_preference",
		mcp.WithDescription("Set one preference record key (e.g. basePath, format, layers, artboards, scaling)."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Record key")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value as it is stored, e.g. \"PNG 24\", \"none\", \"150%\"")),
	), s.setPreference)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent export runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max runs to return (default 20)")),
	), s.listRuns)

	s.mcp.AddTool(mcp.NewTool("import_scene",
		mcp.WithDescription("Replace the scene with a YAML document fetched from an http(s) URL "+
			"or a base64 data URI. Read the scene format first via the "+SceneFormatURI+" resource."),
		mcp.WithString("source", mcp.Required(), mcp.Description("http(s) URL or data:application/yaml;base64,... URI")),
	), s.importScene)

	s.mcp.AddResource(
		mcp.NewResource(SceneFormatURI, "Scene Format",
			mcp.WithResourceDescription("YAML scene format the exporter reads."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSceneFormatResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listFormats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Formats()), nil
}

func (s *Server) planExport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.svc.Plan(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view), nil
}

func (s *Server) runExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	er := exportservice.ExportRequest{
		Retry:  req.GetInt("retry", 0),
		DryRun: req.GetBool("dry_run", false),
	}
	if er.Retry < 0 {
		return mcp.NewToolResultError("retry must not be negative"), nil
	}
	report, err := s.svc.Export(ctx, er)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(report), nil
}

func (s *Server) getPreferences(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := s.svc.Preferences(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cfg), nil
}

func (s *Server) setPreference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := s.svc.SetPreferences(ctx, map[string]string{key: value})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cfg), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, total, err := s.svc.Runs(ctx, req.GetInt("limit", 20), 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("no runs recorded"), nil
	}
	return jsonResult(map[string]any{"runs": runs, "total": total}), nil
}

func (s *Server) importScene(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := fetchScene(source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.ImportScene(ctx, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	return jsonResult(view), nil
}

func (s *Server) readSceneFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SceneFormatURI,
			MIMEType: "text/markdown",
			Text:     SceneFormatContract,
		},
	}, nil
}
