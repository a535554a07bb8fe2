// Package mcpserver exposes the five orchestration operations as an MCP
// (JSON-RPC) tool server, serving either stdio or SSE transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpgoserver "github.com/mark3labs/mcp-go/server"

	"github.com/emcd/librovore/pkg/core"
	"github.com/emcd/librovore/pkg/model"
)

// Server wraps a core.Service as an MCP tool server.
type Server struct {
	svc     *core.Service
	version string
}

// New constructs a Server over svc.
func New(svc *core.Service, version string) *Server {
	return &Server{svc: svc, version: version}
}

// ServeStdio registers every tool and serves JSON-RPC 2.0 framed by
// newlines on stdin/stdout, blocking until the client disconnects.
func (s *Server) ServeStdio() error {
	srv := s.build()
	return mcpgoserver.ServeStdio(srv)
}

// ServeSSE registers every tool and listens for SSE connections on addr
// (e.g. ":8080"), blocking until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	srv := s.build()
	sse := mcpgoserver.NewSSEServer(srv)

	errc := make(chan error, 1)

	go func() { errc <- sse.Start(addr) }()

	select {
	case <-ctx.Done():
		return sse.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}

func (s *Server) build() *mcpgoserver.MCPServer {
	srv := mcpgoserver.NewMCPServer(
		"librovore",
		s.version,
		mcpgoserver.WithRecovery(),
		mcpgoserver.WithToolCapabilities(false),
	)

	s.registerTools(srv)

	return srv
}

func (s *Server) registerTools(srv *mcpgoserver.MCPServer) {
	srv.AddTool(
		mcp.NewTool("detect",
			mcp.WithDescription("Detect which processors can handle a documentation source"),
			mcp.WithString("source", mcp.Description("Documentation source URL or local path"), mcp.Required()),
			mcp.WithString("processor_name", mcp.Description("Restrict detection to a single named processor")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleDetect,
	)

	srv.AddTool(
		mcp.NewTool("query_inventory",
			mcp.WithDescription("Search a documentation source's inventory by name"),
			mcp.WithString("source", mcp.Description("Documentation source URL or local path"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Name query"), mcp.Required()),
			mcp.WithObject("filters", mcp.Description("Processor-specific filter map")),
			mcp.WithString("match_mode", mcp.Description("exact, regex, or fuzzy"), mcp.Enum("exact", "regex", "fuzzy"), mcp.DefaultString("fuzzy")),
			mcp.WithNumber("fuzzy_threshold", mcp.Description("Minimum fuzzy-match score (0-100), default 50")),
			mcp.WithNumber("results_max", mcp.Description("Maximum results to return, default 5")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleQueryInventory,
	)

	srv.AddTool(
		mcp.NewTool("query_content",
			mcp.WithDescription("Search a documentation source and extract matching page content"),
			mcp.WithString("source", mcp.Description("Documentation source URL or local path"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Name query"), mcp.Required()),
			mcp.WithObject("filters", mcp.Description("Processor-specific filter map")),
			mcp.WithString("match_mode", mcp.Description("exact, regex, or fuzzy"), mcp.Enum("exact", "regex", "fuzzy"), mcp.DefaultString("fuzzy")),
			mcp.WithNumber("fuzzy_threshold", mcp.Description("Minimum fuzzy-match score (0-100), default 50")),
			mcp.WithBoolean("include_snippets", mcp.Description("Include a content snippet per document, default true")),
			mcp.WithNumber("results_max", mcp.Description("Maximum results to return, default 10")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleQueryContent,
	)

	srv.AddTool(
		mcp.NewTool("summarize_inventory",
			mcp.WithDescription("Render a plain-text summary of a documentation source's inventory"),
			mcp.WithString("source", mcp.Description("Documentation source URL or local path"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Optional name query to narrow the summarized inventory")),
			mcp.WithObject("filters", mcp.Description("Processor-specific filter map")),
			mcp.WithString("group_by", mcp.Description("Group counts by a specifics field (e.g. role, domain)")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleSummarizeInventory,
	)

	srv.AddTool(
		mcp.NewTool("survey_processors",
			mcp.WithDescription("List the registered inventory and structure processors and their capabilities"),
			mcp.WithString("name", mcp.Description("Restrict the survey to a single named processor")),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleSurveyProcessors,
	)
}

func (s *Server) handleDetect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: source"), nil
	}

	resp, err := s.svc.Detect(ctx, source, req.GetString("processor_name", ""))
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(resp)
}

func (s *Server) handleQueryInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: source"), nil
	}

	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: query"), nil
	}

	resp, err := s.svc.QueryInventory(ctx, source, core.QueryInventoryParams{
		Filters:    getFilters(req),
		Query:      query,
		Behaviors:  getBehaviors(req),
		Details:    model.DetailsDocumentation,
		ResultsMax: getInt(req, "results_max", 5),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(resp)
}

func (s *Server) handleQueryContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: source"), nil
	}

	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: query"), nil
	}

	resp, err := s.svc.QueryContent(ctx, source, core.QueryContentParams{
		Filters:         getFilters(req),
		Query:           query,
		Behaviors:       getBehaviors(req),
		IncludeSnippets: req.GetBool("include_snippets", true),
		ResultsMax:      getInt(req, "results_max", 10),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(resp)
}

func (s *Server) handleSummarizeInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: source"), nil
	}

	summary, err := s.svc.SummarizeInventory(ctx, source, core.SummarizeInventoryParams{
		Filters: getFilters(req),
		Query:   req.GetString("query", ""),
		GroupBy: req.GetString("group_by", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return mcp.NewToolResultText(summary), nil
}

func (s *Server) handleSurveyProcessors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.svc.SurveyProcessors(ctx, req.GetString("name", ""))
	if err != nil {
		return errorResult(err), nil
	}

	return jsonResult(resp)
}

func getFilters(req mcp.CallToolRequest) map[string]any {
	raw := req.GetArguments()["filters"]

	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	return m
}

func getBehaviors(req mcp.CallToolRequest) model.SearchBehaviors {
	return model.SearchBehaviors{
		MatchMode:      model.MatchMode(req.GetString("match_mode", string(model.MatchFuzzy))),
		FuzzyThreshold: getInt(req, "fuzzy_threshold", 50),
	}
}

// getInt extracts a numeric argument, following the transport's convention
// of decoding JSON numbers as float64.
func getInt(req mcp.CallToolRequest, name string, fallback int) int {
	if v, ok := req.GetArguments()[name].(float64); ok {
		return int(v)
	}

	return fallback
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// errorResult maps a typed core/model error to an MCP error payload with
// error_type/message/details/suggestion fields.
func errorResult(err error) *mcp.CallToolResult {
	errType, suggestion := classify(err)

	payload := map[string]any{
		"error_type": errType,
		"message":    err.Error(),
		"details":    fmt.Sprintf("%+v", err),
		"suggestion": suggestion,
	}

	data, marshalErr := json.MarshalIndent(payload, "", "  ")
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}

	return mcp.NewToolResultError(string(data))
}

// classify uses errors.As rather than a type switch so that a typed error
// wrapped by fmt.Errorf("%w", ...) anywhere in the call chain still
// classifies correctly, instead of falling through to internal_error.
func classify(err error) (errType, suggestion string) {
	var processorInavailability *model.ProcessorInavailability
	if errors.As(err, &processorInavailability) {
		return "processor_inavailability", "verify the source is a supported documentation format"
	}

	var inventoryInaccessibility *model.InventoryInaccessibility
	if errors.As(err, &inventoryInaccessibility) {
		return "inventory_inaccessibility", "check that the source URL is reachable"
	}

	var inventoryInvalidity *model.InventoryInvalidity
	if errors.As(err, &inventoryInvalidity) {
		return "inventory_invalidity", "verify this is a well-formed inventory artifact"
	}

	var inventoryURLInvalidity *model.InventoryURLInvalidity
	var inventoryURLNoSupport *model.InventoryURLNoSupport
	if errors.As(err, &inventoryURLInvalidity) || errors.As(err, &inventoryURLNoSupport) {
		return "inventory_url_invalidity", "use an http, https, or file URL"
	}

	var documentationInaccessibility *model.DocumentationInaccessibility
	if errors.As(err, &documentationInaccessibility) {
		return "documentation_inaccessibility", "check that the documentation page is reachable"
	}

	var documentationContentAbsence *model.DocumentationContentAbsence
	var documentationObjectAbsence *model.DocumentationObjectAbsence
	if errors.As(err, &documentationContentAbsence) || errors.As(err, &documentationObjectAbsence) {
		return "documentation_content_absence", "verify this is a documentation site in the expected format"
	}

	var documentationParseFailure *model.DocumentationParseFailure
	if errors.As(err, &documentationParseFailure) {
		return "documentation_parse_failure", "verify the page returns well-formed HTML"
	}

	var structureIncompatibility *model.StructureIncompatibility
	var contentExtractFailure *model.ContentExtractFailure
	if errors.As(err, &structureIncompatibility) || errors.As(err, &contentExtractFailure) {
		return "structure_incompatibility", "verify this is a Sphinx, Pydoctor, Rustdoc, or MkDocs documentation site"
	}

	var urlImpermissibility *model.URLImpermissibility
	if errors.As(err, &urlImpermissibility) {
		return "url_impermissibility", "robots.txt forbids this request"
	}

	var httpContentTypeInvalidity *model.HTTPContentTypeInvalidity
	if errors.As(err, &httpContentTypeInvalidity) {
		return "http_content_type_invalidity", "the resource is not textual content"
	}

	var inventoryFilterInvalidity *model.InventoryFilterInvalidity
	if errors.As(err, &inventoryFilterInvalidity) {
		return "inventory_filter_invalidity", "check the search query or regular expression"
	}

	return "internal_error", "retry or report this failure"
}
