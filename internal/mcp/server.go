// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/runfilter/application/service"
	"github.com/helixml/runfilter/domain/filter"
	"github.com/helixml/runfilter/domain/flowrun"
)

// FilterValidator validates untrusted flow run filters for MCP tools.
type FilterValidator interface {
	Validate(ctx context.Context, candidate any) (filter.FlowRunFilter, error)
	ValidateAll(ctx context.Context, candidates []any) ([]filter.FlowRunFilter, error)
}

// FlowRunQuery reads flow runs for MCP tools.
type FlowRunQuery interface {
	Get(ctx context.Context, id string) (flowrun.FlowRun, error)
	Filter(ctx context.Context, params service.FilterParams) ([]flowrun.FlowRun, error)
	Count(ctx context.Context, filters ...filter.FlowRunFilter) (int64, error)
}

// Server wraps the MCP server with flow run filter tools.
type Server struct {
	mcpServer *server.MCPServer
	filters   FilterValidator
	flowRuns  FlowRunQuery
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(filters FilterValidator, flowRuns FlowRunQuery, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s := &Server{
		filters:  filters,
		flowRuns: flowRuns,
		version:  version,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"runfilter",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("validate_flow_run_filter",
		mcp.WithDescription("Validate one flow run filter object and return its normalised form"),
		mcp.WithString("filter",
			mcp.Required(),
			mcp.Description(`The filter as a JSON object, e.g. {"object":"flow_run","property":"tag","all_":["prod"]}`),
		),
	), s.handleValidate)

	mcpServer.AddTool(mcp.NewTool("filter_flow_runs",
		mcp.WithDescription("List flow runs matching every given filter"),
		mcp.WithString("filters",
			mcp.Description("A JSON array of flow run filter objects (default: no filters)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of flow runs to return"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of matching flow runs to skip"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort key, prefix with - for descending (default: -created_at)"),
		),
	), s.handleFilter)

	mcpServer.AddTool(mcp.NewTool("count_flow_runs",
		mcp.WithDescription("Count flow runs matching every given filter"),
		mcp.WithString("filters",
			mcp.Description("A JSON array of flow run filter objects (default: no filters)"),
		),
	), s.handleCount)

	mcpServer.AddTool(mcp.NewTool("get_flow_run",
		mcp.WithDescription("Get a flow run by its ID or flow-run:// URI"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The flow run ID or URI"),
		),
	), s.handleGet)

	mcpServer.AddTool(mcp.NewTool("get_version",
		mcp.WithDescription("Get the server version"),
	), s.handleVersion)
}

type filterResult struct {
	Property string          `json:"property"`
	Family   string          `json:"family"`
	Filter   json.RawMessage `json:"filter"`
}

type flowRunResult struct {
	ID                string     `json:"id"`
	URI               string     `json:"uri"`
	Name              string     `json:"name"`
	FlowVersion       string     `json:"flow_version,omitempty"`
	Tags              []string   `json:"tags"`
	StateType         string     `json:"state_type,omitempty"`
	StateName         string     `json:"state_name,omitempty"`
	ExpectedStartTime *time.Time `json:"expected_start_time,omitempty"`
	StartTime         *time.Time `json:"start_time,omitempty"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type listResult struct {
	FlowRuns []flowRunResult `json:"flow_runs"`
	Total    int64           `json:"total"`
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("filter")
	if err != nil {
		return mcp.NewToolResultError("filter is required"), nil
	}

	f, err := s.filters.Validate(ctx, []byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid filter: %v", err)), nil
	}

	data, err := f.MarshalJSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal filter: %v", err)), nil
	}
	return jsonResult(filterResult{
		Property: string(f.Property()),
		Family:   string(f.Family()),
		Filter:   data,
	})
}

func (s *Server) handleFilter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, errResult := s.parseFilters(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	runs, err := s.flowRuns.Filter(ctx, service.FilterParams{
		Filters: filters,
		Limit:   request.GetInt("limit", 0),
		Offset:  request.GetInt("offset", 0),
		Sort:    request.GetString("sort", ""),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "filter flow runs failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("filter failed: %v", err)), nil
	}

	total, err := s.flowRuns.Count(ctx, filters...)
	if err != nil {
		s.logger.ErrorContext(ctx, "count flow runs failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("count failed: %v", err)), nil
	}

	out := listResult{FlowRuns: make([]flowRunResult, len(runs)), Total: total}
	for i, r := range runs {
		out.FlowRuns[i] = toFlowRunResult(r)
	}
	return jsonResult(out)
}

func (s *Server) handleCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filters, errResult := s.parseFilters(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	count, err := s.flowRuns.Count(ctx, filters...)
	if err != nil {
		s.logger.ErrorContext(ctx, "count flow runs failed", slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("count failed: %v", err)), nil
	}
	return jsonResult(map[string]int64{"count": count})
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}

	id := ref
	if uri, err := ParseFlowRunURI(ref); err == nil {
		id = uri.ID()
	} else if !errors.Is(err, ErrNotFlowRunURI) {
		return mcp.NewToolResultError(err.Error()), nil
	}

	run, err := s.flowRuns.Get(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get flow run", slog.String("id", id), slog.Any("error", err))
		return mcp.NewToolResultError(fmt.Sprintf("failed to get flow run: %v", err)), nil
	}
	return jsonResult(toFlowRunResult(run))
}

func (s *Server) handleVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

// parseFilters reads the optional "filters" argument. A non-nil result is
// returned to the caller as-is.
func (s *Server) parseFilters(ctx context.Context, request mcp.CallToolRequest) ([]filter.FlowRunFilter, *mcp.CallToolResult) {
	raw := request.GetString("filters", "")
	if raw == "" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, mcp.NewToolResultError("filters must be a JSON array of filter objects")
	}

	candidates := make([]any, len(items))
	for i, item := range items {
		candidates[i] = item
	}

	filters, err := s.filters.ValidateAll(ctx, candidates)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid filters: %v", err))
	}
	return filters, nil
}

func toFlowRunResult(r flowrun.FlowRun) flowRunResult {
	return flowRunResult{
		ID:                r.ID(),
		URI:               NewFlowRunURI(r.ID()).String(),
		Name:              r.Name(),
		FlowVersion:       r.FlowVersion(),
		Tags:              r.Tags(),
		StateType:         string(r.StateType()),
		StateName:         r.StateName(),
		ExpectedStartTime: optionalTime(r.ExpectedStartTime()),
		StartTime:         optionalTime(r.StartTime()),
		EndTime:           optionalTime(r.EndTime()),
		CreatedAt:         r.CreatedAt(),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MCPServer returns the underlying MCP server for stdio serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
