package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/venezuelawatch/entity-engine/pkg/models"
	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// RegisterGetGraphTool adds the get_graph tool to the MCP server. The tool
// builds the entity co-occurrence graph for a time window, with risk-ranked
// communities.
func RegisterGetGraphTool(s ToolRegistry, deps *EngineToolDeps) {
	tool := mcp.NewTool(
		"get_graph",
		mcp.WithDescription(
			"Build the entity co-occurrence graph for a time window. "+
				"Entities become nodes, pairs co-mentioned in enough events become "+
				"weighted edges, and the graph is partitioned into communities ranked "+
				"by mean member risk. high_risk_cluster_id names the riskiest community.",
		),
		mcp.WithString(
			"from",
			mcp.Required(),
			mcp.Description("Window start, RFC 3339 timestamp (inclusive)"),
		),
		mcp.WithString(
			"to",
			mcp.Required(),
			mcp.Description("Window end, RFC 3339 timestamp (exclusive)"),
		),
		mcp.WithNumber(
			"min_cooccurrence",
			mcp.Description("Optional - minimum shared events before a pair becomes an edge (default 3)"),
		),
		mcp.WithString(
			"categories",
			mcp.Description("Optional - comma-separated theme filter applied before counting: 'sanctions', 'trade', 'political', 'adversarial', 'energy', 'other'"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		from, to, err := requireWindow(req)
		if err != nil {
			return nil, err
		}

		graphReq := services.GraphRequest{From: from, To: to}
		if floor, ok := getOptionalFloat(req, "min_cooccurrence"); ok {
			graphReq.MinCooccurrence = int(floor)
		}
		if raw := getOptionalString(req, "categories"); raw != "" {
			for _, c := range strings.Split(raw, ",") {
				graphReq.Categories = append(graphReq.Categories, models.ThemeCategory(strings.TrimSpace(c)))
			}
		}

		graph, err := deps.Graph.BuildGraph(ctx, graphReq)
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		jsonResult, err := json.Marshal(graph)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// requireWindow parses the mandatory from/to window arguments.
func requireWindow(req mcp.CallToolRequest) (time.Time, time.Time, error) {
	fromStr, err := req.RequireString("from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	toStr, err := req.RequireString("to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from must be an RFC 3339 timestamp: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to must be an RFC 3339 timestamp: %w", err)
	}
	return from, to, nil
}
