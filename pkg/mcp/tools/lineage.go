package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// RegisterGetLineageTool adds the get_lineage tool to the MCP server. The
// tool reconstructs the chronological event chain connecting two entities.
func RegisterGetLineageTool(s ToolRegistry, deps *EngineToolDeps) {
	tool := mcp.NewTool(
		"get_lineage",
		mcp.WithDescription(
			"Reconstruct the interaction lineage between two entities: every event "+
				"mentioning both, in chronological order, with day gaps, an escalation "+
				"flag (risk rose at least 20% between first and last event) and the "+
				"dominant themes. The ordering shows correlation, never causation.",
		),
		mcp.WithString(
			"entity_a",
			mcp.Required(),
			mcp.Description("First canonical entity UUID"),
		),
		mcp.WithString(
			"entity_b",
			mcp.Required(),
			mcp.Description("Second canonical entity UUID"),
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
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entityA, err := requireUUID(req, "entity_a")
		if err != nil {
			return nil, err
		}
		entityB, err := requireUUID(req, "entity_b")
		if err != nil {
			return nil, err
		}
		from, to, err := requireWindow(req)
		if err != nil {
			return nil, err
		}

		lineage, err := deps.Lineage.BuildLineage(ctx, services.LineageRequest{
			EntityA: entityA,
			EntityB: entityB,
			From:    from,
			To:      to,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build lineage: %w", err)
		}

		jsonResult, err := json.Marshal(lineage)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// requireUUID parses a mandatory UUID argument.
func requireUUID(req mcp.CallToolRequest, key string) (uuid.UUID, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a UUID: %w", key, err)
	}
	return id, nil
}
