package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/venezuelawatch/entity-engine/pkg/models"
)

// RegisterResolveEntityTool adds the resolve_entity tool to the MCP server.
// The tool binds a free-text mention to a canonical entity, minting one when
// nothing in the registry matches.
func RegisterResolveEntityTool(s ToolRegistry, deps *EngineToolDeps) {
	tool := mcp.NewTool(
		"resolve_entity",
		mcp.WithDescription(
			"Resolve a free-text entity mention to its canonical entity. "+
				"Exact registry hits answer immediately; otherwise blocked probabilistic "+
				"matching runs, and mentions nothing matches create a new canonical entity. "+
				"Returns the entity, the resolution method (exact, probabilistic, escalated) "+
				"and the match confidence.",
		),
		mcp.WithString(
			"text",
			mcp.Required(),
			mcp.Description("Mention text as it appeared in the feed"),
		),
		mcp.WithString(
			"entity_type",
			mcp.Required(),
			mcp.Description("Entity type: 'person', 'organization', 'government' or 'location'"),
		),
		mcp.WithString(
			"source",
			mcp.Required(),
			mcp.Description("Feed identifier the mention came from"),
		),
		mcp.WithString(
			"country_code",
			mcp.Description("Optional - ISO 3166-1 alpha-2 country code"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return nil, err
		}
		entityType, err := req.RequireString("entity_type")
		if err != nil {
			return nil, err
		}
		source, err := req.RequireString("source")
		if err != nil {
			return nil, err
		}

		mention := models.Mention{
			Text:       text,
			EntityType: models.EntityType(entityType),
			Source:     source,
		}
		if cc := getOptionalString(req, "country_code"); cc != "" {
			mention.CountryCode = &cc
		}

		resolution, err := deps.Resolver.Resolve(ctx, mention)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve mention: %w", err)
		}

		jsonResult, err := json.Marshal(resolution)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
