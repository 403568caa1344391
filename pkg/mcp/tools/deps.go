// Package tools provides MCP tool implementations for the entity engine.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/venezuelawatch/entity-engine/pkg/services"
)

// ToolRegistry is where tool constructors register their tools. Both the
// raw *server.MCPServer and the engine's wrapper satisfy it.
type ToolRegistry interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// EngineToolDeps contains dependencies for the entity-intelligence tools.
type EngineToolDeps struct {
	Resolver services.ResolverService
	Graph    services.GraphService
	Lineage  services.LineageService
	Logger   *zap.Logger
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

// getOptionalFloat extracts an optional float argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}
