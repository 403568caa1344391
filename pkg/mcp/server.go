package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// serverInstructions is surfaced to MCP clients during initialization so
// agents know how the intelligence tools fit together.
const serverInstructions = "Entity-intelligence tools for the Venezuela event corpus. " +
	"Use resolve_entity to bind free-text mentions to canonical entities, " +
	"get_graph for co-occurrence networks with risk-ranked communities over a " +
	"time window, and get_lineage for the chronological event narrative " +
	"between two entities."

// Server wraps the mcp-go MCPServer. Tools registered through AddTool are
// logged, and handler panics are recovered by the underlying server instead
// of killing the transport.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates the MCP server the engine exposes its tools on.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
		server.WithRecovery(),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// AddTool registers a tool and records the registration. The signature
// matches *server.MCPServer so tool constructors can take either.
func (s *Server) AddTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
	s.logger.Debug("Registered MCP tool", zap.String("tool", tool.Name))
}

// HandleMessage processes one raw JSON-RPC message.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, message)
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP
// server. The HTTP mux handles routing to /mcp, so no endpoint path is
// configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
