// ABOUTME: MCP server setup for the training tracker.
// ABOUTME: Wraps MCP server with engine and plan catalog access.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crux/internal/catalog"
	"github.com/harperreed/crux/internal/engine"
)

// Server wraps the MCP server with engine and catalog access.
type Server struct {
	mcpServer *mcp.Server
	engine    *engine.Engine
	catalog   *catalog.DB
}

// NewServer creates a new MCP server over the given collaborators.
func NewServer(eng *engine.Engine, cat *catalog.DB) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "crux",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		engine:    eng,
		catalog:   cat,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
