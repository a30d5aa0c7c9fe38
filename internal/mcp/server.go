// Package mcp exposes the knowledge base to AI agents over the Model
// Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/coachkit/knowledge-engine/internal/search"
	"github.com/coachkit/knowledge-engine/internal/syncer"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes knowledge retrieval tools.
type Server struct {
	searcher   *search.Searcher
	assembler  *search.Assembler
	reconciler *syncer.Reconciler
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies. The
// reconciler may be nil; sync_status then reports that sync is not
// configured.
func NewServer(searcher *search.Searcher, assembler *search.Assembler, reconciler *syncer.Reconciler) *Server {
	s := &Server{
		searcher:   searcher,
		assembler:  assembler,
		reconciler: reconciler,
	}

	s.mcp = server.NewMCPServer(
		"kengine",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
	s.mcp.AddTool(buildContextTool, s.handleBuildContext)
	s.mcp.AddTool(syncStatusTool, s.handleSyncStatus)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
