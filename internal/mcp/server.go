// Package mcp exposes a built index over the Model Context Protocol on
// stdio: definition lookup, reference listings, implementations, and
// symbol search as tools.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/query"
)

// Server wraps the MCP stdio server around one index snapshot.
type Server struct {
	query  *query.Index
	search *query.Search
	mcp    *server.MCPServer
}

// NewServer creates the server and registers every tool.
func NewServer(q *query.Index, search *query.Search, version string) *Server {
	mcpServer := server.NewMCPServer(
		"ariadne",
		version,
		server.WithToolCapabilities(true),
	)

	AddDefinitionTool(mcpServer, q)
	AddReferencesTool(mcpServer, q)
	AddImplementationsTool(mcpServer, q)
	AddSearchTool(mcpServer, search)

	return &Server{query: q, search: search, mcp: mcpServer}
}

// Serve runs the stdio transport until the client disconnects or a
// shutdown signal arrives.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("mcp server listening on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("mcp: serving stdio: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the search index.
func (s *Server) Close() error {
	if s.search != nil {
		return s.search.Close()
	}
	return nil
}
