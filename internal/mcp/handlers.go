package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coachkit/knowledge-engine/internal/search"
)

// handleSearchKnowledge runs a ranked chunk search.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", search.DefaultMaxResults)
	if limit <= 0 {
		limit = search.DefaultMaxResults
	}

	opts := search.Options{
		MaxResults: limit,
		Mode:       search.Mode(request.GetString("mode", string(search.ModeLexical))),
	}
	if docType := request.GetString("doc_type", ""); docType != "" {
		opts.DocTypes = []string{docType}
	}

	results, err := s.searcher.Search(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; import and process documents first."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleBuildContext assembles retrieval context for one or more queries.
func (s *Server) handleBuildContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queriesStr, err := request.RequireString("queries")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: queries"), nil
	}

	var queries []string
	for _, line := range strings.Split(queriesStr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			queries = append(queries, line)
		}
	}
	if len(queries) == 0 {
		return mcp.NewToolResultError("queries must contain at least one non-empty line"), nil
	}

	result, err := s.assembler.BuildContext(ctx, queries, search.BuildOptions{
		Style:         search.Style(request.GetString("style", string(search.StyleDetailed))),
		UseVariations: request.GetBool("use_variations", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("context assembly failed: %v", err)), nil
	}

	if result.Context == "" {
		return mcp.NewToolResultText("No relevant knowledge found for the given queries."), nil
	}

	var sb strings.Builder
	sb.WriteString(result.Context)
	sb.WriteString(fmt.Sprintf("\n\n(%d chunks from %d documents)",
		result.Metadata.TotalChunks, len(result.Metadata.DocumentSources)))
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSyncStatus reports a namespace's convergence with its remote index.
func (s *Server) handleSyncStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	namespace, err := request.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: namespace"), nil
	}

	if s.reconciler == nil {
		return mcp.NewToolResultText("Sync is not configured: no remote vector stores are defined."), nil
	}

	status, err := s.reconciler.Status(ctx, namespace)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status check failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Namespace %s is %s.\nLocal documents: %d\nLinked to remote: %d\nPending changes: %d\nRemote files: %d\nRemote orphans: %d",
		status.Namespace, status.State, status.LocalDocuments, status.Linked,
		status.Pending, status.RemoteFiles, status.Orphans,
	)), nil
}

// formatSearchResults converts search results into a text format optimized
// for AI agent consumption.
func formatSearchResults(results []search.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Document: %s (%s)\n", r.DocumentTitle, r.DocumentType))
		sb.WriteString(fmt.Sprintf("Relevance: %.1f%%\n", r.Score*100))
		sb.WriteString("\n")
		sb.WriteString(r.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
