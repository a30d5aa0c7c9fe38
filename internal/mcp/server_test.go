package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coachkit/knowledge-engine/internal/chunker"
	"github.com/coachkit/knowledge-engine/internal/db"
	"github.com/coachkit/knowledge-engine/internal/knowledge"
	"github.com/coachkit/knowledge-engine/internal/search"
)

func setupTestServer(t *testing.T, contents ...string) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := knowledge.NewStore(database)
	if len(contents) > 0 {
		doc, err := store.CreateDocument(context.Background(), knowledge.Document{
			Title:     "Coaching Handbook",
			Content:   strings.Join(contents, "\n\n"),
			Namespace: "test",
		})
		if err != nil {
			t.Fatalf("creating document: %v", err)
		}
		chunks := make([]knowledge.Chunk, len(contents))
		for i, c := range contents {
			chunks[i] = knowledge.Chunk{Content: c, Index: i, TokenCount: chunker.EstimateTokens(c)}
		}
		if err := store.ReplaceChunks(context.Background(), doc.ID, chunks); err != nil {
			t.Fatalf("storing chunks: %v", err)
		}
	}

	searcher := search.NewSearcher(store, nil)
	assembler := search.NewAssembler(searcher, search.NewSynonymVariations(nil))
	return NewServer(searcher, assembler, nil)
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"search_knowledge", searchKnowledgeTool, "search_knowledge"},
		{"build_context", buildContextTool, "build_context"},
		{"sync_status", syncStatusTool, "sync_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := setupTestServer(t)
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleSearchKnowledge(t *testing.T) {
	srv := setupTestServer(t,
		"Effective goal setting anchors every coaching conversation.",
		"Feedback should be specific and timely.")
	ctx := context.Background()

	t.Run("basic search", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "goal setting",
		}

		result, err := srv.handleSearchKnowledge(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleSearchKnowledge(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("empty knowledge base", func(t *testing.T) {
		emptySrv := setupTestServer(t)
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query": "anything",
		}

		result, err := emptySrv.handleSearchKnowledge(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Error("empty results should not be an error")
		}
	})
}

func TestHandleBuildContext(t *testing.T) {
	srv := setupTestServer(t,
		"Leadership growth compounds through deliberate practice.",
		"Strengths-based coaching builds on what already works.")
	ctx := context.Background()

	t.Run("multiple queries", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"queries": "leadership growth\nstrengths coaching",
			"style":   "bullet",
		}

		result, err := srv.handleBuildContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
	})

	t.Run("blank queries", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"queries": "\n  \n",
		}

		result, err := srv.handleBuildContext(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for blank queries")
		}
	})
}

func TestHandleSyncStatusUnconfigured(t *testing.T) {
	srv := setupTestServer(t)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{
		"namespace": "coach-a",
	}

	result, err := srv.handleSyncStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Error("unconfigured sync should report text, not an error")
	}
}
