package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Search the knowledge base for document chunks relevant to a query. Returns ranked excerpts with their source documents."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("doc_type",
		mcp.Description("Restrict results to one document type"),
	),
	mcp.WithString("mode",
		mcp.Description("Ranking mode (default lexical)"),
		mcp.Enum("lexical", "vector"),
	),
)

// buildContextTool defines the build_context MCP tool.
var buildContextTool = mcp.NewTool("build_context",
	mcp.WithDescription("Assemble a context block from the knowledge base for one or more queries, deduplicated and ranked, ready to include in a prompt."),
	mcp.WithString("queries",
		mcp.Required(),
		mcp.Description("Search queries, separated by newlines"),
	),
	mcp.WithString("style",
		mcp.Description("Formatting style (default detailed)"),
		mcp.Enum("detailed", "summary", "bullet"),
	),
	mcp.WithBoolean("use_variations",
		mcp.Description("Broaden each query with domain synonyms"),
	),
)

// syncStatusTool defines the sync_status MCP tool.
var syncStatusTool = mcp.NewTool("sync_status",
	mcp.WithDescription("Report how far a namespace's documents have converged with its remote vector store."),
	mcp.WithString("namespace",
		mcp.Required(),
		mcp.Description("Document namespace to inspect"),
	),
)
