package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyunolike/learnathon-1st-team1/pkg/types"
)

// maxTopK caps search_code results
const maxTopK = 100

// languageNames lists the accepted values of the languages parameter
func languageNames() []string {
	names := make([]string, len(types.AllTags))
	for i, tag := range types.AllTags {
		names[i] = string(tag)
	}
	return names
}

// ingestRepositoryTool returns the tool definition for ingest_repository
func ingestRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_repository",
		Description: "Clone a git repository or read a local directory, split its source files into chunks and index them for search. Re-ingesting the same url or path replaces its previous chunks.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Repository URL to clone (https, ssh, git, file or git@host:path). Mutually exclusive with path.",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a local directory. Mutually exclusive with url.",
				},
				"languages": map[string]interface{}{
					"type":        "array",
					"description": "Only ingest files of these languages (default: all)",
					"items": map[string]interface{}{
						"type": "string",
						"enum": languageNames(),
					},
				},
			},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search ingested code with natural language or identifiers. Combines keyword (BM25) and semantic (embedding) relevance.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     types.DefaultTopK,
					"minimum":     1,
					"maximum":     maxTopK,
				},
				"sparse_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of keyword relevance (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"dense_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of semantic relevance (0.0-1.0)",
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report what has been ingested: chunk counts per language, sources, vector store and embedding model",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
