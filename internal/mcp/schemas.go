package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// initRepoTool returns the tool definition for init_repo
func initRepoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "init_repo",
		Description: "Index a source repository to make it searchable with natural language questions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the repository root",
				},
				"repo_name": map[string]interface{}{
					"type":        "string",
					"description": "Name for the repository index",
				},
				"ignore_globs": map[string]interface{}{
					"type":        "array",
					"description": "Additional glob patterns to exclude (e.g. 'vendor/*', '*.min.js')",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"path", "repo_name"},
		},
	}
}

// searchRepoTool returns the tool definition for search_repo
func searchRepoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_repo",
		Description: "Answer a natural language question about an indexed repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language question about the code",
				},
				"repo_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the indexed repository to search",
				},
				"max_iterations": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum retrieval iterations before answering (1-10)",
					"default":     defaultSearchIterations,
					"minimum":     minSearchIterations,
					"maximum":     maxSearchIterations,
				},
			},
			Required: []string{"query", "repo_name"},
		},
	}
}

// getRepoStatsTool returns the tool definition for get_repo_stats
func getRepoStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_repo_stats",
		Description: "Report index statistics for a repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repo_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the indexed repository",
				},
			},
			Required: []string{"repo_name"},
		},
	}
}
