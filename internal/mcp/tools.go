package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askrepo/askrepo-mcp/internal/indexer"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeRepoNotIndexed     = -32001 // Repository not found or not indexed
	ErrorCodeIndexingInProgress = -32002 // Another indexing run is already active
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// Bounds for the search_repo max_iterations parameter
const (
	defaultSearchIterations = 3
	minSearchIterations     = 1
	maxSearchIterations     = 10
)

// errorListLimit caps how many per-file errors an init_repo response carries
const errorListLimit = 5

// handleInitRepo handles the init_repo tool invocation
func (s *Server) handleInitRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repo_name parameter is required", map[string]interface{}{
			"param":  "repo_name",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	ignoreGlobs, err := stringSlice(args, "ignore_globs")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid ignore_globs", map[string]interface{}{
			"param":  "ignore_globs",
			"reason": err.Error(),
		})
	}

	manifest, err := s.indexer.Index(ctx, indexer.Job{
		RepoPath:       path,
		RepoName:       repoName,
		IgnorePatterns: ignoreGlobs,
	})
	if err != nil {
		switch {
		case errors.Is(err, indexer.ErrIndexingInProgress):
			return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
				"repo_name": repoName,
			})
		case types.IsValidation(err):
			return nil, newMCPError(ErrorCodeInvalidParams, "indexing rejected", map[string]interface{}{
				"reason": err.Error(),
			})
		default:
			return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	response := map[string]interface{}{
		"indexed":          true,
		"repo_name":        manifest.RepoName,
		"total_files":      manifest.TotalFiles,
		"total_chunks":     manifest.TotalChunks,
		"total_tokens":     manifest.TotalTokens,
		"files_processed":  manifest.IndexingStats.FilesProcessed,
		"files_skipped":    manifest.IndexingStats.FilesSkipped,
		"duration_seconds": manifest.DurationSeconds,
		"manifest_path":    manifest.Path,
	}

	// Include the first few per-file errors rather than the full list
	if n := len(manifest.IndexingStats.Errors); n > 0 {
		if n > errorListLimit {
			response["errors"] = manifest.IndexingStats.Errors[:errorListLimit]
			response["error_count"] = n
		} else {
			response["errors"] = manifest.IndexingStats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchRepo handles the search_repo tool invocation
func (s *Server) handleSearchRepo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repo_name parameter is required", map[string]interface{}{
			"param":  "repo_name",
			"reason": "missing or empty",
		})
	}

	maxIterations := getIntDefault(args, "max_iterations", defaultSearchIterations)
	if maxIterations < minSearchIterations || maxIterations > maxSearchIterations {
		return nil, newMCPError(ErrorCodeInvalidParams,
			fmt.Sprintf("max_iterations must be between %d and %d", minSearchIterations, maxSearchIterations),
			map[string]interface{}{
				"param": "max_iterations",
				"value": maxIterations,
			})
	}

	// Refuse before spending model calls on a repository with no chunks
	if _, err := s.repoStats(ctx, repoName); err != nil {
		return nil, err
	}

	result, err := s.workflow.Query(ctx, query, repoName, maxIterations)
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) {
			return nil, newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", nil)
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetRepoStats handles the get_repo_stats tool invocation
func (s *Server) handleGetRepoStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	repoName, ok := args["repo_name"].(string)
	if !ok || repoName == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "repo_name parameter is required", map[string]interface{}{
			"param":  "repo_name",
			"reason": "missing or empty",
		})
	}

	stats, err := s.repoStats(ctx, repoName)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"repo_name":    stats.RepoName,
		"total_chunks": stats.TotalChunks,
		"total_files":  stats.TotalFiles,
		"total_tokens": stats.TotalTokens,
		"languages":    stats.Languages,
	}
	if stats.IndexedAt != "" {
		response["indexed_at"] = stats.IndexedAt
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// repoStats fetches store statistics for a repository, converting an empty
// repository into a repo-not-indexed MCP error
func (s *Server) repoStats(ctx context.Context, repoName string) (*vectorstore.RepoStats, error) {
	stats, err := s.store.RepoStats(ctx, repoName)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to query repository", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if stats.TotalChunks == 0 {
		return nil, newMCPError(ErrorCodeRepoNotIndexed, "repository not indexed", map[string]interface{}{
			"repo_name": repoName,
			"hint":      "index it first with the init_repo tool",
		})
	}
	return stats, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that a path names an existing readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON renders a response payload as indented JSON
func formatJSON(v interface{}) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// stringSlice extracts an optional array-of-strings parameter
func stringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s must contain only strings", key)
		}
		out = append(out, str)
	}
	return out, nil
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
