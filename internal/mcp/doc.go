// Package mcp implements the Model Context Protocol (MCP) server for askrepo.
//
// The MCP server exposes three tools to AI coding assistants:
//   - init_repo: Index a source repository for semantic search
//   - search_repo: Answer a natural language question about an indexed repository
//   - get_repo_stats: Report index statistics for a repository
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	askrepo serve
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout. Logs go to stderr so they never interleave with the protocol
// stream.
//
// # Tool: init_repo
//
// Index a repository to make it searchable:
//
//	Request:
//	{
//	  "name": "init_repo",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "repo_name": "myproject",
//	    "ignore_globs": ["vendor/*"]
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "repo_name": "myproject",
//	  "total_files": 247,
//	  "total_chunks": 1893,
//	  "total_tokens": 812034,
//	  "duration_seconds": 35.2,
//	  "manifest_path": "/path/to/project/.askrepo/manifest.json"
//	}
//
// Indexing is a full rebuild: prior chunks for the repository are removed
// before the new run. Per-file failures are reported in an errors list but
// do not fail the call.
//
// # Tool: search_repo
//
// Ask a question about indexed code:
//
//	Request:
//	{
//	  "name": "search_repo",
//	  "arguments": {
//	    "query": "How does session authentication work?",
//	    "repo_name": "myproject",
//	    "max_iterations": 3
//	  }
//	}
//
//	Response:
//	{
//	  "answer": "Sessions are issued by AuthService.Login ...",
//	  "metadata": {
//	    "iterations": 2,
//	    "chunks_used": 31,
//	    "tokens_used": 8210,
//	    "cost_usd": 0.0164,
//	    "stop_reason": "sufficient_context",
//	    "search_history": [...]
//	  },
//	  "chunks": [
//	    {"file": "internal/auth/service.go", "lines": "45-72", "content": "..."}
//	  ]
//	}
//
// The tool runs the full retrieve-and-compress loop, so one call may issue
// several model requests before the answer comes back.
//
// # Tool: get_repo_stats
//
// Check what an index holds:
//
//	Request:
//	{
//	  "name": "get_repo_stats",
//	  "arguments": {
//	    "repo_name": "myproject"
//	  }
//	}
//
//	Response:
//	{
//	  "repo_name": "myproject",
//	  "total_chunks": 1893,
//	  "total_files": 247,
//	  "total_tokens": 812034,
//	  "languages": {"go": 1720, "markdown": 173},
//	  "indexed_at": "2025-11-02T17:01:44Z"
//	}
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "askrepo": {
//	      "command": "/usr/local/bin/askrepo",
//	      "args": ["serve"],
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
//
// # Error Handling
//
// The MCP server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid path",
//	    "data": {
//	      "param": "path",
//	      "reason": "path does not exist"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (store, filesystem, model API)
//   - -32001: Repository not found or not indexed
//   - -32002: Indexing already in progress
//   - -32004: Query parameter is empty
//
// # Logging
//
// The MCP server logs to stderr (stdout is reserved for MCP protocol).
// Set the log level via environment:
//
//	LOG_LEVEL=debug askrepo serve
package mcp
