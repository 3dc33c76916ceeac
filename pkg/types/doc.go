// Package types provides shared type definitions for the askrepo MCP server.
//
// This package defines domain types used across multiple components:
// chunks, search hits, and the error taxonomy the pipeline is built around.
//
// # Core Types
//
// Chunk represents a contiguous, token-bounded slice of one file's text:
//
//	chunk := &types.Chunk{
//	    Content:    section,
//	    StartLine:  12,
//	    EndLine:    48,
//	    ChunkIndex: 0,
//	    Language:   "python",
//	    Boundary:   types.BoundarySemantic,
//	}
//
// Chunk identity is derived from content, so unchanged content re-indexes
// to the same id and the upsert is a no-op:
//
//	id := chunk.ID("myrepo", "src/auth.py")
//	// "myrepo:src/auth.py:0:a1b2c3d4e5f60718"
//
// ScoredChunk is what vector search returns, best match first; Score is
// similarity in [0, 1] (1 - cosine distance).
//
// # Error Taxonomy
//
// Remote and input failures are classified into four categories that decide
// how each layer reacts:
//
//	types.TransientError          // retried with backoff at the client
//	types.MalformedResponseError  // recovered locally via fallback
//	types.ValidationError         // item skipped, run continues
//	types.StoreError              // aborts the unit of work
//
// Predicates wrap errors.As for call sites:
//
//	if types.IsValidation(err) {
//	    stats.Skip(file, err)
//	    continue
//	}
package types
