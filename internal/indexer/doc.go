// Package indexer coordinates the end-to-end indexing pipeline for a
// repository.
//
// The indexer orchestrates walking, chunking, embedding, and storage,
// managing concurrency and error handling for a full re-index of a
// source tree.
//
// # Basic Usage
//
//	idx := indexer.New(store, emb, cache, settings, logger)
//
//	manifest, err := idx.Index(ctx, indexer.Job{
//	    RepoPath: "/path/to/repo",
//	    RepoName: "myrepo",
//	})
//
//	fmt.Printf("Indexed %d chunks in %.1fs\n",
//	    manifest.TotalChunks, manifest.DurationSeconds)
//
// # Indexing Pipeline
//
// Each run executes a multi-stage pipeline:
//
//  1. Clear: delete every stored chunk for the repository
//  2. Walk: discover files, applying ignore patterns and size limits
//  3. Chunk: split each file on semantic boundaries (parallel)
//  4. Embed: generate vectors for cache misses, in batches
//  5. Store: upsert chunk records into the vector store
//  6. Manifest: write a run summary to <repo>/.askrepo/manifest.json
//
// # Full Re-Index
//
// Every run is a full re-index. Existing chunks for the repository are
// deleted before walking so that files removed from the tree leave no
// stale chunks behind. The embedding cache makes repeat runs cheap:
// unchanged chunk text resolves to a cached vector without an API call.
//
// # Concurrent Processing
//
// Files are processed by a bounded worker pool:
//
//	g, gctx := errgroup.WithContext(ctx)
//	semaphore := make(chan struct{}, workers)
//
// The pool width comes from Settings.MaxConcurrent (default 5).
//
// # Error Handling
//
//	manifest, err := idx.Index(ctx, job)
//	// err is only returned for fatal failures (store errors,
//	// walk failures, a run already in progress)
//
//	// Per-file failures are recorded, not fatal
//	for _, fileErr := range manifest.IndexingStats.Errors {
//	    log.Printf("failed: %s: %s", fileErr.File, fileErr.Error)
//	}
//
// Unreadable files are skipped and recorded. Empty files and files that
// produce no chunks are counted as skipped. A vector store failure
// aborts the run.
//
// Only one run may be active per Indexer. A second call to Index while
// a run is in progress returns an error immediately rather than
// queueing.
package indexer
