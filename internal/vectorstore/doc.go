// Package vectorstore persists indexed chunks with their embedding vectors
// and serves cosine-similarity search over them.
//
// Two interchangeable backends implement the Store interface:
//   - SQLiteStore: an embedded SQLite database, the default
//   - ChromaStore: a REST client to a remote Chroma server
//
// # Database Schema
//
// The SQLite backend keeps everything in a single chunks table keyed by the
// chunk id, which encodes repository, file, chunk index and a content hash.
// An id collision therefore means "same chunk, same content" and upserts
// overwrite in place. A schema_version table tracks applied migrations.
//
// # Basic Usage
//
//	store, err := vectorstore.NewSQLite("~/.askrepo/askrepo.db", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Write chunks with their embeddings
//	count, err := store.Upsert(ctx, records)
//
//	// Query the 20 nearest chunks of a repository
//	hits, err := store.Search(ctx, queryVector, "myrepo", 20)
//	for _, hit := range hits {
//	    fmt.Printf("%s:%d-%d score %.3f\n",
//	        hit.FilePath, hit.StartLine, hit.EndLine, hit.Score)
//	}
//
// # Scoring
//
// Both backends report Score as 1 - cosine distance, so higher is better
// and identical vectors score 1.0. The SQLite backend computes similarity
// in Go over the repository's rows; Chroma computes it server side.
//
// # Build Tags
//
// The SQLite backend supports two build configurations:
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires a C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo"
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
package vectorstore
