package vectorstore

import (
	"context"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// Metadata is the per-chunk metadata persisted alongside each vector.
// Timestamps are UTC ISO 8601 strings.
type Metadata struct {
	RepoName       string `json:"repo_name"`
	FilePath       string `json:"file_path"`
	StartLine      int    `json:"start_line"`
	EndLine        int    `json:"end_line"`
	ChunkIndex     int    `json:"chunk_index"`
	TotalChunks    int    `json:"total_chunks"`
	Language       string `json:"language"`
	TokenCount     int    `json:"token_count"`
	Boundary       string `json:"boundary"`
	IndexedAt      string `json:"indexed_at"`
	EmbeddingModel string `json:"embedding_model"`
	GitCommit      string `json:"git_commit,omitempty"`
}

// Record is one chunk with its embedding, ready for storage. ID is the
// deterministic chunk identifier, so re-upserting unchanged content
// overwrites in place.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// Validate checks that a record can be stored.
func (r *Record) Validate() error {
	if r.ID == "" {
		return types.Invalid("record", "id is empty")
	}
	if r.Content == "" {
		return types.Invalid(r.ID, "content is empty")
	}
	if len(r.Embedding) == 0 {
		return types.Invalid(r.ID, "embedding is empty")
	}
	if r.Metadata.RepoName == "" {
		return types.Invalid(r.ID, "repo_name is empty")
	}
	if r.Metadata.StartLine > r.Metadata.EndLine {
		return types.Invalid(r.ID, "start_line after end_line")
	}
	return nil
}

// RepoStats summarizes the indexed content of one repository.
type RepoStats struct {
	RepoName    string         `json:"repo_name"`
	TotalChunks int            `json:"total_chunks"`
	TotalFiles  int            `json:"total_files"`
	Languages   map[string]int `json:"languages"`
	TotalTokens int            `json:"total_tokens"`
	IndexedAt   string         `json:"indexed_at,omitempty"`
}

// Store persists chunk vectors and serves similarity queries.
type Store interface {
	// Upsert writes records, overwriting any with the same ID. Returns
	// the number of records written.
	Upsert(ctx context.Context, records []Record) (int, error)

	// Search returns the k chunks most similar to queryVector, best
	// first. An empty repoName searches all repositories.
	Search(ctx context.Context, queryVector []float32, repoName string, k int) ([]types.ScoredChunk, error)

	// DeleteRepo removes every chunk of a repository and returns the
	// number deleted.
	DeleteRepo(ctx context.Context, repoName string) (int, error)

	// RepoStats aggregates chunk counts, file counts, languages, and
	// token totals for a repository.
	RepoStats(ctx context.Context, repoName string) (*RepoStats, error)

	// Close releases the underlying connection
	Close() error
}
