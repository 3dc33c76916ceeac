package vectorstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// SQLiteStore persists chunks and their embedding vectors in a local SQLite
// database. Similarity is computed in Go over the repository's candidate set,
// which keeps both the cgo and pure-Go drivers interchangeable.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLite opens (or creates) the database at dbPath and applies migrations
func NewSQLite(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, types.Store("open", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, types.Store("migrate", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const upsertChunkQuery = `
	INSERT INTO chunks (
		id, repo_name, file_path, content, start_line, end_line,
		chunk_index, total_chunks, language, token_count, boundary,
		embedding_model, git_commit, indexed_at, vector, dimension,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		start_line = excluded.start_line,
		end_line = excluded.end_line,
		chunk_index = excluded.chunk_index,
		total_chunks = excluded.total_chunks,
		language = excluded.language,
		token_count = excluded.token_count,
		boundary = excluded.boundary,
		embedding_model = excluded.embedding_model,
		git_commit = excluded.git_commit,
		indexed_at = excluded.indexed_at,
		vector = excluded.vector,
		dimension = excluded.dimension,
		updated_at = excluded.updated_at
`

// Upsert writes records in a single transaction. Re-upserting an existing id
// overwrites the stored row, so repeated indexing runs never duplicate chunks.
func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, types.Store("upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertChunkQuery)
	if err != nil {
		return 0, types.Store("upsert", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i := range records {
		r := &records[i]

		var gitCommit interface{}
		if r.Metadata.GitCommit != "" {
			gitCommit = r.Metadata.GitCommit
		}

		_, err := stmt.ExecContext(ctx,
			r.ID, r.Metadata.RepoName, r.Metadata.FilePath, r.Content,
			r.Metadata.StartLine, r.Metadata.EndLine,
			r.Metadata.ChunkIndex, r.Metadata.TotalChunks,
			r.Metadata.Language, r.Metadata.TokenCount, r.Metadata.Boundary,
			r.Metadata.EmbeddingModel, gitCommit, r.Metadata.IndexedAt,
			serializeVector(r.Embedding), len(r.Embedding),
			now, now)
		if err != nil {
			return 0, types.Store("upsert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, types.Store("upsert", err)
	}

	s.logger.Info("chunks_upserted",
		"repo_name", records[0].Metadata.RepoName,
		"count", len(records))

	return len(records), nil
}

// Search ranks every chunk of the repository by cosine similarity against
// queryVector and returns the top k hits, highest score first.
func (s *SQLiteStore) Search(ctx context.Context, queryVector []float32, repoName string, k int) ([]types.ScoredChunk, error) {
	if len(queryVector) == 0 {
		return nil, types.Invalid("query_vector", "embedding is empty")
	}

	start := time.Now()

	query := "SELECT id, vector FROM chunks"
	var args []interface{}
	if repoName != "" {
		query += " WHERE repo_name = ?"
		args = append(args, repoName)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.Store("search", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []candidate
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, types.Store("search", err)
		}
		score := cosineSimilarity(queryVector, deserializeVector(blob))
		candidates = append(candidates, candidate{id: id, score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, types.Store("search", err)
	}

	sortCandidates(candidates)
	ranked := topK(candidates, k)
	if len(ranked) == 0 {
		return nil, nil
	}

	results, err := s.hydrate(ctx, ranked)
	if err != nil {
		return nil, err
	}

	s.logger.Info("search_completed",
		"repo_name", repoName,
		"results", len(results),
		"elapsed_ms", time.Since(start).Milliseconds())

	return results, nil
}

// hydrate loads content and location metadata for ranked candidates,
// preserving their score order
func (s *SQLiteStore) hydrate(ctx context.Context, ranked []candidate) ([]types.ScoredChunk, error) {
	ids := make([]interface{}, len(ranked))
	placeholders := make([]string, len(ranked))
	for i, c := range ranked {
		ids[i] = c.id
		placeholders[i] = "?"
	}

	query := fmt.Sprintf(
		"SELECT id, content, file_path, start_line, end_line, language FROM chunks WHERE id IN (%s)",
		strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, types.Store("search", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]types.ScoredChunk, len(ranked))
	for rows.Next() {
		var sc types.ScoredChunk
		if err := rows.Scan(&sc.ID, &sc.Content, &sc.FilePath, &sc.StartLine, &sc.EndLine, &sc.Language); err != nil {
			return nil, types.Store("search", err)
		}
		byID[sc.ID] = sc
	}
	if err := rows.Err(); err != nil {
		return nil, types.Store("search", err)
	}

	results := make([]types.ScoredChunk, 0, len(ranked))
	for _, c := range ranked {
		sc, ok := byID[c.id]
		if !ok {
			continue
		}
		sc.Score = c.score
		results = append(results, sc)
	}
	return results, nil
}

// DeleteRepo removes every chunk of the repository and returns how many
// rows were deleted
func (s *SQLiteStore) DeleteRepo(ctx context.Context, repoName string) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE repo_name = ?", repoName)
	if err != nil {
		return 0, types.Store("delete_repo", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, types.Store("delete_repo", err)
	}

	if deleted > 0 {
		s.logger.Info("repo_deleted",
			"repo_name", repoName,
			"chunks_deleted", deleted)
	}

	return int(deleted), nil
}

// RepoStats aggregates chunk counts, distinct files, per-language totals and
// token totals for the repository. An unindexed repository yields zero counts.
func (s *SQLiteStore) RepoStats(ctx context.Context, repoName string) (*RepoStats, error) {
	stats := &RepoStats{
		RepoName:  repoName,
		Languages: make(map[string]int),
	}

	var indexedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT file_path), COALESCE(SUM(token_count), 0), MAX(indexed_at)
		FROM chunks
		WHERE repo_name = ?`, repoName).
		Scan(&stats.TotalChunks, &stats.TotalFiles, &stats.TotalTokens, &indexedAt)
	if err != nil {
		return nil, types.Store("repo_stats", err)
	}
	if indexedAt.Valid {
		stats.IndexedAt = indexedAt.String
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT language, COUNT(*) FROM chunks WHERE repo_name = ? GROUP BY language", repoName)
	if err != nil {
		return nil, types.Store("repo_stats", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return nil, types.Store("repo_stats", err)
		}
		stats.Languages[lang] = count
	}
	if err := rows.Err(); err != nil {
		return nil, types.Store("repo_stats", err)
	}

	return stats, nil
}
