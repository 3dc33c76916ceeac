package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// DefaultChromaTimeout bounds a single HTTP call to the Chroma server.
// Upserts carry full embedding batches, so this is deliberately generous.
const DefaultChromaTimeout = 60 * time.Second

// deleteBatchLimit caps how many ids a repository wipe fetches per call
const deleteBatchLimit = 10000

// ChromaStore is a minimal REST client to a Chroma server (v1 API).
// The collection is created on construction if it does not exist.
type ChromaStore struct {
	url          string
	collection   string
	collectionID string
	client       *http.Client
	logger       *slog.Logger
}

// ChromaConfig configures the connection to a Chroma server
type ChromaConfig struct {
	URL        string
	Collection string
	Timeout    time.Duration
}

// NewChroma connects to the Chroma server and resolves the collection id,
// creating the collection when missing
func NewChroma(ctx context.Context, cfg ChromaConfig, logger *slog.Logger) (*ChromaStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultChromaTimeout
	}

	s := &ChromaStore{
		url:        cfg.URL,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}

	var resp struct {
		ID string `json:"id"`
	}
	body := map[string]any{
		"name":          s.collection,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
		"get_or_create": true,
	}
	if err := s.postJSON(ctx, fmt.Sprintf("%s/api/v1/collections", s.url), body, &resp); err != nil {
		return nil, types.Store("connect", err)
	}
	if resp.ID == "" {
		return nil, types.Store("connect", fmt.Errorf("collection %s has no id", s.collection))
	}
	s.collectionID = resp.ID

	return s, nil
}

// Close is a no-op; the store holds no persistent connections
func (s *ChromaStore) Close() error {
	return nil
}

// Upsert writes records to the collection. Existing ids are overwritten,
// so repeated indexing runs never duplicate chunks.
func (s *ChromaStore) Upsert(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, err
		}
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]Metadata, len(records))
	documents := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
		embeddings[i] = records[i].Embedding
		metadatas[i] = records[i].Metadata
		documents[i] = records[i].Content
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
		"documents":  documents,
	}
	if err := s.postJSON(ctx, s.collectionURL("upsert"), body, nil); err != nil {
		return 0, types.Store("upsert", err)
	}

	s.logger.Info("chunks_upserted",
		"repo_name", records[0].Metadata.RepoName,
		"count", len(records))

	return len(records), nil
}

// Search queries the collection for the k nearest chunks of the repository.
// Chroma returns cosine distances; scores are reported as 1 - distance so
// higher is better.
func (s *ChromaStore) Search(ctx context.Context, queryVector []float32, repoName string, k int) ([]types.ScoredChunk, error) {
	if len(queryVector) == 0 {
		return nil, types.Invalid("query_vector", "embedding is empty")
	}
	if k <= 0 {
		k = 10
	}

	start := time.Now()

	body := map[string]any{
		"query_embeddings": [][]float32{queryVector},
		"n_results":        k,
		"include":          []string{"metadatas", "documents", "distances"},
	}
	if repoName != "" {
		body["where"] = map[string]any{"repo_name": repoName}
	}
	var resp struct {
		IDs       [][]string   `json:"ids"`
		Distances [][]float64  `json:"distances"`
		Documents [][]string   `json:"documents"`
		Metadatas [][]Metadata `json:"metadatas"`
	}
	if err := s.postJSON(ctx, s.collectionURL("query"), body, &resp); err != nil {
		return nil, types.Store("search", err)
	}

	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return nil, nil
	}

	hits := resp.IDs[0]
	results := make([]types.ScoredChunk, 0, len(hits))
	for i, id := range hits {
		sc := types.ScoredChunk{ID: id}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			sc.Content = resp.Documents[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			sc.Score = 1 - resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			md := resp.Metadatas[0][i]
			sc.FilePath = md.FilePath
			sc.StartLine = md.StartLine
			sc.EndLine = md.EndLine
			sc.Language = md.Language
		}
		results = append(results, sc)
	}

	s.logger.Info("search_completed",
		"repo_name", repoName,
		"results", len(results),
		"elapsed_ms", time.Since(start).Milliseconds())

	return results, nil
}

// DeleteRepo removes every chunk of the repository and returns how many
// were deleted
func (s *ChromaStore) DeleteRepo(ctx context.Context, repoName string) (int, error) {
	deleted := 0
	for {
		ids, _, err := s.getRepoBatch(ctx, repoName, nil)
		if err != nil {
			return deleted, err
		}
		if len(ids) == 0 {
			break
		}

		body := map[string]any{"ids": ids}
		if err := s.postJSON(ctx, s.collectionURL("delete"), body, nil); err != nil {
			return deleted, types.Store("delete_repo", err)
		}
		deleted += len(ids)

		if len(ids) < deleteBatchLimit {
			break
		}
	}

	if deleted > 0 {
		s.logger.Info("repo_deleted",
			"repo_name", repoName,
			"chunks_deleted", deleted)
	}

	return deleted, nil
}

// RepoStats fetches the repository's chunk metadata and aggregates counts
// client side. An unindexed repository yields zero counts.
func (s *ChromaStore) RepoStats(ctx context.Context, repoName string) (*RepoStats, error) {
	stats := &RepoStats{
		RepoName:  repoName,
		Languages: make(map[string]int),
	}

	ids, metadatas, err := s.getRepoBatch(ctx, repoName, []string{"metadatas"})
	if err != nil {
		return nil, err
	}

	files := make(map[string]struct{})
	for _, md := range metadatas {
		files[md.FilePath] = struct{}{}
		lang := md.Language
		if lang == "" {
			lang = "unknown"
		}
		stats.Languages[lang]++
		stats.TotalTokens += md.TokenCount
		if md.IndexedAt > stats.IndexedAt {
			stats.IndexedAt = md.IndexedAt
		}
	}
	stats.TotalChunks = len(ids)
	stats.TotalFiles = len(files)

	return stats, nil
}

// getRepoBatch fetches up to deleteBatchLimit ids (and optionally metadata)
// for the repository
func (s *ChromaStore) getRepoBatch(ctx context.Context, repoName string, include []string) ([]string, []Metadata, error) {
	body := map[string]any{
		"where": map[string]any{"repo_name": repoName},
		"limit": deleteBatchLimit,
	}
	if len(include) > 0 {
		body["include"] = include
	}

	var resp struct {
		IDs       []string   `json:"ids"`
		Metadatas []Metadata `json:"metadatas"`
	}
	if err := s.postJSON(ctx, s.collectionURL("get"), body, &resp); err != nil {
		return nil, nil, types.Store("get", err)
	}
	return resp.IDs, resp.Metadatas, nil
}

func (s *ChromaStore) collectionURL(op string) string {
	return fmt.Sprintf("%s/api/v1/collections/%s/%s", s.url, s.collectionID, op)
}

func (s *ChromaStore) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("chroma POST %s failed: %s: %s", url, resp.Status, bytes.TrimSpace(detail))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
