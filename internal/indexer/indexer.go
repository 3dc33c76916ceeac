package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/askrepo/askrepo-mcp/internal/chunker"
	"github.com/askrepo/askrepo-mcp/internal/config"
	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/tokenizer"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/internal/walker"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// ErrIndexingInProgress is returned when Index is called while another run
// is still active on the same Indexer.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Indexer coordinates the indexing pipeline: walk -> chunk -> embed -> store
type Indexer struct {
	store    vectorstore.Store
	embedder embedder.Embedder
	cache    *embedder.Cache
	chunker  *chunker.Chunker
	settings *config.Settings
	logger   *slog.Logger

	workers int
	lock    runLock
}

// Job describes one indexing run
type Job struct {
	RepoPath       string
	RepoName       string
	IgnorePatterns []string
}

// FileError records one file that could not be processed
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Statistics summarizes what one indexing run did
type Statistics struct {
	FilesProcessed    int         `json:"files_processed"`
	FilesSkipped      int         `json:"files_skipped"`
	ChunksCreated     int         `json:"chunks_created"`
	TokensProcessed   int         `json:"tokens_processed"`
	EmbeddingsCreated int         `json:"embeddings_created"`
	EmbeddingsCached  int         `json:"embeddings_cached"`
	Errors            []FileError `json:"errors"`
}

// runStats tracks progress across worker goroutines
type runStats struct {
	filesProcessed    atomic.Int64
	filesSkipped      atomic.Int64
	chunksCreated     atomic.Int64
	tokensProcessed   atomic.Int64
	embeddingsCreated atomic.Int64
	embeddingsCached  atomic.Int64

	mu     sync.Mutex // protects errors
	errors []FileError
}

func (rs *runStats) addError(file string, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.errors = append(rs.errors, FileError{File: file, Error: err.Error()})
}

func (rs *runStats) snapshot() Statistics {
	rs.mu.Lock()
	errs := append([]FileError(nil), rs.errors...)
	rs.mu.Unlock()
	if errs == nil {
		errs = []FileError{}
	}

	return Statistics{
		FilesProcessed:    int(rs.filesProcessed.Load()),
		FilesSkipped:      int(rs.filesSkipped.Load()),
		ChunksCreated:     int(rs.chunksCreated.Load()),
		TokensProcessed:   int(rs.tokensProcessed.Load()),
		EmbeddingsCreated: int(rs.embeddingsCreated.Load()),
		EmbeddingsCached:  int(rs.embeddingsCached.Load()),
		Errors:            errs,
	}
}

// New creates an Indexer wired to the given store and embedder
func New(store vectorstore.Store, emb embedder.Embedder, cache *embedder.Cache, settings *config.Settings, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = config.Default()
	}

	counter := tokenizer.New(logger)

	return &Indexer{
		store:    store,
		embedder: emb,
		cache:    cache,
		chunker:  chunker.New(counter, settings.ChunkSizeTokens, settings.ChunkOverlapTokens),
		settings: settings,
		logger:   logger,
		workers:  settings.MaxConcurrent,
	}
}

// Index runs one full indexing pass over the repository: existing chunks
// for the repo are cleared first, then every file is walked, chunked,
// embedded, and upserted. Individual file failures are recorded in the
// statistics and never abort the run; store failures do abort it.
func (idx *Indexer) Index(ctx context.Context, job Job) (*Manifest, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	start := time.Now()

	absPath, err := filepath.Abs(job.RepoPath)
	if err != nil {
		return nil, types.Invalid(job.RepoPath, fmt.Sprintf("cannot resolve path: %v", err))
	}

	idx.logger.Info("indexing_started",
		"repo_path", absPath,
		"repo_name", job.RepoName)

	// Full re-index: clear existing chunks so removed files leave no orphans
	if _, err := idx.store.DeleteRepo(ctx, job.RepoName); err != nil {
		return nil, err
	}

	w := walker.New(idx.logger, job.IgnorePatterns, idx.settings.MaxFileSizeBytes())
	files, err := w.Walk(absPath)
	if err != nil {
		return nil, err
	}

	idx.logger.Info("files_discovered", "total_files", len(files))

	gitCommit := resolveGitCommit(absPath)
	stats := &runStats{}

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, idx.workers)

	for _, file := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if err := idx.processFile(gctx, job.RepoName, file, gitCommit, stats); err != nil {
				if types.IsStore(err) {
					return err
				}
				idx.logger.Error("file_processing_error",
					"path", file.Path,
					"error", err)
				stats.addError(file.RelPath, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	repoStats, err := idx.store.RepoStats(ctx, job.RepoName)
	if err != nil {
		return nil, err
	}

	manifest := idx.buildManifest(job, repoStats, stats.snapshot(), gitCommit, time.Since(start))
	if err := writeManifest(absPath, manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	idx.logger.Info("indexing_completed",
		"repo_name", job.RepoName,
		"duration_seconds", manifest.DurationSeconds,
		"files_processed", manifest.IndexingStats.FilesProcessed,
		"chunks_created", manifest.IndexingStats.ChunksCreated,
		"tokens_processed", manifest.IndexingStats.TokensProcessed,
		"manifest_path", manifest.Path)

	return manifest, nil
}

// processFile reads, chunks, embeds, and stores a single file
func (idx *Indexer) processFile(ctx context.Context, repoName string, file walker.FileInfo, gitCommit string, stats *runStats) error {
	raw, err := os.ReadFile(file.Path)
	if err != nil {
		return types.Invalid(file.RelPath, fmt.Sprintf("read failed: %v", err))
	}
	content := string(raw)

	if strings.TrimSpace(content) == "" {
		idx.logger.Debug("skipping_empty_file", "path", file.Path)
		stats.filesSkipped.Add(1)
		return nil
	}

	chunks := idx.chunker.Chunk(content, file.Language())
	if len(chunks) == 0 {
		idx.logger.Warn("no_chunks_created", "path", file.Path)
		stats.filesSkipped.Add(1)
		return nil
	}

	// Serve embeddings from the cache where possible
	type pair struct {
		chunk  types.Chunk
		result *embedder.Result
	}
	paired := make([]pair, 0, len(chunks))
	var toEmbed []types.Chunk
	for _, chunk := range chunks {
		if cached, ok := idx.cache.Get(chunk.Content); ok {
			paired = append(paired, pair{chunk: chunk, result: cached})
			stats.embeddingsCached.Add(1)
		} else {
			toEmbed = append(toEmbed, chunk)
		}
	}

	if len(toEmbed) > 0 {
		texts := make([]string, len(toEmbed))
		for i, chunk := range toEmbed {
			texts[i] = chunk.Content
		}

		results, err := idx.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}

		for i, chunk := range toEmbed {
			idx.cache.Put(chunk.Content, results[i])
			paired = append(paired, pair{chunk: chunk, result: results[i]})
			stats.embeddingsCreated.Add(1)
		}
	}

	// Restore file order after the cache split
	sort.Slice(paired, func(i, j int) bool {
		return paired[i].chunk.ChunkIndex < paired[j].chunk.ChunkIndex
	})

	indexedAt := time.Now().UTC().Format(time.RFC3339)
	records := make([]vectorstore.Record, len(paired))
	tokens := 0
	for i, p := range paired {
		language := p.chunk.Language
		if language == "" {
			language = "unknown"
		}

		records[i] = vectorstore.Record{
			ID:        p.chunk.ID(repoName, file.RelPath),
			Content:   p.chunk.Content,
			Embedding: p.result.Embedding,
			Metadata: vectorstore.Metadata{
				RepoName:       repoName,
				FilePath:       file.RelPath,
				StartLine:      p.chunk.StartLine,
				EndLine:        p.chunk.EndLine,
				ChunkIndex:     p.chunk.ChunkIndex,
				TotalChunks:    p.chunk.TotalChunks,
				Language:       language,
				TokenCount:     p.chunk.TokenCount,
				Boundary:       string(p.chunk.Boundary),
				IndexedAt:      indexedAt,
				EmbeddingModel: idx.embedder.Model(),
				GitCommit:      gitCommit,
			},
		}
		tokens += p.chunk.TokenCount
	}

	if _, err := idx.store.Upsert(ctx, records); err != nil {
		return err
	}

	stats.filesProcessed.Add(1)
	stats.chunksCreated.Add(int64(len(chunks)))
	stats.tokensProcessed.Add(int64(tokens))

	idx.logger.Info("file_processed",
		"path", file.RelPath,
		"chunks", len(chunks),
		"tokens", tokens)

	return nil
}

// buildManifest assembles the run summary from store aggregates and run
// statistics
func (idx *Indexer) buildManifest(job Job, repoStats *vectorstore.RepoStats, stats Statistics, gitCommit string, duration time.Duration) *Manifest {
	storeType := "sqlite"
	if idx.settings.UseChroma() {
		storeType = "chroma"
	}

	ignorePatterns := job.IgnorePatterns
	if ignorePatterns == nil {
		ignorePatterns = []string{}
	}

	return &Manifest{
		RepoName:    job.RepoName,
		RunID:       uuid.NewString(),
		IndexedAt:   time.Now().UTC().Format(time.RFC3339),
		TotalFiles:  repoStats.TotalFiles,
		TotalChunks: repoStats.TotalChunks,
		TotalTokens: repoStats.TotalTokens,
		Languages:   repoStats.Languages,
		ChunkingParams: ChunkingParams{
			Strategy:      ChunkingStrategy,
			MaxTokens:     idx.settings.ChunkSizeTokens,
			OverlapTokens: idx.settings.ChunkOverlapTokens,
		},
		IndexVersion: IndexVersion,
		VectorStore: VectorStoreInfo{
			Type:           storeType,
			Collection:     idx.settings.CollectionName,
			EmbeddingModel: idx.embedder.Model(),
		},
		IndexingStats:   stats,
		DurationSeconds: duration.Seconds(),
		GitCommit:       gitCommit,
		IgnorePatterns:  ignorePatterns,
		EmbeddingStats:  idx.embedder.Usage(),
		CacheStats:      idx.cache.Stats(),
	}
}
