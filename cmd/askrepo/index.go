package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/indexer"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
)

var (
	indexRepoName string
	indexIgnore   []string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository for semantic search",
	Long: `Walk a repository, split its files into token-bounded chunks, embed
them, and store the vectors. Indexing is a full rebuild: chunks from any
previous run for the same repository name are removed first.

A manifest summarizing the run is written to <path>/.askrepo/manifest.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexRepoName, "repo", "r", "", "name for the repository index (default: directory name)")
	indexCmd.Flags().StringArrayVar(&indexIgnore, "ignore", nil, "additional glob pattern to exclude (repeatable)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	if err := requireAPIKey(settings); err != nil {
		return err
	}

	path := args[0]
	repoName := indexRepoName
	if repoName == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("cannot resolve path: %w", err)
		}
		repoName = filepath.Base(abs)
	}

	ctx := context.Background()
	store, err := vectorstore.NewFromConfig(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	emb := embedder.NewOpenAI(settings.OpenAIAPIKey, settings.EmbeddingModel, settings.EmbeddingBatchSize, logger)
	cache := embedder.NewCache(settings.EmbeddingCacheSize)
	idx := indexer.New(store, emb, cache, settings, logger)

	manifest, err := idx.Index(ctx, indexer.Job{
		RepoPath:       path,
		RepoName:       repoName,
		IgnorePatterns: indexIgnore,
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Printf("Indexed repository %q\n\n", manifest.RepoName)
	cmd.Printf("  Files:    %d\n", manifest.TotalFiles)
	cmd.Printf("  Chunks:   %d\n", manifest.TotalChunks)
	cmd.Printf("  Tokens:   %d\n", manifest.TotalTokens)
	cmd.Printf("  Duration: %.2fs\n", manifest.DurationSeconds)
	if n := len(manifest.IndexingStats.Errors); n > 0 {
		cmd.Printf("  Errors:   %d (see manifest for details)\n", n)
	}
	cmd.Printf("\nManifest: %s\n", manifest.Path)
	return nil
}
