package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

var statsRepoName string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics for a repository",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsRepoName, "repo", "r", "", "name of the indexed repository (required)")
	_ = statsCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := vectorstore.NewFromConfig(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.RepoStats(ctx, statsRepoName)
	if err != nil {
		return err
	}
	if stats.TotalChunks == 0 {
		return fmt.Errorf("%w: %s", types.ErrRepoNotIndexed, statsRepoName)
	}

	cmd.Printf("Repository: %s\n\n", stats.RepoName)
	cmd.Printf("  Chunks: %d\n", stats.TotalChunks)
	cmd.Printf("  Files:  %d\n", stats.TotalFiles)
	cmd.Printf("  Tokens: %d\n", stats.TotalTokens)
	if stats.IndexedAt != "" {
		cmd.Printf("  Indexed at: %s\n", stats.IndexedAt)
	}

	if len(stats.Languages) > 0 {
		languages := make([]string, 0, len(stats.Languages))
		for lang := range stats.Languages {
			languages = append(languages, lang)
		}
		sort.Strings(languages)

		cmd.Println("\nLanguages:")
		for _, lang := range languages {
			cmd.Printf("  %-16s %d chunks\n", lang, stats.Languages[lang])
		}
	}
	return nil
}
