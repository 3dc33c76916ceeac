package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askrepo/askrepo-mcp/internal/agent"
	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

var (
	queryRepoName      string
	queryMaxIterations int
	queryJSON          bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question about an indexed repository",
	Long: `Run the retrieve-and-compress loop against an indexed repository: the
question is turned into search queries, matching chunks are retrieved
and self-evaluated for sufficiency, and the accumulated context is
compressed into an answer with source citations.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryRepoName, "repo", "r", "", "name of the indexed repository (required)")
	queryCmd.Flags().IntVar(&queryMaxIterations, "max-iterations", 3, "maximum retrieval iterations")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the full result as JSON")
	_ = queryCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	if err := requireAPIKey(settings); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := vectorstore.NewFromConfig(ctx, settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.RepoStats(ctx, queryRepoName)
	if err != nil {
		return err
	}
	if stats.TotalChunks == 0 {
		return fmt.Errorf("%w: %s", types.ErrRepoNotIndexed, queryRepoName)
	}

	emb := embedder.NewOpenAI(settings.OpenAIAPIKey, settings.EmbeddingModel, settings.EmbeddingBatchSize, logger)
	client := llm.NewOpenAI(settings.OpenAIAPIKey, logger)
	flow := agent.New(store, emb, client, settings, logger)

	result, err := flow.Query(ctx, args[0], queryRepoName, queryMaxIterations)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(result.Answer)

	if len(result.Chunks) > 0 {
		cmd.Println("\nSources:")
		for i, chunk := range result.Chunks {
			cmd.Printf("  %d. %s (lines %s)\n", i+1, chunk.File, chunk.Lines)
		}
	}

	cmd.Printf("\nIterations: %d  Chunks: %d  Tokens: %d  Cost: $%.4f\n",
		result.Metadata.Iterations, result.Metadata.ChunksUsed,
		result.Metadata.TokensUsed, result.Metadata.CostUSD)
	return nil
}
