package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/askrepo/askrepo-mcp/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "askrepo",
	Short: "Semantic code search and question answering for source repositories",
	Long: `askrepo indexes source repositories into a vector store and answers
natural language questions about them through an iterative
retrieve-and-compress loop.

Typical usage:

  askrepo index /path/to/project --repo myproject
  askrepo query "How does session auth work?" --repo myproject
  askrepo serve    # expose the same operations as MCP tools over stdio

Configuration comes from the environment; a .env file in the working
directory is read first when present. OPENAI_API_KEY is required for
indexing and querying.`,
	SilenceUsage: true,
}

// loadSettings reads configuration and builds the stderr logger every
// command shares. Stdout stays clean for command output and, under
// serve, for the MCP protocol stream.
func loadSettings() (*config.Settings, *slog.Logger, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: settings.LogLevel,
	}))
	return settings, logger, nil
}

// requireAPIKey refuses to start API-dependent commands without a key
func requireAPIKey(settings *config.Settings) error {
	if settings.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY environment variable is required")
	}
	return nil
}
