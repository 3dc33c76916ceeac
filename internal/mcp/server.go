package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/askrepo/askrepo-mcp/internal/agent"
	"github.com/askrepo/askrepo-mcp/internal/config"
	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/indexer"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "askrepo-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	settings *config.Settings
	store    vectorstore.Store
	indexer  *indexer.Indexer
	workflow *agent.Workflow
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance. One vector store, embedder,
// and embedding cache are shared between the indexer and the query
// workflow, so embeddings cached while indexing are reused by queries.
func NewServer(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*Server, error) {
	if settings == nil {
		settings = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := vectorstore.NewFromConfig(ctx, settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	emb := embedder.NewOpenAI(settings.OpenAIAPIKey, settings.EmbeddingModel, settings.EmbeddingBatchSize, logger)
	cache := embedder.NewCache(settings.EmbeddingCacheSize)
	client := llm.NewOpenAI(settings.OpenAIAPIKey, logger)

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		settings: settings,
		store:    store,
		indexer:  indexer.New(store, emb, cache, settings, logger),
		workflow: agent.New(store, emb, client, settings, logger),
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()

	s.logger.Info("mcp_server_started", "name", ServerName, "version", ServerVersion)
	err := server.ServeStdio(s.mcp)
	s.logger.Info("mcp_server_stopped")
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(initRepoTool(), s.handleInitRepo)
	s.mcp.AddTool(searchRepoTool(), s.handleSearchRepo)
	s.mcp.AddTool(getRepoStatsTool(), s.handleGetRepoStats)
}
