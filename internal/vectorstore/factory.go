package vectorstore

import (
	"context"
	"log/slog"

	"github.com/askrepo/askrepo-mcp/internal/config"
)

// NewFromConfig builds the configured store backend: a Chroma client when a
// server is configured, the embedded SQLite store otherwise
func NewFromConfig(ctx context.Context, cfg *config.Settings, logger *slog.Logger) (Store, error) {
	if cfg.UseChroma() {
		store, err := NewChroma(ctx, ChromaConfig{
			URL:        cfg.ChromaURL(),
			Collection: cfg.CollectionName,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("vector_store_ready", "backend", "chroma", "url", cfg.ChromaURL())
		return store, nil
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	store, err := NewSQLite(dbPath, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("vector_store_ready", "backend", "sqlite", "path", dbPath, "driver", DriverName)
	return store, nil
}
