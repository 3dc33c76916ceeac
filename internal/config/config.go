// Package config loads runtime settings from the environment.
//
// Settings come from process environment variables, with a .env file in the
// working directory picked up first when present. Every knob has a default
// that works for local use; only OPENAI_API_KEY is required, and only for
// operations that reach the embedding or chat APIs.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for every tunable setting
const (
	DefaultCollectionName       = "askrepo"
	DefaultDataDir              = "~/.askrepo"
	DefaultEmbeddingModel       = "text-embedding-3-large"
	DefaultEmbeddingBatchSize   = 100
	DefaultRetrievalModel       = "gpt-4.1"
	DefaultCompressionModel     = "gpt-4.1-mini"
	DefaultMaxTokensRetrieval   = 10000
	DefaultMaxTokensCompression = 5000
	DefaultChunkSizeTokens      = 1280
	DefaultChunkOverlapTokens   = 50
	DefaultMaxFileSizeMB        = 2.0
	DefaultMaxConcurrent        = 5
	DefaultEmbeddingCacheSize   = 10000
	DefaultMaxIterations        = 5
)

// Settings holds all runtime configuration
type Settings struct {
	// API keys
	OpenAIAPIKey string

	// Logging
	LogLevel slog.Level

	// Vector store: Chroma when host+port are set, embedded SQLite otherwise
	ChromaHost     string
	ChromaPort     int
	CollectionName string
	DataDir        string

	// Models
	EmbeddingModel       string
	EmbeddingBatchSize   int
	RetrievalModel       string
	CompressionModel     string
	MaxTokensRetrieval   int
	MaxTokensCompression int

	// Chunking
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	MaxFileSizeMB      float64

	// Indexing
	MaxConcurrent      int
	EmbeddingCacheSize int

	// Query answering
	MaxIterations int
}

// Default returns settings with every field at its default value
func Default() *Settings {
	return &Settings{
		LogLevel:             slog.LevelInfo,
		CollectionName:       DefaultCollectionName,
		DataDir:              DefaultDataDir,
		EmbeddingModel:       DefaultEmbeddingModel,
		EmbeddingBatchSize:   DefaultEmbeddingBatchSize,
		RetrievalModel:       DefaultRetrievalModel,
		CompressionModel:     DefaultCompressionModel,
		MaxTokensRetrieval:   DefaultMaxTokensRetrieval,
		MaxTokensCompression: DefaultMaxTokensCompression,
		ChunkSizeTokens:      DefaultChunkSizeTokens,
		ChunkOverlapTokens:   DefaultChunkOverlapTokens,
		MaxFileSizeMB:        DefaultMaxFileSizeMB,
		MaxConcurrent:        DefaultMaxConcurrent,
		EmbeddingCacheSize:   DefaultEmbeddingCacheSize,
		MaxIterations:        DefaultMaxIterations,
	}
}

// Load reads settings from a .env file (if present) and the environment
func Load() (*Settings, error) {
	// Missing .env is not an error; real env vars still apply
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads settings from the current process environment
func FromEnv() (*Settings, error) {
	s := Default()

	s.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return nil, err
		}
		s.LogLevel = parsed
	}

	s.ChromaHost = os.Getenv("CHROMA_HOST")
	var err error
	if s.ChromaPort, err = envInt("CHROMA_PORT", 0); err != nil {
		return nil, err
	}
	s.CollectionName = envString("CHROMA_COLLECTION_NAME", s.CollectionName)
	s.DataDir = envString("ASKREPO_DATA_DIR", s.DataDir)

	s.EmbeddingModel = envString("EMBEDDING_MODEL", s.EmbeddingModel)
	if s.EmbeddingBatchSize, err = envInt("EMBEDDING_BATCH_SIZE", s.EmbeddingBatchSize); err != nil {
		return nil, err
	}
	s.RetrievalModel = envString("RETRIEVAL_MODEL", s.RetrievalModel)
	s.CompressionModel = envString("COMPRESSION_MODEL", s.CompressionModel)
	if s.MaxTokensRetrieval, err = envInt("MAX_TOKENS_RETRIEVAL", s.MaxTokensRetrieval); err != nil {
		return nil, err
	}
	if s.MaxTokensCompression, err = envInt("MAX_TOKENS_COMPRESSION", s.MaxTokensCompression); err != nil {
		return nil, err
	}

	if s.ChunkSizeTokens, err = envInt("CHUNK_SIZE_TOKENS", s.ChunkSizeTokens); err != nil {
		return nil, err
	}
	if s.ChunkOverlapTokens, err = envInt("CHUNK_OVERLAP_TOKENS", s.ChunkOverlapTokens); err != nil {
		return nil, err
	}
	if s.MaxFileSizeMB, err = envFloat("MAX_FILE_SIZE_MB", s.MaxFileSizeMB); err != nil {
		return nil, err
	}

	if s.MaxConcurrent, err = envInt("MAX_CONCURRENT", s.MaxConcurrent); err != nil {
		return nil, err
	}
	if s.EmbeddingCacheSize, err = envInt("EMBEDDING_CACHE_SIZE", s.EmbeddingCacheSize); err != nil {
		return nil, err
	}
	if s.MaxIterations, err = envInt("MAX_ITERATIONS", s.MaxIterations); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks settings for internally consistent values
func (s *Settings) Validate() error {
	if s.ChunkSizeTokens <= 0 {
		return errors.New("chunk size must be positive")
	}
	if s.ChunkOverlapTokens < 0 {
		return errors.New("chunk overlap cannot be negative")
	}
	if s.ChunkOverlapTokens >= s.ChunkSizeTokens {
		return errors.New("chunk overlap must be smaller than chunk size")
	}
	if s.EmbeddingBatchSize <= 0 {
		return errors.New("embedding batch size must be positive")
	}
	if s.MaxConcurrent <= 0 {
		return errors.New("max concurrent must be positive")
	}
	if s.MaxIterations <= 0 {
		return errors.New("max iterations must be positive")
	}
	if s.MaxFileSizeMB <= 0 {
		return errors.New("max file size must be positive")
	}
	if s.ChromaHost != "" && s.ChromaPort <= 0 {
		return errors.New("CHROMA_PORT is required when CHROMA_HOST is set")
	}
	return nil
}

// UseChroma reports whether a remote Chroma server is configured.
// Without one, the embedded SQLite store is used.
func (s *Settings) UseChroma() bool {
	return s.ChromaHost != "" && s.ChromaPort > 0
}

// ChromaURL returns the base URL of the configured Chroma server
func (s *Settings) ChromaURL() string {
	return fmt.Sprintf("http://%s:%d", s.ChromaHost, s.ChromaPort)
}

// ExpandedDataDir returns DataDir with a leading ~ resolved to the home
// directory
func (s *Settings) ExpandedDataDir() (string, error) {
	dir := s.DataDir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

// DatabasePath returns the SQLite file path under the data directory,
// creating the directory when needed
func (s *Settings) DatabasePath() (string, error) {
	dir, err := s.ExpandedDataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "askrepo.db"), nil
}

// MaxFileSizeBytes returns the file size cap in bytes
func (s *Settings) MaxFileSizeBytes() int64 {
	return int64(s.MaxFileSizeMB * 1024 * 1024)
}

// ParseLevel converts a textual log level into a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// envString reads a string env var with a default
func envString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// envInt reads an integer env var with a default
func envInt(key string, defaultValue int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

// envFloat reads a float env var with a default
func envFloat(key string, defaultValue float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
