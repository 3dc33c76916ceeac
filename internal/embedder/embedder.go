package embedder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

const (
	// DefaultModel is the embedding model used when none is configured
	DefaultModel = "text-embedding-3-large"

	// DefaultBatchSize is the number of texts sent per API request
	DefaultBatchSize = 100

	// CostPerMillionTokens is the embedding price in USD for DefaultModel
	CostPerMillionTokens = 0.13

	// batchInterval spaces consecutive batch requests to stay under
	// rate limits
	batchInterval = 100 * time.Millisecond
)

// Result is one embedded text with its vector and usage metadata.
type Result struct {
	Text       string
	Embedding  []float32
	Model      string
	TokenCount int
}

// Dimension returns the vector length.
func (r *Result) Dimension() int {
	return len(r.Embedding)
}

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedTexts embeds multiple texts, batching automatically. Results
	// are returned in input order.
	EmbedTexts(ctx context.Context, texts []string) ([]*Result, error)

	// EmbedSingle embeds one text
	EmbedSingle(ctx context.Context, text string) (*Result, error)

	// Model returns the configured model name
	Model() string

	// TotalTokensUsed returns the cumulative prompt tokens consumed
	TotalTokensUsed() int

	// Usage returns cumulative usage statistics
	Usage() UsageStats
}

// UsageStats summarizes cumulative embedding usage.
type UsageStats struct {
	TotalTokensUsed  int     `json:"total_tokens_used"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Model            string  `json:"model"`
}

// EstimateCost returns the USD cost of embedding tokenCount tokens.
func EstimateCost(tokenCount int) float64 {
	return float64(tokenCount) / 1_000_000 * CostPerMillionTokens
}

// OpenAI implements Embedder against the OpenAI embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     string
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger

	mu          sync.Mutex
	totalTokens int
}

// NewOpenAI creates an OpenAI embedder. Empty model and non-positive
// batchSize fall back to the defaults.
func NewOpenAI(apiKey, model string, batchSize int, logger *slog.Logger) *OpenAI {
	return NewOpenAIWithClient(openai.NewClient(apiKey), model, batchSize, logger)
}

// NewOpenAIWithClient creates an OpenAI embedder on an existing client.
func NewOpenAIWithClient(client *openai.Client, model string, batchSize int, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = DefaultModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OpenAI{
		client:    client,
		model:     model,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(batchInterval), 1),
		logger:    logger,
	}
}

// EmbedTexts embeds texts in batches of the configured size. Batches are
// paced one per batchInterval.
func (o *OpenAI) EmbedTexts(ctx context.Context, texts []string) ([]*Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([]*Result, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := o.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

// EmbedSingle embeds one text.
func (o *OpenAI) EmbedSingle(ctx context.Context, text string) (*Result, error) {
	results, err := o.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Model returns the configured model name.
func (o *OpenAI) Model() string {
	return o.model
}

// TotalTokensUsed returns the cumulative prompt tokens consumed.
func (o *OpenAI) TotalTokensUsed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalTokens
}

// Usage returns cumulative usage statistics.
func (o *OpenAI) Usage() UsageStats {
	tokens := o.TotalTokensUsed()
	return UsageStats{
		TotalTokensUsed:  tokens,
		EstimatedCostUSD: EstimateCost(tokens),
		Model:            o.model,
	}
}

func (o *OpenAI) embedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	started := time.Now()

	resp, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() (openai.EmbeddingResponse, error) {
		return o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:          texts,
			Model:          openai.EmbeddingModel(o.model),
			EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		})
	})
	if err != nil {
		o.logger.Error("embedding_error", "error", err, "batch_size", len(texts))
		return nil, classifyError("embed_batch", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, types.Malformed("embed_batch", "",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	// Per-text token counts are approximate: the API reports usage per
	// batch only.
	perText := resp.Usage.PromptTokens / len(texts)

	results := make([]*Result, len(texts))
	for i, data := range resp.Data {
		results[i] = &Result{
			Text:       texts[i],
			Embedding:  data.Embedding,
			Model:      string(resp.Model),
			TokenCount: perText,
		}
	}

	o.mu.Lock()
	o.totalTokens += resp.Usage.PromptTokens
	o.mu.Unlock()

	o.logger.Info("batch_embedded",
		"batch_size", len(texts),
		"tokens_used", resp.Usage.PromptTokens,
		"elapsed_ms", time.Since(started).Milliseconds(),
		"model", o.model)

	return results, nil
}

// classifyError wraps rate-limit, server, and network failures as transient
// so callers can decide whether to retry or skip. Other API errors pass
// through unchanged.
func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return types.Transient(op, err)
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return types.Transient(op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.Transient(op, err)
	}
	return err
}
