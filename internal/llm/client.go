package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// Retry configuration for chat completion calls
const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

// Roles understood by the chat API
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Request describes one chat completion call. MaxTokens of 0 leaves the
// response length uncapped.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Response is the completed text plus the usage it cost. Callers accumulate
// TotalTokens and CostUSD into their own budgets.
type Response struct {
	Content     string
	Model       string
	TotalTokens int
	CostUSD     float64
}

// Client is the chat surface the agents depend on
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// OpenAI implements Client against the OpenAI chat completions API
type OpenAI struct {
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a chat client with the given API key
func NewOpenAI(apiKey string, logger *slog.Logger) *OpenAI {
	return NewOpenAIWithClient(openai.NewClient(apiKey), logger)
}

// NewOpenAIWithClient creates a chat client from a pre-configured OpenAI
// client. Useful for tests and custom endpoints.
func NewOpenAIWithClient(client *openai.Client, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{client: client, logger: logger}
}

// Complete issues one chat completion, retrying with backoff before giving
// up. The returned cost is estimated from total token usage.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp openai.ChatCompletionResponse
	var err error
	delay := initialBackoff
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}

		resp, err = c.client.CreateChatCompletion(ctx, apiReq)
		if err == nil {
			break
		}
	}
	if err != nil {
		c.logger.Error("llm_call_failed", "model", req.Model, "error", err)
		return nil, classifyError("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	tokens := resp.Usage.TotalTokens
	cost := EstimateCost(req.Model, tokens)

	c.logger.Info("llm_call_complete",
		"model", req.Model,
		"tokens", tokens,
		"cost", cost)

	return &Response{
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		TotalTokens: tokens,
		CostUSD:     cost,
	}, nil
}

// classifyError maps API failures onto the error taxonomy. Rate limits,
// server errors, and transport failures are transient.
func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
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
