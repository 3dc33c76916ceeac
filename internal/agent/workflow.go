package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askrepo/askrepo-mcp/internal/config"
	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// resultPreviewChars caps each chunk preview in the final result
const resultPreviewChars = 200

// StopReason says why the retrieval loop handed over to compression
type StopReason string

const (
	StopSufficientContext StopReason = "sufficient_context"
	StopMaxIterations     StopReason = "max_iterations"
	StopTokenLimit        StopReason = "token_limit"
)

// Metadata summarizes how a run used its budget
type Metadata struct {
	Iterations    int           `json:"iterations"`
	ChunksUsed    int           `json:"chunks_used"`
	TokensUsed    int           `json:"tokens_used"`
	CostUSD       float64       `json:"cost_usd"`
	StopReason    StopReason    `json:"stop_reason"`
	SearchHistory []SearchEntry `json:"search_history"`
}

// ChunkRef is a result citation: where a supporting chunk lives plus a
// short preview
type ChunkRef struct {
	File    string `json:"file"`
	Lines   string `json:"lines"`
	Content string `json:"content"`
}

// Result is the answer to one question with its supporting evidence
type Result struct {
	Answer   string     `json:"answer"`
	Metadata Metadata   `json:"metadata"`
	Chunks   []ChunkRef `json:"chunks"`
}

// Workflow drives the retrieve-then-compress loop: retrieval turns run
// until context is sufficient, iterations run out, or the token budget is
// exceeded, then one compression turn produces the answer.
type Workflow struct {
	retriever  *Retriever
	compressor *Compressor
	logger     *slog.Logger

	maxTokensRetrieval   int
	defaultMaxIterations int
}

// New wires a Workflow from the shared store, embedder, and chat client
func New(store vectorstore.Store, emb embedder.Embedder, client llm.Client, settings *config.Settings, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = config.Default()
	}

	return &Workflow{
		retriever:            NewRetriever(store, emb, client, settings.RetrievalModel, logger),
		compressor:           NewCompressor(client, settings.CompressionModel, settings.MaxTokensCompression, logger),
		logger:               logger,
		maxTokensRetrieval:   settings.MaxTokensRetrieval,
		defaultMaxIterations: settings.MaxIterations,
	}
}

// Query answers a question about an indexed repository. maxIterations
// bounds the retrieval turns; zero or negative uses the configured
// default.
func (w *Workflow) Query(ctx context.Context, question, repoName string, maxIterations int) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, types.ErrEmptyQuery
	}
	if maxIterations <= 0 {
		maxIterations = w.defaultMaxIterations
	}

	state := NewState(question, repoName, maxIterations)

	w.logger.Info("agentic_rag_start",
		"query", question,
		"repo", repoName,
		"max_iterations", maxIterations)

	var reason StopReason
	for {
		stop, done := w.shouldStop(state)
		if done {
			reason = stop
			break
		}

		w.logger.Info("retrieve_node_start", "iteration", state.CurrentIteration)
		if err := w.retriever.Turn(ctx, state); err != nil {
			w.logger.Error("agentic_rag_error", "error", err)
			return nil, err
		}
	}

	w.logger.Info("compress_node_start", "chunks_count", len(state.RetrievedChunks))
	if _, err := w.compressor.Turn(ctx, state); err != nil {
		w.logger.Error("agentic_rag_error", "error", err)
		return nil, err
	}

	w.logger.Info("agentic_rag_complete",
		"iterations", state.CurrentIteration,
		"chunks_retrieved", len(state.RetrievedChunks),
		"total_tokens", state.TotalTokens,
		"total_cost", state.TotalCost)

	return buildResult(state, reason), nil
}

// shouldStop checks the three exit conditions in priority order:
// sufficiency, then the iteration cap, then the token budget. The budget
// only stops the loop once strictly exceeded.
func (w *Workflow) shouldStop(state *State) (StopReason, bool) {
	if state.SufficientContext {
		w.logger.Info("retrieval_complete",
			"reason", string(StopSufficientContext),
			"iterations", state.CurrentIteration)
		return StopSufficientContext, true
	}

	if state.CurrentIteration >= state.MaxIterations {
		w.logger.Info("retrieval_complete",
			"reason", string(StopMaxIterations),
			"iterations", state.CurrentIteration)
		return StopMaxIterations, true
	}

	if state.TotalTokens > w.maxTokensRetrieval {
		w.logger.Info("retrieval_complete",
			"reason", string(StopTokenLimit),
			"tokens", state.TotalTokens)
		return StopTokenLimit, true
	}

	return "", false
}

// buildResult assembles the caller-facing result with the top chunks as
// citations
func buildResult(state *State, reason StopReason) *Result {
	top := state.RetrievedChunks
	if len(top) > 5 {
		top = top[:5]
	}

	refs := make([]ChunkRef, len(top))
	for i, chunk := range top {
		refs[i] = ChunkRef{
			File:    chunk.FilePath,
			Lines:   fmt.Sprintf("%d-%d", chunk.StartLine, chunk.EndLine),
			Content: chunk.Preview(resultPreviewChars),
		}
	}

	return &Result{
		Answer: state.FinalAnswer,
		Metadata: Metadata{
			Iterations:    state.CurrentIteration,
			ChunksUsed:    len(state.RetrievedChunks),
			TokensUsed:    state.TotalTokens,
			CostUSD:       state.TotalCost,
			StopReason:    reason,
			SearchHistory: state.SearchHistory,
		},
		Chunks: refs,
	}
}
