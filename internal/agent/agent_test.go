package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// fakeLLM returns scripted responses in order and records every request
type fakeLLM struct {
	mu        sync.Mutex
	responses []llm.Response
	requests  []llm.Request
	err       error
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llm.Response{Content: "ok", TotalTokens: 1}, nil
	}

	resp := f.responses[0]
	f.responses = f.responses[1:]
	return &resp, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeLLM) request(i int) llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func userContent(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			return m.Content
		}
	}
	return ""
}

func systemContent(req llm.Request) string {
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			return m.Content
		}
	}
	return ""
}

// queryResponse scripts one query-generation reply
func queryResponse(query string, tokens int) llm.Response {
	return llm.Response{Content: query, TotalTokens: tokens, CostUSD: float64(tokens) / 100000}
}

// textResponse scripts a reply that is not valid JSON
func textResponse(content string, tokens int) llm.Response {
	return llm.Response{Content: content, TotalTokens: tokens, CostUSD: float64(tokens) / 100000}
}

// evalResponse scripts one sufficiency evaluation reply
func evalResponse(sufficient bool, tokens int) llm.Response {
	return llm.Response{
		Content: fmt.Sprintf(
			`{"sufficient": %t, "reasoning": "test reasoning", "missing_aspects": [], "confidence": 0.9}`,
			sufficient),
		TotalTokens: tokens,
		CostUSD:     float64(tokens) / 100000,
	}
}

// compressResponse scripts one structured compression reply
func compressResponse(answer string, tokens int) llm.Response {
	return llm.Response{
		Content: fmt.Sprintf(
			`{"answer": %q, "insights": ["insight one"], "files_referenced": ["main.py"], "needs_clarification": false}`,
			answer),
		TotalTokens: tokens,
		CostUSD:     float64(tokens) / 100000,
	}
}

// fakeSearchStore scripts vector search results per call and records calls
type fakeSearchStore struct {
	mu        sync.Mutex
	results   [][]types.ScoredChunk
	searches  []searchCall
	searchErr error
}

type searchCall struct {
	repoName string
	k        int
}

func (f *fakeSearchStore) Search(ctx context.Context, queryVector []float32, repoName string, k int) ([]types.ScoredChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searches = append(f.searches, searchCall{repoName: repoName, k: k})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.results) == 0 {
		return nil, nil
	}

	result := f.results[0]
	f.results = f.results[1:]
	return result, nil
}

func (f *fakeSearchStore) Upsert(ctx context.Context, records []vectorstore.Record) (int, error) {
	return 0, nil
}

func (f *fakeSearchStore) DeleteRepo(ctx context.Context, repoName string) (int, error) {
	return 0, nil
}

func (f *fakeSearchStore) RepoStats(ctx context.Context, repoName string) (*vectorstore.RepoStats, error) {
	return &vectorstore.RepoStats{RepoName: repoName}, nil
}

func (f *fakeSearchStore) Close() error { return nil }

func (f *fakeSearchStore) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

// fakeEmbedder counts EmbedSingle calls for cache assertions
type fakeEmbedder struct {
	mu          sync.Mutex
	singleCalls int
	embedErr    error
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([]*embedder.Result, error) {
	results := make([]*embedder.Result, len(texts))
	for i, text := range texts {
		r, err := f.EmbedSingle(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) (*embedder.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.singleCalls++
	return &embedder.Result{
		Text:       text,
		Embedding:  []float32{0.1, 0.2, 0.3},
		Model:      "test-embed-v1",
		TokenCount: len(text) / 4,
	}, nil
}

func (f *fakeEmbedder) Model() string { return "test-embed-v1" }

func (f *fakeEmbedder) TotalTokensUsed() int { return 0 }

func (f *fakeEmbedder) Usage() embedder.UsageStats {
	return embedder.UsageStats{Model: "test-embed-v1"}
}

func (f *fakeEmbedder) singleCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.singleCalls
}

func scored(id, file string, startLine int) types.ScoredChunk {
	return types.ScoredChunk{
		ID:        id,
		Content:   "content of " + id,
		FilePath:  file,
		StartLine: startLine,
		EndLine:   startLine + 5,
		Language:  "python",
		Score:     0.9,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewState(t *testing.T) {
	state := NewState("how does auth work", "myrepo", 5)

	assert.Equal(t, "how does auth work", state.Query)
	assert.Equal(t, "myrepo", state.RepoName)
	assert.Equal(t, 5, state.MaxIterations)
	assert.Equal(t, 0, state.CurrentIteration)
	assert.Empty(t, state.SearchHistory)
	assert.Empty(t, state.RetrievedChunks)
	assert.False(t, state.SufficientContext)
	assert.Equal(t, "", state.FinalAnswer)
}
