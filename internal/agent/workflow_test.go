package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo-mcp/internal/config"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

func newTestWorkflow(client *fakeLLM, store *fakeSearchStore, settings *config.Settings) *Workflow {
	if settings == nil {
		settings = config.Default()
	}
	return New(store, &fakeEmbedder{}, client, settings, discard())
}

func TestWorkflowQuery_SufficientOnFirstIteration(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("auth query", 10),
		evalResponse(true, 10),
		compressResponse("The answer.", 20),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "auth.py", 10)},
	}}
	w := newTestWorkflow(client, store, nil)

	result, err := w.Query(context.Background(), "How does auth work?", "myrepo", 5)
	require.NoError(t, err)

	assert.Equal(t, "The answer.", result.Answer)
	assert.Equal(t, 1, result.Metadata.Iterations)
	assert.Equal(t, StopSufficientContext, result.Metadata.StopReason)
	assert.Equal(t, 1, result.Metadata.ChunksUsed)
	assert.Equal(t, 40, result.Metadata.TokensUsed)
	require.Len(t, result.Metadata.SearchHistory, 1)
	assert.Equal(t, "auth query", result.Metadata.SearchHistory[0].Query)

	// One retrieval turn (two calls) plus one compression call
	assert.Equal(t, 3, client.callCount())

	// Models come from settings
	assert.Equal(t, config.DefaultRetrievalModel, client.request(0).Model)
	assert.Equal(t, config.DefaultCompressionModel, client.request(2).Model)
	assert.Equal(t, config.DefaultMaxTokensCompression, client.request(2).MaxTokens)
}

// The iteration cap bounds the loop no matter what the evaluator says.
func TestWorkflowQuery_MaxIterationsReached(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q1", 10), evalResponse(false, 10),
		queryResponse("q2", 10), evalResponse(false, 10),
		queryResponse("q3", 10), evalResponse(false, 10),
		compressResponse("Best-effort answer.", 20),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "a.py", 1)},
		{scored("b", "b.py", 1)},
		{scored("c", "c.py", 1)},
	}}
	w := newTestWorkflow(client, store, nil)

	result, err := w.Query(context.Background(), "question", "myrepo", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Metadata.Iterations)
	assert.Equal(t, StopMaxIterations, result.Metadata.StopReason)
	assert.Equal(t, 3, store.searchCount(), "exactly three retrieval turns")
	assert.Equal(t, 7, client.callCount())
	assert.Len(t, result.Metadata.SearchHistory, 3)
	assert.Equal(t, "Best-effort answer.", result.Answer)
}

func TestWorkflowQuery_TokenBudget(t *testing.T) {
	t.Run("stops once strictly exceeded", func(t *testing.T) {
		settings := config.Default()
		settings.MaxTokensRetrieval = 69

		client := &fakeLLM{responses: []llm.Response{
			queryResponse("q1", 35), evalResponse(false, 35),
			compressResponse("answer", 10),
		}}
		store := &fakeSearchStore{results: [][]types.ScoredChunk{{scored("a", "a.py", 1)}}}
		w := newTestWorkflow(client, store, settings)

		result, err := w.Query(context.Background(), "question", "myrepo", 5)
		require.NoError(t, err)

		assert.Equal(t, 1, result.Metadata.Iterations)
		assert.Equal(t, StopTokenLimit, result.Metadata.StopReason)
	})

	t.Run("exactly at budget continues", func(t *testing.T) {
		settings := config.Default()
		settings.MaxTokensRetrieval = 70

		client := &fakeLLM{responses: []llm.Response{
			queryResponse("q1", 35), evalResponse(false, 35),
			queryResponse("q2", 1), evalResponse(false, 1),
			compressResponse("answer", 10),
		}}
		store := &fakeSearchStore{results: [][]types.ScoredChunk{
			{scored("a", "a.py", 1)},
			{scored("b", "b.py", 1)},
		}}
		w := newTestWorkflow(client, store, settings)

		result, err := w.Query(context.Background(), "question", "myrepo", 2)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Metadata.Iterations,
			"tokens equal to the budget must not stop the loop")
		assert.Equal(t, StopMaxIterations, result.Metadata.StopReason)
	})
}

// When sufficiency and the token limit hold at once, sufficiency wins.
func TestWorkflowQuery_StopReasonPriority(t *testing.T) {
	settings := config.Default()
	settings.MaxTokensRetrieval = 50

	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q1", 500), evalResponse(true, 500),
		compressResponse("answer", 10),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{{scored("a", "a.py", 1)}}}
	w := newTestWorkflow(client, store, settings)

	result, err := w.Query(context.Background(), "question", "myrepo", 5)
	require.NoError(t, err)

	assert.Equal(t, StopSufficientContext, result.Metadata.StopReason)
	assert.Equal(t, 1000, result.Metadata.TokensUsed)
}

func TestWorkflowQuery_EmptyQuestion(t *testing.T) {
	w := newTestWorkflow(&fakeLLM{}, &fakeSearchStore{}, nil)

	_, err := w.Query(context.Background(), "   ", "myrepo", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmptyQuery))
}

func TestWorkflowQuery_DefaultIterations(t *testing.T) {
	settings := config.Default()
	settings.MaxIterations = 2

	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q1", 5), evalResponse(false, 5),
		queryResponse("q2", 5), evalResponse(false, 5),
		compressResponse("answer", 10),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "a.py", 1)},
		{scored("b", "b.py", 1)},
	}}
	w := newTestWorkflow(client, store, settings)

	result, err := w.Query(context.Background(), "question", "myrepo", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Metadata.Iterations)
}

// A repository with no matching chunks still answers, without a
// compression call.
func TestWorkflowQuery_NoChunksFound(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q1", 5), evalResponse(false, 5),
	}}
	store := &fakeSearchStore{}
	w := newTestWorkflow(client, store, nil)

	result, err := w.Query(context.Background(), "question", "empty-repo", 1)
	require.NoError(t, err)

	assert.Equal(t, "No code chunks were retrieved to analyze.", result.Answer)
	assert.Equal(t, 0, result.Metadata.ChunksUsed)
	assert.Equal(t, StopMaxIterations, result.Metadata.StopReason)
	assert.Empty(t, result.Chunks)
	assert.Equal(t, 2, client.callCount(), "no compression call without chunks")
}

func TestWorkflowQuery_ResultCitesTopChunks(t *testing.T) {
	hits := make([]types.ScoredChunk, 7)
	for i := range hits {
		hits[i] = types.ScoredChunk{
			ID:        fmt.Sprintf("id-%d", i),
			Content:   strings.Repeat("c", 300),
			FilePath:  fmt.Sprintf("file_%d.py", i),
			StartLine: 10,
			EndLine:   15,
			Language:  "python",
			Score:     0.9,
		}
	}

	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q1", 5), evalResponse(true, 5),
		compressResponse("answer", 10),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{hits}}
	w := newTestWorkflow(client, store, nil)

	result, err := w.Query(context.Background(), "question", "myrepo", 5)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Metadata.ChunksUsed)
	require.Len(t, result.Chunks, 5, "result cites at most five chunks")

	first := result.Chunks[0]
	assert.Equal(t, "file_0.py", first.File)
	assert.Equal(t, "10-15", first.Lines)
	assert.True(t, strings.HasSuffix(first.Content, "..."))
	assert.Len(t, first.Content, 203)
}

func TestWorkflowQuery_RetrieverFailureAborts(t *testing.T) {
	client := &fakeLLM{err: types.Transient("chat_completion", fmt.Errorf("api down"))}
	w := newTestWorkflow(client, &fakeSearchStore{}, nil)

	_, err := w.Query(context.Background(), "question", "myrepo", 5)
	require.Error(t, err)
	assert.True(t, types.IsTransient(err))
}
