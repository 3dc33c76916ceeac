package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

func newTestRetriever(client *fakeLLM, store *fakeSearchStore, emb *fakeEmbedder) *Retriever {
	return NewRetriever(store, emb, client, "test-model", discard())
}

func TestRetrieverTurn_FirstIteration(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("  auth middleware session  \n", 15),
		evalResponse(false, 20),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "auth.py", 10), scored("b", "session.py", 1)},
	}}
	emb := &fakeEmbedder{}
	r := newTestRetriever(client, store, emb)

	state := NewState("How does auth work?", "myrepo", 5)
	require.NoError(t, r.Turn(context.Background(), state))

	// Query text is trimmed before use
	require.Len(t, state.SearchHistory, 1)
	assert.Equal(t, SearchEntry{
		Iteration:   0,
		Query:       "auth middleware session",
		ChunksFound: 2,
	}, state.SearchHistory[0])

	require.Len(t, state.RetrievedChunks, 2)
	assert.Equal(t, 1, state.CurrentIteration)
	assert.False(t, state.SufficientContext)
	assert.Equal(t, 35, state.TotalTokens)
	assert.InDelta(t, 0.00035, state.TotalCost, 1e-9)

	// Query generation call
	require.Equal(t, 2, client.callCount())
	gen := client.request(0)
	assert.Equal(t, "test-model", gen.Model)
	assert.InDelta(t, 0.3, float64(gen.Temperature), 1e-6)
	assert.Contains(t, systemContent(gen), "expert code search assistant")
	assert.Contains(t, userContent(gen), "User Question: How does auth work?")
	assert.Contains(t, userContent(gen), "Previous searches: None")

	// Evaluation call sees the accumulated chunks
	eval := client.request(1)
	assert.InDelta(t, 0.0, float64(eval.Temperature), 1e-6)
	assert.Contains(t, userContent(eval), "Total chunks retrieved: 2")
	assert.Contains(t, userContent(eval), "Search iterations completed: 1")
	assert.Contains(t, userContent(eval), `"file": "auth.py"`)

	// Vector search parameters
	require.Equal(t, 1, store.searchCount())
	assert.Equal(t, searchCall{repoName: "myrepo", k: 20}, store.searches[0])
}

func TestRetrieverTurn_DedupKeepsFirstSeen(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("second query", 10),
		evalResponse(false, 10),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "auth.py", 10), scored("c", "token.py", 3)},
	}}
	r := newTestRetriever(client, store, &fakeEmbedder{})

	state := NewState("question", "myrepo", 5)
	state.CurrentIteration = 1
	state.SearchHistory = []SearchEntry{{Iteration: 0, Query: "first query", ChunksFound: 1}}
	state.RetrievedChunks = []types.ScoredChunk{scored("a", "auth.py", 10)}

	require.NoError(t, r.Turn(context.Background(), state))

	// "a" is already held, only "c" is appended
	require.Len(t, state.RetrievedChunks, 2)
	assert.Equal(t, "a", state.RetrievedChunks[0].ID)
	assert.Equal(t, "c", state.RetrievedChunks[1].ID)

	// History records the raw hit count, before deduplication
	require.Len(t, state.SearchHistory, 2)
	assert.Equal(t, 2, state.SearchHistory[1].ChunksFound)

	// Prior searches are shown to the query generator as JSON
	gen := client.request(0)
	assert.Contains(t, userContent(gen), `"query": "first query"`)
	assert.Contains(t, userContent(gen), `"chunks_found": 1`)
}

func TestRetrieverTurn_EvalParseFallback(t *testing.T) {
	t.Run("early iteration judges insufficient", func(t *testing.T) {
		client := &fakeLLM{responses: []llm.Response{
			queryResponse("q", 5),
			textResponse("this is not json", 5),
		}}
		store := &fakeSearchStore{results: [][]types.ScoredChunk{{scored("a", "a.py", 1)}}}
		r := newTestRetriever(client, store, &fakeEmbedder{})

		state := NewState("question", "myrepo", 5)
		require.NoError(t, r.Turn(context.Background(), state))

		assert.False(t, state.SufficientContext)
		assert.Equal(t, 1, state.CurrentIteration)
		// Tokens from the unparseable call still count against the budget
		assert.Equal(t, 10, state.TotalTokens)
	})

	t.Run("third iteration judges sufficient", func(t *testing.T) {
		client := &fakeLLM{responses: []llm.Response{
			queryResponse("q", 5),
			textResponse("still not json", 5),
		}}
		store := &fakeSearchStore{results: [][]types.ScoredChunk{{scored("a", "a.py", 1)}}}
		r := newTestRetriever(client, store, &fakeEmbedder{})

		state := NewState("question", "myrepo", 5)
		state.CurrentIteration = 2

		require.NoError(t, r.Turn(context.Background(), state))

		assert.True(t, state.SufficientContext)
		assert.Equal(t, 3, state.CurrentIteration)
	})
}

func TestRetrieverTurn_QueryGenerationFailureAborts(t *testing.T) {
	client := &fakeLLM{err: types.Transient("chat_completion", fmt.Errorf("rate limited"))}
	store := &fakeSearchStore{}
	r := newTestRetriever(client, store, &fakeEmbedder{})

	state := NewState("question", "myrepo", 5)
	err := r.Turn(context.Background(), state)

	require.Error(t, err)
	assert.True(t, types.IsTransient(err))
	assert.Empty(t, state.SearchHistory)
	assert.Equal(t, 0, state.CurrentIteration)
}

func TestRetrieverTurn_EmbedFailureAborts(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{queryResponse("q", 5)}}
	store := &fakeSearchStore{}
	emb := &fakeEmbedder{embedErr: types.Transient("embed_single", fmt.Errorf("api down"))}
	r := newTestRetriever(client, store, emb)

	state := NewState("question", "myrepo", 5)
	err := r.Turn(context.Background(), state)

	require.Error(t, err)
	assert.True(t, types.IsTransient(err))
	assert.Empty(t, state.SearchHistory)
	assert.Equal(t, 0, store.searchCount())
}

func TestRetrieverTurn_SearchFailureAborts(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{queryResponse("q", 5)}}
	store := &fakeSearchStore{searchErr: types.Store("search", fmt.Errorf("db closed"))}
	r := newTestRetriever(client, store, &fakeEmbedder{})

	state := NewState("question", "myrepo", 5)
	err := r.Turn(context.Background(), state)

	require.Error(t, err)
	assert.True(t, types.IsStore(err))
	assert.Empty(t, state.SearchHistory)
}

func TestRetriever_CachesQueryEmbeddings(t *testing.T) {
	client := &fakeLLM{responses: []llm.Response{
		queryResponse("identical query", 5),
		evalResponse(false, 5),
		queryResponse("identical query", 5),
		evalResponse(false, 5),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{
		{scored("a", "a.py", 1)},
		{scored("b", "b.py", 1)},
	}}
	emb := &fakeEmbedder{}
	r := newTestRetriever(client, store, emb)

	state := NewState("question", "myrepo", 5)
	require.NoError(t, r.Turn(context.Background(), state))
	require.NoError(t, r.Turn(context.Background(), state))

	assert.Equal(t, 2, store.searchCount())
	assert.Equal(t, 1, emb.singleCallCount(),
		"repeated query text should reuse the cached embedding")
}

// Only the newest chunks get summarized for evaluation.
func TestRetrieverTurn_EvalWindowsLastTen(t *testing.T) {
	hits := make([]types.ScoredChunk, 12)
	for i := range hits {
		hits[i] = scored(fmt.Sprintf("id-%02d", i), fmt.Sprintf("file_%02d.py", i), i*10+1)
	}

	client := &fakeLLM{responses: []llm.Response{
		queryResponse("q", 5),
		evalResponse(false, 5),
	}}
	store := &fakeSearchStore{results: [][]types.ScoredChunk{hits}}
	r := newTestRetriever(client, store, &fakeEmbedder{})

	state := NewState("question", "myrepo", 5)
	require.NoError(t, r.Turn(context.Background(), state))

	eval := userContent(client.request(1))
	assert.NotContains(t, eval, "file_00.py")
	assert.NotContains(t, eval, "file_01.py")
	assert.Contains(t, eval, "file_02.py")
	assert.Contains(t, eval, "file_11.py")
	assert.Contains(t, eval, "Total chunks retrieved: 12")
}
