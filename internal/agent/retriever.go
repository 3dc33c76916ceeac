package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/askrepo/askrepo-mcp/internal/embedder"
	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/internal/vectorstore"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

const (
	// searchK is how many hits each vector search requests. Cross-turn
	// deduplication trims the working set afterwards.
	searchK = 20

	// evalChunkWindow caps how many of the newest chunks are summarized
	// for the sufficiency evaluation prompt.
	evalChunkWindow = 10

	// evalPreviewChars caps each chunk preview in the evaluation prompt
	evalPreviewChars = 200

	// queryEmbeddingCacheSize bounds the LRU of query-text embeddings.
	// Follow-up questions often regenerate identical search queries.
	queryEmbeddingCacheSize = 256

	queryGenTemperature = 0.3
	evalTemperature     = 0.0
)

const queryGenSystemPrompt = `You are an expert code search assistant. Generate search queries to find relevant code.

Your task:
1. Analyze the user's question
2. Consider what code/files would help answer it
3. Generate a search query optimized for semantic similarity

Guidelines:
- Use technical terms and specific function/class names if mentioned
- Include programming concepts related to the question
- Be specific but not overly narrow
- Consider synonyms and related terms`

const queryGenUserTemplate = `User Question: %s
Repository: %s

Previous searches: %s

Generate a search query to find relevant code in the codebase.
Do NOT include repository names, site: operators, or other search engine syntax.
Just include relevant keywords, function names, and technical terms.
Return only the query text, nothing else.`

const evalSystemPrompt = `You are evaluating whether the retrieved code chunks provide sufficient context to answer a question.

Evaluate based on:
1. **Coverage**: Do the chunks cover all aspects of the question?
2. **Relevance**: Are the chunks directly related to what's being asked?
3. **Completeness**: Is there enough implementation detail?
4. **Gaps**: What important information might be missing?

Return a JSON object with:
{
    "sufficient": true/false,
    "reasoning": "Brief explanation",
    "missing_aspects": ["list", "of", "missing", "topics"],
    "confidence": 0.0-1.0
}`

const evalUserTemplate = `Question: %s

Retrieved chunks: %s

Total chunks retrieved: %d
Search iterations completed: %d

Evaluate if we have sufficient context to answer the question.`

// Evaluation is the retriever's structured self-assessment of whether the
// accumulated chunks can answer the question
type Evaluation struct {
	Sufficient     bool     `json:"sufficient"`
	Reasoning      string   `json:"reasoning"`
	MissingAspects []string `json:"missing_aspects"`
	Confidence     float64  `json:"confidence"`
}

// Retriever runs one search-and-evaluate turn: generate a search query,
// retrieve chunks, merge them into state, then judge sufficiency.
type Retriever struct {
	store      vectorstore.Store
	embedder   embedder.Embedder
	llm        llm.Client
	model      string
	queryCache *lru.Cache[string, []float32]
	logger     *slog.Logger
}

// NewRetriever creates a Retriever that answers with the given chat model
func NewRetriever(store vectorstore.Store, emb embedder.Embedder, client llm.Client, model string, logger *slog.Logger) *Retriever {
	cache, err := lru.New[string, []float32](queryEmbeddingCacheSize)
	if err != nil {
		// Only possible with a non-positive size
		panic(fmt.Sprintf("failed to create query embedding cache: %v", err))
	}

	return &Retriever{
		store:      store,
		embedder:   emb,
		llm:        client,
		model:      model,
		queryCache: cache,
		logger:     logger,
	}
}

// Turn executes one retrieval iteration against the state. Remote failures
// (query generation, embedding, search, evaluation) abort the turn with an
// error; an unparseable evaluation does not, it falls back to a heuristic.
func (r *Retriever) Turn(ctx context.Context, state *State) error {
	searchQuery, err := r.generateSearchQuery(ctx, state)
	if err != nil {
		return err
	}

	chunks, err := r.searchChunks(ctx, searchQuery, state.RepoName)
	if err != nil {
		return err
	}

	state.SearchHistory = append(state.SearchHistory, SearchEntry{
		Iteration:   state.CurrentIteration,
		Query:       searchQuery,
		ChunksFound: len(chunks),
	})

	// Merge, keeping the first-seen copy of each chunk id
	seen := make(map[string]bool, len(state.RetrievedChunks))
	for _, chunk := range state.RetrievedChunks {
		seen[chunk.ID] = true
	}
	for _, chunk := range chunks {
		if seen[chunk.ID] {
			continue
		}
		seen[chunk.ID] = true
		state.RetrievedChunks = append(state.RetrievedChunks, chunk)
	}

	evaluation, err := r.selfEvaluate(ctx, state)
	if err != nil {
		return err
	}

	state.SufficientContext = evaluation.Sufficient
	state.CurrentIteration++

	r.logger.Info("retriever_evaluation",
		"iteration", state.CurrentIteration,
		"sufficient", evaluation.Sufficient,
		"reasoning", evaluation.Reasoning)

	return nil
}

// generateSearchQuery asks the chat model for a semantic search query,
// feeding it the question and every previous search so it explores new
// ground each iteration
func (r *Retriever) generateSearchQuery(ctx context.Context, state *State) (string, error) {
	history := "None"
	if len(state.SearchHistory) > 0 {
		data, _ := json.MarshalIndent(state.SearchHistory, "", "  ")
		history = string(data)
	}

	resp, err := r.llm.Complete(ctx, llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: queryGenSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(queryGenUserTemplate, state.Query, state.RepoName, history)},
		},
		Temperature: queryGenTemperature,
	})
	if err != nil {
		return "", err
	}

	state.TotalTokens += resp.TotalTokens
	state.TotalCost += resp.CostUSD

	return strings.TrimSpace(resp.Content), nil
}

// searchChunks embeds the query and runs the vector search
func (r *Retriever) searchChunks(ctx context.Context, query, repoName string) ([]types.ScoredChunk, error) {
	r.logger.Info("searching_chunks", "query", query, "repo", repoName, "k", searchK)

	vector, ok := r.queryCache.Get(query)
	if !ok {
		result, err := r.embedder.EmbedSingle(ctx, query)
		if err != nil {
			return nil, err
		}
		vector = result.Embedding
		r.queryCache.Add(query, vector)
	}

	return r.store.Search(ctx, vector, repoName, searchK)
}

// chunkSummary is the per-chunk shape shown to the evaluation prompt
type chunkSummary struct {
	File    string `json:"file"`
	Lines   string `json:"lines"`
	Preview string `json:"preview"`
}

// selfEvaluate asks the chat model whether the accumulated chunks suffice.
// The call itself failing is an error; the reply failing to parse is not,
// the fallback judges context sufficient once two iterations are done.
func (r *Retriever) selfEvaluate(ctx context.Context, state *State) (*Evaluation, error) {
	window := state.RetrievedChunks
	if len(window) > evalChunkWindow {
		window = window[len(window)-evalChunkWindow:]
	}

	summaries := make([]chunkSummary, len(window))
	for i, chunk := range window {
		summaries[i] = chunkSummary{
			File:    chunk.FilePath,
			Lines:   fmt.Sprintf("%d-%d", chunk.StartLine, chunk.EndLine),
			Preview: chunk.Preview(evalPreviewChars),
		}
	}
	summaryJSON, _ := json.MarshalIndent(summaries, "", "  ")

	resp, err := r.llm.Complete(ctx, llm.Request{
		Model: r.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: evalSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(evalUserTemplate,
				state.Query, summaryJSON, len(state.RetrievedChunks), state.CurrentIteration+1)},
		},
		Temperature: evalTemperature,
	})
	if err != nil {
		return nil, err
	}

	state.TotalTokens += resp.TotalTokens
	state.TotalCost += resp.CostUSD

	var evaluation Evaluation
	if err := json.Unmarshal([]byte(resp.Content), &evaluation); err != nil {
		r.logger.Error("evaluation_parse_error", "response", resp.Content)
		return &Evaluation{
			Sufficient:     state.CurrentIteration >= 2,
			Reasoning:      "Failed to parse evaluation",
			MissingAspects: []string{},
			Confidence:     0.5,
		}, nil
	}

	return &evaluation, nil
}
