package agent

import "github.com/askrepo/askrepo-mcp/pkg/types"

// SearchEntry records one retrieval turn's query and its raw hit count,
// before cross-turn deduplication.
type SearchEntry struct {
	Iteration   int    `json:"iteration"`
	Query       string `json:"query"`
	ChunksFound int    `json:"chunks_found"`
}

// State is the single mutable record threaded through a question-answering
// run. The workflow owns it; each turn receives it, mutates it, and returns.
// It is never shared across goroutines.
type State struct {
	Query         string
	RepoName      string
	MaxIterations int

	CurrentIteration  int
	SearchHistory     []SearchEntry
	RetrievedChunks   []types.ScoredChunk
	TotalTokens       int
	TotalCost         float64
	SufficientContext bool
	FinalAnswer       string
}

// NewState initializes run state for a question against one repository
func NewState(query, repoName string, maxIterations int) *State {
	return &State{
		Query:           query,
		RepoName:        repoName,
		MaxIterations:   maxIterations,
		SearchHistory:   []SearchEntry{},
		RetrievedChunks: []types.ScoredChunk{},
	}
}
