package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/askrepo/askrepo-mcp/internal/llm"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

const (
	// maxChunksPerFile caps how many chunks of one file enter the
	// compression context
	maxChunksPerFile = 5

	// maxContextChars caps the compression context, roughly 10k tokens
	maxContextChars = 40000

	truncationNotice = "\n\n[... context truncated ...]"

	compressTemperature = 0.0

	// emptyContextAnswer is returned without an LLM call when no chunks
	// were retrieved
	emptyContextAnswer = "No code chunks were retrieved to analyze."
)

const compressSystemPrompt = `You are an expert code analyst. Compress the retrieved code into a concise, actionable answer.

Your task:
1. Answer the user's question directly based on the code
2. Reference specific files and line numbers
3. Highlight key insights and patterns
4. Keep the response under 4KB while preserving critical details

Format your response as JSON:
{
    "answer": "Your comprehensive answer with citations like file.py:123",
    "insights": ["Key insight 1", "Key insight 2", ...],
    "files_referenced": ["file1.py", "file2.py", ...],
    "needs_clarification": false,
    "clarification_reason": "Optional: what additional info would help"
}`

const compressUserTemplate = `Question: %s

Retrieved Code Context:
%s

Provide a comprehensive answer based on this code.`

// Compression is the compressor's output: either the model's validated
// structured reply, or a raw-text fallback with Fallback set when the
// reply could not be parsed.
type Compression struct {
	Answer              string   `json:"answer"`
	Insights            []string `json:"insights"`
	FilesReferenced     []string `json:"files_referenced"`
	NeedsClarification  bool     `json:"needs_clarification"`
	ClarificationReason string   `json:"clarification_reason,omitempty"`

	// Fallback marks a raw-text result whose structured parse failed
	Fallback bool `json:"-"`
}

// fileGroup holds one file's chunks in retrieval order of first appearance
type fileGroup struct {
	path   string
	chunks []types.ScoredChunk
}

// Compressor condenses the retrieved chunks into a final answer with
// citations
type Compressor struct {
	llm       llm.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewCompressor creates a Compressor. maxTokens caps each completion;
// zero means uncapped.
func NewCompressor(client llm.Client, model string, maxTokens int, logger *slog.Logger) *Compressor {
	return &Compressor{
		llm:       client,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Turn produces the final answer from the state's retrieved chunks and
// records it on the state. With no chunks it answers immediately without
// calling the model.
func (c *Compressor) Turn(ctx context.Context, state *State) (*Compression, error) {
	if len(state.RetrievedChunks) == 0 {
		state.FinalAnswer = emptyContextAnswer
		return &Compression{
			Answer:          emptyContextAnswer,
			Insights:        []string{},
			FilesReferenced: []string{},
		}, nil
	}

	groups := groupChunksByFile(state.RetrievedChunks)
	contextText := buildContext(groups)

	resp, err := c.llm.Complete(ctx, llm.Request{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: compressSystemPrompt},
			{Role: llm.RoleUser, Content: fmt.Sprintf(compressUserTemplate, state.Query, contextText)},
		},
		Temperature: compressTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	state.TotalTokens += resp.TotalTokens
	state.TotalCost += resp.CostUSD

	result := c.parseCompression(resp.Content, groups)
	state.FinalAnswer = result.Answer

	if !result.Fallback {
		c.logger.Info("compression_complete",
			"answer_length", len(result.Answer),
			"insights_count", len(result.Insights),
			"tokens", resp.TotalTokens)
	}

	return result, nil
}

// parseCompression decodes the model reply, falling back to the raw text
// when it is not valid JSON or lacks an answer
func (c *Compressor) parseCompression(content string, groups []fileGroup) *Compression {
	var compression Compression
	if err := json.Unmarshal([]byte(content), &compression); err == nil && compression.Answer != "" {
		if compression.Insights == nil {
			compression.Insights = []string{}
		}
		if compression.FilesReferenced == nil {
			compression.FilesReferenced = []string{}
		}
		return &compression
	}

	c.logger.Warn("compression_json_parse_failed")

	files := make([]string, len(groups))
	for i, group := range groups {
		files[i] = group.path
	}

	return &Compression{
		Answer:          content,
		Insights:        []string{},
		FilesReferenced: files,
		Fallback:        true,
	}
}

// groupChunksByFile buckets chunks by file, keeping files in order of
// first retrieval and sorting each file's chunks by start line
func groupChunksByFile(chunks []types.ScoredChunk) []fileGroup {
	index := make(map[string]int)
	var groups []fileGroup

	for _, chunk := range chunks {
		i, ok := index[chunk.FilePath]
		if !ok {
			i = len(groups)
			index[chunk.FilePath] = i
			groups = append(groups, fileGroup{path: chunk.FilePath})
		}
		groups[i].chunks = append(groups[i].chunks, chunk)
	}

	for i := range groups {
		sort.SliceStable(groups[i].chunks, func(a, b int) bool {
			return groups[i].chunks[a].StartLine < groups[i].chunks[b].StartLine
		})
	}

	return groups
}

// buildContext renders the grouped chunks as a file-sectioned prompt,
// truncated at maxContextChars
func buildContext(groups []fileGroup) string {
	var parts []string
	for _, group := range groups {
		parts = append(parts, fmt.Sprintf("\n=== %s ===", group.path))
		chunks := group.chunks
		if len(chunks) > maxChunksPerFile {
			chunks = chunks[:maxChunksPerFile]
		}
		for _, chunk := range chunks {
			parts = append(parts, fmt.Sprintf("\nLines %d-%d:", chunk.StartLine, chunk.EndLine))
			parts = append(parts, chunk.Content)
		}
	}

	context := strings.Join(parts, "\n")
	if len(context) > maxContextChars {
		context = context[:maxContextChars] + truncationNotice
	}
	return context
}
