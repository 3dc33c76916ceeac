package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo-mcp/internal/tokenizer"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// counter is the deterministic byte-based counter used throughout these
// tests: 1 token per 4 bytes.
var counter = tokenizer.Heuristic{}

func TestNew(t *testing.T) {
	c := New(counter, 0, -1)
	require.NotNil(t, c)
	assert.Equal(t, DefaultChunkSize, c.chunkSize)
	assert.Equal(t, DefaultOverlap, c.overlap)

	c = New(counter, 256, 0)
	assert.Equal(t, 256, c.chunkSize)
	assert.Equal(t, 0, c.overlap)
}

func TestKnownLanguage(t *testing.T) {
	assert.True(t, KnownLanguage("python"))
	assert.True(t, KnownLanguage("go"))
	assert.True(t, KnownLanguage("typescript"))
	assert.False(t, KnownLanguage(""))
	assert.False(t, KnownLanguage("cobol"))
}

func TestChunk_EmptyContent(t *testing.T) {
	c := New(counter, 1280, 50)
	assert.Empty(t, c.Chunk("", "python"))
}

func TestChunk_TwoPythonFunctions(t *testing.T) {
	content := "def first():\n" +
		"    return 1\n" +
		"\n" +
		"\n" +
		"def second():\n" +
		"    return 2"

	c := New(counter, 1280, 0)
	chunks := c.Chunk(content, "python")
	require.Len(t, chunks, 2)

	assert.Contains(t, chunks[0].Content, "def first")
	assert.Contains(t, chunks[1].Content, "def second")
	assert.NotContains(t, chunks[0].Content, "def second")

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, 2, chunk.TotalChunks)
		assert.Equal(t, types.BoundarySemantic, chunk.Boundary)
		assert.Equal(t, "python", chunk.Language)
	}

	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 6, chunks[1].EndLine)
}

func TestChunk_TokenSplit(t *testing.T) {
	// 6 lines of 7 bytes each: 2 tokens per line with the newline, 11 for
	// the whole file. A 4-token budget forces greedy 2-line splits.
	line := strings.Repeat("a", 7)
	content := strings.Join([]string{line, line, line, line, line, line}, "\n")

	c := New(counter, 4, 0)
	chunks := c.Chunk(content, "unknown")
	require.Len(t, chunks, 3)

	wantLines := [][2]int{{1, 2}, {3, 4}, {5, 6}}
	wantChars := [][2]int{{0, 15}, {16, 31}, {32, 47}}
	for i, chunk := range chunks {
		assert.Equal(t, types.BoundaryTokenSplit, chunk.Boundary)
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, 3, chunk.TotalChunks)
		assert.Equal(t, line+"\n"+line, chunk.Content)
		assert.Equal(t, wantLines[i][0], chunk.StartLine)
		assert.Equal(t, wantLines[i][1], chunk.EndLine)
		assert.Equal(t, wantChars[i][0], chunk.StartChar)
		assert.Equal(t, wantChars[i][1], chunk.EndChar)
	}
}

func TestChunk_OversizedLineBecomesOwnChunk(t *testing.T) {
	short := strings.Repeat("a", 7)
	long := strings.Repeat("b", 40) // 10 tokens with the newline

	c := New(counter, 4, 0)
	chunks := c.Chunk(strings.Join([]string{short, long, short}, "\n"), "unknown")
	require.Len(t, chunks, 3)

	assert.Equal(t, short, chunks[0].Content)
	assert.Equal(t, long, chunks[1].Content)
	assert.Equal(t, short, chunks[2].Content)
	assert.Greater(t, chunks[1].TokenCount, 4)
}

func TestChunk_CoversContent(t *testing.T) {
	// With overlap disabled, joining chunk contents reconstructs the file
	// regardless of how sections were split.
	content := "import os\n" +
		"\n" +
		"@decorator\n" +
		"def handler(request):\n" +
		"    body = request.read()\n" +
		"    return process(body)\n" +
		"\n" +
		"class Worker:\n" +
		"    def run(self):\n" +
		"        while True:\n" +
		"            self.step()\n"

	for _, budget := range []int{4, 10, 1280} {
		c := New(counter, budget, 0)
		chunks := c.Chunk(content, "python")
		require.NotEmpty(t, chunks)

		contents := make([]string, len(chunks))
		for i, chunk := range chunks {
			assert.Equal(t, i, chunk.ChunkIndex)
			assert.Equal(t, len(chunks), chunk.TotalChunks)
			assert.LessOrEqual(t, chunk.StartLine, chunk.EndLine)
			assert.Equal(t, counter.Count(chunk.Content), chunk.TokenCount)
			contents[i] = chunk.Content
		}
		assert.Equal(t, content, strings.Join(contents, "\n"), "budget %d", budget)
	}
}

func TestChunk_SectionExactlyAtBudget(t *testing.T) {
	content := strings.Repeat("a", 8) // 2 tokens

	c := New(counter, 2, 0)
	chunks := c.Chunk(content, "unknown")
	require.Len(t, chunks, 1)
	assert.Equal(t, types.BoundarySemantic, chunks[0].Boundary)

	c = New(counter, 1, 0)
	chunks = c.Chunk(content, "unknown")
	require.Len(t, chunks, 1)
	assert.Equal(t, types.BoundaryTokenSplit, chunks[0].Boundary)
}

func TestChunk_OverlapPadsNeighbors(t *testing.T) {
	line := strings.Repeat("a", 7)
	content := strings.Join([]string{line, line, line, line}, "\n")

	c := New(counter, 4, 50)
	chunks := c.Chunk(content, "unknown")
	require.Len(t, chunks, 2)

	// Both chunks absorb the neighbor's lines and end up spanning the file.
	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, content, chunks[1].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, 1, chunks[1].StartLine)
	assert.Equal(t, 4, chunks[1].EndLine)

	// Token counts track the padded content.
	assert.Equal(t, counter.Count(content), chunks[0].TokenCount)
	assert.Equal(t, counter.Count(content), chunks[1].TokenCount)

	// Character offsets keep their pre-overlap extents.
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 15, chunks[0].EndChar)
	assert.Equal(t, 16, chunks[1].StartChar)
	assert.Equal(t, 31, chunks[1].EndChar)
}

func TestChunk_OverlapSkippedOverBudget(t *testing.T) {
	line := strings.Repeat("a", 7)
	content := strings.Join([]string{line, line, line, line}, "\n")

	// The absorbed neighbor lines cost 3 tokens, over a 1-token budget.
	c := New(counter, 4, 1)
	chunks := c.Chunk(content, "unknown")
	require.Len(t, chunks, 2)

	assert.Equal(t, line+"\n"+line, chunks[0].Content)
	assert.Equal(t, line+"\n"+line, chunks[1].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 4, chunks[1].EndLine)
}

func TestChunk_SingleChunkNoOverlap(t *testing.T) {
	c := New(counter, 1280, 50)
	chunks := c.Chunk("def only():\n    pass", "python")
	require.Len(t, chunks, 1)
	assert.Equal(t, "def only():\n    pass", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
}

func TestFindBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		language string
		want     []int
	}{
		{
			name:     "python definitions",
			lines:    []string{"import os", "", "def f():", "    pass", "class C:", "    def m(self):", "        pass"},
			language: "python",
			want:     []int{0, 2, 4, 5, 7},
		},
		{
			name:     "python decorator",
			lines:    []string{"@cached", "def f():", "    pass"},
			language: "python",
			want:     []int{0, 1, 3},
		},
		{
			name:     "go declarations",
			lines:    []string{"package main", "", "type T struct{}", "", "func main() {", "}"},
			language: "go",
			want:     []int{0, 2, 4, 6},
		},
		{
			name:     "typescript interface",
			lines:    []string{"interface Shape {", "  area(): number", "}", "export class Circle {}"},
			language: "typescript",
			want:     []int{0, 3, 4},
		},
		{
			name:     "unknown language",
			lines:    []string{"some", "plain", "text"},
			language: "markdown",
			want:     []int{0, 3},
		},
		{
			name:     "boundary on first line deduplicated",
			lines:    []string{"def f():", "    pass"},
			language: "python",
			want:     []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findBoundaries(tt.lines, tt.language))
		})
	}
}

func TestChunk_ID(t *testing.T) {
	c := New(counter, 1280, 0)
	chunks := c.Chunk("def f():\n    return 1", "python")
	require.Len(t, chunks, 1)

	id := chunks[0].ID("myrepo", "src/app.py")
	parts := strings.Split(id, ":")
	require.Len(t, parts, 4)
	assert.Equal(t, "myrepo", parts[0])
	assert.Equal(t, "src/app.py", parts[1])
	assert.Equal(t, "0", parts[2])
	assert.Len(t, parts[3], 16)

	// Same content at the same index yields the same identifier.
	again := c.Chunk("def f():\n    return 1", "python")
	assert.Equal(t, id, again[0].ID("myrepo", "src/app.py"))
}
