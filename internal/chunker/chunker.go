package chunker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/askrepo/askrepo-mcp/internal/tokenizer"
	"github.com/askrepo/askrepo-mcp/pkg/types"
)

const (
	// DefaultChunkSize is the default token budget per chunk
	DefaultChunkSize = 1280

	// DefaultOverlap is the default token budget for cross-chunk overlap
	DefaultOverlap = 50
)

// boundaryPatterns maps a language to the definition-start patterns that
// mark semantic boundaries. Patterns match against the trimmed line.
var boundaryPatterns = map[string][]*regexp.Regexp{
	"python": {
		regexp.MustCompile(`^class\s+\w+`),
		regexp.MustCompile(`^def\s+\w+`),
		regexp.MustCompile(`^async\s+def\s+\w+`),
		regexp.MustCompile(`^@\w+`),
	},
	"javascript": {
		regexp.MustCompile(`^function\s+\w+`),
		regexp.MustCompile(`^const\s+\w+\s*=\s*function`),
		regexp.MustCompile(`^const\s+\w+\s*=\s*\(`),
		regexp.MustCompile(`^class\s+\w+`),
		regexp.MustCompile(`^export\s+`),
	},
	"typescript": {
		regexp.MustCompile(`^function\s+\w+`),
		regexp.MustCompile(`^const\s+\w+\s*=\s*function`),
		regexp.MustCompile(`^const\s+\w+\s*=\s*\(`),
		regexp.MustCompile(`^class\s+\w+`),
		regexp.MustCompile(`^interface\s+\w+`),
		regexp.MustCompile(`^type\s+\w+`),
		regexp.MustCompile(`^export\s+`),
	},
	"java": {
		regexp.MustCompile(`^public\s+class\s+\w+`),
		regexp.MustCompile(`^private\s+class\s+\w+`),
		regexp.MustCompile(`^protected\s+class\s+\w+`),
		regexp.MustCompile(`^public\s+\w+\s+\w+\s*\(`),
		regexp.MustCompile(`^private\s+\w+\s+\w+\s*\(`),
		regexp.MustCompile(`^protected\s+\w+\s+\w+\s*\(`),
	},
	"go": {
		regexp.MustCompile(`^func\s`),
		regexp.MustCompile(`^type\s+\w+`),
		regexp.MustCompile(`^var\s+\w+`),
		regexp.MustCompile(`^const\s+\w+`),
	},
}

// KnownLanguage reports whether boundary patterns exist for a language
func KnownLanguage(language string) bool {
	_, ok := boundaryPatterns[language]
	return ok
}

// Chunker splits file text into token-bounded, boundary-aware chunks
type Chunker struct {
	chunkSize int
	overlap   int
	counter   tokenizer.Counter
}

// New creates a Chunker with the given token budgets. Non-positive values
// fall back to the defaults.
func New(counter tokenizer.Counter, chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		counter:   counter,
	}
}

// Chunk splits content into chunks. Sections between semantic boundaries
// that fit the token budget become one chunk each; oversized sections are
// re-split greedily on line breaks. When overlap is configured and more
// than one chunk exists, a single overlap pass pads neighboring chunks
// with a few shared lines.
//
// chunk_index is contiguous 0..total-1 over the returned slice. start_char
// and end_char reflect the pre-overlap extent; the overlap pass updates
// content and line numbers but not character offsets.
func (c *Chunker) Chunk(content, language string) []types.Chunk {
	if content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	boundaries := findBoundaries(lines, language)

	// Byte offset of each line start, for start_char/end_char
	offsets := make([]int, len(lines)+1)
	for i, line := range lines {
		offsets[i+1] = offsets[i] + len(line) + 1
	}

	var chunks []types.Chunk
	for i := 0; i < len(boundaries)-1; i++ {
		startIdx := boundaries[i]
		endIdx := boundaries[i+1]

		sectionText := strings.Join(lines[startIdx:endIdx], "\n")

		// Small enough section stays whole. Inclusive comparison: a
		// section exactly at the budget is not split.
		if c.counter.Count(sectionText) <= c.chunkSize {
			chunks = append(chunks, types.Chunk{
				Content:    sectionText,
				StartLine:  startIdx + 1,
				EndLine:    endIdx,
				StartChar:  offsets[startIdx],
				EndChar:    offsets[startIdx] + len(sectionText),
				ChunkIndex: len(chunks),
				TokenCount: c.counter.Count(sectionText),
				Language:   language,
				Boundary:   types.BoundarySemantic,
			})
			continue
		}

		for _, sp := range c.splitSection(lines, startIdx, endIdx) {
			text := strings.Join(lines[sp.start:sp.end], "\n")
			chunks = append(chunks, types.Chunk{
				Content:    text,
				StartLine:  sp.start + 1,
				EndLine:    sp.end,
				StartChar:  offsets[sp.start],
				EndChar:    offsets[sp.start] + len(text),
				ChunkIndex: len(chunks),
				TokenCount: c.counter.Count(text),
				Language:   language,
				Boundary:   types.BoundaryTokenSplit,
			})
		}
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	if c.overlap > 0 && len(chunks) > 1 {
		c.addOverlap(chunks, lines)
	}

	return chunks
}

// findBoundaries returns the sorted, deduplicated line indices that delimit
// sections: always 0 and len(lines), plus every line matching one of the
// language's definition-start patterns
func findBoundaries(lines []string, language string) []int {
	boundaries := []int{0}

	if patterns, ok := boundaryPatterns[language]; ok {
		for i, line := range lines {
			stripped := strings.TrimSpace(line)
			for _, pattern := range patterns {
				if pattern.MatchString(stripped) {
					boundaries = append(boundaries, i)
					break
				}
			}
		}
	}

	boundaries = append(boundaries, len(lines))

	sort.Ints(boundaries)
	deduped := boundaries[:1]
	for _, b := range boundaries[1:] {
		if b != deduped[len(deduped)-1] {
			deduped = append(deduped, b)
		}
	}
	return deduped
}

// span is a half-open line index range within the file
type span struct {
	start int
	end   int
}

// splitSection greedily accumulates lines into spans that stay under the
// token budget. A line that would overflow the running span starts a new
// one; a single line over the budget becomes its own span.
func (c *Chunker) splitSection(lines []string, startIdx, endIdx int) []span {
	var spans []span
	curStart := startIdx
	curTokens := 0

	for i := startIdx; i < endIdx; i++ {
		lineTokens := c.counter.Count(lines[i] + "\n")

		if curTokens+lineTokens > c.chunkSize && i > curStart {
			spans = append(spans, span{start: curStart, end: i})
			curStart = i
			curTokens = lineTokens
		} else {
			curTokens += lineTokens
		}
	}

	if curStart < endIdx {
		spans = append(spans, span{start: curStart, end: endIdx})
	}

	return spans
}

// addOverlap pads chunks in place with a few lines from their neighbors:
// the first chunk takes up to 6 following lines, the last up to 5 preceding
// lines, interior chunks up to 3 preceding and 4 following. An absorption
// is skipped when the added text exceeds the overlap token budget. Windows
// are computed from the original line array and each chunk's pre-pass start
// line; character offsets are left untouched.
func (c *Chunker) addOverlap(chunks []types.Chunk, lines []string) {
	last := len(chunks) - 1

	for i := range chunks {
		ch := &chunks[i]

		switch i {
		case 0:
			next := &chunks[i+1]
			overlapLines := sliceLines(lines, next.StartLine-1, next.StartLine+5)
			if len(overlapLines) == 0 {
				continue
			}
			overlapText := strings.Join(overlapLines, "\n")
			if c.counter.Count(overlapText) <= c.overlap {
				ch.Content += "\n" + overlapText
				ch.EndLine = minInt(ch.EndLine+len(overlapLines), len(lines))
				ch.TokenCount = c.counter.Count(ch.Content)
			}

		case last:
			overlapLines := sliceLines(lines, ch.StartLine-6, ch.StartLine-1)
			if len(overlapLines) == 0 {
				continue
			}
			overlapText := strings.Join(overlapLines, "\n")
			if c.counter.Count(overlapText) <= c.overlap {
				ch.Content = overlapText + "\n" + ch.Content
				ch.StartLine = maxInt(1, ch.StartLine-len(overlapLines))
				ch.TokenCount = c.counter.Count(ch.Content)
			}

		default:
			next := &chunks[i+1]
			prevLines := sliceLines(lines, ch.StartLine-4, ch.StartLine-1)
			nextLines := sliceLines(lines, next.StartLine-1, next.StartLine+3)
			prevText := strings.Join(prevLines, "\n")
			nextText := strings.Join(nextLines, "\n")

			if c.counter.Count(prevText)+c.counter.Count(nextText) <= c.overlap {
				ch.Content = prevText + "\n" + ch.Content + "\n" + nextText
				ch.StartLine = maxInt(1, ch.StartLine-len(prevLines))
				ch.EndLine = minInt(ch.EndLine+len(nextLines), len(lines))
				ch.TokenCount = c.counter.Count(ch.Content)
			}
		}
	}
}

// sliceLines returns lines[lo:hi] with both ends clamped to valid indices
func sliceLines(lines []string, lo, hi int) []string {
	if lo < 0 {
		lo = 0
	}
	if hi > len(lines) {
		hi = len(lines)
	}
	if lo >= hi {
		return nil
	}
	return lines[lo:hi]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
