// Package chunker divides source file text into token-bounded chunks for
// embedding and search.
//
// Splitting is boundary-aware: for a known language, lines matching that
// language's definition-start patterns (functions, classes, interfaces,
// decorators, exports) become section boundaries, and any section that fits
// the token budget is kept whole. Oversized sections are re-split greedily
// on line breaks.
//
// # Basic Usage
//
//	counter := tokenizer.New(logger)
//	c := chunker.New(counter, 1280, 50)
//	chunks := c.Chunk(fileContent, "python")
//
//	for _, chunk := range chunks {
//	    fmt.Printf("chunk %d/%d: %d tokens, lines %d-%d (%s)\n",
//	        chunk.ChunkIndex, chunk.TotalChunks, chunk.TokenCount,
//	        chunk.StartLine, chunk.EndLine, chunk.Boundary)
//	}
//
// # Boundary Types
//
// Each chunk records how its extent was decided:
//   - semantic: the section between two boundaries fit the budget whole
//   - token_split: the section was too large and was re-split on lines
//
// An unknown language has no patterns, so the only boundaries are the file
// start and end and large files degrade to pure token splitting.
//
// # Overlap
//
// When an overlap budget is configured and a file produced more than one
// chunk, a single padding pass runs after the split: each chunk absorbs a
// few lines from its neighbors so that context spanning a cut line is
// present on both sides. Absorption is skipped when the added lines exceed
// the overlap token budget.
//
// The pass updates content, line numbers, and token counts in place.
// Character offsets keep their pre-overlap values; callers that need exact
// byte extents must use the line numbers instead.
package chunker
