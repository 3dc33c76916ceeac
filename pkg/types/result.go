package types

import "errors"

// ScoredChunk is a single vector search hit: the stored chunk plus its
// similarity score. Score is 1 - cosine distance, so higher is better.
type ScoredChunk struct {
	ID        string
	Content   string
	FilePath  string
	StartLine int
	EndLine   int
	Language  string
	Score     float64
}

// Validate checks if the search hit is well formed
func (sc *ScoredChunk) Validate() error {
	if sc.ID == "" {
		return errors.New("scored chunk must have an id")
	}

	if sc.Content == "" {
		return ErrEmptyContent
	}

	if sc.FilePath == "" {
		return errors.New("scored chunk must have a file path")
	}

	if sc.StartLine <= 0 || sc.EndLine < sc.StartLine {
		return errors.New("scored chunk line range is invalid")
	}

	return nil
}

// Preview returns the first n bytes of content with an ellipsis when
// truncated. Used when rendering hits for LLM prompts and tool responses.
func (sc *ScoredChunk) Preview(n int) string {
	if len(sc.Content) <= n {
		return sc.Content
	}
	return sc.Content[:n] + "..."
}
