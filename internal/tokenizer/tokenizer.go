// Package tokenizer provides sub-word token counting for chunk budgeting.
//
// Chunk sizes are expressed in tokens of the cl100k_base encoding, the same
// encoding the embedding models use, so a chunk that fits the budget here
// also fits the model's context. When the encoding cannot be loaded (offline
// environments, first run without network) counting falls back to a byte
// heuristic that is close enough for budgeting purposes.
package tokenizer

import (
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// EncodingName is the BPE encoding used for all token counting
const EncodingName = "cl100k_base"

// Counter counts sub-word tokens in a text
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with the real cl100k_base BPE encoding
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the cl100k_base encoding
func NewTiktoken() (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(EncodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", EncodingName, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of tokens in text
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates token counts as bytes divided by four.
// Average English and code tokens run close to four bytes.
type Heuristic struct{}

// Count returns the approximate number of tokens in text
func (Heuristic) Count(text string) int {
	return len(text) / 4
}

// New returns the best available counter: the real encoding when it loads,
// the byte heuristic otherwise
func New(logger *slog.Logger) Counter {
	if logger == nil {
		logger = slog.Default()
	}

	tk, err := NewTiktoken()
	if err != nil {
		logger.Warn("tokenizer_fallback", "encoding", EncodingName, "error", err)
		return Heuristic{}
	}
	return tk
}
