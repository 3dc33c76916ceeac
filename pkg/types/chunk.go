package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// BoundaryType records how a chunk's extent was decided
type BoundaryType string

const (
	// BoundarySemantic marks a chunk that fit whole between two definition boundaries
	BoundarySemantic BoundaryType = "semantic"
	// BoundaryTokenSplit marks a chunk produced by re-splitting an oversized section
	BoundaryTokenSplit BoundaryType = "token_split"
)

// Chunk represents a contiguous, token-bounded slice of one file's text
// with source-line provenance, ready for embedding and search
type Chunk struct {
	// Content
	Content    string
	TokenCount int

	// Location (1-based lines, byte offsets for chars)
	StartLine int
	EndLine   int
	StartChar int
	EndChar   int

	// Position within the file's full split
	ChunkIndex  int
	TotalChunks int

	// Metadata
	Language string
	Boundary BoundaryType
}

// ID returns the content-derived identifier used as the vector store key.
// Unchanged content always maps to the same id, so re-upserting it is a no-op.
func (c *Chunk) ID(repoName, filePath string) string {
	sum := sha256.Sum256([]byte(c.Content))
	return fmt.Sprintf("%s:%s:%d:%s", repoName, filePath, c.ChunkIndex, hex.EncodeToString(sum[:])[:16])
}

// ContentHash returns the full hex SHA-256 of the chunk content
func (c *Chunk) ContentHash() string {
	sum := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(sum[:])
}

// ValidateContent checks if the chunk content and location are valid
func (c *Chunk) ValidateContent() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// ValidateBoundary checks if the boundary type is valid
func (c *Chunk) ValidateBoundary() error {
	switch c.Boundary {
	case BoundarySemantic, BoundaryTokenSplit:
		return nil
	default:
		return errors.New("invalid boundary type")
	}
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateContent(); err != nil {
		return err
	}

	if err := c.ValidateBoundary(); err != nil {
		return err
	}

	if c.ChunkIndex < 0 || c.TotalChunks <= 0 {
		return errors.New("chunk index and total must be set")
	}

	if c.ChunkIndex >= c.TotalChunks {
		return errors.New("chunk index must be less than total chunks")
	}

	return nil
}
