package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/askrepo/askrepo-mcp/internal/embedder"
)

const (
	// IndexVersion is written to every manifest
	IndexVersion = "1.0.0"

	// ChunkingStrategy names the chunking algorithm for manifest readers
	ChunkingStrategy = "semantic_boundaries_v1"

	manifestDirName  = ".askrepo"
	manifestFileName = "manifest.json"
)

// Manifest is the write-once summary record of one indexing run. It is
// read by operators, not by the system itself.
type Manifest struct {
	RepoName        string              `json:"repo_name"`
	RunID           string              `json:"run_id"`
	IndexedAt       string              `json:"indexed_at"`
	TotalFiles      int                 `json:"total_files"`
	TotalChunks     int                 `json:"total_chunks"`
	TotalTokens     int                 `json:"total_tokens"`
	Languages       map[string]int      `json:"languages"`
	ChunkingParams  ChunkingParams      `json:"chunking_params"`
	IndexVersion    string              `json:"index_version"`
	VectorStore     VectorStoreInfo     `json:"vector_store"`
	IndexingStats   Statistics          `json:"indexing_stats"`
	DurationSeconds float64             `json:"indexing_duration_seconds"`
	GitCommit       string              `json:"git_commit,omitempty"`
	IgnorePatterns  []string            `json:"ignore_patterns"`
	EmbeddingStats  embedder.UsageStats `json:"embedding_stats"`
	CacheStats      embedder.CacheStats `json:"cache_stats"`

	// Path is where the manifest was written, set after a successful write
	Path string `json:"-"`
}

// ChunkingParams records the chunking configuration an index was built with
type ChunkingParams struct {
	Strategy      string `json:"strategy"`
	MaxTokens     int    `json:"max_tokens"`
	OverlapTokens int    `json:"overlap_tokens"`
}

// VectorStoreInfo describes where the vectors live
type VectorStoreInfo struct {
	Type           string `json:"type"`
	Collection     string `json:"collection"`
	EmbeddingModel string `json:"embedding_model"`
}

// writeManifest persists the manifest as indented JSON under the
// repository's .askrepo directory and records the path on the manifest
func writeManifest(repoPath string, m *Manifest) error {
	dir := filepath.Join(repoPath, manifestDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(dir, manifestFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	m.Path = path
	return nil
}

// resolveGitCommit reads the current commit hash from the repository's .git
// data without invoking git. Returns "" when path is not inside a
// repository or the hash cannot be resolved.
func resolveGitCommit(path string) string {
	gitDir := findGitDir(path)
	if gitDir == "" {
		return ""
	}

	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}

	ref := strings.TrimSpace(string(head))
	if !strings.HasPrefix(ref, "ref: ") {
		// Detached HEAD holds the hash directly
		return ref
	}

	refName := strings.TrimSpace(strings.TrimPrefix(ref, "ref: "))
	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(refName))); err == nil {
		return strings.TrimSpace(string(data))
	}

	// Recently packed refs only exist in packed-refs
	packed, err := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(packed), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		if hash, name, ok := strings.Cut(line, " "); ok && name == refName {
			return hash
		}
	}
	return ""
}

// findGitDir walks upward from path looking for the .git directory,
// following a .git file's gitdir pointer (worktrees)
func findGitDir(path string) string {
	dir := path
	for {
		candidate := filepath.Join(dir, ".git")
		if info, err := os.Stat(candidate); err == nil {
			if info.IsDir() {
				return candidate
			}
			if data, err := os.ReadFile(candidate); err == nil {
				target := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), "gitdir:"))
				if target != "" {
					if !filepath.IsAbs(target) {
						target = filepath.Join(dir, target)
					}
					return target
				}
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
