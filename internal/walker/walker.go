package walker

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

// IgnoreFileName is the per-repository ignore file read from the walked root.
const IgnoreFileName = ".askrepoignore"

// defaultIgnorePatterns are always active, before the ignore file and any
// caller-supplied patterns are merged in.
var defaultIgnorePatterns = []string{
	"__pycache__",
	"*.pyc",
	"*.pyo",
	"node_modules",
	"venv",
	"env",
	".git",
	".svn",
	".hg",
}

// languageByExt maps a lowercased file extension to its language name.
var languageByExt = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".cs":    "csharp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".sql":   "sql",
	".sh":    "bash",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".md":    "markdown",
	".rst":   "restructuredtext",
	".txt":   "text",
}

// FileInfo describes one indexable file found during a walk.
type FileInfo struct {
	Path      string // absolute path
	RelPath   string // slash-separated path relative to the walked root
	SizeBytes int64
	ModTime   time.Time
}

// Extension returns the lowercased file extension including the dot.
func (f FileInfo) Extension() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Language returns the language name for the file extension, or "" when the
// extension is not recognized.
func (f FileInfo) Language() string {
	return languageByExt[f.Extension()]
}

// Walker enumerates the indexable files under a repository root. Ignored
// paths, hidden files, binary files, and files over the size limit are
// skipped.
type Walker struct {
	extraPatterns []string
	maxFileSize   int64
	logger        *slog.Logger
}

// New creates a Walker. extraPatterns are merged with the defaults and the
// root's ignore file on each walk. maxFileSize is in bytes; files larger
// than it are skipped.
func New(logger *slog.Logger, extraPatterns []string, maxFileSize int64) *Walker {
	return &Walker{
		extraPatterns: extraPatterns,
		maxFileSize:   maxFileSize,
		logger:        logger,
	}
}

// Walk returns the indexable files under root. Ignored directories are
// pruned, not descended into. Unreadable entries are skipped and logged,
// never fatal; only a missing or non-directory root is an error.
func (w *Walker) Walk(root string) ([]FileInfo, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, types.Invalid(root, "cannot resolve path")
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, types.Invalid(abs, "path does not exist")
	}
	if !info.IsDir() {
		return nil, types.Invalid(abs, "path is not a directory")
	}

	patterns := w.loadPatterns(abs)
	w.logger.Info("starting_file_walk", "root_path", abs)

	var files []FileInfo
	skipped := 0

	walkErr := filepath.Walk(abs, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("error_reading_path", "path", p, "error", err)
			skipped++
			return nil
		}
		if p == abs {
			return nil
		}

		rel, err := filepath.Rel(abs, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if fi.IsDir() {
			if shouldIgnore(rel, fi.Name(), patterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if shouldIgnore(rel, fi.Name(), patterns) {
			skipped++
			return nil
		}
		if isBinary(p) {
			w.logger.Debug("skipping_binary_file", "path", p)
			skipped++
			return nil
		}
		if fi.Size() > w.maxFileSize {
			w.logger.Debug("skipping_large_file", "path", p, "size_bytes", fi.Size())
			skipped++
			return nil
		}

		files = append(files, FileInfo{
			Path:      p,
			RelPath:   rel,
			SizeBytes: fi.Size(),
			ModTime:   fi.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, types.Store("walk", walkErr)
	}

	w.logger.Info("file_walk_completed", "total_files", len(files), "skipped_files", skipped)
	return files, nil
}

// loadPatterns merges the default patterns, the root's ignore file, and the
// caller-supplied patterns, dropping duplicates.
func (w *Walker) loadPatterns(root string) []string {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(w.extraPatterns))
	seen := make(map[string]bool)

	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		patterns = append(patterns, p)
	}

	for _, p := range defaultIgnorePatterns {
		add(p)
	}

	if f, err := os.Open(filepath.Join(root, IgnoreFileName)); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			add(line)
		}
		f.Close()
	}

	for _, p := range w.extraPatterns {
		add(p)
	}

	return patterns
}

// shouldIgnore reports whether a path is excluded: hidden names, or any
// pattern matching the relative path, the base name, or a parent directory.
func shouldIgnore(relPath, name string, patterns []string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}

	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := path.Match(pattern, name); ok {
			return true
		}
		for dir := path.Dir(relPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if ok, _ := path.Match(pattern, dir); ok {
				return true
			}
		}
	}
	return false
}

// isBinary sniffs the first 1KB of a file. A NUL byte or more than 30%
// non-printable bytes marks it binary. Empty and unreadable files are not
// binary; they pass through so the indexer can count or record them.
func isBinary(p string) bool {
	f, err := os.Open(p)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	if n == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
		switch b {
		case '\n', '\r', '\t', '\f', '\b':
			continue
		}
		if b < 32 || b > 126 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(n) > 0.3
}
