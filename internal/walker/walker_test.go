package walker

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askrepo/askrepo-mcp/pkg/types"
)

func newTestWalker(extra []string, maxSize int64) *Walker {
	return New(slog.New(slog.DiscardHandler), extra, maxSize)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestWalk_DefaultIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hello world')\n")
	writeFile(t, root, "sub/util.py", "def util():\n    pass\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, "__pycache__/main.cpython-312.pyc", "compiled bytes here\n")
	writeFile(t, root, "cache.pyc", "compiled bytes here\n")
	writeFile(t, root, ".hidden/secret.py", "x = 1\n")
	writeFile(t, root, ".env", "KEY=value\n")

	w := newTestWalker(nil, 1<<20)
	files, err := w.Walk(root)
	require.NoError(t, err)

	got := relPaths(files)
	assert.ElementsMatch(t, []string{"main.py", "sub/util.py"}, got)
}

func TestWalk_IgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, IgnoreFileName, "# comment line\n\ngenerated\n*.sql\n")
	writeFile(t, root, "app.py", "x = 1\n")
	writeFile(t, root, "schema.sql", "SELECT 1;\n")
	writeFile(t, root, "generated/model.py", "x = 2\n")

	w := newTestWalker(nil, 1<<20)
	files, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, relPaths(files))
}

func TestWalk_ExtraPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "main.py", "x = 1\n")

	w := newTestWalker([]string{"*.md"}, 1<<20)
	files, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, relPaths(files))
}

func TestWalk_SkipsBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hello world')\n")
	writeFile(t, root, "blob.bin", "data\x00data")
	writeFile(t, root, "noise.dat", "\x01\x02\x03abc")

	w := newTestWalker(nil, 1<<20)
	files, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.py"}, relPaths(files))
}

// Empty files are yielded; the indexer counts them as skipped.
func TestWalk_YieldsEmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "print('hello world')\n")
	writeFile(t, root, "empty.py", "")

	w := newTestWalker(nil, 1<<20)
	files, err := w.Walk(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.py", "empty.py"}, relPaths(files))
}

func TestWalk_SkipsLargeFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "x = 1\n")
	writeFile(t, root, "large.py", strings.Repeat("y = 2\n", 100))

	w := newTestWalker(nil, 32)
	files, err := w.Walk(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.py"}, relPaths(files))
}

func TestWalk_MissingRoot(t *testing.T) {
	w := newTestWalker(nil, 1<<20)
	_, err := w.Walk(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestWalk_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.py", "x = 1\n")

	w := newTestWalker(nil, 1<<20)
	_, err := w.Walk(filepath.Join(root, "file.py"))
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}

func TestFileInfo_Language(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/main.py", "python"},
		{"SRC/MAIN.PY", "python"},
		{"app/handler.go", "go"},
		{"web/page.tsx", "typescript"},
		{"docs/notes.md", "markdown"},
		{"query.sql", "sql"},
		{"Makefile", ""},
		{"archive.tar.gz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fi := FileInfo{Path: tt.path}
			assert.Equal(t, tt.want, fi.Language())
		})
	}
}

func TestShouldIgnore(t *testing.T) {
	patterns := []string{"node_modules", "*.pyc", "build"}

	tests := []struct {
		name    string
		relPath string
		base    string
		want    bool
	}{
		{"plain file", "src/main.py", "main.py", false},
		{"hidden file", ".env", ".env", true},
		{"matching extension", "src/cache.pyc", "cache.pyc", true},
		{"under top-level ignored dir", "node_modules/pkg/index.js", "index.js", true},
		{"parent matches pattern", "build/out.js", "out.js", true},
		{"name equals pattern", "build", "build", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldIgnore(tt.relPath, tt.base, patterns))
		})
	}
}
