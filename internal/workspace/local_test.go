package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pit/internal/errors"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0644))
	}
}

func newWorkspace(t *testing.T, files map[string]string) *LocalWorkspace {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, MetaDir, "objects"), 0755))
	writeFiles(t, root, files)

	w, err := NewLocalWorkspace(root, zaptest.NewLogger(t))
	require.NoError(t, err)
	return w
}

func TestFindRoot(t *testing.T) {
	w := newWorkspace(t, map[string]string{"src/deep/a.txt": "a"})

	root, err := FindRoot(filepath.Join(w.Root, "src", "deep"))
	require.NoError(t, err)
	assert.Equal(t, w.Root, root)

	_, err = FindRoot(t.TempDir())
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
}

func TestFiles(t *testing.T) {
	w := newWorkspace(t, map[string]string{
		"a.txt":             "a",
		"src/main.go":       "package main",
		"src/gen/out.go":    "generated",
		"build/app":         "binary",
		"notes.log":         "log",
		"docs/readme.md":    "docs",
		"docs/.pitignore":   "draft.md\n",
		"docs/draft.md":     "draft",
		".pitignore":        "# comments are skipped\nbuild/\n*.log\nsrc/gen\n",
		".pit/objects/info": "",
	})

	assert.Equal(t, []string{
		".pitignore",
		"a.txt",
		"docs/.pitignore",
		"docs/readme.md",
		"src/main.go",
	}, w.Files("."))

	assert.Equal(t, []string{"src/main.go"}, w.Files("src"))
}

func TestIgnored(t *testing.T) {
	w := newWorkspace(t, map[string]string{
		".pitignore":     "tmp/\nsecret.txt\n",
		"sub/.pitignore": "local.cfg\n",
	})

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{".pit", true, true},
		{".pit/HEAD", false, true},
		{"tmp", true, true},
		{"tmp/file", false, true},
		{"tmp", false, false},
		{"secret.txt", false, true},
		{"nested/secret.txt", false, true},
		{"sub/local.cfg", false, true},
		{"local.cfg", false, false},
		{"a.txt", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Ignored(tt.path, tt.isDir))
		})
	}
}

func TestExpand(t *testing.T) {
	w := newWorkspace(t, map[string]string{
		"a.txt":        "a",
		"src/b.go":     "b",
		"src/c.go":     "c",
		"skip.log":     "x",
		".pitignore":   "*.log\n",
		"src/sub/d.go": "d",
	})

	files, err := w.Expand([]string{"src", "a.txt", "src/b.go", filepath.Join(w.Root, "skip.log")})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/b.go", "src/c.go", "src/sub/d.go", "a.txt"}, files)

	all, err := w.Expand([]string{"."})
	require.NoError(t, err)
	assert.Equal(t, []string{".pitignore", "a.txt", "src/b.go", "src/c.go", "src/sub/d.go"}, all)

	_, err = w.Expand([]string{"missing.txt"})
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))

	_, err = w.Expand([]string{"../outside"})
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
}

func TestReadFile(t *testing.T) {
	w := newWorkspace(t, map[string]string{"src/a.txt": "hello"})

	data, err := w.ReadFile("src/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = w.ReadFile("nope.txt")
	assert.True(t, os.IsNotExist(err))

	_, err = w.ReadFile("src")
	assert.True(t, os.IsNotExist(err), "a directory reads as a missing file")
}
