// internal/workspace/local.go
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"pit/internal/errors"
	"pit/internal/validation"
)

// MetaDir is the repository metadata directory at the workspace root.
const MetaDir = ".pit"

// FindRoot searches for the workspace Root by looking for the ".pit" directory.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, MetaDir)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotFound(fmt.Sprintf("not a pit repository (or any parent): %s", startDir))
}

// LocalWorkspace is the working directory of a repository.
type LocalWorkspace struct {
	Root   string
	Logger *zap.Logger
	ignore *Matcher
}

func NewLocalWorkspace(root string, logger *zap.Logger) (*LocalWorkspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.IO("resolving workspace root", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &LocalWorkspace{Root: abs, Logger: logger}
	w.Reload()
	return w, nil
}

// Reload rereads every ignore file.
func (w *LocalWorkspace) Reload() {
	w.ignore = LoadIgnore(w.Root, w.Logger)
}

// Ignored reports whether a repository-relative path is excluded.
func (w *LocalWorkspace) Ignored(rel string, isDir bool) bool {
	return w.ignore.Match(rel, isDir)
}

// Files lists every tracked candidate below dir ("." for the whole
// workspace) in sorted order.
func (w *LocalWorkspace) Files(dir string) []string {
	var files []string
	queue := []string{dir}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(w.abs(cur))
		if err != nil {
			w.Logger.Warn("cannot read directory", zap.String("dir", cur), zap.Error(err))
			continue
		}
		for _, e := range entries {
			rel := joinRel(cur, e.Name())
			switch {
			case e.IsDir():
				if !w.Ignored(rel, true) {
					queue = append(queue, rel)
				}
			case e.Type().IsRegular():
				if w.Ignored(rel, false) {
					continue
				}
				if err := validation.RelPath(rel); err != nil {
					w.Logger.Warn("skipping unrepresentable path", zap.String("path", rel), zap.Error(err))
					continue
				}
				files = append(files, rel)
			}
		}
	}
	sort.Strings(files)
	return files
}

// Expand resolves arguments, relative to the workspace root or absolute,
// into the files they name. Directories expand to the files below them.
func (w *LocalWorkspace) Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}

	for _, arg := range args {
		rel, err := w.Rel(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(w.abs(rel))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NotFound(fmt.Sprintf("pathspec %q did not match any files", arg))
			}
			return nil, errors.IO("inspecting "+arg, err)
		}
		if info.IsDir() {
			if rel != "." && w.Ignored(rel, true) {
				continue
			}
			for _, f := range w.Files(rel) {
				add(f)
			}
			continue
		}
		if w.Ignored(rel, false) {
			w.Logger.Debug("ignoring path", zap.String("path", rel))
			continue
		}
		if err := validation.RelPath(rel); err != nil {
			return nil, err
		}
		add(rel)
	}
	return out, nil
}

// Rel converts p, absolute or relative to the root, into a clean
// repository-relative slash path.
func (w *LocalWorkspace) Rel(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		abs = filepath.Join(w.Root, p)
	}
	rel, err := filepath.Rel(w.Root, filepath.Clean(abs))
	if err != nil {
		return "", errors.ValidationError(fmt.Sprintf("path %q is outside the workspace", p), p)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.ValidationError(fmt.Sprintf("path %q is outside the workspace", p), p)
	}
	return rel, nil
}

// ReadFile returns the live content of a repository-relative path. A
// directory at rel reads as a missing file.
func (w *LocalWorkspace) ReadFile(rel string) ([]byte, error) {
	full := w.abs(rel)
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: full, Err: fs.ErrNotExist}
	}
	return os.ReadFile(full)
}

func (w *LocalWorkspace) abs(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}
