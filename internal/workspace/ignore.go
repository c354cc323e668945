package workspace

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// IgnoreFile lists patterns relative to the directory holding it.
const IgnoreFile = ".pitignore"

type pattern struct {
	base    string // directory of the ignore file, "." for the root
	glob    string
	dirOnly bool
}

// Matcher answers whether a repository-relative path is ignored.
type Matcher struct {
	patterns []pattern
}

// AddPatterns parses the contents of an ignore file found in dir.
func (m *Matcher) AddPatterns(dir string, data []byte) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := pattern{base: dir}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		p.glob = strings.TrimPrefix(line, "./")
		p.glob = strings.TrimPrefix(p.glob, "/")
		if p.glob == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
}

// Match reports whether rel, or any directory above it, is ignored. The
// metadata directory is always ignored.
func (m *Matcher) Match(rel string, isDir bool) bool {
	segs := strings.Split(rel, "/")
	if segs[0] == MetaDir {
		return true
	}
	for i := 1; i <= len(segs); i++ {
		prefix := strings.Join(segs[:i], "/")
		dir := isDir || i < len(segs)
		if m.matchOne(prefix, dir) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchOne(rel string, isDir bool) bool {
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		local := rel
		if p.base != "." {
			var ok bool
			local, ok = strings.CutPrefix(rel, p.base+"/")
			if !ok {
				continue
			}
		}
		if strings.Contains(p.glob, "/") {
			if local == p.glob {
				return true
			}
			if ok, _ := path.Match(p.glob, local); ok {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p.glob, path.Base(local)); ok {
			return true
		}
	}
	return false
}

// LoadIgnore collects every ignore file below root, breadth first.
// Directories that are already ignored are not searched, and unreadable
// directories are logged and skipped.
func LoadIgnore(root string, logger *zap.Logger) *Matcher {
	m := &Matcher{}
	queue := []string{"."}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		abs := filepath.Join(root, filepath.FromSlash(dir))
		if data, err := os.ReadFile(filepath.Join(abs, IgnoreFile)); err == nil {
			m.AddPatterns(dir, data)
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			logger.Warn("cannot read directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			rel := joinRel(dir, e.Name())
			if m.Match(rel, true) {
				continue
			}
			queue = append(queue, rel)
		}
	}
	return m
}

func joinRel(dir, name string) string {
	if dir == "." {
		return name
	}
	return dir + "/" + name
}
