// Package index maintains the staging index: the ordered list of blob
// digests queued for the next commit.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/object"
	"pit/internal/storage"
)

const stagedPrefix = "staged"

// Entry is one staged file.
type Entry struct {
	Path   string        `json:"path"`
	Digest object.Digest `json:"digest"`
}

// Index is the in-memory view of objects/info plus the path map kept in
// the metadata database. It is not safe for concurrent use.
type Index struct {
	file    string
	store   content.Store
	paths   *storage.BadgerStore
	logger  *zap.Logger
	digests []object.Digest
	byPath  map[string]object.Digest
}

// Open reads the index file at file. A missing file is an empty index. The
// path map is rebuilt from the stored blobs when it does not match the file.
func Open(file string, store content.Store, db *badger.DB, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &Index{
		file:   file,
		store:  store,
		paths:  storage.NewBadgerStore(db, stagedPrefix),
		logger: logger,
		byPath: make(map[string]object.Digest),
	}

	data, err := os.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.IO("reading staging index", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		d := object.Digest(strings.TrimSpace(line))
		if d == "" {
			continue
		}
		if !d.Valid() {
			return nil, errors.Corrupted(fmt.Sprintf("staging index has entry %q", d), file)
		}
		if !slices.Contains(idx.digests, d) {
			idx.digests = append(idx.digests, d)
		}
	}

	if err := idx.loadPaths(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) loadPaths() error {
	err := idx.paths.ForEach(func(path string, raw []byte) error {
		var d object.Digest
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		idx.byPath[path] = d
		return nil
	})
	if err != nil {
		idx.logger.Warn("staging map unreadable, rebuilding", zap.Error(err))
		return idx.rebuild()
	}

	if !idx.consistent() {
		idx.logger.Debug("staging map out of date, rebuilding",
			zap.Int("staged", len(idx.digests)),
			zap.Int("mapped", len(idx.byPath)))
		return idx.rebuild()
	}
	return nil
}

func (idx *Index) consistent() bool {
	if len(idx.byPath) != len(idx.digests) {
		return false
	}
	for _, d := range idx.byPath {
		if !slices.Contains(idx.digests, d) {
			return false
		}
	}
	return true
}

// rebuild recovers each staged path from its blob trailer.
func (idx *Index) rebuild() error {
	idx.byPath = make(map[string]object.Digest, len(idx.digests))
	var kept []object.Digest
	for _, d := range idx.digests {
		data, err := idx.store.Get(d)
		if err != nil {
			idx.logger.Warn("dropping unreadable staged object",
				zap.String("digest", d.String()), zap.Error(err))
			continue
		}
		path, err := object.PathOf(data)
		if err != nil {
			idx.logger.Warn("dropping staged object that is not a blob",
				zap.String("digest", d.String()), zap.Error(err))
			continue
		}
		// A later entry for the same path wins.
		if prev, ok := idx.byPath[path]; ok {
			kept = slices.DeleteFunc(kept, func(x object.Digest) bool { return x == prev })
		}
		idx.byPath[path] = d
		kept = append(kept, d)
	}
	idx.digests = kept
	return idx.persist()
}

// Stage records digest as the staged content of path, replacing any entry
// previously staged for the same path. Re-staging identical content is a
// no-op.
func (idx *Index) Stage(path string, digest object.Digest) error {
	if !digest.Valid() {
		return errors.EmptyInput(fmt.Sprintf("invalid digest %q for %s", digest, path))
	}
	if prev, ok := idx.byPath[path]; ok {
		if prev == digest {
			return nil
		}
		idx.digests = slices.DeleteFunc(idx.digests, func(d object.Digest) bool { return d == prev })
	}
	if !slices.Contains(idx.digests, digest) {
		idx.digests = append(idx.digests, digest)
	}
	idx.byPath[path] = digest

	if err := idx.writeFile(); err != nil {
		return err
	}
	if err := idx.paths.Put(path, digest); err != nil {
		return errors.IO("updating staging map", err)
	}
	return nil
}

// Lookup returns the digest staged for path.
func (idx *Index) Lookup(path string) (object.Digest, bool) {
	d, ok := idx.byPath[path]
	return d, ok
}

// List returns the staged digests in staging order.
func (idx *Index) List() []object.Digest {
	return slices.Clone(idx.digests)
}

// Entries returns the staged files in staging order.
func (idx *Index) Entries() []Entry {
	owner := make(map[object.Digest]string, len(idx.byPath))
	for p, d := range idx.byPath {
		owner[d] = p
	}
	entries := make([]Entry, 0, len(idx.digests))
	for _, d := range idx.digests {
		entries = append(entries, Entry{Path: owner[d], Digest: d})
	}
	return entries
}

func (idx *Index) Len() int {
	return len(idx.digests)
}

// Clear empties the index.
func (idx *Index) Clear() error {
	idx.digests = nil
	idx.byPath = make(map[string]object.Digest)
	return idx.persist()
}

func (idx *Index) persist() error {
	if err := idx.writeFile(); err != nil {
		return err
	}
	entries := make(map[string]any, len(idx.byPath))
	for p, d := range idx.byPath {
		entries[p] = d
	}
	if err := idx.paths.Replace(entries); err != nil {
		return errors.IO("writing staging map", err)
	}
	return nil
}

func (idx *Index) writeFile() error {
	var b strings.Builder
	for _, d := range idx.digests {
		b.WriteString(string(d))
		b.WriteByte('\n')
	}

	dir := filepath.Dir(idx.file)
	tmp, err := os.CreateTemp(dir, ".info-*")
	if err != nil {
		return errors.IO("writing staging index", err)
	}
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.IO("writing staging index", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.IO("writing staging index", err)
	}
	if err := os.Rename(tmp.Name(), idx.file); err != nil {
		os.Remove(tmp.Name())
		return errors.IO("writing staging index", err)
	}
	return nil
}
