// internal/content/store.go
package content

import (
	"fmt"
	"os"
	"path/filepath"

	"pit/internal/errors"
	"pit/internal/object"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// FileStore keeps one file per object in a flat directory, named by digest.
type FileStore struct {
	root   string
	cache  *lru.Cache[object.Digest, []byte]
	logger *zap.Logger
}

func NewFileStore(root string, opts Options, logger *zap.Logger) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("object directory is required")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.IO("creating object directory", err)
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[object.Digest, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileStore{
		root:   root,
		cache:  cache,
		logger: logger,
	}, nil
}

// Root returns the object directory.
func (s *FileStore) Root() string {
	return s.root
}

// Location returns the file path an object is stored at.
func (s *FileStore) Location(d object.Digest) string {
	return filepath.Join(s.root, string(d))
}

// Put writes data under its digest unless it is already stored.
func (s *FileStore) Put(data []byte) (object.Digest, error) {
	if data == nil {
		data = []byte{}
	}

	d := object.Hash(data)
	if s.Exists(d) {
		return d, nil
	}

	// Write to a temp file and rename so racing writers of the same digest
	// never leave a partial object behind.
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return "", errors.IO("creating temp object", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.IO("writing object", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.IO("syncing object", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.IO("closing object", err)
	}
	if err := os.Rename(tmpName, s.Location(d)); err != nil {
		os.Remove(tmpName)
		return "", errors.IO("renaming object", err)
	}

	s.cache.Add(d, data)
	s.logger.Debug("object written", zap.String("digest", d.String()), zap.Int("size", len(data)))
	return d, nil
}

// Get returns the bytes stored under d.
func (s *FileStore) Get(d object.Digest) ([]byte, error) {
	if !d.Valid() {
		return nil, errors.NotFound(fmt.Sprintf("invalid object digest %q", d))
	}

	if data, ok := s.cache.Get(d); ok {
		return data, nil
	}

	data, err := os.ReadFile(s.Location(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("object not found: %s", d))
		}
		return nil, errors.IO(fmt.Sprintf("reading object %s", d), err)
	}

	// Verify hash
	if got := object.Hash(data); got != d {
		return nil, errors.Corrupted(fmt.Sprintf("object %s hashes to %s", d, got), d)
	}

	s.cache.Add(d, data)
	return data, nil
}

// Exists checks if an object is stored
func (s *FileStore) Exists(d object.Digest) bool {
	if !d.Valid() {
		return false
	}
	if s.cache.Contains(d) {
		return true
	}
	_, err := os.Stat(s.Location(d))
	return err == nil
}
