package content

import (
	"pit/internal/object"
)

// Store is the content-addressed object store. Objects are write-once.
type Store interface {
	Put(data []byte) (object.Digest, error)
	Get(d object.Digest) ([]byte, error)
	Exists(d object.Digest) bool
	Location(d object.Digest) string
}

// Options configures a FileStore.
type Options struct {
	// Number of objects kept in the read cache
	CacheSize int
}

const defaultCacheSize = 512
