// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a JSON key/value namespace inside the metadata database.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) keyPrefix() []byte {
	return []byte(s.prefix + ":")
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

// Put stores value under id, replacing any previous value.
func (s *BadgerStore) Put(id string, value any) error {
	if id == "" {
		return fmt.Errorf("key cannot be empty")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(id), data)
	})
}

// Get decodes the value stored under id into out. It returns ErrNotFound
// when the key is absent.
func (s *BadgerStore) Get(id string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(id))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})

	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return err
}

// Delete removes id. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.makeKey(id))
	})
}

// ForEach calls fn with every key (prefix stripped) and raw value in the
// namespace, in key order.
func (s *BadgerStore) ForEach(fn func(id string, raw []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.keyPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := s.stripPrefix(item.Key())
			err := item.Value(func(val []byte) error {
				return fn(id, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("iterating %s: %w", s.prefix, err)
	}
	return nil
}

// Replace atomically drops every key in the namespace and writes entries.
func (s *BadgerStore) Replace(entries map[string]any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.keyPrefix()
		opts.PrefetchValues = false

		var stale [][]byte
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		for id, value := range entries {
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("marshaling %s: %w", id, err)
			}
			if err := txn.Set(s.makeKey(id), data); err != nil {
				return err
			}
		}
		return nil
	})
}
