package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/object"
	"pit/internal/storage"
)

type fixture struct {
	dir   string
	store *content.FileStore
	db    *badger.DB
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	store, err := content.NewFileStore(filepath.Join(dir, "objects"), content.Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	db, err := storage.Open("", true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{dir: dir, store: store, db: db}
}

func (f *fixture) infoPath() string {
	return filepath.Join(f.dir, "objects", "info")
}

func (f *fixture) open(t *testing.T) *Index {
	idx, err := Open(f.infoPath(), f.store, f.db, zaptest.NewLogger(t))
	require.NoError(t, err)
	return idx
}

func (f *fixture) blob(t *testing.T, path, body string) object.Digest {
	d, err := f.store.Put(object.EncodeBlob([]byte(body), path))
	require.NoError(t, err)
	return d
}

func TestStage(t *testing.T) {
	f := newFixture(t)
	idx := f.open(t)
	assert.Equal(t, 0, idx.Len())

	a1 := f.blob(t, "a.txt", "one")
	b := f.blob(t, "src/b.txt", "bee")
	a2 := f.blob(t, "a.txt", "two")

	require.NoError(t, idx.Stage("a.txt", a1))
	require.NoError(t, idx.Stage("src/b.txt", b))
	assert.Equal(t, []object.Digest{a1, b}, idx.List())

	t.Run("restaging replaces and appends", func(t *testing.T) {
		require.NoError(t, idx.Stage("a.txt", a2))
		assert.Equal(t, []object.Digest{b, a2}, idx.List())

		d, ok := idx.Lookup("a.txt")
		require.True(t, ok)
		assert.Equal(t, a2, d)
	})

	t.Run("identical content is a no-op", func(t *testing.T) {
		require.NoError(t, idx.Stage("a.txt", a2))
		assert.Equal(t, []object.Digest{b, a2}, idx.List())
	})

	t.Run("entries carry paths", func(t *testing.T) {
		assert.Equal(t, []Entry{
			{Path: "src/b.txt", Digest: b},
			{Path: "a.txt", Digest: a2},
		}, idx.Entries())
	})

	t.Run("file holds one digest per line", func(t *testing.T) {
		data, err := os.ReadFile(f.infoPath())
		require.NoError(t, err)
		assert.Equal(t, string(b)+"\n"+string(a2)+"\n", string(data))
	})

	t.Run("invalid digest", func(t *testing.T) {
		err := idx.Stage("c.txt", "nope")
		assert.True(t, errors.Is(err, errors.ErrorTypeEmptyInput))
	})
}

func TestReopen(t *testing.T) {
	f := newFixture(t)
	idx := f.open(t)

	a := f.blob(t, "a.txt", "one")
	b := f.blob(t, "b.txt", "two")
	require.NoError(t, idx.Stage("a.txt", a))
	require.NoError(t, idx.Stage("b.txt", b))

	again := f.open(t)
	assert.Equal(t, idx.List(), again.List())
	d, ok := again.Lookup("b.txt")
	require.True(t, ok)
	assert.Equal(t, b, d)
}

func TestRebuildFromObjects(t *testing.T) {
	f := newFixture(t)

	a := f.blob(t, "a.txt", "one")
	b := f.blob(t, "docs/b.md", "two")
	require.NoError(t, os.WriteFile(f.infoPath(), []byte(strings.Join([]string{string(a), string(b), ""}, "\n")), 0644))

	// The database knows nothing about these entries.
	idx := f.open(t)
	assert.Equal(t, []object.Digest{a, b}, idx.List())

	d, ok := idx.Lookup("docs/b.md")
	require.True(t, ok)
	assert.Equal(t, b, d)

	var stored object.Digest
	require.NoError(t, storage.NewBadgerStore(f.db, stagedPrefix).Get("a.txt", &stored))
	assert.Equal(t, a, stored)
}

func TestRebuildDropsMissingObjects(t *testing.T) {
	f := newFixture(t)

	a := f.blob(t, "a.txt", "one")
	ghost := object.Hash([]byte("never stored"))
	require.NoError(t, os.WriteFile(f.infoPath(), []byte(string(ghost)+"\n"+string(a)+"\n"), 0644))

	idx := f.open(t)
	assert.Equal(t, []object.Digest{a}, idx.List())
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	idx := f.open(t)
	require.NoError(t, idx.Stage("a.txt", f.blob(t, "a.txt", "one")))

	require.NoError(t, idx.Clear())
	assert.Equal(t, 0, idx.Len())
	_, ok := idx.Lookup("a.txt")
	assert.False(t, ok)

	data, err := os.ReadFile(f.infoPath())
	require.NoError(t, err)
	assert.Empty(t, data)

	assert.Equal(t, 0, f.open(t).Len())
}

func TestOpenCorrupted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.infoPath(), []byte("not-a-digest\n"), 0644))

	_, err := Open(f.infoPath(), f.store, f.db, zaptest.NewLogger(t))
	assert.True(t, errors.Is(err, errors.ErrorTypeCorrupted))
}
