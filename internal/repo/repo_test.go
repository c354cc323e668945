package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pit/internal/config"
	"pit/internal/diff"
	"pit/internal/errors"
	"pit/internal/object"
	"pit/shared/types"
)

func newRepo(t *testing.T) *Repo {
	root := t.TempDir()
	require.NoError(t, Init(root, "main"))

	cfg := config.Default()
	cfg.Database.InMemory = true
	r, err := Open(root, Options{Config: cfg, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func write(t *testing.T, r *Repo, rel, body string) {
	full := filepath.Join(r.Root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0644))
}

func commitFiles(t *testing.T, r *Repo, msg string, files map[string]string) object.Digest {
	var paths []string
	for rel, body := range files {
		write(t, r, rel, body)
		paths = append(paths, rel)
	}
	_, err := r.Stage(paths)
	require.NoError(t, err)
	res, err := r.Commit(msg)
	require.NoError(t, err)
	return res.Commit
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root, "main"))

	head, err := os.ReadFile(filepath.Join(root, ".pit", "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "refs/main", string(head))

	ref, err := os.ReadFile(filepath.Join(root, ".pit", "refs", "main"))
	require.NoError(t, err)
	assert.Empty(t, ref)

	info, err := os.ReadFile(filepath.Join(root, ".pit", "objects", "info"))
	require.NoError(t, err)
	assert.Empty(t, info)

	err = Init(root, "main")
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))

	assert.Error(t, Init(t.TempDir(), "bad/name"))
}

func TestOpenFromSubdirectory(t *testing.T) {
	r := newRepo(t)
	write(t, r, "src/deep/a.txt", "a")
	require.NoError(t, r.Close())

	cfg := config.Default()
	cfg.Database.InMemory = true
	again, err := Open(filepath.Join(r.Root, "src", "deep"), Options{Config: cfg})
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, r.Root, again.Root)

	_, err = Open(t.TempDir(), Options{Config: cfg})
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
}

func TestFirstCommitObjects(t *testing.T) {
	r := newRepo(t)
	write(t, r, "a.txt", "hello")

	staged, err := r.Stage([]string{"a.txt"})
	require.NoError(t, err)
	require.Len(t, staged, 1)
	h1 := object.Hash([]byte("hello\n\na.txt\n\nblob"))
	assert.Equal(t, h1, staged[0].Digest)

	res, err := r.Commit("initial")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(r.MetaDir, "objects", string(res.Commit)))
	require.NoError(t, err)
	assert.Equal(t, "tree "+string(res.Tree)+"\nparent \n\ninitial\n\ncommit", string(data))

	ref, err := os.ReadFile(filepath.Join(r.MetaDir, "refs", "main"))
	require.NoError(t, err)
	assert.Equal(t, string(res.Commit), string(ref))

	_, err = r.Commit("again")
	assert.True(t, errors.Is(err, errors.ErrorTypeNothingToCommit))
}

func TestStageTwiceKeepsOneEntry(t *testing.T) {
	r := newRepo(t)
	write(t, r, "a.txt", "one")
	_, err := r.Stage([]string{"a.txt"})
	require.NoError(t, err)

	write(t, r, "a.txt", "two")
	_, err = r.Stage([]string{"a.txt"})
	require.NoError(t, err)

	require.Equal(t, 1, r.Index.Len())
	d, ok := r.Index.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, object.Hash(object.EncodeBlob([]byte("two"), "a.txt")), d)

	_, err = r.Stage(nil)
	assert.True(t, errors.Is(err, errors.ErrorTypeEmptyInput))
}

func TestStatus(t *testing.T) {
	r := newRepo(t)
	commitFiles(t, r, "base", map[string]string{
		"keep.txt":   "same",
		"edit.txt":   "v1",
		"remove.txt": "bye",
		"staged.txt": "s1",
	})

	write(t, r, "edit.txt", "v2")
	require.NoError(t, os.Remove(filepath.Join(r.Root, "remove.txt")))
	write(t, r, "staged.txt", "s2")
	write(t, r, "new.txt", "new")
	write(t, r, "loose.txt", "loose")
	_, err := r.Stage([]string{"staged.txt", "new.txt"})
	require.NoError(t, err)

	s, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, "main", s.Branch)

	assert.Equal(t, []shared.ChangeType{shared.ChangeModified, shared.ChangeAdded},
		[]shared.ChangeType{s.Staged()[0].Type, s.Staged()[1].Type})
	assert.Equal(t, "staged.txt", s.Staged()[0].Path)
	assert.Equal(t, "new.txt", s.Staged()[1].Path)

	unstaged := map[string]shared.ChangeType{}
	for _, c := range s.Unstaged() {
		unstaged[c.Path] = c.Type
	}
	assert.Equal(t, map[string]shared.ChangeType{
		"edit.txt":   shared.ChangeModified,
		"remove.txt": shared.ChangeDeleted,
	}, unstaged)

	require.Len(t, s.Untracked(), 1)
	assert.Equal(t, "loose.txt", s.Untracked()[0].Path)
}

func TestFileReplacedByDirectory(t *testing.T) {
	r := newRepo(t)
	commitFiles(t, r, "base", map[string]string{"a": "plain", "b.txt": "bee"})

	require.NoError(t, os.Remove(filepath.Join(r.Root, "a")))
	write(t, r, "a/inner.txt", "nested")

	rep, err := r.Diff("")
	require.NoError(t, err)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, "a", rep.Files[0].Path)
	assert.Equal(t, diff.StatusDeleted, rep.Files[0].Status)

	s, err := r.Status()
	require.NoError(t, err)
	got := map[string]shared.ChangeType{}
	for _, c := range s.Changes {
		got[c.Path] = c.Type
	}
	assert.Equal(t, map[string]shared.ChangeType{
		"a":           shared.ChangeDeleted,
		"a/inner.txt": shared.ChangeUntracked,
	}, got)
}

func TestDiff(t *testing.T) {
	r := newRepo(t)
	first := commitFiles(t, r, "first", map[string]string{"a.txt": "one\n", "b.txt": "bee\n"})

	t.Run("clean working tree", func(t *testing.T) {
		rep, err := r.Diff("")
		require.NoError(t, err)
		assert.True(t, rep.Working)
		assert.Empty(t, rep.Files)
	})

	write(t, r, "a.txt", "one\ntwo\n")

	t.Run("working change", func(t *testing.T) {
		rep, err := r.Diff("")
		require.NoError(t, err)
		require.Len(t, rep.Files, 1)
		assert.Equal(t, diff.StatusModified, rep.Files[0].Status)
		assert.Equal(t, 1, rep.Files[0].Result.Stats.Additions)
	})

	_, err := r.Stage([]string{"a.txt"})
	require.NoError(t, err)
	second, err := r.Commit("second")
	require.NoError(t, err)

	t.Run("against a commit digest", func(t *testing.T) {
		rep, err := r.Diff(string(first))
		require.NoError(t, err)
		assert.False(t, rep.Working)
		assert.Equal(t, first, rep.Base)
		assert.Equal(t, second.Commit, rep.Target)
		require.Len(t, rep.Files, 1)
		assert.Equal(t, "a.txt", rep.Files[0].Path)
		assert.Equal(t, 1, rep.Files[0].Result.Stats.Additions)
	})

	t.Run("against a branch", func(t *testing.T) {
		require.NoError(t, r.Refs.CreateBranch("old", first))
		rep, err := r.Diff("old")
		require.NoError(t, err)
		assert.Equal(t, first, rep.Base)
		assert.Len(t, rep.Files, 1)
	})

	t.Run("unknown target falls back to the working diff", func(t *testing.T) {
		rep, err := r.Diff("no-such-thing")
		require.NoError(t, err)
		assert.True(t, rep.Working)
		assert.Empty(t, rep.Files)
	})

	t.Run("current commit is the working diff", func(t *testing.T) {
		rep, err := r.Diff(string(second.Commit))
		require.NoError(t, err)
		assert.True(t, rep.Working)
	})
}

func TestCheckout(t *testing.T) {
	r := newRepo(t)
	c1 := commitFiles(t, r, "first", map[string]string{"a.txt": "one"})

	write(t, r, "b.txt", "bee")
	_, err := r.Stage([]string{"b.txt"})
	require.NoError(t, err)

	require.NoError(t, r.Checkout("dev", true))
	assert.Equal(t, 0, r.Index.Len(), "checkout clears the index")

	branch, err := r.Refs.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "dev", branch)

	d, err := r.Refs.ReadBranch("dev")
	require.NoError(t, err)
	assert.Equal(t, c1, d)

	assert.True(t, errors.Is(r.Checkout("dev", true), errors.ErrorTypeBranchExists))
	assert.True(t, errors.Is(r.Checkout("missing", false), errors.ErrorTypeBranchNotFound))

	branches, err := r.Branches()
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, Branch{Name: "dev", Commit: c1, Current: true}, branches[0])
	assert.Equal(t, Branch{Name: "main", Commit: c1}, branches[1])
}

func TestMergeFastForward(t *testing.T) {
	r := newRepo(t)
	c1 := commitFiles(t, r, "first", map[string]string{"a.txt": "one"})

	require.NoError(t, r.Checkout("feature", true))
	commitFiles(t, r, "second", map[string]string{"b.txt": "bee"})
	c3 := commitFiles(t, r, "third", map[string]string{"a.txt": "changed"})

	require.NoError(t, r.Checkout("main", false))
	out, err := r.Merge("feature")
	require.NoError(t, err)
	assert.True(t, out.FastForward)
	assert.Equal(t, c3, out.Target)
	assert.Equal(t, c1, out.Base)

	head, err := r.Refs.Current()
	require.NoError(t, err)
	assert.Equal(t, c3, head)

	_, err = r.Merge("feature")
	assert.True(t, errors.Is(err, errors.ErrorTypeNothingToMerge))
}

func TestMergeErrors(t *testing.T) {
	r := newRepo(t)

	require.NoError(t, r.Refs.CreateBranch("empty", ""))
	_, err := r.Merge("empty")
	assert.True(t, errors.Is(err, errors.ErrorTypeEmptyBranch), "current branch has no commits")

	commitFiles(t, r, "first", map[string]string{"a.txt": "one"})
	_, err = r.Merge("empty")
	assert.True(t, errors.Is(err, errors.ErrorTypeEmptyBranch))

	_, err = r.Merge("ghost")
	assert.True(t, errors.Is(err, errors.ErrorTypeBranchNotFound))

	require.NoError(t, r.Checkout("side", true))
	commitFiles(t, r, "side work", map[string]string{"s.txt": "side"})
	require.NoError(t, r.Checkout("main", false))
	main := commitFiles(t, r, "main work", map[string]string{"m.txt": "main"})

	_, err = r.Merge("side")
	assert.True(t, errors.Is(err, errors.ErrorTypeNoSimpleMerge))

	head, err := r.Refs.Current()
	require.NoError(t, err)
	assert.Equal(t, main, head, "a failed merge leaves the ref alone")
}

func TestLog(t *testing.T) {
	r := newRepo(t)

	entries, err := r.Log(0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	c1 := commitFiles(t, r, "first", map[string]string{"a.txt": "1"})
	c2 := commitFiles(t, r, "second", map[string]string{"a.txt": "2"})
	c3 := commitFiles(t, r, "third", map[string]string{"a.txt": "3"})

	entries, err = r.Log(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []object.Digest{c3, c2, c1}, []object.Digest{entries[0].Digest, entries[1].Digest, entries[2].Digest})
	assert.Equal(t, "third", entries[0].Message)
	assert.Equal(t, c2, entries[0].Parent)
	assert.Empty(t, entries[2].Parent)

	entries, err = r.Log(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
