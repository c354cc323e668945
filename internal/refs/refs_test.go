package refs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pit/internal/errors"
	"pit/internal/object"
)

func newManager(t *testing.T) (*Manager, string) {
	root := t.TempDir()
	m := NewManager(root)
	require.NoError(t, m.CreateBranch("main", ""))
	require.NoError(t, m.SetHead("main"))
	return m, root
}

func TestHead(t *testing.T) {
	m, root := newManager(t)

	ref, err := m.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/main", ref)

	data, err := os.ReadFile(filepath.Join(root, "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "refs/main", string(data))

	branch, err := m.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	current, err := m.Current()
	require.NoError(t, err)
	assert.Empty(t, current, "unborn branch")
}

func TestHeadMissing(t *testing.T) {
	m := NewManager(t.TempDir())
	_, err := m.Head()
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(m.root, "HEAD"), []byte("main"), 0644))
	_, err = m.Head()
	assert.True(t, errors.Is(err, errors.ErrorTypeCorrupted))
}

func TestUpdateAndRead(t *testing.T) {
	m, root := newManager(t)
	d := object.Hash([]byte("commit"))

	require.NoError(t, m.Update("refs/main", d))
	got, err := m.ReadBranch("main")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	matches, err := filepath.Glob(filepath.Join(root, "refs", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	assert.Error(t, m.Update("refs/main", "garbage"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "refs", "main"), []byte("zz\n"), 0644))
	_, err = m.Read("refs/main")
	assert.True(t, errors.Is(err, errors.ErrorTypeCorrupted))
}

func TestReadMissingBranch(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.ReadBranch("dev")
	assert.True(t, errors.Is(err, errors.ErrorTypeBranchNotFound))

	_, err = m.ReadBranch("../HEAD")
	assert.True(t, errors.Is(err, errors.ErrorTypeBranchNotFound))
}

func TestBranches(t *testing.T) {
	m, _ := newManager(t)
	d := object.Hash([]byte("c1"))

	require.NoError(t, m.CreateBranch("dev", d))
	require.NoError(t, m.CreateBranch("alpha", ""))

	err := m.CreateBranch("dev", "")
	assert.True(t, errors.Is(err, errors.ErrorTypeBranchExists))

	names, err := m.Branches()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "dev", "main"}, names)

	require.NoError(t, m.SetHead("dev"))
	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, d, current)

	assert.True(t, errors.Is(m.SetHead("nope"), errors.ErrorTypeBranchNotFound))
}
