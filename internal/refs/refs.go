// Package refs manages branch refs and HEAD under the metadata root.
package refs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pit/internal/errors"
	"pit/internal/object"
	"pit/internal/validation"
)

const (
	HeadFile = "HEAD"
	Dir      = "refs"
)

// Manager reads and writes refs/<branch> and HEAD. Writes replace the
// file with a renamed temp file so a reader never sees a partial digest.
type Manager struct {
	root string
}

func NewManager(metaRoot string) *Manager {
	return &Manager{root: metaRoot}
}

// RefName returns the HEAD form of a branch, refs/<branch>.
func RefName(branch string) string {
	return Dir + "/" + branch
}

// BranchOf strips the refs/ prefix.
func BranchOf(ref string) string {
	return strings.TrimPrefix(ref, Dir+"/")
}

func (m *Manager) path(ref string) string {
	return filepath.Join(m.root, filepath.FromSlash(ref))
}

// Head returns the ref HEAD points at, e.g. refs/main.
func (m *Manager) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.root, HeadFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NotFound("HEAD is missing")
		}
		return "", errors.IO("reading HEAD", err)
	}
	ref := strings.TrimSpace(string(data))
	if !strings.HasPrefix(ref, Dir+"/") {
		return "", errors.Corrupted(fmt.Sprintf("HEAD contains %q", ref), nil)
	}
	return ref, nil
}

// CurrentBranch returns the branch name HEAD points at.
func (m *Manager) CurrentBranch() (string, error) {
	ref, err := m.Head()
	if err != nil {
		return "", err
	}
	return BranchOf(ref), nil
}

// Current returns the commit of the checked-out branch, or "" when the
// branch has no commits yet.
func (m *Manager) Current() (object.Digest, error) {
	ref, err := m.Head()
	if err != nil {
		return "", err
	}
	return m.Read(ref)
}

// Read returns the digest stored in ref. An empty ref file is an unborn
// branch and yields "" without error.
func (m *Manager) Read(ref string) (object.Digest, error) {
	data, err := os.ReadFile(m.path(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.BranchNotFound(BranchOf(ref))
		}
		return "", errors.IO("reading "+ref, err)
	}
	d := object.Digest(strings.TrimSpace(string(data)))
	if d != "" && !d.Valid() {
		return "", errors.Corrupted(fmt.Sprintf("%s contains %q", ref, d), nil)
	}
	return d, nil
}

// ReadBranch is Read for a bare branch name.
func (m *Manager) ReadBranch(branch string) (object.Digest, error) {
	if err := validation.BranchName(branch); err != nil {
		return "", errors.BranchNotFound(branch).Wrap(err)
	}
	return m.Read(RefName(branch))
}

// Exists reports whether refs/<branch> exists.
func (m *Manager) Exists(branch string) bool {
	if validation.BranchName(branch) != nil {
		return false
	}
	_, err := os.Stat(m.path(RefName(branch)))
	return err == nil
}

// Update points ref at digest. Callers write every object the commit
// depends on before calling it.
func (m *Manager) Update(ref string, digest object.Digest) error {
	if digest != "" && !digest.Valid() {
		return errors.ValidationError(fmt.Sprintf("invalid digest %q", digest), ref)
	}
	return m.write(m.path(ref), string(digest))
}

// CreateBranch writes refs/<branch> pointing at digest, which may be ""
// for an unborn branch.
func (m *Manager) CreateBranch(branch string, digest object.Digest) error {
	if err := validation.BranchName(branch); err != nil {
		return err
	}
	if m.Exists(branch) {
		return errors.BranchExists(branch)
	}
	if err := os.MkdirAll(filepath.Join(m.root, Dir), 0755); err != nil {
		return errors.IO("creating refs directory", err)
	}
	return m.Update(RefName(branch), digest)
}

// SetHead switches HEAD to refs/<branch>. The branch must exist.
func (m *Manager) SetHead(branch string) error {
	if !m.Exists(branch) {
		return errors.BranchNotFound(branch)
	}
	return m.write(filepath.Join(m.root, HeadFile), RefName(branch))
}

// Branches lists branch names in sorted order.
func (m *Manager) Branches() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, Dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IO("listing branches", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || validation.BranchName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Manager) write(path, value string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.IO("writing "+filepath.Base(path), err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.IO("writing "+filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.IO("syncing "+filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.IO("writing "+filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.IO("replacing "+filepath.Base(path), err)
	}
	return nil
}
