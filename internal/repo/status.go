package repo

import (
	"os"
	"sort"

	"go.uber.org/zap"

	"pit/internal/errors"
	"pit/internal/object"
	"pit/internal/tree"
	"pit/shared/types"
)

// Status lists staged entries, tracked files that differ from what the
// last commit or the index holds, tracked files missing from the working
// tree, and untracked files.
func (r *Repo) Status() (*shared.Status, error) {
	branch, err := r.Refs.CurrentBranch()
	if err != nil {
		return nil, err
	}
	current, err := r.Refs.Current()
	if err != nil {
		return nil, err
	}

	t, err := tree.NewLoader(r.Store, r.Logger).Load(current)
	if err != nil {
		return nil, err
	}

	status := &shared.Status{Branch: branch, Commit: current.String()}

	for _, e := range r.Index.Entries() {
		change := shared.Change{Path: e.Path, Type: shared.ChangeAdded, Staged: true, NewHash: e.Digest.String()}
		if id, ok := t.Lookup(e.Path); ok && t.Node(id).Kind == object.KindBlob {
			change.Type = shared.ChangeModified
			change.OldHash = t.Node(id).Digest.String()
		}
		t.Place(e.Path, e.Digest, r.Store.Location(e.Digest))
		status.Changes = append(status.Changes, change)
	}

	var rest []shared.Change
	for _, id := range t.Blobs() {
		n := t.Node(id)
		live, err := r.Workspace.ReadFile(n.Path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.IO("reading "+n.Path, err)
			}
			rest = append(rest, shared.Change{Path: n.Path, Type: shared.ChangeDeleted, OldHash: n.Digest.String()})
			continue
		}
		if d := object.Hash(object.EncodeBlob(live, n.Path)); d != n.Digest {
			rest = append(rest, shared.Change{
				Path:    n.Path,
				Type:    shared.ChangeModified,
				OldHash: n.Digest.String(),
				NewHash: d.String(),
			})
		}
	}

	for _, f := range r.Workspace.Files(".") {
		if _, ok := t.Lookup(f); !ok {
			rest = append(rest, shared.Change{Path: f, Type: shared.ChangeUntracked})
		}
	}

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].Path < rest[j].Path })
	status.Changes = append(status.Changes, rest...)

	r.Logger.Debug("computed status",
		zap.String("branch", branch),
		zap.Int("changes", len(status.Changes)))
	return status, nil
}
