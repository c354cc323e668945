package tree

import (
	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/object"
)

// Hash re-serializes every directory below the tree root bottom-up,
// writing one tree object per directory, and returns the top-level tree
// digest. Blob digests are taken as they are.
func (t *Tree) Hash(store content.Store, logger *zap.Logger) (object.Digest, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	top := t.ensureTreeRoot()

	type frame struct {
		id      NodeID
		visited bool
	}
	stack := []frame{{id: top}}
	written := 0

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.id]
		if n.Kind != object.KindTree {
			continue
		}
		if !f.visited {
			stack = append(stack, frame{id: f.id, visited: true})
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: n.Children[i]})
			}
			continue
		}

		entries := make([]object.TreeEntry, 0, len(n.Children))
		for _, c := range n.Children {
			child := t.nodes[c]
			entries = append(entries, object.TreeEntry{
				Kind:   child.Kind,
				Digest: child.Digest,
				Path:   child.Path,
			})
		}
		d, err := store.Put(object.EncodeTree(n.Path, entries))
		if err != nil {
			return "", err
		}
		t.setDigest(f.id, d, store.Location(d))
		written++
	}

	logger.Debug("hashed tree",
		zap.String("digest", t.nodes[top].Digest.String()),
		zap.Int("trees", written))
	return t.nodes[top].Digest, nil
}
