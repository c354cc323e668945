package tree

import (
	"strings"

	"pit/internal/object"
)

// Change reports what Place did to the tree.
type Change int

const (
	Unchanged Change = iota
	Added
	Modified
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

// Place puts a blob with the given digest at p, creating directories on
// the way. An existing entry with another digest is detached and a new
// blob node is appended in its place. A blob standing where a directory is
// needed is replaced by a directory.
func (t *Tree) Place(p string, digest object.Digest, location string) (NodeID, Change) {
	cur := t.ensureTreeRoot()
	segs := strings.Split(p, "/")

	for i, seg := range segs {
		last := i == len(segs)-1
		parentPath := t.nodes[cur].Path
		child, found := t.FindChild(cur, seg, i)

		switch {
		case found && last:
			old := t.nodes[child]
			if old.Kind == object.KindBlob && old.Digest == digest {
				return child, Unchanged
			}
			t.Detach(child)
			id := t.Add(cur, Node{
				Path:     childPath(parentPath, seg),
				Name:     seg,
				Kind:     object.KindBlob,
				Digest:   digest,
				Location: location,
				Added:    old.Added,
			})
			if old.Added {
				return id, Added
			}
			return id, Modified

		case found && t.nodes[child].Kind != object.KindTree:
			t.Detach(child)
			cur = t.Add(cur, Node{
				Path:  childPath(parentPath, seg),
				Name:  seg,
				Kind:  object.KindTree,
				Added: true,
			})

		case found:
			cur = child

		case last:
			id := t.Add(cur, Node{
				Path:     childPath(parentPath, seg),
				Name:     seg,
				Kind:     object.KindBlob,
				Digest:   digest,
				Location: location,
				Added:    true,
			})
			return id, Added

		default:
			cur = t.Add(cur, Node{
				Path:  childPath(parentPath, seg),
				Name:  seg,
				Kind:  object.KindTree,
				Added: true,
			})
		}
	}
	return cur, Unchanged
}
