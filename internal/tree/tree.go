// Package tree holds the in-memory form of a commit's hierarchy. Nodes
// live in an arena and refer to each other by NodeID, so parents and
// children can be rewired without aliasing.
package tree

import (
	"path"
	"slices"
	"strings"

	"pit/internal/object"
)

// NodeID addresses a node inside one Tree.
type NodeID int

// NoNode is the parent of a root node.
const NoNode NodeID = -1

// Node is one position in the hierarchy.
type Node struct {
	Path     string
	Name     string
	Kind     object.Kind
	Digest   object.Digest
	Location string
	Parent   NodeID
	Children []NodeID

	// Added marks nodes created after the tree was loaded.
	Added bool
}

// Tree is an arena of nodes with a single root.
type Tree struct {
	nodes []Node
	root  NodeID

	// Commit is the decoded root commit, nil when the root is a tree.
	Commit *object.Commit
}

// Empty returns a tree holding only the root directory. It stands for a
// branch with no history.
func Empty() *Tree {
	t := &Tree{root: NoNode}
	t.root = t.Add(NoNode, Node{Path: object.RootPath, Name: object.RootPath, Kind: object.KindTree})
	return t
}

func newRoot(n Node) *Tree {
	t := &Tree{root: NoNode}
	t.root = t.Add(NoNode, n)
	return t
}

// Root returns the root node, a commit or a tree.
func (t *Tree) Root() NodeID {
	return t.root
}

// TreeRoot returns the top-level directory node: the tree under a commit
// root, or the root itself. It is NoNode when a commit's tree could not be
// loaded.
func (t *Tree) TreeRoot() NodeID {
	r := t.nodes[t.root]
	if r.Kind != object.KindCommit {
		return t.root
	}
	for _, c := range r.Children {
		if t.nodes[c].Kind == object.KindTree {
			return c
		}
	}
	return NoNode
}

func (t *Tree) ensureTreeRoot() NodeID {
	if id := t.TreeRoot(); id != NoNode {
		return id
	}
	return t.Add(t.root, Node{Path: object.RootPath, Name: object.RootPath, Kind: object.KindTree, Added: true})
}

// Add appends n to the arena as the last child of parent and returns its
// id. Pass NoNode for a detached node.
func (t *Tree) Add(parent NodeID, n Node) NodeID {
	id := NodeID(len(t.nodes))
	n.Parent = parent
	n.Children = nil
	t.nodes = append(t.nodes, n)
	if parent != NoNode {
		t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	}
	return id
}

// Node returns a copy of the node.
func (t *Tree) Node(id NodeID) Node {
	n := t.nodes[id]
	n.Children = slices.Clone(n.Children)
	return n
}

// Children returns the child ids of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	return slices.Clone(t.nodes[id].Children)
}

// Len counts arena slots, including detached nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Detach unlinks child from its parent. The slot stays in the arena but is
// no longer reachable from the root.
func (t *Tree) Detach(child NodeID) {
	parent := t.nodes[child].Parent
	if parent == NoNode {
		return
	}
	t.nodes[parent].Children = slices.DeleteFunc(t.nodes[parent].Children, func(c NodeID) bool {
		return c == child
	})
	t.nodes[child].Parent = NoNode
}

func (t *Tree) setDigest(id NodeID, d object.Digest, location string) {
	t.nodes[id].Digest = d
	t.nodes[id].Location = location
}

// FindChild returns the child of parent whose path has segment seg at
// index depth.
func (t *Tree) FindChild(parent NodeID, seg string, depth int) (NodeID, bool) {
	for _, c := range t.nodes[parent].Children {
		if segmentAt(t.nodes[c].Path, depth) == seg {
			return c, true
		}
	}
	return NoNode, false
}

func segmentAt(p string, depth int) string {
	parts := strings.Split(p, "/")
	if depth < 0 || depth >= len(parts) {
		return ""
	}
	return parts[depth]
}

// ChildNamed returns the child of parent with the given display name.
func (t *Tree) ChildNamed(parent NodeID, name string) (NodeID, bool) {
	for _, c := range t.nodes[parent].Children {
		if t.nodes[c].Name == name {
			return c, true
		}
	}
	return NoNode, false
}

// Lookup finds the node at a slash separated path below the tree root.
func (t *Tree) Lookup(p string) (NodeID, bool) {
	cur := t.TreeRoot()
	if cur == NoNode {
		return NoNode, false
	}
	if p == object.RootPath {
		return cur, true
	}
	for i, seg := range strings.Split(p, "/") {
		next, ok := t.FindChild(cur, seg, i)
		if !ok {
			return NoNode, false
		}
		cur = next
	}
	return cur, true
}

// Blobs returns every reachable blob in depth-first pre-order, children
// visited in insertion order.
func (t *Tree) Blobs() []NodeID {
	var out []NodeID
	stack := []NodeID{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if n.Kind == object.KindBlob {
			out = append(out, id)
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

func childPath(parent, seg string) string {
	if parent == object.RootPath || parent == "" {
		return seg
	}
	return path.Join(parent, seg)
}
