package tree

import (
	"fmt"
	"path"

	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/object"
)

// Loader rebuilds trees from the object store.
type Loader struct {
	store  content.Store
	logger *zap.Logger

	// Strict fails on any missing or malformed object instead of skipping
	// the affected subtree.
	Strict bool
}

func NewLoader(store content.Store, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{store: store, logger: logger}
}

// Load reconstructs the hierarchy under ref, a commit or tree digest, in
// breadth-first order. An empty ref yields Empty().
func (l *Loader) Load(ref object.Digest) (*Tree, error) {
	if ref == "" {
		return Empty(), nil
	}

	data, err := l.store.Get(ref)
	if err != nil {
		if l.Strict {
			return nil, err
		}
		l.logger.Warn("root object unreadable, using empty tree",
			zap.String("digest", ref.String()), zap.Error(err))
		return Empty(), nil
	}
	kind, err := object.KindOf(data)
	if err != nil || kind == object.KindBlob {
		if err == nil {
			err = errors.Corrupted(fmt.Sprintf("%s is a blob, not a commit or tree", ref.Short()), ref)
		}
		if l.Strict {
			return nil, err
		}
		l.logger.Warn("root object malformed, using empty tree",
			zap.String("digest", ref.String()), zap.Error(err))
		return Empty(), nil
	}

	t := newRoot(Node{
		Path:     object.RootPath,
		Name:     object.RootPath,
		Kind:     kind,
		Digest:   ref,
		Location: l.store.Location(ref),
	})

	queue := []NodeID{t.root}
	first := true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if !first {
			data, err = l.store.Get(t.nodes[id].Digest)
		}
		first = false

		if err == nil {
			err = l.expand(t, id, data, &queue)
		}
		if err != nil {
			if l.Strict {
				return nil, err
			}
			if id == t.root {
				l.logger.Warn("root object malformed, using empty tree",
					zap.String("digest", ref.String()), zap.Error(err))
				return Empty(), nil
			}
			n := t.nodes[id]
			l.logger.Warn("skipping unreadable subtree",
				zap.String("path", n.Path),
				zap.String("digest", n.Digest.String()),
				zap.Error(err))
			t.Detach(id)
			err = nil
		}
	}
	return t, nil
}

// expand decodes one commit or tree node and links its children.
func (l *Loader) expand(t *Tree, id NodeID, data []byte, queue *[]NodeID) error {
	n := t.nodes[id]

	switch n.Kind {
	case object.KindCommit:
		c, err := object.DecodeCommit(data)
		if err != nil {
			return err
		}
		if id == t.root {
			t.Commit = c
		}
		child := t.Add(id, Node{
			Path:     object.RootPath,
			Name:     object.RootPath,
			Kind:     object.KindTree,
			Digest:   c.Tree,
			Location: l.store.Location(c.Tree),
		})
		*queue = append(*queue, child)

	case object.KindTree:
		tr, err := object.DecodeTree(data)
		if err != nil {
			return err
		}
		for _, e := range tr.Entries {
			if e.Kind == object.KindBlob && l.Strict && !l.store.Exists(e.Digest) {
				return errors.NotFound(fmt.Sprintf("blob %s for %s is missing", e.Digest.Short(), e.Path))
			}
			child := t.Add(id, Node{
				Path:     e.Path,
				Name:     path.Base(e.Path),
				Kind:     e.Kind,
				Digest:   e.Digest,
				Location: l.store.Location(e.Digest),
			})
			if e.Kind == object.KindTree {
				*queue = append(*queue, child)
			}
		}

	default:
		return errors.Corrupted(fmt.Sprintf("unexpected %s object at %s", n.Kind, n.Path), n.Digest)
	}
	return nil
}
