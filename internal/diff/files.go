package diff

import (
	stderrors "errors"
	"io/fs"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/index"
	"pit/internal/object"
	"pit/internal/tree"
)

// Status classifies a changed file.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
)

// FileDiff is the change to one file. Result is nil for added or deleted
// files compared between commits, and for files whose stored content could
// not be read.
type FileDiff struct {
	Path   string
	Status Status
	Old    object.Digest
	New    object.Digest
	Result *DiffResult
}

// ReadFunc reads the live content of a repository-relative path. Missing
// files yield fs.ErrNotExist. A path that is now a directory may yield
// either fs.ErrNotExist or EISDIR.
type ReadFunc func(path string) ([]byte, error)

// Differ compares stored trees with each other or with live files.
type Differ struct {
	store  content.Store
	engine *Engine
	logger *zap.Logger
}

func NewDiffer(store content.Store, engine *Engine, logger *zap.Logger) *Differ {
	if engine == nil {
		engine = NewEngine(3)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Differ{store: store, engine: engine, logger: logger}
}

// Working compares the commit's files, with the staged entries laid over
// them, against the live files returned by read. Paths that exist only
// through the staging index are reported as added.
func (d *Differ) Working(commit object.Digest, staged []index.Entry, read ReadFunc) ([]FileDiff, error) {
	t, err := tree.NewLoader(d.store, d.logger).Load(commit)
	if err != nil {
		return nil, err
	}
	for _, e := range staged {
		t.Place(e.Path, e.Digest, d.store.Location(e.Digest))
	}

	var out []FileDiff
	for _, id := range t.Blobs() {
		n := t.Node(id)

		stored, err := d.blob(n.Digest)
		if err != nil {
			d.logger.Warn("skipping unreadable blob", zap.String("path", n.Path), zap.Error(err))
			continue
		}

		live, err := read(n.Path)
		if err != nil {
			if !gone(err) {
				return nil, errors.IO("reading "+n.Path, err)
			}
			out = append(out, FileDiff{Path: n.Path, Status: StatusDeleted, Old: n.Digest})
			continue
		}

		current := object.Hash(object.EncodeBlob(live, stored.Path))
		if current == n.Digest && !n.Added {
			continue
		}

		fd := FileDiff{
			Path:   n.Path,
			Status: StatusModified,
			Old:    n.Digest,
			New:    current,
			Result: d.engine.Diff(stored.Content, live),
		}
		if n.Added {
			fd.Status = StatusAdded
		}
		out = append(out, fd)
	}
	return out, nil
}

// Compare walks the trees of base and target side by side, matching
// entries by name. Files only in target are added, files only in base are
// deleted, and files whose digests differ get a line diff from base to
// target.
func (d *Differ) Compare(base, target object.Digest) ([]FileDiff, error) {
	loader := tree.NewLoader(d.store, d.logger)
	bt, err := loader.Load(base)
	if err != nil {
		return nil, err
	}
	tt, err := loader.Load(target)
	if err != nil {
		return nil, err
	}

	var out []FileDiff
	type pair struct {
		base, target tree.NodeID
	}
	stack := []pair{{bt.TreeRoot(), tt.TreeRoot()}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case p.base == tree.NoNode && p.target == tree.NoNode:
			continue
		case p.base == tree.NoNode:
			out = append(out, d.every(tt, p.target, StatusAdded)...)
			continue
		case p.target == tree.NoNode:
			out = append(out, d.every(bt, p.base, StatusDeleted)...)
			continue
		}

		bn, tn := bt.Node(p.base), tt.Node(p.target)
		if bn.Digest == tn.Digest && bn.Kind == tn.Kind && bn.Digest != "" {
			continue
		}

		if bn.Kind != tn.Kind {
			out = append(out, d.every(bt, p.base, StatusDeleted)...)
			out = append(out, d.every(tt, p.target, StatusAdded)...)
			continue
		}

		if bn.Kind == object.KindBlob {
			out = append(out, d.modified(bn, tn))
			continue
		}

		for _, c := range tn.Children {
			name := tt.Node(c).Name
			if match, ok := bt.ChildNamed(p.base, name); ok {
				stack = append(stack, pair{match, c})
			} else {
				stack = append(stack, pair{tree.NoNode, c})
			}
		}
		for _, c := range bn.Children {
			if _, ok := tt.ChildNamed(p.target, bt.Node(c).Name); !ok {
				stack = append(stack, pair{c, tree.NoNode})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (d *Differ) modified(base, target tree.Node) FileDiff {
	fd := FileDiff{Path: target.Path, Status: StatusModified, Old: base.Digest, New: target.Digest}

	old, err := d.blob(base.Digest)
	if err != nil {
		d.logger.Warn("base blob unreadable", zap.String("path", base.Path), zap.Error(err))
		return fd
	}
	cur, err := d.blob(target.Digest)
	if err != nil {
		d.logger.Warn("target blob unreadable", zap.String("path", target.Path), zap.Error(err))
		return fd
	}
	fd.Result = d.engine.Diff(old.Content, cur.Content)
	return fd
}

// every lists the files at or below id.
func (d *Differ) every(t *tree.Tree, id tree.NodeID, status Status) []FileDiff {
	var out []FileDiff
	stack := []tree.NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.Node(cur)
		if n.Kind != object.KindBlob {
			stack = append(stack, n.Children...)
			continue
		}
		fd := FileDiff{Path: n.Path, Status: status}
		if status == StatusDeleted {
			fd.Old = n.Digest
		} else {
			fd.New = n.Digest
		}
		out = append(out, fd)
	}
	return out
}

func (d *Differ) blob(digest object.Digest) (*object.Blob, error) {
	data, err := d.store.Get(digest)
	if err != nil {
		return nil, err
	}
	return object.DecodeBlob(data)
}

// gone reports whether a read failed because no file is at the path any
// more, including when a directory has taken its place.
func gone(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.EISDIR)
}
