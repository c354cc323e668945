// Package commit folds the staging index into the previous commit's tree
// and records the result as a new commit.
package commit

import (
	"strings"

	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/index"
	"pit/internal/object"
	"pit/internal/refs"
	"pit/internal/tree"
)

// Result describes a recorded commit.
type Result struct {
	Commit  object.Digest
	Tree    object.Digest
	Parent  object.Digest
	Changed []Change
}

// Change is one staged path that altered the tree.
type Change struct {
	Path   string
	Digest object.Digest
	Kind   tree.Change
}

type Builder struct {
	store  content.Store
	index  *index.Index
	refs   *refs.Manager
	logger *zap.Logger
}

func NewBuilder(store content.Store, idx *index.Index, rm *refs.Manager, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, index: idx, refs: rm, logger: logger}
}

// BuildCommit records the staged files on top of the commit ref points at
// and advances ref. Nothing is written to ref unless every object the new
// commit depends on has been stored.
func (b *Builder) BuildCommit(message, ref string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.EmptyInput("commit message cannot be empty")
	}
	if b.index.Len() == 0 {
		return nil, errors.NothingToCommit()
	}

	parent, err := b.refs.Read(ref)
	if err != nil {
		return nil, err
	}

	loader := tree.NewLoader(b.store, b.logger)
	loader.Strict = true
	t, err := loader.Load(parent)
	if err != nil {
		return nil, err
	}

	var changed []Change
	for _, d := range b.index.List() {
		data, err := b.store.Get(d)
		if err != nil {
			return nil, err
		}
		p, err := object.PathOf(data)
		if err != nil {
			return nil, err
		}
		_, kind := t.Place(p, d, b.store.Location(d))
		if kind == tree.Unchanged {
			continue
		}
		changed = append(changed, Change{Path: p, Digest: d, Kind: kind})
	}
	if len(changed) == 0 {
		return nil, errors.NothingToCommit()
	}

	top, err := t.Hash(b.store, b.logger)
	if err != nil {
		return nil, err
	}
	digest, err := b.store.Put(object.EncodeCommit(top, parent, message))
	if err != nil {
		return nil, err
	}
	if err := b.refs.Update(ref, digest); err != nil {
		return nil, err
	}
	if err := b.index.Clear(); err != nil {
		return nil, err
	}

	b.logger.Info("recorded commit",
		zap.String("ref", ref),
		zap.String("commit", digest.String()),
		zap.String("parent", parent.String()),
		zap.Int("changed", len(changed)))

	return &Result{
		Commit:  digest,
		Tree:    top,
		Parent:  parent,
		Changed: changed,
	}, nil
}
