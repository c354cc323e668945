// Package merge decides whether one branch tip can be fast-forwarded to
// another. It never combines file contents.
package merge

import (
	"fmt"

	"go.uber.org/zap"

	"pit/internal/content"
	"pit/internal/errors"
	"pit/internal/object"
)

// State is a step of the resolution.
type State int

const (
	Walking State = iota
	Comparing
	Resolved
	Conflict
)

func (s State) String() string {
	switch s {
	case Walking:
		return "walking"
	case Comparing:
		return "comparing"
	case Resolved:
		return "resolved"
	default:
		return "conflict"
	}
}

// Outcome is a successful resolution: the current branch can move to
// Target. Base is the last commit both chains share.
type Outcome struct {
	State       State
	Target      object.Digest
	Base        object.Digest
	FastForward bool
	Ahead       int
}

type Resolver struct {
	store  content.Store
	logger *zap.Logger
}

func NewResolver(store content.Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// Ancestry follows parent links from tip to the root commit and returns
// the chain root first.
func (r *Resolver) Ancestry(tip object.Digest) ([]object.Digest, error) {
	var chain []object.Digest
	seen := make(map[object.Digest]bool)

	for cur := tip; cur != ""; {
		if seen[cur] {
			return nil, errors.Corrupted(fmt.Sprintf("commit %s is its own ancestor", cur.Short()), cur)
		}
		seen[cur] = true

		data, err := r.store.Get(cur)
		if err != nil {
			return nil, err
		}
		c, err := object.DecodeCommit(data)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cur)
		cur = c.Parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Resolve compares the ancestries of current and other. It returns the
// fast-forward target when current is an ancestor of other,
// NothingToMerge when other is already contained in current and
// NoSimpleMerge when the histories diverge.
func (r *Resolver) Resolve(current, other object.Digest) (*Outcome, error) {
	if current == other {
		return nil, errors.NothingToMerge()
	}

	r.step(Walking)
	mine, err := r.Ancestry(current)
	if err != nil {
		return nil, err
	}
	theirs, err := r.Ancestry(other)
	if err != nil {
		return nil, err
	}

	r.step(Comparing)
	i := 0
	for i < len(mine) && i < len(theirs) && mine[i] == theirs[i] {
		i++
	}

	switch {
	case i == 0:
		r.step(Conflict)
		return nil, errors.NoSimpleMerge().Wrap(fmt.Errorf("histories share no root"))
	case i == len(theirs):
		r.step(Resolved)
		return nil, errors.NothingToMerge()
	case i == len(mine):
		r.step(Resolved)
		return &Outcome{
			State:       Resolved,
			Target:      other,
			Base:        mine[i-1],
			FastForward: true,
			Ahead:       len(theirs) - i,
		}, nil
	default:
		r.step(Conflict)
		return nil, errors.NoSimpleMerge().Wrap(fmt.Errorf(
			"diverged after %s with %d and %d commits on each side",
			mine[i-1].Short(), len(mine)-i, len(theirs)-i))
	}
}

func (r *Resolver) step(s State) {
	r.logger.Debug("merge", zap.Stringer("state", s))
}
