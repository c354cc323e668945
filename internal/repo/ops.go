package repo

import (
	"go.uber.org/zap"

	"pit/internal/commit"
	"pit/internal/diff"
	"pit/internal/errors"
	"pit/internal/index"
	"pit/internal/merge"
	"pit/internal/object"
	"pit/internal/refs"
)

// Stage records the current content of every file named by paths as a
// blob and adds it to the staging index.
func (r *Repo) Stage(paths []string) ([]index.Entry, error) {
	if len(paths) == 0 {
		return nil, errors.EmptyInput("no paths specified")
	}
	files, err := r.Workspace.Expand(paths)
	if err != nil {
		return nil, err
	}

	var staged []index.Entry
	for _, rel := range files {
		data, err := r.Workspace.ReadFile(rel)
		if err != nil {
			return staged, errors.IO("reading "+rel, err)
		}
		d, err := r.Store.Put(object.EncodeBlob(data, rel))
		if err != nil {
			return staged, err
		}
		if err := r.Index.Stage(rel, d); err != nil {
			return staged, err
		}
		staged = append(staged, index.Entry{Path: rel, Digest: d})
	}

	r.Logger.Info("staged files", zap.Int("count", len(staged)))
	return staged, nil
}

// Commit records the staging index on the checked-out branch.
func (r *Repo) Commit(message string) (*commit.Result, error) {
	head, err := r.Refs.Head()
	if err != nil {
		return nil, err
	}
	return commit.NewBuilder(r.Store, r.Index, r.Refs, r.Logger).BuildCommit(message, head)
}

// DiffReport is the result of Diff. Working reports compare the last
// commit and the staging index with live files. Other reports compare
// Base with the current commit.
type DiffReport struct {
	Working bool
	Base    object.Digest
	Target  object.Digest
	Files   []diff.FileDiff
}

// Diff compares against target, which may name a branch or a stored
// commit. An empty or unknown target, or one that resolves to the current
// commit, yields the working diff.
func (r *Repo) Diff(target string) (*DiffReport, error) {
	current, err := r.Refs.Current()
	if err != nil {
		return nil, err
	}

	base := r.resolve(target)
	if base == "" || base == current {
		files, err := r.differ().Working(current, r.Index.Entries(), r.Workspace.ReadFile)
		if err != nil {
			return nil, err
		}
		return &DiffReport{Working: true, Base: current, Target: current, Files: files}, nil
	}

	files, err := r.differ().Compare(base, current)
	if err != nil {
		return nil, err
	}
	return &DiffReport{Base: base, Target: current, Files: files}, nil
}

// resolve maps a branch name or raw commit digest to a digest, or "".
func (r *Repo) resolve(target string) object.Digest {
	if target == "" {
		return ""
	}
	if r.Refs.Exists(target) {
		d, err := r.Refs.ReadBranch(target)
		if err == nil {
			return d
		}
		r.Logger.Warn("unreadable branch", zap.String("branch", target), zap.Error(err))
	}
	d := object.Digest(target)
	if !r.Store.Exists(d) {
		r.Logger.Debug("unknown diff target, using current commit", zap.String("target", target))
		return ""
	}
	data, err := r.Store.Get(d)
	if err != nil {
		return ""
	}
	if k, err := object.KindOf(data); err != nil || k != object.KindCommit {
		return ""
	}
	return d
}

// Merge fast-forwards the checked-out branch to branch when possible.
func (r *Repo) Merge(branch string) (*merge.Outcome, error) {
	head, err := r.Refs.Head()
	if err != nil {
		return nil, err
	}
	current, err := r.Refs.Read(head)
	if err != nil {
		return nil, err
	}
	other, err := r.Refs.ReadBranch(branch)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return nil, errors.EmptyBranch(refs.BranchOf(head))
	}
	if other == "" {
		return nil, errors.EmptyBranch(branch)
	}

	out, err := merge.NewResolver(r.Store, r.Logger).Resolve(current, other)
	if err != nil {
		return nil, err
	}
	if err := r.Refs.Update(head, out.Target); err != nil {
		return nil, err
	}

	r.Logger.Info("fast-forwarded",
		zap.String("ref", head),
		zap.String("from", current.String()),
		zap.String("to", out.Target.String()))
	return out, nil
}

// Checkout points HEAD at branch, creating it at the current commit when
// create is set, and empties the staging index. Working files are left as
// they are.
func (r *Repo) Checkout(branch string, create bool) error {
	if create {
		current, err := r.Refs.Current()
		if err != nil {
			return err
		}
		if err := r.Refs.CreateBranch(branch, current); err != nil {
			return err
		}
	}
	if err := r.Refs.SetHead(branch); err != nil {
		return err
	}
	return r.Index.Clear()
}

// Branch describes one ref for listing.
type Branch struct {
	Name    string
	Commit  object.Digest
	Current bool
}

func (r *Repo) Branches() ([]Branch, error) {
	names, err := r.Refs.Branches()
	if err != nil {
		return nil, err
	}
	current, err := r.Refs.CurrentBranch()
	if err != nil {
		return nil, err
	}

	out := make([]Branch, 0, len(names))
	for _, name := range names {
		d, err := r.Refs.ReadBranch(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Branch{Name: name, Commit: d, Current: name == current})
	}
	return out, nil
}

// LogEntry is one commit of the history.
type LogEntry struct {
	Digest  object.Digest
	Parent  object.Digest
	Message string
}

// Log lists the checked-out branch's history, newest first. A limit of
// zero or less lists everything.
func (r *Repo) Log(limit int) ([]LogEntry, error) {
	current, err := r.Refs.Current()
	if err != nil {
		return nil, err
	}
	chain, err := merge.NewResolver(r.Store, r.Logger).Ancestry(current)
	if err != nil {
		return nil, err
	}

	var out []LogEntry
	for i := len(chain) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		data, err := r.Store.Get(chain[i])
		if err != nil {
			return nil, err
		}
		c, err := object.DecodeCommit(data)
		if err != nil {
			return nil, err
		}
		out = append(out, LogEntry{Digest: chain[i], Parent: c.Parent, Message: c.Message})
	}
	return out, nil
}
