// Package shared holds the result types handed from the repository to the
// command line.
package shared

// ChangeType classifies a path in the status view.
type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeModified  ChangeType = "modified"
	ChangeDeleted   ChangeType = "deleted"
	ChangeUntracked ChangeType = "untracked"
)

// Change is one line of the status view. Staged changes come from the
// staging index, the rest from comparing live files with the last commit
// and the index.
type Change struct {
	Path    string     `json:"path"`
	Type    ChangeType `json:"type"`
	Staged  bool       `json:"staged"`
	OldHash string     `json:"old_hash,omitempty"`
	NewHash string     `json:"new_hash,omitempty"`
}

// Status is the state of the working tree relative to the checked-out
// branch.
type Status struct {
	Branch  string   `json:"branch"`
	Commit  string   `json:"commit"`
	Changes []Change `json:"changes"`
}

// Staged returns the changes recorded in the staging index.
func (s *Status) Staged() []Change {
	return s.filter(func(c Change) bool { return c.Staged })
}

// Unstaged returns modified and deleted tracked files that are not staged.
func (s *Status) Unstaged() []Change {
	return s.filter(func(c Change) bool { return !c.Staged && c.Type != ChangeUntracked })
}

// Untracked returns files present only in the working tree.
func (s *Status) Untracked() []Change {
	return s.filter(func(c Change) bool { return c.Type == ChangeUntracked })
}

// Clean reports whether there is nothing to show.
func (s *Status) Clean() bool {
	return len(s.Changes) == 0
}

func (s *Status) filter(keep func(Change) bool) []Change {
	var out []Change
	for _, c := range s.Changes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
