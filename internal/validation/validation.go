package validation

import (
	"fmt"
	"path"
	"strings"

	"pit/internal/errors"
)

type Validator interface {
	Validate() error
}

// BranchName checks that name can be stored as a single file under refs/.
func BranchName(name string) error {
	switch {
	case name == "":
		return errors.ValidationError("branch name cannot be empty", nil)
	case strings.ContainsAny(name, "/\\ \t\n"):
		return errors.ValidationError(fmt.Sprintf("invalid branch name %q", name), name)
	case strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-"):
		return errors.ValidationError(fmt.Sprintf("invalid branch name %q", name), name)
	case strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".lock"):
		return errors.ValidationError(fmt.Sprintf("reserved branch name %q", name), name)
	}
	return nil
}

// RelPath checks that p is a clean, slash separated path inside the
// repository. Object trailers and tree entries rely on this form.
func RelPath(p string) error {
	switch {
	case p == "" || p == ".":
		return errors.ValidationError("path cannot be empty", p)
	case strings.Contains(p, "\n"):
		return errors.ValidationError(fmt.Sprintf("path contains a newline: %q", p), p)
	case strings.HasPrefix(p, "/"):
		return errors.ValidationError(fmt.Sprintf("path must be relative: %q", p), p)
	case path.Clean(p) != p:
		return errors.ValidationError(fmt.Sprintf("path is not clean: %q", p), p)
	case p == ".." || strings.HasPrefix(p, "../"):
		return errors.ValidationError(fmt.Sprintf("path escapes the repository: %q", p), p)
	}
	return nil
}
