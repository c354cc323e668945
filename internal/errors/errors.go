package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeNotFound        ErrorType = "NOT_FOUND"
	ErrorTypeCorrupted       ErrorType = "CORRUPTED"
	ErrorTypeEmptyInput      ErrorType = "EMPTY_INPUT"
	ErrorTypeNothingToCommit ErrorType = "NOTHING_TO_COMMIT"
	ErrorTypeBranchNotFound  ErrorType = "BRANCH_NOT_FOUND"
	ErrorTypeEmptyBranch     ErrorType = "EMPTY_BRANCH"
	ErrorTypeNothingToMerge  ErrorType = "NOTHING_TO_MERGE"
	ErrorTypeNoSimpleMerge   ErrorType = "NO_SIMPLE_MERGE"
	ErrorTypeBranchExists    ErrorType = "BRANCH_EXISTS"
	ErrorTypeValidation      ErrorType = "VALIDATION_ERROR"
	ErrorTypeIO              ErrorType = "IO_FAILURE"
)

// Error is the typed failure returned across package boundaries.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether any error in err's chain is an *Error of type t.
func Is(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// TypeOf returns the type of the outermost *Error in err's chain, or "".
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

func Corrupted(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeCorrupted,
		Message: message,
		Details: details,
	}
}

func EmptyInput(message string) *Error {
	return &Error{
		Type:    ErrorTypeEmptyInput,
		Message: message,
	}
}

func NothingToCommit() *Error {
	return &Error{
		Type:    ErrorTypeNothingToCommit,
		Message: "nothing to commit",
	}
}

func BranchNotFound(branch string) *Error {
	return &Error{
		Type:    ErrorTypeBranchNotFound,
		Message: fmt.Sprintf("branch not found: %s", branch),
		Details: branch,
	}
}

func BranchExists(branch string) *Error {
	return &Error{
		Type:    ErrorTypeBranchExists,
		Message: fmt.Sprintf("branch already exists: %s", branch),
		Details: branch,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: details,
	}
}

func EmptyBranch(branch string) *Error {
	return &Error{
		Type:    ErrorTypeEmptyBranch,
		Message: fmt.Sprintf("branch has no commits: %s", branch),
		Details: branch,
	}
}

func NothingToMerge() *Error {
	return &Error{
		Type:    ErrorTypeNothingToMerge,
		Message: "nothing to merge",
	}
}

func NoSimpleMerge() *Error {
	return &Error{
		Type:    ErrorTypeNoSimpleMerge,
		Message: "no simple merge can be done",
	}
}

// IO wraps an underlying read/write failure.
func IO(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: message,
		Err:     err,
	}
}

// Wrap attaches a cause to a typed error and returns it.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}
