package deploy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes deployment errors.
type ErrorCode string

const (
	// CodeSourceNotFound indicates no candidate rule tree exists.
	CodeSourceNotFound ErrorCode = "SOURCE_NOT_FOUND"

	// CodeTargetInvalid indicates the install target cannot be used.
	CodeTargetInvalid ErrorCode = "TARGET_INVALID"

	// CodeWriteFailed indicates an I/O or permission error on a specific path.
	CodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Error is a deployment error with enough context to act on.
//
// Validation errors (source not found, target invalid) are returned before
// any write happens. Write failures are collected per item and surface in
// the Report.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the offending filesystem path, if any.
	Path string

	// Candidates lists every source location tried (source not found only).
	Candidates []string

	// Hint tells the user what to check or do next.
	Hint string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Path != "" {
		fmt.Fprintf(&b, " (path=%s)", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsSourceNotFound reports whether err is a source-not-found error.
func IsSourceNotFound(err error) bool {
	return hasCode(err, CodeSourceNotFound)
}

// IsTargetInvalid reports whether err is a target-invalid error.
func IsTargetInvalid(err error) bool {
	return hasCode(err, CodeTargetInvalid)
}

// IsWriteFailed reports whether err is a write failure.
func IsWriteFailed(err error) bool {
	return hasCode(err, CodeWriteFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// NewSourceNotFoundError creates an Error listing every candidate tried.
func NewSourceNotFoundError(candidates []string) *Error {
	tried := make([]string, len(candidates))
	copy(tried, candidates)
	return &Error{
		Code:       CodeSourceNotFound,
		Message:    fmt.Sprintf("no rule tree found (tried %d location(s))", len(tried)),
		Candidates: tried,
		Hint: "run ruledeploy from inside the rules distribution, pass --source <dir>/.cursor/rules, " +
			"or clone the distribution to ~/" + homeTreeDir,
	}
}

// NewTargetInvalidError creates an Error for an unusable install target.
func NewTargetInvalidError(path, reason string, err error) *Error {
	return &Error{
		Code:    CodeTargetInvalid,
		Message: reason,
		Path:    path,
		Hint:    "pass an existing project directory as the first argument (it is never created for you)",
		Err:     err,
	}
}

// NewWriteFailedError creates an Error for a failed operation on path.
func NewWriteFailedError(path, op string, err error) *Error {
	return &Error{
		Code:    CodeWriteFailed,
		Message: op + " failed",
		Path:    path,
		Hint:    "check that the path is writable by the current user and the disk is not full",
		Err:     err,
	}
}
