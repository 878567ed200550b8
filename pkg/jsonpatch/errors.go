package jsonpatch

import (
	"fmt"
	"strings"

	"github.com/formdeck/formdeck/pkg/forms"
)

// PathError reports an operation addressing a path outside the allowed
// subtree. Nothing is applied when any operation in the batch trips this.
type PathError struct {
	Index int
	Path  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("operation %d: path %q is not allowed, only paths starting with %q are permitted", e.Index, e.Path, AllowedPathPrefix)
}

// MalformedError reports an operation that failed structural validation.
type MalformedError struct {
	Index  int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("operation %d is malformed: %s", e.Index, e.Reason)
}

// ApplyError reports an operation that failed while being applied: a bad
// index, a missing path, or a failed test assertion.
type ApplyError struct {
	Index  int
	Op     string
	Reason string
}

func (e *ApplyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("patch apply failed: %s", e.Reason)
	}
	return fmt.Sprintf("operation %d (%s) failed: %s", e.Index, e.Op, e.Reason)
}

// ResultError reports that the batch applied cleanly but produced a
// definition the form model rejects. The caller must not adopt the result.
type ResultError struct {
	Violations []forms.ValidationError
}

func (e *ResultError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("result validation failed: %s", strings.Join(msgs, "; "))
}
