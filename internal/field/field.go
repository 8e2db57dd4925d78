// Package field carries validation rejections keyed by input field, so a
// caller can surface every problem in a submission at once instead of only
// the first.
package field

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a rejection of a single named field. Err is the sentinel that
// classifies the rejection and Msg the human-readable detail.
type Error struct {
	Field string
	Err   error
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Field + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errors collects per-field rejections. The zero value is usable; a nil or
// empty Errors reports no failure.
type Errors []*Error

// Add records a rejection for field classified by sentinel err.
func (es *Errors) Add(field string, err error, format string, args ...any) {
	*es = append(*es, &Error{Field: field, Err: err, Msg: fmt.Sprintf(format, args...)})
}

func (es Errors) Error() string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes each field rejection to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, 0, len(es))
	for _, e := range es {
		out = append(out, e)
	}
	return out
}

// Fields returns the rejected field names, sorted and deduplicated.
func (es Errors) Fields() []string {
	set := make(map[string]bool, len(es))
	for _, e := range es {
		set[e.Field] = true
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Err returns the collected rejections as an error, or nil when none were
// recorded. Call it once at the end of validation.
func (es Errors) Err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}
