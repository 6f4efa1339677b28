package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormula     = errors.New("formula error")
	ErrDependency  = errors.New("still in use")
	ErrInvalidType = errors.New("invalid bonus type")
	ErrNotAttached = errors.New("not attached")
	ErrDuplicate   = errors.New("already attached")
	ErrAttached    = errors.New("edit requires a detached entity")
	ErrCycle       = errors.New("dependency cycle")
	ErrPropagation = errors.New("recalculation did not converge")
	ErrBusy        = errors.New("recalculation in progress")
)

// Error is returned by every Character operation. Kind is one of the package
// sentinels; Err carries the underlying cause when there is one.
type Error struct {
	Kind       error
	Name       string
	Msg        string
	Dependents []string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Name != "" {
		fmt.Fprintf(&b, ": %s", e.Name)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if len(e.Dependents) > 0 {
		fmt.Fprintf(&b, ": used by %s", strings.Join(e.Dependents, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, name, format string, args ...any) *Error {
	return &Error{Kind: kind, Name: name, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind error, name string, err error) *Error {
	return &Error{Kind: kind, Name: name, Err: err}
}

func notAttached(kind, name string) *Error {
	return newError(ErrNotAttached, name, "no %s by that name", kind)
}
