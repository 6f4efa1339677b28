package formula

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax     = errors.New("formula syntax error")
	ErrUnresolved = errors.New("unresolved reference")
	ErrEval       = errors.New("formula evaluation error")
)

// Error describes a formula failure. Kind is one of the package sentinels.
type Error struct {
	Kind error
	Src  string
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Src == "" {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: %s at %d in %q", e.Kind.Error(), e.Msg, e.Pos, e.Src)
}

func (e *Error) Unwrap() error { return e.Kind }

func syntaxf(src string, pos int, format string, args ...any) error {
	return &Error{Kind: ErrSyntax, Src: src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func evalf(format string, args ...any) error {
	return &Error{Kind: ErrEval, Msg: fmt.Sprintf(format, args...)}
}
