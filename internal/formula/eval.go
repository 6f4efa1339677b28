package formula

import (
	"math"
	"strconv"
)

// Env supplies the values references read during evaluation.
type Env interface {
	Lookup(ref Ref) (int64, bool)
}

// EnvFunc adapts a function to Env.
type EnvFunc func(ref Ref) (int64, bool)

func (f EnvFunc) Lookup(ref Ref) (int64, bool) { return f(ref) }

// Resolver reports whether a name is addressable for a reference kind.
type Resolver interface {
	Resolves(kind RefKind, name string) bool
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(kind RefKind, name string) bool

func (f ResolverFunc) Resolves(kind RefKind, name string) bool { return f(kind, name) }

// Resolve checks every reference in e against r. The first unknown reference is
// reported with its position and original spelling.
func Resolve(e *Expr, r Resolver) error {
	for _, ref := range e.Refs() {
		if !r.Resolves(ref.Kind, ref.Name) {
			return &Error{
				Kind: ErrUnresolved,
				Src:  e.src,
				Pos:  ref.Pos,
				Msg:  "unknown " + ref.Kind.String() + " " + strconv.Quote(ref.Kind.sigil()+ref.Name),
			}
		}
	}
	return nil
}

// Eval computes e against env using integer arithmetic. Division and modulo
// floor toward negative infinity; comparisons and logic yield 1 or 0.
func Eval(e *Expr, env Env) (int64, error) {
	return eval(e.root, env)
}

func eval(n Node, env Env) (int64, error) {
	switch n := n.(type) {
	case Num:
		return n.Val, nil
	case Ref:
		v, ok := env.Lookup(n)
		if !ok {
			return 0, evalf("unresolved %s%s", n.Kind.sigil(), n.Name)
		}
		return v, nil
	case Unary:
		x, err := eval(n.X, env)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case "-":
			return neg(x)
		case "!":
			return boolInt(x == 0), nil
		}
		return 0, evalf("unknown unary operator %q", n.Op)
	case Binary:
		return evalBinary(n, env)
	case Call:
		return evalCall(n, env)
	}
	return 0, evalf("unknown node %T", n)
}

func evalBinary(n Binary, env Env) (int64, error) {
	l, err := eval(n.L, env)
	if err != nil {
		return 0, err
	}
	// short-circuit logic
	switch n.Op {
	case "&&":
		if l == 0 {
			return 0, nil
		}
	case "||":
		if l != 0 {
			return 1, nil
		}
	}
	r, err := eval(n.R, env)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case "+":
		return add(l, r)
	case "-":
		return sub(l, r)
	case "*":
		return mul(l, r)
	case "/":
		if r == 0 {
			return 0, evalf("division by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return 0, errOverflow
		}
		return floorDiv(l, r), nil
	case "%":
		if r == 0 {
			return 0, evalf("modulo by zero")
		}
		return l - floorDiv(l, r)*r, nil
	case "<":
		return boolInt(l < r), nil
	case "<=":
		return boolInt(l <= r), nil
	case ">":
		return boolInt(l > r), nil
	case ">=":
		return boolInt(l >= r), nil
	case "==":
		return boolInt(l == r), nil
	case "!=":
		return boolInt(l != r), nil
	case "&&", "||":
		return boolInt(r != 0), nil
	}
	return 0, evalf("unknown operator %q", n.Op)
}

func evalCall(n Call, env Env) (int64, error) {
	if n.Fn == "if" {
		c, err := eval(n.Args[0], env)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return eval(n.Args[1], env)
		}
		return eval(n.Args[2], env)
	}

	var err error
	vals := make([]int64, len(n.Args))
	for i, a := range n.Args {
		v, err := eval(a, env)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}

	switch n.Fn {
	case "min":
		m := vals[0]
		for _, v := range vals[1:] {
			m = min(m, v)
		}
		return m, nil
	case "max":
		m := vals[0]
		for _, v := range vals[1:] {
			m = max(m, v)
		}
		return m, nil
	case "sum":
		var s int64
		for _, v := range vals {
			if s, err = add(s, v); err != nil {
				return 0, err
			}
		}
		return s, nil
	case "abs":
		if vals[0] < 0 {
			return neg(vals[0])
		}
		return vals[0], nil
	}
	return 0, evalf("unknown function %q", n.Fn)
}

var errOverflow = evalf("integer overflow")

func add(a, b int64) (int64, error) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, errOverflow
	}
	return s, nil
}

func sub(a, b int64) (int64, error) {
	d := a - b
	if (b > 0 && d > a) || (b < 0 && d < a) {
		return 0, errOverflow
	}
	return d, nil
}

func mul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, errOverflow
	}
	p := a * b
	if p/b != a {
		return 0, errOverflow
	}
	return p, nil
}

func neg(a int64) (int64, error) {
	if a == math.MinInt64 {
		return 0, errOverflow
	}
	return -a, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
