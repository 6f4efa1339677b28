package formula

import (
	"strconv"
	"strings"
)

// RefKind identifies which field a sigil reference reads.
type RefKind uint8

const (
	RefValue  RefKind = iota + 1 // $name: current value of another stat
	RefNormal                    // #name: baseline value of another stat
	RefAttr                      // @attr: attribute of the owning stat
)

func (k RefKind) sigil() string {
	switch k {
	case RefValue:
		return "$"
	case RefNormal:
		return "#"
	case RefAttr:
		return "@"
	default:
		return "?"
	}
}

func (k RefKind) String() string {
	switch k {
	case RefValue:
		return "value"
	case RefNormal:
		return "normal"
	case RefAttr:
		return "attr"
	default:
		return "unknown"
	}
}

// Node is an expression tree node.
type Node interface {
	node()
}

// Num is an integer literal.
type Num struct {
	Val int64
}

// Ref is a sigil reference to a stat or attribute.
type Ref struct {
	Kind RefKind
	Name string
	Pos  int
}

// Unary is a prefix operator application.
type Unary struct {
	Op string
	X  Node
}

// Binary is an infix operator application.
type Binary struct {
	Op   string
	L, R Node
}

// Call is a builtin function call.
type Call struct {
	Fn   string
	Args []Node
}

func (Num) node()    {}
func (Ref) node()    {}
func (Unary) node()  {}
func (Binary) node() {}
func (Call) node()   {}

// precedence for binary operators, higher binds tighter.
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

const unaryPrec = 7

// Expr is a parsed formula.
type Expr struct {
	src  string
	root Node
}

// Root returns the top node.
func (e *Expr) Root() Node { return e.root }

// Refs returns every distinct reference in order of first appearance.
func (e *Expr) Refs() []Ref {
	var refs []Ref
	seen := make(map[Ref]bool)

	var walk func(n Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Ref:
			key := Ref{Kind: n.Kind, Name: n.Name}
			if !seen[key] {
				seen[key] = true
				refs = append(refs, n)
			}
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e.root)
	return refs
}

// Stats returns the distinct stat names read through $ or # references.
func (e *Expr) Stats() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range e.Refs() {
		if r.Kind == RefAttr || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	return names
}

// String renders the canonical form with braced references and minimal parentheses.
func (e *Expr) String() string {
	var b strings.Builder
	render(&b, e.root, 0)
	return b.String()
}

func render(b *strings.Builder, n Node, parent int) {
	switch n := n.(type) {
	case Num:
		b.WriteString(strconv.FormatInt(n.Val, 10))
	case Ref:
		b.WriteString(n.Kind.sigil())
		b.WriteByte('{')
		b.WriteString(n.Name)
		b.WriteByte('}')
	case Unary:
		b.WriteString(n.Op)
		render(b, n.X, unaryPrec)
	case Binary:
		p := precedence[n.Op]
		if p < parent {
			b.WriteByte('(')
		}
		render(b, n.L, p)
		b.WriteByte(' ')
		b.WriteString(n.Op)
		b.WriteByte(' ')
		// left-associative: an equal-precedence right operand needs parentheses
		render(b, n.R, p+1)
		if p < parent {
			b.WriteByte(')')
		}
	case Call:
		b.WriteString(n.Fn)
		b.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			render(b, a, 0)
		}
		b.WriteByte(')')
	}
}
