package formula

import (
	"strconv"
	"strings"
)

// builtins maps function names to their arity; -1 means one or more, -2 means any.
var builtins = map[string]int{
	"min": -1,
	"max": -1,
	"sum": -2,
	"abs": 1,
	"if":  3,
}

type parser struct {
	src  string
	toks []token
	pos  int
}

// Parse turns formula text into an expression tree. References are not checked
// against any stat set here; see Resolve.
func Parse(src string) (*Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, syntaxf(src, 0, "empty formula")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	root, err := p.expr(1)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxf(src, t.pos, "unexpected %q", t.text)
	}
	return &Expr{src: src, root: root}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(src string) *Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// expr parses binary operators with precedence climbing.
func (p *parser) expr(minPrec int) (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := precedence[t.text]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.expr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: t.text, L: left, R: right}
	}
}

func (p *parser) unary() (Node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+" || t.text == "!") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if t.text == "+" {
			return x, nil
		}
		return Unary{Op: t.text, X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNum:
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, syntaxf(p.src, t.pos, "number out of range %q", t.text)
		}
		return Num{Val: v}, nil
	case tokRef:
		return Ref{Kind: t.ref, Name: t.text, Pos: t.pos}, nil
	case tokIdent:
		return p.call(t)
	case tokLParen:
		x, err := p.expr(1)
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, syntaxf(p.src, c.pos, "expected ')'")
		}
		return x, nil
	case tokEOF:
		return nil, syntaxf(p.src, t.pos, "unexpected end of formula")
	default:
		return nil, syntaxf(p.src, t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) call(name token) (Node, error) {
	arity, ok := builtins[name.text]
	if !ok {
		return nil, &Error{Kind: ErrUnresolved, Src: p.src, Pos: name.pos, Msg: "unknown name " + strconv.Quote(name.text)}
	}
	if t := p.next(); t.kind != tokLParen {
		return nil, syntaxf(p.src, t.pos, "expected '(' after %s", name.text)
	}
	var args []Node
	if p.peek().kind == tokRParen {
		p.next()
	} else {
		for {
			a, err := p.expr(1)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			t := p.next()
			if t.kind == tokRParen {
				break
			}
			if t.kind != tokComma {
				return nil, syntaxf(p.src, t.pos, "expected ',' or ')' in %s()", name.text)
			}
		}
	}
	switch {
	case arity >= 0 && len(args) != arity:
		return nil, syntaxf(p.src, name.pos, "%s() takes %d arguments, got %d", name.text, arity, len(args))
	case arity == -1 && len(args) == 0:
		return nil, syntaxf(p.src, name.pos, "%s() needs at least one argument", name.text)
	}
	return Call{Fn: name.text, Args: args}, nil
}
