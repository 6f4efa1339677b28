package formula

import (
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokRef
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	ref  RefKind
	pos  int
}

// sigils maps the reference prefix character to its kind.
var sigils = map[byte]RefKind{
	'$': RefValue,
	'#': RefNormal,
	'@': RefAttr,
}

// twoCharOps must be checked before single-character operators.
var twoCharOps = []string{"<=", ">=", "==", "!=", "&&", "||"}

const singleCharOps = "+-*/%<>!"

func isIdentByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isDigit(c):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && isIdentByte(src[i]) {
				return nil, syntaxf(src, start, "malformed number")
			}
			toks = append(toks, token{kind: tokNum, text: src[start:i], pos: start})
		case isIdentByte(c):
			start := i
			for i < len(src) && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: src[start:i], pos: start})
		case sigils[c] != 0:
			kind := sigils[c]
			start := i
			i++
			var name string
			if i < len(src) && src[i] == '{' {
				end := strings.IndexByte(src[i:], '}')
				if end < 0 {
					return nil, syntaxf(src, start, "unterminated %q", src[start:])
				}
				name = strings.TrimSpace(src[i+1 : i+end])
				i += end + 1
			} else {
				nameStart := i
				for i < len(src) && isIdentByte(src[i]) {
					i++
				}
				name = src[nameStart:i]
			}
			if name == "" {
				return nil, syntaxf(src, start, "empty reference %q", src[start:i])
			}
			toks = append(toks, token{kind: tokRef, text: name, ref: kind, pos: start})
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		default:
			matched := false
			for _, op := range twoCharOps {
				if strings.HasPrefix(src[i:], op) {
					toks = append(toks, token{kind: tokOp, text: op, pos: i})
					i += len(op)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if strings.IndexByte(singleCharOps, c) >= 0 {
				toks = append(toks, token{kind: tokOp, text: string(c), pos: i})
				i++
				continue
			}
			return nil, syntaxf(src, i, "unexpected character %q", c)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}
