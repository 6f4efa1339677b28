// Package dice parses and rolls dice expressions like "1d20", "2d6+3" or "4d4-1".
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ErrEmpty indicates an expression had no terms.
var ErrEmpty = errors.New("empty dice expression")

// ErrInvalidDiceSpec indicates a term has a bad count, side count or constant.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Term is one signed part of an expression: either Count dice of Sides, or a constant.
type Term struct {
	Count int
	Sides int
	Const int64
	Neg   bool
}

func (t Term) isDice() bool { return t.Sides > 0 }

// Expr is a parsed dice expression.
type Expr struct {
	terms []Term
}

// Parse reads an expression. Terms are joined by '+' or '-'; a dice term is
// [count]d<sides>, anything else must be an integer.
func Parse(s string) (Expr, error) {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return Expr{}, ErrEmpty
	}

	var terms []Term
	neg := false
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && ((s[i] != '+' && s[i] != '-') || i == start) {
			continue
		}
		part := s[start:i]
		term, err := parseTerm(part)
		if err != nil {
			return Expr{}, err
		}
		term.Neg = term.Neg != neg
		terms = append(terms, term)
		if i < len(s) {
			neg = s[i] == '-'
		}
		start = i + 1
	}
	return Expr{terms: terms}, nil
}

func parseTerm(part string) (Term, error) {
	neg := false
	if strings.HasPrefix(part, "-") || strings.HasPrefix(part, "+") {
		neg = part[0] == '-'
		part = part[1:]
	}
	if part == "" {
		return Term{}, fmt.Errorf("%w: empty term", ErrInvalidDiceSpec)
	}

	count, sides, isDice := strings.Cut(part, "d")
	if !isDice {
		c, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return Term{}, fmt.Errorf("%w: %q", ErrInvalidDiceSpec, part)
		}
		return Term{Const: c, Neg: neg}, nil
	}

	n := 1
	if count != "" {
		v, err := strconv.Atoi(count)
		if err != nil || v <= 0 {
			return Term{}, fmt.Errorf("%w: %q", ErrInvalidDiceSpec, part)
		}
		n = v
	}
	sd, err := strconv.Atoi(sides)
	if err != nil || sd <= 0 {
		return Term{}, fmt.Errorf("%w: %q", ErrInvalidDiceSpec, part)
	}
	return Term{Count: n, Sides: sd, Neg: neg}, nil
}

// Static reports whether the expression has no dice.
func (e Expr) Static() bool {
	for _, t := range e.terms {
		if t.isDice() {
			return false
		}
	}
	return true
}

// Min returns the lowest possible total.
func (e Expr) Min() int64 { return e.bound(false) }

// Max returns the highest possible total.
func (e Expr) Max() int64 { return e.bound(true) }

func (e Expr) bound(high bool) int64 {
	var total int64
	for _, t := range e.terms {
		v := t.Const
		if t.isDice() {
			v = int64(t.Count)
			if high != t.Neg {
				v = int64(t.Count * t.Sides)
			}
		}
		if t.Neg {
			v = -v
		}
		total += v
	}
	return total
}

// Roll rolls every dice term with rng and returns the total.
func (e Expr) Roll(rng *rand.Rand) int64 {
	var total int64
	for _, t := range e.terms {
		v := t.Const
		if t.isDice() {
			v = 0
			for range t.Count {
				v += int64(rng.IntN(t.Sides) + 1)
			}
		}
		if t.Neg {
			v = -v
		}
		total += v
	}
	return total
}

// String renders the expression in canonical form, e.g. "2d6+3".
func (e Expr) String() string {
	var b strings.Builder
	for i, t := range e.terms {
		switch {
		case t.Neg:
			b.WriteByte('-')
		case i > 0:
			b.WriteByte('+')
		}
		if t.isDice() {
			fmt.Fprintf(&b, "%dd%d", t.Count, t.Sides)
		} else {
			b.WriteString(strconv.FormatInt(t.Const, 10))
		}
	}
	return b.String()
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
