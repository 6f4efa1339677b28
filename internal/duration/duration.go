// Package duration converts time expressions such as "1d", "2hr+3rd" or
// "1min/2CL" into a count of rounds and tracks the countdown.
package duration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/udisondev/charsheet/internal/formula"
)

// Inf is the round count of a duration that never expires.
const Inf int64 = -1

// Stats read by the level-style pseudo units.
const (
	LevelStat       = "level"
	CasterLevelStat = "caster_level"
)

var (
	ErrInvalidUnit    = errors.New("invalid time unit")
	ErrMissingContext = errors.New("duration needs a character")
	ErrSyntax         = errors.New("invalid duration")
)

// Lookup resolves the current value of a stat for level-style units.
type Lookup interface {
	StatValue(name string) (int64, bool)
}

var infNames = map[string]bool{
	"":          true,
	"inf":       true,
	"infinity":  true,
	"infinite":  true,
	"perm":      true,
	"permanent": true,
	"forever":   true,
}

type unit struct {
	mult int64
	stat string
}

var units = map[string]unit{}

func init() {
	register := func(u unit, names ...string) {
		for _, n := range names {
			units[n] = u
		}
	}
	register(unit{mult: 1}, "", "r", "rd", "rds", "rnd", "rnds", "round", "rounds")
	register(unit{mult: 10}, "m", "mi", "min", "mins", "minute", "minutes")
	register(unit{mult: 600}, "h", "hr", "hrs", "hour", "hours")
	register(unit{mult: 14400}, "d", "day", "days")
	register(unit{mult: 5259600}, "y", "yr", "yrs", "year", "years")
	register(unit{stat: LevelStat}, "l", "lvl", "level")
	register(unit{stat: CasterLevelStat}, "cl", "clvl", "caster", "casterlvl", "casterlevel")
}

// names is the greedy decomposition used by String.
var names = []struct {
	mult int64
	name string
}{
	{5259600, "yr"},
	{14400, "day"},
	{600, "hr"},
	{10, "min"},
	{1, "rd"},
}

// Duration is a countdown measured in rounds.
type Duration struct {
	original int64
	rounds   int64
}

// Infinite returns a duration that never expires.
func Infinite() *Duration {
	return &Duration{original: Inf, rounds: Inf}
}

// Restore rebuilds a duration from saved round counts without re-reading stats.
func Restore(original, rounds int64) *Duration {
	if original == Inf {
		return Infinite()
	}
	rounds = max(0, min(rounds, original))
	return &Duration{original: original, rounds: rounds}
}

// Parse evaluates text once into a fixed round count. lookup may be nil when
// the text has no level-style units.
func Parse(text string, lookup Lookup) (*Duration, error) {
	raw, err := ToRounds(text)
	if err != nil {
		return nil, err
	}
	if raw == strconv.FormatInt(Inf, 10) {
		return Infinite(), nil
	}

	expr, err := formula.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}
	if len(expr.Stats()) > 0 && lookup == nil {
		return nil, fmt.Errorf("%w: %q references %s", ErrMissingContext, text, strings.Join(expr.Stats(), ","))
	}

	env := formula.EnvFunc(func(ref formula.Ref) (int64, bool) {
		return lookup.StatValue(ref.Name)
	})
	for _, name := range expr.Stats() {
		if _, ok := lookup.StatValue(name); !ok {
			return nil, fmt.Errorf("%w: %q needs stat %q", ErrMissingContext, text, name)
		}
	}
	n, err := formula.Eval(expr, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, text, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrSyntax, text)
	}
	return &Duration{original: n, rounds: n}, nil
}

// ToRounds normalizes text into an arithmetic expression over rounds. Terms are
// joined with '+', each is <count><unit> optionally followed by /<count><unit>
// meaning "per count of unit", floored with a minimum of one.
func ToRounds(text string) (string, error) {
	s := strings.ToLower(text)
	s = strings.NewReplacer(" ", "", "_", "").Replace(s)
	if infNames[s] {
		return strconv.FormatInt(Inf, 10), nil
	}

	var terms []string
	for _, term := range strings.Split(s, "+") {
		if term == "" {
			return "", fmt.Errorf("%w: empty term in %q", ErrSyntax, text)
		}
		parts := strings.Split(term, "/")
		if len(parts) > 2 {
			return "", fmt.Errorf("%w: too many / in %q", ErrSyntax, term)
		}

		num, u, err := splitUnit(parts[0])
		if err != nil {
			return "", err
		}
		out := num + "*" + u.operand()

		if len(parts) == 2 {
			per, pu, err := splitUnit(parts[1])
			if err != nil {
				return "", err
			}
			if per == "0" {
				return "", fmt.Errorf("%w: per zero in %q", ErrSyntax, term)
			}
			out += "*max(1, " + pu.operand() + "/" + per + ")"
		}
		terms = append(terms, out)
	}
	return strings.Join(terms, " + "), nil
}

func (u unit) operand() string {
	if u.stat != "" {
		return "${" + u.stat + "}"
	}
	return strconv.FormatInt(u.mult, 10)
}

func splitUnit(s string) (string, unit, error) {
	i := 0
	for i < len(s) && '0' <= s[i] && s[i] <= '9' {
		i++
	}
	num := s[:i]
	if num == "" {
		num = "1"
	}
	num = strings.TrimLeft(num, "0")
	if num == "" {
		num = "0"
	}
	u, ok := units[s[i:]]
	if !ok {
		return "", unit{}, fmt.Errorf("%w: %q", ErrInvalidUnit, s[i:])
	}
	return num, u, nil
}

// Original returns the total rounds fixed at creation.
func (d *Duration) Original() int64 { return d.original }

// Rounds returns the rounds remaining.
func (d *Duration) Rounds() int64 { return d.rounds }

// IsInfinite reports whether d never expires.
func (d *Duration) IsInfinite() bool { return d.rounds == Inf }

// Expired reports whether a finite duration has run out.
func (d *Duration) Expired() bool { return d.rounds == 0 }

// Advance subtracts n rounds, floored at zero, and reports whether d is now
// expired. Infinite durations never change. Negative n is ignored.
func (d *Duration) Advance(n int64) bool {
	if d.IsInfinite() {
		return false
	}
	if n > 0 {
		d.rounds = max(0, d.rounds-n)
	}
	return d.Expired()
}

// Reset restores the remaining rounds to the original total.
func (d *Duration) Reset() {
	d.rounds = d.original
}

// String decomposes the remaining rounds, e.g. "1day+2hr+3rd".
func (d *Duration) String() string {
	if d.IsInfinite() {
		return "infinite"
	}
	if d.rounds == 0 {
		return "0rd"
	}
	var parts []string
	x := d.rounds
	for _, n := range names {
		if x >= n.mult {
			parts = append(parts, strconv.FormatInt(x/n.mult, 10)+n.name)
			x %= n.mult
		}
	}
	return strings.Join(parts, "+")
}
