// Package sheet holds a character's stats, bonuses, effects and notes, and keeps
// every stat value consistent as formulas change, bonuses toggle and time passes.
//
// Character owns every entity by name. Stats, bonuses and effects only refer to
// each other by name, so the dependency graph has a single owner. All
// operations run synchronously to completion, including the recalculation
// wave they trigger.
package sheet

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/udisondev/charsheet/internal/dice"
	"github.com/udisondev/charsheet/internal/duration"
)

// DetachMode selects how Remove* treats entities that still depend on the target.
type DetachMode uint8

const (
	DetachStrict    DetachMode = iota // fail with ErrDependency
	DetachForce                       // leave dependents with dangling references
	DetachRecursive                   // remove dependents first
)

// Character is the owning context of a sheet.
type Character struct {
	name   string
	policy Policy
	rng    *rand.Rand

	stats   map[string]*Stat
	bonuses map[string]*Bonus
	effects map[string]*Effect
	texts   map[string]*Text

	statOrder   []string
	bonusOrder  []string
	effectOrder []string
	textOrder   []string

	// wave is non-zero while a recalculation is running
	wave int
}

// Option configures New.
type Option func(*Character)

// WithSeed makes dice bonus rolls deterministic.
func WithSeed(seed uint64) Option {
	return func(c *Character) { c.rng = dice.NewRand(seed) }
}

// New returns an empty character. A nil policy allows every bonus type, with
// nothing stacking and nothing permanent.
func New(name string, policy Policy, opts ...Option) *Character {
	if policy == nil {
		policy = NewRules(nil, nil, nil)
	}
	c := &Character{
		name:    name,
		policy:  policy,
		stats:   make(map[string]*Stat),
		bonuses: make(map[string]*Bonus),
		effects: make(map[string]*Effect),
		texts:   make(map[string]*Text),
	}
	for _, o := range opts {
		o(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

func (c *Character) Name() string   { return c.name }
func (c *Character) Policy() Policy { return c.policy }

func (c *Character) Stat(name string) (*Stat, bool) {
	s, ok := c.stats[name]
	return s, ok
}

func (c *Character) Bonus(name string) (*Bonus, bool) {
	b, ok := c.bonuses[name]
	return b, ok
}

func (c *Character) Effect(name string) (*Effect, bool) {
	e, ok := c.effects[name]
	return e, ok
}

func (c *Character) Text(name string) (*Text, bool) {
	t, ok := c.texts[name]
	return t, ok
}

// StatNames returns stat names in attach order.
func (c *Character) StatNames() []string   { return slices.Clone(c.statOrder) }
func (c *Character) BonusNames() []string  { return slices.Clone(c.bonusOrder) }
func (c *Character) EffectNames() []string { return slices.Clone(c.effectOrder) }
func (c *Character) TextNames() []string   { return slices.Clone(c.textOrder) }

// StatValue returns the current value of a stat. It makes Character a
// duration.Lookup for level-style units.
func (c *Character) StatValue(name string) (int64, bool) {
	s, ok := c.stats[name]
	if !ok {
		return 0, false
	}
	return s.value, true
}

// ParseDuration evaluates text against this character's current stats.
func (c *Character) ParseDuration(text string) (*duration.Duration, error) {
	return duration.Parse(text, c)
}

// AddText attaches a note.
func (c *Character) AddText(t *Text) error {
	if _, ok := c.texts[t.name]; ok {
		return newError(ErrDuplicate, t.name, "text exists")
	}
	c.texts[t.name] = t
	c.textOrder = append(c.textOrder, t.name)
	return nil
}

// RemoveText detaches a note.
func (c *Character) RemoveText(name string) (*Text, error) {
	t, ok := c.texts[name]
	if !ok {
		return nil, notAttached("text", name)
	}
	delete(c.texts, name)
	c.textOrder = without(c.textOrder, name)
	return t, nil
}

// Search returns the names of every entity containing substr, case-insensitive.
func (c *Character) Search(substr string) []string {
	substr = strings.ToLower(substr)
	var out []string
	for _, names := range [][]string{c.statOrder, c.bonusOrder, c.effectOrder, c.textOrder} {
		for _, n := range names {
			if strings.Contains(strings.ToLower(n), substr) {
				out = append(out, n)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// structural guards attach and detach against running inside a recalculation.
func (c *Character) structural(name string) error {
	if c.wave > 0 {
		return newError(ErrBusy, name, "attach and detach are not allowed during recalculation")
	}
	return nil
}

func without(names []string, name string) []string {
	return slices.DeleteFunc(names, func(n string) bool { return n == name })
}
