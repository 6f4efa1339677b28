package sheet

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/udisondev/charsheet/internal/formula"
)

// AddStat resolves the formula of s against the stats already attached,
// registers its dependency edges and computes its value. On any failure
// nothing is registered.
func (c *Character) AddStat(s *Stat) error {
	if err := c.structural(s.name); err != nil {
		return err
	}
	if s.name == "" {
		return newError(ErrFormula, s.name, "stat name is required")
	}
	if _, ok := c.stats[s.name]; ok || s.attached {
		return newError(ErrDuplicate, s.name, "stat exists")
	}

	expr, deps, err := c.resolve(s, s.original)
	if err != nil {
		return err
	}

	c.stats[s.name] = s
	c.statOrder = append(c.statOrder, s.name)
	s.expr = expr
	s.attached = true
	c.link(s, deps)

	if err := c.recalc(s); err != nil {
		c.unlink(s)
		delete(c.stats, s.name)
		c.statOrder = without(c.statOrder, s.name)
		s.detach()
		return err
	}
	if err := c.refreshFlags(deps); err != nil {
		return err
	}

	slog.Debug("stat attached", "character", c.name, "stat", s.name, "uses", deps, "value", s.value)
	return nil
}

// SetFormula replaces the formula of an attached stat and recalculates it and
// its dependents. The stat keeps its old formula if the new one fails.
func (c *Character) SetFormula(name, text string) error {
	if err := c.structural(name); err != nil {
		return err
	}
	s, ok := c.stats[name]
	if !ok {
		return notAttached("stat", name)
	}
	if strings.TrimSpace(text) == "" {
		text = "0"
	}

	expr, deps, err := c.resolve(s, text)
	if err != nil {
		return err
	}

	oldExpr, oldText, oldDeps := s.expr, s.original, s.Uses()
	c.unlink(s)
	s.expr, s.original = expr, text
	c.link(s, deps)

	if err := c.recalc(s); err != nil {
		c.unlink(s)
		s.expr, s.original = oldExpr, oldText
		c.link(s, oldDeps)
		if rerr := c.recalc(s); rerr != nil {
			slog.Error("restoring formula failed", "character", c.name, "stat", name, "err", rerr)
		}
		return err
	}
	if err := c.refreshFlags(append(oldDeps, deps...)); err != nil {
		return err
	}
	s.updated = time.Now().UTC()

	slog.Debug("stat formula changed", "character", c.name, "stat", name, "formula", text)
	return nil
}

// RemoveStat detaches a stat and returns it in its pre-attachment state.
// Stats whose formulas read it, and bonuses applied to it, are dependents.
func (c *Character) RemoveStat(name string, mode DetachMode) (*Stat, error) {
	if err := c.structural(name); err != nil {
		return nil, err
	}
	s, ok := c.stats[name]
	if !ok {
		return nil, notAttached("stat", name)
	}

	dependents := s.UsedBy()
	var bonuses []string
	for _, names := range s.bonuses {
		bonuses = append(bonuses, names...)
	}
	slices.Sort(bonuses)

	switch mode {
	case DetachStrict:
		if len(dependents) > 0 || len(bonuses) > 0 {
			return nil, &Error{
				Kind:       ErrDependency,
				Name:       name,
				Dependents: append(dependents, bonuses...),
			}
		}
	case DetachRecursive:
		for _, d := range dependents {
			if _, ok := c.stats[d]; !ok {
				continue
			}
			if _, err := c.RemoveStat(d, DetachRecursive); err != nil {
				return nil, err
			}
		}
		if err := c.dropTarget(name, bonuses); err != nil {
			return nil, err
		}
	case DetachForce:
		for _, d := range dependents {
			t := c.stats[d]
			delete(t.uses, name)
			t.root = len(t.uses) == 0
		}
		if err := c.dropTarget(name, bonuses); err != nil {
			return nil, err
		}
	}

	uses := s.Uses()
	c.unlink(s)
	delete(c.stats, name)
	c.statOrder = without(c.statOrder, name)
	s.detach()
	if err := c.refreshFlags(uses); err != nil {
		return s, err
	}

	slog.Debug("stat detached", "character", c.name, "stat", name, "mode", mode)
	return s, nil
}

// dropTarget removes stat from the named bonuses. A bonus left with no target
// is removed along with any effect left empty by its removal.
func (c *Character) dropTarget(stat string, bonuses []string) error {
	for _, bn := range bonuses {
		b, ok := c.bonuses[bn]
		if !ok {
			continue
		}
		b.dropStat(stat)
		if len(b.stats) > 0 {
			continue
		}
		if _, err := c.RemoveBonus(bn, DetachRecursive); err != nil {
			return err
		}
	}
	return nil
}

// Calc recomputes a stat and, if its value changed, everything that depends on it.
func (c *Character) Calc(name string) error {
	s, ok := c.stats[name]
	if !ok {
		return notAttached("stat", name)
	}
	return c.recalc(s)
}

// Bonuses returns the bonuses that can affect a stat, directly or through the
// stats its formula reads, split into unconditional and conditional ones.
func (c *Character) Bonuses(name string) (unconditional, conditional []Applied, err error) {
	s, ok := c.stats[name]
	if !ok {
		return nil, nil, notAttached("stat", name)
	}

	seen := make(map[string]bool)
	var walk func(s *Stat)
	walk = func(s *Stat) {
		if seen[s.name] {
			return
		}
		seen[s.name] = true
		for _, typ := range s.BonusTypes() {
			for _, bn := range s.bonuses[typ] {
				b, ok := c.bonuses[bn]
				if !ok {
					continue
				}
				a := Applied{Stat: s.name, Bonus: b}
				if b.Conditional() {
					conditional = append(conditional, a)
				} else {
					unconditional = append(unconditional, a)
				}
			}
		}
		for _, u := range s.Uses() {
			if t, ok := c.stats[u]; ok {
				walk(t)
			}
		}
	}
	walk(s)
	return unconditional, conditional, nil
}

// Applied pairs a bonus with the stat it is attached to.
type Applied struct {
	Stat  string
	Bonus *Bonus
}

// resolve parses text for s, checks every reference and rejects cycles. It
// also evaluates once so runtime failures surface before anything is linked.
func (c *Character) resolve(s *Stat, text string) (*formula.Expr, []string, error) {
	expr, err := formula.Parse(text)
	if err != nil {
		return nil, nil, wrapError(ErrFormula, s.name, err)
	}

	err = formula.Resolve(expr, formula.ResolverFunc(func(kind formula.RefKind, name string) bool {
		if kind == formula.RefAttr {
			_, ok := s.attr(name)
			return ok
		}
		if name == s.name {
			return true
		}
		_, ok := c.stats[name]
		return ok
	}))
	if err != nil {
		return nil, nil, wrapError(ErrFormula, s.name, err)
	}

	deps := expr.Stats()
	for _, d := range deps {
		if path := c.pathTo(d, s.name); path != nil {
			return nil, nil, newError(ErrCycle, s.name, "%s", strings.Join(append([]string{s.name}, path...), " -> "))
		}
	}

	for _, pass := range []bool{true, false} {
		if _, err := formula.Eval(expr, c.env(s, pass)); err != nil {
			return nil, nil, wrapError(ErrFormula, s.name, err)
		}
	}
	return expr, deps, nil
}

// pathTo returns the chain of stat names from `from` to `target` following
// formula reads, or nil when target is unreachable.
func (c *Character) pathTo(from, target string) []string {
	seen := make(map[string]bool)
	var walk func(name string) []string
	walk = func(name string) []string {
		if name == target {
			return []string{name}
		}
		if seen[name] {
			return nil
		}
		seen[name] = true
		s, ok := c.stats[name]
		if !ok {
			return nil
		}
		for _, u := range s.Uses() {
			if rest := walk(u); rest != nil {
				return append([]string{name}, rest...)
			}
		}
		return nil
	}
	return walk(from)
}

func (c *Character) link(s *Stat, deps []string) {
	for _, d := range deps {
		s.uses[d] = struct{}{}
		t := c.stats[d]
		t.usedby[s.name] = struct{}{}
		t.leaf = false
	}
	s.root = len(s.uses) == 0
}

// refreshFlags recalculates the named stats whose formulas read @ attributes,
// after an edge change may have flipped their root or leaf flag.
func (c *Character) refreshFlags(names []string) error {
	for _, n := range names {
		t, ok := c.stats[n]
		if !ok || !t.readsAttrs() {
			continue
		}
		if err := c.recalc(t); err != nil {
			return err
		}
	}
	return nil
}

func (c *Character) unlink(s *Stat) {
	for d := range s.uses {
		t, ok := c.stats[d]
		if !ok {
			continue
		}
		delete(t.usedby, s.name)
		t.leaf = len(t.usedby) == 0
	}
	s.uses = make(map[string]struct{})
	s.root = true
}

// env reads $ references as current values, or as baseline values when
// baseline is set. # references always read baseline values.
func (c *Character) env(s *Stat, baseline bool) formula.Env {
	return formula.EnvFunc(func(ref formula.Ref) (int64, bool) {
		if ref.Kind == formula.RefAttr {
			return s.attr(ref.Name)
		}
		t, ok := c.stats[ref.Name]
		if !ok {
			return 0, false
		}
		if baseline || ref.Kind == formula.RefNormal {
			return t.normal, true
		}
		return t.value, true
	})
}

// recalc runs one propagation wave starting at each stat.
func (c *Character) recalc(stats ...*Stat) error {
	c.wave++
	defer func() { c.wave-- }()
	for _, s := range stats {
		if err := c.calc(s, 0); err != nil {
			return err
		}
	}
	return nil
}

func (c *Character) recalcNames(names []string) error {
	stats := make([]*Stat, 0, len(names))
	for _, n := range names {
		if s, ok := c.stats[n]; ok {
			stats = append(stats, s)
		}
	}
	return c.recalc(stats...)
}

// calc evaluates s twice (baseline and current), folds in bonuses and, when
// either result changed, recalculates every stat that reads s. The depth
// guard turns an undetected cycle into ErrPropagation.
func (c *Character) calc(s *Stat, depth int) error {
	if depth > len(c.stats) {
		return newError(ErrPropagation, s.name, "exceeded depth %d", len(c.stats))
	}

	normal, err := formula.Eval(s.expr, c.env(s, true))
	if err != nil {
		return wrapError(ErrFormula, s.name, err)
	}
	base, err := formula.Eval(s.expr, c.env(s, false))
	if err != nil {
		return wrapError(ErrFormula, s.name, err)
	}
	value := base + c.bonusTotal(s)

	if normal == s.normal && value == s.value {
		return nil
	}
	s.normal, s.value = normal, value

	for _, d := range s.UsedBy() {
		t, ok := c.stats[d]
		if !ok {
			continue
		}
		if err := c.calc(t, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// bonusTotal sums, per bonus type, either every active bonus (stacking types)
// or only the largest one.
func (c *Character) bonusTotal(s *Stat) int64 {
	var total int64
	for _, typ := range s.BonusTypes() {
		var vals []int64
		for _, bn := range s.bonuses[typ] {
			if b, ok := c.bonuses[bn]; ok && b.active {
				vals = append(vals, b.Value())
			}
		}
		if len(vals) == 0 {
			continue
		}
		if c.policy.Stacks(typ) {
			for _, v := range vals {
				total += v
			}
		} else {
			total += slices.Max(vals)
		}
	}
	return total
}
