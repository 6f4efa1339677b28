package sheet

import (
	"log/slog"
	"slices"
)

// AddBonus checks the bonus type against the policy, applies the bonus to each
// of its stats and recalculates them. Dice amounts are rolled here once.
func (c *Character) AddBonus(b *Bonus) error {
	if err := c.structural(b.name); err != nil {
		return err
	}
	if _, ok := c.bonuses[b.name]; ok || b.attached {
		return newError(ErrDuplicate, b.name, "bonus exists")
	}
	if !c.policy.AllowsType(b.typ) {
		return newError(ErrInvalidType, b.name, "type %q", b.typ)
	}
	for _, sn := range b.stats {
		if _, ok := c.stats[sn]; !ok {
			return newError(ErrNotAttached, b.name, "target stat %s is not attached", sn)
		}
	}

	if b.IsDice() {
		b.rolled = b.amount.Roll(c.rng)
	}
	if b.locked(c.policy) {
		b.active, b.last = true, true
	}

	c.bonuses[b.name] = b
	c.bonusOrder = append(c.bonusOrder, b.name)
	b.attached = true
	for _, sn := range b.stats {
		c.stats[sn].addBonus(b)
	}

	if err := c.recalcNames(b.stats); err != nil {
		c.dropBonus(b)
		if rerr := c.recalcNames(b.stats); rerr != nil {
			slog.Error("restoring stats failed", "character", c.name, "bonus", b.name, "err", rerr)
		}
		return err
	}

	slog.Debug("bonus attached", "character", c.name, "bonus", b.name, "value", b.rolled, "stats", b.stats)
	return nil
}

// RemoveBonus detaches a bonus and recalculates its former stats. Effects
// that reference the bonus are its dependents.
func (c *Character) RemoveBonus(name string, mode DetachMode) (*Bonus, error) {
	if err := c.structural(name); err != nil {
		return nil, err
	}
	b, ok := c.bonuses[name]
	if !ok {
		return nil, notAttached("bonus", name)
	}

	dependents := b.UsedBy()
	switch mode {
	case DetachStrict:
		if len(dependents) > 0 {
			return nil, &Error{Kind: ErrDependency, Name: name, Dependents: dependents}
		}
	case DetachRecursive:
		// effects lose this bonus; those left empty go away
		for _, en := range dependents {
			e, ok := c.effects[en]
			if !ok {
				continue
			}
			e.dropBonus(name)
			if len(e.bonuses) > 0 {
				continue
			}
			if _, err := c.RemoveEffect(en); err != nil {
				return nil, err
			}
		}
	case DetachForce:
		for _, en := range dependents {
			if e, ok := c.effects[en]; ok {
				e.dropBonus(name)
			}
		}
	}

	c.dropBonus(b)
	if err := c.recalcNames(b.stats); err != nil {
		return b, err
	}

	slog.Debug("bonus detached", "character", c.name, "bonus", name, "mode", mode)
	return b, nil
}

// Toggle switches a bonus and recalculates its stats. Unconditional bonuses
// of a permanent type ignore the request.
func (c *Character) Toggle(name string, on bool) error {
	b, ok := c.bonuses[name]
	if !ok {
		return notAttached("bonus", name)
	}
	if !c.setBonus(b, on) {
		return nil
	}
	slog.Debug("bonus toggled", "character", c.name, "bonus", name, "active", on)
	return c.recalcNames(b.stats)
}

// On switches a bonus on.
func (c *Character) On(name string) error { return c.Toggle(name, true) }

// Off switches a bonus off. Unless forced, a bonus still claimed by an active
// effect stays on.
func (c *Character) Off(name string, force bool) error {
	b, ok := c.bonuses[name]
	if !ok {
		return notAttached("bonus", name)
	}
	if !force && c.claimed(b) {
		return nil
	}
	return c.Toggle(name, false)
}

// RevertBonus swaps the active state of a bonus with its previous one.
func (c *Character) RevertBonus(name string) error {
	b, ok := c.bonuses[name]
	if !ok {
		return notAttached("bonus", name)
	}
	if !c.revertBonus(b) {
		return nil
	}
	return c.recalcNames(b.stats)
}

// Reroll rolls a dice bonus again and recalculates its stats.
func (c *Character) Reroll(name string) (int64, error) {
	b, ok := c.bonuses[name]
	if !ok {
		return 0, notAttached("bonus", name)
	}
	if !b.IsDice() {
		return b.rolled, nil
	}
	b.rolled = b.amount.Roll(c.rng)
	slog.Debug("bonus rerolled", "character", c.name, "bonus", name, "value", b.rolled)
	return b.rolled, c.recalcNames(b.stats)
}

// setBonus changes the state of b without recalculating. It reports whether
// anything changed.
func (c *Character) setBonus(b *Bonus, on bool) bool {
	if b.locked(c.policy) {
		return false
	}
	b.last = b.active
	if b.active == on {
		return false
	}
	b.active = on
	return true
}

func (c *Character) revertBonus(b *Bonus) bool {
	if b.active == b.last || b.locked(c.policy) {
		return false
	}
	b.active, b.last = b.last, b.active
	return true
}

// claimed reports whether any effect using b is currently active.
func (c *Character) claimed(b *Bonus) bool {
	for en := range b.usedby {
		if e, ok := c.effects[en]; ok && e.IsActive() {
			return true
		}
	}
	return false
}

// dropBonus unregisters b from the character and its stats.
func (c *Character) dropBonus(b *Bonus) {
	for _, sn := range b.stats {
		if s, ok := c.stats[sn]; ok {
			s.delBonus(b)
		}
	}
	delete(c.bonuses, b.name)
	c.bonusOrder = without(c.bonusOrder, b.name)
	b.attached = false
	b.usedby = make(map[string]struct{})
}

// targets returns the sorted union of stats touched by the named bonuses.
func (c *Character) targets(bonuses []string) []string {
	var out []string
	for _, bn := range bonuses {
		if b, ok := c.bonuses[bn]; ok {
			out = append(out, b.stats...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
