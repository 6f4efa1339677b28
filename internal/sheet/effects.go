package sheet

import (
	"log/slog"
)

// AddEffect registers e with each of its bonuses. An effect created forced on
// or off switches its bonuses immediately.
func (c *Character) AddEffect(e *Effect) error {
	if err := c.structural(e.name); err != nil {
		return err
	}
	if _, ok := c.effects[e.name]; ok || e.attached {
		return newError(ErrDuplicate, e.name, "effect exists")
	}
	for _, bn := range e.bonuses {
		if _, ok := c.bonuses[bn]; !ok {
			return newError(ErrNotAttached, e.name, "bonus %s is not attached", bn)
		}
	}

	c.effects[e.name] = e
	c.effectOrder = append(c.effectOrder, e.name)
	e.attached = true
	for _, bn := range e.bonuses {
		c.bonuses[bn].usedby[e.name] = struct{}{}
	}

	var err error
	switch e.active {
	case ForcedOn:
		err = c.switchBonuses(e.bonuses, true, true)
	case ForcedOff:
		err = c.switchBonuses(e.bonuses, false, false)
	}
	if err != nil {
		return err
	}

	slog.Debug("effect attached", "character", c.name, "effect", e.name, "state", e.active.String())
	return nil
}

// RemoveEffect detaches an effect and switches its bonuses off unless another
// active effect still claims them.
func (c *Character) RemoveEffect(name string) (*Effect, error) {
	if err := c.structural(name); err != nil {
		return nil, err
	}
	e, ok := c.effects[name]
	if !ok {
		return nil, notAttached("effect", name)
	}

	for _, bn := range e.bonuses {
		if b, ok := c.bonuses[bn]; ok {
			delete(b.usedby, name)
		}
	}
	delete(c.effects, name)
	c.effectOrder = without(c.effectOrder, name)
	e.attached = false

	slog.Debug("effect detached", "character", c.name, "effect", name)
	return e, c.switchBonuses(e.bonuses, false, false)
}

// ToggleEffect forces an effect on or off. Its bonuses follow regardless of
// other effects sharing them.
func (c *Character) ToggleEffect(name string, on bool) error {
	return c.SetActivity(name, activityOf(on))
}

func (c *Character) EffectOn(name string) error  { return c.ToggleEffect(name, true) }
func (c *Character) EffectOff(name string) error { return c.ToggleEffect(name, false) }

// SetActivity sets the tri-state of an effect. Auto hands control back to the
// duration and switches the bonuses to match it.
func (c *Character) SetActivity(name string, a Activity) error {
	e, ok := c.effects[name]
	if !ok {
		return notAttached("effect", name)
	}
	e.last = e.active
	e.active = a

	slog.Debug("effect toggled", "character", c.name, "effect", name, "state", a.String())
	return c.switchBonuses(e.bonuses, e.IsActive(), true)
}

// RevertEffect restores the previous state of an effect and reverts each of
// its bonuses, leaving bonuses that did not change alone.
func (c *Character) RevertEffect(name string) error {
	e, ok := c.effects[name]
	if !ok {
		return notAttached("effect", name)
	}
	e.active, e.last = e.last, e.active

	var changed []string
	for _, bn := range e.bonuses {
		if b, ok := c.bonuses[bn]; ok && c.revertBonus(b) {
			changed = append(changed, bn)
		}
	}
	return c.recalcNames(c.targets(changed))
}

// Advance moves every effect forward by rounds and returns the names of the
// effects that expired. Bonuses of an expired effect are switched off unless
// another active effect still claims them.
func (c *Character) Advance(rounds int64) ([]string, error) {
	var expired []string
	for _, en := range c.effectOrder {
		e := c.effects[en]
		was := e.IsActive()
		e.duration.Advance(rounds)
		if e.active == Auto && was && !e.IsActive() {
			expired = append(expired, en)
		}
	}

	// durations move first so claims see the new state
	for _, en := range expired {
		e := c.effects[en]
		slog.Info("effect expired", "character", c.name, "effect", en)
		if err := c.switchBonuses(e.bonuses, false, false); err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// ResetEffect restarts the duration of an effect. An Auto effect that comes
// back to life switches its bonuses on.
func (c *Character) ResetEffect(name string) error {
	e, ok := c.effects[name]
	if !ok {
		return notAttached("effect", name)
	}
	was := e.IsActive()
	e.duration.Reset()
	if e.active != Auto || was || !e.IsActive() {
		return nil
	}
	return c.switchBonuses(e.bonuses, true, true)
}

// switchBonuses sets each bonus and recalculates the union of their stats in
// one pass. Without force a bonus claimed by an active effect is not switched off.
func (c *Character) switchBonuses(names []string, on, force bool) error {
	var changed []string
	for _, bn := range names {
		b, ok := c.bonuses[bn]
		if !ok {
			continue
		}
		if !on && !force && c.claimed(b) {
			continue
		}
		if c.setBonus(b, on) {
			changed = append(changed, bn)
		}
	}
	return c.recalcNames(c.targets(changed))
}
