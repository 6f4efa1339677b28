package sheet

import (
	"fmt"
	"slices"
)

// Kind tags a persisted record with the entity it holds.
type Kind string

const (
	KindStat   Kind = "stat"
	KindBonus  Kind = "bonus"
	KindEffect Kind = "effect"
	KindText   Kind = "text"
)

// Record is one persisted entity: its kind and its encoded fields.
type Record struct {
	Kind   Kind
	Fields []string
}

// Snapshot returns the character as ordered records. Stats come in dependency
// order so that replaying the records with Restore attaches each stat after
// everything it reads. Bonuses, effects and texts follow in attach order.
func (c *Character) Snapshot() []Record {
	out := make([]Record, 0, len(c.stats)+len(c.bonuses)+len(c.effects)+len(c.texts))
	for _, sn := range c.topoOrder() {
		out = append(out, Record{Kind: KindStat, Fields: c.stats[sn].Save()})
	}
	for _, bn := range c.bonusOrder {
		out = append(out, Record{Kind: KindBonus, Fields: c.bonuses[bn].Save()})
	}
	for _, en := range c.effectOrder {
		out = append(out, Record{Kind: KindEffect, Fields: c.effects[en].Save()})
	}
	for _, tn := range c.textOrder {
		out = append(out, Record{Kind: KindText, Fields: c.texts[tn].Save()})
	}
	return out
}

// Restore rebuilds a character from records produced by Snapshot. Dice
// bonuses are rolled again.
func Restore(name string, policy Policy, records []Record, opts ...Option) (*Character, error) {
	c := New(name, policy, opts...)
	for i, r := range records {
		if err := c.restore(r); err != nil {
			return nil, fmt.Errorf("restoring record %d (%s): %w", i, r.Kind, err)
		}
	}
	return c, nil
}

func (c *Character) restore(r Record) error {
	switch r.Kind {
	case KindStat:
		s, err := LoadStat(r.Fields)
		if err != nil {
			return err
		}
		updated := s.updated
		if err := c.AddStat(s); err != nil {
			return err
		}
		s.updated = updated
	case KindBonus:
		b, err := LoadBonus(r.Fields)
		if err != nil {
			return err
		}
		return c.AddBonus(b)
	case KindEffect:
		e, err := LoadEffect(r.Fields)
		if err != nil {
			return err
		}
		return c.AddEffect(e)
	case KindText:
		t, err := LoadText(r.Fields)
		if err != nil {
			return err
		}
		return c.AddText(t)
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	return nil
}

// topoOrder lists stats so that each comes after the stats it uses, keeping
// attach order among stats that are ready at the same time.
func (c *Character) topoOrder() []string {
	pending := make(map[string]int, len(c.stats))
	for _, sn := range c.statOrder {
		pending[sn] = len(c.stats[sn].uses)
	}

	order := make([]string, 0, len(c.statOrder))
	for len(order) < len(c.statOrder) {
		progressed := false
		for _, sn := range c.statOrder {
			if n, ok := pending[sn]; !ok || n > 0 {
				continue
			}
			delete(pending, sn)
			order = append(order, sn)
			progressed = true
			for _, d := range c.stats[sn].UsedBy() {
				if _, ok := pending[d]; ok {
					pending[d]--
				}
			}
		}
		if !progressed {
			// unreachable while cycles are rejected on attach
			for _, sn := range c.statOrder {
				if !slices.Contains(order, sn) {
					order = append(order, sn)
				}
			}
		}
	}
	return order
}
