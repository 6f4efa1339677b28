package sheet

import (
	"fmt"
	"slices"
	"strings"
)

// String renders a bonus as `[+] NAME +4 ac,ac_ff (armor) ? vs traps`.
func (b *Bonus) String() string { return b.format(true, true) }

func (b *Bonus) format(name, stats bool) string {
	var sb strings.Builder
	if b.active {
		sb.WriteString("[+]")
	} else {
		sb.WriteString("[-]")
	}
	if name {
		sb.WriteString(" " + b.name)
	}
	sign := ""
	if b.rolled >= 0 {
		sign = "+"
	}
	fmt.Fprintf(&sb, " %s%d", sign, b.rolled)
	if stats {
		sb.WriteString(" " + strings.Join(b.stats, ","))
	}
	fmt.Fprintf(&sb, " (%s)", b.typ)
	if b.condition != "" {
		sb.WriteString(" ? " + b.condition)
	}
	return sb.String()
}

// Detail lists every field of a bonus, one per line.
func (b *Bonus) Detail() string {
	revert := "change"
	if b.last == b.active {
		revert = "same"
	}
	lines := []string{
		fmt.Sprintf("  value | %d", b.rolled),
		fmt.Sprintf(" active | %t", b.active),
		fmt.Sprintf("   type | %s", b.typ),
		fmt.Sprintf(" revert | %s", revert),
		fmt.Sprintf("  stats | %s", strings.Join(slices.Sorted(slices.Values(b.stats)), ",")),
		fmt.Sprintf("conditn | %s", b.condition),
		fmt.Sprintf("   text | %s", b.text),
	}
	return strings.Join(lines, "\n")
}

// StatLine renders `rl  13 ac (b:1/2 ?:0/1)`: root and leaf flags, value, name
// and active/total counts of unconditional and conditional bonuses. With
// conditions set, each conditional bonus follows on its own indented line.
func (c *Character) StatLine(name string, conditions bool) (string, error) {
	s, ok := c.stats[name]
	if !ok {
		return "", notAttached("stat", name)
	}
	plain, conds, err := c.Bonuses(name)
	if err != nil {
		return "", err
	}

	flags := []byte("--")
	if s.root {
		flags[0] = 'r'
	}
	if s.leaf {
		flags[1] = 'l'
	}

	line := fmt.Sprintf("%s %3d %s (b:%d/%d ?:%d/%d)", flags, s.value, s.name,
		countActive(plain), len(plain), countActive(conds), len(conds))
	if conditions {
		for _, a := range conds {
			line += "\n  " + a.Bonus.format(true, false)
		}
	}
	return line, nil
}

// StatDetail lists a stat's value, formula, every bonus that reaches it and
// its graph neighbours. Bonuses on other stats are prefixed with `<stat>`.
func (c *Character) StatDetail(name string) (string, error) {
	s, ok := c.stats[name]
	if !ok {
		return "", notAttached("stat", name)
	}
	plain, conds, err := c.Bonuses(name)
	if err != nil {
		return "", err
	}

	lines := []string{
		fmt.Sprintf("  value | %d", s.value),
		fmt.Sprintf("formula | %s", s.original),
	}
	lines = append(lines, bonusLines("  bonus", s.name, plain)...)
	lines = append(lines, bonusLines(" bonus?", s.name, conds)...)
	lines = append(lines,
		fmt.Sprintf(" normal | %d", s.normal),
		fmt.Sprintf("   uses | %s", strings.Join(s.Uses(), ",")),
		fmt.Sprintf("used by | %s", strings.Join(s.UsedBy(), ",")),
		fmt.Sprintf("   text | %s", s.text),
	)
	return strings.Join(lines, "\n"), nil
}

// EffectLine renders `{+} NAME 3rd (bonus,bonus)`. The flag is + when every
// bonus is on, ? when some are and - when none are.
func (c *Character) EffectLine(name string) (string, error) {
	e, ok := c.effects[name]
	if !ok {
		return "", notAttached("effect", name)
	}
	on := c.activeBonuses(e)
	flag := "?"
	switch on {
	case len(e.bonuses):
		flag = "+"
	case 0:
		flag = "-"
	}
	return fmt.Sprintf("{%s} %s %s (%s)", flag, e.name, e.duration, strings.Join(e.bonuses, ",")), nil
}

// EffectDetail lists an effect's duration, its bonuses and its state.
func (c *Character) EffectDetail(name string) (string, error) {
	e, ok := c.effects[name]
	if !ok {
		return "", notAttached("effect", name)
	}
	lines := []string{fmt.Sprintf("duration | %s", e.duration)}
	for _, bn := range e.bonuses {
		if b, ok := c.bonuses[bn]; ok {
			lines = append(lines, " bonuses | "+b.String())
		}
	}
	lines = append(lines,
		fmt.Sprintf("  active | %d/%d (init: %s)", c.activeBonuses(e), len(e.bonuses), e.active),
		"    text | "+e.text,
	)
	return strings.Join(lines, "\n"), nil
}

func (c *Character) activeBonuses(e *Effect) int {
	n := 0
	for _, bn := range e.bonuses {
		if b, ok := c.bonuses[bn]; ok && b.active {
			n++
		}
	}
	return n
}

func bonusLines(label, self string, applied []Applied) []string {
	out := make([]string, 0, len(applied))
	for _, a := range applied {
		owner := ""
		if a.Stat != self {
			owner = "<" + a.Stat + "> "
		}
		out = append(out, fmt.Sprintf("%s | %s%s", label, owner, a.Bonus.format(true, false)))
	}
	slices.Sort(out)
	return out
}

func countActive(applied []Applied) int {
	n := 0
	for _, a := range applied {
		if a.Bonus.active {
			n++
		}
	}
	return n
}
