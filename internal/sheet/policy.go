package sheet

import "strings"

// Policy is the game-system configuration the engine consults for bonuses.
type Policy interface {
	// AllowsType reports whether typ may be attached at all.
	AllowsType(typ string) bool
	// Stacks reports whether active bonuses of typ sum instead of taking the max.
	Stacks(typ string) bool
	// Permanent reports whether unconditional bonuses of typ can never be switched off.
	Permanent(typ string) bool
}

// Rules is a set-based Policy. An empty Types set allows every type.
type Rules struct {
	types     map[string]bool
	stacking  map[string]bool
	permanent map[string]bool
}

// NewRules builds a Policy from the allowed, stacking and permanent type lists.
func NewRules(types, stacking, permanent []string) Rules {
	return Rules{
		types:     toSet(types),
		stacking:  toSet(stacking),
		permanent: toSet(permanent),
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}

func (r Rules) AllowsType(typ string) bool { return len(r.types) == 0 || r.types[typ] }
func (r Rules) Stacks(typ string) bool     { return r.stacking[typ] }
func (r Rules) Permanent(typ string) bool  { return r.permanent[typ] }
