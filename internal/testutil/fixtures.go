package testutil

import (
	"testing"

	"github.com/udisondev/charsheet/internal/ruleset"
	"github.com/udisondev/charsheet/internal/sheet"
)

// Fixtures holds shared test data.
var Fixtures = struct {
	System    string
	Character string
	Seed      uint64

	// SystemYAML is a small valid system definition.
	SystemYAML string
}{
	System:    "pathfinder",
	Character: "valeros",
	Seed:      42,
	SystemYAML: `name: tiny
bonus_types: [armor, dodge]
stacking: [dodge]
stats:
  - {name: dexterity, formula: "14"}
  - {name: dex, formula: "($dexterity-10)/2"}
  - {name: ac, formula: "10+$dex"}
`,
}

// NewHero builds the fixture character on the built-in system with a chain
// shirt, a conditional dodge bonus, a timed effect and a note attached.
func NewHero(tb testing.TB) *sheet.Character {
	tb.Helper()

	sys, err := ruleset.Builtin(Fixtures.System)
	if err != nil {
		tb.Fatalf("loading system: %v", err)
	}
	c, err := sys.NewCharacter(Fixtures.Character, sheet.WithSeed(Fixtures.Seed))
	if err != nil {
		tb.Fatalf("building character: %v", err)
	}
	must := func(err error) {
		tb.Helper()
		if err != nil {
			tb.Fatalf("building character: %v", err)
		}
	}

	must(c.SetFormula("dexterity", "16"))
	armor, err := sheet.NewBonus("chain_shirt", "4", []string{"_ac_armor"}, sheet.WithType("armor"))
	must(err)
	must(c.AddBonus(armor))
	dodge, err := sheet.NewBonus("mobility", "4", []string{"ac"}, sheet.WithType("dodge"), sheet.WithCondition("vs attacks of opportunity"))
	must(err)
	must(c.AddBonus(dodge))
	haste, err := sheet.NewBonus("haste_ac", "1", []string{"ac", "ref"}, sheet.WithType("dodge"))
	must(err)
	must(c.AddBonus(haste))
	d, err := c.ParseDuration("1/CL")
	must(err)
	e, err := sheet.NewEffect("haste", []string{"haste_ac"}, d, "from a wand", sheet.Auto)
	must(err)
	must(c.AddEffect(e))
	must(c.AddText(sheet.NewText("notes", "fighter\nlikes swords")))
	return c
}
