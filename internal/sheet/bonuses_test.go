package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBonus(t *testing.T, name, value string, stats []string, opts ...BonusOption) *Bonus {
	t.Helper()
	b, err := NewBonus(name, value, stats, opts...)
	require.NoError(t, err)
	return b
}

func TestAddBonus_BaselineAndValue(t *testing.T) {
	c := newHero(t, "10+#dex")

	require.NoError(t, c.AddBonus(mustBonus(t, "mage_armor", "4", []string{"ac"}, WithType("armor"))))
	ac := mustStat(t, c, "ac")
	assert.Equal(t, int64(17), ac.Value())
	assert.Equal(t, int64(13), ac.Normal())

	require.NoError(t, c.Off("mage_armor", false))
	assert.Equal(t, int64(13), ac.Value())

	require.NoError(t, c.On("mage_armor"))
	assert.Equal(t, int64(17), ac.Value())
}

func TestAddBonus_NormalReference(t *testing.T) {
	tests := []struct {
		name      string
		acFormula string
		wantAC    int64
	}{
		{"baseline reference ignores upstream bonus", "10+#dex", 13},
		{"value reference follows upstream bonus", "10+$dex", 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newHero(t, tt.acFormula)
			require.NoError(t, c.AddBonus(mustBonus(t, "belt", "4", []string{"dexterity"}, WithType("enhancement"))))

			assert.Equal(t, int64(21), mustStat(t, c, "dexterity").Value())
			assert.Equal(t, int64(17), mustStat(t, c, "dexterity").Normal())
			assert.Equal(t, int64(5), mustStat(t, c, "dex").Value())
			assert.Equal(t, int64(3), mustStat(t, c, "dex").Normal())
			assert.Equal(t, tt.wantAC, mustStat(t, c, "ac").Value())
			assert.Equal(t, int64(13), mustStat(t, c, "ac").Normal())
		})
	}
}

func TestStacking(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		active bool
		want   int64
	}{
		{"stacking sums", "dodge", true, 10},
		{"non-stacking takes max", "armor", true, 5},
		{"inactive stacking adds nothing", "dodge", false, 0},
		{"inactive non-stacking adds nothing", "armor", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("hero", testRules())
			require.NoError(t, c.AddStat(NewStat("attack", "0")))
			for i, v := range []string{"2", "3", "5"} {
				b := mustBonus(t, string(rune('a'+i)), v, []string{"attack"}, WithType(tt.typ), WithActive(tt.active))
				require.NoError(t, c.AddBonus(b))
			}
			assert.Equal(t, tt.want, mustStat(t, c, "attack").Value())
		})
	}
}

func TestStacking_MixedTypes(t *testing.T) {
	c := New("hero", testRules())
	require.NoError(t, c.AddStat(NewStat("ac", "10")))
	require.NoError(t, c.AddBonus(mustBonus(t, "leather", "2", []string{"ac"}, WithType("armor"))))
	require.NoError(t, c.AddBonus(mustBonus(t, "chain", "5", []string{"ac"}, WithType("armor"))))
	require.NoError(t, c.AddBonus(mustBonus(t, "dodge1", "1", []string{"ac"}, WithType("dodge"))))
	require.NoError(t, c.AddBonus(mustBonus(t, "dodge2", "1", []string{"ac"}, WithType("dodge"))))
	require.NoError(t, c.AddBonus(mustBonus(t, "curse", "-2", []string{"ac"})))

	assert.Equal(t, int64(10+5+2-2), mustStat(t, c, "ac").Value())

	require.NoError(t, c.Off("chain", false))
	assert.Equal(t, int64(10+2+2-2), mustStat(t, c, "ac").Value())
}

func TestAddBonus_Errors(t *testing.T) {
	c := newHero(t, "10")

	err := c.AddBonus(mustBonus(t, "luck", "1", []string{"ac"}, WithType("luck")))
	assert.ErrorIs(t, err, ErrInvalidType)

	err = c.AddBonus(mustBonus(t, "str", "1", []string{"strength"}))
	assert.ErrorIs(t, err, ErrNotAttached)

	require.NoError(t, c.AddBonus(mustBonus(t, "ring", "1", []string{"ac"})))
	err = c.AddBonus(mustBonus(t, "ring", "2", []string{"ac"}))
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.Equal(t, []string{"ring"}, c.BonusNames())
	assert.Equal(t, int64(11), mustStat(t, c, "ac").Value())
}

func TestNewBonus(t *testing.T) {
	b := mustBonus(t, "shield", "2", []string{"ac", "ac", "ac_ff"}, WithType(" Shield "))
	assert.Equal(t, []string{"ac", "ac_ff"}, b.Stats())
	assert.Equal(t, "shield", b.Type())
	assert.True(t, b.Active())

	cond := mustBonus(t, "vs_orcs", "1", []string{"attack"}, WithCondition("vs orcs"))
	assert.False(t, cond.Active(), "conditional bonuses start off")
	assert.Equal(t, DefaultBonusType, cond.Type())

	forced := mustBonus(t, "vs_elves", "1", []string{"attack"}, WithCondition("vs elves"), WithActive(true))
	assert.True(t, forced.Active())

	_, err := NewBonus("", "1", []string{"ac"})
	assert.Error(t, err)
	_, err = NewBonus("x", "1", nil)
	assert.Error(t, err)
	_, err = NewBonus("x", "lots", []string{"ac"})
	assert.Error(t, err)
}

func TestPermanentBonus(t *testing.T) {
	c := newHero(t, "10+$dex")
	racial := mustBonus(t, "elf_dex", "2", []string{"dexterity"}, WithType("racial"), WithActive(false))
	require.NoError(t, c.AddBonus(racial))
	assert.True(t, racial.Active(), "forced on when attached")
	assert.Equal(t, int64(19), mustStat(t, c, "dexterity").Value())

	require.NoError(t, c.Off("elf_dex", true))
	assert.True(t, racial.Active())
	require.NoError(t, c.RevertBonus("elf_dex"))
	assert.True(t, racial.Active())
	assert.Equal(t, int64(19), mustStat(t, c, "dexterity").Value())

	// a conditional bonus of a permanent type still toggles
	cond := mustBonus(t, "elf_sleep", "2", []string{"dex"}, WithType("racial"), WithCondition("vs sleep"))
	require.NoError(t, c.AddBonus(cond))
	assert.False(t, cond.Active())
	require.NoError(t, c.On("elf_sleep"))
	assert.True(t, cond.Active())
}

func TestRevertBonus(t *testing.T) {
	c := newHero(t, "10")
	b := mustBonus(t, "ring", "1", []string{"ac"})
	require.NoError(t, c.AddBonus(b))

	require.NoError(t, c.Off("ring", false))
	assert.Equal(t, int64(10), mustStat(t, c, "ac").Value())
	assert.True(t, b.Last())

	require.NoError(t, c.RevertBonus("ring"))
	assert.True(t, b.Active())
	assert.Equal(t, int64(11), mustStat(t, c, "ac").Value())

	assert.ErrorIs(t, c.RevertBonus("nope"), ErrNotAttached)
}

func TestRemoveBonus(t *testing.T) {
	c := newHero(t, "10")
	b := mustBonus(t, "ring", "1", []string{"ac", "dex"})
	require.NoError(t, c.AddBonus(b))
	require.NoError(t, c.AddEffect(mustEffect(t, c, "spell", []string{"ring"}, "10", Auto)))

	_, err := c.RemoveBonus("ring", DetachStrict)
	require.ErrorIs(t, err, ErrDependency)

	got, err := c.RemoveBonus("ring", DetachRecursive)
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.False(t, b.Attached())
	assert.Empty(t, c.EffectNames(), "effect left without bonuses is removed")
	assert.Equal(t, int64(10), mustStat(t, c, "ac").Value())
	assert.Equal(t, int64(3), mustStat(t, c, "dex").Value())
	assert.Empty(t, mustStat(t, c, "ac").BonusTypes())
}

func TestDiceBonus(t *testing.T) {
	c := newHero(t, "10")
	b := mustBonus(t, "rage", "1d6", []string{"ac"})
	require.NoError(t, c.AddBonus(b))
	require.True(t, b.IsDice())

	first := b.Value()
	assert.GreaterOrEqual(t, first, int64(1))
	assert.LessOrEqual(t, first, int64(6))
	assert.Equal(t, 10+first, mustStat(t, c, "ac").Value())

	require.NoError(t, c.Calc("ac"))
	assert.Equal(t, 10+first, mustStat(t, c, "ac").Value(), "calc does not reroll")

	v, err := c.Reroll("rage")
	require.NoError(t, err)
	assert.Equal(t, v, b.Value())
	assert.Equal(t, 10+v, mustStat(t, c, "ac").Value())
}

func TestDiceBonus_Seeded(t *testing.T) {
	roll := func() int64 {
		c := newHero(t, "10")
		b := mustBonus(t, "rage", "3d6", []string{"ac"})
		require.NoError(t, c.AddBonus(b))
		return b.Value()
	}
	assert.Equal(t, roll(), roll())
}
