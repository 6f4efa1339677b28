package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEffect(t *testing.T, c *Character, name string, bonuses []string, dur string, a Activity) *Effect {
	t.Helper()
	d, err := c.ParseDuration(dur)
	require.NoError(t, err)
	e, err := NewEffect(name, bonuses, d, "", a)
	require.NoError(t, err)
	return e
}

// newHasted attaches a dodge bonus to ac shared by a short and a long effect.
func newHasted(t *testing.T) (*Character, *Bonus) {
	t.Helper()
	c := newHero(t, "10+$dex")
	b := mustBonus(t, "haste_ac", "1", []string{"ac"}, WithType("dodge"))
	require.NoError(t, c.AddBonus(b))
	require.NoError(t, c.AddEffect(mustEffect(t, c, "haste", []string{"haste_ac"}, "2", Auto)))
	require.NoError(t, c.AddEffect(mustEffect(t, c, "blessing", []string{"haste_ac"}, "5", Auto)))
	return c, b
}

func TestAddEffect(t *testing.T) {
	c, b := newHasted(t)
	assert.Equal(t, []string{"blessing", "haste"}, b.UsedBy())
	assert.Equal(t, int64(14), mustStat(t, c, "ac").Value())

	err := c.AddEffect(mustEffect(t, c, "haste", []string{"haste_ac"}, "1", Auto))
	assert.ErrorIs(t, err, ErrDuplicate)

	err = c.AddEffect(mustEffect(t, c, "ghost", []string{"missing"}, "1", Auto))
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestAddEffect_ForcedState(t *testing.T) {
	c := newHero(t, "10")
	b := mustBonus(t, "bless", "1", []string{"ac"}, WithCondition("vs fear"))
	require.NoError(t, c.AddBonus(b))
	assert.False(t, b.Active())

	require.NoError(t, c.AddEffect(mustEffect(t, c, "bless_spell", []string{"bless"}, "1min", ForcedOn)))
	assert.True(t, b.Active())
	assert.Equal(t, int64(11), mustStat(t, c, "ac").Value())

	require.NoError(t, c.AddEffect(mustEffect(t, c, "dispel", []string{"bless"}, "1", ForcedOff)))
	assert.True(t, b.Active(), "still claimed by an active effect")
}

func TestSharedBonus_OffIsClaimed(t *testing.T) {
	c, b := newHasted(t)

	require.NoError(t, c.Off("haste_ac", false))
	assert.True(t, b.Active(), "claimed by active effects")

	require.NoError(t, c.Off("haste_ac", true))
	assert.False(t, b.Active())
	assert.Equal(t, int64(13), mustStat(t, c, "ac").Value())
}

func TestToggleEffect_IsAuthoritative(t *testing.T) {
	c, b := newHasted(t)

	require.NoError(t, c.EffectOff("haste"))
	e, _ := c.Effect("haste")
	assert.Equal(t, ForcedOff, e.State())
	assert.False(t, e.IsActive())
	assert.False(t, b.Active(), "explicit effect toggle bypasses sharing")
	assert.Equal(t, int64(13), mustStat(t, c, "ac").Value())

	require.NoError(t, c.RevertEffect("haste"))
	assert.Equal(t, Auto, e.State())
	assert.True(t, b.Active())
	assert.Equal(t, int64(14), mustStat(t, c, "ac").Value())

	require.NoError(t, c.EffectOn("haste"))
	assert.True(t, e.IsActive())
	assert.ErrorIs(t, c.EffectOn("nope"), ErrNotAttached)
}

func TestAdvance_ExpiresEffects(t *testing.T) {
	c, b := newHasted(t)

	expired, err := c.Advance(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"haste"}, expired)
	assert.True(t, b.Active(), "blessing still claims the bonus")

	expired, err = c.Advance(1)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = c.Advance(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"blessing"}, expired)
	assert.False(t, b.Active())
	assert.Equal(t, int64(13), mustStat(t, c, "ac").Value())

	expired, err = c.Advance(10)
	require.NoError(t, err)
	assert.Empty(t, expired, "expiry is reported once")
}

func TestAdvance_ForcedEffectIgnoresDuration(t *testing.T) {
	c, b := newHasted(t)
	require.NoError(t, c.EffectOn("haste"))

	expired, err := c.Advance(100)
	require.NoError(t, err)
	assert.Equal(t, []string{"blessing"}, expired)
	assert.True(t, b.Active(), "haste is forced on")
}

func TestResetEffect(t *testing.T) {
	c, b := newHasted(t)
	_, err := c.Advance(5)
	require.NoError(t, err)
	require.False(t, b.Active())

	require.NoError(t, c.ResetEffect("haste"))
	e, _ := c.Effect("haste")
	assert.Equal(t, int64(2), e.Duration().Rounds())
	assert.True(t, b.Active())
	assert.Equal(t, int64(14), mustStat(t, c, "ac").Value())
}

func TestRemoveEffect(t *testing.T) {
	c, b := newHasted(t)

	e, err := c.RemoveEffect("haste")
	require.NoError(t, err)
	assert.False(t, e.Attached())
	assert.Equal(t, []string{"blessing"}, b.UsedBy())
	assert.True(t, b.Active(), "blessing still claims the bonus")

	_, err = c.RemoveEffect("blessing")
	require.NoError(t, err)
	assert.False(t, b.Active())
	assert.Equal(t, int64(13), mustStat(t, c, "ac").Value())

	_, err = c.RemoveEffect("blessing")
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestEffectDuration_FromCasterLevel(t *testing.T) {
	c := newHero(t, "10")
	require.NoError(t, c.AddStat(NewStat("caster_level", "6")))
	require.NoError(t, c.AddBonus(mustBonus(t, "shield_spell", "4", []string{"ac"}, WithType("armor"))))

	e := mustEffect(t, c, "shield", []string{"shield_spell"}, "1min/CL", Auto)
	require.NoError(t, c.AddEffect(e))
	assert.Equal(t, int64(60), e.Duration().Rounds())

	// durations are fixed at creation
	require.NoError(t, c.SetFormula("caster_level", "10"))
	assert.Equal(t, int64(60), e.Duration().Rounds())
}
