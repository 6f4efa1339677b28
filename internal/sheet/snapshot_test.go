package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	c := newHero(t, "10+$dex")
	// attached before its dependency in a later step, so attach order is not dependency order
	require.NoError(t, c.AddStat(NewStat("str", "14")))
	require.NoError(t, c.SetFormula("dexterity", "10+$str"))
	require.NoError(t, c.AddBonus(mustBonus(t, "belt", "2", []string{"dexterity"}, WithType("enhancement"))))
	require.NoError(t, c.AddBonus(mustBonus(t, "vs_orcs", "1", []string{"ac"}, WithCondition("vs orcs"), WithText("from the temple"))))
	require.NoError(t, c.AddEffect(mustEffect(t, c, "belt_effect", []string{"belt"}, "1hr", Auto)))
	_, err := c.Advance(100)
	require.NoError(t, err)
	require.NoError(t, c.AddText(NewText("notes", "line one\nline two")))

	records := c.Snapshot()
	require.Len(t, records, 4+2+1+1)
	var stats []string
	for _, r := range records {
		if r.Kind == KindStat {
			stats = append(stats, r.Fields[0])
		}
	}
	assert.Equal(t, []string{"str", "dexterity", "dex", "ac"}, stats)

	got, err := Restore("hero", testRules(), records)
	require.NoError(t, err)

	for _, name := range c.StatNames() {
		want := mustStat(t, c, name)
		have := mustStat(t, got, name)
		assert.Equal(t, want.Value(), have.Value(), name)
		assert.Equal(t, want.Normal(), have.Normal(), name)
		assert.Equal(t, want.Formula(), have.Formula(), name)
		assert.True(t, want.Updated().Equal(have.Updated()), name)
	}

	b, ok := got.Bonus("vs_orcs")
	require.True(t, ok)
	assert.False(t, b.Active())
	assert.Equal(t, "from the temple", b.Text())

	e, ok := got.Effect("belt_effect")
	require.True(t, ok)
	assert.Equal(t, int64(600), e.Duration().Original())
	assert.Equal(t, int64(500), e.Duration().Rounds())

	text, ok := got.Text("notes")
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", text.Full())
}

func TestRestore_BadRecord(t *testing.T) {
	_, err := Restore("hero", nil, []Record{{Kind: KindStat, Fields: []string{"ac", "$dex", "", "False", ""}}})
	assert.ErrorIs(t, err, ErrFormula)

	_, err = Restore("hero", nil, []Record{{Kind: "spell", Fields: nil}})
	assert.Error(t, err)
}

func TestStatSaveLoad(t *testing.T) {
	s := NewStat("_ac_dex", "$dex")
	s.SetText("dex bonus to ac")

	got, err := LoadStat(s.Save())
	require.NoError(t, err)
	assert.Equal(t, "_ac_dex", got.Name())
	assert.Equal(t, "$dex", got.Formula())
	assert.Equal(t, "dex bonus to ac", got.Text())
	assert.True(t, got.Protected())
	assert.True(t, s.Updated().Equal(got.Updated()))
}

func TestStatCopy(t *testing.T) {
	s := NewStat("ac", "10+$dex")
	s.SetText("armor class")

	name, f := "ac_touch", "10"
	c := s.Copy(CopyOptions{Name: &name, Formula: &f})
	assert.Equal(t, "ac_touch", c.Name())
	assert.Equal(t, "10", c.Formula())
	assert.Equal(t, "armor class", c.Text())
	assert.False(t, c.Attached())
}
