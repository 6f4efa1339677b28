package fieldcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = Schema{
	{Name: "name", Kind: Plain},
	{Name: "stats", Kind: List},
	{Name: "cache", Kind: Skip},
	{Name: "active", Kind: Bool},
	{Name: "value", Kind: Plain},
}

func TestSchema_Width(t *testing.T) {
	assert.Equal(t, 4, testSchema.Width())
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	tokens := []string{"mage_armor", "ac,ac_ff", "True", "4"}

	r, err := testSchema.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, "mage_armor", r.Get("name"))
	assert.Equal(t, []string{"ac", "ac_ff"}, r.List("stats"))
	assert.True(t, r.Bool("active"))

	v, err := r.Int("value")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	assert.Equal(t, tokens, testSchema.Encode(r))
}

func TestDecode_BoolIsLiteral(t *testing.T) {
	for _, tok := range []string{"true", "1", "yes", "False", ""} {
		r, err := testSchema.Decode([]string{"x", "", tok, "0"})
		require.NoError(t, err)
		assert.False(t, r.Bool("active"), tok)
	}
}

func TestDecode_EmptyList(t *testing.T) {
	r, err := testSchema.Decode([]string{"x", "", "False", "0"})
	require.NoError(t, err)
	assert.Empty(t, r.List("stats"))
	assert.Equal(t, "", testSchema.Encode(r)[1])
}

func TestDecode_WrongWidth(t *testing.T) {
	_, err := testSchema.Decode([]string{"x", "y"})
	assert.ErrorIs(t, err, ErrShortRecord)

	_, err = testSchema.Decode([]string{"a", "b", "c", "d", "e"})
	assert.Error(t, err)
}
