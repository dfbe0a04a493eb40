package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_KeyOrdering(t *testing.T) {
	obj := map[string]any{
		"may_contain": []string{"sesame"},
		"contains":    []string{"gluten"},
		"recipe_id":   "r-1",
	}

	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"contains":["gluten"],"may_contain":["sesame"],"recipe_id":"r-1"}`, string(data))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := map[string]any{
		"a": []string{"x", "y"},
		"b": map[string]any{"d": true, "c": int64(3)},
	}

	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical("fish & chips <fried>")
	require.NoError(t, err)
	assert.Equal(t, `"fish & chips <fried>"`, string(data))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) normalizes to U+00E9.
	decomposed := "créme"
	composed := "créme"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"quantity": 1.5})
	assert.Error(t, err)

	_, err = MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"v": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	data, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// A literal backslash followed by the text "u2028" stays escaped.
	data, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestCompareUTF16(t *testing.T) {
	assert.Negative(t, compareUTF16("a", "b"))
	assert.Positive(t, compareUTF16("b", "a"))
	assert.Zero(t, compareUTF16("abc", "abc"))
	assert.Negative(t, compareUTF16("ab", "abc"))
}
