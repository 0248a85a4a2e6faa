package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type views struct {
	Front *int `json:"front"`
	Back  *int `json:"back"`
}

func TestDecode_Strict(t *testing.T) {
	var v views
	require.NoError(t, Decode(`{"front": 0, "back": 1}`, &v))
	require.NotNil(t, v.Front)
	assert.Equal(t, 0, *v.Front)
	assert.Equal(t, 1, *v.Back)
}

func TestDecode_WrappedInProse(t *testing.T) {
	var v views
	text := "Sure! Here is the result:\n```json\n{\"front\": 1, \"back\": null}\n```\nLet me know."
	require.NoError(t, Decode(text, &v))
	require.NotNil(t, v.Front)
	assert.Equal(t, 1, *v.Front)
	assert.Nil(t, v.Back)
}

func TestDecode_NoObject(t *testing.T) {
	var v views
	assert.ErrorIs(t, Decode("I could not tell which view is which.", &v), ErrNoJSONObject)
	assert.Error(t, Decode("{broken", &v))
}

func TestExtractObject(t *testing.T) {
	got, ok := ExtractObject(`x {"a": {"b": 1}} y`)
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, got)

	_, ok = ExtractObject("} {")
	assert.False(t, ok)
}
