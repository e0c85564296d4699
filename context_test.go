package megatron

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	c := NewContext("b", "1", "a", "2", "c", "3")
	require.Equal(t, []string{"b", "a", "c"}, c.Keys())
	require.Equal(t, 3, c.Len())
	require.Equal(t, "{b=1, a=2, c=3}", c.String())
}

func TestContextWithIsNonDestructive(t *testing.T) {
	t.Parallel()
	c := NewContext(ClientKey, "1@h:n:u")
	d := c.With(CacheKey, "c1")

	require.False(t, c.Contains(CacheKey))
	require.True(t, d.Contains(CacheKey))
	require.True(t, d.Contains(ClientKey))

	v, ok := d.Get(CacheKey)
	require.True(t, ok)
	require.Equal(t, "c1", v)
}

func TestContextOverrideKeepsPosition(t *testing.T) {
	t.Parallel()
	c := NewContext("a", "1", "b", "2").With("a", "3")
	require.Equal(t, []string{"a", "b"}, c.Keys())
	v, _ := c.Get("a")
	require.Equal(t, "3", v)
}

func TestContextWithContextNeverLosesKeys(t *testing.T) {
	t.Parallel()
	c := NewContext("a", "1", "b", "2")
	merged := c.WithContext(NewContext("b", "x", "c", "3"))
	require.Equal(t, []string{"a", "b", "c"}, merged.Keys())
	for _, k := range c.Keys() {
		assert.True(t, merged.Contains(k), k)
	}
	v, _ := merged.Get("b")
	require.Equal(t, "x", v)
}

func TestContextZeroValue(t *testing.T) {
	t.Parallel()
	var c Context
	require.Equal(t, 0, c.Len())
	require.False(t, c.Contains("a"))
	require.Equal(t, []string{"a"}, c.With("a", "1").Keys())
}

func TestContextJSONPreservesOrder(t *testing.T) {
	t.Parallel()
	c := NewContext("z", "1", "a", "2")
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.JSONEq(t, `{"z":"1","a":"2"}`, string(data))
	require.Equal(t, `{"z":"1","a":"2"}`, string(data))

	var back Context
	require.NoError(t, json.Unmarshal([]byte(`{"y":"1","b":"2","m":"3"}`), &back))
	require.Equal(t, []string{"y", "b", "m"}, back.Keys())
}

func TestContextJSONRejectsNonStrings(t *testing.T) {
	t.Parallel()
	var c Context
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &c))
}
