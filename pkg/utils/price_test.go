package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := map[string]float64{
		"":          0,
		"$18.00":    18,
		"$1,299.99": 1299.99,
		" 42 ":      42,
		"USD 7.5":   7.5,
		"free":      0,
		"...":       0,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParsePrice(in), in)
	}
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 29.99, Float(29.99))
	assert.Equal(t, 3.0, Float(3))
	assert.Equal(t, 12.5, Float(json.Number("12.5")))
	assert.Equal(t, 18.0, Float("$18.00"))
	assert.Zero(t, Float(math.NaN()))
	assert.Zero(t, Float(math.Inf(1)))
	assert.Zero(t, Float(nil))
	assert.Zero(t, Float([]any{1}))
}

func TestOptionalFloat(t *testing.T) {
	assert.Nil(t, OptionalFloat(nil))
	assert.Nil(t, OptionalFloat(map[string]any{}))
	if got := OptionalFloat("9.5"); assert.NotNil(t, got) {
		assert.Equal(t, 9.5, *got)
	}
}

func TestInt(t *testing.T) {
	assert.Equal(t, 25, Int(25.0))
	assert.Equal(t, 3, Int("3"))
	assert.Zero(t, Int(-4.0))
	assert.Zero(t, Int(true))
}

func TestBool(t *testing.T) {
	assert.True(t, Bool(true))
	assert.True(t, Bool("true"))
	assert.False(t, Bool("false"))
	assert.False(t, Bool("yes"))
	assert.False(t, Bool(1.0))
	assert.False(t, Bool(nil))
}

func TestString(t *testing.T) {
	assert.Equal(t, "abc", String("abc"))
	assert.Equal(t, "1003", String(1003.0))
	assert.Equal(t, "7", String(7))
	assert.Equal(t, "true", String(true))
	assert.Equal(t, "", String(nil))
	assert.Equal(t, "", String(map[string]any{"a": 1}))
}

func TestList(t *testing.T) {
	assert.Equal(t, []string{"XS", "S", "M"}, List("XS, S,,M "))
	assert.Equal(t, []string{"grey", "navy"}, List([]any{"grey", nil, map[string]any{}, "navy"}))
	assert.Equal(t, []string{"38", "40.5", "M"}, List([]any{38.0, 40.5, "M"}))
	assert.Equal(t, []string{"a"}, List([]string{"a"}))
	assert.Equal(t, []string{}, List(nil))
	assert.Equal(t, []string{}, List(""))
}
