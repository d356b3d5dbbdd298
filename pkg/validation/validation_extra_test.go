package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorHex(t *testing.T) {
	v := New()
	rgb, err := v.Color("color", "#FF0000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rgb[0], 1e-9)
	assert.InDelta(t, 0.0, rgb[1], 1e-9)
	assert.InDelta(t, 0.0, rgb[2], 1e-9)
}

func TestColorTuple(t *testing.T) {
	v := New()
	rgb, err := v.Color("color", []float64{1.0, 0.5, 0.0})
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1.0, 0.5, 0.0}, rgb)
}

func TestColorInvalidHex(t *testing.T) {
	v := New()
	_, err := v.Color("color", "FF0000")
	assert.Error(t, err)
}

func TestPositionBoundary(t *testing.T) {
	v := New()
	_, err := v.Position("position", []float64{0, 0}, 3, nil)
	assert.Error(t, err)

	_, err = v.Position("position", []float64{0, 0, 0, 0}, 3, nil)
	assert.Error(t, err)

	p, err := v.Position("position", []float64{1, 2, 3}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, p)
}

func TestScaleMinComponent(t *testing.T) {
	v := New()
	min := 0.1
	_, err := v.Position("scale", []float64{0.09, 1, 1}, 3, &min)
	assert.Error(t, err)

	p, err := v.Position("scale", []float64{0.1, 1, 1}, 3, &min)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p[0])
}

func TestScenePath(t *testing.T) {
	v := New()
	_, err := v.ScenePath("path", "no_leading_slash")
	assert.Error(t, err)

	p, err := v.ScenePath("path", "/World/cube")
	require.NoError(t, err)
	assert.Equal(t, "/World/cube", p)
}

func TestDangerousShellChars(t *testing.T) {
	v := New()
	_, err := v.String("cmd", "rm -rf $(whoami)", 0, 100, "", "shell", false)
	assert.Error(t, err)
}

func TestBoolForms(t *testing.T) {
	v := New()
	for _, in := range []any{"true", "1", "yes", "on", true} {
		b, err := v.Bool("flag", in)
		require.NoError(t, err)
		assert.True(t, b)
	}
	for _, in := range []any{"false", "0", "no", "off", false} {
		b, err := v.Bool("flag", in)
		require.NoError(t, err)
		assert.False(t, b)
	}
}

func TestDimensionBoundaries(t *testing.T) {
	v := New()
	min, max := 1.0, 7680.0
	_, err := v.Numeric("width", 0, &min, &max)
	assert.Error(t, err)
	_, err = v.Numeric("width", 7681, &min, &max)
	assert.Error(t, err)
	_, err = v.Numeric("width", 1, &min, &max)
	assert.NoError(t, err)
	_, err = v.Numeric("width", 7680, &min, &max)
	assert.NoError(t, err)
}

func TestBatchAggregatesErrors(t *testing.T) {
	v := New()
	err := v.Batch([]BatchCheck{
		{Field: "a", Run: func() error { _, e := v.ScenePath("a", "bad"); return e }},
		{Field: "b", Run: func() error { _, e := v.ScenePath("b", "/ok"); return e }},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a:")
}
