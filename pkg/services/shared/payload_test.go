package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloats3AcceptsJSONArrayForm(t *testing.T) {
	got, err := Floats3(map[string]any{"point": []any{5.0, 0.0, 2.0}}, "point")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{5, 0, 2}, got)
}

func TestFloats3AcceptsCommaSeparatedQueryStringForm(t *testing.T) {
	got, err := Floats3(map[string]any{"point": "5,0,2"}, "point")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{5, 0, 2}, got)
}

func TestFloats3AcceptsRepeatedQueryKeyStringSliceForm(t *testing.T) {
	got, err := Floats3(map[string]any{"point": []string{"5", "0", "2"}}, "point")
	require.NoError(t, err)
	assert.Equal(t, [3]float64{5, 0, 2}, got)
}

func TestFloats3RejectsWrongComponentCount(t *testing.T) {
	_, err := Floats3(map[string]any{"point": "5,0"}, "point")
	assert.Error(t, err)
}

func TestFloats3RejectsNonNumericComponent(t *testing.T) {
	_, err := Floats3(map[string]any{"point": "a,0,2"}, "point")
	assert.Error(t, err)
}
