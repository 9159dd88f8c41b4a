package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{
			name:     "unit vector remains unchanged",
			input:    []float32{1.0, 0.0, 0.0},
			expected: []float32{1.0, 0.0, 0.0},
		},
		{
			name:     "scale non-unit vector",
			input:    []float32{3.0, 4.0},
			expected: []float32{0.6, 0.8},
		},
		{
			name:     "negative values",
			input:    []float32{-1.0, 1.0},
			expected: []float32{-1.0 / float32(math.Sqrt(2)), 1.0 / float32(math.Sqrt(2))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			require.Len(t, result, len(tt.expected))
			for i := range result {
				assert.InDelta(t, tt.expected[i], result[i], 1e-6, "element %d", i)
			}
			assert.InDelta(t, 1.0, Magnitude(result), 1e-6)
		})
	}
}

func TestNormalizeVector_DoesNotAlias(t *testing.T) {
	input := []float32{3, 4}
	result := NormalizeVector(input)
	result[0] = 42
	assert.Equal(t, float32(3), input[0])
}

func TestNormalizeVector_ZeroAndEmpty(t *testing.T) {
	assert.Equal(t, []float32{0, 0, 0}, NormalizeVector([]float32{0, 0, 0}))
	assert.Empty(t, NormalizeVector(nil))
}
