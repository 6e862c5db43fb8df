package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateSMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		expected []float64
	}{
		{
			name:     "basic",
			values:   []float64{1, 2, 3, 4, 5},
			period:   3,
			expected: []float64{math.NaN(), math.NaN(), 2, 3, 4},
		},
		{
			name:     "period one is identity",
			values:   []float64{7, 8, 9},
			period:   1,
			expected: []float64{7, 8, 9},
		},
		{
			name:     "period longer than input",
			values:   []float64{1, 2},
			period:   5,
			expected: []float64{math.NaN(), math.NaN()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSMA(tt.values, tt.period)
			assertSeriesEqual(t, tt.expected, got)
		})
	}
}

func TestCalculateEMA(t *testing.T) {
	t.Run("constant series stays constant", func(t *testing.T) {
		values := []float64{42, 42, 42, 42, 42, 42, 42, 42}
		got := CalculateEMA(values, 3)
		for i, v := range got {
			if i < 2 {
				assert.True(t, math.IsNaN(v), "index %d should be warm-up", i)
				continue
			}
			assert.InDelta(t, 42, v, 1e-12, "index %d", i)
		}
	})

	t.Run("seeded with SMA", func(t *testing.T) {
		values := []float64{1, 2, 3, 10}
		got := CalculateEMA(values, 3)
		assert.True(t, math.IsNaN(got[0]))
		assert.True(t, math.IsNaN(got[1]))
		// Seed = mean(1,2,3) = 2; next = (10-2)*0.5 + 2 = 6.
		assert.InDelta(t, 2, got[2], 1e-12)
		assert.InDelta(t, 6, got[3], 1e-12)
	})

	t.Run("same length as input", func(t *testing.T) {
		values := []float64{5, 6, 7, 8, 9}
		assert.Len(t, CalculateEMA(values, 4), len(values))
	})
}

// assertSeriesEqual compares two series treating NaN as equal to NaN.
func assertSeriesEqual(t *testing.T, expected, got []float64) {
	t.Helper()
	assert.Len(t, got, len(expected))
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: expected NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, expected[i], got[i], 1e-9, "index %d", i)
	}
}
