package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected float64
	}{
		{"both zero", 0, 0, 0},
		{"growth from zero base", 42, 0, 100},
		{"drop to zero", 0, 42, -100},
		{"simple growth", 150, 100, 50},
		{"simple decline", 75, 100, -25},
		{"rounded to nearest integer", 101, 300, -66},
		{"clamped at ceiling", 5000, 10, 1000},
		{"floor reached naturally", 0.0001, 100, -100},
		{"negative previous uses absolute base", 50, -100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, percentChange(tt.current, tt.previous))
		})
	}
}

func TestRatioPercent(t *testing.T) {
	assert.Equal(t, 0.0, ratioPercent(10, 0))
	assert.Equal(t, 50.0, ratioPercent(1, 2))
	assert.Equal(t, 33.33, ratioPercent(1, 3))
	assert.Equal(t, 120.0, ratioPercent(6, 5))
}

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 0.0, safeDiv(100, 0))
	assert.Equal(t, 2500.0, safeDiv(10000, 4))
	assert.Equal(t, 33.33, safeDiv(100, 3))
}
