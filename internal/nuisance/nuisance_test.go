package nuisance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		target    int
		carry     float64
		wantUnits int
		wantCarry float64
	}{
		{"exact multiple", 700, 70, 0, 10, 0},
		{"carry pushes over", 75, 70, 0.5, 1, 75.0/70.0 + 0.5 - 1},
		{"nothing scored", 0, 70, 0.25, 0, 0.25},
		{"below threshold", 35, 70, 0, 0, 0.5},
		{"two halves make one", 35, 70, 0.5, 1, 0},
		{"target of one", 13, 1, 0, 13, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.score, tt.target, tt.carry)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUnits, got.Units)
			assert.InDelta(t, tt.wantCarry, got.Carry, 1e-12)
			assert.GreaterOrEqual(t, got.Carry, 0.0)
			assert.Less(t, got.Carry, 1.0)
		})
	}
}

func TestConvertCarryValue(t *testing.T) {
	got, err := Convert(75, 70, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Units)
	assert.InDelta(t, 0.5714, got.Carry, 1e-4)
}

func TestConvertRejects(t *testing.T) {
	_, err := Convert(100, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Convert(100, -3, 0)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Convert(-1, 70, 0)
	assert.ErrorIs(t, err, ErrNegativeScore)

	for _, c := range []float64{-0.1, 1, 1.5, math.NaN()} {
		_, err = Convert(100, 70, c)
		assert.ErrorIs(t, err, ErrInvalidCarry, "carry %v", c)
	}
}

func TestLedger(t *testing.T) {
	var l Ledger

	units, err := l.Add(35, 70)
	require.NoError(t, err)
	assert.Equal(t, 0, units)

	units, err = l.Add(105, 70)
	require.NoError(t, err)
	assert.Equal(t, 2, units)
	assert.Equal(t, 2, l.Sent)
	assert.InDelta(t, 0.0, l.Carry, 1e-12)

	_, err = l.Add(10, 0)
	require.Error(t, err)
	assert.Equal(t, 2, l.Sent)
}
