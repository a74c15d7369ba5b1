package utils

import (
	"errors"
	"math"
	"testing"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	sum, err := CheckedAdd(1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.True(t, errors.Is(err, types.ErrOverflowError))

	diff, err := CheckedSub(5, 5)
	require.NoError(t, err)
	assert.Zero(t, diff)

	_, err = CheckedSub(4, 5)
	assert.True(t, errors.Is(err, types.ErrMathError))

	product, err := CheckedMul(1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), product)

	_, err = CheckedMul(1<<32, 1<<32)
	assert.True(t, errors.Is(err, types.ErrOverflowError))
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c uint64
		want    uint64
		wantErr error
	}{
		{"exact", 1000, 3, 3, 1000, nil},
		{"rounds down", 10, 1, 3, 3, nil},
		{"wide intermediate", math.MaxUint64, 4, 8, math.MaxUint64 / 2, nil},
		{"zero divisor", 1, 1, 0, 0, types.ErrMathError},
		{"result overflow", math.MaxUint64, 2, 1, 0, types.ErrOverflowError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.c)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulDivChain(t *testing.T) {
	got, err := MulDivChain(1_000_000, 200, 78_840_000, 10_000, 78_840_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(20_000), got)

	_, err = MulDivChain(1, 1, 1, 0, 1)
	assert.True(t, errors.Is(err, types.ErrMathError))
}

func TestRateToPercent(t *testing.T) {
	assert.InDelta(t, 60.0, RateToPercent(types.RateFromPercent(60)), 1e-9)
	assert.InDelta(t, 0.25, RateToPercent(types.RateFromBips(25)), 1e-9)
}
