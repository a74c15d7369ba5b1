/*
This file contains the checked integer helpers used by every accounting path, plus conversions
from fixed-point rates to floats for logging and metrics.
*/

package utils

import (
	"fmt"
	"math"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/holiman/uint256"
)

// CheckedAdd returns a+b or OverflowError.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", types.ErrOverflowError, a, b)
	}
	return sum, nil
}

// CheckedSub returns a-b or MathError when b > a.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d underflows", types.ErrMathError, a, b)
	}
	return a - b, nil
}

// CheckedMul returns a*b or OverflowError.
func CheckedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/b != a {
		return 0, fmt.Errorf("%w: %d * %d", types.ErrOverflowError, a, b)
	}
	return product, nil
}

// MulDiv returns floor(a*b/c) using a 256-bit intermediate.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("%w: division by zero", types.ErrMathError)
	}
	result := new(uint256.Int).SetUint64(a)
	result.Mul(result, uint256.NewInt(b))
	result.Div(result, uint256.NewInt(c))
	if !result.IsUint64() {
		return 0, fmt.Errorf("%w: %d * %d / %d", types.ErrOverflowError, a, b, c)
	}
	return result.Uint64(), nil
}

// MulDivChain returns floor(a*b*c/(d*e)) with a single rounding step.
func MulDivChain(a, b, c, d, e uint64) (uint64, error) {
	if d == 0 || e == 0 {
		return 0, fmt.Errorf("%w: division by zero", types.ErrMathError)
	}
	num := new(uint256.Int).SetUint64(a)
	num.Mul(num, uint256.NewInt(b))
	if _, overflow := num.MulOverflow(num, uint256.NewInt(c)); overflow {
		return 0, fmt.Errorf("%w: %d * %d * %d", types.ErrOverflowError, a, b, c)
	}
	den := new(uint256.Int).Mul(uint256.NewInt(d), uint256.NewInt(e))
	num.Div(num, den)
	if !num.IsUint64() {
		return 0, fmt.Errorf("%w: result exceeds u64", types.ErrOverflowError)
	}
	return num.Uint64(), nil
}

// RateToFloat64 converts a rate for display. Never feed the result back into accounting.
func RateToFloat64(r types.Rate) (float64, error) {
	f, err := r.Dec().Float64()
	if err != nil {
		return 0, fmt.Errorf("rate %s: %w", r, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("rate %s is not finite", r)
	}
	return f, nil
}

// RateToPercent returns the rate as a float percentage, 0 on conversion failure.
func RateToPercent(r types.Rate) float64 {
	f, err := RateToFloat64(r)
	if err != nil {
		return 0
	}
	return f * 100
}
