/*

This file contains the fixed-point Rate used for weights, utilization and interest rates.
Every operation that could lose precision or wrap returns an error instead.

*/

package types

import (
	"fmt"
	"math"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// rateMaxBits bounds the scaled integer behind a Rate so products of two rates stay
// well inside LegacyDec's valid range.
const rateMaxBits = 128

// Rate is a non-negative 18-decimal fixed-point fraction.
type Rate struct {
	dec sdkmath.LegacyDec
}

func ZeroRate() Rate { return Rate{dec: sdkmath.LegacyZeroDec()} }
func OneRate() Rate  { return Rate{dec: sdkmath.LegacyOneDec()} }

// RateFromPercent returns percent/100.
func RateFromPercent(percent uint8) Rate {
	return Rate{dec: sdkmath.LegacyNewDecWithPrec(int64(percent), 2)}
}

// RateFromBips returns bips/10000.
func RateFromBips(bips uint64) Rate {
	return Rate{dec: sdkmath.LegacyNewDecFromBigIntWithPrec(new(big.Int).SetUint64(bips), 4)}
}

// RateFromRatio returns floor(num/den) at 18 decimals.
func RateFromRatio(num, den uint64) (Rate, error) {
	if den == 0 {
		return Rate{}, fmt.Errorf("%w: ratio with zero denominator", ErrMathError)
	}
	n := sdkmath.LegacyNewDecFromBigInt(new(big.Int).SetUint64(num))
	d := sdkmath.LegacyNewDecFromBigInt(new(big.Int).SetUint64(den))
	return checked(n.QuoTruncate(d))
}

// RateFromDec validates an arbitrary decimal as a Rate.
func RateFromDec(d sdkmath.LegacyDec) (Rate, error) {
	if d.IsNil() {
		return Rate{}, fmt.Errorf("%w: nil decimal", ErrMathError)
	}
	return checked(d.Clone())
}

func checked(d sdkmath.LegacyDec) (Rate, error) {
	if d.IsNegative() {
		return Rate{}, fmt.Errorf("%w: negative rate %s", ErrMathError, d)
	}
	if d.BigInt().BitLen() > rateMaxBits {
		return Rate{}, fmt.Errorf("%w: rate %s out of range", ErrOverflowError, d)
	}
	return Rate{dec: d}, nil
}

func (r Rate) d() sdkmath.LegacyDec {
	if r.dec.IsNil() {
		return sdkmath.LegacyZeroDec()
	}
	return r.dec
}

func (r Rate) TryAdd(o Rate) (Rate, error) {
	return checked(r.d().Add(o.d()))
}

func (r Rate) TrySub(o Rate) (Rate, error) {
	if r.d().LT(o.d()) {
		return Rate{}, fmt.Errorf("%w: %s - %s underflows", ErrMathError, r, o)
	}
	return checked(r.d().Sub(o.d()))
}

// TryMul multiplies and truncates to 18 decimals.
func (r Rate) TryMul(o Rate) (Rate, error) {
	return checked(r.d().MulTruncate(o.d()))
}

// TryDiv divides and truncates to 18 decimals.
func (r Rate) TryDiv(o Rate) (Rate, error) {
	if o.IsZero() {
		return Rate{}, fmt.Errorf("%w: division by zero rate", ErrMathError)
	}
	return checked(r.d().QuoTruncate(o.d()))
}

// TryMulU64 returns floor(r * amount).
func (r Rate) TryMulU64(amount uint64) (uint64, error) {
	product := r.d().MulInt(sdkmath.NewIntFromUint64(amount)).TruncateInt()
	if !product.IsUint64() {
		return 0, fmt.Errorf("%w: %s * %d exceeds u64", ErrOverflowError, r, amount)
	}
	return product.Uint64(), nil
}

func (r Rate) IsZero() bool           { return r.d().IsZero() }
func (r Rate) Equal(o Rate) bool      { return r.d().Equal(o.d()) }
func (r Rate) GT(o Rate) bool         { return r.d().GT(o.d()) }
func (r Rate) GTE(o Rate) bool        { return r.d().GTE(o.d()) }
func (r Rate) LT(o Rate) bool         { return r.d().LT(o.d()) }
func (r Rate) LTE(o Rate) bool        { return r.d().LTE(o.d()) }
func (r Rate) Dec() sdkmath.LegacyDec { return r.d().Clone() }

// Cmp returns -1, 0 or 1.
func (r Rate) Cmp(o Rate) int {
	return r.d().BigInt().Cmp(o.d().BigInt())
}

// Bips returns the rate in basis points, truncated and saturating at MaxUint64.
func (r Rate) Bips() uint64 {
	bips := r.d().MulInt64(10_000).TruncateInt()
	if !bips.IsUint64() {
		return math.MaxUint64
	}
	return bips.Uint64()
}

func (r Rate) String() string {
	return r.d().String()
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return r.d().MarshalJSON()
}

func (r *Rate) UnmarshalJSON(bz []byte) error {
	var d sdkmath.LegacyDec
	if err := d.UnmarshalJSON(bz); err != nil {
		return err
	}
	parsed, err := RateFromDec(d)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
