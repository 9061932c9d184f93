/*
This file contains common utility functions for exact basis-point arithmetic on
SDK integer amounts. All splits are exact: the two parts always recompose to the
original amount, with any rounding remainder staying on the caller's side.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNil      = errors.New("amount is nil")
	ErrAmountNegative = errors.New("amount is negative")
	ErrBpsOutOfRange  = errors.New("basis points out of range")
)

const bpsDenominator = 10000

// BpsOf returns amount * bps / 10000, truncated. bps must be within [0, 10000].
func BpsOf(amount sdkmath.Int, bps uint32) (sdkmath.Int, error) {
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	if bps > bpsDenominator {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d", ErrBpsOutOfRange, bps)
	}
	return amount.MulRaw(int64(bps)).QuoRaw(bpsDenominator), nil
}

// MulBps scales amount by an arbitrary multiplier expressed in bps. Unlike
// BpsOf the multiplier may exceed 10000 (boost multipliers are >= 1.0x).
func MulBps(amount sdkmath.Int, multiplierBps uint32) (sdkmath.Int, error) {
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount.MulRaw(int64(multiplierBps)).QuoRaw(bpsDenominator), nil
}

// SplitBps splits amount into (portion, remainder) where portion is the bps
// fraction and remainder absorbs all truncation, so portion + remainder is
// always exactly amount.
func SplitBps(amount sdkmath.Int, bps uint32) (portion, remainder sdkmath.Int, err error) {
	portion, err = BpsOf(amount, bps)
	if err != nil {
		return sdkmath.ZeroInt(), sdkmath.ZeroInt(), err
	}
	return portion, amount.Sub(portion), nil
}

// RatioBps returns part / whole expressed in bps, truncated. whole must be
// positive; a zero whole yields zero bps.
func RatioBps(part, whole sdkmath.Int) (uint32, error) {
	if part.IsNil() || whole.IsNil() {
		return 0, ErrAmountNil
	}
	if part.IsNegative() || whole.IsNegative() {
		return 0, ErrAmountNegative
	}
	if whole.IsZero() {
		return 0, nil
	}
	ratio := part.MulRaw(bpsDenominator).Quo(whole)
	if !ratio.IsInt64() || ratio.Int64() > int64(^uint32(0)) {
		return 0, fmt.Errorf("%w: ratio overflows", ErrBpsOutOfRange)
	}
	return uint32(ratio.Int64()), nil
}
