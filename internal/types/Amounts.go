/*

This file contains the fundamental amount and basis-point types shared by every
component of the IVM. All capital accounting uses exact integer arithmetic in the
smallest unit of the settlement asset.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// Amount is an exact integer quantity of the settlement asset's smallest unit.
// Aliased so sdkmath.Int methods are available directly.
type Amount = sdkmath.Int

// Basis-point constants shared across the system.
const (
	// BpsDenominator is the denominator for all basis-point fractions (10000 = 100%).
	BpsDenominator = uint32(10000)

	// MaxDonationBps is the hard cap on the donation rate (1000 = 10%).
	// No adapter may ever store a donation rate above this.
	MaxDonationBps = uint32(1000)

	// MaxUtilizationCapBps is the highest utilization limit an admin may configure.
	MaxUtilizationCapBps = uint32(9500)

	// MinHealthFactorFloorBps is the lowest health factor minimum an admin may
	// configure (11000 = 1.1x safety margin).
	MinHealthFactorFloorBps = uint32(11000)

	// BaseMultiplierBps is the neutral boost multiplier (10000 = 1.0x).
	BaseMultiplierBps = uint32(10000)
)

// ZeroAmount returns a zero-valued Amount.
func ZeroAmount() Amount {
	return sdkmath.ZeroInt()
}

// NewAmount returns an Amount from an int64.
func NewAmount(v int64) Amount {
	return sdkmath.NewInt(v)
}

// MinAmount returns the smaller of two amounts.
func MinAmount(a, b Amount) Amount {
	if a.LT(b) {
		return a
	}
	return b
}
