/*

This file contains the donation policy: converting a realized gain into a
donation amount given the adapter's donation rate, the depositor's boost
multiplier, and the minimum-donation floor.

*/

package policy

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/utils"
)

// Error definitions for zero-tolerance error handling
var (
	ErrGainInvalid        = errors.New("gain is invalid")
	ErrDonationRateCapped = errors.New("donation rate exceeds hard cap")
)

// ComputeDonation returns the donation slice of a realized gain.
// base = gain * donationBps / 10000; if the boost is active at now the base is
// scaled by the boost multiplier. A zero gain short-circuits to zero.
func ComputeDonation(gain sdkmath.Int, donationBps uint32, boost types.DepositorBoost, now time.Time) (sdkmath.Int, error) {
	if gain.IsNil() || gain.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %v", ErrGainInvalid, gain)
	}
	if donationBps > types.MaxDonationBps {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d > %d", ErrDonationRateCapped, donationBps, types.MaxDonationBps)
	}
	if gain.IsZero() {
		return sdkmath.ZeroInt(), nil
	}

	base, err := utils.BpsOf(gain, donationBps)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return utils.MulBps(base, boost.EffectiveMultiplierBps(now))
}

// ShouldDispatch reports whether a donation meets the minimum-donation floor.
// Amounts below the floor wait for a later harvest rather than being dispatched.
func ShouldDispatch(amount, minDonation sdkmath.Int) bool {
	if amount.IsNil() || !amount.IsPositive() {
		return false
	}
	if minDonation.IsNil() {
		return true
	}
	return amount.GTE(minDonation)
}
