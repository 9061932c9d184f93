/*

This file contains the per-adapter configuration value. The configuration is
immutable once published: administrative updates build a fresh value, validate
it, and swap it in wholesale under the adapter lock (copy-on-write), so readers
never observe a half-updated parameter set.

*/

package types

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

// AdapterConfig holds the tunable parameters of one venue adapter.
type AdapterConfig struct {
	// AdapterID identifies the adapter (e.g. "aave-usdc", "spark-usdc").
	AdapterID string `json:"adapter_id"`

	// SettlementAsset is the accounting currency denom for this adapter.
	SettlementAsset string `json:"settlement_asset"`

	// BufferBps is the fraction of new capital kept idle (0-10000).
	BufferBps uint32 `json:"buffer_bps"`

	// DonationBps is the fraction of realized gain routed to the public-goods
	// recipient. Never exceeds MaxDonationBps.
	DonationBps uint32 `json:"donation_bps"`

	// MinDonation is the minimum amount worth dispatching; smaller donations
	// wait for the next harvest.
	MinDonation sdkmath.Int `json:"min_donation"`

	// HarvestCooldown is the minimum interval between harvests.
	HarvestCooldown time.Duration `json:"harvest_cooldown"`

	// WithdrawCooldown is the per-depositor delay between a deposit and the next
	// withdrawal, guarding against flash-deposit abuse.
	WithdrawCooldown time.Duration `json:"withdraw_cooldown"`

	// Risk holds the limits enforced by the risk gate.
	Risk RiskParameters `json:"risk"`
}

// Validate rejects configurations that would violate stored invariants.
// Called at the admin-mutation boundary; an invalid config never reaches state.
func (c AdapterConfig) Validate() error {
	if c.AdapterID == "" {
		return fmt.Errorf("%w: adapter ID cannot be empty", ErrInvariantViolation)
	}
	if c.SettlementAsset == "" {
		return fmt.Errorf("%w: settlement asset cannot be empty", ErrInvariantViolation)
	}
	if c.BufferBps > BpsDenominator {
		return fmt.Errorf("%w: buffer %d bps exceeds %d", ErrInvariantViolation, c.BufferBps, BpsDenominator)
	}
	if c.DonationBps > MaxDonationBps {
		return fmt.Errorf("%w: donation rate %d bps exceeds cap %d", ErrInvariantViolation, c.DonationBps, MaxDonationBps)
	}
	if c.MinDonation.IsNil() || c.MinDonation.IsNegative() {
		return fmt.Errorf("%w: min donation must be non-negative", ErrInvariantViolation)
	}
	if c.HarvestCooldown < 0 || c.WithdrawCooldown < 0 {
		return fmt.Errorf("%w: cooldowns cannot be negative", ErrInvariantViolation)
	}
	return c.Risk.Validate()
}

// DefaultHarvestCooldown is the policy default between harvests.
const DefaultHarvestCooldown = 6 * time.Hour
