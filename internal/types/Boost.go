/*

This file contains the depositor boost tiers. A boost multiplies the donation
computed from a depositor's share of realized gain for a limited time window.
Expiry is checked lazily on read; an expired boost behaves exactly like NONE.

*/

package types

import "time"

// BoostTier is an ordered depositor tier. Higher tiers carry strictly higher
// donation multipliers.
type BoostTier int

const (
	TierNone BoostTier = iota
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
	TierTop
)

// tierMultipliers maps each tier to its donation multiplier in bps.
// Multipliers are strictly increasing in tier order; this is asserted by tests.
var tierMultipliers = map[BoostTier]uint32{
	TierNone:     10000, // 1.0x
	TierBronze:   11000, // 1.1x
	TierSilver:   12500, // 1.25x
	TierGold:     15000, // 1.5x
	TierPlatinum: 17500, // 1.75x
	TierTop:      20000, // 2.0x
}

// String returns the human-readable tier name.
func (t BoostTier) String() string {
	switch t {
	case TierBronze:
		return "BRONZE"
	case TierSilver:
		return "SILVER"
	case TierGold:
		return "GOLD"
	case TierPlatinum:
		return "PLATINUM"
	case TierTop:
		return "TOP"
	default:
		return "NONE"
	}
}

// MultiplierBps returns the donation multiplier for the tier.
func (t BoostTier) MultiplierBps() uint32 {
	if m, ok := tierMultipliers[t]; ok {
		return m
	}
	return BaseMultiplierBps
}

// AllTiers returns every tier in ascending order.
func AllTiers() []BoostTier {
	return []BoostTier{TierNone, TierBronze, TierSilver, TierGold, TierPlatinum, TierTop}
}

// DepositorBoost is a depositor-specific donation multiplier with an expiry.
type DepositorBoost struct {
	Tier   BoostTier `json:"tier"`
	Expiry time.Time `json:"expiry"`
}

// ActiveAt reports whether the boost is still in effect at the given time.
func (b DepositorBoost) ActiveAt(now time.Time) bool {
	return b.Tier != TierNone && b.Expiry.After(now)
}

// EffectiveMultiplierBps returns the multiplier to apply at the given time.
// An expired boost is treated as NONE without requiring an explicit reset.
func (b DepositorBoost) EffectiveMultiplierBps(now time.Time) uint32 {
	if !b.ActiveAt(now) {
		return BaseMultiplierBps
	}
	return b.Tier.MultiplierBps()
}
