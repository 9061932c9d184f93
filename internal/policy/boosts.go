/*

This file contains the depositor boost registry, shared by reference across the
donation policies of all adapters. Boosts are set by the depositor's own opt-in
or upgraded automatically once their cumulative donation total crosses a
performance threshold. Expiry is never enforced server-side; it is checked
lazily whenever a boost is read.

*/

package policy

import (
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/impactvault/ivm/internal/types"
)

// performanceThresholds maps cumulative donated totals (in settlement units)
// to the tier a depositor is automatically upgraded to.
var performanceThresholds = []struct {
	total sdkmath.Int
	tier  types.BoostTier
}{
	{sdkmath.NewInt(1_000_000_000), types.TierTop},
	{sdkmath.NewInt(100_000_000), types.TierPlatinum},
	{sdkmath.NewInt(10_000_000), types.TierGold},
	{sdkmath.NewInt(1_000_000), types.TierSilver},
	{sdkmath.NewInt(100_000), types.TierBronze},
}

// BoostRegistry holds per-depositor boosts, keyed by depositor identity.
type BoostRegistry struct {
	mu     sync.RWMutex
	boosts map[string]types.DepositorBoost
}

// NewBoostRegistry returns an empty registry.
func NewBoostRegistry() *BoostRegistry {
	return &BoostRegistry{boosts: make(map[string]types.DepositorBoost)}
}

// Set records a boost for a depositor (opt-in path).
func (r *BoostRegistry) Set(depositor string, boost types.DepositorBoost) error {
	if depositor == "" {
		return fmt.Errorf("%w: depositor cannot be empty", types.ErrInvariantViolation)
	}
	r.mu.Lock()
	r.boosts[depositor] = boost
	r.mu.Unlock()
	return nil
}

// Get returns the depositor's boost. An expired or absent boost comes back as
// tier NONE without any stored-state mutation.
func (r *BoostRegistry) Get(depositor string, now time.Time) types.DepositorBoost {
	r.mu.RLock()
	boost, ok := r.boosts[depositor]
	r.mu.RUnlock()
	if !ok || !boost.ActiveAt(now) {
		return types.DepositorBoost{Tier: types.TierNone}
	}
	return boost
}

// MaybeUpgrade upgrades the depositor's tier if their cumulative donation total
// crossed a performance threshold above their current tier. The upgraded boost
// runs for the given validity window. Downgrades never happen here.
func (r *BoostRegistry) MaybeUpgrade(depositor string, cumulativeTotal sdkmath.Int, validity time.Duration, now time.Time) types.BoostTier {
	if cumulativeTotal.IsNil() || cumulativeTotal.IsNegative() {
		return types.TierNone
	}

	earned := types.TierNone
	for _, th := range performanceThresholds {
		if cumulativeTotal.GTE(th.total) {
			earned = th.tier
			break
		}
	}
	if earned == types.TierNone {
		return types.TierNone
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.boosts[depositor]
	if ok && current.ActiveAt(now) && current.Tier >= earned {
		return current.Tier
	}
	r.boosts[depositor] = types.DepositorBoost{
		Tier:   earned,
		Expiry: now.Add(validity),
	}
	return earned
}
