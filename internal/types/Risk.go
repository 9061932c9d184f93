package types

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// RiskParameters holds the per-adapter limits the risk gate enforces on every
// deploy/withdraw/leverage decision. Mutated only by an administrative action.
type RiskParameters struct {
	// MaxUtilizationBps caps outstanding debt as a fraction of adapter total
	// assets (a solvency bound).
	MaxUtilizationBps uint32 `json:"max_utilization_bps"`

	// MinHealthFactorBps is the minimum allowed health factor after any operation.
	MinHealthFactorBps uint32 `json:"min_health_factor_bps"`

	// YieldHarvestThreshold is the minimum measured gain worth harvesting.
	YieldHarvestThreshold sdkmath.Int `json:"yield_harvest_threshold"`

	// MaxAssetConcentrationBps caps one adapter's exposure as a fraction of the
	// portfolio total.
	MaxAssetConcentrationBps uint32 `json:"max_asset_concentration_bps"`

	// MaxLeverageRatioBps caps borrowed value as a fraction of supplied collateral.
	MaxLeverageRatioBps uint32 `json:"max_leverage_ratio_bps"`
}

// Validate rejects parameter sets that would weaken the hard safety floors.
func (p RiskParameters) Validate() error {
	if p.MaxUtilizationBps > MaxUtilizationCapBps {
		return fmt.Errorf("%w: max utilization %d bps exceeds cap %d", ErrInvariantViolation, p.MaxUtilizationBps, MaxUtilizationCapBps)
	}
	if p.MinHealthFactorBps < MinHealthFactorFloorBps {
		return fmt.Errorf("%w: min health factor %d bps below floor %d", ErrInvariantViolation, p.MinHealthFactorBps, MinHealthFactorFloorBps)
	}
	if p.MaxAssetConcentrationBps == 0 || p.MaxAssetConcentrationBps > BpsDenominator {
		return fmt.Errorf("%w: max asset concentration %d bps out of range", ErrInvariantViolation, p.MaxAssetConcentrationBps)
	}
	if p.YieldHarvestThreshold.IsNil() || p.YieldHarvestThreshold.IsNegative() {
		return fmt.Errorf("%w: yield harvest threshold must be non-negative", ErrInvariantViolation)
	}
	return nil
}

// DefaultRiskParameters returns conservative limits suitable for a new adapter.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		MaxUtilizationBps:        9000,
		MinHealthFactorBps:       12000,
		YieldHarvestThreshold:    sdkmath.ZeroInt(),
		MaxAssetConcentrationBps: 5000,
		MaxLeverageRatioBps:      7500,
	}
}
