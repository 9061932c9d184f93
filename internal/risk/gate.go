/*

This file contains the risk gate. Every check is a pure function of current
state plus the proposed delta: no side effects, no collaborator calls, so the
whole surface is exhaustively unit-testable. Violations come back as typed
errors wrapping ErrRiskViolation with the violated limit named.

*/

package risk

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/utils"
)

// ExposureState is the slice of adapter/portfolio state a risk decision needs.
type ExposureState struct {
	// Buffer is the adapter's idle on-hand balance.
	Buffer sdkmath.Int
	// Deployed is the adapter's deployed principal before the operation.
	Deployed sdkmath.Int
	// Borrowed is the adapter's outstanding borrow, zero for unleveraged venues.
	Borrowed sdkmath.Int
	// PortfolioTotal is the combined value of all adapters before the operation.
	PortfolioTotal sdkmath.Int
	// VenuePaused reports whether the venue's own collaborator says it is paused.
	VenuePaused bool
}

// maxHealthFactorBps stands in for an unbounded health factor when there is no
// outstanding borrow.
var maxHealthFactorBps = sdkmath.NewInt(1 << 62)

// HealthFactorBps returns supplied * 10000 / borrowed, or a maximal value when
// nothing is borrowed. The formula mirrors the accounting source and is a
// simplified placeholder; it does not consult venue collateral factors.
func HealthFactorBps(supplied, borrowed sdkmath.Int) sdkmath.Int {
	if borrowed.IsNil() || !borrowed.IsPositive() {
		return maxHealthFactorBps
	}
	if supplied.IsNil() || supplied.IsNegative() {
		return sdkmath.ZeroInt()
	}
	return supplied.MulRaw(int64(types.BpsDenominator)).Quo(borrowed)
}

// ValidateDeploy gates a proposed deployment of amount into the venue.
func ValidateDeploy(amount sdkmath.Int, params types.RiskParameters, st ExposureState) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: deploy amount must be positive", types.ErrRiskViolation)
	}
	if st.VenuePaused {
		return fmt.Errorf("%w: venue is paused", types.ErrRiskViolation)
	}

	newDeployed := st.Deployed.Add(amount)
	adapterTotal := st.Buffer.Add(newDeployed)

	// Utilization is outstanding debt against total adapter assets: a solvency
	// bound. The buffer split already governs how much capital is deployed, so
	// deployed principal itself is not the utilization numerator.
	borrowed := st.Borrowed
	if borrowed.IsNil() {
		borrowed = sdkmath.ZeroInt()
	}
	utilization, err := utils.RatioBps(borrowed, adapterTotal)
	if err != nil {
		return fmt.Errorf("%w: utilization: %w", types.ErrRiskViolation, err)
	}
	if utilization > params.MaxUtilizationBps {
		return fmt.Errorf("%w: utilization %d bps exceeds limit %d", types.ErrRiskViolation, utilization, params.MaxUtilizationBps)
	}

	portfolioAfter := st.PortfolioTotal.Add(amount)
	concentration, err := utils.RatioBps(adapterTotal, portfolioAfter)
	if err != nil {
		return fmt.Errorf("%w: concentration: %w", types.ErrRiskViolation, err)
	}
	if concentration > params.MaxAssetConcentrationBps {
		return fmt.Errorf("%w: concentration %d bps exceeds limit %d", types.ErrRiskViolation, concentration, params.MaxAssetConcentrationBps)
	}

	hf := HealthFactorBps(newDeployed, st.Borrowed)
	if hf.LT(sdkmath.NewInt(int64(params.MinHealthFactorBps))) {
		return fmt.Errorf("%w: health factor %s bps below minimum %d", types.ErrRiskViolation, hf, params.MinHealthFactorBps)
	}
	return nil
}

// ValidateWithdraw gates a proposed withdrawal of deployed principal.
// Withdrawals generally reduce risk, so only the health factor is checked:
// pulling collateral that backs an outstanding borrow can still break it.
func ValidateWithdraw(amount sdkmath.Int, params types.RiskParameters, st ExposureState) error {
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: withdraw amount must be positive", types.ErrRiskViolation)
	}

	remaining := st.Deployed.Sub(amount)
	if remaining.IsNegative() {
		remaining = sdkmath.ZeroInt()
	}
	hf := HealthFactorBps(remaining, st.Borrowed)
	if hf.LT(sdkmath.NewInt(int64(params.MinHealthFactorBps))) {
		return fmt.Errorf("%w: post-withdraw health factor %s bps below minimum %d", types.ErrRiskViolation, hf, params.MinHealthFactorBps)
	}
	return nil
}

// ValidateLeverage gates a proposed (supply, borrow) pair for a leveraged
// position. Both limits must hold or the whole position is rejected.
func ValidateLeverage(supply, borrow sdkmath.Int, params types.RiskParameters, targetHealthBps uint32) error {
	if supply.IsNil() || !supply.IsPositive() {
		return fmt.Errorf("%w: supply must be positive", types.ErrRiskViolation)
	}
	if borrow.IsNil() || !borrow.IsPositive() {
		return fmt.Errorf("%w: borrow must be positive", types.ErrRiskViolation)
	}

	leverage, err := utils.RatioBps(borrow, supply)
	if err != nil {
		return fmt.Errorf("%w: leverage ratio: %w", types.ErrRiskViolation, err)
	}
	if leverage > params.MaxLeverageRatioBps {
		return fmt.Errorf("%w: leverage %d bps exceeds limit %d", types.ErrRiskViolation, leverage, params.MaxLeverageRatioBps)
	}

	minHealth := targetHealthBps
	if params.MinHealthFactorBps > minHealth {
		minHealth = params.MinHealthFactorBps
	}
	hf := HealthFactorBps(supply, borrow)
	if hf.LTE(sdkmath.NewInt(int64(targetHealthBps))) || hf.LT(sdkmath.NewInt(int64(minHealth))) {
		return fmt.Errorf("%w: health factor %s bps does not clear target %d", types.ErrRiskViolation, hf, targetHealthBps)
	}
	return nil
}
