package types

import "errors"

// Error taxonomy for the IVM core. Packages wrap these sentinels with context via
// fmt.Errorf("%w") so callers can classify failures with errors.Is.
var (
	// ErrRiskViolation is returned when a deploy/withdraw/leverage operation is
	// blocked by the risk gate. Fatal for that call, never retried automatically.
	ErrRiskViolation = errors.New("risk violation")

	// ErrInsufficientLiquidity indicates a withdrawal or donation exceeded the
	// available liquidity. Callers degrade to partial fulfillment.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrCollaboratorFailure indicates an external venue/swap/claim call failed.
	// Caught at the call site; harvest/deploy continues in degraded mode.
	ErrCollaboratorFailure = errors.New("collaborator call failed")

	// ErrInvariantViolation indicates an admin mutation would break a stored
	// invariant (weights not summing to 10000, donation rate above cap, ...).
	// Rejected at the mutation boundary, never allowed to reach stored state.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrHarvestCooldown indicates a harvest attempt arrived before the adapter's
	// cooldown elapsed. Hard precondition, not best-effort.
	ErrHarvestCooldown = errors.New("harvest cooldown active")

	// ErrWithdrawCooldown indicates a depositor attempted to withdraw before
	// their per-identity cooldown elapsed.
	ErrWithdrawCooldown = errors.New("withdraw cooldown active")

	// ErrAdapterPaused indicates the adapter is paused and rejecting mutations.
	ErrAdapterPaused = errors.New("adapter is paused")
)
