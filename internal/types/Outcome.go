package types

import sdkmath "cosmossdk.io/math"

// OutcomeStatus classifies the result of a mutating call.
type OutcomeStatus string

const (
	OutcomeFull     OutcomeStatus = "full"
	OutcomePartial  OutcomeStatus = "partial"
	OutcomeRejected OutcomeStatus = "rejected"
)

// DepositReceipt reports how a deposit was split and deployed.
type DepositReceipt struct {
	AdapterID string        `json:"adapter_id"`
	Deposited sdkmath.Int   `json:"deposited"`
	Buffered  sdkmath.Int   `json:"buffered"`
	Deployed  sdkmath.Int   `json:"deployed"`
	Status    OutcomeStatus `json:"status"`
}

// WithdrawReceipt reports a withdrawal, surfacing any shortfall so the caller
// can decide whether to retry against another adapter.
type WithdrawReceipt struct {
	AdapterID string        `json:"adapter_id"`
	Requested sdkmath.Int   `json:"requested"`
	Fulfilled sdkmath.Int   `json:"fulfilled"`
	Shortfall sdkmath.Int   `json:"shortfall"`
	Status    OutcomeStatus `json:"status"`
}

// HarvestReport reports one adapter's harvest outcome.
type HarvestReport struct {
	AdapterID        string        `json:"adapter_id"`
	Gain             sdkmath.Int   `json:"gain"`
	Donation         sdkmath.Int   `json:"donation"`
	QueuedDonation   sdkmath.Int   `json:"queued_donation"`
	ConvertedRewards sdkmath.Int   `json:"converted_rewards"`
	SkippedRewards   []string      `json:"skipped_rewards,omitempty"`
	Status           OutcomeStatus `json:"status"`
}
