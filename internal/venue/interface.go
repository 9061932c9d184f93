package venue

import (
	sdkmath "cosmossdk.io/math"
)

// RewardBalance is one claimable reward token balance returned by a claimer.
type RewardBalance struct {
	Token  string      `json:"token"`
	Amount sdkmath.Int `json:"amount"`
}

// VenueClient defines the interface for interacting with one external yield
// venue. This interface abstracts away the specific venue protocol, allowing
// different venue implementations (live, simulation, etc.) behind one adapter
// engine.
type VenueClient interface {
	// Supply deploys amount of asset into the venue and returns the amount
	// actually deployed.
	Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error)

	// Withdraw pulls amount of asset out of the venue to the given address and
	// returns the amount actually withdrawn.
	Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error)

	// DeployedBalance returns the current principal deployed in the venue.
	DeployedBalance(asset string) (sdkmath.Int, error)

	// IsHealthy reports whether the venue is operational. A paused or degraded
	// venue blocks new deployments.
	IsHealthy() (bool, error)

	// Close cleans up any resources used by the client.
	Close() error
}

// BorrowingVenueClient extends VenueClient for venues that support borrowing
// against supplied collateral.
type BorrowingVenueClient interface {
	VenueClient

	// Borrow draws amount of asset against supplied collateral.
	Borrow(asset string, amount sdkmath.Int) (sdkmath.Int, error)

	// Repay pays down borrowed debt and returns the amount actually repaid.
	Repay(asset string, amount sdkmath.Int) (sdkmath.Int, error)
}

// RewardClaimer realizes pending reward tokens for an adapter.
type RewardClaimer interface {
	// ClaimAll claims every pending reward and returns the claimed balances.
	ClaimAll(adapterID string) ([]RewardBalance, error)
}

// SwapService converts an arbitrary reward token into the settlement asset.
// Conversions may fail per-call; callers skip failures and continue.
type SwapService interface {
	ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error)
}

// DonationSink records dispatched donations in the external donation ledger.
type DonationSink interface {
	RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error
}

// TierIssuer is notified of a depositor's new cumulative donation total so it
// can mint or upgrade reputation badges.
type TierIssuer interface {
	UpdateTier(depositorID string, cumulativeTotal sdkmath.Int) error
}

// LoggingTierIssuer is a TierIssuer that only logs updates. Used when no
// external badge issuer is wired in.
type LoggingTierIssuer struct{}

func (LoggingTierIssuer) UpdateTier(depositorID string, cumulativeTotal sdkmath.Int) error {
	return nil
}
