package keeper

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactvault/ivm/internal/adapter"
	"github.com/impactvault/ivm/internal/donation"
	"github.com/impactvault/ivm/internal/policy"
	"github.com/impactvault/ivm/internal/router"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/venue"
)

type flatVenue struct {
	balance sdkmath.Int
}

func (v *flatVenue) Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	v.balance = v.balance.Add(amount)
	return amount, nil
}

func (v *flatVenue) Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error) {
	v.balance = v.balance.Sub(amount)
	return amount, nil
}

func (v *flatVenue) DeployedBalance(asset string) (sdkmath.Int, error) { return v.balance, nil }

func (v *flatVenue) IsHealthy() (bool, error) { return true, nil }

func (v *flatVenue) Close() error { return nil }

type noRewards struct{}

func (noRewards) ClaimAll(adapterID string) ([]venue.RewardBalance, error) { return nil, nil }

type identitySwap struct{}

func (identitySwap) ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error) {
	return amount, nil
}

func newCycleRouter(t *testing.T) *router.PortfolioRouter {
	t.Helper()
	a, err := adapter.New(adapter.Config{
		AdapterConfig: types.AdapterConfig{
			AdapterID:       "aave-usdc",
			SettlementAsset: "usdc",
			BufferBps:       200,
			DonationBps:     500,
			MinDonation:     sdkmath.NewInt(100),
			Risk: types.RiskParameters{
				MaxUtilizationBps:        9_000,
				MinHealthFactorBps:       12_000,
				YieldHarvestThreshold:    sdkmath.ZeroInt(),
				MaxAssetConcentrationBps: 10_000,
				MaxLeverageRatioBps:      7_500,
			},
		},
		Client:  &flatVenue{balance: sdkmath.ZeroInt()},
		Claimer: noRewards{},
		Swapper: identitySwap{},
		Sink:    donation.NewLedger(),
		Tiers:   venue.LoggingTierIssuer{},
		Boosts:  policy.NewBoostRegistry(),
		Events:  types.NewRecorder(),
		Account: "ivm-treasury",
	})
	require.NoError(t, err)

	r, err := router.New([]*adapter.VenueAdapter{a}, map[string]uint32{"aave-usdc": 10_000})
	require.NoError(t, err)
	return r
}

func TestRunCycleWithoutPersistence(t *testing.T) {
	r := newCycleRouter(t)
	_, err := r.Deposit("alice", sdkmath.NewInt(1_000_000))
	require.NoError(t, err)

	k := New(r, false)
	k.RunCycle(context.Background())

	// No gain accrued, so the portfolio value is untouched by the cycle.
	assert.Equal(t, sdkmath.NewInt(1_000_000), r.TotalAssets())
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	r := newCycleRouter(t)
	k := New(r, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		k.RunLoop(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("keeper loop did not stop on context cancellation")
	}
}
