package policy

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactvault/ivm/internal/types"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestComputeDonationBaseRate(t *testing.T) {
	// 50,000 gain at 5% with no boost donates exactly 2,500.
	got, err := ComputeDonation(sdkmath.NewInt(50_000), 500, types.DepositorBoost{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_500), got)
}

func TestComputeDonationWithGoldBoost(t *testing.T) {
	// The same gain with an active 1.5x gold boost donates 3,750.
	boost := types.DepositorBoost{Tier: types.TierGold, Expiry: testNow.Add(time.Hour)}
	got, err := ComputeDonation(sdkmath.NewInt(50_000), 500, boost, testNow)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(3_750), got)
}

func TestComputeDonationIgnoresExpiredBoost(t *testing.T) {
	boost := types.DepositorBoost{Tier: types.TierTop, Expiry: testNow.Add(-time.Minute)}
	got, err := ComputeDonation(sdkmath.NewInt(50_000), 500, boost, testNow)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_500), got)
}

func TestComputeDonationZeroGain(t *testing.T) {
	got, err := ComputeDonation(sdkmath.ZeroInt(), 500, types.DepositorBoost{}, testNow)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestComputeDonationRejectsRateAboveCap(t *testing.T) {
	_, err := ComputeDonation(sdkmath.NewInt(50_000), types.MaxDonationBps+1, types.DepositorBoost{}, testNow)
	assert.ErrorIs(t, err, ErrDonationRateCapped)
}

func TestShouldDispatchHonorsFloor(t *testing.T) {
	floor := sdkmath.NewInt(100)
	assert.True(t, ShouldDispatch(sdkmath.NewInt(100), floor))
	assert.True(t, ShouldDispatch(sdkmath.NewInt(101), floor))
	assert.False(t, ShouldDispatch(sdkmath.NewInt(99), floor))
	assert.False(t, ShouldDispatch(sdkmath.ZeroInt(), floor))
}

func TestBoostRegistryLazyExpiry(t *testing.T) {
	registry := NewBoostRegistry()
	require.NoError(t, registry.Set("alice", types.DepositorBoost{Tier: types.TierSilver, Expiry: testNow.Add(time.Hour)}))

	assert.Equal(t, types.TierSilver, registry.Get("alice", testNow).Tier)
	assert.Equal(t, types.TierNone, registry.Get("alice", testNow.Add(2*time.Hour)).Tier)
	assert.Equal(t, types.TierNone, registry.Get("unknown", testNow).Tier)
}

func TestBoostRegistryUpgradeNeverDowngrades(t *testing.T) {
	registry := NewBoostRegistry()
	validity := 30 * 24 * time.Hour

	tier := registry.MaybeUpgrade("bob", sdkmath.NewInt(150_000), validity, testNow)
	assert.Equal(t, types.TierBronze, tier)

	// A smaller cumulative total never pulls the stored tier back down.
	registry.MaybeUpgrade("bob", sdkmath.NewInt(50_000), validity, testNow)
	assert.Equal(t, types.TierBronze, registry.Get("bob", testNow).Tier)

	tier = registry.MaybeUpgrade("bob", sdkmath.NewInt(2_000_000_000), validity, testNow)
	assert.Equal(t, types.TierTop, tier)
	assert.Equal(t, uint32(20000), registry.Get("bob", testNow).EffectiveMultiplierBps(testNow))
}
