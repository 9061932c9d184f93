package venue

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactvault/ivm/internal/types"
)

type flakyVenue struct {
	err   error
	calls int
}

func (v *flakyVenue) Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	v.calls++
	if v.err != nil {
		return sdkmath.ZeroInt(), v.err
	}
	return amount, nil
}

func (v *flakyVenue) Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error) {
	v.calls++
	if v.err != nil {
		return sdkmath.ZeroInt(), v.err
	}
	return amount, nil
}

func (v *flakyVenue) DeployedBalance(asset string) (sdkmath.Int, error) {
	v.calls++
	if v.err != nil {
		return sdkmath.ZeroInt(), v.err
	}
	return sdkmath.ZeroInt(), nil
}

func (v *flakyVenue) IsHealthy() (bool, error) { return v.err == nil, nil }

func (v *flakyVenue) Close() error { return nil }

func TestGuardPassesThroughSuccess(t *testing.T) {
	inner := &flakyVenue{}
	guarded := Guard("test", inner)

	got, err := guarded.Supply("usdc", sdkmath.NewInt(1_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(1_000), got)
}

func TestGuardWrapsFailuresAsCollaboratorFailure(t *testing.T) {
	inner := &flakyVenue{err: errors.New("venue down")}
	guarded := Guard("test", inner)

	_, err := guarded.Supply("usdc", sdkmath.NewInt(1_000))
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)
}

func TestGuardTripsAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyVenue{err: errors.New("venue down")}
	guarded := Guard("test", inner)

	for i := 0; i < 5; i++ {
		_, err := guarded.DeployedBalance("usdc")
		require.Error(t, err)
	}
	require.Equal(t, 5, inner.calls)

	// The breaker is open now; the inner client is not called again.
	_, err := guarded.DeployedBalance("usdc")
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)
	assert.Equal(t, 5, inner.calls)
}

func TestGuardSwapWrapsFailures(t *testing.T) {
	swap := GuardSwap("test_swap", failingSwap{})
	_, err := swap.ConvertToSettlement("arb", sdkmath.NewInt(100))
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)
}

type failingSwap struct{}

func (failingSwap) ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error) {
	return sdkmath.ZeroInt(), errors.New("no route")
}
