package ledger

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetLedgerBookkeeping(t *testing.T) {
	book := NewAssetLedger()
	assert.True(t, book.TotalOnBook().IsZero())

	require.NoError(t, book.CreditBuffer(sdkmath.NewInt(20_000)))
	require.NoError(t, book.RecordDeploy(sdkmath.NewInt(980_000)))

	assert.Equal(t, sdkmath.NewInt(20_000), book.Buffer())
	assert.Equal(t, sdkmath.NewInt(980_000), book.Deployed())
	assert.Equal(t, sdkmath.NewInt(1_000_000), book.TotalOnBook())
}

func TestDebitBufferRejectsOverdraft(t *testing.T) {
	book := NewAssetLedger()
	require.NoError(t, book.CreditBuffer(sdkmath.NewInt(100)))

	require.NoError(t, book.DebitBuffer(sdkmath.NewInt(100)))
	assert.ErrorIs(t, book.DebitBuffer(sdkmath.NewInt(1)), ErrNegativeBalance)
}

func TestRecordRecallFloorsDeployedAtZero(t *testing.T) {
	book := NewAssetLedger()
	require.NoError(t, book.RecordDeploy(sdkmath.NewInt(1_000)))

	// Venue returned principal plus accrued interest.
	require.NoError(t, book.RecordRecall(sdkmath.NewInt(1_200)))
	assert.True(t, book.Deployed().IsZero())
	assert.Equal(t, sdkmath.NewInt(1_200), book.Buffer())
}

func TestRecordLossRequiresCoverage(t *testing.T) {
	book := NewAssetLedger()
	require.NoError(t, book.RecordDeploy(sdkmath.NewInt(500)))

	require.NoError(t, book.RecordLoss(sdkmath.NewInt(200)))
	assert.Equal(t, sdkmath.NewInt(300), book.Deployed())
	assert.ErrorIs(t, book.RecordLoss(sdkmath.NewInt(301)), ErrNegativeBalance)
}

func TestAccountingSnapshotGain(t *testing.T) {
	snap := NewAccountingSnapshot()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, snap.Advance(sdkmath.NewInt(1_000_000), now))
	assert.Equal(t, sdkmath.NewInt(1_000_000), snap.Value())
	assert.Equal(t, now, snap.MeasuredAt())

	gain, err := snap.GainSince(sdkmath.NewInt(1_050_000))
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(50_000), gain)

	// A drop below the snapshot is not a negative gain.
	gain, err = snap.GainSince(sdkmath.NewInt(900_000))
	require.NoError(t, err)
	assert.True(t, gain.IsZero())
}

func TestSplitPutsRemainderOnDeploySide(t *testing.T) {
	buffer, toDeploy, err := Split(sdkmath.NewInt(1_000_000), 200)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(20_000), buffer)
	assert.Equal(t, sdkmath.NewInt(980_000), toDeploy)

	buffer, toDeploy, err = Split(sdkmath.NewInt(999), 200)
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(999), buffer.Add(toDeploy))
}
