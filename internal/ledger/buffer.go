/*

This file contains the liquidity buffer manager. It decides how much of a
deposit stays idle versus deployed, and tops the buffer up from deployed
principal when a donation or withdrawal needs more liquidity than is on hand.
A failed top-up never fails the caller: EnsureLiquidity returns whatever is
actually available and the caller degrades gracefully.

*/

package ledger

import (
	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/impactvault/ivm/internal/utils"
	"github.com/impactvault/ivm/internal/venue"
)

// BufferManager manages one adapter's liquidity buffer against its venue.
type BufferManager struct {
	ledger  *AssetLedger
	client  venue.VenueClient
	asset   string
	account string
	logger  zerolog.Logger
}

// NewBufferManager binds a buffer manager to a ledger and its venue client.
func NewBufferManager(l *AssetLedger, client venue.VenueClient, asset, account string, logger zerolog.Logger) *BufferManager {
	return &BufferManager{
		ledger:  l,
		client:  client,
		asset:   asset,
		account: account,
		logger:  logger,
	}
}

// Split divides a deposit into (buffer, toDeploy) by the configured buffer
// fraction. Exact: buffer + toDeploy is always the full deposit, with the
// deploy side absorbing any truncation remainder.
func Split(depositAmount sdkmath.Int, bufferBps uint32) (buffer, toDeploy sdkmath.Int, err error) {
	return utils.SplitBps(depositAmount, bufferBps)
}

// EnsureLiquidity makes sure the buffer holds at least required, pulling the
// shortfall out of deployed principal if needed. Returns the amount actually
// available on the buffer, which may be less than required if the venue
// top-up failed or returned less than requested. Never returns an error for a
// collaborator failure; the shortfall is the caller's to handle.
func (m *BufferManager) EnsureLiquidity(required sdkmath.Int) (sdkmath.Int, error) {
	if err := validateAmount(required); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if m.ledger.Buffer().GTE(required) {
		return required, nil
	}

	shortfall := required.Sub(m.ledger.Buffer())
	m.logger.Debug().
		Str("required", required.String()).
		Str("buffer", m.ledger.Buffer().String()).
		Str("shortfall", shortfall.String()).
		Msg("Buffer below required liquidity, recalling from venue")

	withdrawn, err := m.client.Withdraw(m.asset, shortfall, m.account)
	if err != nil {
		// Non-blocking shortfall policy: a failed top-up degrades, it does not
		// revert the caller.
		m.logger.Warn().
			Err(err).
			Str("shortfall", shortfall.String()).
			Msg("Venue top-up failed, continuing with available buffer")
		return m.ledger.Buffer(), nil
	}

	if withdrawn.IsNil() || withdrawn.IsNegative() {
		m.logger.Warn().Msg("Venue returned an invalid withdrawal amount, continuing with available buffer")
		return m.ledger.Buffer(), nil
	}
	if !withdrawn.IsZero() {
		if err := m.ledger.RecordRecall(withdrawn); err != nil {
			return sdkmath.ZeroInt(), err
		}
	}

	available := m.ledger.Buffer()
	if available.GTE(required) {
		return required, nil
	}
	return available, nil
}
