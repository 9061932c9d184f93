/*

This file contains the leverage extension, used only by venues whose client
supports borrowing. Opening a position is both-or-neither: if the borrow leg
cannot complete (or would land below the health target), the supply leg is
unwound and the whole operation is rejected.

*/

package adapter

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/impactvault/ivm/internal/risk"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/venue"
)

// CreateLeveragedPosition supplies collateral and borrows against it. The
// post-condition healthFactor(supplied, borrowed) > targetHealthBps must hold
// or the entire operation is rejected with no partial position.
func (a *VenueAdapter) CreateLeveragedPosition(supply, borrow sdkmath.Int, targetHealthBps uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.paused {
		return fmt.Errorf("%w: %s", types.ErrAdapterPaused, a.cfg.AdapterID)
	}
	borrower, ok := a.client.(venue.BorrowingVenueClient)
	if !ok {
		return fmt.Errorf("%w: venue %s does not support borrowing", types.ErrRiskViolation, a.cfg.AdapterID)
	}

	// Validate the whole position up front so we never open a half of it.
	newSupplied := a.book.Deployed().Add(supply)
	newBorrowed := a.borrowed.Add(borrow)
	if err := risk.ValidateLeverage(newSupplied, newBorrowed, a.cfg.Risk, targetHealthBps); err != nil {
		a.events.Record(types.Event{
			Type:      types.EventRiskViolationRejected,
			AdapterID: a.cfg.AdapterID,
			Amount:    supply,
			Reason:    err.Error(),
		})
		return err
	}
	if a.book.Buffer().LT(supply) {
		return fmt.Errorf("%w: buffer %s < supply %s", types.ErrInsufficientLiquidity, a.book.Buffer(), supply)
	}

	supplied, err := borrower.Supply(a.cfg.SettlementAsset, supply)
	if err != nil {
		return fmt.Errorf("%w: leverage supply: %w", types.ErrCollaboratorFailure, err)
	}
	if err := a.book.DebitBuffer(supply); err != nil {
		return err
	}
	if err := a.book.RecordDeploy(supplied); err != nil {
		return err
	}

	borrowed, err := borrower.Borrow(a.cfg.SettlementAsset, borrow)
	if err != nil {
		// Unwind the supply leg: no partial leverage.
		a.logger.Warn().Err(err).Msg("Borrow leg failed, unwinding supply leg")
		recalled, werr := borrower.Withdraw(a.cfg.SettlementAsset, supplied, a.account)
		if werr != nil {
			a.logger.Error().Err(werr).
				Str("supplied", supplied.String()).
				Msg("Failed to unwind supply leg after borrow failure")
		} else if rerr := a.book.RecordRecall(recalled); rerr != nil {
			return rerr
		}
		return fmt.Errorf("%w: leverage borrow: %w", types.ErrCollaboratorFailure, err)
	}

	a.borrowed = a.borrowed.Add(borrowed)
	if err := a.book.CreditBuffer(borrowed); err != nil {
		return err
	}
	// Borrow proceeds raise measured value without being gain; the snapshot
	// moves with them so the next harvest does not donate against debt.
	if err := a.snapshot.Advance(a.snapshot.Value().Add(borrowed), a.now()); err != nil {
		return err
	}

	a.logger.Info().
		Str("supplied", supplied.String()).
		Str("borrowed", borrowed.String()).
		Str("healthFactorBps", risk.HealthFactorBps(a.book.Deployed(), a.borrowed).String()).
		Msg("Leveraged position opened")
	return nil
}

// DeLeveragePosition repays debt and/or withdraws collateral. Either
// sub-operation may run alone, but both must leave the health factor at or
// above the configured minimum while any borrow remains.
func (a *VenueAdapter) DeLeveragePosition(repay, withdraw sdkmath.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	borrower, ok := a.client.(venue.BorrowingVenueClient)
	if !ok {
		return fmt.Errorf("%w: venue %s does not support borrowing", types.ErrRiskViolation, a.cfg.AdapterID)
	}
	if repay.IsNil() {
		repay = sdkmath.ZeroInt()
	}
	if withdraw.IsNil() {
		withdraw = sdkmath.ZeroInt()
	}
	if repay.IsNegative() || withdraw.IsNegative() {
		return fmt.Errorf("%w: de-leverage amounts cannot be negative", types.ErrInvariantViolation)
	}

	// Check the combined end-state before touching either leg.
	remainingBorrow := a.borrowed.Sub(repay)
	if remainingBorrow.IsNegative() {
		remainingBorrow = sdkmath.ZeroInt()
	}
	remainingSupply := a.book.Deployed().Sub(withdraw)
	if remainingSupply.IsNegative() {
		remainingSupply = sdkmath.ZeroInt()
	}
	if remainingBorrow.IsPositive() {
		hf := risk.HealthFactorBps(remainingSupply, remainingBorrow)
		if hf.LT(sdkmath.NewInt(int64(a.cfg.Risk.MinHealthFactorBps))) {
			return fmt.Errorf("%w: de-leverage would leave health factor %s bps below %d",
				types.ErrRiskViolation, hf, a.cfg.Risk.MinHealthFactorBps)
		}
	}

	if repay.IsPositive() {
		if a.book.Buffer().LT(repay) {
			return fmt.Errorf("%w: buffer %s < repay %s", types.ErrInsufficientLiquidity, a.book.Buffer(), repay)
		}
		repaid, err := borrower.Repay(a.cfg.SettlementAsset, repay)
		if err != nil {
			return fmt.Errorf("%w: repay: %w", types.ErrCollaboratorFailure, err)
		}
		if err := a.book.DebitBuffer(repaid); err != nil {
			return err
		}
		a.borrowed = a.borrowed.Sub(repaid)
		if a.borrowed.IsNegative() {
			a.borrowed = sdkmath.ZeroInt()
		}
		next := a.snapshot.Value().Sub(repaid)
		if next.IsNegative() {
			next = sdkmath.ZeroInt()
		}
		if err := a.snapshot.Advance(next, a.now()); err != nil {
			return err
		}
	}

	if withdraw.IsPositive() {
		recalled, err := borrower.Withdraw(a.cfg.SettlementAsset, withdraw, a.account)
		if err != nil {
			return fmt.Errorf("%w: collateral withdraw: %w", types.ErrCollaboratorFailure, err)
		}
		if err := a.book.RecordRecall(recalled); err != nil {
			return err
		}
	}

	a.logger.Info().
		Str("repaid", repay.String()).
		Str("withdrawn", withdraw.String()).
		Str("borrowedRemaining", a.borrowed.String()).
		Msg("Position de-leveraged")
	return nil
}
