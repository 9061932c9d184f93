/*

This file contains the asset ledger: the authoritative record of one adapter's
on-hand buffer and externally deployed principal. The ledger is not safe for
concurrent use on its own; the owning adapter holds its lock for the full
duration of every mutating operation.

*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountInvalid      = errors.New("amount is invalid")
	ErrInsufficientFunds  = errors.New("insufficient funds on ledger")
	ErrNegativeBalance    = errors.New("operation would produce a negative balance")
)

// AssetLedger tracks a single adapter's on-hand buffer and deployed principal.
type AssetLedger struct {
	buffer   sdkmath.Int
	deployed sdkmath.Int
}

// NewAssetLedger returns an empty ledger.
func NewAssetLedger() *AssetLedger {
	return &AssetLedger{
		buffer:   sdkmath.ZeroInt(),
		deployed: sdkmath.ZeroInt(),
	}
}

// Buffer returns the idle on-hand balance.
func (l *AssetLedger) Buffer() sdkmath.Int {
	return l.buffer
}

// Deployed returns the principal recorded as deployed in the venue.
func (l *AssetLedger) Deployed() sdkmath.Int {
	return l.deployed
}

// TotalOnBook returns buffer plus deployed principal.
func (l *AssetLedger) TotalOnBook() sdkmath.Int {
	return l.buffer.Add(l.deployed)
}

// CreditBuffer adds amount to the on-hand buffer.
func (l *AssetLedger) CreditBuffer(amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.buffer = l.buffer.Add(amount)
	return nil
}

// DebitBuffer removes amount from the on-hand buffer.
func (l *AssetLedger) DebitBuffer(amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if l.buffer.LT(amount) {
		return fmt.Errorf("%w: buffer %s < %s", ErrInsufficientFunds, l.buffer, amount)
	}
	l.buffer = l.buffer.Sub(amount)
	return nil
}

// RecordDeploy marks amount as moved from the external transfer into deployed
// principal. The amount does not pass through the buffer.
func (l *AssetLedger) RecordDeploy(amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.deployed = l.deployed.Add(amount)
	return nil
}

// RecordRecall moves amount from deployed principal back into the buffer,
// reflecting a completed venue withdrawal. If the venue returned more than the
// recorded principal (accrued interest), the excess still lands in the buffer
// and deployed principal floors at zero.
func (l *AssetLedger) RecordRecall(amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.deployed = l.deployed.Sub(amount)
	if l.deployed.IsNegative() {
		l.deployed = sdkmath.ZeroInt()
	}
	l.buffer = l.buffer.Add(amount)
	return nil
}

// RecordLoss writes down deployed principal after an explicit loss event.
func (l *AssetLedger) RecordLoss(amount sdkmath.Int) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if l.deployed.LT(amount) {
		return fmt.Errorf("%w: deployed %s < loss %s", ErrNegativeBalance, l.deployed, amount)
	}
	l.deployed = l.deployed.Sub(amount)
	return nil
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: nil", ErrAmountInvalid)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: negative %s", ErrAmountInvalid, amount)
	}
	return nil
}
