package ledger

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// AccountingSnapshot is the last-measured total value of an adapter, used to
// derive realized gain on the next harvest. The (value, timestamp) pair always
// updates together; there is no way to advance one without the other.
type AccountingSnapshot struct {
	value      sdkmath.Int
	measuredAt time.Time
}

// NewAccountingSnapshot returns a snapshot at zero value.
func NewAccountingSnapshot() *AccountingSnapshot {
	return &AccountingSnapshot{value: sdkmath.ZeroInt()}
}

// Value returns the value measured at the last harvest.
func (s *AccountingSnapshot) Value() sdkmath.Int {
	return s.value
}

// MeasuredAt returns the timestamp of the last measurement.
func (s *AccountingSnapshot) MeasuredAt() time.Time {
	return s.measuredAt
}

// Advance records a new measured value and its timestamp as one transactional
// update.
func (s *AccountingSnapshot) Advance(value sdkmath.Int, at time.Time) error {
	if err := validateAmount(value); err != nil {
		return err
	}
	s.value = value
	s.measuredAt = at
	return nil
}

// GainSince returns max(0, current - last measured value). Losses never
// produce a negative gain; they are surfaced through explicit loss events.
func (s *AccountingSnapshot) GainSince(current sdkmath.Int) (sdkmath.Int, error) {
	if err := validateAmount(current); err != nil {
		return sdkmath.ZeroInt(), err
	}
	gain := current.Sub(s.value)
	if gain.IsNegative() {
		return sdkmath.ZeroInt(), nil
	}
	return gain, nil
}
