/*

This file contains the in-memory donation ledger. It records every dispatched
donation and maintains running totals per adapter, per depositor, and globally.
The conservation invariant (global == sum by adapter == sum by depositor) holds
after every append and can be audited at any time.

*/

package donation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountNotPositive = errors.New("donation amount must be positive")
	ErrIdentityMissing   = errors.New("adapter and depositor identities are required")
	ErrConservation      = errors.New("donation ledger conservation violated")
)

// Entry is one recorded donation.
type Entry struct {
	AdapterID   string      `json:"adapter_id"`
	DepositorID string      `json:"depositor_id"`
	Amount      sdkmath.Int `json:"amount"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Ledger is an append-mostly record of donations with running totals.
type Ledger struct {
	mu          sync.Mutex
	entries     []Entry
	byAdapter   map[string]sdkmath.Int
	byDepositor map[string]sdkmath.Int
	global      sdkmath.Int
}

// NewLedger returns an empty donation ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byAdapter:   make(map[string]sdkmath.Int),
		byDepositor: make(map[string]sdkmath.Int),
		global:      sdkmath.ZeroInt(),
	}
}

// RecordDonation appends a donation and updates all running totals together.
// Implements the DonationSink collaborator contract.
func (l *Ledger) RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error {
	if adapterID == "" || depositorID == "" {
		return ErrIdentityMissing
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("%w: got %v", ErrAmountNotPositive, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Entry{
		AdapterID:   adapterID,
		DepositorID: depositorID,
		Amount:      amount,
		Timestamp:   time.Now(),
	})
	l.byAdapter[adapterID] = l.totalLocked(l.byAdapter, adapterID).Add(amount)
	l.byDepositor[depositorID] = l.totalLocked(l.byDepositor, depositorID).Add(amount)
	l.global = l.global.Add(amount)
	return nil
}

func (l *Ledger) totalLocked(m map[string]sdkmath.Int, key string) sdkmath.Int {
	if v, ok := m[key]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// GlobalTotal returns the total donated across all adapters.
func (l *Ledger) GlobalTotal() sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.global
}

// TotalByAdapter returns the running total for one adapter.
func (l *Ledger) TotalByAdapter(adapterID string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked(l.byAdapter, adapterID)
}

// TotalByDepositor returns the running total for one depositor.
func (l *Ledger) TotalByDepositor(depositorID string) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked(l.byDepositor, depositorID)
}

// Entries returns a copy of all recorded donations.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CheckConservation audits the running totals against each other.
func (l *Ledger) CheckConservation() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sumAdapters := sdkmath.ZeroInt()
	for _, v := range l.byAdapter {
		sumAdapters = sumAdapters.Add(v)
	}
	sumDepositors := sdkmath.ZeroInt()
	for _, v := range l.byDepositor {
		sumDepositors = sumDepositors.Add(v)
	}
	if !sumAdapters.Equal(l.global) || !sumDepositors.Equal(l.global) {
		return fmt.Errorf("%w: global=%s adapters=%s depositors=%s", ErrConservation, l.global, sumAdapters, sumDepositors)
	}
	return nil
}

// Sink is the subset of the collaborator contract a fan-out target must meet.
type Sink interface {
	RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error
}

// Tee fans one donation record out to several sinks. Each sink receives every
// record; the first failure aborts so the adapter can queue the donation.
type Tee struct {
	sinks []Sink
}

// NewTee builds a fan-out sink over the given sinks.
func NewTee(sinks ...Sink) *Tee {
	return &Tee{sinks: sinks}
}

func (t *Tee) RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error {
	for _, sink := range t.sinks {
		if err := sink.RecordDonation(adapterID, depositorID, amount); err != nil {
			return err
		}
	}
	return nil
}
