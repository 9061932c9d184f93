/*

This file contains the portfolio router. It fans deposits out across venue
adapters by configured weight (the last share absorbs rounding remainder),
fans withdrawals out proportionally to current value, and harvests every
adapter with independent try/continue semantics. Adapters hold their own locks;
the router's lock only covers the weight table and portfolio aggregates.

*/

package router

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/impactvault/ivm/internal/adapter"
	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/utils"
)

// PortfolioRouter aggregates venue adapters under one weighted portfolio.
type PortfolioRouter struct {
	mu       sync.Mutex
	adapters []*adapter.VenueAdapter
	weights  map[string]uint32
	logger   zerolog.Logger
}

// New creates a router over the given adapters. Weights are keyed by adapter
// ID and must sum to exactly 10000.
func New(adapters []*adapter.VenueAdapter, weights map[string]uint32) (*PortfolioRouter, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%w: at least one adapter is required", types.ErrInvariantViolation)
	}
	if err := validateWeights(adapters, weights); err != nil {
		return nil, err
	}

	r := &PortfolioRouter{
		adapters: adapters,
		weights:  copyWeights(weights),
		logger:   logger.GetForComponent("portfolio_router"),
	}
	r.logger.Info().Int("adapters", len(adapters)).Msg("Portfolio router created")
	return r, nil
}

func validateWeights(adapters []*adapter.VenueAdapter, weights map[string]uint32) error {
	if len(weights) != len(adapters) {
		return fmt.Errorf("%w: weights must cover every adapter exactly once", types.ErrInvariantViolation)
	}
	sum := uint32(0)
	for _, a := range adapters {
		w, ok := weights[a.ID()]
		if !ok {
			return fmt.Errorf("%w: missing weight for adapter %s", types.ErrInvariantViolation, a.ID())
		}
		sum += w
	}
	if sum != types.BpsDenominator {
		return fmt.Errorf("%w: weights sum to %d bps, want %d", types.ErrInvariantViolation, sum, types.BpsDenominator)
	}
	return nil
}

func copyWeights(weights map[string]uint32) map[string]uint32 {
	out := make(map[string]uint32, len(weights))
	for k, v := range weights {
		out[k] = v
	}
	return out
}

// SetWeights swaps in a new weight table. Rejected wholesale if the new table
// does not sum to 10000 or does not cover every adapter.
func (r *PortfolioRouter) SetWeights(weights map[string]uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := validateWeights(r.adapters, weights); err != nil {
		return err
	}
	r.weights = copyWeights(weights)
	r.logger.Info().Msg("Portfolio weights updated")
	return nil
}

// Weights returns a copy of the current weight table.
func (r *PortfolioRouter) Weights() map[string]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyWeights(r.weights)
}

// TotalAssets returns the combined on-book value of every adapter.
func (r *PortfolioRouter) TotalAssets() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, a := range r.adapters {
		total = total.Add(a.TotalAssets())
	}
	return total
}

// Deposit splits amount across adapters by configured weight, in registration
// order. The last adapter's share absorbs the rounding remainder so the full
// amount is always placed. One adapter's rejection does not abort the others;
// its share is reported back as rejected.
func (r *PortfolioRouter) Deposit(depositor string, amount sdkmath.Int) ([]types.DepositReceipt, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: deposit amount must be positive", types.ErrInvariantViolation)
	}

	r.mu.Lock()
	weights := copyWeights(r.weights)
	r.mu.Unlock()

	receipts := make([]types.DepositReceipt, 0, len(r.adapters))
	remaining := amount

	// Concentration is judged against the portfolio as it will stand once the
	// whole deposit has landed, so the first share into an empty portfolio is
	// not read as total concentration.
	projected := r.TotalAssets().Add(amount)

	for i, a := range r.adapters {
		var share sdkmath.Int
		if i == len(r.adapters)-1 {
			share = remaining
		} else {
			var err error
			share, err = utils.BpsOf(amount, weights[a.ID()])
			if err != nil {
				return receipts, err
			}
		}
		if !share.IsPositive() {
			continue
		}
		remaining = remaining.Sub(share)

		receipt, err := a.Deposit(depositor, share, projected.Sub(share))
		if err != nil {
			r.logger.Warn().Err(err).
				Str("adapter", a.ID()).
				Str("share", share.String()).
				Msg("Adapter rejected deposit share")
		}
		receipts = append(receipts, receipt)
	}
	return receipts, nil
}

// Withdraw pulls amount out of the portfolio proportionally to each adapter's
// current value share, not its configured weight; drifted adapters therefore
// give back more of their outperformance. The combined shortfall is surfaced on
// the aggregate receipt.
func (r *PortfolioRouter) Withdraw(depositor string, amount sdkmath.Int, to string) (types.WithdrawReceipt, []types.WithdrawReceipt, error) {
	aggregate := types.WithdrawReceipt{
		AdapterID: "portfolio",
		Requested: amount,
		Fulfilled: sdkmath.ZeroInt(),
		Shortfall: amount,
		Status:    types.OutcomeRejected,
	}
	if amount.IsNil() || !amount.IsPositive() {
		return aggregate, nil, fmt.Errorf("%w: withdraw amount must be positive", types.ErrInvariantViolation)
	}

	portfolioTotal := r.TotalAssets()
	if portfolioTotal.IsZero() {
		return aggregate, nil, fmt.Errorf("%w: portfolio is empty", types.ErrInsufficientLiquidity)
	}

	receipts := make([]types.WithdrawReceipt, 0, len(r.adapters))
	fulfilled := sdkmath.ZeroInt()
	remaining := amount

	for i, a := range r.adapters {
		var share sdkmath.Int
		if i == len(r.adapters)-1 {
			share = remaining
		} else {
			share = amount.Mul(a.TotalAssets()).Quo(portfolioTotal)
		}
		if !share.IsPositive() {
			continue
		}
		remaining = remaining.Sub(share)

		receipt, err := a.Withdraw(depositor, share, to)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("adapter", a.ID()).
				Str("share", share.String()).
				Msg("Adapter rejected withdrawal share")
		}
		receipts = append(receipts, receipt)
		fulfilled = fulfilled.Add(receipt.Fulfilled)
	}

	aggregate.Fulfilled = fulfilled
	aggregate.Shortfall = amount.Sub(fulfilled)
	switch {
	case fulfilled.Equal(amount):
		aggregate.Status = types.OutcomeFull
	case fulfilled.IsPositive():
		aggregate.Status = types.OutcomePartial
	}
	return aggregate, receipts, nil
}

// HarvestAll harvests every adapter. Adapters are independent locks, so the
// sub-harvests run concurrently; one adapter's failure never blocks the rest.
func (r *PortfolioRouter) HarvestAll() ([]types.HarvestReport, []string) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports []types.HarvestReport
		failed  []string
	)

	for _, a := range r.adapters {
		wg.Add(1)
		go func(a *adapter.VenueAdapter) {
			defer wg.Done()
			report, err := a.Harvest()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn().Err(err).Str("adapter", a.ID()).Msg("Adapter harvest failed")
				failed = append(failed, a.ID())
				return
			}
			reports = append(reports, report)
		}(a)
	}
	wg.Wait()
	return reports, failed
}

// Adapters returns the registered adapters in order.
func (r *PortfolioRouter) Adapters() []*adapter.VenueAdapter {
	return r.adapters
}
