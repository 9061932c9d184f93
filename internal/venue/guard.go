/*

This file wraps the external collaborators with a circuit breaker. Every call
into a venue, claimer, or swap service goes through the breaker so repeated
failures trip fast instead of hammering a degraded collaborator, and every
failure comes back as a typed CollaboratorFailure the caller can contain.

*/

package venue

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/sony/gobreaker"

	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/types"
)

// newBreaker builds the breaker settings shared by all guarded collaborators.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	guardLogger := logger.GetForComponent("venue_guard")
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			guardLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Collaborator circuit breaker state changed")
		},
	})
}

// GuardedVenue wraps a VenueClient with a circuit breaker.
type GuardedVenue struct {
	inner VenueClient
	cb    *gobreaker.CircuitBreaker
}

// Guard wraps the given venue client with a named circuit breaker.
func Guard(name string, inner VenueClient) *GuardedVenue {
	return &GuardedVenue{inner: inner, cb: newBreaker(name)}
}

func (g *GuardedVenue) execAmount(op string, fn func() (sdkmath.Int, error)) (sdkmath.Int, error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s: %w", types.ErrCollaboratorFailure, op, err)
	}
	return res.(sdkmath.Int), nil
}

func (g *GuardedVenue) Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	return g.execAmount("supply", func() (sdkmath.Int, error) {
		return g.inner.Supply(asset, amount)
	})
}

func (g *GuardedVenue) Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error) {
	return g.execAmount("withdraw", func() (sdkmath.Int, error) {
		return g.inner.Withdraw(asset, amount, to)
	})
}

func (g *GuardedVenue) DeployedBalance(asset string) (sdkmath.Int, error) {
	return g.execAmount("deployed balance", func() (sdkmath.Int, error) {
		return g.inner.DeployedBalance(asset)
	})
}

func (g *GuardedVenue) IsHealthy() (bool, error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.IsHealthy()
	})
	if err != nil {
		return false, fmt.Errorf("%w: health check: %w", types.ErrCollaboratorFailure, err)
	}
	return res.(bool), nil
}

func (g *GuardedVenue) Close() error {
	return g.inner.Close()
}

// GuardedSwap wraps a SwapService with a circuit breaker.
type GuardedSwap struct {
	inner SwapService
	cb    *gobreaker.CircuitBreaker
}

// GuardSwap wraps the given swap service with a named circuit breaker.
func GuardSwap(name string, inner SwapService) *GuardedSwap {
	return &GuardedSwap{inner: inner, cb: newBreaker(name)}
}

func (g *GuardedSwap) ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error) {
	res, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.ConvertToSettlement(token, amount)
	})
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: swap %s: %w", types.ErrCollaboratorFailure, token, err)
	}
	return res.(sdkmath.Int), nil
}

// GuardedBorrowingVenue extends GuardedVenue with the borrowing surface, so
// the leverage path runs through the same breaker.
type GuardedBorrowingVenue struct {
	GuardedVenue
	inner BorrowingVenueClient
}

// GuardBorrowing wraps a borrowing-capable venue client with a named circuit
// breaker.
func GuardBorrowing(name string, inner BorrowingVenueClient) *GuardedBorrowingVenue {
	return &GuardedBorrowingVenue{
		GuardedVenue: GuardedVenue{inner: inner, cb: newBreaker(name)},
		inner:        inner,
	}
}

func (g *GuardedBorrowingVenue) Borrow(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	return g.execAmount("borrow", func() (sdkmath.Int, error) {
		return g.inner.Borrow(asset, amount)
	})
}

func (g *GuardedBorrowingVenue) Repay(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	return g.execAmount("repay", func() (sdkmath.Int, error) {
		return g.inner.Repay(asset, amount)
	})
}
