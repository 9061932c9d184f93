/*

This file contains the venue adapter: the per-venue harvest state machine that
tracks principal and profit, measures realized gain, and routes the donation
slice of each gain to the public-goods recipient. One generic engine serves all
venues; each instance is parameterized by its VenueClient and collaborators.

Every mutating operation holds the adapter lock for its full duration,
including external collaborator calls, so a concurrent harvest can never read a
stale snapshot and a concurrent deposit can never invalidate buffer math
mid-computation.

*/

package adapter

import (
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impactvault/ivm/internal/ledger"
	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/policy"
	"github.com/impactvault/ivm/internal/risk"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/venue"
)

// boostValidity is how long an automatically upgraded boost stays active.
const boostValidity = 30 * 24 * time.Hour

// VenueAdapter is the harvest engine for one external yield venue.
type VenueAdapter struct {
	mu sync.Mutex

	cfg    types.AdapterConfig
	paused bool

	book     *ledger.AssetLedger
	snapshot *ledger.AccountingSnapshot
	buffer   *ledger.BufferManager

	client  venue.VenueClient
	claimer venue.RewardClaimer
	swapper venue.SwapService
	sink    venue.DonationSink
	tiers   venue.TierIssuer
	boosts  *policy.BoostRegistry
	events  *types.Recorder

	account string

	depositorPrincipal map[string]sdkmath.Int
	cumulativeDonated  map[string]sdkmath.Int
	withdrawLockedTill map[string]time.Time

	borrowed sdkmath.Int

	totalDeposited      sdkmath.Int
	totalWithdrawn      sdkmath.Int
	totalYieldGenerated sdkmath.Int
	totalDonated        sdkmath.Int
	queuedDonations     sdkmath.Int

	lastHarvest time.Time

	now    func() time.Time
	logger zerolog.Logger
}

// Config holds the dependencies for creating a new venue adapter.
type Config struct {
	AdapterConfig types.AdapterConfig
	Client        venue.VenueClient
	Claimer       venue.RewardClaimer
	Swapper       venue.SwapService
	Sink          venue.DonationSink
	Tiers         venue.TierIssuer
	Boosts        *policy.BoostRegistry
	Events        *types.Recorder
	Account       string

	// Clock overrides the time source; nil means time.Now. Used by tests.
	Clock func() time.Time
}

// New creates a venue adapter with dependency injection.
func New(cfg Config) (*VenueAdapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("adapter configuration validation failed: %w", err)
	}

	book := ledger.NewAssetLedger()
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	log := logger.GetForComponent("venue_adapter").With().
		Str("adapter_id", cfg.AdapterConfig.AdapterID).Logger()

	a := &VenueAdapter{
		cfg:      cfg.AdapterConfig,
		book:     book,
		snapshot: ledger.NewAccountingSnapshot(),
		buffer: ledger.NewBufferManager(
			book, cfg.Client, cfg.AdapterConfig.SettlementAsset, cfg.Account, log,
		),
		client:  cfg.Client,
		claimer: cfg.Claimer,
		swapper: cfg.Swapper,
		sink:    cfg.Sink,
		tiers:   cfg.Tiers,
		boosts:  cfg.Boosts,
		events:  cfg.Events,
		account: cfg.Account,

		depositorPrincipal: make(map[string]sdkmath.Int),
		cumulativeDonated:  make(map[string]sdkmath.Int),
		withdrawLockedTill: make(map[string]time.Time),

		borrowed:            sdkmath.ZeroInt(),
		totalDeposited:      sdkmath.ZeroInt(),
		totalWithdrawn:      sdkmath.ZeroInt(),
		totalYieldGenerated: sdkmath.ZeroInt(),
		totalDonated:        sdkmath.ZeroInt(),
		queuedDonations:     sdkmath.ZeroInt(),

		now:    clock,
		logger: log,
	}

	a.logger.Info().
		Str("settlementAsset", a.cfg.SettlementAsset).
		Uint32("bufferBps", a.cfg.BufferBps).
		Uint32("donationBps", a.cfg.DonationBps).
		Msg("Venue adapter created")

	return a, nil
}

func validateConfig(cfg Config) error {
	if cfg.Client == nil {
		return fmt.Errorf("venue client cannot be nil")
	}
	if cfg.Claimer == nil {
		return fmt.Errorf("reward claimer cannot be nil")
	}
	if cfg.Swapper == nil {
		return fmt.Errorf("swap service cannot be nil")
	}
	if cfg.Sink == nil {
		return fmt.Errorf("donation sink cannot be nil")
	}
	if cfg.Tiers == nil {
		return fmt.Errorf("tier issuer cannot be nil")
	}
	if cfg.Boosts == nil {
		return fmt.Errorf("boost registry cannot be nil")
	}
	if cfg.Events == nil {
		return fmt.Errorf("event recorder cannot be nil")
	}
	return cfg.AdapterConfig.Validate()
}

// ID returns the adapter identifier.
func (a *VenueAdapter) ID() string {
	return a.cfg.AdapterID
}

// TotalAssets returns the adapter's on-book value (buffer plus deployed
// principal).
func (a *VenueAdapter) TotalAssets() sdkmath.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.book.TotalOnBook()
}

// Deposit validates, splits, and deploys a depositor's capital.
// portfolioTotal is the combined portfolio value before this deposit, used for
// the concentration check.
func (a *VenueAdapter) Deposit(depositor string, amount, portfolioTotal sdkmath.Int) (types.DepositReceipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rejected := types.DepositReceipt{
		AdapterID: a.cfg.AdapterID,
		Deposited: sdkmath.ZeroInt(),
		Buffered:  sdkmath.ZeroInt(),
		Deployed:  sdkmath.ZeroInt(),
		Status:    types.OutcomeRejected,
	}
	if a.paused {
		return rejected, fmt.Errorf("%w: %s", types.ErrAdapterPaused, a.cfg.AdapterID)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return rejected, fmt.Errorf("%w: deposit amount must be positive", types.ErrInvariantViolation)
	}

	if err := risk.ValidateDeploy(amount, a.cfg.Risk, a.exposureLocked(portfolioTotal)); err != nil {
		a.events.Record(types.Event{
			Type:      types.EventRiskViolationRejected,
			AdapterID: a.cfg.AdapterID,
			Depositor: depositor,
			Amount:    amount,
			Reason:    err.Error(),
		})
		return rejected, err
	}

	buffered, toDeploy, err := ledger.Split(amount, a.cfg.BufferBps)
	if err != nil {
		return rejected, err
	}
	if err := a.book.CreditBuffer(buffered); err != nil {
		return rejected, err
	}

	deployed := sdkmath.ZeroInt()
	status := types.OutcomeFull
	if toDeploy.IsPositive() {
		got, err := a.client.Supply(a.cfg.SettlementAsset, toDeploy)
		if err != nil {
			// Degrade: keep the would-be deployment on the buffer where the
			// funds stay safe. The next deposit or rebalance can retry.
			a.logger.Warn().Err(err).
				Str("toDeploy", toDeploy.String()).
				Msg("Venue supply failed, keeping capital on buffer")
			if err := a.book.CreditBuffer(toDeploy); err != nil {
				return rejected, err
			}
			status = types.OutcomePartial
		} else {
			deployed = got
			if err := a.book.RecordDeploy(deployed); err != nil {
				return rejected, err
			}
			// Anything the venue did not accept stays on the buffer.
			if deployed.LT(toDeploy) {
				if err := a.book.CreditBuffer(toDeploy.Sub(deployed)); err != nil {
					return rejected, err
				}
			}
		}
	}

	now := a.now()
	a.depositorPrincipal[depositor] = a.principalLocked(depositor).Add(amount)
	a.totalDeposited = a.totalDeposited.Add(amount)
	a.withdrawLockedTill[depositor] = now.Add(a.cfg.WithdrawCooldown)

	// The deposit changed measured value; advance the snapshot with it so the
	// next harvest does not count the deposit as gain.
	if err := a.snapshot.Advance(a.snapshot.Value().Add(amount), now); err != nil {
		return rejected, err
	}

	a.events.Record(types.Event{
		Type:      types.EventDepositRecorded,
		AdapterID: a.cfg.AdapterID,
		Depositor: depositor,
		Amount:    amount,
		Timestamp: now,
	})
	a.logger.Info().
		Str("depositor", depositor).
		Str("amount", amount.String()).
		Str("buffered", buffered.String()).
		Str("deployed", deployed.String()).
		Msg("Deposit recorded")

	return types.DepositReceipt{
		AdapterID: a.cfg.AdapterID,
		Deposited: amount,
		Buffered:  a.book.Buffer(),
		Deployed:  deployed,
		Status:    status,
	}, nil
}

// Withdraw returns up to the requested amount to the depositor. A shortfall is
// surfaced on the receipt, never silently dropped, so the router can retry
// against another adapter.
func (a *VenueAdapter) Withdraw(depositor string, requested sdkmath.Int, to string) (types.WithdrawReceipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rejected := types.WithdrawReceipt{
		AdapterID: a.cfg.AdapterID,
		Requested: requested,
		Fulfilled: sdkmath.ZeroInt(),
		Shortfall: requested,
		Status:    types.OutcomeRejected,
	}
	if requested.IsNil() || !requested.IsPositive() {
		rejected.Requested = sdkmath.ZeroInt()
		rejected.Shortfall = sdkmath.ZeroInt()
		return rejected, fmt.Errorf("%w: withdraw amount must be positive", types.ErrInvariantViolation)
	}

	now := a.now()
	if locked, ok := a.withdrawLockedTill[depositor]; ok && now.Before(locked) {
		return rejected, fmt.Errorf("%w: depositor %s locked until %s", types.ErrWithdrawCooldown, depositor, locked.Format(time.RFC3339))
	}

	if err := risk.ValidateWithdraw(requested, a.cfg.Risk, a.exposureLocked(a.book.TotalOnBook())); err != nil {
		a.events.Record(types.Event{
			Type:      types.EventRiskViolationRejected,
			AdapterID: a.cfg.AdapterID,
			Depositor: depositor,
			Amount:    requested,
			Reason:    err.Error(),
		})
		return rejected, err
	}

	available := a.book.TotalOnBook()
	target := types.MinAmount(requested, available)

	fulfilled := sdkmath.ZeroInt()
	if target.IsPositive() {
		got, err := a.buffer.EnsureLiquidity(target)
		if err != nil {
			return rejected, err
		}
		fulfilled = types.MinAmount(target, got)
		if fulfilled.IsPositive() {
			if err := a.book.DebitBuffer(fulfilled); err != nil {
				return rejected, err
			}
		}
	}

	shortfall := requested.Sub(fulfilled)
	status := types.OutcomeFull
	if shortfall.IsPositive() {
		status = types.OutcomePartial
	}

	principal := a.principalLocked(depositor)
	reduced := principal.Sub(fulfilled)
	if reduced.IsNegative() {
		reduced = sdkmath.ZeroInt()
	}
	a.depositorPrincipal[depositor] = reduced
	a.totalWithdrawn = a.totalWithdrawn.Add(fulfilled)

	if fulfilled.IsPositive() {
		// Mirror the withdrawal in the snapshot so the next harvest does not
		// read it as a loss.
		next := a.snapshot.Value().Sub(fulfilled)
		if next.IsNegative() {
			next = sdkmath.ZeroInt()
		}
		if err := a.snapshot.Advance(next, now); err != nil {
			return rejected, err
		}
	}

	a.events.Record(types.Event{
		Type:      types.EventWithdrawRecorded,
		AdapterID: a.cfg.AdapterID,
		Depositor: depositor,
		Amount:    fulfilled,
		Timestamp: now,
	})
	a.logger.Info().
		Str("depositor", depositor).
		Str("requested", requested.String()).
		Str("fulfilled", fulfilled.String()).
		Str("shortfall", shortfall.String()).
		Str("to", to).
		Msg("Withdrawal recorded")

	return types.WithdrawReceipt{
		AdapterID: a.cfg.AdapterID,
		Requested: requested,
		Fulfilled: fulfilled,
		Shortfall: shortfall,
		Status:    status,
	}, nil
}

// exposureLocked builds the risk gate's view of current state. Caller holds the
// lock.
func (a *VenueAdapter) exposureLocked(portfolioTotal sdkmath.Int) risk.ExposureState {
	if portfolioTotal.IsNil() {
		portfolioTotal = a.book.TotalOnBook()
	}
	return risk.ExposureState{
		Buffer:         a.book.Buffer(),
		Deployed:       a.book.Deployed(),
		Borrowed:       a.borrowed,
		PortfolioTotal: portfolioTotal,
		VenuePaused:    a.venuePausedLocked(),
	}
}

// venuePausedLocked asks the venue whether it is healthy. A failed health check
// counts as paused: a venue we cannot reach is not one to deploy into.
func (a *VenueAdapter) venuePausedLocked() bool {
	healthy, err := a.client.IsHealthy()
	if err != nil {
		a.logger.Warn().Err(err).Msg("Venue health check failed, treating as paused")
		return true
	}
	return !healthy
}

func (a *VenueAdapter) principalLocked(depositor string) sdkmath.Int {
	if v, ok := a.depositorPrincipal[depositor]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

// sortedDepositorsLocked returns depositor identities in deterministic order.
func (a *VenueAdapter) sortedDepositorsLocked() []string {
	out := make([]string, 0, len(a.depositorPrincipal))
	for dep := range a.depositorPrincipal {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// Pause stops deposits, withdrawals, and harvests on this adapter.
func (a *VenueAdapter) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paused {
		return
	}
	a.paused = true
	a.events.Record(types.Event{Type: types.EventAdapterPaused, AdapterID: a.cfg.AdapterID, Timestamp: a.now()})
	a.logger.Warn().Msg("Adapter paused")
}

// Unpause re-enables the adapter.
func (a *VenueAdapter) Unpause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.paused {
		return
	}
	a.paused = false
	a.events.Record(types.Event{Type: types.EventAdapterUnpaused, AdapterID: a.cfg.AdapterID, Timestamp: a.now()})
	a.logger.Info().Msg("Adapter unpaused")
}

// Paused reports whether the adapter is paused.
func (a *VenueAdapter) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Config returns the current configuration value.
func (a *VenueAdapter) Config() types.AdapterConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// UpdateConfig validates and swaps in a new configuration wholesale
// (copy-on-write). The adapter ID and settlement asset cannot change.
func (a *VenueAdapter) UpdateConfig(next types.AdapterConfig) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if next.AdapterID != a.cfg.AdapterID {
		return fmt.Errorf("%w: adapter ID is immutable", types.ErrInvariantViolation)
	}
	if next.SettlementAsset != a.cfg.SettlementAsset {
		return fmt.Errorf("%w: settlement asset is immutable", types.ErrInvariantViolation)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	a.cfg = next
	a.logger.Info().
		Uint32("donationBps", next.DonationBps).
		Uint32("bufferBps", next.BufferBps).
		Msg("Adapter configuration updated")
	return nil
}

// Status is a read-only snapshot of adapter state for dashboards and tests.
type Status struct {
	AdapterID           string      `json:"adapter_id"`
	SettlementAsset     string      `json:"settlement_asset"`
	Paused              bool        `json:"paused"`
	Buffer              sdkmath.Int `json:"buffer"`
	Deployed            sdkmath.Int `json:"deployed"`
	Borrowed            sdkmath.Int `json:"borrowed"`
	SnapshotValue       sdkmath.Int `json:"snapshot_value"`
	TotalDeposited      sdkmath.Int `json:"total_deposited"`
	TotalWithdrawn      sdkmath.Int `json:"total_withdrawn"`
	TotalYieldGenerated sdkmath.Int `json:"total_yield_generated"`
	TotalDonated        sdkmath.Int `json:"total_donated"`
	QueuedDonations     sdkmath.Int `json:"queued_donations"`
	LastHarvest         time.Time   `json:"last_harvest"`
}

// Status returns the adapter's current accounting state.
func (a *VenueAdapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		AdapterID:           a.cfg.AdapterID,
		SettlementAsset:     a.cfg.SettlementAsset,
		Paused:              a.paused,
		Buffer:              a.book.Buffer(),
		Deployed:            a.book.Deployed(),
		Borrowed:            a.borrowed,
		SnapshotValue:       a.snapshot.Value(),
		TotalDeposited:      a.totalDeposited,
		TotalWithdrawn:      a.totalWithdrawn,
		TotalYieldGenerated: a.totalYieldGenerated,
		TotalDonated:        a.totalDonated,
		QueuedDonations:     a.queuedDonations,
		LastHarvest:         a.lastHarvest,
	}
}

// newHarvestLogger returns a child logger carrying a unique harvest ID for
// tracing one harvest across all its steps.
func (a *VenueAdapter) newHarvestLogger() zerolog.Logger {
	return a.logger.With().Str("harvest_id", uuid.New().String()).Logger()
}
