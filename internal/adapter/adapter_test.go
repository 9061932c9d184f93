package adapter

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactvault/ivm/internal/policy"
	"github.com/impactvault/ivm/internal/types"
	"github.com/impactvault/ivm/internal/venue"
)

// fakeVenue is a borrowing-capable venue client backed by a single balance.
type fakeVenue struct {
	balance sdkmath.Int

	supplyErr   error
	withdrawErr error
	borrowErr   error
	unhealthy   bool
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{balance: sdkmath.ZeroInt()}
}

func (v *fakeVenue) Supply(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if v.supplyErr != nil {
		return sdkmath.ZeroInt(), v.supplyErr
	}
	v.balance = v.balance.Add(amount)
	return amount, nil
}

func (v *fakeVenue) Withdraw(asset string, amount sdkmath.Int, to string) (sdkmath.Int, error) {
	if v.withdrawErr != nil {
		return sdkmath.ZeroInt(), v.withdrawErr
	}
	v.balance = v.balance.Sub(amount)
	if v.balance.IsNegative() {
		v.balance = sdkmath.ZeroInt()
	}
	return amount, nil
}

func (v *fakeVenue) DeployedBalance(asset string) (sdkmath.Int, error) {
	return v.balance, nil
}

func (v *fakeVenue) IsHealthy() (bool, error) { return !v.unhealthy, nil }

func (v *fakeVenue) Close() error { return nil }

func (v *fakeVenue) Borrow(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	if v.borrowErr != nil {
		return sdkmath.ZeroInt(), v.borrowErr
	}
	return amount, nil
}

func (v *fakeVenue) Repay(asset string, amount sdkmath.Int) (sdkmath.Int, error) {
	return amount, nil
}

// accrue simulates yield earned inside the venue.
func (v *fakeVenue) accrue(amount int64) {
	v.balance = v.balance.Add(sdkmath.NewInt(amount))
}

type fakeClaimer struct {
	rewards []venue.RewardBalance
	err     error
}

func (c *fakeClaimer) ClaimAll(adapterID string) ([]venue.RewardBalance, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.rewards, nil
}

type fakeSwap struct {
	err error
}

func (s *fakeSwap) ConvertToSettlement(token string, amount sdkmath.Int) (sdkmath.Int, error) {
	if s.err != nil {
		return sdkmath.ZeroInt(), s.err
	}
	return amount, nil
}

type fakeSink struct {
	err     error
	records []sdkmath.Int
	total   sdkmath.Int
}

func newFakeSink() *fakeSink { return &fakeSink{total: sdkmath.ZeroInt()} }

func (s *fakeSink) RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, amount)
	s.total = s.total.Add(amount)
	return nil
}

type fakeTiers struct {
	updates int
}

func (t *fakeTiers) UpdateTier(depositorID string, cumulativeTotal sdkmath.Int) error {
	t.updates++
	return nil
}

// harness bundles an adapter with its fakes and a controllable clock.
type harness struct {
	adapter *VenueAdapter
	venue   *fakeVenue
	claimer *fakeClaimer
	swapper *fakeSwap
	sink    *fakeSink
	tiers   *fakeTiers
	boosts  *policy.BoostRegistry
	events  *types.Recorder
	now     time.Time
}

func (h *harness) advance(d time.Duration) { h.now = h.now.Add(d) }

func newHarness(t *testing.T, mutate func(*types.AdapterConfig)) *harness {
	t.Helper()

	cfg := types.AdapterConfig{
		AdapterID:        "aave-usdc",
		SettlementAsset:  "usdc",
		BufferBps:        200,
		DonationBps:      500,
		MinDonation:      sdkmath.NewInt(100),
		HarvestCooldown:  0,
		WithdrawCooldown: 0,
		Risk:             types.DefaultRiskParameters(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	h := &harness{
		venue:   newFakeVenue(),
		claimer: &fakeClaimer{},
		swapper: &fakeSwap{},
		sink:    newFakeSink(),
		tiers:   &fakeTiers{},
		boosts:  policy.NewBoostRegistry(),
		events:  types.NewRecorder(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	a, err := New(Config{
		AdapterConfig: cfg,
		Client:        h.venue,
		Claimer:       h.claimer,
		Swapper:       h.swapper,
		Sink:          h.sink,
		Tiers:         h.tiers,
		Boosts:        h.boosts,
		Events:        h.events,
		Account:       "ivm-treasury",
		Clock:         func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.adapter = a
	return h
}

// portfolioTotal large enough that the concentration limit never interferes
// with tests that are not about it.
var widePortfolio = sdkmath.NewInt(100_000_000)

func TestDepositSplitsBufferAndDeploys(t *testing.T) {
	h := newHarness(t, nil)

	receipt, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeFull, receipt.Status)
	assert.Equal(t, sdkmath.NewInt(980_000), receipt.Deployed)

	st := h.adapter.Status()
	assert.Equal(t, sdkmath.NewInt(20_000), st.Buffer)
	assert.Equal(t, sdkmath.NewInt(980_000), st.Deployed)
	assert.Equal(t, sdkmath.NewInt(1_000_000), st.SnapshotValue)
	assert.Equal(t, sdkmath.NewInt(1_000_000), h.adapter.TotalAssets())
}

func TestDepositRejectedWhilePaused(t *testing.T) {
	h := newHarness(t, nil)
	h.adapter.Pause()

	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000), widePortfolio)
	assert.ErrorIs(t, err, types.ErrAdapterPaused)

	h.adapter.Unpause()
	_, err = h.adapter.Deposit("alice", sdkmath.NewInt(1_000), widePortfolio)
	assert.NoError(t, err)
}

func TestDepositDegradesToBufferOnSupplyFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.venue.supplyErr = errors.New("venue rejected supply")

	receipt, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomePartial, receipt.Status)
	st := h.adapter.Status()
	assert.Equal(t, sdkmath.NewInt(1_000_000), st.Buffer, "the full deposit stays on the buffer")
	assert.True(t, st.Deployed.IsZero())
}

func TestDepositRejectedByRiskGateEmitsEvent(t *testing.T) {
	h := newHarness(t, nil)

	// A portfolio this small makes any deployment breach concentration.
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), sdkmath.NewInt(10_000))
	assert.ErrorIs(t, err, types.ErrRiskViolation)
	assert.Len(t, h.events.EventsOfType(types.EventRiskViolationRejected), 1)
	assert.True(t, h.adapter.TotalAssets().IsZero(), "a rejected deposit leaves no trace on the book")
}

func TestHarvestDonatesShareOfGain(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	// Yield accrues inside the venue between harvests.
	h.venue.accrue(50_000)
	h.advance(time.Hour)

	report, err := h.adapter.Harvest()
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeFull, report.Status)
	assert.Equal(t, sdkmath.NewInt(50_000), report.Gain)
	assert.Equal(t, sdkmath.NewInt(2_500), report.Donation)
	assert.True(t, report.QueuedDonation.IsZero())
	assert.Equal(t, sdkmath.NewInt(2_500), h.sink.total)

	st := h.adapter.Status()
	assert.Equal(t, sdkmath.NewInt(1_050_000), st.SnapshotValue)
	assert.Equal(t, sdkmath.NewInt(17_500), st.Buffer, "the donation leaves from the buffer")
	assert.Equal(t, sdkmath.NewInt(2_500), st.TotalDonated)
	assert.Equal(t, sdkmath.NewInt(50_000), st.TotalYieldGenerated)
	assert.Len(t, h.events.EventsOfType(types.EventDonationSent), 1)
}

func TestHarvestAppliesActiveBoost(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	require.NoError(t, h.boosts.Set("alice", types.DepositorBoost{
		Tier:   types.TierGold,
		Expiry: h.now.Add(24 * time.Hour),
	}))

	h.venue.accrue(50_000)
	h.advance(time.Hour)

	report, err := h.adapter.Harvest()
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(3_750), report.Donation, "a 1.5x gold boost scales the 2,500 base donation")
}

func TestHarvestQueuesDonationWhenBufferCannotCover(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.BufferBps = 0 // everything deployed, nothing liquid
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	h.venue.accrue(50_000)
	h.advance(time.Hour)
	// The buffer top-up cannot reach the venue either.
	h.venue.withdrawErr = errors.New("venue withdrawal suspended")

	report, err := h.adapter.Harvest()
	require.NoError(t, err, "insufficient liquidity queues, it does not fail the harvest")

	assert.Equal(t, types.OutcomePartial, report.Status)
	assert.Equal(t, sdkmath.NewInt(2_500), report.QueuedDonation)
	assert.True(t, report.Donation.IsZero())
	assert.True(t, h.sink.total.IsZero())

	st := h.adapter.Status()
	assert.Equal(t, sdkmath.NewInt(2_500), st.QueuedDonations)
	assert.True(t, st.TotalDonated.IsZero())
	assert.Len(t, h.events.EventsOfType(types.EventDonationQueued), 1)
}

func TestHarvestQueuesSliceOnSinkFailure(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	h.venue.accrue(50_000)
	h.advance(time.Hour)
	h.sink.err = errors.New("donation registry offline")

	report, err := h.adapter.Harvest()
	require.NoError(t, err)
	assert.Equal(t, sdkmath.NewInt(2_500), report.QueuedDonation)
	assert.True(t, report.Donation.IsZero())
	assert.Equal(t, sdkmath.NewInt(20_000), h.adapter.Status().Buffer, "a queued slice never leaves the buffer")
}

func TestHarvestZeroGainIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	h.venue.accrue(50_000)
	h.advance(time.Hour)
	first, err := h.adapter.Harvest()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2_500), first.Donation)

	// Nothing accrued since; the donation debit must not read as a loss and the
	// same gain must never be donated against twice.
	h.advance(time.Hour)
	second, err := h.adapter.Harvest()
	require.NoError(t, err)
	assert.True(t, second.Gain.IsZero())
	assert.True(t, second.Donation.IsZero())
	assert.Equal(t, sdkmath.NewInt(2_500), h.adapter.Status().TotalDonated)
}

func TestHarvestRespectsCooldown(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.HarvestCooldown = 6 * time.Hour
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	_, err = h.adapter.Harvest()
	require.NoError(t, err)

	h.advance(time.Hour)
	_, err = h.adapter.Harvest()
	assert.ErrorIs(t, err, types.ErrHarvestCooldown)

	h.advance(6 * time.Hour)
	_, err = h.adapter.Harvest()
	assert.NoError(t, err)
}

func TestHarvestConvertsClaimedRewards(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	h.claimer.rewards = []venue.RewardBalance{
		{Token: "arb", Amount: sdkmath.NewInt(30_000)},
		{Token: "comp", Amount: sdkmath.NewInt(20_000)},
	}
	h.advance(time.Hour)

	report, err := h.adapter.Harvest()
	require.NoError(t, err)

	assert.Equal(t, sdkmath.NewInt(50_000), report.ConvertedRewards)
	assert.Equal(t, sdkmath.NewInt(50_000), report.Gain)
	assert.Equal(t, sdkmath.NewInt(2_500), report.Donation)
	// Swap proceeds land on the buffer; the donation leaves from it.
	assert.Equal(t, sdkmath.NewInt(67_500), h.adapter.Status().Buffer)
}

func TestHarvestSkipsUnswappableRewards(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	h.claimer.rewards = []venue.RewardBalance{{Token: "arb", Amount: sdkmath.NewInt(10_000)}}
	h.swapper.err = errors.New("no route to settlement asset")
	h.advance(time.Hour)

	report, err := h.adapter.Harvest()
	require.NoError(t, err)
	assert.True(t, report.ConvertedRewards.IsZero())
	assert.Equal(t, []string{"arb"}, report.SkippedRewards)
}

func TestWithdrawEnforcesCooldown(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.WithdrawCooldown = 24 * time.Hour
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	_, err = h.adapter.Withdraw("alice", sdkmath.NewInt(100_000), "alice-wallet")
	assert.ErrorIs(t, err, types.ErrWithdrawCooldown)

	h.advance(25 * time.Hour)
	receipt, err := h.adapter.Withdraw("alice", sdkmath.NewInt(100_000), "alice-wallet")
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeFull, receipt.Status)
	assert.Equal(t, sdkmath.NewInt(100_000), receipt.Fulfilled)
	assert.Equal(t, sdkmath.NewInt(900_000), h.adapter.TotalAssets())
}

func TestWithdrawSurfacesShortfall(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)
	h.advance(time.Minute)

	receipt, err := h.adapter.Withdraw("alice", sdkmath.NewInt(2_000_000), "alice-wallet")
	require.NoError(t, err)

	assert.Equal(t, types.OutcomePartial, receipt.Status)
	assert.Equal(t, sdkmath.NewInt(1_000_000), receipt.Fulfilled)
	assert.Equal(t, sdkmath.NewInt(1_000_000), receipt.Shortfall)
}

func TestWithdrawAfterHarvestSeesNoPhantomLoss(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)
	h.advance(time.Minute)

	receipt, err := h.adapter.Withdraw("alice", sdkmath.NewInt(500_000), "alice-wallet")
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500_000), receipt.Fulfilled)

	// The withdrawal moved the snapshot down with the book, so a follow-up
	// harvest measures zero gain instead of a 500,000 loss or gain.
	h.advance(time.Hour)
	report, err := h.adapter.Harvest()
	require.NoError(t, err)
	assert.True(t, report.Gain.IsZero())
}

func TestLeverageBothOrNeither(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.BufferBps = 5_000
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)
	before := h.adapter.Status()

	h.venue.borrowErr = errors.New("borrow market frozen")
	err = h.adapter.CreateLeveragedPosition(sdkmath.NewInt(100_000), sdkmath.NewInt(50_000), 15_000)
	assert.ErrorIs(t, err, types.ErrCollaboratorFailure)

	after := h.adapter.Status()
	assert.Equal(t, before.Buffer, after.Buffer, "the supply leg is unwound when the borrow leg fails")
	assert.Equal(t, before.Deployed, after.Deployed)
	assert.True(t, after.Borrowed.IsZero())
}

func TestLeverageOpensAndUnwinds(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.BufferBps = 5_000
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	require.NoError(t, h.adapter.CreateLeveragedPosition(sdkmath.NewInt(100_000), sdkmath.NewInt(50_000), 15_000))

	st := h.adapter.Status()
	assert.Equal(t, sdkmath.NewInt(50_000), st.Borrowed)
	assert.Equal(t, sdkmath.NewInt(600_000), st.Deployed)
	// 500,000 buffer - 100,000 supplied + 50,000 borrow proceeds.
	assert.Equal(t, sdkmath.NewInt(450_000), st.Buffer)

	require.NoError(t, h.adapter.DeLeveragePosition(sdkmath.NewInt(50_000), sdkmath.NewInt(100_000)))
	st = h.adapter.Status()
	assert.True(t, st.Borrowed.IsZero())
	assert.Equal(t, sdkmath.NewInt(500_000), st.Deployed)
}

func TestLeverageRejectedBelowHealthTarget(t *testing.T) {
	h := newHarness(t, func(cfg *types.AdapterConfig) {
		cfg.BufferBps = 5_000
	})
	_, err := h.adapter.Deposit("alice", sdkmath.NewInt(1_000_000), widePortfolio)
	require.NoError(t, err)

	// 600,000 supplied against 400,000 borrowed is 1.5x, not above a 1.5x target.
	err = h.adapter.CreateLeveragedPosition(sdkmath.NewInt(100_000), sdkmath.NewInt(400_000), 15_000)
	assert.ErrorIs(t, err, types.ErrRiskViolation)
	assert.True(t, h.adapter.Status().Borrowed.IsZero())
}

func TestUpdateConfigImmutableIdentity(t *testing.T) {
	h := newHarness(t, nil)

	next := h.adapter.Config()
	next.DonationBps = 800
	require.NoError(t, h.adapter.UpdateConfig(next))
	assert.Equal(t, uint32(800), h.adapter.Config().DonationBps)

	next.AdapterID = "different"
	assert.ErrorIs(t, h.adapter.UpdateConfig(next), types.ErrInvariantViolation)

	next = h.adapter.Config()
	next.DonationBps = types.MaxDonationBps + 1
	assert.ErrorIs(t, h.adapter.UpdateConfig(next), types.ErrInvariantViolation)
}
