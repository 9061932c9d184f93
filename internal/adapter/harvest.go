/*

This file contains the harvest state machine:

    IDLE -> CLAIMING_REWARDS -> MEASURING -> DONATING -> IDLE

Failures abort the attempt and leave the adapter in IDLE with its last-good
snapshot intact. Snapshot advancement is all-or-nothing; donation dispatch may
partially fail (queued) without reverting the harvest.

*/

package adapter

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/impactvault/ivm/internal/policy"
	"github.com/impactvault/ivm/internal/types"
)

// Harvest measures realized gain since the last measurement and routes the
// donation slice of it. Hard precondition: the harvest cooldown must have
// elapsed.
func (a *VenueAdapter) Harvest() (types.HarvestReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := types.HarvestReport{
		AdapterID:        a.cfg.AdapterID,
		Gain:             sdkmath.ZeroInt(),
		Donation:         sdkmath.ZeroInt(),
		QueuedDonation:   sdkmath.ZeroInt(),
		ConvertedRewards: sdkmath.ZeroInt(),
		Status:           types.OutcomeRejected,
	}

	now := a.now()
	if a.paused {
		return report, fmt.Errorf("%w: %s", types.ErrAdapterPaused, a.cfg.AdapterID)
	}
	if !a.lastHarvest.IsZero() && now.Before(a.lastHarvest.Add(a.cfg.HarvestCooldown)) {
		return report, fmt.Errorf("%w: next harvest at %s", types.ErrHarvestCooldown,
			a.lastHarvest.Add(a.cfg.HarvestCooldown).Format("2006-01-02 15:04:05"))
	}

	harvestLogger := a.newHarvestLogger()
	harvestLogger.Info().Msg("--- Starting harvest ---")

	// --- Step 1: CLAIMING_REWARDS ---
	converted, skipped := a.claimAndConvertLocked(harvestLogger)
	report.ConvertedRewards = converted
	report.SkippedRewards = skipped

	// --- Step 2: MEASURING ---
	harvestLogger.Info().Msg("Step 2: Measuring current value...")
	currentValue, err := a.measureLocked(harvestLogger)
	if err != nil {
		return report, err
	}

	gainOnBook, err := a.snapshot.GainSince(currentValue)
	if err != nil {
		return report, err
	}
	gain := gainOnBook.Add(converted)

	harvestLogger.Info().
		Str("currentValue", currentValue.String()).
		Str("snapshotValue", a.snapshot.Value().String()).
		Str("gainOnBook", gainOnBook.String()).
		Str("convertedRewards", converted.String()).
		Str("gain", gain.String()).
		Msg("Step 2: Measurement complete")

	if gain.IsZero() {
		// The snapshot still advances to the current measured value so the same
		// (zero) delta is never re-counted.
		if err := a.snapshot.Advance(currentValue, now); err != nil {
			return report, err
		}
		a.lastHarvest = now
		report.Status = types.OutcomeFull
		a.events.Record(types.Event{
			Type:      types.EventHarvestExecuted,
			AdapterID: a.cfg.AdapterID,
			Gain:      sdkmath.ZeroInt(),
			Amount:    sdkmath.ZeroInt(),
			Timestamp: now,
		})
		harvestLogger.Info().Msg("--- Harvest complete (no gain) ---")
		return report, nil
	}

	// Swap proceeds land on the buffer before donating against them.
	if converted.IsPositive() {
		if err := a.book.CreditBuffer(converted); err != nil {
			return report, err
		}
	}

	// --- Step 3: DONATING ---
	harvestLogger.Info().Msg("Step 3: Computing and dispatching donations...")
	dispatched, queued, err := a.donateLocked(gain, harvestLogger)
	if err != nil {
		return report, err
	}

	// Transactional snapshot update: the measured value (pre-donation, rewards
	// included) and the harvest timestamp advance together.
	finalValue := currentValue.Add(converted)
	if err := a.snapshot.Advance(finalValue, now); err != nil {
		return report, err
	}
	a.lastHarvest = now
	a.totalYieldGenerated = a.totalYieldGenerated.Add(gain)
	a.totalDonated = a.totalDonated.Add(dispatched)

	report.Gain = gain
	report.Donation = dispatched
	report.QueuedDonation = queued
	report.Status = types.OutcomeFull
	if queued.IsPositive() {
		report.Status = types.OutcomePartial
	}

	a.events.Record(types.Event{
		Type:      types.EventHarvestExecuted,
		AdapterID: a.cfg.AdapterID,
		Gain:      gain,
		Amount:    dispatched,
		Timestamp: now,
	})
	harvestLogger.Info().
		Str("gain", gain.String()).
		Str("donated", dispatched.String()).
		Str("queued", queued.String()).
		Str("newSnapshotValue", finalValue.String()).
		Msg("--- Harvest complete ---")

	return report, nil
}

// claimAndConvertLocked claims pending rewards and converts each into the
// settlement asset. A claim failure yields no rewards; a swap failure for one
// token is skipped and left for a future attempt. Caller holds the lock.
func (a *VenueAdapter) claimAndConvertLocked(log zerolog.Logger) (sdkmath.Int, []string) {
	log.Info().Msg("Step 1: Claiming and converting rewards...")

	converted := sdkmath.ZeroInt()
	var skipped []string

	rewards, err := a.claimer.ClaimAll(a.cfg.AdapterID)
	if err != nil {
		log.Warn().Err(err).Msg("Reward claim failed, harvesting without rewards")
		return converted, skipped
	}

	for _, reward := range rewards {
		if reward.Amount.IsNil() || !reward.Amount.IsPositive() {
			continue
		}
		got, err := a.swapper.ConvertToSettlement(reward.Token, reward.Amount)
		if err != nil {
			// One token's swap failure must not abort the others; its reward
			// stays claimable for a future harvest.
			log.Warn().Err(err).
				Str("token", reward.Token).
				Str("amount", reward.Amount.String()).
				Msg("Reward swap failed, skipping token")
			skipped = append(skipped, reward.Token)
			continue
		}
		if got.IsNil() || got.IsNegative() {
			skipped = append(skipped, reward.Token)
			continue
		}
		converted = converted.Add(got)
	}

	log.Info().
		Int("rewardTokens", len(rewards)).
		Int("skipped", len(skipped)).
		Str("converted", converted.String()).
		Msg("Step 1: Reward conversion complete")
	return converted, skipped
}

// measureLocked computes currentValue = buffer + deployed value. The deployed
// value comes from the venue; if the venue cannot report it, the ledger's
// recorded principal is the fallback so a collaborator failure never produces
// a phantom gain or loss.
func (a *VenueAdapter) measureLocked(log zerolog.Logger) (sdkmath.Int, error) {
	deployedValue, err := a.client.DeployedBalance(a.cfg.SettlementAsset)
	if err != nil {
		log.Warn().Err(err).Msg("Venue balance query failed, using recorded principal")
		deployedValue = a.book.Deployed()
	}
	if deployedValue.IsNil() || deployedValue.IsNegative() {
		deployedValue = a.book.Deployed()
	}
	return a.book.Buffer().Add(deployedValue), nil
}

// donateLocked slices the gain across depositors by principal share, applies
// each depositor's boost, and dispatches everything that clears the
// minimum-donation floor. Insufficient liquidity queues the donation rather
// than dropping it; retry is the keeper's responsibility, not the core's.
func (a *VenueAdapter) donateLocked(gain sdkmath.Int, log zerolog.Logger) (dispatched, queued sdkmath.Int, err error) {
	dispatched = sdkmath.ZeroInt()
	queued = sdkmath.ZeroInt()
	now := a.now()

	type slice struct {
		depositor string
		amount    sdkmath.Int
	}
	var slices []slice
	totalDonation := sdkmath.ZeroInt()

	totalPrincipal := sdkmath.ZeroInt()
	for _, dep := range a.sortedDepositorsLocked() {
		totalPrincipal = totalPrincipal.Add(a.depositorPrincipal[dep])
	}

	if totalPrincipal.IsZero() {
		// Gain with no attributable depositors (all principal withdrawn) is
		// donated at the base rate under the adapter's own identity.
		amount, cerr := policy.ComputeDonation(gain, a.cfg.DonationBps, types.DepositorBoost{Tier: types.TierNone}, now)
		if cerr != nil {
			return dispatched, queued, cerr
		}
		if policy.ShouldDispatch(amount, a.cfg.MinDonation) {
			slices = append(slices, slice{depositor: a.cfg.AdapterID, amount: amount})
			totalDonation = totalDonation.Add(amount)
		}
	} else {
		for _, dep := range a.sortedDepositorsLocked() {
			share := gain.Mul(a.depositorPrincipal[dep]).Quo(totalPrincipal)
			if !share.IsPositive() {
				continue
			}
			boost := a.boosts.Get(dep, now)
			amount, cerr := policy.ComputeDonation(share, a.cfg.DonationBps, boost, now)
			if cerr != nil {
				return dispatched, queued, cerr
			}
			if !policy.ShouldDispatch(amount, a.cfg.MinDonation) {
				continue
			}
			slices = append(slices, slice{depositor: dep, amount: amount})
			totalDonation = totalDonation.Add(amount)
		}
	}

	if totalDonation.IsZero() {
		return dispatched, queued, nil
	}

	available, err := a.buffer.EnsureLiquidity(totalDonation)
	if err != nil {
		return dispatched, queued, err
	}
	if available.LT(totalDonation) {
		// Queue the whole donation; a partially funded dispatch would break the
		// per-depositor attribution.
		queued = totalDonation
		a.queuedDonations = a.queuedDonations.Add(totalDonation)
		a.events.Record(types.Event{
			Type:      types.EventDonationQueued,
			AdapterID: a.cfg.AdapterID,
			Amount:    totalDonation,
			Timestamp: now,
		})
		log.Warn().
			Str("required", totalDonation.String()).
			Str("available", available.String()).
			Msg("Insufficient liquidity, donation queued")
		return dispatched, queued, nil
	}

	for _, s := range slices {
		if err := a.sink.RecordDonation(a.cfg.AdapterID, s.depositor, s.amount); err != nil {
			// Contained: the slice is queued instead of dropped; siblings still
			// dispatch.
			log.Warn().Err(err).
				Str("depositor", s.depositor).
				Str("amount", s.amount.String()).
				Msg("Donation sink rejected slice, queueing")
			queued = queued.Add(s.amount)
			a.queuedDonations = a.queuedDonations.Add(s.amount)
			a.events.Record(types.Event{
				Type:      types.EventDonationQueued,
				AdapterID: a.cfg.AdapterID,
				Depositor: s.depositor,
				Amount:    s.amount,
				Timestamp: now,
			})
			continue
		}

		if err := a.book.DebitBuffer(s.amount); err != nil {
			return dispatched, queued, err
		}
		dispatched = dispatched.Add(s.amount)

		cumulative := a.cumulativeLocked(s.depositor).Add(s.amount)
		a.cumulativeDonated[s.depositor] = cumulative

		if err := a.tiers.UpdateTier(s.depositor, cumulative); err != nil {
			log.Warn().Err(err).Str("depositor", s.depositor).Msg("Tier issuer update failed")
		}
		if tier := a.boosts.MaybeUpgrade(s.depositor, cumulative, boostValidity, now); tier != types.TierNone {
			log.Debug().Str("depositor", s.depositor).Str("tier", tier.String()).Msg("Boost tier after donation")
		}

		a.events.Record(types.Event{
			Type:      types.EventDonationSent,
			AdapterID: a.cfg.AdapterID,
			Depositor: s.depositor,
			Amount:    s.amount,
			Timestamp: now,
		})
	}

	log.Info().
		Str("dispatched", dispatched.String()).
		Str("queued", queued.String()).
		Msg("Step 3: Donation dispatch complete")
	return dispatched, queued, nil
}

func (a *VenueAdapter) cumulativeLocked(depositor string) sdkmath.Int {
	if v, ok := a.cumulativeDonated[depositor]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}
