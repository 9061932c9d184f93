/*

This file contains the keeper: the automation collaborator that decides when to
harvest. It drives the portfolio router on a fixed interval, records a harvest
cycle snapshot after every run, and updates the Prometheus collectors. The core
adapters still enforce their own harvest cooldown; the keeper merely asks.

*/

package keeper

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impactvault/ivm/internal/logger"
	"github.com/impactvault/ivm/internal/metrics"
	"github.com/impactvault/ivm/internal/router"
	"github.com/impactvault/ivm/internal/state"
	"github.com/impactvault/ivm/internal/types"
)

// Keeper periodically harvests the whole portfolio.
type Keeper struct {
	router     *router.PortfolioRouter
	persist    bool
	cycleCount int
	logger     zerolog.Logger
}

// New creates a keeper over the given router. persist controls whether cycle
// snapshots are written to the database.
func New(r *router.PortfolioRouter, persist bool) *Keeper {
	return &Keeper{
		router:  r,
		persist: persist,
		logger:  logger.GetForComponent("keeper"),
	}
}

// RunLoop starts the main harvest loop with the specified interval.
func (k *Keeper) RunLoop(ctx context.Context, interval time.Duration) {
	k.logger.Info().
		Dur("interval", interval).
		Msg("Starting keeper harvest loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	k.cycleCount++
	k.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			k.logger.Info().Msg("Keeper loop stopped due to context cancellation")
			return
		case <-ticker.C:
			k.cycleCount++
			k.RunCycle(ctx)
		}
	}
}

// RunCycle executes one complete harvest cycle across every adapter.
func (k *Keeper) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := k.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting harvest cycle ---")

	snapshot := types.HarvestCycleSnapshot{
		CycleNumber:           k.nextCycleNumber(),
		CycleID:               cycleID,
		Timestamp:             cycleStartTime,
		InitialPortfolioValue: k.router.TotalAssets(),
		TotalGain:             sdkmath.ZeroInt(),
		TotalDonated:          sdkmath.ZeroInt(),
		TotalQueued:           sdkmath.ZeroInt(),
	}

	reports, failed := k.router.HarvestAll()
	snapshot.Reports = reports
	snapshot.FailedAdapters = failed

	for _, report := range reports {
		snapshot.TotalGain = snapshot.TotalGain.Add(report.Gain)
		snapshot.TotalDonated = snapshot.TotalDonated.Add(report.Donation)
		snapshot.TotalQueued = snapshot.TotalQueued.Add(report.QueuedDonation)

		metrics.HarvestsTotal.WithLabelValues(report.AdapterID).Inc()
		metrics.DonationsDispatchedTotal.WithLabelValues(report.AdapterID).Add(intToFloat(report.Donation))
		metrics.DonationsQueuedTotal.WithLabelValues(report.AdapterID).Add(intToFloat(report.QueuedDonation))
	}
	for _, adapterID := range failed {
		metrics.HarvestFailuresTotal.WithLabelValues(adapterID).Inc()
	}

	snapshot.FinalPortfolioValue = k.router.TotalAssets()
	snapshot.DurationMS = time.Since(cycleStartTime).Milliseconds()
	metrics.PortfolioValue.Set(intToFloat(snapshot.FinalPortfolioValue))

	if k.persist {
		k.saveSnapshot(snapshot, cycleLogger)
	}

	cycleLogger.Info().
		Int("cycleNumber", snapshot.CycleNumber).
		Int("harvested", len(reports)).
		Int("failed", len(failed)).
		Str("totalGain", snapshot.TotalGain.String()).
		Str("totalDonated", snapshot.TotalDonated.String()).
		Str("totalQueued", snapshot.TotalQueued.String()).
		Str("cycleDuration", time.Since(cycleStartTime).String()).
		Msg("--- Harvest cycle completed ---")
}

// nextCycleNumber returns the persistent cycle counter, falling back to the
// in-process counter when the database is unavailable.
func (k *Keeper) nextCycleNumber() int {
	if !k.persist {
		return k.cycleCount
	}
	cycleNumber, err := state.IncrementCycleNumber()
	if err != nil {
		k.logger.Error().Err(err).Msg("Failed to increment cycle number, using in-process counter")
		return k.cycleCount
	}
	return cycleNumber
}

func (k *Keeper) saveSnapshot(snapshot types.HarvestCycleSnapshot, cycleLogger zerolog.Logger) {
	snapshotID, err := state.SaveHarvestSnapshot(snapshot)
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save harvest snapshot to database")
		return
	}
	cycleLogger.Info().Int64("snapshot_id", snapshotID).Msg("Harvest snapshot saved successfully")
}

// intToFloat converts an exact amount into a float for metrics only. Precision
// loss is acceptable on the metrics surface, never in accounting.
func intToFloat(v sdkmath.Int) float64 {
	if v.IsNil() {
		return 0
	}
	f, err := sdkmath.LegacyNewDecFromInt(v).Float64()
	if err != nil {
		return 0
	}
	return f
}
