/*

This file contains the harvest cycle snapshot persisted after every keeper cycle.
Snapshots give a complete audit trail of what each harvest measured, donated,
and queued, across all adapters.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// HarvestCycleSnapshot is a record of one portfolio-wide harvest cycle.
type HarvestCycleSnapshot struct {
	CycleNumber int       `json:"cycle_number"`
	CycleID     string    `json:"cycle_id"`
	Timestamp   time.Time `json:"timestamp"`

	InitialPortfolioValue sdkmath.Int `json:"initial_portfolio_value"`
	FinalPortfolioValue   sdkmath.Int `json:"final_portfolio_value"`

	Reports        []HarvestReport `json:"reports"`
	FailedAdapters []string        `json:"failed_adapters,omitempty"`

	TotalGain    sdkmath.Int `json:"total_gain"`
	TotalDonated sdkmath.Int `json:"total_donated"`
	TotalQueued  sdkmath.Int `json:"total_queued"`

	DurationMS int64 `json:"duration_ms"`
}
