/*

This file persists harvest cycle snapshots and manages the persistent cycle
counter, so the keeper's cycle numbering survives restarts.

*/

package state

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/impactvault/ivm/internal/types"
)

// SaveHarvestSnapshot saves a complete harvest cycle snapshot to the database.
func SaveHarvestSnapshot(snapshot types.HarvestCycleSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	reportsJSON, err := json.Marshal(snapshot.Reports)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal reports: %w", err)
	}

	query := `
		INSERT INTO harvest_snapshots (
			cycle_number, cycle_id, snapshot_timestamp,
			initial_portfolio_value, final_portfolio_value,
			reports, failed_adapters,
			total_gain, total_donated, total_queued, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING snapshot_id;
	`
	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.CycleID, snapshot.Timestamp,
		snapshot.InitialPortfolioValue.String(), snapshot.FinalPortfolioValue.String(),
		reportsJSON, pq.Array(snapshot.FailedAdapters),
		snapshot.TotalGain.String(), snapshot.TotalDonated.String(), snapshot.TotalQueued.String(),
		snapshot.DurationMS,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save harvest snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Str("total_donated", snapshot.TotalDonated.String()).
		Msg("Harvest snapshot saved to database")
	return snapshotID, nil
}

// RecentHarvestSnapshots returns raw snapshot rows for the dashboard, newest
// first.
func RecentHarvestSnapshots(limit int) ([]json.RawMessage, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	query := `
		SELECT row_to_json(h)
		FROM (
			SELECT snapshot_id, cycle_number, cycle_id, snapshot_timestamp,
			       initial_portfolio_value, final_portfolio_value,
			       total_gain, total_donated, total_queued, duration_ms
			FROM harvest_snapshots
			ORDER BY cycle_number DESC
			LIMIT $1
		) h;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query harvest snapshots: %w", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan harvest snapshot: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// IncrementCycleNumber increments the persistent cycle counter and returns the
// new value.
func IncrementCycleNumber() (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	updateQuery := `
		UPDATE harvest_cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle int
	if err := DB.QueryRow(updateQuery).Scan(&newCycle); err != nil {
		return 0, fmt.Errorf("failed to increment cycle number: %w", err)
	}

	log.Debug().Int("newCycle", newCycle).Msg("Incremented harvest cycle counter")
	return newCycle, nil
}
