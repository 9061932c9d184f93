/*

This file contains the PostgreSQL-backed donation sink. It persists every
dispatched donation and can answer the running-total queries the dashboard and
tier issuers need. It satisfies the DonationSink collaborator contract.

*/

package state

import (
	"database/sql"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// DonationStore persists donations to PostgreSQL.
type DonationStore struct{}

// NewDonationStore returns a store over the global connection pool.
func NewDonationStore() *DonationStore {
	return &DonationStore{}
}

// RecordDonation appends one donation row.
func (s *DonationStore) RecordDonation(adapterID, depositorID string, amount sdkmath.Int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("donation amount must be positive, got %v", amount)
	}

	query := `
		INSERT INTO donations (adapter_id, depositor_id, amount, donated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING donation_id;
	`
	var donationID int64
	err := DB.QueryRow(query, adapterID, depositorID, amount.String(), time.Now()).Scan(&donationID)
	if err != nil {
		return fmt.Errorf("failed to record donation: %w", err)
	}

	log.Debug().
		Int64("donation_id", donationID).
		Str("adapter_id", adapterID).
		Str("depositor_id", depositorID).
		Str("amount", amount.String()).
		Msg("Donation recorded to database")
	return nil
}

// TotalByDepositor returns the cumulative donated total for one depositor.
func (s *DonationStore) TotalByDepositor(depositorID string) (sdkmath.Int, error) {
	if DB == nil {
		return sdkmath.ZeroInt(), fmt.Errorf("database not initialized")
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE depositor_id = $1;`
	var totalStr string
	if err := DB.QueryRow(query, depositorID).Scan(&totalStr); err != nil {
		if err == sql.ErrNoRows {
			return sdkmath.ZeroInt(), nil
		}
		return sdkmath.ZeroInt(), fmt.Errorf("failed to query depositor total: %w", err)
	}

	total, ok := sdkmath.NewIntFromString(totalStr)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid total amount in database: %q", totalStr)
	}
	return total, nil
}

// TotalByAdapter returns the cumulative donated total for one adapter.
func (s *DonationStore) TotalByAdapter(adapterID string) (sdkmath.Int, error) {
	if DB == nil {
		return sdkmath.ZeroInt(), fmt.Errorf("database not initialized")
	}

	query := `SELECT COALESCE(SUM(amount), 0) FROM donations WHERE adapter_id = $1;`
	var totalStr string
	if err := DB.QueryRow(query, adapterID).Scan(&totalStr); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("failed to query adapter total: %w", err)
	}

	total, ok := sdkmath.NewIntFromString(totalStr)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("invalid total amount in database: %q", totalStr)
	}
	return total, nil
}

// DonationRow is one persisted donation for the dashboard.
type DonationRow struct {
	DonationID  int64     `json:"donation_id"`
	AdapterID   string    `json:"adapter_id"`
	DepositorID string    `json:"depositor_id"`
	Amount      string    `json:"amount"`
	DonatedAt   time.Time `json:"donated_at"`
}

// RecentDonations returns the most recent donations, newest first.
func (s *DonationStore) RecentDonations(limit int) ([]DonationRow, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT donation_id, adapter_id, depositor_id, amount, donated_at
		FROM donations
		ORDER BY donated_at DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query donations: %w", err)
	}
	defer rows.Close()

	var out []DonationRow
	for rows.Next() {
		var row DonationRow
		if err := rows.Scan(&row.DonationID, &row.AdapterID, &row.DepositorID, &row.Amount, &row.DonatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
