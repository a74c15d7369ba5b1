package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// VaultSummary represents high-level vault statistics.
type VaultSummary struct {
	LatestValue uint64    `json:"latest_value"`
	LatestIdle  uint64    `json:"latest_idle"`
	LatestSlot  uint64    `json:"latest_slot"`
	TotalCycles int       `json:"total_cycles"`
	LastUpdated time.Time `json:"last_updated"`
}

// PerformanceMetrics aggregates every recorded cycle.
type PerformanceMetrics struct {
	TotalFees        uint64 `json:"total_fees"`
	ValueChange      int64  `json:"value_change"`
	TotalActions     int    `json:"total_actions"`
	FailedActions    int    `json:"failed_actions"`
	TotalCycles      int    `json:"total_cycles"`
	SuccessfulCycles int    `json:"successful_cycles"`
}

// ValuePoint is the vault value at the end of one cycle.
type ValuePoint struct {
	Slot      uint64    `json:"slot"`
	Value     uint64    `json:"value"`
	Fees      uint64    `json:"fees"`
	Timestamp time.Time `json:"timestamp"`
}

// GetVaultSummary retrieves the latest cycle's values and the total cycle count.
func GetVaultSummary() (*VaultSummary, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	summary := &VaultSummary{}
	var value, idle, slot int64
	err := DB.QueryRow(`
		SELECT final_value, final_idle, slot, snapshot_timestamp
		FROM cycle_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT 1
	`).Scan(&value, &idle, &slot, &summary.LastUpdated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get latest vault values: %w", err)
	}
	summary.LatestValue, summary.LatestIdle, summary.LatestSlot = uint64(value), uint64(idle), uint64(slot)

	if err := DB.QueryRow("SELECT COUNT(*) FROM cycle_snapshots").Scan(&summary.TotalCycles); err != nil {
		log.Error().Err(err).Msg("Failed to get total cycle count")
	}

	return summary, nil
}

// GetPerformanceMetrics retrieves aggregated performance metrics.
func GetPerformanceMetrics() (*PerformanceMetrics, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	m := &PerformanceMetrics{}
	var fees, change int64
	err := DB.QueryRow(`
		SELECT
			COALESCE(SUM(accrued_fees), 0),
			COALESCE(SUM(final_value - initial_value), 0),
			COUNT(*),
			COUNT(CASE WHEN success THEN 1 END)
		FROM cycle_snapshots
	`).Scan(&fees, &change, &m.TotalCycles, &m.SuccessfulCycles)
	if err != nil {
		return nil, fmt.Errorf("failed to get performance metrics: %w", err)
	}
	m.TotalFees, m.ValueChange = uint64(fees), change

	err = DB.QueryRow(`
		SELECT COUNT(*), COUNT(CASE WHEN NOT success THEN 1 END)
		FROM action_receipts
	`).Scan(&m.TotalActions, &m.FailedActions)
	if err != nil {
		return nil, fmt.Errorf("failed to get action counts: %w", err)
	}

	log.Debug().
		Uint64("totalFees", m.TotalFees).
		Int("totalCycles", m.TotalCycles).
		Msg("Retrieved performance metrics")
	return m, nil
}

// GetValueHistory returns up to limit end-of-cycle values, oldest first.
func GetValueHistory(limit int) ([]ValuePoint, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := DB.Query(`
		SELECT slot, final_value, accrued_fees, snapshot_timestamp FROM (
			SELECT slot, final_value, accrued_fees, snapshot_timestamp
			FROM cycle_snapshots
			ORDER BY snapshot_timestamp DESC
			LIMIT $1
		) recent
		ORDER BY snapshot_timestamp ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query value history: %w", err)
	}
	defer rows.Close()

	var points []ValuePoint
	for rows.Next() {
		var slot, value, fees int64
		var p ValuePoint
		if err := rows.Scan(&slot, &value, &fees, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan value history row: %w", err)
		}
		p.Slot, p.Value, p.Fees = uint64(slot), uint64(value), uint64(fees)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return points, nil
}
