package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/rs/zerolog/log"
)

// ErrSnapshotNotFound is returned when no cycle snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("cycle snapshot not found")

// SaveCycleSnapshot saves a complete cycle snapshot and its action receipts in one transaction.
func SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal cycle snapshot: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	query := `
		INSERT INTO cycle_snapshots (
			cycle_id, cycle_number, slot, snapshot_timestamp,
			initial_value, consolidated_value, final_value, final_idle, accrued_fees,
			success, error_message, duration_seconds, snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = tx.QueryRow(
		query,
		snapshot.CycleID, snapshot.CycleNumber, int64(snapshot.Slot), snapshot.Timestamp,
		int64(snapshot.InitialValue), int64(snapshot.ConsolidatedValue), int64(snapshot.FinalValue),
		int64(snapshot.FinalIdle), int64(snapshot.AccruedFees),
		snapshot.Success, nullString(snapshot.Error), snapshot.Duration, snapshotJSON,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save cycle snapshot: %w", err)
	}

	receiptSQL := `
		INSERT INTO action_receipts (
			snapshot_id, provider, action_type, amount, success, message, slot, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, r := range snapshot.ActionReceipts {
		_, err = tx.Exec(receiptSQL,
			snapshotID, r.Action.Provider.String(), string(r.Action.Type), int64(r.Action.Amount),
			r.Success, nullString(r.Message), int64(r.Slot), r.Timestamp,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save action receipt for %s: %w", r.Action.Provider, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cycle snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Uint64("final_value", snapshot.FinalValue).
		Int("receipts", len(snapshot.ActionReceipts)).
		Msg("Cycle snapshot saved to database")

	return snapshotID, nil
}

// GetRecentCycles retrieves the most recent cycle snapshots, newest first.
func GetRecentCycles(limit int) ([]types.CycleSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := DB.Query(`
		SELECT snapshot
		FROM cycle_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query recent cycles")
		return nil, fmt.Errorf("failed to query recent cycles: %w", err)
	}
	defer rows.Close()

	var cycles []types.CycleSnapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			log.Error().Err(err).Msg("Failed to scan cycle row")
			continue
		}
		var cycle types.CycleSnapshot
		if err := json.Unmarshal(raw, &cycle); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal cycle snapshot")
			continue
		}
		cycles = append(cycles, cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Debug().Int("count", len(cycles)).Int("limit", limit).Msg("Retrieved recent cycles")
	return cycles, nil
}

// GetCycleByID retrieves one cycle snapshot by its cycle id.
func GetCycleByID(cycleID string) (*types.CycleSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var raw []byte
	err := DB.QueryRow(`SELECT snapshot FROM cycle_snapshots WHERE cycle_id = $1`, cycleID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, cycleID)
		}
		return nil, fmt.Errorf("failed to query cycle %s: %w", cycleID, err)
	}

	var cycle types.CycleSnapshot
	if err := json.Unmarshal(raw, &cycle); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cycle %s: %w", cycleID, err)
	}
	return &cycle, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
