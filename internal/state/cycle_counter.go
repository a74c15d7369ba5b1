package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// Keeper cycle numbers are counted per vault so they survive restarts.

func ensureCycleCounterTable() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS keeper_cycle_counters (
			lp_token_mint TEXT PRIMARY KEY,
			current_cycle INTEGER NOT NULL DEFAULT 0 CHECK (current_cycle >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`)
	if err != nil {
		return fmt.Errorf("failed to create keeper_cycle_counters table: %w", err)
	}
	return nil
}

// GetCurrentCycleNumber returns the last cycle number issued for a vault, or 0 if none was.
func GetCurrentCycleNumber(lpTokenMint solana.PublicKey) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var current int
	err := DB.QueryRow(
		`SELECT current_cycle FROM keeper_cycle_counters WHERE lp_token_mint = $1;`,
		lpTokenMint.String(),
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get cycle number for %s: %w", lpTokenMint, err)
	}
	return current, nil
}

// IncrementCycleNumber issues the next cycle number for a vault, creating its counter on first use.
func IncrementCycleNumber(lpTokenMint solana.PublicKey) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var next int
	err := DB.QueryRow(`
		INSERT INTO keeper_cycle_counters (lp_token_mint, current_cycle)
		VALUES ($1, 1)
		ON CONFLICT (lp_token_mint) DO UPDATE
		SET current_cycle = keeper_cycle_counters.current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING current_cycle;`, lpTokenMint.String()).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to increment cycle number for %s: %w", lpTokenMint, err)
	}

	log.Debug().Str("lp_token_mint", lpTokenMint.String()).Int("cycle", next).Msg("Issued keeper cycle number")
	return next, nil
}

// ResetCycleNumber sets a vault's counter, for maintenance.
func ResetCycleNumber(lpTokenMint solana.PublicKey, cycleNumber int) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if cycleNumber < 0 {
		return fmt.Errorf("cycle number cannot be negative: %d", cycleNumber)
	}

	_, err := DB.Exec(`
		INSERT INTO keeper_cycle_counters (lp_token_mint, current_cycle)
		VALUES ($1, $2)
		ON CONFLICT (lp_token_mint) DO UPDATE
		SET current_cycle = EXCLUDED.current_cycle,
		    updated_at = CURRENT_TIMESTAMP;`, lpTokenMint.String(), cycleNumber)
	if err != nil {
		return fmt.Errorf("failed to reset cycle number for %s: %w", lpTokenMint, err)
	}

	log.Warn().Str("lp_token_mint", lpTokenMint.String()).Int("cycle", cycleNumber).Msg("Reset keeper cycle counter")
	return nil
}
