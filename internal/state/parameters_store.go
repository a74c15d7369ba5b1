package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/rs/zerolog/log"
)

// SaveVaultParameters stores a new version of vault parameters, optionally making it the active one.
func SaveVaultParameters(params vault.VaultParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
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

	if makeActive {
		_, err = tx.Exec(`UPDATE vault_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
		INSERT INTO vault_parameters (
			config_name, version, is_active,
			deposit_cap, fee_carry_bps, fee_mgmt_bps, referral_fee_pct, allocation_cap_pct,
			rebalance_mode, strategy_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING params_id;`

	var paramsID int64
	err = tx.QueryRow(stmt,
		configName, version, makeActive,
		int64(params.DepositCap), int64(params.FeeCarryBps), int64(params.FeeMgmtBps),
		int16(params.ReferralFeePct), int16(params.AllocationCapPct),
		params.RebalanceMode.String(), params.StrategyType.String(),
	).Scan(&paramsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vault parameters: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved vault parameters")
	return paramsID, nil
}

// LoadActiveVaultParameters loads the active parameters for configName.
// The result has not been validated; pass it through vault.NewVaultConfig or Vault.UpdateConfig.
func LoadActiveVaultParameters(configName string) (*vault.VaultParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT deposit_cap, fee_carry_bps, fee_mgmt_bps, referral_fee_pct, allocation_cap_pct,
			rebalance_mode, strategy_type
		FROM vault_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1;`

	var (
		depositCap             int64
		carryBps, mgmtBps      int64
		referralPct, capPct    int16
		modeName, strategyName string
	)
	err := DB.QueryRow(query, configName).Scan(&depositCap, &carryBps, &mgmtBps, &referralPct, &capPct, &modeName, &strategyName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no active vault parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active vault parameters for config '%s': %w", configName, err)
	}

	mode, err := types.ParseRebalanceMode(modeName)
	if err != nil {
		return nil, fmt.Errorf("stored parameters for '%s': %w", configName, err)
	}
	strategy, err := types.ParseStrategyType(strategyName)
	if err != nil {
		return nil, fmt.Errorf("stored parameters for '%s': %w", configName, err)
	}

	p := &vault.VaultParameters{
		DepositCap:       uint64(depositCap),
		FeeCarryBps:      uint32(carryBps),
		FeeMgmtBps:       uint32(mgmtBps),
		ReferralFeePct:   uint8(referralPct),
		AllocationCapPct: uint8(capPct),
		RebalanceMode:    mode,
		StrategyType:     strategy,
	}
	log.Info().Str("config", configName).Msg("Loaded active vault parameters")
	return p, nil
}
