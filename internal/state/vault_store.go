package state

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// ErrVaultNotFound is returned when no record exists for an LP token mint.
var ErrVaultNotFound = errors.New("vault record not found")

// SaveVault appends the encoded vault record. Records are never updated in place.
func SaveVault(v vault.Manager) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	data, err := v.Encode()
	if err != nil {
		return 0, fmt.Errorf("failed to encode vault: %w", err)
	}

	h := v.Handles()
	var recordID int64
	err = DB.QueryRow(`
		INSERT INTO vault_records (owner, lp_token_mint, slot, version, record)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING record_id;`,
		h.Owner.String(), h.LpTokenMint.String(), int64(v.Value().LastUpdate.Slot),
		int16(vault.VaultRecordVersion), data,
	).Scan(&recordID)
	if err != nil {
		return 0, fmt.Errorf("failed to save vault record: %w", err)
	}

	log.Debug().
		Int64("record_id", recordID).
		Str("lp_token_mint", h.LpTokenMint.String()).
		Uint64("slot", v.Value().LastUpdate.Slot).
		Msg("Saved vault record")
	return recordID, nil
}

// LoadLatestVault decodes the newest record stored for lpTokenMint.
func LoadLatestVault(lpTokenMint solana.PublicKey) (*vault.Vault, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var data []byte
	err := DB.QueryRow(`
		SELECT record FROM vault_records
		WHERE lp_token_mint = $1
		ORDER BY slot DESC, record_id DESC
		LIMIT 1;`, lpTokenMint.String()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrVaultNotFound, lpTokenMint)
		}
		return nil, fmt.Errorf("failed to load vault record: %w", err)
	}

	v, err := vault.DecodeVault(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode vault record for %s: %w", lpTokenMint, err)
	}
	return v, nil
}
