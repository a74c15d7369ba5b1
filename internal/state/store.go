package state

import (
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/vault"
	"github.com/gagliardetto/solana-go"
)

// PostgresStore binds the package-level store functions to one vault for the keeper.
type PostgresStore struct {
	LpTokenMint solana.PublicKey
}

func (s PostgresStore) NextCycleNumber() (int, error) { return IncrementCycleNumber(s.LpTokenMint) }

func (PostgresStore) SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	return SaveCycleSnapshot(snapshot)
}

func (PostgresStore) SaveVault(v vault.Manager) (int64, error) { return SaveVault(v) }
