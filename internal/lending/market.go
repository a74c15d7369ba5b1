/*

This file contains the capability every yield source exposes to the vault. Each provider adapter
translates these calls into its own venue's semantics; the vault never sees venue types.

*/

package lending

import (
	"context"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
)

// Market is one yield source as seen by the vault.
type Market interface {
	Provider() types.Provider
	// Address is the venue reserve the vault records when the source is attached.
	Address() solana.PublicKey

	// Refresh accrues venue interest up to slot.
	Refresh(ctx context.Context, slot uint64) error
	// Deposit moves amount reserve tokens from the vault's idle account into the venue.
	Deposit(ctx context.Context, amount uint64) error
	// Redeem burns shares held by the vault and returns reserve tokens to its idle account.
	Redeem(ctx context.Context, shares uint64) error

	ConvertReserveToShares(amount uint64) (uint64, error)
	ConvertSharesToReserve(shares uint64) (uint64, error)

	// ReserveBalance is the vault's idle reserve balance.
	ReserveBalance() uint64
	// SharesBalance is the collateral held by the vault in this venue.
	SharesBalance() uint64

	UtilizationRate() (types.Rate, error)
	BorrowRate() (types.Rate, error)
	ReturnCalculator() ReturnCalculator
}

// ReserveAccount is the vault's idle reserve token account.
type ReserveAccount interface {
	ReserveBalance() uint64
	DebitReserve(amount uint64) error
	CreditReserve(amount uint64) error
}
