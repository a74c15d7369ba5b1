package vault

import (
	"context"

	"github.com/elys-network/yieldvault/internal/analyzer"
	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
)

// Manager is the operation surface a keeper drives. It lets the keeper run against the
// in-process Vault or any other implementation with the same semantics.
type Manager interface {
	// Refresh records a fresh valuation of one yield source.
	Refresh(ctx context.Context, m lending.Market, now uint64) error

	// Consolidate totals idle reserve and fresh allocations into the vault value.
	Consolidate(ledger TokenLedger, now uint64) (Fees, error)

	// Rebalance computes or checks target weights and records target allocations.
	Rebalance(markets []lending.Market, proposed *analyzer.Weights, now uint64) (analyzer.Weights, error)

	// Reconcile moves one source toward its target, or redeems withdrawAmount directly.
	Reconcile(ctx context.Context, m lending.Market, withdrawAmount, now uint64) (types.Action, error)

	Deposit(ledger TokenLedger, user solana.PublicKey, amount, now uint64) (uint64, error)
	Withdraw(ledger TokenLedger, user solana.PublicKey, shares, now uint64) (uint64, error)

	Handles() Handles
	Config() VaultConfig
	HaltFlags() types.HaltFlags
	YieldSourceFlags() types.YieldSourceFlags
	Value() types.SlotTrackedValue
	TargetAllocations() types.Allocations
	ActualAllocations() types.Allocations
	Snapshot() VaultRecord
	Encode() ([]byte, error)
}

var _ Manager = (*Vault)(nil)
