/*

This file contains the default parameters for the vault.

They are used when no active parameters are stored for VAULT_CONFIG_NAME. Each value is
chosen for a vault spreading a stablecoin reserve over the three lending venues.

*/

package config

import (
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/vault"
)

const (
	DefaultVaultConfigName    = "default_vault_strategy"
	DefaultVaultConfigVersion = 1
)

// DefaultVaultParameters is the baseline vault policy.
var DefaultVaultParameters = vault.VaultParameters{
	DepositCap: 10_000_000_000_000, // 10M tokens at 6 decimals.
	// Rationale: Bounds exposure while the venues' own liquidity is the limiting factor.
	// Larger deposits would push a single venue's utilization down far enough to erase the
	// yield advantage that made it the target.

	FeeCarryBps: 1_000, // 10% of value growth.
	// Rationale: Carry only accrues when the vault earns, so it aligns the operator with
	// depositors.

	FeeMgmtBps: 50, // 0.5% per year on assets.
	// Rationale: Covers keeper transaction costs, which scale with slots rather than returns.

	ReferralFeePct: 20, // 20% of collected fees go to the referrer.
	// Rationale: Well under the 50% ceiling; the primary receiver keeps most of the fee.

	AllocationCapPct: 50, // No venue holds more than half the vault.
	// Rationale: A venue exploit or frozen reserve costs at most half the value. With three
	// venues the minimum valid cap is 34%, which would force money into the worst venue.

	RebalanceMode: types.RebalanceModeCalculator,
	// Rationale: The keeper has no off-chain optimizer; computing targets in-vault avoids
	// trusting a proposal.

	StrategyType: types.StrategyMaxYield,
	// Rationale: Fills the best-yielding venues first up to the cap. The cap already supplies
	// diversification, so equal allocation would only give up yield.
}
