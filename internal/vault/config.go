/*

This file contains the vault's policy configuration. A VaultConfig only exists once its
parameters have passed validation, so an invalid update never partially applies.

*/

package vault

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
)

const (
	maxFeeBps         = 10_000
	maxReferralFeePct = 50
)

// VaultParameters is the unvalidated input to NewVaultConfig.
type VaultParameters struct {
	DepositCap       uint64              `json:"deposit_cap" yaml:"deposit_cap"`
	FeeCarryBps      uint32              `json:"fee_carry_bps" yaml:"fee_carry_bps"`
	FeeMgmtBps       uint32              `json:"fee_mgmt_bps" yaml:"fee_mgmt_bps"`
	ReferralFeePct   uint8               `json:"referral_fee_pct" yaml:"referral_fee_pct"`
	AllocationCapPct uint8               `json:"allocation_cap_pct" yaml:"allocation_cap_pct"`
	RebalanceMode    types.RebalanceMode `json:"rebalance_mode" yaml:"rebalance_mode"`
	StrategyType     types.StrategyType  `json:"strategy_type" yaml:"strategy_type"`
}

// VaultConfig is validated vault policy.
type VaultConfig struct {
	params VaultParameters
}

// NewVaultConfig validates params against the number of yield sources the vault supports.
func NewVaultConfig(params VaultParameters, activeSources int) (VaultConfig, error) {
	if params.FeeCarryBps > maxFeeBps || params.FeeMgmtBps > maxFeeBps {
		return VaultConfig{}, fmt.Errorf("%w: carry %d bps, management %d bps",
			types.ErrInvalidFeeConfig, params.FeeCarryBps, params.FeeMgmtBps)
	}
	if params.ReferralFeePct > maxReferralFeePct {
		return VaultConfig{}, fmt.Errorf("%w: %d%%", types.ErrInvalidReferralFeeConfig, params.ReferralFeePct)
	}
	if activeSources <= 0 {
		return VaultConfig{}, fmt.Errorf("%w: %d active sources", types.ErrInvalidAllocationCap, activeSources)
	}
	minCap := (100 + activeSources - 1) / activeSources
	if int(params.AllocationCapPct) < minCap || params.AllocationCapPct > 100 {
		return VaultConfig{}, fmt.Errorf("%w: %d%% not in [%d, 100]",
			types.ErrInvalidAllocationCap, params.AllocationCapPct, minCap)
	}
	switch params.RebalanceMode {
	case types.RebalanceModeCalculator, types.RebalanceModeProofChecker:
	default:
		return VaultConfig{}, fmt.Errorf("%w: rebalance mode %d", types.ErrStrategyError, params.RebalanceMode)
	}
	switch params.StrategyType {
	case types.StrategyMaxYield, types.StrategyEqualAllocation:
	default:
		return VaultConfig{}, fmt.Errorf("%w: strategy %d", types.ErrStrategyError, params.StrategyType)
	}
	return VaultConfig{params: params}, nil
}

func (c VaultConfig) Parameters() VaultParameters        { return c.params }
func (c VaultConfig) DepositCap() uint64                 { return c.params.DepositCap }
func (c VaultConfig) FeeCarryBps() uint32                { return c.params.FeeCarryBps }
func (c VaultConfig) FeeMgmtBps() uint32                 { return c.params.FeeMgmtBps }
func (c VaultConfig) ReferralFeePct() uint8              { return c.params.ReferralFeePct }
func (c VaultConfig) RebalanceMode() types.RebalanceMode { return c.params.RebalanceMode }
func (c VaultConfig) StrategyType() types.StrategyType   { return c.params.StrategyType }

// CoversSources fails with InvalidAllocationCap when k sources at the cap cannot hold the whole value.
func (c VaultConfig) CoversSources(k int) error {
	if k <= 0 || int(c.params.AllocationCapPct)*k < 100 {
		return fmt.Errorf("%w: %d%% across %d enabled sources is below 100%%",
			types.ErrInvalidAllocationCap, c.params.AllocationCapPct, k)
	}
	return nil
}

// AllocationCap is the per-source cap as a rate.
func (c VaultConfig) AllocationCap() types.Rate {
	return types.RateFromPercent(c.params.AllocationCapPct)
}
