/*

This file contains the vault operations run each cycle (refresh, consolidate, rebalance,
reconcile) and the user operations (deposit, withdraw). Each validates and computes everything
it needs before its first external call, and mutates the vault only after every call succeeded.

*/

package vault

import (
	"context"
	"fmt"

	"github.com/elys-network/yieldvault/internal/analyzer"
	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/planner"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
	"github.com/gagliardetto/solana-go"
)

// Refresh records the vault's current position in one yield source.
func (v *Vault) Refresh(ctx context.Context, m lending.Market, now uint64) error {
	p := m.Provider()
	if err := v.checkHalt(types.HaltRefreshes, "refresh"); err != nil {
		return err
	}
	if err := v.checkSource(p, m.Address()); err != nil {
		return err
	}
	if err := m.Refresh(ctx, now); err != nil {
		v.logger.Error().Err(err).Str("provider", p.String()).Uint64("slot", now).Msg("Market refresh failed")
		return err
	}
	value, err := m.ConvertSharesToReserve(m.SharesBalance())
	if err != nil {
		return err
	}

	v.actualAllocations.Get(p).Update(value, now)
	v.logger.Debug().Str("provider", p.String()).Uint64("slot", now).Uint64("amount", value).Msg("Refreshed allocation")
	return nil
}

// Consolidate sums idle reserve and every enabled allocation into the vault value. Every enabled
// source must have been refreshed in this exact slot. It returns the fees the new value accrues.
func (v *Vault) Consolidate(ledger TokenLedger, now uint64) (Fees, error) {
	if err := v.checkHalt(types.HaltRefreshes, "consolidate"); err != nil {
		return Fees{}, err
	}

	total := ledger.ReserveBalance()
	for _, p := range v.yieldSourceFlags.EnabledProviders() {
		alloc := v.actualAllocations[p]
		elapsed, err := alloc.LastUpdate.SlotsElapsed(now)
		if err != nil {
			return Fees{}, err
		}
		if elapsed != 0 || alloc.LastUpdate.Stale {
			return Fees{}, fmt.Errorf("%w: %s last refreshed at slot %d, now %d",
				types.ErrAllocationIsNotUpdated, p, alloc.LastUpdate.Slot, now)
		}
		if total, err = utils.CheckedAdd(total, alloc.Value); err != nil {
			return Fees{}, err
		}
	}

	fees, err := v.CalculateFees(total, now)
	if err != nil {
		return Fees{}, err
	}

	v.value.Update(total, now)
	v.logger.Debug().Uint64("slot", now).Uint64("amount", total).Uint64("fees", fees.Total).Msg("Consolidated vault value")
	return fees, nil
}

// Rebalance sets new target allocations. In calculator mode proposed is ignored and may be nil;
// in proof-checker mode it is required and must beat the max-yield proof.
func (v *Vault) Rebalance(markets []lending.Market, proposed *analyzer.Weights, now uint64) (analyzer.Weights, error) {
	if err := v.requireFreshValue(now); err != nil {
		return analyzer.Weights{}, err
	}
	sources, err := v.sources(markets)
	if err != nil {
		return analyzer.Weights{}, err
	}
	if err := v.config.CoversSources(len(sources)); err != nil {
		v.logger.Error().Err(err).Uint64("slot", now).Msg("Rebalance rejected")
		return analyzer.Weights{}, err
	}

	allocationCap := v.config.AllocationCap()
	var weights analyzer.Weights
	switch v.config.RebalanceMode() {
	case types.RebalanceModeCalculator:
		weights, err = analyzer.CalculateWeights(v.config.StrategyType(), sources, allocationCap)
	case types.RebalanceModeProofChecker:
		if proposed == nil {
			return analyzer.Weights{}, fmt.Errorf("%w: proof checker requires proposed weights", types.ErrInvalidProposedWeights)
		}
		_, err = analyzer.ProofCheck(*proposed, sources, allocationCap, v.value.Value)
		weights = *proposed
	default:
		err = fmt.Errorf("%w: rebalance mode %d", types.ErrStrategyError, v.config.RebalanceMode())
	}
	if err != nil {
		v.logger.Error().Err(err).Uint64("slot", now).Msg("Rebalance rejected")
		return analyzer.Weights{}, err
	}

	var amounts [types.NumProviders]uint64
	for _, s := range sources {
		if amounts[s.Provider], err = weights[s.Provider].TryMulU64(v.value.Value); err != nil {
			return analyzer.Weights{}, err
		}
	}
	for _, s := range sources {
		v.targetAllocations.Get(s.Provider).Update(amounts[s.Provider], now)
		v.logger.Debug().
			Str("provider", s.Provider.String()).
			Uint64("slot", now).
			Uint64("amount", amounts[s.Provider]).
			Str("weight", weights[s.Provider].String()).
			Msg("Target allocation set")
	}
	return weights, nil
}

// sources maps supplied markets onto enabled yield sources. Every enabled source must be
// supplied exactly once at its recorded address.
func (v *Vault) sources(markets []lending.Market) ([]analyzer.Source, error) {
	var seen types.YieldSourceFlags
	byProvider := [types.NumProviders]lending.Market{}
	for _, m := range markets {
		p := m.Provider()
		if err := v.checkSource(p, m.Address()); err != nil {
			return nil, err
		}
		if seen.Enabled(p) {
			return nil, fmt.Errorf("%w: %s supplied twice", types.ErrInvalidAccount, p)
		}
		seen = seen.With(p)
		byProvider[p] = m
	}

	enabled := v.yieldSourceFlags.EnabledProviders()
	sources := make([]analyzer.Source, 0, len(enabled))
	for _, p := range enabled {
		m := byProvider[p]
		if m == nil {
			return nil, fmt.Errorf("%w: %s", types.ErrInsufficientAccounts, p)
		}
		sources = append(sources, analyzer.Source{
			Provider:   p,
			Returns:    m.ReturnCalculator(),
			Allocation: v.actualAllocations[p].Value,
		})
	}
	return sources, nil
}

// Reconcile issues one deposit or redeem against a source. withdrawAmount zero converges toward
// the target allocation and resets it; a positive amount redeems that much reserve directly and
// leaves the target in place.
func (v *Vault) Reconcile(ctx context.Context, m lending.Market, withdrawAmount, now uint64) (types.Action, error) {
	p := m.Provider()
	if err := v.checkHalt(types.HaltReconciles, "reconcile"); err != nil {
		return types.Action{}, err
	}
	if err := v.checkSource(p, m.Address()); err != nil {
		return types.Action{}, err
	}

	action, err := planner.PlanReconcile(m, v.targetAllocations[p], now, withdrawAmount)
	if err != nil {
		return types.Action{}, err
	}

	if !action.IsNoOp() {
		switch action.Type {
		case types.ActionDeposit:
			err = m.Deposit(ctx, action.Amount)
		case types.ActionRedeem:
			err = m.Redeem(ctx, action.Amount)
		}
	}
	if err != nil {
		v.logger.Error().Err(err).
			Str("provider", p.String()).
			Uint64("slot", now).
			Str("action", string(action.Type)).
			Uint64("amount", action.Amount).
			Msg("Reconcile action failed")
		return types.Action{}, err
	}

	if withdrawAmount == 0 {
		v.targetAllocations.Get(p).Reset()
	}
	v.logger.Debug().
		Str("provider", p.String()).
		Uint64("slot", now).
		Str("action", string(action.Type)).
		Uint64("amount", action.Amount).
		Msg("Reconciled yield source")
	return action, nil
}

// Deposit takes amount reserve tokens from user and mints shares at the current share price.
func (v *Vault) Deposit(ledger TokenLedger, user solana.PublicKey, amount, now uint64) (uint64, error) {
	if err := v.checkHalt(types.HaltDepositsWithdraws, "deposit"); err != nil {
		return 0, err
	}
	if err := v.requireFreshValue(now); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, nil
	}

	shares, err := v.sharesForDeposit(ledger.TotalShares(), amount)
	if err != nil {
		return 0, err
	}
	newValue, err := utils.CheckedAdd(v.value.Value, amount)
	if err != nil {
		return 0, err
	}
	if newValue > v.config.DepositCap() {
		return 0, fmt.Errorf("%w: %d would exceed cap %d", types.ErrDepositCapError, newValue, v.config.DepositCap())
	}

	if err := ledger.TransferIn(user, amount); err != nil {
		return 0, err
	}
	if err := ledger.MintShares(user, shares); err != nil {
		if rerr := ledger.TransferOut(user, amount); rerr != nil {
			v.logger.Error().Err(rerr).Str("user", user.String()).Uint64("amount", amount).Msg("Failed to refund deposit")
		}
		return 0, err
	}

	v.value.Value = newValue
	v.logger.Debug().Str("user", user.String()).Uint64("slot", now).Uint64("amount", amount).Uint64("shares", shares).Msg("Deposit")
	return shares, nil
}

func (v *Vault) sharesForDeposit(totalShares, amount uint64) (uint64, error) {
	if totalShares == 0 {
		return utils.CheckedMul(amount, types.InitialCollateralRatio)
	}
	return utils.MulDiv(totalShares, amount, v.value.Value)
}

// Withdraw burns shares from user and pays out their reserve value, rounded down.
func (v *Vault) Withdraw(ledger TokenLedger, user solana.PublicKey, shares, now uint64) (uint64, error) {
	if err := v.checkHalt(types.HaltDepositsWithdraws, "withdraw"); err != nil {
		return 0, err
	}
	if err := v.requireFreshValue(now); err != nil {
		return 0, err
	}
	if shares == 0 {
		return 0, nil
	}

	totalShares := ledger.TotalShares()
	if shares > totalShares {
		return 0, fmt.Errorf("%w: burning %d of %d shares", types.ErrMathError, shares, totalShares)
	}
	amount, err := utils.MulDiv(shares, v.value.Value, totalShares)
	if err != nil {
		return 0, err
	}
	newValue, err := utils.CheckedSub(v.value.Value, amount)
	if err != nil {
		return 0, err
	}
	if held := ledger.ShareBalance(user); shares > held {
		return 0, fmt.Errorf("%w: %s holds %d shares", ErrInsufficientFunds, user, held)
	}
	if idle := ledger.ReserveBalance(); amount > idle {
		return 0, fmt.Errorf("%w: withdraw of %d exceeds idle reserve %d", types.ErrInsufficientLiquidity, amount, idle)
	}

	if err := ledger.BurnShares(user, shares); err != nil {
		return 0, err
	}
	if err := ledger.TransferOut(user, amount); err != nil {
		if rerr := ledger.MintShares(user, shares); rerr != nil {
			v.logger.Error().Err(rerr).Str("user", user.String()).Uint64("shares", shares).Msg("Failed to restore burned shares")
		}
		return 0, err
	}

	v.value.Value = newValue
	v.logger.Debug().Str("user", user.String()).Uint64("slot", now).Uint64("amount", amount).Uint64("shares", shares).Msg("Withdraw")
	return amount, nil
}
