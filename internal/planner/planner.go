package planner

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
)

// MarketView is the part of a market the planner reads.
type MarketView interface {
	Provider() types.Provider
	ConvertReserveToShares(amount uint64) (uint64, error)
	ConvertSharesToReserve(shares uint64) (uint64, error)
	ReserveBalance() uint64
	SharesBalance() uint64
}

// PlanReconcile picks the single action a reconcile sends to a market. A zero amount converges
// toward the target allocation; a positive amount is a direct redeem of that many reserve tokens.
func PlanReconcile(m MarketView, target types.SlotTrackedValue, now uint64, withdrawAmount uint64) (types.Action, error) {
	if withdrawAmount > 0 {
		return PlanDirectRedeem(m, withdrawAmount)
	}
	return PlanConverge(m, target, now)
}

// PlanConverge moves the position toward target: deposit min(target-current, idle) when below it,
// otherwise redeem the shares above convert(target).
func PlanConverge(m MarketView, target types.SlotTrackedValue, now uint64) (types.Action, error) {
	actionLogger := logger.GetForComponent("action_planner")
	p := m.Provider()

	elapsed, err := target.LastUpdate.SlotsElapsed(now)
	if err != nil {
		return types.Action{}, err
	}
	if target.LastUpdate.Stale || elapsed > types.RebalanceMaxAge {
		return types.Action{}, fmt.Errorf("%w: %s target set %d slots ago (stale=%t)",
			types.ErrAllocationIsNotUpdated, p, elapsed, target.LastUpdate.Stale)
	}

	shares := m.SharesBalance()
	current, err := m.ConvertSharesToReserve(shares)
	if err != nil {
		return types.Action{}, err
	}

	var action types.Action
	if target.Value > current {
		gap, err := utils.CheckedSub(target.Value, current)
		if err != nil {
			return types.Action{}, err
		}
		action = types.Action{Type: types.ActionDeposit, Provider: p, Amount: min(gap, m.ReserveBalance())}
	} else {
		keep, err := m.ConvertReserveToShares(target.Value)
		if err != nil {
			return types.Action{}, err
		}
		var excess uint64
		if keep < shares {
			excess = shares - keep
		}
		action = types.Action{Type: types.ActionRedeem, Provider: p, Amount: excess}
	}

	if action.Amount == 0 {
		action.Type = types.ActionNoOp
	}
	actionLogger.Debug().
		Str("provider", p.String()).
		Uint64("slot", now).
		Uint64("target", target.Value).
		Uint64("current", current).
		Str("action", string(action.Type)).
		Uint64("amount", action.Amount).
		Msg("Planned converge action")
	return action, nil
}

// PlanDirectRedeem redeems the shares for amount reserve tokens, bounded by what the vault holds.
func PlanDirectRedeem(m MarketView, amount uint64) (types.Action, error) {
	shares, err := m.ConvertReserveToShares(amount)
	if err != nil {
		return types.Action{}, err
	}
	action := types.Action{Type: types.ActionRedeem, Provider: m.Provider(), Amount: min(shares, m.SharesBalance())}
	if action.Amount == 0 {
		action.Type = types.ActionNoOp
	}
	return action, nil
}
