/*

This file contains the reserve model shared by every provider adapter: liquidity, borrows,
collateral supply and interest accrual. Providers differ in their curves and in how their
instructions address the reserve, not in this bookkeeping.

*/

package lending

import (
	"fmt"
	"sync"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
)

// ReserveState is a point-in-time copy of a reserve.
type ReserveState struct {
	AvailableLiquidity uint64 `json:"available_liquidity"`
	BorrowedAmount     uint64 `json:"borrowed_amount"`
	CollateralSupply   uint64 `json:"collateral_supply"`
	LastUpdateSlot     uint64 `json:"last_update_slot"`
}

// TotalLiquidity is available liquidity plus outstanding borrows.
func (s ReserveState) TotalLiquidity() (uint64, error) {
	return utils.CheckedAdd(s.AvailableLiquidity, s.BorrowedAmount)
}

// Reserve is an in-memory lending reserve.
type Reserve struct {
	mu    sync.RWMutex
	state ReserveState
	curve Curve
}

func NewReserve(state ReserveState, curve Curve) (*Reserve, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w: reserve has no rate curve", types.ErrTryFromReserveError)
	}
	if state.BorrowedAmount > 0 && state.CollateralSupply == 0 {
		return nil, fmt.Errorf("%w: borrows without collateral supply", types.ErrTryFromReserveError)
	}
	return &Reserve{state: state, curve: curve}, nil
}

func (r *Reserve) State() ReserveState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Accrue compounds borrow interest linearly over the slots since the last accrual.
func (r *Reserve) Accrue(slot uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot < r.state.LastUpdateSlot {
		return fmt.Errorf("%w: reserve accrued at %d, asked for %d", types.ErrMathError, r.state.LastUpdateSlot, slot)
	}
	elapsed := slot - r.state.LastUpdateSlot
	if elapsed == 0 || r.state.BorrowedAmount == 0 {
		r.state.LastUpdateSlot = slot
		return nil
	}

	util, err := utilization(r.state.AvailableLiquidity, r.state.BorrowedAmount)
	if err != nil {
		return err
	}
	rate, err := r.curve.BorrowRate(util)
	if err != nil {
		return err
	}
	annual, err := rate.TryMulU64(r.state.BorrowedAmount)
	if err != nil {
		return err
	}
	interest, err := utils.MulDiv(annual, elapsed, types.SlotsPerYear)
	if err != nil {
		return err
	}
	borrowed, err := utils.CheckedAdd(r.state.BorrowedAmount, interest)
	if err != nil {
		return err
	}

	r.state.BorrowedAmount = borrowed
	r.state.LastUpdateSlot = slot
	return nil
}

// ReserveToCollateral converts reserve tokens to collateral shares, rounding down.
func (r *Reserve) ReserveToCollateral(amount uint64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return reserveToCollateral(r.state, amount)
}

// CollateralToReserve converts collateral shares to reserve tokens, rounding down.
func (r *Reserve) CollateralToReserve(shares uint64) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return collateralToReserve(r.state, shares)
}

// Supply adds liquidity and returns the collateral minted for it.
func (r *Reserve) Supply(amount uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	shares, err := reserveToCollateral(r.state, amount)
	if err != nil {
		return 0, err
	}
	available, err := utils.CheckedAdd(r.state.AvailableLiquidity, amount)
	if err != nil {
		return 0, err
	}
	supply, err := utils.CheckedAdd(r.state.CollateralSupply, shares)
	if err != nil {
		return 0, err
	}
	r.state.AvailableLiquidity = available
	r.state.CollateralSupply = supply
	return shares, nil
}

// Withdraw burns collateral and returns the liquidity released for it.
func (r *Reserve) Withdraw(shares uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	amount, err := collateralToReserve(r.state, shares)
	if err != nil {
		return 0, err
	}
	if amount > r.state.AvailableLiquidity {
		return 0, fmt.Errorf("%w: reserve has %d available, redeem needs %d",
			types.ErrInsufficientLiquidity, r.state.AvailableLiquidity, amount)
	}
	supply, err := utils.CheckedSub(r.state.CollateralSupply, shares)
	if err != nil {
		return 0, err
	}
	r.state.AvailableLiquidity -= amount
	r.state.CollateralSupply = supply
	return amount, nil
}

// Borrow draws liquidity out of the reserve, used by fixtures and simulations.
func (r *Reserve) Borrow(amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount > r.state.AvailableLiquidity {
		return fmt.Errorf("%w: borrow of %d exceeds available %d", types.ErrInsufficientLiquidity, amount, r.state.AvailableLiquidity)
	}
	borrowed, err := utils.CheckedAdd(r.state.BorrowedAmount, amount)
	if err != nil {
		return err
	}
	r.state.AvailableLiquidity -= amount
	r.state.BorrowedAmount = borrowed
	return nil
}

func (r *Reserve) UtilizationRate() (types.Rate, error) {
	s := r.State()
	return utilization(s.AvailableLiquidity, s.BorrowedAmount)
}

func (r *Reserve) BorrowRate() (types.Rate, error) {
	util, err := r.UtilizationRate()
	if err != nil {
		return types.Rate{}, err
	}
	return r.curve.BorrowRate(util)
}

// ReturnCalculator snapshots the reserve so projections are consistent within one rebalance.
func (r *Reserve) ReturnCalculator() ReturnCalculator {
	s := r.State()
	return &reserveReturn{available: s.AvailableLiquidity, borrowed: s.BorrowedAmount, curve: r.curve}
}

func utilization(available, borrowed uint64) (types.Rate, error) {
	total, err := utils.CheckedAdd(available, borrowed)
	if err != nil {
		return types.Rate{}, err
	}
	if total == 0 {
		return types.ZeroRate(), nil
	}
	return types.RateFromRatio(borrowed, total)
}

func reserveToCollateral(s ReserveState, amount uint64) (uint64, error) {
	total, err := s.TotalLiquidity()
	if err != nil {
		return 0, err
	}
	if s.CollateralSupply == 0 || total == 0 {
		return utils.CheckedMul(amount, types.InitialCollateralRatio)
	}
	return utils.MulDiv(amount, s.CollateralSupply, total)
}

func collateralToReserve(s ReserveState, shares uint64) (uint64, error) {
	total, err := s.TotalLiquidity()
	if err != nil {
		return 0, err
	}
	if s.CollateralSupply == 0 || total == 0 {
		return shares / types.InitialCollateralRatio, nil
	}
	return utils.MulDiv(shares, total, s.CollateralSupply)
}
