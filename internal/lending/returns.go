package lending

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
)

// ReturnCalculator projects a source's supply return if the vault's position there moved from
// oldAllocation to newAllocation.
type ReturnCalculator interface {
	CalculateReturn(newAllocation, oldAllocation uint64) (types.Rate, error)
}

type reserveReturn struct {
	available uint64
	borrowed  uint64
	curve     Curve
}

// CalculateReturn is utilization × borrow rate after applying the allocation delta to liquidity.
func (c *reserveReturn) CalculateReturn(newAllocation, oldAllocation uint64) (types.Rate, error) {
	available, err := utils.CheckedAdd(c.available, newAllocation)
	if err != nil {
		return types.Rate{}, err
	}
	if oldAllocation > available {
		return types.Rate{}, fmt.Errorf("%w: withdrawing %d leaves negative liquidity", types.ErrMathError, oldAllocation)
	}
	available -= oldAllocation

	util, err := utilization(available, c.borrowed)
	if err != nil {
		return types.Rate{}, err
	}
	rate, err := c.curve.BorrowRate(util)
	if err != nil {
		return types.Rate{}, err
	}
	return util.TryMul(rate)
}

// FixedReturn always projects the same rate.
type FixedReturn types.Rate

func (f FixedReturn) CalculateReturn(uint64, uint64) (types.Rate, error) {
	return types.Rate(f), nil
}
