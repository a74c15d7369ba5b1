package lending

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
)

// Curve maps utilization to an annual borrow rate.
type Curve interface {
	BorrowRate(utilization types.Rate) (types.Rate, error)
}

// KinkedCurve is the two-slope model used by Solend and Port reserves:
// linear from MinRate to OptimalRate up to OptimalUtilization, then linear to MaxRate at 100%.
type KinkedCurve struct {
	OptimalUtilization types.Rate `json:"optimal_utilization"`
	MinRate            types.Rate `json:"min_rate"`
	OptimalRate        types.Rate `json:"optimal_rate"`
	MaxRate            types.Rate `json:"max_rate"`
}

func (c KinkedCurve) Validate() error {
	if c.OptimalUtilization.GT(types.OneRate()) {
		return fmt.Errorf("%w: optimal utilization above 100%%", types.ErrTryFromReserveError)
	}
	if c.MinRate.GT(c.OptimalRate) || c.OptimalRate.GT(c.MaxRate) {
		return fmt.Errorf("%w: curve rates must be non-decreasing", types.ErrTryFromReserveError)
	}
	return nil
}

func (c KinkedCurve) BorrowRate(u types.Rate) (types.Rate, error) {
	if u.GT(types.OneRate()) {
		u = types.OneRate()
	}
	if u.LTE(c.OptimalUtilization) {
		if c.OptimalUtilization.IsZero() {
			return c.OptimalRate, nil
		}
		return interpolate(u, types.ZeroRate(), c.OptimalUtilization, c.MinRate, c.OptimalRate)
	}
	return interpolate(u, c.OptimalUtilization, types.OneRate(), c.OptimalRate, c.MaxRate)
}

// SegmentedCurve is Jet's three-segment model with two utilization breakpoints.
type SegmentedCurve struct {
	Utilization1 types.Rate `json:"utilization_1"`
	Utilization2 types.Rate `json:"utilization_2"`
	Rate0        types.Rate `json:"rate_0"`
	Rate1        types.Rate `json:"rate_1"`
	Rate2        types.Rate `json:"rate_2"`
	Rate3        types.Rate `json:"rate_3"`
}

func (c SegmentedCurve) Validate() error {
	if c.Utilization1.GT(c.Utilization2) || c.Utilization2.GT(types.OneRate()) {
		return fmt.Errorf("%w: utilization breakpoints out of order", types.ErrTryFromReserveError)
	}
	if c.Rate0.GT(c.Rate1) || c.Rate1.GT(c.Rate2) || c.Rate2.GT(c.Rate3) {
		return fmt.Errorf("%w: curve rates must be non-decreasing", types.ErrTryFromReserveError)
	}
	return nil
}

func (c SegmentedCurve) BorrowRate(u types.Rate) (types.Rate, error) {
	switch {
	case u.GTE(types.OneRate()):
		return c.Rate3, nil
	case u.LTE(c.Utilization1):
		return interpolate(u, types.ZeroRate(), c.Utilization1, c.Rate0, c.Rate1)
	case u.LTE(c.Utilization2):
		return interpolate(u, c.Utilization1, c.Utilization2, c.Rate1, c.Rate2)
	default:
		return interpolate(u, c.Utilization2, types.OneRate(), c.Rate2, c.Rate3)
	}
}

// interpolate returns y0 + (x-x0)*(y1-y0)/(x1-x0). y1 must be >= y0.
func interpolate(x, x0, x1, y0, y1 types.Rate) (types.Rate, error) {
	if x1.LTE(x0) {
		return y0, nil
	}
	dx, err := x.TrySub(x0)
	if err != nil {
		return types.Rate{}, err
	}
	span, err := x1.TrySub(x0)
	if err != nil {
		return types.Rate{}, err
	}
	dy, err := y1.TrySub(y0)
	if err != nil {
		return types.Rate{}, err
	}
	scaled, err := dx.TryMul(dy)
	if err != nil {
		return types.Rate{}, err
	}
	step, err := scaled.TryDiv(span)
	if err != nil {
		return types.Rate{}, err
	}
	return y0.TryAdd(step)
}
