/*

This file contains the rebalance strategies. Each turns the enabled sources' return curves into
one target weight per provider, capped per source, summing to one.

*/

package analyzer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/types"
)

var rebalanceLogger = logger.GetForComponent("rebalance_engine")

var errWeightsDoNotSum = errors.New("weights do not sum to one")

// Weights holds one target weight per provider; disabled providers hold zero.
type Weights [types.NumProviders]types.Rate

// WeightsFromBips converts proposed basis points per provider into weights.
func WeightsFromBips(bips [types.NumProviders]uint16) Weights {
	var w Weights
	for i, b := range bips {
		w[i] = types.RateFromBips(uint64(b))
	}
	return w
}

// Sum adds every weight.
func (w Weights) Sum() (types.Rate, error) {
	sum := types.ZeroRate()
	for _, weight := range w {
		var err error
		if sum, err = sum.TryAdd(weight); err != nil {
			return types.Rate{}, err
		}
	}
	return sum, nil
}

// Source is one enabled yield source as the engine sees it.
type Source struct {
	Provider   types.Provider
	Returns    lending.ReturnCalculator
	Allocation uint64 // value currently placed in the source
}

type rankedSource struct {
	provider types.Provider
	ret      types.Rate
}

// CalculateWeights runs the configured strategy and checks its output.
func CalculateWeights(strategy types.StrategyType, sources []Source, allocationCap types.Rate) (Weights, error) {
	var (
		w   Weights
		err error
	)
	switch strategy {
	case types.StrategyMaxYield:
		w, err = MaxYield(sources, allocationCap)
	case types.StrategyEqualAllocation:
		w, err = EqualAllocation(sources)
	default:
		return Weights{}, fmt.Errorf("%w: unknown strategy %d", types.ErrStrategyError, strategy)
	}
	if err != nil {
		return Weights{}, err
	}
	if err := checkWeights(w, enabledFlags(sources), allocationCap); err != nil {
		rebalanceLogger.Error().Err(err).Str("strategy", strategy.String()).Msg("Strategy produced invalid weights")
		return Weights{}, fmt.Errorf("%w: %s: %v", types.ErrStrategyError, strategy, err)
	}
	return w, nil
}

// MaxYield greedily fills the highest-return sources first, each up to the cap.
// Equal returns keep provider order.
func MaxYield(sources []Source, allocationCap types.Rate) (Weights, error) {
	if err := validateSources(sources); err != nil {
		return Weights{}, err
	}

	ranked := make([]rankedSource, 0, len(sources))
	for _, s := range sources {
		ret, err := s.Returns.CalculateReturn(0, 0)
		if err != nil {
			return Weights{}, fmt.Errorf("return for %s: %w", s.Provider, err)
		}
		ranked = append(ranked, rankedSource{provider: s.Provider, ret: ret})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ret.Equal(ranked[j].ret) {
			return ranked[i].provider < ranked[j].provider
		}
		return ranked[i].ret.GT(ranked[j].ret)
	})

	var w Weights
	budget := types.OneRate()
	for rank, r := range ranked {
		weight := allocationCap
		if budget.LT(weight) {
			weight = budget
		}
		var err error
		if budget, err = budget.TrySub(weight); err != nil {
			return Weights{}, err
		}
		w[r.provider] = weight

		rebalanceLogger.Debug().
			Int("rank", rank+1).
			Str("provider", r.provider.String()).
			Str("return", r.ret.String()).
			Str("weight", weight.String()).
			Msg("Assigned max-yield weight")
	}
	return w, nil
}

// EqualAllocation splits evenly. Truncation dust goes to the first source so the sum is exact.
func EqualAllocation(sources []Source) (Weights, error) {
	if err := validateSources(sources); err != nil {
		return Weights{}, err
	}

	share, err := types.RateFromRatio(1, uint64(len(sources)))
	if err != nil {
		return Weights{}, err
	}
	var w Weights
	total := types.ZeroRate()
	for _, s := range sources {
		w[s.Provider] = share
		if total, err = total.TryAdd(share); err != nil {
			return Weights{}, err
		}
	}
	dust, err := types.OneRate().TrySub(total)
	if err != nil {
		return Weights{}, err
	}
	first := sources[0].Provider
	for _, s := range sources[1:] {
		if s.Provider < first {
			first = s.Provider
		}
	}
	if w[first], err = w[first].TryAdd(dust); err != nil {
		return Weights{}, err
	}
	return w, nil
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no enabled yield sources", types.ErrStrategyError)
	}
	var seen types.YieldSourceFlags
	for _, s := range sources {
		if !s.Provider.Valid() {
			return fmt.Errorf("%w: provider %d", types.ErrInvalidAccount, uint8(s.Provider))
		}
		if seen.Enabled(s.Provider) {
			return fmt.Errorf("%w: %s listed twice", types.ErrInvalidAccount, s.Provider)
		}
		if s.Returns == nil {
			return fmt.Errorf("%w: %s has no return calculator", types.ErrInsufficientAccounts, s.Provider)
		}
		seen = seen.With(s.Provider)
	}
	return nil
}

func enabledFlags(sources []Source) types.YieldSourceFlags {
	var flags types.YieldSourceFlags
	for _, s := range sources {
		flags = flags.With(s.Provider)
	}
	return flags
}

// checkWeights requires zero for disabled providers, at most the cap for enabled ones and an
// exact sum of one.
func checkWeights(w Weights, enabled types.YieldSourceFlags, allocationCap types.Rate) error {
	for _, p := range types.AllProviders() {
		if !enabled.Enabled(p) {
			if !w[p].IsZero() {
				return fmt.Errorf("disabled source %s has weight %s", p, w[p])
			}
			continue
		}
		if w[p].GT(allocationCap) {
			return fmt.Errorf("%s weight %s exceeds cap %s", p, w[p], allocationCap)
		}
	}
	sum, err := w.Sum()
	if err != nil {
		return err
	}
	if !sum.Equal(types.OneRate()) {
		return fmt.Errorf("%w: sum is %s", errWeightsDoNotSum, sum)
	}
	return nil
}
