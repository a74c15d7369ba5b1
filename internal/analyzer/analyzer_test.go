package analyzer

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(p types.Provider, percent uint8) Source {
	return Source{Provider: p, Returns: lending.FixedReturn(types.RateFromPercent(percent))}
}

func TestMaxYieldTwoSourcesCapped(t *testing.T) {
	sources := []Source{fixed(types.ProviderSolend, 5), fixed(types.ProviderPort, 3)}

	w, err := CalculateWeights(types.StrategyMaxYield, sources, types.RateFromPercent(60))
	require.NoError(t, err)
	assert.True(t, w[types.ProviderSolend].Equal(types.RateFromPercent(60)))
	assert.True(t, w[types.ProviderPort].Equal(types.RateFromPercent(40)))
	assert.True(t, w[types.ProviderJet].IsZero())
}

func TestMaxYieldOrdersByReturn(t *testing.T) {
	sources := []Source{
		fixed(types.ProviderSolend, 2),
		fixed(types.ProviderPort, 9),
		fixed(types.ProviderJet, 4),
	}
	w, err := MaxYield(sources, types.RateFromPercent(50))
	require.NoError(t, err)
	assert.True(t, w[types.ProviderPort].Equal(types.RateFromPercent(50)))
	assert.True(t, w[types.ProviderJet].Equal(types.RateFromPercent(50)))
	assert.True(t, w[types.ProviderSolend].IsZero())
}

func TestMaxYieldTieBreakUsesProviderOrder(t *testing.T) {
	sources := []Source{
		fixed(types.ProviderJet, 4),
		fixed(types.ProviderPort, 4),
		fixed(types.ProviderSolend, 4),
	}
	w, err := MaxYield(sources, types.RateFromPercent(50))
	require.NoError(t, err)
	assert.True(t, w[types.ProviderSolend].Equal(types.RateFromPercent(50)))
	assert.True(t, w[types.ProviderPort].Equal(types.RateFromPercent(50)))
	assert.True(t, w[types.ProviderJet].IsZero())
}

func TestMaxYieldNeverExceedsCap(t *testing.T) {
	sources := []Source{fixed(types.ProviderSolend, 5), fixed(types.ProviderPort, 3)}
	for _, capPct := range []uint8{40, 50, 51, 75, 100} {
		w, err := MaxYield(sources, types.RateFromPercent(capPct))
		require.NoError(t, err)
		for _, weight := range w {
			assert.True(t, weight.LTE(types.RateFromPercent(capPct)))
		}
		sum, err := w.Sum()
		require.NoError(t, err)
		if uint(capPct)*2 >= 100 {
			assert.True(t, sum.Equal(types.OneRate()), "cap %d sum %s", capPct, sum)
		} else {
			assert.True(t, sum.LT(types.OneRate()))
		}
	}

	_, err := CalculateWeights(types.StrategyMaxYield, sources, types.RateFromPercent(40))
	assert.True(t, errors.Is(err, types.ErrStrategyError))
}

func TestEqualAllocation(t *testing.T) {
	for k := 1; k <= types.NumProviders; k++ {
		sources := make([]Source, 0, k)
		for _, p := range types.AllProviders()[:k] {
			sources = append(sources, fixed(p, 1))
		}
		w, err := CalculateWeights(types.StrategyEqualAllocation, sources, types.OneRate())
		require.NoError(t, err)

		share, err := types.RateFromRatio(1, uint64(k))
		require.NoError(t, err)
		dust, err := types.RateFromDec(sdkmath.LegacyNewDecWithPrec(int64(k), 18))
		require.NoError(t, err)
		for _, s := range sources {
			excess, err := w[s.Provider].TrySub(share)
			require.NoError(t, err)
			assert.True(t, excess.LTE(dust), "provider %s excess %s", s.Provider, excess)
		}
		sum, err := w.Sum()
		require.NoError(t, err)
		assert.True(t, sum.Equal(types.OneRate()), "k=%d sum=%s", k, sum)
	}
}

func TestEqualAllocationRespectsCap(t *testing.T) {
	sources := []Source{fixed(types.ProviderSolend, 1), fixed(types.ProviderPort, 1)}
	_, err := CalculateWeights(types.StrategyEqualAllocation, sources, types.RateFromPercent(40))
	assert.True(t, errors.Is(err, types.ErrStrategyError))
}

func TestStrategyRejectsBadSources(t *testing.T) {
	_, err := MaxYield(nil, types.OneRate())
	assert.True(t, errors.Is(err, types.ErrStrategyError))

	dup := []Source{fixed(types.ProviderPort, 1), fixed(types.ProviderPort, 2)}
	_, err = EqualAllocation(dup)
	assert.True(t, errors.Is(err, types.ErrInvalidAccount))

	_, err = MaxYield([]Source{{Provider: types.ProviderJet}}, types.OneRate())
	assert.True(t, errors.Is(err, types.ErrInsufficientAccounts))
}

func TestBlendedAPR(t *testing.T) {
	sources := []Source{fixed(types.ProviderSolend, 5), fixed(types.ProviderPort, 3)}
	w := WeightsFromBips([types.NumProviders]uint16{6_000, 4_000, 0})

	apr, err := BlendedAPR(w, sources, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, "0.042000000000000000", apr.String())
}

func TestProofCheck(t *testing.T) {
	sources := []Source{fixed(types.ProviderSolend, 5), fixed(types.ProviderPort, 3)}
	allocationCap := types.RateFromPercent(60)

	tests := []struct {
		name    string
		bips    [types.NumProviders]uint16
		wantErr error
	}{
		{"matches proof", [types.NumProviders]uint16{6_000, 4_000, 0}, nil},
		{"worse than proof", [types.NumProviders]uint16{4_000, 6_000, 0}, types.ErrRebalanceProofCheckFailed},
		{"does not sum", [types.NumProviders]uint16{6_000, 3_000, 0}, types.ErrInvalidProposedWeights},
		{"above cap", [types.NumProviders]uint16{7_000, 3_000, 0}, types.ErrInvalidProposedWeights},
		{"disabled source", [types.NumProviders]uint16{5_000, 4_000, 1_000}, types.ErrInvalidProposedWeights},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ProofCheck(WeightsFromBips(tt.bips), sources, allocationCap, 1_000_000)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, result.ProposedAPR.GTE(result.ProofAPR))
		})
	}
}

func TestProofCheckUsesProjectedReturns(t *testing.T) {
	reserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: 100_000,
		BorrowedAmount:     100_000,
		CollateralSupply:   200_000,
	}, lending.KinkedCurve{
		OptimalUtilization: types.RateFromPercent(80),
		OptimalRate:        types.RateFromPercent(10),
		MaxRate:            types.RateFromPercent(100),
	})
	require.NoError(t, err)

	sources := []Source{
		{Provider: types.ProviderSolend, Returns: reserve.ReturnCalculator()},
		fixed(types.ProviderPort, 1),
	}
	result, err := ProofCheck(WeightsFromBips([types.NumProviders]uint16{5_000, 5_000, 0}), sources, types.RateFromPercent(50), 100_000)
	require.NoError(t, err)
	assert.True(t, result.ProofAPR.Equal(result.ProposedAPR))
}
