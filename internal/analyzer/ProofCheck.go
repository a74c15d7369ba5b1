package analyzer

import (
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
)

// VerifyProposedWeights checks a caller-supplied allocation against the vault's structure.
func VerifyProposedWeights(w Weights, enabled types.YieldSourceFlags, allocationCap types.Rate) error {
	if err := checkWeights(w, enabled, allocationCap); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidProposedWeights, err)
	}
	return nil
}

// BlendedAPR is Σ weight × return, each source's return projected at the token amount its
// weight would place there.
func BlendedAPR(w Weights, sources []Source, value uint64) (types.Rate, error) {
	apr := types.ZeroRate()
	for _, s := range sources {
		weight := w[s.Provider]
		amount, err := weight.TryMulU64(value)
		if err != nil {
			return types.Rate{}, err
		}
		ret, err := s.Returns.CalculateReturn(amount, s.Allocation)
		if err != nil {
			return types.Rate{}, fmt.Errorf("return for %s: %w", s.Provider, err)
		}
		contribution, err := weight.TryMul(ret)
		if err != nil {
			return types.Rate{}, err
		}
		if apr, err = apr.TryAdd(contribution); err != nil {
			return types.Rate{}, err
		}
	}
	return apr, nil
}

// ProofResult records both sides of a proof check.
type ProofResult struct {
	ProposedAPR types.Rate
	ProofAPR    types.Rate
	Proof       Weights
}

// ProofCheck accepts proposed weights only if they are structurally valid and project at least
// the APR of the max-yield allocation.
func ProofCheck(proposed Weights, sources []Source, allocationCap types.Rate, value uint64) (ProofResult, error) {
	if err := validateSources(sources); err != nil {
		return ProofResult{}, err
	}
	if err := VerifyProposedWeights(proposed, enabledFlags(sources), allocationCap); err != nil {
		return ProofResult{}, err
	}

	proof, err := CalculateWeights(types.StrategyMaxYield, sources, allocationCap)
	if err != nil {
		return ProofResult{}, err
	}
	proposedAPR, err := BlendedAPR(proposed, sources, value)
	if err != nil {
		return ProofResult{}, err
	}
	proofAPR, err := BlendedAPR(proof, sources, value)
	if err != nil {
		return ProofResult{}, err
	}

	result := ProofResult{ProposedAPR: proposedAPR, ProofAPR: proofAPR, Proof: proof}
	rebalanceLogger.Debug().
		Str("proposedAPR", proposedAPR.String()).
		Str("proofAPR", proofAPR.String()).
		Msg("Proof check evaluated")

	if proposedAPR.LT(proofAPR) {
		return result, fmt.Errorf("%w: proposed %s < proof %s", types.ErrRebalanceProofCheckFailed, proposedAPR, proofAPR)
	}
	return result, nil
}
