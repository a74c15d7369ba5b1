package types

import (
	"fmt"
	"strings"
)

// StrategyType selects how the rebalance engine derives target weights.
type StrategyType uint8

const (
	StrategyMaxYield StrategyType = iota
	StrategyEqualAllocation
)

func (s StrategyType) String() string {
	switch s {
	case StrategyMaxYield:
		return "max_yield"
	case StrategyEqualAllocation:
		return "equal_allocation"
	default:
		return "unknown"
	}
}

func ParseStrategyType(name string) (StrategyType, error) {
	switch strings.ToLower(name) {
	case "max_yield", "maxyield":
		return StrategyMaxYield, nil
	case "equal_allocation", "equalallocation":
		return StrategyEqualAllocation, nil
	}
	return 0, fmt.Errorf("unknown strategy type %q", name)
}

// RebalanceMode selects whether targets are computed on chain or proposed and checked.
type RebalanceMode uint8

const (
	RebalanceModeCalculator RebalanceMode = iota
	RebalanceModeProofChecker
)

func (m RebalanceMode) String() string {
	switch m {
	case RebalanceModeCalculator:
		return "calculator"
	case RebalanceModeProofChecker:
		return "proof_checker"
	default:
		return "unknown"
	}
}

func ParseRebalanceMode(name string) (RebalanceMode, error) {
	switch strings.ToLower(name) {
	case "calculator":
		return RebalanceModeCalculator, nil
	case "proof_checker", "proofchecker":
		return RebalanceModeProofChecker, nil
	}
	return 0, fmt.Errorf("unknown rebalance mode %q", name)
}
