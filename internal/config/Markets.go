/*

This file loads the lending market fixtures the keeper runs against. Rates are given in basis
points so the file stays free of fixed-point strings.

*/

package config

import (
	"fmt"
	"os"

	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/logger"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// MarketsFileSpec is the root of a markets YAML file.
type MarketsFileSpec struct {
	Markets []MarketSpec `yaml:"markets"`
}

// MarketSpec describes one venue reserve.
type MarketSpec struct {
	Provider string      `yaml:"provider"`
	Address  string      `yaml:"address"`
	Reserve  ReserveSpec `yaml:"reserve"`
	Curve    CurveSpec   `yaml:"curve"`
}

type ReserveSpec struct {
	AvailableLiquidity uint64 `yaml:"available_liquidity"`
	BorrowedAmount     uint64 `yaml:"borrowed_amount"`
	CollateralSupply   uint64 `yaml:"collateral_supply"`
	LastUpdateSlot     uint64 `yaml:"last_update_slot"`
}

// CurveSpec holds either a kinked or a segmented curve, selected by Type.
type CurveSpec struct {
	Type string `yaml:"type"` // "kinked" or "segmented"

	OptimalUtilizationBps uint64 `yaml:"optimal_utilization_bps"`
	MinRateBps            uint64 `yaml:"min_rate_bps"`
	OptimalRateBps        uint64 `yaml:"optimal_rate_bps"`
	MaxRateBps            uint64 `yaml:"max_rate_bps"`

	Utilization1Bps uint64 `yaml:"utilization_1_bps"`
	Utilization2Bps uint64 `yaml:"utilization_2_bps"`
	Rate0Bps        uint64 `yaml:"rate_0_bps"`
	Rate1Bps        uint64 `yaml:"rate_1_bps"`
	Rate2Bps        uint64 `yaml:"rate_2_bps"`
	Rate3Bps        uint64 `yaml:"rate_3_bps"`
}

// Curve converts the spec into a lending curve.
func (c CurveSpec) Curve() (lending.Curve, error) {
	switch c.Type {
	case "kinked":
		curve := lending.KinkedCurve{
			OptimalUtilization: types.RateFromBips(c.OptimalUtilizationBps),
			MinRate:            types.RateFromBips(c.MinRateBps),
			OptimalRate:        types.RateFromBips(c.OptimalRateBps),
			MaxRate:            types.RateFromBips(c.MaxRateBps),
		}
		return curve, curve.Validate()
	case "segmented":
		curve := lending.SegmentedCurve{
			Utilization1: types.RateFromBips(c.Utilization1Bps),
			Utilization2: types.RateFromBips(c.Utilization2Bps),
			Rate0:        types.RateFromBips(c.Rate0Bps),
			Rate1:        types.RateFromBips(c.Rate1Bps),
			Rate2:        types.RateFromBips(c.Rate2Bps),
			Rate3:        types.RateFromBips(c.Rate3Bps),
		}
		return curve, curve.Validate()
	default:
		return nil, fmt.Errorf("unknown curve type %q", c.Type)
	}
}

// LoadMarkets reads and parses a markets YAML file.
func LoadMarkets(path string) ([]MarketSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markets file %s: %w", path, err)
	}
	return ParseMarkets(data)
}

// ParseMarkets parses markets YAML. Each provider may appear at most once.
func ParseMarkets(data []byte) ([]MarketSpec, error) {
	var file MarketsFileSpec
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse markets yaml: %w", err)
	}
	if len(file.Markets) == 0 {
		return nil, fmt.Errorf("markets file lists no markets")
	}
	return file.Markets, nil
}

// BuildMarkets constructs one lending market per spec over the vault's idle reserve account.
func BuildMarkets(specs []MarketSpec, account lending.ReserveAccount) (*lending.Registry, error) {
	registry, err := lending.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, spec := range specs {
		m, err := buildMarket(spec, account)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", spec.Provider, err)
		}
		if err := registry.Register(m); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildMarket(spec MarketSpec, account lending.ReserveAccount) (lending.Market, error) {
	provider, err := types.ParseProvider(spec.Provider)
	if err != nil {
		return nil, err
	}
	address := solana.NewWallet().PublicKey()
	if spec.Address != "" {
		if address, err = solana.PublicKeyFromBase58(spec.Address); err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", spec.Address, err)
		}
	}
	curve, err := spec.Curve.Curve()
	if err != nil {
		return nil, err
	}
	reserve, err := lending.NewReserve(lending.ReserveState{
		AvailableLiquidity: spec.Reserve.AvailableLiquidity,
		BorrowedAmount:     spec.Reserve.BorrowedAmount,
		CollateralSupply:   spec.Reserve.CollateralSupply,
		LastUpdateSlot:     spec.Reserve.LastUpdateSlot,
	}, curve)
	if err != nil {
		return nil, err
	}

	log := logger.GetForComponent(provider.String() + "_market")
	switch provider {
	case types.ProviderSolend:
		return lending.NewSolendMarket(address, reserve, account, log)
	case types.ProviderPort:
		return lending.NewPortMarket(address, reserve, account, log)
	case types.ProviderJet:
		return lending.NewJetMarket(address, reserve, account, log)
	default:
		return nil, fmt.Errorf("%w: provider %d", types.ErrInvalidAccount, provider)
	}
}
