/*

This file contains one adapter per supported provider. Solend and Port are collateral-token
reserves sharing the kinked curve; Jet mints deposit notes and withdraws by token amount.

*/

package lending

import (
	"context"
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// SolendMarket deposits into a Solend reserve and holds its cTokens.
type SolendMarket struct {
	*venue
}

func NewSolendMarket(address solana.PublicKey, reserve *Reserve, account ReserveAccount, logger zerolog.Logger) (*SolendMarket, error) {
	v, err := newVenue(types.ProviderSolend, address, reserve, account, logger)
	if err != nil {
		return nil, err
	}
	return &SolendMarket{venue: v}, nil
}

func (m *SolendMarket) Deposit(ctx context.Context, amount uint64) error {
	return m.supply(ctx, amount)
}

func (m *SolendMarket) Redeem(ctx context.Context, shares uint64) error {
	return m.withdraw(ctx, shares)
}

// PortMarket deposits into a Port Finance reserve. Port rejects deposits that would mint zero
// collateral.
type PortMarket struct {
	*venue
}

func NewPortMarket(address solana.PublicKey, reserve *Reserve, account ReserveAccount, logger zerolog.Logger) (*PortMarket, error) {
	v, err := newVenue(types.ProviderPort, address, reserve, account, logger)
	if err != nil {
		return nil, err
	}
	return &PortMarket{venue: v}, nil
}

func (m *PortMarket) Deposit(ctx context.Context, amount uint64) error {
	if amount > 0 {
		minted, err := m.ConvertReserveToShares(amount)
		if err != nil {
			return err
		}
		if minted == 0 {
			return fmt.Errorf("%w: port deposit of %d mints no collateral", types.ErrMathError, amount)
		}
	}
	return m.supply(ctx, amount)
}

func (m *PortMarket) Redeem(ctx context.Context, shares uint64) error {
	return m.withdraw(ctx, shares)
}

// JetMarket deposits into a Jet reserve. Jet withdrawals are denominated in tokens, so a redeem
// converts the notes first and burns the notes that amount maps back to.
type JetMarket struct {
	*venue
}

func NewJetMarket(address solana.PublicKey, reserve *Reserve, account ReserveAccount, logger zerolog.Logger) (*JetMarket, error) {
	v, err := newVenue(types.ProviderJet, address, reserve, account, logger)
	if err != nil {
		return nil, err
	}
	return &JetMarket{venue: v}, nil
}

func (m *JetMarket) Deposit(ctx context.Context, amount uint64) error {
	return m.supply(ctx, amount)
}

func (m *JetMarket) Redeem(ctx context.Context, notes uint64) error {
	tokens, err := m.ConvertSharesToReserve(notes)
	if err != nil {
		return err
	}
	burn, err := m.ConvertReserveToShares(tokens)
	if err != nil {
		return err
	}
	// Rounding can only shrink the burn; never burn more notes than requested.
	if burn > notes {
		burn = notes
	}
	return m.withdraw(ctx, burn)
}

var (
	_ Market = (*SolendMarket)(nil)
	_ Market = (*PortMarket)(nil)
	_ Market = (*JetMarket)(nil)
)
