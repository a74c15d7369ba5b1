package vault

import (
	"fmt"
	"sync"

	"github.com/elys-network/yieldvault/internal/lending"
	"github.com/elys-network/yieldvault/internal/types"
	"github.com/elys-network/yieldvault/internal/utils"
	"github.com/gagliardetto/solana-go"
)

// ErrInsufficientFunds is returned when a user or the idle reserve holds too little.
var ErrInsufficientFunds = types.ErrInsufficientFunds

// TokenLedger moves reserve tokens and vault shares. The vault's idle reserve account is the
// same account markets debit and credit.
type TokenLedger interface {
	lending.ReserveAccount

	TotalShares() uint64
	ShareBalance(owner solana.PublicKey) uint64

	// TransferIn moves reserve tokens from a user into the vault's idle account.
	TransferIn(from solana.PublicKey, amount uint64) error
	// TransferOut moves reserve tokens from the vault's idle account to a user.
	TransferOut(to solana.PublicKey, amount uint64) error
	MintShares(to solana.PublicKey, amount uint64) error
	BurnShares(from solana.PublicKey, amount uint64) error
}

// MemoryLedger is an in-process TokenLedger.
type MemoryLedger struct {
	mu          sync.RWMutex
	idle        uint64
	totalShares uint64
	tokens      map[solana.PublicKey]uint64
	shares      map[solana.PublicKey]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		tokens: make(map[solana.PublicKey]uint64),
		shares: make(map[solana.PublicKey]uint64),
	}
}

// Fund credits reserve tokens to a user's wallet.
func (l *MemoryLedger) Fund(user solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance, err := utils.CheckedAdd(l.tokens[user], amount)
	if err != nil {
		return err
	}
	l.tokens[user] = balance
	return nil
}

func (l *MemoryLedger) TokenBalance(user solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tokens[user]
}

func (l *MemoryLedger) ReserveBalance() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.idle
}

func (l *MemoryLedger) DebitReserve(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.idle {
		return fmt.Errorf("%w: vault reserve holds %d, needs %d", ErrInsufficientFunds, l.idle, amount)
	}
	l.idle -= amount
	return nil
}

func (l *MemoryLedger) CreditReserve(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	idle, err := utils.CheckedAdd(l.idle, amount)
	if err != nil {
		return err
	}
	l.idle = idle
	return nil
}

func (l *MemoryLedger) TotalShares() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalShares
}

func (l *MemoryLedger) ShareBalance(owner solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.shares[owner]
}

func (l *MemoryLedger) TransferIn(from solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.tokens[from] {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, l.tokens[from], amount)
	}
	idle, err := utils.CheckedAdd(l.idle, amount)
	if err != nil {
		return err
	}
	l.tokens[from] -= amount
	l.idle = idle
	return nil
}

func (l *MemoryLedger) TransferOut(to solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.idle {
		return fmt.Errorf("%w: vault reserve holds %d, needs %d", ErrInsufficientFunds, l.idle, amount)
	}
	balance, err := utils.CheckedAdd(l.tokens[to], amount)
	if err != nil {
		return err
	}
	l.idle -= amount
	l.tokens[to] = balance
	return nil
}

func (l *MemoryLedger) MintShares(to solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	total, err := utils.CheckedAdd(l.totalShares, amount)
	if err != nil {
		return err
	}
	l.totalShares = total
	l.shares[to] += amount
	return nil
}

func (l *MemoryLedger) BurnShares(from solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.shares[from] {
		return fmt.Errorf("%w: %s holds %d shares, burning %d", ErrInsufficientFunds, from, l.shares[from], amount)
	}
	l.shares[from] -= amount
	l.totalShares -= amount
	return nil
}

var _ TokenLedger = (*MemoryLedger)(nil)
