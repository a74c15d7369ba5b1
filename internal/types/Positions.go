/*

This file contains the types describing the vault's position in each yield source and the
single action a reconcile executes against it.

*/

package types

import "time"

// InitialCollateralRatio is the shares minted per reserve token while a share supply is empty.
const InitialCollateralRatio uint64 = 1

// Position is the vault's holding in one yield source.
type Position struct {
	Provider     Provider `json:"provider"`
	Shares       uint64   `json:"shares"`        // Collateral shares held in the market
	ReserveValue uint64   `json:"reserve_value"` // Shares converted back to reserve, rounded down
	Target       uint64   `json:"target"`        // Target allocation at the time of the snapshot
}

// ActionType defines the low-level operation a reconcile issues.
type ActionType string

const (
	ActionDeposit ActionType = "DEPOSIT"
	ActionRedeem  ActionType = "REDEEM" // Amount is in collateral shares
	ActionNoOp    ActionType = "NO_OP"
)

// Action is the single deposit or redeem a reconcile sends to a market.
type Action struct {
	Type     ActionType `json:"type"`
	Provider Provider   `json:"provider"`
	Amount   uint64     `json:"amount"`
}

func (a Action) IsNoOp() bool {
	return a.Type == ActionNoOp || a.Amount == 0
}

// ActionReceipt records the outcome of one reconcile within a keeper cycle.
type ActionReceipt struct {
	ReceiptID int64     `json:"receipt_id,omitempty"` // Auto-incremented by DB
	Action    Action    `json:"action"`
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Slot      uint64    `json:"slot"`
	Timestamp time.Time `json:"timestamp"`
}
