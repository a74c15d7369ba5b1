package types

import "time"

// CycleSnapshot captures one keeper cycle from refresh through reconcile.
type CycleSnapshot struct {
	CycleID     string    `json:"cycle_id"`
	CycleNumber int       `json:"cycle_number"`
	Slot        uint64    `json:"slot"`
	Timestamp   time.Time `json:"timestamp"`

	InitialValue     uint64     `json:"initial_value"`
	InitialPositions []Position `json:"initial_positions"`

	ConsolidatedValue uint64            `json:"consolidated_value"`
	AccruedFees       uint64            `json:"accrued_fees"`
	TargetWeights     map[string]Rate   `json:"target_weights"`
	TargetAllocations map[string]uint64 `json:"target_allocations"`
	ProjectedAPR      Rate              `json:"projected_apr"`

	ActionReceipts []ActionReceipt `json:"action_receipts"`

	FinalValue     uint64     `json:"final_value"`
	FinalIdle      uint64     `json:"final_idle"`
	FinalPositions []Position `json:"final_positions"`

	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
}
