/*

This file contains the vault's persisted layout: a fixed-size borsh record with reserved padding
so fields can be added without resizing stored records.

*/

package vault

import (
	"bytes"
	"fmt"

	"github.com/elys-network/yieldvault/internal/types"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	VaultRecordVersion uint8 = 1
	// VaultRecordSize is the encoded size of every VaultRecord.
	VaultRecordSize = 512

	vaultRecordUsed = 1 + 7*32 + types.NumProviders*32 + 2 + 2 + slotTrackedSize*(1+2*types.NumProviders) + 8 + 4 + 4 + 4
	slotTrackedSize = 8 + 8 + 1
)

// SlotTrackedRecord is the persisted form of a SlotTrackedValue.
type SlotTrackedRecord struct {
	Value uint64
	Slot  uint64
	Stale bool
}

// VaultRecord is the persisted vault.
type VaultRecord struct {
	Version uint8

	Owner               solana.PublicKey
	VaultAuthority      solana.PublicKey
	ReserveMint         solana.PublicKey
	VaultReserveAccount solana.PublicKey
	LpTokenMint         solana.PublicKey
	FeeReceiver         solana.PublicKey
	ReferralFeeReceiver solana.PublicKey

	YieldSources [types.NumProviders]solana.PublicKey

	HaltFlags        uint16
	YieldSourceFlags uint16

	Value             SlotTrackedRecord
	TargetAllocations [types.NumProviders]SlotTrackedRecord
	ActualAllocations [types.NumProviders]SlotTrackedRecord

	DepositCap       uint64
	FeeCarryBps      uint32
	FeeMgmtBps       uint32
	ReferralFeePct   uint8
	AllocationCapPct uint8
	RebalanceMode    uint8
	StrategyType     uint8

	Padding [VaultRecordSize - vaultRecordUsed]byte
}

func toRecord(v types.SlotTrackedValue) SlotTrackedRecord {
	return SlotTrackedRecord{Value: v.Value, Slot: v.LastUpdate.Slot, Stale: v.LastUpdate.Stale}
}

func fromRecord(r SlotTrackedRecord) types.SlotTrackedValue {
	return types.SlotTrackedValue{Value: r.Value, LastUpdate: types.LastUpdate{Slot: r.Slot, Stale: r.Stale}}
}

// Snapshot captures the vault as a persistable record.
func (v *Vault) Snapshot() VaultRecord {
	params := v.config.Parameters()
	r := VaultRecord{
		Version:             VaultRecordVersion,
		Owner:               v.handles.Owner,
		VaultAuthority:      v.handles.VaultAuthority,
		ReserveMint:         v.handles.ReserveMint,
		VaultReserveAccount: v.handles.VaultReserveAccount,
		LpTokenMint:         v.handles.LpTokenMint,
		FeeReceiver:         v.handles.FeeReceiver,
		ReferralFeeReceiver: v.handles.ReferralFeeReceiver,
		YieldSources:        v.yieldSources,
		HaltFlags:           uint16(v.haltFlags),
		YieldSourceFlags:    uint16(v.yieldSourceFlags),
		Value:               toRecord(v.value),
		DepositCap:          params.DepositCap,
		FeeCarryBps:         params.FeeCarryBps,
		FeeMgmtBps:          params.FeeMgmtBps,
		ReferralFeePct:      params.ReferralFeePct,
		AllocationCapPct:    params.AllocationCapPct,
		RebalanceMode:       uint8(params.RebalanceMode),
		StrategyType:        uint8(params.StrategyType),
	}
	for i := range r.TargetAllocations {
		r.TargetAllocations[i] = toRecord(v.targetAllocations[i])
		r.ActualAllocations[i] = toRecord(v.actualAllocations[i])
	}
	return r
}

// Encode serializes the vault into exactly VaultRecordSize bytes.
func (v *Vault) Encode() ([]byte, error) {
	var buf bytes.Buffer
	record := v.Snapshot()
	if err := bin.NewBorshEncoder(&buf).Encode(&record); err != nil {
		return nil, fmt.Errorf("encode vault record: %w", err)
	}
	if buf.Len() != VaultRecordSize {
		return nil, fmt.Errorf("%w: encoded vault record is %d bytes", types.ErrTryFromReserveError, buf.Len())
	}
	return buf.Bytes(), nil
}

// DecodeVault restores a vault, revalidating its flags and config.
func DecodeVault(data []byte) (*Vault, error) {
	if len(data) != VaultRecordSize {
		return nil, fmt.Errorf("%w: vault record is %d bytes, want %d", types.ErrTryFromReserveError, len(data), VaultRecordSize)
	}
	var r VaultRecord
	if err := bin.NewBorshDecoder(data).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTryFromReserveError, err)
	}
	return FromRecord(r)
}

// FromRecord rebuilds a vault from a decoded record.
func FromRecord(r VaultRecord) (*Vault, error) {
	if r.Version != VaultRecordVersion {
		return nil, fmt.Errorf("%w: unsupported vault record version %d", types.ErrTryFromReserveError, r.Version)
	}
	halt, err := types.ParseHaltFlags(r.HaltFlags)
	if err != nil {
		return nil, err
	}
	sources, err := types.ParseYieldSourceFlags(r.YieldSourceFlags)
	if err != nil {
		return nil, err
	}
	config, err := NewVaultConfig(VaultParameters{
		DepositCap:       r.DepositCap,
		FeeCarryBps:      r.FeeCarryBps,
		FeeMgmtBps:       r.FeeMgmtBps,
		ReferralFeePct:   r.ReferralFeePct,
		AllocationCapPct: r.AllocationCapPct,
		RebalanceMode:    types.RebalanceMode(r.RebalanceMode),
		StrategyType:     types.StrategyType(r.StrategyType),
	}, types.NumProviders)
	if err != nil {
		return nil, err
	}

	v := &Vault{
		handles: Handles{
			Owner:               r.Owner,
			VaultAuthority:      r.VaultAuthority,
			ReserveMint:         r.ReserveMint,
			VaultReserveAccount: r.VaultReserveAccount,
			LpTokenMint:         r.LpTokenMint,
			FeeReceiver:         r.FeeReceiver,
			ReferralFeeReceiver: r.ReferralFeeReceiver,
		},
		yieldSources:     r.YieldSources,
		haltFlags:        halt,
		yieldSourceFlags: sources,
		value:            fromRecord(r.Value),
		config:           config,
	}
	for i := range r.TargetAllocations {
		v.targetAllocations[i] = fromRecord(r.TargetAllocations[i])
		v.actualAllocations[i] = fromRecord(r.ActualAllocations[i])
	}
	v.logger = newVaultLogger(v.handles)
	return v, nil
}
