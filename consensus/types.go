// Package consensus implements the beacon chain state-transition function:
// deterministic committee shuffling, the Casper FFG justification and
// finalization rule, validator registry lifecycle management, and the
// per-slot / per-block / per-epoch processing that drives them.
package consensus

import (
	"github.com/sharded-pos/beacon/core/types"
)

// Slot is the smallest unit of time in the protocol.
type Slot uint64

// Epoch is a contiguous span of SlotsPerEpoch slots.
type Epoch uint64

// ValidatorIndex is an index into BeaconState.Validators / Balances. All
// cross-references between validators are by index, never by pointer.
type ValidatorIndex uint64

// Shard identifies one of the protocol's parallel sub-chains.
type Shard uint64

// Gwei is a balance denominated in gwei.
type Gwei uint64

// BLSPubkey is a 48-byte BLS12-381 public key (MinPk scheme).
type BLSPubkey [48]byte

// BLSSignature is a 96-byte BLS12-381 signature (MinPk scheme).
type BLSSignature [96]byte

// Hash is a 32-byte digest produced by H or by ssz_hash.
type Hash = types.Hash

// SlotToEpoch returns the epoch containing the given slot.
func SlotToEpoch(slot Slot, slotsPerEpoch uint64) Epoch {
	return Epoch(uint64(slot) / slotsPerEpoch)
}

// EpochStartSlot returns the first slot of the given epoch.
func EpochStartSlot(epoch Epoch, slotsPerEpoch uint64) Slot {
	return Slot(uint64(epoch) * slotsPerEpoch)
}

// Fork records the fork schedule observed by the state.
type Fork struct {
	PreviousVersion uint32
	CurrentVersion  uint32
	Epoch           Epoch
}

// Crosslink is a shard committee's commitment to a shard-data root at an
// epoch. The zero value (epoch 0, zero root) is the only valid initial
// value for every shard at genesis -- it must never be built from
// uninitialized memory.
type Crosslink struct {
	Epoch            Epoch
	CrosslinkDataRoot Hash
}

// Eth1Data records the execution-layer deposit contract state a block
// proposer is voting for.
type Eth1Data struct {
	DepositRoot  Hash
	DepositCount uint64
	BlockHash    Hash
}

// Validator is a single registry record. Validators never reference one
// another; every relationship in the protocol is expressed as an index
// into BeaconState.Validators.
type Validator struct {
	Pubkey                BLSPubkey
	WithdrawalCredentials Hash
	ActivationEpoch       Epoch
	ExitEpoch             Epoch
	WithdrawableEpoch     Epoch
	InitiatedExit         bool
	Slashed               bool
}

// EffectiveBalance clamps the validator's recorded balance to
// MAX_DEPOSIT_AMOUNT. Every weight calculation in the protocol (committee
// shuffling excluded) uses this value, never the raw balance.
func EffectiveBalance(balance Gwei, cfg *Config) Gwei {
	if balance > Gwei(cfg.MaxDepositAmount) {
		return Gwei(cfg.MaxDepositAmount)
	}
	return balance
}

// IsActive reports whether the validator is active at the given epoch.
func (v *Validator) IsActive(epoch Epoch) bool {
	return v.ActivationEpoch <= epoch && epoch < v.ExitEpoch
}

// AttestationData identifies the vote carried by an attestation.
type AttestationData struct {
	Slot               Slot
	Shard              Shard
	BeaconBlockRoot    Hash
	SourceEpoch        Epoch
	SourceRoot         Hash
	TargetEpoch        Epoch
	TargetRoot         Hash
	CrosslinkDataRoot  Hash
	PreviousCrosslink  Crosslink
}

// PendingAttestation is an attestation recorded in the beacon state's
// current/previous epoch attestation pools, pending epoch processing.
type PendingAttestation struct {
	AggregationBitfield []byte
	Data                AttestationData
	CustodyBitfield     []byte
	InclusionSlot       Slot
}

// BlockHeader is the portion of a beacon block carried for
// previous-root linking and proposer-slashing evidence.
type BlockHeader struct {
	Slot          Slot
	PreviousRoot  Hash
	StateRoot     Hash
	BodyRoot      Hash
	Signature     BLSSignature
}

// Deposit is a validator deposit proven by Merkle path against the
// eth1-voted deposit root.
type Deposit struct {
	Proof       []Hash
	Index       uint64
	DepositData DepositData
}

// DepositData is the leaf content hashed into the deposit Merkle tree.
type DepositData struct {
	Pubkey              BLSPubkey
	WithdrawalCreds     Hash
	Amount              Gwei
	Timestamp           uint64
	ProofOfPossession   BLSSignature
}
