package consensus

// Block is a beacon block: the proposer's slot claim, a link to its parent,
// randomness for the epoch's seed, and the body of state-mutating
// operations. StateRoot is always zero on the wire -- the proposer cannot
// know it until process_slot has run against the resulting state -- and is
// filled in by the next slot's per-slot advance (see ProcessSlot).
type Block struct {
	Slot          Slot
	PreviousRoot  Hash
	StateRoot     Hash
	Body          *BlockBody
	Signature     BLSSignature
}

// BlockBody carries the operations a block applies to the state, in the
// fixed order ProcessBlock applies them.
type BlockBody struct {
	RandaoReveal      BLSSignature
	Eth1Data          Eth1Data
	ProposerSlashings []*ProposerSlashing
	AttesterSlashings []*AttesterSlashing
	Attestations      []*Attestation
	Deposits          []*Deposit
	VoluntaryExits    []*VoluntaryExit
	Transfers         []*Transfer
}

// ProposerSlashing proves that a proposer signed two distinct headers for
// the same slot.
type ProposerSlashing struct {
	ProposerIndex ValidatorIndex
	Header1       BlockHeader
	Header2       BlockHeader
}

// SlashableAttestation is an indexed, signed attestation: an aggregate
// signature over AttestationData by the validators listed in
// ValidatorIndices, split by custody bit into CustodyBit0Indices (implicit,
// index positions where the custody bitfield is unset) via the separate
// CustodyBitfield below. The phase-0 protocol expects CustodyBitfield to be
// entirely zero (see AttesterSlashing processing); the two-message BLS
// verification path remains for forward compatibility with the custody
// game.
type SlashableAttestation struct {
	ValidatorIndices []ValidatorIndex
	Data             AttestationData
	CustodyBitfield  []byte
	AggregateSignature BLSSignature
}

// AttesterSlashing proves two slashable attestations from an overlapping
// validator set per the double-vote / surround-vote rule.
type AttesterSlashing struct {
	SlashableAttestation1 SlashableAttestation
	SlashableAttestation2 SlashableAttestation
}

// Attestation is a committee member's vote, aggregated over every
// validator in AggregationBitfield.
type Attestation struct {
	AggregationBitfield []byte
	Data                AttestationData
	CustodyBitfield     []byte
	AggregateSignature  BLSSignature
}

// VoluntaryExit is a validator's signed request to leave the active set
// ahead of ejection or slashing.
type VoluntaryExit struct {
	Epoch          Epoch
	ValidatorIndex ValidatorIndex
	Signature      BLSSignature
}

// Transfer moves gwei directly between two balances outside the deposit /
// withdrawal flow, paying Fee to the slot's proposer.
type Transfer struct {
	Sender    ValidatorIndex
	Recipient ValidatorIndex
	Amount    Gwei
	Fee       Gwei
	Slot      Slot
	Pubkey    BLSPubkey
	Signature BLSSignature
}

// truncatedHashHeader and truncatedHashBlock hash a header or block with
// its signature field omitted -- the value actually signed, and the value carried forward as
// the "previous block root" link.
func truncatedHashHeader(h BlockHeader) Hash {
	return H(
		sszEncodeUint64(uint64(h.Slot)),
		h.PreviousRoot[:],
		h.StateRoot[:],
		h.BodyRoot[:],
	)
}

func truncatedHashBlock(b *Block) Hash {
	return H(
		sszEncodeUint64(uint64(b.Slot)),
		b.PreviousRoot[:],
		b.StateRoot[:],
		blockBodyRoot(b.Body),
	)
}

func sszEncodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}
