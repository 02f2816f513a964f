package consensus

import (
	"fmt"

	"github.com/sharded-pos/beacon/log"
)

var opLog = log.Default().Module("operations")

// ProcessProposerSlashing verifies and applies a ProposerSlashing: it
// slashes a validator caught signing two distinct headers for the same
// slot while acting as proposer.
func ProcessProposerSlashing(state *BeaconState, ps *ProposerSlashing, cfg *Config) error {
	if int(ps.ProposerIndex) >= len(state.Validators) {
		return ErrProposerSlashingInvalidSlot
	}
	v := state.Validators[ps.ProposerIndex]

	if ps.Header1.Slot != ps.Header2.Slot {
		return ErrProposerSlashingInvalidSlot
	}
	if ps.Header1 == ps.Header2 {
		return ErrProposerSlashingSameHeader
	}
	if v.Slashed {
		return ErrProposerSlashingAlreadySlashed
	}

	epoch := SlotToEpoch(ps.Header1.Slot, cfg.SlotsPerEpoch)
	domain := blsDomain(state.Fork, epoch, DomainProposer)
	for _, h := range [2]BlockHeader{ps.Header1, ps.Header2} {
		root := blockHeaderRoot(stripSignature(h))
		if !blsVerify(v.Pubkey, signingRoot(Hash(root), domain), h.Signature) {
			return ErrProposerSlashingInvalidSignature
		}
	}

	if err := slashValidator(state, ps.ProposerIndex, cfg); err != nil {
		return err
	}
	opLog.Info("proposer slashed", "index", ps.ProposerIndex, "slot", ps.Header1.Slot)
	return nil
}

// stripSignature returns a copy of h with its signature zeroed, matching
// the "truncated hash" the proposer actually signed.
func stripSignature(h BlockHeader) BlockHeader {
	h.Signature = BLSSignature{}
	return h
}

// ProcessAttesterSlashing verifies and applies an AttesterSlashing: two
// slashable attestations (§4.5) signed by an overlapping validator set.
// Every validator in the intersection that is still slashable is slashed.
func ProcessAttesterSlashing(state *BeaconState, as *AttesterSlashing, cfg *Config) error {
	sa1, sa2 := as.SlashableAttestation1, as.SlashableAttestation2
	if sa1.Data == sa2.Data {
		return ErrAttesterSlashingSameAttestation
	}
	if !IsSlashableAttestationData(sa1.Data, sa2.Data, cfg) {
		return ErrAttesterSlashingNotSlashable
	}
	if err := verifySlashableAttestation(state, sa1, cfg); err != nil {
		return err
	}
	if err := verifySlashableAttestation(state, sa2, cfg); err != nil {
		return err
	}

	indices := intersectValidatorIndices(sa1.ValidatorIndices, sa2.ValidatorIndices)
	if len(indices) == 0 {
		return ErrAttesterSlashingEmptyIndices
	}

	currentEpoch := state.CurrentEpoch(cfg)
	slashedAny := false
	for _, idx := range indices {
		if isSlashable(state.Validators[idx], currentEpoch) {
			if err := slashValidator(state, idx, cfg); err != nil {
				continue
			}
			slashedAny = true
		}
	}
	if !slashedAny {
		return ErrAttesterSlashingInvalid
	}
	opLog.Info("attester slashing processed", "count", len(indices))
	return nil
}

// verifySlashableAttestation checks a SlashableAttestation's aggregate
// signature. The custody bitfield must be entirely zero in this phase
// (§9: the non-zero-custody-bit branch is an open protocol question, not
// a behavior this implementation guesses at); every signer is therefore
// verified under the single custody-bit-0 message.
func verifySlashableAttestation(state *BeaconState, sa SlashableAttestation, cfg *Config) error {
	if len(sa.ValidatorIndices) == 0 {
		return ErrAttesterSlashingInvalid
	}
	if uint64(len(sa.ValidatorIndices)) > cfg.MaxIndicesPerSlashableVote {
		return ErrAttesterSlashingInvalid
	}
	if bitCount(sa.CustodyBitfield) != 0 {
		return ErrAttestationInvalidCustody
	}
	for i := 1; i < len(sa.ValidatorIndices); i++ {
		if sa.ValidatorIndices[i-1] >= sa.ValidatorIndices[i] {
			return ErrAttesterSlashingInvalid
		}
	}

	pubkeys := make([]BLSPubkey, len(sa.ValidatorIndices))
	for i, idx := range sa.ValidatorIndices {
		if int(idx) >= len(state.Validators) {
			return ErrAttesterSlashingInvalid
		}
		pubkeys[i] = state.Validators[idx].Pubkey
	}

	domain := blsDomain(state.Fork, sa.Data.TargetEpoch, DomainAttestation)
	msg := signingRoot(attestationDataRootHash(sa.Data), domain)
	if !blsVerifyAggregate(pubkeys, msg, sa.AggregateSignature) {
		return ErrAttesterSlashingInvalid
	}
	return nil
}

func attestationDataRootHash(d AttestationData) Hash {
	return Hash(attestationDataRoot(d))
}

// slashValidator applies the slash operation (§4.3): pre-condition
// state.Slot < epoch_start_slot(validators[idx].withdrawable_epoch), else
// ErrValidatorNotWithdrawable. It exits the validator (extending its
// withdrawable epoch to the slashed lockup window), credits
// latest_slashed_balances for the current epoch, and pays the current
// proposer a whistleblower reward.
func slashValidator(state *BeaconState, idx ValidatorIndex, cfg *Config) error {
	currentEpoch := state.CurrentEpoch(cfg)
	v := state.Validators[idx]
	if state.Slot >= EpochStartSlot(v.WithdrawableEpoch, cfg.SlotsPerEpoch) {
		return ErrValidatorNotWithdrawable
	}
	effective := EffectiveBalance(state.Balances[idx], cfg)

	slash(v, currentEpoch, cfg)

	slot := uint64(currentEpoch) % cfg.LatestSlashedExitLength
	state.LatestSlashedBalances[slot] += effective

	proposer, err := BeaconProposerIndex(state, state.Slot, false, cfg)
	if err == nil {
		whistleblowerReward := effective / Gwei(cfg.WhistleblowerRewardQuotient)
		if whistleblowerReward > state.Balances[idx] {
			whistleblowerReward = state.Balances[idx]
		}
		state.Balances[idx] -= whistleblowerReward
		state.Balances[proposer] += whistleblowerReward
	}
	return nil
}

// ProcessAttestation verifies an Attestation and records it as a
// PendingAttestation in the appropriate (current or previous) epoch pool.
func ProcessAttestation(state *BeaconState, a *Attestation, cfg *Config) error {
	epoch := a.Data.TargetEpoch
	currentEpoch := state.CurrentEpoch(cfg)
	previousEpoch := state.PreviousEpoch(cfg)

	if epoch != currentEpoch && epoch != previousEpoch {
		return ErrAttestationTooFarInHistory
	}
	if SlotToEpoch(a.Data.Slot, cfg.SlotsPerEpoch) != epoch {
		return ErrAttestationTooFarInHistory
	}
	minInclusionDelay := Slot(1)
	if a.Data.Slot+minInclusionDelay > state.Slot {
		return ErrAttestationSubmittedTooQuickly
	}
	if state.Slot > a.Data.Slot+Slot(cfg.SlotsPerEpoch) {
		return ErrAttestationTooFarInHistory
	}
	if !AttestationSourceValid(state, a.Data, cfg) {
		return ErrAttestationIncorrectJustifiedEpochOrRoot
	}

	var sourceRootWant Hash
	if epoch == currentEpoch {
		sourceRootWant = EpochBoundaryRoot(state, state.JustifiedEpoch, cfg)
	} else {
		sourceRootWant = EpochBoundaryRoot(state, state.PreviousJustifiedEpoch, cfg)
	}
	if a.Data.SourceRoot != sourceRootWant {
		return ErrAttestationIncorrectJustifiedEpochOrRoot
	}

	if err := checkCrosslinkData(state, a.Data, cfg); err != nil {
		return err
	}

	if len(a.AggregationBitfield) == 0 || bitCount(a.AggregationBitfield) == 0 {
		return ErrAttestationEmptyAggregation
	}
	if bitCount(a.CustodyBitfield) != 0 {
		return ErrAttestationInvalidCustody
	}

	committees, err := CrosslinkCommitteesAtSlot(state, a.Data.Slot, false, cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAttestationShardInvalid, err)
	}
	var committee []ValidatorIndex
	for _, c := range committees {
		if c.Shard == a.Data.Shard {
			committee = c.Committee
		}
	}
	if committee == nil {
		return ErrAttestationShardInvalid
	}
	if bitsExceedCommittee(a.AggregationBitfield, len(committee)) || bitsExceedCommittee(a.CustodyBitfield, len(committee)) {
		return ErrAttestationBitFieldInvalid
	}

	var pubkeys []BLSPubkey
	for i, idx := range committee {
		if bitSet(a.AggregationBitfield, i) {
			pubkeys = append(pubkeys, state.Validators[idx].Pubkey)
		}
	}
	if len(pubkeys) == 0 {
		return ErrAttestationEmptyAggregation
	}
	domain := blsDomain(state.Fork, epoch, DomainAttestation)
	msg := signingRoot(attestationDataRootHash(a.Data), domain)
	if !blsVerifyAggregate(pubkeys, msg, a.AggregateSignature) {
		return ErrAttestationInvalidSignature
	}

	pending := &PendingAttestation{
		AggregationBitfield: append([]byte(nil), a.AggregationBitfield...),
		Data:                a.Data,
		CustodyBitfield:     append([]byte(nil), a.CustodyBitfield...),
		InclusionSlot:       state.Slot,
	}
	if epoch == currentEpoch {
		state.CurrentEpochAttestations = append(state.CurrentEpochAttestations, pending)
	} else {
		state.PreviousEpochAttestations = append(state.PreviousEpochAttestations, pending)
	}
	return nil
}

// checkCrosslinkData verifies an attestation's crosslink vote builds on
// the shard's currently recorded crosslink.
func checkCrosslinkData(state *BeaconState, d AttestationData, cfg *Config) error {
	if uint64(d.Shard) >= cfg.ShardCount {
		return ErrAttestationShardInvalid
	}
	current := state.LatestCrosslinks[d.Shard]
	if d.PreviousCrosslink != current {
		return ErrAttestationIncorrectCrosslinkData
	}
	return nil
}

func bitsExceedCommittee(bitfield []byte, committeeSize int) bool {
	for i := committeeSize; i < len(bitfield)*8; i++ {
		if bitSet(bitfield, i) {
			return true
		}
	}
	return false
}

// ProcessDeposit verifies and applies a Deposit (§4.4): Merkle-proof
// inclusion against the eth1-voted deposit root, proof-of-possession
// verification, and either creation of a new Validator record or a
// balance top-up of an existing one.
func ProcessDeposit(state *BeaconState, d *Deposit, cfg *Config) error {
	if d.Index != state.DepositIndex {
		return ErrDepositIndexMismatch
	}

	leaf := Hash(depositDataRoot(d.DepositData))
	if !verifyMerkleBranch(leaf, d.Proof, depositTreeDepth, d.Index, state.LatestEth1Data.DepositRoot) {
		return ErrDepositMerkleInvalid
	}

	state.DepositIndex++

	domain := blsDomain(state.Fork, state.CurrentEpoch(cfg), DomainDeposit)
	msg := signingRoot(Hash(depositInputRoot(d.DepositData)), domain)
	if !blsVerify(d.DepositData.Pubkey, msg, d.DepositData.ProofOfPossession) {
		return ErrDepositProofInvalid
	}

	for i, v := range state.Validators {
		if v.Pubkey == d.DepositData.Pubkey {
			if v.WithdrawalCredentials != d.DepositData.WithdrawalCreds {
				return ErrDepositWithdrawalCredsMismatch
			}
			state.Balances[i] += d.DepositData.Amount
			return nil
		}
	}

	state.Validators = append(state.Validators, &Validator{
		Pubkey:                d.DepositData.Pubkey,
		WithdrawalCredentials: d.DepositData.WithdrawalCreds,
		ActivationEpoch:       FarFutureEpoch,
		ExitEpoch:             FarFutureEpoch,
		WithdrawableEpoch:     FarFutureEpoch,
	})
	state.Balances = append(state.Balances, d.DepositData.Amount)
	return nil
}

// ProcessVoluntaryExit verifies and applies a validator-initiated exit
// request.
func ProcessVoluntaryExit(state *BeaconState, ve *VoluntaryExit, cfg *Config) error {
	if int(ve.ValidatorIndex) >= len(state.Validators) {
		return ErrVoluntaryExitAlreadyExited
	}
	v := state.Validators[ve.ValidatorIndex]
	currentEpoch := state.CurrentEpoch(cfg)

	if v.ExitEpoch != FarFutureEpoch {
		return ErrVoluntaryExitAlreadyExited
	}
	if v.InitiatedExit {
		return ErrVoluntaryExitAlreadyInitiated
	}
	if currentEpoch < ve.Epoch {
		return ErrVoluntaryExitNotYetValid
	}
	const persistentCommitteePeriod = 2048
	if currentEpoch < v.ActivationEpoch+Epoch(persistentCommitteePeriod) {
		return ErrVoluntaryExitNotLongEnough
	}

	domain := blsDomain(state.Fork, ve.Epoch, DomainExit)
	root := Hash(ssz_voluntaryExitRoot(ve))
	if !blsVerify(v.Pubkey, signingRoot(root, domain), ve.Signature) {
		return ErrVoluntaryExitInvalidSignature
	}

	initiateExit(v, currentEpoch, cfg)
	return nil
}

func ssz_voluntaryExitRoot(ve *VoluntaryExit) [32]byte {
	return veRootOf(ve)
}

// ProcessTransfer verifies and applies a direct balance Transfer between
// two validators, paying Fee to the slot's proposer.
func ProcessTransfer(state *BeaconState, tr *Transfer, cfg *Config) error {
	if int(tr.Sender) >= len(state.Validators) || int(tr.Recipient) >= len(state.Validators) {
		return ErrTransferNoFund
	}
	if state.Balances[tr.Sender] < tr.Amount+tr.Fee {
		return ErrTransferNoFund
	}
	if tr.Slot != state.Slot {
		return ErrTransferNotValidSlot
	}

	sender := state.Validators[tr.Sender]
	currentEpoch := state.CurrentEpoch(cfg)
	effective := EffectiveBalance(state.Balances[tr.Sender], cfg)
	isWithdrawable := sender.WithdrawableEpoch <= currentEpoch
	hasSurplus := state.Balances[tr.Sender] >= tr.Amount+tr.Fee+effective
	if !isWithdrawable && !hasSurplus {
		return ErrTransferNotWithdrawable
	}
	if sender.WithdrawalCredentials != withdrawalCredentialsFromPubkey(tr.Pubkey) {
		return ErrTransferInvalidPublicKey
	}

	domain := blsDomain(state.Fork, SlotToEpoch(tr.Slot, cfg.SlotsPerEpoch), DomainTransfer)
	root := Hash(transferRoot(tr))
	if !blsVerify(tr.Pubkey, signingRoot(root, domain), tr.Signature) {
		return ErrTransferInvalidSignature
	}

	proposer, err := BeaconProposerIndex(state, state.Slot, false, cfg)
	if err != nil {
		return err
	}
	state.Balances[tr.Sender] -= tr.Amount + tr.Fee
	state.Balances[tr.Recipient] += tr.Amount
	state.Balances[proposer] += tr.Fee
	return nil
}

// withdrawalCredentialsFromPubkey derives the BLS-type withdrawal
// credential a validator must have recorded for tr.Pubkey to authorize a
// transfer from it: a 0x00 prefix byte followed by H(pubkey)[1:].
func withdrawalCredentialsFromPubkey(pubkey BLSPubkey) Hash {
	h := H(pubkey[:])
	h[0] = 0x00
	return h
}

func transferRoot(tr *Transfer) [32]byte {
	return [32]byte(H(
		sszEncodeUint64(uint64(tr.Sender)),
		sszEncodeUint64(uint64(tr.Recipient)),
		sszEncodeUint64(uint64(tr.Amount)),
		sszEncodeUint64(uint64(tr.Fee)),
		sszEncodeUint64(uint64(tr.Slot)),
		tr.Pubkey[:],
	))
}

func veRootOf(ve *VoluntaryExit) [32]byte {
	return [32]byte(H(
		sszEncodeUint64(uint64(ve.Epoch)),
		sszEncodeUint64(uint64(ve.ValidatorIndex)),
	))
}
