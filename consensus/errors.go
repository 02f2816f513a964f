package consensus

import "errors"

// Errors returned from state transition entry points. The taxonomy is
// flat: every entry point returns one of these (or an error wrapping one
// via %w), never a partial result. The first error aborts the transition.
var (
	// Deposit
	ErrDepositIndexMismatch              = errors.New("consensus: deposit index mismatch")
	ErrDepositMerkleInvalid              = errors.New("consensus: deposit merkle proof invalid")
	ErrDepositProofInvalid               = errors.New("consensus: deposit proof of possession invalid")
	ErrDepositWithdrawalCredsMismatch    = errors.New("consensus: deposit withdrawal credentials mismatch")

	// Range
	ErrEpochOutOfRange = errors.New("consensus: epoch out of range")
	ErrSlotOutOfRange  = errors.New("consensus: slot out of range")

	// Block
	ErrBlockSlotInvalid         = errors.New("consensus: block slot invalid")
	ErrBlockPreviousRootInvalid = errors.New("consensus: block previous root invalid")
	ErrBlockSignatureInvalid   = errors.New("consensus: block signature invalid")
	ErrRandaoSignatureInvalid  = errors.New("consensus: randao signature invalid")

	// ProposerSlashing
	ErrProposerSlashingInvalidSlot      = errors.New("consensus: proposer slashing invalid slot")
	ErrProposerSlashingSameHeader       = errors.New("consensus: proposer slashing headers identical")
	ErrProposerSlashingAlreadySlashed   = errors.New("consensus: proposer already slashed")
	ErrProposerSlashingInvalidSignature = errors.New("consensus: proposer slashing invalid signature")

	// AttesterSlashing
	ErrAttesterSlashingSameAttestation = errors.New("consensus: attester slashing attestations identical")
	ErrAttesterSlashingNotSlashable    = errors.New("consensus: attester slashing pair not slashable")
	ErrAttesterSlashingInvalid         = errors.New("consensus: attester slashing invalid")
	ErrAttesterSlashingEmptyIndices    = errors.New("consensus: attester slashing empty intersection")

	// Attestation
	ErrAttestationTooFarInHistory             = errors.New("consensus: attestation too far in history")
	ErrAttestationSubmittedTooQuickly         = errors.New("consensus: attestation submitted too quickly")
	ErrAttestationIncorrectJustifiedEpochOrRoot = errors.New("consensus: attestation incorrect justified epoch or root")
	ErrAttestationIncorrectCrosslinkData       = errors.New("consensus: attestation incorrect crosslink data")
	ErrAttestationEmptyAggregation             = errors.New("consensus: attestation empty aggregation bitfield")
	ErrAttestationEmptyCustody                 = errors.New("consensus: attestation empty custody bitfield")
	ErrAttestationShardInvalid                 = errors.New("consensus: attestation shard invalid")
	ErrAttestationBitFieldInvalid              = errors.New("consensus: attestation bitfield invalid")
	ErrAttestationInvalidCustody                = errors.New("consensus: attestation custody bit set (unsupported this phase)")
	ErrAttestationInvalidSignature             = errors.New("consensus: attestation invalid signature")
	ErrAttestationInvalidCrosslink              = errors.New("consensus: attestation invalid crosslink")

	// VoluntaryExit
	ErrVoluntaryExitAlreadyExited   = errors.New("consensus: voluntary exit validator already exited")
	ErrVoluntaryExitAlreadyInitiated = errors.New("consensus: voluntary exit already initiated")
	ErrVoluntaryExitNotYetValid     = errors.New("consensus: voluntary exit epoch not yet valid")
	ErrVoluntaryExitNotLongEnough   = errors.New("consensus: voluntary exit validator not active long enough")
	ErrVoluntaryExitInvalidSignature = errors.New("consensus: voluntary exit invalid signature")

	// Transfer
	ErrTransferNoFund              = errors.New("consensus: transfer insufficient balance")
	ErrTransferNotValidSlot        = errors.New("consensus: transfer slot mismatch")
	ErrTransferNotWithdrawable     = errors.New("consensus: transfer sender not withdrawable")
	ErrTransferInvalidPublicKey    = errors.New("consensus: transfer invalid public key")
	ErrTransferInvalidSignature    = errors.New("consensus: transfer invalid signature")

	// Cap
	ErrTooManyProposerSlashings = errors.New("consensus: too many proposer slashings")
	ErrTooManyAttesterSlashings = errors.New("consensus: too many attester slashings")
	ErrTooManyAttestations      = errors.New("consensus: too many attestations")
	ErrTooManyDeposits          = errors.New("consensus: too many deposits")
	ErrTooManyVoluntaryExits    = errors.New("consensus: too many voluntary exits")
	ErrTooManyTransfers         = errors.New("consensus: too many transfers")

	// Validator
	ErrValidatorNotWithdrawable   = errors.New("consensus: validator not withdrawable")
	ErrAttestationNotFound       = errors.New("consensus: attestation not found")
)
