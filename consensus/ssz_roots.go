package consensus

import (
	"github.com/sharded-pos/beacon/ssz"
)

// This file implements the ssz_hash oracle (§4.1) for every container the
// transition function hashes: validators and balances for the registry
// root, attestation data for signing roots, block headers and bodies for
// truncated hashes, and the beacon state itself for the per-slot state
// root recorded into latest_state_roots. Every hash tree root is built the
// same way: per-field roots merkleized per ssz.HashTreeRootContainer, with
// lists additionally mixed with their length.

const (
	validatorRegistryLimit = 1 << 22
	attestationPoolLimit   = 1 << 20
	eth1VotesLimit         = 1 << 16
	slashableIndicesLimit  = 1 << 13
	historicalRootsLimit   = 1 << 24
)

func validatorRoot(v *Validator) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBytes48(v.Pubkey),
		ssz.HashTreeRootBytes32(v.WithdrawalCredentials),
		ssz.HashTreeRootUint64(uint64(v.ActivationEpoch)),
		ssz.HashTreeRootUint64(uint64(v.ExitEpoch)),
		ssz.HashTreeRootUint64(uint64(v.WithdrawableEpoch)),
		ssz.HashTreeRootBool(v.InitiatedExit),
		ssz.HashTreeRootBool(v.Slashed),
	})
}

func validatorsRoot(validators []*Validator) [32]byte {
	roots := make([][32]byte, len(validators))
	for i, v := range validators {
		roots[i] = validatorRoot(v)
	}
	return ssz.HashTreeRootList(roots, validatorRegistryLimit)
}

func balancesRoot(balances []Gwei) [32]byte {
	buf := make([]byte, 0, len(balances)*8)
	for _, b := range balances {
		buf = append(buf, sszEncodeUint64(uint64(b))...)
	}
	return ssz.HashTreeRootBasicList(buf, len(balances), 8, validatorRegistryLimit)
}

func crosslinkRoot(c Crosslink) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint64(uint64(c.Epoch)),
		ssz.HashTreeRootBytes32(c.CrosslinkDataRoot),
	})
}

func eth1DataRoot(e Eth1Data) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBytes32(e.DepositRoot),
		ssz.HashTreeRootUint64(e.DepositCount),
		ssz.HashTreeRootBytes32(e.BlockHash),
	})
}

func attestationDataRoot(d AttestationData) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint64(uint64(d.Slot)),
		ssz.HashTreeRootUint64(uint64(d.Shard)),
		ssz.HashTreeRootBytes32(d.BeaconBlockRoot),
		ssz.HashTreeRootUint64(uint64(d.SourceEpoch)),
		ssz.HashTreeRootBytes32(d.SourceRoot),
		ssz.HashTreeRootUint64(uint64(d.TargetEpoch)),
		ssz.HashTreeRootBytes32(d.TargetRoot),
		ssz.HashTreeRootBytes32(d.CrosslinkDataRoot),
		crosslinkRoot(d.PreviousCrosslink),
	})
}

func pendingAttestationRoot(a *PendingAttestation) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBitlist(bytesToBits(a.AggregationBitfield), attestationBitfieldLimit),
		attestationDataRoot(a.Data),
		ssz.HashTreeRootBitlist(bytesToBits(a.CustodyBitfield), attestationBitfieldLimit),
		ssz.HashTreeRootUint64(uint64(a.InclusionSlot)),
	})
}

func pendingAttestationsRoot(atts []*PendingAttestation) [32]byte {
	roots := make([][32]byte, len(atts))
	for i, a := range atts {
		roots[i] = pendingAttestationRoot(a)
	}
	return ssz.HashTreeRootList(roots, attestationPoolLimit)
}

func blockHeaderRoot(h BlockHeader) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint64(uint64(h.Slot)),
		ssz.HashTreeRootBytes32(h.PreviousRoot),
		ssz.HashTreeRootBytes32(h.StateRoot),
		ssz.HashTreeRootBytes32(h.BodyRoot),
		ssz.HashTreeRootBytes96(h.Signature),
	})
}

func hashRootsVector(hs []Hash) [32]byte {
	roots := make([][32]byte, len(hs))
	for i, h := range hs {
		roots[i] = ssz.HashTreeRootBytes32(h)
	}
	return ssz.HashTreeRootVector(roots)
}

func crosslinksVectorRoot(cs []Crosslink) [32]byte {
	roots := make([][32]byte, len(cs))
	for i, c := range cs {
		roots[i] = crosslinkRoot(c)
	}
	return ssz.HashTreeRootVector(roots)
}

func slashedBalancesRoot(bals []Gwei) [32]byte {
	buf := make([]byte, 0, len(bals)*8)
	for _, b := range bals {
		buf = append(buf, sszEncodeUint64(uint64(b))...)
	}
	return ssz.HashTreeRootBasicVector(buf)
}

func eth1VotesRoot(votes []Eth1Data) [32]byte {
	roots := make([][32]byte, len(votes))
	for i, v := range votes {
		roots[i] = eth1DataRoot(v)
	}
	return ssz.HashTreeRootList(roots, eth1VotesLimit)
}

func historicalRootsRoot(roots []Hash) [32]byte {
	hs := make([][32]byte, len(roots))
	for i, r := range roots {
		hs[i] = ssz.HashTreeRootBytes32(r)
	}
	return ssz.HashTreeRootList(hs, historicalRootsLimit)
}

// attestationBitfieldLimit bounds the Bitlist capacity used for aggregation
// and custody bitfields: one bit per validator-registry slot.
const attestationBitfieldLimit = validatorRegistryLimit

func bytesToBits(b []byte) []bool {
	bits := make([]bool, len(b)*8)
	for i := range b {
		for bit := 0; bit < 8; bit++ {
			bits[i*8+bit] = (b[i]>>bit)&1 != 0
		}
	}
	return bits
}

func forkRoot(f Fork) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint32(f.PreviousVersion),
		ssz.HashTreeRootUint32(f.CurrentVersion),
		ssz.HashTreeRootUint64(uint64(f.Epoch)),
	})
}

func blockBodyRoot(b *BlockBody) []byte {
	psRoots := make([][32]byte, len(b.ProposerSlashings))
	for i, ps := range b.ProposerSlashings {
		psRoots[i] = ssz.HashTreeRootContainer([][32]byte{
			ssz.HashTreeRootUint64(uint64(ps.ProposerIndex)),
			blockHeaderRoot(ps.Header1),
			blockHeaderRoot(ps.Header2),
		})
	}
	asRoots := make([][32]byte, len(b.AttesterSlashings))
	for i, as := range b.AttesterSlashings {
		asRoots[i] = ssz.HashTreeRootContainer([][32]byte{
			slashableAttestationRoot(as.SlashableAttestation1),
			slashableAttestationRoot(as.SlashableAttestation2),
		})
	}
	attRoots := make([][32]byte, len(b.Attestations))
	for i, a := range b.Attestations {
		attRoots[i] = ssz.HashTreeRootContainer([][32]byte{
			ssz.HashTreeRootBitlist(bytesToBits(a.AggregationBitfield), attestationBitfieldLimit),
			attestationDataRoot(a.Data),
			ssz.HashTreeRootBitlist(bytesToBits(a.CustodyBitfield), attestationBitfieldLimit),
			ssz.HashTreeRootBytes96(a.AggregateSignature),
		})
	}
	depRoots := make([][32]byte, len(b.Deposits))
	for i, d := range b.Deposits {
		depRoots[i] = depositRoot(d)
	}
	veRoots := make([][32]byte, len(b.VoluntaryExits))
	for i, v := range b.VoluntaryExits {
		veRoots[i] = ssz.HashTreeRootContainer([][32]byte{
			ssz.HashTreeRootUint64(uint64(v.Epoch)),
			ssz.HashTreeRootUint64(uint64(v.ValidatorIndex)),
			ssz.HashTreeRootBytes96(v.Signature),
		})
	}
	trRoots := make([][32]byte, len(b.Transfers))
	for i, tr := range b.Transfers {
		trRoots[i] = ssz.HashTreeRootContainer([][32]byte{
			ssz.HashTreeRootUint64(uint64(tr.Sender)),
			ssz.HashTreeRootUint64(uint64(tr.Recipient)),
			ssz.HashTreeRootUint64(uint64(tr.Amount)),
			ssz.HashTreeRootUint64(uint64(tr.Fee)),
			ssz.HashTreeRootUint64(uint64(tr.Slot)),
			ssz.HashTreeRootBytes48(tr.Pubkey),
			ssz.HashTreeRootBytes96(tr.Signature),
		})
	}

	root := ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBytes96(b.RandaoReveal),
		eth1DataRoot(b.Eth1Data),
		ssz.HashTreeRootList(psRoots, 16),
		ssz.HashTreeRootList(asRoots, 1),
		ssz.HashTreeRootList(attRoots, 128),
		ssz.HashTreeRootList(depRoots, 16),
		ssz.HashTreeRootList(veRoots, 16),
		ssz.HashTreeRootList(trRoots, 16),
	})
	return root[:]
}

func slashableAttestationRoot(sa SlashableAttestation) [32]byte {
	idxRoots := make([][32]byte, len(sa.ValidatorIndices))
	for i, idx := range sa.ValidatorIndices {
		idxRoots[i] = ssz.HashTreeRootUint64(uint64(idx))
	}
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootList(idxRoots, slashableIndicesLimit),
		attestationDataRoot(sa.Data),
		ssz.HashTreeRootBitlist(bytesToBits(sa.CustodyBitfield), attestationBitfieldLimit),
		ssz.HashTreeRootBytes96(sa.AggregateSignature),
	})
}

func depositRoot(d *Deposit) [32]byte {
	proofRoots := make([][32]byte, len(d.Proof))
	for i, p := range d.Proof {
		proofRoots[i] = ssz.HashTreeRootBytes32(p)
	}
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootVector(proofRoots),
		ssz.HashTreeRootUint64(d.Index),
		depositDataRoot(d.DepositData),
	})
}

func depositDataRoot(d DepositData) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBytes48(d.Pubkey),
		ssz.HashTreeRootBytes32(d.WithdrawalCreds),
		ssz.HashTreeRootUint64(uint64(d.Amount)),
		ssz.HashTreeRootUint64(d.Timestamp),
		ssz.HashTreeRootBytes96(d.ProofOfPossession),
	})
}

// depositInputRoot hashes only the pubkey/withdrawal-credentials pair --
// the message signed by proof_of_possession, which necessarily
// excludes amount and timestamp (the depositor cannot sign over a field
// the deposit contract appends after submission).
func depositInputRoot(d DepositData) [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootBytes48(d.Pubkey),
		ssz.HashTreeRootBytes32(d.WithdrawalCreds),
	})
}
