// BLS12-381 subgroup membership checks for the beacon chain backend.
//
// A curve point outside the prime-order subgroup used by the signature
// scheme can satisfy pairing equations in ways that let an attacker forge
// signatures or confuse aggregation, so every pubkey and signature accepted
// by PureGoBLSBackend is checked here before it reaches a pairing.
// DeserializeG1 and DeserializeG2 already reject points outside the
// subgroup, so these checks repeat that test; an encoding that fails it is
// reported as ErrBLSAggInvalidPubkey or ErrBLSAggInvalidSignature.
package crypto

import "errors"

// Errors returned by the subgroup checks.
var (
	ErrBLSAggInvalidPubkey    = errors.New("bls_agg: invalid public key")
	ErrBLSAggInvalidSignature = errors.New("bls_agg: invalid signature")
	ErrBLSAggSubgroupCheck    = errors.New("bls_agg: point not in correct subgroup")
)

// BLSAgg groups the BLS12-381 subgroup-membership checks that
// PureGoBLSBackend runs on every pubkey and signature, on top of the
// subgroup test already made by DeserializeG1/DeserializeG2.
type BLSAgg struct{}

// NewBLSAgg creates a new BLSAgg instance.
func NewBLSAgg() *BLSAgg {
	return &BLSAgg{}
}

// CheckG1Subgroup verifies that a serialized G1 point is in the correct
// prime-order subgroup. Returns nil if valid, error otherwise.
func (ba *BLSAgg) CheckG1Subgroup(pubkey [BLSPubkeySize]byte) error {
	p := DeserializeG1(pubkey)
	if p == nil {
		return ErrBLSAggInvalidPubkey
	}
	if !blsG1InSubgroup(p) {
		return ErrBLSAggSubgroupCheck
	}
	return nil
}

// CheckG2Subgroup verifies that a serialized G2 point is in the correct
// prime-order subgroup. Returns nil if valid, error otherwise.
func (ba *BLSAgg) CheckG2Subgroup(sig [BLSSignatureSize]byte) error {
	p := DeserializeG2(sig)
	if p == nil {
		return ErrBLSAggInvalidSignature
	}
	if !blsG2InSubgroup(p) {
		return ErrBLSAggSubgroupCheck
	}
	return nil
}
