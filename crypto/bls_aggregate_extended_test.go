package crypto

import (
	"math/big"
	"testing"
)

func TestBLSAggCheckG1Subgroup(t *testing.T) {
	ba := NewBLSAgg()

	secret := big.NewInt(42)
	pk := BLSPubkeyFromSecret(secret)
	if err := ba.CheckG1Subgroup(pk); err != nil {
		t.Fatalf("valid pubkey failed subgroup check: %v", err)
	}

	var zeroPK [BLSPubkeySize]byte
	if err := ba.CheckG1Subgroup(zeroPK); err == nil {
		t.Fatal("zero pubkey should fail subgroup check")
	}
}

func TestBLSAggCheckG2Subgroup(t *testing.T) {
	ba := NewBLSAgg()

	secret := big.NewInt(123)
	sig := BLSSign(secret, []byte("test"))
	if err := ba.CheckG2Subgroup(sig); err != nil {
		t.Fatalf("valid signature failed subgroup check: %v", err)
	}

	var zeroSig [BLSSignatureSize]byte
	if err := ba.CheckG2Subgroup(zeroSig); err == nil {
		t.Fatal("zero signature should fail subgroup check")
	}
}

func TestPureGoBackendRejectsInvalidPubkey(t *testing.T) {
	b := &PureGoBLSBackend{}
	var zeroPK [BLSPubkeySize]byte
	var sig [BLSSignatureSize]byte
	if b.Verify(zeroPK[:], []byte("msg"), sig[:]) {
		t.Fatal("Verify should reject a pubkey that is not a valid curve point")
	}
}
