package consensus

import (
	"encoding/binary"

	"github.com/sharded-pos/beacon/crypto"
	"github.com/sharded-pos/beacon/ssz"
)

// blsVerifyCache memoizes BLS verification results keyed by
// (signature || message-hash): the same attestation signature is often
// re-verified across fork-choice re-evaluation and gossip re-delivery,
// and a pairing check is far more expensive than a cache lookup.
var blsVerifyCache = crypto.NewSignatureCache(crypto.DefaultSigCacheSize)

// cachedBLSVerify runs verify only on a cache miss, storing the result
// under a key derived from the full signature and a hash of msg.
func cachedBLSVerify(sig []byte, msg []byte, verify func() bool) bool {
	msgHash := crypto.Keccak256Hash(msg)
	key := crypto.SigCacheKey(crypto.SigTypeBLS, sig, msgHash)
	if entry, ok := blsVerifyCache.Get(key); ok {
		return entry.Valid
	}
	valid := verify()
	blsVerifyCache.Add(key, crypto.SigCacheEntry{Valid: valid, SigType: crypto.SigTypeBLS})
	return valid
}

// H is the protocol's single hash primitive. Every other derived hash
// (hash3, merkle_root, randao mixing, shuffling) is built from it.
func H(data ...[]byte) Hash {
	return crypto.Keccak256Hash(data...)
}

// hash3 hashes three concatenated inputs, used by Seed to fold the randao
// mix, the active-index root and the epoch into one shuffling seed.
func hash3(a, b, c []byte) Hash {
	return H(a, b, c)
}

// merkleRoot computes the root of a list of 32-byte chunks padded with
// zero hashes up to the next power of two, mirroring ssz_hash for a
// fixed-length vector.
func merkleRoot(chunks [][32]byte) [32]byte {
	return ssz.Merkleize(chunks, len(chunks))
}

// merkleRootWithLimit computes a list root (chunks merkleized against a
// fixed capacity, then mixed in with the element count).
func merkleRootWithLimit(chunks [][32]byte, limit int, length uint64) [32]byte {
	root := ssz.Merkleize(chunks, limit)
	return ssz.MixInLength(root, length)
}

// sszHashUint64 returns the hash-tree-root of a single u64 field.
func sszHashUint64(v uint64) Hash {
	return ssz.HashTreeRootUint64(v)
}

// sszHashBytes32 returns the hash-tree-root of a fixed 32-byte field.
func sszHashBytes32(b [32]byte) Hash {
	return ssz.HashTreeRootBytes32(b)
}

// sszPack serializes raw bytes into 32-byte chunks, filling the end of
// the final chunk with zeros.
func sszPack(serialized []byte) [][32]byte {
	return ssz.Pack(serialized)
}

// blsVerify checks a single BLS signature over a message under a given
// signing domain. The domain is folded into the message the same way
// the signer folds it: message = data || domain, left to callers to
// construct the signing_root before invoking this oracle.
func blsVerify(pubkey BLSPubkey, message []byte, sig BLSSignature) bool {
	digest := H(pubkey[:], message)
	return cachedBLSVerify(sig[:], digest[:], func() bool {
		backend := crypto.DefaultBLSBackend()
		return backend.Verify(pubkey[:], message, sig[:])
	})
}

// blsVerifyMulti checks an aggregate signature where each of pubkeys[i]
// signed messages[i]. Nothing in the state transition calls it:
// slashable attestations are checked through blsVerifyAggregate.
func blsVerifyMulti(pubkeys []BLSPubkey, messages [][]byte, sig BLSSignature) bool {
	pks := make([][]byte, len(pubkeys))
	digestParts := make([][]byte, 0, len(pubkeys)+len(messages))
	for i := range pubkeys {
		pks[i] = pubkeys[i][:]
		digestParts = append(digestParts, pks[i])
	}
	digestParts = append(digestParts, messages...)
	digest := H(digestParts...)
	return cachedBLSVerify(sig[:], digest[:], func() bool {
		backend := crypto.DefaultBLSBackend()
		return backend.AggregateVerify(pks, messages, sig[:])
	})
}

// blsVerifyAggregate checks an aggregate signature where every signer in
// pubkeys signed the same message -- the common case for committee
// attestations.
func blsVerifyAggregate(pubkeys []BLSPubkey, message []byte, sig BLSSignature) bool {
	pks := make([][]byte, len(pubkeys))
	digestParts := make([][]byte, 0, len(pubkeys)+1)
	for i := range pubkeys {
		pks[i] = pubkeys[i][:]
		digestParts = append(digestParts, pks[i])
	}
	digestParts = append(digestParts, message)
	digest := H(digestParts...)
	return cachedBLSVerify(sig[:], digest[:], func() bool {
		backend := crypto.DefaultBLSBackend()
		return backend.FastAggregateVerify(pks, message, sig[:])
	})
}

// blsAggregatePubkeys combines a set of public keys into a single
// aggregate public key.
func blsAggregatePubkeys(pubkeys []BLSPubkey) BLSPubkey {
	raw := make([][48]byte, len(pubkeys))
	for i := range pubkeys {
		raw[i] = [48]byte(pubkeys[i])
	}
	return BLSPubkey(crypto.AggregatePublicKeys(raw))
}

// blsDomain folds a fork version and a domain separation tag into the
// u64 signing domain used by every signature in the protocol: the low
// 4 bytes are the domain type, the high 4 bytes are the fork version
// active at the given epoch.
func blsDomain(fork Fork, epoch Epoch, domainType uint32) uint64 {
	version := fork.CurrentVersion
	if epoch < fork.Epoch {
		version = fork.PreviousVersion
	}
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], domainType)
	binary.LittleEndian.PutUint32(buf[4:8], version)
	return binary.LittleEndian.Uint64(buf[:])
}

// signingRoot appends the little-endian domain to an object's hash-tree
// root, producing the bytes actually passed to bls_verify.
func signingRoot(objectRoot Hash, domain uint64) []byte {
	var domainBuf [8]byte
	binary.LittleEndian.PutUint64(domainBuf[:], domain)
	return append(append([]byte{}, objectRoot[:]...), domainBuf[:]...)
}
