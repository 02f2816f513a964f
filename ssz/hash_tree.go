// hash_tree.go complements merkle.go with hash-tree-root helpers for the
// fixed-size BLS field types (public keys, signatures) the beacon state
// and block bodies carry as container fields.
package ssz

// HashTreeRootBytes48 computes the hash tree root of a 48-byte fixed vector
// (e.g., a BLS public key). Per SSZ, this is Merkleize(pack(value)).
func HashTreeRootBytes48(b [48]byte) [32]byte {
	chunks := Pack(b[:])
	return Merkleize(chunks, 0)
}

// HashTreeRootBytes96 computes the hash tree root of a 96-byte fixed vector
// (e.g., a BLS signature). Per SSZ, this is Merkleize(pack(value)).
func HashTreeRootBytes96(b [96]byte) [32]byte {
	chunks := Pack(b[:])
	return Merkleize(chunks, 0)
}
