// Package ssz implements the parts of Simple Serialize (SSZ), the
// serialization format used by the Ethereum consensus layer, that the
// beacon state transition actually needs: chunk packing, Merkleization,
// and hash-tree-root for the field types the state and block bodies use.
//
// Spec: https://github.com/ethereum/consensus-specs/blob/dev/ssz/simple-serialize.md
package ssz

// BytesPerLengthOffset is the number of bytes used for each offset in
// variable-length SSZ containers (4 bytes, little-endian uint32).
const BytesPerLengthOffset = 4
