package consensus

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// shuffleRoundCount is the number of swap-or-not rounds applied per
// index. 90 rounds is the value carried over from the reference
// committee-shuffling algorithm this package implements.
const shuffleRoundCount = 90

// targetCommitteeSize is the number of validators a committee is sized
// towards before the shard count or validator count caps it.
const targetCommitteeSize = 128

var (
	ErrShuffleZeroCount      = errors.New("consensus: shuffle index count is zero")
	ErrShuffleIndexOutOfRange = errors.New("consensus: shuffle index out of range")
	ErrShuffleNoActiveValidators = errors.New("consensus: no active validators for shuffling")
)

// computeShuffledIndex returns the shuffled position of index under the
// swap-or-not shuffle network seeded by seed. This is the permutation
// primitive behind every committee assignment in the protocol: it is a
// bijection on [0, indexCount) and its inverse is unshuffleIndex.
func computeShuffledIndex(index, indexCount uint64, seed Hash) (uint64, error) {
	if indexCount == 0 {
		return 0, ErrShuffleZeroCount
	}
	if index >= indexCount {
		return 0, ErrShuffleIndexOutOfRange
	}

	cur := index
	for round := uint64(0); round < shuffleRoundCount; round++ {
		cur = shuffleRound(cur, indexCount, seed, round)
	}
	return cur, nil
}

// unshuffleIndex inverts computeShuffledIndex by running the rounds in
// reverse order.
func unshuffleIndex(shuffledIndex, indexCount uint64, seed Hash) (uint64, error) {
	if indexCount == 0 {
		return 0, ErrShuffleZeroCount
	}
	if shuffledIndex >= indexCount {
		return 0, ErrShuffleIndexOutOfRange
	}

	cur := shuffledIndex
	for r := int(shuffleRoundCount) - 1; r >= 0; r-- {
		cur = shuffleRound(cur, indexCount, seed, uint64(r))
	}
	return cur, nil
}

func shuffleRound(cur, indexCount uint64, seed Hash, round uint64) uint64 {
	var pivotInput [33]byte
	copy(pivotInput[:32], seed[:])
	pivotInput[32] = byte(round)
	pivotHash := sha256.Sum256(pivotInput[:])
	pivot := binary.LittleEndian.Uint64(pivotHash[:8]) % indexCount

	flip := (pivot + indexCount - cur) % indexCount
	position := flip
	if cur > flip {
		position = cur
	}

	var srcInput [37]byte
	copy(srcInput[:32], seed[:])
	srcInput[32] = byte(round)
	binary.LittleEndian.PutUint32(srcInput[33:], uint32(position/256))
	source := sha256.Sum256(srcInput[:])

	byteIdx := (position % 256) / 8
	bitIdx := position % 8
	if (source[byteIdx]>>bitIdx)&1 != 0 {
		return flip
	}
	return cur
}

// shuffle permutes indices in place order, returning a new slice where
// result[i] = indices[computeShuffledIndex(i)].
func shuffle(seed Hash, indices []ValidatorIndex) ([]ValidatorIndex, error) {
	n := uint64(len(indices))
	if n == 0 {
		return nil, ErrShuffleNoActiveValidators
	}
	result := make([]ValidatorIndex, n)
	for i := uint64(0); i < n; i++ {
		shuffled, err := computeShuffledIndex(i, n, seed)
		if err != nil {
			return nil, err
		}
		result[i] = indices[shuffled]
	}
	return result, nil
}

// epochCommitteeCount returns the number of crosslink committees active
// during an epoch, given the number of active validators. The count is
// always a whole number of committees per slot times slots_per_epoch, so
// every slot of the epoch owns the same number of committees: at least
// one, and at most shard_count / slots_per_epoch (each shard may host
// only one committee per slot).
func epochCommitteeCount(activeCount uint64, cfg *Config) uint64 {
	maxPerSlot := cfg.ShardCount / cfg.SlotsPerEpoch
	if maxPerSlot == 0 {
		maxPerSlot = 1
	}

	perSlot := activeCount / cfg.SlotsPerEpoch / targetCommitteeSize
	if perSlot == 0 {
		perSlot = 1
	}
	if perSlot > maxPerSlot {
		perSlot = maxPerSlot
	}
	return perSlot * cfg.SlotsPerEpoch
}

// shuffling is a fully materialized committee assignment for one epoch:
// the shuffled active-validator list sliced into committeeCount equal
// committees, plus the first shard the epoch's committees are assigned
// to (committees are assigned to consecutive shards, wrapping modulo
// shard_count).
type shuffling struct {
	committees     [][]ValidatorIndex
	startShard     Shard
	committeeCount uint64
}

// computeShuffling builds the committee assignment for an epoch from
// its active validator set, seed, and starting shard.
func computeShuffling(activeIndices []ValidatorIndex, seed Hash, startShard Shard, cfg *Config) (*shuffling, error) {
	if len(activeIndices) == 0 {
		return nil, ErrShuffleNoActiveValidators
	}
	shuffled, err := shuffle(seed, activeIndices)
	if err != nil {
		return nil, err
	}

	committeeCount := epochCommitteeCount(uint64(len(activeIndices)), cfg)
	committees := make([][]ValidatorIndex, committeeCount)
	n := uint64(len(shuffled))
	for i := uint64(0); i < committeeCount; i++ {
		start := n * i / committeeCount
		end := n * (i + 1) / committeeCount
		committees[i] = shuffled[start:end]
	}

	return &shuffling{
		committees:     committees,
		startShard:     startShard,
		committeeCount: committeeCount,
	}, nil
}

// crosslinkCommitteesAtSlot locates the committee and shard responsible
// for a slot within a materialized shuffling. Slots are assigned to
// committees round-robin: slot offset i within the epoch owns the
// committees [i*committeesPerSlot, (i+1)*committeesPerSlot) of the
// shuffling, each bound to consecutive shards starting at startShard.
type crosslinkCommittee struct {
	Committee []ValidatorIndex
	Shard     Shard
}

func crosslinkCommitteesAtSlot(sh *shuffling, slot Slot, cfg *Config) []crosslinkCommittee {
	slotOffset := uint64(slot) % cfg.SlotsPerEpoch
	committeesPerSlot := sh.committeeCount / cfg.SlotsPerEpoch

	result := make([]crosslinkCommittee, 0, committeesPerSlot)
	for i := uint64(0); i < committeesPerSlot; i++ {
		committeeIdx := slotOffset*committeesPerSlot + i
		shard := Shard((uint64(sh.startShard) + committeeIdx) % cfg.ShardCount)
		result = append(result, crosslinkCommittee{
			Committee: sh.committees[committeeIdx],
			Shard:     shard,
		})
	}
	return result
}

// proposerIndexAtSlot selects the block proposer for a slot: the member
// of that slot's first committee at position (slot mod
// len(committee)). This is a deterministic, stake-agnostic rule --
// proposer selection does not weight by effective balance.
func proposerIndexAtSlot(sh *shuffling, slot Slot, cfg *Config) (ValidatorIndex, error) {
	committees := crosslinkCommitteesAtSlot(sh, slot, cfg)
	if len(committees) == 0 || len(committees[0].Committee) == 0 {
		return 0, ErrShuffleNoActiveValidators
	}
	committee := committees[0].Committee
	return committee[uint64(slot)%uint64(len(committee))], nil
}
