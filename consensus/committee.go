package consensus

import (
	"encoding/binary"
	"errors"
)

// Seed derives the shuffling seed for an epoch: hash3(randao_mix, active_index_root, epoch),
// where the randao mix is the one recorded MIN_SEED_LOOKAHEAD epochs before
// the target so that it can no longer be influenced by the proposer of a
// block in the target epoch, and the active-index root binds the seed to
// the validator set that was active as of that same epoch.
func Seed(state *BeaconState, epoch Epoch, cfg *Config) Hash {
	mixEpoch := epoch - Epoch(cfg.MinSeedLookahead)
	randaoMix := state.randaoMixAtEpoch(mixEpoch, cfg)
	indexRoot := state.activeIndexRootAtEpoch(epoch, cfg)
	var epochBuf [8]byte
	binary.LittleEndian.PutUint64(epochBuf[:], uint64(epoch))
	return hash3(randaoMix[:], indexRoot[:], epochBuf[:])
}

// epochParams is the (committee count, seed, shuffling epoch, start shard)
// tuple §4.2's target-epoch selection table resolves to.
type epochParams struct {
	committeeCount uint64
	seed           Hash
	shufflingEpoch Epoch
	startShard     Shard
}

// resolveEpochParams implements the target-epoch selection table of §4.2.
// registryChange reports whether the caller has determined a validator
// registry update occurred during the current epoch (activations or
// exits); it only affects the next_epoch branches.
func resolveEpochParams(state *BeaconState, targetEpoch Epoch, registryChange bool, cfg *Config) (*epochParams, error) {
	current := state.CurrentEpoch(cfg)
	previous := state.PreviousEpoch(cfg)
	next := state.NextEpoch(cfg)

	switch targetEpoch {
	case current:
		return &epochParams{
			committeeCount: epochCommitteeCount(uint64(len(state.ActiveValidatorIndices(current))), cfg),
			seed:           state.CurrentShufflingSeed,
			shufflingEpoch: state.CurrentShufflingEpoch,
			startShard:     state.CurrentShufflingStartShard,
		}, nil
	case previous:
		return &epochParams{
			committeeCount: epochCommitteeCount(uint64(len(state.ActiveValidatorIndices(previous))), cfg),
			seed:           state.PreviousShufflingSeed,
			shufflingEpoch: state.PreviousShufflingEpoch,
			startShard:     state.PreviousShufflingStartShard,
		}, nil
	case next:
		currentCount := epochCommitteeCount(uint64(len(state.ActiveValidatorIndices(current))), cfg)
		nextCount := epochCommitteeCount(uint64(len(state.ActiveValidatorIndices(next))), cfg)
		epochsSinceUpdate := current - state.ValidatorRegistryUpdateEpoch

		switch {
		case registryChange:
			return &epochParams{
				committeeCount: nextCount,
				seed:           Seed(state, next, cfg),
				shufflingEpoch: next,
				startShard:     Shard((uint64(state.CurrentShufflingStartShard) + currentCount) % cfg.ShardCount),
			}, nil
		case epochsSinceUpdate > 1 && isPowerOfTwo(uint64(epochsSinceUpdate)):
			return &epochParams{
				committeeCount: nextCount,
				seed:           Seed(state, next, cfg),
				shufflingEpoch: next,
				startShard:     state.CurrentShufflingStartShard,
			}, nil
		default:
			return &epochParams{
				committeeCount: currentCount,
				seed:           state.CurrentShufflingSeed,
				shufflingEpoch: state.CurrentShufflingEpoch,
				startShard:     state.CurrentShufflingStartShard,
			}, nil
		}
	default:
		return nil, ErrEpochOutOfRange
	}
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// CrosslinkCommitteesAtSlot returns the committees (and their assigned
// shards) responsible for the given slot, per the target-epoch selection
// table of §4.2.
func CrosslinkCommitteesAtSlot(state *BeaconState, slot Slot, registryChange bool, cfg *Config) ([]crosslinkCommittee, error) {
	epoch := SlotToEpoch(slot, cfg.SlotsPerEpoch)
	params, err := resolveEpochParams(state, epoch, registryChange, cfg)
	if err != nil {
		return nil, err
	}

	active := state.ActiveValidatorIndices(params.shufflingEpoch)
	sh, err := computeShuffling(active, params.seed, params.startShard, cfg)
	if err != nil {
		return nil, err
	}
	return crosslinkCommitteesAtSlot(sh, slot, cfg), nil
}

var ErrNoProposerCommittee = errors.New("consensus: no committee assigned to slot")

// BeaconProposerIndex selects the block proposer for a slot: the member of
// that slot's first committee at position (slot mod len(committee)).
func BeaconProposerIndex(state *BeaconState, slot Slot, registryChange bool, cfg *Config) (ValidatorIndex, error) {
	committees, err := CrosslinkCommitteesAtSlot(state, slot, registryChange, cfg)
	if err != nil {
		return 0, err
	}
	if len(committees) == 0 || len(committees[0].Committee) == 0 {
		return 0, ErrNoProposerCommittee
	}
	committee := committees[0].Committee
	return committee[uint64(slot)%uint64(len(committee))], nil
}
