package consensus

import (
	"fmt"

	"github.com/sharded-pos/beacon/log"
	"github.com/sharded-pos/beacon/ssz"
)

var stLog = log.Default().Module("state_transition")

// cacheStateRoots records the pre-transition state root into the ring
// buffer, seeds LatestBlockHeader.StateRoot the first time it is read back,
// and carries the block root forward (§4.6 per-slot advance, steps 1-4).
func cacheStateRoots(state *BeaconState, cfg *Config) {
	previousStateRoot := state.HashTreeRoot()
	state.LatestStateRoots[uint64(state.Slot)%cfg.SlotsPerHistoricalRoot] = previousStateRoot

	if state.LatestBlockHeader.StateRoot == (Hash{}) {
		state.LatestBlockHeader.StateRoot = previousStateRoot
	}

	previousBlockRoot := truncatedHashHeader(state.LatestBlockHeader)
	state.LatestBlockRoots[uint64(state.Slot)%cfg.SlotsPerHistoricalRoot] = previousBlockRoot
}

// ProcessSlot advances the state by exactly one slot with no block applied:
// the per-slot root caching followed by the slot increment.
func ProcessSlot(state *BeaconState, cfg *Config) {
	cacheStateRoots(state, cfg)
	state.Slot++
}

// ProcessSlots advances state until state.Slot == targetSlot, applying no
// block; callers wanting to apply a block at targetSlot call
// StateTransition instead. At every epoch boundary crossed, ProcessEpoch
// runs after the boundary slot's roots are cached and before the slot
// increments, so the closing epoch's attestations (including any carried
// by the boundary slot's block, applied in a prior call) are all visible
// to it.
func ProcessSlots(state *BeaconState, targetSlot Slot, cfg *Config) error {
	if state.Slot > targetSlot {
		return ErrSlotOutOfRange
	}
	for state.Slot < targetSlot {
		cacheStateRoots(state, cfg)
		if (uint64(state.Slot)+1)%cfg.SlotsPerEpoch == 0 {
			ProcessEpoch(state, cfg)
		}
		state.Slot++
	}
	return nil
}

// StateTransition is the protocol's single entry point (§4): it advances a
// copy of state to block.Slot (running any epoch transitions crossed along
// the way), applies block's operations, and returns the resulting state.
// The input state is never mutated.
func StateTransition(state *BeaconState, block *Block, cfg *Config) (*BeaconState, error) {
	next := state.Copy()
	if err := ProcessSlots(next, block.Slot, cfg); err != nil {
		return nil, err
	}
	if err := ProcessBlock(next, block, cfg); err != nil {
		return nil, err
	}
	return next, nil
}

// ProcessBlock applies one block's header and body to state, which must
// already have been advanced to block.Slot by ProcessSlots (§4.3).
func ProcessBlock(state *BeaconState, block *Block, cfg *Config) error {
	if block.Slot != state.Slot {
		return ErrBlockSlotInvalid
	}
	if truncatedHashHeader(state.LatestBlockHeader) != block.PreviousRoot {
		return ErrBlockPreviousRootInvalid
	}

	proposerIdx, err := BeaconProposerIndex(state, state.Slot, false, cfg)
	if err != nil {
		return err
	}
	proposer := state.Validators[proposerIdx]

	state.LatestBlockHeader = BlockHeader{
		Slot:         block.Slot,
		PreviousRoot: block.PreviousRoot,
		StateRoot:    Hash{},
		BodyRoot:     Hash(blockBodyRootHash(block.Body)),
	}

	domain := blsDomain(state.Fork, state.CurrentEpoch(cfg), DomainProposer)
	headerRoot := Hash(truncatedHashBlock(block))
	if !blsVerify(proposer.Pubkey, signingRoot(headerRoot, domain), block.Signature) {
		return ErrBlockSignatureInvalid
	}

	if err := processRandao(state, block, proposer, cfg); err != nil {
		return err
	}
	processEth1Data(state, block.Body.Eth1Data)

	if err := processOperations(state, block.Body, cfg); err != nil {
		return err
	}
	return nil
}

func blockBodyRootHash(b *BlockBody) [32]byte {
	var out [32]byte
	copy(out[:], blockBodyRoot(b))
	return out
}

// processRandao verifies the block's RANDAO reveal against the proposer's
// pubkey and mixes it into the epoch's randao mix (§4.3).
func processRandao(state *BeaconState, block *Block, proposer *Validator, cfg *Config) error {
	epoch := state.CurrentEpoch(cfg)
	domain := blsDomain(state.Fork, epoch, DomainRandao)
	msg := signingRoot(sszHashUint64(uint64(epoch)), domain)
	if !blsVerify(proposer.Pubkey, msg, block.Body.RandaoReveal) {
		return ErrRandaoSignatureInvalid
	}

	mixIdx := uint64(epoch) % cfg.LatestRandaoMixesLength
	previous := state.LatestRandaoMixes[mixIdx]
	reveal := H(block.Body.RandaoReveal[:])
	var mixed [32]byte
	for i := range mixed {
		mixed[i] = previous[i] ^ reveal[i]
	}
	state.LatestRandaoMixes[mixIdx] = Hash(mixed)
	return nil
}

// processEth1Data tallies a proposer's eth1 vote and adopts it as
// LatestEth1Data once a majority of the voting period agrees (§4.3).
func processEth1Data(state *BeaconState, vote Eth1Data) {
	state.Eth1DataVotes = append(state.Eth1DataVotes, vote)
	count := 0
	for _, v := range state.Eth1DataVotes {
		if v == vote {
			count++
		}
	}
	if count*2 > len(state.Eth1DataVotes) {
		state.LatestEth1Data = vote
	}
}

// processOperations applies every operation kind in a block body in the
// protocol's fixed order, rejecting bodies whose per-kind counts exceed
// the configured caps (§4.3, §4.4).
func processOperations(state *BeaconState, body *BlockBody, cfg *Config) error {
	if uint64(len(body.ProposerSlashings)) > cfg.MaxProposerSlashings {
		return ErrTooManyProposerSlashings
	}
	if uint64(len(body.AttesterSlashings)) > cfg.MaxAttesterSlashings {
		return ErrTooManyAttesterSlashings
	}
	if uint64(len(body.Attestations)) > cfg.MaxAttestations {
		return ErrTooManyAttestations
	}
	if uint64(len(body.Deposits)) > cfg.MaxDeposits {
		return ErrTooManyDeposits
	}
	if uint64(len(body.VoluntaryExits)) > cfg.MaxVoluntaryExits {
		return ErrTooManyVoluntaryExits
	}
	if uint64(len(body.Transfers)) > cfg.MaxTransfers {
		return ErrTooManyTransfers
	}

	for _, ps := range body.ProposerSlashings {
		if err := ProcessProposerSlashing(state, ps, cfg); err != nil {
			return fmt.Errorf("proposer slashing: %w", err)
		}
	}
	for _, as := range body.AttesterSlashings {
		if err := ProcessAttesterSlashing(state, as, cfg); err != nil {
			return fmt.Errorf("attester slashing: %w", err)
		}
	}
	for _, a := range body.Attestations {
		if err := ProcessAttestation(state, a, cfg); err != nil {
			return fmt.Errorf("attestation: %w", err)
		}
	}
	for _, d := range body.Deposits {
		if err := ProcessDeposit(state, d, cfg); err != nil {
			return fmt.Errorf("deposit: %w", err)
		}
	}
	for _, ve := range body.VoluntaryExits {
		if err := ProcessVoluntaryExit(state, ve, cfg); err != nil {
			return fmt.Errorf("voluntary exit: %w", err)
		}
	}
	for _, tr := range body.Transfers {
		if err := ProcessTransfer(state, tr, cfg); err != nil {
			return fmt.Errorf("transfer: %w", err)
		}
	}
	return nil
}

// ProcessEpoch runs the full per-epoch pipeline (§4.6), called by
// ProcessSlots whenever it crosses an epoch boundary: justification and
// finalization, crosslink advancement, rewards and penalties, registry
// updates and ejections, and the bookkeeping rotations (active index
// roots, shuffling fields, attestation pools) that prepare state for the
// next epoch.
func ProcessEpoch(state *BeaconState, cfg *Config) {
	ProcessJustificationAndFinalization(state, cfg)
	ProcessCrosslinks(state, cfg)
	ProcessRewardsAndPenalties(state, cfg)
	registryUpdated := ProcessRegistryUpdates(state, cfg)
	ProcessSlashedBalanceReset(state, cfg)
	ProcessFinalUpdates(state, registryUpdated, cfg)
	stLog.Info("epoch processed", "epoch", state.CurrentEpoch(cfg), "finalized", state.FinalizedEpoch)
}

// ProcessCrosslinks advances LatestCrosslinks for every shard whose
// committee, across both the previous and current epoch, reached the 2/3
// supermajority on a single crosslink data root (§4.6). The zero root is
// tallied like any other root.
func ProcessCrosslinks(state *BeaconState, cfg *Config) {
	previousEpoch := state.PreviousEpoch(cfg)
	currentEpoch := state.CurrentEpoch(cfg)

	for epoch := previousEpoch; epoch <= currentEpoch; epoch++ {
		startSlot := EpochStartSlot(epoch, cfg.SlotsPerEpoch)
		for slotOffset := uint64(0); slotOffset < cfg.SlotsPerEpoch; slotOffset++ {
			slot := startSlot + Slot(slotOffset)
			committees, err := CrosslinkCommitteesAtSlot(state, slot, false, cfg)
			if err != nil {
				continue
			}
			for _, c := range committees {
				winner, winnerBalance, ok := winningCrosslinkRoot(state, slot, c, cfg)
				if !ok {
					continue
				}
				total := totalEffectiveBalance(c.Committee, state.Balances, cfg)
				if supermajority(winnerBalance, total) {
					state.LatestCrosslinks[c.Shard] = Crosslink{
						Epoch:             epoch,
						CrosslinkDataRoot: winner,
					}
				}
			}
		}
	}
}

// winningCrosslinkRoot finds the crosslink data root, among this
// committee's attestations for slot, with the greatest attesting balance.
func winningCrosslinkRoot(state *BeaconState, slot Slot, c crosslinkCommittee, cfg *Config) (Hash, Gwei, bool) {
	atts := attestationPoolForSlot(state, slot, cfg)
	tally := make(map[Hash]Gwei)
	for _, a := range atts {
		if a.Data.Shard != c.Shard || a.Data.Slot != slot {
			continue
		}
		credited := make(map[ValidatorIndex]bool)
		for i, idx := range c.Committee {
			if bitSet(a.AggregationBitfield, i) {
				credited[idx] = true
			}
		}
		var bal Gwei
		for idx := range credited {
			bal += EffectiveBalance(state.Balances[idx], cfg)
		}
		tally[a.Data.CrosslinkDataRoot] += bal
	}
	var best Hash
	var bestBalance Gwei
	found := false
	for root, bal := range tally {
		if !found || bal > bestBalance {
			best, bestBalance, found = root, bal, true
		}
	}
	return best, bestBalance, found
}

// attestationPoolForSlot returns whichever of the previous/current epoch
// attestation pools holds attestations for slot.
func attestationPoolForSlot(state *BeaconState, slot Slot, cfg *Config) []*PendingAttestation {
	epoch := SlotToEpoch(slot, cfg.SlotsPerEpoch)
	if epoch == state.CurrentEpoch(cfg) {
		return state.CurrentEpochAttestations
	}
	return state.PreviousEpochAttestations
}

// ProcessRegistryUpdates applies §4.3/§4.6's validator lifecycle advance:
// validators that have accumulated a full deposit are scheduled for
// activation at the delayed activation-exit boundary, and any active
// validator whose balance has fallen below EjectionBalance begins its
// exit at the same boundary. It returns
// whether any validator's activation or exit epoch changed, the signal
// CrosslinkCommitteesAtSlot's next-epoch branch needs to decide whether a
// registry change occurred this epoch.
func ProcessRegistryUpdates(state *BeaconState, cfg *Config) bool {
	currentEpoch := state.CurrentEpoch(cfg)
	changed := false

	for idx, v := range state.Validators {
		if v.ActivationEpoch == FarFutureEpoch && v.ExitEpoch == FarFutureEpoch &&
			state.Balances[idx] >= Gwei(cfg.MaxDepositAmount) {
			activate(v, currentEpoch, cfg)
			changed = true
		}
	}

	for idx, v := range state.Validators {
		if v.IsActive(currentEpoch) && !v.InitiatedExit && state.Balances[idx] < Gwei(cfg.EjectionBalance) {
			initiateExit(v, currentEpoch, cfg)
			changed = true
		}
	}

	if changed {
		state.ValidatorRegistryUpdateEpoch = currentEpoch
	}
	return changed
}

// ProcessSlashedBalanceReset copies the current epoch's cumulative
// slashed-balance total into the next epoch's ring buffer slot,
// overwriting the total that slot held LatestSlashedExitLength epochs ago.
func ProcessSlashedBalanceReset(state *BeaconState, cfg *Config) {
	nextEpoch := state.NextEpoch(cfg)
	idx := uint64(nextEpoch) % cfg.LatestSlashedExitLength
	state.LatestSlashedBalances[idx] = state.LatestSlashedBalances[uint64(state.CurrentEpoch(cfg))%cfg.LatestSlashedExitLength]
}

// ProcessFinalUpdates performs the epoch-boundary rotations that prepare
// state for the next epoch (§4.6 step 6): recording the active index
// root ActivationExitDelay epochs out, rotating previous <- current
// shuffling fields and computing the new current shuffling, and swapping
// the attestation pools so CurrentEpochAttestations starts the next
// epoch empty.
func ProcessFinalUpdates(state *BeaconState, registryChanged bool, cfg *Config) {
	nextEpoch := state.NextEpoch(cfg)

	indexRootEpoch := nextEpoch + Epoch(cfg.ActivationExitDelay)
	active := state.ActiveValidatorIndices(indexRootEpoch)
	rootIdx := uint64(indexRootEpoch) % cfg.LatestActiveIndexRootsLength
	state.LatestActiveIndexRoots[rootIdx] = activeIndexRoot(active)

	state.PreviousShufflingEpoch = state.CurrentShufflingEpoch
	state.PreviousShufflingStartShard = state.CurrentShufflingStartShard
	state.PreviousShufflingSeed = state.CurrentShufflingSeed

	currentCount := epochCommitteeCount(uint64(len(state.ActiveValidatorIndices(state.CurrentEpoch(cfg)))), cfg)
	epochsSinceUpdate := state.CurrentEpoch(cfg) - state.ValidatorRegistryUpdateEpoch

	switch {
	case registryChanged:
		state.CurrentShufflingEpoch = nextEpoch
		state.CurrentShufflingStartShard = Shard((uint64(state.CurrentShufflingStartShard) + currentCount) % cfg.ShardCount)
		state.CurrentShufflingSeed = Seed(state, nextEpoch, cfg)
	case epochsSinceUpdate > 1 && isPowerOfTwo(uint64(epochsSinceUpdate)):
		// Reseed without advancing the start shard: only an actual
		// registry change rotates committees onto new shards.
		state.CurrentShufflingEpoch = nextEpoch
		state.CurrentShufflingSeed = Seed(state, nextEpoch, cfg)
	}

	// Once the ring buffers have cycled through a full window, fold them
	// into the growable historical accumulator before they start being
	// overwritten.
	epochsPerHistoricalBatch := cfg.SlotsPerHistoricalRoot / cfg.SlotsPerEpoch
	if epochsPerHistoricalBatch > 0 && uint64(nextEpoch)%epochsPerHistoricalBatch == 0 {
		batchRoot := ssz.HashTreeRootContainer([][32]byte{
			hashRootsVector(state.LatestBlockRoots),
			hashRootsVector(state.LatestStateRoots),
		})
		state.HistoricalRoots = append(state.HistoricalRoots, Hash(batchRoot))
	}

	// The eth1 voting window is one epoch: majority counting in
	// processEth1Data is always against the current window's votes only.
	state.Eth1DataVotes = nil

	state.PreviousEpochAttestations = state.CurrentEpochAttestations
	state.CurrentEpochAttestations = nil
}

// activeIndexRoot hashes an active validator index set the same way the
// protocol hashes any basic-type list: packed little-endian u64s,
// merkleized, length-mixed.
func activeIndexRoot(indices []ValidatorIndex) Hash {
	buf := make([]byte, 0, len(indices)*8)
	for _, idx := range indices {
		buf = append(buf, sszEncodeUint64(uint64(idx))...)
	}
	return Hash(ssz.HashTreeRootBasicList(buf, len(indices), 8, validatorRegistryLimit))
}
