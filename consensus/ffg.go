package consensus

// ffg.go implements the Casper FFG justification and finalization rule
// (§4.5): the rolling justification bitfield, the source/target
// supermajority check, the finalization rule over consecutive justified
// pairs, and the slashable-offense detector that underlies both
// AttesterSlashing processing and attestation-inclusion validity.

// IsSlashableAttestationData reports whether two attestations from an
// overlapping validator set constitute a slashable offense: a double vote
// (identical target epoch, necessarily different data since the caller
// already excluded a==b) or a surround vote in either direction (§4.5).
func IsSlashableAttestationData(a, b AttestationData, cfg *Config) bool {
	if a == b {
		return false
	}
	ta, tb := a.TargetEpoch, b.TargetEpoch
	if ta == tb {
		return true // double vote
	}
	if a.SourceEpoch < b.SourceEpoch && tb < ta {
		return true // a surrounds b
	}
	if b.SourceEpoch < a.SourceEpoch && ta < tb {
		return true // b surrounds a
	}
	return false
}

// intersectValidatorIndices returns the indices present in both slices,
// without duplicates and in b's order -- the offense list a slashable
// pair produces.
func intersectValidatorIndices(a, b []ValidatorIndex) []ValidatorIndex {
	set := make(map[ValidatorIndex]bool, len(a))
	for _, idx := range a {
		set[idx] = true
	}
	var out []ValidatorIndex
	seen := make(map[ValidatorIndex]bool)
	for _, idx := range b {
		if set[idx] && !seen[idx] {
			out = append(out, idx)
			seen[idx] = true
		}
	}
	return out
}

// AttestationSourceValid reports whether an attestation's claimed source
// is the canonical justified checkpoint it must build on: the current
// justified epoch if the attestation targets the current epoch, else the
// previous justified epoch (§4.5).
func AttestationSourceValid(state *BeaconState, d AttestationData, cfg *Config) bool {
	if d.TargetEpoch == state.CurrentEpoch(cfg) {
		return d.SourceEpoch == state.JustifiedEpoch
	}
	return d.SourceEpoch == state.PreviousJustifiedEpoch
}

// attestingBalance sums the effective balance of every validator credited
// with an attestation in atts whose data satisfies pred, without
// double-counting validators that attested more than once. Each
// attestation's bitfield is resolved through attestingCommittee, since the
// mapping from bit position to validator index depends on which
// committee the attestation's data.Slot/Shard selects.
func attestingBalance(state *BeaconState, atts []*PendingAttestation, pred func(AttestationData) bool, cfg *Config) Gwei {
	credited := make(map[ValidatorIndex]bool)
	for _, a := range atts {
		if !pred(a.Data) {
			continue
		}
		committee, err := attestingCommittee(state, a, cfg)
		if err != nil {
			continue
		}
		for i, idx := range committee {
			if bitSet(a.AggregationBitfield, i) {
				credited[idx] = true
			}
		}
	}
	var total Gwei
	for idx := range credited {
		total += EffectiveBalance(state.Balances[idx], cfg)
	}
	return total
}

// attestingCommittee resolves the committee an attestation's data refers
// to (its slot/shard selects one of that slot's crosslink committees).
func attestingCommittee(state *BeaconState, a *PendingAttestation, cfg *Config) ([]ValidatorIndex, error) {
	committees, err := CrosslinkCommitteesAtSlot(state, a.Data.Slot, false, cfg)
	if err != nil {
		return nil, err
	}
	for _, c := range committees {
		if c.Shard == a.Data.Shard {
			return c.Committee, nil
		}
	}
	return nil, ErrAttestationShardInvalid
}

// EpochBoundaryRoot returns the block root of the first slot of the given
// epoch, read from the ring buffer -- the canonical "target root" every
// attestation for that epoch must agree on.
func EpochBoundaryRoot(state *BeaconState, epoch Epoch, cfg *Config) Hash {
	slot := EpochStartSlot(epoch, cfg.SlotsPerEpoch)
	return state.LatestBlockRoots[uint64(slot)%cfg.SlotsPerHistoricalRoot]
}

// ProcessJustificationAndFinalization runs the Casper FFG advance (§4.5,
// steps 1-6): it shifts the justification bitfield, tests the previous and
// current epoch's target-attesting balance against the 2/3 supermajority
// threshold, advances finalized_epoch under the consecutive-justified-pair
// rule, then rotates previous_justified_epoch <- justified_epoch <-
// new_justified. Crosslink and reward processing read the pre-rotation
// previous/justified epochs from PendingAttestation data embedded in the
// attestation pools, not from these fields, so running the rotation here
// rather than deferring it to ProcessEpoch is safe.
func ProcessJustificationAndFinalization(state *BeaconState, cfg *Config) {
	currentEpoch := state.CurrentEpoch(cfg)
	if currentEpoch == cfg.GenesisEpoch {
		return
	}
	previousEpoch := state.PreviousEpoch(cfg)

	state.JustificationBitfield <<= 1

	previousEpochTotal := state.TotalActiveBalance(previousEpoch, cfg)
	previousTargetBalance := attestingBalance(state, state.PreviousEpochAttestations, func(d AttestationData) bool {
		return d.TargetEpoch == previousEpoch && d.TargetRoot == EpochBoundaryRoot(state, previousEpoch, cfg)
	}, cfg)

	newJustified := state.JustifiedEpoch
	if supermajority(previousTargetBalance, previousEpochTotal) {
		state.JustificationBitfield |= 1 << 1
		newJustified = previousEpoch
	}

	currentEpochTotal := state.TotalActiveBalance(currentEpoch, cfg)
	currentTargetBalance := attestingBalance(state, state.CurrentEpochAttestations, func(d AttestationData) bool {
		return d.TargetEpoch == currentEpoch && d.TargetRoot == EpochBoundaryRoot(state, currentEpoch, cfg)
	}, cfg)

	if supermajority(currentTargetBalance, currentEpochTotal) {
		state.JustificationBitfield |= 1 << 0
		newJustified = currentEpoch
	}

	// Each rule below is evaluated independently and may overwrite a
	// result set by an earlier one -- they are not mutually exclusive
	// cases. Each later rule finalizes a checkpoint at least as recent as
	// the earlier ones, so when several hold the most recent one wins.
	bits := state.JustificationBitfield
	oldJustified := state.JustifiedEpoch
	oldPreviousJustified := state.PreviousJustifiedEpoch

	if bits&0b1110 == 0b1110 && oldPreviousJustified == previousEpoch-2 {
		state.FinalizedEpoch = oldPreviousJustified
	}
	if bits&0b0110 == 0b0110 && oldPreviousJustified == previousEpoch-1 {
		state.FinalizedEpoch = oldPreviousJustified
	}
	if bits&0b0111 == 0b0111 && oldJustified == previousEpoch-1 {
		state.FinalizedEpoch = oldJustified
	}
	if bits&0b0011 == 0b0011 && oldJustified == previousEpoch {
		state.FinalizedEpoch = oldJustified
	}

	state.PreviousJustifiedEpoch = state.JustifiedEpoch
	state.JustifiedEpoch = newJustified
}

// supermajority reports whether numerator represents at least 2/3 of
// denominator, computed without floating point: 3*numerator >= 2*denominator.
func supermajority(numerator, denominator Gwei) bool {
	if denominator == 0 {
		return false
	}
	return 3*uint64(numerator) >= 2*uint64(denominator)
}

// bitSet reports whether bit i is set in a little-endian-ordered bitfield
// byte slice (bit 0 is the low bit of byte 0).
func bitSet(bitfield []byte, i int) bool {
	byteIdx := i / 8
	if byteIdx >= len(bitfield) {
		return false
	}
	return bitfield[byteIdx]&(1<<uint(i%8)) != 0
}

// bitCount returns the number of set bits in bitfield.
func bitCount(bitfield []byte) int {
	n := 0
	for _, b := range bitfield {
		for b != 0 {
			n += int(b & 1)
			b >>= 1
		}
	}
	return n
}
