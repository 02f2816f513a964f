package consensus

// rewards.go computes epoch-boundary rewards and penalties (§4.6): base
// rewards scaled by the inverse square root of total active balance,
// source/target/head attestation rewards, an inclusion-distance reward
// for prompt inclusion (split with the including proposer), and an
// inactivity leak that penalizes non-participants quadratically in the
// number of epochs since the last finalization.

const (
	baseRewardQuotient            = 32
	baseRewardsPerEpoch           = 5
	attestationInclusionQuotient  = 8
	inactivityPenaltyQuotient     = 1 << 25
	minAttestationInclusionDelay  = 1
)

// integerSqrt returns floor(sqrt(n)), computed by Newton's method over
// integers -- the same technique the protocol uses everywhere it needs a
// deterministic, platform-independent square root.
func integerSqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// baseReward returns the base reward for a validator, scaled down as the
// total active balance grows so that aggregate issuance stays bounded.
func baseReward(state *BeaconState, idx ValidatorIndex, totalBalance Gwei, cfg *Config) Gwei {
	if totalBalance == 0 {
		return 0
	}
	quotient := integerSqrt(uint64(totalBalance)) / baseRewardQuotient
	if quotient == 0 {
		return 0
	}
	return EffectiveBalance(state.Balances[idx], cfg) / Gwei(quotient) / baseRewardsPerEpoch
}

// epochAttesterSet resolves, for a set of pending attestations filtered by
// pred, the set of credited validator indices and the inclusion distance
// each first attested at (slot included - slot attested, the minimum over
// duplicate attestations).
func epochAttesterSet(state *BeaconState, atts []*PendingAttestation, pred func(*PendingAttestation) bool, cfg *Config) (map[ValidatorIndex]Slot, error) {
	out := make(map[ValidatorIndex]Slot)
	for _, a := range atts {
		if !pred(a) {
			continue
		}
		committee, err := attestingCommittee(state, a, cfg)
		if err != nil {
			continue
		}
		distance := a.InclusionSlot - a.Data.Slot
		for i, idx := range committee {
			if !bitSet(a.AggregationBitfield, i) {
				continue
			}
			if prev, ok := out[idx]; !ok || distance < prev {
				out[idx] = distance
			}
		}
	}
	return out, nil
}

// ProcessRewardsAndPenalties applies §4.6's reward/penalty pass over the
// previous epoch's attestations: every active validator either earns a
// source/target/head/inclusion-distance reward proportional to its
// participation, or is penalized its base reward (or more, during an
// inactivity leak) for each dimension it missed.
func ProcessRewardsAndPenalties(state *BeaconState, cfg *Config) {
	previousEpoch := state.PreviousEpoch(cfg)
	if state.CurrentEpoch(cfg) == cfg.GenesisEpoch {
		return
	}

	totalBalance := state.TotalActiveBalance(previousEpoch, cfg)
	epochsSinceFinality := state.CurrentEpoch(cfg) + 1 - state.FinalizedEpoch

	sourceAttesters, _ := epochAttesterSet(state, state.PreviousEpochAttestations, func(a *PendingAttestation) bool {
		return a.Data.TargetEpoch == previousEpoch
	}, cfg)
	targetAttesters, _ := epochAttesterSet(state, state.PreviousEpochAttestations, func(a *PendingAttestation) bool {
		return a.Data.TargetEpoch == previousEpoch && a.Data.TargetRoot == EpochBoundaryRoot(state, previousEpoch, cfg)
	}, cfg)
	headAttesters, _ := epochAttesterSet(state, state.PreviousEpochAttestations, func(a *PendingAttestation) bool {
		return a.Data.TargetEpoch == previousEpoch && a.Data.BeaconBlockRoot == state.LatestBlockRoots[uint64(a.Data.Slot)%cfg.SlotsPerHistoricalRoot]
	}, cfg)

	active := state.ActiveValidatorIndices(previousEpoch)
	for _, idx := range active {
		base := baseReward(state, idx, totalBalance, cfg)
		v := state.Validators[idx]

		applyDimension(state, idx, base, sourceAttesters, epochsSinceFinality)
		applyDimension(state, idx, base, targetAttesters, epochsSinceFinality)
		applyDimension(state, idx, base, headAttesters, epochsSinceFinality)

		if distance, attested := sourceAttesters[idx]; attested {
			if distance < minAttestationInclusionDelay {
				distance = minAttestationInclusionDelay
			}
			state.Balances[idx] += base * minAttestationInclusionDelay / Gwei(distance)
		}

		if epochsSinceFinality > 4 {
			if _, attested := targetAttesters[idx]; !attested || v.Slashed {
				leak := Gwei(uint64(epochsSinceFinality) * uint64(epochsSinceFinality))
				penalty := EffectiveBalance(state.Balances[idx], cfg) * leak / Gwei(inactivityPenaltyQuotient)
				deductBalance(state, idx, base+penalty)
			}
		}
	}

	for _, a := range state.PreviousEpochAttestations {
		committee, err := attestingCommittee(state, a, cfg)
		if err != nil {
			continue
		}
		proposer, err := proposerForAttestationSlot(state, a.Data.Slot, cfg)
		if err != nil {
			continue
		}
		for i, idx := range committee {
			if !bitSet(a.AggregationBitfield, i) {
				continue
			}
			b := baseReward(state, idx, totalBalance, cfg)
			state.Balances[proposer] += b / attestationInclusionQuotient
		}
	}
}

func proposerForAttestationSlot(state *BeaconState, slot Slot, cfg *Config) (ValidatorIndex, error) {
	return BeaconProposerIndex(state, slot, false, cfg)
}

func applyDimension(state *BeaconState, idx ValidatorIndex, base Gwei, attesters map[ValidatorIndex]Slot, epochsSinceFinality Epoch) {
	if _, ok := attesters[idx]; ok {
		state.Balances[idx] += base
		return
	}
	deductBalance(state, idx, base)
}

func deductBalance(state *BeaconState, idx ValidatorIndex, amount Gwei) {
	if state.Balances[idx] >= amount {
		state.Balances[idx] -= amount
	} else {
		state.Balances[idx] = 0
	}
}
