package consensus

import "testing"

func TestComputeShuffledIndexIsBijection(t *testing.T) {
	seed := H([]byte("shuffle-bijection"))
	const n = 37

	seen := make(map[uint64]bool, n)
	for i := uint64(0); i < n; i++ {
		shuffled, err := computeShuffledIndex(i, n, seed)
		if err != nil {
			t.Fatalf("computeShuffledIndex(%d): %v", i, err)
		}
		if shuffled >= n {
			t.Fatalf("shuffled index %d out of range [0,%d)", shuffled, n)
		}
		if seen[shuffled] {
			t.Fatalf("index %d produced by more than one input: not a bijection", shuffled)
		}
		seen[shuffled] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct outputs, got %d", n, len(seen))
	}
}

func TestUnshuffleIndexInverts(t *testing.T) {
	seed := H([]byte("shuffle-invert"))
	const n = 21

	for i := uint64(0); i < n; i++ {
		shuffled, err := computeShuffledIndex(i, n, seed)
		if err != nil {
			t.Fatalf("computeShuffledIndex(%d): %v", i, err)
		}
		back, err := unshuffleIndex(shuffled, n, seed)
		if err != nil {
			t.Fatalf("unshuffleIndex(%d): %v", shuffled, err)
		}
		if back != i {
			t.Fatalf("unshuffleIndex(computeShuffledIndex(%d)) = %d, want %d", i, back, i)
		}
	}
}

func TestComputeShuffledIndexRejectsOutOfRange(t *testing.T) {
	seed := H([]byte("shuffle-range"))
	if _, err := computeShuffledIndex(10, 10, seed); err != ErrShuffleIndexOutOfRange {
		t.Fatalf("expected ErrShuffleIndexOutOfRange, got %v", err)
	}
	if _, err := computeShuffledIndex(0, 0, seed); err != ErrShuffleZeroCount {
		t.Fatalf("expected ErrShuffleZeroCount, got %v", err)
	}
}

func TestComputeShufflingPartitionsExactly(t *testing.T) {
	cfg := QuickConfig()
	seed := H([]byte("shuffling-partition"))

	active := make([]ValidatorIndex, 400)
	for i := range active {
		active[i] = ValidatorIndex(i)
	}

	sh, err := computeShuffling(active, seed, 0, cfg)
	if err != nil {
		t.Fatalf("computeShuffling: %v", err)
	}

	seen := make(map[ValidatorIndex]bool, len(active))
	for _, committee := range sh.committees {
		for _, idx := range committee {
			if seen[idx] {
				t.Fatalf("validator %d assigned to more than one committee", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != len(active) {
		t.Fatalf("shuffling covered %d of %d active validators", len(seen), len(active))
	}
}

func TestEpochCommitteeCountBounds(t *testing.T) {
	cfg := QuickConfig()

	if got := epochCommitteeCount(0, cfg); got != cfg.SlotsPerEpoch {
		t.Fatalf("epochCommitteeCount(0) = %d, want floor of one committee per slot (%d)", got, cfg.SlotsPerEpoch)
	}

	maxCommittees := (cfg.ShardCount / cfg.SlotsPerEpoch) * cfg.SlotsPerEpoch
	if got := epochCommitteeCount(1<<30, cfg); got != maxCommittees {
		t.Fatalf("epochCommitteeCount(huge) = %d, want ceiling of %d", got, maxCommittees)
	}
}

func TestCrosslinkCommitteesAtSlotStableAcrossCalls(t *testing.T) {
	cfg := QuickConfig()
	state, _, err := buildGenesisState(cfg, 8)
	if err != nil {
		t.Fatalf("buildGenesisState: %v", err)
	}

	c1, err := CrosslinkCommitteesAtSlot(state, cfg.GenesisSlot, false, cfg)
	if err != nil {
		t.Fatalf("CrosslinkCommitteesAtSlot: %v", err)
	}
	c2, err := CrosslinkCommitteesAtSlot(state, cfg.GenesisSlot, false, cfg)
	if err != nil {
		t.Fatalf("CrosslinkCommitteesAtSlot (2nd call): %v", err)
	}
	if len(c1) != len(c2) {
		t.Fatalf("committee count changed between calls: %d vs %d", len(c1), len(c2))
	}
	for i := range c1 {
		if c1[i].Shard != c2[i].Shard || len(c1[i].Committee) != len(c2[i].Committee) {
			t.Fatalf("committee %d differs between calls", i)
		}
	}
}
