package consensus

import "github.com/sharded-pos/beacon/ssz"

// BeaconState is the single mutable entity the transition function owns.
// It is never referenced concurrently: the caller holds exclusive access
// for the duration of one state_transition call and must treat the input
// as immutable once a new state has been produced (copy-on-write or
// snapshot discipline, per §5).
type BeaconState struct {
	Slot        Slot
	GenesisTime uint64
	Fork        Fork

	Validators []*Validator
	Balances   []Gwei

	ValidatorRegistryUpdateEpoch Epoch

	LatestRandaoMixes []Hash

	PreviousShufflingEpoch      Epoch
	PreviousShufflingStartShard Shard
	PreviousShufflingSeed       Hash

	CurrentShufflingEpoch      Epoch
	CurrentShufflingStartShard Shard
	CurrentShufflingSeed       Hash

	PreviousEpochAttestations []*PendingAttestation
	CurrentEpochAttestations  []*PendingAttestation

	PreviousJustifiedEpoch Epoch
	JustifiedEpoch         Epoch
	JustificationBitfield  uint64
	FinalizedEpoch         Epoch

	LatestCrosslinks        []Crosslink
	LatestBlockRoots        []Hash
	LatestStateRoots        []Hash
	LatestActiveIndexRoots  []Hash
	LatestSlashedBalances   []Gwei

	LatestBlockHeader BlockHeader
	HistoricalRoots   []Hash

	LatestEth1Data  Eth1Data
	Eth1DataVotes   []Eth1Data
	DepositIndex    uint64
}

// NewEmptyState allocates a BeaconState with every ring buffer sized per
// cfg and every slot of every ring buffer zero-valued -- in particular,
// LatestCrosslinks is filled with Crosslink{} rather than left as
// uninitialized memory (§9: the source's uninitialized-array pattern is
// an implementation artifact, not protocol behavior).
func NewEmptyState(cfg *Config) *BeaconState {
	s := &BeaconState{
		LatestRandaoMixes:      make([]Hash, cfg.LatestRandaoMixesLength),
		LatestCrosslinks:       make([]Crosslink, cfg.ShardCount),
		LatestBlockRoots:       make([]Hash, cfg.SlotsPerHistoricalRoot),
		LatestStateRoots:       make([]Hash, cfg.SlotsPerHistoricalRoot),
		LatestActiveIndexRoots: make([]Hash, cfg.LatestActiveIndexRootsLength),
		LatestSlashedBalances:  make([]Gwei, cfg.LatestSlashedExitLength),
		HistoricalRoots:        make([]Hash, 0),
		Eth1DataVotes:          make([]Eth1Data, 0),
	}
	return s
}

// HashTreeRoot computes the ssz_hash of the state (§4.1, §4.6 step 1):
// every field's own hash tree root, merkleized as a container.
func (s *BeaconState) HashTreeRoot() Hash {
	root := ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint64(uint64(s.Slot)),
		ssz.HashTreeRootUint64(s.GenesisTime),
		forkRoot(s.Fork),
		validatorsRoot(s.Validators),
		balancesRoot(s.Balances),
		ssz.HashTreeRootUint64(uint64(s.ValidatorRegistryUpdateEpoch)),
		hashRootsVector(s.LatestRandaoMixes),
		ssz.HashTreeRootUint64(uint64(s.PreviousShufflingEpoch)),
		ssz.HashTreeRootUint64(uint64(s.PreviousShufflingStartShard)),
		ssz.HashTreeRootBytes32(s.PreviousShufflingSeed),
		ssz.HashTreeRootUint64(uint64(s.CurrentShufflingEpoch)),
		ssz.HashTreeRootUint64(uint64(s.CurrentShufflingStartShard)),
		ssz.HashTreeRootBytes32(s.CurrentShufflingSeed),
		pendingAttestationsRoot(s.PreviousEpochAttestations),
		pendingAttestationsRoot(s.CurrentEpochAttestations),
		ssz.HashTreeRootUint64(uint64(s.PreviousJustifiedEpoch)),
		ssz.HashTreeRootUint64(uint64(s.JustifiedEpoch)),
		ssz.HashTreeRootUint64(s.JustificationBitfield),
		ssz.HashTreeRootUint64(uint64(s.FinalizedEpoch)),
		crosslinksVectorRoot(s.LatestCrosslinks),
		hashRootsVector(s.LatestBlockRoots),
		hashRootsVector(s.LatestStateRoots),
		hashRootsVector(s.LatestActiveIndexRoots),
		slashedBalancesRoot(s.LatestSlashedBalances),
		blockHeaderRoot(s.LatestBlockHeader),
		historicalRootsRoot(s.HistoricalRoots),
		eth1DataRoot(s.LatestEth1Data),
		eth1VotesRoot(s.Eth1DataVotes),
		ssz.HashTreeRootUint64(s.DepositIndex),
	})
	return Hash(root)
}

// Copy performs a deep copy of the state so callers can apply a prospective
// transition without mutating the input (the snapshot discipline mandated
// by §5 and §7). Slices of value types are cloned; validator pointers are
// cloned individually since validators are mutated in place by registry
// operations.
func (s *BeaconState) Copy() *BeaconState {
	out := *s

	out.Validators = make([]*Validator, len(s.Validators))
	for i, v := range s.Validators {
		vv := *v
		out.Validators[i] = &vv
	}
	out.Balances = append([]Gwei(nil), s.Balances...)
	out.LatestRandaoMixes = append([]Hash(nil), s.LatestRandaoMixes...)

	out.PreviousEpochAttestations = clonePendingAttestations(s.PreviousEpochAttestations)
	out.CurrentEpochAttestations = clonePendingAttestations(s.CurrentEpochAttestations)

	out.LatestCrosslinks = append([]Crosslink(nil), s.LatestCrosslinks...)
	out.LatestBlockRoots = append([]Hash(nil), s.LatestBlockRoots...)
	out.LatestStateRoots = append([]Hash(nil), s.LatestStateRoots...)
	out.LatestActiveIndexRoots = append([]Hash(nil), s.LatestActiveIndexRoots...)
	out.LatestSlashedBalances = append([]Gwei(nil), s.LatestSlashedBalances...)
	out.HistoricalRoots = append([]Hash(nil), s.HistoricalRoots...)
	out.Eth1DataVotes = append([]Eth1Data(nil), s.Eth1DataVotes...)

	return &out
}

func clonePendingAttestations(in []*PendingAttestation) []*PendingAttestation {
	out := make([]*PendingAttestation, len(in))
	for i, a := range in {
		aa := *a
		aa.AggregationBitfield = append([]byte(nil), a.AggregationBitfield...)
		aa.CustodyBitfield = append([]byte(nil), a.CustodyBitfield...)
		out[i] = &aa
	}
	return out
}

// CurrentEpoch returns the epoch containing the state's current slot.
func (s *BeaconState) CurrentEpoch(cfg *Config) Epoch {
	return SlotToEpoch(s.Slot, cfg.SlotsPerEpoch)
}

// PreviousEpoch returns the prior epoch, floored at GenesisEpoch so that
// genesis and the epoch immediately after it do not underflow.
func (s *BeaconState) PreviousEpoch(cfg *Config) Epoch {
	current := s.CurrentEpoch(cfg)
	if current == cfg.GenesisEpoch {
		return cfg.GenesisEpoch
	}
	return current - 1
}

// NextEpoch returns the epoch following the current one.
func (s *BeaconState) NextEpoch(cfg *Config) Epoch {
	return s.CurrentEpoch(cfg) + 1
}

// ActiveValidatorIndices returns, in registry order, every validator index
// active at the given epoch.
func (s *BeaconState) ActiveValidatorIndices(epoch Epoch) []ValidatorIndex {
	return activeValidatorIndices(s.Validators, epoch)
}

// TotalActiveBalance sums EffectiveBalance across every validator active at
// the given epoch.
func (s *BeaconState) TotalActiveBalance(epoch Epoch, cfg *Config) Gwei {
	return totalEffectiveBalance(s.ActiveValidatorIndices(epoch), s.Balances, cfg)
}

// randaoMixAtEpoch returns the randao mix recorded for the given epoch,
// indexed modulo the ring buffer's length.
func (s *BeaconState) randaoMixAtEpoch(epoch Epoch, cfg *Config) Hash {
	return s.LatestRandaoMixes[uint64(epoch)%cfg.LatestRandaoMixesLength]
}

// activeIndexRootAtEpoch returns the active-index root recorded for the
// given epoch, indexed modulo the ring buffer's length.
func (s *BeaconState) activeIndexRootAtEpoch(epoch Epoch, cfg *Config) Hash {
	return s.LatestActiveIndexRoots[uint64(epoch)%cfg.LatestActiveIndexRootsLength]
}
