package consensus

import "errors"

// Config holds the protocol constants referenced throughout state
// transition. All fields are u64 unless noted; see §6 of the protocol
// definition this package implements.
type Config struct {
	SlotsPerEpoch               uint64
	SlotsPerHistoricalRoot      uint64
	LatestRandaoMixesLength     uint64
	LatestActiveIndexRootsLength uint64
	LatestSlashedExitLength     uint64
	ShardCount                  uint64
	MaxIndicesPerSlashableVote  uint64
	ActivationExitDelay         uint64
	MinSeedLookahead            uint64
	MinDepositAmount            uint64
	MaxDepositAmount            uint64
	WhistleblowerRewardQuotient uint64
	MinValidatorWithdrawabilityDelay uint64
	EjectionBalance             uint64
	GenesisEpoch                Epoch
	GenesisSlot                 Slot
	GenesisStartShard           Shard
	GenesisForkVersion          uint32

	// Per-kind operation caps applied during block application.
	MaxProposerSlashings uint64
	MaxAttesterSlashings uint64
	MaxAttestations      uint64
	MaxDeposits          uint64
	MaxVoluntaryExits    uint64
	MaxTransfers         uint64

	// SecondsPerSlot is ambient wall-clock pacing; it has no bearing on the
	// pure state-transition function but is used by callers driving
	// process_slots off a genesis_time.
	SecondsPerSlot uint64
}

// Domain separation tags, combined with a fork version to produce a
// bls_domain value.
const (
	DomainDeposit     uint32 = 0
	DomainAttestation uint32 = 1
	DomainProposer    uint32 = 2
	DomainExit        uint32 = 3
	DomainRandao      uint32 = 4
	DomainTransfer    uint32 = 5
)

// FarFutureEpoch marks a lifecycle field that has not yet been set.
const FarFutureEpoch = Epoch(^uint64(0))

// DefaultConfig returns the mainnet-scale protocol constants.
func DefaultConfig() *Config {
	return &Config{
		SlotsPerEpoch:                    64,
		SlotsPerHistoricalRoot:           8192,
		LatestRandaoMixesLength:          8192,
		LatestActiveIndexRootsLength:     8192,
		LatestSlashedExitLength:          8192,
		ShardCount:                       1024,
		MaxIndicesPerSlashableVote:       4096,
		ActivationExitDelay:              4,
		MinSeedLookahead:                 1,
		MinDepositAmount:                 1_000_000_000,
		MaxDepositAmount:                 32_000_000_000,
		WhistleblowerRewardQuotient:      512,
		MinValidatorWithdrawabilityDelay: 256,
		EjectionBalance:                  16_000_000_000,
		GenesisEpoch:                     0,
		GenesisSlot:                      0,
		GenesisStartShard:                0,
		GenesisForkVersion:               0,
		MaxProposerSlashings:             16,
		MaxAttesterSlashings:             1,
		MaxAttestations:                  128,
		MaxDeposits:                      16,
		MaxVoluntaryExits:                16,
		MaxTransfers:                     16,
		SecondsPerSlot:                   6,
	}
}

// QuickConfig returns a small-scale configuration suitable for tests and
// local devnets: few shards, short epochs, fast finality.
func QuickConfig() *Config {
	c := DefaultConfig()
	c.SlotsPerEpoch = 4
	c.ShardCount = 8
	c.SlotsPerHistoricalRoot = 64
	c.LatestRandaoMixesLength = 64
	c.LatestActiveIndexRootsLength = 64
	c.LatestSlashedExitLength = 64
	c.SecondsPerSlot = 1
	return c
}

var (
	ErrConfigZeroSlotsPerEpoch = errors.New("config: slots per epoch must be > 0")
	ErrConfigZeroShardCount    = errors.New("config: shard count must be > 0")
	ErrConfigBadDepositBounds  = errors.New("config: min deposit amount exceeds max")
)

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.SlotsPerEpoch == 0 {
		return ErrConfigZeroSlotsPerEpoch
	}
	if c.ShardCount == 0 {
		return ErrConfigZeroShardCount
	}
	if c.MinDepositAmount > c.MaxDepositAmount {
		return ErrConfigBadDepositBounds
	}
	return nil
}
