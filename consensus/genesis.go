package consensus

// Genesis builds the initial BeaconState from the deposits observed in the
// eth1 deposit contract up to genesisEth1Data's deposit count (§6):
// validators whose accumulated deposit meets MaxDepositAmount are
// activated immediately rather than queued behind the activation-exit
// delay, and the shuffling fields are seeded so CrosslinkCommitteesAtSlot
// can resolve slot 0 without a prior epoch to read from.
func Genesis(deposits []*Deposit, genesisTime uint64, genesisEth1Data Eth1Data, cfg *Config) (*BeaconState, error) {
	state := NewEmptyState(cfg)
	state.Slot = cfg.GenesisSlot
	state.GenesisTime = genesisTime
	state.Fork = Fork{
		PreviousVersion: cfg.GenesisForkVersion,
		CurrentVersion:  cfg.GenesisForkVersion,
		Epoch:           cfg.GenesisEpoch,
	}
	state.LatestEth1Data = genesisEth1Data
	state.LatestBlockHeader = BlockHeader{
		Slot:     cfg.GenesisSlot,
		BodyRoot: Hash(blockBodyRoot(&BlockBody{})),
	}

	for _, d := range deposits {
		if err := ProcessDeposit(state, d, cfg); err != nil {
			return nil, err
		}
	}

	for _, v := range state.Validators {
		if v.ActivationEpoch == FarFutureEpoch {
			idx := indexOfValidator(state.Validators, v)
			if state.Balances[idx] >= Gwei(cfg.MaxDepositAmount) {
				v.ActivationEpoch = cfg.GenesisEpoch
				v.ExitEpoch = FarFutureEpoch
				v.WithdrawableEpoch = FarFutureEpoch
			}
		}
	}

	genesisActiveIndexRoot := activeIndexRoot(state.ActiveValidatorIndices(cfg.GenesisEpoch))
	for i := range state.LatestActiveIndexRoots {
		state.LatestActiveIndexRoots[i] = genesisActiveIndexRoot
	}

	seed := Seed(state, cfg.GenesisEpoch, cfg)
	state.CurrentShufflingEpoch = cfg.GenesisEpoch
	state.CurrentShufflingStartShard = cfg.GenesisStartShard
	state.CurrentShufflingSeed = seed
	state.PreviousShufflingEpoch = cfg.GenesisEpoch
	state.PreviousShufflingStartShard = cfg.GenesisStartShard
	state.PreviousShufflingSeed = seed

	return state, nil
}

func indexOfValidator(validators []*Validator, target *Validator) ValidatorIndex {
	for i, v := range validators {
		if v == target {
			return ValidatorIndex(i)
		}
	}
	return 0
}
