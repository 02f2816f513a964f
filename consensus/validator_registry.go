package consensus

// delayedActivationExitEpoch returns the earliest epoch a lifecycle change
// initiated during epoch can take effect: one epoch plus the
// activation-exit delay ahead, so the committee shuffling for the affected
// epoch is already fixed by the time the change lands.
func delayedActivationExitEpoch(epoch Epoch, cfg *Config) Epoch {
	return epoch + 1 + Epoch(cfg.ActivationExitDelay)
}

// activate moves a pending validator into the active set as of the
// delayed activation-exit boundary relative to the current epoch.
func activate(v *Validator, epoch Epoch, cfg *Config) {
	v.ActivationEpoch = delayedActivationExitEpoch(epoch, cfg)
}

// exitValidator schedules a validator's exit at the delayed
// activation-exit boundary. An exit epoch already at or before that
// boundary is left alone.
func exitValidator(v *Validator, currentEpoch Epoch, cfg *Config) {
	delayed := delayedActivationExitEpoch(currentEpoch, cfg)
	if v.ExitEpoch <= delayed {
		return
	}
	v.ExitEpoch = delayed
}

// initiateExit marks a validator as exiting, schedules the exit, and sets
// the withdrawable epoch the ordinary withdrawability delay past it.
func initiateExit(v *Validator, currentEpoch Epoch, cfg *Config) {
	if v.InitiatedExit {
		return
	}
	v.InitiatedExit = true
	exitValidator(v, currentEpoch, cfg)
	v.WithdrawableEpoch = v.ExitEpoch + Epoch(cfg.MinValidatorWithdrawabilityDelay)
}

// slash marks a validator slashed, immediately exits it if it has not
// already begun exiting, and places its withdrawable epoch at the
// slashed-validator lockup -- unless an existing lockup already extends
// further. The caller is responsible for crediting the whistleblower and
// debiting the slashed balance.
func slash(v *Validator, currentEpoch Epoch, cfg *Config) {
	if !v.InitiatedExit {
		v.InitiatedExit = true
		exitValidator(v, currentEpoch, cfg)
	}
	v.Slashed = true
	withdrawable := currentEpoch + Epoch(cfg.LatestSlashedExitLength)
	if v.WithdrawableEpoch == FarFutureEpoch || v.WithdrawableEpoch < withdrawable {
		v.WithdrawableEpoch = withdrawable
	}
}

// isSlashable reports whether a validator can still be the subject of a
// slashing: it must not already be slashed, and must not yet be
// withdrawable.
func isSlashable(v *Validator, epoch Epoch) bool {
	return !v.Slashed && v.ActivationEpoch <= epoch && epoch < v.WithdrawableEpoch
}

// activeValidatorIndices returns, in registry order, the indices of
// every validator active at the given epoch.
func activeValidatorIndices(validators []*Validator, epoch Epoch) []ValidatorIndex {
	indices := make([]ValidatorIndex, 0, len(validators))
	for i, v := range validators {
		if v.IsActive(epoch) {
			indices = append(indices, ValidatorIndex(i))
		}
	}
	return indices
}

// totalEffectiveBalance sums EffectiveBalance across a set of validator
// indices using the state's recorded balances.
func totalEffectiveBalance(indices []ValidatorIndex, balances []Gwei, cfg *Config) Gwei {
	var total Gwei
	for _, idx := range indices {
		total += EffectiveBalance(balances[idx], cfg)
	}
	return total
}
