package consensus

import "testing"

func newValidator(activation, exit Epoch) *Validator {
	return &Validator{
		ActivationEpoch:   activation,
		ExitEpoch:         exit,
		WithdrawableEpoch: FarFutureEpoch,
	}
}

func TestActivateSetsDelayedActivationEpoch(t *testing.T) {
	cfg := QuickConfig()
	v := &Validator{ActivationEpoch: FarFutureEpoch}
	activate(v, 10, cfg)
	if want := Epoch(10) + 1 + Epoch(cfg.ActivationExitDelay); v.ActivationEpoch != want {
		t.Fatalf("ActivationEpoch = %d, want %d", v.ActivationEpoch, want)
	}
}

func TestExitValidatorSetsDelayedEpoch(t *testing.T) {
	cfg := QuickConfig()
	v := newValidator(0, FarFutureEpoch)

	exitValidator(v, 5, cfg)
	if want := delayedActivationExitEpoch(5, cfg); v.ExitEpoch != want {
		t.Fatalf("ExitEpoch = %d, want %d", v.ExitEpoch, want)
	}
}

func TestExitValidatorKeepsEarlierExit(t *testing.T) {
	cfg := QuickConfig()
	v := newValidator(0, 3)

	// An exit already scheduled at or before the delayed boundary must
	// not be pushed out by a later exit request.
	exitValidator(v, 5, cfg)
	if v.ExitEpoch != 3 {
		t.Fatalf("exitValidator moved an already-scheduled exit to %d, want unchanged 3", v.ExitEpoch)
	}
}

func TestInitiateExitIsIdempotent(t *testing.T) {
	cfg := QuickConfig()
	v := newValidator(0, FarFutureEpoch)

	initiateExit(v, 5, cfg)
	wantExit := delayedActivationExitEpoch(5, cfg)
	if !v.InitiatedExit || v.ExitEpoch != wantExit {
		t.Fatalf("first initiateExit: InitiatedExit=%v ExitEpoch=%d, want exit at %d", v.InitiatedExit, v.ExitEpoch, wantExit)
	}
	if want := wantExit + Epoch(cfg.MinValidatorWithdrawabilityDelay); v.WithdrawableEpoch != want {
		t.Fatalf("WithdrawableEpoch = %d, want %d", v.WithdrawableEpoch, want)
	}

	// A second call at a later epoch must not move an already-exiting
	// validator to a new exit epoch.
	initiateExit(v, 9, cfg)
	if v.ExitEpoch != wantExit {
		t.Fatalf("initiateExit moved an already-exiting validator's ExitEpoch to %d, want unchanged %d", v.ExitEpoch, wantExit)
	}
}

func TestSlashInitiatesExitAndExtendsWithdrawability(t *testing.T) {
	cfg := QuickConfig()
	v := newValidator(0, FarFutureEpoch)

	slash(v, 5, cfg)
	if !v.Slashed {
		t.Fatal("slash did not set Slashed")
	}
	if want := delayedActivationExitEpoch(5, cfg); !v.InitiatedExit || v.ExitEpoch != want {
		t.Fatalf("slash did not schedule the exit: InitiatedExit=%v ExitEpoch=%d, want %d", v.InitiatedExit, v.ExitEpoch, want)
	}
	want := Epoch(5) + Epoch(cfg.LatestSlashedExitLength)
	if v.WithdrawableEpoch != want {
		t.Fatalf("WithdrawableEpoch = %d, want %d", v.WithdrawableEpoch, want)
	}
}

func TestSlashNeverShortensAnExistingLongerLockup(t *testing.T) {
	cfg := QuickConfig()
	v := newValidator(0, FarFutureEpoch)
	v.WithdrawableEpoch = 10_000

	slash(v, 5, cfg)
	if v.WithdrawableEpoch != 10_000 {
		t.Fatalf("slash shortened WithdrawableEpoch to %d, want unchanged 10000", v.WithdrawableEpoch)
	}
}

func TestIsSlashable(t *testing.T) {
	v := newValidator(5, 20)
	v.WithdrawableEpoch = 20
	cases := []struct {
		epoch Epoch
		want  bool
	}{
		{4, false},  // not yet active
		{5, true},   // activation boundary, inclusive
		{19, true},  // still within withdrawable boundary, exclusive
		{20, false}, // withdrawable boundary, exclusive
	}
	for _, c := range cases {
		if got := isSlashable(v, c.epoch); got != c.want {
			t.Errorf("isSlashable(epoch=%d) = %v, want %v", c.epoch, got, c.want)
		}
	}

	slashed := newValidator(5, 20)
	slashed.Slashed = true
	if isSlashable(slashed, 10) {
		t.Fatal("an already-slashed validator must not be slashable again")
	}
}

func TestActiveValidatorIndicesPreservesOrder(t *testing.T) {
	validators := []*Validator{
		newValidator(0, FarFutureEpoch),
		newValidator(10, FarFutureEpoch), // not yet active at epoch 5
		newValidator(0, FarFutureEpoch),
	}
	got := activeValidatorIndices(validators, 5)
	want := []ValidatorIndex{0, 2}
	if len(got) != len(want) {
		t.Fatalf("activeValidatorIndices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("activeValidatorIndices = %v, want %v", got, want)
		}
	}
}

func TestTotalEffectiveBalanceCaps(t *testing.T) {
	cfg := QuickConfig()
	balances := []Gwei{Gwei(cfg.MaxDepositAmount) * 2, Gwei(cfg.MaxDepositAmount) / 2}
	indices := []ValidatorIndex{0, 1}

	got := totalEffectiveBalance(indices, balances, cfg)
	want := EffectiveBalance(balances[0], cfg) + EffectiveBalance(balances[1], cfg)
	if got != want {
		t.Fatalf("totalEffectiveBalance = %d, want %d", got, want)
	}
	if got >= balances[0]+balances[1] {
		t.Fatal("totalEffectiveBalance did not apply the effective-balance cap to the oversized deposit")
	}
}
