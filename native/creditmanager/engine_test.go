package creditmanager

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func TestCreateCreditAccountAssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	first, err := f.engine.CreateCreditAccount("alice", health.DefaultKind())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := f.engine.CreateCreditAccount("alice", health.HLSKind())
	if err != nil {
		t.Fatalf("create hls: %v", err)
	}
	if first != "1" || second != "2" {
		t.Fatalf("unexpected ids %s %s", first, second)
	}
	accounts, err := f.engine.AccountsOf("alice")
	if err != nil {
		t.Fatalf("accounts of: %v", err)
	}
	if len(accounts) != 2 || !accounts[1].Kind.IsHLS() {
		t.Fatalf("unexpected accounts %+v", accounts)
	}
	total, err := f.engine.TotalAccounts()
	if err != nil || total != 2 {
		t.Fatalf("total accounts %d err %v", total, err)
	}
	if _, err := f.engine.CreateCreditAccount("alice", health.AccountKind{Type: health.AccountFundManager}); !errors.Is(err, health.ErrInvalidAccountKind) {
		t.Fatalf("expected invalid kind, got %v", err)
	}
}

func TestUpdateCreditAccountCreatesAccountWhenIDEmpty(t *testing.T) {
	f := newFixture(t)
	emitter := &captureEmitter{}
	f.engine.SetEmitter(emitter)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 100)), deposit("uosmo", 100))
	if id != "1" {
		t.Fatalf("expected id 1, got %s", id)
	}
	if got := f.ledger(t, id).Deposits.AmountOf("uosmo"); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("deposit not recorded: %s", got)
	}
	var updated bool
	for _, evt := range emitter.events {
		if u, ok := evt.(events.CreditAccountUpdated); ok && u.AccountID == id {
			updated = true
		}
	}
	if !updated {
		t.Fatalf("missing update event in %+v", emitter.events)
	}
}

func TestUpdateCreditAccountRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", nil)
	if _, err := f.update("bob", id, nil, Withdraw{Coin: BalanceCoin("uosmo")}); !errors.Is(err, ErrNotAccountOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}

func TestDepositFundsMustMatch(t *testing.T) {
	f := newFixture(t)
	if _, err := f.update("alice", "", coins(types.NewCoin("uosmo", 50)), deposit("uosmo", 100)); !errors.Is(err, ErrFundsMismatch) {
		t.Fatalf("expected funds mismatch, got %v", err)
	}
	if _, err := f.update("alice", "", coins(types.NewCoin("uosmo", 150)), deposit("uosmo", 100)); !errors.Is(err, ErrExtraFundsReceived) {
		t.Fatalf("expected extra funds, got %v", err)
	}
	f.params.assets["uosmo"].Whitelisted = false
	if _, err := f.update("alice", "", coins(types.NewCoin("uosmo", 100)), deposit("uosmo", 100)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected not whitelisted, got %v", err)
	}
}

func TestDepositCapCheckedAfterBatch(t *testing.T) {
	f := newFixture(t)
	f.params.assets["uatom"].DepositCap = big.NewInt(100)

	_, err := f.update("alice", "", coins(types.NewCoin("uatom", 101)), deposit("uatom", 101))
	var capErr *lending.DepositCapExceededError
	if !errors.As(err, &capErr) || capErr.Denom != "uatom" {
		t.Fatalf("expected uatom cap error, got %v", err)
	}
	f.bank.balances[testCM]["uatom"] = big.NewInt(0)

	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uatom", 101)),
		deposit("uatom", 101),
		SwapExactIn{Coin: BalanceCoin("uatom"), DenomOut: "uosmo", Slippage: dec("0.01")},
	)
	l := f.ledger(t, id)
	if l.Deposits.AmountOf("uatom").Sign() != 0 || l.Deposits.AmountOf("uosmo").Cmp(big.NewInt(101)) != 0 {
		t.Fatalf("unexpected deposits after swap: %s", l.Deposits)
	}
}

func TestBorrowAboveMaxLTVRejected(t *testing.T) {
	// the mocks are not transactional, so the failing batch runs on its own fixture
	failing := newFixture(t)
	_, err := failing.update("alice", "", coins(types.NewCoin("uosmo", 1000)),
		deposit("uosmo", 1000),
		Borrow{Coin: types.NewCoin("uatom", 601)},
		Withdraw{Coin: BalanceCoin("uatom")},
	)
	if !errors.Is(err, ErrAboveMaxLTV) {
		t.Fatalf("expected above max ltv, got %v", err)
	}

	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 1000)), deposit("uosmo", 1000))
	f.mustUpdate(t, "alice", id, nil,
		Borrow{Coin: types.NewCoin("uatom", 600)},
		Withdraw{Coin: BalanceCoin("uatom")},
	)
	if got := f.bank.balances["alice"]["uatom"]; got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("owner should receive 600 uatom, got %s", got)
	}
	vals, err := f.engine.Health(id, oracle.ActionDefault)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if vals.AboveMaxLTV || vals.TotalDebtValue.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("unexpected health %+v", vals)
	}
}

func TestFailedBatchLeavesLedgerUntouched(t *testing.T) {
	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 1000)), deposit("uosmo", 1000))
	if _, err := f.update("alice", id, nil, Withdraw{Coin: ExactCoin(types.NewCoin("uosmo", 1001))}); !errors.Is(err, ErrInsufficientDeposit) {
		t.Fatalf("expected insufficient deposit, got %v", err)
	}
	if got := f.ledger(t, id).Deposits.AmountOf("uosmo"); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("ledger mutated by failed batch: %s", got)
	}
}

func TestRepayCapsAtDebtAndLendReclaim(t *testing.T) {
	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 1000)),
		deposit("uosmo", 1000),
		Borrow{Coin: types.NewCoin("uatom", 100)},
	)
	f.mustUpdate(t, "alice", id, coins(types.NewCoin("uatom", 50)),
		deposit("uatom", 50),
		Repay{Coin: BalanceCoin("uatom")},
	)
	positions, err := f.engine.Positions(id)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if positions.HasDebt() {
		t.Fatalf("debt should be repaid: %+v", positions.Debts)
	}
	if got := positions.Deposits.AmountOf("uatom"); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected 50 uatom left, got %s", got)
	}
	if _, err := f.update("alice", id, nil, Repay{Coin: BalanceCoin("uatom")}); !errors.Is(err, ErrNoDebtInDenom) {
		t.Fatalf("expected no debt, got %v", err)
	}

	f.mustUpdate(t, "alice", id, nil, Lend{Coin: ExactCoin(types.NewCoin("uosmo", 400))})
	positions, _ = f.engine.Positions(id)
	if got := positions.Lends.AmountOf("uosmo"); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected 400 lent, got %s", got)
	}
	if _, err := f.update("alice", id, nil, Reclaim{Coin: ExactCoin(types.NewCoin("uosmo", 401))}); !errors.Is(err, ErrInsufficientDeposit) {
		t.Fatalf("expected reclaim overflow, got %v", err)
	}
	f.mustUpdate(t, "alice", id, nil, Reclaim{Coin: BalanceCoin("uosmo")})
	positions, _ = f.engine.Positions(id)
	if positions.Lends.AmountOf("uosmo").Sign() != 0 || positions.Deposits.AmountOf("uosmo").Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected positions after reclaim: %+v", positions)
	}
}

func TestHLSAccountRejectsUncorrelatedLend(t *testing.T) {
	f := newFixture(t)
	f.oracle.prices["stuatom"] = dec("1")
	st := testAsset("stuatom")
	st.Hls = &params.HlsParams{MaxLTV: dec("0.8"), LiquidationThreshold: dec("0.85")}
	f.params.assets["stuatom"] = st
	f.params.assets["uatom"].Hls = &params.HlsParams{
		MaxLTV:               dec("0.8"),
		LiquidationThreshold: dec("0.85"),
		Correlations:         params.Correlations{params.HlsCoin{Denom: "stuatom"}},
	}
	id, err := f.engine.CreateCreditAccount("alice", health.HLSKind())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.mustUpdate(t, "alice", id, coins(types.NewCoin("stuatom", 1000), types.NewCoin("uosmo", 100)),
		deposit("stuatom", 1000),
		deposit("uosmo", 100),
		Borrow{Coin: types.NewCoin("uatom", 100)},
	)
	_, err = f.update("alice", id, nil, Lend{Coin: BalanceCoin("uosmo")})
	var hlsErr *health.HLSRuleViolationError
	if !errors.As(err, &hlsErr) {
		t.Fatalf("expected hls violation, got %v", err)
	}
}

func TestHLSAccountAllowsCorrelatedLend(t *testing.T) {
	f := newFixture(t)
	f.oracle.prices["stuatom"] = dec("1")
	st := testAsset("stuatom")
	st.Hls = &params.HlsParams{MaxLTV: dec("0.8"), LiquidationThreshold: dec("0.85")}
	f.params.assets["stuatom"] = st
	f.params.assets["uatom"].Hls = &params.HlsParams{
		MaxLTV:               dec("0.8"),
		LiquidationThreshold: dec("0.85"),
		Correlations:         params.Correlations{params.HlsCoin{Denom: "stuatom"}},
	}
	id, err := f.engine.CreateCreditAccount("alice", health.HLSKind())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.mustUpdate(t, "alice", id, coins(types.NewCoin("stuatom", 1000)),
		deposit("stuatom", 1000),
		Borrow{Coin: types.NewCoin("uatom", 100)},
		Lend{Coin: ExactCoin(types.NewCoin("stuatom", 500))},
	)
	vals, err := f.engine.Health(id, oracle.ActionDefault)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	// 1100 collateral at the hls max ltv of 0.8
	if vals.MaxLTVAdjustedCollateral.Cmp(big.NewInt(880)) != 0 {
		t.Fatalf("unexpected max ltv collateral %s", vals.MaxLTVAdjustedCollateral)
	}
}

func TestSlippageAboveMaxRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.update("alice", "", coins(types.NewCoin("uatom", 100)),
		deposit("uatom", 100),
		SwapExactIn{Coin: BalanceCoin("uatom"), DenomOut: "uosmo", Slippage: dec("0.11")},
	)
	if !errors.Is(err, ErrSlippageExceedsMax) {
		t.Fatalf("expected slippage error, got %v", err)
	}
	_, err = f.update("alice", "", coins(types.NewCoin("uatom", 100)),
		deposit("uatom", 100),
		SwapExactIn{Coin: BalanceCoin("uatom"), DenomOut: "unknown", Slippage: dec("0.01")},
	)
	if !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected denom out whitelist error, got %v", err)
	}
}

func TestCallbackReentrancyRejected(t *testing.T) {
	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uatom", 100)), deposit("uatom", 100))
	f.swapper.hook = func() error {
		_, err := f.engine.UpdateCreditAccount("alice", id, Actions{Withdraw{Coin: BalanceCoin("uosmo")}}, nil)
		return err
	}
	_, err := f.update("alice", id, nil, SwapExactIn{Coin: BalanceCoin("uatom"), DenomOut: "uosmo", Slippage: dec("0.01")})
	if !errors.Is(err, ErrReentrancy) {
		t.Fatalf("expected reentrancy, got %v", err)
	}
}

func TestPausedManagerRejectsUpdates(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPauses(pausedView{})
	if _, err := f.update("alice", "", nil); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
}

func TestStakeAndUnstakeLp(t *testing.T) {
	f := newFixture(t)
	id := f.mustUpdate(t, "alice", "", coins(types.NewCoin("ulp", 100)),
		deposit("ulp", 100),
		StakeAstroLp{LpToken: BalanceCoin("ulp")},
	)
	if got := f.ledger(t, id).StakedLps.AmountOf("ulp"); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 staked, got %s", got)
	}

	f.mustUpdate(t, "alice", id, nil, UnstakeAstroLp{LpToken: ExactCoin(types.NewCoin("ulp", 50))})
	l := f.ledger(t, id)
	if l.Deposits.AmountOf("ulp").Cmp(big.NewInt(50)) != 0 || l.StakedLps.AmountOf("ulp").Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected ledger after partial unstake: %+v", l)
	}

	f.staker.pending[stakeKey(id, "ulp")] = coins(types.NewCoin("umars", 7))
	f.mustUpdate(t, "alice", id, nil, UnstakeAstroLp{LpToken: BalanceCoin("ulp")})
	l = f.ledger(t, id)
	if l.Deposits.AmountOf("ulp").Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100 ulp deposited, got %s", l.Deposits)
	}
	if l.Deposits.AmountOf("umars").Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected rewards credited, got %s", l.Deposits)
	}
	if !l.StakedLps.IsZero() {
		t.Fatalf("expected nothing staked, got %s", l.StakedLps)
	}
}

func TestBurnCreditAccount(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.UpdateConfig(testOwner, Config{MaxUnlockingPositions: 10, MaxSlippage: dec("0.1"), MaxValueForBurn: big.NewInt(1000)}); err != nil {
		t.Fatalf("update config: %v", err)
	}
	rich := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 1001)), deposit("uosmo", 1001))
	var burnErr *BurnNotAllowedError
	if err := f.engine.BurnCreditAccount("alice", rich); !errors.As(err, &burnErr) || burnErr.Reason != BurnReasonCollateralExceeds {
		t.Fatalf("expected collateral exceeds, got %v", err)
	}

	indebted := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 500)),
		deposit("uosmo", 500),
		Borrow{Coin: types.NewCoin("uatom", 10)},
	)
	if err := f.engine.BurnCreditAccount("alice", indebted); !errors.As(err, &burnErr) || burnErr.Reason != BurnReasonHasDebt {
		t.Fatalf("expected has debt, got %v", err)
	}

	dust := f.mustUpdate(t, "alice", "", coins(types.NewCoin("uosmo", 1000)),
		deposit("uosmo", 1000),
		Lend{Coin: ExactCoin(types.NewCoin("uosmo", 400))},
	)
	if err := f.engine.BurnCreditAccount("bob", dust); !errors.Is(err, ErrNotAccountOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := f.engine.BurnCreditAccount("alice", dust); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := f.engine.Account(dust); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account should be gone, got %v", err)
	}
	if got := f.bank.balances[testRewards]["uosmo"]; got == nil || got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("rewards collector should hold swept 1000 uosmo, got %v", got)
	}
	accounts, _ := f.engine.AccountsOf("alice")
	if len(accounts) != 2 {
		t.Fatalf("expected 2 remaining accounts, got %d", len(accounts))
	}
}

func TestUpdateConfigRequiresOwner(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.UpdateConfig("alice", DefaultConfig()); !errors.Is(err, nativecommon.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := f.engine.UpdateConfig(testOwner, Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestNilStateReturnsError(t *testing.T) {
	e := NewEngine(testCM)
	if _, err := e.CreateCreditAccount("alice", health.DefaultKind()); !errors.Is(err, errNilState) {
		t.Fatalf("expected nil state error, got %v", err)
	}
}
