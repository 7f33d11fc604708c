package lending

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

type mockEngineState struct {
	owners     map[string]nativecommon.OwnerState
	markets    map[string]*Market
	collateral map[string]map[string]*Collateral
	debts      map[string]map[string]*Debt
	cfg        *Config
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		owners:     map[string]nativecommon.OwnerState{},
		markets:    map[string]*Market{},
		collateral: map[string]map[string]*Collateral{},
		debts:      map[string]map[string]*Debt{},
	}
}

func (m *mockEngineState) ModuleOwner(module string) (nativecommon.OwnerState, error) {
	return m.owners[module], nil
}

func (m *mockEngineState) SetModuleOwner(module string, owner nativecommon.OwnerState) error {
	m.owners[module] = owner
	return nil
}

func (m *mockEngineState) Market(denom string) (*Market, bool, error) {
	market, ok := m.markets[denom]
	if !ok {
		return nil, false, nil
	}
	return market.Clone(), true, nil
}

func (m *mockEngineState) PutMarket(market *Market) error {
	m.markets[market.Denom] = market.Clone()
	return nil
}

func (m *mockEngineState) MarketDenoms() ([]string, error) {
	out := make([]string, 0, len(m.markets))
	for denom := range m.markets {
		out = append(out, denom)
	}
	return out, nil
}

func (m *mockEngineState) Collateral(user types.Identity, denom string) (*Collateral, bool, error) {
	entry, ok := m.collateral[user.Key()][denom]
	if !ok {
		return nil, false, nil
	}
	return &Collateral{AmountScaled: new(big.Int).Set(entry.AmountScaled), Enabled: entry.Enabled}, true, nil
}

func (m *mockEngineState) PutCollateral(user types.Identity, denom string, entry *Collateral) error {
	if m.collateral[user.Key()] == nil {
		m.collateral[user.Key()] = map[string]*Collateral{}
	}
	m.collateral[user.Key()][denom] = &Collateral{AmountScaled: new(big.Int).Set(entry.AmountScaled), Enabled: entry.Enabled}
	return nil
}

func (m *mockEngineState) DeleteCollateral(user types.Identity, denom string) error {
	delete(m.collateral[user.Key()], denom)
	return nil
}

func (m *mockEngineState) CollateralDenoms(user types.Identity) ([]string, error) {
	out := make([]string, 0)
	for denom := range m.collateral[user.Key()] {
		out = append(out, denom)
	}
	return out, nil
}

func (m *mockEngineState) Debt(user types.Identity, denom string) (*Debt, bool, error) {
	entry, ok := m.debts[user.Key()][denom]
	if !ok {
		return nil, false, nil
	}
	return &Debt{AmountScaled: new(big.Int).Set(entry.AmountScaled), Uncollateralized: entry.Uncollateralized}, true, nil
}

func (m *mockEngineState) PutDebt(user types.Identity, denom string, entry *Debt) error {
	if m.debts[user.Key()] == nil {
		m.debts[user.Key()] = map[string]*Debt{}
	}
	m.debts[user.Key()][denom] = &Debt{AmountScaled: new(big.Int).Set(entry.AmountScaled), Uncollateralized: entry.Uncollateralized}
	return nil
}

func (m *mockEngineState) DeleteDebt(user types.Identity, denom string) error {
	delete(m.debts[user.Key()], denom)
	return nil
}

func (m *mockEngineState) DebtDenoms(user types.Identity) ([]string, error) {
	out := make([]string, 0)
	for denom := range m.debts[user.Key()] {
		out = append(out, denom)
	}
	return out, nil
}

func (m *mockEngineState) LendingConfig() (*Config, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	cfg := *m.cfg
	return &cfg, true, nil
}

func (m *mockEngineState) PutLendingConfig(cfg *Config) error {
	copied := *cfg
	m.cfg = &copied
	return nil
}

type mockBank struct {
	balances map[string]map[string]*big.Int
}

func newMockBank() *mockBank { return &mockBank{balances: map[string]map[string]*big.Int{}} }

func (b *mockBank) Balance(addr, denom string) (*big.Int, error) {
	return numeric.IntOrZero(b.balances[addr][denom]), nil
}

func (b *mockBank) mint(addr string, coin types.Coin) {
	if b.balances[addr] == nil {
		b.balances[addr] = map[string]*big.Int{}
	}
	b.balances[addr][coin.Denom] = new(big.Int).Add(numeric.IntOrZero(b.balances[addr][coin.Denom]), coin.Amount)
}

func (b *mockBank) Send(from, to string, coin types.Coin) error {
	have := numeric.IntOrZero(b.balances[from][coin.Denom])
	if have.Cmp(coin.Amount) < 0 {
		return fmt.Errorf("insufficient funds: %s has %s, needs %s", from, have, coin)
	}
	b.balances[from][coin.Denom] = have.Sub(have, coin.Amount)
	b.mint(to, coin)
	return nil
}

type mockOracle struct {
	prices map[string]numeric.Decimal
}

func (o *mockOracle) Price(denom string, _ oracle.ActionKind) (numeric.Decimal, error) {
	price, ok := o.prices[denom]
	if !ok {
		return numeric.Decimal{}, fmt.Errorf("%w: %s", oracle.ErrPriceNotFound, denom)
	}
	return price, nil
}

type mockParams struct {
	assets map[string]*params.AssetParams
}

func (p *mockParams) MaybeAssetParams(denom string) (*params.AssetParams, error) {
	return p.assets[denom], nil
}

type balanceChange struct {
	user        string
	denom       string
	userBefore  *big.Int
	totalBefore *big.Int
}

type recordingHook struct {
	changes []balanceChange
}

func (h *recordingHook) BalanceChange(user types.Identity, denom string, userBefore, totalBefore *big.Int) error {
	h.changes = append(h.changes, balanceChange{user: user.Key(), denom: denom, userBefore: userBefore, totalBefore: totalBefore})
	return nil
}

type stubPauseView struct {
	modules map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool { return s.modules[module] }

const (
	testModule  = "pool"
	testOwner   = "owner"
	testRewards = "rewards"
	testCM      = "credit-manager"
)

type fixture struct {
	engine *Engine
	state  *mockEngineState
	bank   *mockBank
	oracle *mockOracle
	params *mockParams
	hook   *recordingHook
}

func dec(s string) numeric.Decimal { return numeric.MustParseDecimal(s) }

func testAsset(denom string) *params.AssetParams {
	return &params.AssetParams{
		Denom:                  denom,
		MaxLTV:                 dec("0.6"),
		LiquidationThreshold:   dec("0.7"),
		LiquidationBonus:       params.LiquidationBonus{StartingLB: dec("0.01"), Slope: dec("2"), MinLB: numeric.Zero(), MaxLB: dec("0.1")},
		ProtocolLiquidationFee: dec("0.2"),
		Whitelisted:            true,
		BorrowEnabled:          true,
		DepositEnabled:         true,
	}
}

func flatRate(rate string) InterestRateModel {
	return InterestRateModel{OptimalUtilizationRate: dec("0.8"), Base: dec(rate), Slope1: numeric.Zero(), Slope2: numeric.Zero()}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine: NewEngine(testModule),
		state:  newMockEngineState(),
		bank:   newMockBank(),
		oracle: &mockOracle{prices: map[string]numeric.Decimal{"uosmo": numeric.One(), "uatom": numeric.One()}},
		params: &mockParams{assets: map[string]*params.AssetParams{"uosmo": testAsset("uosmo"), "uatom": testAsset("uatom")}},
		hook:   &recordingHook{},
	}
	f.state.owners[ModuleName] = nativecommon.NewOwnerState(testOwner)
	f.engine.SetState(f.state)
	f.engine.SetBank(f.bank)
	f.engine.SetOracle(f.oracle)
	f.engine.SetParams(f.params)
	f.engine.SetIncentives(f.hook)
	if err := f.engine.UpdateConfig(testOwner, Config{RewardsCollector: testRewards, CreditManager: testCM, CloseFactor: dec("0.5")}); err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, denom := range []string{"uosmo", "uatom"} {
		if err := f.engine.InitAsset(testOwner, denom, MarketParams{ReserveFactor: dec("0.1"), InterestRateModel: flatRate("0.1")}); err != nil {
			t.Fatalf("init %s: %v", denom, err)
		}
	}
	return f
}

// deposit moves coins to the pool and credits them, like the dispatcher does.
func (f *fixture) deposit(t *testing.T, sender string, coin types.Coin) {
	t.Helper()
	f.bank.mint(testModule, coin)
	if _, err := f.engine.Deposit(sender, types.Identity{}, coin); err != nil {
		t.Fatalf("deposit %s for %s: %v", coin, sender, err)
	}
}

func (f *fixture) collateral(t *testing.T, user string, denom string) *big.Int {
	t.Helper()
	c, err := f.engine.UserCollateral(types.NewIdentity(user), denom)
	if err != nil {
		t.Fatalf("collateral: %v", err)
	}
	return c.Amount
}

func (f *fixture) debt(t *testing.T, user string, denom string) *big.Int {
	t.Helper()
	d, err := f.engine.UserDebt(types.NewIdentity(user), denom)
	if err != nil {
		t.Fatalf("debt: %v", err)
	}
	return d.Amount
}
