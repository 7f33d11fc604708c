package incentives

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

type rewardKey struct {
	user       string
	collateral string
	incentive  string
}

type mockState struct {
	owners    map[string]nativecommon.OwnerState
	schedules map[string]*Schedule
	indexes   map[rewardKey]numeric.Decimal
	unclaimed map[rewardKey]*big.Int
	whitelist map[string]bool
}

func newMockState() *mockState {
	return &mockState{
		owners:    map[string]nativecommon.OwnerState{ModuleName: nativecommon.NewOwnerState("owner")},
		schedules: map[string]*Schedule{},
		indexes:   map[rewardKey]numeric.Decimal{},
		unclaimed: map[rewardKey]*big.Int{},
		whitelist: map[string]bool{},
	}
}

func (m *mockState) ModuleOwner(module string) (nativecommon.OwnerState, error) {
	return m.owners[module], nil
}

func (m *mockState) SetModuleOwner(module string, owner nativecommon.OwnerState) error {
	m.owners[module] = owner
	return nil
}

func (m *mockState) IncentiveSchedule(collateral, incentive string) (*Schedule, bool, error) {
	s, ok := m.schedules[collateral+"/"+incentive]
	return s.Clone(), ok, nil
}

func (m *mockState) PutIncentiveSchedule(s *Schedule) error {
	m.schedules[s.CollateralDenom+"/"+s.IncentiveDenom] = s.Clone()
	return nil
}

func (m *mockState) IncentiveSchedules() ([]*Schedule, error) {
	out := make([]*Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *mockState) UserIncentiveIndex(user types.Identity, collateral, incentive string) (numeric.Decimal, bool, error) {
	idx, ok := m.indexes[rewardKey{user.Key(), collateral, incentive}]
	return idx, ok, nil
}

func (m *mockState) PutUserIncentiveIndex(user types.Identity, collateral, incentive string, index numeric.Decimal) error {
	m.indexes[rewardKey{user.Key(), collateral, incentive}] = index
	return nil
}

func (m *mockState) UnclaimedRewards(user types.Identity, collateral, incentive string) (*big.Int, error) {
	return numeric.IntOrZero(m.unclaimed[rewardKey{user.Key(), collateral, incentive}]), nil
}

func (m *mockState) PutUnclaimedRewards(user types.Identity, collateral, incentive string, amount *big.Int) error {
	m.unclaimed[rewardKey{user.Key(), collateral, incentive}] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) IncentiveWhitelisted(denom string) (bool, error) { return m.whitelist[denom], nil }

func (m *mockState) SetIncentiveWhitelisted(denom string, listed bool) error {
	if listed {
		m.whitelist[denom] = true
	} else {
		delete(m.whitelist, denom)
	}
	return nil
}

func (m *mockState) IncentiveWhitelist() ([]string, error) {
	out := make([]string, 0, len(m.whitelist))
	for denom := range m.whitelist {
		out = append(out, denom)
	}
	return out, nil
}

// mockPool tracks scaled collateral and notifies the ledger like the pool
// engine does.
type mockPool struct {
	ledger *Engine
	users  map[string]*big.Int
	total  *big.Int
}

func (p *mockPool) TotalCollateralScaled(string) (*big.Int, error) {
	return new(big.Int).Set(p.total), nil
}

func (p *mockPool) UserCollateralScaled(user types.Identity, _ string) (*big.Int, error) {
	return numeric.IntOrZero(p.users[user.Key()]), nil
}

func (p *mockPool) change(t *testing.T, user string, delta int64) {
	t.Helper()
	id := types.NewIdentity(user)
	before := numeric.IntOrZero(p.users[user])
	if err := p.ledger.BalanceChange(id, "uosmo", before, p.total); err != nil {
		t.Fatalf("balance change: %v", err)
	}
	p.users[user] = before.Add(before, big.NewInt(delta))
	p.total = new(big.Int).Add(p.total, big.NewInt(delta))
}

type mockBank struct {
	sent map[string]*big.Int
}

func (b *mockBank) Send(_, to string, coin types.Coin) error {
	if b.sent == nil {
		b.sent = map[string]*big.Int{}
	}
	b.sent[to+"/"+coin.Denom] = new(big.Int).Add(numeric.IntOrZero(b.sent[to+"/"+coin.Denom]), coin.Amount)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *mockPool, *mockBank) {
	t.Helper()
	state := newMockState()
	engine := NewEngine("incentives")
	engine.SetState(state)
	pool := &mockPool{ledger: engine, users: map[string]*big.Int{}, total: big.NewInt(0)}
	bank := &mockBank{}
	engine.SetCollateralSource(pool)
	engine.SetBank(bank)
	if err := engine.UpdateWhitelist("owner", []string{"umars"}, nil); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	return engine, state, pool, bank
}

func setIncentive(t *testing.T, e *Engine, emission int64, start, duration uint64) {
	t.Helper()
	funds := types.Coins{types.NewCoinBig("umars", new(big.Int).Mul(big.NewInt(emission), new(big.Int).SetUint64(duration)))}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(emission), start, duration, funds); err != nil {
		t.Fatalf("set incentive: %v", err)
	}
}

func TestRewardsSplitByScaledShare(t *testing.T) {
	e, _, pool, bank := newTestEngine(t)
	setIncentive(t, e, 100, 0, 1000)
	pool.change(t, "alice", 300)
	pool.change(t, "bob", 100)

	e.SetBlockTime(100)
	claimed, err := e.ClaimRewards(types.NewIdentity("alice"), "")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := claimed.AmountOf("umars"); got.Cmp(big.NewInt(7500)) != 0 {
		t.Fatalf("alice claimed %s", got)
	}
	if got := bank.sent["alice/umars"]; got.Cmp(big.NewInt(7500)) != 0 {
		t.Fatalf("alice paid %s", got)
	}
	rewards, err := e.UserUnclaimedRewards(types.NewIdentity("bob"))
	if err != nil {
		t.Fatalf("unclaimed: %v", err)
	}
	if len(rewards) != 1 || rewards[0].Unclaimed.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("bob unclaimed %+v", rewards)
	}
}

func TestLateDepositorEarnsOnlyAfterJoining(t *testing.T) {
	e, _, pool, _ := newTestEngine(t)
	setIncentive(t, e, 10, 0, 1000)
	pool.change(t, "alice", 100)
	e.SetBlockTime(500)
	pool.change(t, "bob", 100)
	e.SetBlockTime(2000)

	alice, err := e.ClaimRewards(types.NewIdentity("alice"), "")
	if err != nil {
		t.Fatalf("claim alice: %v", err)
	}
	bob, err := e.ClaimRewards(types.NewIdentity("bob"), "")
	if err != nil {
		t.Fatalf("claim bob: %v", err)
	}
	// 5000 to alice alone, then 5000 split evenly; nothing after the window.
	if got := alice.AmountOf("umars"); got.Cmp(big.NewInt(7500)) != 0 {
		t.Fatalf("alice claimed %s", got)
	}
	if got := bob.AmountOf("umars"); got.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("bob claimed %s", got)
	}
	again, err := e.ClaimRewards(types.NewIdentity("alice"), "")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected nothing left, got %s", again)
	}
}

func TestNoEmissionWithoutCollateral(t *testing.T) {
	e, state, pool, _ := newTestEngine(t)
	setIncentive(t, e, 10, 0, 1000)
	e.SetBlockTime(400)
	pool.change(t, "alice", 50)
	if idx := state.schedules["uosmo/umars"].Index; !idx.IsZero() {
		t.Fatalf("index moved with empty pool: %s", idx)
	}
}

func TestSetAssetIncentiveValidation(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	e.SetBlockTime(50)
	funds := types.Coins{types.NewCoin("umars", 1000)}
	if err := e.SetAssetIncentive("funder", "uosmo", "uatom", big.NewInt(10), 100, 100, types.Coins{types.NewCoin("uatom", 1000)}); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("expected whitelist error, got %v", err)
	}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(10), 10, 100, funds); !errors.Is(err, ErrInvalidStartTime) {
		t.Fatalf("expected start time error, got %v", err)
	}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(10), 100, 100, types.Coins{types.NewCoin("umars", 999)}); !errors.Is(err, ErrFundsMismatch) {
		t.Fatalf("expected funds mismatch, got %v", err)
	}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(10), 100, 0, funds); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected invalid schedule, got %v", err)
	}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(10), 100, 100, funds); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := e.SetAssetIncentive("funder", "uosmo", "umars", big.NewInt(10), 150, 100, funds); !errors.Is(err, ErrScheduleActive) {
		t.Fatalf("expected active schedule error, got %v", err)
	}
	active, err := e.ActiveSchedules()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("schedule should not be active before start")
	}
}

func TestUpdateWhitelistRequiresOwner(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	if err := e.UpdateWhitelist("mallory", []string{"uatom"}, nil); !errors.Is(err, nativecommon.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
	if err := e.UpdateWhitelist("owner", nil, []string{"umars"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	list, err := e.Whitelist()
	if err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("unexpected whitelist %v", list)
	}
}

func TestClaimWhilePaused(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	e.SetPauses(pausedView{})
	if _, err := e.ClaimRewards(types.NewIdentity("alice"), ""); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
}

type pausedView struct{}

func (pausedView) IsPaused(module string) bool { return module == ModuleName }
