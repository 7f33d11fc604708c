package creditmanager

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

const (
	testCM      = "credit-manager"
	testPool    = "pool"
	testOwner   = "owner"
	testRewards = "rewards"
)

func dec(s string) numeric.Decimal { return numeric.MustParseDecimal(s) }

type mockState struct {
	owners   map[string]nativecommon.OwnerState
	accounts map[string]*Account
	ledgers  map[string]*Ledger
	byOwner  map[string][]string
	seq      uint64
	cfg      *Config
}

func newMockState() *mockState {
	return &mockState{
		owners:   map[string]nativecommon.OwnerState{ModuleName: nativecommon.NewOwnerState(testOwner)},
		accounts: map[string]*Account{},
		ledgers:  map[string]*Ledger{},
		byOwner:  map[string][]string{},
	}
}

func (m *mockState) ModuleOwner(module string) (nativecommon.OwnerState, error) {
	return m.owners[module], nil
}

func (m *mockState) SetModuleOwner(module string, owner nativecommon.OwnerState) error {
	m.owners[module] = owner
	return nil
}

func (m *mockState) CreditAccount(id string) (*Account, bool, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, false, nil
	}
	clone := *acct
	return &clone, true, nil
}

func (m *mockState) PutCreditAccount(acct *Account) error {
	if _, ok := m.accounts[acct.ID]; !ok {
		m.byOwner[acct.Owner] = append(m.byOwner[acct.Owner], acct.ID)
	}
	clone := *acct
	m.accounts[acct.ID] = &clone
	return nil
}

func (m *mockState) DeleteCreditAccount(id string) error {
	acct, ok := m.accounts[id]
	if !ok {
		return nil
	}
	ids := m.byOwner[acct.Owner][:0]
	for _, other := range m.byOwner[acct.Owner] {
		if other != id {
			ids = append(ids, other)
		}
	}
	m.byOwner[acct.Owner] = ids
	delete(m.accounts, id)
	return nil
}

func (m *mockState) CreditAccountsOf(owner string) ([]string, error) {
	return append([]string(nil), m.byOwner[owner]...), nil
}

func (m *mockState) CreditLedger(id string) (*Ledger, bool, error) {
	l, ok := m.ledgers[id]
	if !ok {
		return nil, false, nil
	}
	return l.Clone(), true, nil
}

func (m *mockState) PutCreditLedger(id string, ledger *Ledger) error {
	m.ledgers[id] = ledger.Clone()
	return nil
}

func (m *mockState) DeleteCreditLedger(id string) error {
	delete(m.ledgers, id)
	return nil
}

func (m *mockState) CreditAccountSequence() (uint64, error) { return m.seq, nil }

func (m *mockState) SetCreditAccountSequence(seq uint64) error {
	m.seq = seq
	return nil
}

func (m *mockState) CreditManagerConfig() (*Config, bool, error) {
	if m.cfg == nil {
		return nil, false, nil
	}
	clone := *m.cfg
	return &clone, true, nil
}

func (m *mockState) PutCreditManagerConfig(cfg *Config) error {
	clone := *cfg
	m.cfg = &clone
	return nil
}

type mockBank struct {
	balances map[string]map[string]*big.Int
}

func newMockBank() *mockBank { return &mockBank{balances: map[string]map[string]*big.Int{}} }

func (b *mockBank) Balance(addr, denom string) (*big.Int, error) {
	return numeric.IntOrZero(b.balances[addr][denom]), nil
}

func (b *mockBank) add(addr, denom string, delta *big.Int) {
	if b.balances[addr] == nil {
		b.balances[addr] = map[string]*big.Int{}
	}
	b.balances[addr][denom] = new(big.Int).Add(numeric.IntOrZero(b.balances[addr][denom]), delta)
}

func (b *mockBank) mint(addr string, coin types.Coin) { b.add(addr, coin.Denom, coin.Amount) }

func (b *mockBank) Send(from, to string, coin types.Coin) error {
	if coin.IsZero() {
		return nil
	}
	held, _ := b.Balance(from, coin.Denom)
	if held.Cmp(coin.Amount) < 0 {
		return fmt.Errorf("mock bank: %s holds %s%s, needs %s", from, held, coin.Denom, coin)
	}
	b.add(from, coin.Denom, new(big.Int).Neg(coin.Amount))
	b.add(to, coin.Denom, coin.Amount)
	return nil
}

// mockPool books collateral and debt one to one without interest.
type mockPool struct {
	bank       *mockBank
	collateral map[string]types.Coins
	debts      map[string]types.Coins
	cfg        lending.Config
}

func newMockPool(bank *mockBank) *mockPool {
	return &mockPool{
		bank:       bank,
		collateral: map[string]types.Coins{},
		debts:      map[string]types.Coins{},
		cfg:        lending.Config{RewardsCollector: testRewards, CreditManager: testCM, CloseFactor: dec("0.5")},
	}
}

func adjust(cs types.Coins, denom string, delta *big.Int) types.Coins {
	return append(cs, types.NewCoinBig(denom, delta)).Normalize()
}

func (p *mockPool) Deposit(_ string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error) {
	p.collateral[onBehalfOf.Key()] = adjust(p.collateral[onBehalfOf.Key()], coin.Denom, coin.Amount)
	return new(big.Int).Set(coin.Amount), nil
}

func (p *mockPool) Withdraw(sender, accountID, denom string, amount *big.Int, recipient string) (*big.Int, error) {
	key := types.NewAccountIdentity(sender, accountID).Key()
	held := p.collateral[key].AmountOf(denom)
	if held.Sign() == 0 {
		return nil, lending.ErrNoCollateral
	}
	if amount == nil || amount.Cmp(held) > 0 {
		amount = held
	}
	p.collateral[key] = adjust(p.collateral[key], denom, new(big.Int).Neg(amount))
	if err := p.bank.Send(testPool, recipient, types.NewCoinBig(denom, amount)); err != nil {
		return nil, err
	}
	return new(big.Int).Set(amount), nil
}

func (p *mockPool) Borrow(sender, accountID string, coin types.Coin, recipient string) (*big.Int, error) {
	key := types.NewAccountIdentity(sender, accountID).Key()
	if err := p.bank.Send(testPool, recipient, coin); err != nil {
		return nil, lending.ErrNotEnoughLiquidity
	}
	p.debts[key] = adjust(p.debts[key], coin.Denom, coin.Amount)
	return new(big.Int).Set(coin.Amount), nil
}

func (p *mockPool) Repay(sender string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error) {
	key := onBehalfOf.Key()
	owed := p.debts[key].AmountOf(coin.Denom)
	if owed.Sign() == 0 {
		return nil, lending.ErrNoDebt
	}
	repaid := numeric.MinInt(owed, coin.Amount)
	p.debts[key] = adjust(p.debts[key], coin.Denom, new(big.Int).Neg(repaid))
	refund := new(big.Int).Sub(coin.Amount, repaid)
	if refund.Sign() > 0 {
		if err := p.bank.Send(testPool, sender, types.NewCoinBig(coin.Denom, refund)); err != nil {
			return nil, err
		}
	}
	return refund, nil
}

func (p *mockPool) UserDebtAmounts(user types.Identity) (types.Coins, error) {
	return append(types.Coins(nil), p.debts[user.Key()]...), nil
}

func (p *mockPool) UserCollateralAmounts(user types.Identity) (types.Coins, error) {
	return append(types.Coins(nil), p.collateral[user.Key()]...), nil
}

func (p *mockPool) TotalCollateral(denom string) (*big.Int, error) {
	total := new(big.Int)
	for _, cs := range p.collateral {
		total.Add(total, cs.AmountOf(denom))
	}
	return total, nil
}

func (p *mockPool) Config() (lending.Config, error) { return p.cfg, nil }

func (p *mockPool) ModuleAddress() string { return testPool }

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
	vaults map[string]*params.VaultConfig
}

func (m *mockParams) MaybeAssetParams(denom string) (*params.AssetParams, error) {
	return m.assets[denom].Clone(), nil
}

func (m *mockParams) VaultConfig(addr string) (*params.VaultConfig, error) {
	cfg, ok := m.vaults[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", params.ErrVaultConfigNotFound, addr)
	}
	return cfg.Clone(), nil
}

// mockSwapper converts at oracle prices.
type mockSwapper struct {
	bank   *mockBank
	oracle *mockOracle
	hook   func() error
}

func (s *mockSwapper) SwapExactIn(from string, coinIn types.Coin, denomOut string, minReceive *big.Int) error {
	if s.hook != nil {
		if err := s.hook(); err != nil {
			return err
		}
	}
	if err := s.bank.Send(from, "swapper", coinIn); err != nil {
		return err
	}
	out, err := numeric.MulFloor(coinIn.Amount, s.oracle.prices[coinIn.Denom])
	if err != nil {
		return err
	}
	out, err = numeric.DivFloor(out, s.oracle.prices[denomOut])
	if err != nil {
		return err
	}
	if out.Cmp(minReceive) < 0 {
		return fmt.Errorf("mock swapper: out %s below min %s", out, minReceive)
	}
	s.bank.mint(from, types.NewCoinBig(denomOut, out))
	return nil
}

// mockVault mints one share per base unit.
type mockVault struct {
	addr    string
	info    VaultInfo
	bank    *mockBank
	shares  map[string]*big.Int
	unlocks map[uint64]types.Coin
	nextID  uint64
	now     func() uint64
}

func (v *mockVault) Info() (VaultInfo, error) { return v.info, nil }

func (v *mockVault) Deposit(from string, coin types.Coin) error {
	if err := v.bank.Send(from, v.addr, coin); err != nil {
		return err
	}
	v.shares[from] = new(big.Int).Add(numeric.IntOrZero(v.shares[from]), coin.Amount)
	return nil
}

func (v *mockVault) burn(from string, shares *big.Int) error {
	held := numeric.IntOrZero(v.shares[from])
	if held.Cmp(shares) < 0 {
		return fmt.Errorf("mock vault: %s holds %s shares", from, held)
	}
	v.shares[from] = held.Sub(held, shares)
	return nil
}

func (v *mockVault) Redeem(from string, shares *big.Int) error {
	if err := v.burn(from, shares); err != nil {
		return err
	}
	return v.bank.Send(v.addr, from, types.NewCoinBig(v.info.BaseToken, shares))
}

func (v *mockVault) Unlock(from string, shares *big.Int) (UnlockReceipt, error) {
	if err := v.burn(from, shares); err != nil {
		return UnlockReceipt{}, err
	}
	v.nextID++
	coin := types.NewCoinBig(v.info.BaseToken, shares)
	v.unlocks[v.nextID] = coin
	return UnlockReceipt{ID: v.nextID, Coin: coin, ReleaseAt: v.now() + v.info.LockupDuration}, nil
}

func (v *mockVault) WithdrawUnlocked(from string, id uint64) error {
	coin, ok := v.unlocks[id]
	if !ok {
		return fmt.Errorf("mock vault: unknown unlock %d", id)
	}
	delete(v.unlocks, id)
	return v.bank.Send(v.addr, from, coin)
}

func (v *mockVault) PreviewRedeem(shares *big.Int) (*big.Int, error) { return new(big.Int).Set(shares), nil }

func (v *mockVault) Holdings(owner string) (*big.Int, error) { return numeric.IntOrZero(v.shares[owner]), nil }

type mockVaults map[string]*mockVault

func (m mockVaults) Vault(addr string) (Vault, error) {
	v, ok := m[addr]
	if !ok {
		return nil, fmt.Errorf("mock vaults: unknown %s", addr)
	}
	return v, nil
}

// mockStaker keeps staked LP per account and pays pending rewards on
// unstake and claim.
type mockStaker struct {
	bank    *mockBank
	staked  map[string]*big.Int
	pending map[string]types.Coins
}

func stakeKey(accountID, denom string) string { return accountID + "/" + denom }

func (s *mockStaker) Stake(from, accountID string, lp types.Coin) error {
	if err := s.bank.Send(from, "staker", lp); err != nil {
		return err
	}
	key := stakeKey(accountID, lp.Denom)
	s.staked[key] = new(big.Int).Add(numeric.IntOrZero(s.staked[key]), lp.Amount)
	return nil
}

func (s *mockStaker) Unstake(from, accountID string, lp types.Coin) error {
	key := stakeKey(accountID, lp.Denom)
	held := numeric.IntOrZero(s.staked[key])
	if held.Cmp(lp.Amount) < 0 {
		return fmt.Errorf("mock staker: %s staked %s", key, held)
	}
	s.staked[key] = held.Sub(held, lp.Amount)
	if err := s.bank.Send("staker", from, lp); err != nil {
		return err
	}
	return s.ClaimRewards(from, accountID, lp.Denom)
}

func (s *mockStaker) ClaimRewards(from, accountID, lpDenom string) error {
	key := stakeKey(accountID, lpDenom)
	for _, coin := range s.pending[key] {
		s.bank.mint(from, coin)
	}
	delete(s.pending, key)
	return nil
}

func (s *mockStaker) PendingRewards(accountID, lpDenom string) (types.Coins, error) {
	return append(types.Coins(nil), s.pending[stakeKey(accountID, lpDenom)]...), nil
}

// mockZapper mints one LP unit per unit of coins in.
type mockZapper struct {
	bank *mockBank
}

func (z *mockZapper) EstimateProvideLiquidity(_ string, coinsIn types.Coins) (*big.Int, error) {
	total := new(big.Int)
	for _, coin := range coinsIn {
		total.Add(total, coin.Amount)
	}
	return total, nil
}

func (z *mockZapper) ProvideLiquidity(from string, coinsIn types.Coins, lpTokenOut string, minReceive *big.Int) error {
	out, _ := z.EstimateProvideLiquidity(lpTokenOut, coinsIn)
	if out.Cmp(minReceive) < 0 {
		return fmt.Errorf("mock zapper: out %s below min %s", out, minReceive)
	}
	for _, coin := range coinsIn {
		if err := z.bank.Send(from, "zapper", coin); err != nil {
			return err
		}
	}
	z.bank.mint(from, types.NewCoinBig(lpTokenOut, out))
	return nil
}

func (z *mockZapper) EstimateWithdrawLiquidity(lpToken types.Coin) (types.Coins, error) {
	return nil, fmt.Errorf("mock zapper: withdraw of %s not supported", lpToken.Denom)
}

func (z *mockZapper) WithdrawLiquidity(_ string, lpToken types.Coin, _ types.Coins) error {
	return fmt.Errorf("mock zapper: withdraw of %s not supported", lpToken.Denom)
}

type pausedView struct{}

func (pausedView) IsPaused(module string) bool { return module == ModuleName }

type fixture struct {
	engine  *Engine
	state   *mockState
	bank    *mockBank
	pool    *mockPool
	oracle  *mockOracle
	params  *mockParams
	swapper *mockSwapper
	zapper  *mockZapper
	vaults  mockVaults
	staker  *mockStaker
	now     uint64
}

func testAsset(denom string) *params.AssetParams {
	return &params.AssetParams{
		Denom:                  denom,
		MaxLTV:                 dec("0.6"),
		LiquidationThreshold:   dec("0.7"),
		LiquidationBonus:       params.LiquidationBonus{StartingLB: dec("0.01"), Slope: dec("2"), MinLB: dec("0"), MaxLB: dec("0.1")},
		ProtocolLiquidationFee: dec("0.2"),
		Whitelisted:            true,
		BorrowEnabled:          true,
		DepositEnabled:         true,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:  newMockState(),
		bank:   newMockBank(),
		oracle: &mockOracle{prices: map[string]numeric.Decimal{"uosmo": dec("1"), "uatom": dec("1"), "ulp": dec("1"), "umars": dec("1")}},
		params: &mockParams{assets: map[string]*params.AssetParams{}, vaults: map[string]*params.VaultConfig{}},
		vaults: mockVaults{},
	}
	for _, denom := range []string{"uosmo", "uatom", "ulp"} {
		f.params.assets[denom] = testAsset(denom)
	}
	f.pool = newMockPool(f.bank)
	f.swapper = &mockSwapper{bank: f.bank, oracle: f.oracle}
	f.zapper = &mockZapper{bank: f.bank}
	f.staker = &mockStaker{bank: f.bank, staked: map[string]*big.Int{}, pending: map[string]types.Coins{}}
	f.bank.mint(testPool, types.NewCoin("uatom", 1_000_000))
	f.bank.mint(testPool, types.NewCoin("uosmo", 1_000_000))

	e := NewEngine(testCM)
	e.SetState(f.state)
	e.SetPool(f.pool)
	e.SetBank(f.bank)
	e.SetParams(f.params)
	e.SetOracle(f.oracle)
	e.SetSwapper(f.swapper)
	e.SetZapper(f.zapper)
	e.SetVaults(f.vaults)
	e.SetStaker(f.staker)
	f.engine = e
	return f
}

func (f *fixture) setTime(now uint64) {
	f.now = now
	f.engine.SetBlockTime(now)
}

func (f *fixture) addVault(addr string, lockup uint64, cap *big.Int) *mockVault {
	v := &mockVault{
		addr:    addr,
		info:    VaultInfo{BaseToken: "uosmo", VaultToken: "vault/" + addr, LockupDuration: lockup},
		bank:    f.bank,
		shares:  map[string]*big.Int{},
		unlocks: map[uint64]types.Coin{},
		now:     func() uint64 { return f.now },
	}
	f.vaults[addr] = v
	f.params.vaults[addr] = &params.VaultConfig{
		Addr:                 addr,
		DepositCap:           cap,
		MaxLTV:               dec("0.5"),
		LiquidationThreshold: dec("0.6"),
		Whitelisted:          true,
	}
	return v
}

// update attaches funds by minting them to the manager and runs actions.
func (f *fixture) update(sender, accountID string, funds types.Coins, actions ...Action) (string, error) {
	for _, coin := range funds {
		f.bank.mint(testCM, coin)
	}
	return f.engine.UpdateCreditAccount(sender, accountID, actions, funds)
}

func (f *fixture) mustUpdate(t *testing.T, sender, accountID string, funds types.Coins, actions ...Action) string {
	t.Helper()
	id, err := f.update(sender, accountID, funds, actions...)
	if err != nil {
		t.Fatalf("update credit account: %v", err)
	}
	return id
}

func (f *fixture) ledger(t *testing.T, id string) *Ledger {
	t.Helper()
	l, ok := f.state.ledgers[id]
	if !ok {
		t.Fatalf("no ledger for %s", id)
	}
	return l
}

func coins(cs ...types.Coin) types.Coins { return types.Coins(cs) }

func deposit(denom string, amount int64) Deposit {
	return Deposit{Coin: types.NewCoin(denom, amount)}
}
