package creditmanager

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

const ModuleName = "creditmanager"

var errNilState = errors.New("credit manager: state not configured")

type engineState interface {
	nativecommon.OwnerStore
	CreditAccount(id string) (*Account, bool, error)
	// PutCreditAccount also maintains the owner index.
	PutCreditAccount(acct *Account) error
	DeleteCreditAccount(id string) error
	CreditAccountsOf(owner string) ([]string, error)
	CreditLedger(id string) (*Ledger, bool, error)
	PutCreditLedger(id string, ledger *Ledger) error
	DeleteCreditLedger(id string) error
	CreditAccountSequence() (uint64, error)
	SetCreditAccountSequence(seq uint64) error
	CreditManagerConfig() (*Config, bool, error)
	PutCreditManagerConfig(cfg *Config) error
}

// Engine executes action batches for credit accounts. Coins held by all
// accounts sit at the module address; the ledger records who owns what.
type Engine struct {
	state         engineState
	moduleAddress string
	pool          Pool
	bank          Bank
	params        ParamsSource
	oracle        oracle.PriceOracle
	incentives    Incentives
	swapper       Swapper
	vaults        VaultRegistry
	zapper        Zapper
	staker        Staker
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	blockTime     uint64
	inCallback    bool
}

func NewEngine(moduleAddr string) *Engine {
	return &Engine{moduleAddress: moduleAddr, emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetPool(pool Pool)                  { e.pool = pool }
func (e *Engine) SetBank(bank Bank)                  { e.bank = bank }
func (e *Engine) SetParams(source ParamsSource)      { e.params = source }
func (e *Engine) SetOracle(o oracle.PriceOracle)     { e.oracle = o }
func (e *Engine) SetIncentives(inc Incentives)       { e.incentives = inc }
func (e *Engine) SetSwapper(s Swapper)               { e.swapper = s }
func (e *Engine) SetVaults(registry VaultRegistry)   { e.vaults = registry }
func (e *Engine) SetZapper(z Zapper)                 { e.zapper = z }
func (e *Engine) SetStaker(s Staker)                 { e.staker = s }
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetBlockTime(t uint64) { e.blockTime = t }

func (e *Engine) ModuleAddress() string { return e.moduleAddress }

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state, nil
}

func (e *Engine) mutable() (engineState, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	if e.inCallback {
		return nil, ErrReentrancy
	}
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if e.pool == nil || e.bank == nil || e.params == nil || e.oracle == nil {
		return nil, fmt.Errorf("%w: pool, bank, params and oracle are required", ErrAdapterNotConfigured)
	}
	return state, nil
}

func (e *Engine) config(state engineState) (Config, error) {
	cfg, ok, err := state.CreditManagerConfig()
	if err != nil {
		return Config{}, err
	}
	if !ok || cfg == nil {
		return DefaultConfig(), nil
	}
	return *cfg, nil
}

func (e *Engine) identity(accountID string) types.Identity {
	return types.NewAccountIdentity(e.moduleAddress, accountID)
}

func (e *Engine) loadAccount(state engineState, id string) (*Account, *Ledger, error) {
	acct, ok, err := state.CreditAccount(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || acct == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	ledger, ok, err := state.CreditLedger(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok || ledger == nil {
		ledger = &Ledger{}
	}
	return acct, ledger, nil
}

func (e *Engine) ownedAccount(state engineState, sender, id string) (*Account, *Ledger, error) {
	acct, ledger, err := e.loadAccount(state, id)
	if err != nil {
		return nil, nil, err
	}
	if acct.Owner != sender {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotAccountOwner, id)
	}
	return acct, ledger, nil
}

// CreateCreditAccount opens a new account for sender and returns its id.
func (e *Engine) CreateCreditAccount(sender string, kind health.AccountKind) (string, error) {
	state, err := e.mutable()
	if err != nil {
		return "", err
	}
	return e.createAccount(state, sender, kind)
}

func (e *Engine) createAccount(state engineState, owner string, kind health.AccountKind) (string, error) {
	if err := validateOwner(owner); err != nil {
		return "", err
	}
	switch kind.Type {
	case health.AccountDefault, health.AccountHighLeveredStrategy:
	case health.AccountFundManager:
		if kind.VaultAddr == "" {
			return "", fmt.Errorf("%w: fund manager requires vault address", health.ErrInvalidAccountKind)
		}
	default:
		return "", fmt.Errorf("%w: %d", health.ErrInvalidAccountKind, kind.Type)
	}
	seq, err := state.CreditAccountSequence()
	if err != nil {
		return "", err
	}
	seq++
	id := strconv.FormatUint(seq, 10)
	if err := state.SetCreditAccountSequence(seq); err != nil {
		return "", err
	}
	if err := state.PutCreditAccount(&Account{ID: id, Owner: owner, Kind: kind}); err != nil {
		return "", err
	}
	if err := state.PutCreditLedger(id, &Ledger{}); err != nil {
		return "", err
	}
	e.emitter.Emit(events.CreditAccountCreated{AccountID: id, Owner: owner, Kind: kind.String()})
	return id, nil
}

// UpdateCreditAccount runs actions against accountID. An empty accountID
// opens a default account for sender first. funds are the coins the caller
// attached; they must already sit at the module address and are consumed
// by Deposit actions.
func (e *Engine) UpdateCreditAccount(sender, accountID string, actions Actions, funds types.Coins) (string, error) {
	state, err := e.mutable()
	if err != nil {
		return "", err
	}
	if accountID == "" {
		accountID, err = e.createAccount(state, sender, health.DefaultKind())
		if err != nil {
			return "", err
		}
	}
	acct, ledger, err := e.ownedAccount(state, sender, accountID)
	if err != nil {
		return "", err
	}
	cfg, err := e.config(state)
	if err != nil {
		return "", err
	}
	b := &batch{
		engine:    e,
		state:     state,
		cfg:       cfg,
		account:   acct,
		ledger:    ledger.Clone(),
		funds:     funds.Normalize(),
		capDenoms: map[string]struct{}{},
	}
	for i, action := range actions {
		if action == nil {
			return "", fmt.Errorf("%w: nil action at %d", ErrUnknownAction, i)
		}
		if err := b.run(action); err != nil {
			return "", fmt.Errorf("credit manager: %s action %d: %w", action.Name(), i, err)
		}
	}
	if err := b.finish(); err != nil {
		return "", err
	}
	for _, rec := range b.records {
		e.emitter.Emit(events.CreditAccountAction{AccountID: accountID, Action: rec.action, Coins: rec.coins})
	}
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, action.Name())
	}
	e.emitter.Emit(events.CreditAccountUpdated{AccountID: accountID, Actions: names})
	return accountID, nil
}

// BurnCreditAccount closes an account. Leftover deposits and lends are
// swept to the rewards collector.
func (e *Engine) BurnCreditAccount(sender, accountID string) error {
	state, err := e.mutable()
	if err != nil {
		return err
	}
	acct, ledger, err := e.ownedAccount(state, sender, accountID)
	if err != nil {
		return err
	}
	cfg, err := e.config(state)
	if err != nil {
		return err
	}
	positions, err := e.positions(acct, ledger)
	if err != nil {
		return err
	}
	if positions.HasDebt() {
		return &BurnNotAllowedError{Reason: BurnReasonHasDebt}
	}
	for _, v := range ledger.Vaults {
		if !health.IsEmpty(v.Amount) {
			return &BurnNotAllowedError{Reason: BurnReasonHasOpenPositions}
		}
	}
	if !ledger.StakedLps.IsZero() {
		return &BurnNotAllowedError{Reason: BurnReasonHasOpenPositions}
	}
	computer, err := e.computer(acct.Kind, positions, oracle.ActionDefault)
	if err != nil {
		return err
	}
	vals, err := computer.Compute()
	if err != nil {
		return err
	}
	if cfg.MaxValueForBurn != nil && vals.TotalCollateralValue.Cmp(cfg.MaxValueForBurn) > 0 {
		return &BurnNotAllowedError{Reason: BurnReasonCollateralExceeds}
	}

	poolCfg, err := e.pool.Config()
	if err != nil {
		return err
	}
	sweepTo := poolCfg.RewardsCollector
	if sweepTo == "" {
		sweepTo = e.moduleAddress
	}
	for _, lend := range positions.Lends {
		if lend.IsZero() {
			continue
		}
		if _, err := e.pool.Withdraw(e.moduleAddress, accountID, lend.Denom, nil, sweepTo); err != nil {
			return err
		}
	}
	for _, coin := range ledger.Deposits {
		if coin.IsZero() || sweepTo == e.moduleAddress {
			continue
		}
		if err := e.bank.Send(e.moduleAddress, sweepTo, coin); err != nil {
			return err
		}
	}
	if err := state.DeleteCreditLedger(accountID); err != nil {
		return err
	}
	if err := state.DeleteCreditAccount(accountID); err != nil {
		return err
	}
	e.emitter.Emit(events.CreditAccountBurned{AccountID: accountID, Owner: acct.Owner})
	return nil
}

func (e *Engine) UpdateConfig(sender string, cfg Config) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return state.PutCreditManagerConfig(&cfg)
}

func (e *Engine) UpdateOwner(sender string, update nativecommon.OwnerUpdate) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	next, err := nativecommon.UpdateOwner(state, ModuleName, sender, update)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.OwnerUpdated{Module: ModuleName, Owner: next.Owner, Proposed: next.Proposed, Abolished: next.Abolished})
	return nil
}

func (e *Engine) Config() (Config, error) {
	state, err := e.withState()
	if err != nil {
		return Config{}, err
	}
	return e.config(state)
}

func (e *Engine) Account(id string) (*Account, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	acct, _, err := e.loadAccount(state, id)
	return acct, err
}

// AccountsOf lists the accounts owned by owner in id order.
func (e *Engine) AccountsOf(owner string) ([]*Account, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	ids, err := state.CreditAccountsOf(owner)
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseUint(ids[i], 10, 64)
		b, _ := strconv.ParseUint(ids[j], 10, 64)
		return a < b
	})
	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		acct, _, err := e.loadAccount(state, id)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

// TotalAccounts is the number of accounts ever created.
func (e *Engine) TotalAccounts() (uint64, error) {
	state, err := e.withState()
	if err != nil {
		return 0, err
	}
	return state.CreditAccountSequence()
}
