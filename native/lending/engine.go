package lending

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

const ModuleName = "lending"

var errNilState = errors.New("lending engine: state not configured")

type engineState interface {
	nativecommon.OwnerStore
	Market(denom string) (*Market, bool, error)
	PutMarket(market *Market) error
	MarketDenoms() ([]string, error)
	Collateral(user types.Identity, denom string) (*Collateral, bool, error)
	PutCollateral(user types.Identity, denom string, entry *Collateral) error
	DeleteCollateral(user types.Identity, denom string) error
	CollateralDenoms(user types.Identity) ([]string, error)
	Debt(user types.Identity, denom string) (*Debt, bool, error)
	PutDebt(user types.Identity, denom string, entry *Debt) error
	DeleteDebt(user types.Identity, denom string) error
	DebtDenoms(user types.Identity) ([]string, error)
	LendingConfig() (*Config, bool, error)
	PutLendingConfig(cfg *Config) error
}

// Bank moves underlying coins in and out of the pool address.
type Bank interface {
	Balance(addr, denom string) (*big.Int, error)
	Send(from, to string, coin types.Coin) error
}

// ParamsSource provides asset risk parameters.
type ParamsSource interface {
	MaybeAssetParams(denom string) (*params.AssetParams, error)
}

// IncentivesHook is told about every collateral balance change before it is
// applied.
type IncentivesHook interface {
	BalanceChange(user types.Identity, denom string, userScaledBefore, totalScaledBefore *big.Int) error
}

// Engine is the multi-asset lending pool. Coins supplied to Deposit, Repay
// and Liquidate must already sit at the module address.
type Engine struct {
	state         engineState
	moduleAddress string
	bank          Bank
	params        ParamsSource
	oracle        oracle.PriceOracle
	incentives    IncentivesHook
	pauses        nativecommon.PauseView
	emitter       events.Emitter
	blockTime     uint64
}

func NewEngine(moduleAddr string) *Engine {
	return &Engine{moduleAddress: moduleAddr, emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetBank(bank Bank) { e.bank = bank }

func (e *Engine) SetParams(source ParamsSource) { e.params = source }

func (e *Engine) SetOracle(o oracle.PriceOracle) { e.oracle = o }

func (e *Engine) SetIncentives(hook IncentivesHook) { e.incentives = hook }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// SetBlockTime records the block time used for interest accrual.
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
	if err := nativecommon.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	return state, nil
}

func (e *Engine) config(state engineState) (Config, error) {
	cfg, ok, err := state.LendingConfig()
	if err != nil {
		return Config{}, err
	}
	if !ok || cfg == nil {
		return DefaultConfig(), nil
	}
	out := *cfg
	if out.CloseFactor.IsZero() {
		out.CloseFactor = DefaultConfig().CloseFactor
	}
	return out, nil
}

func (e *Engine) isCreditManager(state engineState, addr string) (bool, error) {
	cfg, err := e.config(state)
	if err != nil {
		return false, err
	}
	return cfg.CreditManager != "" && cfg.CreditManager == addr, nil
}

func (e *Engine) loadMarket(state engineState, denom string) (*Market, error) {
	market, ok, err := state.Market(denom)
	if err != nil {
		return nil, err
	}
	if !ok || market == nil {
		return nil, fmt.Errorf("%w: %s", ErrMarketNotFound, denom)
	}
	return market, nil
}

func (e *Engine) assetParams(denom string) (*params.AssetParams, error) {
	if e.params == nil {
		return nil, fmt.Errorf("%w: %s", params.ErrAssetParamsNotFound, denom)
	}
	p, err := e.params.MaybeAssetParams(denom)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", params.ErrAssetParamsNotFound, denom)
	}
	return p, nil
}

// applyAccumulatedInterest advances the indexes to the block time and issues
// the reserve share of the accrued interest to the rewards collector.
func (e *Engine) applyAccumulatedInterest(state engineState, market *Market) error {
	now := e.blockTime
	if now <= market.IndexesLastUpdated {
		return nil
	}
	dt := now - market.IndexesLastUpdated
	debtBefore, err := debtUnderlying(market.DebtTotalScaled, market)
	if err != nil {
		return err
	}
	market.BorrowIndex = AppliedLinearInterest(market.BorrowIndex, market.BorrowRate, dt)
	market.LiquidityIndex = AppliedLinearInterest(market.LiquidityIndex, market.LiquidityRate, dt)
	market.IndexesLastUpdated = now

	reward := big.NewInt(0)
	rewardScaled := big.NewInt(0)
	if market.DebtTotalScaled.Sign() > 0 && !market.ReserveFactor.IsZero() {
		debtAfter, err := debtUnderlying(market.DebtTotalScaled, market)
		if err != nil {
			return err
		}
		reward, err = numeric.MulFloor(new(big.Int).Sub(debtAfter, debtBefore), market.ReserveFactor)
		if err != nil {
			return err
		}
		cfg, err := e.config(state)
		if err != nil {
			return err
		}
		if reward.Sign() > 0 && cfg.RewardsCollector != "" {
			rewardScaled, err = ScaledAmount(reward, market.LiquidityIndex, RoundDown)
			if err != nil {
				return err
			}
			if rewardScaled.Sign() > 0 {
				if err := e.increaseCollateral(state, market, types.NewIdentity(cfg.RewardsCollector), rewardScaled); err != nil {
					return err
				}
			}
		}
	}
	e.emitter.Emit(events.LendingInterestAccrued{
		Denom:          market.Denom,
		BorrowIndex:    market.BorrowIndex.String(),
		LiquidityIndex: market.LiquidityIndex.String(),
		Reward:         reward,
		RewardScaled:   rewardScaled,
		Timestamp:      now,
	})
	return nil
}

func (e *Engine) increaseCollateral(state engineState, market *Market, user types.Identity, scaled *big.Int) error {
	entry, ok, err := state.Collateral(user, market.Denom)
	if err != nil {
		return err
	}
	if !ok || entry == nil {
		entry = &Collateral{AmountScaled: big.NewInt(0), Enabled: true}
	}
	if e.incentives != nil {
		if err := e.incentives.BalanceChange(user, market.Denom, numeric.IntOrZero(entry.AmountScaled), numeric.IntOrZero(market.CollateralTotalScaled)); err != nil {
			return err
		}
	}
	entry.AmountScaled = new(big.Int).Add(numeric.IntOrZero(entry.AmountScaled), scaled)
	market.CollateralTotalScaled = new(big.Int).Add(numeric.IntOrZero(market.CollateralTotalScaled), scaled)
	return state.PutCollateral(user, market.Denom, entry)
}

func (e *Engine) decreaseCollateral(state engineState, market *Market, user types.Identity, entry *Collateral, scaled *big.Int) error {
	if e.incentives != nil {
		if err := e.incentives.BalanceChange(user, market.Denom, numeric.IntOrZero(entry.AmountScaled), numeric.IntOrZero(market.CollateralTotalScaled)); err != nil {
			return err
		}
	}
	remaining, err := numeric.CheckedSubInt(entry.AmountScaled, scaled)
	if err != nil {
		return err
	}
	total, err := numeric.CheckedSubInt(market.CollateralTotalScaled, scaled)
	if err != nil {
		return err
	}
	market.CollateralTotalScaled = total
	if remaining.Sign() == 0 {
		return state.DeleteCollateral(user, market.Denom)
	}
	entry.AmountScaled = remaining
	return state.PutCollateral(user, market.Denom, entry)
}

func (e *Engine) decreaseDebt(state engineState, market *Market, user types.Identity, entry *Debt, scaled *big.Int) error {
	remaining, err := numeric.CheckedSubInt(entry.AmountScaled, scaled)
	if err != nil {
		return err
	}
	total, err := numeric.CheckedSubInt(market.DebtTotalScaled, scaled)
	if err != nil {
		return err
	}
	market.DebtTotalScaled = total
	if remaining.Sign() == 0 {
		return state.DeleteDebt(user, market.Denom)
	}
	entry.AmountScaled = remaining
	return state.PutDebt(user, market.Denom, entry)
}

func (e *Engine) persist(state engineState, markets ...*Market) error {
	for _, market := range markets {
		if err := refreshRates(market); err != nil {
			return err
		}
		if err := state.PutMarket(market); err != nil {
			return err
		}
	}
	return nil
}

// Deposit credits coin, already transferred to the pool, to onBehalfOf.
func (e *Engine) Deposit(sender string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error) {
	state, err := e.mutable()
	if err != nil {
		return nil, err
	}
	if coin.IsZero() || coin.Amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if onBehalfOf.Address == "" {
		onBehalfOf = types.NewIdentity(sender)
	}
	p, err := e.assetParams(coin.Denom)
	if err != nil {
		return nil, err
	}
	if !p.DepositEnabled {
		return nil, fmt.Errorf("%w: %s", ErrDepositDisabled, coin.Denom)
	}
	market, err := e.loadMarket(state, coin.Denom)
	if err != nil {
		return nil, err
	}
	if err := e.applyAccumulatedInterest(state, market); err != nil {
		return nil, err
	}

	cfg, err := e.config(state)
	if err != nil {
		return nil, err
	}
	// The credit manager enforces caps itself at the end of each batch.
	if sender != cfg.CreditManager && p.DepositCap != nil {
		total, err := collateralUnderlying(market.CollateralTotalScaled, market)
		if err != nil {
			return nil, err
		}
		if cfg.CreditManager != "" && e.bank != nil {
			held, err := e.bank.Balance(cfg.CreditManager, coin.Denom)
			if err != nil {
				return nil, err
			}
			total.Add(total, held)
		}
		total.Add(total, coin.Amount)
		if total.Cmp(p.DepositCap) > 0 {
			return nil, &DepositCapExceededError{Denom: coin.Denom, Cap: p.Cap(), Total: total}
		}
	}

	scaled, err := ScaledAmount(coin.Amount, market.LiquidityIndex, RoundDown)
	if err != nil {
		return nil, err
	}
	if scaled.Sign() == 0 {
		return nil, ErrDepositTooSmall
	}
	if err := e.increaseCollateral(state, market, onBehalfOf, scaled); err != nil {
		return nil, err
	}
	if err := e.persist(state, market); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LendingDeposit{Sender: sender, User: onBehalfOf, Denom: coin.Denom, Amount: coin.Amount, AmountScaled: scaled})
	return scaled, nil
}

// Withdraw releases collateral of (sender, accountID) to recipient. A nil
// amount withdraws everything. The withdrawn amount is returned.
func (e *Engine) Withdraw(sender, accountID, denom string, amount *big.Int, recipient string) (*big.Int, error) {
	state, err := e.mutable()
	if err != nil {
		return nil, err
	}
	if amount != nil && amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	user := types.NewAccountIdentity(sender, accountID)
	if strings.TrimSpace(recipient) == "" {
		recipient = sender
	}
	market, err := e.loadMarket(state, denom)
	if err != nil {
		return nil, err
	}
	entry, ok, err := state.Collateral(user, denom)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil || numeric.IntOrZero(entry.AmountScaled).Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCollateral, denom)
	}
	if err := e.applyAccumulatedInterest(state, market); err != nil {
		return nil, err
	}
	balance, err := collateralUnderlying(entry.AmountScaled, market)
	if err != nil {
		return nil, err
	}
	withdrawn := balance
	scaledDecrease := numeric.IntOrZero(entry.AmountScaled)
	if amount != nil && amount.Cmp(balance) < 0 {
		withdrawn = new(big.Int).Set(amount)
		scaledDecrease, err = ScaledAmount(amount, market.LiquidityIndex, RoundUp)
		if err != nil {
			return nil, err
		}
		scaledDecrease = numeric.MinInt(scaledDecrease, entry.AmountScaled)
	}
	if withdrawn.Sign() == 0 {
		return nil, ErrInvalidAmount
	}

	isCM, err := e.isCreditManager(state, sender)
	if err != nil {
		return nil, err
	}
	if !isCM && entry.Enabled {
		live := map[string]*Market{denom: market}
		vals, hasDebt, err := e.userHealth(state, user, oracle.ActionDefault, live, func(pos *positionsDraft) {
			pos.addCollateral(denom, new(big.Int).Neg(withdrawn))
		})
		if err != nil {
			return nil, err
		}
		if hasDebt && vals.Liquidatable {
			return nil, ErrHealthFactorAfterWithdraw
		}
	}

	if err := e.checkLiquidity(market, withdrawn, scaledDecrease); err != nil {
		return nil, err
	}

	if err := e.decreaseCollateral(state, market, user, entry, scaledDecrease); err != nil {
		return nil, err
	}
	if err := e.persist(state, market); err != nil {
		return nil, err
	}
	if err := e.send(recipient, types.NewCoinBig(denom, withdrawn)); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LendingWithdraw{User: user, Recipient: recipient, Denom: denom, Amount: withdrawn, AmountScaled: scaledDecrease})
	return withdrawn, nil
}

// checkLiquidity requires the pool to hold amount and the market to stay
// solvent once collateralScaledDecrease leaves it.
func (e *Engine) checkLiquidity(market *Market, amount, collateralScaledDecrease *big.Int) error {
	if e.bank != nil {
		held, err := e.bank.Balance(e.moduleAddress, market.Denom)
		if err != nil {
			return err
		}
		if held.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s", ErrNotEnoughLiquidity, market.Denom)
		}
	}
	remaining, err := numeric.CheckedSubInt(market.CollateralTotalScaled, collateralScaledDecrease)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotEnoughLiquidity, market.Denom)
	}
	collateral, err := collateralUnderlying(remaining, market)
	if err != nil {
		return err
	}
	debt, err := debtUnderlying(market.DebtTotalScaled, market)
	if err != nil {
		return err
	}
	if collateral.Cmp(debt) < 0 {
		return fmt.Errorf("%w: %s", ErrNotEnoughLiquidity, market.Denom)
	}
	return nil
}

func (e *Engine) send(to string, coin types.Coin) error {
	if coin.IsZero() || e.bank == nil || to == e.moduleAddress {
		return nil
	}
	return e.bank.Send(e.moduleAddress, to, coin)
}

// Borrow opens debt for (sender, accountID) and sends the coins to
// recipient. Borrows by the credit manager are uncollateralized.
func (e *Engine) Borrow(sender, accountID string, coin types.Coin, recipient string) (*big.Int, error) {
	state, err := e.mutable()
	if err != nil {
		return nil, err
	}
	if coin.IsZero() || coin.Amount.Sign() < 0 {
		return nil, ErrInvalidBorrowAmount
	}
	user := types.NewAccountIdentity(sender, accountID)
	if strings.TrimSpace(recipient) == "" {
		recipient = sender
	}
	p, err := e.assetParams(coin.Denom)
	if err != nil {
		return nil, err
	}
	if !p.BorrowEnabled {
		return nil, fmt.Errorf("%w: %s", ErrBorrowDisabled, coin.Denom)
	}
	market, err := e.loadMarket(state, coin.Denom)
	if err != nil {
		return nil, err
	}
	if err := e.applyAccumulatedInterest(state, market); err != nil {
		return nil, err
	}

	collateral, err := collateralUnderlying(market.CollateralTotalScaled, market)
	if err != nil {
		return nil, err
	}
	debt, err := debtUnderlying(market.DebtTotalScaled, market)
	if err != nil {
		return nil, err
	}
	available := new(big.Int).Sub(collateral, debt)
	if e.bank != nil {
		held, err := e.bank.Balance(e.moduleAddress, coin.Denom)
		if err != nil {
			return nil, err
		}
		available = numeric.MinInt(available, held)
	}
	if coin.Amount.Cmp(available) > 0 {
		return nil, fmt.Errorf("%w: %s exceeds available liquidity %s", ErrInvalidBorrowAmount, coin, available)
	}

	isCM, err := e.isCreditManager(state, sender)
	if err != nil {
		return nil, err
	}
	if !isCM {
		live := map[string]*Market{coin.Denom: market}
		vals, _, err := e.userHealth(state, user, oracle.ActionDefault, live, func(pos *positionsDraft) {
			pos.addDebt(coin.Denom, coin.Amount)
		})
		if err != nil {
			return nil, err
		}
		if vals.AboveMaxLTV {
			return nil, ErrBorrowExceedsCollateral
		}
	}

	scaled, err := ScaledAmount(coin.Amount, market.BorrowIndex, RoundUp)
	if err != nil {
		return nil, err
	}
	entry, ok, err := state.Debt(user, coin.Denom)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil {
		entry = &Debt{AmountScaled: big.NewInt(0), Uncollateralized: isCM}
	}
	entry.AmountScaled = new(big.Int).Add(numeric.IntOrZero(entry.AmountScaled), scaled)
	market.DebtTotalScaled = new(big.Int).Add(numeric.IntOrZero(market.DebtTotalScaled), scaled)
	if err := state.PutDebt(user, coin.Denom, entry); err != nil {
		return nil, err
	}
	if err := e.persist(state, market); err != nil {
		return nil, err
	}
	if err := e.send(recipient, coin); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LendingBorrow{User: user, Recipient: recipient, Denom: coin.Denom, Amount: coin.Amount, AmountScaled: scaled})
	return scaled, nil
}

// Repay reduces the debt of onBehalfOf with coin, already transferred to the
// pool. Any excess is refunded to sender and returned.
func (e *Engine) Repay(sender string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error) {
	state, err := e.mutable()
	if err != nil {
		return nil, err
	}
	if coin.IsZero() || coin.Amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if onBehalfOf.Address == "" {
		onBehalfOf = types.NewIdentity(sender)
	}
	cfg, err := e.config(state)
	if err != nil {
		return nil, err
	}
	if cfg.CreditManager != "" && onBehalfOf.Address == cfg.CreditManager && sender != cfg.CreditManager {
		return nil, ErrCannotRepayCreditManager
	}
	market, err := e.loadMarket(state, coin.Denom)
	if err != nil {
		return nil, err
	}
	entry, ok, err := state.Debt(onBehalfOf, coin.Denom)
	if err != nil {
		return nil, err
	}
	if !ok || entry == nil || numeric.IntOrZero(entry.AmountScaled).Sign() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDebt, coin.Denom)
	}
	if err := e.applyAccumulatedInterest(state, market); err != nil {
		return nil, err
	}
	owed, err := debtUnderlying(entry.AmountScaled, market)
	if err != nil {
		return nil, err
	}
	refund := big.NewInt(0)
	repaid := new(big.Int).Set(coin.Amount)
	scaledDecrease := numeric.IntOrZero(entry.AmountScaled)
	if coin.Amount.Cmp(owed) >= 0 {
		refund.Sub(coin.Amount, owed)
		repaid = owed
	} else {
		scaledDecrease, err = ScaledAmount(coin.Amount, market.BorrowIndex, RoundDown)
		if err != nil {
			return nil, err
		}
		if scaledDecrease.Sign() == 0 {
			return nil, ErrInvalidAmount
		}
	}
	if err := e.decreaseDebt(state, market, onBehalfOf, entry, scaledDecrease); err != nil {
		return nil, err
	}
	if err := e.persist(state, market); err != nil {
		return nil, err
	}
	if err := e.send(sender, types.NewCoinBig(coin.Denom, refund)); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.LendingRepay{Sender: sender, OnBehalfOf: onBehalfOf, Denom: coin.Denom, Amount: repaid, AmountScaled: scaledDecrease, Refund: refund})
	return refund, nil
}

// UpdateAssetCollateralStatus enables or disables a collateral entry of
// (sender, accountID). Disabling must keep the account above the
// liquidation threshold.
func (e *Engine) UpdateAssetCollateralStatus(sender, accountID, denom string, enable bool) error {
	state, err := e.mutable()
	if err != nil {
		return err
	}
	user := types.NewAccountIdentity(sender, accountID)
	entry, ok, err := state.Collateral(user, denom)
	if err != nil {
		return err
	}
	if !ok || entry == nil {
		return fmt.Errorf("%w: %s", ErrNoCollateral, denom)
	}
	if entry.Enabled == enable {
		return nil
	}
	if !enable {
		vals, hasDebt, err := e.userHealth(state, user, oracle.ActionDefault, nil, func(pos *positionsDraft) {
			pos.dropCollateral(denom)
		})
		if err != nil {
			return err
		}
		if hasDebt && vals.Liquidatable {
			return ErrHealthFactorAfterDisable
		}
	}
	entry.Enabled = enable
	if err := state.PutCollateral(user, denom, entry); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingCollateralStatus{User: user, Denom: denom, Enabled: enable})
	return nil
}

// InitAsset creates the market of denom. Only the owner may call it.
func (e *Engine) InitAsset(sender, denom string, p MarketParams) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if err := types.ValidateDenom(denom); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok, err := state.Market(denom); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrMarketAlreadyExists, denom)
	}
	market := NewMarket(denom, p.ReserveFactor, p.InterestRateModel, e.blockTime)
	if err := e.persist(state, market); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingMarketInit{Denom: denom})
	return nil
}

// UpdateAsset changes the reserve factor or rate model of a market. Interest
// is settled under the old parameters first.
func (e *Engine) UpdateAsset(sender, denom string, update MarketParamsUpdate) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	market, err := e.loadMarket(state, denom)
	if err != nil {
		return err
	}
	next := MarketParams{ReserveFactor: market.ReserveFactor, InterestRateModel: market.InterestRateModel}
	if update.ReserveFactor != nil {
		next.ReserveFactor = *update.ReserveFactor
	}
	if update.InterestRateModel != nil {
		next.InterestRateModel = *update.InterestRateModel
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := e.applyAccumulatedInterest(state, market); err != nil {
		return err
	}
	market.ReserveFactor = next.ReserveFactor
	market.InterestRateModel = next.InterestRateModel
	if err := e.persist(state, market); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingMarketUpdated{Denom: denom})
	return nil
}

// UpdateConfig replaces the pool config. Only the owner may call it.
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
	return state.PutLendingConfig(&cfg)
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
