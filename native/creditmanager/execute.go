package creditmanager

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

type actionRecord struct {
	action string
	coins  types.Coins
}

// batch is the working set of one update_credit_account call. The ledger is
// only written back once every post-batch check passed.
type batch struct {
	engine    *Engine
	state     engineState
	cfg       Config
	account   *Account
	ledger    *Ledger
	funds     types.Coins
	capDenoms map[string]struct{}
	records   []actionRecord
}

func (b *batch) run(action Action) error {
	switch a := action.(type) {
	case Deposit:
		return b.deposit(a)
	case Withdraw:
		return b.withdraw(a)
	case Borrow:
		return b.borrow(a)
	case Repay:
		return b.repay(a)
	case Lend:
		return b.lend(a)
	case Reclaim:
		return b.reclaim(a)
	case ClaimRewards:
		return b.claimRewards()
	case EnterVault:
		return b.enterVault(a)
	case ExitVault:
		return b.exitVault(a)
	case RequestVaultUnlock:
		return b.requestVaultUnlock(a)
	case WithdrawUnlocked:
		return b.withdrawUnlocked(a)
	case SwapExactIn:
		return b.swap(a)
	case ProvideLiquidity:
		return b.provideLiquidity(a)
	case WithdrawLiquidity:
		return b.withdrawLiquidity(a)
	case StakeAstroLp:
		return b.stake(a)
	case UnstakeAstroLp:
		return b.unstake(a)
	case ClaimAstroLpRewards:
		return b.claimLpRewards(a)
	case Liquidate:
		return b.liquidate(a)
	case RefundAllCoinBalances:
		return b.refundAll()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
}

func (b *batch) record(action string, coins ...types.Coin) {
	b.records = append(b.records, actionRecord{action: action, coins: types.Coins(coins).Normalize()})
}

func (b *batch) checkCap(denoms ...string) {
	for _, denom := range denoms {
		b.capDenoms[denom] = struct{}{}
	}
}

func (b *batch) id() types.Identity { return b.engine.identity(b.account.ID) }

func (b *batch) cm() string { return b.engine.moduleAddress }

// resolve turns an ActionCoin into a coin against held.
func resolve(c ActionCoin, held *big.Int) (types.Coin, error) {
	amount := numeric.IntOrZero(held)
	if !c.Amount.IsBalance() {
		amount = new(big.Int).Set(c.Amount.Exact)
	}
	if amount.Sign() <= 0 {
		return types.Coin{}, fmt.Errorf("%w: %s", ErrNoAmount, c.Denom)
	}
	return types.NewCoinBig(c.Denom, amount), nil
}

func (b *batch) resolveDeposit(c ActionCoin) (types.Coin, error) {
	return resolve(c, b.ledger.Deposits.AmountOf(c.Denom))
}

func (b *batch) requireWhitelisted(denom string) error {
	p, err := b.engine.params.MaybeAssetParams(denom)
	if err != nil {
		return err
	}
	if p == nil || !p.Whitelisted {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, denom)
	}
	return nil
}

func (b *batch) requireSlippage(slippage numeric.Decimal) error {
	if slippage.GT(b.cfg.MaxSlippage) {
		return fmt.Errorf("%w: %s > %s", ErrSlippageExceedsMax, slippage, b.cfg.MaxSlippage)
	}
	return nil
}

func (b *batch) deposit(a Deposit) error {
	if a.Coin.IsZero() || a.Coin.Amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNoAmount, a.Coin.Denom)
	}
	if err := b.requireWhitelisted(a.Coin.Denom); err != nil {
		return err
	}
	if b.funds.AmountOf(a.Coin.Denom).Cmp(a.Coin.Amount) < 0 {
		return fmt.Errorf("%w: %s", ErrFundsMismatch, a.Coin)
	}
	b.funds = append(b.funds, types.NewCoinBig(a.Coin.Denom, new(big.Int).Neg(a.Coin.Amount))).Normalize()
	b.ledger.credit(a.Coin.Copy())
	b.checkCap(a.Coin.Denom)
	b.record(a.Name(), a.Coin)
	return nil
}

func (b *batch) withdraw(a Withdraw) error {
	coin, err := b.resolveDeposit(a.Coin)
	if err != nil {
		return err
	}
	if err := b.ledger.debit(coin); err != nil {
		return err
	}
	if err := b.engine.bank.Send(b.cm(), b.account.Owner, coin); err != nil {
		return err
	}
	b.record(a.Name(), coin)
	return nil
}

func (b *batch) borrow(a Borrow) error {
	if a.Coin.IsZero() || a.Coin.Amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNoAmount, a.Coin.Denom)
	}
	if err := b.requireWhitelisted(a.Coin.Denom); err != nil {
		return err
	}
	if _, err := b.engine.pool.Borrow(b.cm(), b.account.ID, a.Coin, b.cm()); err != nil {
		return err
	}
	b.ledger.credit(a.Coin.Copy())
	b.record(a.Name(), a.Coin)
	return nil
}

// repay pays debt from deposits. Amounts above the debt are capped.
func (b *batch) repay(a Repay) error {
	debts, err := b.engine.pool.UserDebtAmounts(b.id())
	if err != nil {
		return err
	}
	debt := debts.AmountOf(a.Coin.Denom)
	if debt.Sign() == 0 {
		return fmt.Errorf("%w: %s", ErrNoDebtInDenom, a.Coin.Denom)
	}
	coin, err := b.resolveDeposit(a.Coin)
	if err != nil {
		return err
	}
	coin.Amount = numeric.MinInt(coin.Amount, debt)
	if err := b.repayFor(b.id(), coin); err != nil {
		return err
	}
	b.record(a.Name(), coin)
	return nil
}

// repayFor repays user's pool debt with coin taken from this account's
// deposits.
func (b *batch) repayFor(user types.Identity, coin types.Coin) error {
	if err := b.ledger.debit(coin); err != nil {
		return err
	}
	pool := b.engine.pool
	if err := b.engine.bank.Send(b.cm(), pool.ModuleAddress(), coin); err != nil {
		return err
	}
	refund, err := pool.Repay(b.cm(), user, coin)
	if err != nil {
		return err
	}
	if refund != nil && refund.Sign() > 0 {
		b.ledger.credit(types.NewCoinBig(coin.Denom, refund))
	}
	return nil
}

func (b *batch) lend(a Lend) error {
	coin, err := b.resolveDeposit(a.Coin)
	if err != nil {
		return err
	}
	if err := b.requireWhitelisted(coin.Denom); err != nil {
		return err
	}
	if err := b.lendFor(b.id(), coin); err != nil {
		return err
	}
	b.record(a.Name(), coin)
	return nil
}

func (b *batch) lendFor(user types.Identity, coin types.Coin) error {
	if err := b.ledger.debit(coin); err != nil {
		return err
	}
	pool := b.engine.pool
	if err := b.engine.bank.Send(b.cm(), pool.ModuleAddress(), coin); err != nil {
		return err
	}
	_, err := pool.Deposit(b.cm(), user, coin)
	return err
}

func (b *batch) reclaim(a Reclaim) error {
	lends, err := b.engine.pool.UserCollateralAmounts(b.id())
	if err != nil {
		return err
	}
	lent := lends.AmountOf(a.Coin.Denom)
	coin, err := resolve(a.Coin, lent)
	if err != nil {
		return err
	}
	if coin.Amount.Cmp(lent) > 0 {
		return fmt.Errorf("%w: lent %s is %s", ErrInsufficientDeposit, coin.Denom, lent)
	}
	var amount *big.Int
	if !a.Coin.Amount.IsBalance() {
		amount = coin.Amount
	}
	withdrawn, err := b.engine.pool.Withdraw(b.cm(), b.account.ID, coin.Denom, amount, b.cm())
	if err != nil {
		return err
	}
	got := types.NewCoinBig(coin.Denom, withdrawn)
	b.ledger.credit(got)
	b.record(a.Name(), got)
	return nil
}

func (b *batch) claimRewards() error {
	if b.engine.incentives == nil {
		return fmt.Errorf("%w: incentives", ErrAdapterNotConfigured)
	}
	claimed, err := b.engine.incentives.ClaimRewards(b.id(), b.cm())
	if err != nil {
		return err
	}
	b.ledger.credit(claimed...)
	b.record(ClaimRewards{}.Name(), claimed...)
	return nil
}

func (b *batch) refundAll() error {
	refunded := b.ledger.Deposits
	for _, coin := range refunded {
		if coin.IsZero() {
			continue
		}
		if err := b.engine.bank.Send(b.cm(), b.account.Owner, coin); err != nil {
			return err
		}
	}
	b.ledger.Deposits = nil
	b.record(RefundAllCoinBalances{}.Name(), refunded...)
	return nil
}

// finish runs the post-batch checks and stores the ledger.
func (b *batch) finish() error {
	if !b.funds.IsZero() {
		return fmt.Errorf("%w: %s", ErrExtraFundsReceived, b.funds)
	}
	if err := b.assertDepositCaps(); err != nil {
		return err
	}
	b.ledger.dropEmptyVaults()
	e := b.engine
	positions, err := e.positions(b.account, b.ledger)
	if err != nil {
		return err
	}
	if positions.HasDebt() {
		computer, err := e.computer(b.account.Kind, positions, oracle.ActionDefault)
		if err != nil {
			return err
		}
		if err := computer.AssertHLSRules(); err != nil {
			return err
		}
		vals, err := computer.Compute()
		if err != nil {
			return err
		}
		if vals.AboveMaxLTV {
			return fmt.Errorf("%w: debt %s, max ltv collateral %s", ErrAboveMaxLTV, vals.TotalDebtValue, vals.MaxLTVAdjustedCollateral)
		}
	}
	return b.state.PutCreditLedger(b.account.ID, b.ledger)
}

// assertDepositCaps compares the pool's underlying collateral plus the
// manager's own balance against the cap of every denom the batch brought in.
func (b *batch) assertDepositCaps() error {
	denoms := make([]string, 0, len(b.capDenoms))
	for denom := range b.capDenoms {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)
	e := b.engine
	for _, denom := range denoms {
		p, err := e.params.MaybeAssetParams(denom)
		if err != nil {
			return err
		}
		if p == nil || p.DepositCap == nil {
			continue
		}
		total, err := e.pool.TotalCollateral(denom)
		if err != nil && !errors.Is(err, lending.ErrMarketNotFound) {
			return err
		}
		total = numeric.IntOrZero(total)
		held, err := e.bank.Balance(b.cm(), denom)
		if err != nil {
			return err
		}
		total.Add(total, held)
		if total.Cmp(p.DepositCap) > 0 {
			return &lending.DepositCapExceededError{Denom: denom, Cap: p.Cap(), Total: total}
		}
	}
	return nil
}

// accountHealth is used by liquidation to value another account.
func (b *batch) accountHealth(acct *Account, ledger *Ledger, kind oracle.ActionKind) (health.Positions, *health.Computer, health.Values, error) {
	positions, err := b.engine.positions(acct, ledger)
	if err != nil {
		return health.Positions{}, nil, health.Values{}, err
	}
	computer, err := b.engine.computer(acct.Kind, positions, kind)
	if err != nil {
		return health.Positions{}, nil, health.Values{}, err
	}
	vals, err := computer.Compute()
	return positions, computer, vals, err
}
