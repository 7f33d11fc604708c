package creditmanager

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

// callback hands spent to an adapter through call and then credits the
// account with whatever the manager's balance of watch (and of the spent
// denoms) holds beyond its pre-call value less spent. call may not enter
// the manager again.
func (b *batch) callback(spent types.Coins, watch []string, call func() error) (types.Coins, error) {
	e := b.engine
	if e.inCallback {
		return nil, ErrReentrancy
	}
	seen := map[string]struct{}{}
	for _, denom := range append(append([]string(nil), watch...), spent.Denoms()...) {
		seen[denom] = struct{}{}
	}
	denoms := make([]string, 0, len(seen))
	for denom := range seen {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)

	before := make(map[string]*big.Int, len(denoms))
	for _, denom := range denoms {
		bal, err := e.bank.Balance(e.moduleAddress, denom)
		if err != nil {
			return nil, err
		}
		before[denom] = bal
	}

	e.inCallback = true
	err := call()
	e.inCallback = false
	if err != nil {
		return nil, err
	}

	var received types.Coins
	for _, denom := range denoms {
		after, err := e.bank.Balance(e.moduleAddress, denom)
		if err != nil {
			return nil, err
		}
		expected := new(big.Int).Sub(before[denom], spent.AmountOf(denom))
		if delta := new(big.Int).Sub(after, expected); delta.Sign() > 0 {
			received = append(received, types.NewCoinBig(denom, delta))
		}
	}
	return received.Normalize(), nil
}

// expectedOut converts coin into denomOut at default oracle prices.
func (b *batch) expectedOut(coin types.Coin, denomOut string) (*big.Int, error) {
	o := b.engine.oracle
	priceIn, err := o.Price(coin.Denom, oracle.ActionDefault)
	if err != nil {
		return nil, err
	}
	priceOut, err := o.Price(denomOut, oracle.ActionDefault)
	if err != nil {
		return nil, err
	}
	value, err := numeric.MulFloor(coin.Amount, priceIn)
	if err != nil {
		return nil, err
	}
	return numeric.DivFloor(value, priceOut)
}

func (b *batch) swap(a SwapExactIn) error {
	e := b.engine
	if e.swapper == nil {
		return fmt.Errorf("%w: swapper", ErrAdapterNotConfigured)
	}
	if err := b.requireSlippage(a.Slippage); err != nil {
		return err
	}
	if err := b.requireWhitelisted(a.DenomOut); err != nil {
		return err
	}
	coin, err := b.resolveDeposit(a.Coin)
	if err != nil {
		return err
	}
	expected, err := b.expectedOut(coin, a.DenomOut)
	if err != nil {
		return err
	}
	minReceive, err := minReceiveAfterSlippage(expected, a.Slippage)
	if err != nil {
		return err
	}
	if err := b.ledger.debit(coin); err != nil {
		return err
	}
	received, err := b.callback(types.Coins{coin}, []string{a.DenomOut}, func() error {
		return e.swapper.SwapExactIn(e.moduleAddress, coin, a.DenomOut, minReceive)
	})
	if err != nil {
		return err
	}
	b.ledger.credit(received...)
	b.checkCap(a.DenomOut)
	b.record(a.Name(), received...)
	return nil
}

func (b *batch) provideLiquidity(a ProvideLiquidity) error {
	e := b.engine
	if e.zapper == nil {
		return fmt.Errorf("%w: zapper", ErrAdapterNotConfigured)
	}
	if err := b.requireSlippage(a.Slippage); err != nil {
		return err
	}
	if err := b.requireWhitelisted(a.LpTokenOut); err != nil {
		return err
	}
	var coins types.Coins
	for _, c := range a.Coins {
		if err := b.requireWhitelisted(c.Denom); err != nil {
			return err
		}
		coin, err := b.resolveDeposit(c)
		if err != nil {
			return err
		}
		coins = append(coins, coin)
	}
	coins = coins.Normalize()
	if len(coins) == 0 {
		return fmt.Errorf("%w: no coins in", ErrNoAmount)
	}
	estimate, err := e.zapper.EstimateProvideLiquidity(a.LpTokenOut, coins)
	if err != nil {
		return err
	}
	minReceive, err := minReceiveAfterSlippage(estimate, a.Slippage)
	if err != nil {
		return err
	}
	for _, coin := range coins {
		if err := b.ledger.debit(coin); err != nil {
			return err
		}
	}
	received, err := b.callback(coins, []string{a.LpTokenOut}, func() error {
		return e.zapper.ProvideLiquidity(e.moduleAddress, coins, a.LpTokenOut, minReceive)
	})
	if err != nil {
		return err
	}
	b.ledger.credit(received...)
	b.checkCap(a.LpTokenOut)
	b.record(a.Name(), received...)
	return nil
}

func (b *batch) withdrawLiquidity(a WithdrawLiquidity) error {
	e := b.engine
	if e.zapper == nil {
		return fmt.Errorf("%w: zapper", ErrAdapterNotConfigured)
	}
	if err := b.requireSlippage(a.Slippage); err != nil {
		return err
	}
	lp, err := b.resolveDeposit(a.LpToken)
	if err != nil {
		return err
	}
	estimate, err := e.zapper.EstimateWithdrawLiquidity(lp)
	if err != nil {
		return err
	}
	minReceive := make(types.Coins, 0, len(estimate))
	for _, coin := range estimate {
		floor, err := minReceiveAfterSlippage(coin.Amount, a.Slippage)
		if err != nil {
			return err
		}
		minReceive = append(minReceive, types.NewCoinBig(coin.Denom, floor))
	}
	if err := b.ledger.debit(lp); err != nil {
		return err
	}
	received, err := b.callback(types.Coins{lp}, estimate.Denoms(), func() error {
		return e.zapper.WithdrawLiquidity(e.moduleAddress, lp, minReceive)
	})
	if err != nil {
		return err
	}
	b.ledger.credit(received...)
	b.checkCap(received.Denoms()...)
	b.record(a.Name(), received...)
	return nil
}

func (b *batch) stake(a StakeAstroLp) error {
	e := b.engine
	if e.staker == nil {
		return fmt.Errorf("%w: staker", ErrAdapterNotConfigured)
	}
	if err := b.requireWhitelisted(a.LpToken.Denom); err != nil {
		return err
	}
	lp, err := b.resolveDeposit(a.LpToken)
	if err != nil {
		return err
	}
	pending, err := e.staker.PendingRewards(b.account.ID, lp.Denom)
	if err != nil {
		return err
	}
	if err := b.ledger.debit(lp); err != nil {
		return err
	}
	received, err := b.callback(types.Coins{lp}, pending.Denoms(), func() error {
		return e.staker.Stake(e.moduleAddress, b.account.ID, lp)
	})
	if err != nil {
		return err
	}
	b.ledger.stake(lp)
	b.ledger.credit(received...)
	b.record(a.Name(), lp)
	return nil
}

func (b *batch) unstake(a UnstakeAstroLp) error {
	e := b.engine
	if e.staker == nil {
		return fmt.Errorf("%w: staker", ErrAdapterNotConfigured)
	}
	staked := b.ledger.StakedLps.AmountOf(a.LpToken.Denom)
	lp, err := resolve(a.LpToken, staked)
	if err != nil {
		return err
	}
	if err := b.ledger.unstake(lp); err != nil {
		return err
	}
	pending, err := e.staker.PendingRewards(b.account.ID, lp.Denom)
	if err != nil {
		return err
	}
	received, err := b.callback(nil, append([]string{lp.Denom}, pending.Denoms()...), func() error {
		return e.staker.Unstake(e.moduleAddress, b.account.ID, lp)
	})
	if err != nil {
		return err
	}
	b.ledger.credit(received...)
	b.record(a.Name(), received...)
	return nil
}

func (b *batch) claimLpRewards(a ClaimAstroLpRewards) error {
	e := b.engine
	if e.staker == nil {
		return fmt.Errorf("%w: staker", ErrAdapterNotConfigured)
	}
	pending, err := e.staker.PendingRewards(b.account.ID, a.LpDenom)
	if err != nil {
		return err
	}
	received, err := b.callback(nil, pending.Denoms(), func() error {
		return e.staker.ClaimRewards(e.moduleAddress, b.account.ID, a.LpDenom)
	})
	if err != nil {
		return err
	}
	b.ledger.credit(received...)
	b.record(a.Name(), received...)
	return nil
}
