package creditmanager

import (
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/liquidation"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

// liquidateTarget is the collateral chosen by a liquidate request.
type liquidateTarget struct {
	amount *big.Int
	price  numeric.Decimal
	bonus  params.LiquidationBonus
	fee    numeric.Decimal
}

// liquidate repays debt of another account from this account's deposits and
// moves the bonused collateral here. Seized coins are not deposit-cap
// checked.
func (b *batch) liquidate(a Liquidate) error {
	e := b.engine
	if a.LiquidateeAccountID == b.account.ID {
		return ErrSelfLiquidation
	}
	if a.Request == nil {
		return fmt.Errorf("%w: liquidate request", ErrUnknownAction)
	}
	if a.DebtCoin.IsZero() || a.DebtCoin.Amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ErrNoAmount, a.DebtCoin.Denom)
	}
	victim, victimLedger, err := e.loadAccount(b.state, a.LiquidateeAccountID)
	if err != nil {
		return err
	}
	victimLedger = victimLedger.Clone()
	positions, computer, vals, err := b.accountHealth(victim, victimLedger, oracle.ActionLiquidation)
	if err != nil {
		return err
	}
	if !vals.Liquidatable || vals.LiquidationHealthFactor == nil {
		return fmt.Errorf("%w: %s", ErrNotLiquidatable, victim.ID)
	}
	debt := positions.DebtOf(a.DebtCoin.Denom)
	if debt.Sign() == 0 {
		return fmt.Errorf("%w: %s", ErrNoDebtInDenom, a.DebtCoin.Denom)
	}
	debtPrice, ok := computer.Denoms.Prices[a.DebtCoin.Denom]
	if !ok {
		return fmt.Errorf("%w: %s", health.ErrMissingPrice, a.DebtCoin.Denom)
	}
	target, err := b.liquidateTarget(a.Request, positions, computer, victimLedger)
	if err != nil {
		return err
	}
	poolCfg, err := e.pool.Config()
	if err != nil {
		return err
	}
	fee := target.fee
	if poolCfg.RewardsCollector == "" {
		fee = numeric.Zero()
	}
	res, err := liquidation.Compute(liquidation.Request{
		RequestedRepay:   a.DebtCoin.Amount,
		DebtAmount:       debt,
		CollateralAmount: target.amount,
		DebtPrice:        debtPrice,
		CollateralPrice:  target.price,
		CloseFactor:      poolCfg.CloseFactor,
		Bonus:            liquidation.Bonus(target.bonus, *vals.LiquidationHealthFactor),
		ProtocolFee:      fee,
	})
	if err != nil {
		return err
	}

	repaid := types.NewCoinBig(a.DebtCoin.Denom, res.Repay)
	if err := b.repayFor(e.identity(victim.ID), repaid); err != nil {
		return err
	}
	var taken types.Coin
	switch req := a.Request.(type) {
	case LiquidateDeposit:
		taken, err = b.seizeDeposit(req.Denom, victimLedger, res, poolCfg.RewardsCollector)
	case LiquidateLend:
		taken, err = b.seizeLend(req.Denom, victim, res, poolCfg.RewardsCollector)
	case LiquidateVault:
		taken, err = b.seizeVault(req.Vault, victimLedger, res.Seized)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownAction, a.Request)
	}
	if err != nil {
		return err
	}
	victimLedger.dropEmptyVaults()
	if err := b.state.PutCreditLedger(victim.ID, victimLedger); err != nil {
		return err
	}
	b.record(a.Name(), repaid, taken)
	return nil
}

func (b *batch) liquidateTarget(req LiquidateRequest, positions health.Positions, computer *health.Computer, victimLedger *Ledger) (liquidateTarget, error) {
	var (
		denom  string
		amount *big.Int
	)
	switch r := req.(type) {
	case LiquidateDeposit:
		denom, amount = r.Denom, victimLedger.Deposits.AmountOf(r.Denom)
	case LiquidateLend:
		denom, amount = r.Denom, positions.Lends.AmountOf(r.Denom)
	case LiquidateVault:
		_, pos := victimLedger.vault(r.Vault)
		if pos == nil || pos.Amount == nil || pos.Amount.Shares().Sign() == 0 {
			return liquidateTarget{}, fmt.Errorf("%w: vault %s", ErrNoCollateralInDenom, r.Vault)
		}
		value := computer.Vaults.Values[r.Vault]
		shares := pos.Amount.Shares()
		price, err := numeric.NewDecimalFromRatio(numeric.IntOrZero(value.VaultCoin.Value), shares)
		if err != nil {
			return liquidateTarget{}, err
		}
		p := computer.Denoms.Params[value.BaseCoin.Denom]
		if p == nil {
			return liquidateTarget{}, fmt.Errorf("%w: %s", params.ErrAssetParamsNotFound, value.BaseCoin.Denom)
		}
		return liquidateTarget{amount: shares, price: price, bonus: p.LiquidationBonus, fee: numeric.Zero()}, nil
	default:
		return liquidateTarget{}, fmt.Errorf("%w: %T", ErrUnknownAction, req)
	}
	if amount.Sign() == 0 {
		return liquidateTarget{}, fmt.Errorf("%w: %s", ErrNoCollateralInDenom, denom)
	}
	price, ok := computer.Denoms.Prices[denom]
	if !ok {
		return liquidateTarget{}, fmt.Errorf("%w: %s", health.ErrMissingPrice, denom)
	}
	p := computer.Denoms.Params[denom]
	if p == nil {
		return liquidateTarget{}, fmt.Errorf("%w: %s", params.ErrAssetParamsNotFound, denom)
	}
	return liquidateTarget{amount: amount, price: price, bonus: p.LiquidationBonus, fee: p.ProtocolLiquidationFee}, nil
}

func (b *batch) seizeDeposit(denom string, victim *Ledger, res liquidation.Result, collector string) (types.Coin, error) {
	if err := victim.debit(types.NewCoinBig(denom, res.Seized)); err != nil {
		return types.Coin{}, err
	}
	received := types.NewCoinBig(denom, res.LiquidatorReceives)
	b.ledger.credit(received)
	if res.ProtocolFee.Sign() > 0 {
		if err := b.engine.bank.Send(b.cm(), collector, types.NewCoinBig(denom, res.ProtocolFee)); err != nil {
			return types.Coin{}, err
		}
	}
	return received, nil
}

// seizeLend pulls the seized lend out of the pool and lends the
// liquidator's part again under the liquidator's account.
func (b *batch) seizeLend(denom string, victim *Account, res liquidation.Result, collector string) (types.Coin, error) {
	e := b.engine
	if _, err := e.pool.Withdraw(b.cm(), victim.ID, denom, res.Seized, b.cm()); err != nil {
		return types.Coin{}, err
	}
	received := types.NewCoinBig(denom, res.LiquidatorReceives)
	if received.Amount.Sign() > 0 {
		b.ledger.credit(received)
		if err := b.lendFor(b.id(), received); err != nil {
			return types.Coin{}, err
		}
	}
	if res.ProtocolFee.Sign() > 0 {
		if err := e.bank.Send(b.cm(), collector, types.NewCoinBig(denom, res.ProtocolFee)); err != nil {
			return types.Coin{}, err
		}
	}
	return received, nil
}

// seizeVault moves vault shares between the two ledgers. Unlocking entries
// stay with the liquidatee.
func (b *batch) seizeVault(addr string, victim *Ledger, shares *big.Int) (types.Coin, error) {
	_, from := victim.vault(addr)
	if from == nil || from.Amount == nil {
		return types.Coin{}, fmt.Errorf("%w: vault %s", ErrNoCollateralInDenom, addr)
	}
	_, to := b.ledger.vault(addr)
	_, locking := from.Amount.(health.Locking)
	if to != nil && !sameVaultType(to.Amount, locking) {
		return types.Coin{}, fmt.Errorf("%w: %s", ErrMismatchedVaultType, addr)
	}
	remaining, err := numeric.CheckedSubInt(from.Amount.Shares(), shares)
	if err != nil {
		return types.Coin{}, err
	}
	if to == nil {
		b.ledger.Vaults = append(b.ledger.Vaults, health.VaultPosition{Vault: addr})
		to = &b.ledger.Vaults[len(b.ledger.Vaults)-1]
	}
	switch src := from.Amount.(type) {
	case health.Locking:
		src.Locked = remaining
		from.Amount = src
		dst, _ := to.Amount.(health.Locking)
		dst.Locked = new(big.Int).Add(dst.Shares(), shares)
		to.Amount = dst
	default:
		from.Amount = health.Unlocked{Amount: remaining}
		next := new(big.Int).Set(shares)
		if to.Amount != nil {
			next.Add(next, to.Amount.Shares())
		}
		to.Amount = health.Unlocked{Amount: next}
	}
	return types.NewCoinBig(addr, shares), nil
}
