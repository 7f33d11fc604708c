package lending

import (
	"fmt"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/liquidation"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

// Liquidate repays debtCoin of an unhealthy user and moves the bonused
// collateral to recipient as pool collateral. debtCoin must already sit at
// the module address; the unused part is refunded to the liquidator.
func (e *Engine) Liquidate(liquidator string, user types.Identity, collateralDenom string, debtCoin types.Coin, recipient string) (liquidation.Result, error) {
	state, err := e.mutable()
	if err != nil {
		return liquidation.Result{}, err
	}
	if debtCoin.IsZero() || debtCoin.Amount.Sign() < 0 {
		return liquidation.Result{}, ErrInvalidAmount
	}
	if strings.TrimSpace(recipient) == "" {
		recipient = liquidator
	}
	if user.Address == liquidator && user.AccountID == "" {
		return liquidation.Result{}, ErrCannotLiquidateSelf
	}
	cfg, err := e.config(state)
	if err != nil {
		return liquidation.Result{}, err
	}
	if cfg.CreditManager != "" && user.Address == cfg.CreditManager {
		return liquidation.Result{}, ErrCannotLiquidateCreditManager
	}

	collateralMarket, err := e.loadMarket(state, collateralDenom)
	if err != nil {
		return liquidation.Result{}, err
	}
	collateral, ok, err := state.Collateral(user, collateralDenom)
	if err != nil {
		return liquidation.Result{}, err
	}
	if !ok || collateral == nil || numeric.IntOrZero(collateral.AmountScaled).Sign() == 0 {
		return liquidation.Result{}, fmt.Errorf("%w: %s", ErrNoCollateralInDenom, collateralDenom)
	}
	if !collateral.Enabled {
		return liquidation.Result{}, fmt.Errorf("%w: %s", ErrCollateralNotEnabled, collateralDenom)
	}

	debtMarket := collateralMarket
	if debtCoin.Denom != collateralDenom {
		m, ok, err := state.Market(debtCoin.Denom)
		if err != nil {
			return liquidation.Result{}, err
		}
		if !ok || m == nil {
			return liquidation.Result{}, fmt.Errorf("%w: %s", ErrDebtMarketInactive, debtCoin.Denom)
		}
		debtMarket = m
	}
	debt, ok, err := state.Debt(user, debtCoin.Denom)
	if err != nil {
		return liquidation.Result{}, err
	}
	if !ok || debt == nil || numeric.IntOrZero(debt.AmountScaled).Sign() == 0 {
		return liquidation.Result{}, fmt.Errorf("%w: %s", ErrNoDebtInDenom, debtCoin.Denom)
	}
	if debt.Uncollateralized {
		return liquidation.Result{}, ErrCannotLiquidateUncollateralized
	}

	if err := e.applyAccumulatedInterest(state, collateralMarket); err != nil {
		return liquidation.Result{}, err
	}
	if debtMarket != collateralMarket {
		if err := e.applyAccumulatedInterest(state, debtMarket); err != nil {
			return liquidation.Result{}, err
		}
	}
	// Reward issuance may have touched the collateral entry of the user when
	// the user is the rewards collector; reload it.
	collateral, _, err = state.Collateral(user, collateralDenom)
	if err != nil {
		return liquidation.Result{}, err
	}

	live := map[string]*Market{collateralDenom: collateralMarket, debtCoin.Denom: debtMarket}
	vals, _, err := e.userHealth(state, user, oracle.ActionLiquidation, live, nil)
	if err != nil {
		return liquidation.Result{}, err
	}
	if !vals.Liquidatable || vals.LiquidationHealthFactor == nil {
		return liquidation.Result{}, ErrNotLiquidatable
	}

	p, err := e.assetParams(collateralDenom)
	if err != nil {
		return liquidation.Result{}, err
	}
	debtPrice, err := e.oracle.Price(debtCoin.Denom, oracle.ActionLiquidation)
	if err != nil {
		return liquidation.Result{}, err
	}
	collateralPrice, err := e.oracle.Price(collateralDenom, oracle.ActionLiquidation)
	if err != nil {
		return liquidation.Result{}, err
	}
	debtAmount, err := debtUnderlying(debt.AmountScaled, debtMarket)
	if err != nil {
		return liquidation.Result{}, err
	}
	collateralAmount, err := collateralUnderlying(collateral.AmountScaled, collateralMarket)
	if err != nil {
		return liquidation.Result{}, err
	}
	fee := p.ProtocolLiquidationFee
	if cfg.RewardsCollector == "" {
		fee = numeric.Zero()
	}
	res, err := liquidation.Compute(liquidation.Request{
		RequestedRepay:   debtCoin.Amount,
		DebtAmount:       debtAmount,
		CollateralAmount: collateralAmount,
		DebtPrice:        debtPrice,
		CollateralPrice:  collateralPrice,
		CloseFactor:      cfg.CloseFactor,
		Bonus:            liquidation.Bonus(p.LiquidationBonus, *vals.LiquidationHealthFactor),
		ProtocolFee:      fee,
	})
	if err != nil {
		return liquidation.Result{}, err
	}

	debtScaled := numeric.IntOrZero(debt.AmountScaled)
	if res.Repay.Cmp(debtAmount) < 0 {
		debtScaled, err = ScaledAmount(res.Repay, debtMarket.BorrowIndex, RoundDown)
		if err != nil {
			return liquidation.Result{}, err
		}
	}
	if err := e.decreaseDebt(state, debtMarket, user, debt, debtScaled); err != nil {
		return liquidation.Result{}, err
	}

	seizedScaled, err := ScaledAmount(res.Seized, collateralMarket.LiquidityIndex, RoundUp)
	if err != nil {
		return liquidation.Result{}, err
	}
	seizedScaled = numeric.MinInt(seizedScaled, collateral.AmountScaled)
	if err := e.decreaseCollateral(state, collateralMarket, user, collateral, seizedScaled); err != nil {
		return liquidation.Result{}, err
	}
	receivedScaled, err := ScaledAmount(res.LiquidatorReceives, collateralMarket.LiquidityIndex, RoundDown)
	if err != nil {
		return liquidation.Result{}, err
	}
	if receivedScaled.Sign() > 0 {
		if err := e.increaseCollateral(state, collateralMarket, types.NewIdentity(recipient), receivedScaled); err != nil {
			return liquidation.Result{}, err
		}
	}
	if res.ProtocolFee.Sign() > 0 {
		feeScaled, err := ScaledAmount(res.ProtocolFee, collateralMarket.LiquidityIndex, RoundDown)
		if err != nil {
			return liquidation.Result{}, err
		}
		if feeScaled.Sign() > 0 {
			if err := e.increaseCollateral(state, collateralMarket, types.NewIdentity(cfg.RewardsCollector), feeScaled); err != nil {
				return liquidation.Result{}, err
			}
		}
	}

	markets := []*Market{collateralMarket}
	if debtMarket != collateralMarket {
		markets = append(markets, debtMarket)
	}
	if err := e.persist(state, markets...); err != nil {
		return liquidation.Result{}, err
	}
	if err := e.send(liquidator, types.NewCoinBig(debtCoin.Denom, res.Refund)); err != nil {
		return liquidation.Result{}, err
	}
	e.emitter.Emit(events.LendingLiquidate{
		Liquidator:      liquidator,
		User:            user,
		DebtDenom:       debtCoin.Denom,
		DebtRepaid:      res.Repay,
		CollateralDenom: collateralDenom,
		Seized:          res.Seized,
		ProtocolFee:     res.ProtocolFee,
		Refund:          res.Refund,
	})
	return res, nil
}
