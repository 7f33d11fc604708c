// Package liquidation holds the liquidation arithmetic shared by the pool and
// the credit manager.
package liquidation

import (
	"errors"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

var (
	ErrNothingToRepay  = errors.New("liquidation: repay amount rounds to zero")
	ErrZeroPrice       = errors.New("liquidation: price must be positive")
	ErrInvalidRequest  = errors.New("liquidation: debt and collateral must be positive")
	defaultCloseFactor = numeric.MustParseDecimal("0.5")
)

// DefaultCloseFactor is the share of a debt one liquidation may repay.
func DefaultCloseFactor() numeric.Decimal { return defaultCloseFactor }

// Bonus evaluates clamp(starting_lb + slope*(1-hf), min_lb, max_lb). A health
// factor at or above one yields starting_lb clamped to the range.
func Bonus(lb params.LiquidationBonus, hf numeric.Decimal) numeric.Decimal {
	shortfall := numeric.One().SaturatingSub(hf)
	bonus := lb.StartingLB.Add(lb.Slope.Mul(shortfall))
	bonus = numeric.Max(bonus, lb.MinLB)
	return numeric.Min(bonus, lb.MaxLB)
}

// Request carries the inputs of one liquidation.
type Request struct {
	// RequestedRepay is the debt amount offered by the liquidator.
	RequestedRepay *big.Int
	DebtAmount     *big.Int
	// CollateralAmount is the liquidatee's balance in the collateral denom.
	CollateralAmount *big.Int
	DebtPrice        numeric.Decimal
	CollateralPrice  numeric.Decimal
	CloseFactor      numeric.Decimal
	Bonus            numeric.Decimal
	ProtocolFee      numeric.Decimal
}

// Result is the outcome of Compute. LiquidatorReceives = Seized - ProtocolFee.
type Result struct {
	Repay              *big.Int
	Seized             *big.Int
	ProtocolFee        *big.Int
	LiquidatorReceives *big.Int
	Refund             *big.Int
}

// Compute applies the clamps in a fixed order: the requested amount, the
// outstanding debt, the close factor and finally the amount whose bonused
// seizure exhausts the collateral. Every step truncates.
func Compute(req Request) (Result, error) {
	requested := numeric.IntOrZero(req.RequestedRepay)
	debt := numeric.IntOrZero(req.DebtAmount)
	collateral := numeric.IntOrZero(req.CollateralAmount)
	if debt.Sign() == 0 || collateral.Sign() == 0 || requested.Sign() == 0 {
		return Result{}, ErrInvalidRequest
	}
	if req.DebtPrice.IsZero() || req.CollateralPrice.IsZero() {
		return Result{}, ErrZeroPrice
	}

	repay := numeric.MinInt(requested, debt)

	closeCap, err := numeric.MulFloor(debt, req.CloseFactor)
	if err != nil {
		return Result{}, err
	}
	if closeCap.Sign() == 0 {
		closeCap = big.NewInt(1)
	}
	repay = numeric.MinInt(repay, closeCap)

	onePlusBonus := numeric.One().Add(req.Bonus)
	// collateral * p_c / ((1 + lb) * p_d)
	collateralCap, err := numeric.MulDivFloor(
		collateral,
		req.CollateralPrice.Atomics(),
		onePlusBonus.Mul(req.DebtPrice).Atomics(),
	)
	if err != nil {
		return Result{}, err
	}
	repay = numeric.MinInt(repay, collateralCap)
	if repay.Sign() == 0 {
		return Result{}, ErrNothingToRepay
	}

	// repay * p_d * (1 + lb) / p_c
	seized, err := numeric.MulDivFloor(
		repay,
		req.DebtPrice.Mul(onePlusBonus).Atomics(),
		req.CollateralPrice.Atomics(),
	)
	if err != nil {
		return Result{}, err
	}
	seized = numeric.MinInt(seized, collateral)

	fee, err := numeric.MulFloor(seized, req.ProtocolFee)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Repay:              repay,
		Seized:             seized,
		ProtocolFee:        fee,
		LiquidatorReceives: new(big.Int).Sub(seized, fee),
		Refund:             new(big.Int).Sub(requested, repay),
	}, nil
}
