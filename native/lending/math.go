package lending

import (
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
)

// SecondsPerYear is the denominator of the linear index growth.
const SecondsPerYear = 31_536_000

// ScalingFactor multiplies scaled amounts so that small deposits keep
// precision after division by a large index.
var ScalingFactor = big.NewInt(1_000_000)

var scaledDenominator = new(big.Int).Mul(ScalingFactor, new(big.Int).Exp(big.NewInt(10), big.NewInt(numeric.Precision), nil))

// Rounding selects the direction of a scaled conversion.
type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

// ScaledAmount returns amount * ScalingFactor / index.
func ScaledAmount(amount *big.Int, index numeric.Decimal, rounding Rounding) (*big.Int, error) {
	if index.IsZero() {
		return nil, numeric.ErrDivideByZero
	}
	if rounding == RoundUp {
		return numeric.MulDivCeil(amount, scaledDenominator, index.Atomics())
	}
	return numeric.MulDivFloor(amount, scaledDenominator, index.Atomics())
}

// UnderlyingAmount returns scaled * index / ScalingFactor.
func UnderlyingAmount(scaled *big.Int, index numeric.Decimal, rounding Rounding) (*big.Int, error) {
	if rounding == RoundUp {
		return numeric.MulDivCeil(scaled, index.Atomics(), scaledDenominator)
	}
	return numeric.MulDivFloor(scaled, index.Atomics(), scaledDenominator)
}

// Collateral amounts favour the pool by rounding down on read; debts round
// up on read.
func collateralUnderlying(scaled *big.Int, m *Market) (*big.Int, error) {
	return UnderlyingAmount(numeric.IntOrZero(scaled), m.LiquidityIndex, RoundDown)
}

func debtUnderlying(scaled *big.Int, m *Market) (*big.Int, error) {
	return UnderlyingAmount(numeric.IntOrZero(scaled), m.BorrowIndex, RoundUp)
}

// AppliedLinearInterest returns index * (1 + rate * dt / year).
func AppliedLinearInterest(index, rate numeric.Decimal, dt uint64) numeric.Decimal {
	if dt == 0 || rate.IsZero() {
		return index
	}
	growth := rate.Atomics()
	growth.Mul(growth, new(big.Int).SetUint64(dt))
	growth.Quo(growth, big.NewInt(SecondsPerYear))
	factor := numeric.One().Add(numeric.NewDecimalFromAtomics(growth))
	return index.Mul(factor)
}

// indexesAt returns the indexes the market would have at now without
// mutating it.
func indexesAt(m *Market, now uint64) (borrow, liquidity numeric.Decimal) {
	if now <= m.IndexesLastUpdated {
		return m.BorrowIndex, m.LiquidityIndex
	}
	dt := now - m.IndexesLastUpdated
	return AppliedLinearInterest(m.BorrowIndex, m.BorrowRate, dt), AppliedLinearInterest(m.LiquidityIndex, m.LiquidityRate, dt)
}

// projected returns a copy of the market with indexes advanced to now. Used
// by queries and health checks on markets not touched by the operation.
func projected(m *Market, now uint64) *Market {
	out := m.Clone()
	out.BorrowIndex, out.LiquidityIndex = indexesAt(m, now)
	if now > out.IndexesLastUpdated {
		out.IndexesLastUpdated = now
	}
	return out
}

// refreshRates recomputes the borrow and liquidity rates from the current
// utilisation.
func refreshRates(m *Market) error {
	collateral, err := collateralUnderlying(m.CollateralTotalScaled, m)
	if err != nil {
		return err
	}
	debt, err := debtUnderlying(m.DebtTotalScaled, m)
	if err != nil {
		return err
	}
	u, err := Utilization(debt, collateral)
	if err != nil {
		return err
	}
	borrowRate, err := m.InterestRateModel.BorrowRate(u)
	if err != nil {
		return err
	}
	m.BorrowRate = borrowRate
	m.LiquidityRate = LiquidityRate(borrowRate, u, m.ReserveFactor)
	return nil
}
