package lending

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
)

var errInvalidInterestModel = errors.New("lending engine: invalid interest rate model")

// InterestRateModel is the two-slope borrow rate curve. Below the optimal
// utilisation the rate rises linearly from Base to Base+Slope1; above it the
// rate rises from that corner by Slope2 over the remaining range.
type InterestRateModel struct {
	OptimalUtilizationRate numeric.Decimal `json:"optimal_utilization_rate"`
	Base                   numeric.Decimal `json:"base"`
	Slope1                 numeric.Decimal `json:"slope_1"`
	Slope2                 numeric.Decimal `json:"slope_2"`
}

func (m InterestRateModel) Validate() error {
	if m.OptimalUtilizationRate.GT(numeric.One()) {
		return fmt.Errorf("%w: optimal utilization rate %s exceeds 1", errInvalidInterestModel, m.OptimalUtilizationRate)
	}
	return nil
}

// BorrowRate evaluates the curve at utilisation u, which must already be
// clamped to [0, 1].
func (m InterestRateModel) BorrowRate(u numeric.Decimal) (numeric.Decimal, error) {
	optimal := m.OptimalUtilizationRate
	if u.LTE(optimal) {
		if optimal.IsZero() {
			return m.Base, nil
		}
		ratio, err := u.CheckedDiv(optimal)
		if err != nil {
			return numeric.Decimal{}, err
		}
		return m.Base.Add(m.Slope1.Mul(ratio)), nil
	}
	excess, err := u.CheckedSub(optimal)
	if err != nil {
		return numeric.Decimal{}, err
	}
	// u > optimal implies optimal < 1, so the remaining range is non-zero.
	remaining, err := numeric.One().CheckedSub(optimal)
	if err != nil {
		return numeric.Decimal{}, err
	}
	ratio, err := excess.CheckedDiv(remaining)
	if err != nil {
		return numeric.Decimal{}, err
	}
	return m.Base.Add(m.Slope1).Add(m.Slope2.Mul(ratio)), nil
}

// LiquidityRate is borrow_rate * u * (1 - reserve_factor).
func LiquidityRate(borrowRate, u, reserveFactor numeric.Decimal) numeric.Decimal {
	return borrowRate.Mul(u).Mul(numeric.One().SaturatingSub(reserveFactor))
}

// Utilization returns debt/collateral clamped to [0, 1]. Zero collateral
// yields zero.
func Utilization(debt, collateral *big.Int) (numeric.Decimal, error) {
	if collateral == nil || collateral.Sign() == 0 || debt == nil || debt.Sign() == 0 {
		return numeric.Decimal{}, nil
	}
	u, err := numeric.NewDecimalFromRatio(debt, collateral)
	if err != nil {
		return numeric.Decimal{}, err
	}
	return numeric.Min(u, numeric.One()), nil
}

// LinearInterestRateModel is the legacy single-slope model kept for state
// migration.
type LinearInterestRateModel struct {
	Base  numeric.Decimal `json:"base"`
	Slope numeric.Decimal `json:"slope"`
}

// TwoSlope maps the legacy model onto the two-slope curve with the kink at
// full utilisation, which is rate-identical over [0, 1].
func (l LinearInterestRateModel) TwoSlope() InterestRateModel {
	return InterestRateModel{
		OptimalUtilizationRate: numeric.One(),
		Base:                   l.Base,
		Slope1:                 l.Slope,
		Slope2:                 numeric.Zero(),
	}
}
