package lending

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/native/liquidation"
)

// Market tracks the pool state of a single denom. Both totals are scaled
// amounts; see ScalingFactor.
type Market struct {
	Denom                 string
	ReserveFactor         numeric.Decimal
	InterestRateModel     InterestRateModel
	BorrowIndex           numeric.Decimal
	LiquidityIndex        numeric.Decimal
	BorrowRate            numeric.Decimal
	LiquidityRate         numeric.Decimal
	IndexesLastUpdated    uint64
	CollateralTotalScaled *big.Int
	DebtTotalScaled       *big.Int
}

// NewMarket returns a market with unit indexes created at now.
func NewMarket(denom string, reserveFactor numeric.Decimal, model InterestRateModel, now uint64) *Market {
	return &Market{
		Denom:                 denom,
		ReserveFactor:         reserveFactor,
		InterestRateModel:     model,
		BorrowIndex:           numeric.One(),
		LiquidityIndex:        numeric.One(),
		BorrowRate:            numeric.Zero(),
		LiquidityRate:         numeric.Zero(),
		IndexesLastUpdated:    now,
		CollateralTotalScaled: big.NewInt(0),
		DebtTotalScaled:       big.NewInt(0),
	}
}

func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := *m
	clone.CollateralTotalScaled = numeric.IntOrZero(m.CollateralTotalScaled)
	clone.DebtTotalScaled = numeric.IntOrZero(m.DebtTotalScaled)
	return &clone
}

// Collateral is a user's scaled deposit in one market.
type Collateral struct {
	AmountScaled *big.Int
	Enabled      bool
}

// Debt is a user's scaled borrow in one market. Debts opened by the credit
// manager are uncollateralized from the pool's point of view.
type Debt struct {
	AmountScaled     *big.Int
	Uncollateralized bool
}

// Config holds the pool-wide addresses and the close factor.
type Config struct {
	RewardsCollector string          `json:"rewards_collector"`
	CreditManager    string          `json:"credit_manager"`
	CloseFactor      numeric.Decimal `json:"close_factor"`
}

// DefaultConfig returns a config with the default close factor.
func DefaultConfig() Config {
	return Config{CloseFactor: liquidation.DefaultCloseFactor()}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.RewardsCollector) == "" {
		return fmt.Errorf("%w: rewards collector required", ErrInvalidConfig)
	}
	if c.CloseFactor.IsZero() || c.CloseFactor.GT(numeric.One()) {
		return fmt.Errorf("%w: close factor %s must be within (0, 1]", ErrInvalidConfig, c.CloseFactor)
	}
	return nil
}

// MarketParams initialises a market.
type MarketParams struct {
	ReserveFactor     numeric.Decimal   `json:"reserve_factor"`
	InterestRateModel InterestRateModel `json:"interest_rate_model"`
}

func (p MarketParams) Validate() error {
	if p.ReserveFactor.GT(numeric.One()) {
		return fmt.Errorf("%w: reserve factor %s exceeds 1", ErrInvalidConfig, p.ReserveFactor)
	}
	return p.InterestRateModel.Validate()
}

// MarketParamsUpdate changes the fields that are set.
type MarketParamsUpdate struct {
	ReserveFactor     *numeric.Decimal   `json:"reserve_factor,omitempty"`
	InterestRateModel *InterestRateModel `json:"interest_rate_model,omitempty"`
}

// UserCollateral is the query view of a collateral entry.
type UserCollateral struct {
	Denom        string   `json:"denom"`
	AmountScaled *big.Int `json:"amount_scaled"`
	Amount       *big.Int `json:"amount"`
	Enabled      bool     `json:"enabled"`
}

// UserDebt is the query view of a debt entry.
type UserDebt struct {
	Denom            string   `json:"denom"`
	AmountScaled     *big.Int `json:"amount_scaled"`
	Amount           *big.Int `json:"amount"`
	Uncollateralized bool     `json:"uncollateralized"`
}

var (
	ErrInvalidConfig                   = errors.New("lending engine: invalid config")
	ErrInvalidAmount                   = errors.New("lending engine: amount must be positive")
	ErrMarketNotFound                  = errors.New("lending engine: market not found")
	ErrMarketAlreadyExists             = errors.New("lending engine: market already exists")
	ErrDepositDisabled                 = errors.New("lending engine: deposits disabled")
	ErrBorrowDisabled                  = errors.New("lending engine: borrowing disabled")
	ErrDepositTooSmall                 = errors.New("lending engine: deposit rounds to zero scaled amount")
	ErrNoCollateral                    = errors.New("lending engine: no collateral")
	ErrHealthFactorAfterWithdraw       = errors.New("lending engine: health factor below one after withdraw")
	ErrHealthFactorAfterDisable        = errors.New("lending engine: health factor below one after disabling collateral")
	ErrNotEnoughLiquidity              = errors.New("lending engine: not enough liquidity")
	ErrInvalidBorrowAmount             = errors.New("lending engine: invalid borrow amount")
	ErrBorrowExceedsCollateral         = errors.New("lending engine: borrow exceeds collateral")
	ErrNoDebt                          = errors.New("lending engine: no debt")
	ErrCannotRepayCreditManager        = errors.New("lending engine: cannot repay on behalf of the credit manager")
	ErrCannotLiquidateSelf             = errors.New("lending engine: cannot liquidate self")
	ErrCannotLiquidateCreditManager    = errors.New("lending engine: cannot liquidate the credit manager")
	ErrCannotLiquidateUncollateralized = errors.New("lending engine: cannot liquidate uncollateralized debt")
	ErrNotLiquidatable                 = errors.New("lending engine: user is not liquidatable")
	ErrNoDebtInDenom                   = errors.New("lending engine: no debt in denom")
	ErrNoCollateralInDenom             = errors.New("lending engine: no collateral in denom")
	ErrCollateralNotEnabled            = errors.New("lending engine: collateral not enabled")
	ErrDebtMarketInactive              = errors.New("lending engine: debt market inactive")
)

// DepositCapExceededError reports the cap and the total the deposit would
// have reached.
type DepositCapExceededError struct {
	Denom string
	Cap   *big.Int
	Total *big.Int
}

func (e *DepositCapExceededError) Error() string {
	return fmt.Sprintf("lending engine: deposit cap exceeded for %s: cap %s, total %s", e.Denom, e.Cap, e.Total)
}
