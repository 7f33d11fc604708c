package events

import (
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

const (
	TypeLendingDeposit          = "lending.deposit"
	TypeLendingWithdraw         = "lending.withdraw"
	TypeLendingBorrow           = "lending.borrow"
	TypeLendingRepay            = "lending.repay"
	TypeLendingLiquidate        = "lending.liquidate"
	TypeLendingInterestAccrued  = "lending.interest_accrued"
	TypeLendingCollateralStatus = "lending.collateral_status"
	TypeLendingMarketInit       = "lending.market_init"
	TypeLendingMarketUpdated    = "lending.market_updated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// LendingDeposit is emitted when collateral is supplied to a market.
type LendingDeposit struct {
	Sender       string
	User         types.Identity
	Denom        string
	Amount       *big.Int
	AmountScaled *big.Int
}

func (LendingDeposit) EventType() string { return TypeLendingDeposit }

func (e LendingDeposit) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingDeposit,
		Attributes: map[string]string{
			"sender":        e.Sender,
			"user":          e.User.Key(),
			"denom":         e.Denom,
			"amount":        amountString(e.Amount),
			"amount_scaled": amountString(e.AmountScaled),
		},
	}
}

type LendingWithdraw struct {
	User         types.Identity
	Recipient    string
	Denom        string
	Amount       *big.Int
	AmountScaled *big.Int
}

func (LendingWithdraw) EventType() string { return TypeLendingWithdraw }

func (e LendingWithdraw) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingWithdraw,
		Attributes: map[string]string{
			"user":          e.User.Key(),
			"recipient":     e.Recipient,
			"denom":         e.Denom,
			"amount":        amountString(e.Amount),
			"amount_scaled": amountString(e.AmountScaled),
		},
	}
}

type LendingBorrow struct {
	User         types.Identity
	Recipient    string
	Denom        string
	Amount       *big.Int
	AmountScaled *big.Int
}

func (LendingBorrow) EventType() string { return TypeLendingBorrow }

func (e LendingBorrow) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingBorrow,
		Attributes: map[string]string{
			"user":          e.User.Key(),
			"recipient":     e.Recipient,
			"denom":         e.Denom,
			"amount":        amountString(e.Amount),
			"amount_scaled": amountString(e.AmountScaled),
		},
	}
}

type LendingRepay struct {
	Sender       string
	OnBehalfOf   types.Identity
	Denom        string
	Amount       *big.Int
	AmountScaled *big.Int
	Refund       *big.Int
}

func (LendingRepay) EventType() string { return TypeLendingRepay }

func (e LendingRepay) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingRepay,
		Attributes: map[string]string{
			"sender":        e.Sender,
			"on_behalf_of":  e.OnBehalfOf.Key(),
			"denom":         e.Denom,
			"amount":        amountString(e.Amount),
			"amount_scaled": amountString(e.AmountScaled),
			"refund":        amountString(e.Refund),
		},
	}
}

// LendingLiquidate records a liquidation of either a pool user or a credit
// account. The user attribute carries the identity key of the liquidatee.
type LendingLiquidate struct {
	Liquidator      string
	User            types.Identity
	DebtDenom       string
	DebtRepaid      *big.Int
	CollateralDenom string
	Seized          *big.Int
	ProtocolFee     *big.Int
	Refund          *big.Int
}

func (LendingLiquidate) EventType() string { return TypeLendingLiquidate }

func (e LendingLiquidate) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingLiquidate,
		Attributes: map[string]string{
			"liquidator":       e.Liquidator,
			"user":             e.User.Key(),
			"debt_denom":       e.DebtDenom,
			"debt_repaid":      amountString(e.DebtRepaid),
			"collateral_denom": e.CollateralDenom,
			"seized":           amountString(e.Seized),
			"protocol_fee":     amountString(e.ProtocolFee),
			"refund":           amountString(e.Refund),
		},
	}
}

type LendingInterestAccrued struct {
	Denom          string
	BorrowIndex    string
	LiquidityIndex string
	Reward         *big.Int
	RewardScaled   *big.Int
	Timestamp      uint64
}

func (LendingInterestAccrued) EventType() string { return TypeLendingInterestAccrued }

func (e LendingInterestAccrued) Event() *types.Event {
	return &types.Event{
		Type: TypeLendingInterestAccrued,
		Attributes: map[string]string{
			"denom":           e.Denom,
			"borrow_index":    e.BorrowIndex,
			"liquidity_index": e.LiquidityIndex,
			"reward":          amountString(e.Reward),
			"reward_scaled":   amountString(e.RewardScaled),
			"timestamp":       new(big.Int).SetUint64(e.Timestamp).String(),
		},
	}
}

type LendingCollateralStatus struct {
	User    types.Identity
	Denom   string
	Enabled bool
}

func (LendingCollateralStatus) EventType() string { return TypeLendingCollateralStatus }

func (e LendingCollateralStatus) Event() *types.Event {
	enabled := "false"
	if e.Enabled {
		enabled = "true"
	}
	return &types.Event{
		Type: TypeLendingCollateralStatus,
		Attributes: map[string]string{
			"user":    e.User.Key(),
			"denom":   e.Denom,
			"enabled": enabled,
		},
	}
}

type LendingMarketInit struct {
	Denom string
}

func (LendingMarketInit) EventType() string { return TypeLendingMarketInit }

func (e LendingMarketInit) Event() *types.Event {
	return &types.Event{Type: TypeLendingMarketInit, Attributes: map[string]string{"denom": e.Denom}}
}

type LendingMarketUpdated struct {
	Denom string
}

func (LendingMarketUpdated) EventType() string { return TypeLendingMarketUpdated }

func (e LendingMarketUpdated) Event() *types.Event {
	return &types.Event{Type: TypeLendingMarketUpdated, Attributes: map[string]string{"denom": e.Denom}}
}
