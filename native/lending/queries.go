package lending

import (
	"math/big"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

// Market returns the market of denom with indexes projected to the block
// time. Nothing is persisted.
func (e *Engine) Market(denom string) (*Market, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	market, err := e.loadMarket(state, denom)
	if err != nil {
		return nil, err
	}
	return projected(market, e.blockTime), nil
}

// Markets returns every market ordered by denom.
func (e *Engine) Markets() ([]*Market, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	denoms, err := state.MarketDenoms()
	if err != nil {
		return nil, err
	}
	sort.Strings(denoms)
	out := make([]*Market, 0, len(denoms))
	for _, denom := range denoms {
		market, err := e.loadMarket(state, denom)
		if err != nil {
			return nil, err
		}
		out = append(out, projected(market, e.blockTime))
	}
	return out, nil
}

func (e *Engine) Config() (Config, error) {
	state, err := e.withState()
	if err != nil {
		return Config{}, err
	}
	return e.config(state)
}

// UserCollateral returns the collateral of user in denom. A missing entry
// yields zero amounts.
func (e *Engine) UserCollateral(user types.Identity, denom string) (UserCollateral, error) {
	state, err := e.withState()
	if err != nil {
		return UserCollateral{}, err
	}
	out := UserCollateral{Denom: denom, AmountScaled: big.NewInt(0), Amount: big.NewInt(0)}
	entry, ok, err := state.Collateral(user, denom)
	if err != nil || !ok || entry == nil {
		return out, err
	}
	market, err := e.marketView(state, denom, nil)
	if err != nil {
		return UserCollateral{}, err
	}
	amount, err := collateralUnderlying(entry.AmountScaled, market)
	if err != nil {
		return UserCollateral{}, err
	}
	out.AmountScaled = new(big.Int).Set(entry.AmountScaled)
	out.Amount = amount
	out.Enabled = entry.Enabled
	return out, nil
}

func (e *Engine) UserCollaterals(user types.Identity) ([]UserCollateral, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	denoms, err := state.CollateralDenoms(user)
	if err != nil {
		return nil, err
	}
	sort.Strings(denoms)
	out := make([]UserCollateral, 0, len(denoms))
	for _, denom := range denoms {
		c, err := e.UserCollateral(user, denom)
		if err != nil {
			return nil, err
		}
		if c.AmountScaled.Sign() > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

// UserDebt returns the debt of user in denom. A missing entry yields zero
// amounts.
func (e *Engine) UserDebt(user types.Identity, denom string) (UserDebt, error) {
	state, err := e.withState()
	if err != nil {
		return UserDebt{}, err
	}
	out := UserDebt{Denom: denom, AmountScaled: big.NewInt(0), Amount: big.NewInt(0)}
	entry, ok, err := state.Debt(user, denom)
	if err != nil || !ok || entry == nil {
		return out, err
	}
	market, err := e.marketView(state, denom, nil)
	if err != nil {
		return UserDebt{}, err
	}
	amount, err := debtUnderlying(entry.AmountScaled, market)
	if err != nil {
		return UserDebt{}, err
	}
	out.AmountScaled = new(big.Int).Set(entry.AmountScaled)
	out.Amount = amount
	out.Uncollateralized = entry.Uncollateralized
	return out, nil
}

func (e *Engine) UserDebts(user types.Identity) ([]UserDebt, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	denoms, err := state.DebtDenoms(user)
	if err != nil {
		return nil, err
	}
	sort.Strings(denoms)
	out := make([]UserDebt, 0, len(denoms))
	for _, denom := range denoms {
		d, err := e.UserDebt(user, denom)
		if err != nil {
			return nil, err
		}
		if d.AmountScaled.Sign() > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// UserCollateralAmounts returns the underlying collateral of user per denom.
// Disabled entries are included.
func (e *Engine) UserCollateralAmounts(user types.Identity) (types.Coins, error) {
	entries, err := e.UserCollaterals(user)
	if err != nil {
		return nil, err
	}
	out := make(types.Coins, 0, len(entries))
	for _, c := range entries {
		out = append(out, types.NewCoinBig(c.Denom, c.Amount))
	}
	return out.Normalize(), nil
}

// UserDebtAmounts returns the underlying debt of user per denom.
func (e *Engine) UserDebtAmounts(user types.Identity) (types.Coins, error) {
	entries, err := e.UserDebts(user)
	if err != nil {
		return nil, err
	}
	out := make(types.Coins, 0, len(entries))
	for _, d := range entries {
		out = append(out, types.NewCoinBig(d.Denom, d.Amount))
	}
	return out.Normalize(), nil
}

// UserPosition evaluates the health of a direct pool user.
func (e *Engine) UserPosition(user types.Identity, kind oracle.ActionKind) (health.Values, error) {
	state, err := e.withState()
	if err != nil {
		return health.Values{}, err
	}
	vals, _, err := e.userHealth(state, user, kind, nil, nil)
	return vals, err
}

// TotalCollateral returns the underlying collateral of the market of denom.
func (e *Engine) TotalCollateral(denom string) (*big.Int, error) {
	market, err := e.Market(denom)
	if err != nil {
		return nil, err
	}
	return collateralUnderlying(market.CollateralTotalScaled, market)
}

// TotalDebt returns the underlying debt of the market of denom.
func (e *Engine) TotalDebt(denom string) (*big.Int, error) {
	market, err := e.Market(denom)
	if err != nil {
		return nil, err
	}
	return debtUnderlying(market.DebtTotalScaled, market)
}

// TotalCollateralScaled satisfies the incentives ledger's view of the pool.
func (e *Engine) TotalCollateralScaled(denom string) (*big.Int, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	market, err := e.loadMarket(state, denom)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(market.CollateralTotalScaled), nil
}

// UserCollateralScaled returns the scaled collateral of user in denom.
func (e *Engine) UserCollateralScaled(user types.Identity, denom string) (*big.Int, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	entry, ok, err := state.Collateral(user, denom)
	if err != nil || !ok || entry == nil {
		return big.NewInt(0), err
	}
	return new(big.Int).Set(entry.AmountScaled), nil
}
