package lending

import (
	"errors"
	"math/big"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

var errOracleNotConfigured = errors.New("lending engine: price oracle not configured")

// positionsDraft is a user's enabled collateral and debt in underlying units,
// editable before the health check runs.
type positionsDraft struct {
	collateral map[string]*big.Int
	debts      map[string]*big.Int
}

func (d *positionsDraft) addCollateral(denom string, delta *big.Int) {
	current := numeric.IntOrZero(d.collateral[denom])
	d.collateral[denom] = current.Add(current, delta)
}

func (d *positionsDraft) dropCollateral(denom string) { delete(d.collateral, denom) }

func (d *positionsDraft) addDebt(denom string, delta *big.Int) {
	current := numeric.IntOrZero(d.debts[denom])
	d.debts[denom] = current.Add(current, delta)
}

// marketView returns the in-flight market when the operation already loaded
// it, otherwise the stored market projected to the block time.
func (e *Engine) marketView(state engineState, denom string, live map[string]*Market) (*Market, error) {
	if m, ok := live[denom]; ok {
		return m, nil
	}
	m, err := e.loadMarket(state, denom)
	if err != nil {
		return nil, err
	}
	return projected(m, e.blockTime), nil
}

func (e *Engine) draft(state engineState, user types.Identity, live map[string]*Market) (*positionsDraft, error) {
	out := &positionsDraft{collateral: map[string]*big.Int{}, debts: map[string]*big.Int{}}
	denoms, err := state.CollateralDenoms(user)
	if err != nil {
		return nil, err
	}
	for _, denom := range denoms {
		entry, ok, err := state.Collateral(user, denom)
		if err != nil {
			return nil, err
		}
		if !ok || entry == nil || !entry.Enabled {
			continue
		}
		market, err := e.marketView(state, denom, live)
		if err != nil {
			return nil, err
		}
		amount, err := collateralUnderlying(entry.AmountScaled, market)
		if err != nil {
			return nil, err
		}
		out.collateral[denom] = amount
	}
	denoms, err = state.DebtDenoms(user)
	if err != nil {
		return nil, err
	}
	for _, denom := range denoms {
		entry, ok, err := state.Debt(user, denom)
		if err != nil {
			return nil, err
		}
		if !ok || entry == nil {
			continue
		}
		market, err := e.marketView(state, denom, live)
		if err != nil {
			return nil, err
		}
		amount, err := debtUnderlying(entry.AmountScaled, market)
		if err != nil {
			return nil, err
		}
		out.debts[denom] = amount
	}
	return out, nil
}

// userHealth runs the health computer over the user's pool positions after
// modify has been applied. The boolean reports whether any debt remains.
func (e *Engine) userHealth(state engineState, user types.Identity, kind oracle.ActionKind, live map[string]*Market, modify func(*positionsDraft)) (health.Values, bool, error) {
	d, err := e.draft(state, user, live)
	if err != nil {
		return health.Values{}, false, err
	}
	if modify != nil {
		modify(d)
	}
	var positions health.Positions
	seen := map[string]struct{}{}
	for denom, amount := range d.collateral {
		if amount.Sign() > 0 {
			positions.Deposits = append(positions.Deposits, types.NewCoinBig(denom, amount))
			seen[denom] = struct{}{}
		}
	}
	hasDebt := false
	for denom, amount := range d.debts {
		if amount.Sign() > 0 {
			positions.Debts = append(positions.Debts, health.DebtAmount{Denom: denom, Amount: amount})
			seen[denom] = struct{}{}
			hasDebt = true
		}
	}
	positions.Deposits = positions.Deposits.Normalize()
	sort.Slice(positions.Debts, func(i, j int) bool { return positions.Debts[i].Denom < positions.Debts[j].Denom })
	if !hasDebt {
		return health.Values{TotalCollateralValue: big.NewInt(0), TotalDebtValue: big.NewInt(0), MaxLTVAdjustedCollateral: big.NewInt(0), LiquidationThresholdAdjustedCollateral: big.NewInt(0)}, false, nil
	}
	data, err := e.denomsData(seen, kind)
	if err != nil {
		return health.Values{}, false, err
	}
	computer := &health.Computer{Kind: health.DefaultKind(), Positions: positions, Denoms: data}
	vals, err := computer.Compute()
	return vals, true, err
}

func (e *Engine) denomsData(denoms map[string]struct{}, kind oracle.ActionKind) (health.DenomsData, error) {
	if e.oracle == nil {
		return health.DenomsData{}, errOracleNotConfigured
	}
	out := health.DenomsData{Prices: map[string]numeric.Decimal{}, Params: map[string]*params.AssetParams{}}
	for denom := range denoms {
		price, err := e.oracle.Price(denom, kind)
		if err != nil {
			return health.DenomsData{}, err
		}
		out.Prices[denom] = price
		if e.params != nil {
			p, err := e.params.MaybeAssetParams(denom)
			if err != nil {
				return health.DenomsData{}, err
			}
			if p != nil {
				out.Params[denom] = p
			}
		}
	}
	return out, nil
}
