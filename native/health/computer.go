// Package health values account positions and answers solvency questions.
// Everything in the package is pure: callers assemble the price and
// parameter snapshot and the Computer never performs I/O.
package health

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrMissingPrice     = errors.New("health: missing price")
	ErrMissingVaultData = errors.New("health: missing vault data")
)

// HLSRuleViolationError reports why an HLS account breaks the correlation
// rules.
type HLSRuleViolationError struct {
	Reason string
}

func (e *HLSRuleViolationError) Error() string {
	return "health: hls rule violation: " + e.Reason
}

// Values is the output of Compute. Health factors are nil when the account
// has no debt.
type Values struct {
	TotalCollateralValue                   *big.Int         `json:"total_collateral_value"`
	TotalDebtValue                         *big.Int         `json:"total_debt_value"`
	MaxLTVAdjustedCollateral               *big.Int         `json:"max_ltv_adjusted_collateral"`
	LiquidationThresholdAdjustedCollateral *big.Int         `json:"liquidation_threshold_adjusted_collateral"`
	MaxLTVHealthFactor                     *numeric.Decimal `json:"max_ltv_health_factor,omitempty"`
	LiquidationHealthFactor                *numeric.Decimal `json:"liquidation_health_factor,omitempty"`
	AboveMaxLTV                            bool             `json:"above_max_ltv"`
	Liquidatable                           bool             `json:"liquidatable"`
}

// Computer evaluates the health of a single account snapshot.
type Computer struct {
	Kind      AccountKind
	Positions Positions
	Denoms    DenomsData
	Vaults    VaultsData
}

// Compute returns the collateral, debt and health factor of the snapshot.
func (c *Computer) Compute() (Values, error) {
	collateral, err := c.collateral()
	if err != nil {
		return Values{}, err
	}
	debt, err := c.debtValue()
	if err != nil {
		return Values{}, err
	}
	out := Values{
		TotalCollateralValue:                   collateral.total,
		TotalDebtValue:                         debt,
		MaxLTVAdjustedCollateral:               collateral.maxLTV,
		LiquidationThresholdAdjustedCollateral: collateral.threshold,
	}
	if debt.Sign() == 0 {
		return out, nil
	}
	maxHF, err := numeric.NewDecimalFromRatio(collateral.maxLTV, debt)
	if err != nil {
		return Values{}, err
	}
	liqHF, err := numeric.NewDecimalFromRatio(collateral.threshold, debt)
	if err != nil {
		return Values{}, err
	}
	out.MaxLTVHealthFactor = &maxHF
	out.LiquidationHealthFactor = &liqHF
	// The ratios are floored, so hf < 1 exactly when adjusted < debt.
	out.AboveMaxLTV = collateral.maxLTV.Cmp(debt) < 0
	out.Liquidatable = collateral.threshold.Cmp(debt) < 0
	return out, nil
}

type collateralValues struct {
	total     *big.Int
	maxLTV    *big.Int
	threshold *big.Int
}

func (v *collateralValues) add(value *big.Int, maxLTV, threshold numeric.Decimal) error {
	v.total.Add(v.total, value)
	adjusted, err := numeric.MulFloor(value, maxLTV)
	if err != nil {
		return err
	}
	v.maxLTV.Add(v.maxLTV, adjusted)
	adjusted, err = numeric.MulFloor(value, threshold)
	if err != nil {
		return err
	}
	v.threshold.Add(v.threshold, adjusted)
	return nil
}

func (c *Computer) collateral() (collateralValues, error) {
	out := collateralValues{total: new(big.Int), maxLTV: new(big.Int), threshold: new(big.Int)}
	for _, group := range []types.Coins{c.Positions.Deposits, c.Positions.Lends, c.Positions.StakedLps} {
		for _, coin := range group {
			if coin.IsZero() {
				continue
			}
			value, err := c.valueFloor(coin.Denom, coin.Amount)
			if err != nil {
				return collateralValues{}, err
			}
			maxLTV, threshold := c.assetWeights(coin.Denom)
			if err := out.add(value, maxLTV, threshold); err != nil {
				return collateralValues{}, err
			}
		}
	}
	for _, pos := range c.Positions.Vaults {
		value, ok := c.Vaults.Values[pos.Vault]
		if !ok {
			return collateralValues{}, fmt.Errorf("%w: %s", ErrMissingVaultData, pos.Vault)
		}
		maxLTV, threshold := c.vaultWeights(pos.Vault)
		if err := out.add(numeric.IntOrZero(value.VaultCoin.Value), maxLTV, threshold); err != nil {
			return collateralValues{}, err
		}
		// Unlocking base tokens are weighted by the base asset's own params.
		if base := numeric.IntOrZero(value.BaseCoin.Value); base.Sign() > 0 {
			maxLTV, threshold = c.assetWeights(value.BaseCoin.Denom)
			if err := out.add(base, maxLTV, threshold); err != nil {
				return collateralValues{}, err
			}
		}
	}
	return out, nil
}

func (c *Computer) debtValue() (*big.Int, error) {
	total := new(big.Int)
	for _, debt := range c.Positions.Debts {
		if debt.Amount == nil || debt.Amount.Sign() == 0 {
			continue
		}
		price, err := c.price(debt.Denom)
		if err != nil {
			return nil, err
		}
		value, err := numeric.MulCeil(debt.Amount, price)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

func (c *Computer) price(denom string) (numeric.Decimal, error) {
	price, ok := c.Denoms.Prices[denom]
	if !ok {
		return numeric.Decimal{}, fmt.Errorf("%w: %s", ErrMissingPrice, denom)
	}
	return price, nil
}

func (c *Computer) valueFloor(denom string, amount *big.Int) (*big.Int, error) {
	price, err := c.price(denom)
	if err != nil {
		return nil, err
	}
	return numeric.MulFloor(amount, price)
}

// assetWeights resolves the (max_ltv, liquidation_threshold) pair of denom
// under the account kind. Unknown denoms and HLS accounts holding an asset
// without HLS params get zero weight.
func (c *Computer) assetWeights(denom string) (numeric.Decimal, numeric.Decimal) {
	p := c.Denoms.Params[denom]
	if p == nil {
		return numeric.Zero(), numeric.Zero()
	}
	if c.Kind.IsHLS() {
		if p.Hls == nil {
			return numeric.Zero(), numeric.Zero()
		}
		return p.Hls.MaxLTV, p.Hls.LiquidationThreshold
	}
	return p.MaxLTV, p.LiquidationThreshold
}

func (c *Computer) vaultWeights(addr string) (numeric.Decimal, numeric.Decimal) {
	cfg := c.Vaults.Configs[addr]
	if cfg == nil {
		return numeric.Zero(), numeric.Zero()
	}
	if c.Kind.IsHLS() {
		if cfg.Hls == nil {
			return numeric.Zero(), numeric.Zero()
		}
		return cfg.Hls.MaxLTV, cfg.Hls.LiquidationThreshold
	}
	return cfg.MaxLTV, cfg.LiquidationThreshold
}

// AssertHLSRules checks the correlation rules of HLS accounts. Other account
// kinds always pass.
func (c *Computer) AssertHLSRules() error {
	if !c.Kind.IsHLS() {
		return nil
	}
	var debtDenoms []string
	for _, debt := range c.Positions.Debts {
		if debt.Amount != nil && debt.Amount.Sign() > 0 {
			debtDenoms = append(debtDenoms, debt.Denom)
		}
	}
	switch len(debtDenoms) {
	case 0:
		return nil
	case 1:
	default:
		return &HLSRuleViolationError{Reason: "account has more than one debt denom"}
	}
	debtDenom := debtDenoms[0]
	p := c.Denoms.Params[debtDenom]
	if p == nil || p.Hls == nil {
		return &HLSRuleViolationError{Reason: fmt.Sprintf("debt denom %s has no hls params", debtDenom)}
	}
	correlations := p.Hls.Correlations
	for _, group := range []struct {
		name  string
		coins types.Coins
	}{{"lend", c.Positions.Lends}, {"staked lp", c.Positions.StakedLps}} {
		for _, coin := range group.coins {
			if coin.IsZero() || correlations.ContainsCoin(coin.Denom) {
				continue
			}
			return &HLSRuleViolationError{Reason: fmt.Sprintf("%s %s is not correlated with debt %s", group.name, coin.Denom, debtDenom)}
		}
	}
	for _, pos := range c.Positions.Vaults {
		if IsEmpty(pos.Amount) || correlations.ContainsVault(pos.Vault) {
			continue
		}
		return &HLSRuleViolationError{Reason: fmt.Sprintf("vault %s is not correlated with debt %s", pos.Vault, debtDenom)}
	}
	return nil
}
