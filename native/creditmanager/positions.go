package creditmanager

import (
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

// positions merges the ledger with the account's pool lends and debts.
func (e *Engine) positions(acct *Account, ledger *Ledger) (health.Positions, error) {
	id := e.identity(acct.ID)
	lends, err := e.pool.UserCollateralAmounts(id)
	if err != nil {
		return health.Positions{}, err
	}
	debts, err := e.pool.UserDebtAmounts(id)
	if err != nil {
		return health.Positions{}, err
	}
	out := health.Positions{
		AccountID: acct.ID,
		Deposits:  ledger.Deposits,
		Lends:     lends.Normalize(),
		Vaults:    ledger.Vaults,
		StakedLps: ledger.StakedLps,
	}.Clone()
	for _, d := range debts.Normalize() {
		out.Debts = append(out.Debts, health.DebtAmount{Denom: d.Denom, Amount: new(big.Int).Set(d.Amount)})
	}
	return out, nil
}

// computer snapshots prices, params and vault values for positions. extra
// names denoms an estimator may convert into.
func (e *Engine) computer(kind health.AccountKind, positions health.Positions, action oracle.ActionKind, extra ...string) (*health.Computer, error) {
	denoms := map[string]struct{}{}
	for _, group := range []types.Coins{positions.Deposits, positions.Lends, positions.StakedLps} {
		for _, c := range group {
			denoms[c.Denom] = struct{}{}
		}
	}
	for _, d := range positions.Debts {
		denoms[d.Denom] = struct{}{}
	}
	for _, denom := range extra {
		if denom != "" {
			denoms[denom] = struct{}{}
		}
	}

	type heldVault struct {
		vault Vault
		info  VaultInfo
	}
	held := make(map[string]heldVault, len(positions.Vaults))
	vaults := health.VaultsData{
		Values:  map[string]health.VaultPositionValue{},
		Configs: map[string]*params.VaultConfig{},
	}
	for _, pos := range positions.Vaults {
		v, info, err := e.vault(pos.Vault)
		if err != nil {
			return nil, err
		}
		held[pos.Vault] = heldVault{vault: v, info: info}
		denoms[info.BaseToken] = struct{}{}
		cfg, err := e.vaultConfig(pos.Vault)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			vaults.Configs[pos.Vault] = cfg
		}
	}

	data := health.DenomsData{Prices: map[string]numeric.Decimal{}, Params: map[string]*params.AssetParams{}}
	for denom := range denoms {
		price, err := e.oracle.Price(denom, action)
		if err != nil {
			return nil, err
		}
		data.Prices[denom] = price
		p, err := e.params.MaybeAssetParams(denom)
		if err != nil {
			return nil, err
		}
		if p != nil {
			data.Params[denom] = p
		}
	}

	for _, pos := range positions.Vaults {
		h := held[pos.Vault]
		price := data.Prices[h.info.BaseToken]
		value, err := vaultValue(h.vault, h.info, pos.Amount, price)
		if err != nil {
			return nil, err
		}
		vaults.Values[pos.Vault] = value
	}
	return &health.Computer{Kind: kind, Positions: positions, Denoms: data, Vaults: vaults}, nil
}

// vaultValue values shares through the vault's redemption rate and unlocking
// entries at the base token price.
func vaultValue(v Vault, info VaultInfo, amount health.VaultPositionAmount, price numeric.Decimal) (health.VaultPositionValue, error) {
	shares := big.NewInt(0)
	if amount != nil {
		shares = amount.Shares()
	}
	redeemable := big.NewInt(0)
	if shares.Sign() > 0 {
		var err error
		redeemable, err = v.PreviewRedeem(shares)
		if err != nil {
			return health.VaultPositionValue{}, err
		}
	}
	shareValue, err := numeric.MulFloor(redeemable, price)
	if err != nil {
		return health.VaultPositionValue{}, err
	}
	unlocking := big.NewInt(0)
	for _, u := range health.UnlockingOf(amount) {
		unlocking.Add(unlocking, numeric.IntOrZero(u.Coin.Amount))
	}
	unlockingValue, err := numeric.MulFloor(unlocking, price)
	if err != nil {
		return health.VaultPositionValue{}, err
	}
	return health.VaultPositionValue{
		VaultCoin: health.CoinValue{Denom: info.VaultToken, Amount: shares, Value: shareValue},
		BaseCoin:  health.CoinValue{Denom: info.BaseToken, Amount: unlocking, Value: unlockingValue},
	}, nil
}

func (e *Engine) snapshot(accountID string) (*Account, health.Positions, error) {
	state, err := e.withState()
	if err != nil {
		return nil, health.Positions{}, err
	}
	acct, ledger, err := e.loadAccount(state, accountID)
	if err != nil {
		return nil, health.Positions{}, err
	}
	if e.pool == nil || e.oracle == nil || e.params == nil {
		return nil, health.Positions{}, ErrAdapterNotConfigured
	}
	positions, err := e.positions(acct, ledger)
	return acct, positions, err
}

// Positions returns the full position snapshot of an account.
func (e *Engine) Positions(accountID string) (health.Positions, error) {
	_, positions, err := e.snapshot(accountID)
	return positions, err
}

// Health values an account under the prices of kind.
func (e *Engine) Health(accountID string, kind oracle.ActionKind) (health.Values, error) {
	acct, positions, err := e.snapshot(accountID)
	if err != nil {
		return health.Values{}, err
	}
	computer, err := e.computer(acct.Kind, positions, kind)
	if err != nil {
		return health.Values{}, err
	}
	return computer.Compute()
}

func (e *Engine) MaxBorrowEstimate(accountID, denom string, target health.BorrowTarget) (*big.Int, error) {
	acct, positions, err := e.snapshot(accountID)
	if err != nil {
		return nil, err
	}
	computer, err := e.computer(acct.Kind, positions, oracle.ActionDefault, denom, target.DenomOut)
	if err != nil {
		return nil, err
	}
	if target.Kind == health.BorrowToVault {
		cfg, err := e.vaultConfig(target.Vault)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			computer.Vaults.Configs[target.Vault] = cfg
		}
	}
	return computer.MaxBorrowEstimate(denom, target)
}

func (e *Engine) MaxWithdrawEstimate(accountID, denom string) (*big.Int, error) {
	acct, positions, err := e.snapshot(accountID)
	if err != nil {
		return nil, err
	}
	computer, err := e.computer(acct.Kind, positions, oracle.ActionDefault, denom)
	if err != nil {
		return nil, err
	}
	return computer.MaxWithdrawEstimate(denom)
}

func (e *Engine) MaxSwapEstimate(accountID, from, to string, kind health.SwapKind, slippage numeric.Decimal) (*big.Int, error) {
	acct, positions, err := e.snapshot(accountID)
	if err != nil {
		return nil, err
	}
	computer, err := e.computer(acct.Kind, positions, oracle.ActionDefault, from, to)
	if err != nil {
		return nil, err
	}
	return computer.MaxSwapEstimate(from, to, kind, slippage)
}
