package health

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
)

// BorrowTargetKind says where borrowed coins end up.
type BorrowTargetKind uint8

const (
	BorrowToWallet BorrowTargetKind = iota
	BorrowToDeposit
	BorrowToVault
	BorrowToSwap
)

// BorrowTarget parameterises MaxBorrowEstimate. Vault is set for
// BorrowToVault; DenomOut and Slippage for BorrowToSwap.
type BorrowTarget struct {
	Kind     BorrowTargetKind
	Vault    string
	DenomOut string
	Slippage numeric.Decimal
}

func WalletTarget() BorrowTarget  { return BorrowTarget{Kind: BorrowToWallet} }
func DepositTarget() BorrowTarget { return BorrowTarget{Kind: BorrowToDeposit} }

func VaultTarget(addr string) BorrowTarget {
	return BorrowTarget{Kind: BorrowToVault, Vault: addr}
}

func SwapTarget(denomOut string, slippage numeric.Decimal) BorrowTarget {
	return BorrowTarget{Kind: BorrowToSwap, DenomOut: denomOut, Slippage: slippage}
}

// SwapKind distinguishes swaps limited to the deposit balance from margin
// swaps that borrow the shortfall.
type SwapKind uint8

const (
	SwapDefault SwapKind = iota
	SwapMargin
)

var errUnknownTarget = errors.New("health: unknown borrow target")

func (c *Computer) with(pos Positions, vaults VaultsData) *Computer {
	return &Computer{Kind: c.Kind, Positions: pos, Denoms: c.Denoms, Vaults: vaults}
}

// safe reports whether the snapshot is at or below max LTV and, for HLS
// accounts, passes the correlation rules.
func (c *Computer) safe() (bool, error) {
	vals, err := c.Compute()
	if err != nil {
		return false, err
	}
	if vals.AboveMaxLTV {
		return false, nil
	}
	if err := c.AssertHLSRules(); err != nil {
		var violation *HLSRuleViolationError
		if errors.As(err, &violation) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// headroom returns max_ltv_adjusted - debt, or nil when the account is
// already above max LTV.
func (c *Computer) headroom() (*big.Int, error) {
	vals, err := c.Compute()
	if err != nil {
		return nil, err
	}
	if vals.AboveMaxLTV {
		return nil, nil
	}
	return new(big.Int).Sub(vals.MaxLTVAdjustedCollateral, vals.TotalDebtValue), nil
}

// largestSafe finds the largest x in [0, hi] for which apply(x) is safe,
// assuming safety is monotone in x and holds at zero.
func largestSafe(hi *big.Int, apply func(*big.Int) (*Computer, error)) (*big.Int, error) {
	check := func(x *big.Int) (bool, error) {
		next, err := apply(x)
		if err != nil {
			return false, err
		}
		return next.safe()
	}
	ok, err := check(hi)
	if err != nil {
		return nil, err
	}
	if ok {
		return new(big.Int).Set(hi), nil
	}
	lo := big.NewInt(0)
	upper := new(big.Int).Sub(hi, big.NewInt(1))
	one := big.NewInt(1)
	for lo.Cmp(upper) < 0 {
		mid := new(big.Int).Add(lo, upper)
		mid.Add(mid, one)
		mid.Rsh(mid, 1)
		ok, err := check(mid)
		if err != nil {
			return nil, err
		}
		if ok {
			lo = mid
		} else {
			upper = mid.Sub(mid, one)
		}
	}
	return lo, nil
}

// searchBound pads an analytic candidate to absorb rounding in the forward
// formulas.
func searchBound(candidate *big.Int) *big.Int {
	return new(big.Int).Add(candidate, big.NewInt(2))
}

// MaxBorrowEstimate returns the largest amount of denom the account can
// borrow while staying at or below max LTV.
func (c *Computer) MaxBorrowEstimate(denom string, target BorrowTarget) (*big.Int, error) {
	room, err := c.headroom()
	if err != nil || room == nil {
		return big.NewInt(0), err
	}
	price, err := c.price(denom)
	if err != nil {
		return nil, err
	}
	if price.IsZero() {
		return big.NewInt(0), nil
	}
	var weight numeric.Decimal
	switch target.Kind {
	case BorrowToWallet:
	case BorrowToDeposit:
		weight, _ = c.assetWeights(denom)
	case BorrowToVault:
		weight, _ = c.vaultWeights(target.Vault)
	case BorrowToSwap:
		if _, err := c.price(target.DenomOut); err != nil {
			return nil, err
		}
		outWeight, _ := c.assetWeights(target.DenomOut)
		weight = outWeight.Mul(numeric.One().SaturatingSub(target.Slippage))
	default:
		return nil, fmt.Errorf("%w: %d", errUnknownTarget, target.Kind)
	}
	drain := price.MulCeil(numeric.One().SaturatingSub(weight))
	if drain.IsZero() {
		return big.NewInt(0), nil
	}
	candidate, err := numeric.DivFloor(room, drain)
	if err != nil {
		return nil, err
	}
	if ok, err := c.safe(); err != nil || !ok {
		return big.NewInt(0), err
	}
	return largestSafe(searchBound(candidate), func(x *big.Int) (*Computer, error) {
		return c.applyBorrow(denom, x, target)
	})
}

func (c *Computer) applyBorrow(denom string, amount *big.Int, target BorrowTarget) (*Computer, error) {
	pos := c.Positions.Clone()
	pos.addDebt(denom, amount)
	vaults := c.Vaults
	switch target.Kind {
	case BorrowToDeposit:
		pos.Deposits = adjustCoins(pos.Deposits, denom, amount)
	case BorrowToVault:
		value, err := c.valueFloor(denom, amount)
		if err != nil {
			return nil, err
		}
		vaults = addVaultValue(c.Vaults, target.Vault, value)
		found := false
		for _, v := range pos.Vaults {
			if v.Vault == target.Vault {
				found = true
				break
			}
		}
		if !found {
			pos.Vaults = append(pos.Vaults, VaultPosition{Vault: target.Vault, Amount: Unlocked{Amount: new(big.Int).Set(amount)}})
		}
	case BorrowToSwap:
		out, err := c.swapOut(denom, target.DenomOut, amount, target.Slippage)
		if err != nil {
			return nil, err
		}
		pos.Deposits = adjustCoins(pos.Deposits, target.DenomOut, out)
	}
	return c.with(pos, vaults), nil
}

func addVaultValue(data VaultsData, addr string, value *big.Int) VaultsData {
	values := make(map[string]VaultPositionValue, len(data.Values)+1)
	for k, v := range data.Values {
		values[k] = v
	}
	current := values[addr]
	current.VaultCoin.Value = new(big.Int).Add(numeric.IntOrZero(current.VaultCoin.Value), value)
	values[addr] = current
	return VaultsData{Values: values, Configs: data.Configs}
}

// swapOut converts amount of from into to at oracle prices less slippage.
func (c *Computer) swapOut(from, to string, amount *big.Int, slippage numeric.Decimal) (*big.Int, error) {
	value, err := c.valueFloor(from, amount)
	if err != nil {
		return nil, err
	}
	value, err = numeric.MulFloor(value, numeric.One().SaturatingSub(slippage))
	if err != nil {
		return nil, err
	}
	priceOut, err := c.price(to)
	if err != nil {
		return nil, err
	}
	if priceOut.IsZero() {
		return nil, fmt.Errorf("%w: zero price for %s", ErrMissingPrice, to)
	}
	return numeric.DivFloor(value, priceOut)
}

// MaxWithdrawEstimate returns the largest deposit of denom the account can
// withdraw while staying at or below max LTV.
func (c *Computer) MaxWithdrawEstimate(denom string) (*big.Int, error) {
	balance := c.Positions.Deposits.AmountOf(denom)
	if balance.Sign() == 0 {
		return balance, nil
	}
	if !c.Positions.HasDebt() {
		return balance, nil
	}
	room, err := c.headroom()
	if err != nil || room == nil {
		return big.NewInt(0), err
	}
	price, err := c.price(denom)
	if err != nil {
		return nil, err
	}
	weight, _ := c.assetWeights(denom)
	drain := price.Mul(weight)
	if drain.IsZero() {
		return balance, nil
	}
	candidate, err := numeric.DivFloor(room, drain)
	if err != nil {
		return nil, err
	}
	hi := numeric.MinInt(balance, searchBound(candidate))
	return largestSafe(hi, func(x *big.Int) (*Computer, error) {
		pos := c.Positions.Clone()
		pos.Deposits = adjustCoins(pos.Deposits, denom, new(big.Int).Neg(x))
		return c.with(pos, c.Vaults), nil
	})
}

// MaxSwapEstimate returns the largest amount of from that can be swapped
// into to. Default swaps are bounded by the deposit balance; margin swaps
// borrow whatever the balance does not cover.
func (c *Computer) MaxSwapEstimate(from, to string, kind SwapKind, slippage numeric.Decimal) (*big.Int, error) {
	room, err := c.headroom()
	if err != nil || room == nil {
		return big.NewInt(0), err
	}
	if ok, err := c.safe(); err != nil || !ok {
		return big.NewInt(0), err
	}
	balance := c.Positions.Deposits.AmountOf(from)
	apply := func(x *big.Int) (*Computer, error) {
		pos := c.Positions.Clone()
		used := numeric.MinInt(x, balance)
		pos.Deposits = adjustCoins(pos.Deposits, from, new(big.Int).Neg(used))
		if borrowed := new(big.Int).Sub(x, used); borrowed.Sign() > 0 {
			pos.addDebt(from, borrowed)
		}
		out, err := c.swapOut(from, to, x, slippage)
		if err != nil {
			return nil, err
		}
		pos.Deposits = adjustCoins(pos.Deposits, to, out)
		return c.with(pos, c.Vaults), nil
	}
	if kind == SwapDefault {
		if balance.Sign() == 0 {
			return balance, nil
		}
		return largestSafe(balance, apply)
	}

	// Margin: the full balance first, then borrowing at the swap's net drain.
	full, err := apply(balance)
	if err != nil {
		return nil, err
	}
	afterRoom, err := full.headroom()
	if err != nil {
		return nil, err
	}
	if afterRoom == nil {
		return largestSafe(balance, apply)
	}
	price, err := c.price(from)
	if err != nil {
		return nil, err
	}
	outWeight, _ := c.assetWeights(to)
	drain := price.MulCeil(numeric.One().SaturatingSub(outWeight.Mul(numeric.One().SaturatingSub(slippage))))
	if drain.IsZero() {
		return largestSafe(balance, apply)
	}
	extra, err := numeric.DivFloor(afterRoom, drain)
	if err != nil {
		return nil, err
	}
	return largestSafe(new(big.Int).Add(balance, searchBound(extra)), apply)
}
