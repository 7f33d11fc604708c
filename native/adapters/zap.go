package adapters

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

// PoolRecord is a two-asset liquidity pool whose reserves are the bank
// balances of Addr.
type PoolRecord struct {
	LpDenom     string
	Addr        string
	Denoms      []string
	TotalSupply *big.Int
}

type poolState interface {
	LiquidityPool(lpDenom string) (*PoolRecord, bool, error)
	PutLiquidityPool(rec *PoolRecord) error
}

// Zapper mints and burns LP tokens of registered pools.
type Zapper struct {
	state poolState
	bank  Bank
}

func NewZapper(bank Bank) *Zapper { return &Zapper{bank: bank} }

func (z *Zapper) SetState(state poolState) { z.state = state }

func (z *Zapper) pool(lpDenom string) (*PoolRecord, error) {
	if z == nil || z.state == nil {
		return nil, ErrStateNotConfigured
	}
	rec, ok, err := z.state.LiquidityPool(lpDenom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, lpDenom)
	}
	rec.TotalSupply = numeric.IntOrZero(rec.TotalSupply)
	return rec, nil
}

// RegisterPool creates an empty pool for the two denoms.
func (z *Zapper) RegisterPool(lpDenom, addr string, denomA, denomB string) error {
	if z == nil || z.state == nil {
		return ErrStateNotConfigured
	}
	for _, denom := range []string{lpDenom, denomA, denomB} {
		if err := types.ValidateDenom(denom); err != nil {
			return err
		}
	}
	if denomA == denomB {
		return fmt.Errorf("%w: pool needs two distinct denoms", ErrUnknownPoolDenom)
	}
	if _, ok, err := z.state.LiquidityPool(lpDenom); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrPoolExists, lpDenom)
	}
	denoms := []string{denomA, denomB}
	sort.Strings(denoms)
	return z.state.PutLiquidityPool(&PoolRecord{LpDenom: lpDenom, Addr: addr, Denoms: denoms, TotalSupply: big.NewInt(0)})
}

func (z *Zapper) reserves(rec *PoolRecord) ([]*big.Int, error) {
	out := make([]*big.Int, len(rec.Denoms))
	for i, denom := range rec.Denoms {
		bal, err := z.bank.Balance(rec.Addr, denom)
		if err != nil {
			return nil, err
		}
		out[i] = bal
	}
	return out, nil
}

// quote returns the LP minted for coinsIn and the part of each pool denom
// the pool keeps. The first provision mints sqrt(a*b).
func (z *Zapper) quote(rec *PoolRecord, coinsIn types.Coins) (*big.Int, types.Coins, error) {
	coinsIn = coinsIn.Normalize()
	for _, coin := range coinsIn {
		if coin.Denom != rec.Denoms[0] && coin.Denom != rec.Denoms[1] {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPoolDenom, coin.Denom)
		}
	}
	reserves, err := z.reserves(rec)
	if err != nil {
		return nil, nil, err
	}
	if rec.TotalSupply.Sign() == 0 {
		a, b := coinsIn.AmountOf(rec.Denoms[0]), coinsIn.AmountOf(rec.Denoms[1])
		minted := new(big.Int).Sqrt(new(big.Int).Mul(a, b))
		return minted, types.Coins{types.NewCoinBig(rec.Denoms[0], a), types.NewCoinBig(rec.Denoms[1], b)}.Normalize(), nil
	}
	var minted *big.Int
	for i, denom := range rec.Denoms {
		if reserves[i].Sign() == 0 {
			return big.NewInt(0), nil, nil
		}
		share, err := numeric.MulDivFloor(coinsIn.AmountOf(denom), rec.TotalSupply, reserves[i])
		if err != nil {
			return nil, nil, err
		}
		if minted == nil || share.Cmp(minted) < 0 {
			minted = share
		}
	}
	used := make(types.Coins, 0, len(rec.Denoms))
	for i, denom := range rec.Denoms {
		amount, err := numeric.MulDivCeil(minted, reserves[i], rec.TotalSupply)
		if err != nil {
			return nil, nil, err
		}
		used = append(used, types.NewCoinBig(denom, numeric.MinInt(amount, coinsIn.AmountOf(denom))))
	}
	return minted, used.Normalize(), nil
}

func (z *Zapper) EstimateProvideLiquidity(lpTokenOut string, coinsIn types.Coins) (*big.Int, error) {
	rec, err := z.pool(lpTokenOut)
	if err != nil {
		return nil, err
	}
	minted, _, err := z.quote(rec, coinsIn)
	return minted, err
}

// ProvideLiquidity takes only the proportional part of coinsIn; the rest
// stays with from.
func (z *Zapper) ProvideLiquidity(from string, coinsIn types.Coins, lpTokenOut string, minReceive *big.Int) error {
	rec, err := z.pool(lpTokenOut)
	if err != nil {
		return err
	}
	minted, used, err := z.quote(rec, coinsIn)
	if err != nil {
		return err
	}
	if minted.Sign() == 0 {
		return ErrNoLiquidityMinted
	}
	if minReceive != nil && minted.Cmp(minReceive) < 0 {
		return fmt.Errorf("%w: minted %s%s < %s", ErrMinReceive, minted, lpTokenOut, minReceive)
	}
	if err := z.bank.Transfer(from, rec.Addr, used); err != nil {
		return err
	}
	if err := z.bank.Mint(from, types.Coins{types.NewCoinBig(lpTokenOut, minted)}); err != nil {
		return err
	}
	rec.TotalSupply.Add(rec.TotalSupply, minted)
	return z.state.PutLiquidityPool(rec)
}

func (z *Zapper) withdrawQuote(rec *PoolRecord, lp *big.Int) (types.Coins, error) {
	if err := positive(lp); err != nil {
		return nil, err
	}
	if lp.Cmp(rec.TotalSupply) > 0 {
		return nil, fmt.Errorf("%w: %s exceeds supply %s", ErrInvalidAmount, lp, rec.TotalSupply)
	}
	reserves, err := z.reserves(rec)
	if err != nil {
		return nil, err
	}
	out := make(types.Coins, 0, len(rec.Denoms))
	for i, denom := range rec.Denoms {
		amount, err := numeric.MulDivFloor(lp, reserves[i], rec.TotalSupply)
		if err != nil {
			return nil, err
		}
		out = append(out, types.NewCoinBig(denom, amount))
	}
	return out.Normalize(), nil
}

func (z *Zapper) EstimateWithdrawLiquidity(lpToken types.Coin) (types.Coins, error) {
	rec, err := z.pool(lpToken.Denom)
	if err != nil {
		return nil, err
	}
	return z.withdrawQuote(rec, lpToken.Amount)
}

func (z *Zapper) WithdrawLiquidity(from string, lpToken types.Coin, minReceive types.Coins) error {
	rec, err := z.pool(lpToken.Denom)
	if err != nil {
		return err
	}
	out, err := z.withdrawQuote(rec, lpToken.Amount)
	if err != nil {
		return err
	}
	for _, floor := range minReceive {
		if got := out.AmountOf(floor.Denom); got.Cmp(numeric.IntOrZero(floor.Amount)) < 0 {
			return fmt.Errorf("%w: %s%s < %s", ErrMinReceive, got, floor.Denom, floor.Amount)
		}
	}
	if err := z.bank.Burn(from, types.Coins{lpToken}); err != nil {
		return err
	}
	rec.TotalSupply.Sub(rec.TotalSupply, lpToken.Amount)
	if err := z.state.PutLiquidityPool(rec); err != nil {
		return err
	}
	return z.bank.Transfer(rec.Addr, from, out)
}
