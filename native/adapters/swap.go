package adapters

import (
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

// Swapper fills swaps from its own inventory at default oracle prices less
// a flat fee.
type Swapper struct {
	addr   string
	bank   Bank
	oracle oracle.PriceOracle
	fee    numeric.Decimal
}

func NewSwapper(addr string, bank Bank, prices oracle.PriceOracle, fee numeric.Decimal) *Swapper {
	return &Swapper{addr: addr, bank: bank, oracle: prices, fee: fee}
}

func (s *Swapper) Address() string { return s.addr }

// Quote returns the amount of denomOut paid for coinIn.
func (s *Swapper) Quote(coinIn types.Coin, denomOut string) (*big.Int, error) {
	if err := positive(coinIn.Amount); err != nil {
		return nil, err
	}
	priceIn, err := s.oracle.Price(coinIn.Denom, oracle.ActionDefault)
	if err != nil {
		return nil, err
	}
	priceOut, err := s.oracle.Price(denomOut, oracle.ActionDefault)
	if err != nil {
		return nil, err
	}
	value, err := numeric.MulFloor(coinIn.Amount, priceIn)
	if err != nil {
		return nil, err
	}
	out, err := numeric.DivFloor(value, priceOut)
	if err != nil {
		return nil, err
	}
	return numeric.MulFloor(out, numeric.One().SaturatingSub(s.fee))
}

func (s *Swapper) SwapExactIn(from string, coinIn types.Coin, denomOut string, minReceive *big.Int) error {
	out, err := s.Quote(coinIn, denomOut)
	if err != nil {
		return err
	}
	if minReceive != nil && out.Cmp(minReceive) < 0 {
		return fmt.Errorf("%w: %s%s < %s", ErrMinReceive, out, denomOut, minReceive)
	}
	if err := s.bank.Send(from, s.addr, coinIn); err != nil {
		return err
	}
	return s.bank.Send(s.addr, from, types.NewCoinBig(denomOut, out))
}
