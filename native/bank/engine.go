package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
	ErrInvalidAddress    = errors.New("bank: address required")
)

type engineState interface {
	BankBalance(addr, denom string) (*big.Int, error)
	SetBankBalance(addr, denom string, amount *big.Int) error
	BankDenoms(addr string) ([]string, error)
}

// Engine moves fungible coins between addresses.
type Engine struct {
	state engineState
}

func NewEngine() *Engine { return &Engine{} }

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, fmt.Errorf("bank: state not configured")
	}
	return e.state, nil
}

// Balance returns the balance of addr in denom.
func (e *Engine) Balance(addr, denom string) (*big.Int, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	balance, err := state.BankBalance(addr, denom)
	if err != nil {
		return nil, err
	}
	return numeric.IntOrZero(balance), nil
}

// Balances returns every non-zero balance of addr.
func (e *Engine) Balances(addr string) (types.Coins, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	denoms, err := state.BankDenoms(addr)
	if err != nil {
		return nil, err
	}
	out := make(types.Coins, 0, len(denoms))
	for _, denom := range denoms {
		balance, err := state.BankBalance(addr, denom)
		if err != nil {
			return nil, err
		}
		if balance != nil && balance.Sign() > 0 {
			out = append(out, types.NewCoinBig(denom, balance))
		}
	}
	return out.Normalize(), nil
}

// Transfer moves coins from one address to another. Either every coin moves
// or none does.
func (e *Engine) Transfer(from, to string, coins types.Coins) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return ErrInvalidAddress
	}
	normalized := coins.Normalize()
	for _, coin := range normalized {
		balance, err := state.BankBalance(from, coin.Denom)
		if err != nil {
			return err
		}
		if numeric.IntOrZero(balance).Cmp(coin.Amount) < 0 {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from, types.NewCoinBig(coin.Denom, balance), coin)
		}
	}
	if from == to {
		return nil
	}
	for _, coin := range normalized {
		if err := e.add(state, from, coin.Denom, new(big.Int).Neg(coin.Amount)); err != nil {
			return err
		}
		if err := e.add(state, to, coin.Denom, coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Send is Transfer for a single coin.
func (e *Engine) Send(from, to string, coin types.Coin) error {
	if coin.IsZero() {
		return nil
	}
	return e.Transfer(from, to, types.Coins{coin})
}

// Mint credits coins to addr out of thin air. Used by genesis and adapters
// that issue their own share denoms.
func (e *Engine) Mint(to string, coins types.Coins) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if strings.TrimSpace(to) == "" {
		return ErrInvalidAddress
	}
	for _, coin := range coins.Normalize() {
		if err := e.add(state, to, coin.Denom, coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

// Burn removes coins from addr.
func (e *Engine) Burn(from string, coins types.Coins) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	normalized := coins.Normalize()
	for _, coin := range normalized {
		balance, err := state.BankBalance(from, coin.Denom)
		if err != nil {
			return err
		}
		if numeric.IntOrZero(balance).Cmp(coin.Amount) < 0 {
			return fmt.Errorf("%w: burn %s from %s", ErrInsufficientFunds, coin, from)
		}
	}
	for _, coin := range normalized {
		if err := e.add(state, from, coin.Denom, new(big.Int).Neg(coin.Amount)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) add(state engineState, addr, denom string, delta *big.Int) error {
	balance, err := state.BankBalance(addr, denom)
	if err != nil {
		return err
	}
	next := numeric.IntOrZero(balance)
	next.Add(next, delta)
	if next.Sign() < 0 {
		return ErrInsufficientFunds
	}
	if err := numeric.CheckUint128(next); err != nil {
		return err
	}
	return state.SetBankBalance(addr, denom, next)
}
