// Package adapters holds the in-chain collaborators the credit manager calls
// out to: an oracle priced swapper, share vaults, two-asset liquidity pools
// and an LP staking farm. Every coin they hold sits in the bank under the
// adapter's own address.
package adapters

import (
	"errors"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrMinReceive         = errors.New("adapters: output below minimum receive")
	ErrUnknownVault       = errors.New("adapters: unknown vault")
	ErrVaultExists        = errors.New("adapters: vault already registered")
	ErrWrongVaultDenom    = errors.New("adapters: coin is not the vault base token")
	ErrVaultLocked        = errors.New("adapters: vault shares must be unlocked first")
	ErrVaultNotLocking    = errors.New("adapters: vault has no lockup")
	ErrUnlockNotFound     = errors.New("adapters: unlocking position not found")
	ErrUnlockNotReleased  = errors.New("adapters: unlocking position not yet released")
	ErrNotUnlockOwner     = errors.New("adapters: sender does not own the unlocking position")
	ErrZeroShares         = errors.New("adapters: amount converts to zero shares")
	ErrUnknownPool        = errors.New("adapters: unknown liquidity pool")
	ErrPoolExists         = errors.New("adapters: liquidity pool already registered")
	ErrUnknownPoolDenom   = errors.New("adapters: denom not in liquidity pool")
	ErrNoLiquidityMinted  = errors.New("adapters: liquidity provision mints nothing")
	ErrUnknownFarm        = errors.New("adapters: no staking farm for lp denom")
	ErrInsufficientStake  = errors.New("adapters: staked amount too low")
	ErrStateNotConfigured = errors.New("adapters: state not configured")
	ErrInvalidAmount      = errors.New("adapters: amount must be positive")
)

// Bank is the subset of the bank engine the adapters use.
type Bank interface {
	Balance(addr, denom string) (*big.Int, error)
	Send(from, to string, coin types.Coin) error
	Transfer(from, to string, coins types.Coins) error
	Mint(to string, coins types.Coins) error
	Burn(from string, coins types.Coins) error
}

func positive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
