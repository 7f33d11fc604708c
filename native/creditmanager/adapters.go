package creditmanager

import (
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/lending"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

// Pool is the lending pool as seen by the manager. Account debts and lends
// live in the pool under the identity (manager address, account id).
type Pool interface {
	Deposit(sender string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error)
	Withdraw(sender, accountID, denom string, amount *big.Int, recipient string) (*big.Int, error)
	Borrow(sender, accountID string, coin types.Coin, recipient string) (*big.Int, error)
	Repay(sender string, onBehalfOf types.Identity, coin types.Coin) (*big.Int, error)
	UserDebtAmounts(user types.Identity) (types.Coins, error)
	UserCollateralAmounts(user types.Identity) (types.Coins, error)
	TotalCollateral(denom string) (*big.Int, error)
	Config() (lending.Config, error)
	ModuleAddress() string
}

// Bank moves coins held by the manager address.
type Bank interface {
	Balance(addr, denom string) (*big.Int, error)
	Send(from, to string, coin types.Coin) error
}

type ParamsSource interface {
	MaybeAssetParams(denom string) (*params.AssetParams, error)
	VaultConfig(addr string) (*params.VaultConfig, error)
}

// Incentives pays pool incentives earned by an identity.
type Incentives interface {
	ClaimRewards(user types.Identity, recipient string) (types.Coins, error)
}

// Swapper exchanges coinIn, already owned by from, for at least minReceive
// of denomOut paid back to from.
type Swapper interface {
	SwapExactIn(from string, coinIn types.Coin, denomOut string, minReceive *big.Int) error
}

// VaultInfo describes a yield vault. A non-zero LockupDuration makes
// positions Locking.
type VaultInfo struct {
	BaseToken      string `json:"base_token"`
	VaultToken     string `json:"vault_token"`
	LockupDuration uint64 `json:"lockup_duration"`
}

// UnlockReceipt is returned when locked shares start unlocking.
type UnlockReceipt struct {
	ID        uint64
	Coin      types.Coin
	ReleaseAt uint64
}

// Vault is a single yield vault. Shares are tracked by the vault per owner.
type Vault interface {
	Info() (VaultInfo, error)
	Deposit(from string, coin types.Coin) error
	Redeem(from string, shares *big.Int) error
	Unlock(from string, shares *big.Int) (UnlockReceipt, error)
	WithdrawUnlocked(from string, id uint64) error
	PreviewRedeem(shares *big.Int) (*big.Int, error)
	Holdings(owner string) (*big.Int, error)
}

type VaultRegistry interface {
	Vault(addr string) (Vault, error)
}

// Zapper provides and withdraws liquidity for LP tokens.
type Zapper interface {
	ProvideLiquidity(from string, coinsIn types.Coins, lpTokenOut string, minReceive *big.Int) error
	WithdrawLiquidity(from string, lpToken types.Coin, minReceive types.Coins) error
	EstimateProvideLiquidity(lpTokenOut string, coinsIn types.Coins) (*big.Int, error)
	EstimateWithdrawLiquidity(lpToken types.Coin) (types.Coins, error)
}

// Staker stakes LP tokens per credit account. Unstake also pays out pending
// rewards.
type Staker interface {
	Stake(from, accountID string, lpToken types.Coin) error
	Unstake(from, accountID string, lpToken types.Coin) error
	ClaimRewards(from, accountID, lpDenom string) error
	PendingRewards(accountID, lpDenom string) (types.Coins, error)
}

// minReceiveAfterSlippage is floor(amount * (1 - slippage)).
func minReceiveAfterSlippage(amount *big.Int, slippage numeric.Decimal) (*big.Int, error) {
	return numeric.MulFloor(amount, numeric.One().SaturatingSub(slippage))
}
