package creditmanager

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
)

var (
	ErrInvalidConfig           = errors.New("credit manager: invalid config")
	ErrAccountNotFound         = errors.New("credit manager: account not found")
	ErrNotAccountOwner         = errors.New("credit manager: sender does not own the account")
	ErrNotWhitelisted          = errors.New("credit manager: asset not whitelisted")
	ErrVaultNotWhitelisted     = errors.New("credit manager: vault not whitelisted")
	ErrNoAmount                = errors.New("credit manager: resolved amount is zero")
	ErrInsufficientDeposit     = errors.New("credit manager: account balance too low")
	ErrExtraFundsReceived      = errors.New("credit manager: attached funds not consumed by deposit actions")
	ErrFundsMismatch           = errors.New("credit manager: deposit not covered by attached funds")
	ErrSlippageExceedsMax      = errors.New("credit manager: slippage exceeds maximum")
	ErrMismatchedVaultType     = errors.New("credit manager: mismatched vault type")
	ErrVaultBaseMismatch       = errors.New("credit manager: coin is not the vault base token")
	ErrUnlockingPositionsLimit = errors.New("credit manager: unlocking positions limit reached")
	ErrUnlockingNotFound       = errors.New("credit manager: unlocking position not found")
	ErrUnlockNotReady          = errors.New("credit manager: unlocking position not yet released")
	ErrNoVaultPosition         = errors.New("credit manager: no vault position")
	ErrAboveMaxLTV             = errors.New("credit manager: account above max ltv")
	ErrNotLiquidatable         = errors.New("credit manager: account is not liquidatable")
	ErrSelfLiquidation         = errors.New("credit manager: cannot liquidate own account")
	ErrNoDebtInDenom           = errors.New("credit manager: no debt in denom")
	ErrNoCollateralInDenom     = errors.New("credit manager: no collateral in denom")
	ErrReentrancy              = errors.New("credit manager: reentrant callback")
	ErrAdapterNotConfigured    = errors.New("credit manager: adapter not configured")
	ErrUnknownAction           = errors.New("credit manager: unknown action")
)

// VaultDepositCapExceededError reports a vault whose value held by the
// manager would exceed its deposit cap.
type VaultDepositCapExceededError struct {
	Vault string
	Cap   *big.Int
	Value *big.Int
}

func (e *VaultDepositCapExceededError) Error() string {
	return fmt.Sprintf("credit manager: vault deposit cap exceeded for %s: cap %s, value %s", e.Vault, e.Cap, e.Value)
}

// BurnNotAllowedError explains why an account cannot be burned.
type BurnNotAllowedError struct {
	Reason string
}

func (e *BurnNotAllowedError) Error() string {
	return "credit manager: burn not allowed: " + e.Reason
}

const (
	BurnReasonHasDebt           = "has debt"
	BurnReasonCollateralExceeds = "collateral exceeds max"
	BurnReasonHasOpenPositions  = "has vault or staked positions"
)

// Account is a credit account. Positions live in the ledger and in the pool.
type Account struct {
	ID    string             `json:"id"`
	Owner string             `json:"owner"`
	Kind  health.AccountKind `json:"kind"`
}

// Ledger holds the positions the manager keeps itself. Debts and lends are
// read from the pool.
type Ledger struct {
	Deposits  types.Coins            `json:"deposits"`
	Vaults    []health.VaultPosition `json:"vaults"`
	StakedLps types.Coins            `json:"staked_lps"`
}

func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return &Ledger{}
	}
	out := &Ledger{}
	for _, c := range l.Deposits {
		out.Deposits = append(out.Deposits, c.Copy())
	}
	for _, c := range l.StakedLps {
		out.StakedLps = append(out.StakedLps, c.Copy())
	}
	positions := health.Positions{Vaults: l.Vaults}.Clone()
	out.Vaults = positions.Vaults
	return out
}

// IsEmpty reports whether the ledger holds nothing.
func (l *Ledger) IsEmpty() bool {
	if l == nil {
		return true
	}
	if !l.Deposits.IsZero() || !l.StakedLps.IsZero() {
		return false
	}
	for _, v := range l.Vaults {
		if !health.IsEmpty(v.Amount) {
			return false
		}
	}
	return true
}

func (l *Ledger) vault(addr string) (int, *health.VaultPosition) {
	for i := range l.Vaults {
		if l.Vaults[i].Vault == addr {
			return i, &l.Vaults[i]
		}
	}
	return -1, nil
}

func (l *Ledger) dropEmptyVaults() {
	kept := l.Vaults[:0]
	for _, v := range l.Vaults {
		if !health.IsEmpty(v.Amount) {
			kept = append(kept, v)
		}
	}
	l.Vaults = kept
}

// Config are the manager-wide settings.
type Config struct {
	MaxUnlockingPositions uint32          `json:"max_unlocking_positions"`
	MaxSlippage           numeric.Decimal `json:"max_slippage"`
	// MaxValueForBurn bounds the collateral value an account may hold and
	// still be burned.
	MaxValueForBurn *big.Int `json:"max_value_for_burn"`
}

func DefaultConfig() Config {
	return Config{
		MaxUnlockingPositions: 10,
		MaxSlippage:           numeric.NewDecimalPercent(10),
		MaxValueForBurn:       big.NewInt(1_000_000),
	}
}

func (c Config) Validate() error {
	if c.MaxUnlockingPositions == 0 {
		return fmt.Errorf("%w: max unlocking positions must be positive", ErrInvalidConfig)
	}
	if c.MaxSlippage.GT(numeric.One()) {
		return fmt.Errorf("%w: max slippage %s exceeds 1", ErrInvalidConfig, c.MaxSlippage)
	}
	if c.MaxValueForBurn != nil && c.MaxValueForBurn.Sign() < 0 {
		return fmt.Errorf("%w: max value for burn must not be negative", ErrInvalidConfig)
	}
	return nil
}

func validateOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: empty owner", ErrNotAccountOwner)
	}
	return nil
}

func (l *Ledger) credit(coins ...types.Coin) {
	l.Deposits = append(l.Deposits, coins...).Normalize()
}

func (l *Ledger) debit(coin types.Coin) error {
	held := l.Deposits.AmountOf(coin.Denom)
	if held.Cmp(coin.Amount) < 0 {
		return fmt.Errorf("%w: %s needs %s, holds %s", ErrInsufficientDeposit, coin.Denom, coin.Amount, held)
	}
	l.Deposits = append(l.Deposits, types.NewCoinBig(coin.Denom, new(big.Int).Neg(coin.Amount))).Normalize()
	return nil
}

func (l *Ledger) stake(coin types.Coin) {
	l.StakedLps = append(l.StakedLps, coin).Normalize()
}

func (l *Ledger) unstake(coin types.Coin) error {
	held := l.StakedLps.AmountOf(coin.Denom)
	if held.Cmp(coin.Amount) < 0 {
		return fmt.Errorf("%w: staked %s needs %s, holds %s", ErrInsufficientDeposit, coin.Denom, coin.Amount, held)
	}
	l.StakedLps = append(l.StakedLps, types.NewCoinBig(coin.Denom, new(big.Int).Neg(coin.Amount))).Normalize()
	return nil
}
