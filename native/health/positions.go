package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

// AccountKindType selects which risk parameters apply to an account.
type AccountKindType uint8

const (
	AccountDefault AccountKindType = iota
	AccountHighLeveredStrategy
	AccountFundManager
)

var ErrInvalidAccountKind = errors.New("health: invalid account kind")

func (k AccountKindType) String() string {
	switch k {
	case AccountHighLeveredStrategy:
		return "high_levered_strategy"
	case AccountFundManager:
		return "fund_manager"
	default:
		return "default"
	}
}

// AccountKind tags a credit account. VaultAddr is only set for fund manager
// accounts.
type AccountKind struct {
	Type      AccountKindType
	VaultAddr string
}

func DefaultKind() AccountKind { return AccountKind{Type: AccountDefault} }
func HLSKind() AccountKind     { return AccountKind{Type: AccountHighLeveredStrategy} }

func (k AccountKind) IsHLS() bool { return k.Type == AccountHighLeveredStrategy }

func (k AccountKind) String() string {
	if k.Type == AccountFundManager {
		return k.Type.String() + ":" + k.VaultAddr
	}
	return k.Type.String()
}

type accountKindJSON struct {
	Type      string `json:"type"`
	VaultAddr string `json:"vault_addr,omitempty"`
}

func (k AccountKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountKindJSON{Type: k.Type.String(), VaultAddr: k.VaultAddr})
}

func (k *AccountKind) UnmarshalJSON(data []byte) error {
	var raw accountKindJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "", "default":
		*k = DefaultKind()
	case "high_levered_strategy":
		*k = HLSKind()
	case "fund_manager":
		if raw.VaultAddr == "" {
			return fmt.Errorf("%w: fund manager requires vault_addr", ErrInvalidAccountKind)
		}
		*k = AccountKind{Type: AccountFundManager, VaultAddr: raw.VaultAddr}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAccountKind, raw.Type)
	}
	return nil
}

// DebtAmount is an outstanding debt in underlying units.
type DebtAmount struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

// UnlockingPosition is a vault position released back to base tokens at
// ReleaseAt.
type UnlockingPosition struct {
	ID        uint64     `json:"id"`
	Coin      types.Coin `json:"coin"`
	ReleaseAt uint64     `json:"release_at"`
}

// VaultPositionAmount is either Unlocked or Locking.
type VaultPositionAmount interface {
	isVaultPositionAmount()
	// Shares returns the vault tokens still held (unlocked or locked).
	Shares() *big.Int
}

type Unlocked struct {
	Amount *big.Int
}

type Locking struct {
	Locked    *big.Int
	Unlocking []UnlockingPosition
}

func (Unlocked) isVaultPositionAmount() {}
func (Locking) isVaultPositionAmount()  {}

func (u Unlocked) Shares() *big.Int { return numeric.IntOrZero(u.Amount) }
func (l Locking) Shares() *big.Int  { return numeric.IntOrZero(l.Locked) }

// IsEmpty reports whether the amount holds neither shares nor unlocking
// entries.
func IsEmpty(amount VaultPositionAmount) bool {
	if amount == nil {
		return true
	}
	if l, ok := amount.(Locking); ok && len(l.Unlocking) > 0 {
		return false
	}
	return amount.Shares().Sign() == 0
}

// UnlockingOf returns the unlocking entries of a locking amount.
func UnlockingOf(amount VaultPositionAmount) []UnlockingPosition {
	if l, ok := amount.(Locking); ok {
		return l.Unlocking
	}
	return nil
}

func cloneAmount(amount VaultPositionAmount) VaultPositionAmount {
	switch v := amount.(type) {
	case Unlocked:
		return Unlocked{Amount: numeric.IntOrZero(v.Amount)}
	case Locking:
		out := Locking{Locked: numeric.IntOrZero(v.Locked)}
		for _, u := range v.Unlocking {
			out.Unlocking = append(out.Unlocking, UnlockingPosition{ID: u.ID, Coin: u.Coin.Copy(), ReleaseAt: u.ReleaseAt})
		}
		return out
	default:
		return nil
	}
}

type lockingJSON struct {
	Locked    *big.Int            `json:"locked"`
	Unlocking []UnlockingPosition `json:"unlocking"`
}

type vaultAmountJSON struct {
	Unlocked *big.Int     `json:"unlocked,omitempty"`
	Locking  *lockingJSON `json:"locking,omitempty"`
}

// VaultPosition is a holding in a single vault.
type VaultPosition struct {
	Vault  string
	Amount VaultPositionAmount
}

func (p VaultPosition) MarshalJSON() ([]byte, error) {
	var amount vaultAmountJSON
	switch v := p.Amount.(type) {
	case Unlocked:
		amount.Unlocked = numeric.IntOrZero(v.Amount)
	case Locking:
		unlocking := v.Unlocking
		if unlocking == nil {
			unlocking = []UnlockingPosition{}
		}
		amount.Locking = &lockingJSON{Locked: numeric.IntOrZero(v.Locked), Unlocking: unlocking}
	default:
		return nil, fmt.Errorf("health: unknown vault amount %T", p.Amount)
	}
	return json.Marshal(struct {
		Vault  string          `json:"vault"`
		Amount vaultAmountJSON `json:"amount"`
	}{p.Vault, amount})
}

func (p *VaultPosition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Vault  string          `json:"vault"`
		Amount vaultAmountJSON `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Amount.Locking != nil && raw.Amount.Unlocked != nil:
		return fmt.Errorf("health: vault amount must be either unlocked or locking")
	case raw.Amount.Locking != nil:
		p.Amount = Locking{Locked: numeric.IntOrZero(raw.Amount.Locking.Locked), Unlocking: raw.Amount.Locking.Unlocking}
	default:
		p.Amount = Unlocked{Amount: numeric.IntOrZero(raw.Amount.Unlocked)}
	}
	p.Vault = raw.Vault
	return nil
}

// Positions is the snapshot of an account fed to the Computer.
type Positions struct {
	AccountID string          `json:"account_id"`
	Deposits  types.Coins     `json:"deposits"`
	Lends     types.Coins     `json:"lends"`
	Debts     []DebtAmount    `json:"debts"`
	Vaults    []VaultPosition `json:"vaults"`
	StakedLps types.Coins     `json:"staked_lps"`
}

// HasDebt reports whether any debt is outstanding.
func (p Positions) HasDebt() bool {
	for _, d := range p.Debts {
		if d.Amount != nil && d.Amount.Sign() > 0 {
			return true
		}
	}
	return false
}

// DebtOf returns the outstanding debt in denom.
func (p Positions) DebtOf(denom string) *big.Int {
	for _, d := range p.Debts {
		if d.Denom == denom {
			return numeric.IntOrZero(d.Amount)
		}
	}
	return big.NewInt(0)
}

// Clone deep-copies the snapshot.
func (p Positions) Clone() Positions {
	out := Positions{AccountID: p.AccountID}
	out.Deposits = cloneCoins(p.Deposits)
	out.Lends = cloneCoins(p.Lends)
	out.StakedLps = cloneCoins(p.StakedLps)
	for _, d := range p.Debts {
		out.Debts = append(out.Debts, DebtAmount{Denom: d.Denom, Amount: numeric.IntOrZero(d.Amount)})
	}
	for _, v := range p.Vaults {
		out.Vaults = append(out.Vaults, VaultPosition{Vault: v.Vault, Amount: cloneAmount(v.Amount)})
	}
	return out
}

func cloneCoins(cs types.Coins) types.Coins {
	if cs == nil {
		return nil
	}
	out := make(types.Coins, len(cs))
	for i, c := range cs {
		out[i] = c.Copy()
	}
	return out
}

// adjustCoins adds delta (which may be negative) to denom and drops the coin
// when it reaches zero.
func adjustCoins(cs types.Coins, denom string, delta *big.Int) types.Coins {
	next := new(big.Int).Add(cs.AmountOf(denom), delta)
	out := make(types.Coins, 0, len(cs)+1)
	for _, c := range cs {
		if c.Denom != denom {
			out = append(out, c)
		}
	}
	if next.Sign() > 0 {
		out = append(out, types.NewCoinBig(denom, next))
	}
	return out.Normalize()
}

func (p *Positions) addDebt(denom string, delta *big.Int) {
	for i := range p.Debts {
		if p.Debts[i].Denom == denom {
			p.Debts[i].Amount = new(big.Int).Add(numeric.IntOrZero(p.Debts[i].Amount), delta)
			return
		}
	}
	p.Debts = append(p.Debts, DebtAmount{Denom: denom, Amount: new(big.Int).Set(delta)})
}

// CoinValue is a coin together with its value in the oracle base unit.
type CoinValue struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
	Value  *big.Int `json:"value"`
}

// VaultPositionValue splits a vault holding into its share side (unlocked
// and locked vault tokens) and its unlocking side (base tokens being
// released).
type VaultPositionValue struct {
	VaultCoin CoinValue `json:"vault_coin"`
	BaseCoin  CoinValue `json:"base_coin"`
}

// DenomsData carries prices and risk params for every denom the account
// touches.
type DenomsData struct {
	Prices map[string]numeric.Decimal
	Params map[string]*params.AssetParams
}

// VaultsData carries position values and configs keyed by vault address.
type VaultsData struct {
	Values  map[string]VaultPositionValue
	Configs map[string]*params.VaultConfig
}
