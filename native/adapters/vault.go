package adapters

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
)

// VaultRecord is the persisted state of one share vault. Shares are bank
// coins of VaultToken.
type VaultRecord struct {
	Addr           string
	BaseToken      string
	VaultToken     string
	LockupDuration uint64
	TotalShares    *big.Int
	// PendingUnlock is base token held for unlocking positions.
	PendingUnlock *big.Int
	NextUnlockID  uint64
}

func (r *VaultRecord) info() creditmanager.VaultInfo {
	return creditmanager.VaultInfo{BaseToken: r.BaseToken, VaultToken: r.VaultToken, LockupDuration: r.LockupDuration}
}

type UnlockRecord struct {
	ID        uint64
	Owner     string
	Amount    *big.Int
	ReleaseAt uint64
}

type vaultState interface {
	AdapterVault(addr string) (*VaultRecord, bool, error)
	PutAdapterVault(rec *VaultRecord) error
	AdapterVaultUnlock(addr string, id uint64) (*UnlockRecord, bool, error)
	PutAdapterVaultUnlock(addr string, rec *UnlockRecord) error
	DeleteAdapterVaultUnlock(addr string, id uint64) error
}

// Vaults is the registry of share vaults.
type Vaults struct {
	state     vaultState
	bank      Bank
	blockTime uint64
}

func NewVaults(bank Bank) *Vaults { return &Vaults{bank: bank} }

func (v *Vaults) SetState(state vaultState) { v.state = state }
func (v *Vaults) SetBlockTime(t uint64)     { v.blockTime = t }

func (v *Vaults) withState() (vaultState, error) {
	if v == nil || v.state == nil {
		return nil, ErrStateNotConfigured
	}
	return v.state, nil
}

// Register creates a vault at addr. The share denom defaults to
// "vault/<addr>".
func (v *Vaults) Register(addr string, info creditmanager.VaultInfo) error {
	state, err := v.withState()
	if err != nil {
		return err
	}
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("%w: empty address", ErrUnknownVault)
	}
	if err := types.ValidateDenom(info.BaseToken); err != nil {
		return err
	}
	if _, ok, err := state.AdapterVault(addr); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("%w: %s", ErrVaultExists, addr)
	}
	token := info.VaultToken
	if token == "" {
		token = "vault/" + addr
	}
	return state.PutAdapterVault(&VaultRecord{
		Addr:           addr,
		BaseToken:      info.BaseToken,
		VaultToken:     token,
		LockupDuration: info.LockupDuration,
		TotalShares:    big.NewInt(0),
		PendingUnlock:  big.NewInt(0),
	})
}

// Vault returns a handle bound to the registry's current state.
func (v *Vaults) Vault(addr string) (creditmanager.Vault, error) {
	state, err := v.withState()
	if err != nil {
		return nil, err
	}
	rec, ok, err := state.AdapterVault(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVault, addr)
	}
	return &vault{registry: v, state: state, addr: rec.Addr}, nil
}

type vault struct {
	registry *Vaults
	state    vaultState
	addr     string
}

func (h *vault) load() (*VaultRecord, error) {
	rec, ok, err := h.state.AdapterVault(h.addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVault, h.addr)
	}
	rec.TotalShares = numeric.IntOrZero(rec.TotalShares)
	rec.PendingUnlock = numeric.IntOrZero(rec.PendingUnlock)
	return rec, nil
}

// assets is the base token backing outstanding shares.
func (h *vault) assets(rec *VaultRecord) (*big.Int, error) {
	held, err := h.registry.bank.Balance(rec.Addr, rec.BaseToken)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Sub(held, rec.PendingUnlock)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

func (h *vault) Info() (creditmanager.VaultInfo, error) {
	rec, err := h.load()
	if err != nil {
		return creditmanager.VaultInfo{}, err
	}
	return rec.info(), nil
}

func (h *vault) Deposit(from string, coin types.Coin) error {
	rec, err := h.load()
	if err != nil {
		return err
	}
	if coin.Denom != rec.BaseToken {
		return fmt.Errorf("%w: %s", ErrWrongVaultDenom, coin.Denom)
	}
	if err := positive(coin.Amount); err != nil {
		return err
	}
	assets, err := h.assets(rec)
	if err != nil {
		return err
	}
	shares := new(big.Int).Set(coin.Amount)
	if rec.TotalShares.Sign() > 0 && assets.Sign() > 0 {
		shares, err = numeric.MulDivFloor(coin.Amount, rec.TotalShares, assets)
		if err != nil {
			return err
		}
	}
	if shares.Sign() == 0 {
		return ErrZeroShares
	}
	if err := h.registry.bank.Send(from, rec.Addr, coin); err != nil {
		return err
	}
	if err := h.registry.bank.Mint(from, types.Coins{types.NewCoinBig(rec.VaultToken, shares)}); err != nil {
		return err
	}
	rec.TotalShares.Add(rec.TotalShares, shares)
	return h.state.PutAdapterVault(rec)
}

func (h *vault) burnShares(rec *VaultRecord, from string, shares *big.Int) (*big.Int, error) {
	if err := positive(shares); err != nil {
		return nil, err
	}
	amount, err := h.redeemable(rec, shares)
	if err != nil {
		return nil, err
	}
	if err := h.registry.bank.Burn(from, types.Coins{types.NewCoinBig(rec.VaultToken, shares)}); err != nil {
		return nil, err
	}
	rec.TotalShares.Sub(rec.TotalShares, shares)
	return amount, nil
}

func (h *vault) Redeem(from string, shares *big.Int) error {
	rec, err := h.load()
	if err != nil {
		return err
	}
	if rec.LockupDuration > 0 {
		return fmt.Errorf("%w: %s", ErrVaultLocked, rec.Addr)
	}
	amount, err := h.burnShares(rec, from, shares)
	if err != nil {
		return err
	}
	if err := h.state.PutAdapterVault(rec); err != nil {
		return err
	}
	return h.registry.bank.Send(rec.Addr, from, types.NewCoinBig(rec.BaseToken, amount))
}

func (h *vault) Unlock(from string, shares *big.Int) (creditmanager.UnlockReceipt, error) {
	rec, err := h.load()
	if err != nil {
		return creditmanager.UnlockReceipt{}, err
	}
	if rec.LockupDuration == 0 {
		return creditmanager.UnlockReceipt{}, fmt.Errorf("%w: %s", ErrVaultNotLocking, rec.Addr)
	}
	amount, err := h.burnShares(rec, from, shares)
	if err != nil {
		return creditmanager.UnlockReceipt{}, err
	}
	rec.NextUnlockID++
	rec.PendingUnlock.Add(rec.PendingUnlock, amount)
	unlock := &UnlockRecord{
		ID:        rec.NextUnlockID,
		Owner:     from,
		Amount:    amount,
		ReleaseAt: h.registry.blockTime + rec.LockupDuration,
	}
	if err := h.state.PutAdapterVaultUnlock(rec.Addr, unlock); err != nil {
		return creditmanager.UnlockReceipt{}, err
	}
	if err := h.state.PutAdapterVault(rec); err != nil {
		return creditmanager.UnlockReceipt{}, err
	}
	return creditmanager.UnlockReceipt{
		ID:        unlock.ID,
		Coin:      types.NewCoinBig(rec.BaseToken, amount),
		ReleaseAt: unlock.ReleaseAt,
	}, nil
}

func (h *vault) WithdrawUnlocked(from string, id uint64) error {
	rec, err := h.load()
	if err != nil {
		return err
	}
	unlock, ok, err := h.state.AdapterVaultUnlock(rec.Addr, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s #%d", ErrUnlockNotFound, rec.Addr, id)
	}
	if unlock.Owner != from {
		return fmt.Errorf("%w: #%d", ErrNotUnlockOwner, id)
	}
	if unlock.ReleaseAt > h.registry.blockTime {
		return fmt.Errorf("%w: releases at %d", ErrUnlockNotReleased, unlock.ReleaseAt)
	}
	amount := numeric.IntOrZero(unlock.Amount)
	rec.PendingUnlock, err = numeric.CheckedSubInt(rec.PendingUnlock, amount)
	if err != nil {
		return err
	}
	if err := h.state.DeleteAdapterVaultUnlock(rec.Addr, id); err != nil {
		return err
	}
	if err := h.state.PutAdapterVault(rec); err != nil {
		return err
	}
	return h.registry.bank.Send(rec.Addr, from, types.NewCoinBig(rec.BaseToken, amount))
}

func (h *vault) redeemable(rec *VaultRecord, shares *big.Int) (*big.Int, error) {
	if rec.TotalShares.Sign() == 0 {
		return big.NewInt(0), nil
	}
	assets, err := h.assets(rec)
	if err != nil {
		return nil, err
	}
	return numeric.MulDivFloor(shares, assets, rec.TotalShares)
}

func (h *vault) PreviewRedeem(shares *big.Int) (*big.Int, error) {
	rec, err := h.load()
	if err != nil {
		return nil, err
	}
	return h.redeemable(rec, numeric.IntOrZero(shares))
}

func (h *vault) Holdings(owner string) (*big.Int, error) {
	rec, err := h.load()
	if err != nil {
		return nil, err
	}
	return h.registry.bank.Balance(owner, rec.VaultToken)
}
