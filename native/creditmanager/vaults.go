package creditmanager

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	"github.com/mars-protocol/contracts-sub007/native/health"
	"github.com/mars-protocol/contracts-sub007/native/oracle"
	"github.com/mars-protocol/contracts-sub007/native/params"
)

func (e *Engine) vault(addr string) (Vault, VaultInfo, error) {
	if e.vaults == nil {
		return nil, VaultInfo{}, fmt.Errorf("%w: vaults", ErrAdapterNotConfigured)
	}
	v, err := e.vaults.Vault(addr)
	if err != nil {
		return nil, VaultInfo{}, err
	}
	info, err := v.Info()
	if err != nil {
		return nil, VaultInfo{}, err
	}
	return v, info, nil
}

// vaultConfig returns nil when the vault has no config.
func (e *Engine) vaultConfig(addr string) (*params.VaultConfig, error) {
	cfg, err := e.params.VaultConfig(addr)
	if errors.Is(err, params.ErrVaultConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}

func sameVaultType(amount health.VaultPositionAmount, locking bool) bool {
	_, isLocking := amount.(health.Locking)
	return isLocking == locking
}

func (b *batch) enterVault(a EnterVault) error {
	e := b.engine
	cfg, err := e.vaultConfig(a.Vault)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Whitelisted || cfg.MaxLTV.IsZero() {
		return fmt.Errorf("%w: %s", ErrVaultNotWhitelisted, a.Vault)
	}
	v, info, err := e.vault(a.Vault)
	if err != nil {
		return err
	}
	if a.Coin.Denom != info.BaseToken {
		return fmt.Errorf("%w: %s wants %s", ErrVaultBaseMismatch, a.Vault, info.BaseToken)
	}
	if err := b.requireWhitelisted(a.Coin.Denom); err != nil {
		return err
	}
	locking := info.LockupDuration > 0
	_, pos := b.ledger.vault(a.Vault)
	if pos != nil && !sameVaultType(pos.Amount, locking) {
		return fmt.Errorf("%w: %s", ErrMismatchedVaultType, a.Vault)
	}
	coin, err := b.resolveDeposit(a.Coin)
	if err != nil {
		return err
	}
	if err := b.ledger.debit(coin); err != nil {
		return err
	}
	sharesBefore, err := v.Holdings(e.moduleAddress)
	if err != nil {
		return err
	}
	refund, err := b.callback(types.Coins{coin}, nil, func() error {
		return v.Deposit(e.moduleAddress, coin)
	})
	if err != nil {
		return err
	}
	sharesAfter, err := v.Holdings(e.moduleAddress)
	if err != nil {
		return err
	}
	minted := new(big.Int).Sub(sharesAfter, sharesBefore)
	if minted.Sign() <= 0 {
		return fmt.Errorf("%w: vault %s minted no shares", ErrNoAmount, a.Vault)
	}
	b.ledger.credit(refund...)

	if pos == nil {
		b.ledger.Vaults = append(b.ledger.Vaults, health.VaultPosition{Vault: a.Vault})
		pos = &b.ledger.Vaults[len(b.ledger.Vaults)-1]
	}
	switch amount := pos.Amount.(type) {
	case health.Locking:
		amount.Locked = new(big.Int).Add(amount.Shares(), minted)
		pos.Amount = amount
	case health.Unlocked:
		pos.Amount = health.Unlocked{Amount: new(big.Int).Add(amount.Shares(), minted)}
	default:
		if locking {
			pos.Amount = health.Locking{Locked: minted}
		} else {
			pos.Amount = health.Unlocked{Amount: minted}
		}
	}

	if cfg.DepositCap != nil {
		redeemable, err := v.PreviewRedeem(sharesAfter)
		if err != nil {
			return err
		}
		price, err := e.oracle.Price(info.BaseToken, oracle.ActionDefault)
		if err != nil {
			return err
		}
		value, err := numeric.MulFloor(redeemable, price)
		if err != nil {
			return err
		}
		if value.Cmp(cfg.DepositCap) > 0 {
			return &VaultDepositCapExceededError{Vault: a.Vault, Cap: new(big.Int).Set(cfg.DepositCap), Value: value}
		}
	}
	b.record(a.Name(), coin)
	return nil
}

func (b *batch) heldVault(addr string) (Vault, VaultInfo, *health.VaultPosition, error) {
	_, pos := b.ledger.vault(addr)
	if pos == nil {
		return nil, VaultInfo{}, nil, fmt.Errorf("%w: %s", ErrNoVaultPosition, addr)
	}
	v, info, err := b.engine.vault(addr)
	if err != nil {
		return nil, VaultInfo{}, nil, err
	}
	return v, info, pos, nil
}

func (b *batch) exitVault(a ExitVault) error {
	v, info, pos, err := b.heldVault(a.Vault)
	if err != nil {
		return err
	}
	unlocked, ok := pos.Amount.(health.Unlocked)
	if !ok {
		return fmt.Errorf("%w: %s is locking", ErrMismatchedVaultType, a.Vault)
	}
	if a.Amount == nil || a.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrNoAmount, a.Vault)
	}
	remaining, err := numeric.CheckedSubInt(unlocked.Shares(), a.Amount)
	if err != nil {
		return fmt.Errorf("%w: vault %s holds %s shares", ErrInsufficientDeposit, a.Vault, unlocked.Shares())
	}
	shares := new(big.Int).Set(a.Amount)
	received, err := b.callback(nil, []string{info.BaseToken}, func() error {
		return v.Redeem(b.cm(), shares)
	})
	if err != nil {
		return err
	}
	pos.Amount = health.Unlocked{Amount: remaining}
	b.ledger.credit(received...)
	b.checkCap(info.BaseToken)
	b.record(a.Name(), received...)
	return nil
}

func (b *batch) requestVaultUnlock(a RequestVaultUnlock) error {
	v, _, pos, err := b.heldVault(a.Vault)
	if err != nil {
		return err
	}
	locking, ok := pos.Amount.(health.Locking)
	if !ok {
		return fmt.Errorf("%w: %s is not locking", ErrMismatchedVaultType, a.Vault)
	}
	if uint32(len(locking.Unlocking)) >= b.cfg.MaxUnlockingPositions {
		return fmt.Errorf("%w: %d", ErrUnlockingPositionsLimit, b.cfg.MaxUnlockingPositions)
	}
	if a.Amount == nil || a.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s", ErrNoAmount, a.Vault)
	}
	remaining, err := numeric.CheckedSubInt(locking.Shares(), a.Amount)
	if err != nil {
		return fmt.Errorf("%w: vault %s holds %s locked shares", ErrInsufficientDeposit, a.Vault, locking.Shares())
	}
	shares := new(big.Int).Set(a.Amount)
	var receipt UnlockReceipt
	if _, err := b.callback(nil, nil, func() error {
		var err error
		receipt, err = v.Unlock(b.cm(), shares)
		return err
	}); err != nil {
		return err
	}
	locking.Locked = remaining
	locking.Unlocking = append(append([]health.UnlockingPosition(nil), locking.Unlocking...), health.UnlockingPosition{
		ID:        receipt.ID,
		Coin:      receipt.Coin.Copy(),
		ReleaseAt: receipt.ReleaseAt,
	})
	pos.Amount = locking
	b.record(a.Name(), receipt.Coin)
	return nil
}

func (b *batch) withdrawUnlocked(a WithdrawUnlocked) error {
	v, info, pos, err := b.heldVault(a.Vault)
	if err != nil {
		return err
	}
	locking, ok := pos.Amount.(health.Locking)
	if !ok {
		return fmt.Errorf("%w: %s is not locking", ErrMismatchedVaultType, a.Vault)
	}
	idx := -1
	for i, u := range locking.Unlocking {
		if u.ID == a.LockupID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s #%d", ErrUnlockingNotFound, a.Vault, a.LockupID)
	}
	if entry := locking.Unlocking[idx]; entry.ReleaseAt > b.engine.blockTime {
		return fmt.Errorf("%w: releases at %d", ErrUnlockNotReady, entry.ReleaseAt)
	}
	received, err := b.callback(nil, []string{info.BaseToken}, func() error {
		return v.WithdrawUnlocked(b.cm(), a.LockupID)
	})
	if err != nil {
		return err
	}
	rest := make([]health.UnlockingPosition, 0, len(locking.Unlocking)-1)
	rest = append(rest, locking.Unlocking[:idx]...)
	rest = append(rest, locking.Unlocking[idx+1:]...)
	locking.Unlocking = rest
	pos.Amount = locking
	b.ledger.credit(received...)
	b.checkCap(info.BaseToken)
	b.record(a.Name(), received...)
	return nil
}
