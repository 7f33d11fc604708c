package state

import (
	"fmt"
	"strconv"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/native/adapters"
)

func adapterVaultKey(addr string) []byte { return joinKey("adapters", "vault", addr) }

func adapterUnlockKey(addr string, id uint64) []byte {
	return joinKey("adapters", "unlock", addr, strconv.FormatUint(id, 10))
}

func liquidityPoolKey(lpDenom string) []byte { return joinKey("adapters", "pool", lpDenom) }

func stakingFarmKey(lpDenom string) []byte { return joinKey("adapters", "farm", lpDenom) }

func stakePositionKey(lpDenom, accountID string) []byte {
	return joinKey("adapters", "stake", lpDenom, accountID)
}

func (m *Manager) AdapterVault(addr string) (*adapters.VaultRecord, bool, error) {
	rec := new(adapters.VaultRecord)
	ok, err := m.KVGet(adapterVaultKey(addr), rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec, true, nil
}

func (m *Manager) PutAdapterVault(rec *adapters.VaultRecord) error {
	if rec == nil || rec.Addr == "" {
		return fmt.Errorf("state: vault address required")
	}
	return m.KVPut(adapterVaultKey(rec.Addr), rec)
}

func (m *Manager) AdapterVaultUnlock(addr string, id uint64) (*adapters.UnlockRecord, bool, error) {
	rec := new(adapters.UnlockRecord)
	ok, err := m.KVGet(adapterUnlockKey(addr, id), rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec, true, nil
}

func (m *Manager) PutAdapterVaultUnlock(addr string, rec *adapters.UnlockRecord) error {
	if rec == nil {
		return fmt.Errorf("state: unlock record required")
	}
	return m.KVPut(adapterUnlockKey(addr, rec.ID), rec)
}

func (m *Manager) DeleteAdapterVaultUnlock(addr string, id uint64) error {
	return m.KVDelete(adapterUnlockKey(addr, id))
}

func (m *Manager) LiquidityPool(lpDenom string) (*adapters.PoolRecord, bool, error) {
	rec := new(adapters.PoolRecord)
	ok, err := m.KVGet(liquidityPoolKey(lpDenom), rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec, true, nil
}

func (m *Manager) PutLiquidityPool(rec *adapters.PoolRecord) error {
	if rec == nil || rec.LpDenom == "" {
		return fmt.Errorf("state: pool lp denom required")
	}
	return m.KVPut(liquidityPoolKey(rec.LpDenom), rec)
}

func (m *Manager) StakingFarm(lpDenom string) (*adapters.FarmRecord, bool, error) {
	rec := new(adapters.FarmRecord)
	ok, err := m.KVGet(stakingFarmKey(lpDenom), rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec, true, nil
}

func (m *Manager) PutStakingFarm(rec *adapters.FarmRecord) error {
	if rec == nil || rec.LpDenom == "" {
		return fmt.Errorf("state: farm lp denom required")
	}
	return m.KVPut(stakingFarmKey(rec.LpDenom), rec)
}

func (m *Manager) StakePosition(lpDenom, accountID string) (*adapters.StakeRecord, bool, error) {
	rec := new(adapters.StakeRecord)
	ok, err := m.KVGet(stakePositionKey(lpDenom, accountID), rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return rec, true, nil
}

// PutStakePosition drops positions with nothing staked or pending.
func (m *Manager) PutStakePosition(lpDenom, accountID string, rec *adapters.StakeRecord) error {
	key := stakePositionKey(lpDenom, accountID)
	if rec == nil || (numeric.IntOrZero(rec.Amount).Sign() == 0 && numeric.IntOrZero(rec.Pending).Sign() == 0) {
		return m.KVDelete(key)
	}
	return m.KVPut(key, rec)
}
