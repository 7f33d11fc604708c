package state

import (
	"fmt"

	"github.com/mars-protocol/contracts-sub007/native/params"
)

var (
	assetParamsIndexKey = []byte("params:assets")
	vaultConfigIndexKey = []byte("params:vaults")
)

func assetParamsKey(denom string) []byte { return joinKey("params", "asset", denom) }

func vaultConfigKey(addr string) []byte { return joinKey("params", "vault", addr) }

// AssetParams records are JSON because HLS correlations are a tagged union.
func (m *Manager) AssetParams(denom string) (*params.AssetParams, bool, error) {
	out := new(params.AssetParams)
	ok, err := m.jsonGet(assetParamsKey(denom), out)
	if err != nil || !ok {
		return nil, ok, err
	}
	return out, true, nil
}

func (m *Manager) PutAssetParams(p *params.AssetParams) error {
	if p == nil || p.Denom == "" {
		return fmt.Errorf("state: asset params denom required")
	}
	if err := m.jsonPut(assetParamsKey(p.Denom), p); err != nil {
		return err
	}
	return m.KVAppend(assetParamsIndexKey, []byte(p.Denom))
}

func (m *Manager) AssetParamsDenoms() ([]string, error) {
	return m.stringList(assetParamsIndexKey)
}

func (m *Manager) VaultConfig(addr string) (*params.VaultConfig, bool, error) {
	out := new(params.VaultConfig)
	ok, err := m.jsonGet(vaultConfigKey(addr), out)
	if err != nil || !ok {
		return nil, ok, err
	}
	return out, true, nil
}

func (m *Manager) PutVaultConfig(cfg *params.VaultConfig) error {
	if cfg == nil || cfg.Addr == "" {
		return fmt.Errorf("state: vault config address required")
	}
	if err := m.jsonPut(vaultConfigKey(cfg.Addr), cfg); err != nil {
		return err
	}
	return m.KVAppend(vaultConfigIndexKey, []byte(cfg.Addr))
}

func (m *Manager) DeleteVaultConfig(addr string) error {
	if err := m.KVDelete(vaultConfigKey(addr)); err != nil {
		return err
	}
	return m.KVRemove(vaultConfigIndexKey, []byte(addr))
}

func (m *Manager) VaultConfigAddrs() ([]string, error) {
	return m.stringList(vaultConfigIndexKey)
}
