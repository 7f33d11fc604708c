package state

import (
	"errors"
	"fmt"
)

var (
	contractVersionKey = []byte("state/contract-version")
	// ErrContractVersionMissing indicates the store was never initialized.
	ErrContractVersionMissing = errors.New("state: contract version not recorded")
)

// ContractVersion names the deployed contract and the semver of the layout
// its state is written in.
type ContractVersion struct {
	Contract string
	Version  string
}

func (m *Manager) SetContractVersion(v ContractVersion) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	return m.KVPut(contractVersionKey, v)
}

// ContractVersion returns the stored version and whether one was present.
func (m *Manager) ContractVersion() (ContractVersion, bool, error) {
	if m == nil {
		return ContractVersion{}, false, fmt.Errorf("state: manager unavailable")
	}
	var v ContractVersion
	ok, err := m.KVGet(contractVersionKey, &v)
	if err != nil {
		return ContractVersion{}, false, err
	}
	return v, ok, nil
}
