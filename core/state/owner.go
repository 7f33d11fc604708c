package state

import (
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

func ownerKey(module string) []byte { return joinKey("owner", module) }

func pausedKey(module string) []byte { return joinKey("params", "paused", module) }

// ModuleOwner returns the owner role of module. A module without a stored
// role reports the zero state, which owns nothing.
func (m *Manager) ModuleOwner(module string) (nativecommon.OwnerState, error) {
	var owner nativecommon.OwnerState
	if _, err := m.KVGet(ownerKey(module), &owner); err != nil {
		return nativecommon.OwnerState{}, err
	}
	return owner, nil
}

func (m *Manager) SetModuleOwner(module string, owner nativecommon.OwnerState) error {
	return m.KVPut(ownerKey(module), owner)
}

// ModulePaused reports the pause flag set through the parameter store.
func (m *Manager) ModulePaused(module string) (bool, error) {
	var paused bool
	if _, err := m.KVGet(pausedKey(module), &paused); err != nil {
		return false, err
	}
	return paused, nil
}

func (m *Manager) SetModulePaused(module string, paused bool) error {
	if !paused {
		return m.KVDelete(pausedKey(module))
	}
	return m.KVPut(pausedKey(module), true)
}
