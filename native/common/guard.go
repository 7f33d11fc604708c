package common

import "errors"

var ErrModulePaused = errors.New("module paused")

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// OwnerStore persists the owner role of each module.
type OwnerStore interface {
	ModuleOwner(module string) (OwnerState, error)
	SetModuleOwner(module string, owner OwnerState) error
}

// RequireOwner loads the module owner and asserts sender holds the role.
func RequireOwner(store OwnerStore, module, sender string) error {
	if store == nil {
		return ErrOwnerNotInitialized
	}
	owner, err := store.ModuleOwner(module)
	if err != nil {
		return err
	}
	return owner.AssertOwner(sender)
}

// UpdateOwner applies an owner transition and persists the result.
func UpdateOwner(store OwnerStore, module, sender string, update OwnerUpdate) (OwnerState, error) {
	if store == nil {
		return OwnerState{}, ErrOwnerNotInitialized
	}
	current, err := store.ModuleOwner(module)
	if err != nil {
		return OwnerState{}, err
	}
	next, err := current.Apply(sender, update)
	if err != nil {
		return OwnerState{}, err
	}
	if err := store.SetModuleOwner(module, next); err != nil {
		return OwnerState{}, err
	}
	return next, nil
}
