package params

import (
	"fmt"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/events"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

const ModuleName = "params"

// PausableModules lists the modules whose mutating entry points honour the
// pause switch.
var PausableModules = []string{"lending", "creditmanager", "incentives"}

type engineState interface {
	nativecommon.OwnerStore
	AssetParams(denom string) (*AssetParams, bool, error)
	PutAssetParams(params *AssetParams) error
	AssetParamsDenoms() ([]string, error)
	VaultConfig(addr string) (*VaultConfig, bool, error)
	PutVaultConfig(cfg *VaultConfig) error
	DeleteVaultConfig(addr string) error
	VaultConfigAddrs() ([]string, error)
	ModulePaused(module string) (bool, error)
	SetModulePaused(module string, paused bool) error
}

// Engine stores per-asset and per-vault risk parameters.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return e.state, nil
}

// UpdateAssetParams validates and stores params. Only the owner may call it.
func (e *Engine) UpdateAssetParams(sender string, params *AssetParams) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return err
	}
	if err := state.PutAssetParams(params.Clone()); err != nil {
		return err
	}
	e.emitter.Emit(events.AssetParamsUpdated{Denom: params.Denom})
	return nil
}

// UpdateVaultConfig validates and stores a vault config. Only the owner may
// call it.
func (e *Engine) UpdateVaultConfig(sender string, cfg *VaultConfig) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := state.PutVaultConfig(cfg.Clone()); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultConfigUpdated{Addr: cfg.Addr})
	return nil
}

func (e *Engine) RemoveVaultConfig(sender, addr string) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if _, ok, err := state.VaultConfig(addr); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrVaultConfigNotFound, addr)
	}
	if err := state.DeleteVaultConfig(addr); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultConfigUpdated{Addr: addr})
	return nil
}

// SetPaused toggles the pause switch of module.
func (e *Engine) SetPaused(sender, module string, paused bool) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	known := false
	for _, m := range PausableModules {
		if m == module {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownPausedModule, module)
	}
	if err := state.SetModulePaused(module, paused); err != nil {
		return err
	}
	e.emitter.Emit(events.PauseUpdated{Module: module, Paused: paused})
	return nil
}

// IsPaused implements nativecommon.PauseView. Read failures are reported as
// paused so a broken store never lets mutations through.
func (e *Engine) IsPaused(module string) bool {
	state, err := e.withState()
	if err != nil {
		return false
	}
	paused, err := state.ModulePaused(module)
	if err != nil {
		return true
	}
	return paused
}

func (e *Engine) UpdateOwner(sender string, update nativecommon.OwnerUpdate) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	next, err := nativecommon.UpdateOwner(state, ModuleName, sender, update)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.OwnerUpdated{Module: ModuleName, Owner: next.Owner, Proposed: next.Proposed, Abolished: next.Abolished})
	return nil
}

// AssetParams returns the params of denom or ErrAssetParamsNotFound.
func (e *Engine) AssetParams(denom string) (*AssetParams, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	params, ok, err := state.AssetParams(denom)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetParamsNotFound, denom)
	}
	return params, nil
}

// MaybeAssetParams returns nil when denom has no params.
func (e *Engine) MaybeAssetParams(denom string) (*AssetParams, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	params, ok, err := state.AssetParams(denom)
	if err != nil || !ok {
		return nil, err
	}
	return params, nil
}

// AllAssetParams returns every stored entry ordered by denom.
func (e *Engine) AllAssetParams() ([]*AssetParams, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	denoms, err := state.AssetParamsDenoms()
	if err != nil {
		return nil, err
	}
	sort.Strings(denoms)
	out := make([]*AssetParams, 0, len(denoms))
	for _, denom := range denoms {
		params, ok, err := state.AssetParams(denom)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, params)
		}
	}
	return out, nil
}

func (e *Engine) VaultConfig(addr string) (*VaultConfig, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	cfg, ok, err := state.VaultConfig(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultConfigNotFound, addr)
	}
	return cfg, nil
}

func (e *Engine) AllVaultConfigs() ([]*VaultConfig, error) {
	state, err := e.withState()
	if err != nil {
		return nil, err
	}
	addrs, err := state.VaultConfigAddrs()
	if err != nil {
		return nil, err
	}
	sort.Strings(addrs)
	out := make([]*VaultConfig, 0, len(addrs))
	for _, addr := range addrs {
		cfg, ok, err := state.VaultConfig(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cfg)
		}
	}
	return out, nil
}
