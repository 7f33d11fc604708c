package oracle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mars-protocol/contracts-sub007/core/events"
	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

const ModuleName = "oracle"

// maxDerivationDepth bounds chains of Derived sources.
const maxDerivationDepth = 4

type engineState interface {
	nativecommon.OwnerStore
	PriceSource(kind ActionKind, denom string) (PriceSource, bool, error)
	PutPriceSource(kind ActionKind, denom string, src PriceSource) error
	DeletePriceSource(kind ActionKind, denom string) error
	PriceSourceDenoms(kind ActionKind) ([]string, error)
}

// PriceOracle is the read interface consumed by the risk engines.
type PriceOracle interface {
	Price(denom string, kind ActionKind) (numeric.Decimal, error)
}

// Engine stores price sources and resolves prices from them.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) withState() (engineState, error) {
	if e == nil || e.state == nil {
		return nil, fmt.Errorf("oracle: state not configured")
	}
	return e.state, nil
}

// SetPriceSource stores src for denom under kind. Only the owner may call it.
func (e *Engine) SetPriceSource(sender, denom string, kind ActionKind, src PriceSource) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	if err := types.ValidateDenom(denom); err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidPriceSource)
	}
	if err := src.Validate(denom); err != nil {
		return err
	}
	if err := state.PutPriceSource(kind, denom, src); err != nil {
		return err
	}
	// Reject cycles and overly deep chains at write time. Bases may be
	// configured later.
	if _, err := e.resolve(state, denom, kind, 0); errors.Is(err, ErrDerivationTooDeep) {
		return err
	}
	e.emitter.Emit(events.PriceSourceSet{Denom: denom, Kind: kind.String(), Source: src.String()})
	return nil
}

func (e *Engine) RemovePriceSource(sender, denom string, kind ActionKind) error {
	state, err := e.withState()
	if err != nil {
		return err
	}
	if err := nativecommon.RequireOwner(state, ModuleName, sender); err != nil {
		return err
	}
	return state.DeletePriceSource(kind, denom)
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

// Price returns the price of denom for kind. Missing sources are errors.
func (e *Engine) Price(denom string, kind ActionKind) (numeric.Decimal, error) {
	state, err := e.withState()
	if err != nil {
		return numeric.Decimal{}, err
	}
	return e.resolve(state, denom, kind, 0)
}

// Prices resolves every denom in one call.
func (e *Engine) Prices(denoms []string, kind ActionKind) (map[string]numeric.Decimal, error) {
	out := make(map[string]numeric.Decimal, len(denoms))
	for _, denom := range denoms {
		if _, done := out[denom]; done {
			continue
		}
		price, err := e.Price(denom, kind)
		if err != nil {
			return nil, err
		}
		out[denom] = price
	}
	return out, nil
}

// Sources lists the configured sources of kind ordered by denom.
func (e *Engine) Sources(kind ActionKind) (map[string]PriceSource, []string, error) {
	state, err := e.withState()
	if err != nil {
		return nil, nil, err
	}
	denoms, err := state.PriceSourceDenoms(kind)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(denoms)
	out := make(map[string]PriceSource, len(denoms))
	for _, denom := range denoms {
		src, ok, err := state.PriceSource(kind, denom)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			out[denom] = src
		}
	}
	return out, denoms, nil
}

func (e *Engine) resolve(state engineState, denom string, kind ActionKind, depth int) (numeric.Decimal, error) {
	if depth > maxDerivationDepth {
		return numeric.Decimal{}, fmt.Errorf("%w: %s", ErrDerivationTooDeep, denom)
	}
	src, ok, err := state.PriceSource(kind, denom)
	if err != nil {
		return numeric.Decimal{}, err
	}
	if !ok && kind == ActionLiquidation {
		src, ok, err = state.PriceSource(ActionDefault, denom)
		if err != nil {
			return numeric.Decimal{}, err
		}
	}
	if !ok {
		return numeric.Decimal{}, fmt.Errorf("%w: %s (%s)", ErrPriceNotFound, denom, kind)
	}
	switch s := src.(type) {
	case Fixed:
		return s.Price, nil
	case Derived:
		base, err := e.resolve(state, s.Denom, kind, depth+1)
		if err != nil {
			return numeric.Decimal{}, err
		}
		return base.Mul(s.Multiplier), nil
	default:
		return numeric.Decimal{}, fmt.Errorf("%w: %T", ErrInvalidPriceSource, src)
	}
}
