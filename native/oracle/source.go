package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	"github.com/mars-protocol/contracts-sub007/core/types"
)

var (
	ErrPriceNotFound      = errors.New("oracle: price source not found")
	ErrInvalidPriceSource = errors.New("oracle: invalid price source")
	ErrDerivationTooDeep  = errors.New("oracle: price derivation too deep")
)

// ActionKind selects the price feed. Liquidation feeds fall back to the
// default source when no dedicated source is configured.
type ActionKind uint8

const (
	ActionDefault ActionKind = iota
	ActionLiquidation
)

func (k ActionKind) String() string {
	if k == ActionLiquidation {
		return "liquidation"
	}
	return "default"
}

// ParseActionKind accepts "default" and "liquidation".
func ParseActionKind(s string) (ActionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ActionDefault, nil
	case "liquidation":
		return ActionLiquidation, nil
	default:
		return ActionDefault, fmt.Errorf("oracle: unknown action kind %q", s)
	}
}

// PriceSource describes how the price of a denom is obtained.
type PriceSource interface {
	isPriceSource()
	Validate(denom string) error
	String() string
}

// Fixed quotes a constant price.
type Fixed struct {
	Price numeric.Decimal `json:"price"`
}

// Derived quotes the price of another denom times a multiplier, used for
// staking derivatives and wrapped assets.
type Derived struct {
	Denom      string          `json:"denom"`
	Multiplier numeric.Decimal `json:"multiplier"`
}

func (Fixed) isPriceSource()   {}
func (Derived) isPriceSource() {}

func (f Fixed) Validate(string) error { return nil }

func (d Derived) Validate(denom string) error {
	if err := types.ValidateDenom(d.Denom); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPriceSource, err)
	}
	if d.Denom == denom {
		return fmt.Errorf("%w: %s cannot derive from itself", ErrInvalidPriceSource, denom)
	}
	if d.Multiplier.IsZero() {
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidPriceSource)
	}
	return nil
}

func (f Fixed) String() string   { return "fixed:" + f.Price.String() }
func (d Derived) String() string { return "derived:" + d.Denom + "*" + d.Multiplier.String() }

// SourceConfig is the tagged JSON form of a PriceSource.
type SourceConfig struct {
	Fixed   *Fixed   `json:"fixed,omitempty"`
	Derived *Derived `json:"derived,omitempty"`
}

func NewSourceConfig(src PriceSource) SourceConfig {
	switch s := src.(type) {
	case Fixed:
		return SourceConfig{Fixed: &s}
	case Derived:
		return SourceConfig{Derived: &s}
	default:
		return SourceConfig{}
	}
}

// Source returns the variant carried by the config.
func (c SourceConfig) Source() (PriceSource, error) {
	switch {
	case c.Fixed != nil && c.Derived == nil:
		return *c.Fixed, nil
	case c.Derived != nil && c.Fixed == nil:
		return *c.Derived, nil
	default:
		return nil, fmt.Errorf("%w: exactly one of fixed or derived required", ErrInvalidPriceSource)
	}
}

// MarshalSource encodes src as its tagged JSON form.
func MarshalSource(src PriceSource) ([]byte, error) {
	cfg := NewSourceConfig(src)
	if _, err := cfg.Source(); err != nil {
		return nil, err
	}
	return json.Marshal(cfg)
}

func UnmarshalSource(data []byte) (PriceSource, error) {
	var cfg SourceConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPriceSource, err)
	}
	return cfg.Source()
}
