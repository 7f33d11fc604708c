package oracle

import (
	"errors"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/numeric"
	nativecommon "github.com/mars-protocol/contracts-sub007/native/common"
)

type mockOracleState struct {
	owner   nativecommon.OwnerState
	sources map[ActionKind]map[string]PriceSource
}

func newMockOracleState() *mockOracleState {
	return &mockOracleState{
		owner: nativecommon.NewOwnerState("owner"),
		sources: map[ActionKind]map[string]PriceSource{
			ActionDefault:     {},
			ActionLiquidation: {},
		},
	}
}

func (m *mockOracleState) ModuleOwner(string) (nativecommon.OwnerState, error) { return m.owner, nil }

func (m *mockOracleState) SetModuleOwner(_ string, owner nativecommon.OwnerState) error {
	m.owner = owner
	return nil
}

func (m *mockOracleState) PriceSource(kind ActionKind, denom string) (PriceSource, bool, error) {
	src, ok := m.sources[kind][denom]
	return src, ok, nil
}

func (m *mockOracleState) PutPriceSource(kind ActionKind, denom string, src PriceSource) error {
	m.sources[kind][denom] = src
	return nil
}

func (m *mockOracleState) DeletePriceSource(kind ActionKind, denom string) error {
	delete(m.sources[kind], denom)
	return nil
}

func (m *mockOracleState) PriceSourceDenoms(kind ActionKind) ([]string, error) {
	out := make([]string, 0)
	for denom := range m.sources[kind] {
		out = append(out, denom)
	}
	return out, nil
}

func newTestOracle(t *testing.T) *Engine {
	t.Helper()
	engine := NewEngine()
	engine.SetState(newMockOracleState())
	return engine
}

func TestLiquidationFeedFallsBackToDefault(t *testing.T) {
	engine := newTestOracle(t)
	if err := engine.SetPriceSource("owner", "uosmo", ActionDefault, Fixed{Price: numeric.MustParseDecimal("0.5")}); err != nil {
		t.Fatalf("set default: %v", err)
	}
	price, err := engine.Price("uosmo", ActionLiquidation)
	if err != nil {
		t.Fatalf("liquidation price: %v", err)
	}
	if !price.Equal(numeric.MustParseDecimal("0.5")) {
		t.Fatalf("unexpected fallback price %s", price)
	}

	if err := engine.SetPriceSource("owner", "uosmo", ActionLiquidation, Fixed{Price: numeric.MustParseDecimal("0.45")}); err != nil {
		t.Fatalf("set liquidation: %v", err)
	}
	price, err = engine.Price("uosmo", ActionLiquidation)
	if err != nil {
		t.Fatalf("liquidation price: %v", err)
	}
	if !price.Equal(numeric.MustParseDecimal("0.45")) {
		t.Fatalf("expected dedicated liquidation price, got %s", price)
	}
	price, err = engine.Price("uosmo", ActionDefault)
	if err != nil || !price.Equal(numeric.MustParseDecimal("0.5")) {
		t.Fatalf("default price changed: %s err=%v", price, err)
	}
}

func TestMissingPriceIsError(t *testing.T) {
	engine := newTestOracle(t)
	if _, err := engine.Price("uatom", ActionDefault); !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected price not found, got %v", err)
	}
}

func TestDerivedPrice(t *testing.T) {
	engine := newTestOracle(t)
	if err := engine.SetPriceSource("owner", "stAtom", ActionDefault, Derived{Denom: "uatom", Multiplier: numeric.MustParseDecimal("1.2")}); err != nil {
		t.Fatalf("set derived: %v", err)
	}
	if err := engine.SetPriceSource("owner", "uatom", ActionDefault, Fixed{Price: numeric.MustParseDecimal("10")}); err != nil {
		t.Fatalf("set base: %v", err)
	}
	price, err := engine.Price("stAtom", ActionDefault)
	if err != nil {
		t.Fatalf("derived price: %v", err)
	}
	if !price.Equal(numeric.MustParseDecimal("12")) {
		t.Fatalf("unexpected derived price %s", price)
	}

	err = engine.SetPriceSource("owner", "uatom", ActionDefault, Derived{Denom: "stAtom", Multiplier: numeric.One()})
	if !errors.Is(err, ErrDerivationTooDeep) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
}

func TestSetPriceSourceRequiresOwner(t *testing.T) {
	engine := newTestOracle(t)
	err := engine.SetPriceSource("mallory", "uosmo", ActionDefault, Fixed{Price: numeric.One()})
	if !errors.Is(err, nativecommon.ErrNotOwner) {
		t.Fatalf("expected not owner, got %v", err)
	}
}

func TestSourceCodec(t *testing.T) {
	raw, err := MarshalSource(Derived{Denom: "uatom", Multiplier: numeric.MustParseDecimal("1.5")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	src, err := UnmarshalSource(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	derived, ok := src.(Derived)
	if !ok || derived.Denom != "uatom" || !derived.Multiplier.Equal(numeric.MustParseDecimal("1.5")) {
		t.Fatalf("unexpected source %#v", src)
	}
	if _, err := UnmarshalSource([]byte(`{}`)); !errors.Is(err, ErrInvalidPriceSource) {
		t.Fatalf("expected invalid source, got %v", err)
	}
}
