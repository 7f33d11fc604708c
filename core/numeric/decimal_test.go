package numeric

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
)

func TestParseDecimal(t *testing.T) {
	cases := map[string]string{
		"0.75":   "0.75",
		"12":     "12",
		"0.1000": "0.1",
		"1e-3":   "0.001",
	}
	for input, want := range cases {
		d, err := ParseDecimal(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if d.String() != want {
			t.Fatalf("parse %q: got %s want %s", input, d, want)
		}
	}
	if _, err := ParseDecimal("-1"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative error, got %v", err)
	}
	if _, err := ParseDecimal("0.0000000000000000001"); !errors.Is(err, ErrDecimalParse) {
		t.Fatalf("expected precision error, got %v", err)
	}
	if _, err := ParseDecimal("abc"); !errors.Is(err, ErrDecimalParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestDecimalRounding(t *testing.T) {
	third, err := NewDecimalFromRatio(big.NewInt(1), big.NewInt(3))
	if err != nil {
		t.Fatalf("ratio: %v", err)
	}
	thirdCeil, err := NewDecimalFromRatioCeil(big.NewInt(1), big.NewInt(3))
	if err != nil {
		t.Fatalf("ratio ceil: %v", err)
	}
	if new(big.Int).Sub(thirdCeil.Atomics(), third.Atomics()).Int64() != 1 {
		t.Fatalf("ceil should exceed floor by one atomic: %s vs %s", thirdCeil, third)
	}

	floor, err := MulFloor(big.NewInt(10), third)
	if err != nil {
		t.Fatalf("mul floor: %v", err)
	}
	ceil, err := MulCeil(big.NewInt(10), third)
	if err != nil {
		t.Fatalf("mul ceil: %v", err)
	}
	if floor.Int64() != 3 || ceil.Int64() != 4 {
		t.Fatalf("unexpected rounding: floor=%s ceil=%s", floor, ceil)
	}
	if got := MustParseDecimal("2.5").Floor().Int64(); got != 2 {
		t.Fatalf("floor: %d", got)
	}
	if got := MustParseDecimal("2.5").Ceil().Int64(); got != 3 {
		t.Fatalf("ceil: %d", got)
	}
}

func TestMulDivGuards(t *testing.T) {
	if _, err := MulDivFloor(big.NewInt(1), big.NewInt(1), big.NewInt(0)); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected divide by zero, got %v", err)
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	if _, err := MulDivFloor(huge, big.NewInt(4), big.NewInt(1)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	// The intermediate product exceeds 256 bits but the quotient fits.
	res, err := MulDivFloor(huge, big.NewInt(4), big.NewInt(8))
	if err != nil {
		t.Fatalf("mul div: %v", err)
	}
	if res.Cmp(new(big.Int).Rsh(huge, 1)) != 0 {
		t.Fatalf("unexpected quotient %s", res)
	}
	if err := CheckUint128(new(big.Int).Lsh(big.NewInt(1), 128)); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected uint128 overflow, got %v", err)
	}
	if _, err := NewDecimalFromInt(1).CheckedSub(NewDecimalFromInt(2)); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestDecimalEncodings(t *testing.T) {
	d := MustParseDecimal("0.125")

	raw, err := json.Marshal(struct {
		V Decimal `json:"v"`
	}{d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"v":"0.125"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	var fromNumber struct {
		V Decimal `json:"v"`
	}
	if err := json.Unmarshal([]byte(`{"v":0.125}`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if !fromNumber.V.Equal(d) {
		t.Fatalf("number decode mismatch: %s", fromNumber.V)
	}

	type record struct {
		Rate  Decimal
		Label string
	}
	enc, err := rlp.EncodeToBytes(record{Rate: d, Label: "x"})
	if err != nil {
		t.Fatalf("rlp encode: %v", err)
	}
	var out record
	if err := rlp.DecodeBytes(enc, &out); err != nil {
		t.Fatalf("rlp decode: %v", err)
	}
	if !out.Rate.Equal(d) || out.Label != "x" {
		t.Fatalf("rlp mismatch: %+v", out)
	}
}
