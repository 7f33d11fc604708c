package numeric

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by a Decimal.
const Precision = 18

var (
	ErrOverflow       = errors.New("numeric: overflow")
	ErrUnderflow      = errors.New("numeric: underflow")
	ErrDivideByZero   = errors.New("numeric: divide by zero")
	ErrDecimalParse   = errors.New("numeric: invalid decimal")
	ErrNegativeAmount = errors.New("numeric: negative value")
)

var (
	decimalOne = new(big.Int).Exp(big.NewInt(10), big.NewInt(Precision), nil)
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

// Decimal is a non-negative fixed-point number with 18 fractional digits. The
// zero value is 0. Values are immutable; every operation returns a fresh
// Decimal.
type Decimal struct {
	atomics *big.Int
}

// Zero returns the decimal 0.
func Zero() Decimal { return Decimal{} }

// One returns the decimal 1.
func One() Decimal { return Decimal{atomics: new(big.Int).Set(decimalOne)} }

// NewDecimalFromInt converts an integer into a decimal.
func NewDecimalFromInt(v int64) Decimal {
	if v < 0 {
		panic("numeric: negative decimal")
	}
	return Decimal{atomics: new(big.Int).Mul(big.NewInt(v), decimalOne)}
}

// NewDecimalFromAmount converts an integer amount into a decimal.
func NewDecimalFromAmount(amount *big.Int) Decimal {
	if amount == nil || amount.Sign() <= 0 {
		return Decimal{}
	}
	return Decimal{atomics: new(big.Int).Mul(amount, decimalOne)}
}

// NewDecimalFromAtomics builds a decimal from its raw 1e-18 representation.
func NewDecimalFromAtomics(atomics *big.Int) Decimal {
	if atomics == nil || atomics.Sign() <= 0 {
		return Decimal{}
	}
	return Decimal{atomics: new(big.Int).Set(atomics)}
}

// NewDecimalFromRatio returns floor(num/den) at decimal precision.
func NewDecimalFromRatio(num, den *big.Int) (Decimal, error) {
	if den == nil || den.Sign() == 0 {
		return Decimal{}, ErrDivideByZero
	}
	if num == nil || num.Sign() == 0 {
		return Decimal{}, nil
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		return Decimal{}, ErrNegativeAmount
	}
	scaled := new(big.Int).Mul(num, decimalOne)
	return Decimal{atomics: scaled.Quo(scaled, den)}, nil
}

// NewDecimalFromRatioCeil returns ceil(num/den) at decimal precision.
func NewDecimalFromRatioCeil(num, den *big.Int) (Decimal, error) {
	if den == nil || den.Sign() == 0 {
		return Decimal{}, ErrDivideByZero
	}
	if num == nil || num.Sign() == 0 {
		return Decimal{}, nil
	}
	if num.Sign() < 0 || den.Sign() < 0 {
		return Decimal{}, ErrNegativeAmount
	}
	return Decimal{atomics: divCeil(new(big.Int).Mul(num, decimalOne), den)}, nil
}

// NewDecimalPercent returns pct/100.
func NewDecimalPercent(pct int64) Decimal {
	d, _ := NewDecimalFromRatio(big.NewInt(pct), big.NewInt(100))
	return d
}

// NewDecimalPermille returns v/1000.
func NewDecimalPermille(v int64) Decimal {
	d, _ := NewDecimalFromRatio(big.NewInt(v), big.NewInt(1000))
	return d
}

// ParseDecimal parses a base-10 string such as "0.75" or "12".
func ParseDecimal(s string) (Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Decimal{}, fmt.Errorf("%w: empty string", ErrDecimalParse)
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Decimal{}, fmt.Errorf("%w: %q: %v", ErrDecimalParse, s, err)
	}
	if parsed.Sign() < 0 {
		return Decimal{}, fmt.Errorf("%w: %q", ErrNegativeAmount, s)
	}
	shifted := parsed.Shift(Precision)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Decimal{}, fmt.Errorf("%w: %q exceeds %d fractional digits", ErrDecimalParse, s, Precision)
	}
	return NewDecimalFromAtomics(shifted.BigInt()), nil
}

// MustParseDecimal parses s and panics on failure. Intended for constants.
func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) raw() *big.Int {
	if d.atomics == nil {
		return new(big.Int)
	}
	return d.atomics
}

// Atomics returns a copy of the raw 1e-18 representation.
func (d Decimal) Atomics() *big.Int { return new(big.Int).Set(d.raw()) }

func (d Decimal) IsZero() bool { return d.atomics == nil || d.atomics.Sign() == 0 }

// Cmp compares d and o and returns -1, 0 or +1.
func (d Decimal) Cmp(o Decimal) int { return d.raw().Cmp(o.raw()) }

func (d Decimal) Equal(o Decimal) bool { return d.Cmp(o) == 0 }
func (d Decimal) LT(o Decimal) bool    { return d.Cmp(o) < 0 }
func (d Decimal) LTE(o Decimal) bool   { return d.Cmp(o) <= 0 }
func (d Decimal) GT(o Decimal) bool    { return d.Cmp(o) > 0 }
func (d Decimal) GTE(o Decimal) bool   { return d.Cmp(o) >= 0 }

func (d Decimal) Add(o Decimal) Decimal {
	return Decimal{atomics: new(big.Int).Add(d.raw(), o.raw())}
}

// CheckedSub returns d-o or ErrUnderflow when o > d.
func (d Decimal) CheckedSub(o Decimal) (Decimal, error) {
	if d.LT(o) {
		return Decimal{}, ErrUnderflow
	}
	return Decimal{atomics: new(big.Int).Sub(d.raw(), o.raw())}, nil
}

// SaturatingSub returns d-o clamped at zero.
func (d Decimal) SaturatingSub(o Decimal) Decimal {
	if d.LTE(o) {
		return Decimal{}
	}
	return Decimal{atomics: new(big.Int).Sub(d.raw(), o.raw())}
}

// Mul multiplies two decimals and truncates the result.
func (d Decimal) Mul(o Decimal) Decimal {
	product := new(big.Int).Mul(d.raw(), o.raw())
	return Decimal{atomics: product.Quo(product, decimalOne)}
}

// MulCeil multiplies two decimals and rounds the result up.
func (d Decimal) MulCeil(o Decimal) Decimal {
	return Decimal{atomics: divCeil(new(big.Int).Mul(d.raw(), o.raw()), decimalOne)}
}

// MulInt multiplies d by an integer without rounding.
func (d Decimal) MulInt(v *big.Int) Decimal {
	if v == nil || v.Sign() <= 0 {
		return Decimal{}
	}
	return Decimal{atomics: new(big.Int).Mul(d.raw(), v)}
}

// CheckedDiv divides d by o and truncates the result.
func (d Decimal) CheckedDiv(o Decimal) (Decimal, error) {
	if o.IsZero() {
		return Decimal{}, ErrDivideByZero
	}
	num := new(big.Int).Mul(d.raw(), decimalOne)
	return Decimal{atomics: num.Quo(num, o.raw())}, nil
}

// CheckedDivInt divides d by an integer and truncates the result.
func (d Decimal) CheckedDivInt(v *big.Int) (Decimal, error) {
	if v == nil || v.Sign() == 0 {
		return Decimal{}, ErrDivideByZero
	}
	return Decimal{atomics: new(big.Int).Quo(d.raw(), v)}, nil
}

// Floor returns the integer part of d.
func (d Decimal) Floor() *big.Int { return new(big.Int).Quo(d.raw(), decimalOne) }

// Ceil returns the smallest integer not less than d.
func (d Decimal) Ceil() *big.Int { return divCeil(d.raw(), decimalOne) }

func Min(a, b Decimal) Decimal {
	if a.LTE(b) {
		return a
	}
	return b
}

func Max(a, b Decimal) Decimal {
	if a.GTE(b) {
		return a
	}
	return b
}

// String renders the decimal without trailing zeros.
func (d Decimal) String() string {
	return decimal.NewFromBigInt(d.raw(), -Precision).String()
}

func (d Decimal) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Decimal) UnmarshalText(text []byte) error {
	parsed, err := ParseDecimal(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*d = Decimal{}
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		trimmed = s
	}
	return d.UnmarshalText([]byte(trimmed))
}

// EncodeRLP stores the raw atomics as an RLP big integer.
func (d Decimal) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, d.raw())
}

func (d *Decimal) DecodeRLP(s *rlp.Stream) error {
	v, err := s.BigInt()
	if err != nil {
		return err
	}
	*d = NewDecimalFromAtomics(v)
	return nil
}

func divCeil(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
