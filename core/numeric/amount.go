package numeric

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MulDivFloor returns floor(a*b/c) using a 256-bit intermediate product.
func MulDivFloor(a, b, c *big.Int) (*big.Int, error) {
	x, y, d, err := toUint256(a, b, c)
	if err != nil {
		return nil, err
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return q.ToBig(), nil
}

// MulDivCeil returns ceil(a*b/c) using a 256-bit intermediate product.
func MulDivCeil(a, b, c *big.Int) (*big.Int, error) {
	x, y, d, err := toUint256(a, b, c)
	if err != nil {
		return nil, err
	}
	q, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if _, carry := q.AddOverflow(q, uint256.NewInt(1)); carry {
			return nil, ErrOverflow
		}
	}
	return q.ToBig(), nil
}

func toUint256(a, b, c *big.Int) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	if c == nil || c.Sign() == 0 {
		return nil, nil, nil, ErrDivideByZero
	}
	x, err := fromBig(a)
	if err != nil {
		return nil, nil, nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := fromBig(c)
	if err != nil {
		return nil, nil, nil, err
	}
	return x, y, d, nil
}

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MulFloor returns floor(amount*d).
func MulFloor(amount *big.Int, d Decimal) (*big.Int, error) {
	return MulDivFloor(amount, d.raw(), decimalOne)
}

// MulCeil returns ceil(amount*d).
func MulCeil(amount *big.Int, d Decimal) (*big.Int, error) {
	return MulDivCeil(amount, d.raw(), decimalOne)
}

// DivFloor returns floor(amount/d).
func DivFloor(amount *big.Int, d Decimal) (*big.Int, error) {
	if d.IsZero() {
		return nil, ErrDivideByZero
	}
	return MulDivFloor(amount, decimalOne, d.raw())
}

// DivCeil returns ceil(amount/d).
func DivCeil(amount *big.Int, d Decimal) (*big.Int, error) {
	if d.IsZero() {
		return nil, ErrDivideByZero
	}
	return MulDivCeil(amount, decimalOne, d.raw())
}

// CheckUint128 rejects amounts that do not fit a 128-bit unsigned integer.
func CheckUint128(amount *big.Int) error {
	if amount == nil {
		return nil
	}
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Cmp(maxUint128) > 0 {
		return ErrOverflow
	}
	return nil
}

// CheckedSubInt returns a-b or ErrUnderflow.
func CheckedSubInt(a, b *big.Int) (*big.Int, error) {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	if a.Cmp(b) < 0 {
		return nil, ErrUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

// MinInt returns the smaller of a and b.
func MinInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// IntOrZero copies v, mapping nil to zero.
func IntOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
