package types

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

var (
	ErrInvalidDenom  = errors.New("types: invalid denom")
	ErrInvalidAmount = errors.New("types: amount must not be negative")
)

// Coin is an amount of a single fungible denomination.
type Coin struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

// NewCoin is a convenience constructor used heavily by tests and genesis.
func NewCoin(denom string, amount int64) Coin {
	return Coin{Denom: denom, Amount: big.NewInt(amount)}
}

// NewCoinBig copies amount into a new coin.
func NewCoinBig(denom string, amount *big.Int) Coin {
	out := Coin{Denom: denom, Amount: new(big.Int)}
	if amount != nil {
		out.Amount.Set(amount)
	}
	return out
}

func (c Coin) IsZero() bool { return c.Amount == nil || c.Amount.Sign() == 0 }

func (c Coin) Copy() Coin { return NewCoinBig(c.Denom, c.Amount) }

func (c Coin) String() string {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.String()
	}
	return amount + c.Denom
}

// Validate checks the denom shape and the amount sign.
func (c Coin) Validate() error {
	if err := ValidateDenom(c.Denom); err != nil {
		return err
	}
	if c.Amount != nil && c.Amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDenom accepts native and factory/ibc style denoms.
func ValidateDenom(denom string) error {
	if len(denom) < 2 || len(denom) > 128 {
		return fmt.Errorf("%w: %q must be 2-128 characters", ErrInvalidDenom, denom)
	}
	first := denom[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return fmt.Errorf("%w: %q must start with a letter", ErrInvalidDenom, denom)
	}
	for _, r := range denom {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '/', r == ':', r == '.', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidDenom, denom, r)
		}
	}
	return nil
}

// Coins is an ordered list of coins. Normalize sorts by denom, merges
// duplicates and drops zero amounts.
type Coins []Coin

func (cs Coins) Normalize() Coins {
	merged := make(map[string]*big.Int, len(cs))
	for _, c := range cs {
		if c.IsZero() {
			continue
		}
		if existing, ok := merged[c.Denom]; ok {
			existing.Add(existing, c.Amount)
			continue
		}
		merged[c.Denom] = new(big.Int).Set(c.Amount)
	}
	out := make(Coins, 0, len(merged))
	for denom, amount := range merged {
		if amount.Sign() == 0 {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out
}

// AmountOf returns the amount held in denom, zero when absent.
func (cs Coins) AmountOf(denom string) *big.Int {
	total := new(big.Int)
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if !c.IsZero() {
			return false
		}
	}
	return true
}

func (cs Coins) Denoms() []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs.Normalize() {
		out = append(out, c.Denom)
	}
	return out
}

func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

// ParseCoin reads the "<amount><denom>" form produced by Coin.String.
func ParseCoin(raw string) (Coin, error) {
	raw = strings.TrimSpace(raw)
	split := 0
	for split < len(raw) && raw[split] >= '0' && raw[split] <= '9' {
		split++
	}
	if split == 0 {
		return Coin{}, fmt.Errorf("%w: %q has no amount", ErrInvalidAmount, raw)
	}
	amount, ok := new(big.Int).SetString(raw[:split], 10)
	if !ok {
		return Coin{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	coin := Coin{Denom: raw[split:], Amount: amount}
	if err := coin.Validate(); err != nil {
		return Coin{}, err
	}
	return coin, nil
}

// ParseCoins reads a comma separated coin list. An empty string is no coins.
func ParseCoins(raw string) (Coins, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make(Coins, 0, len(parts))
	for _, part := range parts {
		coin, err := ParseCoin(part)
		if err != nil {
			return nil, err
		}
		out = append(out, coin)
	}
	return out.Normalize(), nil
}
