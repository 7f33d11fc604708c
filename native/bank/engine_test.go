package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

type mockBankState struct {
	balances map[string]map[string]*big.Int
}

func newMockBankState() *mockBankState {
	return &mockBankState{balances: make(map[string]map[string]*big.Int)}
}

func (m *mockBankState) BankBalance(addr, denom string) (*big.Int, error) {
	if v, ok := m.balances[addr][denom]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockBankState) SetBankBalance(addr, denom string, amount *big.Int) error {
	if m.balances[addr] == nil {
		m.balances[addr] = make(map[string]*big.Int)
	}
	m.balances[addr][denom] = new(big.Int).Set(amount)
	return nil
}

func (m *mockBankState) BankDenoms(addr string) ([]string, error) {
	out := make([]string, 0)
	for denom := range m.balances[addr] {
		out = append(out, denom)
	}
	return out, nil
}

func TestTransferIsAllOrNothing(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockBankState())
	if err := engine.Mint("alice", types.Coins{types.NewCoin("uosmo", 100), types.NewCoin("uatom", 5)}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := engine.Transfer("alice", "bob", types.Coins{types.NewCoin("uosmo", 50), types.NewCoin("uatom", 6)})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	balance, _ := engine.Balance("alice", "uosmo")
	if balance.Int64() != 100 {
		t.Fatalf("partial transfer applied: %s", balance)
	}

	if err := engine.Transfer("alice", "bob", types.Coins{types.NewCoin("uosmo", 50), types.NewCoin("uatom", 5)}); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	bob, err := engine.Balances("bob")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(bob) != 2 || bob.AmountOf("uosmo").Int64() != 50 || bob.AmountOf("uatom").Int64() != 5 {
		t.Fatalf("unexpected bob balances %v", bob)
	}
	alice, _ := engine.Balances("alice")
	if len(alice) != 1 || alice.AmountOf("uosmo").Int64() != 50 {
		t.Fatalf("unexpected alice balances %v", alice)
	}
}

func TestBurn(t *testing.T) {
	engine := NewEngine()
	engine.SetState(newMockBankState())
	if err := engine.Mint("vault", types.Coins{types.NewCoin("vshare", 10)}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := engine.Burn("vault", types.Coins{types.NewCoin("vshare", 11)}); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := engine.Burn("vault", types.Coins{types.NewCoin("vshare", 10)}); err != nil {
		t.Fatalf("burn: %v", err)
	}
	balance, _ := engine.Balance("vault", "vshare")
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}
