package state

import (
	"fmt"
	"math/big"
)

func bankBalanceKey(addr, denom string) []byte { return joinKey("balance", denom, addr) }

func bankDenomIndexKey(addr string) []byte { return joinKey("balance-denoms", addr) }

// BankBalance returns the balance of addr in denom, zero when absent.
func (m *Manager) BankBalance(addr, denom string) (*big.Int, error) {
	balance := new(big.Int)
	if _, err := m.KVGet(bankBalanceKey(addr, denom), balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetBankBalance stores amount and keeps the per-address denom index in step.
// A zero balance deletes the entry.
func (m *Manager) SetBankBalance(addr, denom string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		if err := m.KVDelete(bankBalanceKey(addr, denom)); err != nil {
			return err
		}
		return m.KVRemove(bankDenomIndexKey(addr), []byte(denom))
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("state: negative balance %s%s for %s", amount, denom, addr)
	}
	if err := m.KVPut(bankBalanceKey(addr, denom), amount); err != nil {
		return err
	}
	return m.KVAppend(bankDenomIndexKey(addr), []byte(denom))
}

func (m *Manager) BankDenoms(addr string) ([]string, error) {
	return m.stringList(bankDenomIndexKey(addr))
}
