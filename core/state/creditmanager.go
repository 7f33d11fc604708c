package state

import (
	"fmt"

	"github.com/mars-protocol/contracts-sub007/native/creditmanager"
)

var (
	creditAccountSeqKey    = []byte("creditmanager:next-id")
	creditManagerConfigKey = []byte("creditmanager:config")
)

func creditAccountKey(id string) []byte { return joinKey("creditmanager", "account", id) }

func creditLedgerKey(id string) []byte { return joinKey("creditmanager", "ledger", id) }

func creditOwnerIndexKey(owner string) []byte { return joinKey("creditmanager", "owner", owner) }

func (m *Manager) CreditAccount(id string) (*creditmanager.Account, bool, error) {
	acct := new(creditmanager.Account)
	ok, err := m.jsonGet(creditAccountKey(id), acct)
	if err != nil || !ok {
		return nil, ok, err
	}
	return acct, true, nil
}

// PutCreditAccount stores the account and moves it between owner indexes
// when the owner changed.
func (m *Manager) PutCreditAccount(acct *creditmanager.Account) error {
	if acct == nil || acct.ID == "" {
		return fmt.Errorf("state: credit account id required")
	}
	prev, ok, err := m.CreditAccount(acct.ID)
	if err != nil {
		return err
	}
	if ok && prev.Owner != acct.Owner {
		if err := m.KVRemove(creditOwnerIndexKey(prev.Owner), []byte(acct.ID)); err != nil {
			return err
		}
	}
	if err := m.jsonPut(creditAccountKey(acct.ID), acct); err != nil {
		return err
	}
	return m.KVAppend(creditOwnerIndexKey(acct.Owner), []byte(acct.ID))
}

func (m *Manager) DeleteCreditAccount(id string) error {
	prev, ok, err := m.CreditAccount(id)
	if err != nil || !ok {
		return err
	}
	if err := m.KVRemove(creditOwnerIndexKey(prev.Owner), []byte(id)); err != nil {
		return err
	}
	return m.KVDelete(creditAccountKey(id))
}

func (m *Manager) CreditAccountsOf(owner string) ([]string, error) {
	return m.stringList(creditOwnerIndexKey(owner))
}

// Ledgers are JSON because vault positions are a tagged union.
func (m *Manager) CreditLedger(id string) (*creditmanager.Ledger, bool, error) {
	ledger := new(creditmanager.Ledger)
	ok, err := m.jsonGet(creditLedgerKey(id), ledger)
	if err != nil || !ok {
		return nil, ok, err
	}
	return ledger, true, nil
}

func (m *Manager) PutCreditLedger(id string, ledger *creditmanager.Ledger) error {
	if ledger == nil {
		return m.DeleteCreditLedger(id)
	}
	return m.jsonPut(creditLedgerKey(id), ledger)
}

func (m *Manager) DeleteCreditLedger(id string) error {
	return m.KVDelete(creditLedgerKey(id))
}

func (m *Manager) CreditAccountSequence() (uint64, error) {
	var seq uint64
	if _, err := m.KVGet(creditAccountSeqKey, &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (m *Manager) SetCreditAccountSequence(seq uint64) error {
	return m.KVPut(creditAccountSeqKey, seq)
}

func (m *Manager) CreditManagerConfig() (*creditmanager.Config, bool, error) {
	cfg := new(creditmanager.Config)
	ok, err := m.KVGet(creditManagerConfigKey, cfg)
	if err != nil || !ok {
		return nil, ok, err
	}
	return cfg, true, nil
}

func (m *Manager) PutCreditManagerConfig(cfg *creditmanager.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: credit manager config required")
	}
	return m.KVPut(creditManagerConfigKey, cfg)
}
