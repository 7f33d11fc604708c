package events

import (
	"strconv"
	"strings"

	"github.com/mars-protocol/contracts-sub007/core/types"
)

const (
	TypeCreditAccountCreated = "creditmanager.account_created"
	TypeCreditAccountUpdated = "creditmanager.account_updated"
	TypeCreditAccountBurned  = "creditmanager.account_burned"
	TypeCreditAccountAction  = "creditmanager.action"
)

type CreditAccountCreated struct {
	AccountID string
	Owner     string
	Kind      string
}

func (CreditAccountCreated) EventType() string { return TypeCreditAccountCreated }

func (e CreditAccountCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditAccountCreated,
		Attributes: map[string]string{
			"account_id": e.AccountID,
			"owner":      e.Owner,
			"kind":       e.Kind,
		},
	}
}

// CreditAccountUpdated summarises a committed action batch.
type CreditAccountUpdated struct {
	AccountID string
	Actions   []string
}

func (CreditAccountUpdated) EventType() string { return TypeCreditAccountUpdated }

func (e CreditAccountUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditAccountUpdated,
		Attributes: map[string]string{
			"account_id": e.AccountID,
			"actions":    strings.Join(e.Actions, ","),
			"count":      strconv.Itoa(len(e.Actions)),
		},
	}
}

// CreditAccountAction is emitted for individual actions with coin movement.
type CreditAccountAction struct {
	AccountID string
	Action    string
	Coins     types.Coins
}

func (CreditAccountAction) EventType() string { return TypeCreditAccountAction }

func (e CreditAccountAction) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditAccountAction,
		Attributes: map[string]string{
			"account_id": e.AccountID,
			"action":     e.Action,
			"coins":      e.Coins.String(),
		},
	}
}

type CreditAccountBurned struct {
	AccountID string
	Owner     string
}

func (CreditAccountBurned) EventType() string { return TypeCreditAccountBurned }

func (e CreditAccountBurned) Event() *types.Event {
	return &types.Event{
		Type: TypeCreditAccountBurned,
		Attributes: map[string]string{
			"account_id": e.AccountID,
			"owner":      e.Owner,
		},
	}
}
