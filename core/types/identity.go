package types

import "strings"

// Identity addresses a pool position. AccountID is empty for direct users and
// carries the credit account id when the credit manager acts for an account.
type Identity struct {
	Address   string `json:"address"`
	AccountID string `json:"account_id,omitempty"`
}

func NewIdentity(address string) Identity { return Identity{Address: address} }

func NewAccountIdentity(address, accountID string) Identity {
	return Identity{Address: address, AccountID: accountID}
}

// Key returns the compound storage key of the identity.
func (id Identity) Key() string {
	if id.AccountID == "" {
		return id.Address
	}
	return id.Address + "/" + id.AccountID
}

func (id Identity) String() string { return id.Key() }

// ParseIdentityKey reverses Key.
func ParseIdentityKey(key string) Identity {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return Identity{Address: key[:idx], AccountID: key[idx+1:]}
	}
	return Identity{Address: key}
}

// Env is the per-turn environment supplied by the dispatch layer.
type Env struct {
	BlockHeight uint64 `json:"block_height"`
	BlockTime   uint64 `json:"block_time"`
	Sender      string `json:"sender"`
	Funds       Coins  `json:"funds,omitempty"`
}
