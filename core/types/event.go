package types

import "math/big"

// Event is the rendered form of a protocol event returned with every turn.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute stored under key, empty when absent.
func (e Event) Attr(key string) string {
	return e.Attributes[key]
}

// AmountAttr parses the attribute under key as a base 10 integer.
func (e Event) AmountAttr(key string) (*big.Int, bool) {
	raw, ok := e.Attributes[key]
	if !ok || raw == "" {
		return nil, false
	}
	return new(big.Int).SetString(raw, 10)
}
