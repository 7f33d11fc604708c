package state

import (
	"github.com/mars-protocol/contracts-sub007/native/oracle"
)

func priceSourceKey(kind oracle.ActionKind, denom string) []byte {
	return joinKey("oracle", "source", kind.String(), denom)
}

func priceSourceIndexKey(kind oracle.ActionKind) []byte {
	return joinKey("oracle", "sources", kind.String())
}

func (m *Manager) PriceSource(kind oracle.ActionKind, denom string) (oracle.PriceSource, bool, error) {
	var encoded []byte
	ok, err := m.KVGet(priceSourceKey(kind, denom), &encoded)
	if err != nil || !ok {
		return nil, ok, err
	}
	src, err := oracle.UnmarshalSource(encoded)
	if err != nil {
		return nil, false, err
	}
	return src, true, nil
}

func (m *Manager) PutPriceSource(kind oracle.ActionKind, denom string, src oracle.PriceSource) error {
	encoded, err := oracle.MarshalSource(src)
	if err != nil {
		return err
	}
	if err := m.KVPut(priceSourceKey(kind, denom), encoded); err != nil {
		return err
	}
	return m.KVAppend(priceSourceIndexKey(kind), []byte(denom))
}

func (m *Manager) DeletePriceSource(kind oracle.ActionKind, denom string) error {
	if err := m.KVDelete(priceSourceKey(kind, denom)); err != nil {
		return err
	}
	return m.KVRemove(priceSourceIndexKey(kind), []byte(denom))
}

func (m *Manager) PriceSourceDenoms(kind oracle.ActionKind) ([]string, error) {
	return m.stringList(priceSourceIndexKey(kind))
}
