package core

import (
	"errors"
)

// QueryResult encapsulates the JSON payload returned by state queries.
type QueryResult struct {
	Value []byte `json:"value"`
}

// ErrQueryNotSupported indicates the requested namespace/path is not handled by the state router.
var ErrQueryNotSupported = errors.New("query: not supported")
