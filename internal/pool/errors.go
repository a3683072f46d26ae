package pool

import "errors"

// ErrEmpty is returned by SendBusywait when the pool has no members.
var ErrEmpty = errors.New("pool: empty")
