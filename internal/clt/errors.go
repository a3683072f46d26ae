package clt

import "errors"

// Error taxonomy per spec.md §7, the Clt-facing subset.
var (
	ErrConnectFailed    = errors.New("clt: connect failed")
	ErrLoginTimeout     = errors.New("clt: login timeout")
	ErrConnectTimeout   = errors.New("clt: connect timeout")
	ErrConnectionClosed = errors.New("clt: connection closed")
	ErrWouldBlock       = errors.New("clt: would block")
	ErrInputTimeout     = errors.New("clt: input timeout")
)
