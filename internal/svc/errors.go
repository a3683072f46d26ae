package svc

import "errors"

// Error taxonomy per spec.md §7, the Svc-facing subset.
var (
	ErrListen   = errors.New("svc: listen failed")
	ErrAccept   = errors.New("svc: accept failed")
	ErrPoolFull = errors.New("svc: pool full")
	ErrClosed   = errors.New("svc: closed")
)
