// Package conn holds ConId, the immutable identity of one connection.
package conn

import (
	"fmt"
	"net"
)

// Role distinguishes which side of a connection an endpoint is.
type Role int

const (
	RoleClt Role = iota
	RoleSvc
)

func (r Role) String() string {
	if r == RoleSvc {
		return "svc"
	}
	return "clt"
}

// ID identifies one connection. It is minted fresh on every connect/accept;
// it is not required to be stable across reconnects (spec.md §4.E).
type ID struct {
	Role  Role
	Name  string
	Local net.Addr
	Peer  net.Addr
}

func (c ID) String() string {
	local := "?"
	if c.Local != nil {
		local = c.Local.String()
	}
	peer := "?"
	if c.Peer != nil {
		peer = c.Peer.String()
	}
	return fmt.Sprintf("%s:%s@%s→%s", c.Role, c.Name, local, peer)
}
