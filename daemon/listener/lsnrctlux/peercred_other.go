//go:build !linux

package lsnrctlux

import (
	"errors"
	"net"
)

func peerCred(_ *net.UnixConn) (uid, pid int, err error) {
	return -1, -1, errors.New("peer credentials not supported")
}
