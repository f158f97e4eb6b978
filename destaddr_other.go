//go:build !linux
// +build !linux

package main

import (
	"net"

	"github.com/pkg/errors"
)

// originalDst requires the Linux packet-filter redirect facility.
func originalDst(tc *net.TCPConn) (*net.TCPAddr, error) {
	return nil, errors.New("transparent redirect is only supported on linux")
}
