//go:build !linux
// +build !linux

package main

import (
	"net"
	"syscall"
)

// setSocketOptions is a no-op on non-Linux platforms. The Linux version in
// sockopt_linux.go sets TCP_NODELAY, SO_REUSEADDR, and keepalive options.
func setSocketOptions(network, address string, c syscall.RawConn) error {
	return nil
}

// tuneConn is a no-op on non-Linux platforms.
func tuneConn(tc *net.TCPConn) error {
	return nil
}
