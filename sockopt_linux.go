//go:build linux
// +build linux

package main

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// setSocketOptions configures TCP options on the raw socket fd. Used as the
// Control hook of both the listener and the relay dialer, and via tuneConn
// for accepted sockets.
func setSocketOptions(network, address string, c syscall.RawConn) error {
	var sysErr error
	err := c.Control(func(fd uintptr) {
		// Allow address reuse for rapid restart
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
			sysErr = e
			return
		}

		// Disable Nagle's algorithm for lower latency
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
			sysErr = e
			return
		}

		// Enable TCP keepalive
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); e != nil {
			sysErr = e
			return
		}

		// Keepalive idle time: 30 seconds
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 30); e != nil {
			sysErr = e
			return
		}

		// Keepalive interval: 10 seconds
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 10); e != nil {
			sysErr = e
			return
		}

		// Keepalive probes: 3
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 3); e != nil {
			sysErr = e
			return
		}

		// 10 s send/receive timeouts. The runtime's netpoller makes
		// these inert for Go reads and writes; the rolling deadlines
		// in forward.go carry the same bound there.
		timeout := unix.Timeval{Sec: 10}
		if e := unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_SNDTIMEO, &timeout); e != nil {
			sysErr = e
			return
		}
		if e := unix.SetsockoptTimeval(int(fd), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &timeout); e != nil {
			sysErr = e
			return
		}
	})
	if err != nil {
		return err
	}
	return sysErr
}

// tuneConn applies the same options to an already-accepted socket.
func tuneConn(tc *net.TCPConn) error {
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	return setSocketOptions("tcp", tc.RemoteAddr().String(), raw)
}
