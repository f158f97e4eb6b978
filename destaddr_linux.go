//go:build linux
// +build linux

package main

import (
	"net"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Option numbers from linux/netfilter_ipv4.h and
// linux/netfilter_ipv6/ip6_tables.h; both families use 80.
const (
	soOriginalDst     = 80
	ip6tSoOriginalDst = 80
)

// originalDst recovers the destination the client addressed before the
// packet filter diverted the connection to the listener. The IPv6 option is
// queried first, then the IPv4 one, so REDIRECT works on either family.
func originalDst(tc *net.TCPConn) (*net.TCPAddr, error) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		addr      *net.TCPAddr
		lookupErr error
	)
	if cerr := raw.Control(func(fd uintptr) {
		addr, lookupErr = destFromFd(fd)
	}); cerr != nil {
		return nil, cerr
	}
	return addr, lookupErr
}

func destFromFd(fd uintptr) (*net.TCPAddr, error) {
	var sa6 unix.RawSockaddrInet6
	len6 := uint32(unsafe.Sizeof(sa6))
	if err := rawGetsockopt(fd, unix.SOL_IPV6, ip6tSoOriginalDst, unsafe.Pointer(&sa6), &len6); err == nil {
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa6.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sockaddrPort(sa6.Port)}, nil
	}

	var sa4 unix.RawSockaddrInet4
	len4 := uint32(unsafe.Sizeof(sa4))
	if err := rawGetsockopt(fd, unix.SOL_IP, soOriginalDst, unsafe.Pointer(&sa4), &len4); err == nil {
		return &net.TCPAddr{
			IP:   net.IPv4(sa4.Addr[0], sa4.Addr[1], sa4.Addr[2], sa4.Addr[3]),
			Port: sockaddrPort(sa4.Port),
		}, nil
	}

	return nil, errors.New("socket has no redirect destination")
}

// rawGetsockopt exists because x/sys/unix has no getsockopt variant that
// returns a full sockaddr.
func rawGetsockopt(fd uintptr, level, name int, v unsafe.Pointer, l *uint32) error {
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, fd,
		uintptr(level), uintptr(name), uintptr(v), uintptr(unsafe.Pointer(l)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// sockaddrPort reads the big-endian port field of a raw sockaddr.
func sockaddrPort(p uint16) int {
	b := (*[2]byte)(unsafe.Pointer(&p))
	return int(b[0])<<8 | int(b[1])
}
