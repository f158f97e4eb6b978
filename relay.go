package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
)

// RelayServer is one resolved upstream relay. The set is resolved once at
// startup and read-only afterwards.
type RelayServer struct {
	Addr *net.TCPAddr
	Key  []byte
}

// ResolveRelays resolves every configured server entry. A failure here is
// fatal to the process.
func ResolveRelays(entries []ServerEntry) ([]*RelayServer, error) {
	relays := make([]*RelayServer, 0, len(entries))
	for i, s := range entries {
		addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(s.Address, s.Port))
		if err != nil {
			return nil, fmt.Errorf("server[%d] %s:%s: %w", i, s.Address, s.Port, err)
		}
		key := make([]byte, len(s.Key))
		copy(key, s.Key)
		relays = append(relays, &RelayServer{Addr: addr, Key: key})
	}
	return relays, nil
}

// pickRelay selects one relay uniformly at random: one machine word from the
// OS random source, modulo the relay count.
func pickRelay(relays []*RelayServer) (*RelayServer, error) {
	var word [8]byte
	if _, err := rand.Read(word[:]); err != nil {
		return nil, err
	}
	index := binary.LittleEndian.Uint64(word[:]) % uint64(len(relays))
	return relays[index], nil
}
