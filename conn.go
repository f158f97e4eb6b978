package main

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ioTimeout bounds every socket read and write. It is the only liveness
// mechanism; there is no idle-connection reaper.
const ioTimeout = 10 * time.Second

// Phase tracks a connection's position in its lifecycle.
type Phase int32

const (
	// PhaseDialing: the relay dial is in flight.
	PhaseDialing Phase = iota
	// PhaseHandshaking: the opening frame is being drained to the relay.
	PhaseHandshaking
	// PhaseEstablished: handshake fully sent, both directions forwarding.
	PhaseEstablished
	// PhaseTerminated: sockets closed, resources released.
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseDialing:
		return "dialing"
	case PhaseHandshaking:
		return "handshaking"
	case PhaseEstablished:
		return "established"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// Connection owns one accepted client socket and its relay socket, the two
// direction buffers, and the single cipher stream both directions share.
// One is allocated per accepted client and freed exactly once.
type Connection struct {
	client net.Conn
	relay  net.Conn

	txBuf *Buffer // client → relay
	rxBuf *Buffer // relay → client

	cipher *CipherContext

	phase atomic.Int32

	closeOnce sync.Once
	release   func()
}

// newConnection allocates the per-connection state for an accepted client.
// release, if non-nil, returns the connection's pool slot and is invoked
// exactly once from free.
func newConnection(client net.Conn, release func()) *Connection {
	c := &Connection{
		client:  client,
		txBuf:   newBuffer(),
		rxBuf:   newBuffer(),
		release: release,
	}
	c.phase.Store(int32(PhaseDialing))
	return c
}

// Phase returns the current lifecycle phase.
func (c *Connection) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Connection) setPhase(p Phase) {
	c.phase.Store(int32(p))
}

// terminate closes both sockets, unblocking any pump still parked in a Read
// or Write. Both pumps may race into it; only the first call acts.
func (c *Connection) terminate() {
	c.closeOnce.Do(func() {
		c.setPhase(PhaseTerminated)
		c.client.Close()
		if c.relay != nil {
			c.relay.Close()
		}
	})
}

// free tears the connection down and returns its buffers and pool slot.
// Called exactly once, after every goroutine touching the buffers has
// returned.
func (c *Connection) free() {
	c.terminate()
	c.txBuf.Release()
	c.rxBuf.Release()
	if c.release != nil {
		c.release()
	}
}
