package main

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"time"
)

// Redirector accepts diverted connections, recovers their original
// destination, and forwards each through a randomly chosen relay.
type Redirector struct {
	relays []*RelayServer
	slots  chan struct{}

	// lookupDst recovers the pre-redirect destination from an accepted
	// socket. Defaults to the packet-filter query; replaceable in tests.
	lookupDst func(*net.TCPConn) (*net.TCPAddr, error)

	debug bool
}

// NewRedirector builds the acceptor state: the relay set and the bounded
// connection-slot pool. poolSize caps concurrent connections; accepts beyond
// it are closed immediately.
func NewRedirector(relays []*RelayServer, poolSize int) (*Redirector, error) {
	if len(relays) == 0 {
		return nil, errors.New("no relay servers")
	}
	if poolSize <= 0 {
		return nil, errors.New("pool size must be positive")
	}
	return &Redirector{
		relays:    relays,
		slots:     make(chan struct{}, poolSize),
		lookupDst: originalDst,
	}, nil
}

// ListenAndServe binds the redirect endpoint and accepts until ctx is done.
// Bind and listen failures are returned; per-connection failures are logged
// and never stop the loop.
func (r *Redirector) ListenAndServe(ctx context.Context, address, port string) error {
	lc := net.ListenConfig{Control: setSocketOptions}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(address, port))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Printf("[redir] listening on %s", ln.Addr())
	return r.serve(ln)
}

func (r *Redirector) serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("[redir] accept: %v", err)
			continue
		}
		r.handle(conn.(*net.TCPConn))
	}
}

// handle claims a pool slot and runs the per-connection setup: socket
// tuning, original-destination lookup, relay selection, handshake frame
// construction. The relay dial and everything after it is asynchronous.
func (r *Redirector) handle(client *net.TCPConn) {
	select {
	case r.slots <- struct{}{}:
	default:
		log.Printf("[redir] connection pool exhausted, rejecting %s", client.RemoteAddr())
		client.Close()
		return
	}
	release := func() { <-r.slots }

	// setsockopt failures are non-fatal; the connection proceeds.
	if err := tuneConn(client); err != nil {
		log.Printf("[redir] tune client socket: %v", err)
	}
	client.SetDeadline(time.Now().Add(ioTimeout))

	dst, err := r.lookupDst(client)
	if err != nil {
		log.Printf("[redir] original destination lookup: %v", err)
		client.Close()
		release()
		return
	}
	host := dst.IP.String()
	port := strconv.Itoa(dst.Port)

	relay, err := pickRelay(r.relays)
	if err != nil {
		log.Printf("[redir] relay selection: %v", err)
		client.Close()
		release()
		return
	}
	log.Printf("[redir] connect %s via %s", net.JoinHostPort(host, port), relay.Addr)

	c := newConnection(client, release)
	cipher, err := encodeFrame(c.txBuf.data, host, port, relay.Key)
	if err != nil {
		log.Printf("[redir] encode frame: %v", err)
		c.free()
		return
	}
	c.cipher = cipher
	c.txBuf.Fill(frameSize)

	go r.dialAndForward(c, relay)
}

// dialAndForward dials the relay, drains the handshake, then runs the two
// forwarding pumps. Owns the connection's teardown.
func (r *Redirector) dialAndForward(c *Connection, relay *RelayServer) {
	defer c.free()

	d := net.Dialer{Timeout: ioTimeout, Control: setSocketOptions}
	rc, err := d.Dial("tcp", relay.Addr.String())
	if err != nil {
		log.Printf("[conn] connect to relay failed: %v", err)
		c.terminate()
		return
	}
	c.relay = rc

	if err := c.writeHandshake(); err != nil {
		log.Printf("[conn] %v", err)
		c.terminate()
		return
	}
	if r.debug {
		log.Printf("[conn] %s established via %s", c.client.RemoteAddr(), relay.Addr)
	}

	c.forward()
	c.terminate()
}
