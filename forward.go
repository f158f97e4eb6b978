package main

import (
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// writeHandshake drains the opening frame already staged in txBuf to the
// relay, resuming across partial writes, then moves the connection to
// PhaseEstablished. txBuf is not reused for client data until then.
func (c *Connection) writeHandshake() error {
	c.setPhase(PhaseHandshaking)
	if err := c.drain(c.relay, c.txBuf); err != nil {
		return errors.Wrap(err, "handshake write")
	}
	c.setPhase(PhaseEstablished)
	return nil
}

// drain writes b's pending bytes to dst until empty, advancing the cursor on
// every partial write. The cursor keeps the invariant off+len ≤ cap across
// each attempt, so a short write never loses or repeats bytes.
func (c *Connection) drain(dst net.Conn, b *Buffer) error {
	for !b.Empty() {
		dst.SetWriteDeadline(time.Now().Add(ioTimeout))
		n, err := dst.Write(b.Bytes())
		b.Advance(n)
		if err != nil {
			return err
		}
	}
	return nil
}

// pump moves bytes from src to dst through b until EOF or error. transform
// is applied to exactly the bytes just read, before the first write attempt,
// so the cipher position advances once per byte no matter how many writes
// the drain takes. While b is non-empty the pump is draining and src is not
// read, which is what bounds memory and couples TCP flow control end to end.
func (c *Connection) pump(dst, src net.Conn, b *Buffer, transform func([]byte), srcName string) error {
	for {
		src.SetReadDeadline(time.Now().Add(ioTimeout))
		n, err := src.Read(b.data)
		if n > 0 {
			b.Fill(n)
			transform(b.Bytes())
			if werr := c.drain(dst, b); werr != nil {
				if errors.Is(werr, net.ErrClosed) {
					return nil
				}
				return errors.Wrap(werr, "send")
			}
		}
		if err != nil {
			if err == io.EOF || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrapf(err, "%s reset", srcName)
		}
	}
}

// forward runs the two half-duplex pumps until either direction ends, then
// tears both down together. Half-close is not attempted.
func (c *Connection) forward() {
	var wg sync.WaitGroup
	wg.Add(2)

	// client → relay: encrypt before the first send attempt
	go func() {
		defer wg.Done()
		if err := c.pump(c.relay, c.client, c.txBuf, c.cipher.Encrypt, "client"); err != nil {
			log.Printf("[conn] %v", err)
		}
		c.terminate()
	}()

	// relay → client: decrypt immediately after receipt
	go func() {
		defer wg.Done()
		if err := c.pump(c.client, c.relay, c.rxBuf, c.cipher.Decrypt, "relay"); err != nil {
			log.Printf("[conn] %v", err)
		}
		c.terminate()
	}()

	wg.Wait()
}
