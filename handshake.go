package main

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Opening frame sent to the relay before any payload:
//
//	+-------+------+------+-------+
//	| MAGIC | HOST | PORT | NONCE |
//	+-------+------+------+-------+
//	|   4   | 257  |  15  |  236  |
//	+-------+------+------+-------+
//
// MAGIC, HOST and PORT travel encrypted; the NONCE travels in the clear so
// the relay can derive the same key schedule before decrypting the rest.
const (
	frameSize  = 512
	frameMagic = 0x526f6e61 // "Rona"

	hostOff  = 4
	hostLen  = 257
	portOff  = 261
	portLen  = 15
	nonceOff = 276
	nonceLen = 236
)

// encodeFrame writes the opening frame for host:port into buf (which must
// hold at least frameSize bytes), seeds the connection cipher from the nonce
// and relayKey, and encrypts the leading 276 bytes in place. The returned
// cipher has already consumed 276 keystream bytes and is the one to use for
// all subsequent traffic on the connection.
func encodeFrame(buf []byte, host, port string, relayKey []byte) (*CipherContext, error) {
	if len(buf) < frameSize {
		return nil, errors.Errorf("frame buffer too small: %d", len(buf))
	}
	frame := buf[:frameSize]
	for i := range frame[:nonceOff] {
		frame[i] = 0
	}
	if _, err := rand.Read(frame[nonceOff:frameSize]); err != nil {
		return nil, errors.Wrap(err, "nonce")
	}

	key := deriveKey(frame[nonceOff:frameSize], relayKey)
	cipher, err := NewCipherContext(key[:])
	if err != nil {
		return nil, err
	}

	binary.BigEndian.PutUint32(frame[0:4], frameMagic)
	// Both fields keep their terminating NUL: at most hostLen-1 and
	// portLen-1 bytes of string, the zeroed frame supplies the rest.
	copy(frame[hostOff:hostOff+hostLen-1], host)
	copy(frame[portOff:portOff+portLen-1], port)

	cipher.Encrypt(frame[:nonceOff])
	return cipher, nil
}
