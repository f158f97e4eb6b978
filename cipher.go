package main

import (
	"crypto/md5"
	"crypto/rc4"
	"sync"
)

// keySize is the length of the derived cipher seed.
const keySize = 64

// deriveKey computes the 64-byte cipher seed from the plaintext nonce and the
// relay's shared key: the first 16-byte block is MD5(nonce || key), and each
// following block is the MD5 of all preceding blocks. The relay runs the same
// derivation from the nonce it sees at the tail of the opening frame.
func deriveKey(nonce, relayKey []byte) [keySize]byte {
	var key [keySize]byte

	buf := make([]byte, 0, len(nonce)+len(relayKey))
	buf = append(buf, nonce...)
	buf = append(buf, relayKey...)

	sum := md5.Sum(buf)
	copy(key[0:16], sum[:])
	sum = md5.Sum(key[0:16])
	copy(key[16:32], sum[:])
	sum = md5.Sum(key[0:32])
	copy(key[32:48], sum[:])
	sum = md5.Sum(key[0:48])
	copy(key[48:64], sum[:])

	return key
}

// CipherContext is a single RC4 stream shared by both directions of one
// connection. The relay advances a mirror of the same stream in the same
// order, so the state must never be split into per-direction copies.
type CipherContext struct {
	mu     sync.Mutex
	stream *rc4.Cipher
}

// NewCipherContext seeds a stream from a 64-byte derived key.
func NewCipherContext(key []byte) (*CipherContext, error) {
	stream, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &CipherContext{stream: stream}, nil
}

// Encrypt transforms buf in place and advances the stream position by
// len(buf). Must be called exactly once per outbound byte.
func (c *CipherContext) Encrypt(buf []byte) { c.xor(buf) }

// Decrypt is the same keystream XOR as Encrypt; the name reflects direction,
// not a different transform.
func (c *CipherContext) Decrypt(buf []byte) { c.xor(buf) }

// The two pump goroutines of a connection interleave on the shared stream,
// hence the mutex.
func (c *CipherContext) xor(buf []byte) {
	c.mu.Lock()
	c.stream.XORKeyStream(buf, buf)
	c.mu.Unlock()
}
