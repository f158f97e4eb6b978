package main

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeFrame is the relay's side of the handshake: derive the key from the
// plaintext nonce, decrypt the header, validate the magic. Returns the
// host, the port, and the mirror cipher for the rest of the stream.
func decodeFrame(t *testing.T, frame, relayKey []byte) (string, string, *CipherContext) {
	t.Helper()
	require.Len(t, frame, frameSize)

	key := deriveKey(frame[nonceOff:], relayKey)
	mirror, err := NewCipherContext(key[:])
	require.NoError(t, err)

	header := append([]byte{}, frame[:nonceOff]...)
	mirror.Decrypt(header)

	require.Equal(t, uint32(frameMagic), binary.BigEndian.Uint32(header[0:4]))
	host := cString(header[hostOff : hostOff+hostLen])
	port := cString(header[portOff : portOff+portLen])
	return host, port, mirror
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func TestEncodeFrameLayout(t *testing.T) {
	buf := make([]byte, bufSize)
	cipher, err := encodeFrame(buf, "1.2.3.4", "80", []byte("secret"))
	require.NoError(t, err)
	require.NotNil(t, cipher)

	frame := buf[:frameSize]
	host, port, _ := decodeFrame(t, frame, []byte("secret"))
	assert.Equal(t, "1.2.3.4", host)
	assert.Equal(t, "80", port)

	// The magic must not survive in the clear.
	assert.NotEqual(t, uint32(frameMagic), binary.BigEndian.Uint32(frame[0:4]))
}

func TestEncodeFrameIPv6Host(t *testing.T) {
	buf := make([]byte, bufSize)
	_, err := encodeFrame(buf, "2001:db8::1", "443", []byte("k"))
	require.NoError(t, err)

	host, port, _ := decodeFrame(t, buf[:frameSize], []byte("k"))
	assert.Equal(t, "2001:db8::1", host)
	assert.Equal(t, "443", port)
}

func TestEncodeFrameLongHostTruncated(t *testing.T) {
	long := strings.Repeat("a", 300)
	buf := make([]byte, bufSize)
	_, err := encodeFrame(buf, long, "65535", []byte("k"))
	require.NoError(t, err)

	host, port, _ := decodeFrame(t, buf[:frameSize], []byte("k"))
	assert.Equal(t, long[:hostLen-1], host)
	assert.Equal(t, "65535", port)
}

func TestEncodeFrameFreshNonce(t *testing.T) {
	a := make([]byte, bufSize)
	b := make([]byte, bufSize)
	_, err := encodeFrame(a, "h", "1", []byte("k"))
	require.NoError(t, err)
	_, err = encodeFrame(b, "h", "1", []byte("k"))
	require.NoError(t, err)
	assert.NotEqual(t, a[nonceOff:frameSize], b[nonceOff:frameSize])
}

func TestEncodeFrameShortBuffer(t *testing.T) {
	_, err := encodeFrame(make([]byte, frameSize-1), "h", "1", []byte("k"))
	assert.Error(t, err)
}

// The cipher returned by encodeFrame has consumed exactly the header's 276
// keystream bytes; payload after the frame must line up with a mirror that
// decrypted the header first.
func TestEncodeFrameCipherContinuity(t *testing.T) {
	buf := make([]byte, bufSize)
	cipher, err := encodeFrame(buf, "1.2.3.4", "80", []byte("secret"))
	require.NoError(t, err)

	_, _, mirror := decodeFrame(t, buf[:frameSize], []byte("secret"))

	payload := []byte("GET / HTTP/1.0\r\n\r\n")
	wire := append([]byte{}, payload...)
	cipher.Encrypt(wire)
	mirror.Decrypt(wire)
	assert.Equal(t, payload, wire)
}
