// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.

package wire

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Hello is the handshake message both sides exchange before any
// consensus traffic flows. Mismatched ChainID or GenesisHash aborts the
// handshake.
type Hello struct {
	ChainID         uint32
	PeerID          string
	ClassicalPub    []byte
	AggregatePub    []byte
	ListenPort      uint16
	ListenHostname  string
	BestBlockNumber uint64
	BestBlockHash   [32]byte
	GenesisHash     [32]byte
	EphemeralKexPub [32]byte
}

// ErrHandshakeMismatch is returned when the peer's chain id or genesis
// hash does not match ours.
var ErrHandshakeMismatch = errors.New("wire: chain id or genesis hash mismatch")

// Encode serialises a Hello for framing. Field order is fixed.
func (h *Hello) Encode() []byte {
	buf := make([]byte, 0, 128+len(h.PeerID)+len(h.ClassicalPub)+len(h.AggregatePub)+len(h.ListenHostname))
	buf = appendU32(buf, h.ChainID)
	buf = appendString(buf, h.PeerID)
	buf = appendBytes(buf, h.ClassicalPub)
	buf = appendBytes(buf, h.AggregatePub)
	buf = appendU16(buf, h.ListenPort)
	buf = appendString(buf, h.ListenHostname)
	buf = appendU64(buf, h.BestBlockNumber)
	buf = append(buf, h.BestBlockHash[:]...)
	buf = append(buf, h.GenesisHash[:]...)
	buf = append(buf, h.EphemeralKexPub[:]...)
	return buf
}

// DecodeHello parses bytes produced by Encode.
func DecodeHello(b []byte) (*Hello, error) {
	h := &Hello{}
	var ok bool
	h.ChainID, b, ok = readU32(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (chain id)")
	}
	h.PeerID, b, ok = readString(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (peer id)")
	}
	h.ClassicalPub, b, ok = readBytes(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (classical pub)")
	}
	h.AggregatePub, b, ok = readBytes(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (aggregate pub)")
	}
	h.ListenPort, b, ok = readU16(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (listen port)")
	}
	h.ListenHostname, b, ok = readString(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (listen hostname)")
	}
	h.BestBlockNumber, b, ok = readU64(b)
	if !ok {
		return nil, errors.New("wire: truncated hello (best block number)")
	}
	if len(b) < 32+32+32 {
		return nil, errors.New("wire: truncated hello (fixed trailer)")
	}
	copy(h.BestBlockHash[:], b[:32])
	b = b[32:]
	copy(h.GenesisHash[:], b[:32])
	b = b[32:]
	copy(h.EphemeralKexPub[:], b[:32])
	return h, nil
}

// GenerateEphemeralKex creates a fresh X25519 key pair for one handshake.
func GenerateEphemeralKex() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, err
	}
	// Clamp per RFC 7748.
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, err
	}
	copy(pub[:], pubSlice)
	return priv, pub, nil
}

// SessionKeys are the two directional ChaCha20-Poly1305 AEADs a completed
// handshake installs, one per direction so nonce sequences never collide
// between sides.
type SessionKeys struct {
	Send, Recv cipher.AEAD
}

// DeriveSession computes the shared X25519 secret, stretches it with HKDF
// (domain-separated by the two peer ids so each direction gets a distinct
// sub-key), and returns ready-to-use send/recv AEADs. initiator controls
// which derived key is "send" versus "recv" so both sides agree.
func DeriveSession(ourPriv [32]byte, theirPub [32]byte, ourPeerID, theirPeerID string, initiator bool) (*SessionKeys, error) {
	shared, err := curve25519.X25519(ourPriv[:], theirPub[:])
	if err != nil {
		return nil, err
	}

	aLabel, bLabel := ourPeerID, theirPeerID
	if !initiator {
		aLabel, bLabel = theirPeerID, ourPeerID
	}

	sendKey, err := hkdfExpand(shared, []byte("basalt-session:"+aLabel+"->"+bLabel))
	if err != nil {
		return nil, err
	}
	recvKey, err := hkdfExpand(shared, []byte("basalt-session:"+bLabel+"->"+aLabel))
	if err != nil {
		return nil, err
	}
	if !initiator {
		sendKey, recvKey = recvKey, sendKey
	}

	sendAEAD, err := chacha20poly1305.New(sendKey)
	if err != nil {
		return nil, err
	}
	recvAEAD, err := chacha20poly1305.New(recvKey)
	if err != nil {
		return nil, err
	}
	return &SessionKeys{Send: sendAEAD, Recv: recvAEAD}, nil
}

func hkdfExpand(secret, info []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, info)
	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func appendU16(buf []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(buf, b[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendBytes(buf, v []byte) []byte {
	buf = appendU32(buf, uint32(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, s string) []byte {
	return appendBytes(buf, []byte(s))
}

func readU16(b []byte) (uint16, []byte, bool) {
	if len(b) < 2 {
		return 0, b, false
	}
	return binary.BigEndian.Uint16(b), b[2:], true
}

func readU32(b []byte) (uint32, []byte, bool) {
	if len(b) < 4 {
		return 0, b, false
	}
	return binary.BigEndian.Uint32(b), b[4:], true
}

func readU64(b []byte) (uint64, []byte, bool) {
	if len(b) < 8 {
		return 0, b, false
	}
	return binary.BigEndian.Uint64(b), b[8:], true
}

func readBytes(b []byte) ([]byte, []byte, bool) {
	n, rest, ok := readU32(b)
	if !ok || uint32(len(rest)) < n {
		return nil, b, false
	}
	return rest[:n], rest[n:], true
}

func readString(b []byte) (string, []byte, bool) {
	v, rest, ok := readBytes(b)
	if !ok {
		return "", b, false
	}
	return string(v), rest, true
}
