// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package wire implements the peer-to-peer framing protocol: a
// length-prefixed stream, a Hello handshake that derives a session key
// from an ephemeral X25519 exchange, and Snappy-compressed typed message
// records running under that session's ChaCha20-Poly1305 AEAD.
package wire

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/golang/snappy"
)

// Tag identifies a message's wire type.
type Tag uint8

const (
	TagHello Tag = iota
	TagTxAnnounce
	TagTxRequest
	TagTxPayload
	TagBlockAnnounce
	TagBlockRequest
	TagBlockPayload
	TagSyncRequest
	TagSyncResponse
	TagConsensusProposal
	TagConsensusVote
	TagAggregateVote
	TagViewChange
	TagPing
	TagPong
	TagIHave
	TagIWant
	TagGraft
	TagPrune
)

// MaxFrameSize bounds a single frame, the per-connection message-size cap
// the spec requires. WriteFrame applies it to the tag byte plus the
// payload both before and after compression; ReadFrame applies it to the
// length prefix it reads.
const MaxFrameSize = 16 << 20

var (
	ErrFrameTooLarge = errors.New("wire: frame exceeds MaxFrameSize")
	ErrShortFrame    = errors.New("wire: frame shorter than tag byte")
)

// WriteFrame compresses payload with Snappy and writes it length-prefixed
// (4-byte big-endian length, then tag byte, then compressed bytes) to w.
// The caller is responsible for having already encrypted payload if a
// session key is established; WriteFrame only frames bytes.
func WriteFrame(w io.Writer, tag Tag, payload []byte) error {
	if len(payload)+1 > MaxFrameSize {
		return ErrFrameTooLarge
	}
	compressed := snappy.Encode(nil, payload)
	if len(compressed)+1 > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(compressed)+1))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(tag)}); err != nil {
		return err
	}
	_, err := w.Write(compressed)
	return err
}

// ReadFrame reads one length-prefixed frame from r and returns its tag and
// decompressed payload.
func ReadFrame(r io.Reader) (Tag, []byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 {
		return 0, nil, ErrShortFrame
	}
	if n > MaxFrameSize {
		return 0, nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, nil, err
	}
	tag := Tag(buf[0])
	payload, err := snappy.Decode(nil, buf[1:])
	if err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}
