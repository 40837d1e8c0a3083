// Copyright 2025 The Basalt Authors
// This file is part of the Basalt library.
//
// Package transport is the thin TCP layer between gossip.Mesh/Coordinator
// and the outside world: it performs the Hello handshake, derives the
// per-connection session AEADs, and from then on treats every message as
// an opaque, already wire-framed blob to encrypt and length-prefix. It
// satisfies gossip.Sender and feeds decrypted frames into a Coordinator's
// HandleInbound, the split the coordinator package's own doc comment
// anticipates ("the transport layer is responsible for framing,
// decrypting, and constructing" envelopes).
package transport

import (
	"bytes"
	"context"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/basalt-chain/basalt/coordinator"
	"github.com/basalt-chain/basalt/crypto"
	"github.com/basalt-chain/basalt/gossip/peers"
	"github.com/basalt-chain/basalt/internal/xlog"
	"github.com/basalt-chain/basalt/store"
	"github.com/basalt-chain/basalt/types"
	"github.com/basalt-chain/basalt/wire"
)

// maxOuterFrame bounds the encrypted envelope length, mirroring
// wire.MaxFrameSize at the transport's own framing layer.
const maxOuterFrame = wire.MaxFrameSize + 64

var (
	errFrameTooLarge = errors.New("transport: outer frame exceeds maxOuterFrame")
	errPeerUnknown   = errors.New("transport: no open connection to peer")
)

// InboundHandler receives every decrypted, de-framed message a connection
// produces. coordinator.Coordinator satisfies this directly.
type InboundHandler interface {
	HandleInbound(env coordinator.Envelope)
}

// Config bounds one node's transport identity and listen address.
type Config struct {
	ChainID        uint32
	GenesisHash    types.Hash
	SelfPeerID     string
	ListenHostname string
	ListenPort     uint16
	DialTimeout    time.Duration
}

// Transport owns every open peer connection and the listener accepting new
// ones. It is the Sender gossip.Mesh broadcasts and routes votes through.
type Transport struct {
	cfg       Config
	handler   InboundHandler
	peerMgr   *peers.Manager
	blocks    store.BlockStore
	classical crypto.ClassicalSigner
	aggregate crypto.AggregateSigner
	log       *xlog.Logger

	mu    sync.RWMutex
	conns map[string]*peerConn

	listener net.Listener
	wg       sync.WaitGroup
	closing  chan struct{}
}

type peerConn struct {
	conn    net.Conn
	session *wire.SessionKeys
	sendSeq uint64
	recvSeq uint64
	writeMu sync.Mutex
}

// New builds a Transport. Listen/Connect are called once the rest of the
// node (Coordinator, peer manager) is already constructed.
func New(cfg Config, handler InboundHandler, peerMgr *peers.Manager, blocks store.BlockStore, classical crypto.ClassicalSigner, aggregate crypto.AggregateSigner, log *xlog.Logger) *Transport {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Transport{
		cfg:       cfg,
		handler:   handler,
		peerMgr:   peerMgr,
		blocks:    blocks,
		classical: classical,
		aggregate: aggregate,
		log:       log.Module("transport"),
		conns:     make(map[string]*peerConn),
		closing:   make(chan struct{}),
	}
}

// Listen starts accepting inbound connections on cfg.ListenHostname:ListenPort.
func (t *Transport) Listen() error {
	addr := net.JoinHostPort(t.cfg.ListenHostname, portString(t.cfg.ListenPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	t.listener = ln
	t.wg.Add(1)
	go t.acceptLoop()
	t.log.Info("transport listening", "addr", addr)
	return nil
}

// Addr returns the listener's bound address. Only meaningful after Listen
// has returned successfully; mainly useful when ListenPort is 0 and the
// OS assigned an ephemeral port.
func (t *Transport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *Transport) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.closing:
				return
			default:
				t.log.Warn("accept failed", "error", err)
				return
			}
		}
		go t.handleInboundConn(conn)
	}
}

func (t *Transport) handleInboundConn(conn net.Conn) {
	pc, peerID, best, err := t.handshake(conn, false)
	if err != nil {
		t.log.Debug("inbound handshake failed", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	t.registerConn(peerID, pc, conn.RemoteAddr().String(), best)
	t.wg.Add(1)
	go t.readLoop(peerID, pc)
}

// Connect dials addr, performs the Hello handshake as initiator, and
// starts reading frames from the resulting connection.
func (t *Transport) Connect(ctx context.Context, addr string) error {
	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return err
	}
	pc, peerID, best, err := t.handshake(conn, true)
	if err != nil {
		conn.Close()
		return err
	}
	t.registerConn(peerID, pc, addr, best)
	t.wg.Add(1)
	go t.readLoop(peerID, pc)
	return nil
}

func (t *Transport) registerConn(peerID string, pc *peerConn, endpoint string, best *wire.Hello) {
	t.mu.Lock()
	t.conns[peerID] = pc
	t.mu.Unlock()
	t.peerMgr.Upsert(peerID, endpoint, best.BestBlockNumber, types.Hash(best.BestBlockHash), time.Now())
	t.log.Info("peer connected", "peer", peerID, "endpoint", endpoint)
}

// handshake performs the Hello exchange and session-key derivation. It
// returns the peer's own Hello so the caller can seed the peer table with
// its advertised chain head.
func (t *Transport) handshake(conn net.Conn, initiator bool) (*peerConn, string, *wire.Hello, error) {
	ephPriv, ephPub, err := wire.GenerateEphemeralKex()
	if err != nil {
		return nil, "", nil, err
	}
	bestNumber, bestHash := t.chainHead()

	hello := &wire.Hello{
		ChainID:         t.cfg.ChainID,
		PeerID:          t.cfg.SelfPeerID,
		ClassicalPub:    t.classical.PublicKey(),
		AggregatePub:    t.aggregate.PublicKey(),
		ListenPort:      t.cfg.ListenPort,
		ListenHostname:  t.cfg.ListenHostname,
		BestBlockNumber: bestNumber,
		BestBlockHash:   bestHash,
		GenesisHash:     t.cfg.GenesisHash,
		EphemeralKexPub: ephPub,
	}

	var peerHello *wire.Hello
	if initiator {
		if err := wire.WriteFrame(conn, wire.TagHello, hello.Encode()); err != nil {
			return nil, "", nil, err
		}
		peerHello, err = readHello(conn)
		if err != nil {
			return nil, "", nil, err
		}
	} else {
		peerHello, err = readHello(conn)
		if err != nil {
			return nil, "", nil, err
		}
		if err := wire.WriteFrame(conn, wire.TagHello, hello.Encode()); err != nil {
			return nil, "", nil, err
		}
	}

	if peerHello.ChainID != t.cfg.ChainID || peerHello.GenesisHash != [32]byte(t.cfg.GenesisHash) {
		return nil, "", nil, wire.ErrHandshakeMismatch
	}

	session, err := wire.DeriveSession(ephPriv, peerHello.EphemeralKexPub, t.cfg.SelfPeerID, peerHello.PeerID, initiator)
	if err != nil {
		return nil, "", nil, err
	}
	return &peerConn{conn: conn, session: session}, peerHello.PeerID, peerHello, nil
}

func readHello(r io.Reader) (*wire.Hello, error) {
	tag, payload, err := wire.ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if tag != wire.TagHello {
		return nil, errors.New("transport: expected Hello as first frame")
	}
	return wire.DecodeHello(payload)
}

func (t *Transport) chainHead() (uint64, [32]byte) {
	n, err := t.blocks.GetLatestBlockNumber()
	if err != nil {
		return 0, [32]byte{}
	}
	raw, err := t.blocks.GetRawBlockByNumber(n)
	if err != nil {
		return n, [32]byte{}
	}
	header, err := types.DecodeHeader(raw)
	if err != nil {
		return n, [32]byte{}
	}
	return n, [32]byte(header.Hash())
}

func (t *Transport) readLoop(peerID string, pc *peerConn) {
	defer t.wg.Done()
	defer t.dropConn(peerID)
	for {
		ciphertext, err := readOuterFrame(pc.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.log.Debug("peer read failed", "peer", peerID, "error", err)
			}
			return
		}
		plaintext, err := openFrame(pc.session.Recv, &pc.recvSeq, ciphertext)
		if err != nil {
			t.log.Warn("peer sent undecryptable frame, dropping connection", "peer", peerID, "error", err)
			return
		}
		tag, payload, err := wire.ReadFrame(bytes.NewReader(plaintext))
		if err != nil {
			t.log.Warn("peer sent malformed inner frame", "peer", peerID, "error", err)
			continue
		}
		t.handler.HandleInbound(coordinator.Envelope{PeerID: peerID, Tag: tag, Payload: payload})
	}
}

func (t *Transport) dropConn(peerID string) {
	t.mu.Lock()
	pc, ok := t.conns[peerID]
	delete(t.conns, peerID)
	t.mu.Unlock()
	if ok {
		pc.conn.Close()
	}
	t.log.Info("peer disconnected", "peer", peerID)
}

// SendToPeer encrypts msg (an already wire-framed blob, typically produced
// by the coordinator's own frame helper) and writes it to peerID's open
// connection. Satisfies gossip.Sender structurally.
func (t *Transport) SendToPeer(peerID string, msg []byte) error {
	t.mu.RLock()
	pc, ok := t.conns[peerID]
	t.mu.RUnlock()
	if !ok {
		return errPeerUnknown
	}

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	ciphertext, err := sealFrame(pc.session.Send, &pc.sendSeq, msg)
	if err != nil {
		return err
	}
	return writeOuterFrame(pc.conn, ciphertext)
}

// Close shuts the listener and every open connection down.
func (t *Transport) Close() {
	close(t.closing)
	if t.listener != nil {
		t.listener.Close()
	}
	t.mu.Lock()
	for id, pc := range t.conns {
		pc.conn.Close()
		delete(t.conns, id)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func sealFrame(aead cipher.AEAD, seq *uint64, plaintext []byte) ([]byte, error) {
	nonce := nonceFromSeq(*seq, aead.NonceSize())
	*seq++
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func openFrame(aead cipher.AEAD, seq *uint64, ciphertext []byte) ([]byte, error) {
	nonce := nonceFromSeq(*seq, aead.NonceSize())
	*seq++
	return aead.Open(nil, nonce, ciphertext, nil)
}

func nonceFromSeq(seq uint64, size int) []byte {
	nonce := make([]byte, size)
	binary.BigEndian.PutUint64(nonce[size-8:], seq)
	return nonce
}

func readOuterFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > maxOuterFrame {
		return nil, errFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeOuterFrame(w io.Writer, ciphertext []byte) error {
	if len(ciphertext) > maxOuterFrame {
		return errFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ciphertext)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(ciphertext)
	return err
}

func portString(p uint16) string {
	return strconv.Itoa(int(p))
}
