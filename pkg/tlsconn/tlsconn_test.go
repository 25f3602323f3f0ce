package tlsconn

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opsnet/asyncio/pkg/async"
	"github.com/opsnet/asyncio/pkg/stream"
)

// writeTestKeyPair generates a self-signed ECDSA certificate for
// "localhost" and writes cert+key PEM blocks to a single file, matching
// the one-file keystore CreateContext expects.
func writeTestKeyPair(t *testing.T) string {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}

	var buf bytes.Buffer
	pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	pem.Encode(&buf, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	path := filepath.Join(t.TempDir(), "test.pem")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("writing key pair: %v", err)
	}
	return path
}

// pipedConn wires two BytePipes into the duplex ByteSource/ByteSink pair
// Conn expects on each side of a loopback TLS session.
type pipedConn struct {
	src stream.ByteSource
	snk stream.ByteSink
}

func newLoopback() (client pipedConn, server pipedConn) {
	clientToServer := stream.NewBytePipe()
	serverToClient := stream.NewBytePipe()
	client = pipedConn{src: serverToClient.Source(), snk: clientToServer.Sink()}
	server = pipedConn{src: clientToServer.Source(), snk: serverToClient.Sink()}
	return
}

func handshakeLoopback(t *testing.T) (clientConn *Conn, serverConn *Conn) {
	t.Helper()
	keyPath := writeTestKeyPair(t)

	serverCfg, err := CreateContext(Config{KeyStore: KeyStoreConfig{Path: keyPath}, Protocol: ProtocolSecure})
	if err != nil {
		t.Fatalf("server CreateContext: %v", err)
	}
	clientCfg, err := CreateContext(Config{KeyStore: KeyStoreConfig{Path: keyPath}, TrustAll: true, Protocol: ProtocolSecure})
	if err != nil {
		t.Fatalf("client CreateContext: %v", err)
	}

	client, server := newLoopback()
	clientConn = NewClientConn(client.src, client.snk, clientCfg)
	serverConn = NewServerConn(server.src, server.snk, serverCfg)

	clientDone := make(chan error, 1)
	go func() { _, err := clientConn.Handshake().Wait(); clientDone <- err }()
	if _, err := serverConn.Handshake().Wait(); err != nil {
		t.Fatalf("server handshake: %v", err)
	}
	if err := <-clientDone; err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	return clientConn, serverConn
}

func TestHandshakeAndRoundTrip(t *testing.T) {
	clientConn, serverConn := handshakeLoopback(t)
	defer clientConn.Close().Wait()
	defer serverConn.Close().Wait()

	payload := []byte("hello over tls")
	writeDone := make(chan error, 1)
	go func() {
		_, err := clientConn.Write(stream.NewBuffer(payload)).Wait()
		writeDone <- err
	}()

	buf, err := serverConn.Read().Wait()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if string(buf.Bytes()) != string(payload) {
		t.Fatalf("got %q, want %q", buf.Bytes(), payload)
	}
	if err := <-writeDone; err != nil {
		t.Fatalf("client write: %v", err)
	}
}

func TestHandshakeNegotiatesTLS(t *testing.T) {
	clientConn, serverConn := handshakeLoopback(t)
	defer clientConn.Close().Wait()
	defer serverConn.Close().Wait()

	if serverConn.ConnectionState().Version < tls.VersionTLS12 {
		t.Fatalf("expected at least TLS 1.2, got %x", serverConn.ConnectionState().Version)
	}
}

func TestAcceptDetectsPlaintextFirstByte(t *testing.T) {
	keyPath := writeTestKeyPair(t)
	cfg, err := CreateContext(Config{KeyStore: KeyStoreConfig{Path: keyPath}})
	if err != nil {
		t.Fatalf("CreateContext: %v", err)
	}

	src := stream.NewSimpleByteSource([]byte("GET / HTTP/1.1\r\n\r\n"))
	sink := stream.ToWriter(&bytes.Buffer{})

	plainSrc, _, tlsConn, err := Accept(src, sink, cfg)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if tlsConn != nil {
		t.Fatal("expected plaintext detection, got a TLS connection")
	}
	buf, err := plainSrc.Read().Wait()
	if err != nil {
		t.Fatalf("reading pushed-back bytes: %v", err)
	}
	if string(buf.Bytes()) != "GET / HTTP/1.1\r\n\r\n" {
		t.Fatalf("pushed-back bytes = %q", buf.Bytes())
	}
}

func TestAcceptDetectsTLSFirstByte(t *testing.T) {
	keyPath := writeTestKeyPair(t)
	serverCfg, err := CreateContext(Config{KeyStore: KeyStoreConfig{Path: keyPath}})
	if err != nil {
		t.Fatalf("server CreateContext: %v", err)
	}
	clientCfg, err := CreateContext(Config{KeyStore: KeyStoreConfig{Path: keyPath}, TrustAll: true})
	if err != nil {
		t.Fatalf("client CreateContext: %v", err)
	}

	client, server := newLoopback()
	clientConn := NewClientConn(client.src, client.snk, clientCfg)

	acceptDone := make(chan error, 1)
	var tlsConn *Conn
	go func() {
		_, _, conn, err := Accept(server.src, server.snk, serverCfg)
		tlsConn = conn
		acceptDone <- err
	}()

	if _, err := clientConn.Handshake().Wait(); err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if err := <-acceptDone; err != nil {
		t.Fatalf("accept: %v", err)
	}
	if tlsConn == nil {
		t.Fatal("expected detect mode to return a live TLS connection")
	}
	defer clientConn.Close().Wait()
	defer tlsConn.Close().Wait()
}

func TestCreateContextRejectsMissingKeyStore(t *testing.T) {
	if _, err := CreateContext(Config{}); err == nil {
		t.Fatal("expected error for missing key store path")
	}
}

// socketQueue emulates a real socket's receive buffer rather than the
// unbuffered rendezvous of a BytePipe: writes enqueue immediately, and a
// read drains whatever is currently queued, coalescing any writes that
// landed before the read was issued. This reproduces "two small writes
// arrive in one network read" deterministically, without relying on OS
// timing.
type socketQueue struct {
	mu     sync.Mutex
	buf    []byte
	notify chan struct{}
	closed bool
}

func newSocketQueue() *socketQueue {
	return &socketQueue{notify: make(chan struct{}, 1)}
}

func (q *socketQueue) push(b []byte) {
	q.mu.Lock()
	q.buf = append(q.buf, b...)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *socketQueue) Read() *async.Async[*stream.Buffer] {
	out, complete, fail := async.New[*stream.Buffer]()
	go func() {
		for {
			q.mu.Lock()
			if len(q.buf) > 0 {
				b := q.buf
				q.buf = nil
				q.mu.Unlock()
				complete(stream.NewBuffer(b))
				return
			}
			closed := q.closed
			q.mu.Unlock()
			if closed {
				fail(async.End)
				return
			}
			<-q.notify
		}
	}()
	return out
}

func (q *socketQueue) Skip(int64) int64 { return 0 }

func (q *socketQueue) Close() *async.Async[struct{}] {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return async.Done(struct{}{}, nil)
}

// socketSink is the write side of a socketQueue pair: it pushes directly
// into the peer's queue without waiting for a matching read.
type socketSink struct {
	peer *socketQueue
}

func (s socketSink) Write(buf *stream.Buffer) *async.Async[struct{}] {
	s.peer.push(buf.Bytes())
	return async.Done(struct{}{}, nil)
}

func (s socketSink) Error(error) *async.Async[struct{}] { return async.Done(struct{}{}, nil) }

func (s socketSink) Close() *async.Async[struct{}] {
	s.peer.Close()
	return async.Done(struct{}{}, nil)
}

func newSocketLoopback() (client pipedConn, server pipedConn) {
	clientToServer := newSocketQueue()
	serverToClient := newSocketQueue()
	client = pipedConn{src: serverToClient, snk: socketSink{peer: clientToServer}}
	server = pipedConn{src: clientToServer, snk: socketSink{peer: serverToClient}}
	return
}

// tls10CBCConfigs pins both ends to TLS 1.0 with a CBC suite, the one
// combination where crypto/tls's writer still performs the BEAST-mitigating
// 1/n-1 record split on write (conn.go, writeRecordLocked).
func tls10CBCConfigs(t *testing.T) (serverCfg, clientCfg *tls.Config) {
	t.Helper()
	keyPath := writeTestKeyPair(t)
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("reading key pair: %v", err)
	}
	cert, err := tls.X509KeyPair(pemBytes, pemBytes)
	if err != nil {
		t.Fatalf("parsing key pair: %v", err)
	}
	base := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS10,
		MaxVersion:   tls.VersionTLS10,
		CipherSuites: []uint16{tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA},
	}
	serverCfg = base.Clone()
	clientCfg = base.Clone()
	clientCfg.InsecureSkipVerify = true
	return serverCfg, clientCfg
}

// TestReadMergesOneByteSplitRecord exercises the literal scenario of spec
// section 4.14: a peer's 1-byte record immediately followed by the rest of
// the payload in the same network read must surface as a single Read call
// returning every byte, "G" first.
func TestReadMergesOneByteSplitRecord(t *testing.T) {
	serverCfg, clientCfg := tls10CBCConfigs(t)

	client, server := newSocketLoopback()
	clientConn := NewClientConn(client.src, client.snk, clientCfg)
	serverConn := NewServerConn(server.src, server.snk, serverCfg)

	clientDone := make(chan error, 1)
	go func() { _, err := clientConn.Handshake().Wait(); clientDone <- err }()
	if _, err := serverConn.Handshake().Wait(); err != nil {
		t.Fatalf("server handshake: %v", err)
	}
	if err := <-clientDone; err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	if clientConn.ConnectionState().Version != tls.VersionTLS10 {
		t.Fatalf("expected TLS 1.0, got %#x", clientConn.ConnectionState().Version)
	}
	defer clientConn.Close().Wait()
	defer serverConn.Close().Wait()

	payload := append([]byte{'G'}, bytes.Repeat([]byte("x"), 16*1024)...)
	if _, err := clientConn.Write(stream.NewBuffer(payload)).Wait(); err != nil {
		t.Fatalf("client write: %v", err)
	}

	buf, err := serverConn.Read().Wait()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if len(buf.Bytes()) != len(payload) {
		t.Fatalf("got %d bytes in one read, want %d", len(buf.Bytes()), len(payload))
	}
	if buf.Bytes()[0] != 'G' {
		t.Fatalf("first byte = %q, want 'G'", buf.Bytes()[0])
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Fatal("merged payload does not match what was written")
	}
}

func TestGetVersionName(t *testing.T) {
	if GetVersionName(tls.VersionTLS13) != "TLS 1.3" {
		t.Fatalf("unexpected version name: %s", GetVersionName(tls.VersionTLS13))
	}
	if GetVersionName(0xffff) != "unknown" {
		t.Fatalf("expected unknown for unrecognized version")
	}
}
