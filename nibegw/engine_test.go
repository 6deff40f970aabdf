package nibegw

import (
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/GoAethereal/cancel"

	"github.com/yozik04/nibe"
)

func hexBytesE(t *testing.T, s string) []byte {
	t.Helper()
	out, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex string %q: %v", s, err)
	}
	return out
}

// newFakePeer opens a loopback UDP socket standing in for the pump.
func newFakePeer(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("newFakePeer: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func fakePeerPort(t *testing.T, conn *net.UDPConn) int {
	t.Helper()
	return conn.LocalAddr().(*net.UDPAddr).Port
}

// TestEngineReadRegisterWordSwap reproduces §8 scenario 1: a read response
// for an s32, word-swap=true register decodes to 4853, and the outbound
// request frame is bit-exact with the reference vector.
func TestEngineReadRegisterWordSwap(t *testing.T) {
	peer := newFakePeer(t)
	port := fakePeerPort(t, peer)

	reg, err := nibe.NewRegister(43424, "test_s32", "Test S32", nibe.WidthS32)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}

	e, err := New(Config{
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   "127.0.0.1",
		ReadPort:   port,
		WritePort:  port,
		WordSwap:   nibe.BoolPtr(true),
		Timeout:    2 * time.Second,
		Retries:    1,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := cancel.New()
	defer ctx.Cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	requestDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 256)
		n, from, err := peer.ReadFrom(buf)
		if err != nil {
			return
		}
		requestDone <- append([]byte(nil), buf[:n]...)
		peer.WriteTo(hexBytesE(t, "5c00206a06a0a9f5120000a2"), from)
	}()

	value, err := e.ReadRegister(ctx, reg)
	if err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	got, ok := value.Int()
	if !ok || got != 4853 {
		t.Errorf("decoded value = %v, want 4853", value)
	}

	select {
	case req := <-requestDone:
		want := hexBytesE(t, "c06902a0a9a2")
		if hex.EncodeToString(req) != hex.EncodeToString(want) {
			t.Errorf("request frame = %x, want %x", req, want)
		}
	case <-time.After(time.Second):
		t.Fatal("fake peer never observed an outbound request")
	}
}

// TestEnginePeerDiscovery reproduces §8 scenario 6: with no configured
// peer, the first inbound datagram's source becomes the peer and the
// connection state becomes CONNECTED.
func TestEnginePeerDiscovery(t *testing.T) {
	peer := newFakePeer(t)
	port := fakePeerPort(t, peer)

	e, err := New(Config{
		ListenAddr: "127.0.0.1:0",
		ReadPort:   port,
		WritePort:  port,
		WordSwap:   nibe.BoolPtr(true),
		Timeout:    2 * time.Second,
		Retries:    1,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := cancel.New()
	defer ctx.Cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if e.State() != nibe.StateListening {
		t.Fatalf("state before any datagram = %v, want LISTENING", e.State())
	}

	statusCh := make(chan nibe.ConnectionState, 4)
	e.Events().Subscribe(nibe.EventStatusUpdate, func(payload interface{}) {
		statusCh <- payload.(nibe.ConnectionState)
	})

	engineAddr := e.pc.LocalAddr().(*net.UDPAddr)
	if _, err := peer.WriteTo(hexBytesE(t, "5c00206d0d0124e346313235352d313220529f"), engineAddr); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	select {
	case s := <-statusCh:
		if s != nibe.StateConnected {
			t.Errorf("state transition = %v, want CONNECTED", s)
		}
	case <-time.After(time.Second):
		t.Fatal("connection never reached CONNECTED after first inbound datagram")
	}

	if e.State() != nibe.StateConnected {
		t.Errorf("final state = %v, want CONNECTED", e.State())
	}
}

// TestEngineReadTimeoutRetry reproduces §8 scenario 5: a read that never
// sees a response exhausts its retry budget and fails with ReadTimeout,
// having sent one outbound frame per attempt.
func TestEngineReadTimeoutRetry(t *testing.T) {
	peer := newFakePeer(t)
	port := fakePeerPort(t, peer)

	reg, err := nibe.NewRegister(40001, "test_u16", "Test U16", nibe.WidthU16)
	if err != nil {
		t.Fatalf("NewRegister: %v", err)
	}

	e, err := New(Config{
		ListenAddr: "127.0.0.1:0",
		PeerAddr:   "127.0.0.1",
		ReadPort:   port,
		WritePort:  port,
		Timeout:    100 * time.Millisecond,
		Retries:    3,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := cancel.New()
	defer ctx.Cancel()
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	count := make(chan struct{}, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 256)
		for {
			peer.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
			_, _, err := peer.ReadFrom(buf)
			if err != nil {
				return
			}
			count <- struct{}{}
		}
	}()

	start := time.Now()
	_, err = e.ReadRegister(ctx, reg)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
	ioErr, ok := err.(*nibe.IOError)
	if !ok || ioErr.Kind != nibe.ReadTimeout {
		t.Errorf("got error %v (%T), want *nibe.IOError{Kind: ReadTimeout}", err, err)
	}
	if elapsed < 300*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 300ms (3 retries x 100ms)", elapsed)
	}
	if elapsed > 800*time.Millisecond {
		t.Errorf("elapsed = %v, want <= ~800ms", elapsed)
	}

	<-done
	if len(count) != 3 {
		t.Errorf("observed %d outbound requests, want 3", len(count))
	}
}
