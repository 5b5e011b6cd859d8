package ws

import (
	"bytes"
	"testing"
	"time"
)

func newTestPair(t *testing.T) (*Link, *Link) {
	t.Helper()
	srv, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	cli, err := Dial("ws://" + srv.Addr() + "/ws")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	return srv, cli
}

func waitAvailable(t *testing.T, l *Link) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if l.InboundAvailable() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no frame arrived in time")
}

func waitConnected(t *testing.T, l *Link) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		connected := l.conn != nil
		l.mu.Unlock()
		if connected {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("peer did not connect in time")
}

func TestPairDeliveryBothDirections(t *testing.T) {
	srv, cli := newTestPair(t)
	waitConnected(t, srv)

	srv.EnterReceiveMode()
	frame := []byte("A0000000000000011111111111111111")
	if !cli.SendNonblocking(frame) {
		t.Fatal("client send rejected")
	}
	waitAvailable(t, srv)
	buf := make([]byte, len(frame))
	if err := srv.Receive(buf); err != nil {
		t.Fatalf("server receive: %v", err)
	}
	if !bytes.Equal(buf, frame) {
		t.Fatalf("got %q, want %q", buf, frame)
	}

	cli.EnterReceiveMode()
	reply := []byte("B1111111111111100000000000000000")
	if !srv.SendNonblocking(reply) {
		t.Fatal("server send rejected")
	}
	waitAvailable(t, cli)
	if err := cli.Receive(buf); err != nil {
		t.Fatalf("client receive: %v", err)
	}
	if !bytes.Equal(buf, reply) {
		t.Fatalf("got %q, want %q", buf, reply)
	}
}

func TestDeafEndDropsFrames(t *testing.T) {
	srv, cli := newTestPair(t)
	waitConnected(t, srv)

	if !cli.SendNonblocking([]byte("lost")) {
		t.Fatal("send rejected")
	}
	time.Sleep(50 * time.Millisecond)
	if srv.InboundAvailable() {
		t.Fatal("frame queued while not listening")
	}

	srv.EnterReceiveMode()
	if !cli.SendNonblocking([]byte("kept")) {
		t.Fatal("send rejected")
	}
	waitAvailable(t, srv)
	buf := make([]byte, 4)
	if err := srv.Receive(buf); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(buf) != "kept" {
		t.Fatalf("got %q, want %q", buf, "kept")
	}
}

func TestListenerSendBeforePeerRejected(t *testing.T) {
	srv, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer srv.Close()

	if srv.SendNonblocking([]byte("nobody")) {
		t.Fatal("expected rejection with no peer connected")
	}
}

func TestSecondPeerTurnedAway(t *testing.T) {
	srv, _ := newTestPair(t)
	waitConnected(t, srv)

	second, err := Dial("ws://" + srv.Addr() + "/ws")
	if err != nil {
		// The upgrade itself succeeds; the close arrives right after.
		return
	}
	defer second.Close()

	srv.EnterReceiveMode()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !second.SendNonblocking([]byte("intruder")) {
			return // connection torn down as expected
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("second peer was never disconnected")
}

func TestCloseRejectsSend(t *testing.T) {
	srv, cli := newTestPair(t)
	waitConnected(t, srv)

	cli.Close()
	if cli.SendNonblocking([]byte("x")) {
		t.Fatal("send accepted on closed link")
	}
}
