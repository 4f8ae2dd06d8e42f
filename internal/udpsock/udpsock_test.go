package udpsock

import (
	"net"
	"testing"
	"time"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	receiver, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer receiver.Close()

	sender, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sender.Close()

	payload := []byte("hello-dmx")
	if err := sender.Send(payload, receiver.LocalAddr()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	data, from, ok, err := receiver.Receive(time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !ok {
		t.Fatalf("Receive: expected a datagram before timeout")
	}
	if string(data) != string(payload) {
		t.Fatalf("Receive data = %q, want %q", data, payload)
	}
	if from == nil {
		t.Fatalf("Receive: expected non-nil sender address")
	}
}

func TestReceiveTimesOutWithoutData(t *testing.T) {
	sock, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer sock.Close()

	_, _, ok, err := sock.Receive(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if ok {
		t.Fatalf("Receive: expected timeout, got a datagram")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sock, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOperationsAfterCloseReturnErrClosed(t *testing.T) {
	sock, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	sock.Close()

	if err := sock.Send([]byte{1}, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}); err != ErrClosed {
		t.Fatalf("Send after Close = %v, want ErrClosed", err)
	}
	if _, _, _, err := sock.Receive(time.Millisecond); err != ErrClosed {
		t.Fatalf("Receive after Close = %v, want ErrClosed", err)
	}
}
