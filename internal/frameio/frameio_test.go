package frameio

import (
	"net"
	"testing"
	"time"

	"github.com/kstaniek/go-wireframe/internal/framer"
)

func loopback(t *testing.T) (client, server *net.TCPConn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		accepted <- c
	}()
	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	s := <-accepted
	return c.(*net.TCPConn), s.(*net.TCPConn)
}

func TestReaderWouldBlockThenFrame(t *testing.T) {
	client, server := loopback(t)
	defer client.Close()
	defer server.Close()

	r := NewReader(server, framer.NewSoupBinFramer(0), 0)
	_, status, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != WouldBlock {
		t.Fatalf("expected WouldBlock before any write, got %v", status)
	}

	payload := []byte("hi")
	wire := append([]byte{0, byte(len(payload))}, payload...)
	if _, err := client.Write(wire); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	frame, status, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != Completed {
		t.Fatalf("expected Completed, got WouldBlock")
	}
	if string(frame) != string(wire) {
		t.Fatalf("frame mismatch: got %q want %q", frame, wire)
	}
}

func TestWriterFullFrame(t *testing.T) {
	client, server := loopback(t)
	defer client.Close()
	defer server.Close()

	w := NewWriter(client)
	payload := []byte("hello world")
	status, err := w.WriteFrame(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != Completed {
		t.Fatalf("expected Completed")
	}

	buf := make([]byte, len(payload))
	server.SetReadDeadline(time.Now().Add(time.Second))
	n, err := server.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("payload mismatch: got %q", buf[:n])
	}
}

func TestReaderCleanEOF(t *testing.T) {
	client, server := loopback(t)
	defer server.Close()

	r := NewReader(server, framer.NewSoupBinFramer(0), 0)
	client.Close()
	time.Sleep(20 * time.Millisecond)

	frame, status, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != Completed || frame != nil {
		t.Fatalf("expected Completed(nil) on clean EOF, got frame=%v status=%v", frame, status)
	}
}
