package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestNormalizeAddr(t *testing.T) {
	tests := map[string]string{"": "", "8080": ":8080", ":9090": ":9090", "127.0.0.1:80": "127.0.0.1:80"}
	for in, want := range tests {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShutdownWithoutRun(t *testing.T) {
	var s Server
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestRun_ReturnsNilAfterShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	var s Server
	done := make(chan error, 1)
	go func() {
		done <- s.Run(net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), http.NotFoundHandler())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after shutdown", err)
	}
}
