package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer binds an acceptor on a free loopback port. The server is not
// started so tests can still swap the compute function.
func newTestServer(t *testing.T, cfg Config) (*server, string) {
	t.Helper()
	cfg.ListenHost = "127.0.0.1"
	cfg.ListenPort = "0"
	cfg = applyDefaults(cfg)
	require.NoError(t, validateConfig(cfg))

	acceptor, err := newAcceptor(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = acceptor.Close()
	})
	srv := newServer(cfg, acceptor, newServerMetrics())
	return srv, acceptor.Addr().String()
}

// runTestServer serves until the test ends and checks that Serve returns.
func runTestServer(t *testing.T, srv *server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop within 5 seconds after cancellation")
		}
	})
}

func startTestServer(t *testing.T, cfg Config) (*server, string) {
	t.Helper()
	srv, address := newTestServer(t, cfg)
	runTestServer(t, srv)
	return srv, address
}

// sendRequest writes payload on a fresh connection and returns everything
// the server sent before closing.
func sendRequest(t *testing.T, address string, payload string) string {
	t.Helper()
	conn, err := net.Dial("tcp", address)
	require.NoError(t, err)
	defer func() {
		_ = conn.Close()
	}()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)

	response, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(response)
}

type timedResponse struct {
	response   string
	receivedAt time.Time
	err        error
}

// sendRequestAsync is sendRequest for use outside the test goroutine.
func sendRequestAsync(address string, payload string, result chan<- timedResponse) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		result <- timedResponse{err: err}
		return
	}
	defer func() {
		_ = conn.Close()
	}()
	if err := conn.SetDeadline(time.Now().Add(10 * time.Second)); err != nil {
		result <- timedResponse{err: err}
		return
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		result <- timedResponse{err: err}
		return
	}
	response, err := io.ReadAll(conn)
	result <- timedResponse{response: string(response), receivedAt: time.Now(), err: err}
}

func checkPortClosed(address string) error {
	conn, err := net.DialTimeout("tcp", address, time.Second)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("port %s is still open", address)
	}
	return nil
}
