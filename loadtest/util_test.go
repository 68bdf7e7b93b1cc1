package main

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// responder is a minimal stand-in for the fib server: one read, one reply,
// close. Every failEvery-th request gets a wrong answer when failEvery > 0.
type responder struct {
	listener  net.Listener
	failEvery int64
	requests  atomic.Int64
}

func startResponder(t *testing.T, failEvery int64) *responder {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := &responder{listener: listener, failEvery: failEvery}
	t.Cleanup(func() {
		_ = listener.Close()
	})
	go r.serve()
	return r
}

func (r *responder) port() string {
	return strconv.Itoa(r.listener.Addr().(*net.TCPAddr).Port)
}

func (r *responder) serve() {
	for {
		conn, err := r.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		r.handle(conn)
	}
}

func (r *responder) handle(conn net.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	buffer := make([]byte, 63)
	bytesRead, _ := conn.Read(buffer)
	if bytesRead <= 0 {
		return
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(buffer[:bytesRead])), 10, 64)
	if err != nil {
		return
	}
	count := r.requests.Add(1)
	result := iterativeFib(n)
	if r.failEvery > 0 && count%r.failEvery == 0 {
		result++
	}
	_, _ = conn.Write([]byte(strconv.FormatInt(result, 10)))
}

func iterativeFib(n int64) int64 {
	if n <= 1 {
		return n
	}
	previous, current := int64(0), int64(1)
	for i := int64(2); i <= n; i++ {
		previous, current = current, previous+current
	}
	return current
}
