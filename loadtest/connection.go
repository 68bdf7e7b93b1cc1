package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	maxResponseBytes   = 2000
	defaultDialTimeout = 5 * time.Second
)

// Connection sends one request and returns the full reply.
type Connection interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

// tcpConnection opens a new connection per request: write the payload,
// half-close, then read until the server closes.
type tcpConnection struct {
	address string
	timeout time.Duration
}

func newTCPConnection(cfg ConnectionConfig) *tcpConnection {
	timeout := defaultDialTimeout
	if cfg.TimeoutMilliseconds > 0 {
		timeout = time.Duration(cfg.TimeoutMilliseconds) * time.Millisecond
	}
	return &tcpConnection{
		address: net.JoinHostPort(cfg.Host, cfg.Port),
		timeout: timeout,
	}
}

func (c *tcpConnection) Send(ctx context.Context, payload []byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("writing request to %s: %w", c.address, err)
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.CloseWrite(); err != nil {
			return nil, fmt.Errorf("half-closing connection to %s: %w", c.address, err)
		}
	}

	response, err := io.ReadAll(io.LimitReader(conn, maxResponseBytes))
	if err != nil {
		return response, fmt.Errorf("reading response from %s: %w", c.address, err)
	}
	return response, nil
}
