package main

import (
	"net"
)

// acceptor owns the listening socket for the lifetime of the process.
type acceptor struct {
	listener net.Listener
}

func newAcceptor(cfg Config) (*acceptor, error) {
	listener, err := net.Listen("tcp", cfg.listenAddress())
	if err != nil {
		return nil, err
	}
	return &acceptor{listener: listener}, nil
}

// Accept blocks until a peer connects. After Close it returns an error
// wrapping net.ErrClosed.
func (a *acceptor) Accept() (net.Conn, error) {
	return a.listener.Accept()
}

func (a *acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

func (a *acceptor) Close() error {
	return a.listener.Close()
}
