package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyRequest = errors.New("connection closed without data")
	ErrInvalidInput = errors.New("request is not a base-10 integer")

	errReadFailed  = errors.New("read failed")
	errWriteFailed = errors.New("write failed")
)

const (
	resultOk           = "ok"
	resultEmpty        = "empty"
	resultInvalidInput = "invalid_input"
	resultReadError    = "read_error"
	resultWriteError   = "write_error"
)

const acceptRetryDelay = 100 * time.Millisecond

type server struct {
	config   Config
	acceptor *acceptor
	metrics  *serverMetrics
	compute  func(n int64) int64
	slots    chan struct{}
}

func newServer(cfg Config, acceptor *acceptor, metrics *serverMetrics) *server {
	return &server{
		config:   cfg,
		acceptor: acceptor,
		metrics:  metrics,
		compute:  fib,
		slots:    make(chan struct{}, cfg.Workers),
	}
}

// Serve accepts and services connections until the acceptor is closed or ctx
// is cancelled. With a single worker every connection is fully serviced and
// closed before the next Accept call.
func (s *server) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.acceptor.Close()
		case <-stop:
		}
	}()

	log.Printf("[Server] Listening on %s with %d worker(s)", s.acceptor.Addr(), s.config.Workers)
	for {
		select {
		case s.slots <- struct{}{}:
		case <-ctx.Done():
			return nil
		}

		conn, err := s.acceptor.Accept()
		if err != nil {
			<-s.slots
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				log.Printf("[Server] Listener closed, no longer accepting connections")
				return nil
			}
			log.Printf("[Server] Error accepting connection: %v", err)
			time.Sleep(acceptRetryDelay)
			continue
		}

		if s.config.Workers == 1 {
			s.handleConnection(conn)
			<-s.slots
			continue
		}
		go func(conn net.Conn) {
			defer func() { <-s.slots }()
			s.handleConnection(conn)
		}(conn)
	}
}

func humanReadableConnection(conn net.Conn) string {
	if conn == nil {
		return "nil"
	}
	return fmt.Sprintf("%s->%s", conn.LocalAddr().String(), conn.RemoteAddr().String())
}

func (s *server) handleConnection(conn net.Conn) {
	connectionID := uuid.NewString()
	s.metrics.connectionOpened()
	defer func() {
		if s.config.LogLevel == LogLevelDebug {
			log.Printf("[conn %s] Closing client connection %s", connectionID, humanReadableConnection(conn))
		}
		err := conn.Close()
		if err != nil {
			log.Printf("[conn %s] Failed to close client connection %s: %v", connectionID, humanReadableConnection(conn), err)
		}
		s.metrics.connectionClosed()
	}()
	if s.config.LogLevel == LogLevelDebug {
		log.Printf("[conn %s] New client connection received %s", connectionID, humanReadableConnection(conn))
	}

	startTime := time.Now()
	n, result, err := s.serveRequest(conn, connectionID)
	record := requestRecord{
		N:        n,
		Result:   resultLabel(err),
		Duration: time.Since(startTime),
		At:       startTime,
	}
	s.metrics.observe(record)
	if err != nil {
		log.Printf("[conn %s] Request failed: %v", connectionID, err)
		return
	}
	if s.config.LogLevel == LogLevelDebug {
		log.Printf("[conn %s] Sent fib[%d] = %d in %s", connectionID, n, result, record.Duration)
	}
}

// serveRequest reads a single request, computes and writes the reply. The
// caller owns conn and closes it regardless of the outcome.
func (s *server) serveRequest(conn net.Conn, connectionID string) (int64, int64, error) {
	if s.config.ReadTimeoutMilliseconds > 0 {
		deadline := time.Now().Add(time.Duration(s.config.ReadTimeoutMilliseconds) * time.Millisecond)
		if err := conn.SetReadDeadline(deadline); err != nil {
			return 0, 0, fmt.Errorf("%w: setting deadline: %w", errReadFailed, err)
		}
	}

	buffer := make([]byte, s.config.MaxRequestBytes)
	bytesRead, err := conn.Read(buffer)
	if bytesRead <= 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("%w: %w", errReadFailed, err)
		}
		return 0, 0, ErrEmptyRequest
	}

	n, err := parseRequest(buffer[:bytesRead])
	if err != nil {
		return 0, 0, err
	}

	computeStart := time.Now()
	result := s.compute(n)
	s.metrics.observeCompute(time.Since(computeStart))
	log.Printf("[conn %s] fib[%d]: %d", connectionID, n, result)

	_, err = conn.Write([]byte(strconv.FormatInt(result, 10)))
	if err != nil {
		return n, result, fmt.Errorf("%w: %w", errWriteFailed, err)
	}
	return n, result, nil
}

// parseRequest accepts an optionally signed decimal integer. Surrounding
// whitespace is ignored so that line-oriented clients such as nc work.
func parseRequest(payload []byte) (int64, error) {
	text := strings.TrimSpace(string(payload))
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidInput, text, err)
	}
	return n, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOk
	case errors.Is(err, ErrEmptyRequest):
		return resultEmpty
	case errors.Is(err, ErrInvalidInput):
		return resultInvalidInput
	case errors.Is(err, errWriteFailed):
		return resultWriteError
	default:
		return resultReadError
	}
}
