package wire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// ConnHandler handles one accepted connection end-to-end (its whole
// request/response lifetime) until the peer disconnects or a short read
// terminates the connection. The Server closes the connection once the
// handler returns, however it returned.
type ConnHandler func(ctx context.Context, conn net.Conn)

// Server is a minimal accept-loop runner shared by the store and both lobby
// listeners: bind one TCP port, hand every accepted
// connection to a ConnHandler on its own goroutine, and support a clean
// shutdown via context cancellation.
type Server struct {
	Name    string
	Handler ConnHandler
	Logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Addr returns the bound address, or nil if Run/Serve hasn't started yet.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close closes the listener, unblocking Serve's accept loop.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// Run listens on addr and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s: listen on %s: %w", s.Name, addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or the listener is
// closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("listening", zap.String("component", s.Name), zap.String("addr", ln.Addr().String()))

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				wg.Wait()
				return nil
			}
			logger.Error("accept failed", zap.String("component", s.Name), zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("connection handler panicked",
						zap.String("component", s.Name),
						zap.Any("recover", r),
						zap.String("remote", conn.RemoteAddr().String()),
					)
				}
			}()
			s.Handler(ctx, conn)
		}()
	}
}
