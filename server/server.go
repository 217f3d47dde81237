// Package server runs the TCP accept loop. Each connection is one request:
// read once, hand the buffer to the handler, write the reply, close.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// readBufferSize bounds a request to a single read. Partial-body streaming is
// out of scope for this protocol.
const readBufferSize = 1024

// Handler processes one request buffer and returns the full wire reply.
type Handler interface {
	Handle(ctx context.Context, raw []byte) []byte
}

// Config holds the listener options.
type Config struct {
	Addr string

	// Per-connection I/O deadlines. Zero disables the deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AcceptRate paces the accept loop (connections per second). Pacing only
	// delays handling, it never drops a connection. Zero disables it.
	AcceptRate  float64
	AcceptBurst int
}

// Server accepts connections and serves each on its own goroutine. The only
// state shared between in-flight requests lives behind the Handler.
type Server struct {
	cfg     Config
	handler Handler
	log     *slog.Logger
	limiter *rate.Limiter

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New builds a Server. log may be nil.
func New(cfg Config, h Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, handler: h, log: log}
	if cfg.AcceptRate > 0 {
		burst := cfg.AcceptBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), burst)
	}
	return s
}

// Listen binds the configured address. Call before Serve when the actual
// address is needed (e.g. with port 0 in tests).
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until ctx is done, then waits for in-flight
// connections to finish. A failed request never stops the loop.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server: Serve called before Listen")
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.log.Error("accept failed", slog.Any("error", err))
			continue
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				_ = conn.Close()
				s.wg.Wait()
				return nil
			}
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// serveConn handles one connection. Read and write failures are logged and
// the request dropped without a response; they never propagate.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		s.log.Warn("read failed", slog.String("remote", conn.RemoteAddr().String()), slog.Any("error", err))
		return
	}

	reply := s.handler.Handle(ctx, buf[:n])

	if s.cfg.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	if _, err := conn.Write(reply); err != nil {
		s.log.Warn("write failed", slog.String("remote", conn.RemoteAddr().String()), slog.Any("error", err))
	}
}
