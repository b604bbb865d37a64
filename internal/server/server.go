package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vanvught/rpidmx512-sub012/internal/httpd"
	"github.com/vanvught/rpidmx512-sub012/internal/logging"
)

const (
	// readChunk is what one TCP segment carries on the device.
	readChunk = 1460

	defaultIdleTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Config holds the network settings.
type Config struct {
	Host        string
	Port        int
	IdleTimeout time.Duration
	MDNS        MDNSConfig
}

// Server accepts TCP connections and feeds their bytes to one httpd.Request
// per connection. All requests are driven from a single event-loop
// goroutine; connection readers hand their bytes over and wait for the loop
// to be done with them.
type Server struct {
	config Config
	daemon *httpd.Daemon

	listener net.Listener
	events   chan event
	nextID   atomic.Uint32
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[uint32]net.Conn

	mdns mdnsRegistration
}

// New creates a Server. The server is the engine's transport; deps.Transport
// is overwritten.
func New(config Config, deps httpd.Deps, opts httpd.Options) *Server {
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = defaultIdleTimeout
	}
	s := &Server{
		config: config,
		events: make(chan event),
		conns:  make(map[uint32]net.Conn),
	}
	deps.Transport = s
	s.daemon = httpd.New(deps, opts)
	return s
}

// Start listens on the configured address and serves until ctx is done or
// SIGINT/SIGTERM arrives.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	opts := s.daemon.Options()
	logging.Info("Starting remote configuration server",
		zap.String("addr", addr),
		zap.Int("receive_buffer", opts.ReceiveSize),
		zap.Int("content_buffer", opts.ContentSize),
		zap.Duration("idle_timeout", s.config.IdleTimeout),
		zap.Bool("showfile", opts.Showfile),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx, ln)
}

// Serve runs the event loop and accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listener = ln

	port := 0
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}
	if err := s.registerMDNS(port); err != nil {
		logging.Warn("mDNS registration failed", zap.Error(err))
	}

	logging.Info("Server listening for connections", zap.String("addr", ln.Addr().String()))

	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.loop(loopCtx)
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.acceptConnections(loopCtx)
	}()

	var err error
	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
	case err = <-errChan:
		logging.Error("Accept loop failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if serr := s.Shutdown(shutdownCtx); err == nil {
		err = serr
	}
	cancel()

	stopLoop()
	<-loopDone
	return err
}

// Addr is the listening address, once serving.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptConnections(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection reads from conn and hands each chunk to the event loop.
// After a response the connection is closed.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	connID := s.nextID.Add(1)
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	s.conns[connID] = conn
	s.mu.Unlock()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, connID)
		s.mu.Unlock()
		s.send(ctx, event{kind: eventClose, connID: connID})
		logging.LogConnection(connID, remoteAddr, "connection_closed")
	}()

	logging.LogConnection(connID, remoteAddr, "connection_accepted")
	if !s.send(ctx, event{kind: eventOpen, connID: connID}) {
		return
	}

	buf := make([]byte, readChunk)
	reply := make(chan bool, 1)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			return
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if !s.send(ctx, event{kind: eventData, connID: connID, data: buf[:n], reply: reply}) {
				return
			}
			if done, ok := s.wait(ctx, reply); !ok || done {
				return
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logging.LogConnection(connID, remoteAddr, "idle_timeout")
				if s.send(ctx, event{kind: eventExpire, connID: connID, reply: reply}) {
					s.wait(ctx, reply)
				}
			}
			return
		}
	}
}

// send hands ev to the event loop. It reports false once the loop stopped.
func (s *Server) send(ctx context.Context, ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) wait(ctx context.Context, reply <-chan bool) (done, ok bool) {
	select {
	case done = <-reply:
		return done, true
	case <-ctx.Done():
		return false, false
	}
}

// Write implements httpd.Transport. It is called from the event loop.
func (s *Server) Write(connID uint32, p []byte) error {
	s.mu.Lock()
	conn, ok := s.conns[connID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("connection %d: %w", connID, net.ErrClosed)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout)); err != nil {
		return err
	}
	logging.LogRawBytes("sent", p)
	_, err := conn.Write(p)
	return err
}

// Shutdown stops accepting, closes every connection and waits for the
// readers to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.shutdownMDNS()

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	for id, conn := range s.conns {
		logging.Debug("Closing active connection", zap.Uint32("conn_id", id))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
