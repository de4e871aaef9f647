package core

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/codec"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

const maxAcceptDelay = time.Second

// Server owns the listening socket and gives every accepted connection its
// own goroutine and its own handler. The fixed response and the listener
// are shared read-only by all of them.
type Server struct {
	addr     string
	response string
	mode     string
	listener TransactionListener
	factory  HandlerFactory
	onBound  func(net.Addr)

	mu       sync.Mutex
	ln       net.Listener
	cancel   context.CancelFunc
	conns    map[*Connection]struct{}
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
	accepted atomic.Int64
}

type options struct {
	host    string
	sink    bool
	factory HandlerFactory
	handler HandlerConfig
	onBound func(net.Addr)
}

// Option configures a Server.
type Option func(*options)

// WithHost binds to a specific interface instead of all of them.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithSink makes every connection observe-only.
func WithSink() Option {
	return func(o *options) { o.sink = true }
}

// WithHandlerFactory replaces the built-in handler variants.
func WithHandlerFactory(f HandlerFactory) Option {
	return func(o *options) { o.factory = f }
}

func WithCodec(c *codec.Codec) Option {
	return func(o *options) { o.handler.Codec = c }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.handler.WriteTimeout = d }
}

func WithReadBufferSize(n int) Option {
	return func(o *options) { o.handler.ReadBufferSize = n }
}

func WithWriteQueueSize(n int) Option {
	return func(o *options) { o.handler.WriteQueueSize = n }
}

// WithOnBound registers a callback run once the socket is bound.
func WithOnBound(fn func(net.Addr)) Option {
	return func(o *options) { o.onBound = fn }
}

// NewServer builds a server for port. An empty response falls back to
// DefaultResponse. Connections are answered unless WithSink is given.
func NewServer(port int, response string, listener TransactionListener, opts ...Option) (*Server, error) {
	if port < 1 || port > 65535 {
		return nil, ErrInvalidPort
	}
	if listener == nil {
		return nil, ErrNilListener
	}
	if response == "" {
		response = DefaultResponse
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		addr:     net.JoinHostPort(o.host, strconv.Itoa(port)),
		response: response,
		listener: listener,
		onBound:  o.onBound,
		conns:    make(map[*Connection]struct{}),
		done:     make(chan struct{}),
	}

	switch {
	case o.factory != nil:
		s.mode = "custom"
		s.factory = o.factory
	case o.sink:
		s.mode = "sink"
		s.factory = Sink(o.handler)
	default:
		factory, err := Answering(response, o.handler)
		if err != nil {
			return nil, err
		}
		s.mode = "answer"
		s.factory = factory
	}

	return s, nil
}

// Start binds the socket and starts accepting in the background. A bind
// failure is returned as *BindError.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return ErrServerStarted
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return &BindError{Addr: s.addr, Err: err}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.ln = ln
	s.cancel = cancel
	s.mu.Unlock()

	// Cancelling ctx releases the socket even without Stop.
	context.AfterFunc(ctx, func() { ln.Close() })

	logger.Info("Server listening", "addr", ln.Addr().String(), "mode", s.mode, "response", s.response)
	if s.onBound != nil {
		s.onBound(ln.Addr())
	}

	go s.acceptLoop(ctx, ln)
	return nil
}

// Serve starts the server and blocks until ctx is cancelled or Stop is
// called.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		s.Stop()
	case <-s.done:
		s.wg.Wait()
	}
	return nil
}

// Stop releases the socket, closes live connections and waits for their
// handlers. Responses queued but not yet attempted are dropped.
func (s *Server) Stop() {
	if s.Addr() == nil {
		return
	}

	s.stopOnce.Do(func() {
		s.mu.Lock()
		ln, cancel := s.ln, s.cancel
		conns := make([]*Connection, 0, len(s.conns))
		for c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		logger.Info("Stopping server", "addr", ln.Addr().String(), "active_connections", len(conns))
		cancel()
		_ = ln.Close()
		for _, c := range conns {
			_ = c.Close()
		}

		<-s.done
		s.wg.Wait()
	})
}

// Addr is the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Response is the fixed response served to every connection.
func (s *Server) Response() string {
	return s.response
}

func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Accepted is the number of connections accepted since Start.
func (s *Server) Accepted() int64 {
	return s.accepted.Load()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer close(s.done)

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			logger.Warn("Accept failed, retrying", "error", err, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
			continue
		}
		delay = 0

		c := NewConnection(conn)
		s.accepted.Add(1)
		s.track(c, true)
		s.wg.Add(1)
		go s.handleConnection(ctx, c)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn *Connection) {
	defer s.wg.Done()
	defer s.track(conn, false)

	logger.Debug("Accepted connection", "peer", conn.Peer, "conn_id", conn.ID)

	listener := s.listener
	if scoped, ok := listener.(PeerScoped); ok {
		listener = scoped.ForPeer(conn)
	}

	// Delegate the entire lifecycle to a fresh handler
	s.factory(listener).HandleConnection(ctx, conn)
}

func (s *Server) track(conn *Connection, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}
