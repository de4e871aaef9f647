package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/codec"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

const (
	defaultReadBufferSize = 4096
	defaultWriteQueueSize = 64
)

// HandlerConfig is shared read-only by every handler of a server.
type HandlerConfig struct {
	Codec          *codec.Codec
	ReadBufferSize int
	// WriteTimeout bounds each response write. Zero means no deadline.
	WriteTimeout time.Duration
	// WriteQueueSize is how many responses may wait for the writer before
	// the read loop blocks.
	WriteQueueSize int
}

func (c HandlerConfig) withDefaults() HandlerConfig {
	if c.Codec == nil {
		c.Codec = codec.MustNew(codec.DefaultCharset)
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = defaultReadBufferSize
	}
	if c.WriteQueueSize <= 0 {
		c.WriteQueueSize = defaultWriteQueueSize
	}
	return c
}

// AnsweringHandler greets the peer with the fixed response as soon as the
// connection is up, then answers every inbound message with it.
type AnsweringHandler struct {
	response string
	wire     []byte
	listener TransactionListener
	cfg      HandlerConfig
}

// Answering returns a factory of answering handlers. The response is
// encoded once here and shared by every handler the factory builds.
func Answering(response string, cfg HandlerConfig) (HandlerFactory, error) {
	cfg = cfg.withDefaults()
	wire, err := cfg.Codec.Encode(response)
	if err != nil {
		return nil, err
	}
	return func(listener TransactionListener) ConnectionHandler {
		return &AnsweringHandler{
			response: response,
			wire:     wire,
			listener: listener,
			cfg:      cfg,
		}
	}, nil
}

func NewAnsweringHandler(response string, listener TransactionListener, cfg HandlerConfig) (*AnsweringHandler, error) {
	factory, err := Answering(response, cfg)
	if err != nil {
		return nil, err
	}
	return factory(listener).(*AnsweringHandler), nil
}

// HandleConnection implements ConnectionHandler.
func (h *AnsweringHandler) HandleConnection(ctx context.Context, conn *Connection) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	w := newResponseWriter(conn, h.listener, h.cfg)
	go w.run(ctx)
	// Drain the writer before the deferred Close so pending responses are
	// still attempted after the peer hangs up.
	defer w.close()

	w.enqueue(ctx, h.response, h.wire)

	err := readMessages(ctx, conn, h.cfg, func(msg string) {
		logger.Debug("Received message", "peer", conn.Peer, "conn_id", conn.ID, "message", msg)
		h.listener.OnRequest(msg)
		w.enqueue(ctx, h.response, h.wire)
	})
	logClosed(conn, err)
}

// SinkHandler reports inbound messages and never writes to the peer.
type SinkHandler struct {
	listener TransactionListener
	cfg      HandlerConfig
}

// Sink returns a factory of sink handlers.
func Sink(cfg HandlerConfig) HandlerFactory {
	cfg = cfg.withDefaults()
	return func(listener TransactionListener) ConnectionHandler {
		return &SinkHandler{listener: listener, cfg: cfg}
	}
}

func NewSinkHandler(listener TransactionListener, cfg HandlerConfig) *SinkHandler {
	return Sink(cfg)(listener).(*SinkHandler)
}

// HandleConnection implements ConnectionHandler.
func (h *SinkHandler) HandleConnection(ctx context.Context, conn *Connection) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	err := readMessages(ctx, conn, h.cfg, func(msg string) {
		logger.Debug("Received message", "peer", conn.Peer, "conn_id", conn.ID, "message", msg)
		h.listener.OnRequest(msg)
	})
	logClosed(conn, err)
}

// readMessages decodes the inbound stream and hands each decoded chunk to
// deliver, in order, until EOF, a read error or a decode error.
func readMessages(ctx context.Context, conn *Connection, cfg HandlerConfig, deliver func(string)) error {
	dec := cfg.Codec.NewDecoder()
	buf := make([]byte, cfg.ReadBufferSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			msg, decErr := dec.Decode(buf[:n])
			if decErr != nil {
				return &DecodeError{Peer: conn.Peer, Err: decErr}
			}
			if msg != "" {
				deliver(msg)
			}
		}
		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			msg, decErr := dec.Flush()
			if decErr != nil {
				return &DecodeError{Peer: conn.Peer, Err: decErr}
			}
			if msg != "" {
				deliver(msg)
			}
			return nil
		}
		if ctx.Err() != nil || conn.Closed() {
			return nil
		}
		return err
	}
}

func logClosed(conn *Connection, err error) {
	var decErr *DecodeError
	switch {
	case err == nil:
		logger.Debug("Connection closed", "peer", conn.Peer, "conn_id", conn.ID)
	case errors.As(err, &decErr):
		logger.Warn("Closing connection on undecodable input", "peer", conn.Peer, "conn_id", conn.ID, "error", err)
	default:
		logger.Warn("Connection read failed", "peer", conn.Peer, "conn_id", conn.ID, "error", err)
	}
}

type writeOp struct {
	text    string
	payload []byte
}

// responseWriter performs a connection's writes in order on its own
// goroutine and reports each completed attempt to the listener.
type responseWriter struct {
	conn     *Connection
	listener TransactionListener
	timeout  time.Duration
	queue    chan writeOp
	done     chan struct{}
}

func newResponseWriter(conn *Connection, listener TransactionListener, cfg HandlerConfig) *responseWriter {
	return &responseWriter{
		conn:     conn,
		listener: listener,
		timeout:  cfg.WriteTimeout,
		queue:    make(chan writeOp, cfg.WriteQueueSize),
		done:     make(chan struct{}),
	}
}

// enqueue blocks only while the queue is full. It gives up once ctx is done.
func (w *responseWriter) enqueue(ctx context.Context, text string, payload []byte) {
	select {
	case w.queue <- writeOp{text: text, payload: payload}:
	case <-ctx.Done():
	}
}

func (w *responseWriter) run(ctx context.Context) {
	defer close(w.done)
	for op := range w.queue {
		// Abandoned on shutdown: never attempted, so never reported.
		if ctx.Err() != nil {
			continue
		}
		w.write(op)
	}
}

func (w *responseWriter) write(op writeOp) {
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			logger.Debug("Failed setting write deadline", "peer", w.conn.Peer, "conn_id", w.conn.ID, "error", err)
		}
	}

	logger.Debug("Sending response", "peer", w.conn.Peer, "conn_id", w.conn.ID, "response", op.text)
	if _, err := w.conn.Write(op.payload); err != nil {
		logger.Error("Failed sending response", "conn_id", w.conn.ID,
			"error", &WriteFailure{Peer: w.conn.Peer, Payload: op.text, Err: err})
	}

	w.listener.OnResponse(op.text)
}

// close stops accepting writes and waits for queued ones to finish.
func (w *responseWriter) close() {
	close(w.queue)
	<-w.done
}
