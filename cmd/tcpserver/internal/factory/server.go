package factory

import (
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/codec"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/config"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/listener"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

// ServerFactory creates the TCP server for the configured handler mode
type ServerFactory struct {
	cfg *config.Config
}

// NewServerFactory creates a new server factory
func NewServerFactory(cfg *config.Config) *ServerFactory {
	return &ServerFactory{cfg: cfg}
}

// Create builds a server answering with response and reporting to l.
func (f *ServerFactory) Create(response string, l core.TransactionListener, extra ...core.Option) (*core.Server, error) {
	c, err := codec.New(f.cfg.Charset)
	if err != nil {
		return nil, err
	}

	opts := []core.Option{
		core.WithHost(f.cfg.Host),
		core.WithCodec(c),
		core.WithWriteTimeout(f.cfg.WriteTimeout),
		core.WithReadBufferSize(f.cfg.ReadBufferSize),
		core.WithWriteQueueSize(f.cfg.WriteQueueSize),
	}

	switch f.cfg.HandlerMode {
	case config.HandlerAnswer:
		logger.Info("Creating answering server", "port", f.cfg.Port, "charset", c.Name())
	case config.HandlerSink:
		logger.Info("Creating sink server", "port", f.cfg.Port, "charset", c.Name())
		opts = append(opts, core.WithSink())
	default:
		return nil, fmt.Errorf("unknown handler mode: %s", f.cfg.HandlerMode)
	}

	return core.NewServer(f.cfg.Port, response, l, append(opts, extra...)...)
}

// NewListener builds the listener shared by every connection. Events go to
// out when verbose, and always to the debug log.
func NewListener(cfg *config.Config, out io.Writer) core.TransactionListener {
	if !cfg.Verbose {
		out = io.Discard
	}
	label := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	return listener.Multi{
		listener.NewWriter(out, label),
		&listener.Logging{},
	}
}
