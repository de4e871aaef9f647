package core

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Connection is one accepted socket. The accept loop creates it and hands it
// to a ConnectionHandler, which owns it from then on.
type Connection struct {
	// ID is unique per accepted connection.
	ID string
	// Peer is the remote address, used as a label.
	Peer string

	conn   net.Conn
	closed atomic.Bool
}

// NewConnection wraps an accepted socket.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		ID:   uuid.NewString(),
		Peer: conn.RemoteAddr().String(),
		conn: conn,
	}
}

func (c *Connection) Read(p []byte) (int, error) {
	return c.conn.Read(p)
}

func (c *Connection) Write(p []byte) (int, error) {
	return c.conn.Write(p)
}

func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *Connection) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Close is idempotent.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

func (c *Connection) Closed() bool {
	return c.closed.Load()
}
