package core

import (
	"context"
)

// DefaultResponse is sent when no fixed response is configured.
const DefaultResponse = "Acknowledged"

// TransactionListener is notified of the observable events of a connection.
// A single instance is usually shared by every connection of a server, so
// implementations must tolerate concurrent calls. The core never serializes
// calls into the listener and never recovers listener panics.
type TransactionListener interface {
	// OnRequest is called from the connection's read goroutine with each
	// decoded inbound message, in arrival order.
	OnRequest(payload string)
	// OnResponse is called once a write of payload has been attempted,
	// whether it succeeded or not.
	OnResponse(payload string)
}

// PeerScoped is implemented by listeners that want a per-connection view,
// e.g. to label output with the remote address. The returned listener must
// share the parent's state.
type PeerScoped interface {
	ForPeer(conn *Connection) TransactionListener
}

// Listener adapts plain functions to TransactionListener. Nil fields are
// no-ops.
type Listener struct {
	Request  func(payload string)
	Response func(payload string)
}

func (l Listener) OnRequest(payload string) {
	if l.Request != nil {
		l.Request(payload)
	}
}

func (l Listener) OnResponse(payload string) {
	if l.Response != nil {
		l.Response(payload)
	}
}

// ConnectionHandler owns one accepted connection for its whole lifetime.
// HandleConnection returns once the connection is closed.
type ConnectionHandler interface {
	HandleConnection(ctx context.Context, conn *Connection)
}

// HandlerFactory builds a fresh handler for each accepted connection.
type HandlerFactory func(listener TransactionListener) ConnectionHandler

// ResponseSource defines where the fixed response comes from.
// It is consulted once at startup; the server never re-reads it.
type ResponseSource interface {
	Response(ctx context.Context) (string, error)
}
