package listener

import (
	"log/slog"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/logger"
)

// Logging reports events through the structured logger at debug level.
// The zero value logs without connection attributes.
type Logging struct {
	log *slog.Logger
}

func (l *Logging) ForPeer(conn *core.Connection) core.TransactionListener {
	return &Logging{log: logger.With("peer", conn.Peer, "conn_id", conn.ID)}
}

func (l *Logging) OnRequest(payload string) {
	l.debug("Transaction request", payload)
}

func (l *Logging) OnResponse(payload string) {
	l.debug("Transaction response", payload)
}

func (l *Logging) debug(msg, payload string) {
	if !logger.Enabled(slog.LevelDebug) {
		return
	}
	if l.log == nil {
		logger.Debug(msg, "payload", payload)
		return
	}
	l.log.Debug(msg, "payload", payload)
}

// Multi fans every event out to its members in order.
type Multi []core.TransactionListener

func (m Multi) ForPeer(conn *core.Connection) core.TransactionListener {
	scoped := make(Multi, len(m))
	for i, l := range m {
		if s, ok := l.(core.PeerScoped); ok {
			l = s.ForPeer(conn)
		}
		scoped[i] = l
	}
	return scoped
}

func (m Multi) OnRequest(payload string) {
	for _, l := range m {
		l.OnRequest(payload)
	}
}

func (m Multi) OnResponse(payload string) {
	for _, l := range m {
		l.OnResponse(payload)
	}
}
