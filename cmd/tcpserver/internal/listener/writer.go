// Package listener holds the TransactionListener implementations used by
// the command line.
package listener

import (
	"fmt"
	"io"
	"sync"

	"github.com/hasirciogluhq/tcp-answer-server/cmd/tcpserver/internal/core"
)

// Writer prints one line per event to an io.Writer. All views returned by
// ForPeer share the parent's lock, so lines from different connections
// never interleave.
type Writer struct {
	out   io.Writer
	mu    *sync.Mutex
	label string
}

// NewWriter writes to out. A nil out discards everything.
func NewWriter(out io.Writer, label string) *Writer {
	if out == nil {
		out = io.Discard
	}
	return &Writer{
		out:   out,
		mu:    &sync.Mutex{},
		label: label,
	}
}

// ForPeer implements core.PeerScoped.
func (w *Writer) ForPeer(conn *core.Connection) core.TransactionListener {
	return &Writer{
		out:   w.out,
		mu:    w.mu,
		label: conn.Peer,
	}
}

func (w *Writer) OnRequest(payload string) {
	w.printf("Received request: %s", payload)
}

func (w *Writer) OnResponse(payload string) {
	w.printf("Sent response: %s", payload)
}

func (w *Writer) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "[%s] "+format+"\n", append([]any{w.label}, args...)...)
}
