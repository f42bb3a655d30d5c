package guarantees

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// Receiver is the other end of the INFO-1..4 pair: it decides, per
// guarantee level, whether to deduplicate before delivering locally and
// whether to echo back to the sender.
type Receiver struct {
	comm *runtime.Communicator
	log  *logrus.Entry
	seen map[string]struct{}
}

// NewReceiver builds a Receiver bound to comm.
func NewReceiver(comm *runtime.Communicator, log *logrus.Entry) *Receiver {
	return &Receiver{comm: comm, log: log, seen: make(map[string]struct{})}
}

// Run processes inbound network messages forever.
func (r *Receiver) Run() {
	for {
		msg, ok := r.comm.Recv(0)
		if !ok {
			continue
		}

		switch msg.Type {
		case "INFO-1":
			// at-most-once: deliver only the first time this exact
			// message is seen, never echo.
			if !r.markIfNew(msg) {
				continue
			}
			r.comm.SendLocal(msg)

		case "INFO-2":
			// at-least-once: deliver every arrival, always echo.
			r.comm.SendLocal(msg)
			r.comm.Send(msg, msg.Sender)

		case "INFO-3", "INFO-4":
			// exactly-once (and, for INFO-4, FIFO via the sender's
			// single-outstanding-request discipline): deduplicate before
			// delivering, but always echo so a sender that never saw our
			// first echo will eventually stop retrying.
			if r.markIfNew(msg) {
				r.comm.SendLocal(msg)
			}
			r.comm.Send(msg, msg.Sender)

		default:
			r.comm.Send(wire.NewBody("ERROR", fmt.Sprintf("unknown message type: %s", msg.Type)), msg.Sender)
		}
	}
}

// markIfNew records msg as seen and reports whether it was new.
func (r *Receiver) markIfNew(msg wire.Message) bool {
	key := msg.Key()
	if _, ok := r.seen[key]; ok {
		return false
	}
	r.seen[key] = struct{}{}
	return true
}
