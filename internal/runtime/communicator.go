package runtime

import (
	"time"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

// Communicator is the polling-style runtime surface: a process drives its
// own `for { msg := recv(timeout); handle(msg) }` loop instead of handing
// control to a dispatcher. This is the style used by the delivery-guarantee
// sender/receiver and the broadcast peer.
type Communicator struct {
	tr    transport.Transport
	local *LocalMailbox
	log   *logrus.Entry
}

// NewCommunicator binds a Communicator to a transport and a local mailbox.
func NewCommunicator(tr transport.Transport, local *LocalMailbox, log *logrus.Entry) *Communicator {
	return &Communicator{tr: tr, local: local, log: log}
}

// Addr is this process's own network address.
func (c *Communicator) Addr() wire.Address { return c.tr.LocalAddr() }

// Send transmits msg to a peer over the network.
func (c *Communicator) Send(msg wire.Message, to wire.Address) error {
	data, err := encode(msg)
	if err != nil {
		return err
	}
	return c.tr.Send(to, data)
}

// SendLocal emits a result to this process's driver (test harness or CLI).
func (c *Communicator) SendLocal(msg wire.Message) {
	msg.Local = true
	select {
	case c.local.fromProcess <- msg:
	default:
		c.log.Warn("local mailbox full, dropping outgoing local message")
	}
}

// RecvLocal blocks up to timeout for the next local command from the
// driver. The zero duration blocks forever.
func (c *Communicator) RecvLocal(timeout time.Duration) (wire.Message, bool) {
	if timeout <= 0 {
		msg := <-c.local.toProcess
		return msg, true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case msg := <-c.local.toProcess:
		return msg, true
	case <-t.C:
		return wire.Message{}, false
	}
}

// Recv blocks up to timeout for the next message, merging both the local
// mailbox and the network inbox into one ordered stream. The zero duration
// blocks forever.
func (c *Communicator) Recv(timeout time.Duration) (wire.Message, bool) {
	var after <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		after = t.C
	}
	for {
		select {
		case msg := <-c.local.toProcess:
			msg.Local = true
			return msg, true
		case pkt, ok := <-c.tr.Inbox():
			if !ok {
				return wire.Message{}, false
			}
			msg, err := decode(pkt.Data, pkt.From)
			if err != nil {
				c.log.Warnf("dropping malformed datagram from %s: %v", pkt.From, err)
				continue
			}
			return msg, true
		case <-after:
			return wire.Message{}, false
		}
	}
}

// Close releases the underlying transport.
func (c *Communicator) Close() error { return c.tr.Close() }
