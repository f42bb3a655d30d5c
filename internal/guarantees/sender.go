// Package guarantees implements the four delivery-guarantee levels
// (INFO-1..4) as a sender/receiver pair running on the polling-style
// Communicator.
package guarantees

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// retryInterval is how often an INFO-2/3/4 send is retransmitted while
// waiting for an echo.
const retryInterval = 500 * time.Millisecond

// Sender drives the local "run forever, handle whatever the user asks for
// next" loop described for INFO-1..4.
type Sender struct {
	comm     *runtime.Communicator
	recvAddr wire.Address
	log      *logrus.Entry

	// pending holds local commands that arrived while a retry loop for a
	// previous INFO-2/3/4 command was still waiting on its echo. Draining
	// this queue before asking the driver for a new command is what keeps
	// INFO-4 FIFO: a new command is never even looked at until the
	// previous one's echo has been confirmed.
	pending []wire.Message
}

// NewSender builds a Sender that forwards local INFO-1..4 commands to
// recvAddr.
func NewSender(comm *runtime.Communicator, recvAddr wire.Address, log *logrus.Entry) *Sender {
	return &Sender{comm: comm, recvAddr: recvAddr, log: log}
}

// Run processes local commands forever; it never returns.
func (s *Sender) Run() {
	for {
		msg := s.nextLocal()

		switch msg.Type {
		case "INFO-1":
			if err := s.comm.Send(msg, s.recvAddr); err != nil {
				s.log.Warnf("INFO-1 send failed: %v", err)
			}
		case "INFO-2", "INFO-3", "INFO-4":
			s.deliverWithRetry(msg)
		default:
			s.comm.SendLocal(wire.NewLocal("ERROR", fmt.Sprintf("unknown command: %s", msg.Type)))
		}
	}
}

func (s *Sender) nextLocal() wire.Message {
	if len(s.pending) > 0 {
		msg := s.pending[0]
		s.pending = s.pending[1:]
		return msg
	}
	msg, _ := s.comm.RecvLocal(0)
	return msg
}

// deliverWithRetry implements the shared INFO-2/3/4 retry loop: keep
// resending msg until an echo of the same (type, body) arrives from the
// network. Any local command that shows up while waiting is queued rather
// than handled immediately, so a later command can never overtake an
// earlier one still in flight.
func (s *Sender) deliverWithRetry(msg wire.Message) {
	for {
		if err := s.comm.Send(msg, s.recvAddr); err != nil {
			s.log.Warnf("%s send failed: %v", msg.Type, err)
		}

		resp, ok := s.comm.Recv(retryInterval)
		if !ok {
			continue
		}
		if resp.Local {
			s.pending = append(s.pending, resp)
			continue
		}
		if resp.Equal(msg) {
			return
		}
	}
}
