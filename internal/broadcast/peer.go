// Package broadcast implements ordered reliable broadcast: every peer
// floods a locally submitted message to all others, forwards it on first
// sight to survive a dropped direct link, and holds back out-of-order
// arrivals per source until the gap is filled.
package broadcast

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// Peer is one node of a broadcast group, driven by the polling-style
// Communicator.
type Peer struct {
	name  string
	peers []wire.Address
	comm  *runtime.Communicator
	log   *logrus.Entry

	seqNo        int
	lastReceived map[string]int
	received     map[string]struct{}
	holdBack     map[string]*seqHeap
}

// NewPeer builds a Peer that broadcasts to and reassembles from peers.
func NewPeer(name string, peers []wire.Address, comm *runtime.Communicator, log *logrus.Entry) *Peer {
	return &Peer{
		name:         name,
		peers:        peers,
		comm:         comm,
		log:          log,
		lastReceived: make(map[string]int),
		received:     make(map[string]struct{}),
		holdBack:     make(map[string]*seqHeap),
	}
}

// Run processes local SEND commands and inbound BCAST traffic forever.
func (p *Peer) Run() {
	for {
		msg, ok := p.comm.Recv(0)
		if !ok {
			continue
		}

		if msg.Local {
			p.handleLocal(msg)
			continue
		}
		p.handleNetwork(msg)
	}
}

func (p *Peer) handleLocal(msg wire.Message) {
	if msg.Type != "SEND" {
		p.comm.SendLocal(wire.NewLocal("ERROR", fmt.Sprintf("unknown command: %s", msg.Type)))
		return
	}

	p.seqNo++
	bcast := wire.Message{
		Type: "BCAST",
		Body: msg.Body,
		Headers: map[string]string{
			"from":   p.name,
			"seq_no": strconv.Itoa(p.seqNo),
			"sender": p.name,
		},
	}
	for _, peer := range p.peers {
		p.comm.Send(bcast, peer)
	}
}

func (p *Peer) handleNetwork(msg wire.Message) {
	if msg.Type != "BCAST" {
		p.comm.Send(wire.NewBody("ERROR", fmt.Sprintf("unknown message type: %s", msg.Type)), msg.Sender)
		return
	}

	key := bodyKey(msg.Body)
	if _, dup := p.received[key]; dup {
		return
	}
	if msg.Headers["sender"] == p.name {
		// we forwarded this ourselves; seeing it come back around a loop
		// means nothing new to deliver.
		return
	}
	p.received[key] = struct{}{}

	from := msg.Headers["from"]
	if from != p.name {
		forwarded := msg.WithHeader("sender", p.name)
		for _, peer := range p.peers {
			p.comm.Send(forwarded, peer)
		}
	}

	seqNo, err := strconv.Atoi(msg.Headers["seq_no"])
	if err != nil {
		p.log.Warnf("BCAST from %s missing a valid seq_no header: %v", from, err)
		return
	}
	p.deliverInOrder(from, seqNo, msg)
}

// deliverInOrder delivers msg immediately if it is the next expected
// sequence number for its source, queues it in that source's hold-back
// heap if it arrived early, or drops it silently if it is a stale replay
// (already covered by the seen-set dedup above in practice).
func (p *Peer) deliverInOrder(from string, seqNo int, msg wire.Message) {
	expected := p.lastReceived[from] + 1

	switch {
	case seqNo == expected:
		p.deliver(from, msg)
		p.lastReceived[from]++
		p.drainHoldBack(from)
	case seqNo > expected:
		h := p.holdBack[from]
		if h == nil {
			h = &seqHeap{}
			p.holdBack[from] = h
		}
		heap.Push(h, seqMsg{seq: seqNo, msg: msg})
	}
}

func (p *Peer) drainHoldBack(from string) {
	h := p.holdBack[from]
	for h != nil && h.Len() > 0 {
		if (*h)[0].seq != p.lastReceived[from]+1 {
			break
		}
		item := heap.Pop(h).(seqMsg)
		p.deliver(from, item.msg)
		p.lastReceived[from]++
	}
}

func (p *Peer) deliver(from string, msg wire.Message) {
	p.comm.SendLocal(wire.NewLocal("DELIVER", fmt.Sprintf("%s: %v", from, msg.Body)))
}

func bodyKey(body any) string {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Sprintf("%v", body)
	}
	return string(b)
}
