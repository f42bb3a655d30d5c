package broadcast

import (
	"testing"
	"time"

	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/testutil"
	"distributed-protocols/internal/wire"
)

type node struct {
	driver runtime.Driver
	peer   *Peer
}

func newNode(t *testing.T, net *testutil.FakeNetwork, name, addr string, peerAddrs []string) node {
	t.Helper()
	tr := net.NewTransport(wire.Address(addr))
	mailbox := runtime.NewLocalMailbox()
	log := logging.New(name, addr, false)
	comm := runtime.NewCommunicator(tr, mailbox, log)

	var peers []wire.Address
	for _, a := range peerAddrs {
		peers = append(peers, wire.Address(a))
	}
	p := NewPeer(name, peers, comm, log)
	go p.Run()

	return node{driver: mailbox.Driver(), peer: p}
}

func recvDeliver(t *testing.T, d runtime.Driver, timeout time.Duration) wire.Message {
	t.Helper()
	select {
	case msg := <-d.RecvChan():
		return msg
	case <-time.After(timeout):
		t.Fatal("timed out waiting for DELIVER")
		return wire.Message{}
	}
}

// S3: broadcast reliability — A's direct link to C is down, but A's
// message still reaches C by being forwarded through B.
func TestBroadcastReachesAllPeersViaForwarding(t *testing.T) {
	net := testutil.NewFakeNetwork()
	a := newNode(t, net, "a", "bc-a:1", []string{"bc-b:1", "bc-c:1"})
	b := newNode(t, net, "b", "bc-b:1", []string{"bc-a:1", "bc-c:1"})
	c := newNode(t, net, "c", "bc-c:1", []string{"bc-a:1", "bc-b:1"})
	_ = b

	// A's direct link to C silently drops every datagram.
	net.QueueFault("bc-a:1", "bc-c:1", testutil.FaultDrop)
	net.QueueFault("bc-a:1", "bc-c:1", testutil.FaultDrop)
	net.QueueFault("bc-a:1", "bc-c:1", testutil.FaultDrop)
	net.QueueFault("bc-a:1", "bc-c:1", testutil.FaultDrop)
	net.QueueFault("bc-a:1", "bc-c:1", testutil.FaultDrop)

	a.driver.Send(wire.NewLocal("SEND", "hi"))

	got := recvDeliver(t, c.driver, 2*time.Second)
	if got.Type != "DELIVER" || got.Body != "a: hi" {
		t.Fatalf("C did not receive A's message via forwarding through B: %+v", got)
	}
}

// S4: broadcast reordering — a peer receiving seq 2 before seq 1 from the
// same source holds 2 back and delivers both in order once 1 arrives.
func TestBroadcastHoldsBackOutOfOrderMessages(t *testing.T) {
	net := testutil.NewFakeNetwork()

	tr := net.NewTransport("bc-r:1")
	mailbox := runtime.NewLocalMailbox()
	log := logging.New("r", "bc-r:1", false)
	comm := runtime.NewCommunicator(tr, mailbox, log)
	receiver := NewPeer("r", nil, comm, log)
	go receiver.Run()
	driver := mailbox.Driver()

	senderTr := net.NewTransport("bc-s:1")
	senderComm := runtime.NewCommunicator(senderTr, runtime.NewLocalMailbox(), logging.New("s", "bc-s:1", false))

	second := wire.Message{
		Type: "BCAST",
		Body: "second",
		Headers: map[string]string{
			"from":   "s",
			"seq_no": "2",
			"sender": "s",
		},
	}
	first := wire.Message{
		Type: "BCAST",
		Body: "first",
		Headers: map[string]string{
			"from":   "s",
			"seq_no": "1",
			"sender": "s",
		},
	}

	// seq 2 arrives first.
	senderComm.Send(second, "bc-r:1")
	time.Sleep(20 * time.Millisecond)
	senderComm.Send(first, "bc-r:1")

	firstDeliver := recvDeliver(t, driver, 2*time.Second)
	secondDeliver := recvDeliver(t, driver, 2*time.Second)

	if firstDeliver.Body != "s: first" {
		t.Fatalf("expected 'first' delivered before 'second', got %+v then %+v", firstDeliver, secondDeliver)
	}
	if secondDeliver.Body != "s: second" {
		t.Fatalf("expected 'second' delivered after 'first', got %+v", secondDeliver)
	}
}
