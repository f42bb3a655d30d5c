package rpcstore

import (
	"testing"
	"time"

	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/testutil"
	"distributed-protocols/internal/wire"
)

func newClientServer(t *testing.T, net *testutil.FakeNetwork, clientAddr, serverAddr string) (*RpcClient, *InMemoryStore) {
	t.Helper()

	clientTr := net.NewTransport(wire.Address(clientAddr))
	clientComm := runtime.NewCommunicator(clientTr, runtime.NewLocalMailbox(), logging.New("client", clientAddr, false))
	client := NewRpcClient(clientComm, wire.Address(serverAddr))

	serverTr := net.NewTransport(wire.Address(serverAddr))
	store := NewInMemoryStore()
	serverComm := runtime.NewCommunicator(serverTr, runtime.NewLocalMailbox(), logging.New("server", serverAddr, false))
	server := NewServer(serverComm, store, logging.New("server", serverAddr, false))
	go server.Run()

	return client, store
}

func TestPutGetRoundTrip(t *testing.T) {
	net := testutil.NewFakeNetwork()
	client, _ := newClientServer(t, net, "c1:1", "srv1:1")

	if _, err := client.Call("put", "k", "v", true); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	result, err := client.Call("get", "k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if result != "v" {
		t.Fatalf("expected 'v', got %v", result)
	}
}

func TestIdempotentCallRetriesUnderLoss(t *testing.T) {
	net := testutil.NewFakeNetwork()
	client, _ := newClientServer(t, net, "c2:1", "srv2:1")

	net.QueueFault("c2:1", "srv2:1", testutil.FaultDrop)
	net.QueueFault("c2:1", "srv2:1", testutil.FaultDrop)

	result, err := client.Call("put", "k", "v", true)
	if err != nil {
		t.Fatalf("put failed after retries: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestServerAppliesDuplicatedAppendTwice(t *testing.T) {
	net := testutil.NewFakeNetwork()
	client, store := newClientServer(t, net, "c3:1", "srv3:1")

	// Duplicate the single append datagram so the server sees the exact
	// same request twice; append is never deduplicated, so both copies are
	// applied and the stored value shows two applications.
	net.QueueFault("c3:1", "srv3:1", testutil.FaultDuplicate)

	if _, err := client.Call("append", "k", "x"); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	got, _ := store.Get("k")
	if got != "xx" {
		t.Fatalf("expected append to apply twice (not deduped) and yield 'xx', got %v", got)
	}
}

func TestAppendFailsOnTimeoutWithoutRetry(t *testing.T) {
	net := testutil.NewFakeNetwork()
	client, _ := newClientServer(t, net, "c4:1", "srv4:1")

	// Drop every attempt forever: append must give up after one timeout,
	// not retry indefinitely like the idempotent ops do.
	for i := 0; i < 10; i++ {
		net.QueueFault("c4:1", "srv4:1", testutil.FaultDrop)
	}

	start := time.Now()
	_, err := client.Call("append", "k", "x")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected append to fail on timeout, got nil error")
	}
	if elapsed > 3*time.Second {
		t.Fatalf("append took too long (%v); it should fail after a single timeout, not retry", elapsed)
	}
}

func TestCallBuffersLocalCommandArrivingWhileWaitingForReply(t *testing.T) {
	net := testutil.NewFakeNetwork()

	clientTr := net.NewTransport(wire.Address("c6:1"))
	mailbox := runtime.NewLocalMailbox()
	clientComm := runtime.NewCommunicator(clientTr, mailbox, logging.New("client", "c6:1", false))
	client := NewRpcClient(clientComm, wire.Address("srv6:1"))
	driver := mailbox.Driver()

	serverTr := net.NewTransport(wire.Address("srv6:1"))
	store := NewInMemoryStore()
	serverComm := runtime.NewCommunicator(serverTr, runtime.NewLocalMailbox(), logging.New("server", "srv6:1", false))
	server := NewServer(serverComm, store, logging.New("server", "srv6:1", false))
	go server.Run()

	// Drop the first attempt so Call's retry loop is still waiting on the
	// network when a local command is injected below.
	net.QueueFault("c6:1", "srv6:1", testutil.FaultDrop)

	type callResult struct {
		value any
		err   error
	}
	done := make(chan callResult, 1)
	go func() {
		v, err := client.Call("put", "k", "v", true)
		done <- callResult{v, err}
	}()

	// Give the dropped first attempt time to be in flight, then inject a
	// local command that must not be mistaken for the put's reply.
	time.Sleep(50 * time.Millisecond)
	driver.Send(wire.NewLocal("PING", "hello"))

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("put failed: %v", res.err)
		}
		if res.value != true {
			t.Fatalf("expected put to return true, got %v (the buffered local command leaked into the call result)", res.value)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("put never returned")
	}

	buffered, ok := client.RecvLocal(time.Second)
	if !ok {
		t.Fatal("expected the injected local command to be buffered and replayed via RecvLocal")
	}
	if buffered.Type != "PING" || buffered.Body != "hello" {
		t.Fatalf("expected buffered PING/hello, got %s/%v", buffered.Type, buffered.Body)
	}
}

func TestUnknownFunctionReturnsError(t *testing.T) {
	net := testutil.NewFakeNetwork()
	client, _ := newClientServer(t, net, "c5:1", "srv5:1")

	if _, err := client.Call("frobnicate", "k"); err == nil {
		t.Fatal("expected an error calling an unknown function")
	}
}
