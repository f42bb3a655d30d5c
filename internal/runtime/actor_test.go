package runtime

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"distributed-protocols/internal/logging"
	"distributed-protocols/internal/testutil"
	"distributed-protocols/internal/wire"
)

type echoProcess struct {
	timerFired chan string
}

func (p *echoProcess) Receive(ctx *Context, msg wire.Message) {
	if msg.Local {
		ctx.SendLocal(wire.NewBody("ECHO", msg.Body))
		return
	}
	ctx.Send(wire.NewBody("PONG", msg.Body), msg.Sender)
}

func (p *echoProcess) OnTimer(ctx *Context, timer string) {
	p.timerFired <- timer
}

func TestRuntimeDispatchesLocalMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	net := testutil.NewFakeNetwork()
	tr := net.NewTransport("node-a:1")
	mailbox := NewLocalMailbox()
	proc := &echoProcess{timerFired: make(chan string, 1)}
	log := logging.New("node-a", "node-a:1", false)

	rt := NewRuntime(tr, mailbox, proc, log)
	rt.Start()
	defer rt.Stop()

	driver := mailbox.Driver()
	driver.Send(wire.NewLocal("PING", "hello"))

	select {
	case reply := <-driver.RecvChan():
		if reply.Type != "ECHO" || reply.Body != "hello" {
			t.Errorf("unexpected reply: %+v", reply)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for local reply")
	}
}

func TestRuntimeTimerFiresOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	net := testutil.NewFakeNetwork()
	tr := net.NewTransport("node-b:1")
	mailbox := NewLocalMailbox()
	proc := &echoProcess{timerFired: make(chan string, 4)}
	log := logging.New("node-b", "node-b:1", false)

	rt := NewRuntime(tr, mailbox, proc, log)
	rt.Start()
	defer rt.Stop()

	rt.ctx.SetTimer("tick", 10*time.Millisecond)

	select {
	case name := <-proc.timerFired:
		if name != "tick" {
			t.Errorf("expected timer 'tick', got %q", name)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for timer to fire")
	}

	select {
	case name := <-proc.timerFired:
		t.Fatalf("timer fired twice: %q", name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerReplacementCancelsStaleFire(t *testing.T) {
	defer goleak.VerifyNone(t)

	net := testutil.NewFakeNetwork()
	tr := net.NewTransport("node-c:1")
	mailbox := NewLocalMailbox()
	proc := &echoProcess{timerFired: make(chan string, 4)}
	log := logging.New("node-c", "node-c:1", false)

	rt := NewRuntime(tr, mailbox, proc, log)
	rt.Start()
	defer rt.Stop()

	rt.ctx.SetTimer("tick", 5*time.Millisecond)
	rt.ctx.CancelTimer("tick")
	rt.ctx.SetTimer("tick", 30*time.Millisecond)

	start := time.Now()
	select {
	case <-proc.timerFired:
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("timer fired too early (%v), stale fire was not suppressed", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for timer to fire")
	}
}
