package runtime

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/transport"
	"distributed-protocols/internal/wire"
)

// Process is the actor-style handler dispatched one event at a time by a
// Runtime: a network or local message via Receive, a fired timer via
// OnTimer. A Process never runs concurrently with itself, so its state
// needs no locking.
type Process interface {
	Receive(ctx *Context, msg wire.Message)
	OnTimer(ctx *Context, timer string)
}

// Context is the handle a Process uses to act: send messages, set timers,
// learn its own address. All Context methods are safe to call only from
// within a Receive/OnTimer callback.
type Context struct {
	rt *Runtime
}

// Addr is this process's own network address.
func (c *Context) Addr() wire.Address { return c.rt.tr.LocalAddr() }

// Send transmits msg to a peer over the network.
func (c *Context) Send(msg wire.Message, to wire.Address) { c.rt.send(msg, to) }

// SendLocal emits a result to this process's driver.
func (c *Context) SendLocal(msg wire.Message) { c.rt.sendLocal(msg) }

// SetTimer (re)arms a named, one-shot timer. Setting a timer that is
// already armed replaces it; the old one will not fire.
func (c *Context) SetTimer(name string, d time.Duration) { c.rt.setTimer(name, d) }

// CancelTimer disarms a named timer if it is armed; otherwise a no-op.
func (c *Context) CancelTimer(name string) { c.rt.cancelTimer(name) }

type timerEntry struct {
	timer *time.Timer
	gen   uint64
}

type timerFire struct {
	name string
	gen  uint64
}

// Runtime drives a Process's single-threaded event loop over a transport
// and a local mailbox.
type Runtime struct {
	tr    transport.Transport
	local *LocalMailbox
	proc  Process
	log   *logrus.Entry
	ctx   *Context

	mu       sync.Mutex
	timers   map[string]timerEntry
	timerGen uint64

	fires chan timerFire
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewRuntime constructs a Runtime. Call Start to begin dispatching.
func NewRuntime(tr transport.Transport, local *LocalMailbox, proc Process, log *logrus.Entry) *Runtime {
	rt := &Runtime{
		tr:     tr,
		local:  local,
		proc:   proc,
		log:    log,
		timers: make(map[string]timerEntry),
		fires:  make(chan timerFire, 16),
		done:   make(chan struct{}),
	}
	rt.ctx = &Context{rt: rt}
	return rt
}

// Start launches the event loop goroutine.
func (rt *Runtime) Start() {
	rt.wg.Add(1)
	go rt.loop()
}

// Stop halts the event loop and closes the underlying transport. It blocks
// until the loop goroutine has exited.
func (rt *Runtime) Stop() {
	close(rt.done)
	rt.tr.Close()
	rt.wg.Wait()
}

func (rt *Runtime) loop() {
	defer rt.wg.Done()
	for {
		select {
		case <-rt.done:
			return
		case msg := <-rt.local.toProcess:
			msg.Local = true
			rt.proc.Receive(rt.ctx, msg)
		case pkt, ok := <-rt.tr.Inbox():
			if !ok {
				return
			}
			msg, err := decode(pkt.Data, pkt.From)
			if err != nil {
				rt.log.Warnf("dropping malformed datagram from %s: %v", pkt.From, err)
				continue
			}
			rt.proc.Receive(rt.ctx, msg)
		case fire := <-rt.fires:
			rt.mu.Lock()
			entry, ok := rt.timers[fire.name]
			if !ok || entry.gen != fire.gen {
				rt.mu.Unlock()
				continue // stale fire from a timer that was replaced or canceled
			}
			delete(rt.timers, fire.name)
			rt.mu.Unlock()
			rt.proc.OnTimer(rt.ctx, fire.name)
		}
	}
}

func (rt *Runtime) send(msg wire.Message, to wire.Address) {
	data, err := encode(msg)
	if err != nil {
		rt.log.Errorf("encode message to %s: %v", to, err)
		return
	}
	if err := rt.tr.Send(to, data); err != nil {
		rt.log.Warnf("send to %s: %v", to, err)
	}
}

func (rt *Runtime) sendLocal(msg wire.Message) {
	msg.Local = true
	select {
	case rt.local.fromProcess <- msg:
	default:
		rt.log.Warn("local mailbox full, dropping outgoing local message")
	}
}

func (rt *Runtime) setTimer(name string, d time.Duration) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if old, ok := rt.timers[name]; ok {
		old.timer.Stop()
	}
	rt.timerGen++
	gen := rt.timerGen
	t := time.AfterFunc(d, func() {
		select {
		case rt.fires <- timerFire{name: name, gen: gen}:
		case <-rt.done:
		}
	})
	rt.timers[name] = timerEntry{timer: t, gen: gen}
}

func (rt *Runtime) cancelTimer(name string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if entry, ok := rt.timers[name]; ok {
		entry.timer.Stop()
		delete(rt.timers, name)
	}
}
